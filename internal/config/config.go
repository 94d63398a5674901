package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var ErrMissingCredentials = errors.New("missing cloudinary credentials")

type Config struct {
	CloudName          string `env:"CLOUD_NAME" env-required:"true"`
	APIKey             string `env:"API_KEY" env-required:"true"`
	APISecret          string `env:"API_SECRET" env-required:"true"`
	UploadPrefix       string `env:"CLOUDINARY_UPLOAD_PREFIX" env-default:"https://api.cloudinary.com"`
	SignatureAlgorithm string `env:"SIGNATURE_ALGORITHM" env-default:"sha1"`
	LogLevel           string `env:"LOG_LEVEL" env-default:"info"`
	PlanPath           string `env:"PLAN_PATH"`

	// Run report archive, skipped when ReportBucket is empty
	ReportBucket string `env:"REPORT_S3_BUCKET"`
	ReportRegion string `env:"REPORT_S3_REGION" env-default:"us-east-1"`
	ReportPrefix string `env:"REPORT_S3_PREFIX" env-default:"runs"`
	AWSAccessKey string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretKey string `env:"AWS_SECRET_ACCESS_KEY"`
	S3Endpoint   string `env:"S3_ENDPOINT"`
}

// Load reads an optional .env file (or the given env files) and then the
// process environment. All three credentials must be present.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		if len(envFiles) > 0 || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingCredentials, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects blank credentials. cleanenv treats a variable that is set
// but empty as present.
func (c *Config) Validate() error {
	switch {
	case c.CloudName == "":
		return fmt.Errorf("%w: CLOUD_NAME is empty", ErrMissingCredentials)
	case c.APIKey == "":
		return fmt.Errorf("%w: API_KEY is empty", ErrMissingCredentials)
	case c.APISecret == "":
		return fmt.Errorf("%w: API_SECRET is empty", ErrMissingCredentials)
	}
	return nil
}

// ArchiveEnabled reports whether run reports should be written to S3.
func (c *Config) ArchiveEnabled() bool {
	return c.ReportBucket != ""
}

type PrepareOptions struct {
	MaxWidth  int    `yaml:"max_width"`
	ConvertTo string `yaml:"convert_to"`
	Quality   int    `yaml:"quality"`
}

type Plan struct {
	ImagePath        string         `yaml:"image_path"`
	Preset           string         `yaml:"preset"`
	Folder           string         `yaml:"folder"`
	UniqueFilename   bool           `yaml:"unique_filename"`
	UnsignedPublicID string         `yaml:"unsigned_public_id"`
	RESTPublicID     string         `yaml:"rest_public_id"`
	SDKPublicID      string         `yaml:"sdk_public_id"`
	Prepare          PrepareOptions `yaml:"prepare"`
}

// LoadPlan returns DefaultPlan overlaid with the YAML file at path.
// An empty path yields the defaults.
func LoadPlan(path string) (*Plan, error) {
	plan := DefaultPlan()
	if path == "" {
		return plan, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan: %w", err)
	}

	if err := yaml.Unmarshal(data, plan); err != nil {
		return nil, fmt.Errorf("failed to parse plan: %w", err)
	}

	return plan, nil
}

func DefaultPlan() *Plan {
	return &Plan{
		ImagePath:        defaultImagePath(),
		Preset:           "untrusted-images",
		Folder:           "cloudinary-node-signed-upload-demo",
		UniqueFilename:   false,
		UnsignedPublicID: "chase-sdk-unsigned",
		RESTPublicID:     "chase-rest-signed",
		SDKPublicID:      "chase-sdk-signed",
	}
}

func defaultImagePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, "Desktop", "cloudinary-node-signed-upload-demo", "chase.jpg")
}
