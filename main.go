package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"cldupload/internal/archive"
	"cldupload/internal/cloudinary"
	"cldupload/internal/config"
	"cldupload/internal/demo"
	"cldupload/internal/signature"
)

var (
	// CLI flags
	planPath  string
	imagePath string
	envFile   string
	timeout   time.Duration
	logLevel  string
)

var rootCmd = &cobra.Command{
	Use:   "cldupload",
	Short: "Exercise the Cloudinary upload API four ways",
	Long: `cldupload uploads one local image to Cloudinary using, in order:

  1. an unsigned upload preset
  2. a locally generated request signature (printed)
  3. a hand-built multipart REST call carrying that signature
  4. an SDK signed upload

Credentials come from CLOUD_NAME, API_KEY and API_SECRET, optionally loaded
from a .env file. Resulting URLs are printed to stdout.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runAll,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run all four upload steps in order",
	RunE:  runAll,
}

var unsignedCmd = &cobra.Command{
	Use:   "unsigned",
	Short: "Upload the image with the unsigned preset",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunner(cmd, func(ctx context.Context, r *demo.Runner) error {
			img, err := r.LoadImage(ctx)
			if err != nil {
				return err
			}
			_, err = r.Unsigned(ctx, img)
			return err
		})
	},
}

var signCmd = &cobra.Command{
	Use:   "sign",
	Short: "Print the signature for the REST upload parameters",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunner(cmd, func(ctx context.Context, r *demo.Runner) error {
			_, err := r.Sign(ctx, r.RESTParams(time.Now()))
			return err
		})
	},
}

var restCmd = &cobra.Command{
	Use:   "rest",
	Short: "Sign and upload the image through the REST endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunner(cmd, func(ctx context.Context, r *demo.Runner) error {
			img, err := r.LoadImage(ctx)
			if err != nil {
				return err
			}
			params := r.RESTParams(time.Now())
			if _, err := r.Sign(ctx, params); err != nil {
				return err
			}
			_, err = r.REST(ctx, img, params)
			return err
		})
	},
}

var signedCmd = &cobra.Command{
	Use:   "signed",
	Short: "Upload the image with an SDK signed upload",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunner(cmd, func(ctx context.Context, r *demo.Runner) error {
			img, err := r.LoadImage(ctx)
			if err != nil {
				return err
			}
			_, err = r.Signed(ctx, img)
			return err
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&planPath, "plan", "p", "", "Path to a YAML upload plan (default $PLAN_PATH)")
	rootCmd.PersistentFlags().StringVarP(&imagePath, "image", "i", "", "Image to upload, overrides the plan")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Env file to load instead of ./.env")
	rootCmd.PersistentFlags().DurationVarP(&timeout, "timeout", "t", 0, "Overall deadline for network calls, 0 waits indefinitely")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (default $LOG_LEVEL or info)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(unsignedCmd)
	rootCmd.AddCommand(signCmd)
	rootCmd.AddCommand(restCmd)
	rootCmd.AddCommand(signedCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runAll(cmd *cobra.Command, args []string) error {
	return withRunner(cmd, func(ctx context.Context, r *demo.Runner) error {
		_, err := r.Run(ctx)
		return err
	})
}

// withRunner loads configuration, wires the clients and hands a ready
// Runner to fn.
func withRunner(cmd *cobra.Command, fn func(ctx context.Context, r *demo.Runner) error) error {
	var envFiles []string
	if envFile != "" {
		envFiles = append(envFiles, envFile)
	}
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return err
	}

	level := logLevel
	if level == "" {
		level = cfg.LogLevel
	}
	logger, err := newLogger(cmd.ErrOrStderr(), level)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logger.WithContext(ctx)

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	runner, err := newRunner(ctx, cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	return fn(ctx, runner)
}

func newRunner(ctx context.Context, cfg *config.Config, out io.Writer) (*demo.Runner, error) {
	path := planPath
	if path == "" {
		path = cfg.PlanPath
	}
	plan, err := config.LoadPlan(path)
	if err != nil {
		return nil, err
	}
	if imagePath != "" {
		plan.ImagePath = imagePath
	}

	// fail on a bad algorithm before anything is uploaded
	if err := signature.ValidateAlgorithm(cfg.SignatureAlgorithm); err != nil {
		return nil, err
	}

	sdk, err := cloudinary.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	rest := cloudinary.NewRESTUploader(cfg, nil)

	var store demo.ReportStore
	if cfg.ArchiveEnabled() {
		s3Store, err := archive.NewS3Store(ctx, cfg)
		if err != nil {
			return nil, err
		}
		store = s3Store
	} else {
		log.Ctx(ctx).Debug().Msg("REPORT_S3_BUCKET not set, run report will not be archived")
	}

	return demo.NewRunner(sdk, rest, store, plan, out), nil
}

func newLogger(w io.Writer, level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).
		Level(lvl).
		With().
		Timestamp().
		Logger(), nil
}
