package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	"cldupload/internal/config"
)

// ObjectPutter is the slice of the S3 API the archive needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Store writes run reports as JSON objects to an S3 bucket.
type Store struct {
	s3Client ObjectPutter
	bucket   string
	prefix   string
}

func NewStore(s3Client ObjectPutter, bucket, prefix string) *Store {
	return &Store{
		s3Client: s3Client,
		bucket:   bucket,
		prefix:   prefix,
	}
}

// NewS3Store builds a Store from the report settings in cfg. Static
// credentials are used when both keys are set, otherwise the default AWS
// credential chain.
func NewS3Store(ctx context.Context, cfg *config.Config) (*Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.ReportRegion),
	}
	if cfg.AWSAccessKey != "" && cfg.AWSSecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKey, cfg.AWSSecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewStore(s3Client, cfg.ReportBucket, cfg.ReportPrefix), nil
}

// Key returns the object key for a report name.
func (s *Store) Key(name string) string {
	return path.Join(s.prefix, name+".json")
}

// Put marshals v as indented JSON and stores it under Key(name).
func (s *Store) Put(ctx context.Context, name string, v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}

	key := s.Key(name)
	if err := s.putObject(ctx, key, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("failed to store report %q: %w", key, err)
	}

	log.Ctx(ctx).Debug().Str("bucket", s.bucket).Str("key", key).Msg("report archived")
	return key, nil
}

func (s *Store) putObject(ctx context.Context, key string, body io.Reader) error {
	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String("application/json"),
	})
	return err
}
