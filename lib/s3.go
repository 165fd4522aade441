package lib

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// bucketEnvVar names the environment variable consulted for the default bucket.
const bucketEnvVar = "S3_BUCKET_NAME"

// defaultBucket is used when no bucket is configured anywhere.
const defaultBucket = "zillow-images"

// S3Config contains the settings for the S3-backed store.
type S3Config struct {
	Endpoint        string // Optional: custom endpoint for MinIO or other S3-compatible stores
	Region          string // AWS region, empty defers to the default config chain
	Bucket          string // Bucket name, empty falls back to DefaultBucket()
	AccessKeyID     string // Optional static credentials
	SecretAccessKey string
	UsePathStyle    bool // Path-style addressing, required for MinIO
}

// S3Store uploads images into an S3 bucket.
type S3Store struct {
	client *s3.Client
	bucket string
}

// DefaultBucket returns the bucket named by $S3_BUCKET_NAME, falling back
// to "zillow-images".
func DefaultBucket() string {
	if bucket := os.Getenv(bucketEnvVar); bucket != "" {
		return bucket
	}
	return defaultBucket
}

// NewS3Store creates an S3Store and verifies the bucket is reachable.
// Callers are expected to fall back to local storage when it returns an
// error.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		cfg.Bucket = DefaultBucket()
	}

	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.Bucket)}); err != nil {
		return nil, fmt.Errorf("bucket %q is not accessible: %w", cfg.Bucket, err)
	}

	return &S3Store{client: client, bucket: cfg.Bucket}, nil
}

// Put uploads the object under key and returns its public URL.
func (s *S3Store) Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	key = strings.TrimPrefix(key, "/")

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload image to S3: %w", err)
	}

	return s.PublicURL(key), nil
}

// PublicURL returns the virtual-hosted URL for a key.
func (s *S3Store) PublicURL(key string) string {
	key = strings.TrimPrefix(key, "/")
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.bucket, key)
}

// Bucket returns the bucket this store uploads into.
func (s *S3Store) Bucket() string {
	return s.bucket
}

// Destination describes the storage target for summaries.
func (s *S3Store) Destination() string {
	return fmt.Sprintf("s3://%s", s.bucket)
}
