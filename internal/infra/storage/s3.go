package storage

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/docmesh/docman-service/internal/core/port"
	"github.com/docmesh/docman-service/internal/infra/config"
)

// S3Store keeps file content in an S3 bucket under an optional key prefix.
// Works against AWS or any S3-compatible endpoint such as MinIO.
type S3Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Store builds an S3-backed file store from the storage settings.
func NewS3Store(ctx context.Context, cfg config.StorageSettings) (*S3Store, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.S3Region)}
	if cfg.S3AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{client: client, bucket: cfg.S3Bucket, prefix: cfg.S3Prefix}, nil
}

func (s *S3Store) key(fileID string) string {
	if s.prefix == "" {
		return fileID
	}
	return path.Join(s.prefix, fileID)
}

// Put uploads the content under the file id key.
func (s *S3Store) Put(ctx context.Context, fileID string, content io.Reader, size int64) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(fileID)),
		Body:   content,
	}
	if size > 0 {
		input.ContentLength = aws.Int64(size)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("put object %s: %w", fileID, err)
	}
	return nil
}

// Get streams the stored content.
func (s *S3Store) Get(ctx context.Context, fileID string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(fileID)),
	})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", fileID, err)
	}
	return out.Body, nil
}

// Delete removes the object. S3 reports success for absent keys, which keeps
// the operation idempotent.
func (s *S3Store) Delete(ctx context.Context, fileID string) error {
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(fileID)),
	}); err != nil {
		return fmt.Errorf("delete object %s: %w", fileID, err)
	}
	return nil
}

var _ port.FileStore = (*S3Store)(nil)
