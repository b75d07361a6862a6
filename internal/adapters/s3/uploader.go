// Package s3 publishes table snapshots to an S3-compatible bucket (AWS S3 or MinIO).
package s3

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/example/labbook/internal/apperr"
	"github.com/example/labbook/internal/ports/secondary"
)

// Config holds construction parameters. Credentials fall back to the
// default AWS chain when AccessKeyID is empty.
type Config struct {
	Bucket          string
	Region          string // default us-east-1
	Endpoint        string // optional, e.g. a MinIO URL
	Prefix          string // key prefix, e.g. "labbook/"
	PathStyle       bool
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// Uploader implements secondary.SnapshotUploader with PutObject.
type Uploader struct {
	client *s3.Client
	bucket string
	prefix string
}

// New creates an uploader from Config. optFns are applied to the S3
// client options after Config.
func New(ctx context.Context, cfg Config, optFns ...func(*s3.Options)) (*Uploader, error) {
	if cfg.Bucket == "" {
		return nil, apperr.Derive(apperr.ErrNotConfigured, "s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		for _, fn := range optFns {
			fn(o)
		}
	})

	return &Uploader{client: client, bucket: cfg.Bucket, prefix: strings.Trim(cfg.Prefix, "/")}, nil
}

// Upload stores data under the configured prefix and returns an s3:// URL.
func (u *Uploader) Upload(ctx context.Context, name, contentType string, data []byte) (string, error) {
	key := name
	if u.prefix != "" {
		key = path.Join(u.prefix, name)
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := u.client.PutObject(ctx, input); err != nil {
		return "", apperr.Wrap(err, apperr.ErrStoreWriteRejected, fmt.Sprintf("failed to upload %s", key))
	}
	return fmt.Sprintf("s3://%s/%s", u.bucket, key), nil
}

var _ secondary.SnapshotUploader = (*Uploader)(nil)
