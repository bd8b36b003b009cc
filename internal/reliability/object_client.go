// Package reliability provides database backup, remote archival, and
// maintenance routines.
package reliability

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/stockpulse/stockpulse/internal/config"
)

// RemoteObject describes an object in the backup bucket.
type RemoteObject struct {
	Key          string
	SizeBytes    int64
	LastModified time.Time
}

// ObjectClient wraps an S3-compatible bucket. Works with AWS S3,
// Cloudflare R2, and MinIO via the endpoint override.
type ObjectClient struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	log      zerolog.Logger
}

// NewObjectClient creates a client for the configured backup bucket.
func NewObjectClient(ctx context.Context, cfg *config.BackupConfig, log zerolog.Logger) (*ObjectClient, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load storage configuration: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &ObjectClient{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   cfg.Bucket,
		log:      log.With().Str("client", "object_storage").Logger(),
	}, nil
}

// Upload streams an object to the bucket.
func (c *ObjectClient) Upload(ctx context.Context, key string, body io.Reader) error {
	_, err := c.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
		Body:   body,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}

	c.log.Debug().Str("key", key).Msg("Object uploaded")
	return nil
}

// List returns objects under the given key prefix.
func (c *ObjectClient) List(ctx context.Context, prefix string) ([]RemoteObject, error) {
	var objects []RemoteObject

	paginator := s3.NewListObjectsV2Paginator(c.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects under %s: %w", prefix, err)
		}

		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			ro := RemoteObject{Key: *obj.Key}
			if obj.Size != nil {
				ro.SizeBytes = *obj.Size
			}
			if obj.LastModified != nil {
				ro.LastModified = *obj.LastModified
			}
			objects = append(objects, ro)
		}
	}

	return objects, nil
}

// Delete removes one object from the bucket.
func (c *ObjectClient) Delete(ctx context.Context, key string) error {
	_, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}
