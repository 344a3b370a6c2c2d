// Package spaces uploads exported files to DigitalOcean Spaces or any other
// S3 compatible bucket.
package spaces

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type Config struct {
	Key    string `toml:"key"`
	Secret string `toml:"secret"`
	Region string `toml:"region"`
	Bucket string `toml:"bucket"`
	// Endpoint defaults to https://<region>.digitaloceanspaces.com.
	Endpoint string `toml:"endpoint"`
	// PublicURL is the base of returned links. Defaults to the bucket's CDN-less URL.
	PublicURL string `toml:"public_url"`
	Root      string `toml:"root"`
}

func (c Config) Enabled() bool {
	return c.Key != "" && c.Secret != "" && c.Bucket != ""
}

type putter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Uploader struct {
	client    putter
	bucket    string
	root      string
	publicURL string
}

func NewUploader(ctx context.Context, cfg Config) (*Uploader, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.digitaloceanspaces.com", cfg.Region)
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.Key, cfg.Secret, "")),
		config.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load spaces config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})
	return newUploader(client, cfg), nil
}

func newUploader(client putter, cfg Config) *Uploader {
	publicURL := cfg.PublicURL
	if publicURL == "" {
		publicURL = fmt.Sprintf("https://%s.%s.digitaloceanspaces.com", cfg.Bucket, cfg.Region)
	}
	return &Uploader{
		client:    client,
		bucket:    cfg.Bucket,
		root:      strings.Trim(cfg.Root, "/"),
		publicURL: strings.TrimSuffix(publicURL, "/"),
	}
}

// Upload stores data publicly under key and returns its URL.
func (u *Uploader) Upload(ctx context.Context, key, contentType string, data []byte) (string, error) {
	path := strings.TrimPrefix(key, "/")
	if u.root != "" {
		path = u.root + "/" + path
	}

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(u.bucket),
		Key:          aws.String(path),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("public, max-age=300"),
		ACL:          types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", path, err)
	}

	slog.Debug("Object uploaded",
		slog.String("type", "sys"),
		slog.String("bucket", u.bucket),
		slog.String("key", path),
		slog.Int("bytes", len(data)),
	)
	return u.publicURL + "/" + path, nil
}
