// Package publish uploads completed conversions to S3-compatible storage.
package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"vidconv/internal/config"
	"vidconv/internal/logging"
	"vidconv/internal/services"
)

const contentTypeMP4 = "video/mp4"

// ObjectUploader is the subset of manager.Uploader used here.
type ObjectUploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithUploader injects a custom uploader (primarily for tests).
func WithUploader(u ObjectUploader) Option {
	return func(p *Publisher) {
		if u != nil {
			p.uploader = u
		}
	}
}

// Publisher copies finished MP4 files into a bucket.
type Publisher struct {
	bucket   string
	prefix   string
	uploader ObjectUploader
	logger   *slog.Logger
}

// New builds a publisher from cfg. It returns nil, nil when publishing is
// disabled.
func New(cfg config.Publish, logger *slog.Logger, opts ...Option) (*Publisher, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, services.Wrap(services.ErrConfiguration, "publish", "init", "publish.bucket is required", nil)
	}
	p := &Publisher{
		bucket: bucket,
		prefix: strings.Trim(strings.TrimSpace(cfg.Prefix), "/"),
		logger: logging.NewComponentLogger(logger, "publisher"),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.uploader == nil {
		p.uploader = manager.NewUploader(newClient(cfg))
	}
	return p, nil
}

func newClient(cfg config.Publish) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: cfg.PathStyle,
	}
	if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
		opts.BaseEndpoint = aws.String(endpoint)
	}
	return s3.New(opts)
}

// Bucket returns the destination bucket.
func (p *Publisher) Bucket() string {
	return p.bucket
}

// Target renders the bucket and prefix as an s3:// URL.
func (p *Publisher) Target() string {
	if p.prefix == "" {
		return "s3://" + p.bucket
	}
	return "s3://" + p.bucket + "/" + p.prefix
}

// ObjectKey joins the configured prefix and a file name.
func (p *Publisher) ObjectKey(name string) string {
	name = path.Base(strings.TrimSpace(name))
	if p.prefix == "" {
		return name
	}
	return p.prefix + "/" + name
}

// Publish uploads the file at localPath and returns its object key.
func (p *Publisher) Publish(ctx context.Context, localPath string) (string, error) {
	if p == nil {
		return "", errors.New("publisher not configured")
	}
	f, err := os.Open(localPath)
	if err != nil {
		return "", services.Wrap(services.ErrNotFound, "publish", "open output", "Converted file is missing", err)
	}
	defer f.Close()

	key := p.ObjectKey(f.Name())
	if _, err := p.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentTypeMP4),
	}); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "publish", "upload", fmt.Sprintf("Upload to bucket %s failed", p.bucket), err)
	}
	p.logger.Info("published conversion",
		logging.String("bucket", p.bucket),
		logging.String("key", key),
	)
	return key, nil
}
