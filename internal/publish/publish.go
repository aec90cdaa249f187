// Package publish uploads generated rule files to S3.
//
// Hosts that read edge configuration from object storage (or deploy
// pipelines that stage it there) pick up the uploaded _redirects file. Any
// S3-compatible store works when Endpoint is set.
package publish

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/vango-dev/edgerules/internal/errors"
)

// PutObjectAPI is the subset of *s3.Client used for uploads.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Config configures the S3 client.
type Config struct {
	Region   string
	Endpoint string
}

// S3Publisher uploads files to a bucket.
type S3Publisher struct {
	client PutObjectAPI
	bucket string
	prefix string
	logger *slog.Logger
}

// NewS3Publisher creates a publisher using client.
func NewS3Publisher(client PutObjectAPI, bucket, prefix string, logger *slog.Logger) *S3Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &S3Publisher{
		client: client,
		bucket: bucket,
		prefix: prefix,
		logger: logger,
	}
}

// NewClient builds an S3 client from the default AWS configuration chain:
// environment variables, shared config files and instance roles. Region
// overrides the configured region. Endpoint switches to path-style
// addressing against an S3-compatible store.
func NewClient(ctx context.Context, cfg Config) (*s3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.New("E150").WithDetail("loading AWS configuration").Wrap(err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// Key returns the object key for a local file.
func (p *S3Publisher) Key(file string) string {
	return path.Join(p.prefix, filepath.Base(file))
}

// Publish uploads each file and returns the object keys in order.
func (p *S3Publisher) Publish(ctx context.Context, files ...string) ([]string, error) {
	keys := make([]string, 0, len(files))
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return keys, err
		}

		data, err := os.ReadFile(file)
		if err != nil {
			return keys, errors.New("E150").WithLocation(file, 0).Wrap(err)
		}

		key := p.Key(file)
		_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:       aws.String(p.bucket),
			Key:          aws.String(key),
			Body:         bytes.NewReader(data),
			ContentType:  aws.String(contentType(file)),
			CacheControl: aws.String("no-cache"),
		})
		if err != nil {
			return keys, errors.New("E150").
				WithDetailf("uploading %s to s3://%s/%s", file, p.bucket, key).
				Wrap(err)
		}

		p.logger.Info("published", "bucket", p.bucket, "key", key, "bytes", len(data))
		keys = append(keys, key)
	}
	return keys, nil
}

func contentType(file string) string {
	if filepath.Ext(file) == ".json" {
		return "application/json"
	}
	return "text/plain; charset=utf-8"
}
