package build

import (
	"context"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/vango-dev/islands/internal/config"
	"github.com/vango-dev/islands/internal/errors"
)

// envCredentials reads static credentials from the standard AWS variables.
var envCredentials = aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
	id := os.Getenv("AWS_ACCESS_KEY_ID")
	secret := os.Getenv("AWS_SECRET_ACCESS_KEY")
	if id == "" || secret == "" {
		return aws.Credentials{}, errors.Newf(errors.CategoryConfig,
			"AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set to publish")
	}
	return aws.Credentials{
		AccessKeyID:     id,
		SecretAccessKey: secret,
		SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		Source:          "environment",
	}, nil
})

// NewS3Client creates an S3 client for the publish settings. The region
// falls back to AWS_REGION; a custom endpoint switches to path-style
// addressing for S3-compatible stores.
func NewS3Client(publish config.PublishConfig) *s3.Client {
	region := publish.Region
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}

	return s3.New(s3.Options{
		Region:      region,
		Credentials: aws.NewCredentialsCache(envCredentials),
	}, func(o *s3.Options) {
		if publish.Endpoint != "" {
			o.BaseEndpoint = aws.String(publish.Endpoint)
			o.UsePathStyle = true
		}
	})
}

// SinkFor returns the S3 sink when publishing is configured and a disk sink
// for the output directory otherwise.
func SinkFor(cfg *config.Config) Sink {
	if cfg.Build.Publish.Bucket == "" {
		return NewDiskSink(cfg.OutputPath())
	}
	client := NewS3Client(cfg.Build.Publish)
	return NewS3Sink(client, cfg.Build.Publish.Bucket, cfg.Build.Publish.Prefix)
}
