package upload

import (
	"context"
	"os"

	"github.com/aceeric/airgap/impl/config"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Uploader uploads to an Amazon S3 bucket, using multipart uploads for large
// files.
type S3Uploader struct {
	uploader *manager.Uploader
	bucket   string
}

// NewS3Uploader loads the AWS configuration the same way the AWS CLI does, applying
// the configured region and profile. If credentials are configured they name a
// shared credentials file. If an endpoint is configured, path style addressing is
// used so that S3-compatible stores can be targeted.
func NewS3Uploader(ctx context.Context, bucket string, cfg config.UploadConfig, extra ...func(*awsconfig.LoadOptions) error) (*S3Uploader, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}
	if cfg.Credentials != "" {
		opts = append(opts, awsconfig.WithSharedCredentialsFiles([]string{cfg.Credentials}))
	}
	opts = append(opts, extra...)
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Uploader{uploader: manager.NewUploader(client), bucket: bucket}, nil
}

func (s *S3Uploader) Upload(ctx context.Context, localPath string, objectName string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectName),
		Body:   f,
	})
	return err
}
