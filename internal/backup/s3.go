package backup

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/zulandar/mentortrack/internal/config"
)

// putObjectAPI is the subset of the S3 client used for uploads.
type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader copies archives to an S3-compatible bucket.
type S3Uploader struct {
	client putObjectAPI
	bucket string
	prefix string
}

// NewS3Uploader builds an uploader from configuration. Static credentials are
// used when an access key is set, otherwise the default AWS chain applies.
// A custom endpoint switches to path-style addressing for S3-compatible stores.
func NewS3Uploader(ctx context.Context, c config.S3Config) (*S3Uploader, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("backup: s3 bucket is not configured")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(c.Region)}
	if c.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKey, c.SecretKey, ""),
		))
	}
	if c.Endpoint != "" {
		loadOpts = append(loadOpts, awsconfig.WithBaseEndpoint(c.Endpoint))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("backup: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = c.Endpoint != ""
	})
	return &S3Uploader{client: client, bucket: c.Bucket, prefix: c.Prefix}, nil
}

// Key returns the object key an archive is stored under.
func (u *S3Uploader) Key(archivePath string) string {
	name := filepath.Base(archivePath)
	if u.prefix == "" {
		return name
	}
	return path.Join(u.prefix, name)
}

// Upload streams the archive to the bucket and returns its object key.
func (u *S3Uploader) Upload(ctx context.Context, archivePath string) (string, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return "", fmt.Errorf("backup: open %s: %w", archivePath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("backup: stat %s: %w", archivePath, err)
	}

	key := u.Key(archivePath)
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String("application/zip"),
	})
	if err != nil {
		return "", fmt.Errorf("backup: upload %s to s3://%s/%s: %w", archivePath, u.bucket, key, err)
	}
	return key, nil
}
