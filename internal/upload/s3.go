package upload

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"docdesk/internal/config"
	"docdesk/internal/desk"
)

// S3Uploader stores attachments in an S3 bucket (or an S3-compatible store
// such as MinIO) and returns the object URL.
type S3Uploader struct {
	uploader *manager.Uploader
	bucket   string
	prefix   string
	idgen    desk.IDGenerator
}

// NewS3Client builds a client from the upload config. A custom endpoint
// selects path-style addressing with static credentials; otherwise the default
// AWS credential chain is used.
func NewS3Client(ctx context.Context, cfg config.UploadConfig) (*s3.Client, error) {
	if cfg.S3Endpoint != "" {
		return s3.New(s3.Options{
			Region:       cfg.S3Region,
			Credentials:  credentials.NewStaticCredentialsProvider(cfg.S3KeyID, cfg.S3Secret, ""),
			BaseEndpoint: aws.String(cfg.S3Endpoint),
			UsePathStyle: true,
		}), nil
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.S3Region)}
	if cfg.S3KeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3KeyID, cfg.S3Secret, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return s3.NewFromConfig(awsCfg), nil
}

// NewS3Uploader creates an S3Uploader writing under prefix in bucket.
func NewS3Uploader(client *s3.Client, bucket, prefix string, idgen desk.IDGenerator) *S3Uploader {
	return &S3Uploader{
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		prefix:   prefix,
		idgen:    idgen,
	}
}

// Upload puts the file at <prefix>/<folderID>/<id>-<name>.
func (u *S3Uploader) Upload(ctx context.Context, file desk.FileUpload) (string, error) {
	key := path.Join(u.prefix, folderName(file.FolderID), u.idgen.New()+"-"+safeName(file.FileName))

	out, err := u.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(file.Content),
		ContentType: aws.String(contentType(file.MimeType)),
	})
	if err != nil {
		return "", fmt.Errorf("uploading %s to s3://%s/%s: %w", file.FileName, u.bucket, key, err)
	}
	return out.Location, nil
}

func contentType(mimeType string) string {
	if mimeType == "" {
		return "application/octet-stream"
	}
	return mimeType
}

var _ desk.FileUploader = (*S3Uploader)(nil)
