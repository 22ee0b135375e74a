package upload

import (
	"context"
	"fmt"

	"docdesk/internal/config"
	"docdesk/internal/desk"
)

// NewUploaderFromConfig creates a FileUploader based on the upload config type.
// script is the endpoint's own upload action, used for type "script".
func NewUploaderFromConfig(ctx context.Context, cfg config.UploadConfig, script desk.FileUploader, idgen desk.IDGenerator) (desk.FileUploader, error) {
	switch cfg.Type {
	case "script":
		if script == nil {
			return nil, fmt.Errorf("script upload requires an endpoint")
		}
		return script, nil
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("s3 upload requires s3_bucket to be set")
		}
		client, err := NewS3Client(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return NewS3Uploader(client, cfg.S3Bucket, cfg.S3Prefix, idgen), nil
	case "filesystem":
		if cfg.FSRoot == "" {
			return nil, fmt.Errorf("filesystem upload requires fs_root to be set")
		}
		return NewFileSystemUploader(cfg.FSRoot, idgen)
	default:
		return nil, fmt.Errorf("unknown upload type: %s", cfg.Type)
	}
}
