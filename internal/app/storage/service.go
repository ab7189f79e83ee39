/*
Package storage provides the object storage service backing avatar and
message-image uploads. Clients upload and download directly against
S3-compatible storage through short-lived presigned URLs; the broker only
ever handles object keys.
*/
package storage

import (
	"context"
	"time"
)

// ServiceConfig holds the credentials and location of the bucket.
type ServiceConfig struct {
	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
}

// StorageService is the public interface for the object storage backend.
type StorageService interface {
	// PresignUpload generates a presigned URL for uploading an object.
	PresignUpload(
		ctx context.Context,
		key string,
		mimeType string,
		fileSize int64,
		duration time.Duration,
	) (string, error)

	// PresignDownload generates a presigned URL for fetching an object.
	PresignDownload(ctx context.Context, key string, duration time.Duration) (string, error)

	// Delete removes the object with the given key.
	Delete(ctx context.Context, key string) error

	// ObjectMetadata retrieves content type and length for an object.
	ObjectMetadata(ctx context.Context, key string) (map[string]string, error)
}

// NewStorageService returns the S3-compatible implementation.
func NewStorageService(cfg ServiceConfig) (StorageService, error) {
	return newS3Client(cfg)
}
