package recording

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Sink stores recording payloads and serves them back through short-lived
// download URLs.
type Sink interface {
	Put(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error
	PresignedDownloadURL(ctx context.Context, objectKey, filename string, expiry time.Duration) (string, error)
	Remove(ctx context.Context, objectKey string) error
}

// MinIOSink stores recording payloads in a MinIO bucket
type MinIOSink struct {
	client     *minio.Client
	bucketName string
}

// NewMinIOSink creates a MinIO-backed sink and ensures the bucket exists
func NewMinIOSink(endpoint, accessKey, secretKey, bucketName string, useSSL bool) (*MinIOSink, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &MinIOSink{client: client, bucketName: bucketName}, nil
}

// Put uploads a recording payload
func (s *MinIOSink) Put(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucketName, objectKey, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to store recording payload: %w", err)
	}
	return nil
}

// PresignedDownloadURL generates a short-lived download URL. The filename is
// pushed into Content-Disposition so browsers save the file under its
// recording name rather than the object key.
func (s *MinIOSink) PresignedDownloadURL(ctx context.Context, objectKey, filename string, expiry time.Duration) (string, error) {
	params := make(url.Values)
	if filename != "" {
		params.Set("response-content-disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	}

	presigned, err := s.client.PresignedGetObject(ctx, s.bucketName, objectKey, expiry, params)
	if err != nil {
		return "", fmt.Errorf("failed to generate download URL: %w", err)
	}

	return presigned.String(), nil
}

// Remove deletes a recording payload
func (s *MinIOSink) Remove(ctx context.Context, objectKey string) error {
	err := s.client.RemoveObject(ctx, s.bucketName, objectKey, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to remove recording payload: %w", err)
	}
	return nil
}
