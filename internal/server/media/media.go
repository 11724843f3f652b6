package media

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/statusplay/statusplay/internal/config"
)

// Service handles the object storage behind status post media. Posts
// reference their media by public URL; the service maps those URLs
// back to object keys for downloads and cleanup.
type Service struct {
	client     *minio.Client
	bucketName string
	ttl        time.Duration
}

// NewService creates a new media service instance
func NewService(cfg *config.Config) (*Service, error) {
	client, err := minio.New(cfg.MinIO.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKeyID, cfg.MinIO.SecretAccessKey, ""),
		Secure: cfg.MinIO.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	service := &Service{
		client:     client,
		bucketName: cfg.MinIO.BucketName,
		ttl:        time.Duration(cfg.Media.PresignedURLTTL) * time.Second,
	}

	if err := service.ensureBucket(); err != nil {
		return nil, fmt.Errorf("failed to ensure bucket exists: %w", err)
	}

	return service, nil
}

// ensureBucket creates the bucket if it doesn't exist
func (s *Service) ensureBucket() error {
	ctx := context.Background()

	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return fmt.Errorf("failed to check if bucket exists: %w", err)
	}

	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return nil
}

// ObjectKeyFromURL maps a post's media URL back to its object key.
// Returns false when the URL does not point into this service's bucket.
func (s *Service) ObjectKeyFromURL(mediaURL string) (string, bool) {
	u, err := url.Parse(mediaURL)
	if err != nil {
		return "", false
	}

	prefix := "/" + s.bucketName + "/"
	if !strings.HasPrefix(u.Path, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(u.Path, prefix)
	return key, key != ""
}

// PresignedDownloadURL creates a short-lived URL for downloading an object.
func (s *Service) PresignedDownloadURL(objectKey string) (*url.URL, error) {
	return s.client.PresignedGetObject(
		context.Background(),
		s.bucketName,
		objectKey,
		s.ttl,
		nil,
	)
}

// DeleteObject removes an object from storage
func (s *Service) DeleteObject(objectKey string) error {
	return s.client.RemoveObject(
		context.Background(),
		s.bucketName,
		objectKey,
		minio.RemoveObjectOptions{},
	)
}

// GetObjectInfo returns information about an object
func (s *Service) GetObjectInfo(objectKey string) (minio.ObjectInfo, error) {
	return s.client.StatObject(
		context.Background(),
		s.bucketName,
		objectKey,
		minio.StatObjectOptions{},
	)
}
