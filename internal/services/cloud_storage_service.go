package services

import (
	"context"
	"io"
	"time"

	"cloud.google.com/go/storage"
)

// GCSService issues V4 signed PUT URLs so mobile clients upload media
// straight to the bucket; file bytes never pass through the API process.
type GCSService struct {
	client     *storage.Client
	bucketName string
	expiration time.Duration
}

func NewGCSService(ctx context.Context, bucketName string, expiration time.Duration) (*GCSService, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &GCSService{
		client:     client,
		bucketName: bucketName,
		expiration: expiration,
	}, nil
}

func (s *GCSService) IssueUploadURL(ctx context.Context, objectKey, contentType string) (string, error) {
	opts := &storage.SignedURLOptions{
		Scheme:      storage.SigningSchemeV4,
		Method:      "PUT",
		ContentType: contentType,
		Expires:     time.Now().Add(s.expiration),
	}
	return s.client.Bucket(s.bucketName).SignedURL(objectKey, opts)
}

// IssueDownloadURL signs a short-lived GET URL, used to hand an image to a
// vision model without proxying the bytes.
func (s *GCSService) IssueDownloadURL(ctx context.Context, objectKey string) (string, error) {
	opts := &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(s.expiration),
	}
	return s.client.Bucket(s.bucketName).SignedURL(objectKey, opts)
}

func (s *GCSService) ReadObject(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	return s.client.Bucket(s.bucketName).Object(objectKey).NewReader(ctx)
}

func (s *GCSService) DeleteObject(ctx context.Context, objectKey string) error {
	return s.client.Bucket(s.bucketName).Object(objectKey).Delete(ctx)
}
