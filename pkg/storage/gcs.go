package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	gcs "cloud.google.com/go/storage"
)

// GCSBlobStore implements BlobStore on a Cloud Storage bucket.
type GCSBlobStore struct {
	bucket *gcs.BucketHandle
	name   string
}

// NewGCSBlobStore wraps a bucket handle, typically the Firebase default bucket.
func NewGCSBlobStore(bucket *gcs.BucketHandle, name string) *GCSBlobStore {
	return &GCSBlobStore{bucket: bucket, name: name}
}

func (s *GCSBlobStore) Upload(ctx context.Context, path string, data []byte, contentType string, public bool) (string, error) {
	obj := s.bucket.Object(path)
	w := obj.NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write gs://%s/%s: %w", s.name, path, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize gs://%s/%s: %w", s.name, path, err)
	}
	if public {
		if err := obj.ACL().Set(ctx, gcs.AllUsers, gcs.RoleReader); err != nil {
			return "", fmt.Errorf("make gs://%s/%s public: %w", s.name, path, err)
		}
	}
	return PublicURL(s.name, path), nil
}

func (s *GCSBlobStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	r, err := s.bucket.Object(path).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, fmt.Errorf("gs://%s/%s: %w", s.name, path, ErrObjectNotFound)
		}
		return nil, fmt.Errorf("open gs://%s/%s: %w", s.name, path, err)
	}
	return r, nil
}

func (s *GCSBlobStore) Delete(ctx context.Context, path string) error {
	if err := s.bucket.Object(path).Delete(ctx); err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("delete gs://%s/%s: %w", s.name, path, err)
	}
	return nil
}

// PublicURL is the storage.googleapis.com address of a public object.
func PublicURL(bucket, path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, strings.Join(segments, "/"))
}
