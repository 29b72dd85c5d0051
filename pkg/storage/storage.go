// Package storage stores generated images as blobs.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrObjectNotFound is returned when a blob does not exist.
var ErrObjectNotFound = errors.New("object not found")

// BlobStore defines the object storage operations used for generated images.
type BlobStore interface {
	// Upload writes data at path and returns the URL it is served from. Public
	// objects are readable by anyone holding the URL.
	Upload(ctx context.Context, path string, data []byte, contentType string, public bool) (string, error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	// Delete removes path. Removing a missing object is not an error.
	Delete(ctx context.Context, path string) error
}
