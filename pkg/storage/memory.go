package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

type memoryBlob struct {
	data        []byte
	contentType string
	public      bool
}

// MemoryBlobStore keeps blobs in process memory.
type MemoryBlobStore struct {
	mu      sync.Mutex
	blobs   map[string]memoryBlob
	baseURL string
}

// NewMemoryBlobStore returns an empty store whose URLs are rooted at baseURL.
func NewMemoryBlobStore(baseURL string) *MemoryBlobStore {
	return &MemoryBlobStore{blobs: make(map[string]memoryBlob), baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *MemoryBlobStore) Upload(_ context.Context, path string, data []byte, contentType string, public bool) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[path] = memoryBlob{data: append([]byte(nil), data...), contentType: contentType, public: public}
	return s.baseURL + "/" + path, nil
}

func (s *MemoryBlobStore) Open(_ context.Context, path string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blobs[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrObjectNotFound)
	}
	return io.NopCloser(bytes.NewReader(b.data)), nil
}

func (s *MemoryBlobStore) Delete(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, path)
	return nil
}

// Has reports whether path exists and whether it is public.
func (s *MemoryBlobStore) Has(path string) (exists, public bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blobs[path]
	return ok, b.public
}
