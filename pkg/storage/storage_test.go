package storage

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBlobStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryBlobStore("http://localhost:8080/blobs/")

	u, err := s.Upload(ctx, "creations/u1/c1.png", []byte("png"), "image/png", true)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/blobs/creations/u1/c1.png", u)

	exists, public := s.Has("creations/u1/c1.png")
	assert.True(t, exists)
	assert.True(t, public)

	r, err := s.Open(ctx, "creations/u1/c1.png")
	require.NoError(t, err)
	body, _ := io.ReadAll(r)
	assert.Equal(t, "png", string(body))

	require.NoError(t, s.Delete(ctx, "creations/u1/c1.png"))
	require.NoError(t, s.Delete(ctx, "creations/u1/c1.png"))
	_, err = s.Open(ctx, "creations/u1/c1.png")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestPublicURL(t *testing.T) {
	assert.Equal(t,
		"https://storage.googleapis.com/luxe-muse.appspot.com/creations/u%201/c1.png",
		PublicURL("luxe-muse.appspot.com", "creations/u 1/c1.png"))
}
