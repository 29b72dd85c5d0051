package cache

import (
	"context"
	"time"
)

// Cache defines the key/value operations used for short-lived coordination state.
type Cache interface {
	// Get returns "" and no error when the key does not exist.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, expiration time.Duration) error
	// SetNX stores value only if key is absent and reports whether it did.
	SetNX(ctx context.Context, key string, value string, expiration time.Duration) (bool, error)
	// DeleteIfEqual removes key only while it still holds value.
	DeleteIfEqual(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}
