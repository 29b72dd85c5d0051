package database

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrBelowFloor is returned by Increment when the result would cross the floor.
	ErrBelowFloor = errors.New("increment would cross the floor")
	// ErrNotNumeric is returned by Increment when the field does not hold a number.
	ErrNotNumeric = errors.New("field is not numeric")
)

// Document is a raw document with its id.
type Document struct {
	ID   string
	Data map[string]any
}

// Query selects documents where Field == Value, sorted by OrderBy. A zero Limit
// means no limit.
type Query struct {
	Field      string
	Value      any
	OrderBy    string
	Descending bool
	Limit      int
}

// DocumentStore defines the schema-less document operations the repositories use.
type DocumentStore interface {
	Get(ctx context.Context, collection, id string) (map[string]any, error)
	Set(ctx context.Context, collection, id string, data map[string]any) error
	// Update merges data into an existing document and returns ErrNotFound when
	// the document does not exist.
	Update(ctx context.Context, collection, id string, data map[string]any) error
	// Increment atomically adds delta to a numeric field and returns the new value.
	// It fails with ErrBelowFloor, without writing, when the result would be lower
	// than floor.
	Increment(ctx context.Context, collection, id, field string, delta, floor int64) (int64, error)
	Delete(ctx context.Context, collection, id string) error
	Query(ctx context.Context, collection string, q Query) ([]Document, error)
	NewID(collection string) string
	Close() error
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	case float32:
		return int64(n), true
	default:
		return 0, false
	}
}
