package database

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreService implements DocumentStore on Cloud Firestore.
type FirestoreService struct {
	client *firestore.Client
	logger *zap.Logger
}

// NewFirestoreService wraps an initialised Firestore client.
func NewFirestoreService(client *firestore.Client, logger *zap.Logger) *FirestoreService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FirestoreService{client: client, logger: logger}
}

// Get retrieves a document's fields.
func (s *FirestoreService) Get(ctx context.Context, collection, id string) (map[string]any, error) {
	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
		}
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return snap.Data(), nil
}

// Set creates or overwrites a document.
func (s *FirestoreService) Set(ctx context.Context, collection, id string, data map[string]any) error {
	if _, err := s.client.Collection(collection).Doc(id).Set(ctx, data); err != nil {
		return fmt.Errorf("set %s/%s: %w", collection, id, err)
	}
	return nil
}

// Update writes the given fields of an existing document.
func (s *FirestoreService) Update(ctx context.Context, collection, id string, data map[string]any) error {
	if len(data) == 0 {
		return nil
	}
	if _, err := s.client.Collection(collection).Doc(id).Update(ctx, toUpdates(data)); err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
		}
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	return nil
}

// Increment runs a transaction that checks the floor and then applies the
// server-side increment transform. Concurrent increments on the same document
// conflict and are retried by the client library, so no update is lost.
func (s *FirestoreService) Increment(ctx context.Context, collection, id, field string, delta, floor int64) (int64, error) {
	ref := s.client.Collection(collection).Doc(id)
	var next int64
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		raw, err := snap.DataAt(field)
		if err != nil {
			return fmt.Errorf("%s: %w", field, ErrNotNumeric)
		}
		current, ok := toInt64(raw)
		if !ok {
			return fmt.Errorf("%s: %w", field, ErrNotNumeric)
		}
		if current+delta < floor {
			return ErrBelowFloor
		}
		next = current + delta
		return tx.Update(ref, []firestore.Update{{Path: field, Value: firestore.Increment(delta)}})
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrBelowFloor), errors.Is(err, ErrNotNumeric):
			return 0, err
		case status.Code(err) == codes.NotFound:
			return 0, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
		}
		s.logger.Error("Firestore increment failed",
			zap.String("collection", collection), zap.String("id", id), zap.String("field", field), zap.Error(err))
		return 0, fmt.Errorf("increment %s/%s.%s: %w", collection, id, field, err)
	}
	return next, nil
}

// Delete removes a document. Deleting a missing document is not an error.
func (s *FirestoreService) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.client.Collection(collection).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

// Query runs an equality query with optional ordering.
func (s *FirestoreService) Query(ctx context.Context, collection string, q Query) ([]Document, error) {
	query := s.client.Collection(collection).Query
	if q.Field != "" {
		query = query.Where(q.Field, "==", q.Value)
	}
	if q.OrderBy != "" {
		dir := firestore.Asc
		if q.Descending {
			dir = firestore.Desc
		}
		query = query.OrderBy(q.OrderBy, dir)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var docs []Document
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("query %s where %s: %w", collection, q.Field, err)
		}
		docs = append(docs, Document{ID: snap.Ref.ID, Data: snap.Data()})
	}
	return docs, nil
}

// NewID returns a fresh auto-generated document id.
func (s *FirestoreService) NewID(collection string) string {
	return s.client.Collection(collection).NewDoc().ID
}

// Close closes the Firestore client.
func (s *FirestoreService) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func toUpdates(data map[string]any) []firestore.Update {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	updates := make([]firestore.Update, 0, len(keys))
	for _, k := range keys {
		updates = append(updates, firestore.Update{Path: k, Value: data[k]})
	}
	return updates
}
