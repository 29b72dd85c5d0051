package database

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process DocumentStore used in development mode and tests.
type MemoryStore struct {
	mu          sync.Mutex
	collections map[string]map[string]map[string]any
	writes      int
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]map[string]map[string]any)}
}

func (m *MemoryStore) Get(_ context.Context, collection, id string) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.collections[collection][id]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	return copyFields(doc), nil
}

func (m *MemoryStore) Set(_ context.Context, collection, id string, data map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	coll, ok := m.collections[collection]
	if !ok {
		coll = make(map[string]map[string]any)
		m.collections[collection] = coll
	}
	coll[id] = copyFields(data)
	m.writes++
	return nil
}

func (m *MemoryStore) Update(_ context.Context, collection, id string, data map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.collections[collection][id]
	if !ok {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	if len(data) == 0 {
		return nil
	}
	for k, v := range data {
		doc[k] = v
	}
	m.writes++
	return nil
}

func (m *MemoryStore) Increment(_ context.Context, collection, id, field string, delta, floor int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.collections[collection][id]
	if !ok {
		return 0, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	current, ok := toInt64(doc[field])
	if !ok {
		return 0, fmt.Errorf("%s: %w", field, ErrNotNumeric)
	}
	if current+delta < floor {
		return 0, ErrBelowFloor
	}
	doc[field] = current + delta
	m.writes++
	return current + delta, nil
}

func (m *MemoryStore) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[collection][id]; ok {
		delete(m.collections[collection], id)
		m.writes++
	}
	return nil
}

func (m *MemoryStore) Query(_ context.Context, collection string, q Query) ([]Document, error) {
	m.mu.Lock()
	var docs []Document
	for id, doc := range m.collections[collection] {
		if q.Field != "" && doc[q.Field] != q.Value {
			continue
		}
		docs = append(docs, Document{ID: id, Data: copyFields(doc)})
	}
	m.mu.Unlock()

	if q.OrderBy != "" {
		sort.SliceStable(docs, func(i, j int) bool {
			c := compareValues(docs[i].Data[q.OrderBy], docs[j].Data[q.OrderBy])
			if c == 0 {
				c = strings.Compare(docs[i].ID, docs[j].ID)
			}
			if q.Descending {
				return c > 0
			}
			return c < 0
		})
	}
	if q.Limit > 0 && len(docs) > q.Limit {
		docs = docs[:q.Limit]
	}
	return docs, nil
}

func (m *MemoryStore) NewID(string) string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func (m *MemoryStore) Close() error { return nil }

// Writes returns the number of mutations applied so far.
func (m *MemoryStore) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func copyFields(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func compareValues(a, b any) int {
	switch av := a.(type) {
	case time.Time:
		bv, _ := b.(time.Time)
		return av.Compare(bv)
	case string:
		bv, _ := b.(string)
		return strings.Compare(av, bv)
	}
	an, aok := toInt64(a)
	bn, bok := toInt64(b)
	switch {
	case !aok && !bok:
		return 0
	case !aok:
		return -1
	case !bok:
		return 1
	case an < bn:
		return -1
	case an > bn:
		return 1
	}
	return 0
}
