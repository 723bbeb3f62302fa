/**
 * @description
 * In-memory implementation of the Store contract, used by tests and by local
 * single-process runs where neither Redis nor Postgres is configured. A single
 * mutex guards every collection; AtomicIncrement performs its read-modify-
 * write entirely under that lock, so it provides the same atomicity guarantee
 * as the networked backends.
 *
 * @dependencies
 * - context, encoding/json, fmt, sort, sync: Standard Go libraries.
 */

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is a map-backed document store. Safe for concurrent use.
type MemoryStore struct {
	mu          sync.Mutex
	collections map[string]map[string][]byte
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]map[string][]byte)}
}

func (m *MemoryStore) Get(ctx context.Context, collection, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	raw, ok := m.collections[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, nil
}

func (m *MemoryStore) Query(ctx context.Context, collection, field, value string) ([][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.collections[collection]))
	for id := range m.collections[collection] {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out [][]byte
	for _, id := range ids {
		raw := m.collections[collection][id]
		if matchesField(raw, field, value) {
			cp := make([]byte, len(raw))
			copy(cp, raw)
			out = append(out, cp)
		}
	}
	return out, nil
}

func (m *MemoryStore) Set(ctx context.Context, collection, id string, record any) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.collections[collection] == nil {
		m.collections[collection] = make(map[string][]byte)
	}
	m.collections[collection][id] = raw
	return nil
}

func (m *MemoryStore) AtomicIncrement(ctx context.Context, collection, id, field string, delta int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	raw, ok := m.collections[collection][id]
	if !ok {
		return 0, ErrNotFound
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return 0, fmt.Errorf("decode record %s/%s: %w", collection, id, err)
	}

	var current int64
	if fieldRaw, ok := doc[field]; ok {
		if err := json.Unmarshal(fieldRaw, &current); err != nil {
			return 0, fmt.Errorf("field %q of %s/%s is not numeric: %w", field, collection, id, err)
		}
	}
	current += delta

	updated, err := json.Marshal(current)
	if err != nil {
		return 0, err
	}
	doc[field] = updated

	merged, err := json.Marshal(doc)
	if err != nil {
		return 0, err
	}
	m.collections[collection][id] = merged
	return current, nil
}

func (m *MemoryStore) Close() {}
