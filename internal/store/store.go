/**
 * @description
 * This file defines the document-store contract consumed by the settlement
 * core. Records are JSON documents grouped into collections and addressed by
 * an opaque ID. The one non-CRUD primitive is AtomicIncrement, which must be a
 * true atomic operation in the backing store — balance updates are never
 * expressed as read-then-write from the caller, so concurrent settlements
 * against a shared account cannot lose updates.
 *
 * Implementations: Redis (redis.go), PostgreSQL (postgres.go), and an
 * in-memory store (memory.go) used in tests and local development.
 *
 * @dependencies
 * - context, encoding/json, errors: Standard Go libraries.
 */

package store

import (
	"context"
	"encoding/json"
	"errors"
)

// Collection names used by the payment core.
const (
	CollectionUsers         = "users"
	CollectionMerchants     = "merchants"
	CollectionMMIDs         = "mmids"
	CollectionVirtualIDs    = "virtual_ids"
	CollectionLedgerEntries = "ledger_entries"
	CollectionChainHeads    = "chain_heads"
	CollectionTransactions  = "transactions"

	// CollectionReconciliations is the worklist of settlements that moved
	// funds without a complete record. Populated by the reconcile consumer.
	CollectionReconciliations = "reconciliations"
)

var (
	// ErrNotFound is returned when a record does not exist in its collection.
	ErrNotFound = errors.New("record not found")

	// ErrUnavailable wraps connectivity and timeout failures from the backing
	// store. It is the only retryable error class, and retrying is the
	// caller's responsibility.
	ErrUnavailable = errors.New("document store unavailable")
)

// Store is the persistence contract for accounts, bindings, ledger entries,
// and receipts. Set is a full-record replace. All operations respect the
// context deadline.
type Store interface {
	Get(ctx context.Context, collection, id string) ([]byte, error)
	Query(ctx context.Context, collection, field, value string) ([][]byte, error)
	Set(ctx context.Context, collection, id string, record any) error
	// AtomicIncrement adds delta to a numeric top-level field of the record
	// and returns the resulting value. The read-modify-write happens inside
	// the store, atomically with respect to concurrent increments.
	AtomicIncrement(ctx context.Context, collection, id, field string, delta int64) (int64, error)
	Close()
}

// GetRecord fetches and decodes one record.
func GetRecord[T any](ctx context.Context, s Store, collection, id string) (*T, error) {
	raw, err := s.Get(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// QueryRecords fetches and decodes all records whose top-level field matches
// the given value.
func QueryRecords[T any](ctx context.Context, s Store, collection, field, value string) ([]T, error) {
	raws, err := s.Query(ctx, collection, field, value)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(raws))
	for _, raw := range raws {
		var rec T
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// matchesField reports whether the JSON document's top-level field equals
// value when rendered as a string. Numeric fields compare against their
// canonical JSON rendering.
func matchesField(raw []byte, field, value string) bool {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return false
	}
	fieldRaw, ok := doc[field]
	if !ok {
		return false
	}
	var asString string
	if err := json.Unmarshal(fieldRaw, &asString); err == nil {
		return asString == value
	}
	return string(fieldRaw) == value
}
