/**
 * @description
 * This file implements the per-bank hash-chained ledger. Each bank owns one
 * append-only chain; every entry commits the settlement participants, the
 * amount, a timestamp, and the hash of the entry before it. Entries live in
 * the document store under the `ledger_entries` collection keyed by their own
 * hash, and a `chain_heads` record per bank tracks the most recent hash.
 *
 * A chain moves from Uninitialized to Active the first time it is touched,
 * when the genesis entry (sentinel participants, empty previous hash) is
 * written. Appends for one chain are serialized by a mutex so the previous-
 * hash linkage is never computed from a stale head. The ledger performs no
 * deduplication: the settlement engine is responsible for calling Append
 * exactly once per committed payment.
 *
 * @dependencies
 * - crypto/sha256, encoding/hex, fmt, sort, sync, time: Standard Go libraries.
 * - internal/domain, internal/store: Entry model and persistence contract.
 */

package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nexapay/upi-gateway/internal/domain"
	"github.com/nexapay/upi-gateway/internal/store"
)

// GenesisParticipant is the sentinel payer/payee recorded on a chain's first
// entry. A genesis entry does not represent a real transaction.
const GenesisParticipant = "GENESIS"

// Ledger is the hash chain for a single bank.
type Ledger struct {
	chainID string
	store   store.Store

	mu  sync.Mutex
	now func() time.Time
}

// New creates the ledger handle for one bank chain. The chain itself is
// initialized lazily on first use.
func New(chainID string, s store.Store) *Ledger {
	return &Ledger{chainID: chainID, store: s, now: time.Now}
}

// ChainID returns the bank identifier this chain belongs to.
func (l *Ledger) ChainID() string { return l.chainID }

// entryHash computes the commitment for an entry: SHA-256 over the payer,
// payee, amount, timestamp, previous hash, and chain ID.
func entryHash(e *domain.LedgerEntry) string {
	payload := fmt.Sprintf("%s%s%d%d%s%s",
		e.PayerID, e.PayeeID, e.Amount, e.Timestamp, e.PreviousHash, e.ChainID)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// ensureInitialized writes the genesis entry and head record if the chain
// does not exist yet. Callers must hold l.mu.
func (l *Ledger) ensureInitialized(ctx context.Context) (*domain.ChainHead, error) {
	head, err := store.GetRecord[domain.ChainHead](ctx, l.store, store.CollectionChainHeads, l.chainID)
	if err == nil {
		return head, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	genesis := &domain.LedgerEntry{
		ChainID:      l.chainID,
		PayerID:      GenesisParticipant,
		PayeeID:      GenesisParticipant,
		Amount:       0,
		Timestamp:    l.now().UnixNano(),
		PreviousHash: "",
	}
	genesis.Hash = entryHash(genesis)

	if err := l.store.Set(ctx, store.CollectionLedgerEntries, genesis.Hash, genesis); err != nil {
		return nil, fmt.Errorf("persist genesis entry: %w", err)
	}

	newHead := &domain.ChainHead{
		ChainID:   l.chainID,
		LastHash:  genesis.Hash,
		Length:    1,
		UpdatedAt: l.now(),
	}
	if err := l.store.Set(ctx, store.CollectionChainHeads, l.chainID, newHead); err != nil {
		return nil, fmt.Errorf("persist chain head: %w", err)
	}
	return newHead, nil
}

// Append adds one settlement to the chain and advances the head pointer.
func (l *Ledger) Append(ctx context.Context, payerID, payeeID string, amount int64) (*domain.LedgerEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	head, err := l.ensureInitialized(ctx)
	if err != nil {
		return nil, err
	}

	entry := &domain.LedgerEntry{
		ChainID:      l.chainID,
		PayerID:      payerID,
		PayeeID:      payeeID,
		Amount:       amount,
		Timestamp:    l.now().UnixNano(),
		PreviousHash: head.LastHash,
	}
	// Timestamps order the chain during verification; never reuse the head's.
	if last, err := store.GetRecord[domain.LedgerEntry](ctx, l.store, store.CollectionLedgerEntries, head.LastHash); err == nil && entry.Timestamp <= last.Timestamp {
		entry.Timestamp = last.Timestamp + 1
	}
	entry.Hash = entryHash(entry)

	if err := l.store.Set(ctx, store.CollectionLedgerEntries, entry.Hash, entry); err != nil {
		return nil, fmt.Errorf("persist ledger entry: %w", err)
	}

	newHead := &domain.ChainHead{
		ChainID:   l.chainID,
		LastHash:  entry.Hash,
		Length:    head.Length + 1,
		UpdatedAt: l.now(),
	}
	if err := l.store.Set(ctx, store.CollectionChainHeads, l.chainID, newHead); err != nil {
		return nil, fmt.Errorf("advance chain head: %w", err)
	}
	return entry, nil
}

// Entries returns the chain's entries in timestamp order.
func (l *Ledger) Entries(ctx context.Context) ([]domain.LedgerEntry, error) {
	entries, err := store.QueryRecords[domain.LedgerEntry](ctx, l.store, store.CollectionLedgerEntries, "chain_id", l.chainID)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Timestamp < entries[j].Timestamp })
	return entries, nil
}

// Length returns the number of entries on the chain, genesis included.
func (l *Ledger) Length(ctx context.Context) (int64, error) {
	head, err := store.GetRecord[domain.ChainHead](ctx, l.store, store.CollectionChainHeads, l.chainID)
	if errors.Is(err, store.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return head.Length, nil
}

// Verify replays the chain in timestamp order, recomputing every hash and
// checking previous-hash linkage. The genesis entry is validated against its
// fixed sentinel previous hash rather than a prior entry. Returns false on
// the first mismatch.
func (l *Ledger) Verify(ctx context.Context) (bool, error) {
	entries, err := l.Entries(ctx)
	if err != nil {
		return false, err
	}

	previousHash := ""
	for i := range entries {
		e := &entries[i]
		if entryHash(e) != e.Hash {
			return false, nil
		}
		if e.PayerID == GenesisParticipant && e.PayeeID == GenesisParticipant {
			if e.PreviousHash != "" {
				return false, nil
			}
			previousHash = e.Hash
			continue
		}
		if e.PreviousHash != previousHash {
			return false, nil
		}
		previousHash = e.Hash
	}
	return true, nil
}
