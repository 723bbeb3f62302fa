package store

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type testAccount struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Bank    string `json:"bank"`
	Balance int64  `json:"balance"`
}

func TestMemoryStoreGetSet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, err := s.Get(ctx, CollectionUsers, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	acct := testAccount{ID: "A1", Name: "Asha", Bank: "HDFC", Balance: 100000}
	if err := s.Set(ctx, CollectionUsers, acct.ID, acct); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := GetRecord[testAccount](ctx, s, CollectionUsers, "A1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Balance != 100000 || got.Name != "Asha" {
		t.Fatalf("round trip mangled record: %+v", got)
	}
}

func TestMemoryStoreQuery(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	for _, acct := range []testAccount{
		{ID: "A1", Name: "Asha", Bank: "HDFC"},
		{ID: "A2", Name: "Binod", Bank: "SBI"},
		{ID: "A3", Name: "Chitra", Bank: "HDFC"},
	} {
		if err := s.Set(ctx, CollectionUsers, acct.ID, acct); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	got, err := QueryRecords[testAccount](ctx, s, CollectionUsers, "bank", "HDFC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 HDFC accounts, got %d", len(got))
	}
	if got[0].ID != "A1" || got[1].ID != "A3" {
		t.Fatalf("unexpected query order: %+v", got)
	}
}

func TestMemoryStoreAtomicIncrement(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, err := s.AtomicIncrement(ctx, CollectionUsers, "missing", "balance", 10); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := s.Set(ctx, CollectionUsers, "A1", testAccount{ID: "A1", Balance: 500}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	newValue, err := s.AtomicIncrement(ctx, CollectionUsers, "A1", "balance", -200)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if newValue != 300 {
		t.Fatalf("expected new balance 300, got %d", newValue)
	}

	got, err := GetRecord[testAccount](ctx, s, CollectionUsers, "A1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Balance != 300 {
		t.Fatalf("expected persisted balance 300, got %d", got.Balance)
	}
	if got.ID != "A1" {
		t.Fatalf("increment clobbered other fields: %+v", got)
	}
}

func TestMemoryStoreConcurrentIncrements(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.Set(ctx, CollectionUsers, "A1", testAccount{ID: "A1", Balance: 0}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	const workers = 32
	const perWorker = 50

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				if _, err := s.AtomicIncrement(ctx, CollectionUsers, "A1", "balance", 1); err != nil {
					t.Errorf("increment failed: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	got, err := GetRecord[testAccount](ctx, s, CollectionUsers, "A1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Balance != workers*perWorker {
		t.Fatalf("lost updates: expected %d, got %d", workers*perWorker, got.Balance)
	}
}
