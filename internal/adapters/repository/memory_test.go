package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/songlab/internal/domain/model"
)

func report(id string, at time.Time) model.Report {
	return model.Report{ResultID: id, TypeCode: "BLCP", ScoredAt: at}
}

func TestMemoryStore_BasicOperations(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if n := store.Len(ctx); n != 0 {
		t.Errorf("expected empty store, got %d", n)
	}
	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := store.Save(ctx, report("r1", time.Unix(10, 0))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := store.Get(ctx, "r1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.TypeCode != "BLCP" {
		t.Errorf("expected BLCP, got %q", got.TypeCode)
	}

	replacement := report("r1", time.Unix(20, 0))
	replacement.TypeCode = "DTAS"
	if err := store.Save(ctx, replacement); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ = store.Get(ctx, "r1")
	if got.TypeCode != "DTAS" || store.Len(ctx) != 1 {
		t.Errorf("expected replacement in place, got %q len %d", got.TypeCode, store.Len(ctx))
	}
}

func TestMemoryStore_RejectsMissingID(t *testing.T) {
	store := NewMemoryStore()
	if err := store.Save(context.Background(), model.Report{}); !errors.Is(err, ErrMissingID) {
		t.Errorf("expected ErrMissingID, got %v", err)
	}
}

func TestMemoryStore_EvictsOldest(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(WithCapacity(2))

	for i := 1; i <= 3; i++ {
		if err := store.Save(ctx, report(fmt.Sprintf("r%d", i), time.Unix(int64(i), 0))); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if n := store.Len(ctx); n != 2 {
		t.Errorf("expected 2 reports, got %d", n)
	}
	if _, err := store.Get(ctx, "r1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected r1 to be evicted, got %v", err)
	}
	if !store.Oldest().Equal(time.Unix(2, 0)) {
		t.Errorf("expected oldest to be r2, got %v", store.Oldest())
	}
}

func TestMemoryStore_Unbounded(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(WithCapacity(0))
	for i := 0; i < 50; i++ {
		_ = store.Save(ctx, report(fmt.Sprintf("r%d", i), time.Now()))
	}
	if n := store.Len(ctx); n != 50 {
		t.Errorf("expected 50 reports, got %d", n)
	}
}

func TestMemoryStore_Recent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if _, err := store.Recent(ctx, 0); !errors.Is(err, ErrInvalidLimit) {
		t.Errorf("expected ErrInvalidLimit, got %v", err)
	}
	if !store.Oldest().IsZero() {
		t.Error("expected zero oldest time for empty store")
	}

	for i := 1; i <= 3; i++ {
		_ = store.Save(ctx, report(fmt.Sprintf("r%d", i), time.Unix(int64(i), 0)))
	}

	recent, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recent) != 2 || recent[0].ResultID != "r3" || recent[1].ResultID != "r2" {
		t.Errorf("expected newest first, got %+v", recent)
	}

	all, _ := store.Recent(ctx, 10)
	if len(all) != 3 {
		t.Errorf("expected 3 reports, got %d", len(all))
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(WithCapacity(100))

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				id := fmt.Sprintf("g%d-%d", g, i)
				_ = store.Save(ctx, report(id, time.Now()))
				_, _ = store.Get(ctx, id)
				_, _ = store.Recent(ctx, 5)
			}
		}(g)
	}
	wg.Wait()

	if n := store.Len(ctx); n != 100 {
		t.Errorf("expected store to be full at 100, got %d", n)
	}
}
