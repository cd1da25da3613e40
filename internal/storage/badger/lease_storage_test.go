package badger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/stephennewman/contextmemo/internal/interfaces"
	"github.com/stephennewman/contextmemo/internal/models"
)

func newTestDB(t *testing.T) *BadgerDB {
	t.Helper()

	options := badgerhold.DefaultOptions
	options.Dir = t.TempDir()
	options.ValueDir = options.Dir
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	return &BadgerDB{store: store, logger: arbor.NewLogger()}
}

func newTestLeaseStorage(t *testing.T) interfaces.LeaseStorage {
	t.Helper()
	return NewLeaseStorage(newTestDB(t), arbor.NewLogger())
}

func TestLeaseAcquireConflict(t *testing.T) {
	storage := newTestLeaseStorage(t)
	ctx := context.Background()
	now := time.Now().UTC()
	ttl := 30 * time.Minute

	if err := storage.Acquire(ctx, "tnt-1", models.TaskRunScan, now, ttl); err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}

	err := storage.Acquire(ctx, "tnt-1", models.TaskRunScan, now.Add(time.Minute), ttl)
	if !errors.Is(err, models.ErrLeaseHeld) {
		t.Fatalf("expected ErrLeaseHeld, got %v", err)
	}

	// Different task for the same tenant is independent
	if err := storage.Acquire(ctx, "tnt-1", models.TaskGenerateMemo, now, ttl); err != nil {
		t.Fatalf("acquire for different task failed: %v", err)
	}

	// Same task for a different tenant is independent
	if err := storage.Acquire(ctx, "tnt-2", models.TaskRunScan, now, ttl); err != nil {
		t.Fatalf("acquire for different tenant failed: %v", err)
	}
}

func TestLeaseConflictDoesNotTouchExisting(t *testing.T) {
	storage := newTestLeaseStorage(t)
	ctx := context.Background()
	started := time.Now().UTC().Add(-10 * time.Minute)
	ttl := 30 * time.Minute

	if err := storage.Acquire(ctx, "tnt-1", models.TaskRunScan, started, ttl); err != nil {
		t.Fatal(err)
	}

	if err := storage.Acquire(ctx, "tnt-1", models.TaskRunScan, time.Now().UTC(), ttl); !errors.Is(err, models.ErrLeaseHeld) {
		t.Fatalf("expected ErrLeaseHeld, got %v", err)
	}

	leases, err := storage.ListLeases(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(leases) != 1 {
		t.Fatalf("expected 1 lease, got %d", len(leases))
	}
	if !leases[0].StartedAt.Equal(started) {
		t.Errorf("lease StartedAt mutated on conflict: got %s, want %s", leases[0].StartedAt, started)
	}
}

func TestLeaseAcquireReplacesExpired(t *testing.T) {
	storage := newTestLeaseStorage(t)
	ctx := context.Background()
	ttl := 30 * time.Minute

	stale := time.Now().UTC().Add(-2 * time.Hour)
	if err := storage.Acquire(ctx, "tnt-1", models.TaskRunScan, stale, ttl); err != nil {
		t.Fatal(err)
	}

	now := time.Now().UTC()
	if err := storage.Acquire(ctx, "tnt-1", models.TaskRunScan, now, ttl); err != nil {
		t.Fatalf("acquire over expired lease failed: %v", err)
	}

	leases, err := storage.ListLeases(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(leases) != 1 {
		t.Fatalf("expected 1 lease, got %d", len(leases))
	}
	if !leases[0].StartedAt.Equal(now) {
		t.Errorf("expired lease not replaced: StartedAt = %s", leases[0].StartedAt)
	}
}

func TestLeaseReleaseIdempotent(t *testing.T) {
	storage := newTestLeaseStorage(t)
	ctx := context.Background()

	if err := storage.Acquire(ctx, "tnt-1", models.TaskRunScan, time.Now().UTC(), time.Hour); err != nil {
		t.Fatal(err)
	}

	if err := storage.Release(ctx, "tnt-1", models.TaskRunScan); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if err := storage.Release(ctx, "tnt-1", models.TaskRunScan); err != nil {
		t.Fatalf("second release should be a no-op, got %v", err)
	}
	if err := storage.Release(ctx, "tnt-9", models.TaskRunScan); err != nil {
		t.Fatalf("release of missing lease should be a no-op, got %v", err)
	}

	// Key is reusable after release
	if err := storage.Acquire(ctx, "tnt-1", models.TaskRunScan, time.Now().UTC(), time.Hour); err != nil {
		t.Fatalf("re-acquire after release failed: %v", err)
	}
}

func TestLeaseSweepRemovesOnlyStale(t *testing.T) {
	storage := newTestLeaseStorage(t)
	ctx := context.Background()
	now := time.Now().UTC()
	ttl := 30 * time.Minute

	// Two stale, one fresh
	if err := storage.Acquire(ctx, "tnt-1", models.TaskRunScan, now.Add(-2*time.Hour), 3*time.Hour); err != nil {
		t.Fatal(err)
	}
	if err := storage.Acquire(ctx, "tnt-2", models.TaskGenerateMemo, now.Add(-45*time.Minute), 3*time.Hour); err != nil {
		t.Fatal(err)
	}
	if err := storage.Acquire(ctx, "tnt-3", models.TaskRunScan, now.Add(-5*time.Minute), 3*time.Hour); err != nil {
		t.Fatal(err)
	}

	removed, err := storage.Sweep(ctx, now, ttl)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 2 {
		t.Fatalf("sweep removed %d leases, want 2", removed)
	}

	leases, err := storage.ListLeases(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(leases) != 1 {
		t.Fatalf("expected 1 surviving lease, got %d", len(leases))
	}
	if leases[0].TenantID != "tnt-3" {
		t.Errorf("wrong lease survived sweep: %s", leases[0].Key)
	}
}

func TestLeaseConcurrentAcquireSingleWinner(t *testing.T) {
	storage := newTestLeaseStorage(t)
	ctx := context.Background()
	now := time.Now().UTC()

	const attempts = 16
	var wg sync.WaitGroup
	wins := make(chan struct{}, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := storage.Acquire(ctx, "tnt-1", models.TaskRunScan, now, time.Hour); err == nil {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	won := 0
	for range wins {
		won++
	}
	if won != 1 {
		t.Fatalf("expected exactly 1 winner, got %d", won)
	}
}
