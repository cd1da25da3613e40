package badger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/stephennewman/contextmemo/internal/interfaces"
	"github.com/stephennewman/contextmemo/internal/models"
)

// LeaseStorage implements the LeaseStorage interface for Badger
type LeaseStorage struct {
	db     *BadgerDB
	logger arbor.ILogger

	// Serializes acquire paths so the expired-lease replacement cannot race
	// with a concurrent insert on the same key
	mu sync.Mutex
}

// NewLeaseStorage creates a new LeaseStorage instance
func NewLeaseStorage(db *BadgerDB, logger arbor.ILogger) interfaces.LeaseStorage {
	return &LeaseStorage{
		db:     db,
		logger: logger,
	}
}

// Acquire creates a lease for the (tenant, task) key. When an unexpired
// lease already holds the key the call fails with models.ErrLeaseHeld and
// the existing lease is left untouched. An expired lease is replaced.
func (s *LeaseStorage) Acquire(ctx context.Context, tenantID string, task models.TaskType, now time.Time, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := models.LeaseKey(tenantID, task)
	lease := &models.JobLease{
		Key:       key,
		TenantID:  tenantID,
		TaskType:  task,
		StartedAt: now.UTC(),
	}

	err := s.db.Store().Insert(key, lease)
	if err == nil {
		return nil
	}
	if err != badgerhold.ErrKeyExists {
		return fmt.Errorf("failed to acquire lease %s: %w", key, err)
	}

	var existing models.JobLease
	if err := s.db.Store().Get(key, &existing); err != nil {
		if err == badgerhold.ErrNotFound {
			// Released between the insert attempt and the read, take it
			if err := s.db.Store().Insert(key, lease); err != nil {
				return fmt.Errorf("failed to acquire lease %s: %w", key, err)
			}
			return nil
		}
		return fmt.Errorf("failed to read lease %s: %w", key, err)
	}

	if !existing.Expired(now, ttl) {
		return models.ErrLeaseHeld
	}

	// Expired holder, reclaim the key
	s.logger.Warn().
		Str("tenant_id", tenantID).
		Str("task", string(task)).
		Str("started_at", existing.StartedAt.Format(time.RFC3339)).
		Msg("Replacing expired lease")

	if err := s.db.Store().Upsert(key, lease); err != nil {
		return fmt.Errorf("failed to replace expired lease %s: %w", key, err)
	}
	return nil
}

// Release deletes the lease. Releasing a lease that does not exist is a no-op.
func (s *LeaseStorage) Release(ctx context.Context, tenantID string, task models.TaskType) error {
	key := models.LeaseKey(tenantID, task)
	if err := s.db.Store().Delete(key, &models.JobLease{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to release lease %s: %w", key, err)
	}
	return nil
}

// Sweep deletes every lease started before now-ttl and returns the count.
// Leases younger than the cutoff are never touched.
func (s *LeaseStorage) Sweep(ctx context.Context, now time.Time, ttl time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.UTC().Add(-ttl)

	var stale []models.JobLease
	if err := s.db.Store().Find(&stale, badgerhold.Where("StartedAt").Lt(cutoff)); err != nil {
		return 0, fmt.Errorf("failed to find stale leases: %w", err)
	}

	removed := 0
	for i := range stale {
		if err := s.db.Store().Delete(stale[i].Key, &models.JobLease{}); err != nil {
			if err == badgerhold.ErrNotFound {
				continue
			}
			return removed, fmt.Errorf("failed to delete stale lease %s: %w", stale[i].Key, err)
		}
		s.logger.Warn().
			Str("tenant_id", stale[i].TenantID).
			Str("task", string(stale[i].TaskType)).
			Str("started_at", stale[i].StartedAt.Format(time.RFC3339)).
			Msg("Swept stale lease")
		removed++
	}

	return removed, nil
}

func (s *LeaseStorage) ListLeases(ctx context.Context) ([]*models.JobLease, error) {
	var leases []models.JobLease
	if err := s.db.Store().Find(&leases, badgerhold.Where("Key").Ne("").SortBy("StartedAt")); err != nil {
		return nil, fmt.Errorf("failed to list leases: %w", err)
	}

	result := make([]*models.JobLease, len(leases))
	for i := range leases {
		result[i] = &leases[i]
	}
	return result, nil
}
