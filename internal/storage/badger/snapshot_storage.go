package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/stephennewman/contextmemo/internal/interfaces"
	"github.com/stephennewman/contextmemo/internal/models"
)

// SnapshotStorage implements the SnapshotStorage interface for Badger
type SnapshotStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewSnapshotStorage creates a new SnapshotStorage instance
func NewSnapshotStorage(db *BadgerDB, logger arbor.ILogger) interfaces.SnapshotStorage {
	return &SnapshotStorage{
		db:     db,
		logger: logger,
	}
}

// UpsertSnapshot inserts or replaces the row keyed (tenant, day). Re-running
// the same day's computation overwrites, preserving the original CreatedAt.
func (s *SnapshotStorage) UpsertSnapshot(ctx context.Context, snapshot *models.VisibilitySnapshot) error {
	if snapshot.TenantID == "" || snapshot.Day == "" {
		return fmt.Errorf("snapshot tenant ID and day are required")
	}
	if snapshot.Key == "" {
		snapshot.Key = fmt.Sprintf("%s|%s", snapshot.TenantID, snapshot.Day)
	}

	now := time.Now().UTC()
	snapshot.UpdatedAt = now

	var existing models.VisibilitySnapshot
	if err := s.db.Store().Get(snapshot.Key, &existing); err == nil {
		snapshot.CreatedAt = existing.CreatedAt
	} else if snapshot.CreatedAt.IsZero() {
		snapshot.CreatedAt = now
	}

	if err := s.db.Store().Upsert(snapshot.Key, snapshot); err != nil {
		return fmt.Errorf("failed to upsert snapshot: %w", err)
	}
	return nil
}

func (s *SnapshotStorage) GetSnapshot(ctx context.Context, tenantID string, day time.Time) (*models.VisibilitySnapshot, error) {
	var snapshot models.VisibilitySnapshot
	if err := s.db.Store().Get(models.SnapshotKey(tenantID, day), &snapshot); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	return &snapshot, nil
}

func (s *SnapshotStorage) ListSnapshots(ctx context.Context, tenantID string, limit int) ([]*models.VisibilitySnapshot, error) {
	query := badgerhold.Where("TenantID").Eq(tenantID).Index("TenantID").SortBy("Day").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var snapshots []models.VisibilitySnapshot
	if err := s.db.Store().Find(&snapshots, query); err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	result := make([]*models.VisibilitySnapshot, len(snapshots))
	for i := range snapshots {
		result[i] = &snapshots[i]
	}
	return result, nil
}
