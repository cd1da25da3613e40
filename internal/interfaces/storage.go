package interfaces

import (
	"context"
	"time"

	"github.com/stephennewman/contextmemo/internal/models"
)

// TenantStorage persists tenant accounts
type TenantStorage interface {
	SaveTenant(ctx context.Context, tenant *models.Tenant) error
	GetTenant(ctx context.Context, tenantID string) (*models.Tenant, error)
	ListTenants(ctx context.Context) ([]*models.Tenant, error)
	SetPaused(ctx context.Context, tenantID string, paused bool) error
	SetLastContextRefresh(ctx context.Context, tenantID string, at time.Time) error
	SetVisibilityScore(ctx context.Context, tenantID string, score int) error
	DeleteTenant(ctx context.Context, tenantID string) error
}

// SettingsStorage persists per-tenant automation settings. Absence of a
// settings record is not an error for the scheduler: it falls back to the
// defaults the tenant was created with.
type SettingsStorage interface {
	SaveSettings(ctx context.Context, settings *models.AutomationSettings) error
	GetSettings(ctx context.Context, tenantID string) (*models.AutomationSettings, error)
}

// ResultStorage persists pipeline step outputs and derives each category's
// last-run time from its own result records (max timestamp), avoiding a
// second source of truth that can drift from reality.
type ResultStorage interface {
	SaveContext(ctx context.Context, brandContext *models.BrandContext) error
	GetContext(ctx context.Context, tenantID string) (*models.BrandContext, error)

	SaveCompetitor(ctx context.Context, competitor *models.Competitor) error
	ListCompetitors(ctx context.Context, tenantID string) ([]*models.Competitor, error)

	SaveQuery(ctx context.Context, query *models.PromptQuery) error
	ListQueries(ctx context.Context, tenantID string) ([]*models.PromptQuery, error)

	SaveObservation(ctx context.Context, obs *models.ScanObservation) error
	GetObservation(ctx context.Context, obsID string) (*models.ScanObservation, error)
	ListObservationsSince(ctx context.Context, tenantID string, since time.Time) ([]*models.ScanObservation, error)
	ListTenantIDsWithObservationsSince(ctx context.Context, since time.Time) ([]string, error)

	SaveMemo(ctx context.Context, memo *models.Memo) error
	GetMemo(ctx context.Context, memoID string) (*models.Memo, error)
	ListMemos(ctx context.Context, tenantID string) ([]*models.Memo, error)

	// LastRun returns the most recent completed run time of a category for a
	// tenant, or nil when the category has never run (the bootstrap case).
	LastRun(ctx context.Context, tenantID string, category models.TaskCategory) (*time.Time, error)
}

// LeaseStorage persists job leases. Acquire must be read-then-write atomic
// at the level of a single (tenant, task) key: a conditional insert, not a
// separate existence check followed by an insert.
type LeaseStorage interface {
	// Acquire creates a lease for the key, failing with models.ErrLeaseHeld
	// when an unexpired lease already exists. An expired lease at the key is
	// replaced. The existing lease's timestamp is never mutated on conflict.
	Acquire(ctx context.Context, tenantID string, task models.TaskType, now time.Time, ttl time.Duration) error

	// Release deletes the lease; a no-op when none exists
	Release(ctx context.Context, tenantID string, task models.TaskType) error

	// Sweep deletes every lease started before now-ttl and returns the count
	Sweep(ctx context.Context, now time.Time, ttl time.Duration) (int, error)

	ListLeases(ctx context.Context) ([]*models.JobLease, error)
}

// SnapshotStorage persists the visibility time series
type SnapshotStorage interface {
	// UpsertSnapshot inserts or replaces the row keyed (tenant, day)
	UpsertSnapshot(ctx context.Context, snapshot *models.VisibilitySnapshot) error
	GetSnapshot(ctx context.Context, tenantID string, day time.Time) (*models.VisibilitySnapshot, error)
	ListSnapshots(ctx context.Context, tenantID string, limit int) ([]*models.VisibilitySnapshot, error)
}

// NotificationStorage persists tenant-visible alerts
type NotificationStorage interface {
	SaveNotification(ctx context.Context, notification *models.Notification) error
	ListNotifications(ctx context.Context, tenantID string, limit int) ([]*models.Notification, error)
}

// StorageManager aggregates all stores behind one lifecycle
type StorageManager interface {
	Tenants() TenantStorage
	Settings() SettingsStorage
	Results() ResultStorage
	Leases() LeaseStorage
	Snapshots() SnapshotStorage
	Notifications() NotificationStorage
	Close() error
}
