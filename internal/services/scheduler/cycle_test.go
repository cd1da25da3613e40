package scheduler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/stephennewman/contextmemo/internal/interfaces"
	"github.com/stephennewman/contextmemo/internal/models"
	"github.com/stephennewman/contextmemo/internal/services/leases"
)

// fakeStorage backs a cycle with in-memory tenants, settings and last runs.
// Unused stores are left nil; the cycle never touches them.
type fakeStorage struct {
	tenants  []*models.Tenant
	settings map[string]*models.AutomationSettings
	lastRuns map[string]LastRuns
	failFor  map[string]bool
	leases   *fakeLeaseStorage
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		settings: make(map[string]*models.AutomationSettings),
		lastRuns: make(map[string]LastRuns),
		failFor:  make(map[string]bool),
		leases:   newFakeLeaseStorage(),
	}
}

func (s *fakeStorage) addTenant(tenant *models.Tenant) {
	s.tenants = append(s.tenants, tenant)
	s.settings[tenant.ID] = models.DefaultSettings(tenant.ID)
	s.lastRuns[tenant.ID] = LastRuns{}
}

func (s *fakeStorage) Tenants() interfaces.TenantStorage             { return &fakeTenantStorage{s: s} }
func (s *fakeStorage) Settings() interfaces.SettingsStorage          { return &fakeSettingsStorage{s: s} }
func (s *fakeStorage) Results() interfaces.ResultStorage             { return &fakeResultStorage{s: s} }
func (s *fakeStorage) Leases() interfaces.LeaseStorage               { return s.leases }
func (s *fakeStorage) Snapshots() interfaces.SnapshotStorage         { return nil }
func (s *fakeStorage) Notifications() interfaces.NotificationStorage { return nil }
func (s *fakeStorage) Close() error                                  { return nil }

type fakeTenantStorage struct {
	interfaces.TenantStorage
	s *fakeStorage
}

func (f *fakeTenantStorage) ListTenants(ctx context.Context) ([]*models.Tenant, error) {
	return f.s.tenants, nil
}

type fakeSettingsStorage struct {
	interfaces.SettingsStorage
	s *fakeStorage
}

func (f *fakeSettingsStorage) GetSettings(ctx context.Context, tenantID string) (*models.AutomationSettings, error) {
	if f.s.failFor[tenantID] {
		return nil, fmt.Errorf("settings store down")
	}
	return f.s.settings[tenantID], nil
}

type fakeResultStorage struct {
	interfaces.ResultStorage
	s *fakeStorage
}

func (f *fakeResultStorage) LastRun(ctx context.Context, tenantID string, category models.TaskCategory) (*time.Time, error) {
	return f.s.lastRuns[tenantID][category], nil
}

func newTestCycle(storage *fakeStorage, bus *fakeBus) *CycleRunner {
	logger := arbor.NewLogger()
	leaseService := leases.NewService(storage.leases, logger, 30*time.Minute, time.Hour)
	dispatcher := NewDispatcher(bus, leaseService, logger)
	evaluator := NewEvaluator(7 * 24 * time.Hour)
	return NewCycleRunner(storage, evaluator, dispatcher, leaseService, logger)
}

func TestRunCycleBootstrapTenant(t *testing.T) {
	storage := newFakeStorage()
	storage.addTenant(&models.Tenant{ID: "tnt_new", Name: "New Co"})
	bus := &fakeBus{}

	summary, err := newTestCycle(storage, bus).RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.TenantsSeen)
	assert.Equal(t, 1, summary.Dispatched)

	// A tenant with no history gets exactly one full_refresh chain, not a
	// flurry of per-category tasks
	require.Len(t, bus.events, 1)
	assert.Equal(t, interfaces.EventExtractContext, bus.events[0].Name)
	assert.Equal(t, "tnt_new", bus.events[0].TenantID)
}

func TestRunCycleSkipsPausedTenants(t *testing.T) {
	storage := newFakeStorage()
	storage.addTenant(&models.Tenant{ID: "tnt_active", Name: "Active Co"})
	storage.addTenant(&models.Tenant{ID: "tnt_paused", Name: "Paused Co", Paused: true})
	bus := &fakeBus{}

	summary, err := newTestCycle(storage, bus).RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.TenantsSeen)
	assert.Equal(t, 1, summary.TenantsPaused)
	require.Len(t, bus.events, 1)
	assert.Equal(t, "tnt_active", bus.events[0].TenantID)
}

func TestRunCycleIsolatesTenantFailures(t *testing.T) {
	storage := newFakeStorage()
	storage.addTenant(&models.Tenant{ID: "tnt_broken", Name: "Broken Co"})
	storage.addTenant(&models.Tenant{ID: "tnt_ok", Name: "OK Co"})
	storage.failFor["tnt_broken"] = true
	bus := &fakeBus{}

	summary, err := newTestCycle(storage, bus).RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.TenantsFailed)
	assert.Equal(t, 1, summary.Dispatched)
	require.Len(t, bus.events, 1)
	assert.Equal(t, "tnt_ok", bus.events[0].TenantID)
}

func TestRunCycleSkipsInFlightWork(t *testing.T) {
	storage := newFakeStorage()
	storage.addTenant(&models.Tenant{ID: "tnt_busy", Name: "Busy Co"})
	bus := &fakeBus{}

	now := time.Now().UTC()
	require.NoError(t, storage.leases.Acquire(context.Background(), "tnt_busy", models.TaskFullRefresh, now, 30*time.Minute))

	summary, err := newTestCycle(storage, bus).RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Dispatched)
	assert.Equal(t, 1, summary.Skipped)
	assert.Empty(t, bus.events)
}

func TestRunCycleSweepsExpiredLeasesFirst(t *testing.T) {
	storage := newFakeStorage()
	storage.addTenant(&models.Tenant{ID: "tnt_stuck", Name: "Stuck Co"})
	bus := &fakeBus{}

	// A lease abandoned hours ago no longer blocks redispatch
	stale := time.Now().UTC().Add(-2 * time.Hour)
	require.NoError(t, storage.leases.Acquire(context.Background(), "tnt_stuck", models.TaskFullRefresh, stale, 30*time.Minute))

	summary, err := newTestCycle(storage, bus).RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.LeasesSwept)
	assert.Equal(t, 1, summary.Dispatched)
	require.Len(t, bus.events, 1)
}

func TestRunCycleNoWorkWhenEverythingFresh(t *testing.T) {
	storage := newFakeStorage()
	storage.addTenant(&models.Tenant{ID: "tnt_fresh", Name: "Fresh Co"})
	recent := time.Now().UTC().Add(-time.Hour)
	storage.lastRuns["tnt_fresh"] = LastRuns{
		models.CategoryContext:     &recent,
		models.CategoryCompetitors: &recent,
		models.CategoryQueries:     &recent,
		models.CategoryScan:        &recent,
		models.CategoryDiscovery:   &recent,
	}
	bus := &fakeBus{}

	summary, err := newTestCycle(storage, bus).RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Dispatched)
	assert.Empty(t, bus.events)
}
