package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/stephennewman/contextmemo/internal/interfaces"
	"github.com/stephennewman/contextmemo/internal/models"
	"github.com/stephennewman/contextmemo/internal/services/leases"
)

// fakeBus records published events in memory
type fakeBus struct {
	mu      sync.Mutex
	events  []*interfaces.Event
	failPub bool
}

func (b *fakeBus) Publish(ctx context.Context, event *interfaces.Event) error {
	if b.failPub {
		return fmt.Errorf("bus unavailable")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

func (b *fakeBus) PublishAt(ctx context.Context, event *interfaces.Event, at time.Time) error {
	return b.Publish(ctx, event)
}

func (b *fakeBus) Close() error { return nil }

// fakeLeaseStorage is an in-memory LeaseStorage for dispatcher tests
type fakeLeaseStorage struct {
	mu     sync.Mutex
	leases map[string]*models.JobLease
}

func newFakeLeaseStorage() *fakeLeaseStorage {
	return &fakeLeaseStorage{leases: make(map[string]*models.JobLease)}
}

func (f *fakeLeaseStorage) Acquire(ctx context.Context, tenantID string, task models.TaskType, now time.Time, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := models.LeaseKey(tenantID, task)
	if existing, ok := f.leases[key]; ok && !existing.Expired(now, ttl) {
		return models.ErrLeaseHeld
	}
	f.leases[key] = &models.JobLease{Key: key, TenantID: tenantID, TaskType: task, StartedAt: now}
	return nil
}

func (f *fakeLeaseStorage) Release(ctx context.Context, tenantID string, task models.TaskType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.leases, models.LeaseKey(tenantID, task))
	return nil
}

func (f *fakeLeaseStorage) Sweep(ctx context.Context, now time.Time, ttl time.Duration) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	removed := 0
	for key, lease := range f.leases {
		if lease.Expired(now, ttl) {
			delete(f.leases, key)
			removed++
		}
	}
	return removed, nil
}

func (f *fakeLeaseStorage) ListLeases(ctx context.Context) ([]*models.JobLease, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.JobLease, 0, len(f.leases))
	for _, lease := range f.leases {
		out = append(out, lease)
	}
	return out, nil
}

func (f *fakeLeaseStorage) held(tenantID string, task models.TaskType) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.leases[models.LeaseKey(tenantID, task)]
	return ok
}

func newTestDispatcher(bus *fakeBus, storage *fakeLeaseStorage) *Dispatcher {
	leaseService := leases.NewService(storage, arbor.NewLogger(), 30*time.Minute, time.Hour)
	return NewDispatcher(bus, leaseService, arbor.NewLogger())
}

func TestDispatchEmitsStartEventAndHoldsLease(t *testing.T) {
	bus := &fakeBus{}
	storage := newFakeLeaseStorage()
	dispatcher := newTestDispatcher(bus, storage)

	results := dispatcher.Dispatch(context.Background(), []*Classification{
		{TenantID: "tnt_a", Bucket: models.TaskFullRefresh},
	})

	require.Len(t, results, 1)
	assert.Equal(t, OutcomeDispatched, results[0].Outcome)

	require.Len(t, bus.events, 1)
	assert.Equal(t, interfaces.EventExtractContext, bus.events[0].Name)
	assert.Equal(t, "tnt_a", bus.events[0].TenantID)

	var payload models.StepPayload
	require.NoError(t, json.Unmarshal(bus.events[0].Payload, &payload))
	assert.Equal(t, models.TaskFullRefresh, payload.Bucket)

	// The lease stays held until the chain releases it
	assert.True(t, storage.held("tnt_a", models.TaskFullRefresh))
}

func TestDispatchSkipsWhenLeaseHeld(t *testing.T) {
	bus := &fakeBus{}
	storage := newFakeLeaseStorage()
	dispatcher := newTestDispatcher(bus, storage)

	now := time.Now().UTC()
	require.NoError(t, storage.Acquire(context.Background(), "tnt_a", models.TaskScanOnly, now, 30*time.Minute))

	results := dispatcher.Dispatch(context.Background(), []*Classification{
		{TenantID: "tnt_a", Bucket: models.TaskScanOnly},
	})

	require.Len(t, results, 1)
	assert.Equal(t, OutcomeSkipped, results[0].Outcome)
	assert.Empty(t, results[0].Error, "a held lease is a skip, not a failure")
	assert.Empty(t, bus.events)
}

func TestDispatchReleasesLeaseOnPublishFailure(t *testing.T) {
	bus := &fakeBus{failPub: true}
	storage := newFakeLeaseStorage()
	dispatcher := newTestDispatcher(bus, storage)

	results := dispatcher.Dispatch(context.Background(), []*Classification{
		{TenantID: "tnt_a", Bucket: models.TaskScanOnly},
	})

	require.Len(t, results, 1)
	assert.Equal(t, OutcomeFailed, results[0].Outcome)
	assert.False(t, storage.held("tnt_a", models.TaskScanOnly), "failed dispatch must not strand the lease")
}

func TestDispatchFansOutBucketAndSideTasks(t *testing.T) {
	bus := &fakeBus{}
	storage := newFakeLeaseStorage()
	dispatcher := newTestDispatcher(bus, storage)

	results := dispatcher.Dispatch(context.Background(), []*Classification{
		{
			TenantID:  "tnt_a",
			Bucket:    models.TaskScanOnly,
			SideTasks: []models.TaskType{models.TaskDiscoveryScan, models.TaskCitationVerification},
		},
		{TenantID: "tnt_b", Bucket: models.TaskIncrementalUpdate},
	})

	require.Len(t, results, 4)
	for _, result := range results {
		assert.Equal(t, OutcomeDispatched, result.Outcome)
	}
	require.Len(t, bus.events, 4)

	// Each task maps to its own chain start with an independent lease
	assert.Equal(t, interfaces.EventRunScan, bus.events[0].Name)
	assert.Equal(t, interfaces.EventRunScan, bus.events[1].Name)
	assert.Equal(t, interfaces.EventVerifyCitation, bus.events[2].Name)
	assert.Equal(t, interfaces.EventDiscoverCompetitors, bus.events[3].Name)

	var brand, discovery models.StepPayload
	require.NoError(t, json.Unmarshal(bus.events[0].Payload, &brand))
	require.NoError(t, json.Unmarshal(bus.events[1].Payload, &discovery))
	assert.Equal(t, models.ScanKindBrand, brand.ScanKind)
	assert.Equal(t, models.ScanKindDiscovery, discovery.ScanKind)

	assert.True(t, storage.held("tnt_a", models.TaskScanOnly))
	assert.True(t, storage.held("tnt_a", models.TaskDiscoveryScan))
	assert.True(t, storage.held("tnt_b", models.TaskIncrementalUpdate))
}
