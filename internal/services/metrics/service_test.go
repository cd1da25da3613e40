package metrics

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/stephennewman/contextmemo/internal/common"
	"github.com/stephennewman/contextmemo/internal/models"
	badgerstore "github.com/stephennewman/contextmemo/internal/storage/badger"
)

func newTestService(t *testing.T) (*Service, *badgerstore.Manager) {
	t.Helper()
	logger := arbor.NewLogger()

	storage, err := badgerstore.NewManager(logger, &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })

	return NewService(storage, logger, 24*time.Hour, 2), storage
}

func saveObservation(t *testing.T, storage *badgerstore.Manager, tenantID string, id int, mentioned bool, competitors []string, at time.Time) {
	t.Helper()
	require.NoError(t, storage.Results().SaveObservation(context.Background(), &models.ScanObservation{
		ID:          fmt.Sprintf("obs-%s-%d", tenantID, id),
		TenantID:    tenantID,
		QueryText:   fmt.Sprintf("query %d", id),
		Kind:        models.ScanKindBrand,
		Mentioned:   mentioned,
		Competitors: competitors,
		ScannedAt:   at,
	}))
}

func TestRunComputesScoreAndTopCompetitors(t *testing.T) {
	service, storage := newTestService(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC)

	tenant := &models.Tenant{ID: "tnt_m", Name: "Metrics Co"}
	require.NoError(t, storage.Tenants().SaveTenant(ctx, tenant))

	recent := now.Add(-2 * time.Hour)
	saveObservation(t, storage, "tnt_m", 1, true, []string{"Jolt"}, recent)
	saveObservation(t, storage, "tnt_m", 2, false, []string{"Jolt", "FoodDocs"}, recent)
	saveObservation(t, storage, "tnt_m", 3, true, []string{"Jolt", "Trail"}, recent)

	summary, err := service.Run(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TenantsWritten)

	snapshot, err := storage.Snapshots().GetSnapshot(ctx, "tnt_m", now)
	require.NoError(t, err)
	require.NotNil(t, snapshot)

	// 2 of 3 mentioned: round(100*2/3) = 67
	assert.Equal(t, 67, snapshot.Score)
	assert.Equal(t, 3, snapshot.TotalObservations)
	assert.Equal(t, 2, snapshot.MentionedCount)

	// topK=2: Jolt has 3 mentions, the 1-mention tie breaks by name
	require.Len(t, snapshot.TopCompetitors, 2)
	assert.Equal(t, models.CompetitorMention{Name: "Jolt", Count: 3}, snapshot.TopCompetitors[0])
	assert.Equal(t, models.CompetitorMention{Name: "FoodDocs", Count: 1}, snapshot.TopCompetitors[1])

	// Denormalized score follows the snapshot
	stored, err := storage.Tenants().GetTenant(ctx, "tnt_m")
	require.NoError(t, err)
	assert.Equal(t, 67, stored.VisibilityScore)
}

func TestRunIsIdempotentPerDay(t *testing.T) {
	service, storage := newTestService(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	require.NoError(t, storage.Tenants().SaveTenant(ctx, &models.Tenant{ID: "tnt_m", Name: "Metrics Co"}))
	saveObservation(t, storage, "tnt_m", 1, false, []string{"Jolt"}, now.Add(-time.Hour))

	_, err := service.Run(ctx, now)
	require.NoError(t, err)

	// More observations land, the same day is recomputed
	saveObservation(t, storage, "tnt_m", 2, true, nil, now.Add(-30*time.Minute))
	_, err = service.Run(ctx, now.Add(time.Hour))
	require.NoError(t, err)

	snapshots, err := storage.Snapshots().ListSnapshots(ctx, "tnt_m", 10)
	require.NoError(t, err)
	require.Len(t, snapshots, 1, "re-running a day upserts, never duplicates")
	assert.Equal(t, 50, snapshots[0].Score, "the second run's values win")
	assert.Equal(t, 2, snapshots[0].TotalObservations)
}

func TestRunSkipsTenantsOutsideWindow(t *testing.T) {
	service, storage := newTestService(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	require.NoError(t, storage.Tenants().SaveTenant(ctx, &models.Tenant{ID: "tnt_stale", Name: "Stale Co"}))
	saveObservation(t, storage, "tnt_stale", 1, true, nil, now.Add(-48*time.Hour))

	summary, err := service.Run(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.TenantsWritten)

	snapshot, err := storage.Snapshots().GetSnapshot(ctx, "tnt_stale", now)
	require.NoError(t, err)
	assert.Nil(t, snapshot, "no observations in the window means no row")
}

func TestTopCompetitorsOrdering(t *testing.T) {
	mentions := topCompetitors(map[string]int{
		"Trail": 2, "Jolt": 5, "FoodDocs": 2, "Xenia": 1,
	}, 3)

	assert.Equal(t, []models.CompetitorMention{
		{Name: "Jolt", Count: 5},
		{Name: "FoodDocs", Count: 2},
		{Name: "Trail", Count: 2},
	}, mentions)
}
