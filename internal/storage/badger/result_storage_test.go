package badger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/stephennewman/contextmemo/internal/models"
)

func TestLastRunNeverRun(t *testing.T) {
	storage := NewResultStorage(newTestDB(t), arbor.NewLogger())
	ctx := context.Background()

	for _, category := range []models.TaskCategory{
		models.CategoryContext,
		models.CategoryCompetitors,
		models.CategoryQueries,
		models.CategoryScan,
		models.CategoryDiscovery,
		models.CategoryCitationVerification,
	} {
		lastRun, err := storage.LastRun(ctx, "tnt-1", category)
		if err != nil {
			t.Fatalf("LastRun(%s) failed: %v", category, err)
		}
		if lastRun != nil {
			t.Errorf("LastRun(%s) = %s, want nil for never-run category", category, lastRun)
		}
	}
}

func TestLastRunDerivedFromResults(t *testing.T) {
	storage := NewResultStorage(newTestDB(t), arbor.NewLogger())
	ctx := context.Background()

	older := time.Date(2026, 3, 8, 10, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)

	for i, at := range []time.Time{older, newer} {
		obs := &models.ScanObservation{
			ID:        fmt.Sprintf("obs-%d", i),
			TenantID:  "tnt-1",
			Kind:      models.ScanKindBrand,
			ScannedAt: at,
		}
		if err := storage.SaveObservation(ctx, obs); err != nil {
			t.Fatal(err)
		}
	}

	lastRun, err := storage.LastRun(ctx, "tnt-1", models.CategoryScan)
	if err != nil {
		t.Fatal(err)
	}
	if lastRun == nil || !lastRun.Equal(newer) {
		t.Fatalf("LastRun(scan) = %v, want %s", lastRun, newer)
	}

	// Discovery observations do not count toward the brand scan category
	discovery, err := storage.LastRun(ctx, "tnt-1", models.CategoryDiscovery)
	if err != nil {
		t.Fatal(err)
	}
	if discovery != nil {
		t.Errorf("LastRun(discovery) = %s, want nil with only brand scans stored", discovery)
	}
}

func TestLastRunContextFromBrandContext(t *testing.T) {
	storage := NewResultStorage(newTestDB(t), arbor.NewLogger())
	ctx := context.Background()

	refreshed := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)
	err := storage.SaveContext(ctx, &models.BrandContext{
		TenantID:    "tnt-1",
		Summary:     "Developer tools for platform teams",
		RefreshedAt: refreshed,
	})
	if err != nil {
		t.Fatal(err)
	}

	lastRun, err := storage.LastRun(ctx, "tnt-1", models.CategoryContext)
	if err != nil {
		t.Fatal(err)
	}
	if lastRun == nil || !lastRun.Equal(refreshed) {
		t.Fatalf("LastRun(context) = %v, want %s", lastRun, refreshed)
	}
}

func TestLastRunCitationVerification(t *testing.T) {
	storage := NewResultStorage(newTestDB(t), arbor.NewLogger())
	ctx := context.Background()

	verified := time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC)
	memos := []*models.Memo{
		{ID: "memo-1", TenantID: "tnt-1", Title: "Draft", Status: models.MemoStatusDraft},
		{ID: "memo-2", TenantID: "tnt-1", Title: "Verified", Status: models.MemoStatusPublished, VerifiedAt: &verified},
	}
	for _, memo := range memos {
		if err := storage.SaveMemo(ctx, memo); err != nil {
			t.Fatal(err)
		}
	}

	lastRun, err := storage.LastRun(ctx, "tnt-1", models.CategoryCitationVerification)
	if err != nil {
		t.Fatal(err)
	}
	if lastRun == nil || !lastRun.Equal(verified) {
		t.Fatalf("LastRun(citation_verification) = %v, want %s", lastRun, verified)
	}
}

func TestListTenantIDsWithObservationsSince(t *testing.T) {
	storage := NewResultStorage(newTestDB(t), arbor.NewLogger())
	ctx := context.Background()
	now := time.Now().UTC()

	observations := []*models.ScanObservation{
		{ID: "o1", TenantID: "tnt-1", Kind: models.ScanKindBrand, ScannedAt: now.Add(-1 * time.Hour)},
		{ID: "o2", TenantID: "tnt-1", Kind: models.ScanKindBrand, ScannedAt: now.Add(-2 * time.Hour)},
		{ID: "o3", TenantID: "tnt-2", Kind: models.ScanKindBrand, ScannedAt: now.Add(-3 * time.Hour)},
		{ID: "o4", TenantID: "tnt-3", Kind: models.ScanKindBrand, ScannedAt: now.Add(-48 * time.Hour)},
	}
	for _, obs := range observations {
		if err := storage.SaveObservation(ctx, obs); err != nil {
			t.Fatal(err)
		}
	}

	tenantIDs, err := storage.ListTenantIDsWithObservationsSince(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(tenantIDs) != 2 {
		t.Fatalf("expected 2 tenants with recent observations, got %d (%v)", len(tenantIDs), tenantIDs)
	}
}
