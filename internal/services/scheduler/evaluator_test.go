package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stephennewman/contextmemo/internal/models"
)

func testTenant() *models.Tenant {
	return &models.Tenant{ID: "tnt_eval", Name: "Eval Co", Domain: "eval.example.com"}
}

func ago(now time.Time, d time.Duration) *time.Time {
	t := now.Add(-d)
	return &t
}

func TestEvaluateBootstrapTenantIsFullyDue(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	evaluator := NewEvaluator(7 * 24 * time.Hour)

	// No result records anywhere: every enabled category is due
	evaluation := evaluator.Evaluate(testTenant(), models.DefaultSettings("tnt_eval"), LastRuns{}, now)

	assert.True(t, evaluation.IsDue(models.CategoryContext))
	assert.True(t, evaluation.IsDue(models.CategoryCompetitors))
	assert.True(t, evaluation.IsDue(models.CategoryQueries))
	assert.True(t, evaluation.IsDue(models.CategoryScan))
	assert.True(t, evaluation.IsDue(models.CategoryDiscovery))
}

func TestEvaluateDisabledCategoryNeverDue(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	evaluator := NewEvaluator(7 * 24 * time.Hour)

	settings := models.DefaultSettings("tnt_eval")
	settings.Scans.Enabled = false

	lastRuns := LastRuns{
		models.CategoryContext:     ago(now, time.Hour),
		models.CategoryCompetitors: ago(now, time.Hour),
		models.CategoryQueries:     ago(now, time.Hour),
	}

	evaluation := evaluator.Evaluate(testTenant(), settings, lastRuns, now)
	assert.False(t, evaluation.IsDue(models.CategoryScan), "disabled categories stay idle even when overdue")

	// Default-off side channels are never due regardless of elapsed time
	assert.False(t, evaluation.IsDue(models.CategoryCompetitorContent))
	assert.False(t, evaluation.IsDue(models.CategoryNetworkExpansion))
	assert.False(t, evaluation.IsDue(models.CategoryCitationVerification))
}

func TestEvaluateNeverCadenceNeverDue(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	evaluator := NewEvaluator(7 * 24 * time.Hour)

	settings := models.DefaultSettings("tnt_eval")
	settings.Discovery.Cadence = models.Cadence{Kind: models.CadenceNever}

	lastRuns := LastRuns{
		models.CategoryContext:     ago(now, time.Hour),
		models.CategoryCompetitors: ago(now, time.Hour),
		models.CategoryQueries:     ago(now, time.Hour),
	}

	evaluation := evaluator.Evaluate(testTenant(), settings, lastRuns, now)
	assert.False(t, evaluation.IsDue(models.CategoryDiscovery))
}

func TestEvaluateContextDueForcesDownstream(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	evaluator := NewEvaluator(7 * 24 * time.Hour)

	// Everything ran recently except context, which is a week and a day old
	lastRuns := LastRuns{
		models.CategoryContext:     ago(now, 8*24*time.Hour),
		models.CategoryCompetitors: ago(now, time.Hour),
		models.CategoryQueries:     ago(now, time.Hour),
		models.CategoryScan:        ago(now, time.Hour),
	}

	evaluation := evaluator.Evaluate(testTenant(), models.DefaultSettings("tnt_eval"), lastRuns, now)

	require.True(t, evaluation.IsDue(models.CategoryContext))
	assert.True(t, evaluation.IsDue(models.CategoryCompetitors), "stale context invalidates competitors")
	assert.True(t, evaluation.IsDue(models.CategoryQueries), "stale context invalidates queries")
	assert.True(t, evaluation.IsDue(models.CategoryScan), "stale context invalidates scan inputs")
}

func TestEvaluateCadenceBoundaries(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	evaluator := NewEvaluator(7 * 24 * time.Hour)

	fresh := LastRuns{
		models.CategoryContext:     ago(now, time.Hour),
		models.CategoryCompetitors: ago(now, time.Hour),
		models.CategoryQueries:     ago(now, time.Hour),
	}

	tests := []struct {
		name    string
		lastRun *time.Time
		want    bool
	}{
		{"just under a day", ago(now, 24*time.Hour-time.Second), false},
		{"exactly a day", ago(now, 24*time.Hour), true},
		{"well past a day", ago(now, 36*time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lastRuns := LastRuns{models.CategoryScan: tt.lastRun}
			for k, v := range fresh {
				lastRuns[k] = v
			}
			evaluation := evaluator.Evaluate(testTenant(), models.DefaultSettings("tnt_eval"), lastRuns, now)
			assert.Equal(t, tt.want, evaluation.IsDue(models.CategoryScan))
		})
	}
}

func TestEvaluateCustomCadence(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	evaluator := NewEvaluator(7 * 24 * time.Hour)

	settings := models.DefaultSettings("tnt_eval")
	settings.Scans.Cadence = models.Cadence{Kind: models.CadenceCustom, Interval: 6 * time.Hour}

	lastRuns := LastRuns{
		models.CategoryContext:     ago(now, time.Hour),
		models.CategoryCompetitors: ago(now, time.Hour),
		models.CategoryQueries:     ago(now, time.Hour),
		models.CategoryScan:        ago(now, 7*time.Hour),
	}

	evaluation := evaluator.Evaluate(testTenant(), settings, lastRuns, now)
	assert.True(t, evaluation.IsDue(models.CategoryScan))
}
