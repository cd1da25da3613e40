package common

import (
	"testing"
	"time"

	"github.com/stephennewman/contextmemo/internal/models"
)

// Helper to create a time easily
func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("failed to parse time %q: %v", value, err)
	}
	return parsed
}

func TestCheckCadenceDueness(t *testing.T) {
	now := mustTime(t, "2026-03-10T12:00:00Z")

	tests := []struct {
		name    string
		lastRun string // empty means never run
		cadence models.Cadence
		wantDue bool
	}{
		{"never run daily is due", "", models.Cadence{Kind: models.CadenceDaily}, true},
		{"never run weekly is due", "", models.Cadence{Kind: models.CadenceWeekly}, true},
		{"never cadence is not due even when never run", "", models.Cadence{Kind: models.CadenceNever}, false},
		{"daily ran an hour ago", "2026-03-10T11:00:00Z", models.Cadence{Kind: models.CadenceDaily}, false},
		{"daily ran 25 hours ago", "2026-03-09T11:00:00Z", models.Cadence{Kind: models.CadenceDaily}, true},
		{"daily exactly on boundary", "2026-03-09T12:00:00Z", models.Cadence{Kind: models.CadenceDaily}, true},
		{"weekly ran 3 days ago", "2026-03-07T12:00:00Z", models.Cadence{Kind: models.CadenceWeekly}, false},
		{"weekly ran 8 days ago", "2026-03-02T12:00:00Z", models.Cadence{Kind: models.CadenceWeekly}, true},
		{"custom 6h ran 5h ago", "2026-03-10T07:00:00Z", models.Cadence{Kind: models.CadenceCustom, Interval: 6 * time.Hour}, false},
		{"custom 6h ran 7h ago", "2026-03-10T05:00:00Z", models.Cadence{Kind: models.CadenceCustom, Interval: 6 * time.Hour}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var lastRun *time.Time
			if tt.lastRun != "" {
				parsed := mustTime(t, tt.lastRun)
				lastRun = &parsed
			}

			got := CheckCadenceDueness(lastRun, now, tt.cadence)
			if got.IsDue != tt.wantDue {
				t.Errorf("CheckCadenceDueness() = %v, want %v (%s)", got.IsDue, tt.wantDue, got.Reason)
			}
		})
	}
}

func TestCheckCadenceDuenessNextDueTime(t *testing.T) {
	now := mustTime(t, "2026-03-10T12:00:00Z")
	lastRun := mustTime(t, "2026-03-10T06:00:00Z")

	result := CheckCadenceDueness(&lastRun, now, models.Cadence{Kind: models.CadenceDaily})
	if result.IsDue {
		t.Fatalf("expected not due, got due (%s)", result.Reason)
	}

	wantNext := mustTime(t, "2026-03-11T06:00:00Z")
	if !result.NextDueTime.Equal(wantNext) {
		t.Errorf("NextDueTime = %s, want %s", result.NextDueTime, wantNext)
	}
}

func TestCheckRefreshDueness(t *testing.T) {
	now := mustTime(t, "2026-03-10T12:00:00Z")
	interval := 168 * time.Hour

	if got := CheckRefreshDueness(nil, now, interval); !got.IsDue {
		t.Errorf("never refreshed should be due, got %v (%s)", got.IsDue, got.Reason)
	}

	recent := mustTime(t, "2026-03-08T12:00:00Z")
	if got := CheckRefreshDueness(&recent, now, interval); got.IsDue {
		t.Errorf("refreshed 2 days ago with weekly interval should not be due (%s)", got.Reason)
	}

	old := mustTime(t, "2026-02-20T12:00:00Z")
	if got := CheckRefreshDueness(&old, now, interval); !got.IsDue {
		t.Errorf("refreshed 18 days ago with weekly interval should be due (%s)", got.Reason)
	}
}
