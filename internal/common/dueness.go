// Package common provides shared utilities across the application.
package common

import (
	"fmt"
	"time"

	"github.com/stephennewman/contextmemo/internal/models"
)

// DuenessResult contains the result of a cadence dueness check.
type DuenessResult struct {
	// IsDue indicates whether the category is due to run.
	IsDue bool
	// NextDueTime is when the category next becomes due if it is not due now.
	// Zero when the cadence is "never" or the category is due immediately.
	NextDueTime time.Time
	// Reason provides a human-readable explanation for the decision.
	Reason string
}

// CheckCadenceDueness determines if an automation category is due based on
// its configured cadence and the last completed run.
//
// Parameters:
//   - lastRun: When the category last completed, nil when it has never run
//   - now: Current time (in UTC)
//   - cadence: The category's configured cadence
//
// A category that has never run is due immediately unless the cadence is
// "never". Comparison is >=, so a run landing exactly on the boundary counts
// as due.
func CheckCadenceDueness(lastRun *time.Time, now time.Time, cadence models.Cadence) DuenessResult {
	now = now.UTC()

	interval, ok := cadence.Every()
	if !ok {
		return DuenessResult{
			IsDue:  false,
			Reason: "cadence is never, automation disabled for this category",
		}
	}

	if lastRun == nil {
		return DuenessResult{
			IsDue:  true,
			Reason: "never run, due immediately",
		}
	}

	elapsed := now.Sub(lastRun.UTC())
	if elapsed >= interval {
		return DuenessResult{
			IsDue: true,
			Reason: fmt.Sprintf(
				"last run %s, %s elapsed exceeds %s cadence",
				lastRun.UTC().Format(time.RFC3339), elapsed.Round(time.Second), interval,
			),
		}
	}

	next := lastRun.UTC().Add(interval)
	return DuenessResult{
		IsDue:       false,
		NextDueTime: next,
		Reason: fmt.Sprintf(
			"last run %s, next due at %s",
			lastRun.UTC().Format(time.RFC3339), next.Format(time.RFC3339),
		),
	}
}

// CheckRefreshDueness determines if derived data (competitors, queries) is
// stale relative to a fixed refresh interval. Never-refreshed data is stale.
func CheckRefreshDueness(refreshedAt *time.Time, now time.Time, interval time.Duration) DuenessResult {
	if refreshedAt == nil {
		return DuenessResult{
			IsDue:  true,
			Reason: "never refreshed, due immediately",
		}
	}

	elapsed := now.UTC().Sub(refreshedAt.UTC())
	if elapsed >= interval {
		return DuenessResult{
			IsDue: true,
			Reason: fmt.Sprintf(
				"refreshed %s ago, exceeds %s interval",
				elapsed.Round(time.Second), interval,
			),
		}
	}

	return DuenessResult{
		IsDue:       false,
		NextDueTime: refreshedAt.UTC().Add(interval),
		Reason:      "within refresh interval",
	}
}
