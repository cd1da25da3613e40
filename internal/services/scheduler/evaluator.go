package scheduler

import (
	"time"

	"github.com/stephennewman/contextmemo/internal/common"
	"github.com/stephennewman/contextmemo/internal/models"
)

// LastRuns holds the derived last-completed-run time per category for one
// tenant. A nil entry (or missing key) means the category has never run.
type LastRuns map[models.TaskCategory]*time.Time

// Evaluation is the set of categories due for one tenant this cycle
type Evaluation struct {
	TenantID string
	Due      map[models.TaskCategory]bool
}

// IsDue reports whether a category was marked due
func (e *Evaluation) IsDue(category models.TaskCategory) bool {
	return e.Due[category]
}

// Evaluator decides which categories are due for a tenant. Pure: it reads
// only its arguments and has no side effects.
type Evaluator struct {
	// RefreshInterval drives the context, competitor and query refresh
	// categories, which have no per-tenant cadence switch
	RefreshInterval time.Duration
}

// NewEvaluator creates an evaluator with the given refresh interval
func NewEvaluator(refreshInterval time.Duration) *Evaluator {
	if refreshInterval <= 0 {
		refreshInterval = 7 * 24 * time.Hour
	}
	return &Evaluator{RefreshInterval: refreshInterval}
}

// Evaluate returns the due categories for one tenant. Callers exclude paused
// tenants before calling and must pass a monotonically non-decreasing now.
//
// A due context refresh forces every downstream category due regardless of
// individual cadences: fresh context invalidates all derived competitor and
// query data, and the scans built on them.
func (e *Evaluator) Evaluate(tenant *models.Tenant, settings *models.AutomationSettings, lastRuns LastRuns, now time.Time) *Evaluation {
	due := make(map[models.TaskCategory]bool)

	contextDue := common.CheckRefreshDueness(lastRuns[models.CategoryContext], now, e.RefreshInterval).IsDue
	due[models.CategoryContext] = contextDue

	due[models.CategoryCompetitors] = contextDue ||
		common.CheckRefreshDueness(lastRuns[models.CategoryCompetitors], now, e.RefreshInterval).IsDue
	due[models.CategoryQueries] = contextDue ||
		common.CheckRefreshDueness(lastRuns[models.CategoryQueries], now, e.RefreshInterval).IsDue

	for _, category := range []models.TaskCategory{
		models.CategoryScan,
		models.CategoryDiscovery,
		models.CategoryCompetitorContent,
		models.CategoryNetworkExpansion,
		models.CategoryCitationVerification,
	} {
		setting := settings.Category(category)
		if !setting.Enabled {
			due[category] = false
			continue
		}
		if category == models.CategoryScan && contextDue {
			due[category] = true
			continue
		}
		due[category] = common.CheckCadenceDueness(lastRuns[category], now, setting.Cadence).IsDue
	}

	return &Evaluation{
		TenantID: tenant.ID,
		Due:      due,
	}
}
