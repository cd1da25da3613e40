package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/stephennewman/contextmemo/internal/interfaces"
	"github.com/stephennewman/contextmemo/internal/models"
	"github.com/stephennewman/contextmemo/internal/services/leases"
)

// CycleSummary aggregates one scheduling cycle's outcomes
type CycleSummary struct {
	StartedAt      time.Time        `json:"started_at"`
	Duration       time.Duration    `json:"duration"`
	TenantsSeen    int              `json:"tenants_seen"`
	TenantsPaused  int              `json:"tenants_paused"`
	TenantsFailed  int              `json:"tenants_failed"`
	LeasesSwept    int              `json:"leases_swept"`
	Dispatched     int              `json:"dispatched"`
	Skipped        int              `json:"skipped"`
	Results        []DispatchResult `json:"results,omitempty"`
}

// CycleRunner executes one scheduling cycle: sweep stale leases, evaluate
// every tenant, classify, dispatch. Tenants are isolated from each other;
// one tenant's failure degrades the cycle, never aborts it.
type CycleRunner struct {
	storage    interfaces.StorageManager
	evaluator  *Evaluator
	dispatcher *Dispatcher
	leases     *leases.Service
	logger     arbor.ILogger
}

// NewCycleRunner creates a new cycle runner
func NewCycleRunner(storage interfaces.StorageManager, evaluator *Evaluator, dispatcher *Dispatcher, leaseService *leases.Service, logger arbor.ILogger) *CycleRunner {
	return &CycleRunner{
		storage:    storage,
		evaluator:  evaluator,
		dispatcher: dispatcher,
		leases:     leaseService,
		logger:     logger,
	}
}

// RunCycle runs one full scheduling cycle
func (r *CycleRunner) RunCycle(ctx context.Context) (*CycleSummary, error) {
	started := time.Now().UTC()
	summary := &CycleSummary{StartedAt: started}

	// Reclaim abandoned leases before any acquisition is attempted
	swept, err := r.leases.SweepNow(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("Lease sweep failed at cycle start")
	}
	summary.LeasesSwept = swept

	tenants, err := r.storage.Tenants().ListTenants(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to list tenants: %w", err)
	}
	summary.TenantsSeen = len(tenants)

	var classifications []*Classification
	now := started

	for _, tenant := range tenants {
		if tenant.Paused {
			summary.TenantsPaused++
			continue
		}

		classification, err := r.classifyTenant(ctx, tenant, now)
		if err != nil {
			summary.TenantsFailed++
			r.logger.Error().
				Err(err).
				Str("tenant_id", tenant.ID).
				Msg("Tenant classification failed, continuing cycle")
			continue
		}
		if classification.HasWork() {
			classifications = append(classifications, classification)
		}
	}

	results := r.dispatcher.Dispatch(ctx, classifications)
	summary.Results = results
	for _, result := range results {
		switch result.Outcome {
		case OutcomeDispatched:
			summary.Dispatched++
		case OutcomeSkipped:
			summary.Skipped++
		}
	}

	summary.Duration = time.Since(started)
	r.logger.Info().
		Int("tenants", summary.TenantsSeen).
		Int("paused", summary.TenantsPaused).
		Int("failed", summary.TenantsFailed).
		Int("dispatched", summary.Dispatched).
		Int("skipped", summary.Skipped).
		Int("swept", summary.LeasesSwept).
		Dur("duration", summary.Duration).
		Msg("Scheduling cycle complete")

	return summary, nil
}

// classifyTenant isolates one tenant's evaluation so a panic or error in its
// settings or result lookups cannot take down the cycle
func (r *CycleRunner) classifyTenant(ctx context.Context, tenant *models.Tenant, now time.Time) (classification *Classification, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic during classification: %v", rec)
		}
	}()

	settings, err := r.storage.Settings().GetSettings(ctx, tenant.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	lastRuns := make(LastRuns)
	for _, category := range []models.TaskCategory{
		models.CategoryContext,
		models.CategoryCompetitors,
		models.CategoryQueries,
		models.CategoryScan,
		models.CategoryDiscovery,
		models.CategoryCompetitorContent,
		models.CategoryNetworkExpansion,
		models.CategoryCitationVerification,
	} {
		lastRun, err := r.storage.Results().LastRun(ctx, tenant.ID, category)
		if err != nil {
			return nil, fmt.Errorf("failed to derive last run for %s: %w", category, err)
		}
		lastRuns[category] = lastRun
	}

	evaluation := r.evaluator.Evaluate(tenant, settings, lastRuns, now)
	return Classify(evaluation), nil
}
