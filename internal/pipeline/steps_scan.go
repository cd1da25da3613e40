package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/stephennewman/contextmemo/internal/common"
	"github.com/stephennewman/contextmemo/internal/interfaces"
	"github.com/stephennewman/contextmemo/internal/models"
)

// runScan executes a visibility scan, persists one observation per query,
// and fans out memo generation for detected content gaps
func (p *Pipeline) runScan(ctx context.Context, tenant *models.Tenant, settings *models.AutomationSettings, payload *models.StepPayload) (*stepResult, error) {
	kind := payload.ScanKind
	if kind == "" {
		kind = models.ScanKindBrand
	}

	queries, err := p.storage.Results().ListQueries(ctx, tenant.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list queries: %w", err)
	}
	if len(queries) == 0 {
		p.logger.Warn().
			Str("tenant_id", tenant.ID).
			Str("kind", string(kind)).
			Msg("No queries to scan, ending chain")
		return &stepResult{}, nil
	}

	results, err := p.scanner.Scan(ctx, tenant, kind, queries)
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	queryIDs := make(map[string]string, len(queries))
	for _, query := range queries {
		queryIDs[normalizeQuery(query.Text)] = query.ID
	}

	now := time.Now().UTC()
	mentioned := 0
	var gaps []*models.ScanObservation

	for _, result := range results {
		obs := &models.ScanObservation{
			ID:          common.NewID(),
			TenantID:    tenant.ID,
			QueryID:     queryIDs[normalizeQuery(result.Query)],
			QueryText:   result.Query,
			Kind:        kind,
			Mentioned:   result.Mentioned,
			Competitors: result.Competitors,
			Gap:         !result.Mentioned && len(result.Competitors) > 0,
			ScannedAt:   now,
		}
		if err := p.storage.Results().SaveObservation(ctx, obs); err != nil {
			return nil, fmt.Errorf("failed to save observation: %w", err)
		}
		if obs.Mentioned {
			mentioned++
		}
		if obs.Gap && kind == models.ScanKindBrand {
			gaps = append(gaps, obs)
		}
	}

	p.logger.Info().
		Str("tenant_id", tenant.ID).
		Str("kind", string(kind)).
		Int("scanned", len(results)).
		Int("mentioned", mentioned).
		Int("gaps", len(gaps)).
		Msg("Scan complete")

	result := &stepResult{}

	// A refresh chain ending here is materially informative to the tenant
	if payload.Bucket == models.TaskFullRefresh || payload.Bucket == models.TaskIncrementalUpdate {
		result.notice = &models.Notification{
			TenantID: tenant.ID,
			Kind:     models.NotificationUpdateSummary,
			Message:  fmt.Sprintf("Update complete: %d queries scanned, %d mentions, %d content gaps", len(results), mentioned, len(gaps)),
			Data: map[string]string{
				"task":      string(payload.Bucket),
				"scanned":   fmt.Sprintf("%d", len(results)),
				"mentioned": fmt.Sprintf("%d", mentioned),
				"gaps":      fmt.Sprintf("%d", len(gaps)),
			},
		}
	}

	if !settings.AutoGenerateMemos || len(gaps) == 0 {
		return result, nil
	}

	for _, gap := range gaps {
		memoPayload := *payload
		memoPayload.ObservationID = gap.ID
		next, err := successorEvent(interfaces.EventGenerateMemo, tenant.ID, memoPayload)
		if err != nil {
			return nil, err
		}
		result.next = append(result.next, next)
	}
	return result, nil
}
