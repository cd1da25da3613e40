package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/stephennewman/contextmemo/internal/common"
	"github.com/stephennewman/contextmemo/internal/interfaces"
	"github.com/stephennewman/contextmemo/internal/models"
)

// extractContext refreshes the brand context from the tenant's domain and
// starts competitor discovery
func (p *Pipeline) extractContext(ctx context.Context, tenant *models.Tenant, settings *models.AutomationSettings, payload *models.StepPayload) (*stepResult, error) {
	extraction, err := p.generator.ExtractContext(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("context extraction failed: %w", err)
	}

	now := time.Now().UTC()
	brandContext := &models.BrandContext{
		TenantID:    tenant.ID,
		Summary:     extraction.Summary,
		Offerings:   extraction.Offerings,
		Audience:    extraction.Audience,
		RefreshedAt: now,
	}
	if err := p.storage.Results().SaveContext(ctx, brandContext); err != nil {
		return nil, fmt.Errorf("failed to save brand context: %w", err)
	}
	if err := p.storage.Tenants().SetLastContextRefresh(ctx, tenant.ID, now); err != nil {
		return nil, fmt.Errorf("failed to stamp context refresh: %w", err)
	}

	p.logger.Info().
		Str("tenant_id", tenant.ID).
		Msg("Brand context refreshed")

	next, err := successorEvent(interfaces.EventDiscoverCompetitors, tenant.ID, *payload)
	if err != nil {
		return nil, err
	}
	return &stepResult{next: []*interfaces.Event{next}}, nil
}

// discoverCompetitors proposes competitors and persists the ones not seen
// before, then starts query generation
func (p *Pipeline) discoverCompetitors(ctx context.Context, tenant *models.Tenant, settings *models.AutomationSettings, payload *models.StepPayload) (*stepResult, error) {
	brandContext, err := p.storage.Results().GetContext(ctx, tenant.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load brand context: %w", err)
	}
	if brandContext == nil {
		return nil, fmt.Errorf("no brand context for tenant %s, full refresh required", tenant.ID)
	}

	candidates, err := p.generator.DiscoverCompetitors(ctx, tenant, brandContext)
	if err != nil {
		return nil, fmt.Errorf("competitor discovery failed: %w", err)
	}

	existing, err := p.storage.Results().ListCompetitors(ctx, tenant.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list competitors: %w", err)
	}
	seen := make(map[string]bool, len(existing))
	for _, competitor := range existing {
		seen[competitorKey(competitor.Name, competitor.Domain)] = true
	}

	added := 0
	now := time.Now().UTC()
	for _, candidate := range candidates {
		key := competitorKey(candidate.Name, candidate.Domain)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true

		competitor := &models.Competitor{
			ID:           common.NewID(),
			TenantID:     tenant.ID,
			Name:         candidate.Name,
			Domain:       candidate.Domain,
			DiscoveredAt: now,
		}
		if err := p.storage.Results().SaveCompetitor(ctx, competitor); err != nil {
			return nil, fmt.Errorf("failed to save competitor: %w", err)
		}
		added++
	}

	p.logger.Info().
		Str("tenant_id", tenant.ID).
		Int("candidates", len(candidates)).
		Int("added", added).
		Msg("Competitor discovery complete")

	next, err := successorEvent(interfaces.EventGenerateQueries, tenant.ID, *payload)
	if err != nil {
		return nil, err
	}
	return &stepResult{next: []*interfaces.Event{next}}, nil
}

// generateQueries proposes buyer-style prompt queries, persists the new
// ones, and starts the scan
func (p *Pipeline) generateQueries(ctx context.Context, tenant *models.Tenant, settings *models.AutomationSettings, payload *models.StepPayload) (*stepResult, error) {
	brandContext, err := p.storage.Results().GetContext(ctx, tenant.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load brand context: %w", err)
	}
	if brandContext == nil {
		return nil, fmt.Errorf("no brand context for tenant %s, full refresh required", tenant.ID)
	}

	competitors, err := p.storage.Results().ListCompetitors(ctx, tenant.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list competitors: %w", err)
	}

	texts, err := p.generator.GenerateQueries(ctx, tenant, brandContext, competitors)
	if err != nil {
		return nil, fmt.Errorf("query generation failed: %w", err)
	}

	existing, err := p.storage.Results().ListQueries(ctx, tenant.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list queries: %w", err)
	}
	seen := make(map[string]bool, len(existing))
	for _, query := range existing {
		seen[normalizeQuery(query.Text)] = true
	}

	added := 0
	now := time.Now().UTC()
	for _, text := range texts {
		key := normalizeQuery(text)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true

		query := &models.PromptQuery{
			ID:          common.NewID(),
			TenantID:    tenant.ID,
			Text:        strings.TrimSpace(text),
			GeneratedAt: now,
		}
		if err := p.storage.Results().SaveQuery(ctx, query); err != nil {
			return nil, fmt.Errorf("failed to save query: %w", err)
		}
		added++
	}

	p.logger.Info().
		Str("tenant_id", tenant.ID).
		Int("proposed", len(texts)).
		Int("added", added).
		Msg("Query generation complete")

	scanPayload := *payload
	if scanPayload.ScanKind == "" {
		scanPayload.ScanKind = models.ScanKindBrand
	}
	next, err := successorEvent(interfaces.EventRunScan, tenant.ID, scanPayload)
	if err != nil {
		return nil, err
	}
	return &stepResult{next: []*interfaces.Event{next}}, nil
}

// competitorKey dedupes competitors by domain, falling back to name for
// candidates without one
func competitorKey(name, domain string) string {
	if d := strings.ToLower(strings.TrimSpace(domain)); d != "" {
		return d
	}
	return strings.ToLower(strings.TrimSpace(name))
}

func normalizeQuery(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}
