package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/stephennewman/contextmemo/internal/common"
	"github.com/stephennewman/contextmemo/internal/interfaces"
	"github.com/stephennewman/contextmemo/internal/models"
)

// generateMemo drafts gap-filling content for one observation. One memo per
// query: re-running the step against the same gap finds the existing draft
// and does not create a second.
func (p *Pipeline) generateMemo(ctx context.Context, tenant *models.Tenant, settings *models.AutomationSettings, payload *models.StepPayload) (*stepResult, error) {
	if payload.ObservationID == "" {
		return nil, fmt.Errorf("memo generation requires an observation reference")
	}

	obs, err := p.storage.Results().GetObservation(ctx, payload.ObservationID)
	if err != nil {
		return nil, err
	}

	memos, err := p.storage.Results().ListMemos(ctx, tenant.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memos: %w", err)
	}
	for _, existing := range memos {
		if existing.QueryID != "" && existing.QueryID == obs.QueryID {
			p.logger.Info().
				Str("tenant_id", tenant.ID).
				Str("memo_id", existing.ID).
				Str("query_id", obs.QueryID).
				Msg("Memo already exists for query, skipping generation")
			return &stepResult{}, nil
		}
	}

	brandContext, err := p.storage.Results().GetContext(ctx, tenant.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load brand context: %w", err)
	}

	title, body, err := p.generator.GenerateMemo(ctx, tenant, brandContext, obs)
	if err != nil {
		return nil, fmt.Errorf("memo generation failed: %w", err)
	}

	memo := &models.Memo{
		ID:        common.NewMemoID(),
		TenantID:  tenant.ID,
		QueryID:   obs.QueryID,
		Title:     title,
		Body:      body,
		Status:    models.MemoStatusDraft,
		CreatedAt: time.Now().UTC(),
	}
	if err := p.storage.Results().SaveMemo(ctx, memo); err != nil {
		return nil, fmt.Errorf("failed to save memo: %w", err)
	}

	p.logger.Info().
		Str("tenant_id", tenant.ID).
		Str("memo_id", memo.ID).
		Str("query_id", obs.QueryID).
		Msg("Memo drafted")

	if !settings.AutoPublishMemos {
		return &stepResult{}, nil
	}

	pushPayload := *payload
	pushPayload.MemoID = memo.ID
	next, err := successorEvent(interfaces.EventPushContent, tenant.ID, pushPayload)
	if err != nil {
		return nil, err
	}
	return &stepResult{next: []*interfaces.Event{next}}, nil
}

// pushContent publishes a drafted memo to the tenant's site and schedules
// the delayed citation check
func (p *Pipeline) pushContent(ctx context.Context, tenant *models.Tenant, settings *models.AutomationSettings, payload *models.StepPayload) (*stepResult, error) {
	if payload.MemoID == "" {
		return nil, fmt.Errorf("content push requires a memo reference")
	}

	memo, err := p.storage.Results().GetMemo(ctx, payload.MemoID)
	if err != nil {
		return nil, err
	}
	if memo.Status == models.MemoStatusPublished {
		p.logger.Info().
			Str("tenant_id", tenant.ID).
			Str("memo_id", memo.ID).
			Msg("Memo already published, skipping push")
		return &stepResult{}, nil
	}

	url, err := p.publisher.Publish(ctx, tenant, memo)
	if err != nil {
		return nil, fmt.Errorf("content push failed: %w", err)
	}

	now := time.Now().UTC()
	memo.Status = models.MemoStatusPublished
	memo.URL = url
	memo.PublishedAt = &now
	if err := p.storage.Results().SaveMemo(ctx, memo); err != nil {
		return nil, fmt.Errorf("failed to save published memo: %w", err)
	}

	p.logger.Info().
		Str("tenant_id", tenant.ID).
		Str("memo_id", memo.ID).
		Str("url", url).
		Msg("Memo published")

	// Citations take time to appear in answer engines, verify later
	next, err := successorEvent(interfaces.EventVerifyCitation, tenant.ID, *payload)
	if err != nil {
		return nil, err
	}
	return &stepResult{
		next:   []*interfaces.Event{next},
		nextAt: now.Add(p.verifyDelay),
	}, nil
}

// verifyCitation checks whether published memos earned citations. With a
// memo reference it verifies that one memo (post-publish follow-up);
// without, it re-verifies every published memo (scheduled side channel).
func (p *Pipeline) verifyCitation(ctx context.Context, tenant *models.Tenant, settings *models.AutomationSettings, payload *models.StepPayload) (*stepResult, error) {
	var memos []*models.Memo

	if payload.MemoID != "" {
		memo, err := p.storage.Results().GetMemo(ctx, payload.MemoID)
		if err != nil {
			return nil, err
		}
		memos = append(memos, memo)
	} else {
		all, err := p.storage.Results().ListMemos(ctx, tenant.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list memos: %w", err)
		}
		for _, memo := range all {
			if memo.Status == models.MemoStatusPublished {
				memos = append(memos, memo)
			}
		}
	}

	now := time.Now().UTC()
	cited := 0
	for _, memo := range memos {
		if memo.Status != models.MemoStatusPublished {
			continue
		}

		check, err := p.verifier.VerifyCitation(ctx, tenant, memo)
		if err != nil {
			return nil, fmt.Errorf("citation check failed for memo %s: %w", memo.ID, err)
		}

		memo.VerifiedAt = &now
		memo.Cited = check.Cited
		if err := p.storage.Results().SaveMemo(ctx, memo); err != nil {
			return nil, fmt.Errorf("failed to save verified memo: %w", err)
		}
		if check.Cited {
			cited++
		}
	}

	p.logger.Info().
		Str("tenant_id", tenant.ID).
		Int("verified", len(memos)).
		Int("cited", cited).
		Msg("Citation verification complete")

	return &stepResult{}, nil
}
