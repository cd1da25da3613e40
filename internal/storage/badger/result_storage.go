package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/stephennewman/contextmemo/internal/interfaces"
	"github.com/stephennewman/contextmemo/internal/models"
)

// ResultStorage implements the ResultStorage interface for Badger
type ResultStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewResultStorage creates a new ResultStorage instance
func NewResultStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ResultStorage {
	return &ResultStorage{
		db:     db,
		logger: logger,
	}
}

func (s *ResultStorage) SaveContext(ctx context.Context, brandContext *models.BrandContext) error {
	if brandContext.TenantID == "" {
		return fmt.Errorf("tenant ID is required")
	}
	if brandContext.RefreshedAt.IsZero() {
		brandContext.RefreshedAt = time.Now().UTC()
	}

	if err := s.db.Store().Upsert(brandContext.TenantID, brandContext); err != nil {
		return fmt.Errorf("failed to save brand context: %w", err)
	}
	return nil
}

func (s *ResultStorage) GetContext(ctx context.Context, tenantID string) (*models.BrandContext, error) {
	var brandContext models.BrandContext
	if err := s.db.Store().Get(tenantID, &brandContext); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get brand context: %w", err)
	}
	return &brandContext, nil
}

func (s *ResultStorage) SaveCompetitor(ctx context.Context, competitor *models.Competitor) error {
	if competitor.ID == "" || competitor.TenantID == "" {
		return fmt.Errorf("competitor ID and tenant ID are required")
	}
	if competitor.DiscoveredAt.IsZero() {
		competitor.DiscoveredAt = time.Now().UTC()
	}

	if err := s.db.Store().Upsert(competitor.ID, competitor); err != nil {
		return fmt.Errorf("failed to save competitor: %w", err)
	}
	return nil
}

func (s *ResultStorage) ListCompetitors(ctx context.Context, tenantID string) ([]*models.Competitor, error) {
	var competitors []models.Competitor
	if err := s.db.Store().Find(&competitors, badgerhold.Where("TenantID").Eq(tenantID).Index("TenantID").SortBy("DiscoveredAt")); err != nil {
		return nil, fmt.Errorf("failed to list competitors: %w", err)
	}

	result := make([]*models.Competitor, len(competitors))
	for i := range competitors {
		result[i] = &competitors[i]
	}
	return result, nil
}

func (s *ResultStorage) SaveQuery(ctx context.Context, query *models.PromptQuery) error {
	if query.ID == "" || query.TenantID == "" {
		return fmt.Errorf("query ID and tenant ID are required")
	}
	if query.GeneratedAt.IsZero() {
		query.GeneratedAt = time.Now().UTC()
	}

	if err := s.db.Store().Upsert(query.ID, query); err != nil {
		return fmt.Errorf("failed to save query: %w", err)
	}
	return nil
}

func (s *ResultStorage) ListQueries(ctx context.Context, tenantID string) ([]*models.PromptQuery, error) {
	var queries []models.PromptQuery
	if err := s.db.Store().Find(&queries, badgerhold.Where("TenantID").Eq(tenantID).Index("TenantID").SortBy("GeneratedAt")); err != nil {
		return nil, fmt.Errorf("failed to list queries: %w", err)
	}

	result := make([]*models.PromptQuery, len(queries))
	for i := range queries {
		result[i] = &queries[i]
	}
	return result, nil
}

func (s *ResultStorage) SaveObservation(ctx context.Context, obs *models.ScanObservation) error {
	if obs.ID == "" || obs.TenantID == "" {
		return fmt.Errorf("observation ID and tenant ID are required")
	}
	if obs.ScannedAt.IsZero() {
		obs.ScannedAt = time.Now().UTC()
	}

	if err := s.db.Store().Upsert(obs.ID, obs); err != nil {
		return fmt.Errorf("failed to save observation: %w", err)
	}
	return nil
}

func (s *ResultStorage) GetObservation(ctx context.Context, obsID string) (*models.ScanObservation, error) {
	var obs models.ScanObservation
	if err := s.db.Store().Get(obsID, &obs); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("observation not found: %s", obsID)
		}
		return nil, fmt.Errorf("failed to get observation: %w", err)
	}
	return &obs, nil
}

func (s *ResultStorage) ListObservationsSince(ctx context.Context, tenantID string, since time.Time) ([]*models.ScanObservation, error) {
	var observations []models.ScanObservation
	query := badgerhold.Where("TenantID").Eq(tenantID).Index("TenantID").And("ScannedAt").Ge(since.UTC()).SortBy("ScannedAt")
	if err := s.db.Store().Find(&observations, query); err != nil {
		return nil, fmt.Errorf("failed to list observations: %w", err)
	}

	result := make([]*models.ScanObservation, len(observations))
	for i := range observations {
		result[i] = &observations[i]
	}
	return result, nil
}

func (s *ResultStorage) ListTenantIDsWithObservationsSince(ctx context.Context, since time.Time) ([]string, error) {
	var observations []models.ScanObservation
	if err := s.db.Store().Find(&observations, badgerhold.Where("ScannedAt").Ge(since.UTC())); err != nil {
		return nil, fmt.Errorf("failed to list recent observations: %w", err)
	}

	seen := make(map[string]bool)
	tenantIDs := []string{}
	for i := range observations {
		if !seen[observations[i].TenantID] {
			seen[observations[i].TenantID] = true
			tenantIDs = append(tenantIDs, observations[i].TenantID)
		}
	}
	return tenantIDs, nil
}

func (s *ResultStorage) SaveMemo(ctx context.Context, memo *models.Memo) error {
	if memo.ID == "" || memo.TenantID == "" {
		return fmt.Errorf("memo ID and tenant ID are required")
	}
	if memo.CreatedAt.IsZero() {
		memo.CreatedAt = time.Now().UTC()
	}
	if memo.Status == "" {
		memo.Status = models.MemoStatusDraft
	}

	if err := s.db.Store().Upsert(memo.ID, memo); err != nil {
		return fmt.Errorf("failed to save memo: %w", err)
	}
	return nil
}

func (s *ResultStorage) GetMemo(ctx context.Context, memoID string) (*models.Memo, error) {
	var memo models.Memo
	if err := s.db.Store().Get(memoID, &memo); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("memo not found: %s", memoID)
		}
		return nil, fmt.Errorf("failed to get memo: %w", err)
	}
	return &memo, nil
}

func (s *ResultStorage) ListMemos(ctx context.Context, tenantID string) ([]*models.Memo, error) {
	var memos []models.Memo
	if err := s.db.Store().Find(&memos, badgerhold.Where("TenantID").Eq(tenantID).Index("TenantID").SortBy("CreatedAt").Reverse()); err != nil {
		return nil, fmt.Errorf("failed to list memos: %w", err)
	}

	result := make([]*models.Memo, len(memos))
	for i := range memos {
		result[i] = &memos[i]
	}
	return result, nil
}

// LastRun derives a category's last completed run from its own result
// records. A category with no records has never run and returns nil.
func (s *ResultStorage) LastRun(ctx context.Context, tenantID string, category models.TaskCategory) (*time.Time, error) {
	switch category {
	case models.CategoryContext:
		brandContext, err := s.GetContext(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		if brandContext == nil {
			return nil, nil
		}
		at := brandContext.RefreshedAt.UTC()
		return &at, nil

	case models.CategoryCompetitors:
		competitors, err := s.ListCompetitors(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		return maxTime(competitors, func(c *models.Competitor) time.Time { return c.DiscoveredAt }), nil

	case models.CategoryQueries:
		queries, err := s.ListQueries(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		return maxTime(queries, func(q *models.PromptQuery) time.Time { return q.GeneratedAt }), nil

	case models.CategoryScan:
		return s.lastScan(tenantID, models.ScanKindBrand)
	case models.CategoryDiscovery:
		return s.lastScan(tenantID, models.ScanKindDiscovery)
	case models.CategoryCompetitorContent:
		return s.lastScan(tenantID, models.ScanKindCompetitorContent)
	case models.CategoryNetworkExpansion:
		return s.lastScan(tenantID, models.ScanKindNetworkExpansion)

	case models.CategoryCitationVerification:
		memos, err := s.ListMemos(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		var latest *time.Time
		for _, memo := range memos {
			if memo.VerifiedAt == nil {
				continue
			}
			at := memo.VerifiedAt.UTC()
			if latest == nil || at.After(*latest) {
				latest = &at
			}
		}
		return latest, nil

	default:
		return nil, fmt.Errorf("unknown task category: %s", category)
	}
}

func (s *ResultStorage) lastScan(tenantID string, kind models.ScanKind) (*time.Time, error) {
	var observations []models.ScanObservation
	query := badgerhold.Where("TenantID").Eq(tenantID).Index("TenantID").And("Kind").Eq(kind)
	if err := s.db.Store().Find(&observations, query); err != nil {
		return nil, fmt.Errorf("failed to find observations: %w", err)
	}

	var latest *time.Time
	for i := range observations {
		at := observations[i].ScannedAt.UTC()
		if latest == nil || at.After(*latest) {
			latest = &at
		}
	}
	return latest, nil
}

func maxTime[T any](items []*T, at func(*T) time.Time) *time.Time {
	var latest *time.Time
	for _, item := range items {
		t := at(item).UTC()
		if latest == nil || t.After(*latest) {
			latest = &t
		}
	}
	return latest
}
