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

// TenantStorage implements the TenantStorage interface for Badger
type TenantStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewTenantStorage creates a new TenantStorage instance
func NewTenantStorage(db *BadgerDB, logger arbor.ILogger) interfaces.TenantStorage {
	return &TenantStorage{
		db:     db,
		logger: logger,
	}
}

func (s *TenantStorage) SaveTenant(ctx context.Context, tenant *models.Tenant) error {
	if err := tenant.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC()
	if tenant.CreatedAt.IsZero() {
		tenant.CreatedAt = now
	}
	tenant.UpdatedAt = now

	if err := s.db.Store().Upsert(tenant.ID, tenant); err != nil {
		return fmt.Errorf("failed to save tenant: %w", err)
	}
	return nil
}

func (s *TenantStorage) GetTenant(ctx context.Context, tenantID string) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := s.db.Store().Get(tenantID, &tenant); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, models.ErrTenantNotFound
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	return &tenant, nil
}

func (s *TenantStorage) ListTenants(ctx context.Context) ([]*models.Tenant, error) {
	var tenants []models.Tenant
	if err := s.db.Store().Find(&tenants, badgerhold.Where("ID").Ne("").SortBy("CreatedAt")); err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}

	result := make([]*models.Tenant, len(tenants))
	for i := range tenants {
		result[i] = &tenants[i]
	}
	return result, nil
}

func (s *TenantStorage) SetPaused(ctx context.Context, tenantID string, paused bool) error {
	tenant, err := s.GetTenant(ctx, tenantID)
	if err != nil {
		return err
	}

	tenant.Paused = paused
	tenant.UpdatedAt = time.Now().UTC()

	if err := s.db.Store().Upsert(tenant.ID, tenant); err != nil {
		return fmt.Errorf("failed to update tenant pause state: %w", err)
	}

	s.logger.Info().Str("tenant_id", tenantID).Bool("paused", paused).Msg("Tenant pause state updated")
	return nil
}

func (s *TenantStorage) SetLastContextRefresh(ctx context.Context, tenantID string, at time.Time) error {
	tenant, err := s.GetTenant(ctx, tenantID)
	if err != nil {
		return err
	}

	refreshed := at.UTC()
	tenant.LastContextRefresh = &refreshed
	tenant.UpdatedAt = time.Now().UTC()

	if err := s.db.Store().Upsert(tenant.ID, tenant); err != nil {
		return fmt.Errorf("failed to update tenant context refresh: %w", err)
	}
	return nil
}

func (s *TenantStorage) SetVisibilityScore(ctx context.Context, tenantID string, score int) error {
	tenant, err := s.GetTenant(ctx, tenantID)
	if err != nil {
		return err
	}

	tenant.VisibilityScore = score
	tenant.UpdatedAt = time.Now().UTC()

	if err := s.db.Store().Upsert(tenant.ID, tenant); err != nil {
		return fmt.Errorf("failed to update tenant visibility score: %w", err)
	}
	return nil
}

func (s *TenantStorage) DeleteTenant(ctx context.Context, tenantID string) error {
	if err := s.db.Store().Delete(tenantID, &models.Tenant{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return models.ErrTenantNotFound
		}
		return fmt.Errorf("failed to delete tenant: %w", err)
	}
	return nil
}
