package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/stephennewman/contextmemo/internal/interfaces"
	"github.com/stephennewman/contextmemo/internal/models"
)

// SettingsStorage implements the SettingsStorage interface for Badger
type SettingsStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewSettingsStorage creates a new SettingsStorage instance
func NewSettingsStorage(db *BadgerDB, logger arbor.ILogger) interfaces.SettingsStorage {
	return &SettingsStorage{
		db:     db,
		logger: logger,
	}
}

func (s *SettingsStorage) SaveSettings(ctx context.Context, settings *models.AutomationSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	if err := s.db.Store().Upsert(settings.TenantID, settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// GetSettings returns the tenant's stored settings, falling back to defaults
// when no record exists. A missing record is not an error.
func (s *SettingsStorage) GetSettings(ctx context.Context, tenantID string) (*models.AutomationSettings, error) {
	var settings models.AutomationSettings
	if err := s.db.Store().Get(tenantID, &settings); err != nil {
		if err == badgerhold.ErrNotFound {
			return models.DefaultSettings(tenantID), nil
		}
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	return &settings, nil
}
