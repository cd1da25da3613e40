package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/stephennewman/contextmemo/internal/common"
	"github.com/stephennewman/contextmemo/internal/interfaces"
	"github.com/stephennewman/contextmemo/internal/models"
)

// Service records tenant-visible alerts. Fire-and-forget for callers: a
// failed write is logged, never propagated into pipeline control flow.
type Service struct {
	storage interfaces.NotificationStorage
	logger  arbor.ILogger
}

// NewService creates a notifier backed by notification storage
func NewService(storage interfaces.NotificationStorage, logger arbor.ILogger) *Service {
	return &Service{storage: storage, logger: logger}
}

var _ interfaces.Notifier = (*Service)(nil)

// Notify persists one notification
func (s *Service) Notify(ctx context.Context, notification *models.Notification) error {
	if notification.Kind == "" {
		return fmt.Errorf("notification kind is required")
	}
	if notification.ID == "" {
		notification.ID = common.NewNotificationID()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}

	if err := s.storage.SaveNotification(ctx, notification); err != nil {
		return fmt.Errorf("failed to save notification: %w", err)
	}

	s.logger.Info().
		Str("tenant_id", notification.TenantID).
		Str("kind", string(notification.Kind)).
		Str("message", notification.Message).
		Msg("Notification recorded")

	return nil
}
