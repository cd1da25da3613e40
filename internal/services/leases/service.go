package leases

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/stephennewman/contextmemo/internal/interfaces"
	"github.com/stephennewman/contextmemo/internal/models"
)

// Service manages job leases: acquisition before pipeline work, release on
// completion, and periodic sweeping of leases abandoned by crashed steps.
type Service struct {
	storage interfaces.LeaseStorage
	logger  arbor.ILogger

	ttl           time.Duration
	sweepInterval time.Duration
	sweepTicker   *time.Ticker
	done          chan struct{}
}

// NewService creates a new lease service
func NewService(storage interfaces.LeaseStorage, logger arbor.ILogger, ttl, sweepInterval time.Duration) *Service {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if sweepInterval <= 0 {
		sweepInterval = 5 * time.Minute
	}

	return &Service{
		storage:       storage,
		logger:        logger,
		ttl:           ttl,
		sweepInterval: sweepInterval,
		done:          make(chan struct{}),
	}
}

// TTL returns the configured lease expiry
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Acquire takes the lease for a (tenant, task) pair. Returns
// models.ErrLeaseHeld when the work is already in flight; callers skip on
// that error rather than treating it as a failure.
func (s *Service) Acquire(ctx context.Context, tenantID string, task models.TaskType) error {
	return s.storage.Acquire(ctx, tenantID, task, time.Now().UTC(), s.ttl)
}

// Release drops the lease after the step finishes, in success and failure
// paths alike
func (s *Service) Release(ctx context.Context, tenantID string, task models.TaskType) {
	if err := s.storage.Release(ctx, tenantID, task); err != nil {
		s.logger.Warn().
			Err(err).
			Str("tenant_id", tenantID).
			Str("task", string(task)).
			Msg("Failed to release lease")
	}
}

// List returns all currently held leases
func (s *Service) List(ctx context.Context) ([]*models.JobLease, error) {
	return s.storage.ListLeases(ctx)
}

// SweepNow removes expired leases immediately and returns the count
func (s *Service) SweepNow(ctx context.Context) (int, error) {
	return s.storage.Sweep(ctx, time.Now().UTC(), s.ttl)
}

// StartSweeper launches the background loop that reclaims expired leases
func (s *Service) StartSweeper() {
	s.sweepTicker = time.NewTicker(s.sweepInterval)
	go s.sweeperLoop()
	s.logger.Info().
		Dur("interval", s.sweepInterval).
		Dur("ttl", s.ttl).
		Msg("Lease sweeper started")
}

// StopSweeper stops the background sweeper loop
func (s *Service) StopSweeper() {
	if s.sweepTicker != nil {
		s.sweepTicker.Stop()
		close(s.done)
		s.logger.Info().Msg("Lease sweeper stopped")
	}
}

func (s *Service) sweeperLoop() {
	for {
		select {
		case <-s.done:
			return
		case <-s.sweepTicker.C:
			removed, err := s.SweepNow(context.Background())
			if err != nil {
				s.logger.Error().Err(err).Msg("Lease sweep failed")
				continue
			}
			if removed > 0 {
				s.logger.Warn().
					Int("removed", removed).
					Msg("Reclaimed expired leases")
			}
		}
	}
}
