package metrics

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/stephennewman/contextmemo/internal/interfaces"
	"github.com/stephennewman/contextmemo/internal/models"
)

// Service writes the daily visibility snapshot: one row per tenant per
// calendar day, computed from the trailing window of scan observations.
// Safe to run any number of times per day, the row is keyed (tenant, day)
// and upserted.
type Service struct {
	storage interfaces.StorageManager
	logger  arbor.ILogger
	window  time.Duration
	topK    int
}

// RunSummary is one snapshot run's outcome
type RunSummary struct {
	Day            string `json:"day"`
	TenantsWritten int    `json:"tenants_written"`
	TenantsFailed  int    `json:"tenants_failed"`
}

// NewService creates a snapshot writer
func NewService(storage interfaces.StorageManager, logger arbor.ILogger, window time.Duration, topK int) *Service {
	if window <= 0 {
		window = 24 * time.Hour
	}
	if topK <= 0 {
		topK = 5
	}
	return &Service{
		storage: storage,
		logger:  logger,
		window:  window,
		topK:    topK,
	}
}

// Run computes and upserts snapshots for every tenant with at least one
// observation in the trailing window. Per-tenant failures are isolated.
func (s *Service) Run(ctx context.Context, now time.Time) (*RunSummary, error) {
	now = now.UTC()
	since := now.Add(-s.window)
	summary := &RunSummary{Day: now.Format(models.SnapshotDayFormat)}

	tenantIDs, err := s.storage.Results().ListTenantIDsWithObservationsSince(ctx, since)
	if err != nil {
		return summary, fmt.Errorf("failed to list tenants with observations: %w", err)
	}

	for _, tenantID := range tenantIDs {
		if err := s.writeTenantSnapshot(ctx, tenantID, since, now); err != nil {
			summary.TenantsFailed++
			s.logger.Error().
				Err(err).
				Str("tenant_id", tenantID).
				Msg("Snapshot write failed, continuing run")
			continue
		}
		summary.TenantsWritten++
	}

	s.logger.Info().
		Str("day", summary.Day).
		Int("written", summary.TenantsWritten).
		Int("failed", summary.TenantsFailed).
		Msg("Visibility snapshot run complete")

	return summary, nil
}

func (s *Service) writeTenantSnapshot(ctx context.Context, tenantID string, since, now time.Time) error {
	observations, err := s.storage.Results().ListObservationsSince(ctx, tenantID, since)
	if err != nil {
		return fmt.Errorf("failed to list observations: %w", err)
	}
	if len(observations) == 0 {
		return nil
	}

	mentioned := 0
	counts := make(map[string]int)
	for _, obs := range observations {
		if obs.Mentioned {
			mentioned++
		}
		for _, competitor := range obs.Competitors {
			counts[competitor]++
		}
	}

	score := int(math.Round(100 * float64(mentioned) / float64(len(observations))))

	snapshot := &models.VisibilitySnapshot{
		TenantID:          tenantID,
		Day:               now.Format(models.SnapshotDayFormat),
		Score:             score,
		TotalObservations: len(observations),
		MentionedCount:    mentioned,
		TopCompetitors:    topCompetitors(counts, s.topK),
	}
	if err := s.storage.Snapshots().UpsertSnapshot(ctx, snapshot); err != nil {
		return fmt.Errorf("failed to upsert snapshot: %w", err)
	}

	// Denormalized cache of the snapshot for dashboard reads, never a
	// separate source of truth
	if err := s.storage.Tenants().SetVisibilityScore(ctx, tenantID, score); err != nil {
		return fmt.Errorf("failed to update tenant score: %w", err)
	}

	return nil
}

// topCompetitors returns the k most frequently co-mentioned competitors,
// ties broken by name for stable output
func topCompetitors(counts map[string]int, k int) []models.CompetitorMention {
	mentions := make([]models.CompetitorMention, 0, len(counts))
	for name, count := range counts {
		mentions = append(mentions, models.CompetitorMention{Name: name, Count: count})
	}

	sort.Slice(mentions, func(i, j int) bool {
		if mentions[i].Count != mentions[j].Count {
			return mentions[i].Count > mentions[j].Count
		}
		return mentions[i].Name < mentions[j].Name
	})

	if len(mentions) > k {
		mentions = mentions[:k]
	}
	return mentions
}
