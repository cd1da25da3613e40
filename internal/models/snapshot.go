package models

import (
	"fmt"
	"time"
)

// SnapshotDayFormat is the calendar-day key format for snapshots
const SnapshotDayFormat = "2006-01-02"

// CompetitorMention is one competitor and how often it was co-mentioned in
// the day's observations
type CompetitorMention struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// VisibilitySnapshot is one row per (tenant, calendar day) summarizing the
// day's scan observations. Unique on (TenantID, Day): re-running the same
// day's computation upserts, never duplicates.
type VisibilitySnapshot struct {
	Key               string              `json:"key" badgerhold:"key"` // tenantID|day
	TenantID          string              `json:"tenant_id" badgerhold:"index"`
	Day               string              `json:"day"`
	Score             int                 `json:"score"` // round(100 * mentioned / total)
	TotalObservations int                 `json:"total_observations"`
	MentionedCount    int                 `json:"mentioned_count"`
	TopCompetitors    []CompetitorMention `json:"top_competitors,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

// SnapshotKey builds the composite storage key for a (tenant, day) pair
func SnapshotKey(tenantID string, day time.Time) string {
	return fmt.Sprintf("%s|%s", tenantID, day.UTC().Format(SnapshotDayFormat))
}
