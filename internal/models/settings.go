package models

import (
	"fmt"
	"time"
)

// CadenceKind is the schedule granularity for an automation category
type CadenceKind string

// CadenceKind constants
const (
	CadenceDaily  CadenceKind = "daily"
	CadenceWeekly CadenceKind = "weekly"
	CadenceNever  CadenceKind = "never"
	CadenceCustom CadenceKind = "custom"
)

// Cadence is the minimum interval required between two runs of the same
// task category. The earlier fixed daily/weekly behavior is expressed as a
// special case of the custom interval, not a separate code path.
type Cadence struct {
	Kind     CadenceKind   `json:"kind"`
	Interval time.Duration `json:"interval,omitempty"` // Only meaningful for CadenceCustom
}

// Every returns the minimum re-run interval. ok is false for CadenceNever.
func (c Cadence) Every() (time.Duration, bool) {
	switch c.Kind {
	case CadenceDaily:
		return 24 * time.Hour, true
	case CadenceWeekly:
		return 7 * 24 * time.Hour, true
	case CadenceCustom:
		if c.Interval <= 0 {
			return 0, false
		}
		return c.Interval, true
	default:
		return 0, false
	}
}

// Validate checks that the cadence is one of the known kinds
func (c Cadence) Validate() error {
	switch c.Kind {
	case CadenceDaily, CadenceWeekly, CadenceNever:
		return nil
	case CadenceCustom:
		if c.Interval <= 0 {
			return fmt.Errorf("custom cadence requires a positive interval")
		}
		return nil
	default:
		return fmt.Errorf("unknown cadence kind: %s", c.Kind)
	}
}

// CategorySetting is the per-category switch and schedule
type CategorySetting struct {
	Enabled bool    `json:"enabled"`
	Cadence Cadence `json:"cadence"`
}

// AutomationSettings is the per-tenant automation configuration. Created with
// defaults at tenant creation, updated by the tenant, read-only to the scheduler.
type AutomationSettings struct {
	TenantID             string          `json:"tenant_id" badgerhold:"key"`
	Scans                CategorySetting `json:"scans"`
	Discovery            CategorySetting `json:"discovery"`
	CompetitorContent    CategorySetting `json:"competitor_content"`
	NetworkExpansion     CategorySetting `json:"network_expansion"`
	CitationVerification CategorySetting `json:"citation_verification"`
	AutoGenerateMemos    bool            `json:"auto_generate_memos"`
	AutoPublishMemos     bool            `json:"auto_publish_memos"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// DefaultSettings returns the bootstrap configuration for a new tenant:
// daily scans, weekly discovery, the heavier side channels off until the
// tenant opts in.
func DefaultSettings(tenantID string) *AutomationSettings {
	return &AutomationSettings{
		TenantID:             tenantID,
		Scans:                CategorySetting{Enabled: true, Cadence: Cadence{Kind: CadenceDaily}},
		Discovery:            CategorySetting{Enabled: true, Cadence: Cadence{Kind: CadenceWeekly}},
		CompetitorContent:    CategorySetting{Enabled: false, Cadence: Cadence{Kind: CadenceWeekly}},
		NetworkExpansion:     CategorySetting{Enabled: false, Cadence: Cadence{Kind: CadenceWeekly}},
		CitationVerification: CategorySetting{Enabled: false, Cadence: Cadence{Kind: CadenceWeekly}},
		AutoGenerateMemos:    true,
		AutoPublishMemos:     false,
		UpdatedAt:            time.Now(),
	}
}

// Category returns the setting for a task category. Categories without a
// per-tenant switch (context refresh) report enabled with no cadence.
func (s *AutomationSettings) Category(category TaskCategory) CategorySetting {
	switch category {
	case CategoryScan:
		return s.Scans
	case CategoryDiscovery:
		return s.Discovery
	case CategoryCompetitorContent:
		return s.CompetitorContent
	case CategoryNetworkExpansion:
		return s.NetworkExpansion
	case CategoryCitationVerification:
		return s.CitationVerification
	default:
		return CategorySetting{Enabled: true}
	}
}

// Validate validates all cadence expressions
func (s *AutomationSettings) Validate() error {
	if s.TenantID == "" {
		return fmt.Errorf("settings tenant ID is required")
	}
	for _, cs := range []struct {
		name string
		c    Cadence
	}{
		{"scans", s.Scans.Cadence},
		{"discovery", s.Discovery.Cadence},
		{"competitor_content", s.CompetitorContent.Cadence},
		{"network_expansion", s.NetworkExpansion.Cadence},
		{"citation_verification", s.CitationVerification.Cadence},
	} {
		if err := cs.c.Validate(); err != nil {
			return fmt.Errorf("%s: %w", cs.name, err)
		}
	}
	return nil
}
