package models

import "time"

// BrandContext is the extracted description of what a tenant's brand does.
// A refresh invalidates all derived competitor and query data downstream.
type BrandContext struct {
	TenantID    string    `json:"tenant_id" badgerhold:"key"`
	Summary     string    `json:"summary"`
	Offerings   []string  `json:"offerings,omitempty"`
	Audience    string    `json:"audience,omitempty"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

// Competitor is one discovered competitor for a tenant's brand
type Competitor struct {
	ID           string    `json:"id" badgerhold:"key"`
	TenantID     string    `json:"tenant_id" badgerhold:"index"`
	Name         string    `json:"name"`
	Domain       string    `json:"domain,omitempty"`
	DiscoveredAt time.Time `json:"discovered_at"`
}

// PromptQuery is one generated query the scanner asks AI surfaces about
type PromptQuery struct {
	ID          string    `json:"id" badgerhold:"key"`
	TenantID    string    `json:"tenant_id" badgerhold:"index"`
	Text        string    `json:"text"`
	GeneratedAt time.Time `json:"generated_at"`
}

// ScanObservation is one scan result: whether the brand was mentioned for a
// query, and which competitors were co-mentioned. Observations are the
// authoritative source for the scan category's last-run time and the input
// of the daily visibility snapshot.
type ScanObservation struct {
	ID          string    `json:"id" badgerhold:"key"`
	TenantID    string    `json:"tenant_id" badgerhold:"index"`
	QueryID     string    `json:"query_id"`
	QueryText   string    `json:"query_text"`
	Kind        ScanKind  `json:"kind" badgerhold:"index"`
	Mentioned   bool      `json:"mentioned"`
	Competitors []string  `json:"competitors,omitempty"`
	Gap         bool      `json:"gap"` // Content gap: brand absent where competitors appear
	ScannedAt   time.Time `json:"scanned_at"`
}

// MemoStatus is the lifecycle state of a generated memo
type MemoStatus string

// MemoStatus constants
const (
	MemoStatusDraft     MemoStatus = "draft"
	MemoStatusPublished MemoStatus = "published"
)

// Memo is one generated piece of gap-filling content
type Memo struct {
	ID          string     `json:"id" badgerhold:"key"`
	TenantID    string     `json:"tenant_id" badgerhold:"index"`
	QueryID     string     `json:"query_id"`
	Title       string     `json:"title"`
	Body        string     `json:"body"`
	Status      MemoStatus `json:"status" badgerhold:"index"`
	URL         string     `json:"url,omitempty"` // Set when the memo is pushed live
	CreatedAt   time.Time  `json:"created_at"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	VerifiedAt  *time.Time `json:"verified_at,omitempty"`
	Cited       bool       `json:"cited"` // Outcome of the last citation check
}
