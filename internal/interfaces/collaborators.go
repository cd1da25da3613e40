package interfaces

import (
	"context"

	"github.com/stephennewman/contextmemo/internal/models"
)

// ContextExtraction is the structured result of a brand context pass
type ContextExtraction struct {
	Summary   string   `json:"summary"`
	Offerings []string `json:"offerings"`
	Audience  string   `json:"audience"`
}

// CompetitorCandidate is a discovered competitor before persistence
type CompetitorCandidate struct {
	Name   string `json:"name"`
	Domain string `json:"domain"`
	Reason string `json:"reason"`
}

// Generator produces analysis and content from a language model
type Generator interface {
	// ExtractContext summarizes a tenant's brand from its domain
	ExtractContext(ctx context.Context, tenant *models.Tenant) (*ContextExtraction, error)

	// DiscoverCompetitors proposes competitors given the brand context
	DiscoverCompetitors(ctx context.Context, tenant *models.Tenant, brandContext *models.BrandContext) ([]*CompetitorCandidate, error)

	// GenerateQueries proposes prompt queries a buyer would ask
	GenerateQueries(ctx context.Context, tenant *models.Tenant, brandContext *models.BrandContext, competitors []*models.Competitor) ([]string, error)

	// GenerateMemo drafts content addressing a visibility gap
	GenerateMemo(ctx context.Context, tenant *models.Tenant, brandContext *models.BrandContext, gap *models.ScanObservation) (title, body string, err error)
}

// ScanResult is one query's outcome from a scan provider
type ScanResult struct {
	Query       string   `json:"query"`
	Response    string   `json:"response"`
	Mentioned   bool     `json:"mentioned"`
	Competitors []string `json:"competitors"`
}

// ScanProvider runs visibility scans against answer engines
type ScanProvider interface {
	Scan(ctx context.Context, tenant *models.Tenant, kind models.ScanKind, queries []*models.PromptQuery) ([]*ScanResult, error)
}

// Publisher pushes approved memos to the tenant's site
type Publisher interface {
	Publish(ctx context.Context, tenant *models.Tenant, memo *models.Memo) (url string, err error)
}

// CitationCheck is the outcome of a post-publish verification
type CitationCheck struct {
	Cited    bool   `json:"cited"`
	Evidence string `json:"evidence"`
}

// CitationVerifier checks whether published content earned citations
type CitationVerifier interface {
	VerifyCitation(ctx context.Context, tenant *models.Tenant, memo *models.Memo) (*CitationCheck, error)
}

// Notifier records tenant-visible alerts
type Notifier interface {
	Notify(ctx context.Context, notification *models.Notification) error
}
