package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/stephennewman/contextmemo/internal/interfaces"
	"github.com/stephennewman/contextmemo/internal/models"
)

// OfflineGenerator produces deterministic placeholder content without a
// network call. Used when no API key is configured, and in development.
type OfflineGenerator struct {
	logger arbor.ILogger
}

// NewOfflineGenerator creates an offline generator
func NewOfflineGenerator(logger arbor.ILogger) *OfflineGenerator {
	return &OfflineGenerator{logger: logger}
}

var _ interfaces.Generator = (*OfflineGenerator)(nil)

func (g *OfflineGenerator) ExtractContext(ctx context.Context, tenant *models.Tenant) (*interfaces.ContextExtraction, error) {
	return &interfaces.ContextExtraction{
		Summary:   fmt.Sprintf("%s operates %s and serves its primary market segment.", tenant.Name, tenant.Domain),
		Offerings: []string{tenant.Name + " platform"},
		Audience:  "buyers evaluating " + tenant.Name,
	}, nil
}

func (g *OfflineGenerator) DiscoverCompetitors(ctx context.Context, tenant *models.Tenant, brandContext *models.BrandContext) ([]*interfaces.CompetitorCandidate, error) {
	slug := strings.ToLower(strings.ReplaceAll(tenant.Name, " ", ""))
	return []*interfaces.CompetitorCandidate{
		{Name: tenant.Name + " Alternative A", Domain: slug + "-alt-a.example.com", Reason: "same category"},
		{Name: tenant.Name + " Alternative B", Domain: slug + "-alt-b.example.com", Reason: "same category"},
	}, nil
}

func (g *OfflineGenerator) GenerateQueries(ctx context.Context, tenant *models.Tenant, brandContext *models.BrandContext, competitors []*models.Competitor) ([]string, error) {
	return []string{
		fmt.Sprintf("best alternatives to %s", tenant.Name),
		fmt.Sprintf("what does %s do", tenant.Name),
		fmt.Sprintf("top tools like %s", tenant.Name),
	}, nil
}

func (g *OfflineGenerator) GenerateMemo(ctx context.Context, tenant *models.Tenant, brandContext *models.BrandContext, gap *models.ScanObservation) (string, string, error) {
	title := "Answering: " + gap.QueryText
	body := fmt.Sprintf("## %s\n\nAn overview of the options, including %s.\n", gap.QueryText, tenant.Name)
	return title, body, nil
}
