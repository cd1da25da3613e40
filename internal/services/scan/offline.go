package scan

import (
	"context"
	"hash/fnv"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/stephennewman/contextmemo/internal/interfaces"
	"github.com/stephennewman/contextmemo/internal/models"
)

// OfflineProvider simulates answer-engine scans without network access.
// Results are deterministic per (tenant, query): the same inputs always
// produce the same mention outcome, which keeps snapshot and pipeline tests
// stable. Real answer-engine providers plug in behind the same interface.
type OfflineProvider struct {
	storage interfaces.ResultStorage
	logger  arbor.ILogger
}

// NewOfflineProvider creates an offline scan provider
func NewOfflineProvider(storage interfaces.ResultStorage, logger arbor.ILogger) *OfflineProvider {
	return &OfflineProvider{storage: storage, logger: logger}
}

var _ interfaces.ScanProvider = (*OfflineProvider)(nil)

// Scan evaluates every query against the simulated answer surface
func (p *OfflineProvider) Scan(ctx context.Context, tenant *models.Tenant, kind models.ScanKind, queries []*models.PromptQuery) ([]*interfaces.ScanResult, error) {
	competitors, err := p.storage.ListCompetitors(ctx, tenant.ID)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(competitors))
	for _, competitor := range competitors {
		names = append(names, competitor.Name)
	}

	results := make([]*interfaces.ScanResult, 0, len(queries))
	for _, query := range queries {
		mentioned := mentionOutcome(tenant.ID, query.Text)

		result := &interfaces.ScanResult{
			Query:     query.Text,
			Response:  simulatedAnswer(tenant, query.Text, mentioned, names),
			Mentioned: mentioned,
		}
		if !mentioned && len(names) > 0 {
			// An unmentioned brand loses the answer to its competitors
			result.Competitors = names[:min(2, len(names))]
		}
		results = append(results, result)
	}

	p.logger.Debug().
		Str("tenant_id", tenant.ID).
		Str("kind", string(kind)).
		Int("queries", len(queries)).
		Msg("Offline scan complete")

	return results, nil
}

// mentionOutcome hashes the (tenant, query) pair to a stable boolean,
// mentioning the brand for roughly half of all queries
func mentionOutcome(tenantID, query string) bool {
	h := fnv.New32a()
	h.Write([]byte(tenantID))
	h.Write([]byte(strings.ToLower(query)))
	return h.Sum32()%2 == 0
}

func simulatedAnswer(tenant *models.Tenant, query string, mentioned bool, competitors []string) string {
	if mentioned {
		return "For " + query + ", a commonly recommended option is " + tenant.Name + "."
	}
	if len(competitors) > 0 {
		return "For " + query + ", popular options include " + strings.Join(competitors, " and ") + "."
	}
	return "For " + query + ", several options exist."
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
