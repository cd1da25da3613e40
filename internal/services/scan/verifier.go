package scan

import (
	"context"
	"hash/fnv"

	"github.com/ternarybob/arbor"

	"github.com/stephennewman/contextmemo/internal/interfaces"
	"github.com/stephennewman/contextmemo/internal/models"
)

// OfflineVerifier simulates post-publish citation checks. Deterministic per
// memo so re-verification is stable.
type OfflineVerifier struct {
	logger arbor.ILogger
}

// NewOfflineVerifier creates an offline citation verifier
func NewOfflineVerifier(logger arbor.ILogger) *OfflineVerifier {
	return &OfflineVerifier{logger: logger}
}

var _ interfaces.CitationVerifier = (*OfflineVerifier)(nil)

func (v *OfflineVerifier) VerifyCitation(ctx context.Context, tenant *models.Tenant, memo *models.Memo) (*interfaces.CitationCheck, error) {
	h := fnv.New32a()
	h.Write([]byte(memo.ID))
	cited := h.Sum32()%3 == 0 // Roughly a third of published memos earn a citation

	check := &interfaces.CitationCheck{Cited: cited}
	if cited {
		check.Evidence = "memo surfaced in simulated answer for " + memo.Title
	}

	v.logger.Debug().
		Str("tenant_id", tenant.ID).
		Str("memo_id", memo.ID).
		Bool("cited", cited).
		Msg("Citation check complete")

	return check, nil
}
