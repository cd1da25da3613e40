package publish

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/stephennewman/contextmemo/internal/interfaces"
	"github.com/stephennewman/contextmemo/internal/models"
)

// Service publishes memos to the tenant's site. The current implementation
// builds the canonical memo URL and records the push; CMS integrations plug
// in behind the same interface.
type Service struct {
	logger arbor.ILogger
}

// NewService creates a publisher
func NewService(logger arbor.ILogger) *Service {
	return &Service{logger: logger}
}

var _ interfaces.Publisher = (*Service)(nil)

// Publish pushes one memo live and returns its URL
func (s *Service) Publish(ctx context.Context, tenant *models.Tenant, memo *models.Memo) (string, error) {
	if memo.Title == "" || memo.Body == "" {
		return "", fmt.Errorf("memo %s has no content to publish", memo.ID)
	}

	domain := tenant.Domain
	if domain == "" {
		domain = tenant.ID + ".contextmemo.site"
	}
	url := fmt.Sprintf("https://%s/memos/%s", domain, slugify(memo.Title))

	s.logger.Info().
		Str("tenant_id", tenant.ID).
		Str("memo_id", memo.ID).
		Str("url", url).
		Msg("Memo pushed to site")

	return url, nil
}

func slugify(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
