package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/stephennewman/contextmemo/internal/interfaces"
	"github.com/stephennewman/contextmemo/internal/models"
	"github.com/stephennewman/contextmemo/internal/templates"
)

// Generator implements content generation on Claude. Every method prompts
// for strict JSON and parses the response; a malformed response is an error
// the pipeline retries.
type Generator struct {
	claude        *ClaudeService
	logger        arbor.ILogger
	systemAnalyst string
	systemWriter  string
}

// NewGenerator creates a Claude-backed generator. System prompts come from
// the templates package; promptsDir overrides the embedded defaults.
func NewGenerator(claude *ClaudeService, logger arbor.ILogger, promptsDir string) (*Generator, error) {
	analyst, err := templates.GetPrompt(templates.PromptAnalyst, promptsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load analyst prompt: %w", err)
	}
	writer, err := templates.GetPrompt(templates.PromptWriter, promptsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load writer prompt: %w", err)
	}

	return &Generator{
		claude:        claude,
		logger:        logger,
		systemAnalyst: analyst.System,
		systemWriter:  writer.System,
	}, nil
}

var _ interfaces.Generator = (*Generator)(nil)

func (g *Generator) ExtractContext(ctx context.Context, tenant *models.Tenant) (*interfaces.ContextExtraction, error) {
	prompt := fmt.Sprintf(`Describe the brand %q (domain: %s).
Return JSON: {"summary": "two sentence description of what the company does",
"offerings": ["main products or services"],
"audience": "primary buyer persona"}`, tenant.Name, tenant.Domain)

	response, err := g.claude.Complete(ctx, g.systemAnalyst, prompt)
	if err != nil {
		return nil, err
	}

	var extraction interfaces.ContextExtraction
	if err := parseJSON(response, &extraction); err != nil {
		return nil, fmt.Errorf("unparseable context extraction: %w", err)
	}
	if extraction.Summary == "" {
		return nil, fmt.Errorf("context extraction returned no summary")
	}
	return &extraction, nil
}

func (g *Generator) DiscoverCompetitors(ctx context.Context, tenant *models.Tenant, brandContext *models.BrandContext) ([]*interfaces.CompetitorCandidate, error) {
	prompt := fmt.Sprintf(`Brand: %s (%s)
Context: %s
List up to 8 direct competitors.
Return JSON: [{"name": "...", "domain": "...", "reason": "one line"}]`,
		tenant.Name, tenant.Domain, brandContext.Summary)

	response, err := g.claude.Complete(ctx, g.systemAnalyst, prompt)
	if err != nil {
		return nil, err
	}

	var candidates []*interfaces.CompetitorCandidate
	if err := parseJSON(response, &candidates); err != nil {
		return nil, fmt.Errorf("unparseable competitor list: %w", err)
	}
	return candidates, nil
}

func (g *Generator) GenerateQueries(ctx context.Context, tenant *models.Tenant, brandContext *models.BrandContext, competitors []*models.Competitor) ([]string, error) {
	names := make([]string, 0, len(competitors))
	for _, competitor := range competitors {
		names = append(names, competitor.Name)
	}

	prompt := fmt.Sprintf(`Brand: %s
Context: %s
Known competitors: %s
Write up to 15 questions a prospective buyer would ask an AI assistant when
researching this space. Plain buyer language, no brand bias.
Return JSON: ["question", ...]`,
		tenant.Name, brandContext.Summary, strings.Join(names, ", "))

	response, err := g.claude.Complete(ctx, g.systemAnalyst, prompt)
	if err != nil {
		return nil, err
	}

	var queries []string
	if err := parseJSON(response, &queries); err != nil {
		return nil, fmt.Errorf("unparseable query list: %w", err)
	}
	return queries, nil
}

func (g *Generator) GenerateMemo(ctx context.Context, tenant *models.Tenant, brandContext *models.BrandContext, gap *models.ScanObservation) (string, string, error) {
	summary := ""
	if brandContext != nil {
		summary = brandContext.Summary
	}

	prompt := fmt.Sprintf(`Brand: %s (%s)
Context: %s
The question %q is currently answered by AI assistants without mentioning
this brand; competitors mentioned instead: %s.
Write an article that authoritatively answers the question and naturally
establishes the brand as a credible option.
Return JSON: {"title": "...", "body": "markdown article"}`,
		tenant.Name, tenant.Domain, summary, gap.QueryText, strings.Join(gap.Competitors, ", "))

	response, err := g.claude.Complete(ctx, g.systemWriter, prompt)
	if err != nil {
		return "", "", err
	}

	var memo struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	}
	if err := parseJSON(response, &memo); err != nil {
		return "", "", fmt.Errorf("unparseable memo: %w", err)
	}
	if memo.Title == "" || memo.Body == "" {
		return "", "", fmt.Errorf("memo generation returned empty title or body")
	}
	return memo.Title, memo.Body, nil
}

// parseJSON unmarshals a model response, tolerating code fences the model
// adds despite instructions
func parseJSON(response string, out any) error {
	cleaned := strings.TrimSpace(response)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return json.Unmarshal([]byte(strings.TrimSpace(cleaned)), out)
}
