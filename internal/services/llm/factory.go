package llm

import (
	"github.com/ternarybob/arbor"

	"github.com/stephennewman/contextmemo/internal/common"
	"github.com/stephennewman/contextmemo/internal/interfaces"
)

// NewService creates the appropriate generator for the configuration: the
// Claude-backed generator when an API key is present, the deterministic
// offline generator otherwise.
func NewService(config *common.Config, logger arbor.ILogger) (interfaces.Generator, error) {
	if config.Claude.APIKey == "" {
		logger.Warn().Msg("No Anthropic API key configured, using offline generator")
		return NewOfflineGenerator(logger), nil
	}

	claude, err := NewClaudeService(&config.Claude, logger)
	if err != nil {
		return nil, err
	}

	generator, err := NewGenerator(claude, logger, config.Claude.PromptsDir)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("model", config.Claude.Model).
		Msg("Claude generator initialized")

	return generator, nil
}
