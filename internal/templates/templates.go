// Package templates provides embedded system prompt templates with user
// override support. Prompts are loaded with resolution order:
// 1. User override: promptsDir/{name}.toml
// 2. Embedded default: internal/templates/{name}.toml
package templates

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed *.toml
var fs embed.FS

// Prompt template names
const (
	PromptAnalyst = "analyst"
	PromptWriter  = "writer"
)

// Prompt is a loaded system prompt template
type Prompt struct {
	System string `toml:"system"` // System prompt sent with every completion
}

// GetPrompt loads a prompt template by name with resolution order:
// 1. User override: promptsDir/{name}.toml
// 2. Embedded default: internal/templates/{name}.toml
func GetPrompt(name string, promptsDir string) (*Prompt, error) {
	// Try user override first
	if promptsDir != "" {
		userPath := filepath.Join(promptsDir, name+".toml")
		if data, err := os.ReadFile(userPath); err == nil {
			return parsePrompt(data)
		}
	}

	// Fall back to embedded default
	data, err := fs.ReadFile(name + ".toml")
	if err != nil {
		return nil, fmt.Errorf("prompt template '%s' not found (checked user override and embedded)", name)
	}
	return parsePrompt(data)
}

// ListEmbeddedPrompts returns names of all embedded prompt templates
func ListEmbeddedPrompts() ([]string, error) {
	entries, err := fs.ReadDir(".")
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".toml") {
			names = append(names, strings.TrimSuffix(entry.Name(), ".toml"))
		}
	}
	return names, nil
}

func parsePrompt(data []byte) (*Prompt, error) {
	var p Prompt
	if err := toml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse prompt template: %w", err)
	}
	if strings.TrimSpace(p.System) == "" {
		return nil, fmt.Errorf("prompt template has an empty system prompt")
	}
	return &p, nil
}
