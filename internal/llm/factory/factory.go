// internal/llm/factory/factory.go
package factory

import (
	"fmt"

	"github.com/newthinker/optlab/internal/config"
	"github.com/newthinker/optlab/internal/core"
	"github.com/newthinker/optlab/internal/llm"
	"github.com/newthinker/optlab/internal/llm/claude"
	"github.com/newthinker/optlab/internal/llm/ollama"
	"github.com/newthinker/optlab/internal/llm/openai"
)

// New creates an LLM provider based on configuration. An empty provider
// returns core.ErrLLMUnavailable.
func New(cfg config.LLMConfig) (llm.Provider, error) {
	switch cfg.Provider {
	case "":
		return nil, core.ErrLLMUnavailable
	case "claude":
		return claude.New(claude.Config{APIKey: cfg.Claude.APIKey, Model: cfg.Claude.Model})
	case "openai":
		return openai.New(openai.Config{APIKey: cfg.OpenAI.APIKey, Model: cfg.OpenAI.Model, BaseURL: cfg.OpenAI.BaseURL})
	case "ollama":
		return ollama.New(ollama.Config{Endpoint: cfg.Ollama.Endpoint, Model: cfg.Ollama.Model, Timeout: cfg.Timeout})
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.Provider)
	}
}
