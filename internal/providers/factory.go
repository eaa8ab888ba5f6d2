// Package providers builds llm.Generator implementations for the
// supported model endpoints.
package providers

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/Avacaato/loop-orchestration/internal/config"
	"github.com/Avacaato/loop-orchestration/internal/llm"
)

// Provider names accepted in the configuration.
const (
	Ollama    = "ollama"
	OpenAI    = "openai"
	Anthropic = "anthropic"
)

// NewBase creates the generator for cfg without retries.
func NewBase(cfg *config.Config) (llm.Generator, error) {
	switch cfg.Provider {
	case Ollama:
		return NewOllama(cfg.Model, cfg.BaseURL, cfg.RequestTimeout), nil

	case OpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("provider %s requires api_key (or LOOP_API_KEY)", cfg.Provider)
		}
		return NewOpenAI(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.RequestTimeout), nil

	case Anthropic:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("provider %s requires api_key (or LOOP_API_KEY)", cfg.Provider)
		}
		return NewAnthropic(cfg.APIKey, cfg.Model, cfg.RequestTimeout), nil

	default:
		return nil, fmt.Errorf("unsupported provider %q", cfg.Provider)
	}
}

// New creates the generator for cfg wrapped in the configured retry
// policy. Retries are logged at warn level.
func New(cfg *config.Config, logger *slog.Logger) (llm.Generator, error) {
	base, err := NewBase(cfg)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := llm.NewRetrying(base, cfg.Retry.Policy())
	r.OnRetry = func(attempt int, delay time.Duration, err error) {
		logger.Warn("model request failed, retrying",
			"provider", cfg.Provider,
			"model", cfg.Model,
			"attempt", attempt,
			"delay", delay,
			"error", err)
	}
	return r, nil
}
