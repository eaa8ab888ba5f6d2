package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Avacaato/loop-orchestration/internal/config"
	"github.com/Avacaato/loop-orchestration/internal/llm"
)

// Health is the result of probing the configured endpoint.
type Health struct {
	Provider       string
	Endpoint       string
	Model          string
	Reachable      bool
	ModelAvailable bool
	Models         []string
	Message        string
}

// OK reports whether the loop can run against this endpoint.
func (h Health) OK() bool {
	return h.Reachable && h.ModelAvailable
}

type modelLister interface {
	ListModels(ctx context.Context) ([]string, error)
	Endpoint() string
}

// Check probes the configured provider. It never returns an error; the
// problem is described in Health.Message.
func Check(ctx context.Context, cfg *config.Config) Health {
	h := Health{Provider: cfg.Provider, Model: cfg.Model}

	if cfg.Provider == Anthropic {
		h.Endpoint = anthropicEndpoint
		if cfg.APIKey == "" {
			h.Message = "no api_key configured for anthropic"
			return h
		}
		// The messages API has no cheap probe; trust the key until the
		// first request.
		h.Reachable, h.ModelAvailable = true, true
		h.Message = "api key configured"
		return h
	}

	base, err := NewBase(cfg)
	if err != nil {
		h.Message = err.Error()
		return h
	}
	lister, ok := base.(modelLister)
	if !ok {
		h.Message = fmt.Sprintf("provider %s does not support health checks", cfg.Provider)
		return h
	}
	return probe(ctx, lister, h)
}

func probe(ctx context.Context, lister modelLister, h Health) Health {
	h.Endpoint = lister.Endpoint()

	models, err := lister.ListModels(ctx)
	if err != nil {
		var te *llm.TransportError
		if h.Provider == Ollama && errors.As(err, &te) && te.Kind == llm.KindUnreachable {
			h.Message = fmt.Sprintf("ollama is not running at %s, start it with: ollama serve", h.Endpoint)
		} else {
			h.Message = fmt.Sprintf("cannot list models: %v", err)
		}
		return h
	}

	h.Reachable = true
	h.Models = models
	h.ModelAvailable = HasModel(models, h.Model)
	switch {
	case h.ModelAvailable:
		h.Message = fmt.Sprintf("model %s is available", h.Model)
	case h.Provider == Ollama:
		h.Message = fmt.Sprintf("model %s is missing, run: ollama pull %s", h.Model, h.Model)
	default:
		h.Message = fmt.Sprintf("model %s is not served by %s", h.Model, h.Endpoint)
	}
	return h
}

// HasModel matches model against the served ids exactly or by tag, so
// "llama3.2" matches "llama3.2:latest".
func HasModel(models []string, model string) bool {
	for _, m := range models {
		if m == model || strings.HasPrefix(m, model+":") {
			return true
		}
	}
	return false
}
