package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/meguminnnnnnnnn/go-openai"

	"github.com/Avacaato/loop-orchestration/internal/llm"
)

// DefaultOllamaURL is where a local Ollama server listens.
const DefaultOllamaURL = "http://localhost:11434"

// OpenAIGenerator talks to any OpenAI-compatible chat completions API,
// including Ollama's /v1 endpoint.
type OpenAIGenerator struct {
	client   *openai.Client
	model    string
	endpoint string
	timeout  time.Duration
}

// NewOpenAI creates a generator for an OpenAI-compatible endpoint. An
// empty baseURL uses the OpenAI default.
func NewOpenAI(apiKey, model, baseURL string, timeout time.Duration) *OpenAIGenerator {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAIGenerator{
		client:   openai.NewClientWithConfig(config),
		model:    model,
		endpoint: config.BaseURL,
		timeout:  timeout,
	}
}

// NewOllama creates a generator for an Ollama server at baseURL.
func NewOllama(model, baseURL string, timeout time.Duration) *OpenAIGenerator {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	// Ollama ignores the key but the client requires one.
	return NewOpenAI("ollama", model, ollamaAPIBase(baseURL), timeout)
}

func ollamaAPIBase(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	if strings.HasSuffix(base, "/v1") {
		return base
	}
	return base + "/v1"
}

// Endpoint returns the API base URL.
func (g *OpenAIGenerator) Endpoint() string {
	return g.endpoint
}

// Generate implements llm.Generator.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt, systemPrompt string, history []llm.Message) (string, error) {
	msgs := llm.BuildMessages(prompt, systemPrompt, history)
	req := openai.ChatCompletionRequest{
		Model:    g.model,
		Messages: make([]openai.ChatCompletionMessage, 0, len(msgs)),
	}
	for _, m := range msgs {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    openAIRole(m.Role),
			Content: m.Content,
		})
	}

	cctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.CreateChatCompletion(cctx, req)
	if err != nil {
		return "", wrapError(ctx, g.endpoint, g.model, err)
	}
	if len(resp.Choices) == 0 {
		return "", &llm.TransportError{
			Kind:     llm.KindRejected,
			Endpoint: g.endpoint,
			Model:    g.model,
			Err:      fmt.Errorf("response contained no choices"),
		}
	}
	return resp.Choices[0].Message.Content, nil
}

// ListModels returns the model ids the endpoint serves.
func (g *OpenAIGenerator) ListModels(ctx context.Context) ([]string, error) {
	cctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	list, err := g.client.ListModels(cctx)
	if err != nil {
		return nil, wrapError(ctx, g.endpoint, g.model, err)
	}
	ids := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

func openAIRole(r llm.Role) string {
	switch r {
	case llm.RoleSystem:
		return openai.ChatMessageRoleSystem
	case llm.RoleAssistant:
		return openai.ChatMessageRoleAssistant
	default:
		return openai.ChatMessageRoleUser
	}
}
