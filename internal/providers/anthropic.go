package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/Avacaato/loop-orchestration/internal/llm"
)

const (
	anthropicEndpoint  = "https://api.anthropic.com"
	anthropicMaxTokens = 4096
)

// AnthropicGenerator talks to the Anthropic Messages API.
type AnthropicGenerator struct {
	client  *anthropic.Client
	model   string
	timeout time.Duration
}

// NewAnthropic creates a generator for the given model.
func NewAnthropic(apiKey, model string, timeout time.Duration) *AnthropicGenerator {
	return &AnthropicGenerator{
		client:  anthropic.NewClient(apiKey),
		model:   model,
		timeout: timeout,
	}
}

// Generate implements llm.Generator.
func (g *AnthropicGenerator) Generate(ctx context.Context, prompt, systemPrompt string, history []llm.Message) (string, error) {
	req := anthropic.MessagesRequest{
		Model:     anthropic.Model(g.model),
		Messages:  anthropicMessages(prompt, history),
		MaxTokens: anthropicMaxTokens,
	}
	if systemPrompt != "" {
		req.MultiSystem = []anthropic.MessageSystemPart{{Type: "text", Text: systemPrompt}}
	}

	cctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.CreateMessages(cctx, req)
	if err != nil {
		return "", wrapError(ctx, anthropicEndpoint, g.model, err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == anthropic.MessagesContentTypeText && block.Text != nil {
			text.WriteString(*block.Text)
		}
	}
	if text.Len() == 0 {
		return "", &llm.TransportError{
			Kind:     llm.KindRejected,
			Endpoint: anthropicEndpoint,
			Model:    g.model,
			Err:      fmt.Errorf("response contained no text (stop reason %q)", resp.StopReason),
		}
	}
	return text.String(), nil
}

// anthropicMessages converts history and the new prompt. System messages
// in history are dropped since the API takes the system prompt separately,
// and consecutive messages with the same role are merged.
func anthropicMessages(prompt string, history []llm.Message) []anthropic.Message {
	type turn struct {
		role llm.Role
		text string
	}
	var turns []turn
	add := func(role llm.Role, text string) {
		if n := len(turns); n > 0 && turns[n-1].role == role {
			turns[n-1].text += "\n\n" + text
			return
		}
		turns = append(turns, turn{role: role, text: text})
	}

	for _, m := range history {
		if m.Role == llm.RoleUser || m.Role == llm.RoleAssistant {
			add(m.Role, m.Content)
		}
	}
	if prompt != "" {
		add(llm.RoleUser, prompt)
	}

	msgs := make([]anthropic.Message, 0, len(turns))
	for _, t := range turns {
		msg := anthropic.Message{
			Role:    anthropic.RoleUser,
			Content: []anthropic.MessageContent{anthropic.NewTextMessageContent(t.text)},
		}
		if t.role == llm.RoleAssistant {
			msg.Role = anthropic.RoleAssistant
		}
		msgs = append(msgs, msg)
	}
	return msgs
}
