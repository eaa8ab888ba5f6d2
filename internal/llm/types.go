package llm

import (
	"context"
	"fmt"
)

// Role represents the role of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is the provider-agnostic message passed to a Generator.
type Message struct {
	Role    Role
	Content string
}

// Validate checks if the Message is valid.
func (m Message) Validate() error {
	switch m.Role {
	case RoleSystem, RoleUser, RoleAssistant:
	default:
		return fmt.Errorf("invalid message role: %s", m.Role)
	}
	return nil
}

// Generator is the single capability the loop needs from a model endpoint.
// Implementations return a *TransportError for endpoint failures.
type Generator interface {
	Generate(ctx context.Context, prompt, systemPrompt string, history []Message) (string, error)
}

// GeneratorFunc adapts a plain function to a Generator.
type GeneratorFunc func(ctx context.Context, prompt, systemPrompt string, history []Message) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt, systemPrompt string, history []Message) (string, error) {
	return f(ctx, prompt, systemPrompt, history)
}

// BuildMessages flattens a system prompt, prior history and the new prompt
// into the ordered message list most chat endpoints expect.
func BuildMessages(prompt, systemPrompt string, history []Message) []Message {
	msgs := make([]Message, 0, len(history)+2)
	if systemPrompt != "" {
		msgs = append(msgs, Message{Role: RoleSystem, Content: systemPrompt})
	}
	msgs = append(msgs, history...)
	if prompt != "" {
		msgs = append(msgs, Message{Role: RoleUser, Content: prompt})
	}
	return msgs
}
