package prompts

import (
	"fmt"
	"strings"

	units "github.com/docker/go-units"
)

// Builder composes prompts from fragments and variables.
type Builder struct {
	fragments []string
	variables map[string]string
}

// NewBuilder starts a builder with an optional base fragment.
func NewBuilder(base string) *Builder {
	b := &Builder{variables: make(map[string]string)}
	if base != "" {
		b.fragments = append(b.fragments, base)
	}
	return b
}

// NewPromptBuilder creates a builder based on a registered prompt.
func NewPromptBuilder(registry *Registry, id string) (*Builder, error) {
	base, err := registry.GetLatest(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get base prompt: %w", err)
	}
	return NewBuilder(base.Content), nil
}

// AddFragment appends a fragment to the prompt. Empty fragments are skipped.
func (b *Builder) AddFragment(text string) *Builder {
	if strings.TrimSpace(text) != "" {
		b.fragments = append(b.fragments, text)
	}
	return b
}

// AddSection appends a fragment wrapped in a named tag.
func (b *Builder) AddSection(tag, body string) *Builder {
	if strings.TrimSpace(body) == "" {
		return b
	}
	return b.AddFragment(fmt.Sprintf("<%s>\n%s\n</%s>", tag, strings.TrimSpace(body), tag))
}

// SetVariable sets a variable for template substitution.
func (b *Builder) SetVariable(key, value string) *Builder {
	b.variables[key] = value
	return b
}

// Build constructs the final prompt string.
func (b *Builder) Build() (string, error) {
	result := strings.Join(b.fragments, "\n\n")

	// Simple {{key}} substitution
	for key, value := range b.variables {
		placeholder := fmt.Sprintf("{{%s}}", key)
		result = strings.ReplaceAll(result, placeholder, value)
	}

	return result, nil
}

// Condense replaces the body of each named section in prompt with its
// size, keeping the surrounding text. Sections are matched the way
// AddSection writes them.
func Condense(prompt string, tags ...string) string {
	for _, tag := range tags {
		open, closing := "<"+tag+">\n", "\n</"+tag+">"
		var b strings.Builder
		rest := prompt
		for {
			i := strings.Index(rest, open)
			if i < 0 {
				break
			}
			j := strings.Index(rest[i+len(open):], closing)
			if j < 0 {
				break
			}
			b.WriteString(rest[:i])
			fmt.Fprintf(&b, "<%s>[%s omitted]</%s>", tag, units.HumanSize(float64(j)), tag)
			rest = rest[i+len(open)+j+len(closing):]
		}
		b.WriteString(rest)
		prompt = b.String()
	}
	return prompt
}
