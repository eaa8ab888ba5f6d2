package prompts

import "golang.org/x/mod/semver"

// PromptVersion represents a version identifier for prompts.
type PromptVersion string

const (
	// PromptV1 is the first version of prompts.
	PromptV1 PromptVersion = "1.0.0"
)

// Prompt represents a versioned prompt template with metadata.
type Prompt struct {
	ID          string        // e.g. "skill.researcher", "phase.research"
	Version     PromptVersion // Version of this prompt
	Content     string        // Template text, may contain {{vars}}
	Description string        // Human-readable description
	Deprecated  bool          // True if this version is deprecated
}

// Render substitutes vars into the prompt content.
func (p *Prompt) Render(vars map[string]string) string {
	b := NewBuilder(p.Content)
	for k, v := range vars {
		b.SetVariable(k, v)
	}
	out, _ := b.Build()
	return out
}

// Less reports whether v is an older version than o, by semantic
// version order, so "10.0.0" is newer than "9.0.0".
func (v PromptVersion) Less(o PromptVersion) bool {
	return semver.Compare("v"+string(v), "v"+string(o)) < 0
}
