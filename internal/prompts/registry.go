package prompts

import (
	"fmt"
	"sort"
	"sync"
)

// Registry manages versioned prompts. There is no process-wide instance;
// callers build one and pass it where it is needed.
type Registry struct {
	mu      sync.RWMutex
	prompts map[string]map[PromptVersion]*Prompt // ID -> Version -> Prompt
}

// NewRegistry creates an empty prompt registry.
func NewRegistry() *Registry {
	return &Registry{
		prompts: make(map[string]map[PromptVersion]*Prompt),
	}
}

// Builtin returns a registry holding every built-in skill and phase prompt.
func Builtin() *Registry {
	r := NewRegistry()
	for _, p := range skillPrompts {
		r.Register(p)
	}
	for _, p := range phasePrompts {
		r.Register(p)
	}
	return r
}

// Register registers a prompt in the registry.
func (r *Registry) Register(p *Prompt) {
	if p == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.prompts[p.ID] == nil {
		r.prompts[p.ID] = make(map[PromptVersion]*Prompt)
	}
	r.prompts[p.ID][p.Version] = p
}

// Get retrieves a specific version of a prompt.
func (r *Registry) Get(id string, version PromptVersion) (*Prompt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	versions, ok := r.prompts[id]
	if !ok {
		return nil, fmt.Errorf("prompt not found: %s", id)
	}

	prompt, ok := versions[version]
	if !ok {
		return nil, fmt.Errorf("prompt %s version %s not found", id, version)
	}

	return prompt, nil
}

// GetLatest returns the highest non-deprecated version of a prompt, or
// the highest version when every version is deprecated.
func (r *Registry) GetLatest(id string) (*Prompt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	versions := r.prompts[id]
	if len(versions) == 0 {
		return nil, fmt.Errorf("prompt not found: %s", id)
	}

	var best *Prompt
	for _, p := range versions {
		switch {
		case best == nil:
			best = p
		case best.Deprecated != p.Deprecated:
			if best.Deprecated {
				best = p
			}
		case best.Version.Less(p.Version):
			best = p
		}
	}
	return best, nil
}

// Content returns the latest content for id, or an empty string.
func (r *Registry) Content(id string) string {
	p, err := r.GetLatest(id)
	if err != nil {
		return ""
	}
	return p.Content
}

// List returns all prompt IDs in the registry, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.prompts))
	for id := range r.prompts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
