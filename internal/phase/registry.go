// Package phase holds the workflow phase table and the state machine that
// moves a session through it.
package phase

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Avacaato/loop-orchestration/internal/prompts"
)

// Built-in phase names, in pipeline order.
const (
	PRD            = "prd"
	Tickets        = "tickets"
	Research       = "research"
	Planning       = "planning"
	Implementation = "implementation"
	Refactoring    = "refactoring"
)

// Definition is an immutable phase description.
type Definition struct {
	Name               string
	Description        string
	EntryPrompt        string // template, see prompts.Builder
	CompletionCriteria string
	// Artifact is a workspace-relative path the phase output is published
	// to when the phase completes. Empty means no artifact.
	Artifact string
}

// Registry is an ordered, read-only table of phases. The order defines the
// only automatic transition graph: each phase has exactly one successor
// and the last one is terminal.
type Registry struct {
	defs  []Definition
	index map[string]int
}

// NewRegistry validates defs and freezes them.
func NewRegistry(defs ...Definition) (*Registry, error) {
	if len(defs) == 0 {
		return nil, errors.New("phase registry needs at least one phase")
	}

	r := &Registry{
		defs:  make([]Definition, len(defs)),
		index: make(map[string]int, len(defs)),
	}
	for i, d := range defs {
		if strings.TrimSpace(d.Name) == "" {
			return nil, fmt.Errorf("phase %d has no name", i)
		}
		if _, dup := r.index[d.Name]; dup {
			return nil, fmt.Errorf("duplicate phase %q", d.Name)
		}
		r.index[d.Name] = i
		r.defs[i] = d
	}
	return r, nil
}

// Default builds the six-phase development pipeline using entry prompts
// from p.
func Default(p *prompts.Registry) (*Registry, error) {
	return NewRegistry(
		Definition{
			Name:               PRD,
			Description:        "Product requirements: define what to build",
			EntryPrompt:        p.Content(prompts.PhaseID(PRD)),
			CompletionCriteria: "PRD document generated",
			Artifact:           "docs/prd.md",
		},
		Definition{
			Name:               Tickets,
			Description:        "Break the PRD into actionable stories",
			EntryPrompt:        p.Content(prompts.PhaseID(Tickets)),
			CompletionCriteria: "User stories written and ordered",
			Artifact:           "docs/stories.md",
		},
		Definition{
			Name:               Research,
			Description:        "Research the codebase and gather context",
			EntryPrompt:        p.Content(prompts.PhaseID(Research)),
			CompletionCriteria: "Research findings documented",
		},
		Definition{
			Name:               Planning,
			Description:        "Plan the implementation approach",
			EntryPrompt:        p.Content(prompts.PhaseID(Planning)),
			CompletionCriteria: "Implementation plan written",
			Artifact:           "docs/plan.md",
		},
		Definition{
			Name:               Implementation,
			Description:        "Implement the planned changes",
			EntryPrompt:        p.Content(prompts.PhaseID(Implementation)),
			CompletionCriteria: "All stories implemented and tests passing",
		},
		Definition{
			Name:               Refactoring,
			Description:        "Refactor and improve code quality",
			EntryPrompt:        p.Content(prompts.PhaseID(Refactoring)),
			CompletionCriteria: "Code reviewed and refactored",
		},
	)
}

// Get looks up a phase by name.
func (r *Registry) Get(name string) (Definition, bool) {
	i, ok := r.index[name]
	if !ok {
		return Definition{}, false
	}
	return r.defs[i], true
}

// First returns the phase every new session starts in.
func (r *Registry) First() Definition {
	return r.defs[0]
}

// Next returns the successor of name. ok is false for the terminal phase
// and for unknown names.
func (r *Registry) Next(name string) (Definition, bool) {
	i, ok := r.index[name]
	if !ok || i == len(r.defs)-1 {
		return Definition{}, false
	}
	return r.defs[i+1], true
}

// IsTerminal reports whether name is the last phase.
func (r *Registry) IsTerminal(name string) bool {
	i, ok := r.index[name]
	return ok && i == len(r.defs)-1
}

// Names returns the phase names in order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.defs))
	for i, d := range r.defs {
		names[i] = d.Name
	}
	return names
}

// Position returns the 1-based index of name, or 0 if unknown.
func (r *Registry) Position(name string) int {
	i, ok := r.index[name]
	if !ok {
		return 0
	}
	return i + 1
}

// Len returns the number of phases.
func (r *Registry) Len() int {
	return len(r.defs)
}
