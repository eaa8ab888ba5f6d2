// Package skills holds the role-specific prompt builders the loop invokes
// each iteration, and the dispatcher that binds them to phases.
package skills

import (
	"context"
	"fmt"
	"strings"

	"github.com/Avacaato/loop-orchestration/internal/phase"
	"github.com/Avacaato/loop-orchestration/internal/prompts"
	"github.com/Avacaato/loop-orchestration/internal/tools"
)

// ContinuePrompt is sent when a session has no pending input.
const ContinuePrompt = "Continue with the current phase."

// Prompt sections rebuilt on every call. History keeps only their size.
const (
	sectionPriorOutputs = "prior_outputs"
	sectionWorkspace    = "workspace"
	sectionVerification = "verification"
)

var contextSections = []string{sectionPriorOutputs, sectionWorkspace, sectionVerification}

// Skill names.
const (
	PRDInterviewer = "prd_interviewer"
	Researcher     = "researcher"
	Implementer    = "implementer"
	Refactorer     = "refactorer"
	Reviewer       = "reviewer"
)

// Output is the recorded output of an earlier phase.
type Output struct {
	Phase   string
	Content string
}

// Context is everything a skill may draw on when building a prompt.
type Context struct {
	Task          string
	Phase         string
	Input         string
	PriorOutputs  []Output
	Tools         *tools.Registry // nil disables tool context
	VerifyCommand string
}

// Skill builds the prompt for one role.
type Skill interface {
	Name() string
	Description() string
	SystemPrompt() string
	BuildPrompt(ctx context.Context, c Context) (string, error)
	DeclaredTools() []string
}

type base struct {
	name        string
	description string
	system      string
	tools       []string
}

func newBase(p *prompts.Registry, name, description string, toolNames ...string) base {
	return base{
		name:        name,
		description: description,
		system:      p.Content(prompts.SkillID(name)),
		tools:       toolNames,
	}
}

func (b base) Name() string            { return b.name }
func (b base) Description() string     { return b.description }
func (b base) SystemPrompt() string    { return b.system }
func (b base) DeclaredTools() []string { return append([]string(nil), b.tools...) }

// builder starts a prompt with the operator input and the outputs of
// earlier phases.
func (b base) builder(c Context) *prompts.Builder {
	input := c.Input
	if strings.TrimSpace(input) == "" {
		input = ContinuePrompt
	}
	pb := prompts.NewBuilder(input)

	var prior strings.Builder
	for _, o := range c.PriorOutputs {
		fmt.Fprintf(&prior, "## %s\n%s\n\n", strings.ToUpper(o.Phase), strings.TrimSpace(o.Content))
	}
	return pb.AddSection(sectionPriorOutputs, prior.String())
}

// invokeTool runs a declared tool and returns its output, or the error
// text when it failed. Undeclared tools are refused.
func (b base) invokeTool(ctx context.Context, c Context, name string, args tools.Args) (string, bool) {
	if c.Tools == nil || !b.declares(name) {
		return "", false
	}
	res := c.Tools.Invoke(ctx, name, args)
	if !res.Success {
		out := strings.TrimSpace(res.Output + "\n" + res.Error)
		return out, false
	}
	return res.Output, true
}

func (b base) declares(name string) bool {
	for _, t := range b.tools {
		if t == name {
			return true
		}
	}
	return false
}

// DefaultBindings returns the phase to skill table of the development
// pipeline.
func DefaultBindings(p *prompts.Registry) map[string]Skill {
	interviewer := NewPRDInterviewer(p)
	researcher := NewResearcher(p)
	return map[string]Skill{
		phase.PRD:            interviewer,
		phase.Tickets:        interviewer,
		phase.Research:       researcher,
		phase.Planning:       researcher,
		phase.Implementation: NewImplementer(p),
		phase.Refactoring:    NewRefactorer(p),
	}
}
