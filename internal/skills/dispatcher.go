package skills

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Avacaato/loop-orchestration/internal/llm"
	"github.com/Avacaato/loop-orchestration/internal/phase"
	"github.com/Avacaato/loop-orchestration/internal/prompts"
	"github.com/Avacaato/loop-orchestration/internal/session"
	"github.com/Avacaato/loop-orchestration/internal/tools"
)

// Metadata keys written by the dispatcher.
const (
	MetaReviewLatest    = "review.latest"
	MetaReviewIteration = "review.iteration"
	metaArtifactPrefix  = "artifact."

	reviewLabel = "review"
)

// ArtifactKey returns the metadata key holding a phase's artifact path.
func ArtifactKey(phaseName string) string {
	return metaArtifactPrefix + phaseName
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithTools gives skills access to the workspace tools.
func WithTools(reg *tools.Registry) Option {
	return func(d *Dispatcher) { d.tools = reg }
}

// WithVerifyCommand sets the command whose output the implementer and
// refactorer include in their prompts.
func WithVerifyCommand(cmd string) Option {
	return func(d *Dispatcher) { d.verifyCommand = cmd }
}

// WithRules appends project-specific instructions to every system prompt.
func WithRules(rules string) Option {
	return func(d *Dispatcher) { d.rules = strings.TrimSpace(rules) }
}

// Dispatcher selects the skill for a phase and runs it against the model.
type Dispatcher struct {
	phases        *phase.Manager
	gen           llm.Generator
	bindings      map[string]Skill
	reviewer      Skill
	tools         *tools.Registry
	verifyCommand string
	rules         string
	now           func() time.Time
}

// NewDispatcher checks that every registered phase has a skill bound.
func NewDispatcher(mgr *phase.Manager, gen llm.Generator, bindings map[string]Skill, reviewer Skill, opts ...Option) (*Dispatcher, error) {
	if gen == nil {
		return nil, fmt.Errorf("dispatcher requires a generator")
	}
	for _, name := range mgr.Registry().Names() {
		if bindings[name] == nil {
			return nil, fmt.Errorf("no skill bound to phase %q", name)
		}
	}
	d := &Dispatcher{
		phases:   mgr,
		gen:      gen,
		bindings: bindings,
		reviewer: reviewer,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Select returns the skill bound to a phase.
func (d *Dispatcher) Select(phaseName string) (Skill, error) {
	s, ok := d.bindings[phaseName]
	if !ok {
		return nil, fmt.Errorf("no skill bound to phase %q", phaseName)
	}
	return s, nil
}

// Review returns the review skill, or nil when none is configured.
func (d *Dispatcher) Review() Skill {
	return d.reviewer
}

// Invoke runs skill for the session's current phase and returns the
// model output. On any error the session is left exactly as it was.
//
// A phase skill sees the current phase's history and, on success, appends
// the exchange with its context sections condensed, records the phase
// output and clears the pending input.
// The reviewer runs without history and only writes review metadata.
func (d *Dispatcher) Invoke(ctx context.Context, skill Skill, sess *session.Session) (string, error) {
	def := d.phases.Current(sess)
	isReview := d.reviewer != nil && skill.Name() == d.reviewer.Name()

	prompt, err := skill.BuildPrompt(ctx, d.context(sess, def, isReview))
	if err != nil {
		return "", fmt.Errorf("failed to build %s prompt: %w", skill.Name(), err)
	}
	system := skill.SystemPrompt() + "\n\n" + d.phases.EntryPrompt(def, sess)
	if d.rules != "" {
		system += "\n\n<project_rules>\n" + d.rules + "\n</project_rules>"
	}

	var history []llm.Message
	if !isReview {
		for _, m := range sess.PhaseHistory(def.Name) {
			history = append(history, llm.Message{Role: m.Role, Content: m.Content})
		}
	}

	output, err := d.gen.Generate(ctx, prompt, system, history)
	if err != nil {
		return "", err
	}

	if isReview {
		sess.SetMeta(MetaReviewLatest, output)
		sess.SetMeta(MetaReviewIteration, strconv.Itoa(sess.Iteration))
		return output, nil
	}

	now := d.now()
	sess.Append(session.Message{
		Role: llm.RoleUser, Content: prompts.Condense(prompt, contextSections...),
		Phase: def.Name, Skill: skill.Name(), Iteration: sess.Iteration, Timestamp: now,
	})
	sess.Append(session.Message{
		Role: llm.RoleAssistant, Content: output,
		Phase: def.Name, Skill: skill.Name(), Iteration: sess.Iteration, Timestamp: now,
	})
	sess.SetOutput(def.Name, session.PhaseOutput{
		Skill:     skill.Name(),
		Content:   output,
		Iteration: sess.Iteration,
		UpdatedAt: now,
	})
	sess.PendingInput = ""
	return output, nil
}

// Publish writes the current phase's output to its artifact path, if the
// phase declares one, and records the path in the session metadata.
func (d *Dispatcher) Publish(ctx context.Context, sess *session.Session) error {
	def := d.phases.Current(sess)
	if def.Artifact == "" || d.tools == nil {
		return nil
	}
	out, ok := sess.PhaseOutputs[def.Name]
	if !ok || out.Content == "" {
		return nil
	}
	res := d.tools.Invoke(ctx, tools.WriteFile, tools.Args{"path": def.Artifact, "content": out.Content})
	if !res.Success {
		return fmt.Errorf("failed to publish %s artifact to %s: %s", def.Name, def.Artifact, res.Error)
	}
	sess.SetMeta(ArtifactKey(def.Name), def.Artifact)
	return nil
}

// context collects every output the session has recorded outside the
// current phase, in pipeline order, followed by the latest review. A
// phase revisited after an override still sees what later phases wrote.
func (d *Dispatcher) context(sess *session.Session, def phase.Definition, isReview bool) Context {
	c := Context{
		Task:          sess.Task,
		Phase:         def.Name,
		Input:         sess.PendingInput,
		Tools:         d.tools,
		VerifyCommand: d.verifyCommand,
	}
	for _, name := range d.phases.Registry().Names() {
		if name == def.Name {
			continue
		}
		if out, ok := sess.PhaseOutputs[name]; ok && out.Content != "" {
			c.PriorOutputs = append(c.PriorOutputs, Output{Phase: name, Content: out.Content})
		}
	}
	if review := sess.Metadata[MetaReviewLatest]; review != "" && !isReview {
		c.PriorOutputs = append(c.PriorOutputs, Output{Phase: reviewLabel, Content: review})
	}
	return c
}
