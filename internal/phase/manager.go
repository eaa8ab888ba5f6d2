package phase

import (
	"fmt"
	"time"

	"github.com/Avacaato/loop-orchestration/internal/completion"
	"github.com/Avacaato/loop-orchestration/internal/prompts"
	"github.com/Avacaato/loop-orchestration/internal/session"
)

// Outcome describes what Advance or Override did to a session.
type Outcome struct {
	From         string
	To           string
	Transitioned bool
	EntryPrompt  string // rendered entry prompt of the new phase, if any
	Status       session.Status
}

// Manager applies verdicts and overrides to a session's phase and status.
// It holds no per-session state.
type Manager struct {
	reg *Registry
	now func() time.Time
}

// NewManager creates a manager over reg.
func NewManager(reg *Registry) *Manager {
	return &Manager{
		reg: reg,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Registry returns the phase table the manager works on.
func (m *Manager) Registry() *Registry {
	return m.reg
}

// Current returns the definition of the session's phase. An unknown phase
// can only come from a bug, since the store validates phases on load, so
// it panics.
func (m *Manager) Current(s *session.Session) Definition {
	def, ok := m.reg.Get(s.Phase)
	if !ok {
		panic(fmt.Sprintf("phase: session %s is in unregistered phase %q", s.ID, s.Phase))
	}
	return def
}

// EntryPrompt renders the entry prompt of def for s.
func (m *Manager) EntryPrompt(def Definition, s *session.Session) string {
	out, _ := prompts.NewBuilder(def.EntryPrompt).
		SetVariable("task", s.Task).
		SetVariable("phase", def.Name).
		Build()
	return out
}

// Advance applies a verdict. Every (phase, verdict) pair has a defined
// result:
//
//	continue          no change
//	phase_complete    move to the successor, or complete at the terminal phase
//	task_complete     complete from any phase
//	needs_user_input  interrupt without a transition
func (m *Manager) Advance(s *session.Session, v completion.Verdict) Outcome {
	cur := m.Current(s)
	out := Outcome{From: cur.Name, To: cur.Name, Status: s.Status}

	switch v.Kind {
	case completion.KindPhaseComplete:
		next, ok := m.reg.Next(cur.Name)
		if !ok {
			s.SetStatus(session.StatusCompleted, "final phase complete: "+v.Reason)
			break
		}
		m.moveTo(s, cur, next, v.Reason, false)
		out.To = next.Name
		out.Transitioned = true
		out.EntryPrompt = s.PendingInput

	case completion.KindTaskComplete:
		s.SetStatus(session.StatusCompleted, v.Reason)

	case completion.KindNeedsUserInput:
		s.SetStatus(session.StatusInterrupted, "awaiting user input: "+v.Reason)
	}

	out.Status = s.Status
	return out
}

// Override jumps to any registered phase regardless of order and
// reactivates the session. The operator is trusted; no ordering checks are
// made.
func (m *Manager) Override(s *session.Session, name, reason string) (Outcome, error) {
	target, ok := m.reg.Get(name)
	if !ok {
		return Outcome{}, fmt.Errorf("unknown phase %q (known: %v)", name, m.reg.Names())
	}
	cur := m.Current(s)
	if reason == "" {
		reason = "manual override"
	}

	m.moveTo(s, cur, target, reason, true)
	s.SetStatus(session.StatusActive, "phase overridden to "+name)

	return Outcome{
		From:         cur.Name,
		To:           target.Name,
		Transitioned: true,
		EntryPrompt:  s.PendingInput,
		Status:       s.Status,
	}, nil
}

func (m *Manager) moveTo(s *session.Session, from, to Definition, reason string, manual bool) {
	s.Transitions = append(s.Transitions, session.Transition{
		From:   from.Name,
		To:     to.Name,
		Reason: reason,
		Manual: manual,
		At:     m.now(),
	})
	s.Phase = to.Name
	s.PendingInput = m.EntryPrompt(to, s)
}
