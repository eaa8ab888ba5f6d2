package phase

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Avacaato/loop-orchestration/internal/completion"
	"github.com/Avacaato/loop-orchestration/internal/prompts"
	"github.com/Avacaato/loop-orchestration/internal/session"
)

func defaultRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := Default(prompts.Builtin())
	require.NoError(t, err)
	return reg
}

func newSession(phase string) *session.Session {
	return &session.Session{ID: "s1", Task: "Build a todo app", Phase: phase, Status: session.StatusActive}
}

func TestRegistryOrder(t *testing.T) {
	reg := defaultRegistry(t)

	assert.Equal(t, []string{PRD, Tickets, Research, Planning, Implementation, Refactoring}, reg.Names())
	assert.Equal(t, PRD, reg.First().Name)
	assert.True(t, reg.IsTerminal(Refactoring))
	assert.False(t, reg.IsTerminal(PRD))
	assert.Equal(t, 3, reg.Position(Research))

	next, ok := reg.Next(Research)
	require.True(t, ok)
	assert.Equal(t, Planning, next.Name)

	_, ok = reg.Next(Refactoring)
	assert.False(t, ok)
	_, ok = reg.Next("unknown")
	assert.False(t, ok)

	for _, name := range reg.Names() {
		def, _ := reg.Get(name)
		assert.NotEmpty(t, def.EntryPrompt, name)
	}
}

func TestNewRegistryValidation(t *testing.T) {
	_, err := NewRegistry()
	assert.Error(t, err)

	_, err = NewRegistry(Definition{Name: "a"}, Definition{Name: "a"})
	assert.Error(t, err)

	_, err = NewRegistry(Definition{Name: " "})
	assert.Error(t, err)
}

func TestAdvanceIsTotal(t *testing.T) {
	reg := defaultRegistry(t)
	m := NewManager(reg)

	kinds := []completion.Kind{
		completion.KindContinue,
		completion.KindPhaseComplete,
		completion.KindTaskComplete,
		completion.KindNeedsUserInput,
	}

	for _, name := range reg.Names() {
		for _, kind := range kinds {
			t.Run(name+"/"+string(kind), func(t *testing.T) {
				s := newSession(name)
				out := m.Advance(s, completion.Verdict{Kind: kind, Reason: "test"})

				_, known := reg.Get(s.Phase)
				require.True(t, known, "phase must stay registered")

				switch kind {
				case completion.KindContinue:
					assert.Equal(t, name, s.Phase)
					assert.Equal(t, session.StatusActive, s.Status)
					assert.False(t, out.Transitioned)
				case completion.KindPhaseComplete:
					if next, ok := reg.Next(name); ok {
						assert.Equal(t, next.Name, s.Phase)
						assert.True(t, out.Transitioned)
						assert.Equal(t, session.StatusActive, s.Status)
						assert.Equal(t, s.PendingInput, out.EntryPrompt)
						require.Len(t, s.Transitions, 1)
						assert.Equal(t, name, s.Transitions[0].From)
					} else {
						assert.Equal(t, name, s.Phase)
						assert.Equal(t, session.StatusCompleted, s.Status)
						assert.False(t, out.Transitioned)
					}
				case completion.KindTaskComplete:
					assert.Equal(t, name, s.Phase)
					assert.Equal(t, session.StatusCompleted, s.Status)
				case completion.KindNeedsUserInput:
					assert.Equal(t, name, s.Phase)
					assert.Equal(t, session.StatusInterrupted, s.Status)
					assert.Empty(t, s.Transitions)
				}
				assert.Equal(t, s.Status, out.Status)
			})
		}
	}
}

func TestAdvanceRendersEntryPrompt(t *testing.T) {
	m := NewManager(defaultRegistry(t))
	s := newSession(Tickets)

	out := m.Advance(s, completion.Verdict{Kind: completion.KindPhaseComplete})
	require.True(t, out.Transitioned)
	assert.Equal(t, Research, s.Phase)
	assert.Contains(t, out.EntryPrompt, "Build a todo app")
	assert.NotContains(t, out.EntryPrompt, "{{task}}")
}

func TestOverride(t *testing.T) {
	m := NewManager(defaultRegistry(t))
	s := newSession(Refactoring)
	s.SetStatus(session.StatusCompleted, "done")

	out, err := m.Override(s, Research, "")
	require.NoError(t, err)
	assert.Equal(t, Refactoring, out.From)
	assert.Equal(t, Research, s.Phase)
	assert.Equal(t, session.StatusActive, s.Status)
	require.Len(t, s.Transitions, 1)
	assert.True(t, s.Transitions[0].Manual)
	assert.Equal(t, "manual override", s.Transitions[0].Reason)

	_, err = m.Override(s, "deploy", "")
	assert.Error(t, err)
	assert.Equal(t, Research, s.Phase, "failed override leaves session unchanged")
	assert.Len(t, s.Transitions, 1)
}

func TestCurrentPanicsOnUnknownPhase(t *testing.T) {
	m := NewManager(defaultRegistry(t))
	assert.Panics(t, func() { m.Current(newSession("deploy")) })
}

func TestTransitionSurvivesReload(t *testing.T) {
	reg := defaultRegistry(t)
	m := NewManager(reg)

	store, err := session.NewStore(t.TempDir(), reg.Names(), nil)
	require.NoError(t, err)

	s, err := store.Create("Build a todo app", "")
	require.NoError(t, err)
	s.Phase = Research

	m.Advance(s, completion.Verdict{Kind: completion.KindPhaseComplete, Reason: "findings documented"})
	require.NoError(t, store.Save(s))

	loaded, err := store.Load(s.ID)
	require.NoError(t, err)
	assert.Equal(t, Planning, loaded.Phase)
	require.Len(t, loaded.Transitions, 1)
	assert.True(t, strings.Contains(loaded.Transitions[0].Reason, "findings"))
}
