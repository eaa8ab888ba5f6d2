package engine

import (
	"context"

	"github.com/Avacaato/loop-orchestration/internal/completion"
	"github.com/Avacaato/loop-orchestration/internal/phase"
	"github.com/Avacaato/loop-orchestration/internal/session"
)

// Hook observes the loop. Hooks must not mutate the session.
type Hook interface {
	OnIterationStart(ctx context.Context, sess *session.Session)
	OnBeforeInvoke(ctx context.Context, sess *session.Session, skill string)
	OnAfterInvoke(ctx context.Context, sess *session.Session, skill, output string, err error)
	OnVerdict(ctx context.Context, sess *session.Session, v completion.Verdict)
	// OnTransition fires after the transition has been committed.
	OnTransition(ctx context.Context, sess *session.Session, out phase.Outcome)
	OnCommit(ctx context.Context, sess *session.Session, res Result)
	OnDone(ctx context.Context, sess *session.Session, res Result)
}

// NopHook lets you implement any hook you need.
type NopHook struct{}

func (NopHook) OnIterationStart(context.Context, *session.Session)                     {}
func (NopHook) OnBeforeInvoke(context.Context, *session.Session, string)               {}
func (NopHook) OnAfterInvoke(context.Context, *session.Session, string, string, error) {}
func (NopHook) OnVerdict(context.Context, *session.Session, completion.Verdict)        {}
func (NopHook) OnTransition(context.Context, *session.Session, phase.Outcome)          {}
func (NopHook) OnCommit(context.Context, *session.Session, Result)                     {}
func (NopHook) OnDone(context.Context, *session.Session, Result)                       {}

// Hooks fans every event out to each hook in order.
type Hooks []Hook

func (hs Hooks) OnIterationStart(ctx context.Context, sess *session.Session) {
	for _, h := range hs {
		h.OnIterationStart(ctx, sess)
	}
}
func (hs Hooks) OnBeforeInvoke(ctx context.Context, sess *session.Session, skill string) {
	for _, h := range hs {
		h.OnBeforeInvoke(ctx, sess, skill)
	}
}
func (hs Hooks) OnAfterInvoke(ctx context.Context, sess *session.Session, skill, output string, err error) {
	for _, h := range hs {
		h.OnAfterInvoke(ctx, sess, skill, output, err)
	}
}
func (hs Hooks) OnVerdict(ctx context.Context, sess *session.Session, v completion.Verdict) {
	for _, h := range hs {
		h.OnVerdict(ctx, sess, v)
	}
}
func (hs Hooks) OnTransition(ctx context.Context, sess *session.Session, out phase.Outcome) {
	for _, h := range hs {
		h.OnTransition(ctx, sess, out)
	}
}
func (hs Hooks) OnCommit(ctx context.Context, sess *session.Session, res Result) {
	for _, h := range hs {
		h.OnCommit(ctx, sess, res)
	}
}
func (hs Hooks) OnDone(ctx context.Context, sess *session.Session, res Result) {
	for _, h := range hs {
		h.OnDone(ctx, sess, res)
	}
}
