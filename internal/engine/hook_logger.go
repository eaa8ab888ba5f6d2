package engine

import (
	"context"
	"log/slog"
	"unicode/utf8"

	"github.com/Avacaato/loop-orchestration/internal/completion"
	"github.com/Avacaato/loop-orchestration/internal/phase"
	"github.com/Avacaato/loop-orchestration/internal/session"
)

const previewLen = 120

// LoggerHook logs loop progress.
type LoggerHook struct{ L *slog.Logger }

func (h LoggerHook) OnIterationStart(_ context.Context, sess *session.Session) {
	h.L.Debug("iteration start", "session", sess.ID, "iteration", sess.Iteration, "phase", sess.Phase)
}

func (h LoggerHook) OnBeforeInvoke(_ context.Context, sess *session.Session, skill string) {
	h.L.Debug("invoking skill", "session", sess.ID, "skill", skill, "history", len(sess.History))
}

func (h LoggerHook) OnAfterInvoke(_ context.Context, sess *session.Session, skill, output string, err error) {
	if err != nil {
		h.L.Warn("skill failed", "session", sess.ID, "skill", skill, "error", err)
		return
	}
	h.L.Debug("skill replied", "session", sess.ID, "skill", skill, "chars", len(output), "preview", preview(output))
}

func (h LoggerHook) OnVerdict(_ context.Context, sess *session.Session, v completion.Verdict) {
	h.L.Info("verdict", "session", sess.ID, "iteration", sess.Iteration,
		"kind", v.Kind, "explicit", v.Explicit, "confidence", v.Confidence, "reason", v.Reason)
}

func (h LoggerHook) OnTransition(_ context.Context, sess *session.Session, out phase.Outcome) {
	h.L.Info("phase transition", "session", sess.ID, "from", out.From, "to", out.To)
}

func (h LoggerHook) OnCommit(_ context.Context, sess *session.Session, res Result) {
	h.L.Debug("committed", "session", sess.ID, "iteration", res.Iteration, "status", res.Status)
}

func (h LoggerHook) OnDone(_ context.Context, sess *session.Session, res Result) {
	h.L.Info("loop stopped", "session", sess.ID, "status", res.Status,
		"reason", sess.StatusReason, "iteration", res.Iteration, "phase", res.Phase)
}

func preview(s string) string {
	if len(s) > previewLen {
		cut := previewLen
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		return s[:cut] + "..."
	}
	return s
}
