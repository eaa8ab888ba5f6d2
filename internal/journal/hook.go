package journal

import (
	"context"
	"log/slog"
	"time"

	"github.com/Avacaato/loop-orchestration/internal/completion"
	"github.com/Avacaato/loop-orchestration/internal/engine"
	"github.com/Avacaato/loop-orchestration/internal/phase"
	"github.com/Avacaato/loop-orchestration/internal/session"
)

// Hook records committed iterations and transitions. Journal write
// failures are logged and never stop the loop.
type Hook struct {
	engine.NopHook
	DB     *DB
	Logger *slog.Logger

	skill string
}

// NewHook returns an engine hook writing to db.
func NewHook(db *DB, logger *slog.Logger) *Hook {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hook{DB: db, Logger: logger}
}

func (h *Hook) OnBeforeInvoke(_ context.Context, _ *session.Session, skill string) {
	h.skill = skill
}

func (h *Hook) OnCommit(ctx context.Context, sess *session.Session, res engine.Result) {
	rec := IterationRecord{
		SessionID:  sess.ID,
		Iteration:  res.Iteration,
		Phase:      ranIn(sess, res),
		Skill:      h.skill,
		Verdict:    string(res.Verdict.Kind),
		Confidence: res.Verdict.Confidence,
		Status:     string(res.Status),
		OutputSize: len(res.Output),
		At:         time.Now().UTC(),
	}
	if err := h.DB.RecordIteration(context.WithoutCancel(ctx), rec); err != nil {
		h.Logger.Warn("journal write failed", "session", sess.ID, "error", err)
	}
}

func (h *Hook) OnTransition(ctx context.Context, sess *session.Session, out phase.Outcome) {
	rec := TransitionRecord{
		SessionID: sess.ID,
		Iteration: sess.Iteration,
		From:      out.From,
		To:        out.To,
		At:        time.Now().UTC(),
	}
	if n := len(sess.Transitions); n > 0 {
		rec.Reason = sess.Transitions[n-1].Reason
		rec.Manual = sess.Transitions[n-1].Manual
	}
	if err := h.DB.RecordTransition(context.WithoutCancel(ctx), rec); err != nil {
		h.Logger.Warn("journal write failed", "session", sess.ID, "error", err)
	}
}

// ranIn returns the phase an iteration ran in, which differs from the
// session's phase after a transition.
func ranIn(sess *session.Session, res engine.Result) string {
	if res.Transitioned && res.Verdict.Kind == completion.KindPhaseComplete {
		if n := len(sess.Transitions); n > 0 {
			return sess.Transitions[n-1].From
		}
	}
	return sess.Phase
}
