// Package engine drives a session through its phases, one model call per
// iteration, committing state after every iteration.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Avacaato/loop-orchestration/internal/completion"
	"github.com/Avacaato/loop-orchestration/internal/phase"
	"github.com/Avacaato/loop-orchestration/internal/session"
	"github.com/Avacaato/loop-orchestration/internal/skills"
)

// Reasons recorded on the session when the engine stops it.
const (
	ReasonBudget      = "iteration budget exhausted"
	ReasonInterrupted = "interrupted by operator"
)

// Store is the persistence the engine needs.
type Store interface {
	Load(id string) (*session.Session, error)
	Save(sess *session.Session) error
}

// Options configures an Engine.
type Options struct {
	Store         Store
	Manager       *phase.Manager
	Dispatcher    *skills.Dispatcher
	Detector      completion.Detector
	MaxIterations int
	Hooks         Hooks
	Logger        *slog.Logger
}

// Result summarizes one iteration.
type Result struct {
	Status       session.Status
	Verdict      completion.Verdict
	Phase        string // phase after the iteration
	Iteration    int    // iteration counter after the iteration
	Transitioned bool
	Output       string
}

// Engine runs iterations for one session at a time.
type Engine struct {
	store      Store
	manager    *phase.Manager
	dispatcher *skills.Dispatcher
	detector   completion.Detector
	max        int
	hooks      Hooks
	logger     *slog.Logger
}

// New validates opts and returns an Engine.
func New(opts Options) (*Engine, error) {
	if opts.MaxIterations <= 0 {
		return nil, fmt.Errorf("max iterations must be positive, got %d", opts.MaxIterations)
	}
	if opts.Store == nil || opts.Manager == nil || opts.Dispatcher == nil {
		return nil, fmt.Errorf("engine requires a store, a phase manager and a dispatcher")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:      opts.Store,
		manager:    opts.Manager,
		dispatcher: opts.Dispatcher,
		detector:   opts.Detector,
		max:        opts.MaxIterations,
		hooks:      opts.Hooks,
		logger:     logger,
	}, nil
}

// MaxIterations returns the iteration budget.
func (e *Engine) MaxIterations() int {
	return e.max
}

// RunIteration performs one iteration on an active session: guard the
// budget, select the skill, call the model, classify the reply, apply the
// verdict and commit. sess is updated in place.
//
// The returned error wraps *BudgetExceededError, *InterruptedError,
// *llm.TransportError or *session.PersistenceError in an *IterationError.
func (e *Engine) RunIteration(ctx context.Context, sess *session.Session) (Result, error) {
	if sess.Status != session.StatusActive {
		return e.result(sess, completion.Verdict{}, false, ""), e.wrap(sess, "guard", ErrNotActive)
	}
	if ctx.Err() != nil {
		return e.interrupt(ctx, sess, ctx.Err())
	}

	if sess.Iteration >= e.max {
		sess.SetStatus(session.StatusInterrupted, ReasonBudget)
		res := e.result(sess, completion.Verdict{}, false, "")
		if err := e.store.Save(sess); err != nil {
			return res, e.wrap(sess, "guard", err)
		}
		e.hooks.OnDone(ctx, sess, res)
		return res, e.wrap(sess, "guard", &BudgetExceededError{Max: e.max, Iteration: sess.Iteration})
	}

	def := e.manager.Current(sess)
	skill, err := e.dispatcher.Select(def.Name)
	if err != nil {
		return e.result(sess, completion.Verdict{}, false, ""), e.wrap(sess, "select", err)
	}

	e.hooks.OnIterationStart(ctx, sess)
	e.hooks.OnBeforeInvoke(ctx, sess, skill.Name())
	output, err := e.dispatcher.Invoke(ctx, skill, sess)
	e.hooks.OnAfterInvoke(ctx, sess, skill.Name(), output, err)
	if err != nil {
		if ctx.Err() != nil {
			return e.interrupt(ctx, sess, err)
		}
		return e.fail(ctx, sess, err)
	}

	v := e.detector.Detect(output, signalsFor(skill, output))
	e.hooks.OnVerdict(ctx, sess, v)

	if v.Kind == completion.KindPhaseComplete {
		if err := e.dispatcher.Publish(ctx, sess); err != nil {
			if ctx.Err() != nil {
				return e.interrupt(ctx, sess, err)
			}
			e.logger.Warn("failed to publish phase artifact", "session", sess.ID, "phase", def.Name, "error", err)
		}
	}
	out := e.manager.Advance(sess, v)

	if ctx.Err() != nil {
		return e.interrupt(ctx, sess, ctx.Err())
	}

	sess.Iteration++
	res := e.result(sess, v, out.Transitioned, output)
	if err := e.store.Save(sess); err != nil {
		return res, e.wrap(sess, "commit", err)
	}
	e.hooks.OnCommit(ctx, sess, res)
	if out.Transitioned {
		e.hooks.OnTransition(ctx, sess, out)
	}
	if sess.Status.Terminal() {
		e.hooks.OnDone(ctx, sess, res)
	}
	return res, nil
}

// RunUntilDone iterates while the session is active. Completion and a
// pause for user input return a nil error; budget exhaustion,
// interruption and failures return the iteration's error.
func (e *Engine) RunUntilDone(ctx context.Context, sess *session.Session) (Result, error) {
	res := e.result(sess, completion.Verdict{}, false, "")
	for sess.Status == session.StatusActive {
		var err error
		res, err = e.RunIteration(ctx, sess)
		if err != nil {
			return res, err
		}
	}
	return res, nil
}

// Resume reactivates a stopped session. A non-empty input becomes the
// next prompt. Completed sessions are refused; override the phase first
// to reopen one.
func (e *Engine) Resume(sess *session.Session, input string) error {
	if sess.Status == session.StatusCompleted {
		return ErrCompleted
	}
	if input != "" {
		sess.PendingInput = input
	}
	sess.SetStatus(session.StatusActive, "resumed")
	return e.store.Save(sess)
}

// interrupt discards uncommitted work: the last committed state is
// reloaded, marked interrupted and saved. sess is replaced with it.
func (e *Engine) interrupt(ctx context.Context, sess *session.Session, cause error) (Result, error) {
	committed, err := e.store.Load(sess.ID)
	if err != nil {
		e.logger.Warn("could not reload committed state, keeping in-memory copy",
			"session", sess.ID, "error", err)
	} else {
		*sess = *committed
	}

	sess.SetStatus(session.StatusInterrupted, ReasonInterrupted)
	res := e.result(sess, completion.Verdict{}, false, "")
	if err := e.store.Save(sess); err != nil {
		return res, e.wrap(sess, "interrupt", errors.Join(&InterruptedError{Err: cause}, err))
	}
	e.hooks.OnDone(ctx, sess, res)
	return res, e.wrap(sess, "interrupt", &InterruptedError{Err: cause})
}

// fail records a non-recoverable model failure. Invoke leaves the history
// untouched on error, so only the status changes.
func (e *Engine) fail(ctx context.Context, sess *session.Session, cause error) (Result, error) {
	sess.SetStatus(session.StatusFailed, "model call failed: "+cause.Error())
	res := e.result(sess, completion.Verdict{}, false, "")
	if err := e.store.Save(sess); err != nil {
		return res, e.wrap(sess, "invoke", errors.Join(cause, err))
	}
	e.hooks.OnDone(ctx, sess, res)
	return res, e.wrap(sess, "invoke", cause)
}

func (e *Engine) result(sess *session.Session, v completion.Verdict, transitioned bool, output string) Result {
	return Result{
		Status:       sess.Status,
		Verdict:      v,
		Phase:        sess.Phase,
		Iteration:    sess.Iteration,
		Transitioned: transitioned,
		Output:       output,
	}
}

func (e *Engine) wrap(sess *session.Session, op string, err error) error {
	return &IterationError{
		Err:       err,
		SessionID: sess.ID,
		Iteration: sess.Iteration,
		Phase:     sess.Phase,
		Operation: op,
	}
}

// signalsFor derives the detector's side-channel hints. Only a skill that
// works on the workspace counts as done when it proposes nothing further.
func signalsFor(skill skills.Skill, output string) completion.Signals {
	return completion.Signals{
		NoProposedActions: len(skill.DeclaredTools()) > 0 &&
			strings.TrimSpace(output) != "" &&
			!completion.ProposesAction(output),
	}
}
