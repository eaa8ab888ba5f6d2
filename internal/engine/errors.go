package engine

import (
	"errors"
	"fmt"
)

// ErrNotActive is returned when an iteration is requested for a session
// that has already stopped.
var ErrNotActive = errors.New("session is not active")

// ErrCompleted is returned when resuming a completed session without a
// phase override.
var ErrCompleted = errors.New("session is already completed")

// BudgetExceededError is returned when the iteration budget is spent.
// The model is not called for the refused iteration.
type BudgetExceededError struct {
	Max       int
	Iteration int
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("iteration budget exhausted (%d of %d)", e.Iteration, e.Max)
}

// InterruptedError is returned when the run was cancelled by the operator
// and the last committed state was saved as interrupted.
type InterruptedError struct {
	Err error
}

func (e *InterruptedError) Error() string {
	return fmt.Sprintf("interrupted by operator: %v", e.Err)
}

func (e *InterruptedError) Unwrap() error {
	return e.Err
}

// IterationError wraps errors with execution context (iteration, phase,
// operation).
type IterationError struct {
	Err       error
	SessionID string
	Iteration int
	Phase     string
	Operation string // "guard", "select", "invoke", "commit", ...
}

func (e *IterationError) Error() string {
	return fmt.Sprintf("[session=%s iteration=%d phase=%s op=%s] %v",
		e.SessionID, e.Iteration, e.Phase, e.Operation, e.Err)
}

func (e *IterationError) Unwrap() error {
	return e.Err
}
