package session

import (
	"errors"
	"fmt"
	"syscall"
)

// ErrNotFound is returned when no session exists for an id.
var ErrNotFound = errors.New("session not found")

// NotFoundError carries the id that was looked up.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("session %s not found", e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// CorruptedError is returned when a persisted session fails structural validation.
// It is never repaired automatically.
type CorruptedError struct {
	ID     string
	Path   string
	Reason string
	Task   string // recovered from the raw file when possible
	Err    error
}

func (e *CorruptedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("session %s is corrupted (%s): %s: %v", e.ID, e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("session %s is corrupted (%s): %s", e.ID, e.Path, e.Reason)
}

func (e *CorruptedError) Unwrap() error {
	return e.Err
}

// Hint tells the operator how to recover: discard the session and, when
// the task is known, start it again.
func (e *CorruptedError) Hint() string {
	hint := fmt.Sprintf("discard it with: loop delete %s", e.ID)
	if e.Task != "" {
		hint += fmt.Sprintf("\nthen start fresh with: loop start %q", e.Task)
	}
	return hint
}

// PersistenceError is returned when state cannot be written or removed.
// The previous canonical state is left intact.
type PersistenceError struct {
	Op   string // "create_dir", "write", "sync", "rename", "delete"
	Path string
	Err  error
	Hint string
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v (%s)", e.Op, e.Path, e.Err, e.Hint)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func newPersistenceError(op, path string, err error) *PersistenceError {
	return &PersistenceError{Op: op, Path: path, Err: err, Hint: hintFor(err)}
}

func hintFor(err error) string {
	switch {
	case errors.Is(err, syscall.ENOSPC):
		return "disk is full, free some space and resume the session"
	case errors.Is(err, syscall.EACCES), errors.Is(err, syscall.EPERM):
		return "permission denied, check ownership of the session directory"
	case errors.Is(err, syscall.EROFS):
		return "filesystem is read-only, choose another session_dir"
	default:
		return "check that the session directory is writable"
	}
}
