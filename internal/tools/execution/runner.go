// Package execution runs shell commands inside the project root.
package execution

import (
	"context"
	"time"
)

// RawResult is what a Runner reports for one process.
type RawResult struct {
	Stdout   string
	Stderr   string
	Code     int
	TimedOut bool
}

// Runner runs a command line in a directory with a timeout.
// It allows swapping the host process runner in tests.
type Runner interface {
	Run(ctx context.Context, dir, command string, timeout time.Duration) (RawResult, error)
}
