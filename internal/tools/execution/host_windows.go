//go:build windows

package execution

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"
)

// HostRunner runs commands through cmd.exe on the host machine.
type HostRunner struct{}

// Run runs command in dir, killing it when the timeout fires.
func (HostRunner) Run(ctx context.Context, dir, command string, timeout time.Duration) (RawResult, error) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, "cmd", "/C", command)
	cmd.Dir = dir

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	waitErr := cmd.Run()
	res := RawResult{Stdout: stdoutBuf.String(), Stderr: stderrBuf.String()}
	if cctx.Err() != nil {
		res.TimedOut = true
	}
	if waitErr != nil {
		res.Code = -1
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			res.Code = exitErr.ExitCode()
			return res, nil
		}
		return res, waitErr
	}
	return res, nil
}
