//go:build !windows

package execution

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"syscall"
	"time"
)

// HostRunner runs commands through sh on the host machine.
type HostRunner struct{}

// Run runs command in dir. The whole process group is killed when the
// timeout fires or ctx is cancelled.
func (HostRunner) Run(ctx context.Context, dir, command string, timeout time.Duration) (RawResult, error) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.Command("sh", "-c", command)
	cmd.Dir = dir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	if err := cmd.Start(); err != nil {
		return RawResult{Code: -1}, err
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-cctx.Done():
			if cmd.Process != nil {
				syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
			}
		case <-done:
		}
	}()

	waitErr := cmd.Wait()
	close(done)

	res := RawResult{
		Stdout: stdoutBuf.String(),
		Stderr: stderrBuf.String(),
	}
	if cctx.Err() != nil {
		res.TimedOut = true
	}

	if waitErr != nil {
		res.Code = -1
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			res.Code = exitErr.ExitCode()
			// A non-zero exit is a result, not a runner failure.
			return res, nil
		}
		return res, waitErr
	}
	return res, nil
}
