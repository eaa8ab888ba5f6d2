package execution

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

// MockRunner is a mock implementation of the Runner interface.
type MockRunner struct {
	RunFunc func(ctx context.Context, dir, command string, timeout time.Duration) (RawResult, error)
}

func (m *MockRunner) Run(ctx context.Context, dir, command string, timeout time.Duration) (RawResult, error) {
	if m.RunFunc != nil {
		return m.RunFunc(ctx, dir, command, timeout)
	}
	return RawResult{}, nil
}

func TestShellRun(t *testing.T) {
	big := strings.Repeat("x", MaxOutputSize+10)

	tests := []struct {
		name          string
		command       string
		raw           RawResult
		rawErr        error
		wantErr       bool
		wantExit      int
		wantTruncated bool
		wantTimeout   bool
	}{
		{name: "success", command: "go test ./...", raw: RawResult{Stdout: "ok"}, wantExit: 0},
		{name: "failure exit", command: "go vet", raw: RawResult{Stderr: "bad", Code: 2}, wantExit: 2},
		{name: "truncated", command: "cat big", raw: RawResult{Stdout: big}, wantTruncated: true},
		{name: "timeout", command: "sleep 100", raw: RawResult{TimedOut: true, Code: -1}, rawErr: errors.New("killed"), wantExit: -1, wantTimeout: true},
		{name: "runner error", command: "nope", raw: RawResult{Code: -1}, rawErr: errors.New("exec failed"), wantErr: true},
		{name: "blocked", command: "rm -rf /", wantErr: true},
		{name: "empty", command: "  ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotTimeout time.Duration
			sh := &Shell{
				Dir: "/repo",
				Runner: &MockRunner{RunFunc: func(ctx context.Context, dir, command string, timeout time.Duration) (RawResult, error) {
					gotTimeout = timeout
					return tt.raw, tt.rawErr
				}},
			}

			res, err := sh.Run(context.Background(), tt.command)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", res)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if gotTimeout != DefaultTimeout {
				t.Errorf("expected default timeout, got %v", gotTimeout)
			}
			if res.ExitCode != tt.wantExit {
				t.Errorf("exit = %d, want %d", res.ExitCode, tt.wantExit)
			}
			if res.StdoutTruncated != tt.wantTruncated {
				t.Errorf("truncated = %v, want %v", res.StdoutTruncated, tt.wantTruncated)
			}
			if tt.wantTruncated && !strings.Contains(res.Stdout, "[output truncated") {
				t.Errorf("missing truncation marker")
			}
			if res.TimedOut != tt.wantTimeout {
				t.Errorf("timedOut = %v, want %v", res.TimedOut, tt.wantTimeout)
			}
			if res.Success() != (tt.wantExit == 0 && !tt.wantTimeout) {
				t.Errorf("Success() mismatch for %+v", res)
			}
		})
	}
}

func TestTruncateOutputKeepsRunesWhole(t *testing.T) {
	// "é" is two bytes, so a limit of 3 lands inside the second rune.
	out, truncated := truncateOutput("ééé", 3)
	if !truncated {
		t.Fatalf("expected truncation")
	}
	body := strings.SplitN(out, "\n[output truncated", 2)[0]
	if body != "é" {
		t.Errorf("body = %q, want %q", body, "é")
	}
	if !utf8.ValidString(out) {
		t.Errorf("truncated output is not valid UTF-8: %q", out)
	}
}

func TestCheckCommand(t *testing.T) {
	blocked := []string{"rm -rf /", "sudo rm -rf ~", "mkfs.ext4 /dev/sda1", "dd if=/dev/zero of=/dev/sda", "shutdown now", ":(){ :|:& };:"}
	for _, c := range blocked {
		var be *BlockedError
		if err := CheckCommand(c); !errors.As(err, &be) {
			t.Errorf("expected %q to be blocked, got %v", c, err)
		}
	}

	allowed := []string{"go test ./...", "rm -rf build", "ls -la", "npm run lint"}
	for _, c := range allowed {
		if err := CheckCommand(c); err != nil {
			t.Errorf("expected %q to be allowed, got %v", c, err)
		}
	}
}

func TestHostRunner(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}

	sh := NewShell(t.TempDir(), 5*time.Second)
	res, err := sh.Run(context.Background(), "echo hello; echo oops 1>&2; exit 3")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.ExitCode != 3 || strings.TrimSpace(res.Stdout) != "hello" || strings.TrimSpace(res.Stderr) != "oops" {
		t.Errorf("unexpected result: %+v", res)
	}

	sh.Timeout = 200 * time.Millisecond
	res, err = sh.Run(context.Background(), "sleep 5")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !res.TimedOut {
		t.Errorf("expected timeout, got %+v", res)
	}
}
