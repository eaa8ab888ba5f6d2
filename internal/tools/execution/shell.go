package execution

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	units "github.com/docker/go-units"
)

const (
	// DefaultTimeout applies when no timeout is given.
	DefaultTimeout = 60 * time.Second
	maxTimeout     = 10 * time.Minute
	// MaxOutputSize is the per-stream output cap.
	MaxOutputSize = 100 * 1024
)

// Result is the structured outcome of one shell command.
type Result struct {
	Command         string
	ExitCode        int
	Stdout          string
	Stderr          string
	StdoutTruncated bool
	StderrTruncated bool
	TimedOut        bool
	Duration        time.Duration
}

// Success reports a zero exit within the timeout.
func (r Result) Success() bool {
	return r.ExitCode == 0 && !r.TimedOut
}

// String renders the result for inclusion in a prompt.
func (r Result) String() string {
	var b strings.Builder
	status := "ok"
	if r.TimedOut {
		status = "timed out"
	} else if r.ExitCode != 0 {
		status = fmt.Sprintf("exit %d", r.ExitCode)
	}
	fmt.Fprintf(&b, "$ %s (%s, %s)\n", r.Command, status, r.Duration.Round(time.Millisecond))
	if r.Stdout != "" {
		b.WriteString(r.Stdout)
		if !strings.HasSuffix(r.Stdout, "\n") {
			b.WriteString("\n")
		}
	}
	if r.Stderr != "" {
		b.WriteString("stderr:\n")
		b.WriteString(r.Stderr)
	}
	return strings.TrimRight(b.String(), "\n")
}

// BlockedError is returned for commands matching a destructive pattern.
type BlockedError struct {
	Command     string
	Description string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("blocked dangerous command: %s", e.Description)
}

var dangerousPatterns = []struct {
	re          *regexp.Regexp
	description string
}{
	{regexp.MustCompile(`\brm\s+(-[rf]+\s+)*[/\\]`), "rm -rf / (delete root filesystem)"},
	{regexp.MustCompile(`\brm\s+(-[rf]+\s+)*~`), "rm -rf ~ (delete home directory)"},
	{regexp.MustCompile(`\bmkfs\b`), "mkfs (format filesystem)"},
	{regexp.MustCompile(`\bdd\s+if=`), "dd if= (low-level disk write)"},
	{regexp.MustCompile(`\bshutdown\b`), "shutdown"},
	{regexp.MustCompile(`\breboot\b`), "reboot"},
	{regexp.MustCompile(`\bhalt\b`), "halt"},
	{regexp.MustCompile(`\bpoweroff\b`), "poweroff"},
	{regexp.MustCompile(`>\s*/dev/sd[a-z]`), "write to raw disk device"},
	{regexp.MustCompile(`:\(\)\s*\{`), "fork bomb"},
}

// CheckCommand returns a *BlockedError for destructive commands.
func CheckCommand(command string) error {
	lower := strings.ToLower(command)
	for _, p := range dangerousPatterns {
		if p.re.MatchString(lower) {
			return &BlockedError{Command: command, Description: p.description}
		}
	}
	return nil
}

// Shell runs commands in a fixed directory.
type Shell struct {
	Dir     string
	Runner  Runner
	Timeout time.Duration
}

// NewShell creates a Shell using the host runner.
func NewShell(dir string, timeout time.Duration) *Shell {
	return &Shell{Dir: dir, Runner: HostRunner{}, Timeout: timeout}
}

// Run executes command with the shell's timeout. Output beyond
// MaxOutputSize per stream is cut and marked.
func (s *Shell) Run(ctx context.Context, command string) (Result, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return Result{}, fmt.Errorf("command must not be empty")
	}
	if err := CheckCommand(command); err != nil {
		return Result{}, err
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if timeout > maxTimeout {
		timeout = maxTimeout
	}

	start := time.Now()
	raw, err := s.Runner.Run(ctx, s.Dir, command, timeout)
	if err != nil && !raw.TimedOut {
		return Result{}, fmt.Errorf("failed to run %q: %w", command, err)
	}

	res := Result{
		Command:  command,
		ExitCode: raw.Code,
		TimedOut: raw.TimedOut,
		Duration: time.Since(start),
	}
	res.Stdout, res.StdoutTruncated = truncateOutput(raw.Stdout, MaxOutputSize)
	res.Stderr, res.StderrTruncated = truncateOutput(raw.Stderr, MaxOutputSize)
	return res, nil
}

func truncateOutput(output string, limit int) (string, bool) {
	if len(output) <= limit {
		return output, false
	}
	marker := fmt.Sprintf("\n[output truncated: showing %s of %s]",
		units.HumanSize(float64(limit)), units.HumanSize(float64(len(output))))
	cut := limit
	for cut > 0 && !utf8.RuneStart(output[cut]) {
		cut--
	}
	return output[:cut] + marker, true
}
