package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Avacaato/loop-orchestration/internal/tools/execution"
	"github.com/Avacaato/loop-orchestration/internal/tools/filesystem"
)

type fakeRunner struct {
	commands []string
	result   execution.RawResult
}

func (f *fakeRunner) Run(ctx context.Context, dir, command string, timeout time.Duration) (execution.RawResult, error) {
	f.commands = append(f.commands, command)
	return f.result, nil
}

func newTestRegistry(t *testing.T) (*Registry, *fakeRunner, string) {
	t.Helper()
	dir := t.TempDir()
	root, err := filesystem.NewRoot(dir)
	require.NoError(t, err)
	runner := &fakeRunner{result: execution.RawResult{Stdout: "PASS\n"}}
	shell := &execution.Shell{Dir: dir, Runner: runner, Timeout: time.Second}
	return NewRegistry(root, shell), runner, dir
}

func TestRegistryNames(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	assert.Equal(t, []string{ListDir, ReadFile, RunCommand, SearchFiles, WriteFile}, reg.Names())
	assert.True(t, reg.Has(ReadFile))
	assert.False(t, reg.Has("delete_everything"))
}

func TestRegistryWriteReadList(t *testing.T) {
	reg, _, dir := newTestRegistry(t)
	ctx := context.Background()

	res := reg.Invoke(ctx, WriteFile, Args{"path": "docs/prd.md", "content": "# PRD\n"})
	require.True(t, res.Success, res.Error)

	data, err := os.ReadFile(filepath.Join(dir, "docs", "prd.md"))
	require.NoError(t, err)
	assert.Equal(t, "# PRD\n", string(data))

	res = reg.Invoke(ctx, ReadFile, Args{"path": "docs/prd.md"})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "# PRD\n", res.Output)

	res = reg.Invoke(ctx, ListDir, Args{"path": "."})
	require.True(t, res.Success, res.Error)
	assert.Contains(t, res.Output, "docs/")

	res = reg.Invoke(ctx, SearchFiles, Args{"pattern": "*.md"})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "docs/prd.md", strings.TrimSpace(res.Output))
}

func TestRegistryFailures(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	ctx := context.Background()

	res := reg.Invoke(ctx, "nope", nil)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "unknown tool")

	res = reg.Invoke(ctx, ReadFile, Args{"path": "../../etc/passwd"})
	assert.False(t, res.Success)

	res = reg.Invoke(ctx, SearchFiles, Args{"pattern": "*.go", "limit": "many"})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "invalid limit")

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	res = reg.Invoke(cancelled, ListDir, Args{"path": "."})
	assert.False(t, res.Success)
}

func TestRegistryRunCommand(t *testing.T) {
	reg, runner, _ := newTestRegistry(t)
	ctx := context.Background()

	res := reg.Invoke(ctx, RunCommand, Args{"command": "go test ./..."})
	require.True(t, res.Success, res.Error)
	assert.Contains(t, res.Output, "PASS")
	assert.Equal(t, []string{"go test ./..."}, runner.commands)

	runner.result = execution.RawResult{Stderr: "FAIL", Code: 1}
	res = reg.Invoke(ctx, RunCommand, Args{"command": "go test ./..."})
	assert.False(t, res.Success)
	assert.Contains(t, res.Output, "exit 1")

	res = reg.Invoke(ctx, RunCommand, Args{"command": "rm -rf /"})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "blocked")
	assert.Len(t, runner.commands, 2)
}
