package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Avacaato/loop-orchestration/internal/engine"
	"github.com/Avacaato/loop-orchestration/internal/session"
	"github.com/Avacaato/loop-orchestration/internal/skills"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"interrupted", &engine.IterationError{Err: &engine.InterruptedError{Err: context.Canceled}}, 130},
		{"budget", fmt.Errorf("run: %w", &engine.BudgetExceededError{Max: 3, Iteration: 3}), 2},
		{"other", errors.New("boom"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestPrintErrorOffersRecoveryForCorruptedSession(t *testing.T) {
	var buf bytes.Buffer
	err := fmt.Errorf("load: %w", &session.CorruptedError{ID: "abc", Reason: "unknown phase", Task: "build a cli"})
	printError(&buf, err)

	out := buf.String()
	assert.Contains(t, out, "loop delete abc")
	assert.Contains(t, out, `loop start "build a cli"`)

	buf.Reset()
	printError(&buf, errors.New("boom"))
	assert.NotContains(t, buf.String(), "loop delete")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("  short \n", 10))
	assert.Equal(t, "abc...", truncate("abcdef", 3))
	assert.Equal(t, "é...", truncate("ééé", 3))
}

func TestIndent(t *testing.T) {
	assert.Equal(t, "  a\n  b", indent("a\nb", "  "))
}

func TestArtifactPaths(t *testing.T) {
	sess := &session.Session{Metadata: map[string]string{
		skills.ArtifactKey("tickets"): "docs/tickets.md",
		skills.ArtifactKey("prd"):     "docs/prd.md",
		skills.MetaReviewLatest:       "Overall: PASS",
	}}
	assert.Equal(t, []string{"docs/prd.md", "docs/tickets.md"}, artifactPaths(sess))
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"start", "resume", "list", "show", "delete", "override", "review", "watch", "history", "health"} {
		assert.Contains(t, names, want)
	}
}
