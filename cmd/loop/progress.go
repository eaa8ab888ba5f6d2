package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Avacaato/loop-orchestration/internal/engine"
	"github.com/Avacaato/loop-orchestration/internal/phase"
	"github.com/Avacaato/loop-orchestration/internal/session"
)

// progressHook prints each iteration to the terminal.
type progressHook struct {
	engine.NopHook
	w   io.Writer
	max int
}

func newProgressHook(w io.Writer, max int) *progressHook {
	return &progressHook{w: w, max: max}
}

func (h *progressHook) OnBeforeInvoke(_ context.Context, sess *session.Session, skill string) {
	fmt.Fprintf(h.w, "%s %s %s\n",
		styles.Muted.Render(fmt.Sprintf("[%d/%d]", sess.Iteration+1, h.max)),
		styles.Phase.Render(strings.ToUpper(sess.Phase)),
		styles.Muted.Render(skill+" thinking..."))
}

func (h *progressHook) OnAfterInvoke(_ context.Context, _ *session.Session, _ string, output string, err error) {
	if err != nil {
		return
	}
	fmt.Fprintln(h.w, strings.TrimSpace(output))
	fmt.Fprintln(h.w)
}

func (h *progressHook) OnTransition(_ context.Context, _ *session.Session, out phase.Outcome) {
	fmt.Fprintln(h.w, styles.Success.Render(fmt.Sprintf("phase complete: %s -> %s",
		strings.ToUpper(out.From), strings.ToUpper(out.To))))
}
