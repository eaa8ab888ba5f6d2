package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Avacaato/loop-orchestration/internal/engine"
	"github.com/Avacaato/loop-orchestration/internal/llm"
	"github.com/Avacaato/loop-orchestration/internal/session"
)

// runLoop runs sess to a stop. With interactive set, a pause for user
// input reads an answer from in and continues.
func runLoop(ctx context.Context, a *app, sess *session.Session, in io.Reader, out io.Writer, interactive bool) error {
	eng, err := a.newEngine(sess)
	if err != nil {
		return err
	}

	reader := bufio.NewReader(in)
	for {
		_, err := eng.RunUntilDone(ctx, sess)
		if err != nil {
			reportFailure(out, sess, err)
			return err
		}
		if sess.Status != session.StatusInterrupted || !interactive {
			reportStop(out, sess)
			return nil
		}

		fmt.Fprint(out, styles.Label.Render("you> "))
		answer, rerr := reader.ReadString('\n')
		answer = strings.TrimSpace(answer)
		if answer == "" {
			if rerr != nil || ctx.Err() != nil {
				reportStop(out, sess)
				return nil
			}
			continue
		}
		if err := eng.Resume(sess, answer); err != nil {
			return err
		}
	}
}

func reportStop(out io.Writer, sess *session.Session) {
	switch sess.Status {
	case session.StatusCompleted:
		fmt.Fprintln(out, styles.Success.Render("✓ session completed: ")+sess.StatusReason)
	case session.StatusInterrupted:
		fmt.Fprintln(out, styles.Warning.Render("paused: ")+sess.StatusReason)
		fmt.Fprintf(out, "answer with: loop resume %s --input \"...\"\n", sess.ID)
	default:
		fmt.Fprintf(out, "session %s is %s\n", sess.ID, sess.Status)
	}
}

func reportFailure(out io.Writer, sess *session.Session, err error) {
	var (
		budget      *engine.BudgetExceededError
		interrupted *engine.InterruptedError
		transport   *llm.TransportError
		persistence *session.PersistenceError
	)
	switch {
	case errors.As(err, &budget):
		fmt.Fprintln(out, styles.Warning.Render(fmt.Sprintf("stopped after %d iterations (budget exhausted)", budget.Max)))
		fmt.Fprintf(out, "raise max_iterations and run: loop resume %s\n", sess.ID)
	case errors.As(err, &interrupted):
		fmt.Fprintln(out, styles.Warning.Render("interrupted, progress saved"))
		fmt.Fprintf(out, "continue with: loop resume %s\n", sess.ID)
	case errors.As(err, &transport):
		fmt.Fprintln(out, styles.Error.Render("model call failed: ")+transport.Error())
		switch transport.Kind {
		case llm.KindUnreachable:
			fmt.Fprintln(out, "is the model server running? try: loop health")
		case llm.KindModelNotFound:
			fmt.Fprintf(out, "pull the model first, e.g. ollama pull %s\n", transport.Model)
		}
		fmt.Fprintf(out, "once fixed, run: loop resume %s\n", sess.ID)
	case errors.As(err, &persistence):
		fmt.Fprintln(out, styles.Error.Render("could not save session: ")+persistence.Hint)
	}
}
