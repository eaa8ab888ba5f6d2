// Command loop drives an LLM through a structured development workflow:
// requirements, stories, research, planning, implementation and
// refactoring, with every iteration saved to disk.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Avacaato/loop-orchestration/internal/engine"
	"github.com/Avacaato/loop-orchestration/internal/session"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		printError(os.Stderr, err)
	}
	os.Exit(exitCode(err))
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "loop",
		Short: "Run a phased, resumable LLM development workflow",
		Long: `loop drives a language model through PRD, TICKETS, RESEARCH, PLANNING,
IMPLEMENTATION and REFACTORING. Every iteration is committed to disk, so a
session can be stopped at any point and resumed later.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newStartCmd(),
		newResumeCmd(),
		newListCmd(),
		newShowCmd(),
		newDeleteCmd(),
		newOverrideCmd(),
		newReviewCmd(),
		newWatchCmd(),
		newHistoryCmd(),
		newHealthCmd(),
	)
	return root
}

// exitCode maps loop outcomes to process exit codes.
// printError reports a command failure, with recovery steps when the
// session on disk cannot be used.
func printError(w io.Writer, err error) {
	fmt.Fprintln(w, styles.Error.Render("error: ")+err.Error())
	var corrupted *session.CorruptedError
	if errors.As(err, &corrupted) {
		fmt.Fprintln(w, corrupted.Hint())
	}
}

func exitCode(err error) int {
	var budget *engine.BudgetExceededError
	var interrupted *engine.InterruptedError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &interrupted):
		return 130
	case errors.As(err, &budget):
		return 2
	default:
		return 1
	}
}
