package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	units "github.com/docker/go-units"
	"github.com/spf13/cobra"

	"github.com/Avacaato/loop-orchestration/internal/journal"
	"github.com/Avacaato/loop-orchestration/internal/providers"
	"github.com/Avacaato/loop-orchestration/internal/session"
)

// withApp loads the configuration and stores before running fn.
func withApp(fn func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd, args, a)
	}
}

func newStartCmd() *cobra.Command {
	var project string
	var interactive bool

	cmd := &cobra.Command{
		Use:   "start [task description]",
		Short: "Start a new session for a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			root, err := filepath.Abs(project)
			if err != nil {
				return fmt.Errorf("failed to resolve project path: %w", err)
			}
			if info, err := os.Stat(root); err != nil || !info.IsDir() {
				return fmt.Errorf("project path is not a directory: %s", root)
			}

			sess, err := a.store.Create(strings.Join(args, " "), root)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, styles.Title.Render("session ")+sess.ID)
			fmt.Fprintln(out, styles.Muted.Render("project "+root))
			fmt.Fprintln(out)
			return runLoop(cmd.Context(), a, sess, cmd.InOrStdin(), out, interactive)
		}),
	}
	cmd.Flags().StringVarP(&project, "project", "p", ".", "project directory the session works in")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "answer questions inline instead of exiting")
	return cmd
}

func newResumeCmd() *cobra.Command {
	var input, phaseName string
	var interactive bool

	cmd := &cobra.Command{
		Use:   "resume <session-id>",
		Short: "Resume a stopped session",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			sess, err := a.store.Load(args[0])
			if err != nil {
				return err
			}
			if phaseName != "" {
				if err := overridePhase(cmd, a, sess, phaseName, "phase set on resume"); err != nil {
					return err
				}
			}
			eng, err := a.newEngine(sess)
			if err != nil {
				return err
			}
			if err := eng.Resume(sess, input); err != nil {
				return fmt.Errorf("cannot resume %s: %w (use --phase to reopen it)", sess.ID, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s in %s at iteration %d\n\n",
				styles.Title.Render("resuming"), sess.ID, styles.Phase.Render(strings.ToUpper(sess.Phase)), sess.Iteration)
			return runLoop(cmd.Context(), a, sess, cmd.InOrStdin(), cmd.OutOrStdout(), interactive)
		}),
	}
	cmd.Flags().StringVar(&input, "input", "", "answer or instruction sent as the next prompt")
	cmd.Flags().StringVar(&phaseName, "phase", "", "switch to this phase before resuming")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "answer questions inline instead of exiting")
	return cmd
}

func newListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions, most recently updated first",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			sums, err := a.store.List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(sums) == 0 {
				fmt.Fprintln(out, styles.Muted.Render("no sessions yet, create one with: loop start \"task\""))
				return nil
			}
			if limit > 0 && len(sums) > limit {
				sums = sums[:limit]
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tPHASE\tSTATUS\tITER\tUPDATED\tTASK")
			for _, s := range sums {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
					s.ID, s.Phase, s.Status, s.Iteration, ago(s.UpdatedAt), truncate(s.Task, 50))
			}
			return tw.Flush()
		}),
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of sessions to show (0 for all)")
	return cmd
}

func newShowCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show a session's state, outputs and transitions",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			sess, err := a.store.Load(args[0])
			if err != nil {
				return err
			}
			renderSession(cmd.OutOrStdout(), a, sess, verbose)
			return nil
		}),
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "include the last messages and full outputs")
	return cmd
}

func newDeleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a session",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			id := args[0]
			if !force {
				fmt.Fprintf(cmd.OutOrStdout(), "delete session %s? [y/N] ", id)
				answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if ans := strings.ToLower(strings.TrimSpace(answer)); ans != "y" && ans != "yes" {
					fmt.Fprintln(cmd.OutOrStdout(), "cancelled")
					return nil
				}
			}
			if err := a.store.Delete(id); err != nil {
				return err
			}
			if a.journal != nil {
				if err := a.journal.Delete(cmd.Context(), id); err != nil {
					a.logger.Warn("failed to delete journal rows", "session", id, "error", err)
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), styles.Success.Render("deleted ")+id)
			return nil
		}),
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip the confirmation prompt")
	return cmd
}

func newOverrideCmd() *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "override <session-id> <phase>",
		Short: "Move a session to any phase",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			sess, err := a.store.Load(args[0])
			if err != nil {
				return err
			}
			if err := overridePhase(cmd, a, sess, strings.ToLower(args[1]), reason); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s now in %s, run: loop resume %s\n",
				sess.ID, styles.Phase.Render(strings.ToUpper(sess.Phase)), sess.ID)
			return nil
		}),
	}
	cmd.Flags().StringVar(&reason, "reason", "manual override", "reason recorded with the transition")
	return cmd
}

// overridePhase moves sess to phaseName, saves it and journals the change.
func overridePhase(cmd *cobra.Command, a *app, sess *session.Session, phaseName, reason string) error {
	out, err := a.manager.Override(sess, phaseName, reason)
	if err != nil {
		return err
	}
	if err := a.store.Save(sess); err != nil {
		return err
	}
	if a.journal != nil {
		err := a.journal.RecordTransition(cmd.Context(), journal.TransitionRecord{
			SessionID: sess.ID,
			Iteration: sess.Iteration,
			From:      out.From,
			To:        out.To,
			Reason:    reason,
			Manual:    true,
			At:        time.Now().UTC(),
		})
		if err != nil {
			a.logger.Warn("journal write failed", "session", sess.ID, "error", err)
		}
	}
	return nil
}

func newReviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "review <session-id>",
		Short: "Run the code reviewer against a session's project",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			sess, err := a.store.Load(args[0])
			if err != nil {
				return err
			}
			d, err := a.dispatcher(sess)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), styles.Muted.Render("reviewing "+sess.ProjectRoot+"..."))
			output, err := d.Invoke(cmd.Context(), d.Review(), sess)
			if err != nil {
				return err
			}
			if err := a.store.Save(sess); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), output)
			return nil
		}),
	}
}

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <session-id>",
		Short: "Follow a session's progress from another terminal",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			updates, err := a.store.Watch(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for s := range updates {
				fmt.Fprintf(out, "%s iteration %d  %s  %s\n",
					styles.Muted.Render(s.UpdatedAt.Local().Format("15:04:05")),
					s.Iteration, styles.Phase.Render(strings.ToUpper(s.Phase)), s.Status)
			}
			return nil
		}),
	}
}

func newHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <session-id>",
		Short: "Show the journal of committed iterations and transitions",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			if a.journal == nil {
				return errors.New("the journal is disabled (set journal_path in the config)")
			}
			ctx := cmd.Context()
			its, err := a.journal.Iterations(ctx, args[0])
			if err != nil {
				return err
			}
			trs, err := a.journal.Transitions(ctx, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ITER\tPHASE\tSKILL\tVERDICT\tSTATUS\tOUTPUT\tAT")
			for _, r := range its {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n", r.Iteration, r.Phase, r.Skill, r.Verdict,
					r.Status, units.HumanSize(float64(r.OutputSize)), r.At.Local().Format(time.DateTime))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if len(trs) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, styles.Label.Render("transitions"))
				for _, r := range trs {
					kind := "auto"
					if r.Manual {
						kind = "manual"
					}
					fmt.Fprintf(out, "  %d  %s -> %s (%s) %s\n", r.Iteration, r.From, r.To, kind, r.Reason)
				}
			}
			return nil
		}),
	}
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the configured model endpoint is reachable",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			h := providers.Check(cmd.Context(), a.cfg)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s (%s) model %s\n", styles.Label.Render("provider"), h.Provider, h.Endpoint, h.Model)
			if !h.OK() {
				fmt.Fprintln(out, styles.Error.Render("✗ ")+h.Message)
				return errors.New("health check failed")
			}
			fmt.Fprintln(out, styles.Success.Render("✓ ")+h.Message)
			return nil
		}),
	}
}

