package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	units "github.com/docker/go-units"

	"github.com/Avacaato/loop-orchestration/internal/session"
	"github.com/Avacaato/loop-orchestration/internal/skills"
)

const (
	recentMessages = 10
	outputPreview  = 300
)

func renderSession(out io.Writer, a *app, sess *session.Session, verbose bool) {
	reg := a.manager.Registry()
	header := fmt.Sprintf("%s\n%s %s\n%s %s (%d/%d)\n%s %s\n%s %d of %d\n%s %s",
		styles.Title.Render(truncate(sess.Task, 70)),
		styles.Label.Render("id:       "), sess.ID,
		styles.Label.Render("phase:    "), strings.ToUpper(sess.Phase), reg.Position(sess.Phase), reg.Len(),
		styles.Label.Render("status:   "), statusText(sess),
		styles.Label.Render("iteration:"), sess.Iteration, a.cfg.MaxIterations,
		styles.Label.Render("project:  "), sess.ProjectRoot)
	fmt.Fprintln(out, styles.Box.Render(header))

	if len(sess.Transitions) > 0 {
		fmt.Fprintln(out, styles.Label.Render("\ntransitions"))
		for _, t := range sess.Transitions {
			manual := ""
			if t.Manual {
				manual = " (manual)"
			}
			fmt.Fprintf(out, "  %s  %s -> %s%s: %s\n", t.At.Local().Format(time.DateTime), t.From, t.To, manual, t.Reason)
		}
	}

	if len(sess.PhaseOutputs) > 0 {
		fmt.Fprintln(out, styles.Label.Render("\nphase outputs"))
		for _, name := range reg.Names() {
			o, ok := sess.PhaseOutputs[name]
			if !ok {
				continue
			}
			content := o.Content
			if !verbose {
				content = truncate(content, outputPreview)
			}
			fmt.Fprintf(out, "  %s %s\n%s\n", styles.Phase.Render(strings.ToUpper(name)),
				styles.Muted.Render(fmt.Sprintf("(%s, iteration %d, %s)", o.Skill, o.Iteration, units.HumanSize(float64(len(o.Content))))),
				indent(content, "    "))
		}
	}

	if artifacts := artifactPaths(sess); len(artifacts) > 0 {
		fmt.Fprintln(out, styles.Label.Render("\nartifacts"))
		for _, p := range artifacts {
			fmt.Fprintf(out, "  %s\n", p)
		}
	}
	if review, ok := sess.Metadata[skills.MetaReviewLatest]; ok {
		fmt.Fprintln(out, styles.Label.Render("\nlatest review")+styles.Muted.Render(" (iteration "+sess.Metadata[skills.MetaReviewIteration]+")"))
		if !verbose {
			review = truncate(review, outputPreview)
		}
		fmt.Fprintln(out, indent(review, "  "))
	}

	if verbose && len(sess.History) > 0 {
		msgs := sess.History
		if len(msgs) > recentMessages {
			msgs = msgs[len(msgs)-recentMessages:]
		}
		fmt.Fprintln(out, styles.Label.Render(fmt.Sprintf("\nlast %d of %d messages", len(msgs), len(sess.History))))
		for _, m := range msgs {
			fmt.Fprintf(out, "  %s %s\n%s\n", styles.Phase.Render(string(m.Role)),
				styles.Muted.Render(fmt.Sprintf("[%s #%d]", m.Phase, m.Iteration)), indent(truncate(m.Content, 2*outputPreview), "    "))
		}
	}
	if sess.PendingInput != "" {
		fmt.Fprintln(out, styles.Label.Render("\nnext prompt"))
		fmt.Fprintln(out, indent(truncate(sess.PendingInput, outputPreview), "  "))
	}
}

func statusText(sess *session.Session) string {
	var s string
	switch sess.Status {
	case session.StatusCompleted:
		s = styles.Success.Render(string(sess.Status))
	case session.StatusFailed:
		s = styles.Error.Render(string(sess.Status))
	case session.StatusInterrupted:
		s = styles.Warning.Render(string(sess.Status))
	default:
		s = string(sess.Status)
	}
	if sess.StatusReason != "" {
		s += " " + styles.Muted.Render("("+truncate(sess.StatusReason, 60)+")")
	}
	return s
}

func artifactPaths(sess *session.Session) []string {
	var paths []string
	for k, v := range sess.Metadata {
		if strings.HasPrefix(k, skills.ArtifactKey("")) {
			paths = append(paths, v)
		}
	}
	sort.Strings(paths)
	return paths
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

// ago renders a time relative to now, e.g. "3 minutes ago".
func ago(t time.Time) string {
	return units.HumanDuration(time.Since(t)) + " ago"
}
