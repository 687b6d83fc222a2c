// Package console prints run results to a terminal.
package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/viant/wtr/runtime/session"
	"github.com/viant/wtr/service/orchestrator"
	"github.com/viant/wtr/service/reporter"
)

// Name identifies the console reporter in configuration.
const Name = "console"

// Option customises the reporter.
type Option func(r *Reporter)

// WithWriter sets the output; defaults to stdout.
func WithWriter(w io.Writer) Option {
	return func(r *Reporter) { r.out = w }
}

// WithSessions prints a line for every session as it completes.
func WithSessions(enabled bool) Option {
	return func(r *Reporter) { r.sessions = enabled }
}

// Reporter writes a styled summary of every completed cycle.
type Reporter struct {
	out      io.Writer
	sessions bool
	mu       sync.Mutex

	passStyle  lipgloss.Style
	failStyle  lipgloss.Style
	stopStyle  lipgloss.Style
	dimStyle   lipgloss.Style
	boldStyle  lipgloss.Style
	titleStyle lipgloss.Style
}

var (
	_ reporter.Reporter        = (*Reporter)(nil)
	_ reporter.SessionReporter = (*Reporter)(nil)
)

// New creates a console reporter.
func New(opts ...Option) *Reporter {
	ret := &Reporter{out: os.Stdout}
	for _, opt := range opts {
		opt(ret)
	}
	renderer := lipgloss.NewRenderer(ret.out)
	ret.passStyle = renderer.NewStyle().
		Foreground(lipgloss.AdaptiveColor{Light: "#008000", Dark: "#55FF55"})
	ret.failStyle = renderer.NewStyle().
		Foreground(lipgloss.AdaptiveColor{Light: "#D00000", Dark: "#FF5555"}).
		Bold(true)
	ret.stopStyle = renderer.NewStyle().
		Foreground(lipgloss.AdaptiveColor{Light: "#B8860B", Dark: "#FFAA00"})
	ret.dimStyle = renderer.NewStyle().
		Foreground(lipgloss.AdaptiveColor{Light: "#666666", Dark: "#888888"})
	ret.boldStyle = renderer.NewStyle().Bold(true)
	ret.titleStyle = renderer.NewStyle().Bold(true).Underline(true)
	return ret
}

// Name returns the reporter name.
func (r *Reporter) Name() string { return Name }

// ReportSession prints a one line outcome when session lines are enabled.
func (r *Reporter) ReportSession(_ context.Context, aSession *session.Session) error {
	if !r.sessions || aSession == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := fmt.Fprintln(r.out, r.sessionLine(aSession))
	return err
}

// Report prints failures, per launcher counts and totals.
func (r *Reporter) Report(_ context.Context, summary *orchestrator.Summary) error {
	if summary == nil {
		return nil
	}
	var b strings.Builder
	b.WriteString(r.titleStyle.Render(fmt.Sprintf("Run %s", summary.RunID)))
	if summary.Cycle > 1 {
		b.WriteString(r.dimStyle.Render(fmt.Sprintf(" (cycle %d)", summary.Cycle)))
	}
	b.WriteString("\n")

	for _, aSession := range summary.Sessions {
		if aSession.Status != session.StatusFailed {
			continue
		}
		b.WriteString(r.sessionLine(aSession))
		b.WriteString("\n")
		for _, sessionErr := range aSession.Errors {
			b.WriteString("    ")
			b.WriteString(r.failStyle.Render(sessionErr.Error()))
			b.WriteString("\n")
		}
		for _, result := range aSession.TestResults {
			if !result.Failed() {
				continue
			}
			b.WriteString("    ")
			b.WriteString(r.failStyle.Render("✗ " + result.Name))
			if result.Error != nil {
				b.WriteString(r.dimStyle.Render(": " + result.Error.Message))
			}
			b.WriteString("\n")
		}
	}

	launchers := make([]string, 0, len(summary.PerLauncher))
	for name := range summary.PerLauncher {
		launchers = append(launchers, name)
	}
	sort.Strings(launchers)
	for _, name := range launchers {
		counts := summary.PerLauncher[name]
		b.WriteString(r.boldStyle.Render(name))
		b.WriteString(": ")
		b.WriteString(r.counts(counts))
		b.WriteString("\n")
	}

	b.WriteString(r.boldStyle.Render("Sessions"))
	b.WriteString(": ")
	b.WriteString(r.counts(&summary.Counts))
	b.WriteString("\n")
	b.WriteString(r.boldStyle.Render("Tests"))
	b.WriteString(fmt.Sprintf(": %d passed, %d failed, %d skipped\n", summary.Tests.Passed, summary.Tests.Failed, summary.Tests.Skipped))
	b.WriteString(r.dimStyle.Render(fmt.Sprintf("Finished in %s", summary.Duration.Round(time.Millisecond))))
	b.WriteString("\n")
	if summary.Interrupted {
		b.WriteString(r.stopStyle.Render("Run was stopped before completion"))
		b.WriteString("\n")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := io.WriteString(r.out, b.String())
	return err
}

func (r *Reporter) counts(c *orchestrator.Counts) string {
	parts := []string{
		r.passStyle.Render(fmt.Sprintf("%d passed", c.Passed)),
	}
	if c.Failed > 0 {
		parts = append(parts, r.failStyle.Render(fmt.Sprintf("%d failed", c.Failed)))
	} else {
		parts = append(parts, fmt.Sprintf("%d failed", c.Failed))
	}
	if c.Stopped > 0 {
		parts = append(parts, r.stopStyle.Render(fmt.Sprintf("%d stopped", c.Stopped)))
	}
	return strings.Join(parts, ", ") + fmt.Sprintf(" (%d total)", c.Total)
}

func (r *Reporter) sessionLine(aSession *session.Session) string {
	label := fmt.Sprintf("%s [%s]", aSession.TestFile, aSession.LauncherID)
	if aSession.RetryCount > 0 {
		label += r.dimStyle.Render(fmt.Sprintf(" retry %d", aSession.RetryCount))
	}
	switch aSession.Status {
	case session.StatusFinished:
		return r.passStyle.Render("✓ ") + label
	case session.StatusFailed:
		line := r.failStyle.Render("✗ ") + label
		if failure := aSession.Failure(); failure != nil {
			line += r.dimStyle.Render(" " + string(failure.Kind))
		}
		return line
	case session.StatusStopped:
		return r.stopStyle.Render("- ") + label + r.dimStyle.Render(" stopped")
	}
	return r.dimStyle.Render("· ") + label + r.dimStyle.Render(" "+string(aSession.Status))
}
