package viz

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/san-kum/fieldprop/internal/driver"
	"github.com/san-kum/fieldprop/internal/experiment"
	"github.com/san-kum/fieldprop/internal/storage"
)

func line(label string, format string, args ...any) string {
	return MetricLabel.Render(fmt.Sprintf("%-14s", label)) + " " + MetricValue.Render(fmt.Sprintf(format, args...))
}

// StatsPanel renders the counters of one driver.
func StatsPanel(title string, st driver.Stats) string {
	lines := []string{
		Title.Render(title),
		line("calls", "%d", st.Calls),
		line("steps", "%d good, %d bad, %d small", st.GoodSteps, st.BadSteps, st.SmallSteps),
		line("integrations", "%d full, %d unchecked", st.FullIntegrations, st.SmallIntegrations),
		line("exhausted", "%d", st.Exhausted),
		line("non-converged", "%d", st.NonConverged),
		line("warnings", "%d", st.Warnings),
		line("dyerr max", "%.3g", st.DyerrMax),
	}
	return Panel.Render(strings.Join(lines, "\n"))
}

// RunSummary renders the outcome of a stored run.
func RunSummary(meta *storage.RunMetadata, reached float64) string {
	lines := []string{
		Title.Render("run " + meta.ID),
		line("stepper", "%s (%s driver)", meta.Stepper, meta.Driver),
		line("field", "%s", meta.Field),
		line("tolerance", "%g", meta.Tolerance),
		line("length", "%g / %g mm", reached, meta.Length),
		line("evaluations", "%d", meta.Evaluations),
		line("elapsed", "%v", meta.Elapsed),
		line("status", "%s", Status(meta.Ok)),
	}
	if meta.Length > 0 {
		lines = append(lines, ProgressBar(reached/meta.Length, 40))
	}

	names := make([]string, 0, len(meta.Metrics))
	for name := range meta.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		lines = append(lines, line(name, "%.4g", meta.Metrics[name]))
	}
	return Panel.Render(strings.Join(lines, "\n"))
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(Subtle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return HeaderStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers(headers...)
}

// RunTable lists stored runs.
func RunTable(runs []storage.RunMetadata) string {
	t := newTable("ID", "TIME", "STEPPER", "DRIVER", "FIELD", "LENGTH", "TOL", "STATUS")
	for _, r := range runs {
		t.Row(
			r.ID,
			r.Timestamp.Format("2006-01-02 15:04:05"),
			r.Stepper,
			r.Driver,
			r.Field,
			fmt.Sprintf("%g", r.Length),
			fmt.Sprintf("%g", r.Tolerance),
			Status(r.Ok),
		)
	}
	return t.String()
}

// CompareTable renders one row per compared stepper.
func CompareTable(outcomes []experiment.Outcome) string {
	t := newTable("STEPPER", "STATUS", "LENGTH", "Δpos (mm)", "Δp/p", "STEPS", "EVALS", "TIME")
	for _, o := range outcomes {
		t.Row(
			o.Name,
			Status(o.Ok),
			fmt.Sprintf("%.6g", o.Track.CurveLength),
			fmt.Sprintf("%.3e", o.Deviation.Position),
			fmt.Sprintf("%.3e", o.Deviation.Momentum),
			fmt.Sprintf("%d", o.Stats.GoodSteps+o.Stats.SmallSteps),
			fmt.Sprintf("%d", o.Evaluations),
			o.Elapsed.Round(time.Microsecond).String(),
		)
	}
	return t.String()
}
