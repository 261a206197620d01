package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/kalambet/pursuit/internal/analytics"
	"github.com/kalambet/pursuit/internal/dashboard"
)

var (
	red    = lipgloss.Color("#f38ba8")
	green  = lipgloss.Color("#a6e3a1")
	yellow = lipgloss.Color("#f9e2af")
	cyan   = lipgloss.Color("#89dceb")
	muted  = lipgloss.Color("#a6adc8")
	border = lipgloss.Color("#45475a")

	successStyle = lipgloss.NewStyle().Foreground(green)
	errorStyle   = lipgloss.NewStyle().Foreground(red)
	warningStyle = lipgloss.NewStyle().Foreground(yellow)
	stepStyle    = lipgloss.NewStyle().Foreground(cyan)
	labelStyle   = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted)
	titleStyle   = lipgloss.NewStyle().Foreground(cyan).Bold(true)
	hotStyle     = lipgloss.NewStyle().Foreground(yellow).Bold(true)

	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	headerStyle = labelStyle.Padding(0, 1)
	idStyle     = mutedStyle.Padding(0, 1)

	paneStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Padding(0, 1)
)

// render applies st unless --no-color is set.
func render(st lipgloss.Style, text string) string {
	if noColor {
		return text
	}
	return st.Render(text)
}

// renderTable lays rows out under headers inside the same rounded border
// as the dashboard panes.
func renderTable(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers(headers...).
		Rows(rows...)
	if noColor {
		return t.StyleFunc(func(row, col int) lipgloss.Style { return cellStyle }).String()
	}
	return t.
		BorderStyle(lipgloss.NewStyle().Foreground(border)).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0:
				return idStyle
			}
			return cellStyle
		}).
		String()
}

func printTable(headers []string, rows [][]string) {
	fmt.Println(renderTable(headers, rows))
}

func printSuccess(format string, args ...any) {
	fmt.Fprintln(os.Stderr, render(successStyle, "✓ "+fmt.Sprintf(format, args...)))
}

func printError(format string, args ...any) {
	fmt.Fprintln(os.Stderr, render(errorStyle, "✗ "+fmt.Sprintf(format, args...)))
}

func printWarning(format string, args ...any) {
	fmt.Fprintln(os.Stderr, render(warningStyle, "⚠ "+fmt.Sprintf(format, args...)))
}

func printStep(format string, args ...any) {
	fmt.Fprintln(os.Stderr, render(stepStyle, "→ "+fmt.Sprintf(format, args...)))
}

func printStatus(label string, format string, args ...any) {
	fmt.Fprintf(os.Stderr, "  %s %s\n", render(labelStyle, label+":"), fmt.Sprintf(format, args...))
}

func percent(r float64) string {
	return fmt.Sprintf("%.1f%%", r*100)
}

// progressBar draws p (0..1, clamped) as a bar width cells wide.
func progressBar(p float64, width int) string {
	p = min(max(p, 0), 1)
	filled := int(p*float64(width) + 0.5)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func streakLine(days int) string {
	if days == 0 {
		return render(mutedStyle, "no streak")
	}
	unit := "days"
	if days == 1 {
		unit = "day"
	}
	return render(hotStyle, fmt.Sprintf("🔥 %d %s", days, unit))
}

func goalLine(g analytics.WeeklyProgress) string {
	line := fmt.Sprintf("%s %d/%d", progressBar(g.Progress, 20), g.Current, g.Target)
	if g.Target > 0 && g.Current >= g.Target {
		line += " " + render(successStyle, "done")
	}
	return line
}

func pane(title string, lines ...string) string {
	body := render(titleStyle, title) + "\n" + strings.Join(lines, "\n")
	if noColor {
		return body
	}
	return paneStyle.Render(body)
}

func row(label, value string) string {
	return fmt.Sprintf("%-18s %s", render(labelStyle, label), value)
}

// renderDashboard lays the jobs and dealflow panes side by side above the
// combined totals.
func renderDashboard(s dashboard.Stats) string {
	apps := s.Jobs.Applications
	jobs := pane("Job search",
		row("Streak", streakLine(s.Jobs.Streak)),
		row("This week", goalLine(s.Jobs.WeeklyGoal)),
		row("Last 7 days", fmt.Sprintf("%d", s.Jobs.ActivityLast7Days)),
		row("Applications", fmt.Sprintf("%d", apps.Total)),
		row("Response rate", percent(apps.ResponseRate)),
		row("Interview rate", percent(apps.InterviewRate)),
		row("Offer rate", percent(apps.OfferRate)),
		row("Follow-ups due", fmt.Sprintf("%d", s.Jobs.UpcomingFollowUps)),
	)

	pipe := s.Dealflow.Pipeline
	conv := pipe.ConversionRates
	deals := pane("Dealflow",
		row("Streak", streakLine(s.Dealflow.Streak)),
		row("This week", goalLine(s.Dealflow.WeeklyGoal)),
		row("Last 7 days", fmt.Sprintf("%d", s.Dealflow.ActivityLast7Days)),
		row("Tracked", fmt.Sprintf("%d", pipe.Total)),
		row("Sourced→contacted", percent(conv.SourcedToContacted)),
		row("Contacted→meeting", percent(conv.ContactedToMeeting)),
		row("Meeting→shared", percent(conv.MeetingToShared)),
		row("Intros made", fmt.Sprintf("%d", pipe.NetworkGrowth.IntrosMade)),
	)

	combined := render(mutedStyle, fmt.Sprintf("%s  ·  combined streak ", s.Today)) +
		streakLine(s.Combined.Streak) +
		render(mutedStyle, fmt.Sprintf("  ·  %d actions in the last 7 days", s.Combined.TotalActivityLast7Days))

	if noColor {
		return jobs + "\n\n" + deals + "\n\n" + combined
	}
	return lipgloss.JoinVertical(lipgloss.Left, lipgloss.JoinHorizontal(lipgloss.Top, jobs, " ", deals), combined)
}

// summaryLine is the one-line form of the dashboard for shell prompts.
func summaryLine(s dashboard.Stats) string {
	return fmt.Sprintf("jobs %d/%d (streak %d) · dealflow %d/%d (streak %d) · combined streak %d",
		s.Jobs.WeeklyGoal.Current, s.Jobs.WeeklyGoal.Target, s.Jobs.Streak,
		s.Dealflow.WeeklyGoal.Current, s.Dealflow.WeeklyGoal.Target, s.Dealflow.Streak,
		s.Combined.Streak)
}
