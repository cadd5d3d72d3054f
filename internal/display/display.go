// Package display renders the dashboard for the terminal commands.
package display

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"meal-dashboard/internal/chat"
	"meal-dashboard/internal/metrics"
	"meal-dashboard/internal/planner"
)

const columnWidth = 24

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#bbf7d0"))

	dayStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#52525b")).
			Width(columnWidth).
			Padding(0, 1)

	dayNameStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#d4d4d8"))

	mealStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#bae6fd"))

	emptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#71717a")).
			Italic(true)

	statStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fde68a"))

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#a1a1aa"))

	botStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#bae6fd"))
)

// RenderWeek draws the seven days side by side followed by the weekly stats.
func RenderWeek(label string, days []planner.DayView, stats planner.Stats) string {
	columns := make([]string, 0, len(days))
	for _, d := range days {
		columns = append(columns, renderDay(d))
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(label))
	b.WriteByte('\n')
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, columns...))
	b.WriteByte('\n')
	b.WriteString(RenderStats(stats))
	b.WriteByte('\n')
	return b.String()
}

func renderDay(d planner.DayView) string {
	lines := []string{
		dayNameStyle.Render(fmt.Sprintf("%s %s", d.DayName, d.DayMonth)),
		"",
	}
	lines = append(lines, renderSlot(d.Lunch)...)
	lines = append(lines, "")
	lines = append(lines, renderSlot(d.Dinner)...)
	return dayStyle.Render(strings.Join(lines, "\n"))
}

func renderSlot(s planner.Slot) []string {
	if s.Empty() {
		return []string{emptyStyle.Render(s.Label), emptyStyle.Render("Aucun repas")}
	}
	return []string{
		mealStyle.Render("🍽️ " + s.Label),
		s.Recipe.DisplayName(),
		fmt.Sprintf("%d kcal · %dg prot", s.Recipe.RoundedCalories(), s.Recipe.RoundedProtein()),
	}
}

// RenderStats formats the weekly averages on one line.
func RenderStats(s planner.Stats) string {
	return statStyle.Render(fmt.Sprintf("Moyenne: %d kcal/jour · %dg protéines/jour · %d repas planifiés",
		s.AvgCaloriesPerDay, s.AvgProteinPerDay, s.PlannedMeals))
}

// RenderTranscript prints one line per chat message, oldest first.
func RenderTranscript(msgs []chat.Message) string {
	var b strings.Builder
	for _, m := range msgs {
		stamp := m.Time.Format("15:04")
		if m.Sender == chat.User {
			b.WriteString(userStyle.Render(fmt.Sprintf("%s  vous  %s", stamp, m.Text)))
		} else {
			b.WriteString(botStyle.Render(fmt.Sprintf("%s  bot   %s", stamp, m.Text)))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// RenderUsage lists the daily adapter call totals.
func RenderUsage(usage []metrics.DailyUsage) string {
	if len(usage) == 0 {
		return emptyStyle.Render("No calls recorded.") + "\n"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%-12s %-10s %6s %9s %12s", "DATE", "ADAPTER", "CALLS", "FAILURES", "AVG LATENCY")))
	b.WriteByte('\n')
	for _, u := range usage {
		fmt.Fprintf(&b, "%-12s %-10s %6d %9d %10.0fms\n", u.Date, u.Adapter, u.Calls, u.Failures, u.AvgLatencyMS)
	}
	return b.String()
}
