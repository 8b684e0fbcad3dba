package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/zulandar/mentortrack/internal/progress"
)

var statusColors = map[progress.Status]lipgloss.Color{
	progress.StatusGood:      lipgloss.Color("2"),
	progress.StatusWarning:   lipgloss.Color("3"),
	progress.StatusDanger:    lipgloss.Color("1"),
	progress.StatusCompleted: lipgloss.Color("4"),
	progress.StatusCancelled: lipgloss.Color("8"),
	progress.StatusUnknown:   lipgloss.Color("8"),
}

// statusBadge renders a status label colored by severity. Colors are dropped
// automatically when the output is not a terminal.
func statusBadge(s progress.Status) string {
	style := lipgloss.NewStyle().Bold(true)
	if c, ok := statusColors[s]; ok {
		style = style.Foreground(c)
	}
	return style.Render(strings.ToUpper(string(s)))
}

// stageBar renders pipeline position as filled and empty cells.
func stageBar(s progress.Stage) string {
	idx := s.Index()
	if idx < 0 {
		return strings.Repeat("·", len(progress.Pipeline))
	}
	done := lipgloss.NewStyle().Foreground(lipgloss.Color("4")).Render(strings.Repeat("■", idx+1))
	return done + strings.Repeat("□", len(progress.Pipeline)-idx-1)
}

func printSection(out io.Writer, title, body string) {
	if body == "" {
		return
	}
	fmt.Fprintf(out, "\n%s:\n  %s\n", title, strings.ReplaceAll(body, "\n", "\n  "))
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
