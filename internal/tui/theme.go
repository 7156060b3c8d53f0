package tui

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/examai/pipeline-console/internal/status"
)

// Adaptive so the console stays readable on light and dark terminals.
var (
	consoleText   = lipgloss.AdaptiveColor{Light: "#1f2933", Dark: "#f5f7fa"}
	consoleMuted  = lipgloss.AdaptiveColor{Light: "#616e7c", Dark: "#cbd2d9"}
	consoleBorder = lipgloss.AdaptiveColor{Light: "#616e7c", Dark: "#9aa5b1"}
	consoleAccent = lipgloss.AdaptiveColor{Light: "#3949ab", Dark: "#7986cb"}
	consoleDanger = lipgloss.AdaptiveColor{Light: "#b71c1c", Dark: "#ef5350"}

	// Status badge colors: queued amber, running blue, success green, failed red.
	badgeQueued  = lipgloss.AdaptiveColor{Light: "#b45309", Dark: "#fbbf24"}
	badgeRunning = lipgloss.AdaptiveColor{Light: "#1d4ed8", Dark: "#60a5fa"}
	badgeSuccess = lipgloss.AdaptiveColor{Light: "#15803d", Dark: "#4ade80"}
	badgeFailed  = lipgloss.AdaptiveColor{Light: "#b91c1c", Dark: "#f87171"}
)

func severityColor(s status.Severity) lipgloss.TerminalColor {
	switch s {
	case status.Info:
		return badgeQueued
	case status.InProgress:
		return badgeRunning
	case status.Succeeded:
		return badgeSuccess
	case status.Failure:
		return badgeFailed
	default:
		return consoleMuted
	}
}

// renderBadge renders a status with its severity color. The label is shown
// exactly as the backend sent it.
func renderBadge(raw string) string {
	b := status.Classify(raw)
	label := cmpOrDash(b.Label)
	st := lipgloss.NewStyle().Foreground(severityColor(b.Severity))
	if b.Severity == status.Failure {
		st = st.Bold(true)
	}
	return st.Render(label)
}

func minimalTableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = lipgloss.NewStyle().Foreground(consoleMuted).Faint(true).Padding(0, 1)
	s.Cell = lipgloss.NewStyle().Padding(0, 1)
	// Typographic emphasis rather than color blocks.
	s.Selected = lipgloss.NewStyle().Bold(true).Underline(true)
	return s
}

func faintIfDark(s lipgloss.Style) lipgloss.Style {
	if lipgloss.HasDarkBackground() {
		return s.Faint(true)
	}
	return s
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(consoleText)
	mutedStyle  = lipgloss.NewStyle().Foreground(consoleMuted)
	accentStyle = lipgloss.NewStyle().Foreground(consoleAccent)
	errorStyle  = lipgloss.NewStyle().Foreground(consoleDanger).Bold(true)
	cardStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(consoleBorder).
			Padding(0, 1)
)
