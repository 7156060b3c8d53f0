package tui

import (
	"testing"

	"github.com/charmbracelet/lipgloss"

	"github.com/examai/pipeline-console/internal/status"
)

func TestSeverityColor_Distinct(t *testing.T) {
	seen := map[lipgloss.TerminalColor]status.Severity{}
	for _, s := range []status.Severity{status.Info, status.InProgress, status.Succeeded, status.Failure} {
		c := severityColor(s)
		if prev, ok := seen[c]; ok {
			t.Fatalf("severity %v shares a color with %v", s, prev)
		}
		seen[c] = s
	}
	var muted lipgloss.TerminalColor = consoleMuted
	if got := severityColor(status.Neutral); got != muted {
		t.Fatalf("neutral should be muted, got %v", got)
	}
}

func TestRenderBadge_KeepsLabel(t *testing.T) {
	for _, raw := range []string{"queued", "RUNNING", "cancelled_by_admin"} {
		if got := lipgloss.NewStyle().Render(renderBadge(raw)); !containsPlain(got, raw) {
			t.Fatalf("badge for %q lost its label: %q", raw, got)
		}
	}
	if got := renderBadge(""); !containsPlain(got, "-") {
		t.Fatalf("empty status should render a dash, got %q", got)
	}
}

func TestMinimalTableStyles_SelectedIsTypographic(t *testing.T) {
	s := minimalTableStyles()
	if !s.Selected.GetBold() || !s.Selected.GetUnderline() {
		t.Fatalf("expected bold+underline selection")
	}
	var noColor lipgloss.TerminalColor = lipgloss.NoColor{}
	if got := s.Selected.GetBackground(); got != noColor {
		t.Fatalf("expected no selection background, got %v", got)
	}
}
