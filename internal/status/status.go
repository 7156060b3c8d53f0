// Package status maps run and step status strings onto display semantics.
package status

import "strings"

// Known statuses reported by the backend. Any other value is treated as
// forward-compatible and rendered neutrally.
const (
	Queued  = "queued"
	Running = "running"
	Success = "success"
	Failed  = "failed"
)

// Severity is the visual class a status renders with.
type Severity int

const (
	Neutral Severity = iota
	Info
	InProgress
	Succeeded
	Failure
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case InProgress:
		return "in-progress"
	case Succeeded:
		return "success"
	case Failure:
		return "failure"
	default:
		return "neutral"
	}
}

// Badge is the rendered form of a status. Label is always the original
// string, unmodified.
type Badge struct {
	Label    string
	Severity Severity
}

// Classify maps a status string (case-insensitive) to a badge. It never fails.
func Classify(raw string) Badge {
	return Badge{Label: raw, Severity: SeverityOf(raw)}
}

// SeverityOf returns the severity class for raw.
func SeverityOf(raw string) Severity {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case Queued:
		return Info
	case Running:
		return InProgress
	case Success:
		return Succeeded
	case Failed:
		return Failure
	default:
		return Neutral
	}
}

// IsTerminal reports whether raw is a final run/step state.
func IsTerminal(raw string) bool {
	switch SeverityOf(raw) {
	case Succeeded, Failure:
		return true
	}
	return false
}
