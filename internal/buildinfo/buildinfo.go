// Package buildinfo carries the version stamped into the binary.
package buildinfo

import (
	"runtime/debug"
	"strings"
	"time"
)

// Set via -ldflags -X at release time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Info is the payload of `pipeconsole version`.
type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit,omitempty"`
	Date    string `json:"date,omitempty"`
}

func Current() Info {
	return Info{Version: DisplayVersion(), Commit: ShortCommit(Commit), Date: ShortDate(Date)}
}

// DisplayVersion returns "dev", or the version with a "v" prefix. An unset
// version falls back to the module version embedded by `go install`.
func DisplayVersion() string {
	v := strings.TrimSpace(Version)
	if v == "" || v == "dev" {
		if bi, ok := debug.ReadBuildInfo(); ok {
			if mv := strings.TrimSpace(bi.Main.Version); mv != "" && mv != "(devel)" {
				v = mv
			}
		}
	}
	switch {
	case v == "" || v == "dev" || v == "(devel)":
		return "dev"
	case strings.HasPrefix(v, "v"):
		return v
	case v[0] >= '0' && v[0] <= '9':
		return "v" + v
	default:
		return v
	}
}

// Inline renders "v1.2.3 · abc1234 · 2026-01-02" for headers.
func Inline() string {
	i := Current()
	parts := []string{i.Version}
	if i.Commit != "" {
		parts = append(parts, i.Commit)
	}
	if i.Date != "" {
		parts = append(parts, i.Date)
	}
	return strings.Join(parts, " · ")
}

func ShortCommit(commit string) string {
	c := strings.TrimSpace(commit)
	if c == "" || c == "none" {
		return ""
	}
	if len(c) <= 7 {
		return c
	}
	return c[:7]
}

func ShortDate(date string) string {
	d := strings.TrimSpace(date)
	if d == "" || d == "unknown" {
		return ""
	}
	if t, err := time.Parse(time.RFC3339, d); err == nil {
		return t.Format("2006-01-02")
	}
	if len(d) >= 10 {
		return d[:10]
	}
	return d
}
