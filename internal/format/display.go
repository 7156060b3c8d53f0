package format

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/examai/pipeline-console/internal/api"
)

const (
	Missing    = "-"
	TimeLayout = "2006-01-02 15:04:05"
)

// Dash returns s, or "-" when s is blank.
func Dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return Missing
	}
	return s
}

// Timestamp renders ts in local time. Unparseable values are shown raw.
func Timestamp(ts api.Timestamp) string {
	if ts.IsZero() {
		return Missing
	}
	if !ts.Valid() {
		return ts.Raw
	}
	return ts.Time.Local().Format(TimeLayout)
}

// Relative renders ts as "3 minutes ago" against now.
func Relative(ts api.Timestamp, now time.Time) string {
	if ts.IsZero() {
		return Missing
	}
	if !ts.Valid() {
		return ts.Raw
	}
	return humanize.RelTime(ts.Time, now, "ago", "from now")
}

// Metric renders a metrics entry. Fractions are shown to three decimals;
// anything else is printed as-is.
func Metric(metrics map[string]any, key string) string {
	v, ok := metrics[key]
	if !ok || v == nil {
		return Missing
	}
	switch n := v.(type) {
	case float64:
		return fmt.Sprintf("%.3f", n)
	case float32:
		return fmt.Sprintf("%.3f", n)
	case int, int64:
		return fmt.Sprintf("%d", n)
	case string:
		return Dash(n)
	default:
		return fmt.Sprint(n)
	}
}

// Percent renders a fractional metric such as 0.85 as "85.00%". Non-numeric
// or missing entries render as Missing.
func Percent(metrics map[string]any, key string) string {
	var f float64
	switch n := metrics[key].(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	default:
		return Missing
	}
	return fmt.Sprintf("%.2f%%", f*100)
}

// KV renders a map as sorted "k=v" pairs on a single line.
func KV(m map[string]any) string {
	if len(m) == 0 {
		return Missing
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, m[k]))
	}
	return strings.Join(parts, " ")
}

// Bytes renders a byte count, e.g. "1.2 MB".
func Bytes(n int64) string {
	if n < 0 {
		return Missing
	}
	return humanize.Bytes(uint64(n))
}
