package api

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// Timestamp keeps the raw wire value next to the parsed time so a value that
// does not parse can still be shown verbatim.
type Timestamp struct {
	Raw  string
	Time time.Time
}

// ParseTime parses backend timestamps. Values without a zone are UTC.
func ParseTime(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, &ParseError{Value: raw, Err: errors.New("empty timestamp")}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &ParseError{Value: raw, Err: errors.New("unrecognized timestamp layout")}
}

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Raw: t.UTC().Format(time.RFC3339Nano), Time: t.UTC()}
}

// IsZero reports whether the field was absent or null.
func (t Timestamp) IsZero() bool { return strings.TrimSpace(t.Raw) == "" }

// Valid reports whether Raw parsed.
func (t Timestamp) Valid() bool { return !t.Time.IsZero() }

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*t = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		// Not a string; keep whatever was sent for display.
		*t = Timestamp{Raw: string(b)}
		return nil
	}
	parsed, _ := ParseTime(s)
	*t = Timestamp{Raw: s, Time: parsed}
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Raw)
}
