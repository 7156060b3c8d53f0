package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrInvalidLineCount is wrapped by GetRunLogs when asked for no lines.
var ErrInvalidLineCount = errors.New("line count must be positive")

// RequestError is returned for non-2xx responses and transport failures.
// StatusCode is 0 when the request never produced a response.
type RequestError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
	Err        error
}

func (e *RequestError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s %s: %s", e.Method, e.Path, e.Message)
	}
	return fmt.Sprintf("%s %s: %s (status=%d)", e.Method, e.Path, e.Message, e.StatusCode)
}

func (e *RequestError) Unwrap() error { return e.Err }

// ParseError is returned when a success response (or a timestamp inside it)
// cannot be decoded.
type ParseError struct {
	Path  string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("parse %q: %v", e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// StatusCode extracts the HTTP status from err, or 0.
func StatusCode(err error) int {
	var re *RequestError
	if errors.As(err, &re) {
		return re.StatusCode
	}
	return 0
}

func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// errorMessage pulls a display message out of an error body. FastAPI sends
// {"detail": "..."} or {"detail": [{"msg": "..."}]}.
func errorMessage(body []byte, status int) string {
	var env struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(body, &env); err == nil && env.Detail != nil {
		switch d := env.Detail.(type) {
		case string:
			if s := strings.TrimSpace(d); s != "" {
				return s
			}
		case []any:
			msgs := make([]string, 0, len(d))
			for _, item := range d {
				if m, ok := item.(map[string]any); ok {
					if s, _ := m["msg"].(string); strings.TrimSpace(s) != "" {
						msgs = append(msgs, strings.TrimSpace(s))
					}
				}
			}
			if len(msgs) > 0 {
				return strings.Join(msgs, "; ")
			}
		}
	}
	if s := strings.TrimSpace(string(body)); s != "" {
		if len(s) > 200 {
			s = s[:200] + "…"
		}
		return s
	}
	if t := http.StatusText(status); t != "" {
		return strings.ToLower(t)
	}
	return "request failed"
}
