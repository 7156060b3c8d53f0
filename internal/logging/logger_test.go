package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	if lvl, err := ParseLevel(""); err != nil || lvl.String() != "info" {
		t.Fatalf("expected default info, got %v %v", lvl, err)
	}
	if lvl, err := ParseLevel(" DEBUG "); err != nil || lvl.String() != "debug" {
		t.Fatalf("expected debug, got %v %v", lvl, err)
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestNew_ConsoleRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log, closeFn, err := New(Options{Level: "warn", Console: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer closeFn()

	log.Info().Msg("hidden")
	log.Warn().Str("component", "reconcile").Msg("shown")
	got := buf.String()
	if strings.Contains(got, "hidden") {
		t.Fatalf("info should be filtered: %q", got)
	}
	if !strings.Contains(got, "shown") || !strings.Contains(got, "reconcile") {
		t.Fatalf("expected warn line, got %q", got)
	}
}

func TestNew_FileAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "console.log")
	log, closeFn, err := New(Options{Level: "info", File: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.Info().Int64("run_id", 7).Msg("selected")
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(b), `"run_id":7`) {
		t.Fatalf("expected json line, got %q", string(b))
	}
}
