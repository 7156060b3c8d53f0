package mock

import (
	"path/filepath"
	"testing"
)

func TestSaveStateAndRestore_RoundTrip(t *testing.T) {
	src := New(Options{})
	ds, err := src.AddDataset("sample", "/data/a.csv", map[string]any{"rows": 3})
	if err != nil {
		t.Fatalf("AddDataset: %v", err)
	}
	run, err := src.AddRun(ds.ID, "")
	if err != nil {
		t.Fatalf("AddRun: %v", err)
	}
	src.Advance()

	path := filepath.Join(t.TempDir(), "nested", "state.json")
	if err := SaveState(path, src.State()); err != nil {
		t.Fatalf("SaveState: %v", err)
	}
	st, err := LoadState(path)
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}

	dst := New(Options{})
	dst.Restore(st)
	got, err := dst.Run(run.ID)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got.Status != "running" || len(got.Steps) != 3 {
		t.Fatalf("unexpected restored run: %#v", got)
	}
	tail, err := dst.Tail(run.ID, 10)
	if err != nil || tail == "" {
		t.Fatalf("expected restored logs, got %q err=%v", tail, err)
	}

	// Ids continue after the restored ones.
	next, err := dst.AddRun(ds.ID, "")
	if err != nil {
		t.Fatalf("AddRun: %v", err)
	}
	if next.ID != run.ID+1 {
		t.Fatalf("expected run id %d, got %d", run.ID+1, next.ID)
	}
}

func TestLoadState_MissingFileIsEmpty(t *testing.T) {
	st, err := LoadState(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if len(st.Runs) != 0 || len(st.Datasets) != 0 {
		t.Fatalf("expected empty state, got %#v", st)
	}
}
