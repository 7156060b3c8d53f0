package mock

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/examai/pipeline-console/internal/api"
	"github.com/examai/pipeline-console/internal/status"
)

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestServer_CreateAndListMostRecentFirst(t *testing.T) {
	s := New(Options{})
	h := s.Handler()

	for _, name := range []string{"a", "b"} {
		w := do(t, h, http.MethodPost, "/api/datasets", `{"name":"`+name+`","source_path":"/data/`+name+`.csv","meta":{}}`)
		if w.Code != http.StatusOK {
			t.Fatalf("create dataset: %d %s", w.Code, w.Body.String())
		}
	}
	w := do(t, h, http.MethodGet, "/api/datasets", "")
	var got []api.Dataset
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 || got[0].Name != "b" || got[1].Name != "a" {
		t.Fatalf("expected most recent first: %+v", got)
	}
	if s.Count("GET /datasets") != 1 || s.Count("POST /datasets") != 2 {
		t.Fatalf("unexpected counts: get=%d post=%d", s.Count("GET /datasets"), s.Count("POST /datasets"))
	}
}

func TestServer_CreateDatasetValidation(t *testing.T) {
	s := New(Options{CheckPaths: true})
	h := s.Handler()

	w := do(t, h, http.MethodPost, "/api/datasets", `{"name":"","source_path":"/x"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	w = do(t, h, http.MethodPost, "/api/datasets", `{"name":"x","source_path":"/definitely/not/here.csv"}`)
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "does not exist") {
		t.Fatalf("expected missing path 400, got %d %s", w.Code, w.Body.String())
	}

	p := filepath.Join(t.TempDir(), "in.csv")
	if err := os.WriteFile(p, []byte("a,b\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	w = do(t, h, http.MethodPost, "/api/datasets", `{"name":"x","source_path":"`+p+`"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", w.Code, w.Body.String())
	}
}

func TestServer_CreateRunUnknownDataset(t *testing.T) {
	s := New(Options{})
	w := do(t, s.Handler(), http.MethodPost, "/api/runs", `{"dataset_id":99,"model_type":"baseline_sklearn"}`)
	if w.Code != http.StatusNotFound || !strings.Contains(w.Body.String(), "dataset not found") {
		t.Fatalf("expected 404 dataset not found, got %d %s", w.Code, w.Body.String())
	}
}

func TestServer_AdvanceToSuccess(t *testing.T) {
	s := New(Options{})
	ds, _ := s.AddDataset("d", "/data/d.csv", nil)
	run, err := s.AddRun(ds.ID, "")
	if err != nil {
		t.Fatalf("AddRun: %v", err)
	}
	if run.Status != status.Queued || len(run.Steps) != len(StepNames) || run.ModelType != "baseline_sklearn" {
		t.Fatalf("unexpected new run: %+v", run)
	}

	for i := 0; i < 20 && s.Advance() > 0; i++ {
	}
	got, _ := s.Run(run.ID)
	if got.Status != status.Success {
		t.Fatalf("expected success, got %q", got.Status)
	}
	for _, st := range got.Steps {
		if st.Status != status.Success {
			t.Fatalf("step %s not success: %q", st.Name, st.Status)
		}
	}
	if _, ok := got.Metrics["accuracy"]; !ok {
		t.Fatalf("expected accuracy metric: %+v", got.Metrics)
	}
	if got.StartedAt.IsZero() || got.FinishedAt.IsZero() {
		t.Fatalf("expected start/finish timestamps")
	}
}

func TestServer_Fail(t *testing.T) {
	s := New(Options{})
	ds, _ := s.AddDataset("d", "/data/d.csv", nil)
	run, _ := s.AddRun(ds.ID, "m")
	s.Advance()
	if err := s.Fail(run.ID, "boom"); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	got, _ := s.Run(run.ID)
	if got.Status != status.Failed || got.Error != "boom" {
		t.Fatalf("unexpected run: %+v", got)
	}
	if got.Steps[0].Status != status.Failed || got.Steps[0].Message != "boom" {
		t.Fatalf("unexpected first step: %+v", got.Steps[0])
	}
	if s.Advance() != 0 {
		t.Fatalf("terminal runs must not advance")
	}
	if err := s.Fail(404, "x"); err == nil {
		t.Fatalf("expected not found")
	}
}

func TestServer_LogsValidationAndTail(t *testing.T) {
	s := New(Options{})
	ds, _ := s.AddDataset("d", "/data/d.csv", nil)
	run, _ := s.AddRun(ds.ID, "m")
	for i := 0; i < 20; i++ {
		s.Advance()
	}
	h := s.Handler()

	if w := do(t, h, http.MethodGet, "/api/runs/1/logs?lines=9", ""); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for lines=9, got %d", w.Code)
	}
	if w := do(t, h, http.MethodGet, "/api/runs/1/logs?lines=5001", ""); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for lines=5001, got %d", w.Code)
	}
	w := do(t, h, http.MethodGet, "/api/runs/1/logs?lines=10", "")
	if w.Code != http.StatusOK {
		t.Fatalf("logs: %d %s", w.Code, w.Body.String())
	}
	var tail api.LogTail
	if err := json.Unmarshal(w.Body.Bytes(), &tail); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tail.RunID != run.ID {
		t.Fatalf("run id: %d", tail.RunID)
	}
	lines := strings.Split(tail.Tail, "\n")
	// queued, started, 3 steps x (started, finished), finished
	if len(lines) != 9 || !strings.Contains(lines[len(lines)-1], "run finished") {
		t.Fatalf("expected full log ending with finish, got %q", tail.Tail)
	}
	short, err := s.Tail(run.ID, 3)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if got := strings.Split(short, "\n"); len(got) != 3 || got[2] != lines[8] {
		t.Fatalf("expected last 3 lines, got %q", short)
	}
	if w := do(t, h, http.MethodGet, "/api/runs/77/logs?lines=10", ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestServer_FailRoute(t *testing.T) {
	s := New(Options{})
	s.FailRoute("GET /runs", http.StatusServiceUnavailable, "down")
	h := s.Handler()
	w := do(t, h, http.MethodGet, "/api/runs", "")
	if w.Code != http.StatusServiceUnavailable || !strings.Contains(w.Body.String(), "down") {
		t.Fatalf("expected injected failure, got %d %s", w.Code, w.Body.String())
	}
	s.ClearFailures()
	if w := do(t, h, http.MethodGet, "/api/runs", ""); w.Code != http.StatusOK {
		t.Fatalf("expected recovery, got %d", w.Code)
	}
	if s.Count("GET /runs") != 2 {
		t.Fatalf("failed requests still count: %d", s.Count("GET /runs"))
	}
}
