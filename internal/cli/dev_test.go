package cli_test

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/examai/pipeline-console/internal/cli"
	"github.com/examai/pipeline-console/internal/mock"
)

func TestDevServe_SeedsAndSavesState(t *testing.T) {
	isolate(t)
	statePath := filepath.Join(t.TempDir(), "fake.json")

	ctx, cancel := context.WithTimeout(t.Context(), 300*time.Millisecond)
	defer cancel()
	cmd := cli.NewRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"dev", "serve", "--addr", "127.0.0.1:0", "--tick", "0", "--seed", "--state", statePath})
	if err := cmd.ExecuteContext(ctx); err != nil {
		t.Fatalf("dev serve failed: %v\n%s", err, out.String())
	}

	data := dataMap(t, decodeOne(t, out.String()))
	if u, _ := data["apiUrl"].(string); !strings.HasPrefix(u, "http://127.0.0.1:") || !strings.HasSuffix(u, "/api") {
		t.Fatalf("unexpected apiUrl: %v", data["apiUrl"])
	}
	st, err := mock.LoadState(statePath)
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if len(st.Datasets) != 1 || len(st.Runs) != 1 {
		t.Fatalf("expected seeded state to be saved, got %#v", st)
	}
}
