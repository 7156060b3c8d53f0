package cli_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/examai/pipeline-console/internal/cli"
	"github.com/examai/pipeline-console/internal/config"
	"github.com/examai/pipeline-console/internal/mock"
)

func runCLIArgs(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := cli.NewRootCmd()
	out := new(bytes.Buffer)
	errOut := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(t.Context())
	return out.String(), errOut.String(), err
}

// isolate points the user config dir at a temp dir and clears overrides
// from the caller's shell.
func isolate(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)
	t.Setenv("XDG_CONFIG_HOME", tmp)
	for _, k := range []string{"API_URL", "FORMAT", "PRETTY", "POLL_INTERVAL", "LOG_LINES", "MODEL_TYPE", "LOG_LEVEL", "LOG_FILE"} {
		t.Setenv(config.EnvPrefix+"_"+k, "")
	}
	t.Setenv(config.EnvPrefix+"_RETRY_MAX", "0")
	return tmp
}

func startMock(t *testing.T) (*mock.Server, string) {
	t.Helper()
	isolate(t)
	srv := mock.New(mock.Options{})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts.URL + "/api"
}

func decodeOne(t *testing.T, stdout string) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal([]byte(stdout), &out); err != nil {
		t.Fatalf("expected JSON output, got:\n%s\nerr=%v", stdout, err)
	}
	return out
}

// decodeAll reads every JSON document on stdout (watch emits a stream).
func decodeAll(t *testing.T, stdout string) []map[string]any {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(stdout))
	var docs []map[string]any
	for {
		var doc map[string]any
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			return docs
		}
		if err != nil {
			t.Fatalf("decode stream: %v\n%s", err, stdout)
		}
		docs = append(docs, doc)
	}
}

func dataMap(t *testing.T, out map[string]any) map[string]any {
	t.Helper()
	d, ok := out["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data object, got %#v", out["data"])
	}
	return d
}

func errorCode(t *testing.T, out map[string]any) string {
	t.Helper()
	if ok, _ := out["ok"].(bool); ok {
		t.Fatalf("expected ok=false, got %#v", out)
	}
	e, _ := out["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}
