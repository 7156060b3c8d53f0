package browseropen

import (
	"errors"
	"reflect"
	"testing"
)

const docs = "http://localhost:8000/docs"

func TestOpenFor_CandidateOrder(t *testing.T) {
	no := errors.New("no")
	cases := []struct {
		name       string
		goos       string
		wsl        bool
		browserEnv string
		results    map[string]error
		want       []call
	}{
		{
			name:    "darwin uses open",
			goos:    "darwin",
			results: map[string]error{"open": nil},
			want:    []call{{name: "open", args: []string{docs}}},
		},
		{
			name:    "windows stops at first opener that starts",
			goos:    "windows",
			results: map[string]error{"rundll32": no, "cmd": nil, "powershell": nil},
			want: []call{
				{name: "rundll32", args: []string{"url.dll,FileProtocolHandler", docs}},
				{name: "cmd", args: []string{"/c", "start", "", docs}},
			},
		},
		{
			name:    "wsl prefers windows-side openers",
			goos:    "linux",
			wsl:     true,
			results: map[string]error{"wslview": no, "cmd.exe": nil, "xdg-open": nil},
			want: []call{
				{name: "wslview", args: []string{docs}},
				{name: "cmd.exe", args: []string{"/c", "start", "", docs}},
			},
		},
		{
			// br1 gets the URL appended; br2 uses placeholder replacement.
			name:       "BROWSER list with placeholder",
			goos:       "linux",
			browserEnv: "br1 --flag:br2 --arg=%s",
			results:    map[string]error{"br1": no, "br2": nil},
			want: []call{
				{name: "br1", args: []string{"--flag", docs}},
				{name: "br2", args: []string{"--arg=" + docs}},
			},
		},
		{
			name:       "falls back to xdg-open",
			goos:       "linux",
			browserEnv: "br",
			results:    map[string]error{"br": no, "xdg-open": nil},
			want: []call{
				{name: "br", args: []string{docs}},
				{name: "xdg-open", args: []string{docs}},
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			restore := stubStartCommand(t, tc.results)
			defer restore()

			if err := openFor(tc.goos, tc.wsl, tc.browserEnv, docs); err != nil {
				t.Fatalf("expected nil error, got %v", err)
			}
			if got := drainCalls(); !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("calls mismatch:\n got: %#v\nwant: %#v", got, tc.want)
			}
		})
	}
}

type call struct {
	name string
	args []string
}

var (
	calls []call
)

func drainCalls() []call {
	out := append([]call(nil), calls...)
	calls = nil
	return out
}

func stubStartCommand(t *testing.T, results map[string]error) func() {
	t.Helper()
	prev := startCommand
	calls = nil
	startCommand = func(name string, args ...string) error {
		calls = append(calls, call{name: name, args: append([]string(nil), args...)})
		if err, ok := results[name]; ok {
			return err
		}
		return nil
	}
	return func() {
		startCommand = prev
		calls = nil
	}
}

func TestDocsURL(t *testing.T) {
	cases := map[string]string{
		"http://localhost:8000/api":      "http://localhost:8000/docs",
		"http://localhost:8000/api/":     "http://localhost:8000/docs",
		"https://pipelines.example.test": "https://pipelines.example.test/docs",
		"http://h:1/prefix/api?x=1":      "http://h:1/prefix/docs",
	}
	for in, want := range cases {
		got, err := DocsURL(in)
		if err != nil {
			t.Fatalf("DocsURL(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("DocsURL(%q)=%q want %q", in, got, want)
		}
	}
	if _, err := DocsURL("ftp://x"); err == nil {
		t.Fatalf("expected error for non-http url")
	}
}

func TestOpenFor_Windows_AllFail(t *testing.T) {
	restore := stubStartCommand(t, map[string]error{
		"rundll32":   errors.New("a"),
		"cmd":        errors.New("b"),
		"powershell": errors.New("c"),
		"explorer":   errors.New("d"),
	})
	defer restore()

	err := openFor("windows", false, "", docs)
	if err == nil {
		t.Fatalf("expected error")
	}
	if got := len(drainCalls()); got != 4 {
		t.Fatalf("expected all 4 candidates tried, got %d", got)
	}
}
