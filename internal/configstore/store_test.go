package configstore

import (
	"encoding/json"
	"strings"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestSaveAtomicAndLoad_RoundTripAndTrim(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	st := &Store{APIURL: "  http://localhost:8000/api/  ", ModelType: "  baseline_sklearn  "}
	if err := SaveAtomic(path, st); err != nil {
		t.Fatalf("SaveAtomic: %v", err)
	}

	if runtime.GOOS != "windows" {
		fi, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat: %v", err)
		}
		if fi.Mode().Perm() != 0o600 {
			t.Fatalf("expected 0600 perms, got %o", fi.Mode().Perm())
		}
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.APIURL != "http://localhost:8000/api" {
		t.Fatalf("expected trimmed api url, got %q", loaded.APIURL)
	}
	if loaded.ModelType != "baseline_sklearn" {
		t.Fatalf("expected trimmed model type, got %q", loaded.ModelType)
	}
}

func TestSaveAtomic_Validations(t *testing.T) {
	if err := SaveAtomic("", &Store{}); err == nil {
		t.Fatalf("expected error for missing path")
	}
	if err := SaveAtomic("x.json", nil); err == nil {
		t.Fatalf("expected error for missing store")
	}
}

func TestLoad_Validations(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for missing path")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestSaveAtomic_UsesConfigKeysAndOmitsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeconsole", "config.json")
	if err := SaveAtomic(path, &Store{APIURL: DefaultLocalAPIURL}); err != nil {
		t.Fatalf("SaveAtomic: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		t.Fatalf("expected JSON file, got %s: %v", b, err)
	}
	if raw["api_url"] != DefaultLocalAPIURL {
		t.Fatalf("expected api_url key, got %s", b)
	}
	if _, ok := raw["model_type"]; ok {
		t.Fatalf("expected empty model_type to be omitted, got %s", b)
	}
}

func TestDefaultPath_UnderUserConfigDir(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)
	t.Setenv("XDG_CONFIG_HOME", tmp)
	if runtime.GOOS != "linux" {
		t.Skip("XDG_CONFIG_HOME only drives os.UserConfigDir on linux")
	}
	got, err := DefaultPath()
	if err != nil {
		t.Fatalf("DefaultPath: %v", err)
	}
	if want := filepath.Join(tmp, "pipeconsole", "config.json"); got != want {
		t.Fatalf("DefaultPath=%q want %q", got, want)
	}
}

func TestResolveAPIURL(t *testing.T) {
	cases := map[string]string{
		"local":                       DefaultLocalAPIURL,
		"  LOCAL ":                    DefaultLocalAPIURL,
		"https://ml.example.com/api/": "https://ml.example.com/api",
	}
	for in, want := range cases {
		got, err := ResolveAPIURL(in)
		if err != nil || got != want {
			t.Fatalf("ResolveAPIURL(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	for _, bad := range []string{"", "   ", "ftp://nope", "localhost:8000", "http://"} {
		if _, err := ResolveAPIURL(bad); err == nil {
			t.Fatalf("ResolveAPIURL(%q): expected error", bad)
		}
	}
}

func TestSaveAtomic_RejectsInvalidFieldsAndKeepsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := SaveAtomic(path, &Store{APIURL: DefaultLocalAPIURL, ModelType: "xgb"}); err != nil {
		t.Fatalf("SaveAtomic: %v", err)
	}

	err := SaveAtomic(path, &Store{APIURL: DefaultLocalAPIURL, ModelType: "two words"})
	if err == nil || !strings.Contains(err.Error(), "model type") {
		t.Fatalf("expected model type error, got %v", err)
	}
	if err := SaveAtomic(path, &Store{APIURL: "ftp://nope"}); err == nil {
		t.Fatalf("expected api url error")
	}

	st, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if st.ModelType != "xgb" {
		t.Fatalf("rejected saves must not touch the file, got %+v", st)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("expected no temp file left, got %v", err)
	}
}

func TestStore_LoadKeepsInvalidValuesForInspection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"api_url":" ftp://nope/ ","model_type":"m"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	st, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if st.APIURL != "ftp://nope" {
		t.Fatalf("expected normalized url, got %q", st.APIURL)
	}
	if err := st.Validate(); err == nil {
		t.Fatalf("expected Validate to reject the stored url")
	}
	if got := (Store{}).EffectiveAPIURL(); got != DefaultLocalAPIURL {
		t.Fatalf("empty store should fall back to the local default, got %q", got)
	}
}
