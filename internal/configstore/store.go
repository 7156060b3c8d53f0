// Package configstore persists operator defaults chosen with `pipeconsole api use`.
package configstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// Default values used when no config file exists.
const (
	DefaultLocalAPIURL = "http://localhost:8000/api"
	DefaultModelType   = "baseline_sklearn"
)

// Store is the on-disk config file. Keys match the viper keys in
// internal/config so the file can be read by either. Empty fields fall back
// to the defaults above.
type Store struct {
	APIURL    string `json:"api_url,omitempty"`
	ModelType string `json:"model_type,omitempty"`
}

// ResolveAPIURL turns an `api use` target into a base URL. "local" names the
// default local backend.
func ResolveAPIURL(target string) (string, error) {
	target = strings.TrimSpace(target)
	if strings.EqualFold(target, "local") {
		return DefaultLocalAPIURL, nil
	}
	return CheckAPIURL(target)
}

// CheckAPIURL trims raw and accepts it only as an absolute http(s) URL.
func CheckAPIURL(raw string) (string, error) {
	u := strings.TrimRight(strings.TrimSpace(raw), "/")
	if u == "" {
		return "", errors.New("missing api url")
	}
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		return "", fmt.Errorf("invalid api url (expected http/https): %s", u)
	}
	parsed, err := url.Parse(u)
	if err != nil {
		return "", fmt.Errorf("invalid api url: %w", err)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("invalid api url (missing host): %s", u)
	}
	return u, nil
}

// CheckModelType rejects names the backend cannot take as a single token.
func CheckModelType(name string) error {
	if name == "" {
		return errors.New("missing model type")
	}
	if strings.IndexFunc(name, unicode.IsSpace) >= 0 {
		return fmt.Errorf("invalid model type %q (no whitespace allowed)", name)
	}
	return nil
}

// Normalized trims both fields and drops a trailing slash from the URL.
func (st Store) Normalized() Store {
	return Store{
		APIURL:    strings.TrimRight(strings.TrimSpace(st.APIURL), "/"),
		ModelType: strings.TrimSpace(st.ModelType),
	}
}

// Validate checks the fields that are set.
func (st Store) Validate() error {
	if st.APIURL != "" {
		if _, err := CheckAPIURL(st.APIURL); err != nil {
			return err
		}
	}
	if st.ModelType != "" {
		if err := CheckModelType(st.ModelType); err != nil {
			return err
		}
	}
	return nil
}

// EffectiveAPIURL is the stored URL, or the local default when unset.
func (st Store) EffectiveAPIURL() string {
	if st.APIURL == "" {
		return DefaultLocalAPIURL
	}
	return st.APIURL
}

func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(dir) == "" {
		return "", errors.New("cannot determine user config dir")
	}
	return filepath.Join(dir, "pipeconsole", "config.json"), nil
}

// Load reads the file without validating it, so `api show` and `api use`
// still work on a file holding a bad value.
func Load(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("missing path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var st Store
	if err := json.Unmarshal(b, &st); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	st = st.Normalized()
	return &st, nil
}

// SaveAtomic normalizes and validates st, then replaces the file at path.
func SaveAtomic(path string, st *Store) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("missing path")
	}
	if st == nil {
		return errors.New("missing store")
	}
	clean := st.Normalized()
	if err := clean.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	payload, err := json.MarshalIndent(clean, "", "  ")
	if err != nil {
		return err
	}
	payload = append(payload, '\n')
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
