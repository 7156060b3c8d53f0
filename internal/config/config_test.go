package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func missingFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "absent.json")
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(missingFile(t), nil)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000/api", cfg.APIURL)
	assert.Equal(t, 3*time.Second, cfg.PollInterval)
	assert.Equal(t, 400, cfg.LogLines)
	assert.Equal(t, "baseline_sklearn", cfg.ModelType)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 2, cfg.RetryMax)
	assert.Equal(t, "json", cfg.Format)
	assert.Empty(t, cfg.ConfigFile)
}

func TestLoad_FileThenEnvThenFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"api_url":"http://file.test/api","model_type":"from_file"}`), 0o600))

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "http://file.test/api", cfg.APIURL)
	assert.Equal(t, "from_file", cfg.ModelType)
	assert.Equal(t, path, cfg.ConfigFile)

	t.Setenv("PIPECONSOLE_API_URL", "http://env.test/api/")
	t.Setenv("PIPECONSOLE_POLL_INTERVAL", "750ms")
	cfg, err = Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "http://env.test/api", cfg.APIURL)
	assert.Equal(t, 750*time.Millisecond, cfg.PollInterval)

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("api", "", "")
	flags.Duration("poll-interval", 0, "")
	require.NoError(t, flags.Parse([]string{"--api", "https://flag.test/api"}))
	cfg, err = Load(path, flags)
	require.NoError(t, err)
	assert.Equal(t, "https://flag.test/api", cfg.APIURL)
	// Unset flags do not shadow env.
	assert.Equal(t, 750*time.Millisecond, cfg.PollInterval)
}

func TestLoad_Validation(t *testing.T) {
	t.Setenv("PIPECONSOLE_API_URL", "ftp://nope")
	_, err := Load(missingFile(t), nil)
	require.Error(t, err)

	t.Setenv("PIPECONSOLE_API_URL", "http://ok.test")
	t.Setenv("PIPECONSOLE_FORMAT", "yaml")
	_, err = Load(missingFile(t), nil)
	require.Error(t, err)

	t.Setenv("PIPECONSOLE_FORMAT", "edn")
	t.Setenv("PIPECONSOLE_LOG_LINES", "0")
	_, err = Load(missingFile(t), nil)
	require.Error(t, err)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o600))
	_, err := Load(path, nil)
	require.Error(t, err)
}
