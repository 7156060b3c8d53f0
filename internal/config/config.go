// Package config resolves console settings from flags, PIPECONSOLE_* env
// vars, the configstore file and defaults, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/examai/pipeline-console/internal/configstore"
)

const EnvPrefix = "PIPECONSOLE"

type Config struct {
	APIURL         string
	PollInterval   time.Duration
	LogLines       int
	ModelType      string
	RequestTimeout time.Duration
	RetryMax       int
	LogLevel       string
	LogFile        string
	Format         string
	Pretty         bool

	// ConfigFile is the file that was read, if any.
	ConfigFile string
}

// flagKeys maps cobra flag names onto viper keys.
var flagKeys = map[string]string{
	"api":             "api_url",
	"poll-interval":   "poll_interval",
	"log-lines":       "log_lines",
	"model-type":      "model_type",
	"request-timeout": "request_timeout",
	"retry-max":       "retry_max",
	"log-level":       "log_level",
	"log-file":        "log_file",
	"format":          "format",
	"pretty":          "pretty",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_url", configstore.DefaultLocalAPIURL)
	v.SetDefault("poll_interval", "3s")
	v.SetDefault("log_lines", 400)
	v.SetDefault("model_type", configstore.DefaultModelType)
	v.SetDefault("request_timeout", "30s")
	v.SetDefault("retry_max", 2)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("format", "json")
	v.SetDefault("pretty", false)
}

// Load builds a Config. configFile may be empty, in which case the default
// configstore path is tried; a missing file is not an error. flags may be nil.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	path := strings.TrimSpace(configFile)
	if path == "" {
		if p, err := configstore.DefaultPath(); err == nil {
			path = p
		}
	}
	readFile := ""
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else {
			readFile = path
		}
	}

	cfg := &Config{
		APIURL:         strings.TrimRight(strings.TrimSpace(v.GetString("api_url")), "/"),
		PollInterval:   v.GetDuration("poll_interval"),
		LogLines:       v.GetInt("log_lines"),
		ModelType:      strings.TrimSpace(v.GetString("model_type")),
		RequestTimeout: v.GetDuration("request_timeout"),
		RetryMax:       v.GetInt("retry_max"),
		LogLevel:       strings.TrimSpace(v.GetString("log_level")),
		LogFile:        strings.TrimSpace(v.GetString("log_file")),
		Format:         strings.ToLower(strings.TrimSpace(v.GetString("format"))),
		Pretty:         v.GetBool("pretty"),
		ConfigFile:     readFile,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if _, err := configstore.CheckAPIURL(c.APIURL); err != nil {
		return err
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.PollInterval)
	}
	if c.LogLines <= 0 {
		return fmt.Errorf("log lines must be positive, got %d", c.LogLines)
	}
	if err := configstore.CheckModelType(c.ModelType); err != nil {
		return err
	}
	switch c.Format {
	case "json", "edn":
	default:
		return fmt.Errorf("unknown format %q (expected json|edn)", c.Format)
	}
	return nil
}
