package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

const envPrefix = "BOOKBAR_"

func homeDirOrFallback() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return home
}

// Config holds all user-configurable settings.
type Config struct {
	// BaseURL resolves relative chapter references given on the command line.
	BaseURL string `yaml:"base_url" koanf:"base_url"`
	// RequestsPerSecond rate-limits page fetches. Zero means unlimited.
	RequestsPerSecond float64 `yaml:"requests_per_second" koanf:"requests_per_second"`
	// FetchTimeout bounds a single page fetch. Zero means no timeout.
	FetchTimeout time.Duration `yaml:"fetch_timeout" koanf:"fetch_timeout"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" koanf:"log_level"`
	// LogFormat is "json" or "pretty".
	LogFormat string `yaml:"log_format" koanf:"log_format"`
	// UserAgent is sent with every request.
	UserAgent string `yaml:"user_agent" koanf:"user_agent"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:           "",
		RequestsPerSecond: 0,
		FetchTimeout:      0,
		LogLevel:          "info",
		LogFormat:         "pretty",
		UserAgent:         "bookbar/1.0",
	}
}

// ConfigDir returns the directory where config and data files are stored.
func ConfigDir() string {
	if dir := os.Getenv("BOOKBAR_CONFIG_DIR"); dir != "" {
		return dir
	}
	home := homeDirOrFallback()
	return filepath.Join(home, ".config", "bookbar")
}

// ConfigPath returns the path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// PrefsDBPath returns the path to the SQLite preference database.
func PrefsDBPath() string {
	return filepath.Join(ConfigDir(), "prefs.db")
}

// LogPath returns the file the interactive reader logs to.
func LogPath() string {
	return filepath.Join(ConfigDir(), "bookbar.log")
}

// Load reads configuration from the YAML file at path, then overlays
// environment variable overrides (BOOKBAR_*). A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// BOOKBAR_LOG_LEVEL -> log_level, etc.
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration contains usable values.
func (c *Config) Validate() error {
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second must be non-negative")
	}
	if c.FetchTimeout < 0 {
		return fmt.Errorf("fetch_timeout must be non-negative")
	}
	switch c.LogFormat {
	case "", "json", "pretty":
	default:
		return fmt.Errorf("invalid log_format %q: must be json or pretty", c.LogFormat)
	}
	return nil
}

// Save writes the config to path, creating its directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}
