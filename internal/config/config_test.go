package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Zero(t, cfg.RequestsPerSecond, "fetches are unthrottled by default")
	assert.Zero(t, cfg.FetchTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	original := DefaultConfig()
	original.BaseURL = "https://example.com/book/"
	original.RequestsPerSecond = 4
	original.FetchTimeout = 30 * time.Second
	original.LogFormat = "json"
	require.NoError(t, original.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, original, loaded)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: warn\nbase_url: https://a.example/\n"), 0o644))

	t.Setenv("BOOKBAR_LOG_LEVEL", "debug")
	t.Setenv("BOOKBAR_FETCH_TIMEOUT", "5s")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "https://a.example/", cfg.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.FetchTimeout)
}

func TestLoad_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_format: xml\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestPaths(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("BOOKBAR_CONFIG_DIR", dir)

	assert.Equal(t, dir, ConfigDir())
	assert.Equal(t, filepath.Join(dir, "config.yaml"), ConfigPath())
	assert.Equal(t, filepath.Join(dir, "prefs.db"), PrefsDBPath())
	assert.Equal(t, filepath.Join(dir, "bookbar.log"), LogPath())
}
