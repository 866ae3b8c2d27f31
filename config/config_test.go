package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gklyne/annalist-sub001/errors"
)

func validConfig() *Config {
	return &Config{
		Version: "1.0.0",
		Site: SiteConfig{
			RootDir: "/var/annalist/site",
			BaseURL: "http://example.org/annalist/",
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

func TestValidate(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		require.NoError(t, validConfig().Validate())
	})

	t.Run("missing root dir", func(t *testing.T) {
		cfg := validConfig()
		cfg.Site.RootDir = ""
		err := cfg.Validate()
		require.Error(t, err)
		assert.True(t, errors.IsValidation(err))
	})

	t.Run("relative base URL rejected", func(t *testing.T) {
		cfg := validConfig()
		cfg.Site.BaseURL = "/annalist/"
		require.Error(t, cfg.Validate())
	})

	t.Run("bad log level", func(t *testing.T) {
		cfg := validConfig()
		cfg.Log.Level = "verbose"
		require.Error(t, cfg.Validate())
	})

	t.Run("level case is normalised", func(t *testing.T) {
		cfg := validConfig()
		cfg.Log.Level = "DEBUG"
		require.NoError(t, cfg.Validate())
		assert.Equal(t, "debug", cfg.Log.Level)
		assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	})
}

func TestClone(t *testing.T) {
	cfg := validConfig()
	clone := cfg.Clone()
	clone.Site.RootDir = "/elsewhere"
	assert.Equal(t, "/var/annalist/site", cfg.Site.RootDir)
}

func TestSafeConfig(t *testing.T) {
	sc := NewSafeConfig(validConfig())

	t.Run("get returns a copy", func(t *testing.T) {
		got := sc.Get()
		got.Site.RootDir = "/elsewhere"
		assert.Equal(t, "/var/annalist/site", sc.Get().Site.RootDir)
	})

	t.Run("update validates", func(t *testing.T) {
		bad := validConfig()
		bad.Site.BaseURL = ""
		require.Error(t, sc.Update(bad))
		assert.Equal(t, "http://example.org/annalist/", sc.Get().Site.BaseURL)
	})

	t.Run("update replaces", func(t *testing.T) {
		next := validConfig()
		next.Site.RootDir = "/var/annalist/other"
		require.NoError(t, sc.Update(next))
		assert.Equal(t, "/var/annalist/other", sc.Get().Site.RootDir)
	})
}

func TestParseJSON(t *testing.T) {
	t.Run("valid document", func(t *testing.T) {
		cfg, err := ParseJSON([]byte(`{
			"version": "1.0.0",
			"site": {"root_dir": "/data", "base_url": "http://example.org/"},
			"log": {"level": "warn"}
		}`))
		require.NoError(t, err)
		assert.Equal(t, "/data", cfg.Site.RootDir)
		assert.Equal(t, slog.LevelWarn, cfg.SlogLevel())
	})

	t.Run("schema rejects unknown keys", func(t *testing.T) {
		_, err := ParseJSON([]byte(`{
			"site": {"root_dir": "/data", "base_url": "http://example.org/"},
			"surprise": true
		}`))
		require.Error(t, err)
		assert.True(t, errors.IsValidation(err))
	})

	t.Run("schema requires site", func(t *testing.T) {
		_, err := ParseJSON([]byte(`{"version": "1.0.0"}`))
		require.Error(t, err)
	})

	t.Run("malformed JSON", func(t *testing.T) {
		_, err := ParseJSON([]byte(`{not json`))
		require.Error(t, err)
	})
}

func TestParseYAML(t *testing.T) {
	cfg, err := ParseYAML([]byte(`
version: "1.0.0"
site:
  root_dir: /data
  base_url: http://example.org/
  context_scan_limit: 2
log:
  level: debug
  format: json
`))
	require.NoError(t, err)
	assert.Equal(t, "/data", cfg.Site.RootDir)
	assert.Equal(t, 2, cfg.Site.ContextScanLimit)
	assert.Equal(t, "json", cfg.Log.Format)

	t.Run("YAML held to the same schema", func(t *testing.T) {
		_, err := ParseYAML([]byte("site:\n  root_dir: /data\n"))
		require.Error(t, err)
	})
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	t.Run("JSON file", func(t *testing.T) {
		path := filepath.Join(dir, "site.json")
		require.NoError(t, os.WriteFile(path, []byte(
			`{"site": {"root_dir": "/data", "base_url": "http://example.org/"}}`), 0o644))
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "/data", cfg.Site.RootDir)
	})

	t.Run("YAML file", func(t *testing.T) {
		path := filepath.Join(dir, "site.yaml")
		require.NoError(t, os.WriteFile(path, []byte(
			"site:\n  root_dir: /data\n  base_url: http://example.org/\n"), 0o644))
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "/data", cfg.Site.RootDir)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "absent.json"))
		require.Error(t, err)
		assert.True(t, errors.IsNotFound(err))
	})
}
