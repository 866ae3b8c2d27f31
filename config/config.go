// Package config loads and validates the site configuration: where the
// collection data lives on disk, the base URL entity addresses are minted
// under, and logging preferences. Configuration is accepted as JSON or
// YAML and is schema-checked before use.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/gklyne/annalist-sub001/errors"
)

// Config is the complete site configuration.
type Config struct {
	Version string     `json:"version,omitempty" yaml:"version,omitempty"`
	Site    SiteConfig `json:"site" yaml:"site"`
	Log     LogConfig  `json:"log,omitempty" yaml:"log,omitempty"`
}

// SiteConfig locates the site data and its public address.
type SiteConfig struct {
	// RootDir is the directory holding collection directories.
	RootDir string `json:"root_dir" yaml:"root_dir"`

	// BaseURL is the absolute URL entity URLs are derived from.
	BaseURL string `json:"base_url" yaml:"base_url"`

	// ContextScanLimit bounds concurrent collection scans during context
	// regeneration. Zero selects the generator default.
	ContextScanLimit int `json:"context_scan_limit,omitempty" yaml:"context_scan_limit,omitempty"`
}

// LogConfig selects logging output.
type LogConfig struct {
	Level  string `json:"level,omitempty" yaml:"level,omitempty"`   // debug, info, warn, error
	Format string `json:"format,omitempty" yaml:"format,omitempty"` // text, json
}

// Validate checks the configuration and normalises defaulted fields.
func (c *Config) Validate() error {
	if c.Site.RootDir == "" {
		return errors.WrapValidation(errors.ErrMissingField, "Config", "Validate",
			"site.root_dir is required")
	}
	if c.Site.BaseURL == "" {
		return errors.WrapValidation(errors.ErrMissingField, "Config", "Validate",
			"site.base_url is required")
	}
	u, err := url.Parse(c.Site.BaseURL)
	if err != nil || !u.IsAbs() {
		return errors.WrapValidation(errors.ErrMalformedData, "Config", "Validate",
			fmt.Sprintf("site.base_url %q is not an absolute URL", c.Site.BaseURL))
	}
	if c.Site.ContextScanLimit < 0 {
		return errors.WrapValidation(errors.ErrMalformedData, "Config", "Validate",
			"site.context_scan_limit must not be negative")
	}

	c.Log.Level = strings.ToLower(c.Log.Level)
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return errors.WrapValidation(errors.ErrMalformedData, "Config", "Validate",
			fmt.Sprintf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	c.Log.Format = strings.ToLower(c.Log.Format)
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return errors.WrapValidation(errors.ErrMalformedData, "Config", "Validate",
			fmt.Sprintf("log.format %q is not one of text, json", c.Log.Format))
	}
	return nil
}

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	if c == nil {
		return &Config{}
	}
	data, err := json.Marshal(c)
	if err != nil {
		copied := *c
		return &copied
	}
	var clone Config
	if err := json.Unmarshal(data, &clone); err != nil {
		copied := *c
		return &copied
	}
	return &clone
}

// SlogLevel maps the configured log level to a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger builds a structured logger per the configured level and format.
func (c *Config) Logger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// SafeConfig provides thread-safe access to a configuration that may be
// replaced at runtime.
type SafeConfig struct {
	mu     sync.RWMutex
	config *Config
}

// NewSafeConfig wraps a configuration for concurrent access.
func NewSafeConfig(cfg *Config) *SafeConfig {
	if cfg == nil {
		cfg = &Config{}
	}
	return &SafeConfig{config: cfg}
}

// Get returns a deep copy of the current configuration.
func (sc *SafeConfig) Get() *Config {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.config.Clone()
}

// Update atomically replaces the configuration after validation.
func (sc *SafeConfig) Update(cfg *Config) error {
	if cfg == nil {
		return errors.WrapValidation(errors.ErrMissingField, "SafeConfig", "Update",
			"replace configuration with nil")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.config = cfg
	return nil
}
