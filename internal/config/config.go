// Package config loads the monitor settings from defaults, an optional YAML
// file, the environment and CLI overrides.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Validation errors returned (wrapped) by Load and Validate.
var (
	ErrMissingBaseURL   = errors.New("base URL is not set (ANTHROPIC_BASE_URL or base_url)")
	ErrMissingAuthToken = errors.New("auth token is not set (ANTHROPIC_AUTH_TOKEN or auth_token)")
	ErrInvalidBaseURL   = errors.New("base URL must be an absolute http(s) URL")
)

// Config holds the monitor settings. Treat it as immutable once loaded;
// WithOverrides returns a modified copy.
type Config struct {
	BaseURL        string `yaml:"base_url"`
	AuthToken      string `yaml:"auth_token"`
	AuthScheme     string `yaml:"auth_scheme"`
	RefreshSec     uint64 `yaml:"refresh_sec"`
	HTTPTimeoutSec uint64 `yaml:"http_timeout_sec"`
}

// Overrides are CLI-supplied values. Nil fields leave the loaded value as is.
type Overrides struct {
	RefreshSec     *uint64
	HTTPTimeoutSec *uint64
}

// Default returns a Config with default intervals and no credentials.
func Default() *Config {
	return &Config{
		AuthScheme:     DefaultAuthScheme,
		RefreshSec:     DefaultRefreshSec,
		HTTPTimeoutSec: DefaultHTTPTimeoutSec,
	}
}

// DefaultPath returns ~/.config/glm-usage-monitor/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", AppName, ConfigFileName)
}

// Load builds a Config from defaults, the YAML file at path, and the
// environment, then validates it. An empty path means DefaultPath, which
// may be absent; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		if err := cfg.loadFile(path, explicit); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string, required bool) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if !required && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := strings.TrimSpace(os.Getenv(EnvBaseURL)); v != "" {
		c.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvAuthToken)); v != "" {
		c.AuthToken = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvAuthScheme)); v != "" {
		c.AuthScheme = v
	}
	if err := envUint(EnvRefreshSec, &c.RefreshSec); err != nil {
		return err
	}
	return envUint(EnvHTTPTimeoutSec, &c.HTTPTimeoutSec)
}

func envUint(name string, dst *uint64) error {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return fmt.Errorf("parse %s=%q: %w", name, v, err)
	}
	*dst = n
	return nil
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	c.AuthToken = strings.TrimSpace(c.AuthToken)
	c.AuthScheme = strings.ToLower(strings.TrimSpace(c.AuthScheme))
	if c.AuthScheme == "" {
		c.AuthScheme = DefaultAuthScheme
	}
	if c.RefreshSec == 0 {
		c.RefreshSec = DefaultRefreshSec
	}
	if c.HTTPTimeoutSec == 0 {
		c.HTTPTimeoutSec = DefaultHTTPTimeoutSec
	}
}

// Validate checks mandatory fields and value ranges.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrMissingBaseURL
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: %q", ErrInvalidBaseURL, c.BaseURL)
	}
	if c.AuthToken == "" {
		return ErrMissingAuthToken
	}
	if c.AuthScheme != AuthSchemeRaw && c.AuthScheme != AuthSchemeBearer {
		return fmt.Errorf("auth_scheme must be %q or %q, got %q", AuthSchemeRaw, AuthSchemeBearer, c.AuthScheme)
	}
	if c.RefreshSec < MinRefreshSec {
		return fmt.Errorf("refresh_sec must be at least %d", MinRefreshSec)
	}
	if c.HTTPTimeoutSec < MinHTTPTimeoutSec {
		return fmt.Errorf("http_timeout_sec must be at least %d", MinHTTPTimeoutSec)
	}
	return nil
}

// WithOverrides returns a copy of c with the CLI overrides applied.
func (c Config) WithOverrides(o Overrides) (*Config, error) {
	if o.RefreshSec != nil {
		c.RefreshSec = *o.RefreshSec
	}
	if o.HTTPTimeoutSec != nil {
		c.HTTPTimeoutSec = *o.HTTPTimeoutSec
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &c, nil
}

// RefreshInterval returns the refresh interval as a duration.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshSec) * time.Second
}

// HTTPTimeout returns the per-fetch timeout as a duration.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSec) * time.Second
}
