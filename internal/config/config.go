// Package config loads storefront settings from defaults, an optional YAML
// file and STOREFRONT_* environment variables, in that order.
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

// PageSizes are the page sizes the product list offers.
var PageSizes = []int{10, 20, 50}

// Config holds all client settings.
type Config struct {
	API     APIConfig     `yaml:"api"`
	State   StateConfig   `yaml:"state"`
	Log     LogConfig     `yaml:"log"`
	OAuth   OAuthConfig   `yaml:"oauth"`
	Catalog CatalogConfig `yaml:"catalog"`
	Updates UpdatesConfig `yaml:"updates"`
}

// APIConfig configures the REST client.
type APIConfig struct {
	URL       string        `yaml:"url"`
	Timeout   time.Duration `yaml:"timeout"`
	RateLimit float64       `yaml:"rate_limit"` // requests per second, 0 = unlimited
	RateBurst int           `yaml:"rate_burst"`
}

// StateConfig configures where the session is persisted.
type StateConfig struct {
	Dir     string `yaml:"dir"`
	Backend string `yaml:"backend"` // file | sqlite
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// OAuthConfig configures delegated sign-in.
type OAuthConfig struct {
	Issuer        string   `yaml:"issuer"`
	ClientID      string   `yaml:"client_id"`
	ClientSecret  string   `yaml:"client_secret"`
	Scopes        []string `yaml:"scopes"`
	RevocationURL string   `yaml:"revocation_url"`
}

// CatalogConfig configures the product list.
type CatalogConfig struct {
	PageSize int `yaml:"page_size"`
}

// UpdatesConfig configures the release check. URL "off" disables it.
type UpdatesConfig struct {
	URL string `yaml:"url"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		API: APIConfig{
			URL:       "https://api.escuelajs.co/api/v1",
			Timeout:   30 * time.Second,
			RateLimit: 10,
			RateBurst: 5,
		},
		State: StateConfig{
			Dir:     defaultStateDir(),
			Backend: "file",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		OAuth: OAuthConfig{
			Issuer:        "https://accounts.google.com",
			Scopes:        []string{"openid", "profile", "email"},
			RevocationURL: "https://oauth2.googleapis.com/revoke",
		},
		Catalog: CatalogConfig{PageSize: 10},
		Updates: UpdatesConfig{URL: "https://api.github.com/repos/naveenspark/storefront/releases/latest"},
	}
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".storefront"
	}
	return filepath.Join(home, ".storefront")
}

// DefaultPath returns the config file path used when none is given.
func DefaultPath() string {
	return filepath.Join(defaultStateDir(), "config.yaml")
}

// Load builds the configuration. A missing file at path is not an error;
// an empty path means DefaultPath.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg.applyEnv()
	return &cfg, nil
}

func (c *Config) applyEnv() {
	c.API.URL = getEnvString("STOREFRONT_API_URL", c.API.URL)
	c.API.Timeout = getEnvDuration("STOREFRONT_TIMEOUT", c.API.Timeout)
	c.Catalog.PageSize = getEnvInt("STOREFRONT_PAGE_SIZE", c.Catalog.PageSize)
	c.State.Dir = getEnvString("STOREFRONT_STATE_DIR", c.State.Dir)
	c.State.Backend = getEnvString("STOREFRONT_STATE_BACKEND", c.State.Backend)
	c.Log.Level = getEnvString("STOREFRONT_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnvString("STOREFRONT_LOG_FORMAT", c.Log.Format)
	c.OAuth.Issuer = getEnvString("STOREFRONT_OAUTH_ISSUER", c.OAuth.Issuer)
	c.OAuth.ClientID = getEnvString("STOREFRONT_OAUTH_CLIENT_ID", c.OAuth.ClientID)
	c.OAuth.ClientSecret = getEnvString("STOREFRONT_OAUTH_CLIENT_SECRET", c.OAuth.ClientSecret)
	c.Updates.URL = getEnvString("STOREFRONT_UPDATES_URL", c.Updates.URL)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: api.url %q is not an http(s) URL", c.API.URL)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("config: api.timeout must be positive")
	}
	if c.Catalog.PageSize < 1 {
		return fmt.Errorf("config: catalog.page_size must be at least 1, got %d", c.Catalog.PageSize)
	}
	switch c.State.Backend {
	case "file", "sqlite":
	default:
		return fmt.Errorf("config: state.backend must be file or sqlite, got %q", c.State.Backend)
	}
	if c.State.Dir == "" {
		return fmt.Errorf("config: state.dir is empty")
	}
	if c.UpdatesEnabled() {
		u, err := url.Parse(c.Updates.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("config: updates.url %q is not an http(s) URL", c.Updates.URL)
		}
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format must be json or console, got %q", c.Log.Format)
	}
	return nil
}

// UpdatesEnabled reports whether the client checks for new releases.
func (c *Config) UpdatesEnabled() bool {
	return c.Updates.URL != "" && c.Updates.URL != "off"
}

// OAuthEnabled reports whether delegated sign-in is configured.
func (c *Config) OAuthEnabled() bool {
	return c.OAuth.Issuer != "" && c.OAuth.ClientID != ""
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
