package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"vhevents/internal/rules"
)

// FeedConfig describes one booking feed.
type FeedConfig struct {
	// ID is an internal identifier used for caching and logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name,omitempty" json:"name,omitempty"`
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url,omitempty" json:"url,omitempty"`
	// File reads the feed from disk instead of URL.
	File string `yaml:"file,omitempty" json:"file,omitempty"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for serve mode.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Env selects the log format: "production" for JSON, anything else for
	// console output.
	Env string `yaml:"env" json:"env"`

	// Timezone is the IANA zone used for the selection window and for feed
	// times that carry no TZID.
	Timezone string `yaml:"timezone" json:"timezone"`

	Feeds []FeedConfig `yaml:"feeds" json:"feeds"`

	// CacheDir holds per-feed ETag caches.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// Rules are evaluated in order; later matches override earlier ones.
	Rules []rules.Rule `yaml:"rules" json:"rules"`

	// Weekly is the older "pattern|Label" list. Each entry becomes a weekly
	// rule placed before Rules.
	Weekly []string `yaml:"weekly,omitempty" json:"weekly,omitempty"`

	// Template is the spreadsheet template. When Rules and Weekly are both
	// empty, rules are read from its Config sheet.
	Template string `yaml:"template,omitempty" json:"template,omitempty"`

	// XLSXOutput and JSONOutput are output paths; "%" becomes YYYY-MM of
	// the selected month.
	XLSXOutput string `yaml:"xlsx_output,omitempty" json:"xlsx_output,omitempty"`
	JSONOutput string `yaml:"json_output,omitempty" json:"json_output,omitempty"`

	// RefreshCron is the serve-mode schedule (standard 5-field cron).
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// Listen is the serve-mode HTTP address.
	Listen string `yaml:"listen" json:"listen"`

	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// envOverrides are read from VHEVENTS_* variables (after .env is loaded)
// and take precedence over the file.
type envOverrides struct {
	Env      string `envconfig:"ENV"`
	Timezone string `envconfig:"TIMEZONE"`
	FeedURL  string `envconfig:"FEED_URL"`
	Listen   string `envconfig:"LISTEN"`
	Username string `envconfig:"BASIC_AUTH_USERNAME"`
	Password string `envconfig:"BASIC_AUTH_PASSWORD"`
}

var ErrNoFeeds = errors.New("no feeds configured")

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Env:         "development",
		Timezone:    "Europe/London",
		Feeds:       []FeedConfig{},
		CacheDir:    "./var/feed-cache",
		Rules:       []rules.Rule{},
		RefreshCron: "0 6 * * *",
		Listen:      "127.0.0.1:8080",
	}
}

// Normalize fills in missing/zero values with defaults.
func (c *Config) Normalize() {
	d := DefaultConfig()
	if c.Env == "" {
		c.Env = d.Env
	}
	if c.Timezone == "" {
		c.Timezone = d.Timezone
	}
	if c.CacheDir == "" {
		c.CacheDir = d.CacheDir
	}
	if c.RefreshCron == "" {
		c.RefreshCron = d.RefreshCron
	}
	if c.Listen == "" {
		c.Listen = d.Listen
	}
	if c.Feeds == nil {
		c.Feeds = []FeedConfig{}
	}
	if c.Rules == nil {
		c.Rules = []rules.Rule{}
	}
	for i := range c.Feeds {
		if c.Feeds[i].ID == "" {
			c.Feeds[i].ID = fmt.Sprintf("feed%d", i+1)
		}
	}
}

// Location resolves Timezone. An unknown zone is a configuration error.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// AllRules returns legacy weekly entries followed by Rules.
func (c *Config) AllRules() []rules.Rule {
	out := rules.ParseLegacy(c.Weekly)
	return append(out, c.Rules...)
}

// HasRules reports whether the file itself defines any rule.
func (c *Config) HasRules() bool {
	return len(c.Rules) > 0 || len(c.Weekly) > 0
}

// Load loads configuration from the given YAML path, then applies .env and
// VHEVENTS_* environment overrides.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - Otherwise the YAML is read and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	cfg, err := loadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.Normalize()
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	// A missing .env is normal outside development.
	_ = godotenv.Load(".env")

	var env envOverrides
	if err := envconfig.Process("VHEVENTS", &env); err != nil {
		return fmt.Errorf("config: environment: %w", err)
	}
	if env.Env != "" {
		c.Env = env.Env
	}
	if env.Timezone != "" {
		c.Timezone = env.Timezone
	}
	if env.Listen != "" {
		c.Listen = env.Listen
	}
	if env.FeedURL != "" {
		c.Feeds = []FeedConfig{{ID: "env", Name: "environment", URL: env.FeedURL}}
	}
	if env.Username != "" && env.Password != "" {
		c.BasicAuth = &BasicAuthConfig{Username: env.Username, Password: env.Password}
	}
	return nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600 perms,
// creating the parent directory (0700) if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".vhevents-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func (c *Config) Save(path string) error {
	return Save(path, c)
}
