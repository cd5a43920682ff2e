// internal/config/config.go
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const (
	defaultUpstreamTimeout   = 10 * time.Second
	defaultDetailConcurrency = 8
	defaultRefreshCron       = "*/5 * * * *"
	defaultSessionIdle       = 2 * time.Hour
	defaultDecisionsPerMin   = 30
)

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Filename string `yaml:"filename"`
}

type UpstreamConfig struct {
	BaseURL     string        `yaml:"base_url"`
	Timeout     time.Duration `yaml:"timeout"`
	AccessToken string        `yaml:"-"` // Loaded from environment
}

type DashboardConfig struct {
	Timezone          string `yaml:"timezone"`
	DetailConcurrency int    `yaml:"detail_concurrency"`
	// Standard 5-field cron expression for the promotion refresh job
	RefreshCron string        `yaml:"refresh_cron"`
	SessionIdle time.Duration `yaml:"session_idle"`
	// Approve/decline requests allowed per host session per minute
	DecisionsPerMinute int `yaml:"decisions_per_minute"`
}

type Config struct {
	App struct {
		Name        string `yaml:"name"`
		Environment string `yaml:"environment"`
		Port        int    `yaml:"port"`
		BaseURL     string `yaml:"base_url"`
		// Honor X-Forwarded-For when behind a reverse proxy
		TrustProxy bool `yaml:"trust_proxy"`
	} `yaml:"app"`

	Upstream  UpstreamConfig  `yaml:"upstream"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Database  DatabaseConfig  `yaml:"database"`
}

// Load loads both .env and yaml configuration
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	// Load sensitive values from environment
	cfg.Upstream.AccessToken = os.Getenv("UPSTREAM_ACCESS_TOKEN")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML and fills defaults without validating.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.Environment == "" {
		c.App.Environment = "development"
	}
	if c.Upstream.Timeout <= 0 {
		c.Upstream.Timeout = defaultUpstreamTimeout
	}
	if c.Dashboard.DetailConcurrency <= 0 {
		c.Dashboard.DetailConcurrency = defaultDetailConcurrency
	}
	if c.Dashboard.RefreshCron == "" {
		c.Dashboard.RefreshCron = defaultRefreshCron
	}
	if c.Dashboard.SessionIdle <= 0 {
		c.Dashboard.SessionIdle = defaultSessionIdle
	}
	if c.Dashboard.DecisionsPerMinute <= 0 {
		c.Dashboard.DecisionsPerMinute = defaultDecisionsPerMin
	}
}

func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}
	if c.App.Port == 0 {
		return fmt.Errorf("app port is required")
	}

	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("upstream base_url is required")
	}
	u, err := url.Parse(c.Upstream.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("upstream base_url must be an absolute URL: %q", c.Upstream.BaseURL)
	}

	if _, err := c.Dashboard.Location(); err != nil {
		return err
	}
	if _, err := cron.ParseStandard(c.Dashboard.RefreshCron); err != nil {
		return fmt.Errorf("invalid dashboard refresh_cron %q: %w", c.Dashboard.RefreshCron, err)
	}

	if c.Database.Driver == "" {
		return fmt.Errorf("database driver is required")
	}
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Filename == "" {
			return fmt.Errorf("database filename is required for sqlite")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	return nil
}

// Location resolves the dashboard timezone. Empty means the server's local zone.
func (d DashboardConfig) Location() (*time.Location, error) {
	if d.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(d.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid dashboard timezone %q: %w", d.Timezone, err)
	}
	return loc, nil
}
