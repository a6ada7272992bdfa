package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`

	JWT struct {
		Secret     string `yaml:"secret"`
		TTLMinutes int    `yaml:"ttl_minutes"`
	} `yaml:"jwt"`

	DB struct {
		DSN string `yaml:"dsn"`
	} `yaml:"db"`

	Log struct {
		Level  string `yaml:"level"`  // debug, info, warn, error
		Format string `yaml:"format"` // json, console
		Output string `yaml:"output"` // stdout, stderr, file path
	} `yaml:"log"`

	Upstream struct {
		BaseURL  string `yaml:"base_url"`
		AuthURL  string `yaml:"auth_url"`
		APIToken string `yaml:"api_token"`
	} `yaml:"upstream"`

	Status StatusConfig `yaml:"status"`
}

// StatusConfig carries the tuning knobs of the status engine. The
// defaults match the deployment this service was tuned against; all of
// them can be overridden per environment.
type StatusConfig struct {
	PollInterval         time.Duration `yaml:"poll_interval"`
	FallbackInterval     time.Duration `yaml:"fallback_interval"`
	FetchTimeout         time.Duration `yaml:"fetch_timeout"`
	SuspendCheckInterval time.Duration `yaml:"suspend_check_interval"`
	SuspendCheckDelay    time.Duration `yaml:"suspend_check_delay"`
	BatchCap             int           `yaml:"batch_cap"`
	NotifyChannel        string        `yaml:"notify_channel"`

	// Views allowed to drive live polling. Pages not on this list must
	// not start a scheduler.
	ActiveContexts []string `yaml:"active_contexts"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.JWT.TTLMinutes == 0 {
		c.JWT.TTLMinutes = 60
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stdout"
	}
	if c.Status.PollInterval == 0 {
		c.Status.PollInterval = 7 * time.Second
	}
	if c.Status.FallbackInterval == 0 {
		c.Status.FallbackInterval = 10 * time.Minute
	}
	if c.Status.FetchTimeout == 0 {
		c.Status.FetchTimeout = 15 * time.Second
	}
	if c.Status.SuspendCheckInterval == 0 {
		c.Status.SuspendCheckInterval = 2 * time.Minute
	}
	if c.Status.SuspendCheckDelay == 0 {
		c.Status.SuspendCheckDelay = 5 * time.Second
	}
	if c.Status.BatchCap == 0 {
		c.Status.BatchCap = 7
	}
	if c.Status.NotifyChannel == "" {
		c.Status.NotifyChannel = "ext_status_changed"
	}
	if len(c.Status.ActiveContexts) == 0 {
		c.Status.ActiveContexts = []string{"dashboard", "agents", "webphone"}
	}
}
