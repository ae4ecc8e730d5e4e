// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Channel ChannelConfig `yaml:"channel"`
	Player  PlayerConfig  `yaml:"player"`
}

// ServerConfig represents server configuration.
type ServerConfig struct {
	Addr        string      `yaml:"addr" default:":8080" validate:"required"`
	CORSOrigins []string    `yaml:"cors_origins" default:"[\"*\"]"`
	Hooks       HooksConfig `yaml:"hooks"`
}

// HooksConfig lists shell commands run around the server lifecycle.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnStopped []string `yaml:"on_stopped"`
}

// ChannelConfig represents the channel source and polling configuration.
type ChannelConfig struct {
	Name              string `yaml:"name" default:"tvchannel"`
	Source            string `yaml:"source" validate:"required"`
	PollIntervalMs    int    `yaml:"poll_interval_ms" default:"1000" validate:"gte=100,lte=60000"`
	ReloadIntervalSec int    `yaml:"reload_interval_sec" validate:"gte=0"` // 0 disables periodic reload
	FetchTimeoutSec   int    `yaml:"fetch_timeout_sec" default:"10" validate:"gte=1,lte=120"`
}

// PlayerConfig represents the player backend configuration.
type PlayerConfig struct {
	Type     string         `yaml:"type" default:"clock" validate:"required,oneof=clock remote"`
	Settings map[string]any `yaml:"settings"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse parses configuration from YAML bytes, applying environment
// overrides, defaults and validation.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("TVCHANNEL_SOURCE"); v != "" {
		c.Channel.Source = v
	}
	if v := os.Getenv("TVCHANNEL_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("TVCHANNEL_PLAYER"); v != "" {
		c.Player.Type = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}

// PollInterval returns the watcher polling interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Channel.PollIntervalMs) * time.Millisecond
}

// ReloadInterval returns the periodic reload interval, or 0 when disabled.
func (c *Config) ReloadInterval() time.Duration {
	return time.Duration(c.Channel.ReloadIntervalSec) * time.Second
}

// FetchTimeout returns the timeout for fetching the source document.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Channel.FetchTimeoutSec) * time.Second
}
