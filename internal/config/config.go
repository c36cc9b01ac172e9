// Package config handles YAML configuration for awsx.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Region      string        `yaml:"region"`
	Profile     string        `yaml:"profile"`
	MaxAttempts int           `yaml:"max_attempts"`
	Log         LogConfig     `yaml:"log"`
	Output      OutputConfig  `yaml:"output"`
	OTEL        OTELConfig    `yaml:"otel"`
	Metrics     PushConfig    `yaml:"metrics"`
	History     HistoryConfig `yaml:"history"`
	Policy      PolicyConfig  `yaml:"policy"`
	Logs        LogsConfig    `yaml:"logs"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
}

// OutputConfig holds the default output settings.
type OutputConfig struct {
	Format string `yaml:"format"`
}

// OTELConfig holds OpenTelemetry settings.
type OTELConfig struct {
	Endpoint    string        `yaml:"endpoint"`
	Insecure    bool          `yaml:"insecure"`
	ServiceName string        `yaml:"service_name"`
	Traces      TracesConfig  `yaml:"traces"`
	Metrics     MetricsConfig `yaml:"metrics"`
}

// TracesConfig holds tracing settings.
type TracesConfig struct {
	Enabled    bool    `yaml:"enabled"`
	SampleRate float64 `yaml:"sample_rate"`
}

// MetricsConfig holds OTLP metrics settings.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// PushConfig holds Prometheus Pushgateway settings. Runs are short-lived,
// so metrics are pushed once on exit instead of being scraped.
type PushConfig struct {
	Pushgateway string `yaml:"pushgateway"`
	Job         string `yaml:"job"`
}

// HistoryConfig controls the local run history database.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	Keep    int    `yaml:"keep"`
}

// PolicyConfig controls the guard in front of destructive examples.
type PolicyConfig struct {
	File             string `yaml:"file"`
	AllowDestructive bool   `yaml:"allow_destructive"`
}

// LogsConfig tunes the CloudWatch Logs Insights large-query helper.
type LogsConfig struct {
	Concurrency int `yaml:"concurrency"`
	Limit       int `yaml:"limit"`
}

// Dir returns the per-user awsx directory.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".awsx"
	}
	return filepath.Join(home, ".awsx")
}

// DefaultPath is where Load looks when no path is given.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{
		History: HistoryConfig{Enabled: true},
	}
	applyDefaults(cfg)
	return cfg
}

// Load reads and parses a YAML config file. An empty path reads the
// default location and tolerates it being absent.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path) // #nosec G304 -- path is intentional user input
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{History: HistoryConfig{Enabled: true}}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Output.Format == "" {
		cfg.Output.Format = "text"
	}
	if cfg.OTEL.ServiceName == "" {
		cfg.OTEL.ServiceName = "awsx"
	}
	if cfg.Metrics.Job == "" {
		cfg.Metrics.Job = "awsx"
	}
	if cfg.History.Path == "" {
		cfg.History.Path = filepath.Join(Dir(), "history.db")
	}
	if cfg.History.Keep == 0 {
		cfg.History.Keep = 500
	}
	if cfg.Logs.Concurrency == 0 {
		cfg.Logs.Concurrency = 5
	}
	if cfg.Logs.Limit == 0 {
		cfg.Logs.Limit = 10000
	}
}

// Validate checks the configuration is valid.
func (c *Config) Validate() error {
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1 (got %d)", c.MaxAttempts)
	}
	switch c.Output.Format {
	case "json", "text":
	default:
		return fmt.Errorf("output: format must be json or text (got %q)", c.Output.Format)
	}
	if c.OTEL.Traces.SampleRate < 0.0 || c.OTEL.Traces.SampleRate > 1.0 {
		return fmt.Errorf("otel: traces.sample_rate must be between 0.0 and 1.0 (got %v)", c.OTEL.Traces.SampleRate)
	}
	if c.Logs.Concurrency < 1 || c.Logs.Concurrency > 30 {
		return fmt.Errorf("logs: concurrency must be between 1 and 30 (got %d)", c.Logs.Concurrency)
	}
	if c.Logs.Limit < 1 || c.Logs.Limit > 10000 {
		return fmt.Errorf("logs: limit must be between 1 and 10000 (got %d)", c.Logs.Limit)
	}
	if c.History.Keep < 1 {
		return fmt.Errorf("history: keep must be positive (got %d)", c.History.Keep)
	}
	return nil
}
