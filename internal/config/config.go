// Package config holds the YAML configuration of a training run: where the
// snapshot store lives, how much data is enough to train on, and how the
// optional live collector samples the system.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root training-pipeline configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store"`
	Dataset   DatasetConfig   `yaml:"dataset"`
	Collector CollectorConfig `yaml:"collector"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// StoreConfig locates the snapshot store.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// DatasetConfig sets the minimum store contents worth training on.
type DatasetConfig struct {
	MinSnapshots int `yaml:"min_snapshots"`
	MinProcesses int `yaml:"min_processes"`
	MinGroups    int `yaml:"min_groups"`
}

// CollectorConfig drives the optional live sampler.
type CollectorConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Interval  time.Duration `yaml:"interval"`
	Snapshots int           `yaml:"snapshots"`
}

// LoggingConfig selects the slog level and handler format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given: an on-disk
// store next to the working directory and the original training minimums.
func Default() *Config {
	return &Config{
		Store: StoreConfig{Path: "training_data.sqlite"},
		Dataset: DatasetConfig{
			MinSnapshots: 1,
			MinProcesses: 10,
			MinGroups:    1,
		},
		Collector: CollectorConfig{
			Enabled:   false,
			Interval:  5 * time.Second,
			Snapshots: 12,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load reads and validates a YAML config file. Fields absent from the file
// keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every section and joins all violations.
func (c *Config) Validate() error {
	var errs []error

	if c.Store.Path == "" {
		errs = append(errs, errors.New("store: path must not be empty"))
	}

	if err := c.Dataset.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("dataset: %w", err))
	}
	if err := c.Collector.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("collector: %w", err))
	}
	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("logging: %w", err))
	}

	return errors.Join(errs...)
}

func (d *DatasetConfig) Validate() error {
	var errs []error
	if d.MinSnapshots < 0 {
		errs = append(errs, fmt.Errorf("min_snapshots must not be negative, got %d", d.MinSnapshots))
	}
	if d.MinProcesses < 0 {
		errs = append(errs, fmt.Errorf("min_processes must not be negative, got %d", d.MinProcesses))
	}
	if d.MinGroups < 0 {
		errs = append(errs, fmt.Errorf("min_groups must not be negative, got %d", d.MinGroups))
	}
	return errors.Join(errs...)
}

func (c *CollectorConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	var errs []error
	if c.Interval <= 0 {
		errs = append(errs, fmt.Errorf("interval must be positive, got %s", c.Interval))
	}
	if c.Snapshots < 1 {
		errs = append(errs, fmt.Errorf("snapshots must be at least 1, got %d", c.Snapshots))
	}
	return errors.Join(errs...)
}

func (l *LoggingConfig) Validate() error {
	switch l.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("format must be text or json, got %q", l.Format)
	}
	switch l.Level {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown level %q", l.Level)
	}
	return nil
}
