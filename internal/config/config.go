// Package config loads the optional YAML configuration file that sets
// tool-wide defaults. Every field has a working default; a missing file
// is not an error.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds tool-wide defaults. Command-line flags override these.
type Config struct {
	// Workers is the batch worker pool size.
	Workers int `yaml:"workers"`

	// QAQC holds defaults for the run-qaqc command.
	QAQC QAQCConfig `yaml:"qaqc"`

	// RunLog controls run-history recording.
	RunLog RunLogConfig `yaml:"runlog"`
}

// QAQCConfig holds run-qaqc defaults.
type QAQCConfig struct {
	// PercentCheck is the sampling percentage for batch runs.
	PercentCheck float64 `yaml:"percent_check"`

	// OutputFormat is csv or parquet.
	OutputFormat string `yaml:"output_format"`

	// Compression is the Parquet codec for the report: zstd, snappy,
	// gzip, lz4, none.
	Compression string `yaml:"compression"`
}

// RunLogConfig controls the DuckDB run history.
type RunLogConfig struct {
	// Enabled turns run recording on.
	Enabled bool `yaml:"enabled"`

	// Path is the database file location.
	Path string `yaml:"path"`
}

// DefaultConfig returns a Config with working defaults.
func DefaultConfig() *Config {
	return &Config{
		Workers: 8,
		QAQC: QAQCConfig{
			PercentCheck: 100,
			OutputFormat: "csv",
			Compression:  "zstd",
		},
		RunLog: RunLogConfig{
			Enabled: false,
			Path:    "cloudconv-runs.db",
		},
	}
}

// Load reads the YAML file at path over the defaults. A missing file
// yields the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Environment variables expand before parsing.
	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Workers < 0 {
		return fmt.Errorf("workers cannot be negative")
	}
	if cfg.QAQC.PercentCheck < 0 || cfg.QAQC.PercentCheck > 100 {
		return fmt.Errorf("qaqc.percent_check must be within [0, 100]")
	}
	switch cfg.QAQC.OutputFormat {
	case "", "csv", "parquet":
	default:
		return fmt.Errorf("qaqc.output_format must be csv or parquet")
	}
	switch cfg.QAQC.Compression {
	case "", "zstd", "snappy", "gzip", "lz4", "none":
	default:
		return fmt.Errorf("qaqc.compression must be one of zstd, snappy, gzip, lz4, none")
	}
	return nil
}
