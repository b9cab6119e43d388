package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gyeh/qlcheck/internal/logging"
)

// Config holds all runtime configuration for a qlcheck run.
type Config struct {
	LogFormat   string // "text" or "json"
	LogLevel    string // operational log level, "info" by default
	ConfigPath  string
	OutputLevel string // "info" or "debug"
	Output      string // "-" for stdout
	Timezone    string // IANA name, empty for local time
	StoreDSN    string

	// extract only
	ParquetPath    string
	TargetCommands []string
	TargetTables   []string
}

// yamlConfig is the on-disk YAML structure.
type yamlConfig struct {
	LogFormat      string   `yaml:"log_format"`
	LogLevel       string   `yaml:"log_level"`
	OutputLevel    string   `yaml:"output_level"`
	Output         string   `yaml:"output"`
	Timezone       string   `yaml:"timezone"`
	StoreDSN       string   `yaml:"store_dsn"`
	TargetCommands []string `yaml:"target_commands"`
	TargetTables   []string `yaml:"target_tables"`
}

// LoadFromFile reads a YAML config file and merges its values into Config.
// A value is taken from the file only when it is set there and changed
// reports false for the matching flag, so explicit flags win.
func (c *Config) LoadFromFile(path string, changed func(flag string) bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	if changed == nil {
		changed = func(string) bool { return false }
	}

	merge := func(flag string, dst *string, v string) {
		if v != "" && !changed(flag) {
			*dst = v
		}
	}
	merge("log-format", &c.LogFormat, yc.LogFormat)
	merge("log-level", &c.LogLevel, yc.LogLevel)
	merge("output-level", &c.OutputLevel, yc.OutputLevel)
	merge("output", &c.Output, yc.Output)
	merge("timezone", &c.Timezone, yc.Timezone)
	merge("store-dsn", &c.StoreDSN, yc.StoreDSN)
	if len(yc.TargetCommands) > 0 && !changed("target-command") {
		c.TargetCommands = yc.TargetCommands
	}
	if len(yc.TargetTables) > 0 && !changed("target-table") {
		c.TargetTables = yc.TargetTables
	}
	return nil
}

// Validate checks the fields shared by every subcommand.
func (c *Config) Validate() error {
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q: must be text or json", c.LogFormat)
	}
	if c.LogLevel != "" {
		if _, err := logging.ParseLogLevel(c.LogLevel); err != nil {
			return err
		}
	}
	if c.OutputLevel != "" {
		if _, err := logging.ParseOutputLevel(c.OutputLevel); err != nil {
			return err
		}
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.StoreDSN != "" {
		if _, err := StoreKind(c.StoreDSN); err != nil {
			return err
		}
	}
	return nil
}

// ValidateExtract checks the extract-only fields.
func (c *Config) ValidateExtract() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.ParquetPath == "" {
		return fmt.Errorf("--output is required")
	}
	return nil
}

// Location resolves Timezone. An empty Timezone means local time.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Store kinds recognized in a DSN.
const (
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// StoreKind returns the store a DSN points at, judged by its scheme.
func StoreKind(dsn string) (string, error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return StorePostgres, nil
	case strings.HasPrefix(dsn, "sqlite://"), strings.HasPrefix(dsn, "file:"):
		return StoreSQLite, nil
	}
	return "", fmt.Errorf("unsupported store DSN %q: must start with postgres:// or sqlite://", dsn)
}
