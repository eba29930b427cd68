//-------------------------------------------------------------------------
//
// pgEdge Sales Warehouse
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package config handles configuration management for pgedge-salesdw.
// Configuration is loaded from config files and CLI flags (no environment variables).
// CLI flags take precedence over config file values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all configuration for pgedge-salesdw.
type Config struct {
	// LogLevel controls logging verbosity (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level"`

	// Store selects the warehouse backend.
	Store StoreConfig `mapstructure:"store"`

	// Input describes the source batch.
	Input InputConfig `mapstructure:"input"`

	// Load holds configuration for the load subcommand.
	Load LoadConfig `mapstructure:"load"`

	// Generate holds configuration for the generate subcommand.
	Generate GenerateConfig `mapstructure:"generate"`

	// Report holds configuration for the report subcommand.
	Report ReportConfig `mapstructure:"report"`
}

// StoreConfig selects and addresses the warehouse store.
type StoreConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `mapstructure:"driver"`

	// DSN is a file path / sqlite URI, or a PostgreSQL connection string.
	DSN string `mapstructure:"dsn"`
}

// InputConfig describes the source file.
type InputConfig struct {
	// Path is the CSV or XLSX file to load.
	Path string `mapstructure:"path"`

	// Format is csv, xlsx, or auto (by extension).
	Format string `mapstructure:"format"`

	// Sheet is the XLSX sheet name; empty means the first sheet.
	Sheet string `mapstructure:"sheet"`
}

// LoadConfig holds the transform and write policy.
type LoadConfig struct {
	// Policy is "rebuild" (truncate and reload) or "append".
	Policy string `mapstructure:"policy"`

	// Margin is the profit margin applied to the extended sale amount,
	// as a decimal string.
	Margin string `mapstructure:"margin"`

	// DateLayouts are tried in order when parsing the order date.
	DateLayouts []string `mapstructure:"date_layouts"`

	// Defaults maps nullable source fields to their fill value.
	Defaults map[string]string `mapstructure:"defaults"`

	// BatchSize is the number of rows per multi-row INSERT.
	BatchSize int `mapstructure:"batch_size"`

	// DropDuplicateRows drops exact duplicate source rows before normalizing.
	DropDuplicateRows bool `mapstructure:"drop_duplicate_rows"`

	// DropExisting drops the warehouse schema before loading.
	DropExisting bool `mapstructure:"drop_existing"`

	// Force appends a batch even if its fingerprint was already loaded.
	Force bool `mapstructure:"force"`

	// MaxLoggedRejections caps how many individual rejections are logged.
	MaxLoggedRejections int `mapstructure:"max_logged_rejections"`

	// ExportTransformed, when set, writes the derived rows to this CSV path.
	ExportTransformed string `mapstructure:"export_transformed"`
}

// GenerateConfig holds configuration for synthetic input generation.
type GenerateConfig struct {
	// Rows is the number of order lines to generate.
	Rows int `mapstructure:"rows"`

	// Seed makes output reproducible; 0 means random.
	Seed uint64 `mapstructure:"seed"`

	// DirtyRatio is the share of rows that receive realistic defects.
	DirtyRatio float64 `mapstructure:"dirty_ratio"`

	// Output is the CSV path to write.
	Output string `mapstructure:"output"`
}

// ReportConfig holds configuration for the reporting queries.
type ReportConfig struct {
	// TopN bounds the top customers query.
	TopN int `mapstructure:"top_n"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Store: StoreConfig{
			Driver: "sqlite",
			DSN:    "warehouse.db",
		},
		Input: InputConfig{
			Format: "auto",
		},
		Load: LoadConfig{
			Policy: "rebuild",
			Margin: "0.25",
			DateLayouts: []string{
				"1/2/2006 15:04",
				"1/2/2006 15:04:05",
				"1/2/2006",
				"2006-01-02",
				"2006-01-02 15:04:05",
				"2006-01-02T15:04:05Z07:00",
			},
			Defaults: map[string]string{
				"state":       "N/A",
				"territory":   "N/A",
				"postal_code": "0",
			},
			BatchSize:           500,
			DropDuplicateRows:   true,
			MaxLoggedRejections: 20,
		},
		Generate: GenerateConfig{
			Rows:       2000,
			DirtyRatio: 0.05,
			Output:     "sales_data.csv",
		},
		Report: ReportConfig{
			TopN: 5,
		},
	}
}

// Load reads configuration from config files.
// Config file locations (in order of precedence):
// 1. Path specified by configFile parameter
// 2. ./pgedge-salesdw.yaml
// 3. ~/.config/pgedge-salesdw/config.yaml
func Load(configFile string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("pgedge-salesdw")
	v.SetConfigType("yaml")

	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "pgedge-salesdw"))
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	}

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// Validate checks that the store is addressable.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("store driver must be 'sqlite' or 'postgres', got '%s'", c.Store.Driver)
	}
	if c.Store.DSN == "" {
		return fmt.Errorf("store dsn is required")
	}
	return nil
}

// ValidateLoad checks configuration required for the load command.
func (c *Config) ValidateLoad() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Input.Path == "" {
		return fmt.Errorf("input path is required for load")
	}
	switch c.Input.Format {
	case "", "auto", "csv", "xlsx":
	default:
		return fmt.Errorf("input format must be 'auto', 'csv' or 'xlsx'")
	}
	if c.Load.Policy != "rebuild" && c.Load.Policy != "append" {
		return fmt.Errorf("policy must be 'rebuild' or 'append'")
	}
	if _, err := c.Margin(); err != nil {
		return err
	}
	if len(c.Load.DateLayouts) == 0 {
		return fmt.Errorf("at least one date layout is required")
	}
	if c.Load.BatchSize < 1 {
		return fmt.Errorf("batch_size must be at least 1")
	}
	if c.Load.MaxLoggedRejections < 0 {
		return fmt.Errorf("max_logged_rejections must be non-negative")
	}
	return nil
}

// ValidateGenerate checks configuration required for the generate command.
func (c *Config) ValidateGenerate() error {
	if c.Generate.Rows < 1 {
		return fmt.Errorf("rows must be at least 1")
	}
	if c.Generate.DirtyRatio < 0 || c.Generate.DirtyRatio > 1 {
		return fmt.Errorf("dirty_ratio must be between 0 and 1")
	}
	if c.Generate.Output == "" {
		return fmt.Errorf("output path is required for generate")
	}
	return nil
}

// ValidateReport checks configuration required for the report command.
func (c *Config) ValidateReport() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Report.TopN < 1 {
		return fmt.Errorf("top_n must be at least 1")
	}
	return nil
}

// Margin parses the configured profit margin.
func (c *Config) Margin() (decimal.Decimal, error) {
	m, err := decimal.NewFromString(c.Load.Margin)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid margin '%s': %w", c.Load.Margin, err)
	}
	if m.IsNegative() {
		return decimal.Zero, fmt.Errorf("margin must be non-negative, got %s", c.Load.Margin)
	}
	return m, nil
}
