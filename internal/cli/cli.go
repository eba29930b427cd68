//-------------------------------------------------------------------------
//
// pgEdge Sales Warehouse
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package cli implements the command-line interface for pgedge-salesdw.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-salesdw/internal/config"
	"github.com/pgEdge/pgedge-salesdw/internal/db"
	"github.com/pgEdge/pgedge-salesdw/internal/logging"
	"github.com/pgEdge/pgedge-salesdw/internal/reports"
	"github.com/pgEdge/pgedge-salesdw/internal/warehouse"
	"github.com/pgEdge/pgedge-salesdw/pkg/version"
)

var (
	// Global flags
	cfgFile     string
	storeDriver string
	storeDSN    string
	logLevel    string

	// Global config
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "pgedge-salesdw",
		Short: "Sales extract to star schema ETL",
		Long: `pgedge-salesdw loads a flat sales extract (CSV or XLSX) into a star
schema warehouse: a date, customer and product dimension around a
fact_sales table.

Rows are cleaned and typed, derived measures (sales amount, profit and
deal size) are computed, and dimension keys are assigned before the batch
is written in a single transaction to SQLite or PostgreSQL. Rows that
cannot be loaded are reported with their line number and reason; they
never abort the batch.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: ./pgedge-salesdw.yaml)")
	rootCmd.PersistentFlags().StringVar(&storeDriver, "store", "",
		"warehouse store (sqlite, postgres)")
	rootCmd.PersistentFlags().StringVar(&storeDSN, "dsn", "",
		"SQLite database path or PostgreSQL connection string")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level (debug, info, warn, error)")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(reportsCmd)
	rootCmd.AddCommand(generateCmd)
}

func initConfig() error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return err
	}

	// Override with CLI flags
	if storeDriver != "" {
		cfg.Store.Driver = storeDriver
	}
	if storeDSN != "" {
		cfg.Store.DSN = storeDSN
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	// Reinitialize logger with config
	logging.Init(logging.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
	})

	return nil
}

// openWriter connects to the configured store.
func openWriter(ctx context.Context, batchSize int) (*warehouse.Writer, error) {
	store, err := db.Open(ctx, cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to store: %w", err)
	}

	opts := warehouse.DefaultOptions()
	if batchSize > 0 {
		opts.BatchSize = batchSize
	}
	return warehouse.NewWriter(store, opts), nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println(version.Info())
	},
}

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "List available reports",
	Long: `List the fixed aggregation queries that can be run against a loaded
warehouse with the 'report' command.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println("Available reports:")
		cmd.Println()
		for _, d := range reports.All() {
			cmd.Printf("  %-14s - %s\n", d.Name, d.Description)
		}
		cmd.Println()
		cmd.Println("Use 'pgedge-salesdw report <name>...' to run them.")
	},
}
