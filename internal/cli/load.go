package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-salesdw/internal/etl"
	"github.com/pgEdge/pgedge-salesdw/internal/logging"
	"github.com/pgEdge/pgedge-salesdw/internal/normalize"
	"github.com/pgEdge/pgedge-salesdw/internal/source"
	"github.com/pgEdge/pgedge-salesdw/internal/warehouse"
)

var (
	loadInput             string
	loadFormat            string
	loadSheet             string
	loadPolicy            string
	loadMargin            string
	loadBatchSize         int
	loadDropExisting      bool
	loadForce             bool
	loadKeepDuplicates    bool
	loadExportTransformed string
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load a sales extract into the warehouse",
	Long: `Read a sales extract, transform it, and write it to the warehouse in a
single transaction.

Write Policies:
  rebuild - Clear the warehouse and reload it from this batch (default)
  append  - Add the batch, keeping existing dimension keys stable.
            A batch whose content was already loaded is refused unless
            --force is given.

Example:
  pgedge-salesdw load --input sales_data.csv
  pgedge-salesdw load --input sales.xlsx --sheet Orders --policy append
  pgedge-salesdw load --input sales_data.csv --store postgres --dsn "postgres://..."`,
	RunE: runLoad,
}

func init() {
	loadCmd.Flags().StringVar(&loadInput, "input", "",
		"path to the CSV or XLSX extract")
	loadCmd.Flags().StringVar(&loadFormat, "format", "",
		"input format: auto, csv, xlsx")
	loadCmd.Flags().StringVar(&loadSheet, "sheet", "",
		"XLSX sheet name (default: first sheet)")
	loadCmd.Flags().StringVar(&loadPolicy, "policy", "",
		"write policy: rebuild, append")
	loadCmd.Flags().StringVar(&loadMargin, "margin", "",
		"profit margin applied to the sales amount (e.g. 0.25)")
	loadCmd.Flags().IntVar(&loadBatchSize, "batch-size", 0,
		"rows per INSERT statement")
	loadCmd.Flags().BoolVar(&loadDropExisting, "drop-existing", false,
		"drop the warehouse schema before loading")
	loadCmd.Flags().BoolVar(&loadForce, "force", false,
		"append a batch even if it was already loaded")
	loadCmd.Flags().BoolVar(&loadKeepDuplicates, "keep-duplicates", false,
		"load exact duplicate source rows instead of dropping them")
	loadCmd.Flags().StringVar(&loadExportTransformed, "export-transformed", "",
		"also write the transformed rows to this CSV file")
}

func runLoad(cmd *cobra.Command, args []string) error {
	// Override config with CLI flags
	if loadInput != "" {
		cfg.Input.Path = loadInput
	}
	if loadFormat != "" {
		cfg.Input.Format = loadFormat
	}
	if loadSheet != "" {
		cfg.Input.Sheet = loadSheet
	}
	if loadPolicy != "" {
		cfg.Load.Policy = loadPolicy
	}
	if loadMargin != "" {
		cfg.Load.Margin = loadMargin
	}
	if loadBatchSize > 0 {
		cfg.Load.BatchSize = loadBatchSize
	}
	if loadDropExisting {
		cfg.Load.DropExisting = true
	}
	if loadForce {
		cfg.Load.Force = true
	}
	if loadKeepDuplicates {
		cfg.Load.DropDuplicateRows = false
	}
	if loadExportTransformed != "" {
		cfg.Load.ExportTransformed = loadExportTransformed
	}

	// Validate configuration
	if err := cfg.ValidateLoad(); err != nil {
		return err
	}

	policy, err := warehouse.ParsePolicy(cfg.Load.Policy)
	if err != nil {
		return err
	}
	margin, err := cfg.Margin()
	if err != nil {
		return err
	}

	opts := etl.DefaultOptions()
	opts.Normalize = normalize.Options{
		Defaults:    cfg.Load.Defaults,
		DateLayouts: cfg.Load.DateLayouts,
	}
	opts.Margin = margin
	opts.Policy = policy
	opts.DropDuplicateRows = cfg.Load.DropDuplicateRows
	opts.Force = cfg.Load.Force

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case sig := <-sigChan:
			logging.Info().
				Str("signal", sig.String()).
				Msg("Received shutdown signal, rolling back")
			cancel()
		case <-ctx.Done():
		}
	}()

	start := time.Now()

	rows, err := source.Open(cfg.Input.Path, cfg.Input.Format, cfg.Input.Sheet, nil)
	if err != nil {
		return err
	}
	logging.Info().
		Str("input", cfg.Input.Path).
		Int("rows", len(rows)).
		Msg("Read source extract")

	w, err := openWriter(ctx, cfg.Load.BatchSize)
	if err != nil {
		return err
	}
	defer w.Store().Close()

	if cfg.Load.DropExisting {
		logging.Info().Msg("Dropping existing schema")
		if err := w.DropSchema(ctx); err != nil {
			return fmt.Errorf("failed to drop schema: %w", err)
		}
	}
	if err := w.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	logging.Info().
		Str("store", cfg.Store.Driver).
		Str("policy", string(policy)).
		Str("margin", margin.String()).
		Msg("Starting load")

	res, err := etl.Load(ctx, w, rows, opts)
	if err != nil {
		if errors.Is(err, warehouse.ErrBatchLoaded) {
			return fmt.Errorf("%w; use --force to append it again or --policy rebuild to reload", err)
		}
		if ctx.Err() != nil {
			return fmt.Errorf("load interrupted, no rows were written: %w", err)
		}
		return fmt.Errorf("load failed: %w", err)
	}

	etl.LogReport(res.Report, cfg.Load.MaxLoggedRejections)

	if cfg.Load.ExportTransformed != "" {
		if err := exportTransformed(cfg.Load.ExportTransformed, res); err != nil {
			return err
		}
	}

	logging.Info().
		Dur("elapsed", time.Since(start)).
		Msg("Load complete")

	return nil
}

func exportTransformed(path string, res *etl.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	if err := etl.ExportTransformed(f, res.Derived); err != nil {
		f.Close()
		return fmt.Errorf("failed to export transformed rows: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to export transformed rows: %w", err)
	}
	logging.Info().
		Str("path", path).
		Int("rows", len(res.Derived)).
		Msg("Exported transformed rows")
	return nil
}
