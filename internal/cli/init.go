package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-salesdw/internal/logging"
)

var initDropExisting bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the warehouse schema",
	Long: `Create the star schema and ETL ledger tables in the configured store.
Running init on an initialized warehouse applies only migrations that are
not yet recorded.

Example:
  pgedge-salesdw init --store sqlite --dsn warehouse.db
  pgedge-salesdw init --store postgres --dsn "postgres://..." --drop-existing`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initDropExisting, "drop-existing", false,
		"drop existing schema before initialization")
}

func runInit(cmd *cobra.Command, args []string) error {
	if initDropExisting {
		cfg.Load.DropExisting = true
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	logging.Info().
		Str("store", cfg.Store.Driver).
		Msg("Initializing warehouse")

	ctx := context.Background()
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
		Msg("Warehouse initialization complete")

	return nil
}
