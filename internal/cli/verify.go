package cli

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-salesdw/internal/logging"
	"github.com/pgEdge/pgedge-salesdw/internal/reports"
	"github.com/pgEdge/pgedge-salesdw/internal/warehouse"
)

var verifyBatches bool

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check warehouse row counts and join integrity",
	Long: `Report the row count of every warehouse table and check that each
fact row joins to its date, customer and product, and that customer names
are unique. Exits with an error if any check fails.`,
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().BoolVar(&verifyBatches, "batches", false,
		"also list the batches recorded in the load ledger")
}

func runVerify(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := context.Background()
	w, err := openWriter(ctx, 0)
	if err != nil {
		return err
	}
	defer w.Store().Close()

	out := cmd.OutOrStdout()

	meta, err := warehouse.GetAllMetadata(ctx, w.Store())
	if err != nil {
		return fmt.Errorf("warehouse has not been initialized; run 'pgedge-salesdw init' first: %w", err)
	}
	metaTable := &reports.Table{Title: "Metadata", Columns: []string{"KEY", "VALUE"}}
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		metaTable.Rows = append(metaTable.Rows, []string{k, meta[k]})
	}
	if err := metaTable.Print(out); err != nil {
		return err
	}

	counts, err := w.Counts(ctx)
	if err != nil {
		return err
	}
	countTable := &reports.Table{Title: "Row counts", Columns: []string{"TABLE", "ROWS"}}
	for _, t := range warehouse.Tables {
		countTable.Rows = append(countTable.Rows, []string{t, strconv.FormatInt(counts[t], 10)})
	}
	if err := countTable.Print(out); err != nil {
		return err
	}

	if verifyBatches {
		batches, err := warehouse.ListBatches(ctx, w.Store())
		if err != nil {
			return err
		}
		batchTable := &reports.Table{
			Title:   "Load ledger",
			Columns: []string{"LOADED AT", "RUN", "POLICY", "SOURCE ROWS", "FACT ROWS", "FINGERPRINT"},
		}
		for _, b := range batches {
			batchTable.Rows = append(batchTable.Rows, []string{
				b.LoadedAt, b.RunID, b.Policy,
				strconv.FormatInt(b.SourceRows, 10), strconv.FormatInt(b.FactRows, 10), b.Fingerprint,
			})
		}
		if err := batchTable.Print(out); err != nil {
			return err
		}
	}

	integrity, err := w.CheckIntegrity(ctx)
	if err != nil {
		return err
	}
	checkTable := &reports.Table{Title: "Integrity", Columns: []string{"CHECK", "PROBLEMS"}}
	checkTable.Rows = [][]string{
		{"facts without customer", strconv.FormatInt(integrity.OrphanCustomers, 10)},
		{"facts without date", strconv.FormatInt(integrity.OrphanDates, 10)},
		{"facts without product", strconv.FormatInt(integrity.OrphanProducts, 10)},
		{"duplicate customer names", strconv.FormatInt(integrity.DuplicateCustomerNames, 10)},
	}
	if err := checkTable.Print(out); err != nil {
		return err
	}

	if !integrity.OK() {
		logging.Error().
			Int64("orphan_customers", integrity.OrphanCustomers).
			Int64("orphan_dates", integrity.OrphanDates).
			Int64("orphan_products", integrity.OrphanProducts).
			Int64("duplicate_customer_names", integrity.DuplicateCustomerNames).
			Msg("Integrity check failed")
		return fmt.Errorf("warehouse integrity check failed")
	}

	logging.Info().Msg("Warehouse integrity check passed")
	return nil
}
