//-------------------------------------------------------------------------
//
// pgEdge Sales Warehouse
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package etl runs a batch through the pipeline: duplicate removal,
// normalization, measure derivation, dimension building, fact resolution,
// and the warehouse write.
package etl

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pgEdge/pgedge-salesdw/internal/dimension"
	"github.com/pgEdge/pgedge-salesdw/internal/fact"
	"github.com/pgEdge/pgedge-salesdw/internal/keys"
	"github.com/pgEdge/pgedge-salesdw/internal/logging"
	"github.com/pgEdge/pgedge-salesdw/internal/measure"
	"github.com/pgEdge/pgedge-salesdw/internal/normalize"
	"github.com/pgEdge/pgedge-salesdw/internal/report"
	"github.com/pgEdge/pgedge-salesdw/internal/source"
	"github.com/pgEdge/pgedge-salesdw/internal/warehouse"
)

// Options configures a run.
type Options struct {
	Normalize normalize.Options
	Margin    decimal.Decimal
	Policy    warehouse.Policy

	// DropDuplicateRows drops source rows identical to an earlier row.
	DropDuplicateRows bool

	// Force appends a batch whose fingerprint is already in the ledger.
	Force bool

	// RunID identifies the run; a random UUID is used when empty.
	RunID string
}

// DefaultOptions returns the standard run options.
func DefaultOptions() Options {
	return Options{
		Normalize:         normalize.DefaultOptions(),
		Margin:            decimal.RequireFromString(measure.DefaultMargin),
		Policy:            warehouse.Rebuild,
		DropDuplicateRows: true,
	}
}

// Result is the output of a run.
type Result struct {
	Report      *report.Run
	Fingerprint string
	Derived     []measure.Row
	Dimensions  *dimension.Dimensions
	Facts       []fact.Entry
}

// Transform runs the in-memory stages over a batch. It performs no I/O.
func Transform(rows []source.Row, seed warehouse.Seed, opts Options) (*Result, error) {
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	policy := opts.Policy
	if policy == "" {
		policy = warehouse.Rebuild
	}

	run := report.NewRun(runID, string(policy))
	run.RowsRead = len(rows)

	res := &Result{
		Report:      run,
		Fingerprint: source.Fingerprint(rows),
	}

	if opts.DropDuplicateRows {
		kept, dropped := source.DropDuplicates(rows)
		for _, r := range dropped {
			run.Reject(report.Rejection{
				Line:        r.Line,
				OrderNumber: r.OrderNumber,
				Stage:       report.StageIngest,
				Reason:      report.ReasonDuplicateRow,
			})
		}
		if len(dropped) > 0 {
			log := logging.Stage("ingest")
			log.Info().Int("dropped", len(dropped)).Msg("Dropped duplicate source rows")
		}
		rows = kept
	}

	normalizer, err := normalize.New(opts.Normalize)
	if err != nil {
		return nil, fmt.Errorf("invalid normalize options: %w", err)
	}
	normalized, rejected := normalizer.Normalize(rows)
	run.Reject(rejected...)
	run.RowsNormalized = len(normalized)

	res.Derived = measure.New(opts.Margin).DeriveAll(normalized)

	dims, rejected := dimension.NewBuilder(seed.Dimension).Build(res.Derived)
	run.Reject(rejected...)
	run.ProductConflicts = dims.ProductConflicts
	run.NewCustomers = dims.NewCustomers
	res.Dimensions = dims

	facts, rejected := fact.NewResolver(dims, keys.Continue(seed.MaxSalesID)).Resolve(res.Derived)
	run.Reject(rejected...)
	run.FactsResolved = len(facts)
	res.Facts = facts

	return res, nil
}

// Load reads the seed for the policy, transforms the batch, and writes it.
// Per-row problems end up in the report; store errors are returned.
func Load(ctx context.Context, w *warehouse.Writer, rows []source.Row, opts Options) (*Result, error) {
	if opts.Policy == "" {
		opts.Policy = warehouse.Rebuild
	}

	seed, err := w.Seed(ctx, opts.Policy)
	if err != nil {
		return nil, err
	}

	res, err := Transform(rows, seed, opts)
	if err != nil {
		return nil, err
	}

	written, err := w.Write(ctx, warehouse.Load{
		Policy:      opts.Policy,
		RunID:       res.Report.ID,
		Fingerprint: res.Fingerprint,
		SourceRows:  res.Report.RowsRead,
		Dimensions:  res.Dimensions,
		Facts:       res.Facts,
		Force:       opts.Force,
	})
	if err != nil {
		return res, err
	}
	res.Report.Written = written

	counts, err := w.Counts(ctx)
	if err != nil {
		return res, err
	}
	res.Report.Counts = counts

	return res, nil
}

// LogReport logs the run summary, and the first maxRejections individual
// rejections at warn.
func LogReport(run *report.Run, maxRejections int) {
	for i, rej := range run.Rejections {
		if i >= maxRejections {
			logging.Warn().
				Int("remaining", len(run.Rejections)-maxRejections).
				Msg("Further rejections not shown (use --log-level debug)")
			break
		}
		logging.Warn().
			Int("line", rej.Line).
			Str("order_number", rej.OrderNumber).
			Str("stage", string(rej.Stage)).
			Str("reason", string(rej.Reason)).
			Str("field", rej.Field).
			Str("detail", rej.Detail).
			Msg("Row rejected")
	}

	for _, c := range run.Summary() {
		logging.Info().
			Str("stage", string(c.Stage)).
			Str("reason", string(c.Reason)).
			Int("rows", c.Rows).
			Msg("Rejections")
	}

	logging.Info().
		Str("run_id", run.ID).
		Str("policy", run.Policy).
		Int("rows_read", run.RowsRead).
		Int("rows_normalized", run.RowsNormalized).
		Int("rows_excluded", run.RowsExcluded()).
		Int("facts", run.FactsResolved).
		Int("new_customers", run.NewCustomers).
		Int("product_conflicts", run.ProductConflicts).
		Msg("Load complete")

	for _, table := range warehouse.Tables {
		count, ok := run.Counts[table]
		if !ok {
			continue
		}
		logging.Info().
			Str("table", table).
			Int64("written", run.Written[table]).
			Int64("rows", count).
			Msg("Table row count")
	}
}
