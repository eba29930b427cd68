//-------------------------------------------------------------------------
//
// pgEdge Sales Warehouse
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package warehouse persists the star schema: the date, customer, and
// product dimensions and the fact_sales table. It is the only package that
// writes to the store.
package warehouse

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pgEdge/pgedge-salesdw/internal/db"
	"github.com/pgEdge/pgedge-salesdw/internal/dimension"
	"github.com/pgEdge/pgedge-salesdw/internal/fact"
	"github.com/pgEdge/pgedge-salesdw/internal/logging"
)

// Table names.
const (
	TableDate     = "dim_date"
	TableCustomer = "dim_customer"
	TableProduct  = "dim_product"
	TableFact     = "fact_sales"
)

// Tables lists the warehouse tables, dimensions first.
var Tables = []string{TableDate, TableCustomer, TableProduct, TableFact}

// Options configures a Writer.
type Options struct {
	// BatchSize is the number of rows per INSERT statement.
	BatchSize int

	// ProgressInterval is how often to log progress (in rows).
	ProgressInterval int64
}

// DefaultOptions returns default writer options.
func DefaultOptions() Options {
	return Options{
		BatchSize:        500,
		ProgressInterval: 10000,
	}
}

// Writer writes loads to a store.
type Writer struct {
	store db.Store
	opts  Options
}

// NewWriter creates a Writer.
func NewWriter(store db.Store, opts Options) *Writer {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultOptions().BatchSize
	}
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = DefaultOptions().ProgressInterval
	}
	return &Writer{store: store, opts: opts}
}

// Store returns the underlying store.
func (w *Writer) Store() db.Store {
	return w.store
}

// EnsureSchema creates any missing tables.
func (w *Writer) EnsureSchema(ctx context.Context) error {
	n, err := applyMigrations(ctx, w.store)
	if err != nil {
		return err
	}
	if n > 0 {
		logging.Info().Int("migrations", n).Str("dialect", string(w.store.Dialect())).Msg("Schema created")
	}
	return nil
}

// DropSchema drops the warehouse and ledger tables.
func (w *Writer) DropSchema(ctx context.Context) error {
	if err := revertMigrations(ctx, w.store); err != nil {
		return err
	}
	logging.Info().Msg("Dropped warehouse schema")
	return nil
}

// Seed is the state a load continues from.
type Seed struct {
	Dimension  dimension.Seed
	MaxSalesID int64
}

// Seed reads the existing customers and key maxima. A rebuild starts from
// an empty seed.
func (w *Writer) Seed(ctx context.Context, policy Policy) (Seed, error) {
	var seed Seed
	if policy != Append {
		return seed, nil
	}

	seed.Dimension.Customers = make(map[string]int64)
	rows, err := w.store.Query(ctx, `SELECT customer_id, customer_name FROM dim_customer`)
	if err != nil {
		return seed, fmt.Errorf("failed to read customers: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return seed, fmt.Errorf("failed to scan customer: %w", err)
		}
		seed.Dimension.Customers[name] = id
		if id > seed.Dimension.MaxCustomerID {
			seed.Dimension.MaxCustomerID = id
		}
	}
	if err := rows.Err(); err != nil {
		return seed, fmt.Errorf("failed to read customers: %w", err)
	}

	err = w.store.QueryRow(ctx, `SELECT COALESCE(MAX(sales_id), 0) FROM fact_sales`).Scan(&seed.MaxSalesID)
	if err != nil {
		return seed, fmt.Errorf("failed to read max sales id: %w", err)
	}

	logging.Debug().
		Int("customers", len(seed.Dimension.Customers)).
		Int64("max_customer_id", seed.Dimension.MaxCustomerID).
		Int64("max_sales_id", seed.MaxSalesID).
		Msg("Read append seed")

	return seed, nil
}

// Load is one batch to write.
type Load struct {
	Policy      Policy
	RunID       string
	Fingerprint string
	SourceRows  int
	Dimensions  *dimension.Dimensions
	Facts       []fact.Entry

	// Force appends a batch even if its fingerprint is in the ledger.
	Force bool
}

// Write persists a load in a single transaction and returns the number of
// rows written per table. Nothing is written if any statement fails.
func (w *Writer) Write(ctx context.Context, load Load) (map[string]int64, error) {
	if load.Dimensions == nil {
		return nil, fmt.Errorf("load has no dimensions")
	}

	start := time.Now()
	written := make(map[string]int64, len(Tables))

	err := w.store.InTx(ctx, func(q db.Querier) error {
		switch load.Policy {
		case Rebuild:
			for _, table := range []string{TableFact, TableCustomer, TableDate, TableProduct, "etl_batches"} {
				if _, err := q.Exec(ctx, "DELETE FROM "+table); err != nil {
					return fmt.Errorf("failed to clear %s: %w", table, err)
				}
			}
		case Append:
			if load.Fingerprint != "" {
				loaded, err := batchLoaded(ctx, q, load.Fingerprint)
				if err != nil {
					return fmt.Errorf("failed to check batch ledger: %w", err)
				}
				if loaded && !load.Force {
					return fmt.Errorf("%w: fingerprint %s", ErrBatchLoaded, load.Fingerprint)
				}
				if loaded {
					logging.Warn().Str("fingerprint", load.Fingerprint).Msg("Appending a batch that was already loaded")
				}
			}
		default:
			return fmt.Errorf("invalid load policy: %s", load.Policy)
		}

		var err error
		if written[TableDate], err = w.writeDates(ctx, q, load.Dimensions.Dates); err != nil {
			return err
		}
		if written[TableCustomer], err = w.writeCustomers(ctx, q, load.Dimensions.Customers); err != nil {
			return err
		}
		if written[TableProduct], err = w.writeProducts(ctx, q, load.Dimensions.Products); err != nil {
			return err
		}
		if written[TableFact], err = w.writeFacts(ctx, q, load.Facts); err != nil {
			return err
		}

		if err := saveMetadata(ctx, q, load.RunID, load.Policy); err != nil {
			return err
		}
		if load.Fingerprint != "" {
			return recordBatch(ctx, q, Batch{
				Fingerprint: load.Fingerprint,
				RunID:       load.RunID,
				Policy:      string(load.Policy),
				SourceRows:  int64(load.SourceRows),
				FactRows:    int64(len(load.Facts)),
				LoadedAt:    time.Now().UTC().Format(time.RFC3339Nano),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.Info().
		Str("policy", string(load.Policy)).
		Int64("dates", written[TableDate]).
		Int64("customers", written[TableCustomer]).
		Int64("products", written[TableProduct]).
		Int64("facts", written[TableFact]).
		Dur("elapsed", time.Since(start)).
		Msg("Warehouse written")

	return written, nil
}

func (w *Writer) writeDates(ctx context.Context, q db.Querier, dates []dimension.DateEntry) (int64, error) {
	return w.insert(ctx, q, insertSpec{
		table:    TableDate,
		columns:  []string{"date_key", "order_date", "order_year", "order_month", "order_day"},
		conflict: "date_key",
		rows:     len(dates),
		values: func(i int) []any {
			d := dates[i]
			return []any{d.Key, w.dateValue(d), d.Year, d.Month, d.Day}
		},
	})
}

func (w *Writer) writeCustomers(ctx context.Context, q db.Querier, customers []dimension.CustomerEntry) (int64, error) {
	return w.insert(ctx, q, insertSpec{
		table:    TableCustomer,
		columns:  []string{"customer_id", "customer_name", "city", "state", "country"},
		conflict: "customer_id",
		rows:     len(customers),
		values: func(i int) []any {
			c := customers[i]
			return []any{c.ID, c.Name, c.City, c.State, c.Country}
		},
	})
}

func (w *Writer) writeProducts(ctx context.Context, q db.Querier, products []dimension.ProductEntry) (int64, error) {
	return w.insert(ctx, q, insertSpec{
		table:    TableProduct,
		columns:  []string{"product_code", "product_line"},
		conflict: "product_code",
		rows:     len(products),
		values: func(i int) []any {
			p := products[i]
			return []any{p.Code, p.Line}
		},
	})
}

func (w *Writer) writeFacts(ctx context.Context, q db.Querier, facts []fact.Entry) (int64, error) {
	return w.insert(ctx, q, insertSpec{
		table: TableFact,
		columns: []string{
			"sales_id", "order_number", "quantity_ordered", "price_each", "calc_sales",
			"profit", "deal_size_cat", "product_code", "customer_id", "date_key",
		},
		rows: len(facts),
		values: func(i int) []any {
			f := facts[i]
			return []any{
				f.SalesID, f.OrderNumber, f.Quantity, w.money(f.PriceEach), w.money(f.CalcSales),
				w.money(f.Profit), string(f.DealSizeCat), f.ProductCode, f.CustomerID, f.DateKey,
			}
		},
	})
}

type insertSpec struct {
	table   string
	columns []string

	// conflict names the key column for an upsert; empty for plain inserts.
	conflict string

	rows   int
	values func(i int) []any
}

// insert writes rows in multi-row INSERT statements of at most BatchSize
// rows.
func (w *Writer) insert(ctx context.Context, q db.Querier, spec insertSpec) (int64, error) {
	if spec.rows == 0 {
		return 0, nil
	}

	progress := NewProgressReporter(spec.table, int64(spec.rows), w.opts.ProgressInterval)
	tuple := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(spec.columns)), ", ") + ")"

	var suffix string
	if spec.conflict != "" {
		var sets []string
		for _, c := range spec.columns {
			if c != spec.conflict {
				sets = append(sets, fmt.Sprintf("%s = excluded.%s", c, c))
			}
		}
		suffix = fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET %s", spec.conflict, strings.Join(sets, ", "))
	}

	batch := w.rowsPerStatement(len(spec.columns))
	for start := 0; start < spec.rows; start += batch {
		end := min(start+batch, spec.rows)

		var b strings.Builder
		fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", spec.table, strings.Join(spec.columns, ", "))
		args := make([]any, 0, (end-start)*len(spec.columns))
		for i := start; i < end; i++ {
			if i > start {
				b.WriteString(", ")
			}
			b.WriteString(tuple)
			args = append(args, spec.values(i)...)
		}
		b.WriteString(suffix)

		if _, err := q.Exec(ctx, b.String(), args...); err != nil {
			return progress.Rows(), fmt.Errorf("failed to insert into %s: %w", spec.table, err)
		}
		progress.Update(int64(end - start))
	}

	progress.Done()
	return progress.Rows(), nil
}

// Bound parameter limits per statement.
const (
	sqliteMaxParams   = 32766
	postgresMaxParams = 65535
)

// rowsPerStatement caps BatchSize so that one INSERT stays within the
// dialect's bound parameter limit.
func (w *Writer) rowsPerStatement(columns int) int {
	limit := sqliteMaxParams
	if w.store.Dialect() == db.Postgres {
		limit = postgresMaxParams
	}
	return max(1, min(w.opts.BatchSize, limit/columns))
}

// money converts an exact amount to the parameter type of the dialect's
// money columns.
func (w *Writer) money(d decimal.Decimal) any {
	if w.store.Dialect() == db.Postgres {
		return d.String()
	}
	return d.InexactFloat64()
}

func (w *Writer) dateValue(d dimension.DateEntry) any {
	if w.store.Dialect() == db.Postgres {
		return d.Date
	}
	return d.ISODate()
}

// Counts returns the row count of each warehouse table.
func (w *Writer) Counts(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64, len(Tables))
	for _, table := range Tables {
		var n int64
		if err := w.store.QueryRow(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}

// Integrity is the result of a join-completeness check.
type Integrity struct {
	// Orphan counts are fact rows whose key has no dimension row.
	OrphanCustomers int64
	OrphanDates     int64
	OrphanProducts  int64

	// DuplicateCustomerNames counts names held by more than one customer.
	DuplicateCustomerNames int64
}

// OK reports whether no problems were found.
func (i Integrity) OK() bool {
	return i.OrphanCustomers == 0 && i.OrphanDates == 0 && i.OrphanProducts == 0 && i.DuplicateCustomerNames == 0
}

// CheckIntegrity verifies that every fact row joins to all three
// dimensions and that customer names are unique.
func (w *Writer) CheckIntegrity(ctx context.Context) (Integrity, error) {
	var r Integrity
	checks := []struct {
		dest  *int64
		name  string
		query string
	}{
		{&r.OrphanCustomers, "customer", `
            SELECT COUNT(*) FROM fact_sales f
            LEFT JOIN dim_customer c ON c.customer_id = f.customer_id
            WHERE c.customer_id IS NULL`},
		{&r.OrphanDates, "date", `
            SELECT COUNT(*) FROM fact_sales f
            LEFT JOIN dim_date d ON d.date_key = f.date_key
            WHERE d.date_key IS NULL`},
		{&r.OrphanProducts, "product", `
            SELECT COUNT(*) FROM fact_sales f
            LEFT JOIN dim_product p ON p.product_code = f.product_code
            WHERE p.product_code IS NULL`},
		{&r.DuplicateCustomerNames, "customer name", `
            SELECT COUNT(*) FROM (
                SELECT customer_name FROM dim_customer
                GROUP BY customer_name HAVING COUNT(*) > 1
            ) dup`},
	}

	for _, c := range checks {
		if err := w.store.QueryRow(ctx, c.query).Scan(c.dest); err != nil {
			return r, fmt.Errorf("failed to check %s integrity: %w", c.name, err)
		}
	}
	return r, nil
}
