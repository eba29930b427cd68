//-------------------------------------------------------------------------
//
// pgEdge Sales Warehouse
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package fact resolves derived rows against the dimensions and emits
// fact_sales entries.
package fact

import (
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/pgEdge/pgedge-salesdw/internal/dimension"
	"github.com/pgEdge/pgedge-salesdw/internal/keys"
	"github.com/pgEdge/pgedge-salesdw/internal/logging"
	"github.com/pgEdge/pgedge-salesdw/internal/measure"
	"github.com/pgEdge/pgedge-salesdw/internal/report"
)

// Entry is a row of fact_sales.
type Entry struct {
	SalesID     int64
	OrderNumber int64
	Quantity    int64
	PriceEach   decimal.Decimal
	CalcSales   decimal.Decimal
	Profit      decimal.Decimal
	DealSizeCat measure.DealSize
	ProductCode string
	CustomerID  int64
	DateKey     int

	// Line is the source line the entry came from.
	Line int
}

// Resolver turns derived rows into fact entries.
type Resolver struct {
	dims  *dimension.Dimensions
	alloc *keys.Allocator
}

// NewResolver creates a resolver. Sales ids are drawn from alloc.
func NewResolver(dims *dimension.Dimensions, alloc *keys.Allocator) *Resolver {
	return &Resolver{dims: dims, alloc: alloc}
}

// Resolve emits one entry per row whose customer, date, and product all
// resolve, in input order. Any other row is rejected; an id is only
// allocated once a row has resolved, so ids stay dense.
func (r *Resolver) Resolve(rows []measure.Row) ([]Entry, []report.Rejection) {
	log := logging.Stage("resolve")

	out := make([]Entry, 0, len(rows))
	var rejected []report.Rejection

	for _, row := range rows {
		e, rej := r.resolve(row)
		if rej != nil {
			log.Debug().Str("rejection", rej.String()).Msg("Fact rejected")
			rejected = append(rejected, *rej)
			continue
		}
		e.SalesID = r.alloc.Next()
		out = append(out, e)
	}

	log.Info().
		Int("rows", len(rows)).
		Int("facts", len(out)).
		Int("rejected", len(rejected)).
		Msg("Resolved facts")

	return out, rejected
}

func (r *Resolver) resolve(row measure.Row) (Entry, *report.Rejection) {
	reject := func(reason report.Reason, field, detail string) (Entry, *report.Rejection) {
		return Entry{}, &report.Rejection{
			Line:        row.Line,
			OrderNumber: strconv.FormatInt(row.OrderNumber, 10),
			Stage:       report.StageResolve,
			Reason:      reason,
			Field:       field,
			Detail:      detail,
		}
	}

	if !row.DateValid {
		return reject(report.ReasonInvalidDate, "order_date", strconv.Quote(row.RawDate))
	}
	dateKey, ok := r.dims.DateKey(row.OrderDate)
	if !ok {
		return reject(report.ReasonUnresolvedDate, "order_date", row.OrderDate.Format(dimension.ISOLayout))
	}
	customerID, ok := r.dims.CustomerKey(row.Customer.Name)
	if !ok {
		return reject(report.ReasonUnresolvedCustomer, "customer_name", strconv.Quote(row.Customer.Name))
	}
	if !r.dims.HasProduct(row.ProductCode) {
		return reject(report.ReasonUnresolvedProduct, "product_code", strconv.Quote(row.ProductCode))
	}

	return Entry{
		OrderNumber: row.OrderNumber,
		Quantity:    row.Quantity,
		PriceEach:   row.UnitPrice,
		CalcSales:   row.Amount,
		Profit:      row.Profit,
		DealSizeCat: row.DealSizeCat,
		ProductCode: row.ProductCode,
		CustomerID:  customerID,
		DateKey:     dateKey,
		Line:        row.Line,
	}, nil
}
