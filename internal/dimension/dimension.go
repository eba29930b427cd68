//-------------------------------------------------------------------------
//
// pgEdge Sales Warehouse
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package dimension builds the deduplicated date, customer, and product
// dimensions of a batch and the lookups the fact resolver uses.
package dimension

import (
	"sort"
	"strconv"
	"time"

	"github.com/pgEdge/pgedge-salesdw/internal/keys"
	"github.com/pgEdge/pgedge-salesdw/internal/logging"
	"github.com/pgEdge/pgedge-salesdw/internal/measure"
	"github.com/pgEdge/pgedge-salesdw/internal/report"
)

// ISOLayout is the text form of dim_date.order_date.
const ISOLayout = "2006-01-02"

// DateKey returns the YYYYMMDD integer key of a calendar date.
func DateKey(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

// DateEntry is a row of dim_date.
type DateEntry struct {
	Key   int
	Date  time.Time
	Year  int
	Month int
	Day   int
}

// ISODate returns the date as 2006-01-02 text.
func (d DateEntry) ISODate() string {
	return d.Date.Format(ISOLayout)
}

// CustomerEntry is a row of dim_customer.
type CustomerEntry struct {
	ID      int64
	Name    string
	City    string
	State   string
	Country string
}

// ProductEntry is a row of dim_product.
type ProductEntry struct {
	Code string
	Line string
}

// Seed carries the customer dimension already in the store. The zero
// value starts a fresh dimension.
type Seed struct {
	// Customers maps a stored customer name to its id.
	Customers map[string]int64

	// MaxCustomerID is the largest customer id in the store.
	MaxCustomerID int64
}

// Dimensions is the output of a build.
type Dimensions struct {
	// Dates are ordered by key.
	Dates []DateEntry

	// Customers are ordered by id.
	Customers []CustomerEntry

	// Products are in first-seen order.
	Products []ProductEntry

	// ProductConflicts counts rows whose product line differed from the
	// line already recorded for their code.
	ProductConflicts int

	// NewCustomers counts ids allocated by this build.
	NewCustomers int

	customers map[string]int64
	dates     map[int]struct{}
	products  map[string]int
}

// CustomerKey returns the id of a normalized customer name.
func (d *Dimensions) CustomerKey(name string) (int64, bool) {
	id, ok := d.customers[name]
	return id, ok
}

// DateKey returns the key of a date if the date is in the dimension.
func (d *Dimensions) DateKey(t time.Time) (int, bool) {
	k := DateKey(t)
	_, ok := d.dates[k]
	return k, ok
}

// HasProduct reports whether code is in the dimension.
func (d *Dimensions) HasProduct(code string) bool {
	_, ok := d.products[code]
	return ok
}

// Builder builds dimensions. Customer ids come from its allocator, which
// starts at 1 for an empty seed and after the stored maximum otherwise.
type Builder struct {
	seed  Seed
	alloc *keys.Allocator
}

// NewBuilder creates a Builder over a seed.
func NewBuilder(seed Seed) *Builder {
	return &Builder{seed: seed, alloc: keys.Continue(seed.MaxCustomerID)}
}

// Build extracts the three dimensions. A row that cannot feed a dimension
// (no customer name, no product code, invalid date) is reported at the
// dimension stage and still feeds the others.
func (b *Builder) Build(rows []measure.Row) (*Dimensions, []report.Rejection) {
	log := logging.Stage("dimension")

	d := &Dimensions{
		customers: make(map[string]int64),
		dates:     make(map[int]struct{}),
		products:  make(map[string]int),
	}
	var rejected []report.Rejection

	dates := make(map[int]DateEntry)
	customers := make(map[int64]CustomerEntry)

	reject := func(r measure.Row, reason report.Reason, field, detail string) {
		rejected = append(rejected, report.Rejection{
			Line:        r.Line,
			OrderNumber: strconv.FormatInt(r.OrderNumber, 10),
			Stage:       report.StageDimension,
			Reason:      reason,
			Field:       field,
			Detail:      detail,
		})
	}

	for _, r := range rows {
		if r.DateValid {
			k := DateKey(r.OrderDate)
			if _, ok := dates[k]; !ok {
				dates[k] = DateEntry{
					Key:   k,
					Date:  r.OrderDate,
					Year:  r.OrderDate.Year(),
					Month: int(r.OrderDate.Month()),
					Day:   r.OrderDate.Day(),
				}
			}
		} else {
			reject(r, report.ReasonInvalidDate, "order_date", strconv.Quote(r.RawDate))
		}

		if name := r.Customer.Name; name != "" {
			id, ok := d.customers[name]
			if !ok {
				if id, ok = b.seed.Customers[name]; !ok {
					id = b.alloc.Next()
					d.NewCustomers++
				}
				d.customers[name] = id
			}
			customers[id] = CustomerEntry{
				ID:      id,
				Name:    name,
				City:    r.Customer.City,
				State:   r.Customer.State,
				Country: r.Customer.Country,
			}
		} else {
			reject(r, report.ReasonMissingCustomer, "customer_name", "")
		}

		if code := r.ProductCode; code != "" {
			if i, ok := d.products[code]; ok {
				if prev := d.Products[i].Line; prev != r.ProductLine {
					d.ProductConflicts++
					log.Warn().
						Str("product_code", code).
						Str("previous", prev).
						Str("line", r.ProductLine).
						Int("source_line", r.Line).
						Msg("Conflicting product line, keeping last seen")
					d.Products[i].Line = r.ProductLine
				}
			} else {
				d.products[code] = len(d.Products)
				d.Products = append(d.Products, ProductEntry{Code: code, Line: r.ProductLine})
			}
		} else {
			reject(r, report.ReasonMissingProduct, "product_code", "")
		}
	}

	d.Dates = make([]DateEntry, 0, len(dates))
	for k, e := range dates {
		d.dates[k] = struct{}{}
		d.Dates = append(d.Dates, e)
	}
	sort.Slice(d.Dates, func(i, j int) bool { return d.Dates[i].Key < d.Dates[j].Key })

	d.Customers = make([]CustomerEntry, 0, len(customers))
	for _, c := range customers {
		d.Customers = append(d.Customers, c)
	}
	sort.Slice(d.Customers, func(i, j int) bool { return d.Customers[i].ID < d.Customers[j].ID })

	log.Info().
		Int("dates", len(d.Dates)).
		Int("customers", len(d.Customers)).
		Int("new_customers", d.NewCustomers).
		Int("products", len(d.Products)).
		Int("product_conflicts", d.ProductConflicts).
		Int("rejected", len(rejected)).
		Msg("Built dimensions")

	return d, rejected
}
