//-------------------------------------------------------------------------
//
// pgEdge Sales Warehouse
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package normalize cleans and types raw sales rows.
//
// Text is trimmed, customer names and cities are title-cased, countries are
// upper-cased, and nullable fields are filled from an explicit defaults
// table. Numeric fields that do not parse reject the row; an order date that
// does not parse only marks the row, so that it can still feed the
// dimensions that do not depend on the date.
package normalize

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/pgEdge/pgedge-salesdw/internal/logging"
	"github.com/pgEdge/pgedge-salesdw/internal/report"
	"github.com/pgEdge/pgedge-salesdw/internal/source"
)

// Nullable lists the source fields the defaults table may fill.
var Nullable = []source.Field{
	source.FieldState,
	source.FieldTerritory,
	source.FieldPostalCode,
	source.FieldAddressLine2,
	source.FieldPhone,
	source.FieldContactFirstName,
	source.FieldContactLastName,
	source.FieldStatus,
	source.FieldDealSize,
}

// DefaultDefaults returns the standard fill table.
func DefaultDefaults() map[string]string {
	return map[string]string{
		string(source.FieldState):      "N/A",
		string(source.FieldTerritory):  "N/A",
		string(source.FieldPostalCode): "0",
	}
}

// DefaultDateLayouts are tried in order when no layouts are configured.
var DefaultDateLayouts = []string{
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006",
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// Options configures a Normalizer.
type Options struct {
	// Defaults maps a nullable field name to the value used when it is empty.
	Defaults map[string]string

	// DateLayouts are Go time layouts tried in order.
	DateLayouts []string
}

// DefaultOptions returns the standard defaults table and date layouts.
func DefaultOptions() Options {
	return Options{
		Defaults:    DefaultDefaults(),
		DateLayouts: DefaultDateLayouts,
	}
}

// Validate rejects defaults for fields that are not nullable.
func (o Options) Validate() error {
	allowed := make(map[source.Field]bool, len(Nullable))
	for _, f := range Nullable {
		allowed[f] = true
	}
	var bad []string
	for k := range o.Defaults {
		if !allowed[source.Field(k)] {
			bad = append(bad, k)
		}
	}
	if len(bad) > 0 {
		sort.Strings(bad)
		return fmt.Errorf("defaults given for non-nullable fields: %s", strings.Join(bad, ", "))
	}
	return nil
}

// Customer holds the cleaned customer attributes of a row.
type Customer struct {
	Name             string
	Phone            string
	AddressLine1     string
	AddressLine2     string
	City             string
	State            string
	PostalCode       string
	Country          string
	Territory        string
	ContactFirstName string
	ContactLastName  string
}

// Row is a cleaned and typed order line.
type Row struct {
	Line            int
	OrderNumber     int64
	OrderLineNumber int64
	Quantity        int64
	UnitPrice       decimal.Decimal
	MSRP            decimal.Decimal

	// OrderDate is the calendar date at UTC midnight; only meaningful when
	// DateValid is true.
	OrderDate time.Time
	DateValid bool
	RawDate   string

	Status      string
	ProductCode string
	ProductLine string
	DealSize    string
	Customer    Customer
}

// Normalizer cleans source rows. It is not safe for concurrent use.
type Normalizer struct {
	defaults map[source.Field]string
	layouts  []string
	title    cases.Caser
	upper    cases.Caser
}

// New creates a Normalizer.
func New(opts Options) (*Normalizer, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	layouts := opts.DateLayouts
	if len(layouts) == 0 {
		layouts = DefaultDateLayouts
	}
	defaults := make(map[source.Field]string, len(opts.Defaults))
	for k, v := range opts.Defaults {
		defaults[source.Field(k)] = v
	}
	return &Normalizer{
		defaults: defaults,
		layouts:  layouts,
		title:    cases.Title(language.English),
		upper:    cases.Upper(language.English),
	}, nil
}

// Normalize cleans every row. Rows with malformed numeric fields are left
// out of the result and returned as rejections; all other rows are kept in
// input order.
func (n *Normalizer) Normalize(rows []source.Row) ([]Row, []report.Rejection) {
	log := logging.Stage("normalize")

	out := make([]Row, 0, len(rows))
	var rejected []report.Rejection
	invalidDates := 0

	for _, raw := range rows {
		row, rej := n.Row(raw)
		if rej != nil {
			log.Debug().Str("rejection", rej.String()).Msg("Row rejected")
			rejected = append(rejected, *rej)
			continue
		}
		if !row.DateValid {
			invalidDates++
		}
		out = append(out, row)
	}

	log.Info().
		Int("rows", len(rows)).
		Int("normalized", len(out)).
		Int("rejected", len(rejected)).
		Int("invalid_dates", invalidDates).
		Msg("Normalized rows")

	return out, rejected
}

// Row cleans one source row.
func (n *Normalizer) Row(raw source.Row) (Row, *report.Rejection) {
	for _, c := range source.Columns {
		raw.Set(c.Field, strings.TrimSpace(raw.Get(c.Field)))
	}
	for f, v := range n.defaults {
		if raw.Get(f) == "" {
			raw.Set(f, v)
		}
	}

	reject := func(f source.Field, detail string) (Row, *report.Rejection) {
		return Row{}, &report.Rejection{
			Line:        raw.Line,
			OrderNumber: raw.OrderNumber,
			Stage:       report.StageNormalize,
			Reason:      report.ReasonMalformedNumeric,
			Field:       string(f),
			Detail:      detail,
		}
	}

	orderNumber, err := strconv.ParseInt(raw.OrderNumber, 10, 64)
	if err != nil {
		return reject(source.FieldOrderNumber, fmt.Sprintf("%q is not an integer", raw.OrderNumber))
	}

	var lineNumber int64
	if raw.OrderLineNumber != "" {
		lineNumber, err = strconv.ParseInt(raw.OrderLineNumber, 10, 64)
		if err != nil {
			return reject(source.FieldOrderLineNumber, fmt.Sprintf("%q is not an integer", raw.OrderLineNumber))
		}
	}

	quantity, err := strconv.ParseInt(raw.Quantity, 10, 64)
	if err != nil {
		return reject(source.FieldQuantity, fmt.Sprintf("%q is not an integer", raw.Quantity))
	}
	if quantity < 0 {
		return reject(source.FieldQuantity, fmt.Sprintf("negative quantity %d", quantity))
	}

	price, err := decimal.NewFromString(raw.UnitPrice)
	if err != nil {
		return reject(source.FieldUnitPrice, fmt.Sprintf("%q is not a number", raw.UnitPrice))
	}
	if price.IsNegative() {
		return reject(source.FieldUnitPrice, fmt.Sprintf("negative price %s", price))
	}

	msrp := decimal.Zero
	if raw.MSRP != "" {
		if m, err := decimal.NewFromString(raw.MSRP); err == nil {
			msrp = m
		} else {
			logging.Debug().Int("line", raw.Line).Str("msrp", raw.MSRP).Msg("Ignoring unparseable MSRP")
		}
	}

	date, ok := n.parseDate(raw.OrderDate)

	return Row{
		Line:            raw.Line,
		OrderNumber:     orderNumber,
		OrderLineNumber: lineNumber,
		Quantity:        quantity,
		UnitPrice:       price,
		MSRP:            msrp,
		OrderDate:       date,
		DateValid:       ok,
		RawDate:         raw.OrderDate,
		Status:          raw.Status,
		ProductCode:     raw.ProductCode,
		ProductLine:     raw.ProductLine,
		DealSize:        raw.DealSize,
		Customer: Customer{
			Name:             n.title.String(collapse(raw.CustomerName)),
			Phone:            raw.Phone,
			AddressLine1:     raw.AddressLine1,
			AddressLine2:     raw.AddressLine2,
			City:             n.title.String(collapse(raw.City)),
			State:            raw.State,
			PostalCode:       raw.PostalCode,
			Country:          n.upper.String(raw.Country),
			Territory:        raw.Territory,
			ContactFirstName: raw.ContactFirstName,
			ContactLastName:  raw.ContactLastName,
		},
	}, nil
}

func (n *Normalizer) parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range n.layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// collapse folds internal whitespace runs to a single space.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
