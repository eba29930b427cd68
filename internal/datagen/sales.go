//-------------------------------------------------------------------------
//
// pgEdge Sales Warehouse
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package datagen

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pgEdge/pgedge-salesdw/internal/logging"
	"github.com/pgEdge/pgedge-salesdw/internal/source"
)

// Defect is a kind of realistic problem injected into a dirty row.
type Defect string

// Injected defects.
const (
	// DefectMessyName changes case and whitespace of the customer name.
	DefectMessyName Defect = "messy_name"

	// DefectMissingFields blanks state, territory, and postal code.
	DefectMissingFields Defect = "missing_fields"

	// DefectBadDate makes the order date unparseable.
	DefectBadDate Defect = "bad_date"

	// DefectBadQuantity makes the quantity non-numeric.
	DefectBadQuantity Defect = "bad_quantity"

	// DefectDuplicate repeats the previous row.
	DefectDuplicate Defect = "duplicate"
)

// Defects lists every defect kind.
var Defects = []Defect{DefectMessyName, DefectMissingFields, DefectBadDate, DefectBadQuantity, DefectDuplicate}

// Weights of each defect, in Defects order.
var defectWeights = []int{35, 30, 15, 10, 10}

var productLines = []string{
	"Classic Cars", "Vintage Cars", "Motorcycles", "Trucks and Buses", "Planes", "Ships", "Trains",
}

var productScales = []string{"10", "12", "18", "24", "32", "50", "72", "700"}

var statuses = []string{"Shipped", "Resolved", "Cancelled", "On Hold", "Disputed", "In Process"}

var statusWeights = []int{85, 4, 3, 3, 2, 3}

type market struct {
	country   string
	territory string
	hasState  bool
}

var markets = []market{
	{"USA", "NA", true},
	{"Canada", "NA", true},
	{"France", "EMEA", false},
	{"Spain", "EMEA", false},
	{"Germany", "EMEA", false},
	{"UK", "EMEA", false},
	{"Australia", "APAC", true},
	{"Japan", "Japan", false},
}

var marketWeights = []int{35, 5, 15, 10, 8, 7, 12, 8}

// SourceDateLayout is the order date layout of generated extracts.
const SourceDateLayout = "1/2/2006 15:04"

// SalesConfig configures synthetic extract generation.
type SalesConfig struct {
	// Rows is the number of order lines to generate.
	Rows int

	// Seed makes output reproducible; 0 means random.
	Seed uint64

	// DirtyRatio is the share of rows that receive a defect.
	DirtyRatio float64

	// Customers and Products size the catalogs.
	Customers int
	Products  int

	// Start and End bound the order dates.
	Start time.Time
	End   time.Time
}

// DefaultSalesConfig returns a config shaped like the classic sample
// extract.
func DefaultSalesConfig() SalesConfig {
	return SalesConfig{
		Rows:       2000,
		DirtyRatio: 0.05,
		Customers:  90,
		Products:   110,
		Start:      time.Date(2003, 1, 1, 0, 0, 0, 0, time.UTC),
		End:        time.Date(2005, 5, 31, 0, 0, 0, 0, time.UTC),
	}
}

type customer struct {
	name      string
	phone     string
	address   string
	city      string
	state     string
	zip       string
	market    market
	firstName string
	lastName  string
}

type product struct {
	code string
	line string
	msrp float64
}

// SalesGenerator produces synthetic order lines.
type SalesGenerator struct {
	cfg       SalesConfig
	faker     *Faker
	customers []customer
	products  []product

	// Injected counts each defect applied.
	Injected map[Defect]int
}

// NewSalesGenerator creates a generator with its customer and product
// catalogs.
func NewSalesGenerator(cfg SalesConfig) *SalesGenerator {
	defaults := DefaultSalesConfig()
	if cfg.Customers <= 0 {
		cfg.Customers = defaults.Customers
	}
	if cfg.Products <= 0 {
		cfg.Products = defaults.Products
	}
	if cfg.Start.IsZero() || cfg.End.IsZero() || !cfg.End.After(cfg.Start) {
		cfg.Start, cfg.End = defaults.Start, defaults.End
	}

	f := NewFaker()
	if cfg.Seed != 0 {
		f = NewFakerWithSeed(cfg.Seed)
	}

	g := &SalesGenerator{cfg: cfg, faker: f, Injected: make(map[Defect]int)}
	g.buildCatalogs()
	return g
}

func (g *SalesGenerator) buildCatalogs() {
	f := g.faker

	names := make(map[string]bool)
	for len(g.customers) < g.cfg.Customers {
		name := f.Company()
		key := strings.ToLower(strings.Join(strings.Fields(name), " "))
		if names[key] {
			continue
		}
		names[key] = true

		m := ChooseWeighted(f, markets, marketWeights)
		c := customer{
			name:      name,
			phone:     f.Phone(),
			address:   f.Street(),
			city:      f.City(),
			zip:       f.Zip(),
			market:    m,
			firstName: f.FirstName(),
			lastName:  f.LastName(),
		}
		if m.hasState {
			c.state = f.State()
		}
		g.customers = append(g.customers, c)
	}

	codes := make(map[string]bool)
	for len(g.products) < g.cfg.Products {
		code := "S" + Choose(f, productScales) + "_" + f.Digits(4)
		if codes[code] {
			continue
		}
		codes[code] = true
		g.products = append(g.products, product{
			code: code,
			line: Choose(f, productLines),
			msrp: float64(f.Int(33, 214)),
		})
	}
}

// order is the order currently being emitted.
type order struct {
	number    int
	linesLeft int
	line      int
	customer  customer
	date      time.Time
	status    string
}

// Generate produces cfg.Rows order lines. Orders get one to eight lines
// with consecutive order numbers from 10100.
func (g *SalesGenerator) Generate() []source.Row {
	f := g.faker
	rows := make([]source.Row, 0, g.cfg.Rows)
	o := &order{number: 10099}

	for len(rows) < g.cfg.Rows {
		if len(rows) > 0 && f.Chance(g.cfg.DirtyRatio) {
			defect := ChooseWeighted(f, Defects, defectWeights)
			g.Injected[defect]++
			if defect == DefectDuplicate {
				dup := rows[len(rows)-1]
				dup.Line = len(rows) + 2
				rows = append(rows, dup)
				continue
			}
			row := g.nextLine(o)
			g.applyDefect(&row, defect)
			row.Line = len(rows) + 2
			rows = append(rows, row)
			continue
		}

		row := g.nextLine(o)
		row.Line = len(rows) + 2
		rows = append(rows, row)
	}

	logging.Debug().
		Int("rows", len(rows)).
		Int("orders", o.number-10099).
		Interface("defects", g.Injected).
		Msg("Generated sales rows")

	return rows
}

func (g *SalesGenerator) nextLine(o *order) source.Row {
	f := g.faker

	if o.linesLeft == 0 {
		o.number++
		o.linesLeft = f.Int(1, 8)
		o.line = 0
		o.customer = Choose(f, g.customers)
		d := f.DateRange(g.cfg.Start, g.cfg.End)
		o.date = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		o.status = ChooseWeighted(f, statuses, statusWeights)
	}
	o.linesLeft--
	o.line++

	p := Choose(f, g.products)
	qty := f.Int(6, 97)
	// SALES is computed from the two-decimal price as written.
	priceText := strconv.FormatFloat(f.Price(26, 100), 'f', 2, 64)
	price, _ := strconv.ParseFloat(priceText, 64)
	amount := float64(qty) * price
	c := o.customer

	return source.Row{
		OrderNumber:      strconv.Itoa(o.number),
		Quantity:         strconv.Itoa(qty),
		UnitPrice:        priceText,
		OrderLineNumber:  strconv.Itoa(o.line),
		Sales:            strconv.FormatFloat(amount, 'f', 2, 64),
		OrderDate:        o.date.Format(SourceDateLayout),
		Status:           o.status,
		ProductLine:      p.line,
		MSRP:             strconv.FormatFloat(p.msrp, 'f', 0, 64),
		ProductCode:      p.code,
		CustomerName:     c.name,
		Phone:            c.phone,
		AddressLine1:     c.address,
		City:             c.city,
		State:            c.state,
		PostalCode:       c.zip,
		Country:          c.market.country,
		Territory:        c.market.territory,
		ContactLastName:  c.lastName,
		ContactFirstName: c.firstName,
		DealSize:         dealSizeLabel(amount),
	}
}

func (g *SalesGenerator) applyDefect(row *source.Row, d Defect) {
	f := g.faker
	switch d {
	case DefectMessyName:
		name := row.CustomerName
		if f.Bool() {
			name = strings.ToUpper(name)
		} else {
			name = strings.ToLower(name)
		}
		row.CustomerName = "  " + strings.ReplaceAll(name, " ", "  ") + " "
	case DefectMissingFields:
		row.State = ""
		row.Territory = ""
		row.PostalCode = ""
	case DefectBadDate:
		row.OrderDate = Choose(f, []string{"unknown", "31/31/2004", "2004-13-45", ""})
	case DefectBadQuantity:
		row.Quantity = Choose(f, []string{"n/a", "ten", "12.5.1", ""})
	}
}

// dealSizeLabel mirrors the label the classic extract carries in DEALSIZE.
func dealSizeLabel(amount float64) string {
	switch {
	case amount < 3000:
		return "Small"
	case amount < 7000:
		return "Medium"
	default:
		return "Large"
	}
}

// GenerateSales is a convenience wrapper returning cfg.Rows rows.
func GenerateSales(cfg SalesConfig) []source.Row {
	return NewSalesGenerator(cfg).Generate()
}

// WriteSalesCSV generates an extract and writes it as CSV.
func WriteSalesCSV(out io.Writer, cfg SalesConfig) (map[Defect]int, error) {
	g := NewSalesGenerator(cfg)
	rows := g.Generate()
	if err := source.WriteCSV(out, rows); err != nil {
		return nil, fmt.Errorf("failed to write extract: %w", err)
	}
	return g.Injected, nil
}
