package normalize

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pgEdge/pgedge-salesdw/internal/report"
	"github.com/pgEdge/pgedge-salesdw/internal/source"
)

func newNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	n, err := New(DefaultOptions())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return n
}

func baseRow() source.Row {
	return source.Row{
		Line:         2,
		OrderNumber:  "10107",
		Quantity:     "10",
		UnitPrice:    "250",
		OrderDate:    "1/5/2024",
		CustomerName: "Acme Co",
		City:         "nyc",
		Country:      "usa",
		ProductCode:  "S10_1678",
		ProductLine:  "Motorcycles",
	}
}

func TestTextCleaning(t *testing.T) {
	n := newNormalizer(t)

	raw := baseRow()
	raw.CustomerName = "  acme   CO "
	raw.City = " san  francisco"
	raw.Country = "france "
	raw.ProductCode = " S10_1678 "

	row, rej := n.Row(raw)
	if rej != nil {
		t.Fatalf("Unexpected rejection: %v", rej)
	}

	if row.Customer.Name != "Acme Co" {
		t.Errorf("Expected name 'Acme Co', got '%s'", row.Customer.Name)
	}
	if row.Customer.City != "San Francisco" {
		t.Errorf("Expected city 'San Francisco', got '%s'", row.Customer.City)
	}
	if row.Customer.Country != "FRANCE" {
		t.Errorf("Expected country 'FRANCE', got '%s'", row.Customer.Country)
	}
	if row.ProductCode != "S10_1678" {
		t.Errorf("Expected trimmed product code, got '%s'", row.ProductCode)
	}
}

func TestDefaultsFilled(t *testing.T) {
	n := newNormalizer(t)

	raw := baseRow()
	raw.State = "  "
	raw.PostalCode = ""
	raw.Territory = ""

	row, rej := n.Row(raw)
	if rej != nil {
		t.Fatalf("Unexpected rejection: %v", rej)
	}
	if row.Customer.State != "N/A" {
		t.Errorf("Expected state 'N/A', got '%s'", row.Customer.State)
	}
	if row.Customer.Territory != "N/A" {
		t.Errorf("Expected territory 'N/A', got '%s'", row.Customer.Territory)
	}
	if row.Customer.PostalCode != "0" {
		t.Errorf("Expected postal code '0', got '%s'", row.Customer.PostalCode)
	}

	// Present values are left alone
	raw.State = "CA"
	row, _ = n.Row(raw)
	if row.Customer.State != "CA" {
		t.Errorf("Expected state 'CA', got '%s'", row.Customer.State)
	}
}

func TestCustomDefaults(t *testing.T) {
	n, err := New(Options{Defaults: map[string]string{"state": "UNKNOWN"}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	row, _ := n.Row(baseRow())
	if row.Customer.State != "UNKNOWN" {
		t.Errorf("Expected state 'UNKNOWN', got '%s'", row.Customer.State)
	}
	if row.Customer.Territory != "" {
		t.Errorf("Expected no territory default, got '%s'", row.Customer.Territory)
	}
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name      string
		defaults  map[string]string
		wantError bool
	}{
		{"standard", DefaultDefaults(), false},
		{"empty", nil, false},
		{"quantity is not nullable", map[string]string{"quantity_ordered": "0"}, true},
		{"unknown field", map[string]string{"colour": "red"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(Options{Defaults: tt.defaults})
			if tt.wantError && err == nil {
				t.Error("Expected error, got nil")
			}
			if !tt.wantError && err != nil {
				t.Errorf("Expected no error, got: %v", err)
			}
		})
	}
}

func TestDateParsing(t *testing.T) {
	n := newNormalizer(t)

	tests := []struct {
		input string
		valid bool
		want  time.Time
	}{
		{"1/5/2024", true, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)},
		{"2/24/2003 0:00", true, time.Date(2003, 2, 24, 0, 0, 0, 0, time.UTC)},
		{"12/31/2004 23:59", true, time.Date(2004, 12, 31, 0, 0, 0, 0, time.UTC)},
		{"2024-03-09", true, time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)},
		{"01/05/2024", true, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)},
		{"not a date", false, time.Time{}},
		{"13/45/2024", false, time.Time{}},
		{"", false, time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			raw := baseRow()
			raw.OrderDate = tt.input
			row, rej := n.Row(raw)
			if rej != nil {
				t.Fatalf("Date problems must not reject the row, got %v", rej)
			}
			if row.DateValid != tt.valid {
				t.Fatalf("Expected DateValid %v, got %v", tt.valid, row.DateValid)
			}
			if tt.valid && !row.OrderDate.Equal(tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, row.OrderDate)
			}
			if row.RawDate != tt.input {
				t.Errorf("Expected raw date %q kept, got %q", tt.input, row.RawDate)
			}
		})
	}
}

func TestMalformedNumericRejected(t *testing.T) {
	n := newNormalizer(t)

	tests := []struct {
		name  string
		set   func(*source.Row)
		field source.Field
	}{
		{"quantity text", func(r *source.Row) { r.Quantity = "ten" }, source.FieldQuantity},
		{"quantity empty", func(r *source.Row) { r.Quantity = "" }, source.FieldQuantity},
		{"quantity negative", func(r *source.Row) { r.Quantity = "-1" }, source.FieldQuantity},
		{"quantity fractional", func(r *source.Row) { r.Quantity = "1.5" }, source.FieldQuantity},
		{"price text", func(r *source.Row) { r.UnitPrice = "n/a" }, source.FieldUnitPrice},
		{"price empty", func(r *source.Row) { r.UnitPrice = "" }, source.FieldUnitPrice},
		{"price negative", func(r *source.Row) { r.UnitPrice = "-3.10" }, source.FieldUnitPrice},
		{"order number", func(r *source.Row) { r.OrderNumber = "A-1" }, source.FieldOrderNumber},
		{"line number", func(r *source.Row) { r.OrderLineNumber = "two" }, source.FieldOrderLineNumber},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := baseRow()
			tt.set(&raw)
			_, rej := n.Row(raw)
			if rej == nil {
				t.Fatal("Expected rejection, got nil")
			}
			if rej.Reason != report.ReasonMalformedNumeric {
				t.Errorf("Expected reason %s, got %s", report.ReasonMalformedNumeric, rej.Reason)
			}
			if rej.Field != string(tt.field) {
				t.Errorf("Expected field %s, got %s", tt.field, rej.Field)
			}
			if rej.Line != raw.Line {
				t.Errorf("Expected line %d, got %d", raw.Line, rej.Line)
			}
		})
	}
}

func TestNormalizeBatch(t *testing.T) {
	n := newNormalizer(t)

	good := baseRow()
	bad := baseRow()
	bad.Line = 3
	bad.Quantity = "x"
	undated := baseRow()
	undated.Line = 4
	undated.OrderDate = "someday"

	rows, rejected := n.Normalize([]source.Row{good, bad, undated})
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}
	if len(rejected) != 1 || rejected[0].Line != 3 {
		t.Fatalf("Expected line 3 rejected, got %+v", rejected)
	}
	if rows[0].Line != 2 || rows[1].Line != 4 {
		t.Errorf("Expected input order preserved")
	}
	if rows[1].DateValid {
		t.Error("Expected undated row to be carried with DateValid false")
	}
}

func TestNumericParsing(t *testing.T) {
	n := newNormalizer(t)

	raw := baseRow()
	raw.UnitPrice = "95.70"
	raw.MSRP = "abc"
	raw.OrderLineNumber = "2"

	row, rej := n.Row(raw)
	if rej != nil {
		t.Fatalf("Unexpected rejection: %v", rej)
	}
	if !row.UnitPrice.Equal(decimal.RequireFromString("95.7")) {
		t.Errorf("Expected price 95.7, got %s", row.UnitPrice)
	}
	if !row.MSRP.IsZero() {
		t.Errorf("Expected unparseable MSRP to be zero, got %s", row.MSRP)
	}
	if row.OrderNumber != 10107 || row.OrderLineNumber != 2 || row.Quantity != 10 {
		t.Errorf("Unexpected integers: %+v", row)
	}
}
