package measure

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/pgEdge/pgedge-salesdw/internal/normalize"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		amount string
		want   DealSize
	}{
		{"0", Small},
		{"1200", Small},
		{"2999.99", Small},
		{"3000", Medium},
		{"3000.00", Medium},
		{"5999.99", Medium},
		{"6000", Large},
		{"125000.5", Large},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			got := Classify(decimal.RequireFromString(tt.amount))
			if got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestDerive(t *testing.T) {
	calc := New(decimal.RequireFromString(DefaultMargin))

	tests := []struct {
		name     string
		quantity int64
		price    string
		amount   string
		profit   string
		deal     DealSize
	}{
		{"acme a", 10, "250", "2500", "625", Small},
		{"acme b", 3, "400", "1200", "300", Small},
		{"fractional", 34, "95.70", "3253.8", "813.45", Medium},
		{"cents", 3, "0.1", "0.3", "0.075", Small},
		{"zero quantity", 0, "81.35", "0", "0", Small},
		{"large", 60, "100", "6000", "1500", Large},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := calc.Derive(normalize.Row{
				Quantity:  tt.quantity,
				UnitPrice: decimal.RequireFromString(tt.price),
			})
			if !row.Amount.Equal(decimal.RequireFromString(tt.amount)) {
				t.Errorf("Expected amount %s, got %s", tt.amount, row.Amount)
			}
			if !row.Profit.Equal(decimal.RequireFromString(tt.profit)) {
				t.Errorf("Expected profit %s, got %s", tt.profit, row.Profit)
			}
			if row.DealSizeCat != tt.deal {
				t.Errorf("Expected deal size %s, got %s", tt.deal, row.DealSizeCat)
			}
		})
	}
}

func TestCustomMargin(t *testing.T) {
	calc := New(decimal.RequireFromString("0.4"))
	row := calc.Derive(normalize.Row{Quantity: 2, UnitPrice: decimal.NewFromInt(50)})
	if !row.Profit.Equal(decimal.NewFromInt(40)) {
		t.Errorf("Expected profit 40, got %s", row.Profit)
	}
}

func TestDeriveAllKeepsOrder(t *testing.T) {
	calc := New(decimal.RequireFromString(DefaultMargin))
	in := []normalize.Row{
		{Line: 5, Quantity: 1, UnitPrice: decimal.NewFromInt(1)},
		{Line: 2, Quantity: 1, UnitPrice: decimal.NewFromInt(1)},
	}
	out := calc.DeriveAll(in)
	if len(out) != 2 || out[0].Line != 5 || out[1].Line != 2 {
		t.Errorf("Expected order preserved, got %+v", out)
	}
}
