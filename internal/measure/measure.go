//-------------------------------------------------------------------------
//
// pgEdge Sales Warehouse
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package measure derives the computed sale measures of an order line.
package measure

import (
	"github.com/shopspring/decimal"

	"github.com/pgEdge/pgedge-salesdw/internal/normalize"
)

// DefaultMargin is the profit margin applied to the extended sale amount.
const DefaultMargin = "0.25"

// DealSize is the deal-size bucket of a sale.
type DealSize string

// Deal-size categories.
const (
	Small  DealSize = "Small"
	Medium DealSize = "Medium"
	Large  DealSize = "Large"
)

var (
	mediumFloor = decimal.NewFromInt(3000)
	largeFloor  = decimal.NewFromInt(6000)
)

// Classify buckets an extended sale amount. The intervals are half-open:
// exactly 3000 is Medium and exactly 6000 is Large.
func Classify(amount decimal.Decimal) DealSize {
	switch {
	case amount.LessThan(mediumFloor):
		return Small
	case amount.LessThan(largeFloor):
		return Medium
	default:
		return Large
	}
}

// Row is a normalized row with its derived measures.
type Row struct {
	normalize.Row

	// Amount is quantity times unit price.
	Amount decimal.Decimal

	// Profit is Amount times the margin.
	Profit decimal.Decimal

	DealSizeCat DealSize
}

// Calculator derives measures with a fixed margin.
type Calculator struct {
	margin decimal.Decimal
}

// New creates a Calculator.
func New(margin decimal.Decimal) *Calculator {
	return &Calculator{margin: margin}
}

// Margin returns the configured margin.
func (c *Calculator) Margin() decimal.Decimal {
	return c.margin
}

// Derive computes the measures of one row. Nothing is rounded.
func (c *Calculator) Derive(row normalize.Row) Row {
	amount := decimal.NewFromInt(row.Quantity).Mul(row.UnitPrice)
	return Row{
		Row:         row,
		Amount:      amount,
		Profit:      amount.Mul(c.margin),
		DealSizeCat: Classify(amount),
	}
}

// DeriveAll derives every row, preserving order.
func (c *Calculator) DeriveAll(rows []normalize.Row) []Row {
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = c.Derive(r)
	}
	return out
}
