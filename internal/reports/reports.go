//-------------------------------------------------------------------------
//
// pgEdge Sales Warehouse
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package reports holds the fixed aggregation queries over the star schema.
package reports

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/pgEdge/pgedge-salesdw/internal/db"
)

// Params are the inputs a report may use.
type Params struct {
	// TopN bounds ranked reports.
	TopN int
}

// Table is a formatted report result.
type Table struct {
	Title   string
	Columns []string
	Rows    [][]string
}

// Print writes the table in aligned columns.
func (t *Table) Print(out io.Writer) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if t.Title != "" {
		if _, err := fmt.Fprintf(out, "%s\n", t.Title); err != nil {
			return err
		}
	}
	fmt.Fprintln(tw, strings.Join(t.Columns, "\t")+"\t")
	for _, r := range t.Rows {
		fmt.Fprintln(tw, strings.Join(r, "\t")+"\t")
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(out)
	return err
}

// Definition describes one report.
type Definition struct {
	// Name is the report identifier.
	Name string

	// Description describes what the report shows.
	Description string

	// Run executes the report.
	Run func(ctx context.Context, q db.Querier, p Params) (*Table, error)
}

var (
	registry = make(map[string]Definition)
	mu       sync.RWMutex
)

// Register adds a report to the registry.
func Register(d Definition) {
	mu.Lock()
	defer mu.Unlock()
	registry[d.Name] = d
}

// Get retrieves a report by name.
func Get(name string) (Definition, error) {
	mu.RLock()
	defer mu.RUnlock()

	d, ok := registry[name]
	if !ok {
		return Definition{}, fmt.Errorf("unknown report: %s (valid: %s)", name, strings.Join(listLocked(), ", "))
	}
	return d, nil
}

// List returns all registered report names, sorted.
func List() []string {
	mu.RLock()
	defer mu.RUnlock()
	return listLocked()
}

func listLocked() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns all registered reports, sorted by name.
func All() []Definition {
	names := List()
	out := make([]Definition, 0, len(names))
	mu.RLock()
	defer mu.RUnlock()
	for _, n := range names {
		out = append(out, registry[n])
	}
	return out
}

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
