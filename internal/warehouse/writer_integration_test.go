//go:build integration

//-------------------------------------------------------------------------
//
// pgEdge Sales Warehouse
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package warehouse

import (
	"context"
	"errors"
	"testing"

	"github.com/pgEdge/pgedge-salesdw/internal/testutil"
)

func TestPostgresWriter(t *testing.T) {
	baseConnStr := testutil.SkipIfNoPostgres(t)

	testConnStr := testutil.CreateTestDB(t, baseConnStr, "warehouse")
	dbName := testutil.GetDBNameFromConnStr(testConnStr)
	cleanup := testutil.NewTestCleanup(t, baseConnStr, dbName)
	defer cleanup.Cleanup()

	store := testutil.ConnectTestDB(t, testConnStr)
	cleanup.SetStore(store)

	ctx := context.Background()
	w := NewWriter(store, DefaultOptions())

	if err := w.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}
	if err := w.EnsureSchema(ctx); err != nil {
		t.Fatalf("Second EnsureSchema failed: %v", err)
	}

	dims, facts := build(t, Seed{}, []line{
		{"Acme Co", jan5, "P1", 10, "250"},
		{"Acme Co", jan5, "P1", 3, "400"},
	})
	if _, err := w.Write(ctx, Load{Policy: Append, RunID: "r1", Fingerprint: "f1", SourceRows: 2, Dimensions: dims, Facts: facts}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	var total float64
	err := store.QueryRow(ctx, `SELECT CAST(SUM(calc_sales) AS DOUBLE PRECISION) FROM fact_sales`).Scan(&total)
	if err != nil {
		t.Fatalf("Failed to sum sales: %v", err)
	}
	if total != 3700 {
		t.Errorf("Expected total 3700, got %v", total)
	}

	seed, err := w.Seed(ctx, Append)
	if err != nil {
		t.Fatalf("Seed failed: %v", err)
	}
	if seed.Dimension.Customers["Acme Co"] != 1 || seed.MaxSalesID != 2 {
		t.Errorf("Unexpected seed: %+v", seed)
	}

	dims, facts = build(t, seed, []line{{"Acme Co", jan5, "P1", 3, "10.125"}})
	_, err = w.Write(ctx, Load{Policy: Append, RunID: "r2", Fingerprint: "f1", Dimensions: dims, Facts: facts})
	if !errors.Is(err, ErrBatchLoaded) {
		t.Errorf("Expected ErrBatchLoaded, got %v", err)
	}
	if _, err := w.Write(ctx, Load{Policy: Append, RunID: "r3", Fingerprint: "f1", Dimensions: dims, Facts: facts, Force: true}); err != nil {
		t.Fatalf("Forced write failed: %v", err)
	}

	// Money columns keep every decimal place: 3 x 10.125 x 0.25
	var profit string
	if err := store.QueryRow(ctx, `SELECT CAST(profit AS TEXT) FROM fact_sales WHERE sales_id = 3`).Scan(&profit); err != nil {
		t.Fatalf("Failed to read profit: %v", err)
	}
	if profit != "7.59375" {
		t.Errorf("Expected profit 7.59375, got %s", profit)
	}

	integrity, err := w.CheckIntegrity(ctx)
	if err != nil {
		t.Fatalf("CheckIntegrity failed: %v", err)
	}
	if !integrity.OK() {
		t.Errorf("Expected clean integrity, got %+v", integrity)
	}

	counts, err := w.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts failed: %v", err)
	}
	if counts[TableFact] != 3 || counts[TableCustomer] != 1 || counts[TableDate] != 1 {
		t.Errorf("Unexpected counts: %v", counts)
	}

	if err := w.DropSchema(ctx); err != nil {
		t.Fatalf("DropSchema failed: %v", err)
	}
}
