//-------------------------------------------------------------------------
//
// pgEdge Sales Warehouse
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package db provides the SQL store the warehouse is written to. Two
// backends sit behind the same interface: an embedded SQLite file and a
// PostgreSQL pool.
//
// Statements are written with ? placeholders; the PostgreSQL backend
// rewrites them to $n before sending.
package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Dialect identifies the SQL backend.
type Dialect string

// Supported dialects.
const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// ErrNoRows is returned by Row.Scan when the query matched nothing.
var ErrNoRows = errors.New("no rows in result set")

// Row is a single-row result.
type Row interface {
	Scan(dest ...any) error
}

// Rows is a multi-row result. Close must be called.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// Querier runs statements.
type Querier interface {
	// Exec runs a statement and returns the number of rows affected.
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) Row
}

// Store is a connected backend.
type Store interface {
	Querier

	Dialect() Dialect

	// InTx runs fn in a transaction, committing if fn returns nil and
	// rolling back otherwise.
	InTx(ctx context.Context, fn func(q Querier) error) error

	Close()
}

// ParseDialect validates a driver name.
func ParseDialect(s string) (Dialect, error) {
	switch d := Dialect(strings.ToLower(strings.TrimSpace(s))); d {
	case SQLite, Postgres:
		return d, nil
	case "postgresql", "pgx":
		return Postgres, nil
	default:
		return "", fmt.Errorf("unsupported store driver: %s (valid: sqlite, postgres)", s)
	}
}

// Open connects to the store named by driver.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	d, err := ParseDialect(driver)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("store dsn is required")
	}

	if d == Postgres {
		s, err := OpenPostgres(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	}

	s, err := OpenSQLite(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return s, nil
}
