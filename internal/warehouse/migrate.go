//-------------------------------------------------------------------------
//
// pgEdge Sales Warehouse
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package warehouse

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/pgEdge/pgedge-salesdw/internal/db"
	"github.com/pgEdge/pgedge-salesdw/internal/logging"
)

const migrationTable = "schema_migrations"

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationFS embed.FS

const (
	upMarker   = "-- +migrate Up"
	downMarker = "-- +migrate Down"
)

type migration struct {
	name string
	up   string
	down string
}

// loadMigrations reads the migration files of a dialect in name order.
func loadMigrations(dialect db.Dialect) ([]migration, error) {
	root := path.Join("migrations", string(dialect))
	entries, err := fs.ReadDir(migrationFS, root)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations for %s: %w", dialect, err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	out := make([]migration, 0, len(files))
	for _, file := range files {
		content, err := fs.ReadFile(migrationFS, path.Join(root, file))
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", file, err)
		}
		up, down := splitMigration(string(content))
		out = append(out, migration{name: file, up: up, down: down})
	}
	return out, nil
}

// splitMigration returns the Up and Down sections of a migration file. A
// file without markers is all Up.
func splitMigration(content string) (up, down string) {
	upIdx := strings.Index(content, upMarker)
	downIdx := strings.Index(content, downMarker)
	switch {
	case upIdx == -1 && downIdx == -1:
		return content, ""
	case downIdx == -1:
		return content[upIdx+len(upMarker):], ""
	case upIdx == -1:
		return content[:downIdx], content[downIdx+len(downMarker):]
	default:
		return content[upIdx+len(upMarker) : downIdx], content[downIdx+len(downMarker):]
	}
}

// applyMigrations runs each Up section at most once, recording it in
// schema_migrations. Each file runs in its own transaction.
func applyMigrations(ctx context.Context, store db.Store) (int, error) {
	migrations, err := loadMigrations(store.Dialect())
	if err != nil {
		return 0, err
	}

	createSQL := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
    name       TEXT PRIMARY KEY,
    applied_at BIGINT NOT NULL
)`, migrationTable)
	if _, err := store.Exec(ctx, createSQL); err != nil {
		return 0, fmt.Errorf("failed to ensure migration table: %w", err)
	}

	applied := 0
	for _, m := range migrations {
		done, err := isApplied(ctx, store, m.name)
		if err != nil {
			return applied, fmt.Errorf("failed to check migration %s: %w", m.name, err)
		}
		if done || strings.TrimSpace(m.up) == "" {
			continue
		}

		err = store.InTx(ctx, func(q db.Querier) error {
			if _, err := q.Exec(ctx, m.up); err != nil {
				if store.Dialect() != db.SQLite || !isAlreadyExistsError(err) {
					return fmt.Errorf("failed to exec migration %s: %w", m.name, err)
				}
			}
			_, err := q.Exec(ctx,
				"INSERT INTO "+migrationTable+" (name, applied_at) VALUES (?, ?) ON CONFLICT (name) DO NOTHING",
				m.name, time.Now().UTC().UnixMilli())
			if err != nil {
				return fmt.Errorf("failed to record migration %s: %w", m.name, err)
			}
			return nil
		})
		if err != nil {
			return applied, err
		}

		logging.Debug().Str("migration", m.name).Msg("Applied migration")
		applied++
	}

	return applied, nil
}

// revertMigrations runs every Down section in reverse order and forgets
// the applied set.
func revertMigrations(ctx context.Context, store db.Store) error {
	migrations, err := loadMigrations(store.Dialect())
	if err != nil {
		return err
	}

	return store.InTx(ctx, func(q db.Querier) error {
		for i := len(migrations) - 1; i >= 0; i-- {
			m := migrations[i]
			if strings.TrimSpace(m.down) == "" {
				continue
			}
			if _, err := q.Exec(ctx, m.down); err != nil {
				return fmt.Errorf("failed to revert migration %s: %w", m.name, err)
			}
		}
		if _, err := q.Exec(ctx, "DROP TABLE IF EXISTS "+migrationTable); err != nil {
			return fmt.Errorf("failed to drop migration table: %w", err)
		}
		return nil
	})
}

func isApplied(ctx context.Context, q db.Querier, name string) (bool, error) {
	var found int
	err := q.QueryRow(ctx, "SELECT 1 FROM "+migrationTable+" WHERE name = ?", name).Scan(&found)
	if err != nil {
		if err == db.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func isAlreadyExistsError(err error) bool {
	value := strings.ToLower(err.Error())
	return strings.Contains(value, "already exists") || strings.Contains(value, "duplicate column name")
}
