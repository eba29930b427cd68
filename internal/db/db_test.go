package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func TestParseDialect(t *testing.T) {
	tests := []struct {
		input     string
		want      Dialect
		wantError bool
	}{
		{"sqlite", SQLite, false},
		{"SQLite", SQLite, false},
		{"postgres", Postgres, false},
		{"postgresql", Postgres, false},
		{"pgx", Postgres, false},
		{"mysql", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDialect(tt.input)
			if tt.wantError {
				if err == nil {
					t.Error("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestRebind(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"SELECT 1", "SELECT 1"},
		{"SELECT * FROM t WHERE a = ? AND b = ?", "SELECT * FROM t WHERE a = $1 AND b = $2"},
		{"INSERT INTO t VALUES (?, '?', ?)", "INSERT INTO t VALUES ($1, '?', $2)"},
		{"SELECT 'it''s ?' WHERE x = ?", "SELECT 'it''s ?' WHERE x = $1"},
	}

	for _, tt := range tests {
		if got := rebind(tt.input); got != tt.want {
			t.Errorf("rebind(%q): expected %q, got %q", tt.input, tt.want, got)
		}
	}
}

func openTestStore(t *testing.T) Store {
	t.Helper()
	store, err := Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(store.Close)
	return store
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	if store.Dialect() != SQLite {
		t.Errorf("Expected dialect sqlite, got %s", store.Dialect())
	}

	if _, err := store.Exec(ctx, `CREATE TABLE kv (k TEXT PRIMARY KEY, v INTEGER NOT NULL)`); err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}
	n, err := store.Exec(ctx, `INSERT INTO kv (k, v) VALUES (?, ?), (?, ?)`, "a", 1, "b", 2)
	if err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 rows affected, got %d", n)
	}

	var v int64
	if err := store.QueryRow(ctx, `SELECT v FROM kv WHERE k = ?`, "b").Scan(&v); err != nil {
		t.Fatalf("Failed to query: %v", err)
	}
	if v != 2 {
		t.Errorf("Expected 2, got %d", v)
	}

	err = store.QueryRow(ctx, `SELECT v FROM kv WHERE k = ?`, "zzz").Scan(&v)
	if !errors.Is(err, ErrNoRows) {
		t.Errorf("Expected ErrNoRows, got %v", err)
	}

	rows, err := store.Query(ctx, `SELECT k FROM kv ORDER BY k`)
	if err != nil {
		t.Fatalf("Failed to query: %v", err)
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			t.Fatalf("Failed to scan: %v", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("Rows error: %v", err)
	}
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Errorf("Expected [a b], got %v", keys)
	}
}

func TestSQLiteTransactionRollback(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	if _, err := store.Exec(ctx, `CREATE TABLE kv (k TEXT PRIMARY KEY)`); err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}

	boom := errors.New("boom")
	err := store.InTx(ctx, func(q Querier) error {
		if _, err := q.Exec(ctx, `INSERT INTO kv (k) VALUES (?)`, "a"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected boom, got %v", err)
	}

	var n int64
	if err := store.QueryRow(ctx, `SELECT COUNT(*) FROM kv`).Scan(&n); err != nil {
		t.Fatalf("Failed to count: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected rollback to leave 0 rows, got %d", n)
	}

	err = store.InTx(ctx, func(q Querier) error {
		_, err := q.Exec(ctx, `INSERT INTO kv (k) VALUES (?)`, "a")
		return err
	})
	if err != nil {
		t.Fatalf("Expected commit, got %v", err)
	}
	if err := store.QueryRow(ctx, `SELECT COUNT(*) FROM kv`).Scan(&n); err != nil {
		t.Fatalf("Failed to count: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 row after commit, got %d", n)
	}
}

func TestSQLiteForeignKeysEnforced(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	if _, err := store.Exec(ctx, `
		CREATE TABLE parent (id INTEGER PRIMARY KEY);
		CREATE TABLE child (id INTEGER PRIMARY KEY, parent_id INTEGER NOT NULL REFERENCES parent(id));
	`); err != nil {
		t.Fatalf("Failed to create tables: %v", err)
	}

	if _, err := store.Exec(ctx, `INSERT INTO child (id, parent_id) VALUES (1, 99)`); err == nil {
		t.Error("Expected foreign key violation, got nil")
	}
}

func TestOpenRequiresDSN(t *testing.T) {
	if _, err := Open(context.Background(), "sqlite", " "); err == nil {
		t.Error("Expected error for empty dsn, got nil")
	}
}
