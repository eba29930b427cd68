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
	"errors"
	"fmt"
	"time"

	"github.com/pgEdge/pgedge-salesdw/internal/db"
	"github.com/pgEdge/pgedge-salesdw/internal/logging"
	"github.com/pgEdge/pgedge-salesdw/pkg/version"
)

// ErrBatchLoaded is returned by an append of a batch that is already in
// the warehouse.
var ErrBatchLoaded = errors.New("batch already loaded")

// Batch is a row of the load ledger.
type Batch struct {
	Fingerprint string
	RunID       string
	Policy      string
	SourceRows  int64
	FactRows    int64
	LoadedAt    string
}

// saveMetadata records the run in etl_metadata.
func saveMetadata(ctx context.Context, q db.Querier, runID string, policy Policy) error {
	metadata := map[string]string{
		"version":        version.Short(),
		"last_run_id":    runID,
		"last_loaded_at": time.Now().UTC().Format(time.RFC3339),
		"last_policy":    string(policy),
	}

	for key, value := range metadata {
		_, err := q.Exec(ctx, `
            INSERT INTO etl_metadata (key, value) VALUES (?, ?)
            ON CONFLICT (key) DO UPDATE SET value = excluded.value
        `, key, value)
		if err != nil {
			return fmt.Errorf("failed to save metadata %s: %w", key, err)
		}
	}

	logging.Debug().
		Str("run_id", runID).
		Str("policy", string(policy)).
		Msg("Saved metadata")

	return nil
}

// GetMetadataValue retrieves a single metadata value by key.
func GetMetadataValue(ctx context.Context, q db.Querier, key string) (string, error) {
	var value string
	err := q.QueryRow(ctx, `SELECT value FROM etl_metadata WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return "", err
	}
	return value, nil
}

// GetAllMetadata retrieves all metadata as a map.
func GetAllMetadata(ctx context.Context, q db.Querier) (map[string]string, error) {
	rows, err := q.Query(ctx, `SELECT key, value FROM etl_metadata`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	metadata := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		metadata[key] = value
	}

	return metadata, rows.Err()
}

func batchLoaded(ctx context.Context, q db.Querier, fingerprint string) (bool, error) {
	var found int
	err := q.QueryRow(ctx, `SELECT 1 FROM etl_batches WHERE fingerprint = ?`, fingerprint).Scan(&found)
	if errors.Is(err, db.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func recordBatch(ctx context.Context, q db.Querier, b Batch) error {
	_, err := q.Exec(ctx, `
        INSERT INTO etl_batches (fingerprint, run_id, policy, source_rows, fact_rows, loaded_at)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT (fingerprint) DO UPDATE SET
            run_id = excluded.run_id,
            policy = excluded.policy,
            source_rows = excluded.source_rows,
            fact_rows = excluded.fact_rows,
            loaded_at = excluded.loaded_at
    `, b.Fingerprint, b.RunID, b.Policy, b.SourceRows, b.FactRows, b.LoadedAt)
	if err != nil {
		return fmt.Errorf("failed to record batch: %w", err)
	}
	return nil
}

// ListBatches returns the load ledger, oldest first.
func ListBatches(ctx context.Context, q db.Querier) ([]Batch, error) {
	rows, err := q.Query(ctx, `
        SELECT fingerprint, run_id, policy, source_rows, fact_rows, loaded_at
        FROM etl_batches ORDER BY loaded_at, fingerprint
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Batch
	for rows.Next() {
		var b Batch
		if err := rows.Scan(&b.Fingerprint, &b.RunID, &b.Policy, &b.SourceRows, &b.FactRows, &b.LoadedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
