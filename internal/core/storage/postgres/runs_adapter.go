package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	v1 "github.com/ardata-lab/ardata/internal/api/v1"
	"github.com/ardata-lab/ardata/internal/core/storage"
)

const (
	upsertRunQuery = `
		INSERT INTO report_runs (id, started_at, finished_at, status, output_path, error, sheets, cache_hits, cache_misses)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			finished_at = EXCLUDED.finished_at,
			status = EXCLUDED.status,
			output_path = EXCLUDED.output_path,
			error = EXCLUDED.error,
			sheets = EXCLUDED.sheets,
			cache_hits = EXCLUDED.cache_hits,
			cache_misses = EXCLUDED.cache_misses`

	selectRunQuery = `
		SELECT id, started_at, finished_at, status, output_path, error, sheets, cache_hits, cache_misses
		FROM report_runs
		WHERE id = $1`

	listRunsQuery = `
		SELECT id, started_at, finished_at, status, output_path, error, sheets, cache_hits, cache_misses
		FROM report_runs
		ORDER BY started_at DESC
		LIMIT $1`
)

// SaveRun inserts a run record, or updates it if the run already exists.
// Per-sheet outcomes are stored as a JSONB document.
func (a *Adapter) SaveRun(ctx context.Context, run *v1.ReportRun) error {
	sheets, err := json.Marshal(run.Sheets)
	if err != nil {
		return fmt.Errorf("failed to encode sheet results: %w", err)
	}

	finishedAt := sql.NullTime{Time: run.FinishedAt, Valid: !run.FinishedAt.IsZero()}
	_, err = a.db.ExecContext(ctx, upsertRunQuery,
		run.ID, run.StartedAt, finishedAt, run.Status,
		run.OutputPath, run.Error, sheets, run.CacheHits, run.CacheMisses)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}
	return nil
}

// GetRun fetches one run by ID. Returns storage.ErrNotFound when absent.
func (a *Adapter) GetRun(ctx context.Context, id string) (*v1.ReportRun, error) {
	row := a.db.QueryRowContext(ctx, selectRunQuery, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (a *Adapter) ListRuns(ctx context.Context, limit int) ([]*v1.ReportRun, error) {
	rows, err := a.db.QueryContext(ctx, listRunsQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*v1.ReportRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*v1.ReportRun, error) {
	var run v1.ReportRun
	var finishedAt sql.NullTime
	var sheets []byte
	err := row.Scan(&run.ID, &run.StartedAt, &finishedAt, &run.Status,
		&run.OutputPath, &run.Error, &sheets, &run.CacheHits, &run.CacheMisses)
	if err != nil {
		return nil, err
	}
	if finishedAt.Valid {
		run.FinishedAt = finishedAt.Time
	}
	if len(sheets) > 0 {
		if err := json.Unmarshal(sheets, &run.Sheets); err != nil {
			return nil, fmt.Errorf("failed to decode sheet results: %w", err)
		}
	}
	return &run, nil
}
