package sqlite

import (
	"context"
	"encoding/json/v2"
	"fmt"

	"github.com/alkoparser/catalog-ingest/internal/domain"
)

// SaveRun upserts a run summary.
func (s *Store) SaveRun(ctx context.Context, run *domain.Run) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, finished_at, reason, data)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			finished_at = excluded.finished_at,
			reason      = excluded.reason,
			data        = excluded.data`,
		run.ID, formatTime(run.StartedAt), nullTimeString(run.FinishedAt), string(run.Reason), string(data),
	)
	if err != nil {
		return fmt.Errorf("upsert run: %w", err)
	}
	return nil
}

// ListRuns returns up to limit runs, newest first. A non-positive limit
// returns all of them.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]domain.Run, error) {
	if limit <= 0 {
		limit = -1 // SQLite treats a negative LIMIT as unbounded
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.Run
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		var run domain.Run
		if err := json.Unmarshal([]byte(data), &run); err != nil {
			return nil, fmt.Errorf("unmarshal run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
