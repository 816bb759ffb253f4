package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/backdrop/internal/database"
)

// RunRepository stores pipeline runs in the runs table.
type RunRepository struct {
	pool *Pool
}

var _ database.RunRecorder = (*RunRepository)(nil)

func NewRunRepository(pool *Pool) *RunRepository {
	return &RunRepository{pool: pool}
}

// Record inserts a run. Recording the same id twice is a no-op.
func (r *RunRepository) Record(ctx context.Context, run *database.Run) error {
	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO runs (
			id, created_at, backend, threshold, foreground_threshold, background_threshold,
			erode_size, subject_width, subject_height, subject_hash, background_supplied,
			subject_error, background_error, duration_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO NOTHING
	`,
		run.ID, createdAt, run.Backend, run.Threshold, run.ForegroundThreshold, run.BackgroundThreshold,
		run.ErodeSize, run.SubjectWidth, run.SubjectHeight, run.SubjectHash, run.BackgroundSupplied,
		run.SubjectError, run.BackgroundError, run.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (r *RunRepository) Recent(ctx context.Context, limit int) ([]database.Run, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, created_at, backend, threshold, foreground_threshold, background_threshold,
			erode_size, subject_width, subject_height, subject_hash, background_supplied,
			subject_error, background_error, duration_ms
		FROM runs
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []database.Run
	for rows.Next() {
		var run database.Run
		if err := rows.Scan(
			&run.ID, &run.CreatedAt, &run.Backend, &run.Threshold, &run.ForegroundThreshold, &run.BackgroundThreshold,
			&run.ErodeSize, &run.SubjectWidth, &run.SubjectHeight, &run.SubjectHash, &run.BackgroundSupplied,
			&run.SubjectError, &run.BackgroundError, &run.DurationMs,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Prune deletes runs created before cutoff.
func (r *RunRepository) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	result, err := r.pool.Exec(ctx, "DELETE FROM runs WHERE created_at < $1", cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return int(n), nil
}
