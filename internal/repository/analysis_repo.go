package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"familypoints/internal/database"
	"familypoints/internal/models"
)

// AnalysisCacheRepository stores memoized homework analyses
type AnalysisCacheRepository struct {
	db database.Querier
}

// NewAnalysisCacheRepository creates a new analysis cache repository
func NewAnalysisCacheRepository(db database.Querier) *AnalysisCacheRepository {
	return &AnalysisCacheRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *AnalysisCacheRepository) WithTx(tx *database.Tx) *AnalysisCacheRepository {
	return &AnalysisCacheRepository{db: tx}
}

// Get retrieves the entry for (child, day, window)
func (r *AnalysisCacheRepository) Get(ctx context.Context, childID int64, day string, windowDays int) (*models.AnalysisCacheEntry, error) {
	query := `
		SELECT id, child_id, day, window_days, payload, created_at
		FROM analysis_cache
		WHERE child_id = ? AND day = ? AND window_days = ?
	`
	e := &models.AnalysisCacheEntry{}
	err := r.db.QueryRowContext(ctx, query, childID, day, windowDays).Scan(
		&e.ID,
		&e.ChildID,
		&e.Day,
		&e.WindowDays,
		&e.Payload,
		&e.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}
	return e, nil
}

// Put replaces the entry for (child, day, window). Call it inside a
// transaction so the delete and insert land together.
func (r *AnalysisCacheRepository) Put(ctx context.Context, e *models.AnalysisCacheEntry) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM analysis_cache WHERE child_id = ? AND day = ? AND window_days = ?",
		e.ChildID, e.Day, e.WindowDays)
	if err != nil {
		return fmt.Errorf("failed to replace analysis: %w", err)
	}

	query := `
		INSERT INTO analysis_cache (child_id, day, window_days, payload, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query, e.ChildID, e.Day, e.WindowDays, e.Payload, e.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to store analysis: %w", err)
	}
	e.ID = id
	return nil
}

// DeleteOlderThan removes entries created before cutoff
func (r *AnalysisCacheRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM analysis_cache WHERE created_at < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired analyses: %w", err)
	}
	return result.RowsAffected()
}

// TrimPerChild keeps only the newest max entries of every child
func (r *AnalysisCacheRepository) TrimPerChild(ctx context.Context, max int) (int64, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT child_id FROM analysis_cache GROUP BY child_id HAVING COUNT(*) > ?", max)
	if err != nil {
		return 0, fmt.Errorf("failed to find oversized caches: %w", err)
	}
	var children []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan child id: %w", err)
		}
		children = append(children, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("failed to iterate oversized caches: %w", err)
	}

	var removed int64
	for _, childID := range children {
		stale, err := r.idsBeyond(ctx, childID, max)
		if err != nil {
			return removed, err
		}
		for _, id := range stale {
			if _, err := r.db.ExecContext(ctx, "DELETE FROM analysis_cache WHERE id = ?", id); err != nil {
				return removed, fmt.Errorf("failed to trim analysis cache: %w", err)
			}
			removed++
		}
	}
	return removed, nil
}

func (r *AnalysisCacheRepository) idsBeyond(ctx context.Context, childID int64, keep int) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id FROM analysis_cache WHERE child_id = ? ORDER BY created_at DESC, id DESC", childID)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer rows.Close()

	var ids []int64
	i := 0
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan analysis id: %w", err)
		}
		if i >= keep {
			ids = append(ids, id)
		}
		i++
	}
	return ids, rows.Err()
}
