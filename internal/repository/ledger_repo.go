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

const entryColumns = `id, child_id, source_id, type, delta, family_id, occurred_at, label, idempotency_key`

// LedgerRepository handles the append-only point_history table
type LedgerRepository struct {
	db database.Querier
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db database.Querier) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *LedgerRepository) WithTx(tx *database.Tx) *LedgerRepository {
	return &LedgerRepository{db: tx}
}

func scanEntry(s rowScanner) (*models.PointHistoryEntry, error) {
	e := &models.PointHistoryEntry{}
	err := s.Scan(
		&e.ID,
		&e.ChildID,
		&e.SourceID,
		&e.Type,
		&e.Delta,
		&e.FamilyID,
		&e.OccurredAt,
		&e.Label,
		&e.IdempotencyKey,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Append inserts a ledger entry and sets its ID. Entries are never updated.
func (r *LedgerRepository) Append(ctx context.Context, e *models.PointHistoryEntry) error {
	query := `
		INSERT INTO point_history (child_id, source_id, type, delta, family_id, occurred_at, label, idempotency_key)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query,
		e.ChildID, e.SourceID, string(e.Type), e.Delta, e.FamilyID, e.OccurredAt, e.Label, e.IdempotencyKey)
	if err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	e.ID = id
	return nil
}

// GetByIdempotencyKey retrieves the entry recorded under key
func (r *LedgerRepository) GetByIdempotencyKey(ctx context.Context, key string) (*models.PointHistoryEntry, error) {
	query := "SELECT " + entryColumns + " FROM point_history WHERE idempotency_key = ?"
	e, err := scanEntry(r.db.QueryRowContext(ctx, query, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}
	return e, nil
}

// ListByChild retrieves a child's entries, newest first
func (r *LedgerRepository) ListByChild(ctx context.Context, childID int64) ([]models.PointHistoryEntry, error) {
	query := "SELECT " + entryColumns + " FROM point_history WHERE child_id = ? ORDER BY occurred_at DESC, id DESC"
	return r.list(ctx, query, childID)
}

// ListAll retrieves every entry in insertion order
func (r *LedgerRepository) ListAll(ctx context.Context) ([]models.PointHistoryEntry, error) {
	return r.list(ctx, "SELECT "+entryColumns+" FROM point_history ORDER BY id")
}

func (r *LedgerRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.PointHistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger: %w", err)
	}
	defer rows.Close()

	entries := []models.PointHistoryEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ledger: %w", err)
	}
	return entries, nil
}

const totalsSelect = `
	SELECT
		COALESCE(SUM(CASE WHEN type <> '04' THEN delta ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN type = '04' THEN delta ELSE 0 END), 0)
	FROM point_history
`

// Totals sums a child's whole ledger
func (r *LedgerRepository) Totals(ctx context.Context, childID int64) (models.LedgerTotals, error) {
	var t models.LedgerTotals
	err := r.db.QueryRowContext(ctx, totalsSelect+" WHERE child_id = ?", childID).Scan(&t.Earned, &t.Spent)
	if err != nil {
		return t, fmt.Errorf("failed to sum ledger: %w", err)
	}
	return t, nil
}

// TotalsBetween sums a child's entries with from <= occurred_at <= to
func (r *LedgerRepository) TotalsBetween(ctx context.Context, childID int64, from, to time.Time) (models.LedgerTotals, error) {
	var t models.LedgerTotals
	query := totalsSelect + " WHERE child_id = ? AND occurred_at >= ? AND occurred_at <= ?"
	err := r.db.QueryRowContext(ctx, query, childID, from.UTC(), to.UTC()).Scan(&t.Earned, &t.Spent)
	if err != nil {
		return t, fmt.Errorf("failed to sum ledger window: %w", err)
	}
	return t, nil
}

// SumTypesBetween sums entries of the given types in [from, to]
func (r *LedgerRepository) SumTypesBetween(ctx context.Context, childID int64, types []models.EntryType, from, to time.Time) (int64, error) {
	if len(types) == 0 {
		return 0, nil
	}
	args := []interface{}{childID, from.UTC(), to.UTC()}
	placeholders := ""
	for i, t := range types {
		if i > 0 {
			placeholders += ", "
		}
		placeholders += "?"
		args = append(args, string(t))
	}
	query := `
		SELECT COALESCE(SUM(delta), 0) FROM point_history
		WHERE child_id = ? AND occurred_at >= ? AND occurred_at <= ? AND type IN (` + placeholders + `)
	`
	var sum int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&sum); err != nil {
		return 0, fmt.Errorf("failed to sum ledger types: %w", err)
	}
	return sum, nil
}
