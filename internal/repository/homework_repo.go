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

const homeworkColumns = `id, family_id, child_id, subject, title, content, points, status, due_date, pomodoro_count, created_by, created_at, completed_at`

// HomeworkRepository handles database operations for homework
type HomeworkRepository struct {
	db database.Querier
}

// NewHomeworkRepository creates a new homework repository
func NewHomeworkRepository(db database.Querier) *HomeworkRepository {
	return &HomeworkRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *HomeworkRepository) WithTx(tx *database.Tx) *HomeworkRepository {
	return &HomeworkRepository{db: tx}
}

func scanHomework(s rowScanner) (*models.Homework, error) {
	h := &models.Homework{}
	err := s.Scan(
		&h.ID,
		&h.FamilyID,
		&h.ChildID,
		&h.Subject,
		&h.Title,
		&h.Content,
		&h.Points,
		&h.Status,
		&h.DueDate,
		&h.PomodoroCount,
		&h.CreatedBy,
		&h.CreatedAt,
		&h.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return h, nil
}

// Create inserts homework and sets its ID
func (r *HomeworkRepository) Create(ctx context.Context, h *models.Homework) error {
	query := `
		INSERT INTO homework (family_id, child_id, subject, title, content, points, status, due_date, pomodoro_count, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query,
		h.FamilyID, h.ChildID, h.Subject, h.Title, h.Content, h.Points, string(h.Status),
		h.DueDate, h.PomodoroCount, h.CreatedBy, h.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create homework: %w", err)
	}
	h.ID = id
	return nil
}

// GetByID retrieves homework by ID
func (r *HomeworkRepository) GetByID(ctx context.Context, id int64) (*models.Homework, error) {
	query := "SELECT " + homeworkColumns + " FROM homework WHERE id = ?"
	h, err := scanHomework(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get homework: %w", err)
	}
	return h, nil
}

// ListByChild retrieves a child's homework, newest first
func (r *HomeworkRepository) ListByChild(ctx context.Context, childID int64) ([]models.Homework, error) {
	query := "SELECT " + homeworkColumns + " FROM homework WHERE child_id = ? ORDER BY created_at DESC, id DESC"
	return r.list(ctx, query, childID)
}

// ListByChildBetween retrieves homework created in [from, to]
func (r *HomeworkRepository) ListByChildBetween(ctx context.Context, childID int64, from, to time.Time) ([]models.Homework, error) {
	query := "SELECT " + homeworkColumns + " FROM homework WHERE child_id = ? AND created_at >= ? AND created_at <= ? ORDER BY created_at, id"
	return r.list(ctx, query, childID, from.UTC(), to.UTC())
}

// ListAll retrieves every homework row
func (r *HomeworkRepository) ListAll(ctx context.Context) ([]models.Homework, error) {
	return r.list(ctx, "SELECT "+homeworkColumns+" FROM homework ORDER BY id")
}

func (r *HomeworkRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.Homework, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query homework: %w", err)
	}
	defer rows.Close()

	items := []models.Homework{}
	for rows.Next() {
		h, err := scanHomework(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan homework: %w", err)
		}
		items = append(items, *h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate homework: %w", err)
	}
	return items, nil
}

// Update saves the editable homework fields
func (r *HomeworkRepository) Update(ctx context.Context, h *models.Homework) error {
	query := `
		UPDATE homework
		SET subject = ?, title = ?, content = ?, points = ?, due_date = ?
		WHERE id = ?
	`
	if _, err := r.db.ExecContext(ctx, query, h.Subject, h.Title, h.Content, h.Points, h.DueDate, h.ID); err != nil {
		return fmt.Errorf("failed to update homework: %w", err)
	}
	return nil
}

// Delete removes homework
func (r *HomeworkRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM homework WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete homework: %w", err)
	}
	return nil
}

// MarkDone moves pending homework to done. It reports false when the
// homework was not pending.
func (r *HomeworkRepository) MarkDone(ctx context.Context, id int64, at time.Time) (bool, error) {
	query := "UPDATE homework SET status = ?, completed_at = ? WHERE id = ? AND status = ?"
	result, err := r.db.ExecContext(ctx, query, string(models.HomeworkDone), at.UTC(), id, string(models.HomeworkPending))
	if err != nil {
		return false, fmt.Errorf("failed to complete homework: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to complete homework: %w", err)
	}
	return n == 1, nil
}

// IncrementPomodoro bumps the focus session counter
func (r *HomeworkRepository) IncrementPomodoro(ctx context.Context, id int64) error {
	query := "UPDATE homework SET pomodoro_count = pomodoro_count + 1 WHERE id = ?"
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to increment pomodoro count: %w", err)
	}
	return nil
}
