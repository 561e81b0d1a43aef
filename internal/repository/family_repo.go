package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"familypoints/internal/database"
	"familypoints/internal/models"
)

const familyColumns = `id, name, deadline_enabled, deadline_time, deadline_bonus_points, created_at, updated_at`

// FamilyRepository handles database operations for families
type FamilyRepository struct {
	db database.Querier
}

// NewFamilyRepository creates a new family repository
func NewFamilyRepository(db database.Querier) *FamilyRepository {
	return &FamilyRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *FamilyRepository) WithTx(tx *database.Tx) *FamilyRepository {
	return &FamilyRepository{db: tx}
}

func scanFamily(s rowScanner) (*models.Family, error) {
	f := &models.Family{}
	err := s.Scan(
		&f.ID,
		&f.Name,
		&f.DeadlineEnabled,
		&f.DeadlineTime,
		&f.DeadlineBonusPoints,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Create inserts a new family and sets its ID
func (r *FamilyRepository) Create(ctx context.Context, f *models.Family) error {
	query := `
		INSERT INTO families (name, deadline_enabled, deadline_time, deadline_bonus_points, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query,
		f.Name, f.DeadlineEnabled, f.DeadlineTime, f.DeadlineBonusPoints, f.CreatedAt, f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create family: %w", err)
	}
	f.ID = id
	return nil
}

// GetByID retrieves a family by ID
func (r *FamilyRepository) GetByID(ctx context.Context, id int64) (*models.Family, error) {
	query := "SELECT " + familyColumns + " FROM families WHERE id = ?"
	f, err := scanFamily(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	return f, nil
}

// List retrieves all families ordered by name
func (r *FamilyRepository) List(ctx context.Context) ([]models.Family, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+familyColumns+" FROM families ORDER BY name, id")
	if err != nil {
		return nil, fmt.Errorf("failed to query families: %w", err)
	}
	defer rows.Close()

	var families []models.Family
	for rows.Next() {
		f, err := scanFamily(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan family: %w", err)
		}
		families = append(families, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate families: %w", err)
	}
	return families, nil
}

// UpdateName renames a family
func (r *FamilyRepository) UpdateName(ctx context.Context, id int64, name string) error {
	query := "UPDATE families SET name = ?, updated_at = ? WHERE id = ?"
	if _, err := r.db.ExecContext(ctx, query, name, now(), id); err != nil {
		return fmt.Errorf("failed to update family name: %w", err)
	}
	return nil
}

// UpdateDeadline saves a family's deadline configuration
func (r *FamilyRepository) UpdateDeadline(ctx context.Context, id int64, enabled bool, deadline string, bonus int) error {
	query := `
		UPDATE families
		SET deadline_enabled = ?, deadline_time = ?, deadline_bonus_points = ?, updated_at = ?
		WHERE id = ?
	`
	if _, err := r.db.ExecContext(ctx, query, enabled, deadline, bonus, now(), id); err != nil {
		return fmt.Errorf("failed to update deadline: %w", err)
	}
	return nil
}
