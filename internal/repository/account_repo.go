package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"familypoints/internal/database"
	"familypoints/internal/models"
)

const accountColumns = `id, username, password_hash, name, role, age, gender, grade, email, points, family_id, created_at, updated_at`

// AccountRepository handles database operations for accounts
type AccountRepository struct {
	db database.Querier
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db database.Querier) *AccountRepository {
	return &AccountRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *AccountRepository) WithTx(tx *database.Tx) *AccountRepository {
	return &AccountRepository{db: tx}
}

func scanAccount(s rowScanner) (*models.Account, error) {
	a := &models.Account{}
	err := s.Scan(
		&a.ID,
		&a.Username,
		&a.PasswordHash,
		&a.Name,
		&a.Role,
		&a.Age,
		&a.Gender,
		&a.Grade,
		&a.Email,
		&a.Points,
		&a.FamilyID,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Create inserts a new account and sets its ID
func (r *AccountRepository) Create(ctx context.Context, a *models.Account) error {
	query := `
		INSERT INTO accounts (username, password_hash, name, role, age, gender, grade, email, points, family_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query,
		a.Username, a.PasswordHash, a.Name, string(a.Role), a.Age, a.Gender, a.Grade, a.Email,
		a.Points, a.FamilyID, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	a.ID = id
	return nil
}

// GetByID retrieves an account by ID
func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	query := "SELECT " + accountColumns + " FROM accounts WHERE id = ?"
	a, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return a, nil
}

// GetByUsername retrieves an account by username
func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	query := "SELECT " + accountColumns + " FROM accounts WHERE username = ?"
	a, err := scanAccount(r.db.QueryRowContext(ctx, query, username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return a, nil
}

// UsernameExists checks whether a username is taken
func (r *AccountRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM accounts WHERE username = ?", username).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check username: %w", err)
	}
	return count > 0, nil
}

// List retrieves every account ordered by ID
func (r *AccountRepository) List(ctx context.Context) ([]models.Account, error) {
	return r.list(ctx, "SELECT "+accountColumns+" FROM accounts ORDER BY id")
}

// ListByFamily retrieves the accounts of a family with the given role
func (r *AccountRepository) ListByFamily(ctx context.Context, familyID int64, role models.Role) ([]models.Account, error) {
	query := "SELECT " + accountColumns + " FROM accounts WHERE family_id = ? AND role = ? ORDER BY name, id"
	return r.list(ctx, query, familyID, string(role))
}

func (r *AccountRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.Account, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}
	return accounts, nil
}

// CountByRole counts accounts holding role
func (r *AccountRepository) CountByRole(ctx context.Context, role models.Role) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM accounts WHERE role = ?", string(role)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count accounts: %w", err)
	}
	return count, nil
}

// Update saves profile, role and family changes
func (r *AccountRepository) Update(ctx context.Context, a *models.Account) error {
	query := `
		UPDATE accounts
		SET name = ?, role = ?, age = ?, gender = ?, grade = ?, email = ?, family_id = ?, updated_at = ?
		WHERE id = ?
	`
	_, err := r.db.ExecContext(ctx, query,
		a.Name, string(a.Role), a.Age, a.Gender, a.Grade, a.Email, a.FamilyID, a.UpdatedAt, a.ID)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	return nil
}

// UpdatePassword replaces an account's password hash
func (r *AccountRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	query := "UPDATE accounts SET password_hash = ?, updated_at = ? WHERE id = ?"
	if _, err := r.db.ExecContext(ctx, query, passwordHash, now(), id); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// Delete removes an account
func (r *AccountRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM accounts WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return nil
}

// AddPoints increments the stored balance
func (r *AccountRepository) AddPoints(ctx context.Context, id int64, amount int64) error {
	query := "UPDATE accounts SET points = points + ?, updated_at = ? WHERE id = ?"
	if _, err := r.db.ExecContext(ctx, query, amount, now(), id); err != nil {
		return fmt.Errorf("failed to add points: %w", err)
	}
	return nil
}

// DeductPoints decrements the stored balance only when it covers amount.
// It reports false, without changing anything, when the balance is short.
func (r *AccountRepository) DeductPoints(ctx context.Context, id int64, amount int64) (bool, error) {
	query := "UPDATE accounts SET points = points - ?, updated_at = ? WHERE id = ? AND points >= ?"
	result, err := r.db.ExecContext(ctx, query, amount, now(), id, amount)
	if err != nil {
		return false, fmt.Errorf("failed to deduct points: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to deduct points: %w", err)
	}
	return n == 1, nil
}

// SetPoints overwrites the stored balance
func (r *AccountRepository) SetPoints(ctx context.Context, id int64, points int64) error {
	query := "UPDATE accounts SET points = ?, updated_at = ? WHERE id = ?"
	if _, err := r.db.ExecContext(ctx, query, points, now(), id); err != nil {
		return fmt.Errorf("failed to set points: %w", err)
	}
	return nil
}
