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

// RewardRepository handles the reward catalog and redemption history
type RewardRepository struct {
	db database.Querier
}

// NewRewardRepository creates a new reward repository
func NewRewardRepository(db database.Querier) *RewardRepository {
	return &RewardRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *RewardRepository) WithTx(tx *database.Tx) *RewardRepository {
	return &RewardRepository{db: tx}
}

// CreateItem inserts a catalog item and sets its ID
func (r *RewardRepository) CreateItem(ctx context.Context, item *models.RewardCatalogItem) error {
	query := "INSERT INTO reward_catalog (family_id, name, cost_points, created_at) VALUES (?, ?, ?, ?)"
	id, err := r.db.ExecReturningID(ctx, query, item.FamilyID, item.Name, item.CostPoints, item.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create reward: %w", err)
	}
	item.ID = id
	return nil
}

const itemSelect = "SELECT id, family_id, name, cost_points, created_at, deleted_at FROM reward_catalog"

func scanItem(s rowScanner) (*models.RewardCatalogItem, error) {
	item := &models.RewardCatalogItem{}
	err := s.Scan(
		&item.ID,
		&item.FamilyID,
		&item.Name,
		&item.CostPoints,
		&item.CreatedAt,
		&item.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return item, nil
}

// GetItem retrieves a catalog item by ID. Deleted items read as missing.
func (r *RewardRepository) GetItem(ctx context.Context, id int64) (*models.RewardCatalogItem, error) {
	item, err := scanItem(r.db.QueryRowContext(ctx, itemSelect+" WHERE id = ? AND deleted_at IS NULL", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reward: %w", err)
	}
	return item, nil
}

// ListItems retrieves a family's catalog ordered by cost
func (r *RewardRepository) ListItems(ctx context.Context, familyID int64) ([]models.RewardCatalogItem, error) {
	return r.listItems(ctx, itemSelect+" WHERE family_id = ? AND deleted_at IS NULL ORDER BY cost_points, id", familyID)
}

// ListAllItems retrieves every catalog item, deleted ones included
func (r *RewardRepository) ListAllItems(ctx context.Context) ([]models.RewardCatalogItem, error) {
	return r.listItems(ctx, itemSelect+" ORDER BY id")
}

func (r *RewardRepository) listItems(ctx context.Context, query string, args ...interface{}) ([]models.RewardCatalogItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rewards: %w", err)
	}
	defer rows.Close()

	items := []models.RewardCatalogItem{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reward: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rewards: %w", err)
	}
	return items, nil
}

// UpdateItem saves a catalog item's name and cost
func (r *RewardRepository) UpdateItem(ctx context.Context, item *models.RewardCatalogItem) error {
	query := "UPDATE reward_catalog SET name = ?, cost_points = ? WHERE id = ? AND deleted_at IS NULL"
	if _, err := r.db.ExecContext(ctx, query, item.Name, item.CostPoints, item.ID); err != nil {
		return fmt.Errorf("failed to update reward: %w", err)
	}
	return nil
}

// DeleteItem hides a catalog item. The row stays so that redemptions of it
// keep their reward_id.
func (r *RewardRepository) DeleteItem(ctx context.Context, id int64) error {
	query := "UPDATE reward_catalog SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL"
	if _, err := r.db.ExecContext(ctx, query, now(), id); err != nil {
		return fmt.Errorf("failed to delete reward: %w", err)
	}
	return nil
}

const redemptionSelect = `
	SELECT rh.id, rh.reward_id, rh.child_id, rh.status, rh.requested_at, rh.reviewed_at, rh.reviewer_id,
		rh.reward_name, rh.cost_points, a.name
	FROM reward_history rh
	INNER JOIN accounts a ON a.id = rh.child_id
`

func scanRedemption(s rowScanner) (*models.RewardRedemption, error) {
	rd := &models.RewardRedemption{}
	err := s.Scan(
		&rd.ID,
		&rd.RewardID,
		&rd.ChildID,
		&rd.Status,
		&rd.RequestedAt,
		&rd.ReviewedAt,
		&rd.ReviewerID,
		&rd.RewardName,
		&rd.CostPoints,
		&rd.ChildName,
	)
	if err != nil {
		return nil, err
	}
	return rd, nil
}

// CreateRedemption inserts a pending redemption and sets its ID. The reward's
// name and cost are stored with it and are what an approval charges.
func (r *RewardRepository) CreateRedemption(ctx context.Context, rd *models.RewardRedemption) error {
	query := `INSERT INTO reward_history (reward_id, child_id, reward_name, cost_points, status, requested_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	id, err := r.db.ExecReturningID(ctx, query, rd.RewardID, rd.ChildID, rd.RewardName, rd.CostPoints, int(rd.Status), rd.RequestedAt)
	if err != nil {
		return fmt.Errorf("failed to create redemption: %w", err)
	}
	rd.ID = id
	return nil
}

// GetRedemption retrieves a redemption with its reward and child names
func (r *RewardRepository) GetRedemption(ctx context.Context, id int64) (*models.RewardRedemption, error) {
	rd, err := scanRedemption(r.db.QueryRowContext(ctx, redemptionSelect+" WHERE rh.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get redemption: %w", err)
	}
	return rd, nil
}

// ListRedemptions retrieves a child's redemptions, newest first
func (r *RewardRepository) ListRedemptions(ctx context.Context, childID int64) ([]models.RewardRedemption, error) {
	return r.listRedemptions(ctx, redemptionSelect+" WHERE rh.child_id = ? ORDER BY rh.requested_at DESC, rh.id DESC", childID)
}

// ListRedemptionsByStatus retrieves a child's redemptions in one state, oldest first
func (r *RewardRepository) ListRedemptionsByStatus(ctx context.Context, childID int64, status models.RedemptionStatus) ([]models.RewardRedemption, error) {
	query := redemptionSelect + " WHERE rh.child_id = ? AND rh.status = ? ORDER BY rh.requested_at, rh.id"
	return r.listRedemptions(ctx, query, childID, int(status))
}

// ListAllRedemptions retrieves every redemption
func (r *RewardRepository) ListAllRedemptions(ctx context.Context) ([]models.RewardRedemption, error) {
	return r.listRedemptions(ctx, redemptionSelect+" ORDER BY rh.id")
}

func (r *RewardRepository) listRedemptions(ctx context.Context, query string, args ...interface{}) ([]models.RewardRedemption, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query redemptions: %w", err)
	}
	defer rows.Close()

	list := []models.RewardRedemption{}
	for rows.Next() {
		rd, err := scanRedemption(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan redemption: %w", err)
		}
		list = append(list, *rd)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate redemptions: %w", err)
	}
	return list, nil
}

// TransitionRedemption performs a compare-and-set of the status column.
// It reports false when the redemption was no longer in from.
func (r *RewardRepository) TransitionRedemption(ctx context.Context, id int64, from, to models.RedemptionStatus, reviewerID int64, at time.Time) (bool, error) {
	query := "UPDATE reward_history SET status = ?, reviewed_at = ?, reviewer_id = ? WHERE id = ? AND status = ?"
	result, err := r.db.ExecContext(ctx, query, int(to), at.UTC(), reviewerID, id, int(from))
	if err != nil {
		return false, fmt.Errorf("failed to update redemption: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to update redemption: %w", err)
	}
	return n == 1, nil
}
