package service

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"familypoints/internal/database"
	"familypoints/internal/models"
	"familypoints/internal/repository"
	"familypoints/internal/validation"
)

// summaryWindowDays is the look-back of the weekly summary
const summaryWindowDays = 7

// EarnRequest describes a point award
type EarnRequest struct {
	ChildID        int64
	SourceID       int64
	Type           models.EntryType
	Amount         int64
	Label          string
	IdempotencyKey string
}

// LedgerService records point changes and answers balance queries.
// The ledger is the source of truth; accounts.points is a projection kept
// in step inside the same transaction as every append.
type LedgerService struct {
	db       *database.DB
	accounts *repository.AccountRepository
	ledger   *repository.LedgerRepository
	clock    Clock
}

// NewLedgerService creates a new ledger service
func NewLedgerService(db *database.DB, clock Clock) *LedgerService {
	return &LedgerService{
		db:       db,
		accounts: repository.NewAccountRepository(db),
		ledger:   repository.NewLedgerRepository(db),
		clock:    clock,
	}
}

// RecordEarn appends an earn entry and credits the child. When the request
// carries an idempotency key that was already used, the original entry is
// returned and nothing is credited.
func (s *LedgerService) RecordEarn(ctx context.Context, req EarnRequest) (*models.PointHistoryEntry, error) {
	var entry *models.PointHistoryEntry
	err := s.db.InTx(ctx, func(tx *database.Tx) error {
		var err error
		entry, _, err = s.recordEarnTx(ctx, tx, req)
		return err
	})
	if err != nil && req.IdempotencyKey != "" && s.db.IsUniqueViolation(err) {
		// A concurrent request with the same key won the insert
		existing, lookupErr := s.ledger.GetByIdempotencyKey(ctx, req.IdempotencyKey)
		if lookupErr == nil && existing != nil && existing.ChildID == req.ChildID {
			return existing, nil
		}
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// recordEarnTx does the work of RecordEarn inside tx and reports whether a new entry was written
func (s *LedgerService) recordEarnTx(ctx context.Context, tx *database.Tx, req EarnRequest) (*models.PointHistoryEntry, bool, error) {
	if !req.Type.IsEarn() {
		return nil, false, validation.ValidationError{Field: "type", Message: "type must be homework, task or other reward"}
	}
	if req.Amount <= 0 {
		return nil, false, validation.ValidationError{Field: "amount", Message: "amount must be positive"}
	}

	accounts := s.accounts.WithTx(tx)
	ledger := s.ledger.WithTx(tx)

	child, err := accounts.GetByID(ctx, req.ChildID)
	if err != nil {
		return nil, false, err
	}
	if child == nil || !child.IsChild() {
		return nil, false, ErrNotFound
	}

	var key *string
	if req.IdempotencyKey != "" {
		existing, err := ledger.GetByIdempotencyKey(ctx, req.IdempotencyKey)
		if err != nil {
			return nil, false, err
		}
		if existing != nil {
			if existing.ChildID != req.ChildID {
				return nil, false, validation.ValidationError{Field: "idempotencyKey", Message: "key already used for another account"}
			}
			return existing, false, nil
		}
		key = &req.IdempotencyKey
	}

	entry := &models.PointHistoryEntry{
		ChildID:        child.ID,
		SourceID:       req.SourceID,
		Type:           req.Type,
		Delta:          req.Amount,
		FamilyID:       child.FamilyID,
		OccurredAt:     s.clock.now(),
		Label:          req.Label,
		IdempotencyKey: key,
	}
	if err := ledger.Append(ctx, entry); err != nil {
		return nil, false, err
	}
	if err := accounts.AddPoints(ctx, child.ID, req.Amount); err != nil {
		return nil, false, err
	}

	log.WithFields(log.Fields{
		"child_id": child.ID,
		"type":     entry.Type.String(),
		"delta":    entry.Delta,
		"entry_id": entry.ID,
	}).Info("Points earned")
	return entry, true, nil
}

// consumeTx deducts amount from the child and appends the matching consume
// entry. It returns ErrInsufficientPoints, leaving the caller to roll back,
// when the stored balance does not cover amount.
func (s *LedgerService) consumeTx(ctx context.Context, tx *database.Tx, child *models.Account, sourceID, amount int64, label string) (*models.PointHistoryEntry, error) {
	ok, err := s.accounts.WithTx(tx).DeductPoints(ctx, child.ID, amount)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInsufficientPoints
	}

	entry := &models.PointHistoryEntry{
		ChildID:    child.ID,
		SourceID:   sourceID,
		Type:       models.EntryConsume,
		Delta:      amount,
		FamilyID:   child.FamilyID,
		OccurredAt: s.clock.now(),
		Label:      label,
	}
	if err := s.ledger.WithTx(tx).Append(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// WeeklySummary returns the stored balance with earnings and spending in
// [startOfDay(asOf) - 7 days, endOfDay(asOf)]
func (s *LedgerService) WeeklySummary(ctx context.Context, childID int64, asOf time.Time) (*models.WeeklySummary, error) {
	child, err := s.accounts.GetByID(ctx, childID)
	if err != nil {
		return nil, err
	}
	if child == nil || !child.IsChild() {
		return nil, ErrNotFound
	}

	from, to := s.clock.Window(asOf, summaryWindowDays)
	totals, err := s.ledger.TotalsBetween(ctx, childID, from, to)
	if err != nil {
		return nil, err
	}

	return &models.WeeklySummary{
		Total:          child.Points,
		EarnedThisWeek: totals.Earned,
		SpentThisWeek:  totals.Spent,
	}, nil
}

// ListHistory returns a child's full ledger, newest first
func (s *LedgerService) ListHistory(ctx context.Context, childID int64) ([]models.PointHistoryEntry, error) {
	return s.ledger.ListByChild(ctx, childID)
}

// Reconcile recomputes the stored balance from the ledger
func (s *LedgerService) Reconcile(ctx context.Context, childID int64) (before, after int64, err error) {
	err = s.db.InTx(ctx, func(tx *database.Tx) error {
		accounts := s.accounts.WithTx(tx)
		child, err := accounts.GetByID(ctx, childID)
		if err != nil {
			return err
		}
		if child == nil || !child.IsChild() {
			return ErrNotFound
		}

		totals, err := s.ledger.WithTx(tx).Totals(ctx, childID)
		if err != nil {
			return err
		}

		before, after = child.Points, totals.Balance()
		if before == after {
			return nil
		}
		return accounts.SetPoints(ctx, childID, after)
	})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to reconcile balance: %w", err)
	}

	if before != after {
		log.WithFields(log.Fields{
			"child_id": childID,
			"before":   before,
			"after":    after,
		}).Warn("Balance drift corrected")
	}
	return before, after, nil
}
