package service

import (
	"context"
	"errors"
	"strings"

	log "github.com/sirupsen/logrus"

	"familypoints/internal/database"
	"familypoints/internal/models"
	"familypoints/internal/repository"
	"familypoints/internal/validation"
)

// RedemptionNotifier is told about new redemption requests
type RedemptionNotifier interface {
	NotifyRedemptionRequested(ctx context.Context, parents []models.Account, child *models.Account, item *models.RewardCatalogItem) error
}

// RewardService manages the reward catalog and the redemption workflow
type RewardService struct {
	db       *database.DB
	accounts *repository.AccountRepository
	rewards  *repository.RewardRepository
	ledger   *LedgerService
	policy   *Policy
	notifier RedemptionNotifier
	clock    Clock
}

// NewRewardService creates a new reward service. notifier may be nil.
func NewRewardService(db *database.DB, ledger *LedgerService, policy *Policy, notifier RedemptionNotifier, clock Clock) *RewardService {
	return &RewardService{
		db:       db,
		accounts: repository.NewAccountRepository(db),
		rewards:  repository.NewRewardRepository(db),
		ledger:   ledger,
		policy:   policy,
		notifier: notifier,
		clock:    clock,
	}
}

// ListCatalog returns the catalog of the principal's family
func (s *RewardService) ListCatalog(ctx context.Context, principal *models.Principal) ([]models.RewardCatalogItem, error) {
	familyID, err := s.policy.FamilyID(principal)
	if err != nil {
		return nil, err
	}
	return s.rewards.ListItems(ctx, familyID)
}

// CreateReward adds an item to the parent's family catalog
func (s *RewardService) CreateReward(ctx context.Context, principal *models.Principal, name string, cost int64) (*models.RewardCatalogItem, error) {
	if !principal.HasRole(models.RoleParent) {
		return nil, ErrForbidden
	}
	familyID, err := s.policy.FamilyID(principal)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if err := validation.ValidateReward(name, cost); err != nil {
		return nil, err
	}

	item := &models.RewardCatalogItem{
		FamilyID:   familyID,
		Name:       name,
		CostPoints: cost,
		CreatedAt:  s.clock.now(),
	}
	if err := s.rewards.CreateItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateReward renames or reprices a catalog item of the parent's family
func (s *RewardService) UpdateReward(ctx context.Context, principal *models.Principal, id int64, name string, cost int64) (*models.RewardCatalogItem, error) {
	item, err := s.familyItem(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if err := validation.ValidateReward(name, cost); err != nil {
		return nil, err
	}

	item.Name = name
	item.CostPoints = cost
	if err := s.rewards.UpdateItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// DeleteReward removes a catalog item of the parent's family
func (s *RewardService) DeleteReward(ctx context.Context, principal *models.Principal, id int64) error {
	if _, err := s.familyItem(ctx, principal, id); err != nil {
		return err
	}
	return s.rewards.DeleteItem(ctx, id)
}

// familyItem loads a catalog item. Items of other families read as missing.
func (s *RewardService) familyItem(ctx context.Context, principal *models.Principal, id int64) (*models.RewardCatalogItem, error) {
	if !principal.HasRole(models.RoleParent) {
		return nil, ErrForbidden
	}
	familyID, err := s.policy.FamilyID(principal)
	if err != nil {
		return nil, err
	}
	item, err := s.rewards.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil || item.FamilyID != familyID {
		return nil, ErrNotFound
	}
	return item, nil
}

// Request creates a pending redemption. The balance is not checked until approval.
func (s *RewardService) Request(ctx context.Context, principal *models.Principal, childID, rewardID int64) (*models.RewardRedemption, error) {
	child, err := s.policy.Child(ctx, principal, childID)
	if err != nil {
		return nil, err
	}

	item, err := s.rewards.GetItem(ctx, rewardID)
	if err != nil {
		return nil, err
	}
	if item == nil || !child.InFamily(item.FamilyID) {
		return nil, ErrNotFound
	}

	rd := &models.RewardRedemption{
		RewardID:    item.ID,
		ChildID:     child.ID,
		Status:      models.RedemptionPending,
		RequestedAt: s.clock.now(),
		RewardName:  item.Name,
		CostPoints:  item.CostPoints,
		ChildName:   child.Name,
	}
	if err := s.rewards.CreateRedemption(ctx, rd); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"redemption_id": rd.ID,
		"child_id":      child.ID,
		"reward_id":     item.ID,
	}).Info("Redemption requested")

	s.notifyParents(ctx, child, item)
	return rd, nil
}

func (s *RewardService) notifyParents(ctx context.Context, child *models.Account, item *models.RewardCatalogItem) {
	if s.notifier == nil || child.FamilyID == nil {
		return
	}
	parents, err := s.accounts.ListByFamily(ctx, *child.FamilyID, models.RoleParent)
	if err != nil {
		log.WithError(err).Warn("Failed to load parents for redemption notice")
		return
	}
	if err := s.notifier.NotifyRedemptionRequested(ctx, parents, child, item); err != nil {
		log.WithError(err).WithField("child_id", child.ID).Warn("Failed to send redemption notice")
	}
}

// Approve moves a pending redemption to approved and deducts the reward's
// cost. Concurrent approvals of one redemption deduct exactly once.
func (s *RewardService) Approve(ctx context.Context, principal *models.Principal, redemptionID int64) (*models.RewardRedemption, error) {
	return s.Decide(ctx, principal, redemptionID, models.RedemptionApproved)
}

// Reject moves a pending redemption to rejected without touching the balance
func (s *RewardService) Reject(ctx context.Context, principal *models.Principal, redemptionID int64) (*models.RewardRedemption, error) {
	return s.Decide(ctx, principal, redemptionID, models.RedemptionRejected)
}

// Decide applies a parent's approve or reject decision
func (s *RewardService) Decide(ctx context.Context, principal *models.Principal, redemptionID int64, decision models.RedemptionStatus) (*models.RewardRedemption, error) {
	if decision != models.RedemptionApproved && decision != models.RedemptionRejected {
		return nil, validation.ValidationError{Field: "approved", Message: "approved must be 1 or 2"}
	}
	if !principal.HasRole(models.RoleParent) {
		return nil, ErrForbidden
	}

	rd, err := s.rewards.GetRedemption(ctx, redemptionID)
	if err != nil {
		return nil, err
	}
	if rd == nil {
		return nil, ErrNotFound
	}

	child, err := s.accounts.GetByID(ctx, rd.ChildID)
	if err != nil {
		return nil, err
	}
	if child == nil {
		return nil, ErrNotFound
	}
	if !principal.SameFamily(child) {
		return nil, ErrForbidden
	}

	next, err := rd.Status.Decide(decision)
	if err != nil {
		return nil, ErrInvalidState
	}

	reviewedAt := s.clock.now()
	err = s.db.InTx(ctx, func(tx *database.Tx) error {
		// The status guard in the UPDATE is what makes a second reviewer lose
		ok, err := s.rewards.WithTx(tx).TransitionRedemption(ctx, rd.ID, models.RedemptionPending, next, principal.ID, reviewedAt)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvalidState
		}
		if next != models.RedemptionApproved {
			return nil
		}
		_, err = s.ledger.consumeTx(ctx, tx, child, rd.RewardID, rd.CostPoints, "redeemed "+rd.RewardName)
		return err
	})
	if err != nil {
		if !errors.Is(err, ErrInvalidState) && !errors.Is(err, ErrInsufficientPoints) {
			return nil, err
		}
		log.WithFields(log.Fields{
			"redemption_id": rd.ID,
			"reviewer_id":   principal.ID,
		}).WithError(err).Info("Redemption decision refused")
		return nil, err
	}

	rd.Status = next
	rd.ReviewedAt = &reviewedAt
	reviewerID := principal.ID
	rd.ReviewerID = &reviewerID

	log.WithFields(log.Fields{
		"redemption_id": rd.ID,
		"reviewer_id":   principal.ID,
		"status":        next.String(),
		"cost":          rd.CostPoints,
	}).Info("Redemption reviewed")
	return rd, nil
}

// ListPending returns a family child's pending redemptions
func (s *RewardService) ListPending(ctx context.Context, principal *models.Principal, childID int64) ([]models.RewardRedemption, error) {
	if !principal.HasRole(models.RoleParent) {
		return nil, ErrForbidden
	}
	child, err := s.policy.Child(ctx, principal, childID)
	if err != nil {
		return nil, err
	}
	return s.rewards.ListRedemptionsByStatus(ctx, child.ID, models.RedemptionPending)
}

// ListHistory returns a child's redemptions, newest first
func (s *RewardService) ListHistory(ctx context.Context, principal *models.Principal, childID int64) ([]models.RewardRedemption, error) {
	child, err := s.policy.Child(ctx, principal, childID)
	if err != nil {
		return nil, err
	}
	return s.rewards.ListRedemptions(ctx, child.ID)
}
