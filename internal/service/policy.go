package service

import (
	"context"
	"fmt"

	"familypoints/internal/models"
	"familypoints/internal/repository"
)

// Policy enforces family ownership on top of the role checks done by the router
type Policy struct {
	accounts *repository.AccountRepository
}

// NewPolicy creates a new access policy
func NewPolicy(accounts *repository.AccountRepository) *Policy {
	return &Policy{accounts: accounts}
}

// CanAccessChild reports whether principal may act on child.
// Admins may act on anyone, children only on themselves and parents on
// children of their own family.
func (p *Policy) CanAccessChild(principal *models.Principal, child *models.Account) bool {
	switch principal.Role {
	case models.RoleAdmin:
		return true
	case models.RoleChild:
		return principal.ID == child.ID
	case models.RoleParent:
		return principal.SameFamily(child)
	}
	return false
}

// Child loads a child account and checks principal may act on it.
// A childID of 0 from a child principal means the principal itself.
func (p *Policy) Child(ctx context.Context, principal *models.Principal, childID int64) (*models.Account, error) {
	if childID == 0 && principal.Role == models.RoleChild {
		childID = principal.ID
	}
	child, err := p.accounts.GetByID(ctx, childID)
	if err != nil {
		return nil, fmt.Errorf("failed to get child: %w", err)
	}
	if child == nil || !child.IsChild() {
		return nil, ErrNotFound
	}
	if !p.CanAccessChild(principal, child) {
		return nil, ErrForbidden
	}
	return child, nil
}

// FamilyID returns the principal's family or ErrForbidden for accounts without one
func (p *Policy) FamilyID(principal *models.Principal) (int64, error) {
	if principal.FamilyID == nil {
		return 0, ErrForbidden
	}
	return *principal.FamilyID, nil
}
