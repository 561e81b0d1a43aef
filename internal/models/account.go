package models

import "time"

// Role is the access level of an account
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleParent Role = "parent"
	RoleChild  Role = "child"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleParent, RoleChild:
		return true
	}
	return false
}

// Account represents any login in the system: admin, parent or child
type Account struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	Age          *int      `json:"age,omitempty"`
	Gender       *string   `json:"gender,omitempty"`
	Grade        *string   `json:"grade,omitempty"`
	Email        *string   `json:"email,omitempty"`
	Points       int64     `json:"points"`
	FamilyID     *int64    `json:"familyId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// IsChild reports whether the account belongs to a child
func (a *Account) IsChild() bool {
	return a.Role == RoleChild
}

// InFamily reports whether the account is a member of familyID
func (a *Account) InFamily(familyID int64) bool {
	return a.FamilyID != nil && *a.FamilyID == familyID
}

// Principal is the authenticated account attached to a request
type Principal struct {
	ID       int64
	Username string
	Name     string
	Role     Role
	FamilyID *int64
}

// NewPrincipal builds a principal from a freshly loaded account
func NewPrincipal(a *Account) *Principal {
	return &Principal{
		ID:       a.ID,
		Username: a.Username,
		Name:     a.Name,
		Role:     a.Role,
		FamilyID: a.FamilyID,
	}
}

// HasRole reports whether the principal holds any of roles
func (p *Principal) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

// SameFamily reports whether the principal and the account share a family.
// Accounts without a family never match.
func (p *Principal) SameFamily(a *Account) bool {
	return p.FamilyID != nil && a.InFamily(*p.FamilyID)
}
