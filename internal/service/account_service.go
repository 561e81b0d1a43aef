package service

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"familypoints/internal/database"
	"familypoints/internal/models"
	"familypoints/internal/repository"
	"familypoints/internal/security"
	"familypoints/internal/validation"
)

// AccountInput holds the fields of a new account
type AccountInput struct {
	Username string
	Password string
	Name     string
	Role     models.Role
	Age      *int
	Gender   *string
	Grade    *string
	Email    *string
	FamilyID *int64
}

// AccountUpdate holds the admin-editable fields of an account
type AccountUpdate struct {
	Name     string
	Role     models.Role
	Age      *int
	Gender   *string
	Grade    *string
	Email    *string
	FamilyID *int64
}

// AccountService handles account administration and self-service
type AccountService struct {
	db       *database.DB
	accounts *repository.AccountRepository
	families *repository.FamilyRepository
	clock    Clock
}

// NewAccountService creates a new account service
func NewAccountService(db *database.DB, clock Clock) *AccountService {
	return &AccountService{
		db:       db,
		accounts: repository.NewAccountRepository(db),
		families: repository.NewFamilyRepository(db),
		clock:    clock,
	}
}

// Create validates and stores a new account
func (s *AccountService) Create(ctx context.Context, in AccountInput) (*models.Account, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.ValidateUsername(in.Username); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, err
	}
	if err := validation.ValidateName(in.Name); err != nil {
		return nil, err
	}
	if err := validation.ValidateRole(in.Role); err != nil {
		return nil, err
	}
	if err := validation.ValidateOptionalEmail(in.Email); err != nil {
		return nil, err
	}
	if err := s.checkFamily(ctx, in.FamilyID); err != nil {
		return nil, err
	}

	taken, err := s.accounts.UsernameExists(ctx, in.Username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrUsernameTaken
	}

	hash, err := security.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.clock.now()
	account := &models.Account{
		Username:     in.Username,
		PasswordHash: hash,
		Name:         in.Name,
		Role:         in.Role,
		Age:          in.Age,
		Gender:       in.Gender,
		Grade:        in.Grade,
		Email:        in.Email,
		FamilyID:     in.FamilyID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if s.db.IsUniqueViolation(err) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}

	log.WithFields(log.Fields{
		"account_id": account.ID,
		"username":   account.Username,
		"role":       account.Role,
	}).Info("Account created")
	return account, nil
}

func (s *AccountService) checkFamily(ctx context.Context, familyID *int64) error {
	if familyID == nil {
		return nil
	}
	family, err := s.families.GetByID(ctx, *familyID)
	if err != nil {
		return err
	}
	if family == nil {
		return validation.ValidationError{Field: "familyId", Message: "family does not exist"}
	}
	return nil
}

// List returns every account
func (s *AccountService) List(ctx context.Context) ([]models.Account, error) {
	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return nil, err
	}
	if accounts == nil {
		accounts = []models.Account{}
	}
	return accounts, nil
}

// Get returns one account
func (s *AccountService) Get(ctx context.Context, id int64) (*models.Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrNotFound
	}
	return account, nil
}

// Update changes profile, role and family of an account. Admins cannot change
// their own role or demote the last admin, and a child keeps the child role
// for as long as the account exists.
func (s *AccountService) Update(ctx context.Context, principal *models.Principal, id int64, in AccountUpdate) (*models.Account, error) {
	account, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	in.Name = strings.TrimSpace(in.Name)
	if err := validation.ValidateName(in.Name); err != nil {
		return nil, err
	}
	if err := validation.ValidateRole(in.Role); err != nil {
		return nil, err
	}
	if err := validation.ValidateOptionalEmail(in.Email); err != nil {
		return nil, err
	}
	if err := s.checkFamily(ctx, in.FamilyID); err != nil {
		return nil, err
	}
	if in.Role != account.Role {
		if err := s.checkRoleChange(ctx, principal, account); err != nil {
			return nil, err
		}
	}

	account.Name = in.Name
	account.Role = in.Role
	account.Age = in.Age
	account.Gender = in.Gender
	account.Grade = in.Grade
	account.Email = in.Email
	account.FamilyID = in.FamilyID
	account.UpdatedAt = s.clock.now()
	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

func (s *AccountService) checkRoleChange(ctx context.Context, principal *models.Principal, account *models.Account) error {
	if principal.ID == account.ID {
		return validation.ValidationError{Field: "role", Message: "cannot change your own role"}
	}
	switch account.Role {
	case models.RoleChild:
		return validation.ValidationError{Field: "role", Message: "a child account cannot change role"}
	case models.RoleAdmin:
		count, err := s.accounts.CountByRole(ctx, models.RoleAdmin)
		if err != nil {
			return err
		}
		if count <= 1 {
			return validation.ValidationError{Field: "role", Message: "cannot demote the last admin"}
		}
	}
	return nil
}

// Delete removes an account. Admins cannot delete themselves.
func (s *AccountService) Delete(ctx context.Context, principal *models.Principal, id int64) error {
	if principal.ID == id {
		return validation.ValidationError{Field: "id", Message: "cannot delete your own account"}
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.accounts.Delete(ctx, id); err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"account_id": id,
		"admin_id":   principal.ID,
	}).Info("Account deleted")
	return nil
}

// Me returns the principal's own account with its current balance
func (s *AccountService) Me(ctx context.Context, principal *models.Principal) (*models.Account, error) {
	account, err := s.accounts.GetByID(ctx, principal.ID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrUnauthorized
	}
	return account, nil
}

// ChangePassword replaces the principal's password after verifying the old one
func (s *AccountService) ChangePassword(ctx context.Context, principal *models.Principal, oldPassword, newPassword string) error {
	account, err := s.Me(ctx, principal)
	if err != nil {
		return err
	}
	if !security.CheckPassword(oldPassword, account.PasswordHash) {
		return validation.ValidationError{Field: "password", Message: "current password is incorrect"}
	}
	if err := validation.ValidatePassword(newPassword); err != nil {
		return err
	}

	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.accounts.UpdatePassword(ctx, account.ID, hash)
}

// EnsureAdmin creates an admin account when none exists. It reports whether one was created.
func (s *AccountService) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	count, err := s.accounts.CountByRole(ctx, models.RoleAdmin)
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	_, err = s.Create(ctx, AccountInput{
		Username: username,
		Password: password,
		Name:     "Administrator",
		Role:     models.RoleAdmin,
	})
	if err != nil {
		return false, fmt.Errorf("failed to create admin: %w", err)
	}
	return true, nil
}
