package service

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"familypoints/internal/credentials"
	"familypoints/internal/database"
	"familypoints/internal/models"
	"familypoints/internal/repository"
	"familypoints/internal/security"
	"familypoints/internal/validation"
)

const maxUsernameAttempts = 10

// ChildInput holds the fields a parent supplies for a new child.
// Username and Password are generated when empty.
type ChildInput struct {
	Name     string
	Username string
	Password string
	Age      *int
	Gender   *string
	Grade    *string
}

// ChildCredentials is returned once, when a child is created or its password regenerated
type ChildCredentials struct {
	Child    *models.Account `json:"child"`
	Username string          `json:"username"`
	Password string          `json:"password"`
}

// ChildDetail is a child's profile with its seven-day summary
type ChildDetail struct {
	Child   *models.Account       `json:"child"`
	Summary *models.WeeklySummary `json:"summary"`
}

// FamilyService handles families, their children and deadline settings
type FamilyService struct {
	db       *database.DB
	families *repository.FamilyRepository
	accounts *repository.AccountRepository
	ledger   *LedgerService
	policy   *Policy
	clock    Clock
}

// NewFamilyService creates a new family service
func NewFamilyService(db *database.DB, ledger *LedgerService, policy *Policy, clock Clock) *FamilyService {
	return &FamilyService{
		db:       db,
		families: repository.NewFamilyRepository(db),
		accounts: repository.NewAccountRepository(db),
		ledger:   ledger,
		policy:   policy,
		clock:    clock,
	}
}

// Create creates a new family with default deadline settings
func (s *FamilyService) Create(ctx context.Context, name string) (*models.Family, error) {
	name = strings.TrimSpace(name)
	if err := validation.ValidateName(name); err != nil {
		return nil, err
	}

	now := s.clock.now()
	family := &models.Family{
		Name:         name,
		DeadlineTime: models.DefaultDeadlineTime,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.families.Create(ctx, family); err != nil {
		return nil, fmt.Errorf("failed to create family: %w", err)
	}
	return family, nil
}

// List returns every family
func (s *FamilyService) List(ctx context.Context) ([]models.Family, error) {
	families, err := s.families.List(ctx)
	if err != nil {
		return nil, err
	}
	if families == nil {
		families = []models.Family{}
	}
	return families, nil
}

// Rename changes the name of the principal's family
func (s *FamilyService) Rename(ctx context.Context, principal *models.Principal, name string) (*models.Family, error) {
	if !principal.HasRole(models.RoleParent) {
		return nil, ErrForbidden
	}
	family, err := s.own(ctx, principal)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if err := validation.ValidateName(name); err != nil {
		return nil, err
	}
	if err := s.families.UpdateName(ctx, family.ID, name); err != nil {
		return nil, err
	}
	family.Name = name
	return family, nil
}

func (s *FamilyService) own(ctx context.Context, principal *models.Principal) (*models.Family, error) {
	familyID, err := s.policy.FamilyID(principal)
	if err != nil {
		return nil, err
	}
	family, err := s.families.GetByID(ctx, familyID)
	if err != nil {
		return nil, err
	}
	if family == nil {
		return nil, ErrNotFound
	}
	return family, nil
}

// Deadline returns the deadline settings of the principal's family
func (s *FamilyService) Deadline(ctx context.Context, principal *models.Principal) (models.DeadlineSettings, error) {
	family, err := s.own(ctx, principal)
	if err != nil {
		return models.DeadlineSettings{}, err
	}
	return family.DeadlineSettings(), nil
}

// UpdateDeadline stores the deadline settings of the principal's family.
// The settings are configuration only; nothing grants the bonus.
func (s *FamilyService) UpdateDeadline(ctx context.Context, principal *models.Principal, settings models.DeadlineSettings) (models.DeadlineSettings, error) {
	if !principal.HasRole(models.RoleParent) {
		return models.DeadlineSettings{}, ErrForbidden
	}
	if err := validation.ValidateDeadlineSettings(settings); err != nil {
		return models.DeadlineSettings{}, err
	}
	family, err := s.own(ctx, principal)
	if err != nil {
		return models.DeadlineSettings{}, err
	}

	enabled := settings.IsDeadline == "1"
	if err := s.families.UpdateDeadline(ctx, family.ID, enabled, settings.Deadline, settings.Integral); err != nil {
		return models.DeadlineSettings{}, err
	}
	family.DeadlineEnabled = enabled
	family.DeadlineTime = settings.Deadline
	family.DeadlineBonusPoints = settings.Integral
	return family.DeadlineSettings(), nil
}

// CreateChild creates a child account in the principal's family
func (s *FamilyService) CreateChild(ctx context.Context, principal *models.Principal, in ChildInput) (*ChildCredentials, error) {
	if !principal.HasRole(models.RoleParent) {
		return nil, ErrForbidden
	}
	familyID, err := s.policy.FamilyID(principal)
	if err != nil {
		return nil, err
	}

	in.Name = strings.TrimSpace(in.Name)
	if err := validation.ValidateName(in.Name); err != nil {
		return nil, err
	}

	username := strings.TrimSpace(in.Username)
	if username == "" {
		username, err = s.generateUsername(ctx)
		if err != nil {
			return nil, err
		}
	} else {
		if err := validation.ValidateUsername(username); err != nil {
			return nil, err
		}
		taken, err := s.accounts.UsernameExists(ctx, username)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrUsernameTaken
		}
	}

	password := in.Password
	if password == "" {
		password, err = credentials.GenerateChildPassword()
		if err != nil {
			return nil, fmt.Errorf("failed to generate password: %w", err)
		}
	} else if err := validation.ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.clock.now()
	child := &models.Account{
		Username:     username,
		PasswordHash: hash,
		Name:         in.Name,
		Role:         models.RoleChild,
		Age:          in.Age,
		Gender:       in.Gender,
		Grade:        in.Grade,
		FamilyID:     &familyID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.accounts.Create(ctx, child); err != nil {
		if s.db.IsUniqueViolation(err) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}

	log.WithFields(log.Fields{
		"child_id":  child.ID,
		"family_id": familyID,
		"parent_id": principal.ID,
	}).Info("Child account created")
	return &ChildCredentials{Child: child, Username: username, Password: password}, nil
}

func (s *FamilyService) generateUsername(ctx context.Context) (string, error) {
	for i := 0; i < maxUsernameAttempts; i++ {
		username, err := credentials.GenerateChildUsername()
		if err != nil {
			return "", fmt.Errorf("failed to generate username: %w", err)
		}
		taken, err := s.accounts.UsernameExists(ctx, username)
		if err != nil {
			return "", err
		}
		if !taken {
			return username, nil
		}
	}
	return "", fmt.Errorf("failed to generate unique username after %d attempts", maxUsernameAttempts)
}

// ListChildren returns the children of the principal's family
func (s *FamilyService) ListChildren(ctx context.Context, principal *models.Principal) ([]models.Account, error) {
	familyID, err := s.policy.FamilyID(principal)
	if err != nil {
		return nil, err
	}
	children, err := s.accounts.ListByFamily(ctx, familyID, models.RoleChild)
	if err != nil {
		return nil, err
	}
	if children == nil {
		children = []models.Account{}
	}
	return children, nil
}

// ChildDetail returns a family child with its weekly summary
func (s *FamilyService) ChildDetail(ctx context.Context, principal *models.Principal, childID int64) (*ChildDetail, error) {
	child, err := s.policy.Child(ctx, principal, childID)
	if err != nil {
		return nil, err
	}
	summary, err := s.ledger.WeeklySummary(ctx, child.ID, s.clock.now())
	if err != nil {
		return nil, err
	}
	return &ChildDetail{Child: child, Summary: summary}, nil
}

// RegenerateChildPassword replaces a family child's password with a generated one
func (s *FamilyService) RegenerateChildPassword(ctx context.Context, principal *models.Principal, childID int64) (*ChildCredentials, error) {
	if !principal.HasRole(models.RoleParent) {
		return nil, ErrForbidden
	}
	child, err := s.policy.Child(ctx, principal, childID)
	if err != nil {
		return nil, err
	}

	password, err := credentials.GenerateChildPassword()
	if err != nil {
		return nil, fmt.Errorf("failed to generate password: %w", err)
	}
	hash, err := security.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.accounts.UpdatePassword(ctx, child.ID, hash); err != nil {
		return nil, err
	}
	return &ChildCredentials{Child: child, Username: child.Username, Password: password}, nil
}
