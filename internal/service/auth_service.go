package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"familypoints/internal/models"
	"familypoints/internal/repository"
	"familypoints/internal/security"
)

// LoginResult is returned by a successful login
type LoginResult struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expiresAt"`
	User      *models.Account `json:"user"`
}

// AuthService handles authentication business logic
type AuthService struct {
	accounts *repository.AccountRepository
	tokens   *security.TokenManager
}

// NewAuthService creates a new auth service
func NewAuthService(accounts *repository.AccountRepository, tokens *security.TokenManager) *AuthService {
	return &AuthService{
		accounts: accounts,
		tokens:   tokens,
	}
}

// Login verifies credentials and issues a bearer token. Unknown usernames and
// wrong passwords both yield ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	account, err := s.accounts.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		security.BurnPasswordCheck(password)
		return nil, ErrInvalidCredentials
	}
	if !security.CheckPassword(password, account.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(account)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"account_id": account.ID,
		"role":       account.Role,
	}).Info("Login succeeded")
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: account}, nil
}

// Authenticate resolves a bearer token to the principal it was issued for.
// The account is reloaded so role and family changes apply immediately.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.Principal, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		if errors.Is(err, security.ErrInvalidToken) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	id, err := claims.AccountID()
	if err != nil {
		return nil, ErrUnauthorized
	}

	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, ErrUnauthorized
	}
	return models.NewPrincipal(account), nil
}
