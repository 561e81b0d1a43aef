package handlers

import (
	"net/http"

	"familypoints/internal/models"
	"familypoints/internal/service"
)

// AccountHandler serves self-service and admin account endpoints
type AccountHandler struct {
	accounts *service.AccountService
	ledger   *service.LedgerService
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(accounts *service.AccountService, ledger *service.LedgerService) *AccountHandler {
	return &AccountHandler{accounts: accounts, ledger: ledger}
}

type accountRequest struct {
	Username string      `json:"username"`
	Password string      `json:"password"`
	Name     string      `json:"name"`
	Role     models.Role `json:"role"`
	Age      *int        `json:"age"`
	Gender   *string     `json:"gender"`
	Grade    *string     `json:"grade"`
	Email    *string     `json:"email"`
	FamilyID *int64      `json:"familyId"`
}

type passwordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// Me returns the caller's own account with its balance
func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	account, err := h.accounts.Me(r.Context(), GetPrincipal(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, account)
}

// ChangePassword replaces the caller's password
func (h *AccountHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.accounts.ChangePassword(r.Context(), GetPrincipal(r.Context()), req.OldPassword, req.NewPassword); err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, nil)
}

// List returns every account
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accounts.List(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, accounts)
}

// Create adds an account of any role
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	account, err := h.accounts.Create(r.Context(), service.AccountInput{
		Username: req.Username,
		Password: req.Password,
		Name:     req.Name,
		Role:     req.Role,
		Age:      req.Age,
		Gender:   req.Gender,
		Grade:    req.Grade,
		Email:    req.Email,
		FamilyID: req.FamilyID,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondCreated(w, account)
}

// Update edits an account's profile, role and family
func (h *AccountHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req accountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	account, err := h.accounts.Update(r.Context(), GetPrincipal(r.Context()), id, service.AccountUpdate{
		Name:     req.Name,
		Role:     req.Role,
		Age:      req.Age,
		Gender:   req.Gender,
		Grade:    req.Grade,
		Email:    req.Email,
		FamilyID: req.FamilyID,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, account)
}

// Delete removes an account
func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.accounts.Delete(r.Context(), GetPrincipal(r.Context()), id); err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, nil)
}

// Reconcile recomputes a child's stored balance from the ledger
func (h *AccountHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	before, after, err := h.ledger.Reconcile(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, map[string]int64{"before": before, "after": after})
}
