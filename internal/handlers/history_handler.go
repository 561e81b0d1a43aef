package handlers

import (
	"net/http"
	"time"

	"familypoints/internal/models"
	"familypoints/internal/service"
)

// HistoryHandler serves ledger history and summaries
type HistoryHandler struct {
	ledger *service.LedgerService
	policy *service.Policy
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(ledger *service.LedgerService, policy *service.Policy) *HistoryHandler {
	return &HistoryHandler{ledger: ledger, policy: policy}
}

// Own returns the caller's ledger. Parents get their own (empty) ledger.
func (h *HistoryHandler) Own(w http.ResponseWriter, r *http.Request) {
	principal := GetPrincipal(r.Context())
	entries, err := h.ledger.ListHistory(r.Context(), principal.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, entries)
}

// ForChild returns the ledger of a child in the caller's family
func (h *HistoryHandler) ForChild(w http.ResponseWriter, r *http.Request) {
	principal := GetPrincipal(r.Context())
	childID, err := queryInt64(r, "childId", 0)
	if err != nil {
		respondError(w, r, err)
		return
	}
	child, err := h.policy.Child(r.Context(), principal, childID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	entries, err := h.ledger.ListHistory(r.Context(), child.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, entries)
}

// Summary returns the caller's balance with the last seven days of activity
func (h *HistoryHandler) Summary(w http.ResponseWriter, r *http.Request) {
	principal := GetPrincipal(r.Context())
	if principal.Role != models.RoleChild {
		respondError(w, r, service.ErrForbidden)
		return
	}
	summary, err := h.ledger.WeeklySummary(r.Context(), principal.ID, time.Now())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, summary)
}
