package handlers

import (
	"net/http"

	"familypoints/internal/models"
	"familypoints/internal/service"
	"familypoints/internal/validation"
)

// RewardHandler serves the reward catalog and redemption workflow
type RewardHandler struct {
	rewards *service.RewardService
}

// NewRewardHandler creates a new reward handler
func NewRewardHandler(rewards *service.RewardService) *RewardHandler {
	return &RewardHandler{rewards: rewards}
}

type rewardRequest struct {
	Name       string  `json:"name"`
	CostPoints flexInt `json:"costPoints"`
}

type redeemRequest struct {
	RewardID flexInt `json:"rewardId"`
	ChildID  flexInt `json:"childId"`
}

type decisionRequest struct {
	ID       flexInt `json:"id"`
	Approved flexInt `json:"approved"`
}

// List returns the caller's family catalog
func (h *RewardHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.rewards.ListCatalog(r.Context(), GetPrincipal(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if items == nil {
		items = []models.RewardCatalogItem{}
	}
	respondOK(w, items)
}

// Create adds a catalog item
func (h *RewardHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req rewardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	item, err := h.rewards.CreateReward(r.Context(), GetPrincipal(r.Context()), req.Name, int64(req.CostPoints))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondCreated(w, item)
}

// Update edits a catalog item
func (h *RewardHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req rewardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	item, err := h.rewards.UpdateReward(r.Context(), GetPrincipal(r.Context()), id, req.Name, int64(req.CostPoints))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, item)
}

// Delete removes a catalog item
func (h *RewardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.rewards.DeleteReward(r.Context(), GetPrincipal(r.Context()), id); err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, nil)
}

// Redeem files a pending redemption request. A child redeems for itself; a
// parent names the child.
func (h *RewardHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	rd, err := h.rewards.Request(r.Context(), GetPrincipal(r.Context()), int64(req.ChildID), int64(req.RewardID))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondCreated(w, rd)
}

// Decide approves (1) or rejects (2) a pending redemption
func (h *RewardHandler) Decide(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	decision := models.RedemptionStatus(req.Approved)
	if decision != models.RedemptionApproved && decision != models.RedemptionRejected {
		respondError(w, r, validation.ValidationError{Field: "approved", Message: "approved must be 1 or 2"})
		return
	}
	rd, err := h.rewards.Decide(r.Context(), GetPrincipal(r.Context()), int64(req.ID), decision)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, rd)
}

// History returns a child's redemptions
func (h *RewardHandler) History(w http.ResponseWriter, r *http.Request) {
	childID, err := queryInt64(r, "childId", 0)
	if err != nil {
		respondError(w, r, err)
		return
	}
	list, err := h.rewards.ListHistory(r.Context(), GetPrincipal(r.Context()), childID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if list == nil {
		list = []models.RewardRedemption{}
	}
	respondOK(w, list)
}

// Pending returns a child's redemptions awaiting a decision
func (h *RewardHandler) Pending(w http.ResponseWriter, r *http.Request) {
	childID, err := queryInt64(r, "childId", 0)
	if err != nil {
		respondError(w, r, err)
		return
	}
	list, err := h.rewards.ListPending(r.Context(), GetPrincipal(r.Context()), childID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if list == nil {
		list = []models.RewardRedemption{}
	}
	respondOK(w, list)
}
