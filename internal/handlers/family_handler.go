package handlers

import (
	"net/http"

	"familypoints/internal/models"
	"familypoints/internal/service"
)

// FamilyHandler serves family, child and deadline endpoints
type FamilyHandler struct {
	families *service.FamilyService
}

// NewFamilyHandler creates a new family handler
func NewFamilyHandler(families *service.FamilyService) *FamilyHandler {
	return &FamilyHandler{families: families}
}

type familyRequest struct {
	Name string `json:"name"`
}

type childRequest struct {
	Name     string  `json:"name"`
	Username string  `json:"username"`
	Password string  `json:"password"`
	Age      *int    `json:"age"`
	Gender   *string `json:"gender"`
	Grade    *string `json:"grade"`
}

type deadlineRequest struct {
	IsDeadline flexString `json:"is_deadline"`
	Deadline   string     `json:"deadline"`
	Integral   flexInt    `json:"integral"`
}

// List returns every family
func (h *FamilyHandler) List(w http.ResponseWriter, r *http.Request) {
	families, err := h.families.List(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, families)
}

// Create adds a family
func (h *FamilyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req familyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	family, err := h.families.Create(r.Context(), req.Name)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondCreated(w, family)
}

// Rename renames the caller's family
func (h *FamilyHandler) Rename(w http.ResponseWriter, r *http.Request) {
	var req familyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	family, err := h.families.Rename(r.Context(), GetPrincipal(r.Context()), req.Name)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, family)
}

// Children lists the children of the caller's family
func (h *FamilyHandler) Children(w http.ResponseWriter, r *http.Request) {
	children, err := h.families.ListChildren(r.Context(), GetPrincipal(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, children)
}

// CreateChild adds a child to the caller's family and returns its credentials once
func (h *FamilyHandler) CreateChild(w http.ResponseWriter, r *http.Request) {
	var req childRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	creds, err := h.families.CreateChild(r.Context(), GetPrincipal(r.Context()), service.ChildInput{
		Name:     req.Name,
		Username: req.Username,
		Password: req.Password,
		Age:      req.Age,
		Gender:   req.Gender,
		Grade:    req.Grade,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondCreated(w, creds)
}

// ChildDetail returns a child's profile and seven-day summary
func (h *FamilyHandler) ChildDetail(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	detail, err := h.families.ChildDetail(r.Context(), GetPrincipal(r.Context()), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, detail)
}

// RegenerateChildPassword issues a new generated password for a child
func (h *FamilyHandler) RegenerateChildPassword(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	creds, err := h.families.RegenerateChildPassword(r.Context(), GetPrincipal(r.Context()), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, creds)
}

// Deadline returns the homework deadline settings of the caller's family
func (h *FamilyHandler) Deadline(w http.ResponseWriter, r *http.Request) {
	settings, err := h.families.Deadline(r.Context(), GetPrincipal(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, settings)
}

// UpdateDeadline stores the homework deadline settings of the caller's family
func (h *FamilyHandler) UpdateDeadline(w http.ResponseWriter, r *http.Request) {
	var req deadlineRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	settings, err := h.families.UpdateDeadline(r.Context(), GetPrincipal(r.Context()), models.DeadlineSettings{
		IsDeadline: string(req.IsDeadline),
		Deadline:   req.Deadline,
		Integral:   int(req.Integral),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, settings)
}
