package handlers

import (
	"net/http"
	"strings"
	"time"

	"familypoints/internal/models"
	"familypoints/internal/service"
)

// HomeworkHandler serves homework, pomodoro and analysis endpoints
type HomeworkHandler struct {
	homework *service.HomeworkService
	analysis *service.AnalysisService
}

// NewHomeworkHandler creates a new homework handler
func NewHomeworkHandler(homework *service.HomeworkService, analysis *service.AnalysisService) *HomeworkHandler {
	return &HomeworkHandler{homework: homework, analysis: analysis}
}

type homeworkRequest struct {
	ChildID flexInt    `json:"childId"`
	Subject string     `json:"subject"`
	Title   string     `json:"title"`
	Content string     `json:"content"`
	Points  flexInt    `json:"points"`
	DueDate *time.Time `json:"dueDate"`
}

func (req homeworkRequest) input() service.HomeworkInput {
	return service.HomeworkInput{
		ChildID: int64(req.ChildID),
		Subject: req.Subject,
		Title:   req.Title,
		Content: req.Content,
		Points:  int(req.Points),
		DueDate: req.DueDate,
	}
}

type pomodoroRequest struct {
	HomeworkID flexInt `json:"homeworkId"`
}

type completeResponse struct {
	Homework *models.Homework          `json:"homework"`
	Entry    *models.PointHistoryEntry `json:"entry"`
}

// List returns a child's homework. Children may omit childId.
func (h *HomeworkHandler) List(w http.ResponseWriter, r *http.Request) {
	childID, err := queryInt64(r, "childId", 0)
	if err != nil {
		respondError(w, r, err)
		return
	}
	items, err := h.homework.List(r.Context(), GetPrincipal(r.Context()), childID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if items == nil {
		items = []models.Homework{}
	}
	respondOK(w, items)
}

// Create assigns homework to a family child
func (h *HomeworkHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req homeworkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	hw, err := h.homework.Create(r.Context(), GetPrincipal(r.Context()), req.input())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondCreated(w, hw)
}

// Update edits homework
func (h *HomeworkHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req homeworkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	hw, err := h.homework.Update(r.Context(), GetPrincipal(r.Context()), id, req.input())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, hw)
}

// Delete removes homework
func (h *HomeworkHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.homework.Delete(r.Context(), GetPrincipal(r.Context()), id); err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, nil)
}

// Complete marks homework done and credits its points
func (h *HomeworkHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	hw, entry, err := h.homework.Complete(r.Context(), GetPrincipal(r.Context()), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, completeResponse{Homework: hw, Entry: entry})
}

// Pomodoro credits a finished focus session. The optional Idempotency-Key
// header makes client retries safe.
func (h *HomeworkHandler) Pomodoro(w http.ResponseWriter, r *http.Request) {
	var req pomodoroRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	entry, err := h.homework.Pomodoro(r.Context(), GetPrincipal(r.Context()), int64(req.HomeworkID), key)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, entry)
}

func windowParams(r *http.Request) (int64, int, error) {
	childID, err := queryInt64(r, "childId", 0)
	if err != nil {
		return 0, 0, err
	}
	lastDays, err := queryInt64(r, "lastDays", 0)
	if err != nil {
		return 0, 0, err
	}
	return childID, int(lastDays), nil
}

// Statistics aggregates a child's homework over the last lastDays days
func (h *HomeworkHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	childID, lastDays, err := windowParams(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	stats, err := h.homework.Statistics(r.Context(), GetPrincipal(r.Context()), childID, lastDays)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, stats)
}

// Analysis returns the memoized model analysis of a child's homework
func (h *HomeworkHandler) Analysis(w http.ResponseWriter, r *http.Request) {
	childID, lastDays, err := windowParams(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	analysis, err := h.analysis.Analyze(r.Context(), GetPrincipal(r.Context()), childID, lastDays)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, analysis)
}
