package models

import "time"

// PomodoroPoints is the fixed reward for one completed focus session
const PomodoroPoints = 5

// HomeworkStatus is the completion state of a homework item
type HomeworkStatus string

const (
	HomeworkPending HomeworkStatus = "pending"
	HomeworkDone    HomeworkStatus = "done"
)

// Homework is an assignment given by a parent to a child
type Homework struct {
	ID            int64          `json:"id"`
	FamilyID      int64          `json:"familyId"`
	ChildID       int64          `json:"childId"`
	Subject       string         `json:"subject"`
	Title         string         `json:"title"`
	Content       string         `json:"content"`
	Points        int            `json:"points"`
	Status        HomeworkStatus `json:"status"`
	DueDate       *time.Time     `json:"dueDate,omitempty"`
	PomodoroCount int            `json:"pomodoroCount"`
	CreatedBy     int64          `json:"createdBy"`
	CreatedAt     time.Time      `json:"createdAt"`
	CompletedAt   *time.Time     `json:"completedAt,omitempty"`
}

// IsDone reports whether the homework has been completed
func (h *Homework) IsDone() bool {
	return h.Status == HomeworkDone
}

// SubjectStatistics aggregates one subject's homework in a window
type SubjectStatistics struct {
	Subject   string `json:"subject"`
	Assigned  int    `json:"assigned"`
	Completed int    `json:"completed"`
	Pomodoros int    `json:"pomodoros"`
}

// HomeworkStatistics summarises a child's homework over the last N days
type HomeworkStatistics struct {
	ChildID        int64               `json:"childId"`
	LastDays       int                 `json:"lastDays"`
	From           time.Time           `json:"from"`
	To             time.Time           `json:"to"`
	Subjects       []SubjectStatistics `json:"subjects"`
	TotalAssigned  int                 `json:"totalAssigned"`
	TotalCompleted int                 `json:"totalCompleted"`
	TotalPomodoros int                 `json:"totalPomodoros"`
	PointsEarned   int64               `json:"pointsEarned"`
}

// CompletionRate returns completed/assigned, or 0 with nothing assigned
func (s *HomeworkStatistics) CompletionRate() float64 {
	if s.TotalAssigned == 0 {
		return 0
	}
	return float64(s.TotalCompleted) / float64(s.TotalAssigned)
}
