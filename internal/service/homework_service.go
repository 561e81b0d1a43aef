package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"familypoints/internal/database"
	"familypoints/internal/models"
	"familypoints/internal/repository"
	"familypoints/internal/validation"
)

// HomeworkInput holds the editable homework fields
type HomeworkInput struct {
	ChildID int64
	Subject string
	Title   string
	Content string
	Points  int
	DueDate *time.Time
}

// HomeworkService manages homework and the points earned by completing it
type HomeworkService struct {
	db       *database.DB
	homework *repository.HomeworkRepository
	ledger   *LedgerService
	ledgerDB *repository.LedgerRepository
	policy   *Policy
	clock    Clock
}

// NewHomeworkService creates a new homework service
func NewHomeworkService(db *database.DB, ledger *LedgerService, policy *Policy, clock Clock) *HomeworkService {
	return &HomeworkService{
		db:       db,
		homework: repository.NewHomeworkRepository(db),
		ledger:   ledger,
		ledgerDB: repository.NewLedgerRepository(db),
		policy:   policy,
		clock:    clock,
	}
}

// Create assigns homework to a child of the parent's family
func (s *HomeworkService) Create(ctx context.Context, principal *models.Principal, in HomeworkInput) (*models.Homework, error) {
	if !principal.HasRole(models.RoleParent) {
		return nil, ErrForbidden
	}
	child, err := s.policy.Child(ctx, principal, in.ChildID)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidateHomework(in.Subject, in.Title, in.Points); err != nil {
		return nil, err
	}

	h := &models.Homework{
		FamilyID:  *child.FamilyID,
		ChildID:   child.ID,
		Subject:   strings.TrimSpace(in.Subject),
		Title:     strings.TrimSpace(in.Title),
		Content:   in.Content,
		Points:    in.Points,
		Status:    models.HomeworkPending,
		DueDate:   utcPtr(in.DueDate),
		CreatedBy: principal.ID,
		CreatedAt: s.clock.now(),
	}
	if err := s.homework.Create(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

// Update edits homework of the parent's family
func (s *HomeworkService) Update(ctx context.Context, principal *models.Principal, id int64, in HomeworkInput) (*models.Homework, error) {
	h, err := s.familyHomework(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidateHomework(in.Subject, in.Title, in.Points); err != nil {
		return nil, err
	}

	h.Subject = strings.TrimSpace(in.Subject)
	h.Title = strings.TrimSpace(in.Title)
	h.Content = in.Content
	h.Points = in.Points
	h.DueDate = utcPtr(in.DueDate)
	if err := s.homework.Update(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

// Delete removes homework of the parent's family. Ledger entries it produced stay.
func (s *HomeworkService) Delete(ctx context.Context, principal *models.Principal, id int64) error {
	if _, err := s.familyHomework(ctx, principal, id); err != nil {
		return err
	}
	return s.homework.Delete(ctx, id)
}

func (s *HomeworkService) familyHomework(ctx context.Context, principal *models.Principal, id int64) (*models.Homework, error) {
	if !principal.HasRole(models.RoleParent) {
		return nil, ErrForbidden
	}
	familyID, err := s.policy.FamilyID(principal)
	if err != nil {
		return nil, err
	}
	h, err := s.homework.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if h == nil || h.FamilyID != familyID {
		return nil, ErrNotFound
	}
	return h, nil
}

// accessibleHomework loads homework the principal may work on: a child its
// own, a parent anything in the family
func (s *HomeworkService) accessibleHomework(ctx context.Context, principal *models.Principal, id int64) (*models.Homework, error) {
	h, err := s.homework.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, ErrNotFound
	}
	switch principal.Role {
	case models.RoleChild:
		if h.ChildID != principal.ID {
			return nil, ErrForbidden
		}
	case models.RoleParent:
		if principal.FamilyID == nil || *principal.FamilyID != h.FamilyID {
			return nil, ErrForbidden
		}
	default:
		return nil, ErrForbidden
	}
	return h, nil
}

// List returns a child's homework, newest first
func (s *HomeworkService) List(ctx context.Context, principal *models.Principal, childID int64) ([]models.Homework, error) {
	child, err := s.policy.Child(ctx, principal, childID)
	if err != nil {
		return nil, err
	}
	return s.homework.ListByChild(ctx, child.ID)
}

// Complete marks homework done and credits its points once
func (s *HomeworkService) Complete(ctx context.Context, principal *models.Principal, id int64) (*models.Homework, *models.PointHistoryEntry, error) {
	h, err := s.accessibleHomework(ctx, principal, id)
	if err != nil {
		return nil, nil, err
	}

	completedAt := s.clock.now()
	var entry *models.PointHistoryEntry
	err = s.db.InTx(ctx, func(tx *database.Tx) error {
		ok, err := s.homework.WithTx(tx).MarkDone(ctx, h.ID, completedAt)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvalidState
		}
		if h.Points <= 0 {
			return nil
		}
		entry, _, err = s.ledger.recordEarnTx(ctx, tx, EarnRequest{
			ChildID:        h.ChildID,
			SourceID:       h.ID,
			Type:           models.EntryHomework,
			Amount:         int64(h.Points),
			Label:          "homework: " + h.Title,
			IdempotencyKey: fmt.Sprintf("homework:%d:complete", h.ID),
		})
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	h.Status = models.HomeworkDone
	h.CompletedAt = &completedAt
	return h, entry, nil
}

// Pomodoro records a finished focus session on homework and credits the
// fixed pomodoro reward. Replaying the same idempotency key credits nothing.
func (s *HomeworkService) Pomodoro(ctx context.Context, principal *models.Principal, homeworkID int64, idempotencyKey string) (*models.PointHistoryEntry, error) {
	h, err := s.accessibleHomework(ctx, principal, homeworkID)
	if err != nil {
		return nil, err
	}

	key := ""
	if idempotencyKey != "" {
		key = fmt.Sprintf("pomodoro:%d:%s", h.ID, idempotencyKey)
	}

	var entry *models.PointHistoryEntry
	err = s.db.InTx(ctx, func(tx *database.Tx) error {
		var created bool
		var err error
		entry, created, err = s.ledger.recordEarnTx(ctx, tx, EarnRequest{
			ChildID:        h.ChildID,
			SourceID:       h.ID,
			Type:           models.EntryTask,
			Amount:         models.PomodoroPoints,
			Label:          "pomodoro: " + h.Title,
			IdempotencyKey: key,
		})
		if err != nil || !created {
			return err
		}
		return s.homework.WithTx(tx).IncrementPomodoro(ctx, h.ID)
	})
	if err != nil && key != "" && s.db.IsUniqueViolation(err) {
		if existing, lookupErr := s.ledger.ledger.GetByIdempotencyKey(ctx, key); lookupErr == nil && existing != nil {
			return existing, nil
		}
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Statistics aggregates a child's homework created in the last lastDays days
func (s *HomeworkService) Statistics(ctx context.Context, principal *models.Principal, childID int64, lastDays int) (*models.HomeworkStatistics, error) {
	if err := validation.ValidateLastDays(lastDays); err != nil {
		return nil, err
	}
	child, err := s.policy.Child(ctx, principal, childID)
	if err != nil {
		return nil, err
	}

	from, to := s.clock.Window(s.clock.Now(), lastDays)
	items, err := s.homework.ListByChildBetween(ctx, child.ID, from, to)
	if err != nil {
		return nil, err
	}

	bySubject := map[string]*models.SubjectStatistics{}
	stats := &models.HomeworkStatistics{
		ChildID:  child.ID,
		LastDays: lastDays,
		From:     from,
		To:       to,
		Subjects: []models.SubjectStatistics{},
	}
	for _, h := range items {
		sub, ok := bySubject[h.Subject]
		if !ok {
			sub = &models.SubjectStatistics{Subject: h.Subject}
			bySubject[h.Subject] = sub
		}
		sub.Assigned++
		sub.Pomodoros += h.PomodoroCount
		if h.IsDone() {
			sub.Completed++
		}
	}
	for _, sub := range bySubject {
		stats.Subjects = append(stats.Subjects, *sub)
		stats.TotalAssigned += sub.Assigned
		stats.TotalCompleted += sub.Completed
		stats.TotalPomodoros += sub.Pomodoros
	}
	sort.Slice(stats.Subjects, func(i, j int) bool {
		return stats.Subjects[i].Subject < stats.Subjects[j].Subject
	})

	earned, err := s.ledgerDB.SumTypesBetween(ctx, child.ID,
		[]models.EntryType{models.EntryHomework, models.EntryTask}, from, to)
	if err != nil {
		return nil, err
	}
	stats.PointsEarned = earned

	log.WithFields(log.Fields{
		"child_id":  child.ID,
		"last_days": lastDays,
		"homework":  len(items),
	}).Debug("Homework statistics computed")
	return stats, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
