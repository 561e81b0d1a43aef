package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"familypoints/internal/database"
	"familypoints/internal/models"
	"familypoints/internal/repository"
)

const analysisSystemPrompt = `You are an encouraging tutor reviewing a child's homework record for their parent.
Reply with a single JSON object and nothing else, using the keys
"summary" (string), "strengths" (array of strings), "concerns" (array of strings)
and "suggestions" (array of strings).`

// Completer produces a model reply for a system and user prompt
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// AnalysisOptions configures the analysis cache and model call
type AnalysisOptions struct {
	CacheTTL         time.Duration
	MaxEntriesPerKid int
	Timeout          time.Duration
}

// AnalysisService produces memoized LLM analyses of homework statistics
type AnalysisService struct {
	db       *database.DB
	cache    *repository.AnalysisCacheRepository
	homework *HomeworkService
	llm      Completer
	opts     AnalysisOptions
	clock    Clock
}

// NewAnalysisService creates a new analysis service. llm may be nil, in which
// case analysis requests fail with ErrAnalysisDisabled.
func NewAnalysisService(db *database.DB, homework *HomeworkService, llm Completer, opts AnalysisOptions, clock Clock) *AnalysisService {
	return &AnalysisService{
		db:       db,
		cache:    repository.NewAnalysisCacheRepository(db),
		homework: homework,
		llm:      llm,
		opts:     opts,
		clock:    clock,
	}
}

// Analyze returns the analysis of a child's last lastDays days. Results are
// cached per (child, local day, lastDays) for the cache TTL. A reply that is
// not well-formed JSON is returned raw and not cached.
func (s *AnalysisService) Analyze(ctx context.Context, principal *models.Principal, childID int64, lastDays int) (*models.HomeworkAnalysis, error) {
	if !principal.HasRole(models.RoleParent) {
		return nil, ErrForbidden
	}
	stats, err := s.homework.Statistics(ctx, principal, childID, lastDays)
	if err != nil {
		return nil, err
	}

	now := s.clock.now()
	day := s.clock.Day(now)
	result := &models.HomeworkAnalysis{
		ChildID:    stats.ChildID,
		LastDays:   lastDays,
		Day:        day,
		Statistics: stats,
	}

	entry, err := s.cache.Get(ctx, stats.ChildID, day, lastDays)
	if err != nil {
		return nil, err
	}
	if entry != nil && !entry.IsExpired(now, s.opts.CacheTTL) {
		result.Cached = true
		result.Analysis = json.RawMessage(entry.Payload)
		return result, nil
	}

	if s.llm == nil {
		return nil, ErrAnalysisDisabled
	}

	callCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()
	reply, err := s.llm.Complete(callCtx, analysisSystemPrompt, buildAnalysisPrompt(stats))
	if err != nil {
		return nil, fmt.Errorf("failed to analyze homework: %w", err)
	}

	payload := extractJSON(reply)
	if !bytes.HasPrefix(payload, []byte("{")) || !json.Valid(payload) {
		log.WithField("child_id", stats.ChildID).Warn("Analysis reply was not JSON, returning raw text")
		result.Raw = reply
		return result, nil
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, payload); err != nil {
		return nil, fmt.Errorf("failed to compact analysis: %w", err)
	}
	cached := &models.AnalysisCacheEntry{
		ChildID:    stats.ChildID,
		Day:        day,
		WindowDays: lastDays,
		Payload:    compact.String(),
		CreatedAt:  now,
	}
	err = s.db.InTx(ctx, func(tx *database.Tx) error {
		return s.cache.WithTx(tx).Put(ctx, cached)
	})
	if err != nil {
		return nil, err
	}

	result.Analysis = json.RawMessage(cached.Payload)
	return result, nil
}

// Sweep deletes expired entries and trims every child to the configured bound
func (s *AnalysisService) Sweep(ctx context.Context) error {
	expired, err := s.cache.DeleteOlderThan(ctx, s.clock.now().Add(-s.opts.CacheTTL))
	if err != nil {
		return err
	}
	trimmed, err := s.cache.TrimPerChild(ctx, s.opts.MaxEntriesPerKid)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"expired": expired,
		"trimmed": trimmed,
	}).Info("Analysis cache swept")
	return nil
}

func buildAnalysisPrompt(stats *models.HomeworkStatistics) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Homework record for the last %d days (%s to %s).\n",
		stats.LastDays, stats.From.Format("2006-01-02"), stats.To.Format("2006-01-02"))
	fmt.Fprintf(&b, "Assigned: %d, completed: %d, focus sessions: %d, points earned: %d.\n",
		stats.TotalAssigned, stats.TotalCompleted, stats.TotalPomodoros, stats.PointsEarned)
	if len(stats.Subjects) == 0 {
		b.WriteString("No homework was assigned in this period.\n")
	}
	for _, sub := range stats.Subjects {
		fmt.Fprintf(&b, "- %s: %d assigned, %d completed, %d focus sessions\n",
			sub.Subject, sub.Assigned, sub.Completed, sub.Pomodoros)
	}
	return b.String()
}

// extractJSON strips a Markdown code fence around the reply, if present
func extractJSON(reply string) []byte {
	s := strings.TrimSpace(reply)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
		s = strings.TrimSpace(s)
	}
	return []byte(s)
}
