package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"familypoints/internal/models"
	"familypoints/internal/repository"
)

type fakeCompleter struct {
	reply string
	err   error
	calls int
}

func (c *fakeCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	c.calls++
	return c.reply, c.err
}

func newAnalysisService(f *fixture, llm Completer) *AnalysisService {
	opts := AnalysisOptions{CacheTTL: 24 * time.Hour, MaxEntriesPerKid: 2, Timeout: time.Second}
	return NewAnalysisService(f.db, f.homework, llm, opts, f.clock)
}

func TestAnalyzeCachesJSON(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := newHomeworkSetup(t, f)
	llm := &fakeCompleter{reply: "```json\n{\"summary\": \"steady progress\"}\n```"}
	svc := newAnalysisService(f, llm)

	first, err := svc.Analyze(ctx, s.parent, s.child.ID, 7)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if first.Cached || first.Raw != "" {
		t.Errorf("first Analyze() cached=%v raw=%q", first.Cached, first.Raw)
	}
	var body map[string]string
	if err := json.Unmarshal(first.Analysis, &body); err != nil || body["summary"] != "steady progress" {
		t.Errorf("Analysis = %s (%v)", first.Analysis, err)
	}

	second, err := svc.Analyze(ctx, s.parent, s.child.ID, 7)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if !second.Cached || llm.calls != 1 {
		t.Errorf("second Analyze() cached=%v calls=%d, want cached after one call", second.Cached, llm.calls)
	}

	// A different window is a different cache key
	if _, err := svc.Analyze(ctx, s.parent, s.child.ID, 30); err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if llm.calls != 2 {
		t.Errorf("calls = %d, want 2", llm.calls)
	}
}

func TestAnalyzeRawFallback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := newHomeworkSetup(t, f)

	tests := []struct {
		name  string
		reply string
	}{
		{"prose", "Your child is doing great!"},
		{"truncated", `{"summary": "cut off`},
		{"array", `["not", "an", "object"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &fakeCompleter{reply: tt.reply}
			svc := newAnalysisService(f, llm)
			for i := 0; i < 2; i++ {
				result, err := svc.Analyze(ctx, s.parent, s.child.ID, 7)
				if err != nil {
					t.Fatalf("Analyze() error = %v", err)
				}
				if result.Raw != tt.reply || result.Analysis != nil || result.Cached {
					t.Errorf("Analyze() = %+v", result)
				}
			}
			if llm.calls != 2 {
				t.Errorf("calls = %d, want 2 (malformed replies are not cached)", llm.calls)
			}
		})
	}
}

func TestAnalyzeTTL(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := newHomeworkSetup(t, f)
	llm := &fakeCompleter{reply: `{"summary": "ok"}`}
	svc := newAnalysisService(f, llm)

	f.now = time.Date(2024, 3, 15, 0, 30, 0, 0, time.UTC)
	if _, err := svc.Analyze(ctx, s.parent, s.child.ID, 7); err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	// Same local day, still fresh
	f.now = time.Date(2024, 3, 15, 23, 0, 0, 0, time.UTC)
	result, err := svc.Analyze(ctx, s.parent, s.child.ID, 7)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if !result.Cached {
		t.Error("expected cached result within the TTL")
	}

	// Make the stored entry older than the TTL
	if _, err := f.db.ExecContext(ctx, "UPDATE analysis_cache SET created_at = ?", f.now.Add(-25*time.Hour)); err != nil {
		t.Fatalf("Failed to age cache entry: %v", err)
	}
	result, err = svc.Analyze(ctx, s.parent, s.child.ID, 7)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if result.Cached || llm.calls != 2 {
		t.Errorf("expired entry served: cached=%v calls=%d", result.Cached, llm.calls)
	}
}

func TestAnalyzeErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := newHomeworkSetup(t, f)

	if _, err := newAnalysisService(f, nil).Analyze(ctx, s.parent, s.child.ID, 7); !errors.Is(err, ErrAnalysisDisabled) {
		t.Errorf("Analyze() without llm error = %v, want ErrAnalysisDisabled", err)
	}

	llm := &fakeCompleter{err: context.DeadlineExceeded}
	if _, err := newAnalysisService(f, llm).Analyze(ctx, s.parent, s.child.ID, 7); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Analyze() error = %v, want DeadlineExceeded", err)
	}

	if _, err := newAnalysisService(f, &fakeCompleter{reply: "{}"}).Analyze(ctx, models.NewPrincipal(s.child), s.child.ID, 7); !errors.Is(err, ErrForbidden) {
		t.Errorf("child Analyze() error = %v, want ErrForbidden", err)
	}
}

func TestAnalysisSweep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := newHomeworkSetup(t, f)
	svc := newAnalysisService(f, &fakeCompleter{reply: "{}"})
	cache := repository.NewAnalysisCacheRepository(f.db)

	put := func(day string, window int, created time.Time) {
		err := cache.Put(ctx, &models.AnalysisCacheEntry{ChildID: s.child.ID, Day: day, WindowDays: window, Payload: "{}", CreatedAt: created})
		if err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}
	put("2024-03-10", 7, f.now.Add(-5*24*time.Hour)) // expired
	put("2024-03-15", 7, f.now.Add(-3*time.Hour))
	put("2024-03-15", 14, f.now.Add(-2*time.Hour))
	put("2024-03-15", 30, f.now.Add(-1*time.Hour))

	if err := svc.Sweep(ctx); err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}

	var count int
	if err := f.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM analysis_cache").Scan(&count); err != nil {
		t.Fatalf("count error = %v", err)
	}
	if count != 2 {
		t.Errorf("entries after sweep = %d, want 2", count)
	}
	oldest, err := cache.Get(ctx, s.child.ID, "2024-03-15", 7)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if oldest != nil {
		t.Error("oldest fresh entry should have been trimmed")
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"  {\"a\":1}\n", `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{"plain text", "plain text"},
	}
	for _, tt := range tests {
		if got := string(extractJSON(tt.in)); got != tt.want {
			t.Errorf("extractJSON(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
