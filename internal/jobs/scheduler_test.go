package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingSweeper struct {
	runs atomic.Int32
	err  error
}

func (s *countingSweeper) Sweep(ctx context.Context) error {
	s.runs.Add(1)
	return s.err
}

func TestSchedulerInvalidSpec(t *testing.T) {
	s := NewScheduler(&countingSweeper{}, "not a schedule", time.UTC)
	if err := s.Start(context.Background()); err == nil {
		t.Fatal("Start() expected error for invalid schedule")
	}
}

func TestSchedulerSweepErrorIsLogged(t *testing.T) {
	sweeper := &countingSweeper{err: errors.New("database is locked")}
	s := NewScheduler(sweeper, "@daily", time.UTC)
	s.sweep(context.Background())
	if got := sweeper.runs.Load(); got != 1 {
		t.Errorf("runs = %d, want 1", got)
	}
}

func TestSchedulerRuns(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping scheduler timing test in short mode")
	}
	sweeper := &countingSweeper{}
	s := NewScheduler(sweeper, "@every 1s", nil)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()

	deadline := time.Now().Add(5 * time.Second)
	for sweeper.runs.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	if sweeper.runs.Load() == 0 {
		t.Error("sweeper never ran")
	}
}
