package service

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"familypoints/internal/database"
	"familypoints/internal/models"
	"familypoints/internal/repository"
)

func TestBackupRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := newRewardSetup(t, f, 100, 30)
	h := f.assign(t, s.parent, s.child.ID, "Maths", 10)
	if _, err := f.homework.Pomodoro(ctx, models.NewPrincipal(s.child), h.ID, "p1"); err != nil {
		t.Fatalf("Pomodoro() error = %v", err)
	}
	rd, err := f.rewards.Request(ctx, models.NewPrincipal(s.child), 0, s.item.ID)
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	if _, err := f.rewards.Approve(ctx, s.parent, rd.ID); err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if err := f.rewards.DeleteReward(ctx, s.parent, s.item.ID); err != nil {
		t.Fatalf("DeleteReward() error = %v", err)
	}

	var buf bytes.Buffer
	exported, err := NewBackupService(f.db).Export(ctx, &buf)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if len(exported.Accounts) != 2 || len(exported.Ledger) != 3 || len(exported.Redemptions) != 1 {
		t.Fatalf("Export() counts accounts=%d ledger=%d redemptions=%d", len(exported.Accounts), len(exported.Ledger), len(exported.Redemptions))
	}

	target, err := database.Initialize(filepath.Join(t.TempDir(), "restore.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	defer target.Close()
	if err := target.RunMigrations(ctx); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	if _, err := NewBackupService(target).Import(ctx, &buf); err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	accounts := repository.NewAccountRepository(target)
	child, err := accounts.GetByUsername(ctx, s.child.Username)
	if err != nil || child == nil {
		t.Fatalf("GetByUsername() = %v, %v", child, err)
	}
	if child.Points != 70+models.PomodoroPoints {
		t.Errorf("restored balance = %d, want %d", child.Points, 70+models.PomodoroPoints)
	}
	if child.PasswordHash == "" {
		t.Error("password hash not restored")
	}

	ledger := repository.NewLedgerRepository(target)
	totals, err := ledger.Totals(ctx, child.ID)
	if err != nil {
		t.Fatalf("Totals() error = %v", err)
	}
	if totals.Balance() != child.Points {
		t.Errorf("restored ledger balance = %d, stored = %d", totals.Balance(), child.Points)
	}
	rewards := repository.NewRewardRepository(target)
	redemptions, err := rewards.ListRedemptions(ctx, child.ID)
	if err != nil {
		t.Fatalf("ListRedemptions() error = %v", err)
	}
	if len(redemptions) != 1 || redemptions[0].RewardName != "Cinema trip" || redemptions[0].CostPoints != 30 {
		t.Errorf("restored redemptions = %+v, want one Cinema trip at 30", redemptions)
	}
	if visible, err := rewards.ListItems(ctx, s.family.ID); err != nil || len(visible) != 0 {
		t.Errorf("restored catalog = %v, %v; want deleted item hidden", visible, err)
	}
	if all, err := rewards.ListAllItems(ctx); err != nil || len(all) != 1 || all[0].DeletedAt == nil {
		t.Errorf("restored catalog rows = %v, %v; want one deleted item", all, err)
	}

	replayed, err := ledger.GetByIdempotencyKey(ctx, fmt.Sprintf("pomodoro:%d:p1", h.ID))
	if err != nil || replayed == nil {
		t.Errorf("idempotency key not restored: %v, %v", replayed, err)
	}

	// New rows get fresh ids after the explicit-id inserts
	family := &models.Family{Name: "Later", DeadlineTime: models.DefaultDeadlineTime, CreatedAt: f.now, UpdatedAt: f.now}
	if err := repository.NewFamilyRepository(target).Create(ctx, family); err != nil {
		t.Fatalf("Create() after import error = %v", err)
	}
	if family.ID <= s.family.ID {
		t.Errorf("new family id = %d, want > %d", family.ID, s.family.ID)
	}

	if err := NewBackupService(target).Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	all, err := accounts.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 0 {
		t.Errorf("accounts after Clear() = %d, want 0", len(all))
	}
}

func TestBackupImportRejectsVersion(t *testing.T) {
	f := newFixture(t)
	_, err := NewBackupService(f.db).Import(context.Background(), bytes.NewBufferString(`{"version": "0.1"}`))
	if err == nil {
		t.Fatal("Import() expected error for unknown version")
	}
}
