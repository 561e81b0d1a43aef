package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"familypoints/internal/database"
	"familypoints/internal/models"
	"familypoints/internal/repository"
)

const testPassword = "secret-pass-1"

type fixture struct {
	db       *database.DB
	now      time.Time
	clock    Clock
	accounts *AccountService
	families *FamilyService
	ledger   *LedgerService
	rewards  *RewardService
	homework *HomeworkService
	notifier *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping database test in short mode")
	}
	db, err := database.Initialize(filepath.Join(t.TempDir(), "service.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.RunMigrations(context.Background()); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	f := &fixture{
		db:       db,
		now:      time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC),
		notifier: &recordingNotifier{},
	}
	f.clock = Clock{Location: time.UTC, Now: func() time.Time { return f.now }}

	policy := NewPolicy(repository.NewAccountRepository(db))
	f.accounts = NewAccountService(db, f.clock)
	f.ledger = NewLedgerService(db, f.clock)
	f.families = NewFamilyService(db, f.ledger, policy, f.clock)
	f.rewards = NewRewardService(db, f.ledger, policy, f.notifier, f.clock)
	f.homework = NewHomeworkService(db, f.ledger, policy, f.clock)
	return f
}

func (f *fixture) family(t *testing.T, name string) *models.Family {
	t.Helper()
	family, err := f.families.Create(context.Background(), name)
	if err != nil {
		t.Fatalf("Failed to create family: %v", err)
	}
	return family
}

func (f *fixture) account(t *testing.T, family *models.Family, username string, role models.Role) *models.Account {
	t.Helper()
	in := AccountInput{Username: username, Password: testPassword, Name: username, Role: role}
	if family != nil {
		in.FamilyID = &family.ID
	}
	account, err := f.accounts.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("Failed to create %s %s: %v", role, username, err)
	}
	return account
}

func (f *fixture) parent(t *testing.T, family *models.Family, username string) *models.Principal {
	t.Helper()
	return models.NewPrincipal(f.account(t, family, username, models.RoleParent))
}

// child creates a child and credits points through the ledger
func (f *fixture) child(t *testing.T, family *models.Family, username string, points int64) *models.Account {
	t.Helper()
	child := f.account(t, family, username, models.RoleChild)
	if points > 0 {
		_, err := f.ledger.RecordEarn(context.Background(), EarnRequest{
			ChildID: child.ID,
			Type:    models.EntryOtherReward,
			Amount:  points,
			Label:   "starting balance",
		})
		if err != nil {
			t.Fatalf("Failed to seed points: %v", err)
		}
		child.Points = points
	}
	return child
}

func (f *fixture) balance(t *testing.T, childID int64) int64 {
	t.Helper()
	account, err := f.accounts.Get(context.Background(), childID)
	if err != nil {
		t.Fatalf("Failed to get account: %v", err)
	}
	return account.Points
}

// assertBalanceLaw checks the stored balance equals earned minus spent in the ledger
func (f *fixture) assertBalanceLaw(t *testing.T, childID int64) {
	t.Helper()
	totals, err := repository.NewLedgerRepository(f.db).Totals(context.Background(), childID)
	if err != nil {
		t.Fatalf("Failed to total ledger: %v", err)
	}
	if got := f.balance(t, childID); got != totals.Balance() {
		t.Errorf("stored balance = %d, ledger balance = %d", got, totals.Balance())
	}
}

// consume deducts amount from a child the way an approved redemption does
func (f *fixture) consume(ctx context.Context, childID, amount int64) error {
	return f.db.InTx(ctx, func(tx *database.Tx) error {
		child, err := repository.NewAccountRepository(tx).GetByID(ctx, childID)
		if err != nil {
			return err
		}
		_, err = f.ledger.consumeTx(ctx, tx, child, 0, amount, "test spend")
		return err
	})
}

type recordingNotifier struct {
	calls   int
	parents []models.Account
}

func (n *recordingNotifier) NotifyRedemptionRequested(ctx context.Context, parents []models.Account, child *models.Account, item *models.RewardCatalogItem) error {
	n.calls++
	n.parents = parents
	return nil
}
