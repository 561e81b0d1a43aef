package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	log "github.com/sirupsen/logrus"

	"familypoints/internal/database"
	"familypoints/internal/models"
	"familypoints/internal/repository"
)

// BackupVersion is written into every export
const BackupVersion = "1.0"

// backupTables lists the restored tables in dependency order
var backupTables = []string{
	"families",
	"accounts",
	"homework",
	"point_history",
	"reward_catalog",
	"reward_history",
}

// BackupData represents the complete database backup structure.
// The analysis cache is derived data and is not included.
type BackupData struct {
	Version      string                     `json:"version"`
	ExportedAt   time.Time                  `json:"exported_at"`
	DatabaseType string                     `json:"database_type"`
	Families     []models.Family            `json:"families"`
	Accounts     []AccountBackup            `json:"accounts"`
	Homework     []models.Homework          `json:"homework"`
	Ledger       []LedgerBackup             `json:"ledger"`
	Rewards      []models.RewardCatalogItem `json:"rewards"`
	Redemptions  []models.RewardRedemption  `json:"redemptions"`
}

// AccountBackup carries the password hash the API never serializes
type AccountBackup struct {
	models.Account
	PasswordHash string `json:"passwordHash"`
}

// LedgerBackup carries the idempotency key the API never serializes
type LedgerBackup struct {
	models.PointHistoryEntry
	IdempotencyKey *string `json:"idempotencyKey,omitempty"`
}

// BackupService handles database backup and restore operations
type BackupService struct {
	db *database.DB
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB) *BackupService {
	return &BackupService{db: db}
}

// Export writes a complete backup of the database to w
func (s *BackupService) Export(ctx context.Context, w io.Writer) (*BackupData, error) {
	log.Info("Starting database export...")

	backup, err := s.collect(ctx)
	if err != nil {
		return nil, err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return nil, fmt.Errorf("failed to encode backup: %w", err)
	}

	log.WithFields(log.Fields{
		"families":    len(backup.Families),
		"accounts":    len(backup.Accounts),
		"homework":    len(backup.Homework),
		"ledger":      len(backup.Ledger),
		"rewards":     len(backup.Rewards),
		"redemptions": len(backup.Redemptions),
	}).Info("Database exported")
	return backup, nil
}

func (s *BackupService) collect(ctx context.Context) (*BackupData, error) {
	backup := &BackupData{
		Version:      BackupVersion,
		ExportedAt:   time.Now().UTC(),
		DatabaseType: s.db.Dialect.MigrationsSubdir(),
	}

	families, err := repository.NewFamilyRepository(s.db).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export families: %w", err)
	}
	backup.Families = families

	accounts, err := repository.NewAccountRepository(s.db).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export accounts: %w", err)
	}
	for _, a := range accounts {
		backup.Accounts = append(backup.Accounts, AccountBackup{Account: a, PasswordHash: a.PasswordHash})
	}

	if backup.Homework, err = repository.NewHomeworkRepository(s.db).ListAll(ctx); err != nil {
		return nil, fmt.Errorf("failed to export homework: %w", err)
	}

	entries, err := repository.NewLedgerRepository(s.db).ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export ledger: %w", err)
	}
	for _, e := range entries {
		backup.Ledger = append(backup.Ledger, LedgerBackup{PointHistoryEntry: e, IdempotencyKey: e.IdempotencyKey})
	}

	rewards := repository.NewRewardRepository(s.db)
	if backup.Rewards, err = rewards.ListAllItems(ctx); err != nil {
		return nil, fmt.Errorf("failed to export rewards: %w", err)
	}
	if backup.Redemptions, err = rewards.ListAllRedemptions(ctx); err != nil {
		return nil, fmt.Errorf("failed to export redemptions: %w", err)
	}
	return backup, nil
}

// Import restores a backup read from r in a single transaction.
// Stored balances are taken from the backup as is.
func (s *BackupService) Import(ctx context.Context, r io.Reader) (*BackupData, error) {
	var backup BackupData
	if err := json.NewDecoder(r).Decode(&backup); err != nil {
		return nil, fmt.Errorf("failed to decode backup: %w", err)
	}
	if backup.Version != BackupVersion {
		return nil, fmt.Errorf("unsupported backup version %q", backup.Version)
	}

	log.WithFields(log.Fields{
		"version":     backup.Version,
		"exported_at": backup.ExportedAt,
		"source":      backup.DatabaseType,
	}).Info("Starting database import")

	err := s.db.InTx(ctx, func(tx *database.Tx) error {
		steps := []struct {
			name string
			fn   func(context.Context, *database.Tx, *BackupData) error
		}{
			{"families", importFamilies},
			{"accounts", importAccounts},
			{"homework", importHomework},
			{"ledger", importLedger},
			{"rewards", importRewards},
			{"redemptions", importRedemptions},
		}
		for _, step := range steps {
			if err := step.fn(ctx, tx, &backup); err != nil {
				return fmt.Errorf("failed to import %s: %w", step.name, err)
			}
		}
		for _, table := range backupTables {
			if q := s.db.Dialect.ResetSequenceQuery(table); q != "" {
				if _, err := tx.ExecContext(ctx, q); err != nil {
					return fmt.Errorf("failed to reset sequence for %s: %w", table, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("Database import completed successfully")
	return &backup, nil
}

// Clear deletes all rows from the backed-up tables and the analysis cache
func (s *BackupService) Clear(ctx context.Context) error {
	return s.db.InTx(ctx, func(tx *database.Tx) error {
		tables := append([]string{"analysis_cache"}, reversed(backupTables)...)
		for _, table := range tables {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("failed to clear table %s: %w", table, err)
			}
			log.WithField("table", table).Info("Cleared table")
		}
		return nil
	})
}

func reversed(in []string) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[len(in)-1-i] = v
	}
	return out
}

func importFamilies(ctx context.Context, tx *database.Tx, b *BackupData) error {
	for _, f := range b.Families {
		query := "INSERT INTO families (id, name, deadline_enabled, deadline_time, deadline_bonus_points, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)"
		if _, err := tx.ExecContext(ctx, query, f.ID, f.Name, f.DeadlineEnabled, f.DeadlineTime, f.DeadlineBonusPoints, f.CreatedAt.UTC(), f.UpdatedAt.UTC()); err != nil {
			return fmt.Errorf("family %d: %w", f.ID, err)
		}
	}
	return nil
}

func importAccounts(ctx context.Context, tx *database.Tx, b *BackupData) error {
	for _, a := range b.Accounts {
		query := "INSERT INTO accounts (id, username, password_hash, name, role, age, gender, grade, email, points, family_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
		_, err := tx.ExecContext(ctx, query, a.ID, a.Username, a.PasswordHash, a.Name, string(a.Role),
			a.Age, a.Gender, a.Grade, a.Email, a.Points, a.FamilyID, a.CreatedAt.UTC(), a.UpdatedAt.UTC())
		if err != nil {
			return fmt.Errorf("account %d: %w", a.ID, err)
		}
	}
	return nil
}

func importHomework(ctx context.Context, tx *database.Tx, b *BackupData) error {
	for _, h := range b.Homework {
		query := "INSERT INTO homework (id, family_id, child_id, subject, title, content, points, status, due_date, pomodoro_count, created_by, created_at, completed_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
		_, err := tx.ExecContext(ctx, query, h.ID, h.FamilyID, h.ChildID, h.Subject, h.Title, h.Content, h.Points,
			string(h.Status), utcPtr(h.DueDate), h.PomodoroCount, h.CreatedBy, h.CreatedAt.UTC(), utcPtr(h.CompletedAt))
		if err != nil {
			return fmt.Errorf("homework %d: %w", h.ID, err)
		}
	}
	return nil
}

func importLedger(ctx context.Context, tx *database.Tx, b *BackupData) error {
	for _, e := range b.Ledger {
		query := "INSERT INTO point_history (id, child_id, source_id, type, delta, family_id, occurred_at, label, idempotency_key) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)"
		_, err := tx.ExecContext(ctx, query, e.ID, e.ChildID, e.SourceID, string(e.Type), e.Delta, e.FamilyID,
			e.OccurredAt.UTC(), e.Label, e.IdempotencyKey)
		if err != nil {
			return fmt.Errorf("ledger entry %d: %w", e.ID, err)
		}
	}
	return nil
}

func importRewards(ctx context.Context, tx *database.Tx, b *BackupData) error {
	for _, item := range b.Rewards {
		query := "INSERT INTO reward_catalog (id, family_id, name, cost_points, created_at, deleted_at) VALUES (?, ?, ?, ?, ?, ?)"
		if _, err := tx.ExecContext(ctx, query, item.ID, item.FamilyID, item.Name, item.CostPoints, item.CreatedAt.UTC(), utcPtr(item.DeletedAt)); err != nil {
			return fmt.Errorf("reward %d: %w", item.ID, err)
		}
	}
	return nil
}

func importRedemptions(ctx context.Context, tx *database.Tx, b *BackupData) error {
	for _, rd := range b.Redemptions {
		query := `INSERT INTO reward_history (id, reward_id, child_id, reward_name, cost_points, status, requested_at, reviewed_at, reviewer_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
		_, err := tx.ExecContext(ctx, query, rd.ID, rd.RewardID, rd.ChildID, rd.RewardName, rd.CostPoints, int(rd.Status),
			rd.RequestedAt.UTC(), utcPtr(rd.ReviewedAt), rd.ReviewerID)
		if err != nil {
			return fmt.Errorf("redemption %d: %w", rd.ID, err)
		}
	}
	return nil
}
