package models

import "time"

// EntryType identifies the source of a ledger entry
type EntryType string

const (
	EntryHomework    EntryType = "01"
	EntryTask        EntryType = "02"
	EntryOtherReward EntryType = "03"
	EntryConsume     EntryType = "04"
)

// Valid reports whether t is a known entry type
func (t EntryType) Valid() bool {
	return t.IsEarn() || t == EntryConsume
}

// IsEarn reports whether entries of this type increase the balance
func (t EntryType) IsEarn() bool {
	switch t {
	case EntryHomework, EntryTask, EntryOtherReward:
		return true
	}
	return false
}

func (t EntryType) String() string {
	switch t {
	case EntryHomework:
		return "homework"
	case EntryTask:
		return "task"
	case EntryOtherReward:
		return "other reward"
	case EntryConsume:
		return "consume"
	}
	return "unknown"
}

// PointHistoryEntry is one immutable ledger record.
// Delta is never negative; the type decides the direction.
type PointHistoryEntry struct {
	ID             int64     `json:"id"`
	ChildID        int64     `json:"childId"`
	SourceID       int64     `json:"sourceId"`
	Type           EntryType `json:"type"`
	Delta          int64     `json:"delta"`
	FamilyID       *int64    `json:"familyId,omitempty"`
	OccurredAt     time.Time `json:"occurredAt"`
	Label          string    `json:"label"`
	IdempotencyKey *string   `json:"-"`
}

// Signed returns the entry's effect on the balance
func (e *PointHistoryEntry) Signed() int64 {
	if e.Type == EntryConsume {
		return -e.Delta
	}
	return e.Delta
}

// WeeklySummary is a child's balance with the last seven days of activity
type WeeklySummary struct {
	Total          int64 `json:"total"`
	EarnedThisWeek int64 `json:"earnedThisWeek"`
	SpentThisWeek  int64 `json:"spentThisWeek"`
}

// LedgerTotals are the sums of earn and consume deltas over some range
type LedgerTotals struct {
	Earned int64
	Spent  int64
}

// Balance returns earned minus spent
func (t LedgerTotals) Balance() int64 {
	return t.Earned - t.Spent
}
