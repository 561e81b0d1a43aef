package models

import (
	"errors"
	"testing"
	"time"
)

func TestRedemptionStatusTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    RedemptionStatus
		approve bool
		want    RedemptionStatus
		wantErr bool
	}{
		{"pending approve", RedemptionPending, true, RedemptionApproved, false},
		{"pending reject", RedemptionPending, false, RedemptionRejected, false},
		{"approved approve", RedemptionApproved, true, RedemptionApproved, true},
		{"approved reject", RedemptionApproved, false, RedemptionApproved, true},
		{"rejected approve", RedemptionRejected, true, RedemptionRejected, true},
		{"rejected reject", RedemptionRejected, false, RedemptionRejected, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got RedemptionStatus
			var err error
			if tt.approve {
				got, err = tt.from.Approve()
			} else {
				got, err = tt.from.Reject()
			}
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("error = %v, want ErrInvalidTransition", err)
			}
			if got != tt.want {
				t.Errorf("status = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRedemptionStatusDecide(t *testing.T) {
	if _, err := RedemptionPending.Decide(RedemptionPending); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Decide(pending) error = %v, want ErrInvalidTransition", err)
	}
	got, err := RedemptionPending.Decide(RedemptionRejected)
	if err != nil || got != RedemptionRejected {
		t.Errorf("Decide(rejected) = %v, %v", got, err)
	}
	if !RedemptionApproved.IsTerminal() || RedemptionPending.IsTerminal() {
		t.Error("IsTerminal mismatch")
	}
}

func TestEntryType(t *testing.T) {
	tests := []struct {
		typ    EntryType
		earn   bool
		valid  bool
		signed int64
	}{
		{EntryHomework, true, true, 10},
		{EntryTask, true, true, 10},
		{EntryOtherReward, true, true, 10},
		{EntryConsume, false, true, -10},
		{EntryType("99"), false, false, 10},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			if got := tt.typ.IsEarn(); got != tt.earn {
				t.Errorf("IsEarn() = %v, want %v", got, tt.earn)
			}
			if got := tt.typ.Valid(); got != tt.valid {
				t.Errorf("Valid() = %v, want %v", got, tt.valid)
			}
			e := PointHistoryEntry{Type: tt.typ, Delta: 10}
			if got := e.Signed(); got != tt.signed {
				t.Errorf("Signed() = %v, want %v", got, tt.signed)
			}
		})
	}
}

func TestPrincipalSameFamily(t *testing.T) {
	one, two := int64(1), int64(2)
	tests := []struct {
		name      string
		principal Principal
		account   Account
		want      bool
	}{
		{"same family", Principal{FamilyID: &one}, Account{FamilyID: &one}, true},
		{"other family", Principal{FamilyID: &one}, Account{FamilyID: &two}, false},
		{"principal without family", Principal{}, Account{FamilyID: &one}, false},
		{"account without family", Principal{FamilyID: &one}, Account{}, false},
		{"neither has family", Principal{}, Account{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.principal.SameFamily(&tt.account); got != tt.want {
				t.Errorf("SameFamily() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPrincipalHasRole(t *testing.T) {
	p := Principal{Role: RoleParent}
	if !p.HasRole(RoleChild, RoleParent) {
		t.Error("expected parent to match")
	}
	if p.HasRole(RoleAdmin) {
		t.Error("parent should not match admin")
	}
	if p.HasRole() {
		t.Error("empty role list should not match")
	}
}

func TestRoleValid(t *testing.T) {
	for _, r := range []Role{RoleAdmin, RoleParent, RoleChild} {
		if !r.Valid() {
			t.Errorf("%s should be valid", r)
		}
	}
	if Role("guest").Valid() {
		t.Error("guest should be invalid")
	}
}

func TestFamilyDeadlineSettings(t *testing.T) {
	f := Family{DeadlineEnabled: true, DeadlineTime: "20:30", DeadlineBonusPoints: 50}
	got := f.DeadlineSettings()
	want := DeadlineSettings{IsDeadline: "1", Deadline: "20:30", Integral: 50}
	if got != want {
		t.Errorf("DeadlineSettings() = %+v, want %+v", got, want)
	}

	f.DeadlineEnabled = false
	if got := f.DeadlineSettings().IsDeadline; got != "0" {
		t.Errorf("IsDeadline = %q, want \"0\"", got)
	}
}

func TestAnalysisCacheEntryIsExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name      string
		createdAt time.Time
		want      bool
	}{
		{"fresh", now.Add(-1 * time.Hour), false},
		{"exactly ttl", now.Add(-24 * time.Hour), false},
		{"stale", now.Add(-25 * time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := AnalysisCacheEntry{CreatedAt: tt.createdAt}
			if got := e.IsExpired(now, 24*time.Hour); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHomeworkStatisticsCompletionRate(t *testing.T) {
	s := HomeworkStatistics{}
	if s.CompletionRate() != 0 {
		t.Error("empty statistics should have zero rate")
	}
	s.TotalAssigned, s.TotalCompleted = 4, 3
	if got := s.CompletionRate(); got != 0.75 {
		t.Errorf("CompletionRate() = %v, want 0.75", got)
	}
}

func TestIsKnownSubject(t *testing.T) {
	if !IsKnownSubject("Math") {
		t.Error("Math should be known")
	}
	if IsKnownSubject("Quidditch") {
		t.Error("Quidditch should be unknown")
	}
}
