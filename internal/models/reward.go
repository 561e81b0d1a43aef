package models

import (
	"errors"
	"time"
)

// ErrInvalidTransition is returned when a redemption is not in a state that allows the change
var ErrInvalidTransition = errors.New("invalid redemption state transition")

// RewardCatalogItem is a reward a family's children may request
type RewardCatalogItem struct {
	ID         int64      `json:"id"`
	FamilyID   int64      `json:"familyId"`
	Name       string     `json:"name"`
	CostPoints int64      `json:"costPoints"`
	CreatedAt  time.Time  `json:"createdAt"`
	DeletedAt  *time.Time `json:"deletedAt,omitempty"`
}

// RedemptionStatus is the state of a redemption request
type RedemptionStatus int

const (
	RedemptionPending  RedemptionStatus = 0
	RedemptionApproved RedemptionStatus = 1
	RedemptionRejected RedemptionStatus = 2
)

func (s RedemptionStatus) String() string {
	switch s {
	case RedemptionPending:
		return "pending"
	case RedemptionApproved:
		return "approved"
	case RedemptionRejected:
		return "rejected"
	}
	return "unknown"
}

// IsTerminal reports whether no further transition is possible
func (s RedemptionStatus) IsTerminal() bool {
	return s == RedemptionApproved || s == RedemptionRejected
}

// Approve moves a pending redemption to approved
func (s RedemptionStatus) Approve() (RedemptionStatus, error) {
	if s != RedemptionPending {
		return s, ErrInvalidTransition
	}
	return RedemptionApproved, nil
}

// Reject moves a pending redemption to rejected
func (s RedemptionStatus) Reject() (RedemptionStatus, error) {
	if s != RedemptionPending {
		return s, ErrInvalidTransition
	}
	return RedemptionRejected, nil
}

// Decide applies a reviewer decision, which must be approved or rejected
func (s RedemptionStatus) Decide(decision RedemptionStatus) (RedemptionStatus, error) {
	switch decision {
	case RedemptionApproved:
		return s.Approve()
	case RedemptionRejected:
		return s.Reject()
	}
	return s, ErrInvalidTransition
}

// RewardRedemption is a child's request to exchange points for a catalog reward
type RewardRedemption struct {
	ID          int64            `json:"id"`
	RewardID    int64            `json:"rewardId"`
	ChildID     int64            `json:"childId"`
	Status      RedemptionStatus `json:"status"`
	RequestedAt time.Time        `json:"requestedAt"`
	ReviewedAt  *time.Time       `json:"reviewedAt,omitempty"`
	ReviewerID  *int64           `json:"reviewerId,omitempty"`

	// Name and price of the reward when it was requested
	RewardName string `json:"rewardName"`
	CostPoints int64  `json:"costPoints"`

	// Populated via JOIN
	ChildName string `json:"childName"`
}
