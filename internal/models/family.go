package models

import "time"

// DefaultDeadlineTime is used for families that never configured a deadline
const DefaultDeadlineTime = "20:00"

// Family is the tenancy boundary shared by parents and children
type Family struct {
	ID                  int64     `json:"id"`
	Name                string    `json:"name"`
	DeadlineEnabled     bool      `json:"deadlineEnabled"`
	DeadlineTime        string    `json:"deadlineTime"`
	DeadlineBonusPoints int       `json:"deadlineBonusPoints"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// DeadlineSettings is the wire form of a family's homework deadline configuration
type DeadlineSettings struct {
	IsDeadline string `json:"is_deadline"`
	Deadline   string `json:"deadline"`
	Integral   int    `json:"integral"`
}

// DeadlineSettings returns the family's deadline configuration
func (f *Family) DeadlineSettings() DeadlineSettings {
	flag := "0"
	if f.DeadlineEnabled {
		flag = "1"
	}
	return DeadlineSettings{
		IsDeadline: flag,
		Deadline:   f.DeadlineTime,
		Integral:   f.DeadlineBonusPoints,
	}
}
