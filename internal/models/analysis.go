package models

import (
	"encoding/json"
	"time"
)

// AnalysisDayFormat is the key format of the analysis cache day column
const AnalysisDayFormat = "2006-01-02"

// AnalysisCacheEntry is a memoized homework analysis for one child, day and window
type AnalysisCacheEntry struct {
	ID         int64
	ChildID    int64
	Day        string
	WindowDays int
	Payload    string
	CreatedAt  time.Time
}

// IsExpired reports whether the entry is older than ttl at now
func (e *AnalysisCacheEntry) IsExpired(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.CreatedAt) > ttl
}

// HomeworkAnalysis is the result returned to parents. Exactly one of
// Analysis (well-formed JSON) or Raw (model output that failed to parse) is set.
type HomeworkAnalysis struct {
	ChildID    int64               `json:"childId"`
	LastDays   int                 `json:"lastDays"`
	Day        string              `json:"day"`
	Cached     bool                `json:"cached"`
	Analysis   json.RawMessage     `json:"analysis,omitempty"`
	Raw        string              `json:"raw,omitempty"`
	Statistics *HomeworkStatistics `json:"statistics,omitempty"`
}
