// Package usage defines the quota snapshot read from the GLM monitor API
// and the error taxonomy for fetching it.
//
// FILES:
//   - snapshot.go: Snapshot and Limit value types
//   - errors.go:   FetchError and error classification
//   - attempt.go:  attempt ID propagation through context
package usage

import (
	"fmt"
	"time"
)

// =============================================================================
// LIMIT TYPES
// =============================================================================

// LimitKind identifies a quota row returned by the monitor API.
type LimitKind string

const (
	// LimitTokens is the rolling prompt/token window (5h on current plans).
	LimitTokens LimitKind = "TOKENS_LIMIT"
	// LimitTime is the monthly MCP tool-call quota.
	LimitTime LimitKind = "TIME_LIMIT"
)

// Label returns a human-readable name for the limit kind.
func (k LimitKind) Label() string {
	switch k {
	case LimitTokens:
		return "Prompt tokens"
	case LimitTime:
		return "Tool calls"
	default:
		return string(k)
	}
}

// Window unit codes used by the monitor API.
const (
	UnitHour  = 3
	UnitDay   = 4
	UnitMonth = 5
	UnitWeek  = 6
)

// ModelUsage is one entry of a limit's per-model breakdown.
type ModelUsage struct {
	Model string  `json:"model"`
	Usage float64 `json:"usage"`
}

// Limit is one quota row of a snapshot.
type Limit struct {
	Kind       LimitKind `json:"kind"`
	Percentage float64   `json:"percentage"` // 0-100

	// Counts are only meaningful when HasCounts is true; token windows
	// usually report a percentage only.
	HasCounts bool    `json:"has_counts"`
	Used      float64 `json:"used,omitempty"`
	Total     float64 `json:"total,omitempty"`
	Remaining float64 `json:"remaining,omitempty"`

	Unit   int `json:"unit,omitempty"`
	Number int `json:"number,omitempty"`

	PeriodStart time.Time `json:"period_start,omitzero"`
	ResetsAt    time.Time `json:"resets_at,omitzero"`

	Details []ModelUsage `json:"details,omitempty"`
}

// Window returns a short label for the limit window, e.g. "5h" or "1mo".
// Empty when the API did not describe the window.
func (l Limit) Window() string {
	if l.Number <= 0 {
		return ""
	}
	switch l.Unit {
	case UnitHour:
		return fmt.Sprintf("%dh", l.Number)
	case UnitDay:
		return fmt.Sprintf("%dd", l.Number)
	case UnitWeek:
		return fmt.Sprintf("%dw", l.Number)
	case UnitMonth:
		return fmt.Sprintf("%dmo", l.Number)
	default:
		return ""
	}
}

// windowStart returns the start of the window ending at end.
func (l Limit) windowStart(end time.Time) (time.Time, bool) {
	if l.Number <= 0 || end.IsZero() {
		return time.Time{}, false
	}
	switch l.Unit {
	case UnitHour:
		return end.Add(-time.Duration(l.Number) * time.Hour), true
	case UnitDay:
		return end.AddDate(0, 0, -l.Number), true
	case UnitWeek:
		return end.AddDate(0, 0, -7*l.Number), true
	case UnitMonth:
		return end.AddDate(0, -l.Number, 0), true
	default:
		return time.Time{}, false
	}
}

// WithPeriod returns a copy of l with PeriodStart derived from ResetsAt and
// the window, when both are known.
func (l Limit) WithPeriod() Limit {
	if start, ok := l.windowStart(l.ResetsAt); ok {
		l.PeriodStart = start
	}
	return l
}

// ResetsIn returns the time left until the window resets, or 0 when unknown
// or already passed.
func (l Limit) ResetsIn(now time.Time) time.Duration {
	if l.ResetsAt.IsZero() || !l.ResetsAt.After(now) {
		return 0
	}
	return l.ResetsAt.Sub(now)
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot is one successful reading of the plan's quota. Values are never
// mutated after construction; a newer reading replaces the whole snapshot.
type Snapshot struct {
	Plan      string    `json:"plan,omitempty"`
	Region    string    `json:"region"`
	Limits    []Limit   `json:"limits"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Newer reports whether s was fetched strictly after other.
// Any snapshot is newer than a nil one.
func (s *Snapshot) Newer(other *Snapshot) bool {
	if s == nil {
		return false
	}
	if other == nil {
		return true
	}
	return s.FetchedAt.After(other.FetchedAt)
}

// Limit returns the first limit of the given kind.
func (s *Snapshot) Limit(kind LimitKind) (Limit, bool) {
	if s == nil {
		return Limit{}, false
	}
	for _, l := range s.Limits {
		if l.Kind == kind {
			return l, true
		}
	}
	return Limit{}, false
}

// Age returns how long ago the snapshot was fetched.
func (s *Snapshot) Age(now time.Time) time.Duration {
	if s == nil || s.FetchedAt.IsZero() {
		return 0
	}
	if d := now.Sub(s.FetchedAt); d > 0 {
		return d
	}
	return 0
}

// IsStale returns true if the snapshot is older than maxAge.
func (s *Snapshot) IsStale(now time.Time, maxAge time.Duration) bool {
	return s != nil && maxAge > 0 && s.Age(now) > maxAge
}
