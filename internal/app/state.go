// Package app runs the dashboard: it owns the application state, decides
// when to refresh and drives the tick loop that renders every frame.
//
// FILES:
//   - state.go:     State, Failure and the Complete reducer
//   - scheduler.go: Due check, background fetch and its Handle
//   - runtime.go:   event loop and process lifetime
//   - events.go:    input events
//
// DESIGN: State has exactly one owner, the Runtime goroutine. Background
// fetches never touch it; they publish an Outcome on their Handle and the
// Runtime folds it in with Complete on the next tick. The renderer only
// ever receives a copy.
package app

import (
	"fmt"
	"time"

	"github.com/compresr/glm-usage-monitor/internal/usage"
)

// =============================================================================
// PHASE
// =============================================================================

// Phase is the runtime lifecycle stage.
type Phase int

const (
	PhaseRunning Phase = iota
	PhaseTerminating
	PhaseStopped
)

func (p Phase) String() string {
	switch p {
	case PhaseRunning:
		return "running"
	case PhaseTerminating:
		return "terminating"
	case PhaseStopped:
		return "stopped"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// =============================================================================
// OUTCOME
// =============================================================================

// Failure describes a failed fetch attempt.
type Failure struct {
	Kind    usage.ErrorKind
	Code    int // HTTP status or API code, 0 when not applicable
	Message string
	At      time.Time
}

func (f *Failure) String() string {
	if f.Code != 0 {
		return fmt.Sprintf("%s (%d): %s", f.Kind, f.Code, f.Message)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// Outcome is the result of one fetch attempt. Exactly one of Snapshot and
// Failure is set.
type Outcome struct {
	Attempt    uint64
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Snapshot   *usage.Snapshot
	Failure    *Failure
}

// Success reports whether the attempt produced a snapshot.
func (o Outcome) Success() bool {
	return o.Snapshot != nil
}

// =============================================================================
// STATE
// =============================================================================

// State is the whole application state. It is a value: every change makes a
// new copy, so a State handed to the renderer never changes underneath it.
type State struct {
	Snapshot  *usage.Snapshot // nil before the first success
	LastError *Failure        // nil until a failure; cleared by the next success

	InFlight    bool
	Attempt     uint64 // latest started attempt
	LastAttempt time.Time
	LastSuccess time.Time

	RefreshInterval time.Duration
	HTTPTimeout     time.Duration

	Phase Phase

	successAttempt uint64 // latest attempt that delivered a snapshot
}

// NewState returns the initial state: no snapshot, no error, nothing in flight.
func NewState(refreshInterval, httpTimeout time.Duration) State {
	return State{
		RefreshInterval: refreshInterval,
		HTTPTimeout:     httpTimeout,
		Phase:           PhaseRunning,
	}
}

// Due reports whether a fetch should start now. A forced (manual) trigger
// skips the interval check but never starts a second concurrent fetch.
func (s State) Due(now time.Time, forced bool) bool {
	if s.Phase != PhaseRunning || s.InFlight {
		return false
	}
	if forced || s.LastAttempt.IsZero() {
		return true
	}
	return now.Sub(s.LastAttempt) >= s.RefreshInterval
}

// Complete folds an outcome into the state and returns the new state.
//
// A success replaces the snapshot only when it is strictly newer by fetch
// time, and then clears the last error. A failure records the error and
// keeps the snapshot, unless it comes from an attempt older than the one
// that produced the snapshot. InFlight clears when the outcome belongs to
// the latest started attempt.
func Complete(s State, o Outcome) State {
	if o.Attempt == s.Attempt {
		s.InFlight = false
	}

	if o.Success() {
		if !o.Snapshot.Newer(s.Snapshot) {
			return s
		}
		s.Snapshot = o.Snapshot
		if o.Attempt > s.successAttempt {
			s.successAttempt = o.Attempt
		}
		s.LastSuccess = o.FinishedAt
		s.LastError = nil
		return s
	}

	if o.Failure != nil && o.Attempt > s.successAttempt {
		s.LastError = o.Failure
	}
	return s
}
