// Package monitoring - metrics.go provides refresh counters.
//
// DESIGN: Lightweight in-memory counters for the refresh loop:
//   - attempts/successes: Started and successful fetch counts
//   - failures:           Failed fetches, split by error kind
//   - latency:            Duration of the most recent completed fetch
//
// All methods are safe on a nil *RefreshMetrics, so callers may leave
// metrics unset.
package monitoring

import (
	"sync/atomic"
	"time"

	"github.com/compresr/glm-usage-monitor/internal/usage"
)

// RefreshMetrics collects refresh loop metrics.
type RefreshMetrics struct {
	attempts  atomic.Int64
	successes atomic.Int64

	// Failure counters, one per usage.ErrorKind
	timeouts  atomic.Int64
	network   atomic.Int64
	malformed atomic.Int64
	status    atomic.Int64
	canceled  atomic.Int64

	lastLatency atomic.Int64 // nanoseconds
}

// NewRefreshMetrics creates a new metrics collector.
func NewRefreshMetrics() *RefreshMetrics {
	return &RefreshMetrics{}
}

// RecordAttempt records a started fetch.
func (m *RefreshMetrics) RecordAttempt() {
	if m == nil {
		return
	}
	m.attempts.Add(1)
}

// RecordSuccess records a successful fetch and its latency.
func (m *RefreshMetrics) RecordSuccess(latency time.Duration) {
	if m == nil {
		return
	}
	m.successes.Add(1)
	m.lastLatency.Store(int64(latency))
}

// RecordFailure records a failed fetch of the given kind.
func (m *RefreshMetrics) RecordFailure(kind usage.ErrorKind, latency time.Duration) {
	if m == nil {
		return
	}
	m.lastLatency.Store(int64(latency))
	switch kind {
	case usage.KindTimeout:
		m.timeouts.Add(1)
	case usage.KindMalformed:
		m.malformed.Add(1)
	case usage.KindStatus:
		m.status.Add(1)
	case usage.KindCanceled:
		m.canceled.Add(1)
	default:
		m.network.Add(1)
	}
}

// Summary returns a point-in-time copy of the counters.
func (m *RefreshMetrics) Summary() Summary {
	if m == nil {
		return Summary{}
	}
	return Summary{
		Attempts:    m.attempts.Load(),
		Successes:   m.successes.Load(),
		LastLatency: time.Duration(m.lastLatency.Load()),
		Failures: FailureStats{
			Timeout:   m.timeouts.Load(),
			Network:   m.network.Load(),
			Malformed: m.malformed.Load(),
			Status:    m.status.Load(),
			Canceled:  m.canceled.Load(),
		},
	}
}

// Summary is a snapshot of RefreshMetrics.
type Summary struct {
	Attempts    int64         `json:"attempts"`
	Successes   int64         `json:"successes"`
	LastLatency time.Duration `json:"last_latency_ns"`
	Failures    FailureStats  `json:"failures"`
}

// FailureStats holds failure counts per error kind.
type FailureStats struct {
	Timeout   int64 `json:"timeout"`
	Network   int64 `json:"network"`
	Malformed int64 `json:"malformed"`
	Status    int64 `json:"status"`
	Canceled  int64 `json:"canceled"`
}

// Total returns the number of failed fetches.
func (f FailureStats) Total() int64 {
	return f.Timeout + f.Network + f.Malformed + f.Status + f.Canceled
}
