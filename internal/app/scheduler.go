package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/compresr/glm-usage-monitor/internal/monitoring"
	"github.com/compresr/glm-usage-monitor/internal/usage"
)

// Fetcher reads one usage snapshot. Implementations should honor ctx, but
// the scheduler enforces the timeout even when they do not.
type Fetcher interface {
	Fetch(ctx context.Context) (*usage.Snapshot, error)
}

// Scheduler launches background fetches. It holds no state of its own;
// the in-flight bookkeeping lives in State.
type Scheduler struct {
	fetcher Fetcher
	metrics *monitoring.RefreshMetrics
	clock   func() time.Time
}

// NewScheduler creates a scheduler. metrics may be nil; clock defaults to
// time.Now.
func NewScheduler(fetcher Fetcher, metrics *monitoring.RefreshMetrics, clock func() time.Time) *Scheduler {
	if clock == nil {
		clock = time.Now
	}
	return &Scheduler{fetcher: fetcher, metrics: metrics, clock: clock}
}

// Start marks a new attempt in flight and launches the fetch. The returned
// state already has InFlight set, so a Due check made before the fetch even
// begins sees it. The fetch is bounded by st.HTTPTimeout and by ctx.
func (s *Scheduler) Start(ctx context.Context, st State, now time.Time) (State, *Handle) {
	st.InFlight = true
	st.LastAttempt = now
	st.Attempt++

	h := &Handle{
		done:      make(chan struct{}),
		attempt:   st.Attempt,
		id:        uuid.NewString(),
		startedAt: now,
	}

	s.metrics.RecordAttempt()
	log.Debug().
		Uint64("attempt", h.attempt).
		Str("attempt_id", h.id).
		Dur("timeout", st.HTTPTimeout).
		Msg("scheduler: fetch started")

	go s.run(ctx, h, st.HTTPTimeout)
	return st, h
}

type fetchResult struct {
	snap *usage.Snapshot
	err  error
}

func (s *Scheduler) run(ctx context.Context, h *Handle, timeout time.Duration) {
	defer close(h.done)

	fetchCtx, cancel := context.WithTimeout(usage.WithAttemptID(ctx, h.id), timeout)
	defer cancel()

	begin := time.Now()

	// Buffered so an abandoned fetch can still deliver and exit.
	results := make(chan fetchResult, 1)
	go func() {
		snap, err := s.fetcher.Fetch(fetchCtx)
		results <- fetchResult{snap: snap, err: err}
	}()

	var res fetchResult
	select {
	case res = <-results:
	case <-fetchCtx.Done():
		res.err = fetchCtx.Err()
	}
	if res.err == nil && res.snap == nil {
		res.err = &usage.FetchError{Kind: usage.KindMalformed, Message: "empty response"}
	}

	latency := time.Since(begin)
	h.outcome = Outcome{
		Attempt:    h.attempt,
		ID:         h.id,
		StartedAt:  h.startedAt,
		FinishedAt: s.clock(),
	}

	if res.err != nil {
		f := toFailure(res.err, timeout, h.outcome.FinishedAt)
		h.outcome.Failure = f
		s.metrics.RecordFailure(f.Kind, latency)
		log.Warn().
			Uint64("attempt", h.attempt).
			Str("attempt_id", h.id).
			Str("kind", string(f.Kind)).
			Int64("latency_ms", latency.Milliseconds()).
			Str("error", f.Message).
			Msg("scheduler: fetch failed")
		return
	}

	h.outcome.Snapshot = res.snap
	s.metrics.RecordSuccess(latency)
	ev := log.Info().
		Uint64("attempt", h.attempt).
		Str("attempt_id", h.id).
		Int("limits", len(res.snap.Limits)).
		Int64("latency_ms", latency.Milliseconds())
	if l, ok := res.snap.Limit(usage.LimitTokens); ok {
		ev = ev.Float64("tokens_pct", l.Percentage)
	}
	if l, ok := res.snap.Limit(usage.LimitTime); ok {
		ev = ev.Float64("tool_calls_pct", l.Percentage)
	}
	ev.Msg("scheduler: fetch succeeded")
}

func toFailure(err error, timeout time.Duration, at time.Time) *Failure {
	fe := usage.AsFetchError(err)
	msg := fe.Message
	if msg == "" && fe.Err != nil {
		msg = fe.Err.Error()
	}
	if fe.Kind == usage.KindTimeout {
		msg = fmt.Sprintf("no response within %s", timeout)
	}
	return &Failure{Kind: fe.Kind, Code: fe.StatusCode, Message: msg, At: at}
}

// =============================================================================
// HANDLE
// =============================================================================

// Handle tracks one in-flight fetch.
type Handle struct {
	done      chan struct{}
	outcome   Outcome // written before done is closed
	attempt   uint64
	id        string
	startedAt time.Time
}

// Done is closed once the outcome is ready.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Attempt returns the attempt number this handle belongs to.
func (h *Handle) Attempt() uint64 {
	return h.attempt
}

// Poll returns the outcome without blocking.
func (h *Handle) Poll() (Outcome, bool) {
	select {
	case <-h.done:
		return h.outcome, true
	default:
		return Outcome{}, false
	}
}

// Wait blocks until the outcome is ready or ctx is done.
func (h *Handle) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-h.done:
		return h.outcome, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}
