package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/compresr/glm-usage-monitor/internal/config"
	"github.com/compresr/glm-usage-monitor/internal/monitoring"
)

// Renderer draws one frame. It must not hold on to the View past the call.
type Renderer interface {
	Render(View) error
}

// View is the read-only data handed to the renderer each tick.
type View struct {
	State   State
	Now     time.Time
	Metrics monitoring.Summary
}

// Refreshing reports whether a fetch is outstanding.
func (v View) Refreshing() bool {
	return v.State.InFlight
}

// Settings are the runtime timings, fixed at construction.
type Settings struct {
	RefreshInterval time.Duration
	HTTPTimeout     time.Duration
	TickRate        time.Duration
	ShutdownGrace   time.Duration
}

// SettingsFromConfig builds Settings from a loaded config and a tick rate.
func SettingsFromConfig(cfg *config.Config, tickRate time.Duration) Settings {
	return Settings{
		RefreshInterval: cfg.RefreshInterval(),
		HTTPTimeout:     cfg.HTTPTimeout(),
		TickRate:        tickRate,
	}
}

func (s *Settings) applyDefaults() {
	if s.RefreshInterval <= 0 {
		s.RefreshInterval = config.DefaultRefreshSec * time.Second
	}
	if s.HTTPTimeout <= 0 {
		s.HTTPTimeout = config.DefaultHTTPTimeoutSec * time.Second
	}
	if s.TickRate <= 0 {
		s.TickRate = config.DefaultTickRate
	}
	if s.ShutdownGrace <= 0 {
		s.ShutdownGrace = config.DefaultShutdownGrace
	}
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithClock replaces time.Now. Used by tests to drive the schedule.
func WithClock(clock func() time.Time) Option {
	return func(r *Runtime) {
		r.clock = clock
	}
}

// WithTicks replaces the internal ticker. The loop ends when ticks closes.
func WithTicks(ticks <-chan time.Time) Option {
	return func(r *Runtime) {
		r.ticks = ticks
	}
}

// WithMetrics records refresh metrics and shows them in every View.
func WithMetrics(m *monitoring.RefreshMetrics) Option {
	return func(r *Runtime) {
		r.metrics = m
	}
}

// =============================================================================
// RUNTIME
// =============================================================================

// Runtime owns the application state and the tick loop.
type Runtime struct {
	settings  Settings
	fetcher   Fetcher
	renderer  Renderer
	events    <-chan Event
	clock     func() time.Time
	ticks     <-chan time.Time
	metrics   *monitoring.RefreshMetrics
	scheduler *Scheduler

	state   State
	pending *Handle

	fetchCtx    context.Context
	cancelFetch context.CancelFunc
}

// New builds a runtime in the Running phase with no snapshot, no error and
// nothing in flight. events may be nil.
func New(settings Settings, fetcher Fetcher, renderer Renderer, events <-chan Event, opts ...Option) *Runtime {
	settings.applyDefaults()

	r := &Runtime{
		settings: settings,
		fetcher:  fetcher,
		renderer: renderer,
		events:   events,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.scheduler = NewScheduler(fetcher, r.metrics, r.clock)
	r.state = NewState(settings.RefreshInterval, settings.HTTPTimeout)
	r.fetchCtx, r.cancelFetch = context.WithCancel(context.Background())
	return r
}

// State returns a copy of the current state. Only call it while Run is not
// executing.
func (r *Runtime) State() State {
	return r.state
}

// Run performs the initial refresh, renders the first frame and then steps
// once per tick until a quit event, ctx cancellation or a render error.
// The caller restores the terminal afterwards.
func (r *Runtime) Run(ctx context.Context) error {
	// Fetches outlive ctx by at most the shutdown grace period.
	r.cancelFetch()
	r.fetchCtx, r.cancelFetch = context.WithCancel(context.WithoutCancel(ctx))
	defer r.cancelFetch()

	log.Info().
		Dur("refresh_interval", r.settings.RefreshInterval).
		Dur("http_timeout", r.settings.HTTPTimeout).
		Dur("tick_rate", r.settings.TickRate).
		Msg("runtime: starting")

	if !r.prime(ctx) {
		r.shutdown()
		return nil
	}
	if err := r.render(r.clock()); err != nil {
		r.shutdown()
		return err
	}

	ticks := r.ticks
	if ticks == nil {
		ticker := time.NewTicker(r.settings.TickRate)
		defer ticker.Stop()
		ticks = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("runtime: context canceled")
			r.shutdown()
			return nil
		case _, ok := <-ticks:
			if !ok {
				r.shutdown()
				return nil
			}
			stop, err := r.step(r.clock())
			if err != nil {
				r.shutdown()
				return err
			}
			if stop {
				return nil
			}
		}
	}
}

// prime runs the initial refresh and waits for it, so the first frame shows
// either data or the error. The wait is bounded by the HTTP timeout.
// Returns false when a quit arrived first.
func (r *Runtime) prime(ctx context.Context) bool {
	r.start(r.clock())
	for {
		select {
		case <-r.pending.Done():
			r.drainOutcome()
			return true
		case <-ctx.Done():
			log.Info().Msg("runtime: canceled during initial refresh")
			return false
		case ev, ok := <-r.events:
			if !ok {
				r.events = nil
				continue
			}
			if ev == EventQuit {
				log.Info().Msg("runtime: quit during initial refresh")
				return false
			}
		}
	}
}

// step is one loop iteration. It returns true once the runtime has stopped.
func (r *Runtime) step(now time.Time) (bool, error) {
	r.drainOutcome()

	forced := r.drainEvents()
	if r.state.Phase == PhaseTerminating {
		r.shutdown()
		return true, nil
	}

	if r.state.Due(now, forced) {
		r.start(now)
	} else if forced {
		log.Debug().Msg("runtime: manual refresh ignored, fetch in flight")
	}

	return false, r.render(now)
}

func (r *Runtime) start(now time.Time) {
	r.state, r.pending = r.scheduler.Start(r.fetchCtx, r.state, now)
}

func (r *Runtime) drainOutcome() {
	if r.pending == nil {
		return
	}
	o, ok := r.pending.Poll()
	if !ok {
		return
	}
	r.pending = nil
	r.state = Complete(r.state, o)
}

// drainEvents consumes every queued event and reports whether a manual
// refresh was requested.
func (r *Runtime) drainEvents() bool {
	forced := false
	for {
		select {
		case ev, ok := <-r.events:
			if !ok {
				r.events = nil
				return forced
			}
			switch ev {
			case EventQuit:
				log.Info().Msg("runtime: quit received")
				r.state.Phase = PhaseTerminating
				return forced
			case EventRefresh:
				forced = true
			case EventResize:
				log.Debug().Msg("runtime: terminal resized")
			}
		default:
			return forced
		}
	}
}

func (r *Runtime) render(now time.Time) error {
	view := View{
		State:   r.state,
		Now:     now,
		Metrics: r.metrics.Summary(),
	}
	if err := r.renderer.Render(view); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	return nil
}

// shutdown stops scheduling, gives an outstanding fetch the grace period
// to finish, then cancels it.
func (r *Runtime) shutdown() {
	if r.state.Phase == PhaseStopped {
		return
	}
	r.state.Phase = PhaseTerminating

	if r.pending != nil {
		graceCtx, cancel := context.WithTimeout(context.Background(), r.settings.ShutdownGrace)
		o, err := r.pending.Wait(graceCtx)
		cancel()

		if err != nil {
			log.Warn().
				Uint64("attempt", r.pending.Attempt()).
				Msg("runtime: abandoning in-flight fetch")
		} else {
			r.state = Complete(r.state, o)
		}
		r.pending = nil
	}

	r.cancelFetch()
	r.state.Phase = PhaseStopped
	log.Info().Msg("runtime: stopped")
}
