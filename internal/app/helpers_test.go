package app

import (
	"context"
	"sync"
	"time"

	"github.com/compresr/glm-usage-monitor/internal/usage"
)

var epoch = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

// fakeClock is a manually advanced clock, safe for concurrent reads.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: epoch}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeFetcher counts calls and tracks how many run at once.
type fakeFetcher struct {
	mu        sync.Mutex
	calls     int
	active    int
	maxActive int
	ids       []string

	fn func(ctx context.Context, call int) (*usage.Snapshot, error)
}

func (f *fakeFetcher) Fetch(ctx context.Context) (*usage.Snapshot, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.active++
	if f.active > f.maxActive {
		f.maxActive = f.active
	}
	f.ids = append(f.ids, usage.AttemptID(ctx))
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()
	return f.fn(ctx, call)
}

func (f *fakeFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeFetcher) MaxActive() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxActive
}

// snapshotsAt returns a fetcher whose snapshots are stamped with clock.
func snapshotsAt(clock *fakeClock) *fakeFetcher {
	return &fakeFetcher{fn: func(ctx context.Context, call int) (*usage.Snapshot, error) {
		return &usage.Snapshot{Plan: "pro", FetchedAt: clock.Now()}, nil
	}}
}

// hungAfter returns a fetcher that succeeds for the first n calls and then
// blocks, ignoring its context, until release is closed.
func hungAfter(n int, clock *fakeClock, release <-chan struct{}) *fakeFetcher {
	return &fakeFetcher{fn: func(ctx context.Context, call int) (*usage.Snapshot, error) {
		if call <= n {
			return &usage.Snapshot{Plan: "pro", FetchedAt: clock.Now()}, nil
		}
		<-release
		return nil, context.Canceled
	}}
}

// recordingRenderer captures every frame.
type recordingRenderer struct {
	frames chan View
	err    error
}

func newRecordingRenderer() *recordingRenderer {
	return &recordingRenderer{frames: make(chan View, 128)}
}

func (r *recordingRenderer) Render(v View) error {
	if r.err != nil {
		return r.err
	}
	r.frames <- v
	return nil
}

func snap(at time.Time) *usage.Snapshot {
	return &usage.Snapshot{FetchedAt: at}
}
