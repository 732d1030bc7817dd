package tui

import (
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/term"

	"github.com/compresr/glm-usage-monitor/internal/app"
)

// eventBuffer is how many input events may queue between two ticks.
const eventBuffer = 16

// Terminal puts the TTY in raw mode on the alternate screen and turns key
// presses and resizes into app events.
type Terminal struct {
	in       *os.File
	out      *os.File
	oldState *term.State

	events chan app.Event
	done   chan struct{}

	closeOnce sync.Once
}

// OpenTerminal switches in to raw mode and out to the alternate screen.
// Close restores both.
func OpenTerminal(in, out *os.File) (*Terminal, error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) || !term.IsTerminal(int(out.Fd())) {
		return nil, fmt.Errorf("not a terminal")
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("enter raw mode: %w", err)
	}

	t := &Terminal{
		in:       in,
		out:      out,
		oldState: oldState,
		events:   make(chan app.Event, eventBuffer),
		done:     make(chan struct{}),
	}

	if _, err := out.WriteString(escAltScreenOn + escHideCursor); err != nil {
		_ = term.Restore(fd, oldState)
		return nil, fmt.Errorf("prepare screen: %w", err)
	}

	go t.readLoop()
	t.watchResize()
	return t, nil
}

// Events delivers decoded input. Polled by the runtime once per tick.
func (t *Terminal) Events() <-chan app.Event {
	return t.events
}

// Size returns the output terminal size.
func (t *Terminal) Size() (width, height int, err error) {
	return term.GetSize(int(t.out.Fd()))
}

// Close leaves the alternate screen and restores the original TTY mode.
// Safe to call more than once.
func (t *Terminal) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.done)
		_, _ = t.out.WriteString(escShowCursor + escAltScreenOff)
		err = term.Restore(int(t.in.Fd()), t.oldState)
	})
	return err
}

// readLoop blocks on stdin. It cannot be interrupted, so after Close it
// lingers until the next key press or process exit.
func (t *Terminal) readLoop() {
	buf := make([]byte, 64)
	for {
		n, err := t.in.Read(buf)
		if err != nil {
			log.Debug().Err(err).Msg("tui: input closed")
			return
		}
		for _, ev := range decodeKeys(buf[:n]) {
			if !t.send(ev) {
				return
			}
		}
	}
}

// send queues ev. Refresh and resize events are dropped when the queue is
// full; a quit waits for room instead. Returns false once the terminal is
// closed.
func (t *Terminal) send(ev app.Event) bool {
	select {
	case <-t.done:
		return false
	default:
	}
	select {
	case t.events <- ev:
		return true
	default:
	}

	if ev != app.EventQuit {
		log.Debug().Str("event", ev.String()).Msg("tui: event queue full, dropping")
		return true
	}
	select {
	case t.events <- ev:
		return true
	case <-t.done:
		return false
	}
}
