//go:build !windows

package tui

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/compresr/glm-usage-monitor/internal/app"
)

// watchResize turns SIGWINCH into EventResize until the terminal closes.
func (t *Terminal) watchResize() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGWINCH)
	go func() {
		defer signal.Stop(sig)
		for {
			select {
			case <-sig:
				if !t.send(app.EventResize) {
					return
				}
			case <-t.done:
				return
			}
		}
	}()
}
