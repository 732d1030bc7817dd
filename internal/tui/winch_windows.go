//go:build windows

package tui

// watchResize is a no-op on Windows; the renderer re-reads the size every
// frame, so resizes still show up on the next tick.
func (t *Terminal) watchResize() {}
