package tui

// ANSI escape sequences used by the renderer.
const (
	ColorReset  = "\033[0m"
	ColorBold   = "\033[1m"
	ColorDim    = "\033[2m"
	ColorRed    = "\033[0;31m"
	ColorGreen  = "\033[0;32m"
	ColorYellow = "\033[0;33m"
	ColorCyan   = "\033[0;36m"
)

// Cursor and screen control.
const (
	escHome         = "\033[H"
	escClearLine    = "\033[K"
	escClearBelow   = "\033[J"
	escAltScreenOn  = "\033[?1049h"
	escAltScreenOff = "\033[?1049l"
	escHideCursor   = "\033[?25l"
	escShowCursor   = "\033[?25h"
)
