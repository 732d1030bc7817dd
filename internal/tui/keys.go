package tui

import "github.com/compresr/glm-usage-monitor/internal/app"

const (
	keyCtrlC  = 0x03
	keyEscape = 0x1b
)

// decodeKeys maps raw input bytes to events. q, Q, Esc and Ctrl-C quit;
// r and R refresh. Escape sequences (arrows, function keys) are skipped so
// they are not mistaken for a bare Esc.
func decodeKeys(b []byte) []app.Event {
	var events []app.Event
	for i := 0; i < len(b); i++ {
		switch b[i] {
		case 'q', 'Q', keyCtrlC:
			events = append(events, app.EventQuit)
		case 'r', 'R':
			events = append(events, app.EventRefresh)
		case keyEscape:
			if i+1 < len(b) && (b[i+1] == '[' || b[i+1] == 'O') {
				i = skipSequence(b, i+1)
				continue
			}
			events = append(events, app.EventQuit)
		}
	}
	return events
}

// skipSequence returns the index of the final byte of the sequence whose
// introducer ('[' or 'O') is at i.
func skipSequence(b []byte, i int) int {
	if b[i] == 'O' {
		if i+1 < len(b) {
			return i + 1
		}
		return i
	}
	for j := i + 1; j < len(b); j++ {
		if b[j] >= 0x40 && b[j] <= 0x7e {
			return j
		}
	}
	return len(b) - 1
}
