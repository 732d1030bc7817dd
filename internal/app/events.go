package app

// Event is a discrete input delivered to the runtime.
type Event int

const (
	EventQuit Event = iota + 1
	EventRefresh
	EventResize
)

func (e Event) String() string {
	switch e {
	case EventQuit:
		return "quit"
	case EventRefresh:
		return "refresh"
	case EventResize:
		return "resize"
	default:
		return "unknown"
	}
}
