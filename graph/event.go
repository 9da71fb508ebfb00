package graph

// Event is produced by a run, in order. It is one of EventTextDelta,
// EventToolInvoked, EventInterrupt or EventError.
type Event interface {
	isEvent()
}

// EventTextDelta is a fragment of assistant text.
type EventTextDelta struct {
	Text string
}

// EventToolInvoked reports a finished tool call. Result holds the error text
// when the tool failed.
type EventToolInvoked struct {
	CallID string
	Name   string
	Result string
}

// EventInterrupt is raised when the run suspends on askHuman.
type EventInterrupt struct {
	CallID   string
	Question string
}

// EventError ends a stream that failed after preflight.
type EventError struct {
	Err error
}

func (EventTextDelta) isEvent()   {}
func (EventToolInvoked) isEvent() {}
func (EventInterrupt) isEvent()   {}
func (EventError) isEvent()       {}
