package pipeline

// EventKind tags one entry of a progress stream.
type EventKind string

const (
	EventProgress EventKind = "progress"
	EventDone     EventKind = "done"
	EventFailed   EventKind = "failed"
)

// An Event is one element of an install's progress stream. Progress
// events carry a fraction in [0,1]; terminal events may carry an
// error.
type Event struct {
	Kind     EventKind
	Progress float64
	Err      error
}

// ProgressSink feeds a single subscriber through a bounded channel.
// Intermediate progress values are advisory and get dropped when the
// subscriber lags; the one terminal event is always delivered.
type ProgressSink struct {
	ch     chan Event
	closed bool
}

func NewProgressSink() *ProgressSink {
	return &ProgressSink{
		// room for a few intermediate values plus the terminal event
		ch: make(chan Event, 16),
	}
}

// Events is the subscriber side. It is closed after the terminal
// event is delivered.
func (ps *ProgressSink) Events() <-chan Event {
	return ps.ch
}

// Publish offers a progress value. If the subscriber is not keeping
// up, the value is dropped.
func (ps *ProgressSink) Publish(progress float64) {
	if ps.closed {
		return
	}

	// the last buffer slot is reserved for the terminal event
	if len(ps.ch) >= cap(ps.ch)-1 {
		return
	}
	select {
	case ps.ch <- Event{Kind: EventProgress, Progress: progress}:
	default:
		// coalesced
	}
}

// Done delivers the terminal success event into the reserved buffer
// slot and closes the stream. It never blocks.
func (ps *ProgressSink) Done() {
	ps.terminal(Event{Kind: EventDone, Progress: 1})
}

// Fail delivers the terminal failure event into the reserved buffer
// slot and closes the stream. It never blocks.
func (ps *ProgressSink) Fail(err error) {
	ps.terminal(Event{Kind: EventFailed, Err: err})
}

func (ps *ProgressSink) terminal(ev Event) {
	if ps.closed {
		return
	}
	ps.closed = true
	ps.ch <- ev
	close(ps.ch)
}
