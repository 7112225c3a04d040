package engine

// Event is a scheduled unit of work. Time and Priority are set once at
// schedule time and must not change afterward (spec.md §3 invariant); the
// queue position (heapIndex) is the only mutable bookkeeping field owned by
// the queue itself. Run is the event's process() effect: a closure over
// whatever node/logic state it needs to touch, keeping engine free of any
// dependency on model/, nodes/, or logic/.
type Event struct {
	Time        SimTime
	Priority    Priority
	SubPriority float64
	Kind        EventKind
	Sender      string
	Receiver    string

	// Note is a free-form annotation attachable to a breakpoint-eligible
	// event (spec.md §6's supplemented Note/EventInfo, grounded on
	// original_source/{note,eventinfo}.h), surfaced through Info().
	Note string

	Run func()

	order float64 // insertion-order tiebreaker; lower runs first

	canceled          bool
	breakpoint        bool
	breakpointStopped bool
	skipBreakpoint    bool

	heapIndex int
}

// NewEvent constructs an event whose Time is filled in by the queue at
// schedule time.
func NewEvent(kind EventKind, priority Priority, sender, receiver string, run func()) *Event {
	return &Event{Kind: kind, Priority: priority, Sender: sender, Receiver: receiver, Run: run}
}

// Canceled reports whether the event has been flagged canceled. Canceled
// events are never removed from the queue (spec.md §4.1); when popped their
// Run is skipped.
func (e *Event) Canceled() bool { return e.canceled }

// Cancel flags the event as canceled without touching queue structure.
func (e *Event) Cancel() { e.canceled = true }

// SetBreakpoint enables per-event breakpoint checking on this instance.
func (e *Event) SetBreakpoint(v bool) { e.breakpoint = v }

func (e *Event) Breakpoint() bool { return e.breakpoint }

// Info returns this event's annotation, or its Kind if none was set,
// matching the reference event.info() default.
func (e *Event) Info() string {
	if e.Note != "" {
		return e.Note
	}
	return string(e.Kind)
}

// BreakpointStopped reports whether the last Step() halted on this event.
func (e *Event) BreakpointStopped() bool { return e.breakpointStopped }

// less orders events by the lexicographic key from spec.md §8:
// (time, priority, sub_priority, insertion order).
func (e *Event) less(o *Event) bool {
	if e.Time != o.Time {
		return e.Time < o.Time
	}
	if e.Priority != o.Priority {
		return e.Priority < o.Priority
	}
	if e.SubPriority != o.SubPriority {
		return e.SubPriority < o.SubPriority
	}
	return e.order < o.order
}
