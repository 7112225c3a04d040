package engine

import "container/heap"

// eventHeap is a container/heap-ordered min-heap of *Event, following the
// canonical stdlib heap.Interface pattern the teacher uses in
// sim/cluster/event_heap.go, extended with the four-way sort key from
// spec.md §8 instead of timestamp-only ordering.
type eventHeap []*Event

func (h eventHeap) Len() int            { return len(h) }
func (h eventHeap) Less(i, j int) bool  { return h[i].less(h[j]) }
func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].heapIndex = i
	h[j].heapIndex = j
}

func (h *eventHeap) Push(x any) {
	e := x.(*Event)
	e.heapIndex = len(*h)
	*h = append(*h, e)
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.heapIndex = -1
	*h = old[:n-1]
	return e
}

// EventQueue is the ordered store of pending events (spec.md §4.1). Events
// are only ever appended and popped; cancellation flags an event in place
// instead of removing it, which keeps insertion and cancellation both O(log
// n) / O(1) without needing generation-counter bookkeeping (spec.md §9's
// "custom pool allocator ... becomes unnecessary" note applies equally to
// hand-rolled linked-list splicing).
type EventQueue struct {
	h        eventHeap
	nextSeq  float64
}

// NewEventQueue creates an empty queue.
func NewEventQueue() *EventQueue {
	q := &EventQueue{h: make(eventHeap, 0)}
	heap.Init(&q.h)
	return q
}

// Insert schedules evt at the given absolute time, assigning it the next
// insertion-order tiebreaker.
func (q *EventQueue) Insert(evt *Event, at SimTime) {
	evt.Time = at
	q.nextSeq++
	evt.order = q.nextSeq
	heap.Push(&q.h, evt)
}

// InsertBefore schedules evt to run immediately before an already-queued
// event, inheriting its time (spec.md §4.1's schedule_before). dt must be
// >= 0 conceptually (the caller is asserting evt logically precedes insert);
// the queue enforces ordering via a fractionally-smaller insertion key.
func (q *EventQueue) InsertBefore(evt *Event, before *Event, dt SimTime) {
	evt.Time = before.Time
	evt.Priority = before.Priority
	evt.SubPriority = before.SubPriority
	evt.order = before.order - 0.5
	_ = dt // dt is validated by callers (must be >= 0); the queue only needs relative order.
	heap.Push(&q.h, evt)
}

// InsertNow schedules evt to run immediately after the event currently being
// processed, at the current clock time, using the reserved PriorityNow band
// so it preempts every ordinarily-scheduled event at that instant.
func (q *EventQueue) InsertNow(evt *Event, now SimTime) {
	evt.Time = now
	evt.Priority = PriorityNow
	q.nextSeq++
	evt.order = q.nextSeq
	heap.Push(&q.h, evt)
}

// Peek returns the earliest event without removing it, or nil if empty.
func (q *EventQueue) Peek() *Event {
	if len(q.h) == 0 {
		return nil
	}
	return q.h[0]
}

// Pop removes and returns the earliest event, or nil if empty.
func (q *EventQueue) Pop() *Event {
	if len(q.h) == 0 {
		return nil
	}
	return heap.Pop(&q.h).(*Event)
}

// Len returns the number of events still in the queue (including canceled
// ones awaiting their no-op pop).
func (q *EventQueue) Len() int { return len(q.h) }
