// Package engine implements the simulation kernel: the time-priority event
// queue, the Event record, breakpoint filtering, and single-step/replication
// control (spec.md §4.1). It knows nothing about entities, nodes, or logics —
// those live in model/, resource/, nodes/, and logic/, and drive the kernel
// purely through Event.Run closures.
package engine

// SimTime is the kernel's notion of virtual time: a 64-bit IEEE 754 value in
// seconds, per spec.md §9 ("implementations must use a 64-bit IEEE 754
// simtime and a small tolerance for equality comparisons").
type SimTime float64

// Tolerance is the equality tolerance used for block-list timing comparisons
// and setup coalescing (spec.md §9).
const Tolerance SimTime = 0.00001

// Equal reports whether a and b are within Tolerance of each other.
func Equal(a, b SimTime) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < Tolerance
}
