package model

import "github.com/flowsim/flowsim/engine"

// State enumerates the discrete occupation states a node can be in, in the
// exact order defined by original_source/node.h's State enum. No code
// compares states by this order: a node holds a single state, and the most
// recent SetState call decides it, so a node that is both paused and failed
// reports whichever of the two was set last.
type State int

const (
	Unplanned State = iota
	Paused
	Failed
	Waiting
	Working
	Travelling
	Blocked
	Setup
	WaitingForResource
)

func (s State) String() string {
	switch s {
	case Unplanned:
		return "Unplanned"
	case Paused:
		return "Paused"
	case Failed:
		return "Failed"
	case Waiting:
		return "Waiting"
	case Working:
		return "Working"
	case Travelling:
		return "Travelling"
	case Blocked:
		return "Blocked"
	case Setup:
		return "Setup"
	case WaitingForResource:
		return "WaitingForResource"
	default:
		return "Unknown"
	}
}

// StateChangeHandler observes a node transitioning between two states,
// mirroring node.h's state_changed Signal.
type StateChangeHandler func(n *NodeBase, from, to State)

// NodeBase is the shared occupation/state-machine plumbing every concrete
// node (Source, Sink, Buffer, Operation, ...) embeds, grounded on
// original_source/node.h. Rather than the original's virtual-dispatch
// class hierarchy, concrete node types compose NodeBase and implement the
// thin Node interface's capability methods directly (spec.md §9's
// "sum types + capability traits" note).
type NodeBase struct {
	ID   NodeID
	Name string

	state       State
	empty       bool
	lastChanged engine.SimTime

	// perState accumulates observed time in each state, updated by Observe
	// immediately before every mutation (node.h's "add elapsed time to the
	// prior state counter before changing state" pattern).
	perState [WaitingForResource + 1]engine.SimTime

	soleBottleneck     engine.SimTime
	shiftingBottleneck engine.SimTime

	onStateChanged []StateChangeHandler

	batchID uint
}

// NewNodeBase creates a node in the Unplanned, empty state.
func NewNodeBase(id NodeID, name string) *NodeBase {
	return &NodeBase{ID: id, Name: name, state: Unplanned, empty: true}
}

// State returns the current occupation state.
func (n *NodeBase) State() State { return n.state }

// Empty reports the orthogonal "no entity currently occupying" flag.
func (n *NodeBase) Empty() bool { return n.empty }

// SetEmpty flips the empty flag; it does not itself trigger a state change.
func (n *NodeBase) SetEmpty(v bool) { n.empty = v }

// observe folds elapsed time since the last transition into the counter for
// the state being left, per node.h's convention of observing before
// mutating.
func (n *NodeBase) observe(now engine.SimTime) {
	if now > n.lastChanged {
		n.perState[n.state] += now - n.lastChanged
	}
	n.lastChanged = now
}

// SetState transitions to a new state at time now, observing elapsed time
// into the outgoing state's counter first and firing OnStateChanged
// handlers. A no-op if to equals the current state.
func (n *NodeBase) SetState(now engine.SimTime, to State) {
	if to == n.state {
		return
	}
	n.observe(now)
	from := n.state
	n.state = to
	for _, h := range n.onStateChanged {
		h(n, from, to)
	}
}

// OnStateChanged registers a state_changed observer.
func (n *NodeBase) OnStateChanged(h StateChangeHandler) {
	n.onStateChanged = append(n.onStateChanged, h)
}

// TimeIn returns the accumulated observed time in state s as of now
// (folding in any not-yet-observed interval if s is the current state).
func (n *NodeBase) TimeIn(now engine.SimTime, s State) engine.SimTime {
	t := n.perState[s]
	if s == n.state && now > n.lastChanged {
		t += now - n.lastChanged
	}
	return t
}

func (n *NodeBase) WaitingTime(now engine.SimTime) engine.SimTime  { return n.TimeIn(now, Waiting) }
func (n *NodeBase) WorkingTime(now engine.SimTime) engine.SimTime  { return n.TimeIn(now, Working) }
func (n *NodeBase) BlockedTime(now engine.SimTime) engine.SimTime  { return n.TimeIn(now, Blocked) }
func (n *NodeBase) SetupTime(now engine.SimTime) engine.SimTime    { return n.TimeIn(now, Setup) }
func (n *NodeBase) FailedTime(now engine.SimTime) engine.SimTime   { return n.TimeIn(now, Failed) }
func (n *NodeBase) UnplannedTime(now engine.SimTime) engine.SimTime { return n.TimeIn(now, Unplanned) }
func (n *NodeBase) PausedTime(now engine.SimTime) engine.SimTime  { return n.TimeIn(now, Paused) }
func (n *NodeBase) TravellingTime(now engine.SimTime) engine.SimTime {
	return n.TimeIn(now, Travelling)
}
func (n *NodeBase) WaitingForResourceTime(now engine.SimTime) engine.SimTime {
	return n.TimeIn(now, WaitingForResource)
}

// IsOperational reports whether the node is neither Unplanned, Paused, nor
// Failed (node.h's is_operational).
func (n *NodeBase) IsOperational() bool {
	return n.state != Unplanned && n.state != Paused && n.state != Failed
}

// IsActive reports whether the node is doing productive work: Working or
// Setup (node.h's is_active, used by shifting-bottleneck attribution).
func (n *NodeBase) IsActive() bool {
	return n.state == Working || n.state == Setup
}

// AddSoleBottleneck / AddShiftingBottleneck accumulate the two ActivePeriod
// ledgers spec.md §7 requires for bottleneck attribution.
func (n *NodeBase) AddSoleBottleneck(d engine.SimTime)     { n.soleBottleneck += d }
func (n *NodeBase) AddShiftingBottleneck(d engine.SimTime) { n.shiftingBottleneck += d }
func (n *NodeBase) SoleBottleneckTime() engine.SimTime     { return n.soleBottleneck }
func (n *NodeBase) ShiftingBottleneckTime() engine.SimTime { return n.shiftingBottleneck }
func (n *NodeBase) TotalBottleneckTime() engine.SimTime {
	return n.soleBottleneck + n.shiftingBottleneck
}

// SetBatchID / BatchID track which batch (spec.md §6's Batch logic) this
// node's current run belongs to, used to decide when a setup can be skipped.
func (n *NodeBase) SetBatchID(id uint) { n.batchID = id }
func (n *NodeBase) BatchID() uint      { return n.batchID }

// ResetStats zeroes accumulated per-state and bottleneck counters, called at
// the ResetStats event (spec.md §6's PriorityResetStats) to discard warmup
// data.
func (n *NodeBase) ResetStats(now engine.SimTime) {
	for i := range n.perState {
		n.perState[i] = 0
	}
	n.lastChanged = now
	n.soleBottleneck = 0
	n.shiftingBottleneck = 0
}

// Node is the thin capability surface engine-driven code needs from any
// concrete node type — deliberately small so Source/Sink/Buffer/Operation/
// etc. don't have to satisfy an oversized interface (spec.md §9's
// "capability traits instead of a virtual base class" note).
type Node interface {
	NodeID() NodeID
	NodeName() string
}

func (n *NodeBase) NodeID() NodeID    { return n.ID }
func (n *NodeBase) NodeName() string { return n.Name }
