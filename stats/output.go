package stats

import "github.com/flowsim/flowsim/engine"

// PerVariant holds the aggregate counters spec.md §3 attaches to a Variant:
// exits, cycle-time, throughput, WIP.
type PerVariant struct {
	Name          string
	Exits         uint64
	CycleTimeSum  engine.SimTime
	WIPTimeSum    engine.SimTime
}

func (v *PerVariant) MeanCycleTime() engine.SimTime {
	if v.Exits == 0 {
		return 0
	}
	return v.CycleTimeSum / engine.SimTime(v.Exits)
}

// RecordExit folds one completed entity's cycle time into the running mean.
func (v *PerVariant) RecordExit(cycleTime engine.SimTime) {
	v.Exits++
	v.CycleTimeSum += cycleTime
}

// PerNode holds per-node output values: state-time breakdown and
// bottleneck attribution, gathered at the end of a replication (spec.md §6).
type PerNode struct {
	Name                string
	WaitingTime         engine.SimTime
	WorkingTime         engine.SimTime
	BlockedTime         engine.SimTime
	SetupTime           engine.SimTime
	FailedTime          engine.SimTime
	UnplannedTime       engine.SimTime
	PausedTime          engine.SimTime
	TravellingTime      engine.SimTime
	WaitingForResourceTime engine.SimTime
	SoleBottleneckTime  engine.SimTime
	ShiftingBottleneckTime engine.SimTime
}

func (n *PerNode) TotalBottleneckTime() engine.SimTime {
	return n.SoleBottleneckTime + n.ShiftingBottleneckTime
}

// Replication is one run's captured outputs (spec.md §4.1's "capture
// per-replication outputs" step of run(horizon, n)).
type Replication struct {
	Index    int
	Horizon  engine.SimTime
	Variants map[string]*PerVariant
	Nodes    map[string]*PerNode
}

func NewReplication(index int, horizon engine.SimTime) *Replication {
	return &Replication{Index: index, Horizon: horizon, Variants: map[string]*PerVariant{}, Nodes: map[string]*PerNode{}}
}

func (r *Replication) Variant(name string) *PerVariant {
	v, ok := r.Variants[name]
	if !ok {
		v = &PerVariant{Name: name}
		r.Variants[name] = v
	}
	return v
}

func (r *Replication) Node(name string) *PerNode {
	n, ok := r.Nodes[name]
	if !ok {
		n = &PerNode{Name: name}
		r.Nodes[name] = n
	}
	return n
}

// EntityTimer records how long an individual entity has spent in the model
// and, optionally, a breadcrumb trail of node visits (spec.md §6's
// SUPPLEMENTED "EntityTime/LogBuffer" feature, grounded on
// original_source/entitytime.h).
type EntityTimer struct {
	EntityID uint64
	Enter    engine.SimTime
	visits   []Visit
}

// Visit is one node-arrival breadcrumb.
type Visit struct {
	Node string
	At   engine.SimTime
}

func NewEntityTimer(entityID uint64, enter engine.SimTime) *EntityTimer {
	return &EntityTimer{EntityID: entityID, Enter: enter}
}

func (t *EntityTimer) Record(node string, at engine.SimTime) {
	t.visits = append(t.visits, Visit{Node: node, At: at})
}

func (t *EntityTimer) Visits() []Visit { return t.visits }

func (t *EntityTimer) CycleTime(now engine.SimTime) engine.SimTime { return now - t.Enter }

// LogBuffer is a bounded ring of recent trace lines, grounded on
// original_source/logbuffer.h — used for post-mortem inspection without
// unbounded memory growth across a long run.
type LogBuffer struct {
	capacity int
	lines    []string
	next     int
	full     bool
}

func NewLogBuffer(capacity int) *LogBuffer {
	return &LogBuffer{capacity: capacity, lines: make([]string, capacity)}
}

func (b *LogBuffer) Append(line string) {
	if b.capacity == 0 {
		return
	}
	b.lines[b.next] = line
	b.next = (b.next + 1) % b.capacity
	if b.next == 0 {
		b.full = true
	}
}

// Lines returns the buffered lines in chronological order.
func (b *LogBuffer) Lines() []string {
	if !b.full {
		return append([]string(nil), b.lines[:b.next]...)
	}
	out := make([]string, 0, b.capacity)
	out = append(out, b.lines[b.next:]...)
	out = append(out, b.lines[:b.next]...)
	return out
}

// TransitionLog records every node state_changed observation, grounded on
// spec.md §6's SUPPLEMENTED "Note/EventInfo" feature (original_source's
// note.h + eventinfo.h): a lightweight structured trace independent of the
// logrus text log, meant for programmatic post-run analysis.
type TransitionLog struct {
	entries []Transition
}

type Transition struct {
	Time engine.SimTime
	Node string
	From string
	To   string
	Note string
}

func (l *TransitionLog) Append(now engine.SimTime, node, from, to, note string) {
	l.entries = append(l.entries, Transition{Time: now, Node: node, From: from, To: to, Note: note})
}

func (l *TransitionLog) Entries() []Transition { return l.entries }
