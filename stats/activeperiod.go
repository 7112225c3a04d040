// Package stats implements the shifting-bottleneck detector and the
// per-replication output aggregation (spec.md §4.11 and §6), grounded on
// original_source/{activeperiod,shiftingbottleneckdetector,output}.h.
package stats

import "github.com/flowsim/flowsim/engine"

// ActivePeriod is a single continuous interval during which a node was
// active (Working or Setup, uninterrupted), grounded exactly on the
// {start, end, first_cutoff, last_cutoff, open_end, safe_to_discard, node}
// record from spec.md §3.
type ActivePeriod struct {
	Node           int
	Start          engine.SimTime
	End            engine.SimTime
	FirstCutoff    engine.SimTime
	LastCutoff     engine.SimTime
	OpenEnd        bool
	SafeToDiscard  bool
}

func (p *ActivePeriod) Duration() engine.SimTime {
	if p.OpenEnd {
		return 0
	}
	return p.End - p.Start
}

// overlaps reports whether p and q share any instant.
func (p *ActivePeriod) overlaps(q *ActivePeriod) bool {
	pEnd, qEnd := p.End, q.End
	if p.OpenEnd {
		pEnd = q.End + 1
	}
	if q.OpenEnd {
		qEnd = p.End + 1
	}
	return p.Start < qEnd && q.Start < pEnd
}

// Tracker records ActivePeriods per node and computes the shifting-
// bottleneck attribution (spec.md §4.11).
type Tracker struct {
	periods []*ActivePeriod
	open    map[int]*ActivePeriod

	soleTotals     map[int]engine.SimTime
	shiftingTotals map[int]engine.SimTime
}

func NewTracker() *Tracker {
	return &Tracker{
		open:           map[int]*ActivePeriod{},
		soleTotals:     map[int]engine.SimTime{},
		shiftingTotals: map[int]engine.SimTime{},
	}
}

// BeginActive opens a new active period for node at now, unless one is
// already open.
func (t *Tracker) BeginActive(node int, now engine.SimTime) {
	if _, ok := t.open[node]; ok {
		return
	}
	t.open[node] = &ActivePeriod{Node: node, Start: now, OpenEnd: true}
}

// EndActive closes node's currently-open active period at now (spec.md
// §4.11's Node.end_active_period), recomputing overlap attribution
// incrementally (the "online mode").
func (t *Tracker) EndActive(node int, now engine.SimTime, openEnd bool) {
	p, ok := t.open[node]
	if !ok {
		return
	}
	p.End = now
	p.OpenEnd = openEnd
	delete(t.open, node)
	t.periods = append(t.periods, p)
	t.attribute(p)
}

// attribute assigns p's duration to sole or shifting bottleneck buckets by
// checking overlap against every other closed period (spec.md §4.11: "the
// node with the longest active period is sole; overlapping concurrent
// periods are shifting").
func (t *Tracker) attribute(p *ActivePeriod) {
	overlapsAny := false
	for _, q := range t.periods {
		if q == p || q.Node == p.Node {
			continue
		}
		if p.overlaps(q) {
			overlapsAny = true
			break
		}
	}
	d := p.Duration()
	if overlapsAny {
		t.shiftingTotals[p.Node] += d
	} else {
		t.soleTotals[p.Node] += d
	}
}

// Recompute discards incremental results and recomputes sole/shifting
// totals from scratch over every recorded period (spec.md §4.11's
// end-of-run mode).
func (t *Tracker) Recompute() {
	t.soleTotals = map[int]engine.SimTime{}
	t.shiftingTotals = map[int]engine.SimTime{}
	for _, p := range t.periods {
		t.attribute(p)
	}
}

func (t *Tracker) SoleBottleneckTime(node int) engine.SimTime     { return t.soleTotals[node] }
func (t *Tracker) ShiftingBottleneckTime(node int) engine.SimTime { return t.shiftingTotals[node] }
func (t *Tracker) TotalBottleneckTime(node int) engine.SimTime {
	return t.soleTotals[node] + t.shiftingTotals[node]
}

// Bottleneck returns the node with the greatest total bottleneck time,
// per spec.md §4.11.
func (t *Tracker) Bottleneck() (node int, total engine.SimTime, found bool) {
	seen := map[int]bool{}
	for n := range t.soleTotals {
		seen[n] = true
	}
	for n := range t.shiftingTotals {
		seen[n] = true
	}
	best := -1
	var bestTotal engine.SimTime
	for n := range seen {
		tot := t.TotalBottleneckTime(n)
		if best == -1 || tot > bestTotal {
			best, bestTotal = n, tot
		}
	}
	if best == -1 {
		return 0, 0, false
	}
	return best, bestTotal, true
}
