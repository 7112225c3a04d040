package logic

import "github.com/flowsim/flowsim/engine"

// Takt synchronizes a named group of nodes so none of them releases an
// entity until every member has finished its own cycle, then advances the
// whole group together, paced to a shared CycleTime (grounded on takt.h's
// multi-station line-balancing barrier). ExceedTime/DeceedTime accumulate
// how far each barrier release ran over or under CycleTime, the group's
// own throughput signal independent of any single member's cycle time.
type Takt struct {
	Name      string
	CycleTime engine.SimTime
	Members   []string

	cycleStart engine.SimTime
	ready      map[string]bool

	exceedTime engine.SimTime
	deceedTime engine.SimTime
	cycles     int
}

func NewTakt(name string, cycleTime engine.SimTime, members []string) *Takt {
	return &Takt{Name: name, CycleTime: cycleTime, Members: members, ready: map[string]bool{}}
}

// StartCycle resets every member's readiness for a fresh barrier round at
// now.
func (t *Takt) StartCycle(now engine.SimTime) {
	t.cycleStart = now
	t.ready = map[string]bool{}
}

// MarkReady records that member finished its own processing at now,
// reporting whether every member has now checked in.
func (t *Takt) MarkReady(member string, now engine.SimTime) bool {
	if t.ready == nil {
		t.ready = map[string]bool{}
	}
	t.ready[member] = true
	return t.AllReady()
}

// AllReady reports whether every configured member has checked in this
// round.
func (t *Takt) AllReady() bool {
	if len(t.Members) == 0 {
		return false
	}
	for _, m := range t.Members {
		if !t.ready[m] {
			return false
		}
	}
	return true
}

// EndTime returns the round's target barrier-release time; the builder's
// scheduleTaktRelease holds the group's release until this time.
func (t *Takt) EndTime() engine.SimTime { return t.cycleStart + t.CycleTime }

// RecordCycle folds a completed barrier release at now into the exceed/
// deceed counters, comparing the round's actual elapsed time (bounded by
// the slowest member) against CycleTime.
func (t *Takt) RecordCycle(now engine.SimTime) {
	t.cycles++
	elapsed := now - t.cycleStart
	switch {
	case elapsed > t.CycleTime:
		t.exceedTime += elapsed - t.CycleTime
	case elapsed < t.CycleTime:
		t.deceedTime += t.CycleTime - elapsed
	}
}

func (t *Takt) ExceedTime() engine.SimTime { return t.exceedTime }
func (t *Takt) DeceedTime() engine.SimTime { return t.deceedTime }
func (t *Takt) Cycles() int                { return t.cycles }
