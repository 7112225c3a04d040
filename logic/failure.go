// Package logic implements the node-attached behaviors layered on top of
// model/resource nodes: batching, work-in-progress limits, order/demand
// driven creation, takt pacing, shift calendars, and the failure subsystem
// (spec.md §5-§6). Grounded on original_source/{failure,shiftcalendar,
// batch,order,demand,takt}.h.
package logic

import (
	"github.com/flowsim/flowsim/engine"
	"github.com/flowsim/flowsim/numgen"
)

// TimeReference selects which clock a Failure's interval/duration are
// measured against, grounded exactly on common.h's
// enum FailureTimeReference { SIMULATION, PROCESSING, OPERATIONAL }.
type TimeReference int

const (
	Simulation TimeReference = iota
	Processing
	Operational
)

// Mode distinguishes the three ways a Failure's schedule can be specified
// (spec.md §4.5's Percent/Distributions/Cycles types), grounded on
// failure.h's set_availability_mttr / set_interval+set_duration /
// set_cycle_count overloads.
type Mode int

const (
	// PercentMode derives interval/duration from a target availability
	// fraction and mean time to repair (failure.h's
	// set_availability_mttr).
	PercentMode Mode = iota
	// DistributionsMode draws interval and duration from independent
	// number generators each cycle (failure.h's set_interval/set_duration).
	DistributionsMode
	// CyclesMode fires after a fixed operational cycle count rather than
	// an elapsed-time interval (failure.h's set_cycle_count).
	CyclesMode
)

// Failure models a disruption schedule attachable to one or more nodes
// (spec.md §5's Failure subsystem), grounded on failure.h.
type Failure struct {
	Name      string
	Reference TimeReference
	Mode      Mode

	Interval numgen.Generator
	Duration numgen.Generator

	Availability float64
	MTTR         float64

	CycleCount uint

	active           bool
	remaining        engine.SimTime // pending interval until the next disruption, see Suspend
	cyclesSinceLast  uint
	visited          map[int]bool // node IDs already propagated to this pass
}

// NewPercentFailure builds a Failure whose interval is derived from a
// target availability and MTTR: mean-up-time = mttr*availability/(1-availability),
// matching failure.h's set_availability_mttr semantics; both interval and
// duration are exponential draws from the derived means (spec.md §4.5).
func NewPercentFailure(name string, rng numgen.Generator, availability, mttr float64, dur numgen.Generator) *Failure {
	f := &Failure{Name: name, Mode: PercentMode, Availability: availability, MTTR: mttr, Duration: dur}
	f.Interval = rng
	return f
}

// NewDistributionsFailure builds a Failure that draws interval and duration
// independently every cycle.
func NewDistributionsFailure(name string, ref TimeReference, interval, duration numgen.Generator) *Failure {
	return &Failure{Name: name, Reference: ref, Mode: DistributionsMode, Interval: interval, Duration: duration}
}

// NewCyclesFailure builds a Failure that fires after every `count`
// operational cycles rather than after an elapsed interval.
func NewCyclesFailure(name string, count uint, duration numgen.Generator) *Failure {
	return &Failure{Name: name, Mode: CyclesMode, CycleCount: count, Duration: duration}
}

// MeanUpTime returns the derived mean time between failures for
// PercentMode, per failure.h's availability/MTTR relationship:
// A = uptime / (uptime + MTTR)  =>  uptime = MTTR*A/(1-A).
func (f *Failure) MeanUpTime() float64 {
	if f.Availability <= 0 || f.Availability >= 1 {
		return 0
	}
	return f.MTTR * f.Availability / (1 - f.Availability)
}

// NextInterval draws the time until the next disruption begins.
func (f *Failure) NextInterval() engine.SimTime {
	if f.Interval == nil {
		return 0
	}
	return engine.SimTime(f.Interval.Next())
}

// NextDuration draws how long the next disruption lasts.
func (f *Failure) NextDuration() engine.SimTime {
	if f.Duration == nil {
		return 0
	}
	return engine.SimTime(f.Duration.Next())
}

// RecordCycle increments the operational cycle counter (CyclesMode) and
// reports whether the failure should fire now.
func (f *Failure) RecordCycle() bool {
	if f.Mode != CyclesMode {
		return false
	}
	f.cyclesSinceLast++
	if f.cyclesSinceLast >= f.CycleCount {
		f.cyclesSinceLast = 0
		return true
	}
	return false
}

func (f *Failure) Active() bool  { return f.active }
func (f *Failure) SetActive(v bool) { f.active = v }

// Suspend records a pending interval until the next disruption begins: the
// builder stores the freshly drawn interval when it arms the failure, and
// the time still left on it when the reference node stops counting, so the
// schedule can resume with that remaining time later. The duration of a
// disruption already in progress is not recorded here.
func (f *Failure) Suspend(remaining engine.SimTime) { f.remaining = remaining }
func (f *Failure) Remaining() engine.SimTime        { return f.remaining }

// BeginPropagation starts a fresh visited-set for cycle-safe zone
// propagation (spec.md §5's "visited-set cycle prevention").
func (f *Failure) BeginPropagation() {
	f.visited = map[int]bool{}
}

// Visit marks nodeID visited during the current propagation pass, returning
// true if it was already visited (caller should stop recursing).
func (f *Failure) Visit(nodeID int) bool {
	if f.visited == nil {
		f.visited = map[int]bool{}
	}
	if f.visited[nodeID] {
		return true
	}
	f.visited[nodeID] = true
	return false
}
