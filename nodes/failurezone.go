package nodes

import (
	"github.com/flowsim/flowsim/engine"
	"github.com/flowsim/flowsim/logic"
	"github.com/flowsim/flowsim/model"
)

// FailureZone groups nodes so a Failure attached to one propagates to the
// rest, bounded by PropagationSteps and guarded against cycles by the
// Failure's own visited set (spec.md §4.5's Propagation rule), grounded on
// original_source/failurezone.h.
type FailureZone struct {
	Name             string
	Members          []DisruptibleNode
	PropagationSteps int
}

// DisruptibleNode is the capability a node must expose to participate in
// failure propagation: begin/end a disruption at a given nesting level.
type DisruptibleNode interface {
	NodeID() model.NodeID
	BeginDisruption(now engine.SimTime, f *logic.Failure, level int)
	EndDisruption(now engine.SimTime, f *logic.Failure, level int)
}

func NewFailureZone(name string, steps int) *FailureZone {
	return &FailureZone{Name: name, PropagationSteps: steps}
}

func (z *FailureZone) Add(n DisruptibleNode) { z.Members = append(z.Members, n) }

// Reference returns the zone's first member as a *Base, standing in for the
// whole group when a Processing/Operational-reference Failure targets a
// zone rather than a single node.
func (z *FailureZone) Reference() *Base {
	for _, m := range z.Members {
		if b, ok := m.(*Base); ok {
			return b
		}
	}
	return nil
}

// Propagate begins f on every member not yet visited this pass, up to
// PropagationSteps deep (spec.md §4.5).
func (z *FailureZone) Propagate(now engine.SimTime, f *logic.Failure) {
	f.BeginPropagation()
	z.propagate(now, f, 0)
}

func (z *FailureZone) propagate(now engine.SimTime, f *logic.Failure, level int) {
	if z.PropagationSteps > 0 && level >= z.PropagationSteps {
		return
	}
	for _, m := range z.Members {
		if f.Visit(int(m.NodeID())) {
			continue
		}
		m.BeginDisruption(now, f, level)
	}
}

// End ends f on every member, mirroring Propagate's traversal.
func (z *FailureZone) End(now engine.SimTime, f *logic.Failure) {
	f.BeginPropagation()
	for _, m := range z.Members {
		if f.Visit(int(m.NodeID())) {
			continue
		}
		m.EndDisruption(now, f, 0)
	}
}
