package nodes

import (
	"github.com/flowsim/flowsim/engine"
	"github.com/flowsim/flowsim/model"
	"github.com/flowsim/flowsim/numgen"
)

// Disassembly splits a composite entity into its assembled parts, routing
// each part independently via a per-entity move strategy (spec.md §4.3's
// SequenceEntity is required here), grounded on
// original_source/disassembly.h.
type Disassembly struct {
	*Base

	ProcessTime numgen.Generator

	current  *model.Entity
	released []uint64

	outEvent *engine.Event

	onReadyToExit func(entityIDs []uint64)
}

func NewDisassembly(k *engine.Kernel, id model.NodeID, name string, processTime numgen.Generator) *Disassembly {
	return &Disassembly{Base: NewBase(k, id, name, 1), ProcessTime: processTime}
}

func (d *Disassembly) OnReadyToExit(fn func(entityIDs []uint64)) { d.onReadyToExit = fn }

func (d *Disassembly) IsOpen(e *model.Entity) bool {
	if d.current != nil {
		return false
	}
	return d.Enter.IsOpen(e, false)
}

func (d *Disassembly) Accept(e *model.Entity, now engine.SimTime) {
	d.AddContent(e.ID)
	d.Enter.Entry(e)
	e.Departure = d.ID
	d.current = e
	d.SetState(now, model.Working)

	dt := engine.SimTime(d.ProcessTime.Next())
	d.outEvent = engine.NewEvent(engine.KindDisassembly, engine.PriorityDisassembly, d.NodeName(), d.NodeName(), d.finish)
	d.Kernel.Schedule(d.outEvent, dt)
}

func (d *Disassembly) finish() {
	now := d.Kernel.Now()
	d.SetState(now, model.Blocked)
	ids := append([]uint64(nil), d.current.Parts...)
	ids = append(ids, d.current.ID)
	d.released = ids
	if d.onReadyToExit != nil {
		d.onReadyToExit(ids)
	}
}

// Depart releases entityID once it has actually left; once every released
// id has departed, the disassembly resets for its next cycle.
func (d *Disassembly) Depart(entityID uint64, now engine.SimTime) {
	d.RemoveContent(entityID)
	for i, id := range d.released {
		if id == entityID {
			d.released = append(d.released[:i], d.released[i+1:]...)
			break
		}
	}
	if len(d.released) == 0 {
		d.current = nil
		d.SetState(now, model.Waiting)
	}
}
