package nodes

import (
	"github.com/flowsim/flowsim/engine"
	"github.com/flowsim/flowsim/model"
	"github.com/flowsim/flowsim/numgen"
)

// Assembly waits for one entity on each of its input ports (a "primary"
// plus a fixed set of part variants) and combines them into the primary
// once all are present, then processes the combined unit (spec.md §4.2,
// grounded on original_source/assembly.h).
type Assembly struct {
	*Base

	ProcessTime numgen.Generator

	// RequiredParts names the variants (by ID) that must all be present
	// before assembly can start, keyed by variant ID.
	RequiredParts map[int]bool

	waiting map[int]*model.Entity // by Variant.ID, entities parked waiting for siblings
	primary *model.Entity

	outEvent *engine.Event

	onReadyToExit func(entityID uint64)
}

func NewAssembly(k *engine.Kernel, id model.NodeID, name string, processTime numgen.Generator, requiredParts []int) *Assembly {
	req := map[int]bool{}
	for _, v := range requiredParts {
		req[v] = true
	}
	return &Assembly{
		Base:          NewBase(k, id, name, len(requiredParts)+1),
		ProcessTime:   processTime,
		RequiredParts: req,
		waiting:       map[int]*model.Entity{},
	}
}

func (a *Assembly) OnReadyToExit(fn func(entityID uint64)) { a.onReadyToExit = fn }

// IsOpen accepts any entity whose variant is either the still-missing
// primary or an unfilled required part.
func (a *Assembly) IsOpen(e *model.Entity) bool {
	if e.Variant == nil {
		return a.primary == nil
	}
	if _, needed := a.RequiredParts[e.Variant.ID]; needed {
		return a.waiting[e.Variant.ID] == nil
	}
	return a.primary == nil
}

// Accept admits e, holding it (Starved/Waiting) until every required part
// and a primary have arrived, at which point assembly begins.
func (a *Assembly) Accept(e *model.Entity, now engine.SimTime) {
	a.AddContent(e.ID)
	a.Enter.Entry(e)
	e.Departure = a.ID

	if e.Variant != nil && a.RequiredParts[e.Variant.ID] {
		a.waiting[e.Variant.ID] = e
	} else {
		a.primary = e
	}

	if a.ready() {
		a.beginAssembly(now)
	} else {
		a.SetState(now, model.Waiting)
	}
}

func (a *Assembly) ready() bool {
	if a.primary == nil {
		return false
	}
	for vid := range a.RequiredParts {
		if a.waiting[vid] == nil {
			return false
		}
	}
	return true
}

func (a *Assembly) beginAssembly(now engine.SimTime) {
	a.SetState(now, model.Working)
	for _, part := range a.waiting {
		a.primary.AddPart(part)
	}
	a.waiting = map[int]*model.Entity{}
	primaryID := a.primary.ID

	dt := engine.SimTime(a.ProcessTime.Next())
	a.outEvent = engine.NewEvent(engine.KindAssembly, engine.PriorityAssembly, a.NodeName(), a.NodeName(), func() {
		a.SetState(a.Kernel.Now(), model.Blocked)
		if a.onReadyToExit != nil {
			a.onReadyToExit(primaryID)
		}
	})
	a.Kernel.Schedule(a.outEvent, dt)
}

// Depart releases the assembled entity once it exits, freeing the assembly
// for the next cycle. Absorbed part entities are released by the caller
// (they no longer occupy their own arena slot once folded into the parent).
func (a *Assembly) Depart(primary *model.Entity, now engine.SimTime) {
	a.RemoveContent(primary.ID)
	for _, partID := range primary.Parts {
		a.RemoveContent(partID)
	}
	a.primary = nil
	a.SetState(now, model.Waiting)
}
