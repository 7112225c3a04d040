package model

import "github.com/flowsim/flowsim/engine"

// Entity is a unit moving through the model (spec.md §3), grounded on
// original_source/entity.h. Rather than the original's intrusive doubly-
// linked assembly-parts list and raw Node* pointers, an Entity holds plain
// handles into an EntityArena and NodeSet, matching the "index-stable slot
// vector" convention noted for this port (spec.md §9).
type Entity struct {
	ID      uint64
	Variant *Variant
	Units   int

	Departure   NodeID
	Destination NodeID

	ModelEnterTime engine.SimTime

	// AssemblyIdentity is the entity used for routing/setup/processing
	// lookups once this entity has been folded into an assembly; zero
	// means "self".
	AssemblyIdentity uint64
	Parts            []uint64

	// BatchID names which batch run this entity was admitted into at the
	// node currently holding it; 0 means it isn't part of any batch.
	BatchID uint

	// wipStart is the sim time this entity most recently began
	// contributing to a node's work-in-process time accounting.
	wipStart engine.SimTime
}

// NodeID is an opaque handle into a NodeSet (spec.md §9's arena-of-handles
// convention, replacing raw Node* pointers).
type NodeID int

// NoNode is the zero handle, meaning "no node".
const NoNode NodeID = -1

// EntityArena owns Entity storage, handing out uint64 IDs (spec.md §9:
// "generation counters instead of a custom pool allocator").
type EntityArena struct {
	entities map[uint64]*Entity
	nextID   uint64
}

func NewEntityArena() *EntityArena {
	return &EntityArena{entities: map[uint64]*Entity{}}
}

// Create allocates a new entity of the given variant, created at node.
func (a *EntityArena) Create(v *Variant, node NodeID, units int, now engine.SimTime) *Entity {
	a.nextID++
	e := &Entity{
		ID:             a.nextID,
		Variant:        v,
		Units:          units,
		Departure:      node,
		Destination:    NoNode,
		ModelEnterTime: now,
		wipStart:       now,
	}
	a.entities[e.ID] = e
	return e
}

// Get looks up an entity by id.
func (a *EntityArena) Get(id uint64) (*Entity, bool) {
	e, ok := a.entities[id]
	return e, ok
}

// Release returns an entity's slot to the arena once it has exited the
// model (spec.md §5's Sink node).
func (a *EntityArena) Release(id uint64) {
	delete(a.entities, id)
}

// AddPart records that e has absorbed part as an assembled component
// (spec.md §5's Assembly node), grounded on entity.h's add_part.
func (e *Entity) AddPart(part *Entity) {
	e.Parts = append(e.Parts, part.ID)
	part.AssemblyIdentity = e.ID
}

// RemovePart detaches a previously-assembled part, returning true if found
// (spec.md §5's Disassembly node), grounded on entity.h's remove_part.
func (e *Entity) RemovePart(partID uint64) bool {
	for i, id := range e.Parts {
		if id == partID {
			e.Parts = append(e.Parts[:i], e.Parts[i+1:]...)
			return true
		}
	}
	return false
}

// ResetWIPClock marks now as the start of a fresh work-in-process interval,
// grounded on entity.h's add_wip_time bookkeeping.
func (e *Entity) ResetWIPClock(now engine.SimTime) {
	e.wipStart = now
}

// WIPTime returns how long this entity has contributed to work-in-process
// since the last ResetWIPClock, clamped to not precede warmup.
func (e *Entity) WIPTime(now, warmup engine.SimTime) engine.SimTime {
	start := e.wipStart
	if start < warmup {
		start = warmup
	}
	if now < start {
		return 0
	}
	return now - start
}
