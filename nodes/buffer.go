package nodes

import (
	"github.com/flowsim/flowsim/engine"
	"github.com/flowsim/flowsim/model"
)

// Buffer holds entities FIFO up to a capacity, blocking entry when full and
// blocking exit when the destination denies (spec.md §4.2, grounded on
// original_source/buffer.h).
type Buffer struct {
	*Base

	// PerVariantCapacity caps how many units of a given variant may occupy
	// the buffer at once, independent of the overall MaxOccupation (spec.md
	// §6's supplemented CapacityLimitVariant, grounded on
	// original_source/capacitylimitvariant.h). Nil means no per-variant cap.
	PerVariantCapacity map[int]int

	variantCount map[int]int
}

func NewBuffer(k *engine.Kernel, id model.NodeID, name string, capacity int) *Buffer {
	return &Buffer{Base: NewBase(k, id, name, capacity), variantCount: map[int]int{}}
}

// IsOpen reports whether the buffer can accept e right now (capacity and
// enter-logic checks, spec.md §4.2 step 3).
func (b *Buffer) IsOpen(e *model.Entity) bool {
	if b.IsFull() {
		return false
	}
	if b.PerVariantCapacity != nil && e.Variant != nil {
		if limit, capped := b.PerVariantCapacity[e.Variant.ID]; capped && b.variantCount[e.Variant.ID] >= limit {
			return false
		}
	}
	return b.Enter.IsOpen(e, false)
}

// Accept admits e: records content, entry stats, and transitions to
// Waiting (a buffer never itself "works" on an entity).
func (b *Buffer) Accept(e *model.Entity, now engine.SimTime) {
	b.AddContent(e.ID)
	b.Enter.Entry(e)
	e.Departure = b.ID
	if e.Variant != nil {
		b.variantCount[e.Variant.ID]++
	}
	b.SetState(now, model.Waiting)
}

// Depart removes e from the buffer's content when it successfully leaves.
func (b *Buffer) Depart(e *model.Entity, now engine.SimTime) {
	b.RemoveContent(e.ID)
	if e.Variant != nil && b.variantCount[e.Variant.ID] > 0 {
		b.variantCount[e.Variant.ID]--
	}
	if b.ContentSize() == 0 {
		b.SetState(now, model.Waiting)
	}
}

// Store is a Buffer variant whose retrieval order is governed by a Dispatch
// rather than strict FIFO (grounded on original_source/store.h); the
// EnterPort's dispatcher decides which occupant is offered next whenever
// the store's exit is checked.
type Store struct {
	*Buffer
}

func NewStore(k *engine.Kernel, id model.NodeID, name string, capacity int, dispatcher model.Dispatch) *Store {
	s := &Store{Buffer: NewBuffer(k, id, name, capacity)}
	s.Enter.SetDispatcher(dispatcher)
	return s
}
