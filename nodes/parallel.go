package nodes

import (
	"github.com/flowsim/flowsim/engine"
	"github.com/flowsim/flowsim/model"
	"github.com/flowsim/flowsim/numgen"
)

// ParallelOperation composes N internal Operations sharing one external
// enter/exit boundary (spec.md §4.7), grounded on
// original_source/paralleloperation.h.
type ParallelOperation struct {
	*Base

	Internal []*Operation

	MixedProcessing   bool
	SynchronizeEntry  bool
	SynchronizeExit   bool
	EntryTimeout      engine.SimTime

	reserved map[uint64]int // entity -> internal op index, reserved at is_open time

	entryWindowOpen  bool
	entryTimeoutEvt  *engine.Event
	entryCount       int

	finishedExits []uint64

	onReadyToExit func(entityID uint64)
	onSyncExit    func(entityIDs []uint64)
}

func NewParallelOperation(k *engine.Kernel, id model.NodeID, name string, n int, processTime func(i int) numgen.Generator) *ParallelOperation {
	p := &ParallelOperation{
		Base:     NewBase(k, id, name, n),
		reserved: map[uint64]int{},
	}
	for i := 0; i < n; i++ {
		op := NewOperation(k, model.NodeID(int(id)*1000+i), name, processTime(i))
		p.Internal = append(p.Internal, op)
	}
	return p
}

func (p *ParallelOperation) OnReadyToExit(fn func(entityID uint64)) { p.onReadyToExit = fn }
func (p *ParallelOperation) OnSyncExit(fn func(entityIDs []uint64))  { p.onSyncExit = fn }

// freeSlot returns the index of an internal op that is idle and, unless
// MixedProcessing is enabled, currently running the same variant (or no
// variant at all) as e — spec.md §4.7's mixed_processing rule.
func (p *ParallelOperation) freeSlot(e *model.Entity) int {
	for i, op := range p.Internal {
		if op.hasCurrent {
			continue
		}
		if !p.MixedProcessing && op.lastVariant != nil && e.Variant != nil && op.lastVariant.ID != e.Variant.ID {
			continue
		}
		return i
	}
	return -1
}

// IsOpen reports whether a free internal op exists for e and reserves it,
// so a delayed admission still lands on the same slot (spec.md §4.7:
// "reserved internal op, assigned at is_open time").
func (p *ParallelOperation) IsOpen(e *model.Entity) bool {
	if !p.Enter.IsOpen(e, false) {
		return false
	}
	if _, already := p.reserved[e.ID]; already {
		return true
	}
	slot := p.freeSlot(e)
	if slot < 0 {
		return false
	}
	p.reserved[e.ID] = slot
	return true
}

// Accept admits e into its reserved internal op, opening the synchronized
// entry window on the first arrival if configured.
func (p *ParallelOperation) Accept(e *model.Entity, now engine.SimTime) {
	slot, ok := p.reserved[e.ID]
	if !ok {
		slot = p.freeSlot(e)
	}
	delete(p.reserved, e.ID)
	p.AddContent(e.ID)
	p.Enter.Entry(e)
	e.Departure = p.ID

	op := p.Internal[slot]
	op.OnReadyToExit(func(entityID uint64) { p.handleInternalExit(entityID) })

	if p.SynchronizeEntry {
		p.entryCount++
		if !p.entryWindowOpen {
			p.entryWindowOpen = true
			p.entryTimeoutEvt = engine.NewEvent(engine.KindEntryTimeout, engine.PriorityEntryTimeout, p.NodeName(), p.NodeName(), func() {
				p.entryWindowOpen = false
			})
			p.Kernel.Schedule(p.entryTimeoutEvt, p.EntryTimeout)
		}
		if p.entryCount >= len(p.Internal) {
			p.Kernel.Cancel(p.entryTimeoutEvt)
			p.entryWindowOpen = false
		}
	}

	op.Accept(e, now)
}

func (p *ParallelOperation) handleInternalExit(entityID uint64) {
	if !p.SynchronizeExit {
		if p.onReadyToExit != nil {
			p.onReadyToExit(entityID)
		}
		return
	}
	p.finishedExits = append(p.finishedExits, entityID)
	if !p.allOperational() {
		return
	}
	batch := p.finishedExits
	p.finishedExits = nil
	if p.onSyncExit != nil {
		p.onSyncExit(batch)
	}
}

// allOperational reports whether synchronized exits may release: every
// internal op that is still holding an entity must have finished (Blocked,
// awaiting exit) and every internal op, idle or not, must be operational
// (spec.md §4.7: "exits are held until all currently processing entities
// are finished and every internal op is operational" — an idle op that is
// Failed or Unplanned still holds up the batch).
func (p *ParallelOperation) allOperational() bool {
	for _, op := range p.Internal {
		if !op.IsOperational() {
			return false
		}
		if op.hasCurrent && op.State() != model.Blocked {
			return false
		}
	}
	return true
}

// Depart releases entityID from its internal op once it actually leaves.
func (p *ParallelOperation) Depart(entityID uint64, now engine.SimTime) {
	p.RemoveContent(entityID)
	for _, op := range p.Internal {
		if op.hasCurrent && op.current == entityID {
			op.Depart(entityID, now)
			return
		}
	}
}
