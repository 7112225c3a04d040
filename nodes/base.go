// Package nodes implements the concrete node types entities flow through:
// Source, Sink, Buffer, Store, Operation, Assembly, Disassembly, Conveyor,
// and ParallelOperation (spec.md §4.2-§4.8), grounded on
// original_source/{source,sink,buffer,store,operation,assembly,
// disassembly,conveyor,paralleloperation}.h. Each embeds model.NodeBase and
// a model.EnterPort/ExitPort pair, wiring the entity-movement protocol
// (spec.md §4.2) through a shared *engine.Kernel.
package nodes

import (
	"github.com/flowsim/flowsim/engine"
	"github.com/flowsim/flowsim/logic"
	"github.com/flowsim/flowsim/model"
)

// Base is the plumbing every concrete node embeds: identity, state
// machine, ports, and a content list (spec.md §3's Node content field).
type Base struct {
	*model.NodeBase
	Enter *model.EnterPort
	Exit  model.ExitPortLike

	Kernel *engine.Kernel

	MaxOccupation int
	content       []uint64

	// disruptionRefs counts concurrently-active failures holding this node
	// non-operational (spec.md §3 invariant: disruption_refs_ >= 0; state
	// becomes Failed iff it transitions 0->1).
	disruptionRefs int

	onDepart []func(entityID uint64)
}

// OnDepart registers a callback fired whenever RemoveContent actually
// removes an occupant, regardless of which concrete node type's Depart
// method triggered it. logic.MaxWip/CriticalWip/Kanban/Batch use this as
// their single release point instead of each node kind repeating the
// bookkeeping.
func (b *Base) OnDepart(fn func(entityID uint64)) { b.onDepart = append(b.onDepart, fn) }

// NewBase wires up a node's identity, ports, and capacity, defaulting Exit
// to a plain ExitPort (callers needing NopExitPort override afterward).
func NewBase(k *engine.Kernel, id model.NodeID, name string, maxOccupation int) *Base {
	return &Base{
		NodeBase:      model.NewNodeBase(id, name),
		Enter:         model.NewEnterPort(id),
		Exit:          model.NewExitPort(id),
		Kernel:        k,
		MaxOccupation: maxOccupation,
	}
}

// ContentSize returns the number of entities currently occupying this node
// (spec.md §3 invariant (a): content_size() <= max_occupation()).
func (b *Base) ContentSize() int { return len(b.content) }

// IsFull reports whether the node is at capacity; MaxOccupation <= 0 means
// unbounded.
func (b *Base) IsFull() bool {
	return b.MaxOccupation > 0 && len(b.content) >= b.MaxOccupation
}

// AddContent appends entityID to the node's occupant list and clears Empty
// if this is the first occupant.
func (b *Base) AddContent(entityID uint64) {
	b.content = append(b.content, entityID)
	b.SetEmpty(false)
}

// RemoveContent removes entityID from the occupant list, reporting whether
// it was present, and sets Empty when the list becomes empty.
func (b *Base) RemoveContent(entityID uint64) bool {
	for i, id := range b.content {
		if id == entityID {
			b.content = append(b.content[:i], b.content[i+1:]...)
			if len(b.content) == 0 {
				b.SetEmpty(true)
			}
			for _, fn := range b.onDepart {
				fn(entityID)
			}
			return true
		}
	}
	return false
}

func (b *Base) Content() []uint64 { return b.content }

// BeginDisruption increments the node's failure reference count, entering
// Failed the moment it transitions 0->1 (spec.md §4.4), and satisfies
// nodes.DisruptibleNode so any embedder participates in FailureZone
// propagation without extra plumbing.
func (b *Base) BeginDisruption(now engine.SimTime, f *logic.Failure, level int) {
	b.disruptionRefs++
	if b.disruptionRefs == 1 {
		b.SetState(now, model.Failed)
	}
}

// EndDisruption decrements the reference count, leaving Failed only once it
// reaches zero.
func (b *Base) EndDisruption(now engine.SimTime, f *logic.Failure, level int) {
	if b.disruptionRefs > 0 {
		b.disruptionRefs--
	}
	if b.disruptionRefs == 0 {
		b.SetState(now, model.Waiting)
	}
}
