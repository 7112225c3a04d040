package model

import (
	"sort"

	"github.com/flowsim/flowsim/engine"
)

// EnterLogic can veto an entity's admission into a node. Applies to all
// variants when Variant is nil.
type EnterLogic struct {
	Variant *Variant
	Allow   func(e *Entity) bool
}

// ExitLogic can veto an entity's departure from a node.
type ExitLogic struct {
	Variant *Variant
	Allow   func(e *Entity) bool
}

// blockedEntity is one entry on a port's forward/exit block list: the
// entity plus the time it started waiting, used to keep the list ordered
// by wait time when no Dispatch is configured.
type blockedEntity struct {
	entity      *Entity
	blockedAt   engine.SimTime
	insertOrder int
}

// EnterPort governs how entities are admitted into a node.
type EnterPort struct {
	Node NodeID

	open        bool
	ignoreFull  bool
	entries     uint
	logics      []EnterLogic
	dispatcher  Dispatch
	blockList   []blockedEntity
	nextOrder   int
	lastEntity  *Entity
	onEntry     []func(e *Entity)

	predecessors map[int][]NodeID // by Variant.ID
}

func NewEnterPort(node NodeID) *EnterPort {
	return &EnterPort{Node: node, open: true, predecessors: map[int][]NodeID{}}
}

func (p *EnterPort) SetOpen(v bool)      { p.open = v }
func (p *EnterPort) SetIgnoreFull(v bool) { p.ignoreFull = v }
func (p *EnterPort) SetDispatcher(d Dispatch) { p.dispatcher = d }
func (p *EnterPort) Entries() uint       { return p.entries }
func (p *EnterPort) NumBlocked() int     { return len(p.blockList) }

func (p *EnterPort) AddEnterLogic(l EnterLogic) { p.logics = append(p.logics, l) }

// AddOnEntry registers a callback fired every time Entry admits an entity,
// used by logic.MaxWip/CriticalWip/Kanban and the Batch and Order wiring to
// keep their own counters in step with actual admissions rather than every
// IsOpen probe.
func (p *EnterPort) AddOnEntry(fn func(e *Entity)) { p.onEntry = append(p.onEntry, fn) }

func (p *EnterPort) AddPredecessor(v *Variant, node NodeID) {
	vid := -1
	if v != nil {
		vid = v.ID
	}
	p.predecessors[vid] = append(p.predecessors[vid], node)
}

// CanAcceptEntities reports whether this port is generally open, ignoring
// per-entity logic (enterport.h's can_accept_entites).
func (p *EnterPort) CanAcceptEntities(ignoreFull bool) bool {
	return p.open
}

// IsOpen reports whether a specific entity may enter right now, consulting
// every registered enter logic that applies to its variant.
func (p *EnterPort) IsOpen(e *Entity, ignoreFull bool) bool {
	if !p.open {
		return false
	}
	for _, l := range p.logics {
		if l.Variant != nil && (e.Variant == nil || l.Variant.ID != e.Variant.ID) {
			continue
		}
		if !l.Allow(e) {
			return false
		}
	}
	return true
}

// Entry records a successful admission (enterport.h's entry()).
func (p *EnterPort) Entry(e *Entity) {
	p.entries++
	p.lastEntity = e
	for _, fn := range p.onEntry {
		fn(e)
	}
}

// AddForwardBlocking appends e to the block list at now, unless it is
// already on it.
func (p *EnterPort) AddForwardBlocking(e *Entity, now engine.SimTime) {
	for _, b := range p.blockList {
		if b.entity.ID == e.ID {
			return
		}
	}
	p.nextOrder++
	p.blockList = append(p.blockList, blockedEntity{entity: e, blockedAt: now, insertOrder: p.nextOrder})
}

// RemoveForwardBlocking removes e from the block list, if present.
func (p *EnterPort) RemoveForwardBlocking(e *Entity) {
	for i, b := range p.blockList {
		if b.entity.ID == e.ID {
			p.blockList = append(p.blockList[:i], p.blockList[i+1:]...)
			return
		}
	}
}

// sortedBlockList returns the block list ordered by dispatcher (or FIFO by
// blocked time, then insertion order, when none is set).
func (p *EnterPort) sortedBlockList() []*Entity {
	items := make([]blockedEntity, len(p.blockList))
	copy(items, p.blockList)
	sort.SliceStable(items, func(i, j int) bool {
		if p.dispatcher != nil && p.dispatcher.Less(items[i].entity, items[j].entity) {
			return true
		}
		if p.dispatcher != nil && p.dispatcher.Less(items[j].entity, items[i].entity) {
			return false
		}
		if items[i].blockedAt != items[j].blockedAt {
			return items[i].blockedAt < items[j].blockedAt
		}
		return items[i].insertOrder < items[j].insertOrder
	})
	out := make([]*Entity, len(items))
	for i, it := range items {
		out[i] = it.entity
	}
	return out
}

// CheckForwardBlocking calls tryOut synchronously, once per variant present
// on the block list, for that variant's first entity in sorted block-list
// order. Later entries of the same variant are not tried in this call; they
// wait for a later CheckForwardBlocking.
func (p *EnterPort) CheckForwardBlocking(tryOut func(e *Entity)) {
	seen := map[int]bool{}
	for _, e := range p.sortedBlockList() {
		vid := -1
		if e.Variant != nil {
			vid = e.Variant.ID
		}
		if seen[vid] {
			continue
		}
		seen[vid] = true
		tryOut(e)
	}
}

// ExitPort governs how entities leave a node.
type ExitPort struct {
	Node NodeID

	logics        []ExitLogic
	moveStrategy  MoveStrategy
	successors    map[int][]Successor // by Variant.ID, -1 = all variants
	exitBlockList []blockedEntity
	nextOrder     int
	dispatcher    Dispatch
}

func NewExitPort(node NodeID) *ExitPort {
	return &ExitPort{Node: node, successors: map[int][]Successor{}}
}

func (p *ExitPort) SetMoveStrategy(m MoveStrategy) { p.moveStrategy = m }
func (p *ExitPort) AddExitLogic(l ExitLogic)        { p.logics = append(p.logics, l) }

// SetDispatcher installs the ordering used to pick which exit-blocked
// entity is retried first, e.g. favoring one whose batch run has already
// reached release size over one still accumulating.
func (p *ExitPort) SetDispatcher(d Dispatch) { p.dispatcher = d }

func (p *ExitPort) AddSuccessor(v *Variant, node NodeID, weight float64) {
	vid := -1
	if v != nil {
		vid = v.ID
	}
	p.successors[vid] = append(p.successors[vid], Successor{Node: node, Weight: weight})
}

// AllowLeaving consults every exit logic applying to e's variant.
func (p *ExitPort) AllowLeaving(e *Entity) bool {
	for _, l := range p.logics {
		if l.Variant != nil && (e.Variant == nil || l.Variant.ID != e.Variant.ID) {
			continue
		}
		if !l.Allow(e) {
			return false
		}
	}
	return true
}

// NextDestination asks the configured move strategy to pick among e's
// variant-specific successors (falling back to the all-variants list).
func (p *ExitPort) NextDestination(e *Entity) NodeID {
	if p.moveStrategy == nil {
		return NoNode
	}
	vid := -1
	if e.Variant != nil {
		vid = e.Variant.ID
	}
	succ := p.successors[vid]
	if len(succ) == 0 {
		succ = p.successors[-1]
	}
	return p.moveStrategy.Next(e, succ)
}

func (p *ExitPort) AddExitBlocking(e *Entity, now engine.SimTime) {
	for _, b := range p.exitBlockList {
		if b.entity.ID == e.ID {
			return
		}
	}
	p.nextOrder++
	p.exitBlockList = append(p.exitBlockList, blockedEntity{entity: e, blockedAt: now, insertOrder: p.nextOrder})
}

func (p *ExitPort) RemoveExitBlocking(e *Entity) {
	for i, b := range p.exitBlockList {
		if b.entity.ID == e.ID {
			p.exitBlockList = append(p.exitBlockList[:i], p.exitBlockList[i+1:]...)
			return
		}
	}
}

func (p *ExitPort) NumExitBlocked() int { return len(p.exitBlockList) }

// CheckExitBlocking retries every exit-blocked entity, ordered by dispatcher
// (or blocked time, then insertion order, when none is set) against tryOut.
// Mirrors EnterPort.CheckForwardBlocking's role but for entities that could
// not leave this node at all (an exit logic refused them or no destination
// was chosen), rather than entities
// refused entry downstream.
func (p *ExitPort) CheckExitBlocking(tryOut func(e *Entity)) {
	items := make([]blockedEntity, len(p.exitBlockList))
	copy(items, p.exitBlockList)
	sort.SliceStable(items, func(i, j int) bool {
		if p.dispatcher != nil && p.dispatcher.Less(items[i].entity, items[j].entity) {
			return true
		}
		if p.dispatcher != nil && p.dispatcher.Less(items[j].entity, items[i].entity) {
			return false
		}
		if items[i].blockedAt != items[j].blockedAt {
			return items[i].blockedAt < items[j].blockedAt
		}
		return items[i].insertOrder < items[j].insertOrder
	})
	for _, it := range items {
		tryOut(it.entity)
	}
}

// ExitPortLike is the subset of ExitPort behavior nodes/ needs, satisfied
// by both *ExitPort and *NopExitPort.
type ExitPortLike interface {
	AllowLeaving(e *Entity) bool
	NextDestination(e *Entity) NodeID
	AddExitLogic(l ExitLogic)
	SetMoveStrategy(m MoveStrategy)
	AddSuccessor(v *Variant, node NodeID, weight float64)
	AddExitBlocking(e *Entity, now engine.SimTime)
	RemoveExitBlocking(e *Entity)
	NumExitBlocked() int
	CheckExitBlocking(tryOut func(e *Entity))
	SetDispatcher(d Dispatch)
}

// NopExitPort is an ExitPort that never releases entities on its own, used
// by terminal nodes and by tests that only exercise entry logic.
type NopExitPort struct{ ExitPort }

func NewNopExitPort(node NodeID) *NopExitPort {
	return &NopExitPort{ExitPort: *NewExitPort(node)}
}

func (p *NopExitPort) NextDestination(e *Entity) NodeID { return NoNode }
