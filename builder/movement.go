package builder

import (
	"sort"

	"github.com/flowsim/flowsim/engine"
	"github.com/flowsim/flowsim/logic"
	"github.com/flowsim/flowsim/model"
	"github.com/flowsim/flowsim/nodes"
)

// sortedKeys returns m's keys in ascending order, used wherever a map must
// be walked in a reproducible sequence rather than Go's randomized order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// WireMovement installs the entity-movement protocol (spec.md §4.2) across
// every node boundary: an out event fires, the source node's ExitPort picks
// a destination, the destination's IsOpen is consulted, and the entity
// either transfers (Depart at the source, Accept at the destination) or is
// blocked (see deliver for which block list it joins) to be retried once
// any node's capacity frees up. Grounded on original_source/exitport.h's "try then block"
// pattern, which the model package already implements at the port level;
// this method is the glue that drives it from each concrete node type's
// events.
func (s *Simulation) WireMovement() {
	s.idToName = map[model.NodeID]string{}
	for name, id := range s.NodeIndex {
		s.idToName[id] = name
	}

	for _, src := range s.Sources {
		src := src
		src.OnEntityCreated(func(e *model.Entity) bool {
			return s.deliver(e, src.Exit, s.Kernel.Now(), nil)
		})
	}

	for name, op := range s.Ops {
		op := op
		name := name
		var takt *logic.Takt
		if groupName := s.taktGroupByNode[name]; groupName != "" {
			takt = s.Takts[groupName]
		}

		release := func(entityID uint64) {
			e, ok := s.Arena.Get(entityID)
			if !ok {
				return
			}
			now := s.Kernel.Now()
			s.deliver(e, op.Exit, now, func() {
				op.Depart(entityID, now)
			})
		}

		op.OnReadyToExit(func(entityID uint64) {
			if takt == nil {
				release(entityID)
				return
			}
			now := s.Kernel.Now()
			s.taktPending[name] = entityID
			if takt.MarkReady(name, now) {
				s.scheduleTaktRelease(takt, now)
			}
		})
	}

	for _, a := range s.Assemblies {
		a := a
		a.OnReadyToExit(func(entityID uint64) {
			e, ok := s.Arena.Get(entityID)
			if !ok {
				return
			}
			now := s.Kernel.Now()
			s.deliver(e, a.Exit, now, func() {
				a.Depart(e, now)
			})
		})
	}

	for _, d := range s.Disassemblies {
		d := d
		d.OnReadyToExit(func(entityIDs []uint64) {
			now := s.Kernel.Now()
			for _, id := range entityIDs {
				id := id
				e, ok := s.Arena.Get(id)
				if !ok {
					continue
				}
				s.deliver(e, d.Exit, now, func() {
					d.Depart(id, now)
				})
			}
		})
	}

	for _, c := range s.Conveyors {
		c := c
		c.OnReadyToExit(func(entityID uint64) {
			e, ok := s.Arena.Get(entityID)
			if !ok {
				return
			}
			now := s.Kernel.Now()
			s.deliver(e, c.Exit, now, func() {
				c.Depart(entityID, now)
			})
		})
	}

	for _, p := range s.Parallels {
		p := p
		p.OnReadyToExit(func(entityID uint64) {
			e, ok := s.Arena.Get(entityID)
			if !ok {
				return
			}
			now := s.Kernel.Now()
			s.deliver(e, p.Exit, now, func() {
				p.Depart(entityID, now)
			})
		})
		p.OnSyncExit(func(entityIDs []uint64) {
			now := s.Kernel.Now()
			for _, id := range entityIDs {
				id := id
				e, ok := s.Arena.Get(id)
				if !ok {
					continue
				}
				s.deliver(e, p.Exit, now, func() {
					p.Depart(id, now)
				})
			}
		})
	}
}

// scheduleTaktRelease fires releaseTaktGroup once every member of takt has
// checked in, but never before the round's minimum cycle time has elapsed
// (spec.md §4.9: "advances a set of nodes in lockstep at minimum
// takt_time"). If the barrier is already overdue — the last member to
// finish did so at or after takt.EndTime() — the release fires immediately,
// covering the exceed_time case (spec.md scenario 3). Otherwise every
// member finished early and a KindTaktComplete event is scheduled for
// EndTime, so two fast members (e.g. 2s+2s against a 5s cycle) still wait
// out the full cycle before the group advances, the max(allReadyTime,
// EndTime) rule the barrier must enforce.
func (s *Simulation) scheduleTaktRelease(takt *logic.Takt, allReadyTime engine.SimTime) {
	end := takt.EndTime()
	if allReadyTime >= end {
		s.releaseTaktGroup(takt, allReadyTime)
		return
	}
	evt := engine.NewEvent(engine.KindTaktComplete, engine.PriorityTaktComplete, takt.Name, takt.Name, func() {
		s.releaseTaktGroup(takt, s.Kernel.Now())
	})
	s.Kernel.Schedule(evt, end-allReadyTime)
}

// releaseTaktGroup fires once every member of takt has reported its own
// cycle finished and the minimum cycle time has elapsed: it records the
// round's exceed/deceed timing, releases every member's pending entity
// together, and starts the next round.
func (s *Simulation) releaseTaktGroup(takt *logic.Takt, now engine.SimTime) {
	takt.RecordCycle(now)
	for _, member := range takt.Members {
		id, pending := s.taktPending[member]
		if !pending {
			continue
		}
		delete(s.taktPending, member)
		op, ok := s.Ops[member]
		if !ok {
			continue
		}
		e, ok := s.Arena.Get(id)
		if !ok {
			continue
		}
		s.deliver(e, op.Exit, now, func() { op.Depart(id, now) })
	}
	takt.StartCycle(now)
}

// deliver attempts to move e out through exit. On success it calls
// afterDepart (nil for a Source, which has nothing to depart) so the
// caller's own bookkeeping — releasing a processing slot, clearing content —
// only happens once the destination has actually accepted the entity, then
// arms a KindOutUnblocked event to retry every blocked entity once the
// kernel gets back to the queue (a freed slot anywhere may unblock an
// unrelated entity queued behind it).
//
// Two distinct block lists carry failures: a source that can't leave at all
// (no exit logic allows it, or its move strategy found no destination) sits
// on its own ExitPort's block list, since no destination is involved. A
// source refused entry by a specific destination instead sits on that
// destination's EnterPort forward block list, so whenever several senders
// are competing for the same destination its own configured Dispatch (not
// merely whichever source happens to retry first) decides who gets in next.
func (s *Simulation) deliver(e *model.Entity, exit model.ExitPortLike, now engine.SimTime, afterDepart func()) bool {
	if exit == nil || !exit.AllowLeaving(e) {
		if exit != nil {
			exit.AddExitBlocking(e, now)
		}
		return false
	}
	dest := exit.NextDestination(e)
	if dest == model.NoNode {
		exit.AddExitBlocking(e, now)
		return false
	}
	if !s.acceptAt(dest, e, now) {
		s.blockForEntry(dest, e, now, exit, afterDepart)
		return false
	}
	exit.RemoveExitBlocking(e)
	s.clearEntryBlock(dest, e)
	if afterDepart != nil {
		afterDepart()
	}
	s.scheduleRetry()
	return true
}

// blockForEntry registers e on dest's EnterPort forward block list and
// remembers how to retry its own departure once dest's dispatcher gives it
// a turn.
func (s *Simulation) blockForEntry(dest model.NodeID, e *model.Entity, now engine.SimTime, exit model.ExitPortLike, afterDepart func()) {
	enter := s.enterPortFor(s.idToName[dest])
	if enter == nil {
		return
	}
	enter.AddForwardBlocking(e, now)
	s.pendingExits[e.ID] = func(retryNow engine.SimTime) bool {
		return s.deliver(e, exit, retryNow, afterDepart)
	}
}

// clearEntryBlock removes e's forward-block bookkeeping at dest once it has
// actually entered.
func (s *Simulation) clearEntryBlock(dest model.NodeID, e *model.Entity) {
	if enter := s.enterPortFor(s.idToName[dest]); enter != nil {
		enter.RemoveForwardBlocking(e)
	}
	delete(s.pendingExits, e.ID)
}

// acceptAt checks the named destination's admission and, if open, accepts e
// there, pushing a passive Buffer's own head entity onward immediately
// since a Buffer never generates its own out event.
func (s *Simulation) acceptAt(dest model.NodeID, e *model.Entity, now engine.SimTime) bool {
	name, ok := s.idToName[dest]
	if !ok {
		return false
	}
	if b, ok := s.Buffers[name]; ok {
		if !b.IsOpen(e) {
			return false
		}
		b.Accept(e, now)
		s.pushBuffer(b, now)
		return true
	}
	if op, ok := s.Ops[name]; ok {
		if !op.IsOpen(e) {
			return false
		}
		op.Accept(e, now)
		return true
	}
	if a, ok := s.Assemblies[name]; ok {
		if !a.IsOpen(e) {
			return false
		}
		a.Accept(e, now)
		return true
	}
	if d, ok := s.Disassemblies[name]; ok {
		if !d.IsOpen(e) {
			return false
		}
		d.Accept(e, now)
		return true
	}
	if c, ok := s.Conveyors[name]; ok {
		if !c.IsOpen(e) {
			return false
		}
		c.Accept(e, now)
		return true
	}
	if p, ok := s.Parallels[name]; ok {
		if !p.IsOpen(e) {
			return false
		}
		p.Accept(e, now)
		return true
	}
	if sink, ok := s.Sinks[name]; ok {
		sink.Enter(e, now)
		return true
	}
	return false
}

// pushBuffer attempts to move a buffer's head entity onward immediately
// after it accepts a new occupant, since a Buffer never generates its own
// out event (original_source/buffer.h has no processing delay).
func (s *Simulation) pushBuffer(b *nodes.Buffer, now engine.SimTime) {
	ids := append([]uint64(nil), b.Content()...)
	for _, id := range ids {
		e, ok := s.Arena.Get(id)
		if !ok {
			continue
		}
		if s.deliver(e, b.Exit, now, func() { b.Depart(e, now) }) {
			continue
		}
		break
	}
}

// scheduleRetry arms a single KindOutUnblocked event to run retryAllNow at
// now, coalescing a cascade of deliver calls within the same instant into
// one retry pass (spec.md §4.2 item 5: a freed slot or resource is signalled
// by scheduling an Out-unblocked event, not by retrying synchronously
// in-line). retryScheduled guards against stacking duplicate events when
// several deliveries succeed before the kernel gets back to draining its
// queue.
func (s *Simulation) scheduleRetry() {
	if s.retryScheduled {
		return
	}
	s.retryScheduled = true
	evt := engine.NewEvent(engine.KindOutUnblocked, engine.PriorityOutUnblocked, "retry", "retry", func() {
		s.retryScheduled = false
		s.retryAllNow(s.Kernel.Now())
	})
	s.Kernel.Schedule(evt, 0)
}

// retryAllNow re-attempts every entity queued on any node's exit block list
// or any destination's forward block list, since a single Depart/Accept
// elsewhere in the graph may have freed the capacity or resource that was
// blocking it. Blocked lists shrink strictly on each successful retry, so
// this terminates. Node collections are map[string]*T, so iteration order
// is sorted by name rather than left to Go's randomized map order: two
// entities blocked behind different destinations must retry in the same
// sequence on every run for reproducible tie-breaks (the per-destination
// order within a single port is already deterministic via its dispatcher).
func (s *Simulation) retryAllNow(now engine.SimTime) {
	for _, name := range sortedKeys(s.NodeIndex) {
		enter := s.enterPortFor(name)
		if enter == nil {
			continue
		}
		enter.CheckForwardBlocking(func(e *model.Entity) {
			retry, ok := s.pendingExits[e.ID]
			if !ok {
				return
			}
			srcName := s.idToName[e.Departure]
			src, fromSource := s.Sources[srcName]
			_, demandDriven := s.Demands[srcName]
			if retry(now) && fromSource && !demandDriven {
				src.ScheduleNext()
			}
		})
	}
	for _, name := range sortedKeys(s.Sources) {
		src := s.Sources[name]
		_, demandDriven := s.Demands[name]
		src.Exit.CheckExitBlocking(func(e *model.Entity) {
			if s.deliver(e, src.Exit, now, nil) && !demandDriven {
				src.ScheduleNext()
			}
		})
	}
	for _, name := range sortedKeys(s.Buffers) {
		b := s.Buffers[name]
		b.Exit.CheckExitBlocking(func(e *model.Entity) {
			s.deliver(e, b.Exit, now, func() { b.Depart(e, now) })
		})
		s.pushBuffer(b, now)
	}
	for _, name := range sortedKeys(s.Ops) {
		op := s.Ops[name]
		op.Exit.CheckExitBlocking(func(e *model.Entity) {
			s.deliver(e, op.Exit, now, func() { op.Depart(e.ID, now) })
		})
	}
	for _, name := range sortedKeys(s.Assemblies) {
		a := s.Assemblies[name]
		a.Exit.CheckExitBlocking(func(e *model.Entity) {
			s.deliver(e, a.Exit, now, func() { a.Depart(e, now) })
		})
	}
	for _, name := range sortedKeys(s.Disassemblies) {
		d := s.Disassemblies[name]
		d.Exit.CheckExitBlocking(func(e *model.Entity) {
			s.deliver(e, d.Exit, now, func() { d.Depart(e.ID, now) })
		})
	}
	for _, name := range sortedKeys(s.Conveyors) {
		c := s.Conveyors[name]
		c.Exit.CheckExitBlocking(func(e *model.Entity) {
			s.deliver(e, c.Exit, now, func() { c.Depart(e.ID, now) })
		})
	}
	for _, name := range sortedKeys(s.Parallels) {
		p := s.Parallels[name]
		p.Exit.CheckExitBlocking(func(e *model.Entity) {
			s.deliver(e, p.Exit, now, func() { p.Depart(e.ID, now) })
		})
	}
}
