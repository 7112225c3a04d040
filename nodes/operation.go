package nodes

import (
	"github.com/flowsim/flowsim/engine"
	"github.com/flowsim/flowsim/logic"
	"github.com/flowsim/flowsim/model"
	"github.com/flowsim/flowsim/numgen"
	"github.com/flowsim/flowsim/resource"
)

// Operation processes one entity at a time for a drawn duration, optionally
// preceded by a setup and optionally requiring pooled resources (spec.md
// §4.2/§4.4/§4.6, grounded on original_source/operation.h).
type Operation struct {
	*Base

	ProcessTime numgen.Generator
	SetupTime   func(prev, next *model.Variant) numgen.Generator

	Resource *resource.NodeResource
	Manager  *resource.Manager

	current     uint64
	hasCurrent  bool
	lastVariant *model.Variant

	// executionFactor holds the geometric mean of the currently allocated
	// resource's skill factors, applied as a multiplier to the next drawn
	// process duration. 1.0 when no resource is attached or none matched.
	executionFactor map[uint64]float64

	// currentDuration is the full (execution-factor-scaled) duration most
	// recently scheduled by startWorking, kept so an interruption with
	// add_elapsed_time disabled can restart from the original length
	// rather than whatever was left when the disruption began.
	currentDuration engine.SimTime

	// interruptedRemaining holds the time left on outEvent when
	// interruptProcessing cancelled it, 0 when nothing is paused.
	interruptedRemaining engine.SimTime

	outEvent   *engine.Event
	setupEvent *engine.Event
	readyEvent *engine.Event

	onReadyToExit func(entityID uint64)
}

func NewOperation(k *engine.Kernel, id model.NodeID, name string, processTime numgen.Generator) *Operation {
	return &Operation{
		Base:            NewBase(k, id, name, 1),
		ProcessTime:     processTime,
		executionFactor: map[uint64]float64{},
	}
}

func (o *Operation) OnReadyToExit(fn func(entityID uint64)) { o.onReadyToExit = fn }

// LastVariant returns the variant most recently processed here, used by an
// Sst dispatcher on this operation's own EnterPort to weigh a waiting
// entity's changeover cost against the job currently running.
func (o *Operation) LastVariant() *model.Variant { return o.lastVariant }

// IsOpen reports whether the operation can accept e (single-occupant unless
// MaxOccupation was raised, plus enter-logic checks). When the attached
// NodeResource is configured skills-first, admission is additionally gated
// on resource availability (spec.md §4.6: "Skills-first mode allocates
// resources before entity entry") — the entity stays on the destination's
// forward block list, retried automatically once a resource frees, rather
// than entering and only then discovering it must wait.
func (o *Operation) IsOpen(e *model.Entity) bool {
	if o.IsFull() {
		return false
	}
	if !o.Enter.IsOpen(e, false) {
		return false
	}
	if o.Resource != nil && o.Manager != nil && o.Resource.SkillsFirst() && !o.Manager.CanAllocate(o.Resource) {
		return false
	}
	return true
}

// Accept admits e and begins setup (if needed) or processing.
func (o *Operation) Accept(e *model.Entity, now engine.SimTime) {
	o.AddContent(e.ID)
	o.Enter.Entry(e)
	o.current = e.ID
	o.hasCurrent = true
	e.Departure = o.ID

	if o.needsSetup(e.Variant) {
		o.beginSetup(e, now)
		return
	}
	o.beginProcessing(e, now)
}

func (o *Operation) needsSetup(next *model.Variant) bool {
	if o.SetupTime == nil {
		return false
	}
	if o.lastVariant == nil {
		return true
	}
	if next == nil {
		return false
	}
	return o.lastVariant.ID != next.ID
}

func (o *Operation) beginSetup(e *model.Entity, now engine.SimTime) {
	o.SetState(now, model.Setup)
	gen := o.SetupTime(o.lastVariant, e.Variant)
	var dt engine.SimTime
	if gen != nil {
		dt = engine.SimTime(gen.Next())
	}
	o.setupEvent = engine.NewEvent(engine.KindSetup, engine.PrioritySetup, o.NodeName(), o.NodeName(), func() {
		o.lastVariant = e.Variant
		o.beginProcessing(e, o.Kernel.Now())
	})
	o.Kernel.Schedule(o.setupEvent, dt)
}

func (o *Operation) beginProcessing(e *model.Entity, now engine.SimTime) {
	if o.Resource != nil && o.Manager != nil {
		resume := func(matched []*resource.LogicSkill) { o.onResourceAllocated(e, o.Kernel.Now(), matched) }
		matched, ok := o.Manager.TryAllocate(o.Resource, e.ID, int(o.ID), resource.Processing, now, resume)
		if !ok {
			o.SetState(now, model.WaitingForResource)
			return
		}
		o.onResourceAllocated(e, now, matched)
		return
	}
	o.startWorking(e, now)
}

// onResourceAllocated applies matched's execution factor and the resource's
// response-time delay before starting work. It runs either immediately from
// beginProcessing, once TryAllocate binds a resource on the spot, or later
// as the resume closure a TriggerBlockList retry invokes once a
// WaitingForResource stall's demand is finally satisfied (spec.md §4.6: a
// queued demand resumes the instant the pool frees a matching resource,
// rather than staying stuck until some unrelated event happens to poll it).
func (o *Operation) onResourceAllocated(e *model.Entity, now engine.SimTime, matched []*resource.LogicSkill) {
	o.executionFactor[e.ID] = o.Resource.ExecutionFactor(e.ID, matched)
	r := o.Resource.AllocatedResource(e.ID)
	r.SetWaitStarted(now)
	if delay := r.ResponseTime(); delay > 0 {
		o.SetState(now, model.WaitingForResource)
		o.readyEvent = engine.NewEvent(engine.KindResourceReady, engine.PriorityResourceReady, o.NodeName(), o.NodeName(), func() {
			now := o.Kernel.Now()
			o.Manager.MarkReady(o.Resource, e.ID)
			r.SetWorkStarted(now)
			r.ClearReadyEvent()
			o.readyEvent = nil
			o.startWorking(e, now)
		})
		r.SetReadyEvent(o.readyEvent)
		o.Kernel.Schedule(o.readyEvent, delay)
		return
	}
	o.Manager.MarkReady(o.Resource, e.ID)
	r.SetWorkStarted(now)
	o.startWorking(e, now)
}

// startWorking transitions into Working and schedules the process-time
// countdown, run once any required resource has cleared its response-time
// delay. The drawn duration is scaled by the geometric mean of the
// allocated resource's skill execution factors, so a less-skilled resource
// stretches the cycle and a more-skilled one shortens it.
func (o *Operation) startWorking(e *model.Entity, now engine.SimTime) {
	o.SetState(now, model.Working)
	dt := engine.SimTime(o.ProcessTime.Next())
	if factor, ok := o.executionFactor[e.ID]; ok {
		dt = engine.SimTime(float64(dt) * factor)
	}
	o.currentDuration = dt
	o.outEvent = engine.NewEvent(engine.KindOut, engine.PriorityOut, o.NodeName(), o.NodeName(), func() {
		o.finishProcessing(e.ID, o.Kernel.Now())
	})
	o.Kernel.Schedule(o.outEvent, dt)
}

func (o *Operation) finishProcessing(entityID uint64, now engine.SimTime) {
	o.SetState(now, model.Blocked)
	if o.onReadyToExit != nil {
		o.onReadyToExit(entityID)
	}
}

// Depart releases the entity from the operation once it has actually left,
// releasing any allocated processing resource and returning to Waiting.
func (o *Operation) Depart(entityID uint64, now engine.SimTime) {
	o.RemoveContent(entityID)
	o.hasCurrent = false
	delete(o.executionFactor, entityID)
	if o.Resource != nil && o.Manager != nil {
		if r := o.Manager.Release(o.Resource, entityID); r != nil {
			o.Manager.TriggerBlockList(func(item resource.BlockListItem) bool {
				matched, ok := o.Manager.TryAllocate(item.Resource, item.EntityID, item.NodeID, item.Type, now, item.Resume)
				if ok && item.Resume != nil {
					item.Resume(matched)
				}
				return ok
			})
		}
	}
	o.SetState(now, model.Waiting)
}

// BeginDisruption extends Base's failure-reference-count bookkeeping with
// spec.md §4.6's Interruption clause: if the owner's becoming non-
// operational is what actually flips it Failed (not just one of several
// concurrent disruptions already holding it down), a Working activity
// backed by an interruptible resource is paused rather than left counting
// down underneath the outage.
func (o *Operation) BeginDisruption(now engine.SimTime, f *logic.Failure, level int) {
	wasOperational := o.IsOperational()
	o.Base.BeginDisruption(now, f, level)
	if wasOperational && !o.IsOperational() {
		o.interruptProcessing(now)
	}
}

// EndDisruption mirrors BeginDisruption: once the last concurrent
// disruption clears and the node becomes operational again, a paused
// activity resumes counting down its remaining time instead of staying
// stuck in Waiting forever.
func (o *Operation) EndDisruption(now engine.SimTime, f *logic.Failure, level int) {
	wasOperational := o.IsOperational()
	o.Base.EndDisruption(now, f, level)
	if !wasOperational && o.IsOperational() {
		o.resumeInterrupted(now)
	}
}

// interruptProcessing cancels the in-flight outEvent and stashes how much
// time to give the activity back once it resumes, per the attached
// resource's add_elapsed_time setting: true credits the time already
// spent, false discards it and replays the full original duration.
func (o *Operation) interruptProcessing(now engine.SimTime) {
	if !o.hasCurrent || o.outEvent == nil || o.Resource == nil || !o.Resource.Interruptible() {
		return
	}
	remaining := o.outEvent.Time - now
	if !o.Resource.AddElapsedTime() {
		remaining = o.currentDuration
	}
	o.Kernel.Cancel(o.outEvent)
	o.outEvent = nil
	o.interruptedRemaining = remaining
}

// resumeInterrupted reschedules the outEvent interruptProcessing cancelled,
// returning to Working for the remaining span.
func (o *Operation) resumeInterrupted(now engine.SimTime) {
	if o.interruptedRemaining <= 0 || !o.hasCurrent {
		return
	}
	remaining := o.interruptedRemaining
	o.interruptedRemaining = 0
	entityID := o.current
	o.SetState(now, model.Working)
	o.outEvent = engine.NewEvent(engine.KindOut, engine.PriorityOut, o.NodeName(), o.NodeName(), func() {
		o.finishProcessing(entityID, o.Kernel.Now())
	})
	o.Kernel.Schedule(o.outEvent, remaining)
}
