package nodes

import (
	"github.com/flowsim/flowsim/engine"
	"github.com/flowsim/flowsim/model"
)

// conveyorItem tracks one entity's position on the belt, in millimeters
// from the head.
type conveyorItem struct {
	entity   *model.Entity
	position float64
}

// Conveyor is a fixed-length transport that moves entities from tail to
// head at a constant speed (spec.md §4.8), grounded on
// original_source/conveyor.h. Accumulating conveyors let trailing entities
// close up on a blocked leader; non-accumulating conveyors stop entirely
// when the head is blocked.
type Conveyor struct {
	*Base

	Length         float64 // mm
	Speed          float64 // mm/s
	Accumulating   bool
	LengthOriented bool // true: variant length occupies the belt, false: width

	items []conveyorItem

	updateEvent  *engine.Event
	openEvent    *engine.Event
	animateEvent *engine.Event

	// AnimatePeriod is how often an AnimateConveyor event fires while the
	// belt is occupied (spec.md §6's supplemented AnimateConveyor,
	// grounded on original_source/eventanimateconveyor.h). Zero disables it.
	AnimatePeriod engine.SimTime

	remainingAtSuspend float64 // mm remaining to travel when suspended, non-operational

	onReadyToExit func(entityID uint64)
	onAnimate     func(positions []float64)
}

// OnAnimate registers a callback fired on every AnimateConveyor tick with
// each occupant's current position, for a downstream visualizer to consume.
func (c *Conveyor) OnAnimate(fn func(positions []float64)) { c.onAnimate = fn }

func (c *Conveyor) scheduleAnimate() {
	if c.AnimatePeriod <= 0 || len(c.items) == 0 {
		return
	}
	c.animateEvent = engine.NewEvent(engine.KindAnimateConveyor, engine.PriorityAnimateConveyor, c.NodeName(), c.NodeName(), c.animate)
	c.Kernel.Schedule(c.animateEvent, c.AnimatePeriod)
}

func (c *Conveyor) animate() {
	if len(c.items) == 0 {
		return
	}
	if c.onAnimate != nil {
		positions := make([]float64, len(c.items))
		for i, it := range c.items {
			positions[i] = it.position
		}
		c.onAnimate(positions)
	}
	c.scheduleAnimate()
}

func NewConveyor(k *engine.Kernel, id model.NodeID, name string, length, speed float64, accumulating bool) *Conveyor {
	return &Conveyor{Base: NewBase(k, id, name, 0), Length: length, Speed: speed, Accumulating: accumulating}
}

func (c *Conveyor) OnReadyToExit(fn func(entityID uint64)) { c.onReadyToExit = fn }

func (c *Conveyor) occupancy(e *model.Entity) float64 {
	// Physical dimensions are outside this port's scope (spec.md §6
	// declines detailed dimensional modeling); a fixed per-entity slot
	// keeps the accumulating/blocking semantics exercisable without a
	// dimensions table.
	return 1000.0
}

// usedLength sums the occupancy of everything currently on the belt.
func (c *Conveyor) usedLength() float64 {
	total := 0.0
	for _, it := range c.items {
		total += c.occupancy(it.entity)
	}
	return total
}

// IsOpen reports whether there is room at the tail for e (spec.md §4.8
// invariant: entity lengths + gaps <= L).
func (c *Conveyor) IsOpen(e *model.Entity) bool {
	if c.usedLength()+c.occupancy(e) > c.Length {
		return false
	}
	return c.Enter.IsOpen(e, false)
}

// Accept places e at the tail and schedules its UpdateConveyor arrival at
// the head.
func (c *Conveyor) Accept(e *model.Entity, now engine.SimTime) {
	c.AddContent(e.ID)
	c.Enter.Entry(e)
	e.Departure = c.ID
	c.items = append(c.items, conveyorItem{entity: e, position: c.Length})
	c.SetState(now, model.Working)
	c.scheduleUpdate(now)
	if c.animateEvent == nil {
		c.scheduleAnimate()
	}
}

func (c *Conveyor) scheduleUpdate(now engine.SimTime) {
	if len(c.items) == 0 || c.Speed <= 0 {
		return
	}
	head := c.items[0]
	dt := engine.SimTime(head.position / c.Speed)
	c.updateEvent = engine.NewEvent(engine.KindUpdateConveyor, engine.PriorityUpdateConveyor, c.NodeName(), c.NodeName(), c.advance)
	c.Kernel.Schedule(c.updateEvent, dt)
}

// advance moves the head entity to position 0 and offers it for exit; if
// blocked (non-accumulating), the whole belt halts until ConveyorOpen
// reschedules it.
func (c *Conveyor) advance() {
	now := c.Kernel.Now()
	if len(c.items) == 0 {
		return
	}
	c.items[0].position = 0
	c.SetState(now, model.Blocked)
	if c.onReadyToExit != nil {
		c.onReadyToExit(c.items[0].entity.ID)
	}
}

// Depart removes the head entity once it actually leaves and shifts
// trailing items forward (accumulating) or resumes belt motion
// (non-accumulating), per spec.md §4.8.
func (c *Conveyor) Depart(entityID uint64, now engine.SimTime) {
	if len(c.items) == 0 || c.items[0].entity.ID != entityID {
		return
	}
	c.RemoveContent(entityID)
	c.items = c.items[1:]
	if len(c.items) == 0 {
		if c.animateEvent != nil {
			c.Kernel.Cancel(c.animateEvent)
			c.animateEvent = nil
		}
		c.SetState(now, model.Waiting)
		return
	}
	if c.Accumulating {
		gap := c.occupancy(c.items[0].entity)
		if c.items[0].position > gap {
			c.items[0].position = gap
		}
	}
	c.SetState(now, model.Working)
	c.scheduleUpdate(now)
}

// Suspend records the remaining travel distance of the head item when the
// belt becomes non-operational (spec.md §4.8's remaining-distance capture).
func (c *Conveyor) Suspend(now engine.SimTime) {
	if c.updateEvent != nil {
		c.Kernel.Cancel(c.updateEvent)
	}
	if len(c.items) > 0 {
		c.remainingAtSuspend = c.items[0].position
	}
}

// Resume converts the captured remaining distance back into a schedule
// using the current speed once the belt becomes operational again.
func (c *Conveyor) Resume(now engine.SimTime) {
	if len(c.items) == 0 || c.Speed <= 0 {
		return
	}
	c.items[0].position = c.remainingAtSuspend
	c.scheduleUpdate(now)
}
