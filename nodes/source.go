package nodes

import (
	"github.com/flowsim/flowsim/engine"
	"github.com/flowsim/flowsim/model"
	"github.com/flowsim/flowsim/numgen"
)

// Source creates entities on a schedule and pushes them into the model
// (spec.md §4.2 step 1, grounded on original_source/source.h).
type Source struct {
	*Base

	Arrival  numgen.Generator
	Creator  model.VariantCreator
	Arena    *model.EntityArena
	Units    int

	entityCreated func(e *model.Entity) bool
	nextEvent     *engine.Event
}

func NewSource(k *engine.Kernel, id model.NodeID, name string, arrival numgen.Generator, creator model.VariantCreator, arena *model.EntityArena) *Source {
	return &Source{
		Base:    NewBase(k, id, name, 0),
		Arrival: arrival,
		Creator: creator,
		Arena:   arena,
		Units:   1,
	}
}

// OnEntityCreated registers a callback invoked immediately after a new
// entity is created, used by the simulator to try delivering it into the
// movement protocol. The callback reports whether the entity was actually
// delivered; a Source only schedules its next arrival once the current one
// has left, so a blocked successor throttles creation rather than piling
// entities up inside the Source itself.
func (s *Source) OnEntityCreated(fn func(e *model.Entity) bool) { s.entityCreated = fn }

// ScheduleNext schedules the CreateEntity event that fires the next
// arrival, drawing its interval from Arrival.
func (s *Source) ScheduleNext() {
	dt := engine.SimTime(s.Arrival.Next())
	s.nextEvent = engine.NewEvent(engine.KindCreateEntity, engine.PriorityCreateEntity, s.NodeName(), s.NodeName(), s.fire)
	s.Kernel.Schedule(s.nextEvent, dt)
}

func (s *Source) fire() {
	v := s.Creator.Next()
	e := s.Arena.Create(v, s.ID, s.Units, s.Kernel.Now())
	delivered := true
	if s.entityCreated != nil {
		delivered = s.entityCreated(e)
	}
	if delivered {
		s.ScheduleNext()
	}
}

// CreateOne creates a single entity immediately, outside the Arrival
// schedule, and offers it for delivery. Used by a Demand pulse (spec.md
// §5) rather than the Source's own continuous-arrival timer.
func (s *Source) CreateOne() {
	v := s.Creator.Next()
	e := s.Arena.Create(v, s.ID, s.Units, s.Kernel.Now())
	if s.entityCreated != nil {
		s.entityCreated(e)
	}
}

// Cancel stops future arrivals (e.g. once an attached Order/Demand is
// satisfied).
func (s *Source) Cancel() {
	if s.nextEvent != nil {
		s.Kernel.Cancel(s.nextEvent)
	}
}
