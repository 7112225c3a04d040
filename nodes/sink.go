package nodes

import (
	"github.com/flowsim/flowsim/engine"
	"github.com/flowsim/flowsim/model"
)

// Sink destroys entities that reach it, recording exit statistics (spec.md
// §4.2 step 4/terminal case, grounded on original_source/sink.h).
type Sink struct {
	*Base
	Arena *model.EntityArena

	Exits       uint64
	CycleTimeSum engine.SimTime

	onExit func(e *model.Entity)
}

func NewSink(k *engine.Kernel, id model.NodeID, name string, arena *model.EntityArena) *Sink {
	s := &Sink{Base: NewBase(k, id, name, 0), Arena: arena}
	s.Exit = model.NewNopExitPort(id)
	return s
}

func (s *Sink) OnExit(fn func(e *model.Entity)) { s.onExit = fn }

// Enter always accepts (a Sink has no capacity limit) and immediately
// destroys the entity, per sink.h.
func (s *Sink) Enter(e *model.Entity, now engine.SimTime) {
	s.Exits++
	s.CycleTimeSum += now - e.ModelEnterTime
	if s.onExit != nil {
		s.onExit(e)
	}
	s.Arena.Release(e.ID)
}

// AverageCycleTime returns the mean model-enter-to-sink duration across all
// entities that have exited so far.
func (s *Sink) AverageCycleTime() engine.SimTime {
	if s.Exits == 0 {
		return 0
	}
	return s.CycleTimeSum / engine.SimTime(s.Exits)
}
