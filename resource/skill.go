// Package resource implements shared-resource allocation: skills, pooled
// resources, and the ResourceManager admission/block-list protocol
// (spec.md §5's Resource/skill allocation subsystem), grounded on
// original_source/{nodeskill,logicskill,noderesource,logicresource,
// resourcemanager}.h.
package resource

import "github.com/flowsim/flowsim/engine"

// LogicSkill is one unit of capability a LogicResource can provide, carrying
// an execution factor that scales the processing time when a resource with
// this skill executes the work (grounded on logicskill.h).
type LogicSkill struct {
	ID              int
	Name            string
	Resource        *LogicResource
	ExecutionFactor float64
}

// NodeSkill is the requirement side: a node names the skill it needs, which
// resolves at allocation time to a LogicSkill offered by some resource
// (grounded on nodeskill.h).
type NodeSkill struct {
	ID         int
	Name       string
	LogicSkill *LogicSkill
}

// LogicResource is the pool-side actor: it owns a set of skills and tracks
// response-time delay before it becomes "ready" to actually start work
// (grounded on logicresource.h).
type LogicResource struct {
	ID     int
	Name   string
	Skills []*LogicSkill

	responseTime engine.SimTime
	workStarted  engine.SimTime
	waitStarted  engine.SimTime
	readyEvent   *engine.Event
	busy         bool
}

func NewLogicResource(id int, name string, responseTime engine.SimTime) *LogicResource {
	return &LogicResource{ID: id, Name: name, responseTime: responseTime}
}

func (r *LogicResource) AddSkill(s *LogicSkill) {
	s.Resource = r
	r.Skills = append(r.Skills, s)
}

// ResponseTime is the delay between allocation and the resource becoming
// ready to actually process (logicresource.h's work_started/set_ready
// mechanics collapse to this single duration for a Go-idiomatic port).
func (r *LogicResource) ResponseTime() engine.SimTime { return r.responseTime }

func (r *LogicResource) SetWorkStarted(t engine.SimTime) { r.workStarted = t }
func (r *LogicResource) WorkStarted() engine.SimTime     { return r.workStarted }
func (r *LogicResource) SetWaitStarted(t engine.SimTime) { r.waitStarted = t }
func (r *LogicResource) WaitStarted() engine.SimTime     { return r.waitStarted }

// SetReadyEvent / ReadyEvent / ClearReadyEvent track the pending
// "resource ready" event so a disruption can cancel and later reschedule it
// while preserving the elapsed response-time delta (grounded on
// logicresource.h's try_cancel_ready_event / try_reschedule_ready_event).
func (r *LogicResource) SetReadyEvent(e *engine.Event) { r.readyEvent = e }
func (r *LogicResource) ReadyEvent() *engine.Event     { return r.readyEvent }
func (r *LogicResource) ClearReadyEvent()              { r.readyEvent = nil }
