package builder

import (
	"fmt"
	"math/rand"

	"github.com/flowsim/flowsim/config"
	"github.com/flowsim/flowsim/engine"
	"github.com/flowsim/flowsim/logic"
	"github.com/flowsim/flowsim/model"
	"github.com/flowsim/flowsim/nodes"
	"github.com/flowsim/flowsim/numgen"
	"github.com/flowsim/flowsim/resource"
	"github.com/flowsim/flowsim/stats"
)

// Simulation is the fully wired runtime graph for one model, ready to
// drive via its embedded *engine.Kernel (grounded on sim/cluster/
// simulator.go's ClusterSimulator, which bundles the kernel with every
// domain object it schedules events against).
type Simulation struct {
	Kernel *engine.Kernel
	RNG    *numgen.PartitionedRNG

	Model    *config.Model
	Variants *model.VariantSet
	Arena    *model.EntityArena

	NodeIndex     map[string]model.NodeID
	Sources       map[string]*nodes.Source
	Sinks         map[string]*nodes.Sink
	Buffers       map[string]*nodes.Buffer
	Ops           map[string]*nodes.Operation
	Assemblies    map[string]*nodes.Assembly
	Disassemblies map[string]*nodes.Disassembly
	Conveyors     map[string]*nodes.Conveyor
	Parallels     map[string]*nodes.ParallelOperation
	Manager       *resource.Manager
	Failures      map[string]*logic.Failure
	Zones         map[string]*nodes.FailureZone
	Calendars     map[string]*logic.ShiftCalendar
	Orders        map[string]*logic.Order
	Demands       map[string]*logic.Demand
	Takts         map[string]*logic.Takt
	Batches       map[string]*logic.Batch

	Tracker *stats.Tracker

	skillsByName      map[string]*resource.LogicSkill
	nodeCfg           map[string]config.NodeConfig
	idToName          map[model.NodeID]string
	criticalWipGroups map[string]*logic.CriticalWip
	taktPending       map[string]uint64
	taktGroupByNode   map[string]string

	// pendingExits holds one retry closure per entity currently sitting on
	// some destination's forward block list, keyed by entity ID so
	// retryAll can invoke the right source-side deliver call once that
	// destination's dispatcher picks the entity's turn.
	pendingExits map[uint64]func(engine.SimTime) bool

	// retryScheduled marks that a KindOutUnblocked event is already on the
	// kernel's queue, so a cascade of deliver calls within the same instant
	// coalesces into a single retry pass instead of scheduling one per call.
	retryScheduled bool

	// refTimers tracks the live DisruptionBegin event (if any) for every
	// Failure whose TimeReference is Processing or Operational, keyed by
	// failure name, so a reference-node state change can cancel and later
	// resume it against the node's own working/operational spans.
	refTimers map[string]*refTimer
}

// refTimer is the live-event handle for a Processing/Operational-reference
// Failure's pending DisruptionBegin, or nil when the failure is currently
// suspended waiting for its reference node to become eligible again.
type refTimer struct {
	evt *engine.Event
}

// Build constructs a Simulation from a validated config.Model. Callers must
// run config.Validate first; Build does not re-validate.
func Build(m *config.Model, seed numgen.SimulationKey) (*Simulation, error) {
	s := &Simulation{
		Kernel:            engine.NewKernel(),
		RNG:               numgen.NewPartitionedRNG(seed),
		Model:             m,
		Variants:          model.NewVariantSet(),
		Arena:             model.NewEntityArena(),
		NodeIndex:         map[string]model.NodeID{},
		Sources:           map[string]*nodes.Source{},
		Sinks:             map[string]*nodes.Sink{},
		Buffers:           map[string]*nodes.Buffer{},
		Ops:               map[string]*nodes.Operation{},
		Assemblies:        map[string]*nodes.Assembly{},
		Disassemblies:     map[string]*nodes.Disassembly{},
		Conveyors:         map[string]*nodes.Conveyor{},
		Parallels:         map[string]*nodes.ParallelOperation{},
		Failures:          map[string]*logic.Failure{},
		Zones:             map[string]*nodes.FailureZone{},
		Calendars:         map[string]*logic.ShiftCalendar{},
		Orders:            map[string]*logic.Order{},
		Demands:           map[string]*logic.Demand{},
		Takts:             map[string]*logic.Takt{},
		Batches:           map[string]*logic.Batch{},
		Tracker:           stats.NewTracker(),
		skillsByName:      map[string]*resource.LogicSkill{},
		nodeCfg:           map[string]config.NodeConfig{},
		criticalWipGroups: map[string]*logic.CriticalWip{},
		taktPending:       map[string]uint64{},
		taktGroupByNode:   map[string]string{},
		pendingExits:      map[uint64]func(engine.SimTime) bool{},
		refTimers:         map[string]*refTimer{},
	}

	for _, v := range m.Variants {
		s.Variants.Register(v.Name, v.Weight)
	}

	for i, n := range m.Nodes {
		s.NodeIndex[n.Name] = model.NodeID(i)
		s.nodeCfg[n.Name] = n
	}

	s.buildResources(m)

	for i, n := range m.Nodes {
		if err := s.buildNode(i, n); err != nil {
			return nil, fmt.Errorf("node %q: %w", n.Name, err)
		}
	}

	s.idToName = map[model.NodeID]string{}
	for name, id := range s.NodeIndex {
		s.idToName[id] = name
	}

	s.wireSuccessors(m)
	s.buildTaktGroups(m)
	s.buildLogics(m)

	s.buildFailureZones(m)
	s.populateFailureZones(m)
	if err := s.buildFailures(m); err != nil {
		return nil, err
	}

	s.buildShiftCalendars(m)
	s.attachShiftCalendars(m)
	s.armShiftCalendars()

	s.wireTracker(m)
	s.WireMovement()

	return s, nil
}

func (s *Simulation) buildResources(m *config.Model) {
	var pool []*resource.LogicResource
	for i, rc := range m.Resources {
		lr := resource.NewLogicResource(i, rc.Name, engine.SimTime(rc.ResponseTime))
		for _, skillName := range rc.Skills {
			sk, ok := s.skillsByName[skillName]
			if !ok {
				sk = &resource.LogicSkill{ID: len(s.skillsByName), Name: skillName, ExecutionFactor: 1.0}
				s.skillsByName[skillName] = sk
			}
			lr.AddSkill(sk)
		}
		pool = append(pool, lr)
	}
	s.Manager = resource.NewManager(pool)
}

func (s *Simulation) buildNode(idx int, n config.NodeConfig) error {
	id := s.NodeIndex[n.Name]
	rng := s.RNG.ForSubsystem(n.Name)

	switch n.Kind {
	case "source":
		arrival, err := buildGenerator(n.Arrival, rng)
		if err != nil {
			return err
		}
		creator := s.buildVariantCreator(rng)
		src := nodes.NewSource(s.Kernel, id, n.Name, arrival, creator, s.Arena)
		s.Sources[n.Name] = src

		var ord *logic.Order
		if n.Order != nil {
			var v *model.Variant
			if n.Order.Variant != "" {
				v, _ = s.Variants.ByName(n.Order.Variant)
			}
			ord = logic.NewOrder(v, n.Order.Quantity)
			s.Orders[n.Name] = ord
		}
		if n.Demand != nil {
			interval, err := buildGenerator(n.Demand.Interval, rng)
			if err != nil {
				return err
			}
			s.Demands[n.Name] = logic.NewDemand(interval, n.Demand.BatchSize, ord)
		}
	case "sink":
		s.Sinks[n.Name] = nodes.NewSink(s.Kernel, id, n.Name, s.Arena)
	case "buffer", "store":
		buf := nodes.NewBuffer(s.Kernel, id, n.Name, n.Capacity)
		if len(n.PerVariantCapacity) > 0 {
			buf.PerVariantCapacity = map[int]int{}
			for variantName, limit := range n.PerVariantCapacity {
				if v, ok := s.Variants.ByName(variantName); ok {
					buf.PerVariantCapacity[v.ID] = limit
				}
			}
		}
		s.Buffers[n.Name] = buf
	case "operation":
		pt, err := buildGenerator(n.ProcessTime, rng)
		if err != nil {
			return err
		}
		op := nodes.NewOperation(s.Kernel, id, n.Name, pt)
		if n.SetupTime != nil {
			setupCfg := n.SetupTime
			op.SetupTime = func(prev, next *model.Variant) numgen.Generator {
				g, _ := buildGenerator(setupCfg, rng)
				return g
			}
		}
		if len(n.ResourceSkills) > 0 {
			nr := resource.NewNodeResource(idx, n.Name, resourceSort(n.ResourceSort))
			for _, skillName := range n.ResourceSkills {
				nr.RequireSkill(&resource.NodeSkill{Name: skillName, LogicSkill: s.skillsByName[skillName]})
			}
			nr.SetSkillsFirst(n.ResourceSkillsFirst)
			op.Resource = nr
			op.Manager = s.Manager
		}
		s.Ops[n.Name] = op
	case "assembly":
		pt, err := buildGenerator(n.ProcessTime, rng)
		if err != nil {
			return err
		}
		var required []int
		for _, partName := range n.RequiredParts {
			if v, ok := s.Variants.ByName(partName); ok {
				required = append(required, v.ID)
			}
		}
		s.Assemblies[n.Name] = nodes.NewAssembly(s.Kernel, id, n.Name, pt, required)
	case "disassembly":
		pt, err := buildGenerator(n.ProcessTime, rng)
		if err != nil {
			return err
		}
		s.Disassemblies[n.Name] = nodes.NewDisassembly(s.Kernel, id, n.Name, pt)
	case "conveyor":
		conv := nodes.NewConveyor(s.Kernel, id, n.Name, n.Length, n.Speed, n.Accumulating)
		s.Conveyors[n.Name] = conv
	case "parallel":
		internal := n.Internal
		processTimeCfg := n.ProcessTime
		p := nodes.NewParallelOperation(s.Kernel, id, n.Name, internal, func(i int) numgen.Generator {
			g, _ := buildGenerator(processTimeCfg, rng)
			return g
		})
		p.MixedProcessing = n.MixedProcessing
		p.SynchronizeEntry = n.SynchronizeEntry
		p.SynchronizeExit = n.SynchronizeExit
		p.EntryTimeout = engine.SimTime(n.EntryTimeout)
		s.Parallels[n.Name] = p
	default:
		return fmt.Errorf("unknown node kind %q", n.Kind)
	}
	return nil
}

func resourceSort(name string) resource.Sorting {
	switch name {
	case "few_skills_slow_execution":
		return resource.FewSkillsSlowExecution
	case "many_skills_fast_execution":
		return resource.ManySkillsFastExecution
	case "many_skills_slow_execution":
		return resource.ManySkillsSlowExecution
	case "fast_execution_few_skills":
		return resource.FastExecutionFewSkills
	case "fast_execution_many_skills":
		return resource.FastExecutionManySkills
	case "slow_execution_few_skills":
		return resource.SlowExecutionFewSkills
	case "slow_execution_many_skills":
		return resource.SlowExecutionManySkills
	default:
		return resource.FewSkillsFastExecution
	}
}

// buildVariantCreator picks a variant at random (weighted if any Variant
// carries a non-zero Weight), matching demand.h's default when a Source
// isn't otherwise driven by an explicit Order/Demand schedule.
func (s *Simulation) buildVariantCreator(rng *rand.Rand) model.VariantCreator {
	return model.NewRandomVariantCreator(rng, s.Variants.All())
}

// wireSuccessors installs each node's exit successors and the move strategy
// its config selects, plus the matching predecessor links on the
// destination's enter port (spec.md §4.2/§4.3).
func (s *Simulation) wireSuccessors(m *config.Model) {
	for _, n := range m.Nodes {
		port := s.exitPortFor(n.Name)
		if port == nil {
			continue
		}
		rng := s.RNG.ForSubsystem("move:" + n.Name)
		port.SetMoveStrategy(s.moveStrategyFor(n.Name, rng))
		for _, succ := range n.Successors {
			destID, ok := s.NodeIndex[succ.Node]
			if !ok {
				continue
			}
			var v *model.Variant
			if succ.Variant != "" {
				v, _ = s.Variants.ByName(succ.Variant)
			}
			port.AddSuccessor(v, destID, succ.Weight)
			if enter := s.enterPortFor(succ.Node); enter != nil {
				enter.AddPredecessor(v, s.NodeIndex[n.Name])
			}
		}
	}
}

// moveStrategyFor picks the concrete model.MoveStrategy a node's
// move_strategy config names (spec.md §5), defaulting to SuccessorStrategy
// for the common single-path case.
func (s *Simulation) moveStrategyFor(name string, rng *rand.Rand) model.MoveStrategy {
	cfg := s.nodeCfg[name]
	switch cfg.MoveStrategy {
	case "cyclic":
		return &model.CyclicStrategy{}
	case "random":
		return model.NewRandomStrategy(rng)
	case "weighted":
		return model.NewWeightedStrategy(rng)
	case "sequence":
		return &model.SequenceStrategy{Sequence: cfg.Sequence}
	case "sequence_entity":
		return model.NewSequenceEntityStrategy()
	default:
		return model.SuccessorStrategy{}
	}
}

func (s *Simulation) exitPortFor(name string) model.ExitPortLike {
	if n, ok := s.Sources[name]; ok {
		return n.Exit
	}
	if n, ok := s.Buffers[name]; ok {
		return n.Exit
	}
	if n, ok := s.Ops[name]; ok {
		return n.Exit
	}
	if n, ok := s.Assemblies[name]; ok {
		return n.Exit
	}
	if n, ok := s.Disassemblies[name]; ok {
		return n.Exit
	}
	if n, ok := s.Conveyors[name]; ok {
		return n.Exit
	}
	if n, ok := s.Parallels[name]; ok {
		return n.Exit
	}
	return nil
}

func (s *Simulation) enterPortFor(name string) *model.EnterPort {
	if n, ok := s.Sinks[name]; ok {
		return n.Base.Enter
	}
	if n, ok := s.Buffers[name]; ok {
		return n.Enter
	}
	if n, ok := s.Ops[name]; ok {
		return n.Enter
	}
	if n, ok := s.Assemblies[name]; ok {
		return n.Enter
	}
	if n, ok := s.Disassemblies[name]; ok {
		return n.Enter
	}
	if n, ok := s.Conveyors[name]; ok {
		return n.Enter
	}
	if n, ok := s.Parallels[name]; ok {
		return n.Enter
	}
	return nil
}

// baseFor returns the shared node plumbing for any built node kind by name,
// used by failure/shift-calendar/tracker wiring that needs the state
// machine and disruption hooks regardless of concrete type.
func (s *Simulation) baseFor(name string) *nodes.Base {
	if n, ok := s.Sources[name]; ok {
		return n.Base
	}
	if n, ok := s.Sinks[name]; ok {
		return n.Base
	}
	if n, ok := s.Buffers[name]; ok {
		return n.Base
	}
	if n, ok := s.Ops[name]; ok {
		return n.Base
	}
	if n, ok := s.Assemblies[name]; ok {
		return n.Base
	}
	if n, ok := s.Disassemblies[name]; ok {
		return n.Base
	}
	if n, ok := s.Conveyors[name]; ok {
		return n.Base
	}
	if n, ok := s.Parallels[name]; ok {
		return n.Base
	}
	return nil
}

// onCycleFinish fires fn with the entity that just finished processing at
// base, proxied by the transition into Blocked that every node kind passes
// through once it is ready to offer an entity for exit (spec.md §4.2's
// finish-then-offer step). Used where a downstream mechanism (a cycles-mode
// Failure, a Batch) needs to know a work cycle completed without base
// exposing its own dedicated event for it.
func onCycleFinish(base *nodes.Base, fn func(entityID uint64)) {
	base.OnStateChanged(func(_ *model.NodeBase, from, to model.State) {
		if to != model.Blocked {
			return
		}
		content := base.Content()
		if len(content) == 0 {
			return
		}
		fn(content[len(content)-1])
	})
}

// buildTaktGroups constructs each configured Takt barrier and records which
// group (if any) each member node belongs to, so WireMovement can gate that
// node's exit on the shared barrier instead of releasing on its own.
func (s *Simulation) buildTaktGroups(m *config.Model) {
	for _, tc := range m.TaktGroups {
		s.Takts[tc.Name] = logic.NewTakt(tc.Name, engine.SimTime(tc.CycleTime), tc.Nodes)
		for _, nodeName := range tc.Nodes {
			s.taktGroupByNode[nodeName] = tc.Name
		}
	}
}

func (s *Simulation) buildFailureZones(m *config.Model) {
	for _, z := range m.FailureZones {
		s.Zones[z.Name] = nodes.NewFailureZone(z.Name, z.PropagationSteps)
	}
}

// populateFailureZones adds each zone's member nodes to it once every node's
// *nodes.Base exists, so Propagate/End (spec.md §4.5) have someone to visit.
func (s *Simulation) populateFailureZones(m *config.Model) {
	for _, zc := range m.FailureZones {
		zone, ok := s.Zones[zc.Name]
		if !ok {
			continue
		}
		for _, nodeName := range zc.Nodes {
			base := s.baseFor(nodeName)
			if base == nil {
				continue
			}
			zone.Add(base)
		}
	}
}

func (s *Simulation) buildFailures(m *config.Model) error {
	for _, fc := range m.Failures {
		rng := s.RNG.ForSubsystem("failure:" + fc.Name)
		var f *logic.Failure
		switch fc.Mode {
		case "percent":
			mean := fc.MTTR * fc.Availability / (1 - fc.Availability)
			interval := numgen.NewExponential(rng, mean)
			duration := numgen.NewExponential(rng, fc.MTTR)
			f = logic.NewPercentFailure(fc.Name, interval, fc.Availability, fc.MTTR, duration)
		case "distributions":
			interval, err := buildGenerator(fc.Interval, rng)
			if err != nil {
				return err
			}
			duration, err := buildGenerator(fc.Duration, rng)
			if err != nil {
				return err
			}
			f = logic.NewDistributionsFailure(fc.Name, timeReference(fc.Reference), interval, duration)
		case "cycles":
			duration, err := buildGenerator(fc.Duration, rng)
			if err != nil {
				return err
			}
			f = logic.NewCyclesFailure(fc.Name, fc.CycleCount, duration)
		default:
			return fmt.Errorf("failure %q: unknown mode %q", fc.Name, fc.Mode)
		}
		s.Failures[fc.Name] = f

		if f.Mode != logic.CyclesMode && f.Reference != logic.Simulation {
			s.watchFailureReference(f, fc.Zone, fc.Node)
		}

		if f.Mode == logic.CyclesMode {
			s.armCyclesFailure(m, f, fc)
		} else {
			s.armFailure(f, fc.Zone, fc.Node)
		}
	}
	return nil
}

// failureTargetNodes resolves a FailureConfig's zone (every member node) or
// its single Node into the node names a cycles-mode Failure should count
// completed cycles on.
func (s *Simulation) failureTargetNodes(m *config.Model, fc config.FailureConfig) []string {
	if fc.Zone != "" {
		for _, z := range m.FailureZones {
			if z.Name == fc.Zone {
				return z.Nodes
			}
		}
		return nil
	}
	if fc.Node != "" {
		return []string{fc.Node}
	}
	return nil
}

// armCyclesFailure hooks RecordCycle off every target node finishing a work
// cycle, since CyclesMode has no elapsed-time interval to schedule against
// (Failure.NextInterval returns 0 for it) — grounded on failure.h's
// set_cycle_count, which counts operational cycles rather than clock time.
func (s *Simulation) armCyclesFailure(m *config.Model, f *logic.Failure, fc config.FailureConfig) {
	for _, name := range s.failureTargetNodes(m, fc) {
		base := s.baseFor(name)
		if base == nil {
			continue
		}
		targetName := name
		onCycleFinish(base, func(_ uint64) {
			if f.RecordCycle() {
				s.beginFailure(f, fc.Zone, targetName)
			}
		})
	}
}

// referenceBase resolves the node whose state governs a Processing/
// Operational-reference Failure's schedule: the named node directly, or the
// first member of the named zone standing in for the whole group.
func (s *Simulation) referenceBase(zoneName, nodeName string) *nodes.Base {
	if nodeName != "" {
		return s.baseFor(nodeName)
	}
	if zone, ok := s.Zones[zoneName]; ok {
		return zone.Reference()
	}
	return nil
}

// referenceEligibleState reports whether a node in state st is currently
// accruing time toward ref's schedule: Processing counts only Working/Setup
// spans, Operational counts everything but Unplanned/Paused/Failed, and
// Simulation always counts (wall-clock).
func referenceEligibleState(ref logic.TimeReference, st model.State) bool {
	switch ref {
	case logic.Processing:
		return st == model.Working || st == model.Setup
	case logic.Operational:
		return st != model.Unplanned && st != model.Paused && st != model.Failed
	default:
		return true
	}
}

// watchFailureReference registers the state-change observer that pauses and
// resumes f's pending DisruptionBegin as its reference node crosses in and
// out of eligibility, via Failure.Suspend/Remaining.
func (s *Simulation) watchFailureReference(f *logic.Failure, zoneName, nodeName string) {
	base := s.referenceBase(zoneName, nodeName)
	if base == nil {
		return
	}
	s.refTimers[f.Name] = &refTimer{}
	base.OnStateChanged(func(_ *model.NodeBase, from, to model.State) {
		rt, ok := s.refTimers[f.Name]
		if !ok {
			return
		}
		now := s.Kernel.Now()
		wasEligible := referenceEligibleState(f.Reference, from)
		isEligible := referenceEligibleState(f.Reference, to)
		switch {
		case wasEligible && !isEligible && rt.evt != nil:
			remaining := rt.evt.Time - now
			s.Kernel.Cancel(rt.evt)
			rt.evt = nil
			f.Suspend(remaining)
		case !wasEligible && isEligible && rt.evt == nil && f.Remaining() > 0:
			remaining := f.Remaining()
			f.Suspend(0)
			rt.evt = s.scheduleDisruptionBegin(f, zoneName, nodeName, remaining)
		}
	})
}

// scheduleDisruptionBegin schedules f's next DisruptionBegin dt time units
// from now and returns the event, so callers arming or resuming a
// reference-tracked failure can keep a handle for later cancellation.
func (s *Simulation) scheduleDisruptionBegin(f *logic.Failure, zoneName, nodeName string, dt engine.SimTime) *engine.Event {
	label := nodeName
	if label == "" {
		label = zoneName
	}
	evt := engine.NewEvent(engine.KindDisruptionBegin, engine.PriorityDisruptionBegin, label, label, func() {
		delete(s.refTimers, f.Name)
		s.beginFailure(f, zoneName, nodeName)
	})
	s.Kernel.Schedule(evt, dt)
	return evt
}

// armFailure schedules the next DisruptionBegin event for f, targeting
// either the named zone (propagated to every member) or a single node
// (spec.md §4.5). PercentMode/DistributionsMode re-arm themselves on every
// DisruptionEnd; CyclesMode is driven separately by armCyclesFailure.
//
// A Processing/Operational-reference failure only actually starts its timer
// while its reference node is currently eligible (Working/Setup, or simply
// operational); when it isn't, the drawn interval is stashed via
// Failure.Suspend and watchFailureReference's state-change hook starts the
// timer once eligibility returns.
func (s *Simulation) armFailure(f *logic.Failure, zoneName, nodeName string) {
	interval := f.NextInterval()
	rt, tracked := s.refTimers[f.Name]
	if !tracked {
		s.scheduleDisruptionBegin(f, zoneName, nodeName, interval)
		return
	}
	base := s.referenceBase(zoneName, nodeName)
	if base != nil && !referenceEligibleState(f.Reference, base.State()) {
		f.Suspend(interval)
		return
	}
	rt.evt = s.scheduleDisruptionBegin(f, zoneName, nodeName, interval)
}

// beginFailure applies f to its target (a FailureZone propagation or a
// single node's BeginDisruption) and schedules the matching DisruptionEnd.
func (s *Simulation) beginFailure(f *logic.Failure, zoneName, nodeName string) {
	now := s.Kernel.Now()
	f.SetActive(true)
	if zoneName != "" {
		if zone, ok := s.Zones[zoneName]; ok {
			zone.Propagate(now, f)
		}
	} else if base := s.baseFor(nodeName); base != nil {
		base.BeginDisruption(now, f, 0)
	}
	label := nodeName
	if label == "" {
		label = zoneName
	}
	evt := engine.NewEvent(engine.KindDisruptionEnd, engine.PriorityDisruptionEnd, label, label, func() {
		s.endFailure(f, zoneName, nodeName)
	})
	s.Kernel.Schedule(evt, f.NextDuration())
}

// endFailure clears f from its target and, for interval-driven modes,
// re-arms the next occurrence.
func (s *Simulation) endFailure(f *logic.Failure, zoneName, nodeName string) {
	now := s.Kernel.Now()
	f.SetActive(false)
	if zoneName != "" {
		if zone, ok := s.Zones[zoneName]; ok {
			zone.End(now, f)
		}
	} else if base := s.baseFor(nodeName); base != nil {
		base.EndDisruption(now, f, 0)
	}
	if f.Mode != logic.CyclesMode {
		s.armFailure(f, zoneName, nodeName)
	}
}

func timeReference(name string) logic.TimeReference {
	switch name {
	case "processing":
		return logic.Processing
	case "operational":
		return logic.Operational
	default:
		return logic.Simulation
	}
}

func (s *Simulation) buildShiftCalendars(m *config.Model) {
	for _, c := range m.ShiftCalendars {
		cal := logic.NewShiftCalendar(c.Name)
		for _, sh := range c.Shifts {
			item := &logic.ShiftItem{Name: sh.Name, Start: sh.Start, End: sh.End}
			for _, d := range sh.Days {
				switch d {
				case "mon":
					item.Monday = true
				case "tue":
					item.Tuesday = true
				case "wed":
					item.Wednesday = true
				case "thu":
					item.Thursday = true
				case "fri":
					item.Friday = true
				case "sat":
					item.Saturday = true
				case "sun":
					item.Sunday = true
				}
			}
			for _, b := range sh.Breaks {
				item.AddBreak(b.Start, b.End)
			}
			cal.AddShift(item)
		}
		s.Calendars[c.Name] = cal
	}
}

// attachShiftCalendars records, on each calendar, which nodes named it via
// shift_calendar, so armShiftCalendars knows whose state to drive.
func (s *Simulation) attachShiftCalendars(m *config.Model) {
	for _, n := range m.Nodes {
		if n.ShiftCalendar == "" {
			continue
		}
		cal, ok := s.Calendars[n.ShiftCalendar]
		if !ok {
			continue
		}
		cal.Attach(int(s.NodeIndex[n.Name]))
	}
}

// shiftScanStepHours bounds how finely NextTransition scans for the next
// shift/break boundary; a quarter hour resolves any boundary configured in
// whole-minute increments without an excessive number of scan steps.
const shiftScanStepHours = 0.25

// armShiftCalendars starts every calendar's transition schedule, driving its
// attached nodes' state immediately and again at each future boundary
// (spec.md §4.9).
func (s *Simulation) armShiftCalendars() {
	for _, cal := range s.Calendars {
		s.scheduleShiftCalendar(cal)
	}
}

func (s *Simulation) scheduleShiftCalendar(cal *logic.ShiftCalendar) {
	now := s.Kernel.Now()
	s.setCalendarNodesState(cal, now)
	next := cal.NextTransition(now, shiftScanStepHours)
	evt := engine.NewEvent(engine.KindShiftCalendarStart, engine.PriorityShiftCalendarStart, cal.Name, cal.Name, func() {
		s.scheduleShiftCalendar(cal)
	})
	s.Kernel.Schedule(evt, next-now)
}

// setCalendarNodesState drives every node attached to cal into Waiting (open
// shift), Paused (a break within an open shift), or Unplanned (no shift
// covers now) — spec.md §4.9, grounded on shiftcalendar.h's begin/end shift
// handlers.
func (s *Simulation) setCalendarNodesState(cal *logic.ShiftCalendar, now engine.SimTime) {
	for _, nodeID := range cal.Nodes {
		name, ok := s.idToName[model.NodeID(nodeID)]
		if !ok {
			continue
		}
		base := s.baseFor(name)
		if base == nil {
			continue
		}
		switch {
		case cal.IsOpenAt(now):
			base.SetState(now, model.Waiting)
		case cal.OnBreakAt(now):
			base.SetState(now, model.Paused)
		default:
			base.SetState(now, model.Unplanned)
		}
	}
}

// buildLogics wires MaxWip, CriticalWip, Kanban, Batch, Order, and Takt onto
// the nodes that configure them (spec.md §5), then installs any per-node
// Dispatch. All admission/release counters hang off model.EnterPort's
// AddOnEntry and nodes.Base's OnDepart hooks, the single points every
// concrete node type's own Accept/Depart already funnels through.
func (s *Simulation) buildLogics(m *config.Model) {
	for _, n := range m.Nodes {
		enter := s.enterPortFor(n.Name)
		base := s.baseFor(n.Name)

		if n.MaxWip > 0 && n.CriticalWipGroup == "" && enter != nil && base != nil {
			mw := logic.NewMaxWip(n.MaxWip)
			enter.AddEnterLogic(model.EnterLogic{Allow: func(e *model.Entity) bool { return mw.Allow(e) }})
			enter.AddOnEntry(func(e *model.Entity) { mw.Enter() })
			base.OnDepart(func(entityID uint64) { mw.Exit() })
		}

		if n.CriticalWipGroup != "" && enter != nil && base != nil {
			cw, ok := s.criticalWipGroups[n.CriticalWipGroup]
			if !ok {
				cw = logic.NewCriticalWip(n.MaxWip)
				s.criticalWipGroups[n.CriticalWipGroup] = cw
			}
			enter.AddEnterLogic(model.EnterLogic{Allow: func(e *model.Entity) bool { return cw.Allow(e) }})
			enter.AddOnEntry(func(e *model.Entity) { cw.Enter() })
			base.OnDepart(func(entityID uint64) { cw.Exit() })
		}

		if n.Kanban > 0 && enter != nil && base != nil {
			kb := logic.NewKanban(n.Kanban)
			enter.AddEnterLogic(model.EnterLogic{Allow: func(e *model.Entity) bool { return kb.Allow(e) }})
			enter.AddOnEntry(func(e *model.Entity) { kb.Take() })
			base.OnDepart(func(entityID uint64) { kb.Return() })
		}

		if n.Batch != nil {
			s.wireBatch(n)
		}

		if n.Kind != "source" && n.Order != nil && enter != nil {
			var v *model.Variant
			if n.Order.Variant != "" {
				v, _ = s.Variants.ByName(n.Order.Variant)
			}
			ord := logic.NewOrder(v, n.Order.Quantity)
			s.Orders[n.Name] = ord
			enter.AddEnterLogic(model.EnterLogic{Allow: ord.Allow})
			enter.AddOnEntry(func(e *model.Entity) {
				if ord.Allow(e) {
					ord.Consume()
				}
			})
		}
	}

	s.wireDispatchers(m)
}

// wireBatch attaches n's Batch to its enter/exit ports: entities accumulate
// into runs as they're admitted, each stamped with the run's id, and the
// exit port refuses to release a member until its own run has reached
// MinSize (whether by filling to MaxSize, a start-incomplete timeout, or an
// operator's FinishBatch call). ParallelProcessing widens the node's own
// occupancy limit to MaxSize so a full run can be worked concurrently
// rather than one member at a time.
func (s *Simulation) wireBatch(n config.NodeConfig) {
	enter := s.enterPortFor(n.Name)
	exit := s.exitPortFor(n.Name)
	base := s.baseFor(n.Name)
	if enter == nil || exit == nil || base == nil {
		return
	}

	b := logic.NewBatch(n.Batch.MinSize, n.Batch.MaxSize)
	b.MultipleBatches = n.Batch.MultipleBatches
	s.Batches[n.Name] = b

	if n.Batch.ParallelProcessing && base.MaxOccupation < n.Batch.MaxSize {
		base.MaxOccupation = n.Batch.MaxSize
	}

	enter.AddEnterLogic(model.EnterLogic{Allow: func(e *model.Entity) bool { return b.AllowEntry() }})
	enter.AddOnEntry(func(e *model.Entity) {
		id, full := b.Add(e.ID)
		e.BatchID = id
		if full {
			base.SetBatchID(id)
		}
	})
	exit.AddExitLogic(model.ExitLogic{Allow: func(e *model.Entity) bool { return b.ReadyToRelease(e.BatchID) }})
	base.OnDepart(func(entityID uint64) {
		if e, ok := s.Arena.Get(entityID); ok {
			b.Depart(e.BatchID, entityID)
		}
	})

	if n.Batch.PrioritizeComplete {
		exit.SetDispatcher(model.PrioritizeReady{Ready: func(e *model.Entity) bool { return b.ReadyToRelease(e.BatchID) }})
	}

	if n.Batch.StartIncomplete > 0 {
		s.scheduleBatchTimeout(n.Name, b, engine.SimTime(n.Batch.StartIncomplete))
	}
}

// scheduleBatchTimeout arms (and, once fired, rearms) a start-incomplete
// timer for name's batch: it force-starts whatever run has reached MinSize
// even short of MaxSize, then retries the node's blocked exits so the
// newly-released run can actually leave.
func (s *Simulation) scheduleBatchTimeout(name string, b *logic.Batch, interval engine.SimTime) {
	var arm func()
	arm = func() {
		evt := engine.NewEvent(engine.KindStartNewBatch, engine.PriorityStartNewBatch, name, name, func() {
			now := s.Kernel.Now()
			if _, ok := b.ForceStart(); ok {
				s.retryAllNow(now)
			}
			arm()
		})
		s.Kernel.Schedule(evt, interval)
	}
	arm()
}

// FinishBatch forces node's currently forming run id to release early,
// regardless of size, and retries its blocked exits immediately — this is
// an operator-triggered override, not a capacity-freed signal from ordinary
// entity movement, so it runs synchronously rather than through the
// KindOutUnblocked event deliver uses.
func (s *Simulation) FinishBatch(node string, id uint) bool {
	b, ok := s.Batches[node]
	if !ok || !b.FinishBatch(id) {
		return false
	}
	s.retryAllNow(s.Kernel.Now())
	return true
}

// buildDispatcher constructs the model.Dispatch a node's dispatch config
// names (spec.md §5), grounded on dispatch.h's Order/Spt/Sst families.
func (s *Simulation) buildDispatcher(name string) model.Dispatch {
	cfg := s.nodeCfg[name]
	switch cfg.Dispatch {
	case "order":
		return model.Order{Priority: func(e *model.Entity) int {
			if e.Variant == nil {
				return 0
			}
			return e.Variant.ID
		}}
	case "spt":
		op, ok := s.Ops[name]
		if !ok {
			return nil
		}
		return model.Spt{ProcessingTime: func(e *model.Entity) float64 { return op.ProcessTime.Mean() }}
	case "sst":
		op, ok := s.Ops[name]
		if !ok || op.SetupTime == nil {
			return nil
		}
		return model.Sst{SetupTime: func(_, next *model.Entity) float64 {
			var nextVariant *model.Variant
			if next != nil {
				nextVariant = next.Variant
			}
			gen := op.SetupTime(op.LastVariant(), nextVariant)
			if gen == nil {
				return 0
			}
			return gen.Mean()
		}}
	default:
		return nil
	}
}

// wireDispatchers installs each node's configured Dispatch on its enter
// port's block-list ordering (spec.md §5); nodes leaving Dispatch unset keep
// the port's default FIFO ordering.
func (s *Simulation) wireDispatchers(m *config.Model) {
	for _, n := range m.Nodes {
		if n.Dispatch == "" {
			continue
		}
		enter := s.enterPortFor(n.Name)
		if enter == nil {
			continue
		}
		if d := s.buildDispatcher(n.Name); d != nil {
			enter.SetDispatcher(d)
		}
	}
}

// wireTracker registers a state-change observer on every built node so
// Working/Setup activity spans feed the shifting-bottleneck Tracker (spec.md
// §4.11), the missing link between stats.Tracker and the state machine.
func (s *Simulation) wireTracker(m *config.Model) {
	for name := range s.nodeCfg {
		base := s.baseFor(name)
		if base == nil {
			continue
		}
		nodeID := int(base.NodeID())
		base.OnStateChanged(func(_ *model.NodeBase, from, to model.State) {
			wasActive := from == model.Working || from == model.Setup
			isActive := to == model.Working || to == model.Setup
			switch {
			case isActive && !wasActive:
				s.Tracker.BeginActive(nodeID, s.Kernel.Now())
			case wasActive && !isActive:
				s.Tracker.EndActive(nodeID, s.Kernel.Now(), false)
			}
		})
	}
}

// ScheduleDemand starts (or continues) the CreateDemand pulse schedule for a
// Source with an attached Demand (spec.md §5): each pulse creates up to
// BatchQuantity entities and reschedules itself, stopping once the demand's
// Order (if any) is satisfied.
func (s *Simulation) ScheduleDemand(name string) {
	d, ok := s.Demands[name]
	if !ok {
		return
	}
	src, ok := s.Sources[name]
	if !ok {
		return
	}
	if d.Satisfied() {
		return
	}
	evt := engine.NewEvent(engine.KindCreateDemand, engine.PriorityCreateDemand, name, name, func() {
		n := d.BatchQuantity()
		for i := 0; i < n; i++ {
			src.CreateOne()
			if d.Order != nil {
				d.Order.Consume()
			}
		}
		s.ScheduleDemand(name)
	})
	s.Kernel.Schedule(evt, engine.SimTime(d.NextInterval()))
}
