package builder

import (
	"testing"

	"github.com/flowsim/flowsim/config"
	"github.com/flowsim/flowsim/numgen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constDist(v float64) *config.DistributionConfig {
	return &config.DistributionConfig{Family: "const", Params: []float64{v}}
}

// TestBuild_MaxWip_CapsConcurrentAdmissionBelowNodeCapacity exercises
// spec.md §5's MaxWip enter-logic: a buffer with capacity 5 but max_wip 2
// only ever admits 2 entities even though 10 arrive, because it has no
// successor to drain it and each admission beyond the cap is refused at
// entry, throttling the source itself (nodes/source.go's fire() only
// reschedules on a successful delivery).
func TestBuild_MaxWip_CapsConcurrentAdmissionBelowNodeCapacity(t *testing.T) {
	m := &config.Model{
		Name:        "maxwip",
		Replication: config.ReplicationConfig{Horizon: 10, Count: 1},
		Nodes: []config.NodeConfig{
			{Name: "src", Kind: "source", Arrival: constDist(1)},
			{Name: "buf", Kind: "buffer", Capacity: 5, MaxWip: 2},
		},
	}
	m.Nodes[0].Successors = []config.SuccessorConfig{{Node: "buf", Weight: 1}}
	require.Empty(t, config.Validate(m))

	sim, err := Build(m, numgen.SimulationKey(1))
	require.NoError(t, err)

	sim.Sources["src"].ScheduleNext()
	sim.Kernel.Run(10.5)

	assert.Equal(t, 2, sim.Buffers["buf"].ContentSize())
}

// TestBuild_CriticalWip_SharesOneLimitAcrossTheGroup exercises spec.md §5's
// CriticalWip: two independent buffers naming the same critical_wip_group
// share a single admission counter, so a limit of 1 admits into only one
// of them combined, regardless of which buffer a given entity targets.
func TestBuild_CriticalWip_SharesOneLimitAcrossTheGroup(t *testing.T) {
	m := &config.Model{
		Name:        "criticalwip",
		Replication: config.ReplicationConfig{Horizon: 5, Count: 1},
		Nodes: []config.NodeConfig{
			{Name: "src1", Kind: "source", Arrival: constDist(1)},
			{Name: "src2", Kind: "source", Arrival: constDist(1)},
			{Name: "bufA", Kind: "buffer", Capacity: 5, MaxWip: 1, CriticalWipGroup: "line"},
			{Name: "bufB", Kind: "buffer", Capacity: 5, CriticalWipGroup: "line"},
		},
	}
	m.Nodes[0].Successors = []config.SuccessorConfig{{Node: "bufA", Weight: 1}}
	m.Nodes[1].Successors = []config.SuccessorConfig{{Node: "bufB", Weight: 1}}
	require.Empty(t, config.Validate(m))

	sim, err := Build(m, numgen.SimulationKey(2))
	require.NoError(t, err)

	sim.Sources["src1"].ScheduleNext()
	sim.Sources["src2"].ScheduleNext()
	sim.Kernel.Run(5.5)

	total := sim.Buffers["bufA"].ContentSize() + sim.Buffers["bufB"].ContentSize()
	assert.Equal(t, 1, total, "the shared critical_wip_group limit must cap combined admission, not each buffer independently")
}

// TestBuild_Kanban_LimitsAdmissionToAvailableCards exercises spec.md §5's
// Kanban: a card pool of 1 with no return path (no successor drains the
// buffer) admits exactly one entity and refuses the rest.
func TestBuild_Kanban_LimitsAdmissionToAvailableCards(t *testing.T) {
	m := &config.Model{
		Name:        "kanban",
		Replication: config.ReplicationConfig{Horizon: 5, Count: 1},
		Nodes: []config.NodeConfig{
			{Name: "src", Kind: "source", Arrival: constDist(1)},
			{Name: "buf", Kind: "buffer", Capacity: 5, Kanban: 1},
		},
	}
	m.Nodes[0].Successors = []config.SuccessorConfig{{Node: "buf", Weight: 1}}
	require.Empty(t, config.Validate(m))

	sim, err := Build(m, numgen.SimulationKey(3))
	require.NoError(t, err)

	sim.Sources["src"].ScheduleNext()
	sim.Kernel.Run(5.5)

	assert.Equal(t, 1, sim.Buffers["buf"].ContentSize())
}

// TestBuild_Batch_HoldsExitUntilMinSizeAccumulates exercises spec.md §5's
// Batch logic: with min_size 3 and only 2 arrivals in the horizon, neither
// entity is ever released to the sink.
func TestBuild_Batch_HoldsExitUntilMinSizeAccumulates(t *testing.T) {
	m := &config.Model{
		Name:        "batch-hold",
		Replication: config.ReplicationConfig{Horizon: 5, Count: 1},
		Nodes: []config.NodeConfig{
			{Name: "src", Kind: "source", Arrival: constDist(1)},
			{Name: "buf", Kind: "buffer", Capacity: 5, Batch: &config.BatchConfig{MinSize: 3, MaxSize: 3}},
			{Name: "sink", Kind: "sink"},
		},
	}
	m.Nodes[0].Successors = []config.SuccessorConfig{{Node: "buf", Weight: 1}}
	m.Nodes[1].Successors = []config.SuccessorConfig{{Node: "sink", Weight: 1}}
	require.Empty(t, config.Validate(m))

	sim, err := Build(m, numgen.SimulationKey(4))
	require.NoError(t, err)

	sim.Sources["src"].ScheduleNext()
	sim.Kernel.Run(2.5) // only 2 arrivals: t=1, t=2

	assert.EqualValues(t, 0, sim.Sinks["sink"].Exits)
	assert.Equal(t, 2, sim.Buffers["buf"].ContentSize())
}

// TestBuild_Batch_ReleasesTogetherOnceMinSizeReached exercises the release
// side of the same Batch: once a third arrival completes the batch, all
// three depart to the sink together and the batch resets for the next run.
func TestBuild_Batch_ReleasesTogetherOnceMinSizeReached(t *testing.T) {
	m := &config.Model{
		Name:        "batch-release",
		Replication: config.ReplicationConfig{Horizon: 10, Count: 1},
		Nodes: []config.NodeConfig{
			{Name: "src", Kind: "source", Arrival: constDist(1)},
			{Name: "buf", Kind: "buffer", Capacity: 5, Batch: &config.BatchConfig{MinSize: 3, MaxSize: 3}},
			{Name: "sink", Kind: "sink"},
		},
	}
	m.Nodes[0].Successors = []config.SuccessorConfig{{Node: "buf", Weight: 1}}
	m.Nodes[1].Successors = []config.SuccessorConfig{{Node: "sink", Weight: 1}}
	require.Empty(t, config.Validate(m))

	sim, err := Build(m, numgen.SimulationKey(5))
	require.NoError(t, err)

	sim.Sources["src"].ScheduleNext()
	sim.Kernel.Run(3.5) // t=1,2,3 arrive; the third completes the batch

	assert.EqualValues(t, 3, sim.Sinks["sink"].Exits)
	assert.Equal(t, 0, sim.Buffers["buf"].ContentSize())
}

// TestBuild_Batch_MultipleBatches_AllowsASecondRunToAccumulateBeforeTheFirstDrains
// contrasts admission with and without multiple_batches: a slow operation
// keeps the first run's members from ever departing within the test window,
// so without multiple_batches a second run can't even start forming.
func TestBuild_Batch_MultipleBatches_AllowsASecondRunToAccumulateBeforeTheFirstDrains(t *testing.T) {
	build := func(multiple bool) *Simulation {
		m := &config.Model{
			Name:        "batch-multi",
			Replication: config.ReplicationConfig{Horizon: 10, Count: 1},
			Nodes: []config.NodeConfig{
				{Name: "src", Kind: "source", Arrival: constDist(1)},
				{Name: "op", Kind: "operation", Capacity: 4, ProcessTime: constDist(20), Batch: &config.BatchConfig{MinSize: 2, MaxSize: 2, MultipleBatches: multiple}},
				{Name: "sink", Kind: "sink"},
			},
		}
		m.Nodes[0].Successors = []config.SuccessorConfig{{Node: "op", Weight: 1}}
		m.Nodes[1].Successors = []config.SuccessorConfig{{Node: "sink", Weight: 1}}
		require.Empty(t, config.Validate(m))
		sim, err := Build(m, numgen.SimulationKey(6))
		require.NoError(t, err)
		sim.Sources["src"].ScheduleNext()
		sim.Kernel.Run(4.5)
		return sim
	}

	single := build(false)
	assert.Equal(t, 2, single.Ops["op"].ContentSize(), "without multiple_batches admission blocks once the first run is full and undrained")

	multi := build(true)
	assert.Equal(t, 4, multi.Ops["op"].ContentSize(), "multiple_batches lets a second run accumulate while the first is still processing")
}

// TestBuild_Batch_ParallelProcessing_WidensNodeOccupancyToMaxSize confirms a
// node whose own capacity is smaller than the batch's max_size still admits
// a full run at once when parallel_processing is set.
func TestBuild_Batch_ParallelProcessing_WidensNodeOccupancyToMaxSize(t *testing.T) {
	m := &config.Model{
		Name:        "batch-parallel",
		Replication: config.ReplicationConfig{Horizon: 10, Count: 1},
		Nodes: []config.NodeConfig{
			{Name: "src", Kind: "source", Arrival: constDist(1)},
			{Name: "op", Kind: "operation", Capacity: 1, ProcessTime: constDist(20), Batch: &config.BatchConfig{MinSize: 3, MaxSize: 3, ParallelProcessing: true}},
			{Name: "sink", Kind: "sink"},
		},
	}
	m.Nodes[0].Successors = []config.SuccessorConfig{{Node: "op", Weight: 1}}
	m.Nodes[1].Successors = []config.SuccessorConfig{{Node: "sink", Weight: 1}}
	require.Empty(t, config.Validate(m))

	sim, err := Build(m, numgen.SimulationKey(9))
	require.NoError(t, err)

	sim.Sources["src"].ScheduleNext()
	sim.Kernel.Run(2.5) // t=1,2 arrive

	assert.Equal(t, 2, sim.Ops["op"].ContentSize(), "capacity=1 would normally admit only one, but parallel_processing widened it to max_size=3")
}

// TestBuild_Batch_StartIncomplete_ForceReleasesOnceMinSizeReachedByTimeout
// exercises the start-incomplete timeout: a run that never reaches max_size
// still force-releases once min_size has accumulated and the timeout fires.
func TestBuild_Batch_StartIncomplete_ForceReleasesOnceMinSizeReachedByTimeout(t *testing.T) {
	m := &config.Model{
		Name:        "batch-incomplete",
		Replication: config.ReplicationConfig{Horizon: 10, Count: 1},
		Nodes: []config.NodeConfig{
			{Name: "src", Kind: "source", Arrival: constDist(2)},
			{Name: "buf", Kind: "buffer", Capacity: 5, Batch: &config.BatchConfig{MinSize: 2, MaxSize: 5, StartIncomplete: 5}},
			{Name: "sink", Kind: "sink"},
		},
	}
	m.Nodes[0].Successors = []config.SuccessorConfig{{Node: "buf", Weight: 1}}
	m.Nodes[1].Successors = []config.SuccessorConfig{{Node: "sink", Weight: 1}}
	require.Empty(t, config.Validate(m))

	sim, err := Build(m, numgen.SimulationKey(7))
	require.NoError(t, err)

	sim.Sources["src"].ScheduleNext()
	sim.Kernel.Run(4.9) // arrivals at t=2,4; only 2 of the 5 max_size members
	assert.EqualValues(t, 0, sim.Sinks["sink"].Exits, "max_size hasn't been reached and the 5s timeout hasn't fired yet")

	sim.Kernel.Run(5.1)
	assert.EqualValues(t, 2, sim.Sinks["sink"].Exits, "the start-incomplete timeout force-releases the 2-member run despite max_size=5")
}

// TestBuild_Batch_FinishBatch_ForcesTheCurrentRunToReleaseOnDemand exercises
// an operator-triggered finish_batch(id) call against a run that would
// otherwise sit well short of max_size indefinitely.
func TestBuild_Batch_FinishBatch_ForcesTheCurrentRunToReleaseOnDemand(t *testing.T) {
	m := &config.Model{
		Name:        "batch-finish",
		Replication: config.ReplicationConfig{Horizon: 10, Count: 1},
		Nodes: []config.NodeConfig{
			{Name: "src", Kind: "source", Arrival: constDist(1)},
			{Name: "buf", Kind: "buffer", Capacity: 5, Batch: &config.BatchConfig{MinSize: 1, MaxSize: 10}},
			{Name: "sink", Kind: "sink"},
		},
	}
	m.Nodes[0].Successors = []config.SuccessorConfig{{Node: "buf", Weight: 1}}
	m.Nodes[1].Successors = []config.SuccessorConfig{{Node: "sink", Weight: 1}}
	require.Empty(t, config.Validate(m))

	sim, err := Build(m, numgen.SimulationKey(11))
	require.NoError(t, err)

	sim.Sources["src"].ScheduleNext()
	sim.Kernel.Run(2.5) // arrivals at t=1 and t=2, far short of max_size=10
	assert.EqualValues(t, 0, sim.Sinks["sink"].Exits)

	assert.True(t, sim.FinishBatch("buf", 1))
	assert.EqualValues(t, 2, sim.Sinks["sink"].Exits, "finish_batch releases both members immediately")
	assert.False(t, sim.FinishBatch("buf", 1), "the run has already been released")
}

// TestBuild_Order_CapsTotalAdmissionAcrossUnlimitedArrivals exercises
// spec.md §5's Order logic attached directly to a non-source node: once
// Quantity entities have been admitted, further arrivals are refused for
// good, regardless of how many more show up.
func TestBuild_Order_CapsTotalAdmissionAcrossUnlimitedArrivals(t *testing.T) {
	m := &config.Model{
		Name:        "order",
		Replication: config.ReplicationConfig{Horizon: 20, Count: 1},
		Nodes: []config.NodeConfig{
			{Name: "src", Kind: "source", Arrival: constDist(1)},
			{Name: "buf", Kind: "buffer", Capacity: 10, Order: &config.OrderConfig{Quantity: 3}},
			{Name: "sink", Kind: "sink"},
		},
	}
	m.Nodes[0].Successors = []config.SuccessorConfig{{Node: "buf", Weight: 1}}
	m.Nodes[1].Successors = []config.SuccessorConfig{{Node: "sink", Weight: 1}}
	require.Empty(t, config.Validate(m))

	sim, err := Build(m, numgen.SimulationKey(6))
	require.NoError(t, err)

	sim.Sources["src"].ScheduleNext()
	sim.Kernel.Run(20.5)

	assert.EqualValues(t, 3, sim.Sinks["sink"].Exits)
	assert.Equal(t, 0, sim.Orders["buf"].Remaining())
	assert.True(t, sim.Orders["buf"].Complete())
}

// TestBuild_Demand_PacesCreationAndStopsAtOrderQuantity exercises spec.md
// §5's Demand: a Source with no continuous Arrival instead creates
// BatchSize entities every Interval.Next() seconds, clamped to and stopped
// by an attached Order's Quantity.
func TestBuild_Demand_PacesCreationAndStopsAtOrderQuantity(t *testing.T) {
	m := &config.Model{
		Name:        "demand",
		Replication: config.ReplicationConfig{Horizon: 10, Count: 1},
		Nodes: []config.NodeConfig{
			{
				Name: "src", Kind: "source",
				Order:  &config.OrderConfig{Quantity: 5},
				Demand: &config.DemandConfig{Interval: constDist(2), BatchSize: 2},
			},
			{Name: "sink", Kind: "sink"},
		},
	}
	m.Nodes[0].Successors = []config.SuccessorConfig{{Node: "sink", Weight: 1}}
	require.Empty(t, config.Validate(m))

	sim, err := Build(m, numgen.SimulationKey(7))
	require.NoError(t, err)

	require.Contains(t, sim.Demands, "src")
	sim.ScheduleDemand("src")
	sim.Kernel.Run(10.5)

	assert.EqualValues(t, 5, sim.Sinks["sink"].Exits, "2+2+1 across three pulses should exhaust the order's quantity of 5")
}

// TestBuild_Takt_BarrierHoldsFasterMemberUntilSlowerMemberFinishes exercises
// a two-node Takt group: a 3s operation and a 7s operation share one
// barrier, so the fast one's finished entity waits at its own exit until
// the slow one also finishes, both release together, and the round's
// overrun against the group's cycle time lands in ExceedTime.
func TestBuild_Takt_BarrierHoldsFasterMemberUntilSlowerMemberFinishes(t *testing.T) {
	m := &config.Model{
		Name:        "takt-barrier",
		Replication: config.ReplicationConfig{Horizon: 20, Count: 1},
		Nodes: []config.NodeConfig{
			{Name: "srcA", Kind: "source", Arrival: constDist(1000)},
			{Name: "opA", Kind: "operation", Capacity: 1, ProcessTime: constDist(3)},
			{Name: "srcB", Kind: "source", Arrival: constDist(1000)},
			{Name: "opB", Kind: "operation", Capacity: 1, ProcessTime: constDist(7)},
			{Name: "sink", Kind: "sink"},
		},
		TaktGroups: []config.TaktGroupConfig{
			{Name: "line", CycleTime: 5, Nodes: []string{"opA", "opB"}},
		},
	}
	m.Nodes[0].Successors = []config.SuccessorConfig{{Node: "opA", Weight: 1}}
	m.Nodes[1].Successors = []config.SuccessorConfig{{Node: "sink", Weight: 1}}
	m.Nodes[2].Successors = []config.SuccessorConfig{{Node: "opB", Weight: 1}}
	m.Nodes[3].Successors = []config.SuccessorConfig{{Node: "sink", Weight: 1}}
	require.Empty(t, config.Validate(m))

	sim, err := Build(m, numgen.SimulationKey(3))
	require.NoError(t, err)

	sim.Sources["srcA"].CreateOne()
	sim.Sources["srcB"].CreateOne()

	sim.Kernel.Run(4)
	assert.EqualValues(t, 0, sim.Sinks["sink"].Exits, "opA finished at t=3 but the barrier still awaits opB")

	sim.Kernel.Run(8)
	assert.EqualValues(t, 2, sim.Sinks["sink"].Exits, "both members release together once opB finishes at t=7")

	takt := sim.Takts["line"]
	require.NotNil(t, takt)
	assert.EqualValues(t, 1, takt.Cycles())
	assert.EqualValues(t, 2, takt.ExceedTime(), "the round ran 7s against a 5s cycle time, a 2s overrun")
	assert.EqualValues(t, 0, takt.DeceedTime())
}

// TestBuild_Takt_BarrierWaitsOutTheFullCycleTimeEvenWhenBothMembersFinishEarly
// exercises spec.md §4.9's "advances ... at minimum takt_time": two 2s
// operations both finish well before the group's 5s cycle time, so the
// barrier must not release the instant the second one checks in — it has
// to wait until the cycle time has actually elapsed. A prior bug released
// as soon as AllReady() became true, which this test's 4s checkpoint (past
// both members' own finish time but short of the 5s cycle) would catch.
func TestBuild_Takt_BarrierWaitsOutTheFullCycleTimeEvenWhenBothMembersFinishEarly(t *testing.T) {
	m := &config.Model{
		Name:        "takt-minimum-cycle",
		Replication: config.ReplicationConfig{Horizon: 20, Count: 1},
		Nodes: []config.NodeConfig{
			{Name: "srcA", Kind: "source", Arrival: constDist(1000)},
			{Name: "opA", Kind: "operation", Capacity: 1, ProcessTime: constDist(2)},
			{Name: "srcB", Kind: "source", Arrival: constDist(1000)},
			{Name: "opB", Kind: "operation", Capacity: 1, ProcessTime: constDist(2)},
			{Name: "sink", Kind: "sink"},
		},
		TaktGroups: []config.TaktGroupConfig{
			{Name: "line", CycleTime: 5, Nodes: []string{"opA", "opB"}},
		},
	}
	m.Nodes[0].Successors = []config.SuccessorConfig{{Node: "opA", Weight: 1}}
	m.Nodes[1].Successors = []config.SuccessorConfig{{Node: "sink", Weight: 1}}
	m.Nodes[2].Successors = []config.SuccessorConfig{{Node: "opB", Weight: 1}}
	m.Nodes[3].Successors = []config.SuccessorConfig{{Node: "sink", Weight: 1}}
	require.Empty(t, config.Validate(m))

	sim, err := Build(m, numgen.SimulationKey(3))
	require.NoError(t, err)

	sim.Sources["srcA"].CreateOne()
	sim.Sources["srcB"].CreateOne()

	sim.Kernel.Run(4)
	assert.EqualValues(t, 0, sim.Sinks["sink"].Exits, "both members finished at t=2 but the 5s cycle time has not elapsed yet")

	sim.Kernel.Run(5)
	assert.EqualValues(t, 2, sim.Sinks["sink"].Exits, "the barrier releases once the cycle time elapses, not the instant both members are ready")

	takt := sim.Takts["line"]
	require.NotNil(t, takt)
	assert.EqualValues(t, 1, takt.Cycles())
	assert.EqualValues(t, 0, takt.ExceedTime())
	assert.EqualValues(t, 0, takt.DeceedTime(), "holding the release to exactly the cycle time means neither exceed nor deceed accrues")
}

// TestBuild_MoveStrategy_CyclicRoundRobinsAcrossSuccessors exercises
// spec.md §5's move_strategy config: "cyclic" must alternate destinations
// regardless of successor weight.
func TestBuild_MoveStrategy_CyclicRoundRobinsAcrossSuccessors(t *testing.T) {
	m := &config.Model{
		Name:        "cyclic",
		Replication: config.ReplicationConfig{Horizon: 10, Count: 1},
		Nodes: []config.NodeConfig{
			{Name: "src", Kind: "source", Arrival: constDist(1), MoveStrategy: "cyclic"},
			{Name: "a", Kind: "sink"},
			{Name: "b", Kind: "sink"},
		},
	}
	m.Nodes[0].Successors = []config.SuccessorConfig{{Node: "a", Weight: 1}, {Node: "b", Weight: 1}}
	require.Empty(t, config.Validate(m))

	sim, err := Build(m, numgen.SimulationKey(9))
	require.NoError(t, err)

	sim.Sources["src"].ScheduleNext()
	sim.Kernel.Run(4.5) // arrivals at t=1,2,3,4

	assert.EqualValues(t, 2, sim.Sinks["a"].Exits)
	assert.EqualValues(t, 2, sim.Sinks["b"].Exits)
}

// TestBuild_Dispatch_OrderConstructsAPriorityComparator exercises spec.md
// §5's dispatch config: an "order" dispatcher on a node compares entities
// by the node's own variant-derived priority, matching model.Order's
// contract (grounded on model/dispatch_test.go's direct Less() coverage).
func TestBuild_Dispatch_OrderConstructsAPriorityComparator(t *testing.T) {
	m := &config.Model{
		Name:        "dispatch",
		Replication: config.ReplicationConfig{Horizon: 1, Count: 1},
		Variants:    []config.VariantConfig{{Name: "fast", Weight: 1}, {Name: "slow", Weight: 1}},
		Nodes: []config.NodeConfig{
			{Name: "buf", Kind: "buffer", Capacity: 5, Dispatch: "order"},
		},
	}
	require.Empty(t, config.Validate(m))

	sim, err := Build(m, numgen.SimulationKey(10))
	require.NoError(t, err)

	d := sim.buildDispatcher("buf")
	require.NotNil(t, d, "dispatch config must construct a real model.Dispatch, not leave it unreachable")

	fast, _ := sim.Variants.ByName("fast")
	slow, _ := sim.Variants.ByName("slow")
	require.Less(t, fast.ID, slow.ID)
	e1 := sim.Arena.Create(fast, sim.NodeIndex["buf"], 1, 0)
	e2 := sim.Arena.Create(slow, sim.NodeIndex["buf"], 1, 0)
	assert.True(t, d.Less(e1, e2), "the entity carrying the lower variant ID must sort first")
}
