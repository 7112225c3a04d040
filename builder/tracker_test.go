package builder

import (
	"testing"

	"github.com/flowsim/flowsim/config"
	"github.com/flowsim/flowsim/numgen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBuild_Tracker_AccumulatesSoleBottleneckTimeFromWorkingSpans confirms
// wireTracker's OnStateChanged hook actually drives stats.Tracker.BeginActive
// / EndActive: a single operation processing back-to-back entities, with no
// other node ever active concurrently, must attribute its entire working
// time to itself as a sole bottleneck.
func TestBuild_Tracker_AccumulatesSoleBottleneckTimeFromWorkingSpans(t *testing.T) {
	m := &config.Model{
		Name:        "tracker",
		Replication: config.ReplicationConfig{Horizon: 9, Count: 1},
		Nodes: []config.NodeConfig{
			{Name: "src", Kind: "source", Arrival: constDist(1)},
			{Name: "op", Kind: "operation", Capacity: 1, ProcessTime: constDist(3)},
			{Name: "sink", Kind: "sink"},
		},
	}
	m.Nodes[0].Successors = []config.SuccessorConfig{{Node: "op", Weight: 1}}
	m.Nodes[1].Successors = []config.SuccessorConfig{{Node: "sink", Weight: 1}}

	require.Empty(t, config.Validate(m))

	sim, err := Build(m, numgen.SimulationKey(1))
	require.NoError(t, err)

	sim.Sources["src"].ScheduleNext()
	sim.Kernel.Run(9.5)

	opID := int(sim.NodeIndex["op"])
	assert.EqualValues(t, 6, sim.Tracker.SoleBottleneckTime(opID), "two completed 3s cycles (t=1-4, t=4-7) with nothing else active; the third is still open at t=9.5")
	assert.EqualValues(t, 0, sim.Tracker.ShiftingBottleneckTime(opID))
}
