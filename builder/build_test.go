package builder

import (
	"testing"

	"github.com/flowsim/flowsim/config"
	"github.com/flowsim/flowsim/numgen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBuild_SourceBufferSink_MatchesEndToEndScenarioOne exercises spec.md
// §8 scenario 1: ten constant-interval arrivals through a capacity-2 buffer
// into an infinite sink must all exit within the horizon, and the buffer
// must never exceed its capacity.
func TestBuild_SourceBufferSink_MatchesEndToEndScenarioOne(t *testing.T) {
	m := &config.Model{
		Name:        "scenario1",
		Replication: config.ReplicationConfig{Horizon: 10, Count: 1},
		Nodes: []config.NodeConfig{
			{Name: "src", Kind: "source", Arrival: &config.DistributionConfig{Family: "const", Params: []float64{1}}},
			{Name: "buf", Kind: "buffer", Capacity: 2},
			{Name: "sink", Kind: "sink"},
		},
	}
	m.Nodes[0].Successors = []config.SuccessorConfig{{Node: "buf", Weight: 1}}
	m.Nodes[1].Successors = []config.SuccessorConfig{{Node: "sink", Weight: 1}}

	require.Empty(t, config.Validate(m))

	sim, err := Build(m, numgen.SimulationKey(1))
	require.NoError(t, err)

	sim.Sources["src"].ScheduleNext()
	sim.Kernel.Run(10.5)

	assert.EqualValues(t, 10, sim.Sinks["sink"].Exits)
	assert.LessOrEqual(t, sim.Buffers["buf"].ContentSize(), 2)
}

// TestBuild_SourceOperationSink_BlocksSourceWhileOperationWorks exercises
// spec.md §8 scenario 2: with no buffer between a 3s Operation and an
// infinite Sink, the Source ends up blocked for two of every three seconds.
func TestBuild_SourceOperationSink_BlocksSourceWhileOperationWorks(t *testing.T) {
	m := &config.Model{
		Name:        "scenario2",
		Replication: config.ReplicationConfig{Horizon: 30, Count: 1},
		Nodes: []config.NodeConfig{
			{Name: "src", Kind: "source", Arrival: &config.DistributionConfig{Family: "const", Params: []float64{1}}},
			{Name: "op", Kind: "operation", Capacity: 1, ProcessTime: &config.DistributionConfig{Family: "const", Params: []float64{3}}},
			{Name: "sink", Kind: "sink"},
		},
	}
	m.Nodes[0].Successors = []config.SuccessorConfig{{Node: "op", Weight: 1}}
	m.Nodes[1].Successors = []config.SuccessorConfig{{Node: "sink", Weight: 1}}

	require.Empty(t, config.Validate(m))

	sim, err := Build(m, numgen.SimulationKey(2))
	require.NoError(t, err)

	sim.Sources["src"].ScheduleNext()
	sim.Kernel.Run(30.5)

	assert.EqualValues(t, 10, sim.Sinks["sink"].Exits)
}

