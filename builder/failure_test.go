package builder

import (
	"testing"

	"github.com/flowsim/flowsim/config"
	"github.com/flowsim/flowsim/model"
	"github.com/flowsim/flowsim/numgen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBuild_Failure_DistributionsModeDisruptsThenRecoversOnSchedule
// exercises the disruption scheduler end to end: buildFailures must arm the
// first DisruptionBegin event on its own, drive the node Failed when it
// fires, and return it to Waiting once the failure's duration elapses.
func TestBuild_Failure_DistributionsModeDisruptsThenRecoversOnSchedule(t *testing.T) {
	m := &config.Model{
		Name:        "distributions-failure",
		Replication: config.ReplicationConfig{Horizon: 20, Count: 1},
		Nodes: []config.NodeConfig{
			{Name: "op", Kind: "operation", Capacity: 1, ProcessTime: constDist(1)},
		},
		Failures: []config.FailureConfig{
			{Name: "power-loss", Node: "op", Mode: "distributions", Interval: constDist(5), Duration: constDist(3)},
		},
	}

	require.Empty(t, config.Validate(m))

	sim, err := Build(m, numgen.SimulationKey(1))
	require.NoError(t, err)

	opBase := sim.baseFor("op")
	require.NotNil(t, opBase)

	sim.Kernel.Run(4)
	assert.Equal(t, model.Unplanned, opBase.State(), "the first interval has not elapsed yet")

	sim.Kernel.Run(6)
	assert.Equal(t, model.Failed, opBase.State(), "the interval elapsed at t=5, disruption must be active")

	sim.Kernel.Run(9)
	assert.Equal(t, model.Waiting, opBase.State(), "the 3s duration elapsed at t=8, disruption must have cleared")
}

// TestBuild_Failure_ZonePropagatesToEveryMemberNode confirms
// populateFailureZones actually adds nodes to their configured zone: a
// zone-scoped failure disrupts every member, not just one.
func TestBuild_Failure_ZonePropagatesToEveryMemberNode(t *testing.T) {
	m := &config.Model{
		Name:        "zone-failure",
		Replication: config.ReplicationConfig{Horizon: 20, Count: 1},
		Nodes: []config.NodeConfig{
			{Name: "op1", Kind: "operation", Capacity: 1, ProcessTime: constDist(5)},
			{Name: "op2", Kind: "operation", Capacity: 1, ProcessTime: constDist(5)},
		},
		FailureZones: []config.FailureZoneConfig{
			{Name: "cell", Nodes: []string{"op1", "op2"}},
		},
		Failures: []config.FailureConfig{
			{Name: "power-loss", Zone: "cell", Mode: "distributions", Interval: constDist(1000), Duration: constDist(1000)},
		},
	}

	require.Empty(t, config.Validate(m))

	sim, err := Build(m, numgen.SimulationKey(1))
	require.NoError(t, err)

	zone, ok := sim.Zones["cell"]
	require.True(t, ok)
	f := sim.Failures["power-loss"]
	require.NotNil(t, f)

	zone.Propagate(0, f)

	assert.Equal(t, model.Failed, sim.baseFor("op1").State())
	assert.Equal(t, model.Failed, sim.baseFor("op2").State())
}
