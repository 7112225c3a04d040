package nodes

import (
	"testing"

	"github.com/flowsim/flowsim/engine"
	"github.com/flowsim/flowsim/model"
	"github.com/flowsim/flowsim/numgen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDisassembly_SplitsAComposite_ReleasesEveryPartPlusTheCarrier checks
// that finish() reports both absorbed parts and the carrier entity itself,
// and that the station only reopens once all of them have departed.
func TestDisassembly_SplitsAComposite_ReleasesEveryPartPlusTheCarrier(t *testing.T) {
	k := engine.NewKernel()
	arena := model.NewEntityArena()
	chassis := &model.Variant{ID: 0, Name: "chassis"}
	part := &model.Variant{ID: 1, Name: "bracket"}

	dis := NewDisassembly(k, model.NodeID(0), "dis", &numgen.Const{Value: 2})

	var released []uint64
	dis.OnReadyToExit(func(ids []uint64) { released = ids })

	partEntity := arena.Create(part, dis.ID, 1, 0)
	carrier := arena.Create(chassis, dis.ID, 1, 0)
	carrier.AddPart(partEntity)

	require.True(t, dis.IsOpen(carrier))
	dis.Accept(carrier, 0)
	assert.False(t, dis.IsOpen(partEntity), "occupied station must refuse further entries")

	k.Run(10)

	require.Len(t, released, 2)
	assert.Contains(t, released, partEntity.ID)
	assert.Contains(t, released, carrier.ID)
	assert.Equal(t, model.Blocked, dis.State())

	dis.Depart(partEntity.ID, k.Now())
	assert.Equal(t, model.Blocked, dis.State(), "still holding the undeparted carrier")

	dis.Depart(carrier.ID, k.Now())
	assert.Equal(t, model.Waiting, dis.State())
	assert.Zero(t, dis.ContentSize())
}
