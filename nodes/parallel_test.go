package nodes

import (
	"testing"

	"github.com/flowsim/flowsim/engine"
	"github.com/flowsim/flowsim/model"
	"github.com/flowsim/flowsim/numgen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParallelOperation_RoutesConcurrentEntitiesToDistinctInternalSlots
// checks freeSlot's reservation: two entities admitted back to back land on
// two different internal operations and finish concurrently rather than
// queueing behind each other.
func TestParallelOperation_RoutesConcurrentEntitiesToDistinctInternalSlots(t *testing.T) {
	k := engine.NewKernel()
	arena := model.NewEntityArena()
	variant := &model.Variant{ID: 0, Name: "part"}

	p := NewParallelOperation(k, model.NodeID(0), "line", 2, func(i int) numgen.Generator {
		return &numgen.Const{Value: 5}
	})

	var exits []engine.SimTime
	p.OnReadyToExit(func(id uint64) {
		now := k.Now()
		exits = append(exits, now)
		p.Depart(id, now)
	})

	e1 := arena.Create(variant, p.ID, 1, 0)
	e2 := arena.Create(variant, p.ID, 1, 0)

	require.True(t, p.IsOpen(e1))
	p.Accept(e1, 0)
	require.True(t, p.IsOpen(e2))
	p.Accept(e2, 0)

	k.Run(10)

	require.Len(t, exits, 2)
	assert.EqualValues(t, 5, exits[0])
	assert.EqualValues(t, 5, exits[1])
}

// TestParallelOperation_SynchronizeExit_HoldsTheFasterOpUntilBothFinish
// verifies that with synchronize_exit set, a lane that finishes early holds
// its entity back until every occupied internal op reaches Blocked.
func TestParallelOperation_SynchronizeExit_HoldsTheFasterOpUntilBothFinish(t *testing.T) {
	k := engine.NewKernel()
	arena := model.NewEntityArena()
	variant := &model.Variant{ID: 0, Name: "part"}

	p := NewParallelOperation(k, model.NodeID(0), "line", 2, func(i int) numgen.Generator {
		if i == 0 {
			return &numgen.Const{Value: 3}
		}
		return &numgen.Const{Value: 6}
	})
	p.SynchronizeExit = true

	var synced []uint64
	var syncedAt engine.SimTime
	p.OnSyncExit(func(ids []uint64) {
		synced = ids
		syncedAt = k.Now()
	})
	p.OnReadyToExit(func(id uint64) {
		t.Fatalf("onReadyToExit must not fire when synchronize_exit is set")
	})

	e1 := arena.Create(variant, p.ID, 1, 0)
	e2 := arena.Create(variant, p.ID, 1, 0)
	p.Accept(e1, 0)
	p.Accept(e2, 0)

	k.Run(10)

	require.Len(t, synced, 2)
	assert.EqualValues(t, 6, syncedAt)
	assert.Contains(t, synced, e1.ID)
	assert.Contains(t, synced, e2.ID)
}

// TestParallelOperation_SynchronizeExit_HoldsBatchWhileAnIdleInternalOpIsFailed
// confirms allOperational checks every internal op, not only the ones
// currently holding an entity (spec.md §4.7: "exits are held until all
// currently processing entities are finished AND every internal op is
// operational"). A Failed idle lane — one that never accepted an entity
// this round — must still hold up the synchronized release.
func TestParallelOperation_SynchronizeExit_HoldsBatchWhileAnIdleInternalOpIsFailed(t *testing.T) {
	k := engine.NewKernel()
	arena := model.NewEntityArena()
	variant := &model.Variant{ID: 0, Name: "part"}

	p := NewParallelOperation(k, model.NodeID(0), "line", 2, func(i int) numgen.Generator {
		return &numgen.Const{Value: 3}
	})
	p.SynchronizeExit = true

	var synced []uint64
	p.OnSyncExit(func(ids []uint64) { synced = ids })

	e1 := arena.Create(variant, p.ID, 1, 0)
	require.True(t, p.IsOpen(e1))
	p.Accept(e1, 0) // lands on the first idle lane, internal[0]

	p.Internal[1].BeginDisruption(0, nil, 0) // the other lane never gets an entity this round

	k.Run(10)

	assert.Empty(t, synced, "a Failed idle lane must hold up the synchronized batch even with no entity of its own")
	assert.False(t, p.allOperational())

	p.Internal[1].EndDisruption(k.Now(), nil, 0)
	assert.True(t, p.allOperational(), "ending the disruption must clear the hold once every lane is operational again")
}
