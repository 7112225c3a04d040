package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntityArena_Create_AssignsMonotonicIDs(t *testing.T) {
	a := NewEntityArena()
	vs := NewVariantSet()
	v := vs.Register("V0", 1)

	e1 := a.Create(v, NodeID(0), 1, 0)
	e2 := a.Create(v, NodeID(0), 1, 0)

	assert.NotEqual(t, e1.ID, e2.ID)
	got, ok := a.Get(e1.ID)
	assert.True(t, ok)
	assert.Same(t, e1, got)
}

func TestEntityArena_Release_MakesEntityUnreachable(t *testing.T) {
	a := NewEntityArena()
	vs := NewVariantSet()
	v := vs.Register("V0", 1)
	e := a.Create(v, NodeID(0), 1, 0)

	a.Release(e.ID)
	_, ok := a.Get(e.ID)
	assert.False(t, ok, "either on exactly one node's content or destroyed (spec.md §8)")
}

func TestEntity_AddPart_SetsAssemblyIdentityOnPart(t *testing.T) {
	a := NewEntityArena()
	vs := NewVariantSet()
	v0 := vs.Register("V0", 1)
	v1 := vs.Register("V1", 1)

	container := a.Create(v0, NodeID(0), 1, 0)
	part := a.Create(v1, NodeID(0), 1, 0)

	container.AddPart(part)

	assert.Equal(t, []uint64{part.ID}, container.Parts)
	assert.Equal(t, container.ID, part.AssemblyIdentity)
}

func TestEntity_RemovePart_ReturnsFalseWhenNotFound(t *testing.T) {
	e := &Entity{ID: 1}
	assert.False(t, e.RemovePart(99))
}

func TestEntity_WIPTime_ClampsToWarmup(t *testing.T) {
	e := &Entity{ID: 1}
	e.ResetWIPClock(2)
	assert.Equal(t, 5.0, float64(e.WIPTime(10, 5)), "wip start before warmup must clamp to warmup")
}
