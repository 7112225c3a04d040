package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrder_Less_ComparesExternalPriority(t *testing.T) {
	pri := map[uint64]int{1: 5, 2: 1}
	d := Order{Priority: func(e *Entity) int { return pri[e.ID] }}

	assert.True(t, d.Less(&Entity{ID: 2}, &Entity{ID: 1}))
	assert.False(t, d.Less(&Entity{ID: 1}, &Entity{ID: 2}))
}

func TestSpt_Less_PrefersShorterProcessingTime(t *testing.T) {
	pt := map[uint64]float64{1: 10, 2: 3}
	d := Spt{ProcessingTime: func(e *Entity) float64 { return pt[e.ID] }}

	assert.True(t, d.Less(&Entity{ID: 2}, &Entity{ID: 1}))
}

func TestSst_Less_PrefersShorterSetupFromCurrent(t *testing.T) {
	current := &Entity{ID: 0}
	setup := map[uint64]float64{1: 20, 2: 2}
	d := Sst{Current: current, SetupTime: func(cur, next *Entity) float64 { return setup[next.ID] }}

	assert.True(t, d.Less(&Entity{ID: 2}, &Entity{ID: 1}))
}

func TestFifo_Less_AlwaysFalse(t *testing.T) {
	d := Fifo{}
	assert.False(t, d.Less(&Entity{ID: 1}, &Entity{ID: 2}))
}

func TestPrioritizeReady_Less_FavorsReadyOverNotReady(t *testing.T) {
	ready := map[uint64]bool{1: true, 2: false}
	d := PrioritizeReady{Ready: func(e *Entity) bool { return ready[e.ID] }}

	assert.True(t, d.Less(&Entity{ID: 1}, &Entity{ID: 2}))
	assert.False(t, d.Less(&Entity{ID: 2}, &Entity{ID: 1}))
}

func TestPrioritizeReady_Less_FallsBackToThenWhenBothTie(t *testing.T) {
	ready := map[uint64]bool{1: true, 2: true}
	pri := map[uint64]int{1: 5, 2: 1}
	d := PrioritizeReady{
		Ready: func(e *Entity) bool { return ready[e.ID] },
		Then:  Order{Priority: func(e *Entity) int { return pri[e.ID] }},
	}

	assert.True(t, d.Less(&Entity{ID: 2}, &Entity{ID: 1}))
}
