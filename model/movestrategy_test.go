package model

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuccessorStrategy_Next_AlwaysReturnsTheFirstSuccessor(t *testing.T) {
	s := SuccessorStrategy{}
	succ := []Successor{{Node: 1, Weight: 1}, {Node: 2, Weight: 1}}
	assert.EqualValues(t, 1, s.Next(nil, succ))
}

func TestSuccessorStrategy_Next_ReturnsNoNodeWhenEmpty(t *testing.T) {
	s := SuccessorStrategy{}
	assert.Equal(t, NoNode, s.Next(nil, nil))
}

func TestCyclicStrategy_Next_RoundRobinsAcrossSuccessors(t *testing.T) {
	c := &CyclicStrategy{}
	succ := []Successor{{Node: 1}, {Node: 2}, {Node: 3}}
	got := []NodeID{c.Next(nil, succ), c.Next(nil, succ), c.Next(nil, succ), c.Next(nil, succ)}
	assert.Equal(t, []NodeID{1, 2, 3, 1}, got)
}

func TestSequenceStrategy_Next_WalksTheConfiguredIndicesAndWraps(t *testing.T) {
	s := &SequenceStrategy{Sequence: []int{1, 0}}
	succ := []Successor{{Node: 10}, {Node: 20}}
	assert.EqualValues(t, 20, s.Next(nil, succ))
	assert.EqualValues(t, 10, s.Next(nil, succ))
	assert.EqualValues(t, 20, s.Next(nil, succ))
}

func TestSequenceStrategy_Next_ReturnsNoNodeForOutOfRangeIndex(t *testing.T) {
	s := &SequenceStrategy{Sequence: []int{5}}
	succ := []Successor{{Node: 10}}
	assert.Equal(t, NoNode, s.Next(nil, succ))
}

func TestSequenceEntityStrategy_Next_TracksACursorPerVariant(t *testing.T) {
	s := NewSequenceEntityStrategy()
	vA := &Variant{ID: 0, Name: "a"}
	vB := &Variant{ID: 1, Name: "b"}
	s.Sequences[0] = []int{0, 1}
	s.Sequences[1] = []int{1}

	succ := []Successor{{Node: 10}, {Node: 20}}
	eA := &Entity{Variant: vA}
	eB := &Entity{Variant: vB}

	assert.EqualValues(t, 10, s.Next(eA, succ))
	assert.EqualValues(t, 20, s.Next(eB, succ))
	assert.EqualValues(t, 20, s.Next(eA, succ))
	assert.EqualValues(t, 20, s.Next(eB, succ))
}

func TestRandomStrategy_Next_AlwaysReturnsAKnownSuccessor(t *testing.T) {
	r := NewRandomStrategy(rand.New(rand.NewSource(1)))
	succ := []Successor{{Node: 1}, {Node: 2}, {Node: 3}}
	for i := 0; i < 20; i++ {
		got := r.Next(nil, succ)
		assert.Contains(t, []NodeID{1, 2, 3}, got)
	}
}

func TestWeightedStrategy_Next_NeverPicksAZeroWeightSuccessor(t *testing.T) {
	w := NewWeightedStrategy(rand.New(rand.NewSource(1)))
	succ := []Successor{{Node: 1, Weight: 0}, {Node: 2, Weight: 1}}
	for i := 0; i < 20; i++ {
		assert.EqualValues(t, 2, w.Next(nil, succ))
	}
}
