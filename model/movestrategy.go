package model

import (
	"math/rand"

	"github.com/flowsim/flowsim/numgen"
)

// Successor is a candidate destination with its selection weight, grounded
// on exitport.h's successor_node_added signal (Variant*, Node*, weight).
type Successor struct {
	Node   NodeID
	Weight float64
}

// MoveStrategy picks the next destination for an entity leaving a node
// (spec.md §5). Each concrete strategy is grounded on the corresponding
// xsim movecontroller subclass named in its doc comment.
type MoveStrategy interface {
	Next(e *Entity, successors []Successor) NodeID
}

// SuccessorStrategy always returns the single configured successor; used
// when a node has exactly one outgoing path.
type SuccessorStrategy struct{}

func (SuccessorStrategy) Next(e *Entity, successors []Successor) NodeID {
	if len(successors) == 0 {
		return NoNode
	}
	return successors[0].Node
}

// CyclicStrategy round-robins across successors regardless of weight,
// grounded on movecontrollercyclic.h.
type CyclicStrategy struct {
	next int
}

func (c *CyclicStrategy) Next(e *Entity, successors []Successor) NodeID {
	if len(successors) == 0 {
		return NoNode
	}
	idx := c.next % len(successors)
	c.next++
	return successors[idx].Node
}

// RandomStrategy picks uniformly among successors, grounded on
// movecontrollerrandom.h.
type RandomStrategy struct {
	rng *rand.Rand
}

func NewRandomStrategy(rng *rand.Rand) *RandomStrategy { return &RandomStrategy{rng: rng} }

func (r *RandomStrategy) Next(e *Entity, successors []Successor) NodeID {
	if len(successors) == 0 {
		return NoNode
	}
	return successors[numgen.NewDiscreteUniform(r.rng, 0, len(successors)-1).Next()].Node
}

// WeightedStrategy picks among successors proportional to Successor.Weight,
// grounded on movecontrollerweighted.h.
type WeightedStrategy struct {
	rng *rand.Rand
}

func NewWeightedStrategy(rng *rand.Rand) *WeightedStrategy { return &WeightedStrategy{rng: rng} }

func (w *WeightedStrategy) Next(e *Entity, successors []Successor) NodeID {
	if len(successors) == 0 {
		return NoNode
	}
	weights := make([]float64, len(successors))
	for i, s := range successors {
		weights[i] = s.Weight
	}
	return successors[numgen.WeightedChoice(w.rng, weights)].Node
}

// SequenceStrategy walks a fixed, externally-provided list of successor
// indices in order, one step per call, wrapping around at the end. Grounded
// on movecontrollersequence.h.
type SequenceStrategy struct {
	Sequence []int
	pos      int
}

func (s *SequenceStrategy) Next(e *Entity, successors []Successor) NodeID {
	if len(successors) == 0 || len(s.Sequence) == 0 {
		return NoNode
	}
	idx := s.Sequence[s.pos%len(s.Sequence)]
	s.pos++
	if idx < 0 || idx >= len(successors) {
		return NoNode
	}
	return successors[idx].Node
}

// SequenceEntityStrategy is like SequenceStrategy but keeps a separate
// cursor per entity variant, so different variants can each walk their own
// fixed routing sequence independently. Grounded on
// movecontrollersequenceentity.h.
type SequenceEntityStrategy struct {
	Sequences map[int][]int // by Variant.ID
	pos       map[int]int
}

func NewSequenceEntityStrategy() *SequenceEntityStrategy {
	return &SequenceEntityStrategy{Sequences: map[int][]int{}, pos: map[int]int{}}
}

func (s *SequenceEntityStrategy) Next(e *Entity, successors []Successor) NodeID {
	if len(successors) == 0 || e.Variant == nil {
		return NoNode
	}
	seq, ok := s.Sequences[e.Variant.ID]
	if !ok || len(seq) == 0 {
		return NoNode
	}
	p := s.pos[e.Variant.ID]
	idx := seq[p%len(seq)]
	s.pos[e.Variant.ID] = p + 1
	if idx < 0 || idx >= len(successors) {
		return NoNode
	}
	return successors[idx].Node
}
