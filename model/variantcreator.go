package model

import (
	"math/rand"

	"github.com/flowsim/flowsim/numgen"
)

// VariantCreator decides which variant a Source produces for its next
// entity (SPEC_FULL.md §6's supplemented feature, grounded on
// original_source/variantcreator*.h — dropped from the distilled spec but
// present in the original demand-generation logic).
type VariantCreator interface {
	Next() *Variant
}

// DeliveryVariantCreator cycles through a fixed delivery schedule of
// variants in order, one per call, wrapping at the end. Grounded on
// variantcreatordelivery.h.
type DeliveryVariantCreator struct {
	Schedule []*Variant
	pos      int
}

func (d *DeliveryVariantCreator) Next() *Variant {
	if len(d.Schedule) == 0 {
		return nil
	}
	v := d.Schedule[d.pos%len(d.Schedule)]
	d.pos++
	return v
}

// RandomVariantCreator draws a variant at random, weighted by Variant.Weight
// when any weight is non-zero, uniform otherwise. Grounded on
// variantcreatorrandom.h.
type RandomVariantCreator struct {
	Variants []*Variant
	rng      *rand.Rand
}

func NewRandomVariantCreator(rng *rand.Rand, variants []*Variant) *RandomVariantCreator {
	return &RandomVariantCreator{Variants: variants, rng: rng}
}

func (r *RandomVariantCreator) Next() *Variant {
	if len(r.Variants) == 0 {
		return nil
	}
	weighted := false
	weights := make([]float64, len(r.Variants))
	for i, v := range r.Variants {
		weights[i] = v.Weight
		if v.Weight != 0 {
			weighted = true
		}
	}
	if !weighted {
		return r.Variants[numgen.NewDiscreteUniform(r.rng, 0, len(r.Variants)-1).Next()]
	}
	return r.Variants[numgen.WeightedChoice(r.rng, weights)]
}

// SequenceVariantCreator repeats a fixed, explicit sequence of variants,
// distinct from DeliveryVariantCreator in that the sequence is meant to
// describe a repeating production mix rather than a one-shot delivery list.
// Grounded on variantcreatorsequence.h.
type SequenceVariantCreator struct {
	Sequence []*Variant
	pos      int
}

func (s *SequenceVariantCreator) Next() *Variant {
	if len(s.Sequence) == 0 {
		return nil
	}
	v := s.Sequence[s.pos%len(s.Sequence)]
	s.pos++
	return v
}
