package numgen

import (
	"math/rand"

	"gonum.org/v1/gonum/stat/distuv"
)

// expRandSource adapts a *rand.Rand to the golang.org/x/exp/rand.Source
// interface gonum's distuv package expects for its Src field.
type expRandSource struct{ r *rand.Rand }

func (s expRandSource) Uint64() uint64   { return s.r.Uint64() }
func (s expRandSource) Seed(seed uint64) { s.r.Seed(int64(seed)) }

// distGenerator wraps a gonum distuv distribution behind the Generator
// capability. Concrete distribution math is explicitly out of scope for the
// simulation core (spec.md §6); this is the minimal real implementation that
// lets the end-to-end scenarios in spec.md §8 actually run.
type distGenerator struct {
	name  string
	rng   *rand.Rand
	build func(rng *rand.Rand) distuv.Rander
	mean  func() float64
	dist  distuv.Rander
}

func (d *distGenerator) ensure() {
	if d.dist == nil {
		d.dist = d.build(d.rng)
	}
}

func (d *distGenerator) Next() float64 {
	d.ensure()
	return d.dist.Rand()
}
func (d *distGenerator) NextFor(_ uint64) float64        { return d.Next() }
func (d *distGenerator) NextBetween(_, _ string) float64 { return d.Next() }
func (d *distGenerator) Mean() float64                   { return d.mean() }
func (d *distGenerator) IsDeterministic() bool           { return false }
func (d *distGenerator) Init()                           { d.dist = nil }
func (d *distGenerator) Clone() Generator {
	return &distGenerator{name: d.name, rng: d.rng, build: d.build, mean: d.mean}
}

// NewNormal creates a Normal(mean, stddev) generator drawing from rng.
func NewNormal(rng *rand.Rand, mean, stddev float64) Generator {
	return &distGenerator{
		name: "normal", rng: rng,
		build: func(r *rand.Rand) distuv.Rander { return distuv.Normal{Mu: mean, Sigma: stddev, Src: expRandSource{r}} },
		mean:  func() float64 { return mean },
	}
}

// NewUniform creates a Uniform(min, max) generator.
func NewUniform(rng *rand.Rand, min, max float64) Generator {
	return &distGenerator{
		name: "uniform", rng: rng,
		build: func(r *rand.Rand) distuv.Rander { return distuv.Uniform{Min: min, Max: max, Src: expRandSource{r}} },
		mean:  func() float64 { return (min + max) / 2 },
	}
}

// NewExponential creates an Exponential generator with the given mean
// (rate = 1/mean). Used by Failure Percent-availability computation
// (spec.md §4.5) to draw interval and duration.
func NewExponential(rng *rand.Rand, mean float64) Generator {
	rate := 1.0
	if mean > 0 {
		rate = 1.0 / mean
	}
	return &distGenerator{
		name: "exponential", rng: rng,
		build: func(r *rand.Rand) distuv.Rander { return distuv.Exponential{Rate: rate, Src: expRandSource{r}} },
		mean:  func() float64 { return mean },
	}
}

// NewTriangle creates a Triangle(min, mode, max) generator.
func NewTriangle(rng *rand.Rand, min, mode, max float64) Generator {
	return &distGenerator{
		name: "triangle", rng: rng,
		build: func(r *rand.Rand) distuv.Rander {
			return distuv.NewTriangle(min, mode, max, expRandSource{r})
		},
		mean: func() float64 { return (min + mode + max) / 3 },
	}
}

// NewWeibull creates a Weibull(shape k, scale lambda) generator.
func NewWeibull(rng *rand.Rand, k, lambda float64) Generator {
	return &distGenerator{
		name: "weibull", rng: rng,
		build: func(r *rand.Rand) distuv.Rander { return distuv.Weibull{K: k, Lambda: lambda, Src: expRandSource{r}} },
		mean:  func() float64 { return lambda },
	}
}

// DiscreteUniform draws an integer in [min, max] inclusive — used by
// MoveStrategyRandom and VariantCreatorRandom for unweighted choice among
// successors/variants.
type DiscreteUniform struct {
	rng      *rand.Rand
	min, max int
}

func NewDiscreteUniform(rng *rand.Rand, min, max int) *DiscreteUniform {
	return &DiscreteUniform{rng: rng, min: min, max: max}
}

func (d *DiscreteUniform) Next() int {
	if d.max <= d.min {
		return d.min
	}
	return d.min + d.rng.Intn(d.max-d.min+1)
}

// WeightedChoice draws an index in [0, len(weights)) proportional to weight.
// Backs MoveStrategyWeighted and VariantCreatorRandom's weighted mode.
func WeightedChoice(rng *rand.Rand, weights []float64) int {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return 0
	}
	r := rng.Float64() * total
	acc := 0.0
	for i, w := range weights {
		acc += w
		if r < acc {
			return i
		}
	}
	return len(weights) - 1
}
