// Package numgen provides the NumberGenerator capability the kernel treats
// as an external, black-box collaborator (see spec.md §6), plus a small set
// of concrete distributions backed by gonum so the end-to-end scenarios have
// something real to draw from. Deterministic replication is achieved through
// PartitionedRNG: every subsystem (a Failure, a NodeResource response time, a
// MoveStrategyWeighted, ...) draws from its own isolated stream so that
// enabling or disabling an unrelated subsystem never perturbs another's
// draw sequence.
package numgen

import (
	"hash/fnv"
	"math/rand"
)

// SimulationKey identifies a reproducible run. Two runs with the same key
// and configuration must produce bit-for-bit identical entity traces.
type SimulationKey int64

// PartitionedRNG hands out one *rand.Rand per named subsystem, each
// deterministically derived from a single master seed so replications are
// reproducible regardless of the order subsystems first draw from it.
//
// Not safe for concurrent use — the kernel is single-threaded (spec.md §5).
type PartitionedRNG struct {
	key        SimulationKey
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a master seed.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{key: key, subsystems: make(map[string]*rand.Rand)}
}

// ForSubsystem returns the deterministic RNG stream for name, creating it on
// first use. Repeated calls with the same name return the same instance.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	seed := int64(p.key) ^ fnv1a64(name)
	rng := rand.New(rand.NewSource(seed))
	p.subsystems[name] = rng
	return rng
}

func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
