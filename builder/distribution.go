// Package builder wires a parsed config.Model into a runnable simulation:
// variants, nodes, ports, resources, failures, and shift calendars bound to
// a shared engine.Kernel (spec.md §6's "core consumes an object graph").
// Grounded on the teacher's NewClusterSimulator-style constructor
// (sim/cluster/simulator.go), which takes a parsed config and wires up the
// concrete runtime objects in one place.
package builder

import (
	"fmt"
	"math/rand"

	"github.com/flowsim/flowsim/config"
	"github.com/flowsim/flowsim/numgen"
)

// buildGenerator turns a DistributionConfig into a concrete numgen.Generator,
// per spec.md §6's black-box NumberGenerator capability list.
func buildGenerator(c *config.DistributionConfig, rng *rand.Rand) (numgen.Generator, error) {
	if c == nil {
		return &numgen.Const{}, nil
	}
	p := c.Params
	switch c.Family {
	case "const":
		if len(p) < 1 {
			return nil, fmt.Errorf("const distribution requires 1 param")
		}
		return &numgen.Const{Value: p[0]}, nil
	case "normal":
		if len(p) < 2 {
			return nil, fmt.Errorf("normal distribution requires 2 params (mean, stddev)")
		}
		return numgen.NewNormal(rng, p[0], p[1]), nil
	case "uniform":
		if len(p) < 2 {
			return nil, fmt.Errorf("uniform distribution requires 2 params (min, max)")
		}
		return numgen.NewUniform(rng, p[0], p[1]), nil
	case "exponential":
		if len(p) < 1 {
			return nil, fmt.Errorf("exponential distribution requires 1 param (mean)")
		}
		return numgen.NewExponential(rng, p[0]), nil
	case "triangle":
		if len(p) < 3 {
			return nil, fmt.Errorf("triangle distribution requires 3 params (min, mode, max)")
		}
		return numgen.NewTriangle(rng, p[0], p[1], p[2]), nil
	case "weibull":
		if len(p) < 2 {
			return nil, fmt.Errorf("weibull distribution requires 2 params (k, lambda)")
		}
		return numgen.NewWeibull(rng, p[0], p[1]), nil
	default:
		return nil, fmt.Errorf("unknown distribution family %q", c.Family)
	}
}
