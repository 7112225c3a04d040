package numgen

// Generator is the capability the kernel actually depends on (spec.md §6):
// draw a value, optionally keyed by an entity or a (to, from) pair for
// setup-table-style lookups, report the analytic mean, report whether the
// generator is deterministic (a Const never needs its own RNG stream), and
// clone itself for use by another owner instance sharing the same model
// definition (e.g. two Operations both referencing "proc_time_normal").
type Generator interface {
	Next() float64
	NextFor(entityID uint64) float64
	NextBetween(to, from string) float64
	Mean() float64
	IsDeterministic() bool
	Clone() Generator
	Init()
}

// Const always returns the same value. Used heavily in tests and for
// zero-variance process times (spec.md §8 scenario 1: "process_time on
// Source=0").
type Const struct{ Value float64 }

func (c *Const) Next() float64                       { return c.Value }
func (c *Const) NextFor(_ uint64) float64             { return c.Value }
func (c *Const) NextBetween(_, _ string) float64      { return c.Value }
func (c *Const) Mean() float64                        { return c.Value }
func (c *Const) IsDeterministic() bool                { return true }
func (c *Const) Clone() Generator                     { return &Const{Value: c.Value} }
func (c *Const) Init()                                {}
