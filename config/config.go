// Package config loads and validates a model file (spec.md §6's "object
// graph whose root is a Component tree with Nodes, Logics, Variants, Flows,
// ShiftCalendars, ResourceManagers"), grounded on the teacher's grouped-
// struct style in sim/config.go. The wire format here is YAML rather than
// the original's XML — SPEC_FULL.md's ambient-stack expansion picks
// gopkg.in/yaml.v3 to match the rest of the corpus's config loaders.
package config

// VariantConfig describes one part type (spec.md §3's Variant).
type VariantConfig struct {
	Name   string  `yaml:"name"`
	Weight float64 `yaml:"weight"`
}

// NodeConfig groups the fields shared by every node kind; Kind selects
// which concrete nodes.* type gets built, and only the fields relevant to
// that kind need be set.
type NodeConfig struct {
	Name     string `yaml:"name"`
	Kind     string `yaml:"kind"` // source, sink, buffer, store, operation, assembly, disassembly, conveyor, parallel
	Capacity int    `yaml:"capacity"`

	ProcessTime *DistributionConfig `yaml:"process_time,omitempty"`
	SetupTime   *DistributionConfig `yaml:"setup_time,omitempty"`
	Arrival     *DistributionConfig `yaml:"arrival,omitempty"`

	Successors []SuccessorConfig `yaml:"successors,omitempty"`
	MoveStrategy string          `yaml:"move_strategy,omitempty"` // successor, cyclic, random, weighted, sequence, sequence_entity
	Sequence     []int           `yaml:"sequence,omitempty"`      // successor indices for move_strategy: sequence

	RequiredParts []string `yaml:"required_parts,omitempty"` // Assembly

	Length         float64 `yaml:"length,omitempty"`         // Conveyor
	Speed          float64 `yaml:"speed,omitempty"`          // Conveyor
	Accumulating   bool    `yaml:"accumulating,omitempty"`   // Conveyor

	Internal          int  `yaml:"internal,omitempty"`           // ParallelOperation
	MixedProcessing   bool `yaml:"mixed_processing,omitempty"`   // ParallelOperation
	SynchronizeEntry  bool `yaml:"synchronize_entry,omitempty"`  // ParallelOperation
	SynchronizeExit   bool `yaml:"synchronize_exit,omitempty"`   // ParallelOperation
	EntryTimeout      float64 `yaml:"entry_timeout,omitempty"`   // ParallelOperation

	ResourceSkills      []string `yaml:"resource_skills,omitempty"`
	ResourceSort        string   `yaml:"resource_sort,omitempty"`
	ResourceSkillsFirst bool     `yaml:"resource_skills_first,omitempty"` // allocate before entry (spec.md §4.6) rather than after

	ShiftCalendar string `yaml:"shift_calendar,omitempty"`

	Dispatch string `yaml:"dispatch,omitempty"` // fifo, order, spt, sst — governs this node's enter block list

	PerVariantCapacity map[string]int `yaml:"per_variant_capacity,omitempty"` // Buffer/Store

	MaxWip           int    `yaml:"max_wip,omitempty"`
	CriticalWipGroup string `yaml:"critical_wip_group,omitempty"` // shared MaxWip limit across every node naming the same group
	Kanban           int    `yaml:"kanban,omitempty"`
	Batch            *BatchConfig  `yaml:"batch,omitempty"`
	Order            *OrderConfig  `yaml:"order,omitempty"`
	Demand           *DemandConfig `yaml:"demand,omitempty"` // Source only
}

// TaktGroupConfig names a set of nodes that advance in lockstep: none of
// their exits release an entity until every member has finished its own
// cycle, and the round's elapsed time is compared against CycleTime to
// accumulate the group's exceed/deceed timing.
type TaktGroupConfig struct {
	Name      string   `yaml:"name"`
	CycleTime float64  `yaml:"cycle_time"`
	Nodes     []string `yaml:"nodes"`
}

// BatchConfig groups entities at a node's exit and releases a run together
// once it holds MaxSize, or earlier through StartIncomplete or an explicit
// finish_batch call (spec.md §5's Batch logic). MultipleBatches
// allows more than one batch to accumulate concurrently under distinct
// batch IDs; ParallelProcessing lets a node work a batch's members
// concurrently rather than one at a time; StartIncomplete arms a timeout
// that force-starts the current batch once it holds at least MinSize, even
// short of MaxSize; PrioritizeComplete has the dispatcher favor entities
// already carrying a batch ID that's ready to release over ones that would
// start a fresh batch.
type BatchConfig struct {
	MinSize            int     `yaml:"min_size"`
	MaxSize            int     `yaml:"max_size"`
	MultipleBatches    bool    `yaml:"multiple_batches,omitempty"`
	ParallelProcessing bool    `yaml:"parallel_processing,omitempty"`
	StartIncomplete    float64 `yaml:"start_incomplete,omitempty"` // seconds; 0 disables the timeout
	PrioritizeComplete bool    `yaml:"prioritize_complete,omitempty"`
}

// OrderConfig caps how many entities of Variant (or any variant, if empty)
// may be admitted through this node before further entries are refused
// (spec.md §5's Order logic).
type OrderConfig struct {
	Variant  string `yaml:"variant,omitempty"`
	Quantity int    `yaml:"quantity"`
}

// DemandConfig paces a Source's creation on Interval rather than continuous
// Arrival draws, creating up to BatchSize entities per pulse and stopping
// once the node's own Order (if set) is satisfied (spec.md §5's Demand).
type DemandConfig struct {
	Interval  *DistributionConfig `yaml:"interval"`
	BatchSize int                 `yaml:"batch_size"`
}

// SuccessorConfig names a downstream node and its selection weight.
type SuccessorConfig struct {
	Node    string  `yaml:"node"`
	Variant string  `yaml:"variant,omitempty"`
	Weight  float64 `yaml:"weight"`
}

// DistributionConfig selects a numgen.Generator family and its parameters
// (spec.md §6: "the core treats them as a black-box capability ... concrete
// families are external").
type DistributionConfig struct {
	Family string    `yaml:"family"` // const, normal, uniform, exponential, triangle, weibull
	Params []float64 `yaml:"params"`
}

// FailureConfig describes one disruption schedule (spec.md §4.5).
type FailureConfig struct {
	Name         string  `yaml:"name"`
	Node         string  `yaml:"node"`
	Mode         string  `yaml:"mode"` // percent, distributions, cycles
	Reference    string  `yaml:"reference,omitempty"` // simulation, processing, operational
	Availability float64 `yaml:"availability,omitempty"`
	MTTR         float64 `yaml:"mttr,omitempty"`

	Interval *DistributionConfig `yaml:"interval,omitempty"`
	Duration *DistributionConfig `yaml:"duration,omitempty"`
	CycleCount uint              `yaml:"cycle_count,omitempty"`

	Zone string `yaml:"zone,omitempty"`
}

// FailureZoneConfig groups nodes for propagated disruptions.
type FailureZoneConfig struct {
	Name             string   `yaml:"name"`
	Nodes            []string `yaml:"nodes"`
	PropagationSteps int      `yaml:"propagation_steps,omitempty"`
}

// ResourceConfig declares one LogicResource with the skills it offers.
type ResourceConfig struct {
	Name         string   `yaml:"name"`
	Skills       []string `yaml:"skills"`
	ResponseTime float64  `yaml:"response_time,omitempty"`
}

// ShiftConfig is one weekly recurring shift window (spec.md §4.9).
type ShiftConfig struct {
	Name    string        `yaml:"name"`
	Start   float64       `yaml:"start"`
	End     float64       `yaml:"end"`
	Days    []string      `yaml:"days"`
	Breaks  []BreakConfig `yaml:"breaks,omitempty"`
}

type BreakConfig struct {
	Start float64 `yaml:"start"`
	End   float64 `yaml:"end"`
}

// ShiftCalendarConfig names a calendar and the shifts within its week.
type ShiftCalendarConfig struct {
	Name   string        `yaml:"name"`
	Shifts []ShiftConfig `yaml:"shifts"`
}

// ReplicationConfig groups the run parameters (spec.md §4.1's run(horizon, n)).
type ReplicationConfig struct {
	Horizon float64 `yaml:"horizon"`
	Count   int     `yaml:"count"`
	Warmup  float64 `yaml:"warmup,omitempty"`
	Seed    int64   `yaml:"seed"`
}

// Model is the root of a loaded model file (spec.md §6's Component tree).
type Model struct {
	Name          string                `yaml:"name"`
	Replication   ReplicationConfig     `yaml:"replication"`
	Variants      []VariantConfig       `yaml:"variants"`
	Nodes         []NodeConfig          `yaml:"nodes"`
	Resources     []ResourceConfig      `yaml:"resources,omitempty"`
	Failures      []FailureConfig       `yaml:"failures,omitempty"`
	FailureZones  []FailureZoneConfig   `yaml:"failure_zones,omitempty"`
	ShiftCalendars []ShiftCalendarConfig `yaml:"shift_calendars,omitempty"`
	TaktGroups     []TaktGroupConfig     `yaml:"takt_groups,omitempty"`
}
