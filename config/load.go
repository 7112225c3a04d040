package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ValidationError reports a configuration/spec error surfaced at build
// time (spec.md §7: "surfaced as a fatal build-time error to the loader;
// engine refuses to start"), grounded on the teacher's error-wrapping style
// in sim/config.go's validation helpers.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// Load reads and parses a YAML model file from path.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model file: %w", err)
	}
	var m Model
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse model file: %w", err)
	}
	return &m, nil
}

// Validate checks the loaded model for configuration/spec errors (spec.md
// §7's first error kind): negative capacities, contradictory options,
// dangling references. It collects every problem found rather than
// stopping at the first, since the loader is expected to report the full
// list before refusing to start.
func Validate(m *Model) []error {
	var errs []error

	if m.Replication.Horizon <= 0 {
		errs = append(errs, &ValidationError{"replication.horizon", "must be > 0"})
	}
	if m.Replication.Count <= 0 {
		errs = append(errs, &ValidationError{"replication.count", "must be >= 1"})
	}

	variantNames := map[string]bool{}
	for _, v := range m.Variants {
		if v.Name == "" {
			errs = append(errs, &ValidationError{"variants", "name must not be empty"})
			continue
		}
		variantNames[v.Name] = true
	}

	nodeNames := map[string]bool{}
	for _, n := range m.Nodes {
		if n.Name == "" {
			errs = append(errs, &ValidationError{"nodes", "name must not be empty"})
			continue
		}
		if nodeNames[n.Name] {
			errs = append(errs, &ValidationError{"nodes." + n.Name, "duplicate node name"})
		}
		nodeNames[n.Name] = true
		if n.Capacity < 0 {
			errs = append(errs, &ValidationError{"nodes." + n.Name + ".capacity", "must be >= 0"})
		}
		if n.Kind == "parallel" {
			if n.Internal <= 0 {
				errs = append(errs, &ValidationError{"nodes." + n.Name + ".internal", "must be >= 1 for a parallel operation"})
			}
			if n.SynchronizeExit && !n.MixedProcessing && len(n.RequiredParts) == 0 {
				errs = append(errs, &ValidationError{
					"nodes." + n.Name,
					"synchronize_exit with mixed_processing=false requires at least one variant to be declared",
				})
			}
		}
		if n.Kind == "conveyor" {
			if n.Length <= 0 {
				errs = append(errs, &ValidationError{"nodes." + n.Name + ".length", "must be > 0"})
			}
			if n.Speed <= 0 {
				errs = append(errs, &ValidationError{"nodes." + n.Name + ".speed", "must be > 0"})
			}
		}
		if n.Kind == "assembly" && len(n.RequiredParts) == 0 {
			errs = append(errs, &ValidationError{"nodes." + n.Name + ".required_parts", "must name at least one part variant"})
		}
		if n.MaxWip < 0 {
			errs = append(errs, &ValidationError{"nodes." + n.Name + ".max_wip", "must be >= 0"})
		}
		if n.Kanban < 0 {
			errs = append(errs, &ValidationError{"nodes." + n.Name + ".kanban", "must be >= 0"})
		}
		if n.Batch != nil && n.Batch.MinSize > n.Batch.MaxSize {
			errs = append(errs, &ValidationError{"nodes." + n.Name + ".batch", "min_size must not exceed max_size"})
		}
	}

	taktNodeSeen := map[string]bool{}
	for _, tg := range m.TaktGroups {
		if tg.CycleTime <= 0 {
			errs = append(errs, &ValidationError{"takt_groups." + tg.Name + ".cycle_time", "must be > 0"})
		}
		if len(tg.Nodes) == 0 {
			errs = append(errs, &ValidationError{"takt_groups." + tg.Name + ".nodes", "must name at least one node"})
		}
		for _, n := range tg.Nodes {
			if !nodeNames[n] {
				errs = append(errs, &ValidationError{"takt_groups." + tg.Name + ".nodes", "unknown node " + n})
				continue
			}
			if taktNodeSeen[n] {
				errs = append(errs, &ValidationError{"takt_groups." + tg.Name + ".nodes", "node " + n + " already belongs to another takt group"})
			}
			taktNodeSeen[n] = true
		}
	}

	for _, n := range m.Nodes {
		for _, s := range n.Successors {
			if !nodeNames[s.Node] {
				errs = append(errs, &ValidationError{"nodes." + n.Name + ".successors", "unknown node " + s.Node})
			}
			if s.Variant != "" && !variantNames[s.Variant] {
				errs = append(errs, &ValidationError{"nodes." + n.Name + ".successors", "unknown variant " + s.Variant})
			}
		}
	}

	zoneNames := map[string]bool{}
	for _, z := range m.FailureZones {
		zoneNames[z.Name] = true
		for _, n := range z.Nodes {
			if !nodeNames[n] {
				errs = append(errs, &ValidationError{"failure_zones." + z.Name, "unknown node " + n})
			}
		}
	}

	for _, f := range m.Failures {
		if f.Node == "" && f.Zone == "" {
			errs = append(errs, &ValidationError{"failures." + f.Name, "must set either node or zone"})
		}
		if f.Node != "" && !nodeNames[f.Node] {
			errs = append(errs, &ValidationError{"failures." + f.Name, "unknown node " + f.Node})
		}
		switch f.Mode {
		case "percent":
			if f.Availability <= 0 || f.Availability >= 1 {
				errs = append(errs, &ValidationError{"failures." + f.Name + ".availability", "must be in (0,1)"})
			}
			if f.MTTR <= 0 {
				errs = append(errs, &ValidationError{"failures." + f.Name + ".mttr", "must be > 0"})
			}
		case "distributions":
			if f.Interval == nil || f.Duration == nil {
				errs = append(errs, &ValidationError{"failures." + f.Name, "distributions mode requires interval and duration"})
			}
		case "cycles":
			if f.CycleCount == 0 {
				errs = append(errs, &ValidationError{"failures." + f.Name + ".cycle_count", "must be > 0"})
			}
		default:
			errs = append(errs, &ValidationError{"failures." + f.Name + ".mode", "must be one of percent, distributions, cycles"})
		}
		if f.Zone != "" && !zoneNames[f.Zone] {
			errs = append(errs, &ValidationError{"failures." + f.Name + ".zone", "unknown failure zone " + f.Zone})
		}
	}

	resourceNames := map[string]bool{}
	for _, r := range m.Resources {
		resourceNames[r.Name] = true
		if len(r.Skills) == 0 {
			errs = append(errs, &ValidationError{"resources." + r.Name, "must offer at least one skill"})
		}
	}

	for _, n := range m.Nodes {
		if len(n.ResourceSkills) > 0 {
			satisfiable := false
			for _, r := range m.Resources {
				if providesAny(r.Skills, n.ResourceSkills) {
					satisfiable = true
					break
				}
			}
			if !satisfiable {
				errs = append(errs, &ValidationError{"nodes." + n.Name + ".resource_skills", "no declared resource offers any required skill"})
			}
		}
	}

	return errs
}

func providesAny(offered, required []string) bool {
	set := map[string]bool{}
	for _, s := range offered {
		set[s] = true
	}
	for _, r := range required {
		if set[r] {
			return true
		}
	}
	return false
}
