package resource

import (
	"sort"

	"github.com/flowsim/flowsim/engine"
)

// Type distinguishes why a node needs a resource, mirroring
// resourcemanager.h's ResourceType (processing vs repair vs setup demand).
type Type int

const (
	Processing Type = iota
	Repair
	Setup
)

// BlockListItem is one entry on a resource's wait list, grounded exactly on
// resourcemanager.h's BlockListItem{resource, entity, node, failure, type}.
// Failure is an opaque handle (interface{}) since the logic package (which
// defines Failure) depends on resource, not the other way around.
type BlockListItem struct {
	Resource *NodeResource
	EntityID uint64
	NodeID   int
	Failure  any
	Type     Type

	// Resume, when set, is the owning node's own resource-ready path —
	// the continuation it would have run had TryAllocate succeeded the
	// first time. TriggerBlockList's caller invokes it after a retry
	// actually binds a resource, so a node stuck in WaitingForResource
	// is woken the instant its demand is satisfied rather than staying
	// stalled until something unrelated happens to poll it.
	Resume func(matched []*LogicSkill)

	blockedAt engine.SimTime
	order     int
}

// Manager arbitrates a pool of LogicResources against NodeResource demands,
// grounded on resourcemanager.h.
type Manager struct {
	pool      []*LogicResource
	blockList []BlockListItem
	nextOrder int
}

func NewManager(pool []*LogicResource) *Manager {
	return &Manager{pool: pool}
}

// candidates returns pool resources offering every skill nr requires,
// ordered per nr.Sort (noderesource.h's eight Sorting variants collapse to
// two axes: skill count and execution-speed proxy).
func (m *Manager) candidates(nr *NodeResource) []*LogicResource {
	var out []*LogicResource
	for _, r := range m.pool {
		if providesAll(r, nr.RequiredSkills()) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return lessBySorting(nr.Sort, out[i], out[j])
	})
	return out
}

func providesAll(r *LogicResource, required []*NodeSkill) bool {
	for _, need := range required {
		found := false
		for _, s := range r.Skills {
			if need.LogicSkill != nil && s == need.LogicSkill {
				found = true
				break
			}
			if need.LogicSkill == nil && s.Name == need.Name {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func lessBySorting(sort_ Sorting, a, b *LogicResource) bool {
	fewSkillsFirst := sort_ == FewSkillsFastExecution || sort_ == FewSkillsSlowExecution ||
		sort_ == FastExecutionFewSkills || sort_ == SlowExecutionFewSkills
	fastFirst := sort_ == FewSkillsFastExecution || sort_ == ManySkillsFastExecution ||
		sort_ == FastExecutionFewSkills || sort_ == FastExecutionManySkills
	skillPrimary := sort_ == FewSkillsFastExecution || sort_ == FewSkillsSlowExecution ||
		sort_ == ManySkillsFastExecution || sort_ == ManySkillsSlowExecution

	skillCmp := func() (bool, bool) {
		if len(a.Skills) == len(b.Skills) {
			return false, false
		}
		if fewSkillsFirst {
			return len(a.Skills) < len(b.Skills), true
		}
		return len(a.Skills) > len(b.Skills), true
	}
	speedCmp := func() (bool, bool) {
		if a.responseTime == b.responseTime {
			return false, false
		}
		if fastFirst {
			return a.responseTime < b.responseTime, true
		}
		return a.responseTime > b.responseTime, true
	}

	if skillPrimary {
		if lt, differ := skillCmp(); differ {
			return lt
		}
		lt, _ := speedCmp()
		return lt
	}
	if lt, differ := speedCmp(); differ {
		return lt
	}
	lt, _ := skillCmp()
	return lt
}

// TryAllocate attempts to bind a free resource satisfying nr to entityID,
// per resourcemanager.h's try_allocate_resources / add_to_block_list flow.
// Returns the matched skills (for execution-factor computation) and true on
// success; on failure the request is enqueued on the block list — carrying
// resume, if non-nil, so a later TriggerBlockList retry can wake the
// caller's own node back up — and false is returned.
func (m *Manager) TryAllocate(nr *NodeResource, entityID uint64, nodeID int, typ Type, now engine.SimTime, resume func(matched []*LogicSkill)) ([]*LogicSkill, bool) {
	for _, r := range m.candidates(nr) {
		if r.busy {
			continue
		}
		r.busy = true
		nr.markAllocated(entityID, r)
		return matchedSkills(r, nr.RequiredSkills()), true
	}
	m.nextOrder++
	m.blockList = append(m.blockList, BlockListItem{
		Resource: nr, EntityID: entityID, NodeID: nodeID, Type: typ,
		blockedAt: now, order: m.nextOrder, Resume: resume,
	})
	return nil, false
}

// CanAllocate reports whether nr could currently be satisfied, without
// committing an allocation or touching the block list. Used by skills-first
// nodes (resourcemanager.h's skills-first entry check) to gate admission on
// resource availability before the entity actually occupies the node — the
// real TryAllocate then runs from Accept, which in this single-threaded
// model is guaranteed to see the same pool state CanAllocate just observed.
func (m *Manager) CanAllocate(nr *NodeResource) bool {
	for _, r := range m.candidates(nr) {
		if !r.busy {
			return true
		}
	}
	return false
}

func matchedSkills(r *LogicResource, required []*NodeSkill) []*LogicSkill {
	out := make([]*LogicSkill, 0, len(required))
	for _, need := range required {
		for _, s := range r.Skills {
			if (need.LogicSkill != nil && s == need.LogicSkill) || (need.LogicSkill == nil && s.Name == need.Name) {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

// Release frees the resource allocated to entityID under nr and returns
// the freed LogicResource, if any, without yet retrying the block list
// (callers call TriggerBlockList explicitly, matching resourcemanager.h's
// separation between release and trigger).
func (m *Manager) Release(nr *NodeResource, entityID uint64) *LogicResource {
	r := nr.release(entityID)
	if r != nil {
		r.busy = false
	}
	return r
}

// MarkReady flags entityID's allocation under nr as having cleared its
// response-time delay.
func (m *Manager) MarkReady(nr *NodeResource, entityID uint64) {
	nr.markReady(entityID)
}

// AddToBlockList / RemoveFromBlockList expose direct block-list management
// for callers that need to cancel a pending request (e.g. an entity
// leaving via a different path), grounded on resourcemanager.h's
// add_to_block_list / remove_from_block_list.
func (m *Manager) RemoveFromBlockList(entityID uint64) {
	for i, item := range m.blockList {
		if item.EntityID == entityID {
			m.blockList = append(m.blockList[:i], m.blockList[i+1:]...)
			return
		}
	}
}

// TriggerBlockList retries every pending request in FIFO (blocked-time,
// then insertion-order) order; try should call TryAllocate and report
// whether it succeeded, matching resourcemanager.h's trigger_blocklist
// scanning the whole list rather than stopping at the first satisfiable
// request (a later, still-blocked entry may want a different skill set
// than the one that just freed up). Each entry is removed from the block
// list before try runs, since try's own TryAllocate call re-enqueues it on
// failure; removing first avoids leaving both the stale and fresh entries.
func (m *Manager) TriggerBlockList(try func(item BlockListItem) bool) {
	sort.SliceStable(m.blockList, func(i, j int) bool {
		if m.blockList[i].blockedAt != m.blockList[j].blockedAt {
			return m.blockList[i].blockedAt < m.blockList[j].blockedAt
		}
		return m.blockList[i].order < m.blockList[j].order
	})
	pending := append([]BlockListItem(nil), m.blockList...)
	for _, item := range pending {
		// Remove before retrying: try typically calls TryAllocate, which
		// re-enqueues a fresh entry on failure. Removing first avoids
		// carrying both the stale and the fresh entry for the same entity.
		m.RemoveFromBlockList(item.EntityID)
		try(item)
	}
}

func (m *Manager) BlockListLen() int { return len(m.blockList) }
