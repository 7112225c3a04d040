package logic

// MaxWip caps the number of entities simultaneously admitted downstream of
// an enter port. Allow takes any, so install it by wrapping:
// model.EnterPort.AddEnterLogic(model.EnterLogic{Allow: func(e *model.Entity) bool { return mw.Allow(e) }}).
type MaxWip struct {
	Limit int
	count int
}

func NewMaxWip(limit int) *MaxWip { return &MaxWip{Limit: limit} }

func (m *MaxWip) Allow(_ any) bool { return m.count < m.Limit }

// Enter must be called once an entity is actually admitted so the count
// stays accurate (the Allow predicate alone is read-only).
func (m *MaxWip) Enter() { m.count++ }

// Exit must be called once an entity admitted under this limit leaves,
// freeing a slot.
func (m *MaxWip) Exit() {
	if m.count > 0 {
		m.count--
	}
}

func (m *MaxWip) Count() int { return m.count }

// CriticalWip generalizes MaxWip across a chain of nodes sharing one
// limit — the same counter, shared by reference across every enter port in
// the chain.
type CriticalWip = MaxWip

func NewCriticalWip(limit int) *CriticalWip { return NewMaxWip(limit) }

// Kanban is a token-based admission control: an entity may enter only while
// a physical/virtual card is available, and a card is returned when the
// linked withdrawal point consumes downstream output.
type Kanban struct {
	Capacity  int
	available int
}

func NewKanban(capacity int) *Kanban {
	return &Kanban{Capacity: capacity, available: capacity}
}

func (k *Kanban) Allow(_ any) bool { return k.available > 0 }

// Take consumes a card on admission.
func (k *Kanban) Take() bool {
	if k.available <= 0 {
		return false
	}
	k.available--
	return true
}

// Return releases a card back to the pool, capped at Capacity.
func (k *Kanban) Return() {
	if k.available < k.Capacity {
		k.available++
	}
}

func (k *Kanban) Available() int { return k.available }

// Batch groups entities into runs in arrival order; a run is not split by
// variant or setup identity. A run releases once it holds MaxSize members,
// or earlier through ForceStart (which needs at least MinSize) or
// FinishBatch (at any size). Each run carries its own id,
// stamped onto its members so a downstream exit gate or dispatcher can
// address one run without disturbing another accumulating alongside it.
// MultipleBatches lets a fresh run start accepting members before the
// previous one has fully drained; without it, admission blocks until the
// previously released run empties.
type Batch struct {
	MinSize         int
	MaxSize         int
	MultipleBatches bool

	nextID  uint
	current *batchRun
	waiting map[uint]*batchRun
}

type batchRun struct {
	id      uint
	members []uint64
}

func NewBatch(min, max int) *Batch {
	return &Batch{MinSize: min, MaxSize: max, waiting: map[uint]*batchRun{}}
}

// AllowEntry reports whether a new entity may join a run right now: always
// true once MultipleBatches is set, otherwise only while no already-released
// run is still waiting to fully drain.
func (b *Batch) AllowEntry() bool {
	return b.MultipleBatches || len(b.waiting) == 0
}

// Add appends entityID to the run currently accepting members, opening a
// fresh one if none is open, and returns that run's id and whether it just
// reached MaxSize and moved to the waiting-to-release set.
func (b *Batch) Add(entityID uint64) (id uint, full bool) {
	if b.current == nil {
		b.nextID++
		b.current = &batchRun{id: b.nextID}
	}
	b.current.members = append(b.current.members, entityID)
	id = b.current.id
	if len(b.current.members) >= b.MaxSize {
		b.waiting[id] = b.current
		b.current = nil
		return id, true
	}
	return id, false
}

// ForceStart moves the current run into the waiting-to-release set early,
// provided it has reached MinSize, reporting its id. Used when a
// start-incomplete timeout fires before MaxSize is reached.
func (b *Batch) ForceStart() (id uint, ok bool) {
	if b.current == nil || len(b.current.members) < b.MinSize {
		return 0, false
	}
	id = b.current.id
	b.waiting[id] = b.current
	b.current = nil
	return id, true
}

// FinishBatch forces run id to release regardless of size, reporting
// whether that run existed (either still forming or already waiting).
func (b *Batch) FinishBatch(id uint) bool {
	if b.current != nil && b.current.id == id {
		b.waiting[id] = b.current
		b.current = nil
		return true
	}
	_, ok := b.waiting[id]
	return ok
}

// ReadyToRelease reports whether run id has left the forming stage (by
// MaxSize, ForceStart, or FinishBatch) and so may depart.
func (b *Batch) ReadyToRelease(id uint) bool {
	_, ok := b.waiting[id]
	return ok
}

// Depart records entityID's departure from run id, retiring the run once
// its last member has left.
func (b *Batch) Depart(id uint, entityID uint64) {
	run, ok := b.waiting[id]
	if !ok {
		return
	}
	for i, m := range run.members {
		if m == entityID {
			run.members = append(run.members[:i], run.members[i+1:]...)
			break
		}
	}
	if len(run.members) == 0 {
		delete(b.waiting, id)
	}
}

// Len reports how many members run id currently holds, whether still
// forming or waiting to release.
func (b *Batch) Len(id uint) int {
	if b.current != nil && b.current.id == id {
		return len(b.current.members)
	}
	if run, ok := b.waiting[id]; ok {
		return len(run.members)
	}
	return 0
}
