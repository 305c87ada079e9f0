package ecs

import "errors"

// EntityID encodes a 32-bit index in the lower bits and a 32-bit generation
// in the upper bits. Generation increments on destroy so a held ID that
// references a destroyed-then-recreated slot is detectable as stale.
type EntityID uint64

func NewEntityID(index uint32, generation uint32) EntityID {
	return EntityID(uint64(generation)<<32 | uint64(index))
}

func (id EntityID) Index() uint32      { return uint32(id) }
func (id EntityID) Generation() uint32 { return uint32(id >> 32) }
func (id EntityID) IsZero() bool       { return id == 0 }

var (
	// ErrCapacityExceeded means the entity identifier space is exhausted.
	// Unrecoverable: the simulation should halt rather than reuse live slots.
	ErrCapacityExceeded = errors.New("ecs: entity capacity exceeded")

	// ErrStaleReference means an EntityID's generation no longer matches its
	// slot: the entity was destroyed (and the slot possibly reused) since the
	// ID was obtained.
	ErrStaleReference = errors.New("ecs: stale entity reference")

	// ErrDuplicateComponent means the entity already has a component of that
	// type attached.
	ErrDuplicateComponent = errors.New("ecs: duplicate component")

	// ErrMissingComponent means the entity is alive but has no component of
	// that type attached.
	ErrMissingComponent = errors.New("ecs: missing component")
)

// EntityPool manages entity allocation with generational indices and a free
// list. Destroy is idempotent: destroying with a stale ID is a no-op.
type EntityPool struct {
	generations []uint32
	freeList    []uint32
	nextIndex   uint32
	capacity    uint32
}

func NewEntityPool(capacity int) *EntityPool {
	if capacity <= 0 {
		capacity = 1 << 20
	}
	p := &EntityPool{
		generations: make([]uint32, 0, 1024),
		freeList:    make([]uint32, 0, 256),
		capacity:    uint32(capacity),
	}
	// Slot 0 starts at generation 1: ID 0 is the "no entity" sentinel
	// everywhere (targets, exclusion params, IsZero) and must never be a
	// real allocation.
	p.generations = append(p.generations, 1)
	return p
}

func (p *EntityPool) Create() (EntityID, error) {
	if len(p.freeList) > 0 {
		idx := p.freeList[len(p.freeList)-1]
		p.freeList = p.freeList[:len(p.freeList)-1]
		return NewEntityID(idx, p.generations[idx]), nil
	}
	if p.nextIndex >= p.capacity {
		return 0, ErrCapacityExceeded
	}
	idx := p.nextIndex
	p.nextIndex++
	if int(idx) >= len(p.generations) {
		p.generations = append(p.generations, 0)
	}
	return NewEntityID(idx, p.generations[idx]), nil
}

func (p *EntityPool) Alive(id EntityID) bool {
	idx := id.Index()
	if idx >= p.nextIndex {
		return false
	}
	return p.generations[idx] == id.Generation()
}

// Destroy invalidates the ID's slot and recycles its index. Returns whether
// the entity was actually alive; a stale or repeated destroy reports false.
func (p *EntityPool) Destroy(id EntityID) bool {
	idx := id.Index()
	if idx >= p.nextIndex {
		return false
	}
	if p.generations[idx] != id.Generation() {
		return false // already destroyed
	}
	p.generations[idx]++
	p.freeList = append(p.freeList, idx)
	return true
}

// Live returns the number of currently allocated entities.
func (p *EntityPool) Live() int {
	return int(p.nextIndex) - len(p.freeList)
}

// PoolState is the pool's allocation tables in exportable form. Restoring
// it reconstructs the pool exactly, so EntityIDs saved alongside it stay
// valid and IDs stale before the save stay stale after.
type PoolState struct {
	Generations []uint32 `json:"generations"`
	FreeList    []uint32 `json:"free_list"`
	NextIndex   uint32   `json:"next_index"`
}

// Export copies the allocation tables out of the pool.
func (p *EntityPool) Export() PoolState {
	st := PoolState{
		Generations: make([]uint32, len(p.generations)),
		FreeList:    make([]uint32, len(p.freeList)),
		NextIndex:   p.nextIndex,
	}
	copy(st.Generations, p.generations)
	copy(st.FreeList, p.freeList)
	return st
}

// Import replaces the pool's allocation tables. The pool's capacity limit
// is kept; state that does not fit is rejected.
func (p *EntityPool) Import(st PoolState) error {
	if st.NextIndex > p.capacity {
		return ErrCapacityExceeded
	}
	if int(st.NextIndex) > len(st.Generations) {
		return errors.New("ecs: pool state next index beyond generation table")
	}
	if len(st.Generations) > 0 && st.Generations[0] == 0 {
		return errors.New("ecs: pool state would allocate the zero sentinel id")
	}
	for _, idx := range st.FreeList {
		if idx >= st.NextIndex {
			return errors.New("ecs: pool state free list references unallocated slot")
		}
	}
	p.generations = make([]uint32, len(st.Generations))
	copy(p.generations, st.Generations)
	p.freeList = make([]uint32, len(st.FreeList))
	copy(p.freeList, st.FreeList)
	p.nextIndex = st.NextIndex
	return nil
}

// LiveIDs returns the IDs of all allocated entities in ascending slot
// order, for snapshot enumeration.
func (p *EntityPool) LiveIDs() []EntityID {
	free := make(map[uint32]struct{}, len(p.freeList))
	for _, idx := range p.freeList {
		free[idx] = struct{}{}
	}
	ids := make([]EntityID, 0, p.Live())
	for idx := uint32(0); idx < p.nextIndex; idx++ {
		if _, dead := free[idx]; dead {
			continue
		}
		ids = append(ids, NewEntityID(idx, p.generations[idx]))
	}
	return ids
}
