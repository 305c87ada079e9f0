package ecs

// Removable is implemented by all component stores so the Registry can
// bulk-remove an entity's data from every store on destroy.
type Removable interface {
	Remove(id EntityID)
}

// Store is a generic dense component store. Components live in a flat slice
// iterated in insertion order, which keeps joins and system sweeps
// deterministic within a tick (map iteration would not be). Removal swaps
// with the last element, so order is only guaranteed stable between
// structural changes; systems must not cache positions across ticks.
//
// All lookups are generation-checked against the owning pool: a stale
// EntityID never resolves to a recycled slot's data.
type Store[T any] struct {
	pool     *EntityPool
	entities []EntityID
	data     []T
	index    map[EntityID]int
}

func NewStore[T any](pool *EntityPool) *Store[T] {
	return &Store[T]{
		pool:     pool,
		entities: make([]EntityID, 0, 256),
		data:     make([]T, 0, 256),
		index:    make(map[EntityID]int, 256),
	}
}

// Add attaches a component to a live entity. Fails with
// ErrDuplicateComponent if one already exists for this type, and with
// ErrStaleReference if the entity is dead or the ID is stale.
func (s *Store[T]) Add(id EntityID, c T) error {
	if !s.pool.Alive(id) {
		return ErrStaleReference
	}
	if _, ok := s.index[id]; ok {
		return ErrDuplicateComponent
	}
	s.index[id] = len(s.entities)
	s.entities = append(s.entities, id)
	s.data = append(s.data, c)
	return nil
}

// Get returns a pointer into the store, valid until the next structural
// change. A stale or dead ID and a live entity without this component both
// yield (nil, false): system sweeps treat the two identically, and the
// boolean keeps the hot path allocation-free. Callers that must tell them
// apart use GetChecked.
func (s *Store[T]) Get(id EntityID) (*T, bool) {
	if !s.pool.Alive(id) {
		return nil, false
	}
	i, ok := s.index[id]
	if !ok {
		return nil, false
	}
	return &s.data[i], true
}

// GetChecked is Get with the failure causes kept apart: ErrStaleReference
// for a dead or stale ID, ErrMissingComponent for a live entity that never
// had (or no longer has) this component.
func (s *Store[T]) GetChecked(id EntityID) (*T, error) {
	if !s.pool.Alive(id) {
		return nil, ErrStaleReference
	}
	i, ok := s.index[id]
	if !ok {
		return nil, ErrMissingComponent
	}
	return &s.data[i], nil
}

func (s *Store[T]) Has(id EntityID) bool {
	if !s.pool.Alive(id) {
		return false
	}
	_, ok := s.index[id]
	return ok
}

// Remove detaches the entity's component. No-op if absent.
func (s *Store[T]) Remove(id EntityID) {
	i, ok := s.index[id]
	if !ok {
		return
	}
	last := len(s.entities) - 1
	if i != last {
		s.entities[i] = s.entities[last]
		s.data[i] = s.data[last]
		s.index[s.entities[i]] = i
	}
	var zero T
	s.data[last] = zero // release references held by the vacated slot
	s.entities = s.entities[:last]
	s.data = s.data[:last]
	delete(s.index, id)
}

func (s *Store[T]) Len() int {
	return len(s.entities)
}

// Each visits all (entity, component) pairs in store order. The callback
// must not add or remove components of this type while iterating.
func (s *Store[T]) Each(fn func(EntityID, *T)) {
	for i := range s.entities {
		fn(s.entities[i], &s.data[i])
	}
}

// at is used by the join helpers to peek by dense index.
func (s *Store[T]) at(i int) (EntityID, *T) {
	return s.entities[i], &s.data[i]
}

func (s *Store[T]) get(id EntityID) (*T, bool) {
	i, ok := s.index[id]
	if !ok {
		return nil, false
	}
	return &s.data[i], true
}
