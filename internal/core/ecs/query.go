package ecs

// Each2 iterates over entities that have both component A and B, in the
// dense order of the smaller store.
func Each2[A, B any](sa *Store[A], sb *Store[B], fn func(EntityID, *A, *B)) {
	if sa.Len() <= sb.Len() {
		for i := 0; i < sa.Len(); i++ {
			id, a := sa.at(i)
			if b, ok := sb.get(id); ok {
				fn(id, a, b)
			}
		}
		return
	}
	for i := 0; i < sb.Len(); i++ {
		id, b := sb.at(i)
		if a, ok := sa.get(id); ok {
			fn(id, a, b)
		}
	}
}

// Each3 iterates over entities that have components A, B, and C, driving
// from store A's dense order. A is expected to be the narrowest store.
func Each3[A, B, C any](sa *Store[A], sb *Store[B], sc *Store[C], fn func(EntityID, *A, *B, *C)) {
	for i := 0; i < sa.Len(); i++ {
		id, a := sa.at(i)
		b, ok := sb.get(id)
		if !ok {
			continue
		}
		c, ok := sc.get(id)
		if !ok {
			continue
		}
		fn(id, a, b, c)
	}
}
