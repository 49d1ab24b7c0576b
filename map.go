package parahash

// Find is a linearizable lookup that never blocks beyond a spin on a
// bucket mid migration. It allocates nothing unless the bucket it needs
// still has to be migrated to a successor table, in which case it helps
// with that migration first, which builds the successor's new nodes.
func (m *MapOf[K, V]) Find(k K) (V, bool) {
	return m.find(m.fingerprintedKey(k))
}

// Contains is a thin wrap over Find.
func (m *MapOf[K, V]) Contains(k K) bool {
	_, ok := m.find(m.fingerprintedKey(k))
	return ok
}

// Count returns 1 if k is present, 0 otherwise -- this container never
// holds duplicate keys, so Count is only ever 0 or 1.
func (m *MapOf[K, V]) Count(k K) int {
	if m.Contains(k) {
		return 1
	}
	return 0
}

// FindFn invokes f with the found value under the same epoch protection
// that backs the lookup, instead of copying the value out first. f must
// not retain references derived from v past the call.
func (m *MapOf[K, V]) FindFn(k K, f func(v V, ok bool)) {
	fk := m.fingerprintedKey(k)
	if g, ok := m.guard(); ok {
		defer g.Release()
	}
	t := m.table.Load()
	for {
		rt, idx := m.resolveTable(t, fk.hash)
		cell := rt.buckets[idx].Load()
		switch cell {
		case rt.locked:
			spinUntilUnlocked(rt, idx)
			t = rt
			continue
		case rt.forwarded:
			t = rt
			continue
		default:
			v, ok := listLookup(cell, fk.key, fk.fingerprint(), m.repr, m.eq)
			f(v, ok)
			return
		}
	}
}

// Insert returns the zero value and false on success (absent ->
// inserted), or the prior value and true on collision (present ->
// unmodified).
func (m *MapOf[K, V]) Insert(k K, v V) (V, bool) {
	return m.insertEntry(m.fingerprintedKey(k), v)
}

// InsertIfAbsent returns true iff the key was absent and is now
// inserted.
func (m *MapOf[K, V]) InsertIfAbsent(k K, v V) bool {
	_, existed := m.Insert(k, v)
	return !existed
}

// Upsert runs f and its result always replaces whatever was there,
// receiving (old, false) on a fresh key. Returns the prior value and
// whether one existed.
func (m *MapOf[K, V]) Upsert(k K, f func(old V, ok bool) V) (V, bool) {
	return m.upsertEntry(m.fingerprintedKey(k), f)
}

// Remove returns the removed value and true, or the zero value and
// false if the key was absent.
func (m *MapOf[K, V]) Remove(k K) (V, bool) {
	return m.removeEntry(m.fingerprintedKey(k))
}

// RemoveFn behaves like Remove but hands the removed value (if any) to
// f under the same epoch protection backing the removal, instead of
// copying the value out first. f must not retain references derived
// from v past the call.
func (m *MapOf[K, V]) RemoveFn(k K, f func(v V, ok bool)) {
	m.removeEntryFn(m.fingerprintedKey(k), f)
}

// Size counts the entries by walking the live buckets exactly as Range
// does, following Forwarded buckets into successor tables. It is NOT
// linearizable with point operations and may double-count or miss
// entries in flight; at quiescence it is exact. The sharded population
// counters only feed the resize trigger.
func (m *MapOf[K, V]) Size() int {
	n := 0
	m.Range(func(K, V) bool {
		n++
		return true
	})
	return n
}

// Clear atomically replaces the root table with a fresh, empty one of
// the map's minimum size. Any mutation already in flight against the
// old table completes harmlessly against a table nothing can reach
// anymore; Clear makes no attempt to linearize with concurrent
// operations, consistent with Size's own best-effort posture.
func (m *MapOf[K, V]) Clear() {
	m.table.Store(newTable[K, V](m.minTableLen))
}

// Range observes a legal snapshot of the root table as of the call; it
// makes no promise of stability across concurrent modification. f
// returning false stops the walk early.
func (m *MapOf[K, V]) Range(f func(k K, v V) bool) {
	if g, ok := m.guard(); ok {
		defer g.Release()
	}
	t := m.table.Load()
	for idx := range t.buckets {
		if !rangeBucket(t, uint64(idx), m.repr, f) {
			return
		}
	}
}

// rangeBucket walks one bucket of t, following Forwarded into successor
// generations (both halves of the partition) so a snapshot taken mid
// resize still visits every key exactly once.
func rangeBucket[K comparable, V any](t *rhTable[K, V], idx uint64, repr Representation, f func(K, V) bool) bool {
	for i := 0; ; i++ {
		cell := t.buckets[idx].Load()
		switch cell {
		case t.locked:
			spinWait(i)
			continue
		case t.forwarded:
			succ := t.successor.Load()
			bit := uint64(len(t.buckets))
			if !rangeBucket(succ, idx, repr, f) {
				return false
			}
			return rangeBucket(succ, idx|bit, repr, f)
		default:
			for n := cell; n != nil; n = n.next {
				if !f(n.e.key, n.e.value(repr)) {
					return false
				}
			}
			return true
		}
	}
}
