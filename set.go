package parahash

// SetOf is a concurrent set: the same table, bucket list, and
// reclamation machinery as MapOf, with value = key. It is a thin wrapper
// over MapOf[K, struct{}]; only the surface differs.
type SetOf[K comparable] struct {
	m *MapOf[K, struct{}]
}

// NewSet constructs an empty SetOf. Options accept the same functional
// knobs as NewMap (WithCapacity, WithHasher, WithEqual, WithDirect /
// WithIndirect, WithPrivatePool), reinterpreted for the key type K.
func NewSet[K comparable](opts ...MapOption[K, struct{}]) *SetOf[K] {
	return &SetOf[K]{m: NewMap[K, struct{}](opts...)}
}

// Close drains this set's private entry pool, if it has one.
func (s *SetOf[K]) Close() { s.m.Close() }

// Contains reports whether k is a member of the set.
func (s *SetOf[K]) Contains(k K) bool { return s.m.Contains(k) }

// Count returns 1 if k is a member, 0 otherwise.
func (s *SetOf[K]) Count(k K) int { return s.m.Count(k) }

// Add inserts k, returning true iff it was absent -- the natural surface
// for a set, which has no value to report back on collision.
func (s *SetOf[K]) Add(k K) bool { return s.m.InsertIfAbsent(k, struct{}{}) }

// Remove removes k, returning true iff it was present.
func (s *SetOf[K]) Remove(k K) bool {
	_, ok := s.m.Remove(k)
	return ok
}

// Size returns the best-effort population estimate.
func (s *SetOf[K]) Size() int { return s.m.Size() }

// Clear removes every member.
func (s *SetOf[K]) Clear() { s.m.Clear() }

// Range visits every member of a snapshot of the set, in the same
// legal-snapshot sense as MapOf.Range. f returning false stops early.
func (s *SetOf[K]) Range(f func(k K) bool) {
	s.m.Range(func(k K, _ struct{}) bool { return f(k) })
}
