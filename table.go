package parahash

import (
	"sync/atomic"
)

// defaultMinTableLen is the smallest bucket array parahash ever allocates;
// a table constructed with a smaller capacity hint is rounded up to it.
const defaultMinTableLen = 16

// defaultLoadFactor is the fraction of table_size the population
// estimator must cross, on insertion, before a resize is triggered.
const defaultLoadFactor = 0.75

// resizeSampleThreshold is the cheap sampling strategy for the resize
// trigger: once a bucket chain reaches this length, the inserting
// goroutine consults the sharded population estimator to decide whether
// to grow the table. Avoids summing every shard on every single insert.
const resizeSampleThreshold = 4

// maxSizeShards bounds the sharded population-estimator array so it never
// grows unreasonably large on huge tables; kept a power of two so bucket
// index -> shard mapping is a cheap mask.
const maxSizeShards = 128

// counterStripe is one shard of the population estimator. Padding keeps
// independent shards off the same cache line to avoid false sharing
// under concurrent increments.
type counterStripe struct {
	c atomic.Int64
	//lint:ignore U1000 prevents false sharing between stripes
	pad [CacheLineSize - 8]byte
}

// rhTable is one generation of the table array. A MapOf/SetOf always
// mutates through the current generation; growth replaces it wholesale
// with a fresh, larger rhTable rather than mutating this one in place --
// the table array is append-only at the structural level.
type rhTable[K comparable, V any] struct {
	_ noCopy

	buckets []atomic.Pointer[bucketNode[K, V]]
	mask    uint64

	size     []counterStripe
	sizeMask uint64

	// successor is published exactly once, by the single goroutine whose
	// insert trips the resize threshold (a CAS on this slot settles the
	// race). A non-nil successor is the signal that this table's buckets
	// may be Locked or Forwarded.
	successor atomic.Pointer[rhTable[K, V]]

	// forwardedCount tracks how many of this table's buckets have
	// reached the Forwarded state. Once it equals len(buckets), every
	// bucket's contents have been migrated to successor and the table
	// is ready to be dropped as the map's root generation.
	forwardedCount atomic.Int64

	// locked and forwarded are process-unique sentinel node pointers:
	// their addresses, not their (never-read) contents, encode the
	// Locked and Forwarded bucket-cell states. This is the familiar
	// sentinel-pointer trick used for tombstones and expunged-entry
	// markers in other concurrent linked structures, extended here to a
	// four-state cell instead of a two-state present/tombstone cell, and
	// chosen specifically because Go's garbage collector does not permit
	// stealing bits from a live pointer.
	locked    *bucketNode[K, V]
	forwarded *bucketNode[K, V]
}

func newTable[K comparable, V any](n int) *rhTable[K, V] {
	n = nextPow2(max(n, defaultMinTableLen))
	shards := nextPow2(min(n, maxSizeShards))
	return &rhTable[K, V]{
		buckets:   make([]atomic.Pointer[bucketNode[K, V]], n),
		mask:      uint64(n - 1),
		size:      make([]counterStripe, shards),
		sizeMask:  uint64(shards - 1),
		locked:    &bucketNode[K, V]{},
		forwarded: &bucketNode[K, V]{},
	}
}

func (t *rhTable[K, V]) bucketIndex(hash uint64) uint64 { return hash & t.mask }

func (t *rhTable[K, V]) addSize(idx uint64, delta int) {
	t.size[idx&t.sizeMask].c.Add(int64(delta))
}

func (t *rhTable[K, V]) sumSize() int64 {
	var sum int64
	for i := range t.size {
		sum += t.size[i].c.Load()
	}
	return sum
}

// MapOf is a growable, lock-free concurrent map. Point operations --
// Find, Insert, Upsert, Remove -- are linearizable; Size is best-effort
// only.
//
// The zero value is not usable; construct with NewMap or NewSet (the
// latter via MapOf[K, struct{}]).
type MapOf[K comparable, V any] struct {
	_ noCopy

	table atomic.Pointer[rhTable[K, V]]

	hasher      Hasher[K]
	avalanching bool
	eq          Equal[K]

	repr Representation
	pool *entryPool[pair[K, V]] // nil when repr == Direct

	minTableLen int
	loadFactor  float64
}

// MapConfig collects construction-time options, applied by functional
// options.
type MapConfig[K comparable, V any] struct {
	capacity    int
	hasher      Hasher[K]
	avalanching bool
	eq          Equal[K]
	repr        Representation
	privatePool bool
}

// MapOption configures a MapOf or SetOf at construction.
type MapOption[K comparable, V any] func(*MapConfig[K, V])

// WithCapacity sizes the initial bucket array to n buckets, rounded up to
// a power of two and to at least defaultMinTableLen.
func WithCapacity[K comparable, V any](n int) MapOption[K, V] {
	return func(c *MapConfig[K, V]) { c.capacity = n }
}

// WithHasher overrides the default hash/maphash.Comparable-based hasher.
// h is remixed through avalancheMix64 before use; use
// WithAvalanchingHasher instead if h's own output already avalanches.
func WithHasher[K comparable, V any](h Hasher[K]) MapOption[K, V] {
	return func(c *MapConfig[K, V]) { c.hasher = h }
}

// WithAvalanchingHasher declares that h's output already has good bit
// diffusion across its full width, so the table uses it verbatim
// instead of remixing it.
func WithAvalanchingHasher[K comparable, V any](h Hasher[K]) MapOption[K, V] {
	return func(c *MapConfig[K, V]) {
		c.hasher = h
		c.avalanching = true
	}
}

// WithEqual overrides the default == comparison. Must stay consistent
// with whatever Hasher is in effect.
func WithEqual[K comparable, V any](eq Equal[K]) MapOption[K, V] {
	return func(c *MapConfig[K, V]) { c.eq = eq }
}

// WithDirect selects the Direct entry representation. Default unless
// WithIndirect is given.
func WithDirect[K comparable, V any]() MapOption[K, V] {
	return func(c *MapConfig[K, V]) { c.repr = Direct }
}

// WithIndirect selects the Indirect entry representation, appropriate
// for large or non-trivially-copyable values.
func WithIndirect[K comparable, V any]() MapOption[K, V] {
	return func(c *MapConfig[K, V]) { c.repr = Indirect }
}

// WithPrivatePool gives an Indirect-representation map its own Reclaimer
// instead of the process-wide default. Call Close when the map is no
// longer needed to drain it promptly.
func WithPrivatePool[K comparable, V any]() MapOption[K, V] {
	return func(c *MapConfig[K, V]) { c.privatePool = true }
}

// NewMap constructs an empty MapOf. With no options it holds Direct
// entries, hashes with hash/maphash.Comparable, compares keys with ==, and
// starts at defaultMinTableLen buckets.
func NewMap[K comparable, V any](opts ...MapOption[K, V]) *MapOf[K, V] {
	c := &MapConfig[K, V]{capacity: defaultMinTableLen, repr: Direct}
	for _, o := range opts {
		o(c)
	}

	m := &MapOf[K, V]{
		hasher:      c.hasher,
		avalanching: c.avalanching,
		eq:          c.eq,
		repr:        c.repr,
		minTableLen: nextPow2(max(c.capacity, defaultMinTableLen)),
		loadFactor:  defaultLoadFactor,
	}
	if m.hasher == nil {
		m.hasher = defaultHasher[K]()
	}
	if m.eq == nil {
		m.eq = defaultEqual[K]
	}
	if m.repr == Indirect {
		var r *Reclaimer
		if c.privatePool {
			r = NewReclaimer()
		} else {
			r = defaultReclaimer[pair[K, V]]()
		}
		m.pool = newEntryPool[pair[K, V]](r, c.privatePool)
	}
	m.table.Store(newTable[K, V](m.minTableLen))
	return m
}

// Close drains this map's private entry pool, if it has one. It is a
// no-op for Direct maps and for Indirect maps using the shared
// process-wide pool.
func (m *MapOf[K, V]) Close() {
	if m.pool != nil {
		m.pool.Close()
	}
}

func (m *MapOf[K, V]) fingerprintedKey(k K) fingerprintedKey[K] {
	return fingerprintedKey[K]{key: k, hash: mixedHash(m.hasher, m.avalanching, k)}
}

// guard acquires epoch protection when this map has a pool to protect
// (Indirect representation). Direct maps have nothing pooled, so every
// reachable pointer is an ordinary Go value kept alive by the garbage
// collector and no protection is needed (see bucketlist.go's design
// note on why (R) is reserved for pooled storage, not list nodes).
func (m *MapOf[K, V]) guard() (Guard, bool) {
	if m.pool == nil {
		return Guard{}, false
	}
	return m.pool.r.Acquire(), true
}

// resolveTable implements the per-bucket migration protocol: starting
// from t, it repeatedly checks whether the
// bucket hash routes to has an active successor and, if so, helps that
// bucket's migration to completion before following hash into the
// successor generation — looping in case the successor itself has
// already grown a further successor by the time this goroutine catches
// up. It returns the table generation and bucket index an operation
// should actually operate on: a generation with no active successor for
// that bucket.
func (m *MapOf[K, V]) resolveTable(t *rhTable[K, V], hash uint64) (*rhTable[K, V], uint64) {
	hashOf := func(k K) uint64 { return mixedHash(m.hasher, m.avalanching, k) }
	idx := t.bucketIndex(hash)
	for {
		succ := t.successor.Load()
		if succ == nil {
			return t, idx
		}
		migrateBucket(t, idx, succ, hashOf)
		if t.forwardedCount.Load() == int64(len(t.buckets)) {
			m.table.CompareAndSwap(t, succ)
		}
		t = succ
		idx = t.bucketIndex(hash)
	}
}

// find performs a lone acquire-load of the bucket cell followed by a
// linear scan, with no retry beyond helping migration along when the
// bucket is mid-resize.
func (m *MapOf[K, V]) find(fk fingerprintedKey[K]) (V, bool) {
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
			return listLookup(cell, fk.key, fk.fingerprint(), m.repr, m.eq)
		}
	}
}

// insertEntry, via the bucket list's insert, prepends a node and CASes
// it in on a fresh key; on collision it reports the existing value
// without touching the table. Retries the whole read-compute-CAS cycle
// on CAS failure or on a migration race.
func (m *MapOf[K, V]) insertEntry(fk fingerprintedKey[K], v V) (V, bool) {
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
			newHead, old, existed, fresh := listInsert(cell, fk.key, fk.fingerprint(), m.repr, m.eq, m.pool, v)
			if existed {
				return old, true
			}
			if rt.buckets[idx].CompareAndSwap(cell, newHead) {
				rt.addSize(idx, 1)
				m.maybeResize(rt, idx)
				var zero V
				return zero, false
			}
			// fresh never got published; it is safe to retire right away,
			// unlike an entry a prior CAS actually committed.
			retireEntry(m.repr, m.pool, fresh)
			t = rt
			continue
		}
	}
}

// upsertEntry, via the bucket list's upsert, always runs the
// caller-supplied updateFn and always publishes its result, whether or
// not the key previously existed.
func (m *MapOf[K, V]) upsertEntry(fk fingerprintedKey[K], updateFn func(old V, ok bool) V) (V, bool) {
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
			newHead, old, existed, fresh, superseded := listUpsert(cell, fk.key, fk.fingerprint(), m.repr, m.eq, m.pool, updateFn)
			if !rt.buckets[idx].CompareAndSwap(cell, newHead) {
				// fresh never got published; the old list (with superseded
				// still in it, if existed) is still the live one.
				retireEntry(m.repr, m.pool, fresh)
				t = rt
				continue
			}
			if existed {
				retireEntry(m.repr, m.pool, superseded)
			} else {
				rt.addSize(idx, 1)
				m.maybeResize(rt, idx)
			}
			return old, existed
		}
	}
}

// removeEntry, via the bucket list's remove, short-circuits on an
// absent key before any CAS attempt: removing from an empty table
// returns (zero, false) without allocating.
func (m *MapOf[K, V]) removeEntry(fk fingerprintedKey[K]) (V, bool) {
	return m.removeEntryFn(fk, nil)
}

// removeEntryFn is removeEntry's general form: when f is non-nil, it is
// invoked with the removed value while the calling goroutine's epoch
// guard is still held, before the guard is released.
func (m *MapOf[K, V]) removeEntryFn(fk fingerprintedKey[K], f func(v V, ok bool)) (V, bool) {
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
			newHead, removed, ok, matched := listRemove(cell, fk.key, fk.fingerprint(), m.repr, m.eq)
			if !ok {
				if f != nil {
					f(removed, false)
				}
				return removed, false
			}
			if rt.buckets[idx].CompareAndSwap(cell, newHead) {
				rt.addSize(idx, -1)
				if f != nil {
					f(removed, true)
				}
				retireEntry(m.repr, m.pool, matched)
				return removed, true
			}
			t = rt
			continue
		}
	}
}
