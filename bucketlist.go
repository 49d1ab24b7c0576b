package parahash

// bucketNode is an immutable, singly-linked bucket-list node: a tuple of
// (entry, next) where next is another node or nil. A node is never
// mutated after construction; every list-changing operation in this file
// produces new nodes for the changed prefix and reuses (shares) the
// unchanged suffix verbatim.
//
// Node memory itself needs no epoch bookkeeping in Go: once a node is
// unlinked from a bucket's head, it simply becomes unreachable garbage to
// any goroutine that is not still holding an older Head value it read
// earlier — and if a goroutine IS still holding that older value, the
// normal Go memory model keeps the whole suffix chain it points into
// alive for exactly as long as that goroutine needs it. A reclaimer in a
// non-garbage-collected language would have to provide that guarantee by
// hand; Go's own GC already provides it for free for these nodes. Epoch
// reclamation in this package is reserved for what Go's GC cannot do on
// its own: safely reusing pooled Indirect-entry storage (see pool.go,
// entry.go) without corrupting a concurrent reader that is still
// dereferencing a stale entry pointer.
type bucketNode[K comparable, V any] struct {
	e    entry[K, V]
	next *bucketNode[K, V]
}

// listLookup performs a linear scan for k. Fingerprint comparison (when
// repr is Indirect) short-circuits before any pointer dereference.
func listLookup[K comparable, V any](head *bucketNode[K, V], k K, fp uint16, repr Representation, eq Equal[K]) (V, bool) {
	for n := head; n != nil; n = n.next {
		if n.e.matchesFingerprint(repr, fp) && eq(n.e.key, k) {
			return n.e.value(repr), true
		}
	}
	var zero V
	return zero, false
}

// listInsert implements the functional list's insert: if k already
// matches some node, the list is returned unmodified and the old entry's
// value is reported; otherwise a single new node is prepended. listInsert
// is pure -- it never retires anything. fresh is the entry backing the
// new node (meaningful only when !existed): the caller owns its fate and
// must retire it if the node it backs never gets published.
func listInsert[K comparable, V any](
	head *bucketNode[K, V],
	k K, fp uint16, repr Representation, eq Equal[K],
	pool *entryPool[pair[K, V]],
	v V,
) (newHead *bucketNode[K, V], old V, existed bool, fresh entry[K, V]) {
	if old, existed = listLookup(head, k, fp, repr, eq); existed {
		return head, old, true, entry[K, V]{}
	}
	if repr == Direct {
		fresh = makeDirectEntry(k, v)
	} else {
		fresh = makeIndirectEntry(pool, k, v, fp)
	}
	return &bucketNode[K, V]{e: fresh, next: head}, old, false, fresh
}

// listUpsert implements the functional list's upsert: updateFn receives
// the prior value (ok=false if absent) and returns the value to store.
// The matched node, if any, is replaced by rebuilding the prefix up to
// and including it; the unmatched suffix is shared structurally, never
// copied. listUpsert is pure -- it never retires anything: fresh is the
// entry backing the new node and must be retired by the caller if that
// node never gets published; superseded is the replaced node's old
// entry (meaningful only when existed) and must be retired by the
// caller only once the new node actually replaces it.
func listUpsert[K comparable, V any](
	head *bucketNode[K, V],
	k K, fp uint16, repr Representation, eq Equal[K],
	pool *entryPool[pair[K, V]],
	updateFn func(old V, ok bool) V,
) (newHead *bucketNode[K, V], old V, existed bool, fresh entry[K, V], superseded entry[K, V]) {
	prefix, matched, suffix := splitAtMatch(head, k, fp, repr, eq)

	var zero V
	oldVal := zero
	if matched != nil {
		oldVal = matched.e.value(repr)
	}
	newVal := updateFn(oldVal, matched != nil)

	if repr == Direct {
		fresh = makeDirectEntry(k, newVal)
	} else {
		fresh = makeIndirectEntry(pool, k, newVal, fp)
	}
	newHead = &bucketNode[K, V]{e: fresh, next: suffix}
	newHead = rebuildPrefix(prefix, newHead)

	if matched != nil {
		return newHead, oldVal, true, fresh, matched.e
	}
	return newHead, zero, false, fresh, entry[K, V]{}
}

// listRemove implements the functional list's remove: the matched node
// is omitted, the prefix before it rebuilt, and the suffix after it
// shared. listRemove is pure -- it never retires anything: matchedEntry
// is the removed node's entry and must be retired by the caller only
// once newHead actually replaces the published list (the old list, if
// still published, keeps matchedEntry reachable to other readers).
func listRemove[K comparable, V any](
	head *bucketNode[K, V],
	k K, fp uint16, repr Representation, eq Equal[K],
) (newHead *bucketNode[K, V], removed V, ok bool, matchedEntry entry[K, V]) {
	prefix, matched, suffix := splitAtMatch(head, k, fp, repr, eq)
	if matched == nil {
		var zero V
		return head, zero, false, entry[K, V]{}
	}
	newHead = rebuildPrefix(prefix, suffix)
	return newHead, matched.e.value(repr), true, matched.e
}

// splitAtMatch scans head for k and returns the nodes strictly before the
// match (in list order, head first) as prefix, the matching node itself
// (nil if absent), and the remaining unmatched suffix (shared, not
// copied).
func splitAtMatch[K comparable, V any](head *bucketNode[K, V], k K, fp uint16, repr Representation, eq Equal[K]) (prefix []*bucketNode[K, V], matched *bucketNode[K, V], suffix *bucketNode[K, V]) {
	for n := head; n != nil; n = n.next {
		if n.e.matchesFingerprint(repr, fp) && eq(n.e.key, k) {
			return prefix, n, n.next
		}
		prefix = append(prefix, n)
	}
	return prefix, nil, nil
}

// rebuildPrefix allocates fresh nodes for every entry in prefix (innermost,
// i.e. closest-to-match, first) on top of tail, restoring list order.
func rebuildPrefix[K comparable, V any](prefix []*bucketNode[K, V], tail *bucketNode[K, V]) *bucketNode[K, V] {
	for i := len(prefix) - 1; i >= 0; i-- {
		tail = &bucketNode[K, V]{e: prefix[i].e, next: tail}
	}
	return tail
}

// listLen reports the chain length, used by the population estimator's
// sampled per-bucket length check to decide when to resize.
func listLen[K comparable, V any](head *bucketNode[K, V]) int {
	n := 0
	for c := head; c != nil; c = c.next {
		n++
	}
	return n
}

// listPartition splits a bucket's chain by the newly significant hash bit
// during migration into two new lists. hashOf recomputes each entry's
// mixed hash (the node itself does not retain it).
func listPartition[K comparable, V any](head *bucketNode[K, V], bit uint64, hashOf func(K) uint64) (zero, one *bucketNode[K, V]) {
	// Walk head-to-tail collecting each destination's nodes in source
	// order, then build each list back to front with rebuildPrefix, so
	// both destination lists keep the source's relative order.
	var zeros, ones []*bucketNode[K, V]
	for n := head; n != nil; n = n.next {
		if hashOf(n.e.key)&bit == 0 {
			zeros = append(zeros, n)
		} else {
			ones = append(ones, n)
		}
	}
	zero = rebuildPrefix(zeros, nil)
	one = rebuildPrefix(ones, nil)
	return zero, one
}
