package parahash

// spinUntilUnlocked waits for a Locked bucket to leave that state, for a
// caller that only needs the bucket to stop being Locked, not to perform
// the migration itself (it will always be some other goroutine's CAS
// that flips Head to Locked, so there is nothing to help with beyond
// waiting).
func spinUntilUnlocked[K comparable, V any](t *rhTable[K, V], idx uint64) {
	for i := 0; t.buckets[idx].Load() == t.locked; i++ {
		spinWait(i)
	}
}

// migrateBucket drives a single old-table bucket through the migration
// state machine until it reaches Forwarded, then returns. It is safe
// to call on a bucket that has already reached Forwarded (a no-op) and
// safe to call concurrently from multiple goroutines racing to migrate
// the same bucket (exactly one wins each CAS; the rest loop and observe
// the winner's result).
//
//	Head(ptr)  -- CAS to Locked  --> partition, publish into succ, store Forwarded
//	Empty      -- CAS to Forwarded
//	Locked     -- wait for the winner to finish
//	Forwarded  -- already done
func migrateBucket[K comparable, V any](t *rhTable[K, V], idx uint64, succ *rhTable[K, V], hashOf func(K) uint64) {
	for {
		cell := t.buckets[idx].Load()
		switch cell {
		case t.forwarded:
			return
		case t.locked:
			spinUntilUnlocked(t, idx)
			continue
		case nil:
			if t.buckets[idx].CompareAndSwap(nil, t.forwarded) {
				t.forwardedCount.Add(1)
				return
			}
		default:
			if !t.buckets[idx].CompareAndSwap(cell, t.locked) {
				continue
			}
			bit := uint64(len(t.buckets))
			zeroList, oneList := listPartition(cell, bit, hashOf)
			zeroIdx, oneIdx := idx, idx|bit
			succ.buckets[zeroIdx].Store(zeroList)
			succ.buckets[oneIdx].Store(oneList)
			succ.addSize(zeroIdx, listLen(zeroList))
			succ.addSize(oneIdx, listLen(oneList))
			// Release: once Forwarded is visible, any reader that
			// observes it is guaranteed to also observe the writes
			// into succ above -- Go's sync/atomic gives every one of
			// these operations sequential consistency, stronger than
			// plain release/acquire.
			t.buckets[idx].Store(t.forwarded)
			t.forwardedCount.Add(1)
			return
		}
	}
}

// maybeResize fires the resize trigger once the population estimator
// crosses loadFactor*table_size on insertion. idx is the bucket the
// triggering insert just landed in; its chain length is consulted first
// as a cheap sample, and the sharded counters are only summed once that
// sample looks suspicious.
func (m *MapOf[K, V]) maybeResize(t *rhTable[K, V], idx uint64) {
	head := t.buckets[idx].Load()
	if head == nil || head == t.locked || head == t.forwarded {
		return
	}
	if listLen(head) < resizeSampleThreshold {
		return
	}
	if t.successor.Load() != nil {
		return
	}
	if float64(t.sumSize()) < m.loadFactor*float64(len(t.buckets)) {
		return
	}
	nt := newTable[K, V](len(t.buckets) * 2)
	t.successor.CompareAndSwap(nil, nt)
}
