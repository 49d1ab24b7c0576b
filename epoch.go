package parahash

import (
	"sync"
	"sync/atomic"
)

// sentinelIdle marks an epochSlot whose owning goroutine is not currently
// inside a protected region. It is chosen as the maximum uint64 so that an
// idle slot never participates in the minimum-announced-epoch computation
// in tryAdvance.
const sentinelIdle = ^uint64(0)

// advanceEvery controls how many Retire calls accumulate before one of the
// retiring goroutines attempts to advance the epoch and sweep the pending
// list: the epoch advances opportunistically, not on every single retire.
// Kept small enough that memory does not build up under light load, large
// enough that healthy workloads do not pay the scan cost too often.
const advanceEvery = 64

// epochSlot is one goroutine's epoch announcement. It is cache-line padded
// so that independent goroutines spinning through Acquire/Release never
// bounce the same cache line, mirroring the padded counter/bucket stripe
// discipline used elsewhere in this package for the same reason.
type epochSlot struct {
	_ noCopy
	//lint:ignore U1000 prevents false sharing between slots
	epoch atomic.Uint64
	pad   [CacheLineSize - 8]byte
}

// Reclaimer implements epoch-based reclamation: it defers the actual free
// of retired objects until no protected reader could still observe them.
// A Reclaimer may be process-wide (the default, shared pool) or private
// to a single table, with its lifetime bound to that table.
type Reclaimer struct {
	_ noCopy

	epoch atomic.Uint64
	slots atomic.Pointer[[]*epochSlot] // append-only registry, grown via CAS
	pool  sync.Pool                    // *epochSlot freelist for slot reuse

	retireMu sync.Mutex
	pending  []retiredObj
	count    atomic.Uint64
}

type retiredObj struct {
	epoch uint64
	free  func()
}

// NewReclaimer constructs a private Reclaimer. Use it when a table's
// lifetime should bound its entries' lifetime; otherwise share the
// process-wide default via defaultReclaimer.
func NewReclaimer() *Reclaimer {
	r := &Reclaimer{}
	r.pool.New = func() any {
		s := &epochSlot{}
		s.epoch.Store(sentinelIdle)
		r.register(s)
		return s
	}
	return r
}

// Guard is a scoped declaration that the current goroutine may be reading
// shared structures. Any pointer loaded while holding a Guard remains
// safe to dereference until Release; outside a Guard no freshly loaded
// pointer may be dereferenced.
type Guard struct {
	_    noCopy
	r    *Reclaimer
	slot *epochSlot
}

// Acquire begins a protected region. The caller must call Release exactly
// once, typically via defer, before returning.
func (r *Reclaimer) Acquire() Guard {
	s := r.checkout()
	// Announce before any protected load: sync/atomic in Go already gives
	// every atomic operation sequentially-consistent ordering, stronger
	// than plain acquire/release, so the announcement is visible to
	// tryAdvance before this goroutine performs any subsequent atomic
	// load of table state.
	s.epoch.Store(r.epoch.Load())
	return Guard{r: r, slot: s}
}

// Release ends a protected region, making the goroutine's previously
// announced epoch invisible to future reclamation decisions.
func (g Guard) Release() {
	g.slot.epoch.Store(sentinelIdle)
	g.r.pool.Put(g.slot)
}

func (r *Reclaimer) checkout() *epochSlot {
	return r.pool.Get().(*epochSlot)
}

// register adds a freshly allocated slot to the append-only registry so
// tryAdvance's scan can see it on every future pass. Only called once per
// slot, from pool.New, so it never needs to guard against duplicates.
func (r *Reclaimer) register(s *epochSlot) {
	for {
		old := r.slots.Load()
		var oldSlice []*epochSlot
		if old != nil {
			oldSlice = *old
		}
		next := make([]*epochSlot, len(oldSlice)+1)
		copy(next, oldSlice)
		next[len(oldSlice)] = s
		if r.slots.CompareAndSwap(old, &next) {
			return
		}
	}
}

// Retire defers free until every guard that could have observed the
// retiring object's predecessor state has released; the call itself never
// blocks. free is invoked at most once, from whichever goroutine happens
// to trip the opportunistic sweep.
func (r *Reclaimer) Retire(free func()) {
	r.retireMu.Lock()
	r.pending = append(r.pending, retiredObj{epoch: r.epoch.Load(), free: free})
	r.retireMu.Unlock()

	if r.count.Add(1)%advanceEvery == 0 {
		r.tryAdvance()
	}
}

// tryAdvance frees any retired object whose retire-epoch is less than the
// minimum announced epoch among all live goroutines.
func (r *Reclaimer) tryAdvance() {
	r.epoch.Add(1)

	minAnnounced := sentinelIdle
	if slots := r.slots.Load(); slots != nil {
		for _, s := range *slots {
			if e := s.epoch.Load(); e != sentinelIdle && e < minAnnounced {
				minAnnounced = e
			}
		}
	}

	r.retireMu.Lock()
	kept := r.pending[:0:0]
	var toFree []func()
	for _, item := range r.pending {
		if item.epoch < minAnnounced {
			toFree = append(toFree, item.free)
		} else {
			kept = append(kept, item)
		}
	}
	r.pending = kept
	r.retireMu.Unlock()

	for _, free := range toFree {
		free()
	}
}

// Flush forces every still-reclaimable retired object to be freed right
// now, regardless of the opportunistic threshold. Used when a private
// pool's owning table is torn down, so it drains and frees all entries
// before the pool itself is discarded.
func (r *Reclaimer) Flush() {
	r.tryAdvance()
}
