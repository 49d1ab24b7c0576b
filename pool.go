package parahash

import (
	"reflect"
	"sync"
)

// entryPool provides New/Retire for pooled entry storage, plus a pool
// lifetime flag governing teardown behavior. It backs the Indirect entry
// representation; Direct entries never allocate through it, since their
// payload lives inline in the bucket-list node.
type entryPool[E any] struct {
	r       *Reclaimer
	private bool // true if this pool's Reclaimer is privately owned
	free    sync.Pool
}

func newEntryPool[E any](r *Reclaimer, private bool) *entryPool[E] {
	p := &entryPool[E]{r: r, private: private}
	p.free.New = func() any { return new(E) }
	return p
}

// New allocates (or reuses, once reclamation has confirmed safety) storage
// for an entry and copies v into it.
func (p *entryPool[E]) New(v E) *E {
	e := p.free.Get().(*E)
	*e = v
	return e
}

// Retire hands e to the reclaimer. Once no protected reader can still
// observe the bucket-list node that pointed at e, its memory is zeroed
// (dropping any references it held, so the garbage collector is not kept
// from reclaiming whatever e pointed to) and returned to the free pool for
// reuse.
func (p *entryPool[E]) Retire(e *E) {
	p.r.Retire(func() {
		var zero E
		*e = zero
		p.free.Put(e)
	})
}

// Close drains the reclaimer so every entry retired against a private
// pool is freed before the pool itself is discarded. It is a no-op on
// the shared default pool, which has process lifetime.
func (p *entryPool[E]) Close() {
	if p.private {
		p.r.Flush()
	}
}

var defaultReclaimers sync.Map // reflect.Type -> *Reclaimer

// defaultReclaimer returns the process-wide Reclaimer shared by every
// table instantiated without a private pool, with process lifetime. One
// Reclaimer is created per distinct entry type E, lazily, the first time
// that type is needed.
func defaultReclaimer[E any]() *Reclaimer {
	key := reflect.TypeFor[E]()
	if v, ok := defaultReclaimers.Load(key); ok {
		return v.(*Reclaimer)
	}
	v, _ := defaultReclaimers.LoadOrStore(key, NewReclaimer())
	return v.(*Reclaimer)
}
