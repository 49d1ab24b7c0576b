package parahash

import "testing"

func TestEntryPool_CloseIsNoopForSharedPool(t *testing.T) {
	shared := defaultReclaimer[pair[int, int]]()
	pool := newEntryPool[pair[int, int]](shared, false)
	p := pool.New(pair[int, int]{Key: 1, Val: 2})
	pool.Retire(p)
	pool.Close() // must not flush the process-wide reclaimer
}

func TestEntryPool_ClosePrivateDrains(t *testing.T) {
	r := NewReclaimer()
	pool := newEntryPool[pair[int, int]](r, true)
	for i := 0; i < 20; i++ {
		p := pool.New(pair[int, int]{Key: i, Val: i})
		pool.Retire(p)
	}
	pool.Close()
	if got := len(r.pending); got != 0 {
		t.Fatalf("Close on a private pool left %d retired objects unflushed", got)
	}
}

func TestDefaultReclaimer_SharedAcrossSameEntryType(t *testing.T) {
	a := defaultReclaimer[pair[string, int]]()
	b := defaultReclaimer[pair[string, int]]()
	if a != b {
		t.Fatal("defaultReclaimer returned distinct Reclaimers for the same entry type")
	}
}
