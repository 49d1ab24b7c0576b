package parahash

import "testing"

func directArgs() (uint16, Representation, Equal[int]) {
	return 0, Direct, defaultEqual[int]
}

func TestBucketList_InsertLookup(t *testing.T) {
	var head *bucketNode[int, string]
	fp, repr, eq := directArgs()

	head, old, existed, _ := listInsert(head, 1, fp, repr, eq, nil, "a")
	if existed || old != "" {
		t.Fatalf("listInsert on empty list: existed=%v old=%q", existed, old)
	}
	head, old, existed, _ = listInsert(head, 1, fp, repr, eq, nil, "b")
	if !existed || old != "a" {
		t.Fatalf("listInsert on existing key: existed=%v old=%q, want (true,a)", existed, old)
	}
	v, ok := listLookup(head, 1, fp, repr, eq)
	if !ok || v != "a" {
		t.Fatalf("listLookup(1) = (%q,%v), want (a,true); insert must not modify on collision", v, ok)
	}
}

func TestBucketList_InsertPreservesOthers(t *testing.T) {
	var head *bucketNode[int, string]
	fp, repr, eq := directArgs()
	for i := 0; i < 10; i++ {
		head, _, _, _ = listInsert(head, i, fp, repr, eq, nil, string(rune('a'+i)))
	}
	if got := listLen(head); got != 10 {
		t.Fatalf("listLen = %d, want 10", got)
	}
	for i := 0; i < 10; i++ {
		v, ok := listLookup(head, i, fp, repr, eq)
		if !ok || v != string(rune('a'+i)) {
			t.Fatalf("listLookup(%d) = (%q,%v), want (%q,true)", i, v, ok, string(rune('a'+i)))
		}
	}
}

func TestBucketList_Upsert(t *testing.T) {
	var head *bucketNode[int, int]
	fp, repr, eq := directArgs()

	head, old, existed, _, _ := listUpsert(head, 1, fp, repr, eq, nil, func(old int, ok bool) int {
		if ok {
			t.Fatal("updateFn called with ok=true on absent key")
		}
		return 100
	})
	if existed || old != 0 {
		t.Fatalf("listUpsert on absent key: existed=%v old=%d", existed, old)
	}
	v, _ := listLookup(head, 1, fp, repr, eq)
	if v != 100 {
		t.Fatalf("listLookup(1) after upsert = %d, want 100", v)
	}

	head, old, existed, _, _ = listUpsert(head, 1, fp, repr, eq, nil, func(old int, ok bool) int {
		if !ok {
			t.Fatal("updateFn called with ok=false on present key")
		}
		return old + 1
	})
	if !existed || old != 100 {
		t.Fatalf("listUpsert on present key: existed=%v old=%d, want (true,100)", existed, old)
	}
	v, _ = listLookup(head, 1, fp, repr, eq)
	if v != 101 {
		t.Fatalf("listLookup(1) after second upsert = %d, want 101", v)
	}
}

func TestBucketList_UpsertLeavesOriginalIntact(t *testing.T) {
	var head *bucketNode[int, int]
	fp, repr, eq := directArgs()
	for i := 0; i < 5; i++ {
		head, _, _, _ = listInsert(head, i, fp, repr, eq, nil, i)
	}
	// head's order is [4,3,2,1,0] (most recent insert first). Upsert the
	// oldest key (0, at the tail) and confirm the rebuilt list's tail
	// node is a distinct allocation (rebuildPrefix copies every node up
	// to and including the match) while the head-to-match-exclusive
	// portion is untouched content-wise.
	suffixBefore := head.next.next.next.next // the node holding key 0
	newHead, _, existed, _, _ := listUpsert(head, 0, fp, repr, eq, nil, func(old int, ok bool) int { return old + 100 })
	if !existed {
		t.Fatal("listUpsert(0) did not find existing key 0")
	}
	if suffixBefore.e.key != 0 || suffixBefore.e.val != 0 {
		t.Fatal("original list node for key 0 was mutated in place; bucket lists must be immutable")
	}
	v, _ := listLookup(newHead, 0, fp, repr, eq)
	if v != 100 {
		t.Fatalf("listLookup(0) after upsert = %d, want 100", v)
	}
	for i := 1; i < 5; i++ {
		v, ok := listLookup(newHead, i, fp, repr, eq)
		if !ok || v != i {
			t.Fatalf("listLookup(%d) after unrelated upsert = (%d,%v), want (%d,true)", i, v, ok, i)
		}
	}
}

func TestBucketList_Remove(t *testing.T) {
	var head *bucketNode[int, int]
	fp, repr, eq := directArgs()
	for i := 0; i < 5; i++ {
		head, _, _, _ = listInsert(head, i, fp, repr, eq, nil, i*10)
	}

	newHead, removed, ok, _ := listRemove(head, 2, fp, repr, eq)
	if !ok || removed != 20 {
		t.Fatalf("listRemove(2) = (%d,%v), want (20,true)", removed, ok)
	}
	if got := listLen(newHead); got != 4 {
		t.Fatalf("listLen after remove = %d, want 4", got)
	}
	if _, ok := listLookup(newHead, 2, fp, repr, eq); ok {
		t.Fatal("key 2 still present after listRemove")
	}
	for _, k := range []int{0, 1, 3, 4} {
		v, ok := listLookup(newHead, k, fp, repr, eq)
		if !ok || v != k*10 {
			t.Fatalf("listLookup(%d) after unrelated remove = (%d,%v), want (%d,true)", k, v, ok, k*10)
		}
	}
}

func TestBucketList_RemoveAbsent(t *testing.T) {
	var head *bucketNode[int, int]
	fp, repr, eq := directArgs()
	head, _, _, _ = listInsert(head, 1, fp, repr, eq, nil, 1)

	newHead, removed, ok, _ := listRemove(head, 99, fp, repr, eq)
	if ok || removed != 0 {
		t.Fatalf("listRemove(99) on absent key = (%d,%v), want (0,false)", removed, ok)
	}
	if newHead != head {
		t.Fatal("listRemove on absent key must return the list unmodified (same head)")
	}
}

func TestBucketList_Partition(t *testing.T) {
	var head *bucketNode[int, int]
	fp, repr, eq := directArgs()
	for i := 0; i < 16; i++ {
		head, _, _, _ = listInsert(head, i, fp, repr, eq, nil, i)
	}
	hashOf := func(k int) uint64 { return uint64(k) }
	zero, one := listPartition(head, 1, hashOf)

	seen := map[int]bool{}
	for n := zero; n != nil; n = n.next {
		if n.e.key&1 != 0 {
			t.Fatalf("key %d landed in the zero partition but has bit 1 set", n.e.key)
		}
		seen[n.e.key] = true
	}
	for n := one; n != nil; n = n.next {
		if n.e.key&1 != 1 {
			t.Fatalf("key %d landed in the one partition but lacks bit 1", n.e.key)
		}
		seen[n.e.key] = true
	}
	if len(seen) != 16 {
		t.Fatalf("partition covered %d distinct keys, want 16", len(seen))
	}
}
