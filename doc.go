// Package parahash implements a growable, lock-free concurrent hash map
// and the derived hash set built on it.
//
// The design follows a classic "immutable bucket list" discipline: each
// bucket holds a singly-linked, copy-on-write list of entries, and every
// mutation publishes a brand-new list by a single compare-and-swap on the
// bucket's head pointer. Readers never block and never retry past a single
// list scan; writers retry the CAS loop on contention. Resizing is
// cooperative: any goroutine that touches a bucket still on the old table
// may help migrate it, so the table always makes global progress even if
// individual goroutines stall.
//
// Unlinked bucket-list nodes need no special handling: Go's garbage
// collector already keeps a node's whole suffix chain alive for as long as
// any goroutine still holds an older head pointer into it. The indirect
// entry representation's pooled storage is different — reusing it too
// early would corrupt a reader still dereferencing a stale pointer — so
// retired pooled entries are instead handed to an epoch-based reclaimer
// (see epoch.go, pool.go) that defers the actual reuse until no goroutine
// could still be observing them. This makes the container safe to use
// without any locks on the read path, at the cost of a bounded memory lag
// under stalled readers — documented, not hidden, behavior.
//
// Two entry representations are supported, chosen once per map/set at
// construction and never mixed within one instance: Direct, which stores
// the key/value pair inline in the bucket-list node (best for small,
// trivially copyable payloads), and Indirect, which stores a pointer to a
// pooled entry alongside a 16-bit hash fingerprint used to short-circuit
// comparisons before dereferencing (best for large or non-trivial
// payloads). See entry.go.
package parahash
