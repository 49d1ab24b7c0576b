//go:build parahash_cachelinesize_32

package parahash

// CacheLineSize is pinned to 32 bytes by the parahash_cachelinesize_32
// build tag, overriding the golang.org/x/sys/cpu auto-detection in
// options.go. Useful for benchmarking padding sensitivity on a given target.
const CacheLineSize = 32
