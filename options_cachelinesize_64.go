//go:build parahash_cachelinesize_64

package parahash

// CacheLineSize is pinned to 64 bytes by the parahash_cachelinesize_64
// build tag, overriding the golang.org/x/sys/cpu auto-detection in
// options.go. Useful for benchmarking padding sensitivity on a given target.
const CacheLineSize = 64
