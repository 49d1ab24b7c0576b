//go:build parahash_cachelinesize_256

package parahash

// CacheLineSize is pinned to 256 bytes by the parahash_cachelinesize_256
// build tag, overriding the golang.org/x/sys/cpu auto-detection in
// options.go. Useful for benchmarking padding sensitivity on a given target.
const CacheLineSize = 256
