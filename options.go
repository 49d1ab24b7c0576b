//go:build !parahash_cachelinesize_32 && !parahash_cachelinesize_64 && !parahash_cachelinesize_128 && !parahash_cachelinesize_256

package parahash

import (
	"unsafe"

	"golang.org/x/sys/cpu"
)

// CacheLineSize is used to pad structures that are accessed by many
// goroutines concurrently, so that independent fields do not share a cache
// line and cause false-sharing stalls. It is derived from the
// golang.org/x/sys/cpu package rather than hard-coded, so a build targeting
// an unusual architecture still gets a correct value.
const CacheLineSize = unsafe.Sizeof(cpu.CacheLinePad{})
