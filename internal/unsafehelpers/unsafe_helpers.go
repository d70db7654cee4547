// Package unsafehelpers collects the tiny, non-generic helpers the rest of
// the module needs for shard-count validation and false-sharing avoidance.
// Unlike the package this one is adapted from, nothing here reaches for the
// unsafe package: neither SlotMap nor SlotHeap ever hash or reinterpret a
// user key, so the byte/string reinterpretation tricks that justified
// unsafe in the original have no job to do here.
//
// © 2025 arena-cache authors. MIT License.

package unsafehelpers

// CacheLineSize is the padding width used to keep adjacent shard structs in
// pkg/sync on separate cache lines, avoiding false sharing between a
// shard's lock/counter and its neighbor's.
const CacheLineSize = 64

// IsPowerOfTwo returns true if x is a power of two (exactly one bit set).
func IsPowerOfTwo(x int) bool {
    return x > 0 && (x&(x-1)) == 0
}
