package sync

import (
	"math/bits"
	stdsync "sync"
	"sync/atomic"

	"github.com/kimhappy/deadlock/internal/sharding"
	"github.com/kimhappy/deadlock/internal/unsafehelpers"
	"github.com/kimhappy/deadlock/pkg/unsync"
)

// mapShard is one independently-locked partition of a SlotMap. count
// mirrors the shard's live-element count with relaxed atomics so shard
// selection and the approximate Len/IsEmpty never need the lock. The
// trailing padding keeps two adjacent shards in the backing slice from
// sharing a cache line.
type mapShard[T any] struct {
	mu    stdsync.RWMutex
	inner unsync.SlotMap[T]
	count atomic.Int64
	_     [unsafehelpers.CacheLineSize]byte
}

// SlotMap is a concurrent associative container sharded across a fixed
// number of independently-locked unsync.SlotMap instances. An id encodes
// both the owning shard and the id within that shard, so every operation
// that takes an id can route directly to its shard without a broadcast.
type SlotMap[T any] struct {
	shards []*mapShard[T]
	rr     atomic.Uint64
}

// NewSlotMap returns a SlotMap sharded according to the cached default
// shard count for this machine (see internal/sharding).
func NewSlotMap[T any]() *SlotMap[T] {
	m, err := NewSlotMapWithShards[T](sharding.Default())
	if err != nil {
		// sharding.Default always returns a power of two >= 4.
		panic(err)
	}
	return m
}

// NewSlotMapWithShards returns a SlotMap with exactly numShards shards.
// numShards must be a power of two and at least 4.
func NewSlotMapWithShards[T any](numShards int) (*SlotMap[T], error) {
	if !unsafehelpers.IsPowerOfTwo(numShards) || numShards < 4 {
		return nil, ErrInvalidShardCount
	}
	shards := make([]*mapShard[T], numShards)
	for i := range shards {
		shards[i] = &mapShard[T]{}
	}
	return &SlotMap[T]{shards: shards}, nil
}

// NumShards returns the number of shards the map was constructed with.
func (m *SlotMap[T]) NumShards() int { return len(m.shards) }

func (m *SlotMap[T]) shardBits() uint { return uint(bits.TrailingZeros(uint(len(m.shards)))) }
func (m *SlotMap[T]) shardMask() int  { return len(m.shards) - 1 }

// merge packs a shard index and a within-shard id into a single public id.
func (m *SlotMap[T]) merge(shardIdx, inner int) int {
	return (inner << m.shardBits()) | shardIdx
}

// split unpacks a public id into its owning shard index and within-shard
// id. It reports false for negative ids without touching any shard. The
// shard index is masked and therefore always in range; an inner id beyond
// the shard's slots is left for the shard's own map to reject.
func (m *SlotMap[T]) split(id int) (shardIdx, inner int, ok bool) {
	if id < 0 {
		return 0, 0, false
	}
	shardIdx = id & m.shardMask()
	inner = id >> m.shardBits()
	return shardIdx, inner, true
}

// selectShard picks an insertion target using least-of-four sampling: four
// candidate shards spaced a quarter of the way around the ring from a
// round-robin cursor, with the lightest-loaded candidate winning ties
// broken toward the earliest candidate. This avoids both the contention of
// always picking one shard and the skew purely random placement produces
// under bursty removal patterns.
func (m *SlotMap[T]) selectShard() int {
	n := len(m.shards)
	mask := m.shardMask()
	interval := n / 4
	rr := int(m.rr.Add(1))

	best := rr & mask
	bestLoad := m.shards[best].count.Load()
	for i := 1; i < 4; i++ {
		idx := (rr + i*interval) & mask
		load := m.shards[idx].count.Load()
		if load < bestLoad {
			best, bestLoad = idx, load
		}
	}
	return best
}

// Len returns an approximate total element count: the sum of each shard's
// relaxed atomic counter. It is not linearizable across shards.
func (m *SlotMap[T]) Len() int {
	var total int64
	for _, sh := range m.shards {
		total += sh.count.Load()
	}
	return int(total)
}

// IsEmpty reports whether Len() would return 0. Subject to the same
// cross-shard non-atomicity as Len.
func (m *SlotMap[T]) IsEmpty() bool {
	for _, sh := range m.shards {
		if sh.count.Load() != 0 {
			return false
		}
	}
	return true
}

// ShardLoads returns a snapshot of each shard's relaxed live-element
// counter, in shard-index order. It exists for introspection (shard-load
// balance under the least-of-four placement strategy); the containers
// themselves never call it.
func (m *SlotMap[T]) ShardLoads() []int {
	loads := make([]int, len(m.shards))
	for i, sh := range m.shards {
		loads[i] = int(sh.count.Load())
	}
	return loads
}

// Contains reports whether id currently names a live element.
func (m *SlotMap[T]) Contains(id int) bool {
	idx, inner, ok := m.split(id)
	if !ok {
		return false
	}
	sh := m.shards[idx]
	sh.mu.RLock()
	res := sh.inner.Contains(inner)
	sh.mu.RUnlock()
	return res
}

// Get returns a read guard over the value stored at id, or (nil, false) if
// id is not live. The guard's Close method must be called to release the
// shard's read lock.
func (m *SlotMap[T]) Get(id int) (*ReadGuard[T], bool) {
	idx, inner, ok := m.split(id)
	if !ok {
		return nil, false
	}
	sh := m.shards[idx]
	sh.mu.RLock()
	v, ok := sh.inner.Get(inner)
	if !ok {
		sh.mu.RUnlock()
		return nil, false
	}
	return &ReadGuard[T]{mu: &sh.mu, val: v}, true
}

// GetMut returns a write guard over the value stored at id, or (nil,
// false) if id is not live. The guard's Close method must be called to
// release the shard's write lock.
func (m *SlotMap[T]) GetMut(id int) (*WriteGuard[T], bool) {
	idx, inner, ok := m.split(id)
	if !ok {
		return nil, false
	}
	sh := m.shards[idx]
	sh.mu.Lock()
	v, ok := sh.inner.GetMut(inner)
	if !ok {
		sh.mu.Unlock()
		return nil, false
	}
	return &WriteGuard[T]{mu: &sh.mu, val: v}, true
}

// GetUnchecked returns a read guard over the value at id without checking
// that id is live. Calling it with a non-live or out-of-range id is a
// contract violation; on valid input it behaves like Get's found branch.
func (m *SlotMap[T]) GetUnchecked(id int) *ReadGuard[T] {
	idx, inner, _ := m.split(id)
	sh := m.shards[idx]
	sh.mu.RLock()
	return &ReadGuard[T]{mu: &sh.mu, val: sh.inner.GetUnchecked(inner)}
}

// GetMutUnchecked is the mutation-intended counterpart to GetUnchecked.
func (m *SlotMap[T]) GetMutUnchecked(id int) *WriteGuard[T] {
	idx, inner, _ := m.split(id)
	sh := m.shards[idx]
	sh.mu.Lock()
	return &WriteGuard[T]{mu: &sh.mu, val: sh.inner.GetMutUnchecked(inner)}
}

// Insert places v in the shard chosen by selectShard and returns its id.
func (m *SlotMap[T]) Insert(v T) int {
	idx := m.selectShard()
	sh := m.shards[idx]
	sh.mu.Lock()
	inner := sh.inner.Insert(v)
	sh.count.Add(1)
	sh.mu.Unlock()
	return m.merge(idx, inner)
}

// Remove deletes the value at id, returning it, or (zero, false) if id is
// not live.
func (m *SlotMap[T]) Remove(id int) (T, bool) {
	idx, inner, ok := m.split(id)
	if !ok {
		var zero T
		return zero, false
	}
	sh := m.shards[idx]
	sh.mu.Lock()
	v, ok := sh.inner.Remove(inner)
	if ok {
		sh.count.Add(-1)
	}
	sh.mu.Unlock()
	if !ok {
		var zero T
		return zero, false
	}
	return v, true
}

// RemoveUnchecked deletes the value at id without checking liveness first.
// Calling it on a non-live or out-of-range id is a contract violation.
func (m *SlotMap[T]) RemoveUnchecked(id int) T {
	idx, inner, _ := m.split(id)
	sh := m.shards[idx]
	sh.mu.Lock()
	v := sh.inner.RemoveUnchecked(inner)
	sh.count.Add(-1)
	sh.mu.Unlock()
	return v
}

// Swap exchanges the values stored at a and b, which may live in the same
// or different shards. When they differ, the two shard locks are acquired
// in an order determined by shard index — lower first — unless reverse is
// set, in which case the order is flipped. Composing this with an external
// global lock order lets callers avoid deadlocking against some other
// subsystem that locks the same two shards the other way around.
func (m *SlotMap[T]) Swap(a, b int, reverse bool) bool {
	idxA, innerA, okA := m.split(a)
	idxB, innerB, okB := m.split(b)
	if !okA || !okB {
		return false
	}

	if idxA == idxB {
		sh := m.shards[idxA]
		sh.mu.Lock()
		ok := sh.inner.Swap(innerA, innerB)
		sh.mu.Unlock()
		return ok
	}

	shA, shB := m.shards[idxA], m.shards[idxB]
	if (idxA < idxB) != reverse {
		shA.mu.Lock()
		defer shA.mu.Unlock()
		shB.mu.Lock()
		defer shB.mu.Unlock()
	} else {
		shB.mu.Lock()
		defer shB.mu.Unlock()
		shA.mu.Lock()
		defer shA.mu.Unlock()
	}

	va, ok := shA.inner.GetMut(innerA)
	if !ok {
		return false
	}
	vb, ok := shB.inner.GetMut(innerB)
	if !ok {
		return false
	}
	*va, *vb = *vb, *va
	return true
}

// SwapUnchecked exchanges the values stored at a and b without checking
// liveness first. Calling it with a non-live or out-of-range id is a
// contract violation. The shard-locking order follows the same
// index-and-reverse rule as Swap.
func (m *SlotMap[T]) SwapUnchecked(a, b int, reverse bool) {
	idxA, innerA, _ := m.split(a)
	idxB, innerB, _ := m.split(b)

	if idxA == idxB {
		sh := m.shards[idxA]
		sh.mu.Lock()
		sh.inner.SwapUnchecked(innerA, innerB)
		sh.mu.Unlock()
		return
	}

	shA, shB := m.shards[idxA], m.shards[idxB]
	if (idxA < idxB) != reverse {
		shA.mu.Lock()
		defer shA.mu.Unlock()
		shB.mu.Lock()
		defer shB.mu.Unlock()
	} else {
		shB.mu.Lock()
		defer shB.mu.Unlock()
		shA.mu.Lock()
		defer shA.mu.Unlock()
	}

	va := shA.inner.GetMutUnchecked(innerA)
	vb := shB.inner.GetMutUnchecked(innerB)
	*va, *vb = *vb, *va
}

// Clear removes every element from every shard, acquiring each shard's
// lock in index order.
func (m *SlotMap[T]) Clear() {
	for _, sh := range m.shards {
		sh.mu.Lock()
		sh.inner.Clear()
		sh.count.Store(0)
		sh.mu.Unlock()
	}
}

// LazyInsert reserves a slot in the shard chosen by selectShard and
// returns its id together with a handle to finish the reservation. The
// handle holds that shard's write lock for its entire lifetime: call
// exactly one of Commit or Discard on it, promptly.
type LazyInsert[T any] struct {
	shard *mapShard[T]
	id    int
	done  bool
}

// LazyInsert begins a two-phase insert: a slot is reserved but not yet
// counted as live or holding a value. The shard's counter, which
// selectShard reads, is only incremented by Commit.
func (m *SlotMap[T]) LazyInsert() (int, *LazyInsert[T]) {
	idx := m.selectShard()
	sh := m.shards[idx]
	sh.mu.Lock()
	inner := sh.inner.PrepareLazyInsert()
	return m.merge(idx, inner), &LazyInsert[T]{shard: sh, id: inner}
}

// Commit stores v at the reserved slot, marks it live and releases the
// shard's write lock. Calling it more than once, or after Discard, is a
// no-op.
func (li *LazyInsert[T]) Commit(v T) {
	if li.done {
		return
	}
	li.shard.inner.CommitLazyInsert(li.id, v)
	li.shard.count.Add(1)
	li.shard.mu.Unlock()
	li.done = true
}

// Discard releases the reserved slot back to the shard's free list without
// ever storing a value, and releases the shard's write lock. Calling it
// more than once, or after Commit, is a no-op.
func (li *LazyInsert[T]) Discard() {
	if li.done {
		return
	}
	li.shard.inner.DropLazyInsert(li.id)
	li.shard.mu.Unlock()
	li.done = true
}
