package sync

import (
	stdsync "sync"

	"github.com/kimhappy/deadlock/pkg/unsync"
)

// Entry re-exports unsync.Entry so callers of this package never need to
// import pkg/unsync themselves.
type Entry[K unsync.Ordered, V any] = unsync.Entry[K, V]

// SlotHeap is a concurrent binary min-heap: a single reader-writer lock
// guarding an unsync.SlotHeap. Every public operation takes that lock for
// its own duration, except the mutation guards below, which hold the write
// lock open until Close is called so no other goroutine can observe the
// heap mid-update.
type SlotHeap[K unsync.Ordered, V any] struct {
	mu    stdsync.RWMutex
	inner unsync.SlotHeap[K, V]
}

// NewSlotHeap returns an empty SlotHeap.
func NewSlotHeap[K unsync.Ordered, V any]() *SlotHeap[K, V] {
	return &SlotHeap[K, V]{}
}

// Len returns the number of elements in the heap.
func (h *SlotHeap[K, V]) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.inner.Len()
}

// IsEmpty reports whether the heap has no elements.
func (h *SlotHeap[K, V]) IsEmpty() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.inner.IsEmpty()
}

// Contains reports whether id currently names an element of the heap.
func (h *SlotHeap[K, V]) Contains(id int) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.inner.Contains(id)
}

// Clear removes every element.
func (h *SlotHeap[K, V]) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.inner.Clear()
}

// Insert adds (key, value) to the heap and returns its id.
func (h *SlotHeap[K, V]) Insert(key K, value V) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.inner.Insert(key, value)
}

// Pop removes and returns the minimum (key, value) pair, or (zero, zero,
// false) if the heap is empty.
func (h *SlotHeap[K, V]) Pop() (K, V, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.inner.Pop()
}

// Remove deletes the element named by id, returning its (key, value)
// pair, or (zero, zero, false) if id is not present.
func (h *SlotHeap[K, V]) Remove(id int) (K, V, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.inner.Remove(id)
}

// Peek returns a read guard over the minimum (key, value) pair, or (nil,
// false) if the heap is empty.
func (h *SlotHeap[K, V]) Peek() (*ReadGuard[Entry[K, V]], bool) {
	h.mu.RLock()
	e, ok := h.inner.Peek()
	if !ok {
		h.mu.RUnlock()
		return nil, false
	}
	return &ReadGuard[Entry[K, V]]{mu: &h.mu, val: e}, true
}

// PeekKey returns a read guard over the minimum key.
func (h *SlotHeap[K, V]) PeekKey() (*ReadGuard[K], bool) {
	h.mu.RLock()
	k, ok := h.inner.PeekKey()
	if !ok {
		h.mu.RUnlock()
		return nil, false
	}
	return &ReadGuard[K]{mu: &h.mu, val: k}, true
}

// PeekValue returns a read guard over the minimum element's value.
func (h *SlotHeap[K, V]) PeekValue() (*ReadGuard[V], bool) {
	h.mu.RLock()
	v, ok := h.inner.PeekValue()
	if !ok {
		h.mu.RUnlock()
		return nil, false
	}
	return &ReadGuard[V]{mu: &h.mu, val: v}, true
}

// PeekValueMut returns a write guard over the minimum element's value. No
// re-heapify is needed on Close since the value does not affect ordering.
func (h *SlotHeap[K, V]) PeekValueMut() (*WriteGuard[V], bool) {
	h.mu.Lock()
	v, ok := h.inner.PeekValueMut()
	if !ok {
		h.mu.Unlock()
		return nil, false
	}
	return &WriteGuard[V]{mu: &h.mu, val: v}, true
}

// Get returns a read guard over the (key, value) pair named by id.
func (h *SlotHeap[K, V]) Get(id int) (*ReadGuard[Entry[K, V]], bool) {
	h.mu.RLock()
	e, ok := h.inner.Get(id)
	if !ok {
		h.mu.RUnlock()
		return nil, false
	}
	return &ReadGuard[Entry[K, V]]{mu: &h.mu, val: e}, true
}

// GetKey returns a read guard over the key named by id.
func (h *SlotHeap[K, V]) GetKey(id int) (*ReadGuard[K], bool) {
	h.mu.RLock()
	k, ok := h.inner.GetKey(id)
	if !ok {
		h.mu.RUnlock()
		return nil, false
	}
	return &ReadGuard[K]{mu: &h.mu, val: k}, true
}

// GetValue returns a read guard over the value named by id.
func (h *SlotHeap[K, V]) GetValue(id int) (*ReadGuard[V], bool) {
	h.mu.RLock()
	v, ok := h.inner.GetValue(id)
	if !ok {
		h.mu.RUnlock()
		return nil, false
	}
	return &ReadGuard[V]{mu: &h.mu, val: v}, true
}

// GetValueMut returns a write guard over the value named by id. No
// re-heapify is needed on Close since the value does not affect ordering.
func (h *SlotHeap[K, V]) GetValueMut(id int) (*WriteGuard[V], bool) {
	h.mu.Lock()
	v, ok := h.inner.GetValueMut(id)
	if !ok {
		h.mu.Unlock()
		return nil, false
	}
	return &WriteGuard[V]{mu: &h.mu, val: v}, true
}

/*
Mutation guards.

Each of these holds the heap's write lock for its entire lifetime: the
lock is only released by Close, after any re-heapify the guard's mutation
required. That ordering is the point — no other goroutine can observe the
heap between the caller's edit and the re-heapify that restores the
invariant.
*/

// PeekMut guards the root (key, value) pair for mutation.
type PeekMut[K unsync.Ordered, V any] struct {
	heap    *SlotHeap[K, V]
	dirty   bool
	removed bool
}

// PeekMut locks the heap for writing and returns a guard over the root
// entry, or (nil, false) if the heap is empty (in which case the lock is
// not taken).
func (h *SlotHeap[K, V]) PeekMut() (*PeekMut[K, V], bool) {
	h.mu.Lock()
	if h.inner.IsEmpty() {
		h.mu.Unlock()
		return nil, false
	}
	return &PeekMut[K, V]{heap: h}, true
}

// Pair returns a pointer to the guarded entry and marks it dirty.
func (g *PeekMut[K, V]) Pair() *Entry[K, V] {
	g.dirty = true
	return g.heap.inner.EntryAt(0)
}

// Remove consumes the guard, deleting the root element instead of
// re-heapifying it, and returns its (key, value) pair.
func (g *PeekMut[K, V]) Remove() (K, V) {
	k, v, _ := g.heap.inner.Pop()
	g.dirty = false
	g.removed = true
	return k, v
}

// Close re-heapifies if Pair was called, then releases the write lock.
// It must be called exactly once.
func (g *PeekMut[K, V]) Close() {
	if !g.removed && g.dirty {
		g.heap.inner.SiftDown(0)
	}
	g.heap.mu.Unlock()
}

// PeekKeyMut is PeekMut narrowed to the key.
type PeekKeyMut[K unsync.Ordered, V any] struct {
	heap  *SlotHeap[K, V]
	dirty bool
}

func (h *SlotHeap[K, V]) PeekKeyMut() (*PeekKeyMut[K, V], bool) {
	h.mu.Lock()
	if h.inner.IsEmpty() {
		h.mu.Unlock()
		return nil, false
	}
	return &PeekKeyMut[K, V]{heap: h}, true
}

func (g *PeekKeyMut[K, V]) Key() *K {
	g.dirty = true
	return &g.heap.inner.EntryAt(0).Key
}

// Close re-heapifies if Key was called, then releases the write lock. It
// must be called exactly once.
func (g *PeekKeyMut[K, V]) Close() {
	if g.dirty {
		g.heap.inner.SiftDown(0)
	}
	g.heap.mu.Unlock()
}

// RefMut guards an arbitrary entry named by id for mutation.
type RefMut[K unsync.Ordered, V any] struct {
	heap    *SlotHeap[K, V]
	id      int
	index   int
	dirty   bool
	removed bool
}

// GetMut locks the heap for writing and returns a guard over the entry
// named by id, or (nil, false) if id is not present (in which case the
// lock is not taken).
func (h *SlotHeap[K, V]) GetMut(id int) (*RefMut[K, V], bool) {
	h.mu.Lock()
	idx, ok := h.inner.IndexOf(id)
	if !ok {
		h.mu.Unlock()
		return nil, false
	}
	return &RefMut[K, V]{heap: h, id: id, index: idx}, true
}

func (g *RefMut[K, V]) Pair() *Entry[K, V] {
	g.dirty = true
	return g.heap.inner.EntryAt(g.index)
}

// Remove consumes the guard, deleting the guarded element instead of
// re-heapifying it, and returns its (key, value) pair.
func (g *RefMut[K, V]) Remove() (K, V) {
	k, v, _ := g.heap.inner.Remove(g.id)
	g.dirty = false
	g.removed = true
	return k, v
}

// Close re-heapifies (up then down, since the mutation's direction is
// unknown) if Pair was called, then releases the write lock. It must be
// called exactly once.
func (g *RefMut[K, V]) Close() {
	if !g.removed && g.dirty {
		g.heap.inner.Heapify(g.index)
	}
	g.heap.mu.Unlock()
}

// RefKeyMut is RefMut narrowed to the key.
type RefKeyMut[K unsync.Ordered, V any] struct {
	heap  *SlotHeap[K, V]
	index int
	dirty bool
}

func (h *SlotHeap[K, V]) GetKeyMut(id int) (*RefKeyMut[K, V], bool) {
	h.mu.Lock()
	idx, ok := h.inner.IndexOf(id)
	if !ok {
		h.mu.Unlock()
		return nil, false
	}
	return &RefKeyMut[K, V]{heap: h, index: idx}, true
}

func (g *RefKeyMut[K, V]) Key() *K {
	g.dirty = true
	return &g.heap.inner.EntryAt(g.index).Key
}

// Close re-heapifies if Key was called, then releases the write lock. It
// must be called exactly once.
func (g *RefKeyMut[K, V]) Close() {
	if g.dirty {
		g.heap.inner.Heapify(g.index)
	}
	g.heap.mu.Unlock()
}
