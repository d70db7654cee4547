package unsync

import (
	"golang.org/x/exp/constraints"

	"github.com/kimhappy/deadlock/internal/slotutil"
)

// Ordered is the key bound for SlotHeap: anything with a native <. Keys
// that only admit a partial order (float64, because of NaN) still work —
// see less below — they just fall back to id order whenever the native <
// is inconclusive in both directions.
type Ordered = constraints.Ordered

// Entry is a (key, value) pair returned by SlotHeap's read and peek
// operations.
type Entry[K Ordered, V any] struct {
	Key   K
	Value V
}

type heapSlot[K Ordered, V any] struct {
	item Entry[K, V]
	id   int
}

// SlotHeap is a single-threaded binary min-heap keyed by K, whose elements
// keep a stable id across pops, removals and internal reordering. It is
// built from a SlotMap[int] that mirrors each id to its current backing
// position, so Remove/Get/Peek-by-id cost O(log n) instead of a linear
// scan.
type SlotHeap[K Ordered, V any] struct {
	entries []heapSlot[K, V]
	indices SlotMap[int]
}

// NewSlotHeap returns an empty SlotHeap.
func NewSlotHeap[K Ordered, V any]() *SlotHeap[K, V] {
	return &SlotHeap[K, V]{}
}

// Len returns the number of elements in the heap.
func (h *SlotHeap[K, V]) Len() int { return len(h.entries) }

// IsEmpty reports whether the heap has no elements.
func (h *SlotHeap[K, V]) IsEmpty() bool { return len(h.entries) == 0 }

// Contains reports whether id currently names an element of the heap.
func (h *SlotHeap[K, V]) Contains(id int) bool { return h.indices.Contains(id) }

// Clear removes every element.
func (h *SlotHeap[K, V]) Clear() {
	h.entries = h.entries[:0]
	h.indices.Clear()
}

// less defines the total order entries are heaped by: native < on the key,
// and on either a tie or a pair the key's (partial) order can't decide,
// the lower id wins. This is what gives a partially-ordered K (float64
// with NaN keys) well-defined, deterministic heap behavior.
func less[K Ordered](ak K, aid int, bk K, bid int) bool {
	if ak < bk {
		return true
	}
	if bk < ak {
		return false
	}
	return aid < bid
}

func (h *SlotHeap[K, V]) lessAt(i, j int) bool {
	a, b := &h.entries[i], &h.entries[j]
	return less(a.item.Key, a.id, b.item.Key, b.id)
}

func (h *SlotHeap[K, V]) swapEntries(i, j int) {
	h.entries[i], h.entries[j] = h.entries[j], h.entries[i]
	*h.indices.GetUnchecked(h.entries[i].id) = i
	*h.indices.GetUnchecked(h.entries[j].id) = j
}

// siftUp moves the element at pos toward the root while it is less than
// its parent, and returns its final position.
func (h *SlotHeap[K, V]) siftUp(pos int) int {
	for pos > 0 {
		parent := (pos - 1) / 2
		if !h.lessAt(pos, parent) {
			break
		}
		h.swapEntries(pos, parent)
		pos = parent
	}
	return pos
}

// siftDown moves the element at pos toward the leaves while either child
// is less than it.
func (h *SlotHeap[K, V]) siftDown(pos int) {
	n := len(h.entries)
	for {
		left, right := pos*2+1, pos*2+2
		smallest := pos
		if left < n && h.lessAt(left, smallest) {
			smallest = left
		}
		if right < n && h.lessAt(right, smallest) {
			smallest = right
		}
		if smallest == pos {
			return
		}
		h.swapEntries(pos, smallest)
		pos = smallest
	}
}

// heapify restores the heap invariant around pos after a mutation that may
// have moved the element's key in either direction.
func (h *SlotHeap[K, V]) heapify(pos int) {
	pos = h.siftUp(pos)
	h.siftDown(pos)
}

// Insert adds (key, value) to the heap and returns its id.
func (h *SlotHeap[K, V]) Insert(key K, value V) int {
	pos := len(h.entries)
	id := h.indices.Insert(pos)
	h.entries = append(h.entries, heapSlot[K, V]{item: Entry[K, V]{Key: key, Value: value}, id: id})
	h.siftUp(pos)
	return id
}

// Pop removes and returns the minimum (key, value) pair, or (zero, zero,
// false) if the heap is empty.
func (h *SlotHeap[K, V]) Pop() (K, V, bool) {
	n := len(h.entries)
	if n == 0 {
		var zk K
		var zv V
		return zk, zv, false
	}
	if n == 1 {
		e := slotutil.SwapRemove(&h.entries, 0)
		h.indices.Clear()
		return e.item.Key, e.item.Value, true
	}
	removed := swapRemoveHeap(h, 0)
	h.indices.RemoveUnchecked(removed.id)
	*h.indices.GetUnchecked(h.entries[0].id) = 0
	h.siftDown(0)
	return removed.item.Key, removed.item.Value, true
}

// Remove deletes the element named by id, returning its (key, value) pair,
// or (zero, zero, false) if id is not present.
func (h *SlotHeap[K, V]) Remove(id int) (K, V, bool) {
	posPtr, ok := h.indices.Get(id)
	if !ok {
		var zk K
		var zv V
		return zk, zv, false
	}
	pos := *posPtr
	h.indices.RemoveUnchecked(id)
	n := len(h.entries)
	if pos == n-1 {
		e := slotutil.SwapRemove(&h.entries, pos)
		return e.item.Key, e.item.Value, true
	}
	removed := swapRemoveHeap(h, pos)
	*h.indices.GetUnchecked(h.entries[pos].id) = pos
	h.heapify(pos)
	return removed.item.Key, removed.item.Value, true
}

func swapRemoveHeap[K Ordered, V any](h *SlotHeap[K, V], i int) heapSlot[K, V] {
	return slotutil.SwapRemove(&h.entries, i)
}

// Peek returns a pointer to the minimum (key, value) pair without removing
// it, or (nil, false) if the heap is empty.
func (h *SlotHeap[K, V]) Peek() (*Entry[K, V], bool) {
	if len(h.entries) == 0 {
		return nil, false
	}
	return &h.entries[0].item, true
}

// PeekKey returns a pointer to the minimum key.
func (h *SlotHeap[K, V]) PeekKey() (*K, bool) {
	if len(h.entries) == 0 {
		return nil, false
	}
	return &h.entries[0].item.Key, true
}

// PeekValue returns a pointer to the minimum element's value.
func (h *SlotHeap[K, V]) PeekValue() (*V, bool) {
	if len(h.entries) == 0 {
		return nil, false
	}
	return &h.entries[0].item.Value, true
}

// PeekValueMut is the mutation-intended counterpart to PeekValue. It needs
// no re-heapify guard: the heap order depends only on keys.
func (h *SlotHeap[K, V]) PeekValueMut() (*V, bool) { return h.PeekValue() }

// Get returns a pointer to the (key, value) pair named by id.
func (h *SlotHeap[K, V]) Get(id int) (*Entry[K, V], bool) {
	p, ok := h.indices.Get(id)
	if !ok {
		return nil, false
	}
	return &h.entries[*p].item, true
}

// GetKey returns a pointer to the key named by id.
func (h *SlotHeap[K, V]) GetKey(id int) (*K, bool) {
	p, ok := h.indices.Get(id)
	if !ok {
		return nil, false
	}
	return &h.entries[*p].item.Key, true
}

// GetValue returns a pointer to the value named by id.
func (h *SlotHeap[K, V]) GetValue(id int) (*V, bool) {
	p, ok := h.indices.Get(id)
	if !ok {
		return nil, false
	}
	return &h.entries[*p].item.Value, true
}

// GetValueMut is the mutation-intended counterpart to GetValue; no
// re-heapify guard is needed since the value does not affect ordering.
func (h *SlotHeap[K, V]) GetValueMut(id int) (*V, bool) { return h.GetValue(id) }

/*
Mutation guards.

PeekMut/PeekKeyMut let the caller mutate the root entry's key in place;
because the root can only ever need to move downward after its key
changes (it was already less than or equal to everything else), Close only
sifts down. RefMut/RefKeyMut let the caller mutate an arbitrary entry's
key, which can move either direction, so Close does a full heapify.
*/

// PeekMut returns a guard over the minimum (key, value) pair, or (nil,
// false) if the heap is empty. The guard must be closed (typically via
// defer) once the caller is done, which re-heapifies if Pair was called.
type PeekMut[K Ordered, V any] struct {
	heap    *SlotHeap[K, V]
	dirty   bool
	removed bool
}

func (h *SlotHeap[K, V]) PeekMut() (*PeekMut[K, V], bool) {
	if len(h.entries) == 0 {
		return nil, false
	}
	return &PeekMut[K, V]{heap: h}, true
}

// Pair returns a pointer to the guarded entry and marks it dirty.
func (g *PeekMut[K, V]) Pair() *Entry[K, V] {
	g.dirty = true
	return &g.heap.entries[0].item
}

// Remove consumes the guard, deleting the root element instead of
// re-heapifying it, and returns its (key, value) pair. Close becomes a
// no-op after Remove.
func (g *PeekMut[K, V]) Remove() (K, V) {
	k, v, _ := g.heap.Pop()
	g.dirty = false
	g.removed = true
	return k, v
}

// Close re-establishes the heap invariant if Pair was ever called, unless
// Remove already consumed the guard.
func (g *PeekMut[K, V]) Close() {
	if g.removed {
		return
	}
	if g.dirty {
		g.heap.siftDown(0)
	}
}

// PeekKeyMut is PeekMut narrowed to the key.
type PeekKeyMut[K Ordered, V any] struct {
	heap  *SlotHeap[K, V]
	dirty bool
}

func (h *SlotHeap[K, V]) PeekKeyMut() (*PeekKeyMut[K, V], bool) {
	if len(h.entries) == 0 {
		return nil, false
	}
	return &PeekKeyMut[K, V]{heap: h}, true
}

func (g *PeekKeyMut[K, V]) Key() *K {
	g.dirty = true
	return &g.heap.entries[0].item.Key
}

func (g *PeekKeyMut[K, V]) Close() {
	if g.dirty {
		g.heap.siftDown(0)
	}
}

// RefMut guards an arbitrary entry named by id for mutation.
type RefMut[K Ordered, V any] struct {
	heap    *SlotHeap[K, V]
	id      int
	index   int
	dirty   bool
	removed bool
}

func (h *SlotHeap[K, V]) GetMut(id int) (*RefMut[K, V], bool) {
	p, ok := h.indices.Get(id)
	if !ok {
		return nil, false
	}
	return &RefMut[K, V]{heap: h, id: id, index: *p}, true
}

func (g *RefMut[K, V]) Pair() *Entry[K, V] {
	g.dirty = true
	return &g.heap.entries[g.index].item
}

// Remove consumes the guard, deleting the guarded element instead of
// re-heapifying it, and returns its (key, value) pair. Close becomes a
// no-op after Remove.
func (g *RefMut[K, V]) Remove() (K, V) {
	k, v, _ := g.heap.Remove(g.id)
	g.dirty = false
	g.removed = true
	return k, v
}

func (g *RefMut[K, V]) Close() {
	if g.removed {
		return
	}
	if g.dirty {
		g.heap.heapify(g.index)
	}
}

// RefKeyMut is RefMut narrowed to the key.
type RefKeyMut[K Ordered, V any] struct {
	heap  *SlotHeap[K, V]
	index int
	dirty bool
}

func (h *SlotHeap[K, V]) GetKeyMut(id int) (*RefKeyMut[K, V], bool) {
	p, ok := h.indices.Get(id)
	if !ok {
		return nil, false
	}
	return &RefKeyMut[K, V]{heap: h, index: *p}, true
}

func (g *RefKeyMut[K, V]) Key() *K {
	g.dirty = true
	return &g.heap.entries[g.index].item.Key
}

func (g *RefKeyMut[K, V]) Close() {
	if g.dirty {
		g.heap.heapify(g.index)
	}
}

/*
Plumbing for pkg/sync.

These are exported so the RWMutex-wrapped heap in pkg/sync can implement
its own mutation guards around the same heapify machinery instead of
duplicating it. They are not meant to be called from outside this module;
Go has no equivalent of Rust's pub(crate), so a doc comment is the only
fence available.
*/

// IndexOf returns id's current backing position. Exported only for
// pkg/sync's guards.
func (h *SlotHeap[K, V]) IndexOf(id int) (int, bool) {
	p, ok := h.indices.Get(id)
	if !ok {
		return 0, false
	}
	return *p, true
}

// EntryAt returns a pointer to the entry at a backing position previously
// obtained from IndexOf. Exported only for pkg/sync's guards.
func (h *SlotHeap[K, V]) EntryAt(pos int) *Entry[K, V] {
	return &h.entries[pos].item
}

// Heapify re-establishes the heap invariant around pos after an external,
// direction-unknown mutation. Exported only for pkg/sync's guards.
func (h *SlotHeap[K, V]) Heapify(pos int) { h.heapify(pos) }

// SiftDown re-establishes the heap invariant after a mutation that can
// only have made pos's key require moving toward the leaves (or stay put).
// Exported only for pkg/sync's guards.
func (h *SlotHeap[K, V]) SiftDown(pos int) { h.siftDown(pos) }
