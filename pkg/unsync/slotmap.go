// Package unsync implements the single-threaded containers: SlotMap, an
// associative array that hands out stable integer ids and reuses freed
// slots via an intrusive free list, and SlotHeap, a binary min-heap built
// on top of a SlotMap so its entries keep stable ids while their backing
// position moves around under heapify.
//
// Neither type is safe for concurrent use; see the pkg/sync package for
// sharded and lock-guarded equivalents.
//
// © 2025 arena-cache authors. MIT License.
package unsync

import "github.com/kimhappy/deadlock/internal/slotutil"

// slotEntry is either a live value or a free-list link. live is false
// exactly when next is meaningful; next then points at the following free
// slot, or at len(entries) (the sentinel "allocate a new slot" value).
type slotEntry[T any] struct {
	value T
	next  int
	live  bool
}

// SlotMap is a single-threaded associative container keyed by a stable,
// densely packed integer id. Insert returns a new id; Remove frees it for
// reuse by a later Insert. Unlike a plain slice, removing an element never
// shifts the ids of any other element.
type SlotMap[T any] struct {
	entries []slotEntry[T]
	length  int
	next    int
}

// NewSlotMap returns an empty SlotMap.
func NewSlotMap[T any]() *SlotMap[T] {
	return &SlotMap[T]{}
}

// Len returns the number of live elements.
func (m *SlotMap[T]) Len() int { return m.length }

// IsEmpty reports whether the map has no live elements.
func (m *SlotMap[T]) IsEmpty() bool { return m.length == 0 }

// Capacity returns the number of slots currently allocated, live or free.
func (m *SlotMap[T]) Capacity() int { return len(m.entries) }

// Contains reports whether id currently names a live element.
func (m *SlotMap[T]) Contains(id int) bool {
	return id >= 0 && id < len(m.entries) && m.entries[id].live
}

// Get returns a pointer to the value stored at id, or (nil, false) if id is
// not live.
func (m *SlotMap[T]) Get(id int) (*T, bool) {
	if !m.Contains(id) {
		return nil, false
	}
	return &m.entries[id].value, true
}

// GetMut is the mutation-intended counterpart to Get: it returns the same
// pointer, but documents to the caller that the value is expected to be
// modified through it.
func (m *SlotMap[T]) GetMut(id int) (*T, bool) {
	return m.Get(id)
}

// GetUnchecked returns a pointer to the value at id without checking that
// id is live. Calling it with a non-live or out-of-range id is a contract
// violation; on valid input it behaves exactly like Get's non-nil branch.
func (m *SlotMap[T]) GetUnchecked(id int) *T {
	assertLive(m, id)
	return &m.entries[id].value
}

// GetMutUnchecked is the mutation-intended counterpart to GetUnchecked.
func (m *SlotMap[T]) GetMutUnchecked(id int) *T {
	return m.GetUnchecked(id)
}

// Insert stores v in a new or recycled slot and returns its id.
func (m *SlotMap[T]) Insert(v T) int {
	id := m.next
	if id == len(m.entries) {
		m.entries = append(m.entries, slotEntry[T]{value: v, live: true, next: 0})
		m.next = id + 1
	} else {
		e := &m.entries[id]
		m.next = e.next
		e.value = v
		e.live = true
	}
	m.length++
	return id
}

// Remove deletes the value at id, returning it, or (zero, false) if id was
// not live.
func (m *SlotMap[T]) Remove(id int) (T, bool) {
	if !m.Contains(id) {
		var zero T
		return zero, false
	}
	return m.RemoveUnchecked(id), true
}

// RemoveUnchecked deletes the value at id without checking liveness first.
// Calling it on a non-live or out-of-range id is a contract violation.
func (m *SlotMap[T]) RemoveUnchecked(id int) T {
	assertLive(m, id)
	e := &m.entries[id]
	v := e.value
	var zero T
	e.value = zero // let the GC reclaim anything v referenced
	e.live = false
	e.next = m.next
	m.next = id
	m.length--
	return v
}

// Swap exchanges the values stored at a and b, leaving their ids
// unchanged. It reports false, leaving the map untouched, if either id is
// not live.
func (m *SlotMap[T]) Swap(a, b int) bool {
	if !m.Contains(a) || !m.Contains(b) {
		return false
	}
	m.SwapUnchecked(a, b)
	return true
}

// SwapUnchecked exchanges the values at a and b without checking liveness
// first. Calling it with a non-live or out-of-range id is a contract
// violation.
func (m *SlotMap[T]) SwapUnchecked(a, b int) {
	assertLive(m, a)
	assertLive(m, b)
	if a == b {
		return
	}
	slotutil.Swap(m.entries, a, b)
}

// Clear removes every element, zeroing each retained slot so the backing
// array's spare capacity does not keep removed values reachable. It is
// O(capacity), not O(len).
func (m *SlotMap[T]) Clear() {
	var zero slotEntry[T]
	for i := range m.entries {
		m.entries[i] = zero
	}
	m.entries = m.entries[:0]
	m.length = 0
	m.next = 0
}

// PrepareLazyInsert reserves a slot and returns its id without storing a
// value or counting it among the live elements. Pair exactly one call to
// CommitLazyInsert or DropLazyInsert with the returned id.
func (m *SlotMap[T]) PrepareLazyInsert() int {
	id := m.next
	if id == len(m.entries) {
		m.entries = append(m.entries, slotEntry[T]{next: id + 1})
		m.next = id + 1
	} else {
		m.next = m.entries[id].next
	}
	return id
}

// CommitLazyInsert stores v at a slot previously reserved by
// PrepareLazyInsert and marks it live.
func (m *SlotMap[T]) CommitLazyInsert(id int, v T) {
	e := &m.entries[id]
	e.value = v
	e.live = true
	m.length++
}

// DropLazyInsert releases a slot previously reserved by PrepareLazyInsert
// back to the free list without ever storing a value in it.
func (m *SlotMap[T]) DropLazyInsert(id int) {
	e := &m.entries[id]
	e.live = false
	e.next = m.next
	m.next = id
}
