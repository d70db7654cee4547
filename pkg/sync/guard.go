// Package sync implements the concurrent containers: a sharded SlotMap,
// where each shard is an independent unsync.SlotMap behind its own
// reader-writer lock, and a single reader-writer-locked unsync.SlotHeap.
//
// Go has no destructors, so the mapped read/write guards that Rust's
// parking_lot gives the original for free are modeled explicitly here:
// every read or mutating accessor returns a guard with a Value (or Pair /
// Key) method and a Close method, and Close must be called (typically via
// defer) to release the lock it is holding open.
//
// © 2025 arena-cache authors. MIT License.
package sync

import stdsync "sync"

// ReadGuard holds a read lock (a SlotMap shard's, or a SlotHeap's) open for
// the lifetime of a borrowed value. Call Close (typically via defer) when done with Value.
type ReadGuard[T any] struct {
	mu  *stdsync.RWMutex
	val *T
}

// Value returns the guarded value.
func (g *ReadGuard[T]) Value() *T { return g.val }

// Close releases the read lock. It must be called exactly once.
func (g *ReadGuard[T]) Close() { g.mu.RUnlock() }

// WriteGuard holds a write lock (a SlotMap shard's, or a SlotHeap's) open
// for the lifetime of a borrowed value. Call Close (typically via defer) when done with Value.
type WriteGuard[T any] struct {
	mu  *stdsync.RWMutex
	val *T
}

// Value returns the guarded value.
func (g *WriteGuard[T]) Value() *T { return g.val }

// Close releases the write lock. It must be called exactly once.
func (g *WriteGuard[T]) Close() { g.mu.Unlock() }
