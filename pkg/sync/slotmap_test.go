package sync

import (
	"context"
	"sync/atomic"
	"testing"

	"golang.org/x/sync/errgroup"
)

func TestSlotMapWithShardsValidatesCount(t *testing.T) {
	if _, err := NewSlotMapWithShards[int](3); err == nil {
		t.Fatalf("with_num_shards(3) should fail: not a power of two")
	}
	m, err := NewSlotMapWithShards[int](4)
	if err != nil {
		t.Fatalf("with_num_shards(4) should succeed: %v", err)
	}
	if m.NumShards() != 4 {
		t.Fatalf("num_shards = %d; want 4", m.NumShards())
	}
	id := m.Insert(42)
	if v, ok := m.Get(id); !ok || *v.Value() != 42 {
		t.Fatalf("round-trip through insert/get failed")
	} else {
		v.Close()
	}
	if _, ok := m.Remove(id); !ok {
		t.Fatalf("remove should succeed on a live id")
	}
}

func TestSlotMapInsertGetRemove(t *testing.T) {
	m := NewSlotMap[int]()
	id := m.Insert(7)
	g, ok := m.Get(id)
	if !ok {
		t.Fatalf("get should find a freshly inserted id")
	}
	if *g.Value() != 7 {
		t.Fatalf("get = %d; want 7", *g.Value())
	}
	g.Close()

	wg, ok := m.GetMut(id)
	if !ok {
		t.Fatalf("get_mut should find a freshly inserted id")
	}
	*wg.Value() = 8
	wg.Close()

	g2, _ := m.Get(id)
	if *g2.Value() != 8 {
		t.Fatalf("mutation through get_mut not observed")
	}
	g2.Close()

	if _, ok := m.Remove(id); !ok {
		t.Fatalf("remove should succeed")
	}
	if m.Contains(id) {
		t.Fatalf("contains should be false after remove")
	}
}

func TestSlotMapUncheckedTwins(t *testing.T) {
	m, _ := NewSlotMapWithShards[int](4)
	a := m.Insert(1)
	b := m.Insert(2)

	g := m.GetUnchecked(a)
	if *g.Value() != 1 {
		t.Fatalf("get_unchecked(a) != 1")
	}
	g.Close()

	wg := m.GetMutUnchecked(b)
	*wg.Value() = 20
	wg.Close()
	if v, _ := m.Get(b); *v.Value() != 20 {
		t.Fatalf("get_mut_unchecked mutation not observed")
	} else {
		v.Close()
	}

	m.SwapUnchecked(a, b, false)
	ga, _ := m.Get(a)
	if *ga.Value() != 20 {
		t.Fatalf("swap_unchecked(a, b) did not exchange values")
	}
	ga.Close()

	if v := m.RemoveUnchecked(a); v != 20 {
		t.Fatalf("remove_unchecked(a) = %d; want 20", v)
	}
	if m.Contains(a) {
		t.Fatalf("a should not be live after remove_unchecked")
	}
}

func TestSlotMapLazyInsert(t *testing.T) {
	m := NewSlotMap[int]()
	id, li := m.LazyInsert()
	// The handle holds the shard's write lock, so only the lock-free
	// counters can be inspected before Commit.
	if m.Len() != 0 {
		t.Fatalf("reserved id should not be counted as live before commit")
	}
	li.Commit(99)
	if !m.Contains(id) {
		t.Fatalf("id should be live after commit")
	}
	g, _ := m.Get(id)
	if *g.Value() != 99 {
		t.Fatalf("get(id) = %d; want 99", *g.Value())
	}
	g.Close()

	id2, li2 := m.LazyInsert()
	li2.Discard()
	if m.Contains(id2) {
		t.Fatalf("discarded reservation should not be live")
	}
}

func TestSlotMapSwapAcrossShards(t *testing.T) {
	m, _ := NewSlotMapWithShards[string](4)
	a := m.Insert("alpha")
	b := m.Insert("beta")
	if !m.Swap(a, b, false) {
		t.Fatalf("swap should succeed on live ids")
	}
	ga, _ := m.Get(a)
	if *ga.Value() != "beta" {
		t.Fatalf("get(a) = %q; want beta", *ga.Value())
	}
	ga.Close()
	gb, _ := m.Get(b)
	if *gb.Value() != "alpha" {
		t.Fatalf("get(b) = %q; want alpha", *gb.Value())
	}
	gb.Close()
}

// TestSlotMapConcurrentInsertRemove exercises property 5/S6 from the
// testable-properties list: N goroutines each insert K distinct values and
// then remove each of their own ids; the map must be empty at quiescence
// and every remove must succeed.
func TestSlotMapConcurrentInsertRemove(t *testing.T) {
	const goroutines = 16
	const perGoroutine = 500
	m := NewSlotMap[int]()

	var g errgroup.Group
	idsCh := make(chan []int, goroutines)
	for i := 0; i < goroutines; i++ {
		base := i * perGoroutine
		g.Go(func() error {
			ids := make([]int, perGoroutine)
			for j := 0; j < perGoroutine; j++ {
				ids[j] = m.Insert(base + j)
			}
			idsCh <- ids
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("insert phase failed: %v", err)
	}
	close(idsCh)

	var allIDs [][]int
	for ids := range idsCh {
		allIDs = append(allIDs, ids)
	}
	if m.Len() != goroutines*perGoroutine {
		t.Fatalf("len = %d; want %d", m.Len(), goroutines*perGoroutine)
	}

	var removeErrs errgroup.Group
	var removed atomic.Int64
	for _, ids := range allIDs {
		ids := ids
		removeErrs.Go(func() error {
			local := int64(0)
			for _, id := range ids {
				if _, ok := m.Remove(id); ok {
					local++
				}
			}
			removed.Add(local)
			return nil
		})
	}
	if err := removeErrs.Wait(); err != nil {
		t.Fatalf("remove phase failed: %v", err)
	}
	if removed.Load() != goroutines*perGoroutine {
		t.Fatalf("successful removes = %d; want %d", removed.Load(), goroutines*perGoroutine)
	}
	if !m.IsEmpty() {
		t.Fatalf("map should be empty at quiescence")
	}
}

func TestSlotMapConcurrentSwapNoDeadlock(t *testing.T) {
	m, _ := NewSlotMapWithShards[int](8)
	var ids []int
	for i := 0; i < 64; i++ {
		ids = append(ids, m.Insert(i))
	}

	ctx, cancel := context.WithCancel(context.Background())
	var g errgroup.Group
	for w := 0; w < 8; w++ {
		w := w
		g.Go(func() error {
			for i := 0; i < 200; i++ {
				a := ids[(i+w)%len(ids)]
				b := ids[(i*7+w)%len(ids)]
				m.Swap(a, b, w%2 == 0)
				select {
				case <-ctx.Done():
					return nil
				default:
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent swap failed: %v", err)
	}
	cancel()

	if m.Len() != len(ids) {
		t.Fatalf("len = %d; want %d (swap must not lose elements)", m.Len(), len(ids))
	}
}
