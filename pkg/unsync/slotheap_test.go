package unsync

import "testing"

func TestSlotHeapBasicOrdering(t *testing.T) {
	h := NewSlotHeap[int, string]()
	a := h.Insert(3, "three")
	h.Insert(1, "one")
	h.Insert(2, "two")

	k, v, ok := h.Pop()
	if !ok || k != 1 || v != "one" {
		t.Fatalf("pop() = %d, %q, %v; want 1, one, true", k, v, ok)
	}
	k, v, ok = h.Pop()
	if !ok || k != 2 || v != "two" {
		t.Fatalf("pop() = %d, %q, %v; want 2, two, true", k, v, ok)
	}
	k, v, ok = h.Remove(a)
	if !ok || k != 3 || v != "three" {
		t.Fatalf("remove(a) = %d, %q, %v; want 3, three, true", k, v, ok)
	}
	if h.Len() != 0 {
		t.Fatalf("len = %d; want 0", h.Len())
	}
}

func TestSlotHeapDuplicateKeysTieBreakByID(t *testing.T) {
	h := NewSlotHeap[int, string]()
	h.Insert(5, "a")
	h.Insert(5, "b")
	h.Insert(5, "c")
	h.Insert(1, "d")

	k, v, _ := h.Pop()
	if k != 1 || v != "d" {
		t.Fatalf("first pop = %d, %q; want 1, d", k, v)
	}
	var got []string
	for i := 0; i < 3; i++ {
		k, v, ok := h.Pop()
		if !ok || k != 5 {
			t.Fatalf("pop() = %d, %v; want key 5", k, ok)
		}
		got = append(got, v)
	}
	want := []string{"a", "b", "c"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("popped values = %v; want %v", got, want)
		}
	}
}

func TestSlotHeapPopProducesNonDecreasingSequence(t *testing.T) {
	h := NewSlotHeap[int, int]()
	keys := []int{5, 1, 9, 3, 7, 2, 8, 4, 6, 0}
	for _, k := range keys {
		h.Insert(k, k)
	}
	prev := -1
	for {
		k, _, ok := h.Pop()
		if !ok {
			break
		}
		if k < prev {
			t.Fatalf("pop sequence not non-decreasing: %d after %d", k, prev)
		}
		prev = k
	}
}

func TestSlotHeapRefKeyMutReheapifies(t *testing.T) {
	h := NewSlotHeap[int, int]()
	var ids []int
	for i := 0; i < 10; i++ {
		ids = append(ids, h.Insert(i, i))
	}
	mid := ids[5]
	g, ok := h.GetKeyMut(mid)
	if !ok {
		t.Fatalf("get_key_mut should find a live id")
	}
	*g.Key() = -1
	g.Close()

	k, _ := h.PeekKey()
	if *k != -1 {
		t.Fatalf("peek_key = %d; want -1 after mutation", *k)
	}
	prev := -2
	for {
		k, _, ok := h.Pop()
		if !ok {
			break
		}
		if k < prev {
			t.Fatalf("pop sequence not non-decreasing after mutation: %d after %d", k, prev)
		}
		prev = k
	}
}

func TestSlotHeapValueMutDoesNotReorder(t *testing.T) {
	h := NewSlotHeap[int, int]()
	var ids []int
	for i := 0; i < 10; i++ {
		ids = append(ids, h.Insert(i, i*100))
	}

	g, ok := h.GetValueMut(ids[3])
	if !ok {
		t.Fatalf("get_value_mut should find a live id")
	}
	*g = 999999

	for i := 0; i < 10; i++ {
		k, _, ok := h.Pop()
		if !ok || k != i {
			t.Fatalf("pop %d = %d, %v; want %d, true (keys unchanged by value mutation)", i, k, ok, i)
		}
	}
}

func TestSlotHeapPeekMutRemove(t *testing.T) {
	h := NewSlotHeap[int, string]()
	h.Insert(1, "a")
	h.Insert(2, "b")

	g, ok := h.PeekMut()
	if !ok {
		t.Fatalf("peek_mut should find a root entry")
	}
	k, v := g.Remove()
	g.Close()
	if k != 1 || v != "a" {
		t.Fatalf("peek_mut.remove() = %d, %q; want 1, a", k, v)
	}
	if h.Len() != 1 {
		t.Fatalf("len = %d; want 1", h.Len())
	}
}

func TestSlotHeapClear(t *testing.T) {
	h := NewSlotHeap[int, int]()
	for i := 0; i < 5; i++ {
		h.Insert(i, i)
	}
	h.Clear()
	if !h.IsEmpty() || h.Len() != 0 {
		t.Fatalf("expected empty heap after clear")
	}
	if _, _, ok := h.Pop(); ok {
		t.Fatalf("pop on cleared heap should fail")
	}
}
