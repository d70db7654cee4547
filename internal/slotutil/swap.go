// Package slotutil holds the small slice-surgery helpers used by the
// unsync slot map and slot heap: swapping two elements in place (the slot
// map's SwapUnchecked), and the swap-remove trick (move the last element
// into a hole, shrink by one) that the slot heap uses to delete without
// shifting everything after the hole.
//
// © 2025 arena-cache authors. MIT License.
package slotutil

// Swap exchanges the elements at i and j. Both indices must be in range.
func Swap[T any](s []T, i, j int) {
	s[i], s[j] = s[j], s[i]
}

// SwapRemove deletes the element at i by moving the last element of *s into
// its place and shrinking the slice by one, returning the value that was at
// i. *s must be non-empty and i must be in range. Order is not preserved.
func SwapRemove[T any](s *[]T, i int) T {
	old := *s
	last := len(old) - 1
	v := old[i]
	old[i] = old[last]
	var zero T
	old[last] = zero
	*s = old[:last]
	return v
}
