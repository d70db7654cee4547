//go:build !slotdebug

package unsync

// assertLive is a no-op unless the slotdebug build tag is set.
func assertLive[T any](m *SlotMap[T], id int) {}
