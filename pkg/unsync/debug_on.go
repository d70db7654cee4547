//go:build slotdebug

package unsync

import (
	"github.com/kimhappy/deadlock/internal/assertlog"
	"go.uber.org/zap"
)

// assertLive warns (it never fails the call) when an _unchecked SlotMap
// operation is invoked with an id that is not currently live.
func assertLive[T any](m *SlotMap[T], id int) {
	if !m.Contains(id) {
		assertlog.Warn("unchecked slot map operation called on a non-live id", zap.Int("id", id))
	}
}
