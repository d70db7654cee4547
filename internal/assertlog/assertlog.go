// Package assertlog is the process-wide sink for debug-only precondition
// warnings raised by the "_unchecked" family of operations. It is only
// ever consulted when the slotdebug build tag is set; in ordinary builds
// the call sites compile away to nothing, so there is no hot-path cost.
//
// © 2025 arena-cache authors. MIT License.
package assertlog

import "go.uber.org/zap"

var logger = zap.NewNop()

// SetLogger installs l as the sink for subsequent Warn calls. Passing nil
// restores the no-op logger.
func SetLogger(l *zap.Logger) {
	if l == nil {
		logger = zap.NewNop()
		return
	}
	logger = l
}

// Warn records a contract violation observed by an unchecked operation.
// Call sites are expected to continue executing afterward: a spec-compliant
// build never turns this into an error or a panic.
func Warn(msg string, fields ...zap.Field) {
	logger.Warn(msg, fields...)
}
