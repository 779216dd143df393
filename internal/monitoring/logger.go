// Package monitoring provides the swappable diagnostic loggers used by the
// library packages so tests and embedders can redirect or mute output.
package monitoring

import (
	"log"
	"sync/atomic"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but
// may be replaced by SetLogger. Tests or production code can redirect or mute
// it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

var debugEnabled atomic.Bool

// SetDebug toggles per-packet debug logging. Off by default; the dispatcher
// calls Debugf for every rejected message, which is far too chatty for normal
// operation.
func SetDebug(enabled bool) {
	debugEnabled.Store(enabled)
}

// Debugf logs through Logf only when debug logging is enabled.
func Debugf(format string, v ...interface{}) {
	if debugEnabled.Load() {
		Logf("debug: "+format, v...)
	}
}
