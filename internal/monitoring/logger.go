// Package monitoring holds the replaceable diagnostic logger shared by the
// pipeline, the store and the HTTP layer.
package monitoring

import (
	"log"
	"sync/atomic"
)

// Logf is the package-level logger. It defaults to log.Printf and may be
// replaced by SetLogger so tests can capture or mute output.
var Logf func(format string, v ...interface{}) = log.Printf

var diagnostics atomic.Bool

// SetLogger replaces the package logger. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetDiagnostics toggles per-sample diagnostics such as dropped or repaired
// samples. They are off by default because a noisy device can produce one per
// sample.
func SetDiagnostics(on bool) {
	diagnostics.Store(on)
}

// Diagf logs a per-sample diagnostic when diagnostics are enabled.
func Diagf(format string, v ...interface{}) {
	if !diagnostics.Load() {
		return
	}
	Logf("[diag] "+format, v...)
}
