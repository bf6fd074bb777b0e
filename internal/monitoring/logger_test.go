package monitoring

import (
	"fmt"
	"testing"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) {
		called = true
	})
	Logf("test message")
	if !called {
		t.Error("custom logger was not called")
	}

	SetLogger(nil)
	// no-op logger must not panic
	Logf("test message %d", 1)
}

func TestDiagf(t *testing.T) {
	original := Logf
	defer func() {
		Logf = original
		SetDiagnostics(false)
	}()

	var lines []string
	SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, v...))
	})

	Diagf("dropped sample %s", "a")
	if len(lines) != 0 {
		t.Fatalf("diagnostics are off by default, got %v", lines)
	}

	SetDiagnostics(true)
	Diagf("dropped sample %s", "b")
	if len(lines) != 1 || lines[0] != "[diag] dropped sample b" {
		t.Fatalf("unexpected diagnostics output %v", lines)
	}
}
