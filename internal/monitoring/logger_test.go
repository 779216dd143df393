package monitoring

import (
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

	// nil installs a no-op logger that never panics and never calls back.
	called = false
	SetLogger(nil)
	Logf("test message")
	if called {
		t.Error("no-op logger should not have triggered the callback")
	}
}

func TestLogfDefault(t *testing.T) {
	if Logf == nil {
		t.Fatal("Logf should not be nil by default")
	}
}

func TestDebugfGating(t *testing.T) {
	original := Logf
	defer func() {
		Logf = original
		SetDebug(false)
	}()

	var messages []string
	SetLogger(func(format string, v ...interface{}) {
		messages = append(messages, format)
	})

	SetDebug(false)
	Debugf("dropped packet %d", 1)
	if len(messages) != 0 {
		t.Errorf("Debugf should be silent when disabled, got %d messages", len(messages))
	}

	SetDebug(true)
	Debugf("dropped packet %d", 2)
	if len(messages) != 1 {
		t.Fatalf("Debugf should log when enabled, got %d messages", len(messages))
	}
}
