package hotkey

import (
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/keyforge/keyforge/internal/hook"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func keyDown(key string) hook.Event { return hook.Event{Kind: hook.KeyDown, Key: key} }
func keyUp(key string) hook.Event   { return hook.Event{Kind: hook.KeyUp, Key: key} }

func waitForCount(t *testing.T, c *atomic.Int32, want int32) {
	t.Helper()
	deadline := time.After(time.Second)
	for c.Load() != want {
		select {
		case <-deadline:
			t.Fatalf("count = %d, want %d", c.Load(), want)
		default:
			time.Sleep(time.Millisecond)
		}
	}
}

func TestRegister_Duplicate(t *testing.T) {
	m := NewManager(testLogger())
	if err := m.Register("ctrl+f6", func() {}); err != nil {
		t.Fatal(err)
	}
	// Same chord in a different spelling is still a duplicate.
	err := m.Register("control+f6", func() {})
	if !errors.Is(err, ErrDuplicateHotkey) {
		t.Errorf("err = %v, want ErrDuplicateHotkey", err)
	}
}

func TestRegister_InvalidSpec(t *testing.T) {
	m := NewManager(testLogger())
	if err := m.Register("ctrl+", func() {}); !errors.Is(err, ErrInvalidCombo) {
		t.Errorf("err = %v, want ErrInvalidCombo", err)
	}
	if err := m.Register("ctrl+f6", nil); err == nil {
		t.Error("expected error for nil callback")
	}
}

func TestHandleEvent_ChordFires(t *testing.T) {
	m := NewManager(testLogger())
	var fired atomic.Int32
	if err := m.Register("ctrl+f6", func() { fired.Add(1) }); err != nil {
		t.Fatal(err)
	}

	if m.HandleEvent(keyDown("ctrl")) {
		t.Error("modifier press must not be claimed")
	}
	if !m.HandleEvent(keyDown("f6")) {
		t.Error("triggering key-down must be claimed")
	}
	waitForCount(t, &fired, 1)

	if !m.HandleEvent(keyUp("f6")) {
		t.Error("matching key-up must be claimed")
	}
	if m.HandleEvent(keyUp("ctrl")) {
		t.Error("modifier release must not be claimed")
	}
}

func TestHandleEvent_AutoRepeatFiresOnce(t *testing.T) {
	m := NewManager(testLogger())
	var fired atomic.Int32
	if err := m.Register("ctrl+f8", func() { fired.Add(1) }); err != nil {
		t.Fatal(err)
	}

	m.HandleEvent(keyDown("ctrl"))
	for i := 0; i < 5; i++ {
		if !m.HandleEvent(keyDown("f8")) {
			t.Errorf("repeat %d must still be claimed", i)
		}
	}
	m.HandleEvent(keyUp("f8"))
	m.HandleEvent(keyUp("ctrl"))

	waitForCount(t, &fired, 1)
}

func TestHandleEvent_RefiresAfterRelease(t *testing.T) {
	m := NewManager(testLogger())
	var fired atomic.Int32
	if err := m.Register("ctrl+f6", func() { fired.Add(1) }); err != nil {
		t.Fatal(err)
	}

	m.HandleEvent(keyDown("ctrl"))
	m.HandleEvent(keyDown("f6"))
	m.HandleEvent(keyUp("f6"))
	m.HandleEvent(keyDown("f6"))
	m.HandleEvent(keyUp("f6"))
	m.HandleEvent(keyUp("ctrl"))

	waitForCount(t, &fired, 2)
}

func TestHandleEvent_WrongModifiersDoNotFire(t *testing.T) {
	m := NewManager(testLogger())
	var fired atomic.Int32
	if err := m.Register("ctrl+alt+f6", func() { fired.Add(1) }); err != nil {
		t.Fatal(err)
	}

	// Only ctrl held.
	m.HandleEvent(keyDown("ctrl"))
	if m.HandleEvent(keyDown("f6")) {
		t.Error("partial chord must not be claimed")
	}
	m.HandleEvent(keyUp("f6"))
	m.HandleEvent(keyUp("ctrl"))

	if fired.Load() != 0 {
		t.Errorf("fired = %d, want 0", fired.Load())
	}
}

func TestHandleEvent_ModifierReleasedBeforeKey(t *testing.T) {
	m := NewManager(testLogger())
	var fired atomic.Int32
	if err := m.Register("ctrl+f6", func() { fired.Add(1) }); err != nil {
		t.Fatal(err)
	}

	m.HandleEvent(keyDown("ctrl"))
	m.HandleEvent(keyDown("f6"))
	// Ctrl released while f6 is still held: the pending key-up is still
	// part of the chord and must be claimed.
	m.HandleEvent(keyUp("ctrl"))
	if !m.HandleEvent(keyUp("f6")) {
		t.Error("key-up after modifier release must still be claimed")
	}
	waitForCount(t, &fired, 1)
}

func TestHandleEvent_IgnoresMouseEvents(t *testing.T) {
	m := NewManager(testLogger())
	if err := m.Register("ctrl+f6", func() {}); err != nil {
		t.Fatal(err)
	}
	if m.HandleEvent(hook.Event{Kind: hook.MouseDown, Button: "left"}) {
		t.Error("mouse events must never be claimed")
	}
}

func TestClearAndRebind(t *testing.T) {
	m := NewManager(testLogger())
	if err := m.Register("ctrl+f6", func() {}); err != nil {
		t.Fatal(err)
	}
	m.Clear()
	if len(m.Bindings()) != 0 {
		t.Errorf("bindings = %d, want 0 after Clear", len(m.Bindings()))
	}
	// Rebinding the same chord after Clear must succeed.
	if err := m.Register("ctrl+f6", func() {}); err != nil {
		t.Errorf("rebind after clear: %v", err)
	}
}

func TestUnregister(t *testing.T) {
	m := NewManager(testLogger())
	var fired atomic.Int32
	if err := m.Register("ctrl+f6", func() { fired.Add(1) }); err != nil {
		t.Fatal(err)
	}
	m.Unregister("ctrl+f6")

	m.HandleEvent(keyDown("ctrl"))
	if m.HandleEvent(keyDown("f6")) {
		t.Error("unregistered chord must not be claimed")
	}
	if fired.Load() != 0 {
		t.Errorf("fired = %d, want 0", fired.Load())
	}
}
