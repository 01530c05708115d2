// Package hotkey matches global key combinations observed through the input
// hook and dispatches bound callbacks. A chord fires exactly once per
// physical press of its non-modifier key; holding the key does not refire.
package hotkey

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/keyforge/keyforge/internal/hook"
)

// ErrDuplicateHotkey is returned when registering a combination that is
// already bound.
var ErrDuplicateHotkey = errors.New("hotkey already registered")

// Manager tracks modifier state from the raw event stream and fires bound
// callbacks on chord matches. HandleEvent reports whether the event belongs
// to a matched chord so the recorder can exclude it from recordings.
type Manager struct {
	logger *slog.Logger

	mu       sync.Mutex
	bindings map[Combo]func()
	mods     Combo           // Key field unused; tracks held modifiers
	fired    map[string]bool // non-modifier keys that already fired, armed until key-up
}

// NewManager creates an empty hotkey manager.
func NewManager(logger *slog.Logger) *Manager {
	return &Manager{
		logger:   logger.With("component", "hotkey"),
		bindings: make(map[Combo]func()),
		fired:    make(map[string]bool),
	}
}

// Register binds a combination spec to a callback. Fails with
// ErrDuplicateHotkey if the combination is already bound.
func (m *Manager) Register(spec string, fn func()) error {
	combo, err := ParseCombo(spec)
	if err != nil {
		return err
	}
	if fn == nil {
		return fmt.Errorf("register %s: nil callback", combo)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.bindings[combo]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateHotkey, combo)
	}
	m.bindings[combo] = fn
	m.logger.Info("hotkey registered", "combo", combo.String())
	return nil
}

// Unregister removes a binding. Unknown or unparseable combinations are a
// no-op.
func (m *Manager) Unregister(spec string) {
	combo, err := ParseCombo(spec)
	if err != nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.bindings, combo)
}

// Clear removes all bindings. Used when hotkey configuration is reloaded.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bindings = make(map[Combo]func())
}

// Bindings returns the currently registered combinations.
func (m *Manager) Bindings() []Combo {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Combo, 0, len(m.bindings))
	for c := range m.bindings {
		out = append(out, c)
	}
	return out
}

// HandleEvent feeds one hook event through the matcher. The returned bool is
// true when the event is part of a matched chord (the triggering key-down or
// its matching key-up); such events must not be recorded. Callbacks run on
// their own goroutine so the event pipeline is never blocked.
func (m *Manager) HandleEvent(ev hook.Event) bool {
	if ev.Kind != hook.KeyDown && ev.Kind != hook.KeyUp {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if IsModifierKey(ev.Key) {
		m.setModifier(normalizeModifier(ev.Key), ev.Kind == hook.KeyDown)
		return false
	}

	switch ev.Kind {
	case hook.KeyDown:
		combo := m.mods
		combo.Key = ev.Key
		fn, bound := m.bindings[combo]
		if !bound {
			return false
		}
		if m.fired[ev.Key] {
			// Key held; auto-repeat must not refire the chord.
			return true
		}
		m.fired[ev.Key] = true
		m.logger.Debug("hotkey fired", "combo", combo.String())
		go fn()
		return true
	case hook.KeyUp:
		if m.fired[ev.Key] {
			delete(m.fired, ev.Key)
			return true
		}
	}
	return false
}

func (m *Manager) setModifier(mod string, down bool) {
	switch mod {
	case "ctrl":
		m.mods.Ctrl = down
	case "alt":
		m.mods.Alt = down
	case "shift":
		m.mods.Shift = down
	case "meta":
		m.mods.Meta = down
	}
}
