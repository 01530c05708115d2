// Package hook delivers system-level keyboard and mouse events to
// subscribers without polling. The OS-specific backend pushes events into a
// channel; the manager fans them out to subscribers over bounded channels so
// no subscriber can stall the OS dispatch pipeline.
package hook

import (
	"errors"
	"time"
)

// DeviceClass is a bitmask of input device classes a hook session covers.
type DeviceClass uint8

const (
	DeviceKeyboard DeviceClass = 1 << iota
	DeviceMouse
)

// String returns a readable form like "keyboard|mouse".
func (c DeviceClass) String() string {
	switch {
	case c&DeviceKeyboard != 0 && c&DeviceMouse != 0:
		return "keyboard|mouse"
	case c&DeviceKeyboard != 0:
		return "keyboard"
	case c&DeviceMouse != 0:
		return "mouse"
	default:
		return "none"
	}
}

// EventKind identifies the type of input transition.
type EventKind uint8

const (
	KeyDown EventKind = iota + 1
	KeyUp
	MouseDown
	MouseUp
	MouseMove
	MouseWheel
)

// Class returns the device class an event kind belongs to.
func (k EventKind) Class() DeviceClass {
	if k == KeyDown || k == KeyUp {
		return DeviceKeyboard
	}
	return DeviceMouse
}

// Event is one observed input transition. Events are observed, not
// intercepted: delivery never suppresses the event system-wide.
type Event struct {
	Kind   EventKind
	Key    string // canonical key name for KeyDown/KeyUp
	Raw    uint16 // platform key code, informational
	Button string // "left", "right", "middle" for MouseDown/MouseUp
	X, Y   int
	DX, DY int // wheel deltas for MouseWheel
	When   time.Time
}

// Backend is the platform-level hook. StartHook registers the OS hook and
// returns a channel the backend closes when the hook is torn down. At most
// one hook may be active per process; the Manager enforces that above.
type Backend interface {
	StartHook() (<-chan Event, error)
	StopHook() error
}

var (
	// ErrHookActive is returned when a session for a requested device class
	// already exists in this process.
	ErrHookActive = errors.New("hook already active")

	// ErrHookRegistration is returned when the underlying platform call to
	// install the hook is rejected.
	ErrHookRegistration = errors.New("hook registration failed")
)
