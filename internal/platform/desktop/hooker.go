//go:build cgo

package desktop

import (
	"fmt"
	"strings"
	"sync"

	gohook "github.com/robotn/gohook"

	"github.com/keyforge/keyforge/internal/hook"
)

// Hooker adapts gohook's global event tap to the hook.Backend contract.
// gohook owns its dispatch thread; the translate goroutine is the only code
// running on our side of that boundary and it does nothing but convert and
// forward, keeping time inside the OS pipeline bounded.
type Hooker struct {
	mu      sync.Mutex
	out     chan hook.Event
	started bool
}

// NewHooker creates the gohook-backed input hook.
func NewHooker() *Hooker {
	return &Hooker{}
}

func (h *Hooker) StartHook() (<-chan hook.Event, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.started {
		return nil, fmt.Errorf("gohook already started")
	}

	raw := gohook.Start()
	if raw == nil {
		return nil, fmt.Errorf("gohook start returned no event channel")
	}

	h.out = make(chan hook.Event, 256)
	h.started = true
	go h.translate(raw, h.out)
	return h.out, nil
}

func (h *Hooker) StopHook() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.started {
		return nil
	}
	gohook.End()
	h.started = false
	return nil
}

// translate converts gohook events and forwards them until gohook closes
// its channel (which End triggers).
func (h *Hooker) translate(raw chan gohook.Event, out chan<- hook.Event) {
	defer close(out)
	for ev := range raw {
		converted, ok := convertEvent(ev)
		if !ok {
			continue
		}
		out <- converted
	}
}

func convertEvent(ev gohook.Event) (hook.Event, bool) {
	switch ev.Kind {
	case gohook.KeyDown, gohook.KeyHold:
		return hook.Event{
			Kind: hook.KeyDown,
			Key:  keyName(ev),
			Raw:  ev.Rawcode,
			When: ev.When,
		}, true
	case gohook.KeyUp:
		return hook.Event{
			Kind: hook.KeyUp,
			Key:  keyName(ev),
			Raw:  ev.Rawcode,
			When: ev.When,
		}, true
	case gohook.MouseDown:
		return hook.Event{
			Kind:   hook.MouseDown,
			Button: buttonName(ev.Button),
			X:      int(ev.X),
			Y:      int(ev.Y),
			When:   ev.When,
		}, true
	case gohook.MouseUp:
		return hook.Event{
			Kind:   hook.MouseUp,
			Button: buttonName(ev.Button),
			X:      int(ev.X),
			Y:      int(ev.Y),
			When:   ev.When,
		}, true
	case gohook.MouseMove, gohook.MouseDrag:
		return hook.Event{
			Kind: hook.MouseMove,
			X:    int(ev.X),
			Y:    int(ev.Y),
			When: ev.When,
		}, true
	case gohook.MouseWheel:
		// gohook reports a single rotation value; horizontal wheels are rare
		// enough that everything is treated as the vertical axis.
		return hook.Event{
			Kind: hook.MouseWheel,
			DY:   int(ev.Rotation),
			X:    int(ev.X),
			Y:    int(ev.Y),
			When: ev.When,
		}, true
	default:
		return hook.Event{}, false
	}
}

// keyName resolves a canonical lowercase key name for the event, preferring
// gohook's rawcode table and falling back to the reported character.
func keyName(ev gohook.Event) string {
	if name := gohook.RawcodetoKeychar(ev.Rawcode); name != "" {
		return strings.ToLower(name)
	}
	if ev.Keychar != 0 && ev.Keychar != 65535 {
		return strings.ToLower(string(ev.Keychar))
	}
	return fmt.Sprintf("raw-%d", ev.Rawcode)
}

func buttonName(b uint16) string {
	switch b {
	case 2:
		return "right"
	case 3:
		return "middle"
	default:
		return "left"
	}
}
