package platform

import (
	"image"

	"github.com/keyforge/keyforge/internal/hook"
)

// Injector posts synthetic keyboard and mouse events to the OS.
type Injector interface {
	KeyDown(key string) error
	KeyUp(key string) error
	TypeText(text string) error
	Click(x, y int, button string, double bool) error
	MoveMouse(x, y int) error
	Scroll(dx, dy int) error
}

// Screenshotter captures screen content for image matching.
type Screenshotter interface {
	// CaptureScreen captures the full primary display.
	CaptureScreen() (image.Image, error)

	// CaptureRegion captures the given screen rectangle.
	CaptureRegion(x, y, w, h int) (image.Image, error)
}

// Hooker is the platform-level input hook backend consumed by the hook
// manager.
type Hooker = hook.Backend
