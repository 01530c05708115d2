//go:build cgo

package desktop

import (
	"fmt"

	"github.com/go-vgo/robotgo"
)

// Injector posts synthetic input through robotgo.
type Injector struct{}

// NewInjector creates the robotgo-backed injector.
func NewInjector() *Injector {
	return &Injector{}
}

func (in *Injector) KeyDown(key string) error {
	if err := robotgo.KeyToggle(key, "down"); err != nil {
		return fmt.Errorf("key down %q: %w", key, err)
	}
	return nil
}

func (in *Injector) KeyUp(key string) error {
	if err := robotgo.KeyToggle(key, "up"); err != nil {
		return fmt.Errorf("key up %q: %w", key, err)
	}
	return nil
}

func (in *Injector) TypeText(text string) error {
	robotgo.TypeStr(text)
	return nil
}

func (in *Injector) Click(x, y int, button string, double bool) error {
	if button == "" {
		button = "left"
	}
	robotgo.Move(x, y)
	robotgo.Click(button, double)
	return nil
}

func (in *Injector) MoveMouse(x, y int) error {
	robotgo.Move(x, y)
	return nil
}

func (in *Injector) Scroll(dx, dy int) error {
	robotgo.Scroll(dx, dy)
	return nil
}
