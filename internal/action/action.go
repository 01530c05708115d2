package action

import (
	"fmt"
	"time"
)

// Kind discriminates the payload of an Action.
type Kind string

const (
	KindKeyDown     Kind = "key-down"
	KindKeyUp       Kind = "key-up"
	KindKeyType     Kind = "key-type"
	KindMouseMove   Kind = "mouse-move"
	KindMouseClick  Kind = "mouse-click"
	KindMouseScroll Kind = "mouse-scroll"
	KindDelay       Kind = "delay"
	KindLua         Kind = "lua"
)

// Valid reports whether k is a known action kind.
func (k Kind) Valid() bool {
	switch k {
	case KindKeyDown, KindKeyUp, KindKeyType, KindMouseMove,
		KindMouseClick, KindMouseScroll, KindDelay, KindLua:
		return true
	}
	return false
}

// Action is one discrete input event in a script. The Kind field selects
// which payload fields are meaningful; unused fields stay at their zero
// value and are omitted from JSON.
type Action struct {
	Kind   Kind          `json:"kind"`
	Offset time.Duration `json:"-"` // since recording start; serialized as offsetMs

	// key-down / key-up
	Key string `json:"key,omitempty"`

	// key-type
	Text string `json:"text,omitempty"`

	// mouse-click
	Button string `json:"button,omitempty"`
	Double bool   `json:"double,omitempty"`

	// mouse-move / mouse-click position
	X int `json:"x,omitempty"`
	Y int `json:"y,omitempty"`

	// mouse-scroll
	DX int `json:"dx,omitempty"`
	DY int `json:"dy,omitempty"`

	// delay
	Duration time.Duration `json:"-"` // serialized as durationMs

	// lua
	Code string `json:"code,omitempty"`
}

// Validate checks the kind and its required payload fields.
func (a Action) Validate() error {
	if !a.Kind.Valid() {
		return fmt.Errorf("unknown action kind %q", a.Kind)
	}
	if a.Offset < 0 {
		return fmt.Errorf("%s action: negative offset %s", a.Kind, a.Offset)
	}
	switch a.Kind {
	case KindKeyDown, KindKeyUp:
		if a.Key == "" {
			return fmt.Errorf("%s action: key is required", a.Kind)
		}
	case KindKeyType:
		if a.Text == "" {
			return fmt.Errorf("key-type action: text is required")
		}
	case KindMouseClick:
		if a.Button == "" {
			return fmt.Errorf("mouse-click action: button is required")
		}
	case KindMouseScroll:
		if a.DX == 0 && a.DY == 0 {
			return fmt.Errorf("mouse-scroll action: dx or dy must be non-zero")
		}
	case KindDelay:
		if a.Duration <= 0 {
			return fmt.Errorf("delay action: duration must be positive")
		}
	case KindLua:
		if a.Code == "" {
			return fmt.Errorf("lua action: code is required")
		}
	}
	return nil
}

// String returns a short human-readable description for logs and errors.
func (a Action) String() string {
	switch a.Kind {
	case KindKeyDown, KindKeyUp:
		return fmt.Sprintf("%s(%s)", a.Kind, a.Key)
	case KindKeyType:
		return fmt.Sprintf("key-type(%q)", a.Text)
	case KindMouseMove:
		return fmt.Sprintf("mouse-move(%d,%d)", a.X, a.Y)
	case KindMouseClick:
		return fmt.Sprintf("mouse-click(%s@%d,%d)", a.Button, a.X, a.Y)
	case KindMouseScroll:
		return fmt.Sprintf("mouse-scroll(%d,%d)", a.DX, a.DY)
	case KindDelay:
		return fmt.Sprintf("delay(%s)", a.Duration)
	case KindLua:
		return "lua"
	default:
		return string(a.Kind)
	}
}

// Constructors used by the recorder and script editing paths.

func KeyDown(key string, offset time.Duration) Action {
	return Action{Kind: KindKeyDown, Key: key, Offset: offset}
}

func KeyUp(key string, offset time.Duration) Action {
	return Action{Kind: KindKeyUp, Key: key, Offset: offset}
}

func KeyType(text string, offset time.Duration) Action {
	return Action{Kind: KindKeyType, Text: text, Offset: offset}
}

func MouseMove(x, y int, offset time.Duration) Action {
	return Action{Kind: KindMouseMove, X: x, Y: y, Offset: offset}
}

func MouseClick(button string, x, y int, double bool, offset time.Duration) Action {
	return Action{Kind: KindMouseClick, Button: button, X: x, Y: y, Double: double, Offset: offset}
}

func MouseScroll(dx, dy int, offset time.Duration) Action {
	return Action{Kind: KindMouseScroll, DX: dx, DY: dy, Offset: offset}
}

func Delay(d time.Duration, offset time.Duration) Action {
	return Action{Kind: KindDelay, Duration: d, Offset: offset}
}

func Lua(code string, offset time.Duration) Action {
	return Action{Kind: KindLua, Code: code, Offset: offset}
}
