package hotkey

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Combo is a parsed key combination: a modifier set plus one non-modifier
// key, e.g. ctrl+shift+f6.
type Combo struct {
	Ctrl  bool
	Alt   bool
	Shift bool
	Meta  bool
	Key   string
}

// ErrInvalidCombo is returned for combo strings that cannot be parsed.
var ErrInvalidCombo = errors.New("invalid hotkey combination")

// ParseCombo parses a combination spec like "ctrl+f6" or "ctrl+alt+r".
// Modifier names: ctrl, alt, shift, meta (aliases: control, option, cmd,
// command, super, win). The final part must be a non-modifier key name.
func ParseCombo(spec string) (Combo, error) {
	spec = strings.TrimSpace(strings.ToLower(spec))
	if spec == "" {
		return Combo{}, fmt.Errorf("%w: empty spec", ErrInvalidCombo)
	}

	var c Combo
	parts := strings.Split(spec, "+")
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return Combo{}, fmt.Errorf("%w: %q", ErrInvalidCombo, spec)
		}
		last := i == len(parts)-1
		switch p {
		case "ctrl", "control":
			c.Ctrl = true
		case "alt", "option":
			c.Alt = true
		case "shift":
			c.Shift = true
		case "meta", "cmd", "command", "super", "win":
			c.Meta = true
		default:
			if !last {
				return Combo{}, fmt.Errorf("%w: unknown modifier %q in %q", ErrInvalidCombo, p, spec)
			}
			c.Key = p
		}
		if last && c.Key == "" {
			return Combo{}, fmt.Errorf("%w: %q must end with a non-modifier key", ErrInvalidCombo, spec)
		}
	}
	return c, nil
}

// String returns the canonical form with modifiers in a fixed order, so two
// equivalent specs compare equal as strings.
func (c Combo) String() string {
	parts := make([]string, 0, 5)
	if c.Ctrl {
		parts = append(parts, "ctrl")
	}
	if c.Alt {
		parts = append(parts, "alt")
	}
	if c.Shift {
		parts = append(parts, "shift")
	}
	if c.Meta {
		parts = append(parts, "meta")
	}
	parts = append(parts, c.Key)
	return strings.Join(parts, "+")
}

// IsModifierKey reports whether a canonical key name is a modifier.
// Left/right variants fold into the plain modifier name.
func IsModifierKey(key string) bool {
	_, ok := modifierNames[normalizeModifier(key)]
	return ok
}

var modifierNames = map[string]struct{}{
	"ctrl": {}, "alt": {}, "shift": {}, "meta": {},
}

func normalizeModifier(key string) string {
	key = strings.ToLower(key)
	for _, side := range []string{"left-", "right-", "l", "r"} {
		for mod := range modifierNames {
			if key == side+mod {
				return mod
			}
		}
	}
	switch key {
	case "control":
		return "ctrl"
	case "option":
		return "alt"
	case "cmd", "command", "super", "win":
		return "meta"
	}
	return key
}

// SortedNames returns the registered combos of a manager in stable order,
// for status output.
func SortedNames(combos []Combo) []string {
	names := make([]string, len(combos))
	for i, c := range combos {
		names[i] = c.String()
	}
	sort.Strings(names)
	return names
}
