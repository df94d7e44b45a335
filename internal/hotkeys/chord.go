// Package hotkeys implements the global hotkey dispatcher: chord parsing,
// the binding table, edge-triggered dispatch into a bounded action queue and
// the x11 and evdev input sources.
package hotkeys

import (
	"fmt"
	"strings"
)

// Modifier is a set of held modifier keys.
type Modifier uint8

const (
	ModShift Modifier = 1 << iota
	ModCtrl
	ModAlt
	ModSuper
)

// Chord is a modifier set plus one key.
type Chord struct {
	Mods Modifier
	Key  string
}

// ParseChord parses "ctrl+shift+Tab". Tokens are separated by '+'; all but
// one must be modifiers.
func ParseChord(s string) (Chord, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Chord{}, fmt.Errorf("empty hotkey")
	}
	// "ctrl++" binds the plus key.
	tokens := strings.Split(s, "+")
	if strings.HasSuffix(s, "++") {
		tokens = append(strings.Split(strings.TrimSuffix(s, "++"), "+"), "plus")
	}
	return ParseChordKeys(tokens)
}

// ParseChordKeys parses a chord given as separate key names, such as
// ["KEY_LEFTSHIFT", "KEY_TAB"] or ["ctrl", "F1"].
func ParseChordKeys(keys []string) (Chord, error) {
	var c Chord
	for _, raw := range keys {
		token := strings.TrimSpace(raw)
		if token == "" {
			return Chord{}, fmt.Errorf("empty key in hotkey %q", strings.Join(keys, "+"))
		}
		if mod, ok := modifierNames[strings.ToLower(token)]; ok {
			c.Mods |= mod
			continue
		}
		if c.Key != "" {
			return Chord{}, fmt.Errorf("hotkey %q has more than one non-modifier key", strings.Join(keys, "+"))
		}
		key, err := canonicalKey(token)
		if err != nil {
			return Chord{}, err
		}
		c.Key = key
	}
	if c.Key == "" {
		return Chord{}, fmt.Errorf("hotkey %q has no key", strings.Join(keys, "+"))
	}
	return c, nil
}

// String renders the chord as ParseChord accepts it.
func (c Chord) String() string {
	parts := make([]string, 0, 5)
	if c.Mods&ModCtrl != 0 {
		parts = append(parts, "ctrl")
	}
	if c.Mods&ModAlt != 0 {
		parts = append(parts, "alt")
	}
	if c.Mods&ModShift != 0 {
		parts = append(parts, "shift")
	}
	if c.Mods&ModSuper != 0 {
		parts = append(parts, "super")
	}
	parts = append(parts, c.Key)
	return strings.Join(parts, "+")
}

// IsButton reports whether the chord's key is a mouse button.
func (c Chord) IsButton() bool {
	_, ok := mouseButton(c.Key)
	return ok
}

// xbindString renders the chord in xgbutil keybind/mousebind syntax,
// e.g. "Control-Shift-Tab" or "Mod4-8".
func (c Chord) xbindString() string {
	parts := make([]string, 0, 5)
	if c.Mods&ModCtrl != 0 {
		parts = append(parts, "Control")
	}
	if c.Mods&ModAlt != 0 {
		parts = append(parts, "Mod1")
	}
	if c.Mods&ModShift != 0 {
		parts = append(parts, "Shift")
	}
	if c.Mods&ModSuper != 0 {
		parts = append(parts, "Mod4")
	}
	if n, ok := mouseButton(c.Key); ok {
		parts = append(parts, fmt.Sprint(n))
	} else {
		parts = append(parts, c.Key)
	}
	return strings.Join(parts, "-")
}
