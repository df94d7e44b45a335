package hotkeys

import (
	"fmt"
	"strings"
)

// Key names are X keysym names ("Tab", "F1", "a"); mouse buttons are
// "Button1".."Button9". The evdev backend maps kernel key codes onto the
// same names so a chord means the same thing on either backend.

// evdevKeyNames maps linux input-event-codes to key names.
var evdevKeyNames = map[uint16]string{
	1: "Escape",
	2: "1", 3: "2", 4: "3", 5: "4", 6: "5", 7: "6", 8: "7", 9: "8", 10: "9", 11: "0",
	12: "minus", 13: "equal", 14: "BackSpace", 15: "Tab",
	16: "q", 17: "w", 18: "e", 19: "r", 20: "t", 21: "y", 22: "u", 23: "i", 24: "o", 25: "p",
	26: "bracketleft", 27: "bracketright", 28: "Return",
	30: "a", 31: "s", 32: "d", 33: "f", 34: "g", 35: "h", 36: "j", 37: "k", 38: "l",
	39: "semicolon", 40: "apostrophe", 41: "grave", 43: "backslash",
	44: "z", 45: "x", 46: "c", 47: "v", 48: "b", 49: "n", 50: "m",
	51: "comma", 52: "period", 53: "slash", 57: "space", 58: "Caps_Lock",
	59: "F1", 60: "F2", 61: "F3", 62: "F4", 63: "F5", 64: "F6", 65: "F7", 66: "F8", 67: "F9", 68: "F10",
	87: "F11", 88: "F12",
	102: "Home", 103: "Up", 104: "Prior", 105: "Left", 106: "Right", 107: "End", 108: "Down", 109: "Next",
	110: "Insert", 111: "Delete",
	0x110: "Button1", 0x111: "Button3", 0x112: "Button2", 0x113: "Button8", 0x114: "Button9",
}

// evdevModifiers maps modifier key codes to the modifier they hold.
var evdevModifiers = map[uint16]Modifier{
	29:  ModCtrl,
	97:  ModCtrl,
	42:  ModShift,
	54:  ModShift,
	56:  ModAlt,
	100: ModAlt,
	125: ModSuper,
	126: ModSuper,
}

// evdevKeyTab identifies keyboards during device detection.
const evdevKeyTab = 15

// keyAliases maps lower-cased spellings, including evdev KEY_/BTN_ names with
// the prefix stripped, to canonical key names.
var keyAliases = map[string]string{
	"esc":        "Escape",
	"enter":      "Return",
	"backspace":  "BackSpace",
	"pageup":     "Prior",
	"pagedown":   "Next",
	"dot":        "period",
	"leftbrace":  "bracketleft",
	"rightbrace": "bracketright",
	"capslock":   "Caps_Lock",
	"btn_left":   "Button1",
	"btn_right":  "Button3",
	"btn_middle": "Button2",
	"btn_side":   "Button8",
	"btn_extra":  "Button9",
	"mouse4":     "Button8",
	"mouse5":     "Button9",
}

// modifierNames maps lower-cased modifier spellings to modifiers.
var modifierNames = map[string]Modifier{
	"shift":          ModShift,
	"key_leftshift":  ModShift,
	"key_rightshift": ModShift,
	"ctrl":           ModCtrl,
	"control":        ModCtrl,
	"key_leftctrl":   ModCtrl,
	"key_rightctrl":  ModCtrl,
	"alt":            ModAlt,
	"mod1":           ModAlt,
	"key_leftalt":    ModAlt,
	"key_rightalt":   ModAlt,
	"super":          ModSuper,
	"mod4":           ModSuper,
	"win":            ModSuper,
	"meta":           ModSuper,
	"key_leftmeta":   ModSuper,
	"key_rightmeta":  ModSuper,
}

var canonicalKeys = func() map[string]string {
	out := make(map[string]string, len(evdevKeyNames)+len(keyAliases))
	for _, name := range evdevKeyNames {
		out[strings.ToLower(name)] = name
	}
	for alias, name := range keyAliases {
		out[alias] = name
	}
	for i := 1; i <= 9; i++ {
		name := fmt.Sprintf("Button%d", i)
		out[strings.ToLower(name)] = name
	}
	return out
}()

// canonicalKey normalizes a key token. Unknown names are passed through
// unchanged so any X keysym can still be bound on the x11 backend.
func canonicalKey(token string) (string, error) {
	t := strings.TrimSpace(token)
	if t == "" {
		return "", fmt.Errorf("empty key name")
	}
	lower := strings.ToLower(t)
	if name, ok := canonicalKeys[lower]; ok {
		return name, nil
	}
	if strings.HasPrefix(lower, "key_") {
		if name, ok := canonicalKeys[strings.TrimPrefix(lower, "key_")]; ok {
			return name, nil
		}
		return "", fmt.Errorf("unknown evdev key %q", t)
	}
	if strings.HasPrefix(lower, "btn_") {
		return "", fmt.Errorf("unknown evdev button %q", t)
	}
	return t, nil
}

// mouseButton returns the X button number of a "ButtonN" key.
func mouseButton(key string) (int, bool) {
	var n int
	if _, err := fmt.Sscanf(key, "Button%d", &n); err != nil || n < 1 || n > 9 {
		return 0, false
	}
	return n, true
}
