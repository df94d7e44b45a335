package hotkeys

import "testing"

func TestParseChord(t *testing.T) {
	tests := []struct {
		in   string
		want Chord
	}{
		{"Tab", Chord{Key: "Tab"}},
		{"ctrl+shift+Tab", Chord{Mods: ModCtrl | ModShift, Key: "Tab"}},
		{"Control+tab", Chord{Mods: ModCtrl, Key: "Tab"}},
		{"super+F1", Chord{Mods: ModSuper, Key: "F1"}},
		{"alt+A", Chord{Mods: ModAlt, Key: "a"}},
		{"ctrl++", Chord{Mods: ModCtrl, Key: "plus"}},
		{"mouse4", Chord{Key: "Button8"}},
		{" shift + esc ", Chord{Mods: ModShift, Key: "Escape"}},
		{"XF86AudioPlay", Chord{Key: "XF86AudioPlay"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseChord(tt.in)
			if err != nil {
				t.Fatalf("ParseChord(%q) error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Fatalf("ParseChord(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseChordErrors(t *testing.T) {
	for _, in := range []string{"", "ctrl", "ctrl+shift", "a+b", "ctrl++a", "KEY_NOSUCHKEY", "BTN_NOPE"} {
		t.Run(in, func(t *testing.T) {
			if _, err := ParseChord(in); err == nil {
				t.Fatalf("ParseChord(%q) expected error", in)
			}
		})
	}
}

func TestParseChordKeysEvdevNames(t *testing.T) {
	got, err := ParseChordKeys([]string{"KEY_LEFTSHIFT", "KEY_TAB"})
	if err != nil {
		t.Fatalf("ParseChordKeys error: %v", err)
	}
	want := Chord{Mods: ModShift, Key: "Tab"}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}

	got, err = ParseChordKeys([]string{"KEY_RIGHTCTRL", "BTN_SIDE"})
	if err != nil {
		t.Fatalf("ParseChordKeys error: %v", err)
	}
	if got.Mods != ModCtrl || got.Key != "Button8" || !got.IsButton() {
		t.Fatalf("got %+v, want ctrl+Button8", got)
	}
}

func TestChordString(t *testing.T) {
	c := Chord{Mods: ModSuper | ModShift | ModAlt | ModCtrl, Key: "Tab"}
	if got := c.String(); got != "ctrl+alt+shift+super+Tab" {
		t.Fatalf("String() = %q", got)
	}
	back, err := ParseChord(c.String())
	if err != nil || back != c {
		t.Fatalf("ParseChord(String()) = %+v, %v", back, err)
	}
}

func TestChordXBindString(t *testing.T) {
	tests := []struct {
		chord Chord
		want  string
	}{
		{Chord{Mods: ModCtrl | ModShift, Key: "Tab"}, "Control-Shift-Tab"},
		{Chord{Mods: ModAlt | ModSuper, Key: "F1"}, "Mod1-Mod4-F1"},
		{Chord{Key: "Button9"}, "9"},
	}
	for _, tt := range tests {
		if got := tt.chord.xbindString(); got != tt.want {
			t.Fatalf("xbindString(%v) = %q, want %q", tt.chord, got, tt.want)
		}
	}
}
