package profile

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/1broseidon/evepreview/internal/hotkeys"
	"github.com/1broseidon/evepreview/internal/registry"
)

// ErrProfileInvalid is wrapped by every validation failure.
var ErrProfileInvalid = errors.New("invalid profile")

// Source is where a config value was written.
type Source struct {
	File   string
	Line   int
	Column int
}

// ValidationError names the offending config path. Source is filled in by
// the loader when the value came from a file.
type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() []error {
	return []error{ErrProfileInvalid, e.Err}
}

func invalid(path string, format string, args ...any) error {
	return &ValidationError{Path: path, Err: fmt.Errorf(format, args...)}
}

// Validate checks the whole config, including that every profile's binding
// table resolves without ambiguity.
func (c *Config) Validate() error {
	if err := c.Global.validate(); err != nil {
		return err
	}
	if len(c.Profiles) == 0 {
		return invalid("profiles", "at least one profile is required")
	}

	names := make(map[string]bool, len(c.Profiles))
	for i := range c.Profiles {
		p := &c.Profiles[i]
		path := fmt.Sprintf("profiles[%d]", i)
		if strings.TrimSpace(p.Name) == "" {
			return invalid(path+".name", "name is required")
		}
		if names[p.Name] {
			return invalid(path+".name", "duplicate profile name %q", p.Name)
		}
		names[p.Name] = true
		if err := p.validate(path); err != nil {
			return err
		}
	}
	if c.Global.SelectedProfile != "" && !names[c.Global.SelectedProfile] {
		return invalid("global.selected_profile", "unknown profile %q", c.Global.SelectedProfile)
	}

	for i := range c.Profiles {
		if _, err := c.Table(c.Profiles[i].Name); err != nil {
			var verr *ValidationError
			if errors.As(err, &verr) {
				return verr
			}
			return &ValidationError{Path: fmt.Sprintf("profiles[%d]", i), Err: err}
		}
	}
	return nil
}

func (s *Settings) validate() error {
	switch s.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return invalid("global.log_level", "log_level must be one of: debug, info, warn, error")
	}
	switch s.HotkeyBackend {
	case "x11", "evdev":
	default:
		return invalid("global.hotkey_backend", "hotkey_backend must be one of: x11, evdev")
	}
	if strings.TrimSpace(s.InputDevice) == "" {
		return invalid("global.input_device", "input_device must be all, auto or a /dev/input/by-id name")
	}
	if strings.Contains(s.InputDevice, "/") {
		return invalid("global.input_device", "input_device must be a name under /dev/input/by-id, not a path")
	}
	if s.Capture.IntervalMS <= 0 {
		return invalid("global.capture.interval_ms", "interval_ms must be > 0")
	}
	if s.Capture.Workers <= 0 {
		return invalid("global.capture.workers", "workers must be > 0")
	}
	if s.Capture.TimeoutMS <= 0 {
		return invalid("global.capture.timeout_ms", "timeout_ms must be > 0")
	}
	if s.Capture.BackgroundDivisor <= 0 {
		return invalid("global.capture.background_divisor", "background_divisor must be > 0")
	}
	if _, err := registry.NewMatcher(s.Matching.matcherConfig()); err != nil {
		return invalid("global.matching.title_pattern", "%v", err)
	}
	return nil
}

// MatcherConfig converts the matching settings for the registry.
func (s *Settings) MatcherConfig() registry.MatcherConfig {
	return s.Matching.matcherConfig()
}

// MatcherConfig is the global matching plus the selected profile's custom
// windows.
func (c *Config) MatcherConfig() registry.MatcherConfig {
	mc := c.Global.MatcherConfig()
	if p := c.Selected(); p != nil {
		mc.Custom = p.CustomRules()
	}
	return mc
}

func (m MatchSettings) matcherConfig() registry.MatcherConfig {
	return registry.MatcherConfig{
		TitlePattern:   m.TitlePattern,
		LoggedOutTitle: m.LoggedOutTitle,
		Classes:        append([]string(nil), m.WindowClasses...),
	}
}

func (p *Profile) validate(path string) error {
	t := p.Thumbnail
	if t.Width <= 0 || t.Height <= 0 {
		return invalid(path+".thumbnail", "width and height must be > 0")
	}
	if t.Opacity < 0 || t.Opacity > 100 {
		return invalid(path+".thumbnail.opacity", "opacity must be between 0 and 100")
	}
	if t.BorderSize < 0 {
		return invalid(path+".thumbnail.border_size", "border_size must be >= 0")
	}
	colors := []struct{ field, value string }{
		{"border_color", t.BorderColor},
		{"inactive_border_color", t.InactiveBorderColor},
		{"label_color", t.LabelColor},
	}
	for _, c := range colors {
		if c.value == "" {
			continue
		}
		if _, err := ParseColor(c.value); err != nil {
			return invalid(path+".thumbnail."+c.field, "%v", err)
		}
	}
	if p.SnapThreshold < 0 {
		return invalid(path+".snap_threshold", "snap_threshold must be >= 0")
	}
	switch p.ZOrder {
	case ZOrderMRU, ZOrderFixed:
	default:
		return invalid(path+".z_order", "z_order must be one of: mru, fixed")
	}
	if _, err := registry.ParseDuplicatePolicy(p.DuplicatePolicy); err != nil {
		return invalid(path+".duplicate_policy", "%v", err)
	}

	groups := make(map[string]bool, len(p.CycleGroups))
	for i, g := range p.CycleGroups {
		gpath := fmt.Sprintf("%s.cycle_groups[%d]", path, i)
		if strings.TrimSpace(g.Name) == "" {
			return invalid(gpath+".name", "name is required")
		}
		if groups[g.Name] {
			return invalid(gpath+".name", "duplicate cycle group %q", g.Name)
		}
		groups[g.Name] = true
		seen := make(map[string]bool, len(g.Characters))
		for _, c := range g.Characters {
			if strings.TrimSpace(c) == "" {
				return invalid(gpath+".characters", "character names must not be empty")
			}
			if seen[c] {
				return invalid(gpath+".characters", "character %q listed twice", c)
			}
			seen[c] = true
		}
	}
	for character, pos := range p.ThumbnailPositions {
		if pos.Width < 0 || pos.Height < 0 {
			return invalid(path+".thumbnail_positions."+character, "width and height must be >= 0")
		}
	}
	aliases := make(map[string]bool, len(p.CustomWindows))
	for i, cw := range p.CustomWindows {
		cpath := fmt.Sprintf("%s.custom_windows[%d]", path, i)
		if err := cw.rule().Validate(); err != nil {
			return invalid(cpath, "%v", err)
		}
		alias := strings.TrimSpace(cw.Alias)
		if aliases[alias] {
			return invalid(cpath+".alias", "duplicate alias %q", alias)
		}
		aliases[alias] = true
	}
	return nil
}

// ParseColor parses "#RRGGBB" or "#RRGGBBAA".
func ParseColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 && len(hex) != 8 {
		return color.RGBA{}, fmt.Errorf("color %q must be #RRGGBB or #RRGGBBAA", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("color %q: %w", s, err)
	}
	if len(hex) == 6 {
		v = v<<8 | 0xff
	}
	return color.RGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// Bindings lists the chord bindings in force while profile name is active:
// its own group, character and toggle hotkeys plus every profile's switch
// hotkey.
func (c *Config) Bindings(name string) ([]hotkeys.Binding, error) {
	p, ok := c.Profile(name)
	if !ok {
		return nil, invalid("global.selected_profile", "unknown profile %q", name)
	}
	var idx int
	for i := range c.Profiles {
		if c.Profiles[i].Name == name {
			idx = i
		}
	}
	path := fmt.Sprintf("profiles[%d]", idx)

	var out []hotkeys.Binding
	add := func(field string, h Hotkey, a hotkeys.Action) error {
		if h.IsZero() {
			return nil
		}
		chord, err := h.Chord()
		if err != nil {
			return invalid(field, "%v", err)
		}
		out = append(out, hotkeys.Binding{Chord: chord, Action: a})
		return nil
	}

	for i, other := range c.Profiles {
		field := fmt.Sprintf("profiles[%d].hotkeys.switch", i)
		if err := add(field, other.Hotkeys.Switch, hotkeys.Action{Kind: hotkeys.ActionSwitchProfile, Profile: other.Name}); err != nil {
			return nil, err
		}
	}
	for i, g := range p.CycleGroups {
		gpath := fmt.Sprintf("%s.cycle_groups[%d]", path, i)
		if err := add(gpath+".hotkey_forward", g.Forward, hotkeys.Action{Kind: hotkeys.ActionCycleNext, Group: g.Name}); err != nil {
			return nil, err
		}
		if err := add(gpath+".hotkey_backward", g.Backward, hotkeys.Action{Kind: hotkeys.ActionCyclePrev, Group: g.Name}); err != nil {
			return nil, err
		}
	}
	for _, character := range sortedKeys(p.CharacterHotkeys) {
		field := path + ".character_hotkeys." + character
		if err := add(field, p.CharacterHotkeys[character], hotkeys.Action{Kind: hotkeys.ActionJumpTo, Character: character}); err != nil {
			return nil, err
		}
	}
	if err := add(path+".hotkeys.toggle_skip", p.Hotkeys.ToggleSkip, hotkeys.Action{Kind: hotkeys.ActionToggleSkip}); err != nil {
		return nil, err
	}
	if err := add(path+".hotkeys.toggle_previews", p.Hotkeys.TogglePreviews, hotkeys.Action{Kind: hotkeys.ActionTogglePreviews}); err != nil {
		return nil, err
	}
	return out, nil
}

// Table builds the resolved binding table for profile name. Ambiguous
// chords are reported as a ValidationError wrapping both ErrProfileInvalid
// and hotkeys.ErrAmbiguousBinding.
func (c *Config) Table(name string) (*hotkeys.Table, error) {
	bindings, err := c.Bindings(name)
	if err != nil {
		return nil, err
	}
	table, err := hotkeys.NewTable(bindings)
	if err != nil {
		path := "profiles"
		for i := range c.Profiles {
			if c.Profiles[i].Name == name {
				path = fmt.Sprintf("profiles[%d]", i)
			}
		}
		return nil, &ValidationError{Path: path, Err: err}
	}
	return table, nil
}
