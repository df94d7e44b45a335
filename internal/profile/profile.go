// Package profile holds the user-facing configuration model: global settings,
// profiles with their cycle groups and bindings, and the validation that runs
// before any of it reaches the dispatcher or the cycle engine.
package profile

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/1broseidon/evepreview/internal/hotkeys"
	"github.com/1broseidon/evepreview/internal/registry"
)

const (
	DefaultProfileName        = "default"
	DefaultProfileDescription = "Default profile"
	DefaultGroupName          = "Default"

	DefaultThumbnailWidth  = 250
	DefaultThumbnailHeight = 140
	DefaultOpacity         = 75
	DefaultBorderSize      = 3
	DefaultBorderColor     = "#40FF00"
	DefaultLabelColor      = "#40FF00"
	DefaultLabelOffset     = 10
	DefaultSnapThreshold   = 15

	DefaultCaptureIntervalMS  = 200
	DefaultCaptureWorkers     = 4
	DefaultCaptureTimeoutMS   = 150
	DefaultBackgroundDivisor  = 5
	DefaultHotkeyBackend      = "x11"
	DefaultInputDevice        = "auto"
	DefaultLogLevel           = "info"
	DefaultZOrder             = ZOrderMRU
	DefaultDuplicatePolicyStr = string(registry.DuplicateNewest)
)

// Z-order modes.
const (
	ZOrderMRU   = "mru"
	ZOrderFixed = "fixed"
)

// Config is the whole configuration file.
type Config struct {
	Global   Settings  `yaml:"global"`
	Profiles []Profile `yaml:"profiles"`
}

// Settings apply regardless of the selected profile.
type Settings struct {
	SelectedProfile   string          `yaml:"selected_profile"`
	LogLevel          string          `yaml:"log_level"`
	LogFile           string          `yaml:"log_file,omitempty"`
	HotkeyBackend     string          `yaml:"hotkey_backend"`
	InputDevice       string          `yaml:"input_device"`
	ThumbnailsEnabled bool            `yaml:"thumbnails_enabled"`
	Capture           CaptureSettings `yaml:"capture"`
	Matching          MatchSettings   `yaml:"matching"`
}

// CaptureSettings tune the capture clock and worker pool.
type CaptureSettings struct {
	IntervalMS        int `yaml:"interval_ms"`
	Workers           int `yaml:"workers"`
	TimeoutMS         int `yaml:"timeout_ms"`
	BackgroundDivisor int `yaml:"background_divisor"`
}

// MatchSettings select which windows are clients.
type MatchSettings struct {
	TitlePattern   string   `yaml:"title_pattern"`
	LoggedOutTitle string   `yaml:"logged_out_title"`
	WindowClasses  []string `yaml:"window_classes"`
}

// Profile is one named set of groups, bindings, positions and behavior flags.
type Profile struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description,omitempty"`
	Thumbnail   ThumbnailStyle `yaml:"thumbnail"`

	SnapThreshold   int    `yaml:"snap_threshold"`
	ZOrder          string `yaml:"z_order"`
	DuplicatePolicy string `yaml:"duplicate_policy"`

	KeepLoggedOff          bool `yaml:"keep_logged_off"`
	IncludeLoggedOff       bool `yaml:"include_logged_off"`
	AutoMinimizeInactive   bool `yaml:"auto_minimize_inactive"`
	PreservePositionOnSwap bool `yaml:"preserve_position_on_swap"`
	AutoSavePosition       bool `yaml:"auto_save_position"`
	HideWhenNoFocus        bool `yaml:"hide_when_no_focus"`
	RequireFocus           bool `yaml:"require_focus"`

	Hotkeys            ProfileHotkeys      `yaml:"hotkeys"`
	CycleGroups        []CycleGroup        `yaml:"cycle_groups"`
	CharacterHotkeys   map[string]Hotkey   `yaml:"character_hotkeys,omitempty"`
	ThumbnailPositions map[string]Position `yaml:"thumbnail_positions,omitempty"`
	CustomWindows      []CustomWindow      `yaml:"custom_windows,omitempty"`
}

// CustomWindow previews a window of another application under Alias.
// Patterns are regular expressions; the class pattern is case-insensitive
// and also tried against the instance name. Limit keeps a single window.
type CustomWindow struct {
	TitlePattern string `yaml:"title_pattern,omitempty"`
	ClassPattern string `yaml:"class_pattern,omitempty"`
	Alias        string `yaml:"alias"`
	Width        int    `yaml:"default_width,omitempty"`
	Height       int    `yaml:"default_height,omitempty"`
	Limit        bool   `yaml:"limit,omitempty"`
}

// ThumbnailStyle is how every thumbnail of a profile is drawn. An empty
// InactiveBorderColor draws no border on unfocused thumbnails.
type ThumbnailStyle struct {
	Width               int    `yaml:"width"`
	Height              int    `yaml:"height"`
	Opacity             int    `yaml:"opacity"`
	BorderSize          int    `yaml:"border_size"`
	BorderColor         string `yaml:"border_color"`
	InactiveBorderColor string `yaml:"inactive_border_color,omitempty"`
	ShowLabel           bool   `yaml:"show_label"`
	LabelColor          string `yaml:"label_color"`
	LabelOffsetX        int    `yaml:"label_offset_x"`
	LabelOffsetY        int    `yaml:"label_offset_y"`
}

// ProfileHotkeys are the profile-wide bindings. Switch selects this profile
// and is active whichever profile is current.
type ProfileHotkeys struct {
	ToggleSkip     Hotkey `yaml:"toggle_skip,omitempty"`
	TogglePreviews Hotkey `yaml:"toggle_previews,omitempty"`
	Switch         Hotkey `yaml:"switch,omitempty"`
}

// CycleGroup is an ordered character list with optional bindings.
type CycleGroup struct {
	Name       string   `yaml:"name"`
	Characters []string `yaml:"characters"`
	Forward    Hotkey   `yaml:"hotkey_forward,omitempty"`
	Backward   Hotkey   `yaml:"hotkey_backward,omitempty"`
}

// Position is a saved thumbnail rectangle. Zero width or height means the
// profile's thumbnail size.
type Position struct {
	X      int `yaml:"x"`
	Y      int `yaml:"y"`
	Width  int `yaml:"width,omitempty"`
	Height int `yaml:"height,omitempty"`
}

// Hotkey is a chord written either as one string:
//
//	hotkey_forward: ctrl+Tab
//
// or as a list of key names, which suits evdev codes:
//
//	hotkey_forward: [KEY_LEFTCTRL, KEY_TAB]
type Hotkey []string

func (h *Hotkey) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case 0:
		*h = nil
		return nil
	case yaml.ScalarNode:
		if value.Tag == "!!null" || strings.TrimSpace(value.Value) == "" {
			*h = nil
			return nil
		}
		*h = Hotkey{value.Value}
		return nil
	case yaml.SequenceNode:
		out := make(Hotkey, 0, len(value.Content))
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode {
				return fmt.Errorf("hotkey keys must be strings")
			}
			out = append(out, item.Value)
		}
		*h = out
		return nil
	default:
		return fmt.Errorf("hotkey must be a string or list of key names")
	}
}

func (h Hotkey) MarshalYAML() (any, error) {
	if len(h) == 1 {
		return h[0], nil
	}
	return []string(h), nil
}

// IsZero reports an unbound hotkey.
func (h Hotkey) IsZero() bool { return len(h) == 0 }

// Chord parses the hotkey.
func (h Hotkey) Chord() (hotkeys.Chord, error) {
	switch len(h) {
	case 0:
		return hotkeys.Chord{}, fmt.Errorf("hotkey is empty")
	case 1:
		return hotkeys.ParseChord(h[0])
	default:
		return hotkeys.ParseChordKeys(h)
	}
}

func (h Hotkey) String() string {
	if len(h) == 1 {
		return h[0]
	}
	return strings.Join(h, "+")
}

// DefaultProfile returns a profile with the built-in style and one empty
// cycle group.
func DefaultProfile(name string) Profile {
	return Profile{
		Name:        name,
		Description: DefaultProfileDescription,
		Thumbnail: ThumbnailStyle{
			Width:        DefaultThumbnailWidth,
			Height:       DefaultThumbnailHeight,
			Opacity:      DefaultOpacity,
			BorderSize:   DefaultBorderSize,
			BorderColor:  DefaultBorderColor,
			ShowLabel:    true,
			LabelColor:   DefaultLabelColor,
			LabelOffsetX: DefaultLabelOffset,
			LabelOffsetY: DefaultLabelOffset,
		},
		SnapThreshold:          DefaultSnapThreshold,
		ZOrder:                 DefaultZOrder,
		DuplicatePolicy:        DefaultDuplicatePolicyStr,
		PreservePositionOnSwap: true,
		AutoSavePosition:       true,
		RequireFocus:           true,
		CycleGroups: []CycleGroup{{
			Name:     DefaultGroupName,
			Forward:  Hotkey{"ctrl+Tab"},
			Backward: Hotkey{"ctrl+shift+Tab"},
		}},
		CharacterHotkeys:   map[string]Hotkey{},
		ThumbnailPositions: map[string]Position{},
	}
}

// DefaultSettings returns the built-in global settings.
func DefaultSettings() Settings {
	return Settings{
		SelectedProfile:   DefaultProfileName,
		LogLevel:          DefaultLogLevel,
		HotkeyBackend:     DefaultHotkeyBackend,
		InputDevice:       DefaultInputDevice,
		ThumbnailsEnabled: true,
		Capture: CaptureSettings{
			IntervalMS:        DefaultCaptureIntervalMS,
			Workers:           DefaultCaptureWorkers,
			TimeoutMS:         DefaultCaptureTimeoutMS,
			BackgroundDivisor: DefaultBackgroundDivisor,
		},
		Matching: MatchSettings{
			TitlePattern:   registry.DefaultTitlePattern,
			LoggedOutTitle: registry.DefaultLoggedOutTitle,
			WindowClasses:  append([]string(nil), registry.DefaultClasses...),
		},
	}
}

// DefaultConfig returns a config with one default profile.
func DefaultConfig() *Config {
	return &Config{
		Global:   DefaultSettings(),
		Profiles: []Profile{DefaultProfile(DefaultProfileName)},
	}
}

// Profile returns the named profile.
func (c *Config) Profile(name string) (*Profile, bool) {
	for i := range c.Profiles {
		if c.Profiles[i].Name == name {
			return &c.Profiles[i], true
		}
	}
	return nil, false
}

// Selected returns the selected profile, falling back to the first one.
func (c *Config) Selected() *Profile {
	if p, ok := c.Profile(c.Global.SelectedProfile); ok {
		return p
	}
	if len(c.Profiles) == 0 {
		return nil
	}
	return &c.Profiles[0]
}

// ProfileNames lists profile names in file order.
func (c *Config) ProfileNames() []string {
	names := make([]string, 0, len(c.Profiles))
	for _, p := range c.Profiles {
		names = append(names, p.Name)
	}
	return names
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	out := &Config{Global: c.Global}
	out.Global.Matching.WindowClasses = append([]string(nil), c.Global.Matching.WindowClasses...)
	out.Profiles = make([]Profile, len(c.Profiles))
	for i, p := range c.Profiles {
		out.Profiles[i] = p.Clone()
	}
	return out
}

// Clone returns a deep copy.
func (p Profile) Clone() Profile {
	out := p
	out.Hotkeys = ProfileHotkeys{
		ToggleSkip:     append(Hotkey(nil), p.Hotkeys.ToggleSkip...),
		TogglePreviews: append(Hotkey(nil), p.Hotkeys.TogglePreviews...),
		Switch:         append(Hotkey(nil), p.Hotkeys.Switch...),
	}
	out.CycleGroups = make([]CycleGroup, len(p.CycleGroups))
	for i, g := range p.CycleGroups {
		out.CycleGroups[i] = CycleGroup{
			Name:       g.Name,
			Characters: append([]string(nil), g.Characters...),
			Forward:    append(Hotkey(nil), g.Forward...),
			Backward:   append(Hotkey(nil), g.Backward...),
		}
	}
	out.CharacterHotkeys = make(map[string]Hotkey, len(p.CharacterHotkeys))
	for k, v := range p.CharacterHotkeys {
		out.CharacterHotkeys[k] = append(Hotkey(nil), v...)
	}
	out.ThumbnailPositions = make(map[string]Position, len(p.ThumbnailPositions))
	for k, v := range p.ThumbnailPositions {
		out.ThumbnailPositions[k] = v
	}
	out.CustomWindows = append([]CustomWindow(nil), p.CustomWindows...)
	return out
}

// CustomRules converts the custom windows for the registry.
func (p *Profile) CustomRules() []registry.CustomRule {
	rules := make([]registry.CustomRule, 0, len(p.CustomWindows))
	for _, cw := range p.CustomWindows {
		rules = append(rules, cw.rule())
	}
	return rules
}

func (cw CustomWindow) rule() registry.CustomRule {
	return registry.CustomRule{
		TitlePattern: cw.TitlePattern,
		ClassPattern: cw.ClassPattern,
		Alias:        cw.Alias,
		Width:        cw.Width,
		Height:       cw.Height,
		Limit:        cw.Limit,
	}
}

// Group returns the named cycle group.
func (p *Profile) Group(name string) (CycleGroup, bool) {
	for _, g := range p.CycleGroups {
		if g.Name == name {
			return g, true
		}
	}
	return CycleGroup{}, false
}

// CharacterOrder lists every character named by the profile's groups, first
// appearance first. Fixed z-order stacks thumbnails in this order.
func (p *Profile) CharacterOrder() []string {
	seen := make(map[string]bool)
	var out []string
	for _, g := range p.CycleGroups {
		for _, c := range g.Characters {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return out
}
