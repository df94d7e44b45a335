package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/1broseidon/evepreview/internal/profile"
)

// IncludeList supports either:
//
//	include: "/path/to/profiles.yaml"
//
// or:
//
//	include:
//	  - "/path/to/file.yaml"
//	  - "/path/to/dir"
type IncludeList []string

func (l *IncludeList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case 0:
		*l = nil
		return nil
	case yaml.ScalarNode:
		if value.Tag != "!!str" {
			return fmt.Errorf("include must be a string or list of strings")
		}
		*l = []string{value.Value}
		return nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(value.Content))
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode || item.Tag != "!!str" {
				return fmt.Errorf("include entries must be strings")
			}
			out = append(out, item.Value)
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("include must be a string or list of strings")
	}
}

// Raw types mirror the file layout with pointer fields so that an absent key
// keeps its default while an explicit zero overrides it.

type RawCapture struct {
	IntervalMS        *int `yaml:"interval_ms"`
	Workers           *int `yaml:"workers"`
	TimeoutMS         *int `yaml:"timeout_ms"`
	BackgroundDivisor *int `yaml:"background_divisor"`
}

type RawMatching struct {
	TitlePattern   *string  `yaml:"title_pattern"`
	LoggedOutTitle *string  `yaml:"logged_out_title"`
	WindowClasses  []string `yaml:"window_classes"`
}

type RawSettings struct {
	SelectedProfile   *string      `yaml:"selected_profile"`
	LogLevel          *string      `yaml:"log_level"`
	LogFile           *string      `yaml:"log_file"`
	HotkeyBackend     *string      `yaml:"hotkey_backend"`
	InputDevice       *string      `yaml:"input_device"`
	ThumbnailsEnabled *bool        `yaml:"thumbnails_enabled"`
	Capture           *RawCapture  `yaml:"capture"`
	Matching          *RawMatching `yaml:"matching"`
}

type RawThumbnail struct {
	Width               *int    `yaml:"width"`
	Height              *int    `yaml:"height"`
	Opacity             *int    `yaml:"opacity"`
	BorderSize          *int    `yaml:"border_size"`
	BorderColor         *string `yaml:"border_color"`
	InactiveBorderColor *string `yaml:"inactive_border_color"`
	ShowLabel           *bool   `yaml:"show_label"`
	LabelColor          *string `yaml:"label_color"`
	LabelOffsetX        *int    `yaml:"label_offset_x"`
	LabelOffsetY        *int    `yaml:"label_offset_y"`
}

type RawProfileHotkeys struct {
	ToggleSkip     *profile.Hotkey `yaml:"toggle_skip"`
	TogglePreviews *profile.Hotkey `yaml:"toggle_previews"`
	Switch         *profile.Hotkey `yaml:"switch"`
}

type RawProfile struct {
	Name        string        `yaml:"name"`
	Description *string       `yaml:"description"`
	Thumbnail   *RawThumbnail `yaml:"thumbnail"`

	SnapThreshold   *int    `yaml:"snap_threshold"`
	ZOrder          *string `yaml:"z_order"`
	DuplicatePolicy *string `yaml:"duplicate_policy"`

	KeepLoggedOff          *bool `yaml:"keep_logged_off"`
	IncludeLoggedOff       *bool `yaml:"include_logged_off"`
	AutoMinimizeInactive   *bool `yaml:"auto_minimize_inactive"`
	PreservePositionOnSwap *bool `yaml:"preserve_position_on_swap"`
	AutoSavePosition       *bool `yaml:"auto_save_position"`
	HideWhenNoFocus        *bool `yaml:"hide_when_no_focus"`
	RequireFocus           *bool `yaml:"require_focus"`

	Hotkeys            *RawProfileHotkeys          `yaml:"hotkeys"`
	CycleGroups        []profile.CycleGroup        `yaml:"cycle_groups"`
	CharacterHotkeys   map[string]profile.Hotkey   `yaml:"character_hotkeys"`
	ThumbnailPositions map[string]profile.Position `yaml:"thumbnail_positions"`
	CustomWindows      []profile.CustomWindow      `yaml:"custom_windows"`
}

type RawConfig struct {
	Include  IncludeList  `yaml:"include"`
	Global   *RawSettings `yaml:"global"`
	Profiles []RawProfile `yaml:"profiles"`
}

// merge layers overlay on top of c. Profiles are matched by name; new names
// are appended in overlay order.
func (c RawConfig) merge(overlay RawConfig) RawConfig {
	out := c

	if overlay.Global != nil {
		if out.Global == nil {
			out.Global = &RawSettings{}
		}
		g := *out.Global
		o := overlay.Global
		if o.SelectedProfile != nil {
			g.SelectedProfile = o.SelectedProfile
		}
		if o.LogLevel != nil {
			g.LogLevel = o.LogLevel
		}
		if o.LogFile != nil {
			g.LogFile = o.LogFile
		}
		if o.HotkeyBackend != nil {
			g.HotkeyBackend = o.HotkeyBackend
		}
		if o.InputDevice != nil {
			g.InputDevice = o.InputDevice
		}
		if o.ThumbnailsEnabled != nil {
			g.ThumbnailsEnabled = o.ThumbnailsEnabled
		}
		if o.Capture != nil {
			g.Capture = mergeRawCapture(g.Capture, o.Capture)
		}
		if o.Matching != nil {
			g.Matching = mergeRawMatching(g.Matching, o.Matching)
		}
		out.Global = &g
	}

	if overlay.Profiles != nil {
		profiles := append([]RawProfile(nil), out.Profiles...)
		for _, op := range overlay.Profiles {
			merged := false
			for i := range profiles {
				if profiles[i].Name == op.Name {
					profiles[i] = mergeRawProfile(profiles[i], op)
					merged = true
					break
				}
			}
			if !merged {
				profiles = append(profiles, op)
			}
		}
		out.Profiles = profiles
	}

	return out
}

func mergeRawCapture(base, overlay *RawCapture) *RawCapture {
	out := RawCapture{}
	if base != nil {
		out = *base
	}
	if overlay.IntervalMS != nil {
		out.IntervalMS = overlay.IntervalMS
	}
	if overlay.Workers != nil {
		out.Workers = overlay.Workers
	}
	if overlay.TimeoutMS != nil {
		out.TimeoutMS = overlay.TimeoutMS
	}
	if overlay.BackgroundDivisor != nil {
		out.BackgroundDivisor = overlay.BackgroundDivisor
	}
	return &out
}

func mergeRawMatching(base, overlay *RawMatching) *RawMatching {
	out := RawMatching{}
	if base != nil {
		out = *base
	}
	if overlay.TitlePattern != nil {
		out.TitlePattern = overlay.TitlePattern
	}
	if overlay.LoggedOutTitle != nil {
		out.LoggedOutTitle = overlay.LoggedOutTitle
	}
	if overlay.WindowClasses != nil {
		out.WindowClasses = overlay.WindowClasses
	}
	return &out
}

func mergeRawThumbnail(base, overlay *RawThumbnail) *RawThumbnail {
	out := RawThumbnail{}
	if base != nil {
		out = *base
	}
	if overlay.Width != nil {
		out.Width = overlay.Width
	}
	if overlay.Height != nil {
		out.Height = overlay.Height
	}
	if overlay.Opacity != nil {
		out.Opacity = overlay.Opacity
	}
	if overlay.BorderSize != nil {
		out.BorderSize = overlay.BorderSize
	}
	if overlay.BorderColor != nil {
		out.BorderColor = overlay.BorderColor
	}
	if overlay.InactiveBorderColor != nil {
		out.InactiveBorderColor = overlay.InactiveBorderColor
	}
	if overlay.ShowLabel != nil {
		out.ShowLabel = overlay.ShowLabel
	}
	if overlay.LabelColor != nil {
		out.LabelColor = overlay.LabelColor
	}
	if overlay.LabelOffsetX != nil {
		out.LabelOffsetX = overlay.LabelOffsetX
	}
	if overlay.LabelOffsetY != nil {
		out.LabelOffsetY = overlay.LabelOffsetY
	}
	return &out
}

func mergeRawProfile(base, overlay RawProfile) RawProfile {
	out := base
	if overlay.Description != nil {
		out.Description = overlay.Description
	}
	if overlay.Thumbnail != nil {
		out.Thumbnail = mergeRawThumbnail(base.Thumbnail, overlay.Thumbnail)
	}
	if overlay.SnapThreshold != nil {
		out.SnapThreshold = overlay.SnapThreshold
	}
	if overlay.ZOrder != nil {
		out.ZOrder = overlay.ZOrder
	}
	if overlay.DuplicatePolicy != nil {
		out.DuplicatePolicy = overlay.DuplicatePolicy
	}
	for _, f := range []struct{ dst **bool; src *bool }{
		{&out.KeepLoggedOff, overlay.KeepLoggedOff},
		{&out.IncludeLoggedOff, overlay.IncludeLoggedOff},
		{&out.AutoMinimizeInactive, overlay.AutoMinimizeInactive},
		{&out.PreservePositionOnSwap, overlay.PreservePositionOnSwap},
		{&out.AutoSavePosition, overlay.AutoSavePosition},
		{&out.HideWhenNoFocus, overlay.HideWhenNoFocus},
		{&out.RequireFocus, overlay.RequireFocus},
	} {
		if f.src != nil {
			*f.dst = f.src
		}
	}
	if overlay.Hotkeys != nil {
		h := RawProfileHotkeys{}
		if base.Hotkeys != nil {
			h = *base.Hotkeys
		}
		if overlay.Hotkeys.ToggleSkip != nil {
			h.ToggleSkip = overlay.Hotkeys.ToggleSkip
		}
		if overlay.Hotkeys.TogglePreviews != nil {
			h.TogglePreviews = overlay.Hotkeys.TogglePreviews
		}
		if overlay.Hotkeys.Switch != nil {
			h.Switch = overlay.Hotkeys.Switch
		}
		out.Hotkeys = &h
	}
	if overlay.CycleGroups != nil {
		out.CycleGroups = overlay.CycleGroups
	}
	if overlay.CharacterHotkeys != nil {
		m := make(map[string]profile.Hotkey, len(base.CharacterHotkeys)+len(overlay.CharacterHotkeys))
		for k, v := range base.CharacterHotkeys {
			m[k] = v
		}
		for k, v := range overlay.CharacterHotkeys {
			m[k] = v
		}
		out.CharacterHotkeys = m
	}
	if overlay.ThumbnailPositions != nil {
		m := make(map[string]profile.Position, len(base.ThumbnailPositions)+len(overlay.ThumbnailPositions))
		for k, v := range base.ThumbnailPositions {
			m[k] = v
		}
		for k, v := range overlay.ThumbnailPositions {
			m[k] = v
		}
		out.ThumbnailPositions = m
	}
	if overlay.CustomWindows != nil {
		out.CustomWindows = overlay.CustomWindows
	}
	return out
}
