package config

import (
	"github.com/1broseidon/evepreview/internal/profile"
)

// BuildEffectiveConfig applies raw on top of the built-in defaults. A file
// without profiles gets the default profile.
func BuildEffectiveConfig(raw RawConfig) *profile.Config {
	cfg := &profile.Config{Global: profile.DefaultSettings()}

	if g := raw.Global; g != nil {
		s := &cfg.Global
		if g.SelectedProfile != nil {
			s.SelectedProfile = *g.SelectedProfile
		}
		if g.LogLevel != nil {
			s.LogLevel = *g.LogLevel
		}
		if g.LogFile != nil {
			s.LogFile = *g.LogFile
		}
		if g.HotkeyBackend != nil {
			s.HotkeyBackend = *g.HotkeyBackend
		}
		if g.InputDevice != nil {
			s.InputDevice = *g.InputDevice
		}
		if g.ThumbnailsEnabled != nil {
			s.ThumbnailsEnabled = *g.ThumbnailsEnabled
		}
		if c := g.Capture; c != nil {
			setInt(&s.Capture.IntervalMS, c.IntervalMS)
			setInt(&s.Capture.Workers, c.Workers)
			setInt(&s.Capture.TimeoutMS, c.TimeoutMS)
			setInt(&s.Capture.BackgroundDivisor, c.BackgroundDivisor)
		}
		if m := g.Matching; m != nil {
			setString(&s.Matching.TitlePattern, m.TitlePattern)
			setString(&s.Matching.LoggedOutTitle, m.LoggedOutTitle)
			if m.WindowClasses != nil {
				s.Matching.WindowClasses = append([]string(nil), m.WindowClasses...)
			}
		}
	}

	if len(raw.Profiles) == 0 {
		cfg.Profiles = []profile.Profile{profile.DefaultProfile(profile.DefaultProfileName)}
		if raw.Global == nil || raw.Global.SelectedProfile == nil {
			cfg.Global.SelectedProfile = profile.DefaultProfileName
		}
		return cfg
	}

	cfg.Profiles = make([]profile.Profile, 0, len(raw.Profiles))
	for _, rp := range raw.Profiles {
		cfg.Profiles = append(cfg.Profiles, buildProfile(rp))
	}
	if raw.Global == nil || raw.Global.SelectedProfile == nil {
		cfg.Global.SelectedProfile = cfg.Profiles[0].Name
	}
	return cfg
}

func buildProfile(rp RawProfile) profile.Profile {
	p := profile.DefaultProfile(rp.Name)
	setString(&p.Description, rp.Description)

	if t := rp.Thumbnail; t != nil {
		setInt(&p.Thumbnail.Width, t.Width)
		setInt(&p.Thumbnail.Height, t.Height)
		setInt(&p.Thumbnail.Opacity, t.Opacity)
		setInt(&p.Thumbnail.BorderSize, t.BorderSize)
		setString(&p.Thumbnail.BorderColor, t.BorderColor)
		setString(&p.Thumbnail.InactiveBorderColor, t.InactiveBorderColor)
		setBool(&p.Thumbnail.ShowLabel, t.ShowLabel)
		setString(&p.Thumbnail.LabelColor, t.LabelColor)
		setInt(&p.Thumbnail.LabelOffsetX, t.LabelOffsetX)
		setInt(&p.Thumbnail.LabelOffsetY, t.LabelOffsetY)
	}
	setInt(&p.SnapThreshold, rp.SnapThreshold)
	setString(&p.ZOrder, rp.ZOrder)
	setString(&p.DuplicatePolicy, rp.DuplicatePolicy)

	setBool(&p.KeepLoggedOff, rp.KeepLoggedOff)
	setBool(&p.IncludeLoggedOff, rp.IncludeLoggedOff)
	setBool(&p.AutoMinimizeInactive, rp.AutoMinimizeInactive)
	setBool(&p.PreservePositionOnSwap, rp.PreservePositionOnSwap)
	setBool(&p.AutoSavePosition, rp.AutoSavePosition)
	setBool(&p.HideWhenNoFocus, rp.HideWhenNoFocus)
	setBool(&p.RequireFocus, rp.RequireFocus)

	if h := rp.Hotkeys; h != nil {
		if h.ToggleSkip != nil {
			p.Hotkeys.ToggleSkip = *h.ToggleSkip
		}
		if h.TogglePreviews != nil {
			p.Hotkeys.TogglePreviews = *h.TogglePreviews
		}
		if h.Switch != nil {
			p.Hotkeys.Switch = *h.Switch
		}
	}
	if rp.CycleGroups != nil {
		p.CycleGroups = rp.CycleGroups
	}
	for k, v := range rp.CharacterHotkeys {
		p.CharacterHotkeys[k] = v
	}
	for k, v := range rp.ThumbnailPositions {
		p.ThumbnailPositions[k] = v
	}
	p.CustomWindows = rp.CustomWindows
	return p.Clone()
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}
