package profile

import (
	"errors"
	"testing"
)

func twoProfileConfig() *Config {
	cfg := DefaultConfig()
	pvp := DefaultProfile("pvp")
	pvp.CycleGroups[0].Forward = Hotkey{"F5"}
	pvp.CycleGroups[0].Backward = Hotkey{"shift+F5"}
	cfg.Profiles = append(cfg.Profiles, pvp)
	return cfg
}

func TestStoreSelect(t *testing.T) {
	s, err := NewStore(twoProfileConfig())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	var seen []string
	s.Subscribe(func(c *Config, change Change) {
		if change != ChangeSelection {
			t.Errorf("Select announced change %d", change)
		}
		seen = append(seen, c.Global.SelectedProfile)
	})

	if err := s.Select("pvp"); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if s.ActiveName() != "pvp" {
		t.Fatalf("ActiveName() = %s", s.ActiveName())
	}
	if err := s.Select("pvp"); err != nil {
		t.Fatalf("reselect: %v", err)
	}
	if len(seen) != 1 || seen[0] != "pvp" {
		t.Fatalf("subscribers saw %v, want one change to pvp", seen)
	}
	if err := s.Select("nope"); !errors.Is(err, ErrProfileInvalid) {
		t.Fatalf("Select(unknown) = %v, want ErrProfileInvalid", err)
	}
}

func TestStoreSetPosition(t *testing.T) {
	s, err := NewStore(nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	saves := 0
	s.Subscribe(func(_ *Config, change Change) {
		if change == ChangePosition {
			saves++
		}
	})

	pos := Position{X: 100, Y: 40}
	if !s.SetPosition("Alpha", pos) {
		t.Fatalf("SetPosition should persist with auto_save_position on")
	}
	s.SetPosition("Alpha", pos)
	if saves != 1 {
		t.Fatalf("unchanged position should not notify; saves = %d", saves)
	}
	if got, ok := s.Position("Alpha"); !ok || got != pos {
		t.Fatalf("Position(Alpha) = %+v, %v", got, ok)
	}

	cfg := s.Config()
	cfg.Profiles[0].AutoSavePosition = false
	if err := s.Replace(cfg); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if s.SetPosition("Bravo", pos) {
		t.Fatalf("SetPosition should be refused with auto_save_position off")
	}
}

func TestStoreReplaceKeepsActiveProfile(t *testing.T) {
	s, err := NewStore(twoProfileConfig())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := s.Select("pvp"); err != nil {
		t.Fatal(err)
	}

	if err := s.Replace(twoProfileConfig()); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if s.ActiveName() != "pvp" {
		t.Fatalf("active profile after reload = %s, want pvp", s.ActiveName())
	}

	if err := s.Replace(DefaultConfig()); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if s.ActiveName() != DefaultProfileName {
		t.Fatalf("active profile after its removal = %s", s.ActiveName())
	}

	bad := DefaultConfig()
	bad.Global.LogLevel = "loud"
	if err := s.Replace(bad); !errors.Is(err, ErrProfileInvalid) {
		t.Fatalf("Replace(invalid) = %v", err)
	}
	if s.Settings().LogLevel != DefaultLogLevel {
		t.Fatalf("invalid reload must keep the previous config")
	}
}

func TestStoreThumbnailsToggle(t *testing.T) {
	s, err := NewStore(nil)
	if err != nil {
		t.Fatal(err)
	}
	s.SetThumbnailsEnabled(false)
	if s.Settings().ThumbnailsEnabled {
		t.Fatalf("thumbnails still enabled")
	}
}
