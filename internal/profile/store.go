package profile

import (
	"fmt"
	"sort"
	"sync"
)

// Change tells subscribers which part of the config an update touched.
type Change int

const (
	ChangeSelection Change = iota
	ChangeThumbnails
	ChangePosition
)

// Store owns the live configuration. Readers get copies; every change is
// validated first and then announced to subscribers, which is how thumbnail
// positions find their way back to the config file.
type Store struct {
	mu          sync.RWMutex
	cfg         *Config
	subscribers []func(*Config, Change)
}

// NewStore validates cfg and wraps it.
func NewStore(cfg *Config) (*Store, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.Clone()
	if cfg.Global.SelectedProfile == "" {
		cfg.Global.SelectedProfile = cfg.Profiles[0].Name
	}
	return &Store{cfg: cfg}, nil
}

// Subscribe registers fn to receive a copy of the config after each change.
func (s *Store) Subscribe(fn func(*Config, Change)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// Config returns a copy of the current config.
func (s *Store) Config() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Clone()
}

// Settings returns the global settings.
func (s *Store) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.cfg.Global
	out.Matching.WindowClasses = append([]string(nil), s.cfg.Global.Matching.WindowClasses...)
	return out
}

// ActiveName returns the selected profile's name.
func (s *Store) ActiveName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Selected().Name
}

// Active returns a copy of the selected profile.
func (s *Store) Active() Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Selected().Clone()
}

// Select makes name the active profile.
func (s *Store) Select(name string) error {
	s.mu.Lock()
	if _, ok := s.cfg.Profile(name); !ok {
		s.mu.Unlock()
		return invalid("global.selected_profile", "unknown profile %q", name)
	}
	if s.cfg.Global.SelectedProfile == name {
		s.mu.Unlock()
		return nil
	}
	s.cfg.Global.SelectedProfile = name
	s.notifyUnlock(ChangeSelection)
	return nil
}

// Replace swaps in a reloaded config. The active profile is kept when the new
// config still has it.
func (s *Store) Replace(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	next := cfg.Clone()

	s.mu.Lock()
	if _, ok := next.Profile(s.cfg.Global.SelectedProfile); ok {
		next.Global.SelectedProfile = s.cfg.Global.SelectedProfile
	}
	if next.Global.SelectedProfile == "" {
		next.Global.SelectedProfile = next.Profiles[0].Name
	}
	s.cfg = next
	s.mu.Unlock()
	return nil
}

// Position returns the saved thumbnail position for a character in the active
// profile.
func (s *Store) Position(character string) (Position, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pos, ok := s.cfg.Selected().ThumbnailPositions[character]
	return pos, ok
}

// SetPosition records a thumbnail position in the active profile. It reports
// false, and changes nothing, when the profile does not auto-save positions.
func (s *Store) SetPosition(character string, pos Position) bool {
	s.mu.Lock()
	p := s.cfg.Selected()
	if !p.AutoSavePosition || character == "" {
		s.mu.Unlock()
		return false
	}
	if cur, ok := p.ThumbnailPositions[character]; ok && cur == pos {
		s.mu.Unlock()
		return true
	}
	if p.ThumbnailPositions == nil {
		p.ThumbnailPositions = make(map[string]Position)
	}
	p.ThumbnailPositions[character] = pos
	s.notifyUnlock(ChangePosition)
	return true
}

// SetThumbnailsEnabled toggles thumbnails globally.
func (s *Store) SetThumbnailsEnabled(on bool) {
	s.mu.Lock()
	if s.cfg.Global.ThumbnailsEnabled == on {
		s.mu.Unlock()
		return
	}
	s.cfg.Global.ThumbnailsEnabled = on
	s.notifyUnlock(ChangeThumbnails)
}

// notifyUnlock releases s.mu and then calls subscribers with a copy.
func (s *Store) notifyUnlock(change Change) {
	snapshot := s.cfg.Clone()
	subs := append(([]func(*Config, Change))(nil), s.subscribers...)
	s.mu.Unlock()
	for _, fn := range subs {
		fn(snapshot, change)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String summarizes a profile for logs and the CLI.
func (p Profile) String() string {
	return fmt.Sprintf("%s (%d groups, %d character hotkeys)", p.Name, len(p.CycleGroups), len(p.CharacterHotkeys))
}
