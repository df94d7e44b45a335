package registry

import (
	"time"

	"github.com/1broseidon/evepreview/internal/platform"
)

// Status is the lifecycle status of a registry entry.
type Status int

const (
	// StatusLive is the canonical window for its character.
	StatusLive Status = iota
	// StatusStale is an open window shadowed by another window showing the
	// same character. It is never cycled and has no thumbnail.
	StatusStale
	// StatusGhost is a closed window retained so its character's history
	// can be rebound when it logs in again.
	StatusGhost
)

// String returns the string representation of the status
func (s Status) String() string {
	switch s {
	case StatusLive:
		return "live"
	case StatusStale:
		return "stale"
	case StatusGhost:
		return "ghost"
	default:
		return "unknown"
	}
}

// ManagedWindow is a client window matched to a character.
type ManagedWindow struct {
	ID        platform.WindowID
	Title     string
	Character string
	Bounds    platform.Rect
	LastSeen  time.Time
	LoggedOff bool
	Status    Status

	Minimized        bool
	OnCurrentDesktop bool

	// Custom marks a window admitted by a custom rule; Character is then
	// the rule's alias, numbered when several windows share it.
	Custom bool
	// ThumbWidth and ThumbHeight are the custom rule's thumbnail size, zero
	// when the profile's applies.
	ThumbWidth  int
	ThumbHeight int

	alias string
	seq   uint64
}

// Snapshot is an immutable view of the registry. Windows are in registration
// order and include stale and ghost entries.
type Snapshot struct {
	Version uint64
	Windows []ManagedWindow
	Active  platform.WindowID

	byID        map[platform.WindowID]int
	byCharacter map[string]int
}

func newSnapshot(version uint64, windows []ManagedWindow, active platform.WindowID) *Snapshot {
	s := &Snapshot{
		Version:     version,
		Windows:     windows,
		Active:      active,
		byID:        make(map[platform.WindowID]int, len(windows)),
		byCharacter: make(map[string]int, len(windows)),
	}
	for i, w := range windows {
		if w.Status != StatusGhost {
			s.byID[w.ID] = i
		}
		if w.Status == StatusLive {
			s.byCharacter[w.Character] = i
		}
	}
	return s
}

// Live returns the canonical open windows in registration order.
func (s *Snapshot) Live() []ManagedWindow {
	if s == nil {
		return nil
	}
	out := make([]ManagedWindow, 0, len(s.byCharacter))
	for _, w := range s.Windows {
		if w.Status == StatusLive {
			out = append(out, w)
		}
	}
	return out
}

// Lookup returns the open (live or stale) window with the given id.
func (s *Snapshot) Lookup(id platform.WindowID) (ManagedWindow, bool) {
	if s == nil {
		return ManagedWindow{}, false
	}
	i, ok := s.byID[id]
	if !ok {
		return ManagedWindow{}, false
	}
	return s.Windows[i], true
}

// Canonical returns the live window for a character.
func (s *Snapshot) Canonical(character string) (ManagedWindow, bool) {
	if s == nil {
		return ManagedWindow{}, false
	}
	i, ok := s.byCharacter[character]
	if !ok {
		return ManagedWindow{}, false
	}
	return s.Windows[i], true
}

// ActiveCharacter returns the character of the focused managed window.
func (s *Snapshot) ActiveCharacter() (string, bool) {
	w, ok := s.Lookup(s.Active)
	if !ok || w.Status != StatusLive {
		return "", false
	}
	return w.Character, true
}

// Eligible returns the characters that may take part in a cycle. Logged-off
// windows are included only when includeLoggedOff is set.
func (s *Snapshot) Eligible(includeLoggedOff bool) map[string]bool {
	out := make(map[string]bool)
	for _, w := range s.Live() {
		if w.LoggedOff && !includeLoggedOff {
			continue
		}
		out[w.Character] = true
	}
	return out
}
