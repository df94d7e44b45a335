// Package cycle implements the hotkey focus cycle as a pure state machine.
package cycle

import (
	"errors"
	"maps"
	"slices"
)

// ErrCycleEmpty reports a cycle request against a group with no live members.
// It is informational: the transition is a no-op into Idle.
var ErrCycleEmpty = errors.New("cycle group has no live members")

// Group is an ordered list of characters.
type Group struct {
	Name    string
	Members []string
}

// Membership is the world as the engine sees it: the cycle groups of every
// profile and the characters currently eligible for focus.
type Membership struct {
	Groups map[string][]Group
	Live   map[string]bool
}

// State is either Idle or Active on one member of a group. Profile and Group
// are remembered while Idle so the next cycle starts in the right place.
type State struct {
	Profile string
	Group   string
	Active  bool
	// Index is the position of Current in the group's live member list.
	Index   int
	Current string
	// Skipped is shared between states and replaced, never mutated.
	Skipped map[string]bool
}

// Idle returns the initial state for a profile.
func Idle(profile string) State {
	return State{Profile: profile}
}

// IsSkipped reports whether a character is excluded from cycling.
func (s State) IsSkipped(character string) bool {
	return s.Skipped[character]
}

// EventKind identifies an engine input.
type EventKind int

const (
	EventCycleNext EventKind = iota
	EventCyclePrev
	EventJumpTo
	EventSwitchProfile
	EventMembershipChanged
	EventToggleSkip
	EventFocusObserved
)

// String returns the string representation of the event kind
func (k EventKind) String() string {
	switch k {
	case EventCycleNext:
		return "cycle_next"
	case EventCyclePrev:
		return "cycle_prev"
	case EventJumpTo:
		return "jump_to"
	case EventSwitchProfile:
		return "switch_profile"
	case EventMembershipChanged:
		return "membership_changed"
	case EventToggleSkip:
		return "toggle_skip"
	case EventFocusObserved:
		return "focus_observed"
	default:
		return "unknown"
	}
}

// Event is an engine input. Group selects the group for cycle events; empty
// keeps the active one.
type Event struct {
	Kind      EventKind
	Group     string
	Character string
	Profile   string
}

func Next(group string) Event { return Event{Kind: EventCycleNext, Group: group} }
func Prev(group string) Event { return Event{Kind: EventCyclePrev, Group: group} }
func JumpTo(character string) Event { return Event{Kind: EventJumpTo, Character: character} }
func SwitchProfile(profile string) Event { return Event{Kind: EventSwitchProfile, Profile: profile} }
func MembershipChanged() Event { return Event{Kind: EventMembershipChanged} }
func ToggleSkip(character string) Event { return Event{Kind: EventToggleSkip, Character: character} }
func FocusObserved(character string) Event { return Event{Kind: EventFocusObserved, Character: character} }

// Effect is what a transition asks of the outside world.
type Effect struct {
	// Focus names the character whose window should be activated.
	Focus string
	// Err is ErrCycleEmpty when a cycle request found nobody to focus.
	Err error
	// Toggled and Skipped describe a ToggleSkip outcome.
	Toggled string
	Skipped bool
}

// LiveMembers returns the eligible, unskipped members of the state's group in
// group order.
func LiveMembers(s State, m Membership) []string {
	g, ok := resolveGroup(s, "", m)
	if !ok {
		return nil
	}
	return liveMembers(g, m.Live, s.Skipped)
}

func resolveGroup(s State, name string, m Membership) (Group, bool) {
	groups := m.Groups[s.Profile]
	if len(groups) == 0 {
		return Group{}, false
	}
	if name == "" {
		name = s.Group
	}
	if name != "" {
		for _, g := range groups {
			if g.Name == name {
				return g, true
			}
		}
	}
	return groups[0], true
}

func liveMembers(g Group, live, skipped map[string]bool) []string {
	out := make([]string, 0, len(g.Members))
	for _, c := range g.Members {
		if live[c] && !skipped[c] && !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	return out
}

// neighbor walks the group's original order from character in direction dir,
// wrapping, and returns the first member present in members. character need
// not be live itself.
func neighbor(g Group, members []string, character string, dir int) (string, bool) {
	n := len(g.Members)
	if n == 0 || len(members) == 0 {
		return "", false
	}
	start := slices.Index(g.Members, character)
	if start < 0 {
		if dir > 0 {
			return members[0], true
		}
		return members[len(members)-1], true
	}
	for step := 1; step <= n; step++ {
		c := g.Members[((start+dir*step)%n+n)%n]
		if slices.Contains(members, c) {
			return c, true
		}
	}
	return "", false
}

func withSkip(skipped map[string]bool, character string, on bool) map[string]bool {
	out := maps.Clone(skipped)
	if out == nil {
		out = make(map[string]bool)
	}
	if on {
		out[character] = true
	} else {
		delete(out, character)
	}
	return out
}
