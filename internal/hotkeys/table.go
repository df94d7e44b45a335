package hotkeys

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ActionKind identifies what a hotkey does.
type ActionKind int

const (
	ActionCycleNext ActionKind = iota
	ActionCyclePrev
	ActionJumpTo
	ActionSwitchProfile
	ActionToggleSkip
	ActionTogglePreviews
)

// String returns the string representation of the action kind
func (k ActionKind) String() string {
	switch k {
	case ActionCycleNext:
		return "cycle_next"
	case ActionCyclePrev:
		return "cycle_prev"
	case ActionJumpTo:
		return "jump_to"
	case ActionSwitchProfile:
		return "switch_profile"
	case ActionToggleSkip:
		return "toggle_skip"
	case ActionTogglePreviews:
		return "toggle_previews"
	default:
		return "unknown"
	}
}

// Action is the value the dispatcher produces. Group applies to cycle
// actions, Character to JumpTo and Profile to SwitchProfile.
type Action struct {
	Kind      ActionKind
	Group     string
	Character string
	Profile   string
}

func (a Action) String() string {
	switch a.Kind {
	case ActionCycleNext, ActionCyclePrev:
		if a.Group != "" {
			return fmt.Sprintf("%s(%s)", a.Kind, a.Group)
		}
	case ActionJumpTo:
		return fmt.Sprintf("%s(%s)", a.Kind, a.Character)
	case ActionSwitchProfile:
		return fmt.Sprintf("%s(%s)", a.Kind, a.Profile)
	}
	return a.Kind.String()
}

// specificity ranks bindings sharing a chord; per-character bindings beat
// generic ones.
func (a Action) specificity() int {
	if a.Kind == ActionJumpTo {
		return 2
	}
	return 1
}

// Binding pairs a chord with an action.
type Binding struct {
	Chord  Chord
	Action Action
}

// ErrAmbiguousBinding is wrapped by ConflictError.
var ErrAmbiguousBinding = errors.New("ambiguous hotkey binding")

// ConflictError reports a chord bound to several equally specific actions.
type ConflictError struct {
	Chord   Chord
	Actions []Action
}

func (e *ConflictError) Error() string {
	names := make([]string, 0, len(e.Actions))
	for _, a := range e.Actions {
		names = append(names, a.String())
	}
	return fmt.Sprintf("%s is bound to %s", e.Chord, strings.Join(names, " and "))
}

func (e *ConflictError) Unwrap() error { return ErrAmbiguousBinding }

// Table is an immutable chord → action lookup.
type Table struct {
	actions map[Chord]Action
}

// NewTable resolves bindings into a table. When several bindings share a
// chord the most specific wins; equally specific distinct actions are an
// error.
func NewTable(bindings []Binding) (*Table, error) {
	byChord := make(map[Chord][]Action)
	var order []Chord
	for _, b := range bindings {
		if _, seen := byChord[b.Chord]; !seen {
			order = append(order, b.Chord)
		}
		byChord[b.Chord] = append(byChord[b.Chord], b.Action)
	}

	t := &Table{actions: make(map[Chord]Action, len(byChord))}
	for _, chord := range order {
		candidates := byChord[chord]
		best := 0
		for _, a := range candidates {
			if s := a.specificity(); s > best {
				best = s
			}
		}
		var top []Action
		for _, a := range candidates {
			if a.specificity() == best && !containsAction(top, a) {
				top = append(top, a)
			}
		}
		if len(top) > 1 {
			return nil, &ConflictError{Chord: chord, Actions: top}
		}
		t.actions[chord] = top[0]
	}
	return t, nil
}

// Lookup returns the action bound to a chord.
func (t *Table) Lookup(c Chord) (Action, bool) {
	if t == nil {
		return Action{}, false
	}
	a, ok := t.actions[c]
	return a, ok
}

// Chords returns every bound chord in a stable order.
func (t *Table) Chords() []Chord {
	if t == nil {
		return nil
	}
	out := make([]Chord, 0, len(t.actions))
	for c := range t.actions {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Key != out[j].Key {
			return out[i].Key < out[j].Key
		}
		return out[i].Mods < out[j].Mods
	})
	return out
}

// Len returns the number of bound chords.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.actions)
}

func containsAction(list []Action, a Action) bool {
	for _, x := range list {
		if x == a {
			return true
		}
	}
	return false
}
