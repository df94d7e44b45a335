package hotkeys

import (
	"errors"
	"testing"
)

func mustChord(t *testing.T, s string) Chord {
	t.Helper()
	c, err := ParseChord(s)
	if err != nil {
		t.Fatalf("ParseChord(%q): %v", s, err)
	}
	return c
}

func TestTableSpecificCharacterWins(t *testing.T) {
	f1 := mustChord(t, "F1")
	table, err := NewTable([]Binding{
		{Chord: f1, Action: Action{Kind: ActionCycleNext, Group: "Default"}},
		{Chord: f1, Action: Action{Kind: ActionJumpTo, Character: "Alpha"}},
	})
	if err != nil {
		t.Fatalf("NewTable error: %v", err)
	}
	got, ok := table.Lookup(f1)
	if !ok || got.Kind != ActionJumpTo || got.Character != "Alpha" {
		t.Fatalf("Lookup(F1) = %v, %v; want jump_to(Alpha)", got, ok)
	}
}

func TestTableConflict(t *testing.T) {
	tab := mustChord(t, "Tab")
	_, err := NewTable([]Binding{
		{Chord: tab, Action: Action{Kind: ActionCycleNext, Group: "Default"}},
		{Chord: tab, Action: Action{Kind: ActionCyclePrev, Group: "Default"}},
	})
	if !errors.Is(err, ErrAmbiguousBinding) {
		t.Fatalf("expected ErrAmbiguousBinding, got %v", err)
	}
	var conflict *ConflictError
	if !errors.As(err, &conflict) || conflict.Chord != tab || len(conflict.Actions) != 2 {
		t.Fatalf("expected ConflictError on Tab with two actions, got %#v", err)
	}
}

func TestTableDuplicateIdenticalBindingIsFine(t *testing.T) {
	tab := mustChord(t, "Tab")
	a := Action{Kind: ActionCycleNext, Group: "Default"}
	table, err := NewTable([]Binding{{Chord: tab, Action: a}, {Chord: tab, Action: a}})
	if err != nil {
		t.Fatalf("NewTable error: %v", err)
	}
	if table.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", table.Len())
	}
}

func TestTableChordsSorted(t *testing.T) {
	table, err := NewTable([]Binding{
		{Chord: mustChord(t, "shift+Tab"), Action: Action{Kind: ActionCyclePrev}},
		{Chord: mustChord(t, "F2"), Action: Action{Kind: ActionToggleSkip}},
		{Chord: mustChord(t, "Tab"), Action: Action{Kind: ActionCycleNext}},
	})
	if err != nil {
		t.Fatalf("NewTable error: %v", err)
	}
	chords := table.Chords()
	want := []string{"F2", "Tab", "shift+Tab"}
	if len(chords) != len(want) {
		t.Fatalf("Chords() = %v", chords)
	}
	for i, c := range chords {
		if c.String() != want[i] {
			t.Fatalf("Chords()[%d] = %s, want %s", i, c, want[i])
		}
	}
}

func TestNilTable(t *testing.T) {
	var table *Table
	if _, ok := table.Lookup(Chord{Key: "Tab"}); ok {
		t.Fatalf("nil table should not match")
	}
	if table.Len() != 0 || table.Chords() != nil {
		t.Fatalf("nil table should be empty")
	}
}
