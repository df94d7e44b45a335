package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/1broseidon/evepreview/internal/ipc"
)

type fakeDaemon struct {
	down       bool
	jumped     []string
	profile    string
	thumbnails bool
}

var errDown = errors.New("failed to connect to daemon")

func (f *fakeDaemon) CycleNext(string) (ipc.FocusData, error) {
	return ipc.FocusData{Reason: "cycle group has no live members"}, nil
}

func (f *fakeDaemon) CyclePrev(string) (ipc.FocusData, error) {
	return ipc.FocusData{Focused: true, Character: "Alpha", WindowID: 1}, nil
}

func (f *fakeDaemon) JumpTo(character string) (ipc.FocusData, error) {
	f.jumped = append(f.jumped, character)
	return ipc.FocusData{Focused: true, Character: character}, nil
}

func (f *fakeDaemon) SwitchProfile(name string) error {
	f.profile = name
	return nil
}

func (f *fakeDaemon) SetThumbnailsEnabled(on bool) error {
	f.thumbnails = on
	return nil
}

func (f *fakeDaemon) Windows() ([]ipc.WindowInfo, error) {
	return []ipc.WindowInfo{
		{ID: 4, Character: "Delta", Status: "live"},
		{ID: 2, Character: "Bravo", Status: "live", Active: true},
		{ID: 1, Character: "Alpha", Status: "live", LoggedOff: true},
		{ID: 9, Character: "", Status: "live"},
	}, nil
}

func (f *fakeDaemon) CycleState() (ipc.CycleStateData, error) {
	return ipc.CycleStateData{
		Profile: "default",
		Group:   "main",
		Active:  true,
		Current: "Bravo",
		Members: []string{"Bravo", "Alpha"},
		Skipped: []string{"Alpha"},
		Groups:  []string{"main"},
	}, nil
}

func (f *fakeDaemon) Layout() (ipc.LayoutData, error) {
	return ipc.LayoutData{Enabled: true, Thumbnails: []ipc.ThumbnailInfo{
		{ID: 1, Character: "Alpha", Width: 250, Height: 140, Visible: true},
		{ID: 2, Character: "Bravo", Width: 250, Height: 140, Z: 1, Visible: true, Active: true},
	}}, nil
}

func (f *fakeDaemon) GetStatus() (*ipc.StatusData, error) {
	if f.down {
		return nil, errDown
	}
	return &ipc.StatusData{
		Profile:           "default",
		Profiles:          []string{"default", "pvp"},
		ThumbnailsEnabled: true,
		WindowCount:       4,
		DaemonRunning:     true,
	}, nil
}

func (f *fakeDaemon) Reload() error { return nil }

func loaded(t *testing.T, d *fakeDaemon) model {
	t.Helper()
	m := newModel(d, time.Second)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 30})
	next, _ = next.Update(fetch(d)())
	return next.(model)
}

func runAction(t *testing.T, m model, key tea.KeyMsg) string {
	t.Helper()
	_, cmd := m.Update(key)
	if cmd == nil {
		t.Fatalf("key %q produced no command", key.String())
	}
	msg, ok := cmd().(statusMsg)
	if !ok {
		t.Fatalf("key %q did not report a status", key.String())
	}
	return msg.text
}

func TestBuildCharacterItemsOrder(t *testing.T) {
	d := &fakeDaemon{}
	windows, _ := d.Windows()
	state, _ := d.CycleState()

	items := buildCharacterItems(windows, state)
	var got []string
	for _, it := range items {
		got = append(got, it.(characterItem).character)
	}
	want := []string{"Bravo", "Alpha", "Delta"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("order = %v, want %v", got, want)
	}

	tests := []struct {
		index int
		title string
	}{
		{0, "* Bravo"},
		{1, "  Alpha (skipped) (logged off)"},
		{2, "  Delta"},
	}
	for _, tt := range tests {
		if got := items[tt.index].(characterItem).Title(); got != tt.title {
			t.Errorf("item %d title = %q, want %q", tt.index, got, tt.title)
		}
	}
}

func TestSnapshotErrorMarksDisconnected(t *testing.T) {
	d := &fakeDaemon{down: true}
	m := newModel(d, time.Second)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 20})
	next, _ = next.Update(fetch(d)())
	got := next.(model)
	if got.connected {
		t.Fatalf("model connected despite poll error")
	}
	if !strings.Contains(got.View(), "daemon not running") {
		t.Fatalf("view does not report the missing daemon")
	}
}

func TestEnterJumpsToSelected(t *testing.T) {
	d := &fakeDaemon{}
	m := loaded(t, d)
	if !m.connected {
		t.Fatalf("model not connected")
	}
	m.list.Select(1)

	text := runAction(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if text != "focused: Alpha" {
		t.Fatalf("status = %q", text)
	}
	if len(d.jumped) != 1 || d.jumped[0] != "Alpha" {
		t.Fatalf("jumped = %v", d.jumped)
	}
}

func TestActionKeys(t *testing.T) {
	d := &fakeDaemon{}
	m := loaded(t, d)

	tests := []struct {
		key  string
		want string
	}{
		{"n", "cycle group has no live members"},
		{"p", "focused: Alpha"},
		{"t", "thumbnails: off"},
		{"P", "profile: pvp"},
		{"r", "config reloaded"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			key := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(tt.key)}
			if got := runAction(t, m, key); got != tt.want {
				t.Fatalf("status = %q, want %q", got, tt.want)
			}
		})
	}
	if d.profile != "pvp" || d.thumbnails {
		t.Fatalf("daemon state profile=%q thumbnails=%v", d.profile, d.thumbnails)
	}
}

func TestRebuildKeepsSelection(t *testing.T) {
	d := &fakeDaemon{}
	m := loaded(t, d)
	m.list.Select(2)

	next, _ := m.Update(fetch(d)())
	item, ok := next.(model).list.SelectedItem().(characterItem)
	if !ok || item.character != "Delta" {
		t.Fatalf("selection after refresh = %+v", item)
	}
}

func TestViewShowsLayout(t *testing.T) {
	m := loaded(t, &fakeDaemon{})
	view := m.View()
	for _, want := range []string{"profile:default", "current:Bravo", "Thumbnails", "focused", "skipped: Alpha"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestNextProfile(t *testing.T) {
	tests := []struct {
		name     string
		profiles []string
		current  string
		want     string
	}{
		{"single", []string{"default"}, "default", ""},
		{"forward", []string{"default", "pvp"}, "default", "pvp"},
		{"wraps", []string{"default", "pvp"}, "pvp", "default"},
		{"unknown current", []string{"a", "b"}, "zzz", "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := nextProfile(ipc.StatusData{Profile: tt.current, Profiles: tt.profiles})
			if got != tt.want {
				t.Fatalf("nextProfile = %q, want %q", got, tt.want)
			}
		})
	}
}
