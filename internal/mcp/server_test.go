package mcp

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/1broseidon/evepreview/internal/ipc"
)

type fakeDaemon struct {
	windows    []ipc.WindowInfo
	profiles   map[string]bool
	thumbnails bool
	lastGroup  string
	lastJump   string
	reloadErr  error
	reloads    int
}

func newFakeDaemon() *fakeDaemon {
	return &fakeDaemon{
		windows: []ipc.WindowInfo{
			{ID: 1, Character: "Alpha", Status: "live", Active: true},
			{ID: 2, Character: "Bravo", Status: "stale"},
			{ID: 3, Character: "Charlie", Status: "live"},
		},
		profiles:   map[string]bool{"default": true, "pvp": true},
		thumbnails: true,
	}
}

func (f *fakeDaemon) CycleNext(group string) (ipc.FocusData, error) {
	f.lastGroup = group
	if group == "empty" {
		return ipc.FocusData{Reason: "cycle group has no live members"}, nil
	}
	return ipc.FocusData{Focused: true, Character: "Alpha", WindowID: 1}, nil
}

func (f *fakeDaemon) CyclePrev(group string) (ipc.FocusData, error) {
	f.lastGroup = group
	return ipc.FocusData{Focused: true, Character: "Charlie", WindowID: 3}, nil
}

func (f *fakeDaemon) JumpTo(character string) (ipc.FocusData, error) {
	f.lastJump = character
	for _, w := range f.windows {
		if w.Character == character {
			return ipc.FocusData{Focused: true, Character: character, WindowID: w.ID}, nil
		}
	}
	return ipc.FocusData{}, errors.New("no window for character")
}

func (f *fakeDaemon) SwitchProfile(name string) error {
	if !f.profiles[name] {
		return errors.New("unknown profile")
	}
	return nil
}

func (f *fakeDaemon) SetThumbnailsEnabled(on bool) error {
	f.thumbnails = on
	return nil
}

func (f *fakeDaemon) Windows() ([]ipc.WindowInfo, error) { return f.windows, nil }

func (f *fakeDaemon) CycleState() (ipc.CycleStateData, error) {
	return ipc.CycleStateData{Profile: "default", Group: "main", Active: true, Current: "Alpha", Members: []string{"Alpha", "Charlie"}}, nil
}

func (f *fakeDaemon) Layout() (ipc.LayoutData, error) {
	return ipc.LayoutData{Enabled: f.thumbnails, Thumbnails: []ipc.ThumbnailInfo{{ID: 1, Character: "Alpha", Width: 250, Height: 140}}}, nil
}

func (f *fakeDaemon) GetStatus() (*ipc.StatusData, error) {
	return &ipc.StatusData{Profile: "default", Profiles: []string{"default", "pvp"}, WindowCount: 2, DaemonRunning: true}, nil
}

func (f *fakeDaemon) Reload() error {
	f.reloads++
	return f.reloadErr
}

func newTestServer(d Daemon) *Server {
	return NewServer(d, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestListWindowsFiltersStale(t *testing.T) {
	s := newTestServer(newFakeDaemon())
	ctx := context.Background()

	tests := []struct {
		name         string
		includeStale bool
		want         []string
	}{
		{"live only", false, []string{"Alpha", "Charlie"}},
		{"with stale", true, []string{"Alpha", "Bravo", "Charlie"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, out, err := s.handleListWindows(ctx, nil, ListWindowsInput{IncludeStale: tt.includeStale})
			if err != nil {
				t.Fatalf("handleListWindows: %v", err)
			}
			if len(out.Windows) != len(tt.want) {
				t.Fatalf("windows = %+v, want %v", out.Windows, tt.want)
			}
			for i, w := range out.Windows {
				if w.Character != tt.want[i] {
					t.Fatalf("window %d = %q, want %q", i, w.Character, tt.want[i])
				}
			}
		})
	}
}

func TestCycleTools(t *testing.T) {
	d := newFakeDaemon()
	s := newTestServer(d)
	ctx := context.Background()

	_, f, err := s.handleCycleNext(ctx, nil, CycleInput{Group: "  main "})
	if err != nil || !f.Focused || f.Character != "Alpha" {
		t.Fatalf("cycle_next = %+v, %v", f, err)
	}
	if d.lastGroup != "main" {
		t.Fatalf("group = %q, want trimmed main", d.lastGroup)
	}

	_, f, err = s.handleCyclePrev(ctx, nil, CycleInput{})
	if err != nil || f.Character != "Charlie" {
		t.Fatalf("cycle_prev = %+v, %v", f, err)
	}

	_, f, err = s.handleCycleNext(ctx, nil, CycleInput{Group: "empty"})
	if err != nil {
		t.Fatalf("an empty group should not be a tool error: %v", err)
	}
	if f.Focused || f.Reason == "" {
		t.Fatalf("empty group result = %+v", f)
	}
}

func TestJumpToTool(t *testing.T) {
	d := newFakeDaemon()
	s := newTestServer(d)
	ctx := context.Background()

	tests := []struct {
		name      string
		character string
		wantErr   bool
		wantID    uint32
	}{
		{"known", "Charlie", false, 3},
		{"padded", " Alpha ", false, 1},
		{"blank", "   ", true, 0},
		{"unknown", "Nobody", true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, f, err := s.handleJumpTo(ctx, nil, JumpToInput{Character: tt.character})
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", f)
				}
				return
			}
			if err != nil {
				t.Fatalf("handleJumpTo: %v", err)
			}
			if f.WindowID != tt.wantID {
				t.Fatalf("window = %d, want %d", f.WindowID, tt.wantID)
			}
		})
	}
	if d.lastJump != "Nobody" {
		t.Fatalf("blank names should not reach the daemon, last jump %q", d.lastJump)
	}
}

func TestSwitchProfileTool(t *testing.T) {
	s := newTestServer(newFakeDaemon())
	ctx := context.Background()

	if _, out, err := s.handleSwitchProfile(ctx, nil, SwitchProfileInput{Profile: "pvp"}); err != nil || out.Profile != "pvp" {
		t.Fatalf("switch_profile = %+v, %v", out, err)
	}
	if _, _, err := s.handleSwitchProfile(ctx, nil, SwitchProfileInput{Profile: "nope"}); err == nil {
		t.Fatalf("expected error for unknown profile")
	}
	if _, _, err := s.handleSwitchProfile(ctx, nil, SwitchProfileInput{}); err == nil {
		t.Fatalf("expected error for empty profile")
	}
}

func TestThumbnailAndReloadTools(t *testing.T) {
	d := newFakeDaemon()
	s := newTestServer(d)
	ctx := context.Background()

	_, out, err := s.handleSetThumbnails(ctx, nil, SetThumbnailsInput{Enabled: false})
	if err != nil || out.Enabled || d.thumbnails {
		t.Fatalf("set_thumbnails_enabled = %+v, %v (daemon %v)", out, err, d.thumbnails)
	}
	_, layout, err := s.handleGetLayout(ctx, nil, GetLayoutInput{})
	if err != nil || layout.Enabled {
		t.Fatalf("get_layout = %+v, %v", layout, err)
	}

	if _, r, err := s.handleReloadConfig(ctx, nil, ReloadConfigInput{}); err != nil || !r.Reloaded {
		t.Fatalf("reload_config = %+v, %v", r, err)
	}
	d.reloadErr = errors.New("invalid config")
	if _, _, err := s.handleReloadConfig(ctx, nil, ReloadConfigInput{}); err == nil {
		t.Fatalf("expected reload error to surface")
	}
	if d.reloads != 2 {
		t.Fatalf("reloads = %d", d.reloads)
	}
}

func TestQueryTools(t *testing.T) {
	s := newTestServer(newFakeDaemon())
	ctx := context.Background()

	_, st, err := s.handleGetCycleState(ctx, nil, GetCycleStateInput{})
	if err != nil || st.Current != "Alpha" || len(st.Members) != 2 {
		t.Fatalf("get_cycle_state = %+v, %v", st, err)
	}
	_, status, err := s.handleGetStatus(ctx, nil, GetStatusInput{})
	if err != nil || status.Profile != "default" || !status.DaemonRunning {
		t.Fatalf("get_status = %+v, %v", status, err)
	}
}
