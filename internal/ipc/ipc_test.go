package ipc

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

type fakeController struct {
	mu         sync.Mutex
	lastGroup  string
	lastJump   string
	profile    string
	thumbnails bool
	reloads    int
	cycleErr   error
	reloadErr  error
	windows    []WindowInfo
	cycleState CycleStateData
	layout     LayoutData
	status     StatusData
}

func (f *fakeController) CycleNext(group string) (FocusData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastGroup = group
	if f.cycleErr != nil {
		return FocusData{}, f.cycleErr
	}
	return FocusData{Focused: true, Character: "Bravo", WindowID: 2}, nil
}

func (f *fakeController) CyclePrev(group string) (FocusData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastGroup = group
	return FocusData{Focused: true, Character: "Alpha", WindowID: 1}, nil
}

func (f *fakeController) JumpTo(character string) (FocusData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastJump = character
	return FocusData{Focused: true, Character: character, WindowID: 9}, nil
}

func (f *fakeController) SwitchProfile(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if name == "missing" {
		return errors.New("unknown profile \"missing\"")
	}
	f.profile = name
	return nil
}

func (f *fakeController) SetThumbnailsEnabled(on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.thumbnails = on
	return nil
}

func (f *fakeController) Windows() []WindowInfo { return f.windows }
func (f *fakeController) CycleState() CycleStateData { return f.cycleState }
func (f *fakeController) Layout() LayoutData { return f.layout }
func (f *fakeController) Status() StatusData { return f.status }

// seen returns a copy of the recorded calls.
func (f *fakeController) seen() (group, jump, profile string, thumbnails bool, reloads int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastGroup, f.lastJump, f.profile, f.thumbnails, f.reloads
}

func (f *fakeController) Reload() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reloads++
	return f.reloadErr
}

func startServer(t *testing.T, ctrl Controller) (*Server, *Client) {
	t.Helper()
	// Unix socket paths are length limited; t.TempDir can be long on some hosts.
	dir, err := os.MkdirTemp("", "evp")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	path := filepath.Join(dir, "s.sock")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := NewServerAt(path, ctrl, logger)
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(srv.Stop)
	return srv, NewClientAt(path)
}

func TestClientServerRoundTrip(t *testing.T) {
	ctrl := &fakeController{
		windows: []WindowInfo{
			{ID: 1, Character: "Alpha", Status: "live", Active: true},
			{ID: 2, Character: "Bravo", Status: "live"},
		},
		cycleState: CycleStateData{Profile: "default", Group: "main", Members: []string{"Alpha", "Bravo"}},
		layout: LayoutData{Enabled: true, Thumbnails: []ThumbnailInfo{
			{ID: 1, Character: "Alpha", X: 20, Y: 20, Width: 250, Height: 140, Visible: true},
		}},
		status: StatusData{Profile: "default", Profiles: []string{"default"}, WindowCount: 2, DaemonRunning: true},
	}
	_, client := startServer(t, ctrl)

	focus, err := client.CycleNext("main")
	if err != nil {
		t.Fatalf("CycleNext: %v", err)
	}
	if group, _, _, _, _ := ctrl.seen(); !focus.Focused || focus.Character != "Bravo" || group != "main" {
		t.Fatalf("CycleNext = %+v (group %q)", focus, group)
	}

	if focus, err = client.CyclePrev(""); err != nil || focus.Character != "Alpha" {
		t.Fatalf("CyclePrev = %+v, %v", focus, err)
	}

	if focus, err = client.JumpTo("Charlie"); err != nil || focus.WindowID != 9 {
		t.Fatalf("JumpTo = %+v, %v", focus, err)
	}

	if err := client.SwitchProfile("pvp"); err != nil {
		t.Fatalf("SwitchProfile: %v", err)
	}
	if err := client.SetThumbnailsEnabled(true); err != nil {
		t.Fatalf("SetThumbnailsEnabled: %v", err)
	}
	if _, jump, prof, thumbs, _ := ctrl.seen(); jump != "Charlie" || prof != "pvp" || !thumbs {
		t.Fatalf("controller saw jump=%q profile=%q thumbnails=%v", jump, prof, thumbs)
	}

	windows, err := client.Windows()
	if err != nil || len(windows) != 2 || !windows[0].Active {
		t.Fatalf("Windows = %+v, %v", windows, err)
	}

	state, err := client.CycleState()
	if err != nil || state.Group != "main" || len(state.Members) != 2 {
		t.Fatalf("CycleState = %+v, %v", state, err)
	}

	layout, err := client.Layout()
	if err != nil || !layout.Enabled || len(layout.Thumbnails) != 1 || layout.Thumbnails[0].Width != 250 {
		t.Fatalf("Layout = %+v, %v", layout, err)
	}

	status, err := client.GetStatus()
	if err != nil || status.WindowCount != 2 || !status.DaemonRunning {
		t.Fatalf("GetStatus = %+v, %v", status, err)
	}

	if err := client.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if _, _, _, _, reloads := ctrl.seen(); reloads != 1 {
		t.Fatalf("reloads = %d, want 1", reloads)
	}

	if err := client.Ping(); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestControllerErrorsBecomeErrorResponses(t *testing.T) {
	ctrl := &fakeController{
		cycleErr:  errors.New("cycle group \"main\" has no live members"),
		reloadErr: errors.New("invalid config"),
	}
	_, client := startServer(t, ctrl)

	tests := []struct {
		name string
		call func() error
		want string
	}{
		{
			name: "cycle",
			call: func() error { _, err := client.CycleNext("main"); return err },
			want: "no live members",
		},
		{
			name: "unknown profile",
			call: func() error { return client.SwitchProfile("missing") },
			want: "unknown profile",
		},
		{
			name: "empty profile name",
			call: func() error { return client.SwitchProfile("") },
			want: "name is required",
		},
		{
			name: "empty jump target",
			call: func() error { _, err := client.JumpTo(""); return err },
			want: "character is required",
		},
		{
			name: "reload",
			call: func() error { return client.Reload() },
			want: "invalid config",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error = %q, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestUnknownCommand(t *testing.T) {
	srv, _ := startServer(t, &fakeController{})

	conn, err := net.Dial("unix", srv.SocketPath())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(`{"command":"TILE"}` + "\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		t.Fatalf("ReadBytes: %v", err)
	}
	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if resp.Status != StatusError || !strings.Contains(resp.Error, "unknown command") {
		t.Fatalf("response = %+v", resp)
	}
}

func TestMalformedRequest(t *testing.T) {
	srv, _ := startServer(t, &fakeController{})

	conn, err := net.Dial("unix", srv.SocketPath())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	conn.Write([]byte("not json\n"))
	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		t.Fatalf("ReadBytes: %v", err)
	}
	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if resp.Status != StatusError || !strings.HasPrefix(resp.Error, "invalid request") {
		t.Fatalf("response = %+v", resp)
	}
}

func TestStartRefusesLiveSocket(t *testing.T) {
	srv, _ := startServer(t, &fakeController{})

	second := NewServerAt(srv.SocketPath(), &fakeController{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := second.Start(); err == nil {
		second.Stop()
		t.Fatalf("expected second server to refuse a live socket")
	}
}

func TestStartReplacesStaleSocket(t *testing.T) {
	dir, err := os.MkdirTemp("", "evp")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "s.sock")
	if err := os.WriteFile(path, nil, 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	srv := NewServerAt(path, &fakeController{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer srv.Stop()

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Fatalf("socket mode = %v, want 0600", info.Mode().Perm())
	}
	srv.Stop()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("Stop should remove the socket, stat err = %v", err)
	}
}

func TestClientWithoutDaemon(t *testing.T) {
	client := NewClientAt(filepath.Join(t.TempDir(), "absent.sock"))
	if err := client.Ping(); err == nil || !strings.Contains(err.Error(), "is the daemon running") {
		t.Fatalf("Ping error = %v", err)
	}
}
