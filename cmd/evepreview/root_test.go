package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/1broseidon/evepreview/internal/ipc"
)

// execute runs the root command with fresh global flags and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	flagConfig, flagSocket, flagFormat = "", "", ""
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

type fakeController struct {
	mu         sync.Mutex
	thumbnails bool
	profile    string
}

func (f *fakeController) CycleNext(string) (ipc.FocusData, error) {
	return ipc.FocusData{Focused: true, Character: "Alpha", WindowID: 0x1a}, nil
}

func (f *fakeController) CyclePrev(string) (ipc.FocusData, error) {
	return ipc.FocusData{Reason: "cycle group has no live members"}, nil
}

func (f *fakeController) JumpTo(character string) (ipc.FocusData, error) {
	if character != "Alpha" {
		return ipc.FocusData{}, errors.New("no window for " + character)
	}
	return ipc.FocusData{Focused: true, Character: "Alpha", WindowID: 0x1a}, nil
}

func (f *fakeController) SwitchProfile(name string) error {
	if name == "missing" {
		return errors.New(`unknown profile "missing"`)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profile = name
	return nil
}

func (f *fakeController) SetThumbnailsEnabled(on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.thumbnails = on
	return nil
}

func (f *fakeController) Windows() []ipc.WindowInfo {
	return []ipc.WindowInfo{
		{ID: 0x1a, Character: "Alpha", Status: "live", Active: true, OnCurrentDesktop: true},
		{ID: 0x2b, Character: "Bravo", Status: "live", LoggedOff: true, OnCurrentDesktop: true},
	}
}

func (f *fakeController) CycleState() ipc.CycleStateData {
	return ipc.CycleStateData{Profile: "default", Group: "main", Active: true, Current: "Alpha", Members: []string{"Alpha"}, Groups: []string{"main"}}
}

func (f *fakeController) Layout() ipc.LayoutData {
	return ipc.LayoutData{Enabled: true, Thumbnails: []ipc.ThumbnailInfo{{ID: 0x1a, Character: "Alpha", X: 10, Y: 20, Width: 250, Height: 140, Visible: true, Active: true}}}
}

func (f *fakeController) Status() ipc.StatusData {
	f.mu.Lock()
	defer f.mu.Unlock()
	return ipc.StatusData{Profile: "default", Profiles: []string{"default"}, ThumbnailsEnabled: f.thumbnails, WindowCount: 2, HotkeyBackend: "x11", DaemonRunning: true}
}

func (f *fakeController) Reload() error { return nil }

func startDaemon(t *testing.T) (*fakeController, string) {
	t.Helper()
	dir, err := os.MkdirTemp("", "evpc")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	ctrl := &fakeController{thumbnails: true}
	socket := filepath.Join(dir, "s.sock")
	server := ipc.NewServerAt(socket, ctrl, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := server.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(server.Stop)
	return ctrl, socket
}

func TestRootCommandHasSubcommands(t *testing.T) {
	expected := []string{
		"daemon", "next", "prev", "jump", "profile", "thumbnails", "reload",
		"windows", "state", "layout", "status", "config", "mcp", "watch",
	}
	found := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		found[c.Name()] = true
	}
	for _, name := range expected {
		if !found[name] {
			t.Errorf("expected subcommand %q not found", name)
		}
	}
}

func TestConfigCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "evepreview", "config.yaml")

	out, err := execute(t, "--config", path, "config", "path")
	if err != nil || strings.TrimSpace(out) != path {
		t.Fatalf("config path = %q, %v", out, err)
	}

	if out, err := execute(t, "--config", path, "config", "init"); err != nil || !strings.Contains(out, "wrote") {
		t.Fatalf("config init = %q, %v", out, err)
	}
	if _, err := execute(t, "--config", path, "config", "init"); err == nil {
		t.Fatalf("config init should refuse to overwrite")
	}

	if out, err := execute(t, "--config", path, "config", "validate"); err != nil || !strings.Contains(out, "config: ok") {
		t.Fatalf("config validate = %q, %v", out, err)
	}

	out, err = execute(t, "--config", path, "config", "explain", "global.capture.workers")
	if err != nil {
		t.Fatalf("config explain: %v", err)
	}
	if !strings.Contains(out, "source: file:") || !strings.Contains(out, "value:") {
		t.Fatalf("config explain output:\n%s", out)
	}

	if err := os.WriteFile(path, []byte("global:\n  log_level: chatty\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := execute(t, "--config", path, "config", "validate"); err == nil {
		t.Fatalf("config validate accepted an unknown log level")
	}
}

func TestQueryCommands(t *testing.T) {
	_, socket := startDaemon(t)

	out, err := execute(t, "--socket", socket, "windows")
	if err != nil {
		t.Fatalf("windows: %v", err)
	}
	var data ipc.WindowsData
	if err := json.Unmarshal([]byte(out), &data); err != nil {
		t.Fatalf("piped output should be JSON: %v\n%s", err, out)
	}
	if len(data.Windows) != 2 || data.Windows[1].Character != "Bravo" {
		t.Fatalf("windows = %+v", data.Windows)
	}

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"windows table", []string{"windows", "--format", "table"}, []string{"CHARACTER", "0x1a", "Alpha", "Bravo"}},
		{"state yaml", []string{"state", "--format", "yaml"}, []string{"current: Alpha", "group: main"}},
		{"layout table", []string{"layout", "--format", "table"}, []string{"WIDTH", "250", "140"}},
		{"status table", []string{"status", "--format", "table"}, []string{"profile:", "x11", "windows:"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, append([]string{"--socket", socket}, tt.args...)...)
			if err != nil {
				t.Fatalf("%v: %v", tt.args, err)
			}
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
		})
	}
}

func TestControlCommands(t *testing.T) {
	ctrl, socket := startDaemon(t)

	out, err := execute(t, "--socket", socket, "next")
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	var f ipc.FocusData
	if err := json.Unmarshal([]byte(out), &f); err != nil || !f.Focused || f.Character != "Alpha" {
		t.Fatalf("next = %q (%v)", out, err)
	}

	if out, err := execute(t, "--socket", socket, "--format", "table", "prev"); err != nil || !strings.Contains(out, "no live members") {
		t.Fatalf("prev = %q, %v", out, err)
	}
	if out, err := execute(t, "--socket", socket, "--format", "table", "jump", "Alpha"); err != nil || !strings.Contains(out, "focused") {
		t.Fatalf("jump = %q, %v", out, err)
	}
	if _, err := execute(t, "--socket", socket, "jump", "Nobody"); err == nil || !strings.Contains(err.Error(), "daemon error") {
		t.Fatalf("jump to unknown character error = %v", err)
	}

	if out, err := execute(t, "--socket", socket, "thumbnails", "toggle"); err != nil || !strings.Contains(out, "thumbnails: off") {
		t.Fatalf("thumbnails toggle = %q, %v", out, err)
	}
	if ctrl.Status().ThumbnailsEnabled {
		t.Fatalf("toggle did not reach the daemon")
	}
	if _, err := execute(t, "--socket", socket, "thumbnails", "maybe"); err == nil {
		t.Fatalf("expected error for bad thumbnails argument")
	}

	if _, err := execute(t, "--socket", socket, "profile", "missing"); err == nil {
		t.Fatalf("expected error for unknown profile")
	}
	if out, err := execute(t, "--socket", socket, "profile", "pvp"); err != nil || strings.TrimSpace(out) != "profile: pvp" {
		t.Fatalf("profile = %q, %v", out, err)
	}
	if out, err := execute(t, "--socket", socket, "reload"); err != nil || !strings.Contains(out, "config reloaded") {
		t.Fatalf("reload = %q, %v", out, err)
	}
}

func TestCommandsWithoutDaemon(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "none.sock")
	_, err := execute(t, "--socket", socket, "status")
	if err == nil || !strings.Contains(err.Error(), "is the daemon running") {
		t.Fatalf("status without daemon error = %v", err)
	}
}

func TestUnsupportedFormat(t *testing.T) {
	_, socket := startDaemon(t)
	if _, err := execute(t, "--socket", socket, "--format", "xml", "status"); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
}
