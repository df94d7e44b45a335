package overlay

import (
	"image"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/1broseidon/evepreview/internal/capture"
	"github.com/1broseidon/evepreview/internal/platform"
	"github.com/1broseidon/evepreview/internal/profile"
	"github.com/1broseidon/evepreview/internal/registry"
)

type fakeSurface struct {
	mu        sync.Mutex
	name      string
	bounds    platform.Rect
	visible   bool
	destroyed bool
	raised    int
	paints    []*image.RGBA
	opacity   float64
	handler   func(platform.PointerEvent)
}

func (s *fakeSurface) MoveResize(r platform.Rect) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bounds = r
}

func (s *fakeSurface) Paint(img *image.RGBA) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paints = append(s.paints, img)
	return nil
}

func (s *fakeSurface) Raise() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raised++
}

func (s *fakeSurface) SetOpacity(o float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opacity = o
	return nil
}

func (s *fakeSurface) Show() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visible = true
}

func (s *fakeSurface) Hide() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visible = false
}

func (s *fakeSurface) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.destroyed = true
}

func (s *fakeSurface) OnPointer(fn func(platform.PointerEvent)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = fn
}

func (s *fakeSurface) send(ev platform.PointerEvent) {
	s.mu.Lock()
	fn := s.handler
	s.mu.Unlock()
	fn(ev)
}

type fakeFactory struct {
	surfaces []*fakeSurface
}

func (f *fakeFactory) NewSurface(name string, bounds platform.Rect) (platform.Surface, error) {
	s := &fakeSurface{name: name, bounds: bounds}
	f.surfaces = append(f.surfaces, s)
	return s, nil
}

func (f *fakeFactory) named(character string) *fakeSurface {
	for i := len(f.surfaces) - 1; i >= 0; i-- {
		if f.surfaces[i].name == "evepreview: "+character {
			return f.surfaces[i]
		}
	}
	return nil
}

type fakeCommander struct {
	mu        sync.Mutex
	activated []platform.WindowID
	minimized []platform.WindowID
}

func (f *fakeCommander) Activate(id platform.WindowID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activated = append(f.activated, id)
	return nil
}

func (f *fakeCommander) Minimize(id platform.WindowID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.minimized = append(f.minimized, id)
	return nil
}

type fakePositions struct {
	saved map[string]profile.Position
}

func (f *fakePositions) SetPosition(character string, pos profile.Position) bool {
	if f.saved == nil {
		f.saved = make(map[string]profile.Position)
	}
	f.saved[character] = pos
	return true
}

type nopFocus struct{}

func (nopFocus) Focus(platform.WindowID) error    { return nil }
func (nopFocus) Minimize(platform.WindowID) error { return nil }

type harness struct {
	reg       *registry.Registry
	factory   *fakeFactory
	cmd       *fakeCommander
	positions *fakePositions
	comp      *Compositor
}

func newHarness(t *testing.T, prof profile.Profile) *harness {
	t.Helper()
	m, err := registry.NewMatcher(registry.MatcherConfig{})
	if err != nil {
		t.Fatalf("NewMatcher: %v", err)
	}
	h := &harness{
		reg:       registry.New(m, registry.Policy{Duplicate: registry.DuplicateNewest}, nopFocus{}),
		factory:   &fakeFactory{},
		cmd:       &fakeCommander{},
		positions: &fakePositions{},
	}
	h.comp = NewCompositor(Options{
		Factory:   h.factory,
		Commander: h.cmd,
		Positions: h.positions,
		Displays: func() ([]platform.Display, error) {
			return []platform.Display{{Bounds: platform.Rect{Width: 1920, Height: 1080}}}, nil
		},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, prof, true)
	return h
}

func (h *harness) open(id platform.WindowID, character string) {
	h.reg.Register(client(id, character))
	h.comp.Sync(h.reg.Snapshot())
}

func (h *harness) focus(id platform.WindowID) {
	h.reg.SetActive(id)
	h.comp.Sync(h.reg.Snapshot())
}

func client(id platform.WindowID, character string) platform.Window {
	return platform.Window{
		ID:               id,
		AppID:            "exefile.exe",
		Instance:         "exefile.exe",
		Title:            "EVE - " + character,
		Bounds:           platform.Rect{Width: 1920, Height: 1080},
		OnCurrentDesktop: true,
	}
}

func testProfile() profile.Profile {
	p := profile.DefaultProfile("test")
	p.ThumbnailPositions = map[string]profile.Position{}
	return p
}

func TestSyncCreatesAndDestroysThumbnails(t *testing.T) {
	h := newHarness(t, testProfile())
	h.open(1, "Alpha")
	h.open(2, "Bravo")

	if len(h.comp.Layout()) != 2 {
		t.Fatalf("expected 2 thumbnails, got %+v", h.comp.Layout())
	}
	alpha := h.factory.named("Alpha")
	if alpha == nil || !alpha.visible {
		t.Fatalf("Alpha thumbnail not shown")
	}
	if alpha.opacity != 0.75 {
		t.Fatalf("opacity = %v", alpha.opacity)
	}

	if _, err := h.reg.Unregister(1); err != nil {
		t.Fatal(err)
	}
	h.comp.Sync(h.reg.Snapshot())
	if !alpha.destroyed {
		t.Fatalf("orphaned thumbnail was not destroyed")
	}
	layout := h.comp.Layout()
	if len(layout) != 1 || layout[0].Character != "Bravo" {
		t.Fatalf("layout after close = %+v", layout)
	}
}

func TestSyncUsesSavedPositionAndCascade(t *testing.T) {
	p := testProfile()
	p.ThumbnailPositions["Bravo"] = profile.Position{X: 500, Y: 600}
	h := newHarness(t, p)
	h.open(1, "Alpha")
	h.open(2, "Bravo")
	h.open(3, "Charlie")

	if b := h.factory.named("Bravo").bounds; b.X != 500 || b.Y != 600 || b.Width != profile.DefaultThumbnailWidth {
		t.Fatalf("Bravo bounds = %+v", b)
	}
	a := h.factory.named("Alpha").bounds
	c := h.factory.named("Charlie").bounds
	if a.X != SpawnOffset || c.X != 2*SpawnOffset {
		t.Fatalf("cascade positions: Alpha %+v Charlie %+v", a, c)
	}
}

func TestCustomWindowUsesRuleSize(t *testing.T) {
	p := testProfile()
	p.ThumbnailPositions["Chat"] = profile.Position{X: 700, Y: 80}
	h := newHarness(t, p)
	m, err := registry.NewMatcher(registry.MatcherConfig{Custom: []registry.CustomRule{
		{ClassPattern: "discord", Alias: "Discord", Width: 400, Height: 300},
		{ClassPattern: "slack", Alias: "Chat", Width: 320, Height: 200},
	}})
	if err != nil {
		t.Fatalf("NewMatcher: %v", err)
	}
	h.reg.SetMatcher(m)

	h.reg.Register(platform.Window{ID: 7, AppID: "discord", Instance: "discord", Title: "Discord", OnCurrentDesktop: true})
	h.reg.Register(platform.Window{ID: 8, AppID: "Slack", Instance: "slack", Title: "Slack", OnCurrentDesktop: true})
	h.comp.Sync(h.reg.Snapshot())

	if b := h.factory.named("Discord").bounds; b.X != SpawnOffset || b.Width != 400 || b.Height != 300 {
		t.Fatalf("Discord bounds = %+v, want rule size at the first cascade slot", b)
	}
	if b := h.factory.named("Chat").bounds; b.X != 700 || b.Width != 320 || b.Height != 200 {
		t.Fatalf("Chat bounds = %+v, want saved origin with rule size", b)
	}
}

func TestClickActivatesAndMinimizesPrevious(t *testing.T) {
	p := testProfile()
	p.AutoMinimizeInactive = true
	h := newHarness(t, p)
	h.open(1, "Alpha")
	h.open(2, "Bravo")
	h.focus(1)

	s := h.factory.named("Bravo")
	s.send(down(30, 30, 0))
	s.send(up(31, 30, 100*time.Millisecond))

	if len(h.cmd.activated) != 1 || h.cmd.activated[0] != 2 {
		t.Fatalf("activated = %v, want [2]", h.cmd.activated)
	}
	if len(h.cmd.minimized) != 1 || h.cmd.minimized[0] != 1 {
		t.Fatalf("minimized = %v, want [1]", h.cmd.minimized)
	}
}

func TestDragRepositionsWithoutActivation(t *testing.T) {
	h := newHarness(t, testProfile())
	h.open(1, "Alpha")
	h.open(2, "Bravo")

	alpha := h.factory.named("Alpha").bounds
	s := h.factory.named("Bravo")
	start := s.bounds

	// Drop Bravo 10px right of Alpha's right edge and a little low: it should
	// snap flush against Alpha and align tops.
	targetX := alpha.X + alpha.Width + 10
	targetY := alpha.Y + 5
	s.send(down(start.X+5, start.Y+5, 0))
	s.send(move(start.X+5+40, start.Y+5, 10*time.Millisecond))
	s.send(up(targetX+5, targetY+5, 20*time.Millisecond))

	if len(h.cmd.activated) != 0 {
		t.Fatalf("drag must not activate, got %v", h.cmd.activated)
	}
	want := platform.Rect{X: alpha.X + alpha.Width, Y: alpha.Y, Width: start.Width, Height: start.Height}
	if s.bounds != want {
		t.Fatalf("dropped bounds = %+v, want %+v", s.bounds, want)
	}
	if got := h.positions.saved["Bravo"]; got.X != want.X || got.Y != want.Y {
		t.Fatalf("persisted position = %+v", got)
	}
}

func TestDragNotPersistedWithoutAutoSave(t *testing.T) {
	p := testProfile()
	p.AutoSavePosition = false
	h := newHarness(t, p)
	h.open(1, "Alpha")

	s := h.factory.named("Alpha")
	s.send(down(30, 30, 0))
	s.send(up(300, 300, 10*time.Millisecond))
	if len(h.positions.saved) != 0 {
		t.Fatalf("position saved despite auto_save_position off: %+v", h.positions.saved)
	}
}

func TestHideWhenNoFocus(t *testing.T) {
	p := testProfile()
	p.HideWhenNoFocus = true
	h := newHarness(t, p)
	h.open(1, "Alpha")
	s := h.factory.named("Alpha")

	h.focus(99) // some unmanaged window
	if s.visible {
		t.Fatalf("thumbnail should hide while an unmanaged window has focus")
	}
	h.focus(1)
	if !s.visible {
		t.Fatalf("thumbnail should reappear when a client has focus")
	}
}

func TestActiveBorderAndMRUOrder(t *testing.T) {
	h := newHarness(t, testProfile())
	h.open(1, "Alpha")
	h.open(2, "Bravo")
	frame := image.NewRGBA(image.Rect(0, 0, profile.DefaultThumbnailWidth, profile.DefaultThumbnailHeight))
	h.comp.Render(capture.Batch{Frames: []capture.Frame{{ID: 1, Image: frame}, {ID: 2, Image: frame}}})

	h.focus(1)
	layout := h.comp.Layout()
	top := layout[len(layout)-1]
	if top.Character != "Alpha" || !top.Active {
		t.Fatalf("focused thumbnail should be on top and active: %+v", layout)
	}

	s := h.factory.named("Alpha")
	last := s.paints[len(s.paints)-1]
	border, _ := profile.ParseColor(profile.DefaultBorderColor)
	if got := last.RGBAAt(0, 0); got != border {
		t.Fatalf("active border pixel = %v, want %v", got, border)
	}
	other := h.factory.named("Bravo")
	if got := other.paints[len(other.paints)-1].RGBAAt(0, 0); got == border {
		t.Fatalf("inactive thumbnail should not carry the active border")
	}
}

func TestRenamePreservesPosition(t *testing.T) {
	h := newHarness(t, testProfile())
	h.open(1, "Alpha")
	s := h.factory.named("Alpha")
	s.send(down(30, 30, 0))
	s.send(up(430, 330, 10*time.Millisecond))
	moved := s.bounds

	if _, err := h.reg.Update(1, client(1, "Zulu")); err != nil {
		t.Fatal(err)
	}
	h.comp.Sync(h.reg.Snapshot())

	if s.bounds != moved {
		t.Fatalf("swapped character should keep the thumbnail in place: %+v vs %+v", s.bounds, moved)
	}
	if got, ok := h.positions.saved["Zulu"]; !ok || got.X != moved.X {
		t.Fatalf("new character should inherit the position, saved=%+v", h.positions.saved)
	}
	if layout := h.comp.Layout(); layout[0].Character != "Zulu" {
		t.Fatalf("layout = %+v", layout)
	}
}

func TestSetEnabled(t *testing.T) {
	h := newHarness(t, testProfile())
	h.open(1, "Alpha")
	first := h.factory.named("Alpha")

	h.comp.SetEnabled(false)
	if !first.destroyed || len(h.comp.Layout()) != 0 {
		t.Fatalf("disabling should destroy thumbnails")
	}
	h.comp.SetEnabled(true)
	second := h.factory.named("Alpha")
	if second == first || second == nil || second.destroyed {
		t.Fatalf("enabling should recreate thumbnails")
	}
}

func TestCloseDestroysEverything(t *testing.T) {
	h := newHarness(t, testProfile())
	h.open(1, "Alpha")
	h.open(2, "Bravo")
	h.comp.Close()
	for _, s := range h.factory.surfaces {
		if !s.destroyed {
			t.Fatalf("surface %s survived Close", s.name)
		}
	}
	h.open(3, "Charlie")
	if len(h.factory.surfaces) != 2 {
		t.Fatalf("closed compositor created a surface")
	}
}
