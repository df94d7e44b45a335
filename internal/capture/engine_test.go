package capture

import (
	"bytes"
	"context"
	"errors"
	"image"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/1broseidon/evepreview/internal/platform"
	"github.com/1broseidon/evepreview/internal/registry"
)

type captureFunc func(ctx context.Context) (*image.RGBA, error)

type fakeSource struct {
	mu       sync.Mutex
	behavior map[platform.WindowID]captureFunc
	calls    map[platform.WindowID]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		behavior: make(map[platform.WindowID]captureFunc),
		calls:    make(map[platform.WindowID]int),
	}
}

func (f *fakeSource) set(id platform.WindowID, fn captureFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.behavior[id] = fn
}

func (f *fakeSource) count(id platform.WindowID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

func (f *fakeSource) Capture(ctx context.Context, id platform.WindowID) (*image.RGBA, error) {
	f.mu.Lock()
	f.calls[id]++
	fn := f.behavior[id]
	f.mu.Unlock()
	if fn == nil {
		return solid(1920, 1080), nil
	}
	return fn(ctx)
}

func solid(w, h int) *image.RGBA {
	return image.NewRGBA(image.Rect(0, 0, w, h))
}

// hang blocks until release is closed, ignoring ctx like a stuck server
// round trip would.
func hang(release <-chan struct{}) captureFunc {
	return func(context.Context) (*image.RGBA, error) {
		<-release
		return solid(10, 10), nil
	}
}

func fail(err error) captureFunc {
	return func(context.Context) (*image.RGBA, error) { return nil, err }
}

type nopCommander struct{}

func (nopCommander) Focus(platform.WindowID) error    { return nil }
func (nopCommander) Minimize(platform.WindowID) error { return nil }

func newRegistry(t *testing.T, windows ...platform.Window) *registry.Registry {
	t.Helper()
	m, err := registry.NewMatcher(registry.MatcherConfig{})
	if err != nil {
		t.Fatalf("NewMatcher: %v", err)
	}
	r := registry.New(m, registry.Policy{Duplicate: registry.DuplicateNewest}, nopCommander{})
	for _, w := range windows {
		r.Register(w)
	}
	return r
}

func client(id platform.WindowID, name string) platform.Window {
	return platform.Window{
		ID:               id,
		AppID:            "exefile.exe",
		Instance:         "exefile.exe",
		Title:            "EVE - " + name,
		Bounds:           platform.Rect{Width: 1920, Height: 1080},
		OnCurrentDesktop: true,
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func newTestEngine(src Source, reg *registry.Registry, opts Options, w io.Writer) *Engine {
	if w == nil {
		w = io.Discard
	}
	return NewEngine(src, reg.Snapshot, opts, newLogger(w))
}

func TestTickCapturesAndScales(t *testing.T) {
	reg := newRegistry(t, client(1, "Alpha"), client(2, "Bravo"))
	e := newTestEngine(newFakeSource(), reg, Options{Width: 200, Height: 100}, nil)

	b := e.Tick(context.Background())
	if len(b.Frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(b.Frames))
	}
	for _, f := range b.Frames {
		if f.Stale || f.Placeholder || f.Err != nil {
			t.Fatalf("expected fresh frame, got %+v", f)
		}
		if f.Image.Bounds() != image.Rect(0, 0, 200, 100) {
			t.Fatalf("frame not scaled: %v", f.Image.Bounds())
		}
	}
	if b.Frames[0].Character != "Alpha" || b.Frames[1].Character != "Bravo" {
		t.Fatalf("frames out of registry order: %s, %s", b.Frames[0].Character, b.Frames[1].Character)
	}
}

func TestTickHungCaptureDoesNotDelayBatch(t *testing.T) {
	tests := []struct {
		name     string
		interval time.Duration
		timeout  time.Duration
	}{
		{name: "timeout longer than tick", interval: 100 * time.Millisecond, timeout: time.Second},
		{name: "timeout shorter than tick", interval: 300 * time.Millisecond, timeout: 30 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			release := make(chan struct{})
			defer close(release)

			src := newFakeSource()
			src.set(1, hang(release))
			reg := newRegistry(t, client(1, "Alpha"), client(2, "Bravo"))
			e := newTestEngine(src, reg, Options{Interval: tt.interval, Timeout: tt.timeout}, nil)

			start := time.Now()
			b := e.Tick(context.Background())
			elapsed := time.Since(start)

			limit := tt.interval
			if tt.timeout < limit {
				limit = tt.timeout
			}
			if elapsed > limit+150*time.Millisecond {
				t.Fatalf("tick took %v, want about %v", elapsed, limit)
			}

			hung, _ := b.Frame(1)
			if !hung.Stale || !hung.Placeholder || !errors.Is(hung.Err, ErrCaptureTimeout) {
				t.Fatalf("hung window frame = %+v", hung)
			}
			ok, _ := b.Frame(2)
			if ok.Stale {
				t.Fatalf("healthy window should be fresh, got %+v", ok)
			}

			// The stuck call still holds its slot, so the next tick must not
			// start a second capture of the same window.
			b = e.Tick(context.Background())
			if n := src.count(1); n != 1 {
				t.Fatalf("hung window captured %d times", n)
			}
			if f, _ := b.Frame(1); !f.Stale {
				t.Fatalf("hung window should stay stale, got %+v", f)
			}
		})
	}
}

func TestTickReusesLastGoodFrame(t *testing.T) {
	src := newFakeSource()
	reg := newRegistry(t, client(1, "Alpha"))
	e := newTestEngine(src, reg, Options{}, nil)

	first, _ := e.Tick(context.Background()).Frame(1)
	if first.Stale {
		t.Fatalf("first frame should be fresh")
	}

	src.set(1, fail(ErrCaptureUnsupported))
	second, _ := e.Tick(context.Background()).Frame(1)
	if !second.Stale || second.Placeholder {
		t.Fatalf("expected stale reuse, got %+v", second)
	}
	if second.Image != first.Image {
		t.Fatalf("stale frame should reuse the cached image")
	}
	if !errors.Is(second.Err, ErrCaptureUnsupported) {
		t.Fatalf("expected ErrCaptureUnsupported, got %v", second.Err)
	}
}

func TestTickPlaceholderWithoutHistory(t *testing.T) {
	src := newFakeSource()
	src.set(1, fail(platform.ErrWindowGone))
	reg := newRegistry(t, client(1, "Alpha"))
	e := newTestEngine(src, reg, Options{Width: 120, Height: 60}, nil)

	f, _ := e.Tick(context.Background()).Frame(1)
	if !f.Placeholder || !f.Stale {
		t.Fatalf("expected placeholder, got %+v", f)
	}
	if f.Image.Bounds() != image.Rect(0, 0, 120, 60) {
		t.Fatalf("placeholder size = %v", f.Image.Bounds())
	}
}

func TestTickBackgroundDivisor(t *testing.T) {
	src := newFakeSource()
	bg := client(2, "Bravo")
	bg.Minimized = true
	reg := newRegistry(t, client(1, "Alpha"), bg)
	e := newTestEngine(src, reg, Options{BackgroundDivisor: 3}, nil)

	for i := 0; i < 6; i++ {
		e.Tick(context.Background())
	}
	if n := src.count(1); n != 6 {
		t.Fatalf("foreground window captured %d times, want 6", n)
	}
	if n := src.count(2); n != 2 {
		t.Fatalf("minimized window captured %d times, want 2", n)
	}
}

func TestTickLogsFailureOnce(t *testing.T) {
	var logs syncBuffer
	src := newFakeSource()
	src.set(1, fail(ErrCaptureUnsupported))
	reg := newRegistry(t, client(1, "Alpha"))
	e := newTestEngine(src, reg, Options{}, &logs)

	for i := 0; i < 3; i++ {
		e.Tick(context.Background())
	}
	if n := strings.Count(logs.String(), "capture failed"); n != 1 {
		t.Fatalf("expected one failure log, got %d:\n%s", n, logs.String())
	}

	src.set(1, nil)
	e.Tick(context.Background())
	if !strings.Contains(logs.String(), "capture recovered") {
		t.Fatalf("expected recovery log:\n%s", logs.String())
	}
}

func TestTickWorkerLimit(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	src := newFakeSource()
	src.set(1, hang(release))
	src.set(2, hang(release))
	reg := newRegistry(t, client(1, "Alpha"), client(2, "Bravo"), client(3, "Charlie"))
	e := newTestEngine(src, reg, Options{Workers: 2, Interval: 50 * time.Millisecond, Timeout: 20 * time.Millisecond}, nil)

	for i := 0; i < 2; i++ {
		b := e.Tick(context.Background())
		if f, _ := b.Frame(3); !f.Stale || !f.Placeholder {
			t.Fatalf("tick %d: no free worker, frame should be a placeholder, got %+v", i+1, f)
		}
	}
	if n := src.count(3); n != 0 {
		t.Fatalf("third window captured %d times while both workers were stuck", n)
	}
}

func TestRunReplacesUnconsumedBatch(t *testing.T) {
	reg := newRegistry(t, client(1, "Alpha"))
	e := newTestEngine(newFakeSource(), reg, Options{Interval: 10 * time.Millisecond}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan Batch, 1)
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx, out) }()

	time.Sleep(100 * time.Millisecond)
	b := <-out
	if b.Tick < 2 {
		t.Fatalf("expected a recent batch, got tick %d", b.Tick)
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Run did not stop")
	}
}

func TestScaleLetterboxes(t *testing.T) {
	if got := fitRect(1920, 1080, 250, 140); got != image.Rect(0, 0, 250, 140) {
		t.Fatalf("fitRect = %v", got)
	}
	tall := fitRect(100, 400, 200, 100)
	if tall != image.Rect(87, 0, 112, 100) {
		t.Fatalf("fitRect tall = %v", tall)
	}
}
