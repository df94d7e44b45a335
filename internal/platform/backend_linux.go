//go:build linux

package platform

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/1broseidon/evepreview/internal/x11"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
)

// LinuxBackend wraps an X11 connection behind the platform interfaces.
type LinuxBackend struct {
	conn   *x11.Connection
	logger *slog.Logger

	mu      sync.Mutex
	watched map[xproto.Window]struct{}
	events  chan<- Event
	dropped int
}

var (
	_ Backend        = (*LinuxBackend)(nil)
	_ SurfaceFactory = (*LinuxBackend)(nil)
)

// NewLinuxBackendFromDisplay opens a fresh X11 connection. An empty display
// uses $DISPLAY.
func NewLinuxBackendFromDisplay(display string, logger *slog.Logger) (*LinuxBackend, error) {
	conn, err := x11.NewConnection(display)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if !conn.Composite {
		logger.Warn("composite extension unavailable; covered clients may not capture")
	}
	return &LinuxBackend{
		conn:    conn,
		logger:  logger,
		watched: make(map[xproto.Window]struct{}),
	}, nil
}

// Disconnect closes the underlying X11 connection.
func (b *LinuxBackend) Disconnect() {
	if b != nil && b.conn != nil {
		b.conn.Close()
	}
}

// EventLoop starts the X11 event loop (blocking).
func (b *LinuxBackend) EventLoop() {
	if b != nil && b.conn != nil {
		b.conn.EventLoop()
	}
}

// Quit makes EventLoop return.
func (b *LinuxBackend) Quit() {
	if b != nil && b.conn != nil {
		b.conn.Quit()
	}
}

// XUtil returns the underlying xgbutil connection for X11-specific operations.
func (b *LinuxBackend) XUtil() *xgbutil.XUtil {
	if b == nil || b.conn == nil {
		return nil
	}
	return b.conn.XUtil
}

// RootWindow returns the X11 root window ID.
func (b *LinuxBackend) RootWindow() xproto.Window {
	if b == nil || b.conn == nil {
		return 0
	}
	return b.conn.Root
}

// Displays returns all active displays.
func (b *LinuxBackend) Displays() ([]Display, error) {
	conn, err := b.connection()
	if err != nil {
		return nil, err
	}

	monitors, err := conn.GetMonitors()
	if err != nil {
		return nil, err
	}

	displays := make([]Display, 0, len(monitors))
	for _, m := range monitors {
		displays = append(displays, Display{
			ID:     m.ID,
			Name:   m.Name,
			Bounds: Rect{X: m.X, Y: m.Y, Width: m.Width, Height: m.Height},
		})
	}

	sort.Slice(displays, func(i, j int) bool {
		return displays[i].ID < displays[j].ID
	})

	return displays, nil
}

// ActiveWindow returns the currently active/focused window ID.
func (b *LinuxBackend) ActiveWindow() (WindowID, error) {
	conn, err := b.connection()
	if err != nil {
		return 0, err
	}

	wid, err := conn.GetActiveWindow()
	if err != nil {
		return 0, err
	}
	return WindowID(wid), nil
}

// ListWindows lists normal top-level client windows.
func (b *LinuxBackend) ListWindows() ([]Window, error) {
	conn, err := b.connection()
	if err != nil {
		return nil, err
	}

	clients, err := conn.ClientList()
	if err != nil {
		return nil, err
	}

	currentDesktop, desktopErr := conn.GetCurrentDesktop()

	windows := make([]Window, 0, len(clients))
	for _, windowID := range clients {
		if !conn.IsNormalWindow(windowID) {
			continue
		}
		w, ok := b.describe(windowID, currentDesktop, desktopErr == nil)
		if !ok {
			continue
		}
		windows = append(windows, w)
	}

	sort.Slice(windows, func(i, j int) bool {
		return windows[i].ID < windows[j].ID
	})

	return windows, nil
}

// Window returns a fresh description of a single window.
func (b *LinuxBackend) Window(id WindowID) (Window, error) {
	conn, err := b.connection()
	if err != nil {
		return Window{}, err
	}
	currentDesktop, desktopErr := conn.GetCurrentDesktop()
	w, ok := b.describe(xproto.Window(id), currentDesktop, desktopErr == nil)
	if !ok {
		return Window{}, fmt.Errorf("window 0x%x: %w", uint32(id), ErrWindowGone)
	}
	return w, nil
}

// Focus activates, raises and (with most window managers) de-iconifies a window.
func (b *LinuxBackend) Focus(id WindowID) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	return conn.FocusWindow(uint32(id))
}

// Minimize minimizes a window via WM_CHANGE_STATE.
func (b *LinuxBackend) Minimize(id WindowID) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	return conn.MinimizeWindow(uint32(id))
}

// Capture reads the current contents of a window.
func (b *LinuxBackend) Capture(ctx context.Context, id WindowID) (*image.RGBA, error) {
	conn, err := b.connection()
	if err != nil {
		return nil, err
	}
	img, err := conn.CaptureWindow(ctx, xproto.Window(id))
	if errors.Is(err, x11.ErrNotCapturable) {
		return nil, fmt.Errorf("window 0x%x: %w", uint32(id), ErrCaptureUnsupported)
	}
	return img, err
}

// NewSurface creates an override-redirect overlay surface.
func (b *LinuxBackend) NewSurface(name string, bounds Rect) (Surface, error) {
	conn, err := b.connection()
	if err != nil {
		return nil, err
	}
	s, err := conn.NewSurface(name, bounds.X, bounds.Y, bounds.Width, bounds.Height)
	if err != nil {
		return nil, err
	}
	return &linuxSurface{s: s}, nil
}

func (b *LinuxBackend) describe(windowID xproto.Window, currentDesktop int, hasDesktop bool) (Window, bool) {
	conn := b.conn
	geom, ok := conn.WindowGeometry(windowID)
	if !ok {
		return Window{}, false
	}

	class, instance := conn.WindowClass(windowID)
	onCurrent := true
	if hasDesktop {
		desktop, err := conn.GetWindowDesktop(uint32(windowID))
		if err == nil && desktop >= 0 && desktop != currentDesktop {
			onCurrent = false
		}
	}

	return Window{
		ID:               WindowID(windowID),
		PID:              conn.WindowPID(windowID),
		AppID:            class,
		Instance:         instance,
		Title:            conn.WindowTitle(windowID),
		Bounds:           Rect{X: geom.X, Y: geom.Y, Width: geom.Width, Height: geom.Height},
		Minimized:        conn.IsHidden(windowID),
		OnCurrentDesktop: onCurrent,
	}, true
}

func (b *LinuxBackend) connection() (*x11.Connection, error) {
	if b == nil || b.conn == nil {
		return nil, fmt.Errorf("x11 backend connection is nil")
	}
	return b.conn, nil
}

// linuxSurface adapts x11.Surface to the Surface interface.
type linuxSurface struct {
	s *x11.Surface
}

func (l *linuxSurface) MoveResize(r Rect) { l.s.MoveResize(r.X, r.Y, r.Width, r.Height) }
func (l *linuxSurface) Paint(img *image.RGBA) error { return l.s.Paint(img) }
func (l *linuxSurface) Raise() { l.s.Raise() }
func (l *linuxSurface) SetOpacity(opacity float64) error { return l.s.SetOpacity(opacity) }
func (l *linuxSurface) Show() { l.s.Show() }
func (l *linuxSurface) Hide() { l.s.Hide() }
func (l *linuxSurface) Destroy() { l.s.Destroy() }

func (l *linuxSurface) OnPointer(fn func(PointerEvent)) {
	if fn == nil {
		l.s.OnPointer(nil)
		return
	}
	l.s.OnPointer(func(kind x11.PointerKind, button int, x, y int, t uint32) {
		ev := PointerEvent{
			Button: button,
			X:      x,
			Y:      y,
			Time:   time.Duration(t) * time.Millisecond,
		}
		switch kind {
		case x11.PointerPress:
			ev.Kind = PointerDown
		case x11.PointerMotion:
			ev.Kind = PointerMove
		case x11.PointerRelease:
			ev.Kind = PointerUp
		}
		fn(ev)
	})
}
