package platform

import (
	"errors"
	"image"
	"time"
)

// WindowID is a platform-neutral window identifier.
type WindowID uint32

// Rect describes a rectangular region in screen coordinates.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Contains reports whether the point lies inside r.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}

// Display describes a physical display.
type Display struct {
	ID     int
	Name   string
	Bounds Rect
}

// Window contains metadata and geometry for a top-level window.
type Window struct {
	ID       WindowID
	PID      int
	AppID    string // WM_CLASS class
	Instance string // WM_CLASS instance
	Title    string
	Bounds   Rect

	// Minimized is true while the window manager has the window iconified.
	Minimized bool
	// OnCurrentDesktop is false for windows parked on another virtual desktop.
	OnCurrentDesktop bool
}

var (
	// ErrWindowGone is returned when a window disappeared between listing and
	// querying it.
	ErrWindowGone = errors.New("window no longer exists")
	// ErrCaptureUnsupported is returned when a window rejects pixel capture.
	ErrCaptureUnsupported = errors.New("window rejects capture")
)

// Backend abstracts window-system operations across platforms.
type Backend interface {
	Displays() ([]Display, error)
	ActiveWindow() (WindowID, error)
	ListWindows() ([]Window, error)
	Window(id WindowID) (Window, error)
	Focus(id WindowID) error
	Minimize(id WindowID) error
}

// EventKind identifies a window lifecycle transition.
type EventKind int

const (
	EventOpened EventKind = iota
	EventClosed
	EventTitleChanged
	EventGeometryChanged
	EventStateChanged
	EventActiveChanged
	EventDesktopChanged
)

// String returns the string representation of the event kind
func (k EventKind) String() string {
	switch k {
	case EventOpened:
		return "opened"
	case EventClosed:
		return "closed"
	case EventTitleChanged:
		return "title"
	case EventGeometryChanged:
		return "geometry"
	case EventStateChanged:
		return "state"
	case EventActiveChanged:
		return "active"
	case EventDesktopChanged:
		return "desktop"
	default:
		return "unknown"
	}
}

// Event is a typed window lifecycle event. Window is populated for opened,
// title, geometry and state events; ID is always set except for desktop
// changes (and is 0 for "no active window").
type Event struct {
	Kind   EventKind
	ID     WindowID
	Window Window
}

// PointerKind identifies a pointer transition on a surface.
type PointerKind int

const (
	PointerDown PointerKind = iota
	PointerMove
	PointerUp
)

// PointerEvent is a pointer transition in root coordinates. Time is a
// monotonic timestamp with an arbitrary origin.
type PointerEvent struct {
	Kind   PointerKind
	Button int
	X      int
	Y      int
	Time   time.Duration
}

// Surface is an overlay window displaying one thumbnail.
type Surface interface {
	MoveResize(bounds Rect)
	Paint(img *image.RGBA) error
	Raise()
	SetOpacity(opacity float64) error
	Show()
	Hide()
	Destroy()
	OnPointer(func(PointerEvent))
}

// SurfaceFactory creates overlay surfaces.
type SurfaceFactory interface {
	NewSurface(name string, bounds Rect) (Surface, error)
}
