package x11

import (
	"fmt"
	"image"
	"sync"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/BurntSushi/xgbutil/xgraphics"
	"github.com/BurntSushi/xgbutil/xwindow"
)

// PointerKind identifies a pointer transition on a surface.
type PointerKind int

const (
	PointerPress PointerKind = iota
	PointerMotion
	PointerRelease
)

// PointerHandler receives pointer transitions in root coordinates. time is the
// X server timestamp in milliseconds.
type PointerHandler func(kind PointerKind, button int, rootX, rootY int, time uint32)

// Surface is an override-redirect window that displays an RGBA image.
type Surface struct {
	xu  *xgbutil.XUtil
	win *xwindow.Window

	mu      sync.Mutex
	ximg    *xgraphics.Image
	mapped  bool
	handler PointerHandler
}

// NewSurface creates an unmapped override-redirect surface. The window
// bypasses the window manager so it stays where it is placed.
func (c *Connection) NewSurface(name string, x, y, width, height int) (*Surface, error) {
	win, err := xwindow.Generate(c.XUtil)
	if err != nil {
		return nil, fmt.Errorf("generate surface id: %w", err)
	}

	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}

	// Value list order follows the bit positions of the mask (low → high).
	// CwBackPixel comes before CwOverrideRedirect, so it must be first.
	err = win.CreateChecked(c.Root, x, y, width, height,
		xproto.CwBackPixel|xproto.CwOverrideRedirect,
		0, 1)
	if err != nil {
		return nil, fmt.Errorf("create surface: %w", err)
	}

	if err := win.Listen(
		xproto.EventMaskButtonPress,
		xproto.EventMaskButtonRelease,
		xproto.EventMaskPointerMotion,
		xproto.EventMaskExposure,
	); err != nil {
		win.Destroy()
		return nil, fmt.Errorf("listen on surface: %w", err)
	}

	_ = ewmh.WmNameSet(c.XUtil, win.Id, name)
	_ = icccm.WmClassSet(c.XUtil, win.Id, &icccm.WmClass{
		Instance: "evepreview",
		Class:    "evepreview",
	})

	s := &Surface{xu: c.XUtil, win: win}
	s.connectEvents()
	return s, nil
}

func (s *Surface) connectEvents() {
	xevent.ButtonPressFun(func(_ *xgbutil.XUtil, ev xevent.ButtonPressEvent) {
		s.dispatch(PointerPress, int(ev.Detail), int(ev.RootX), int(ev.RootY), uint32(ev.Time))
	}).Connect(s.xu, s.win.Id)

	xevent.ButtonReleaseFun(func(_ *xgbutil.XUtil, ev xevent.ButtonReleaseEvent) {
		s.dispatch(PointerRelease, int(ev.Detail), int(ev.RootX), int(ev.RootY), uint32(ev.Time))
	}).Connect(s.xu, s.win.Id)

	xevent.MotionNotifyFun(func(_ *xgbutil.XUtil, ev xevent.MotionNotifyEvent) {
		s.dispatch(PointerMotion, 0, int(ev.RootX), int(ev.RootY), uint32(ev.Time))
	}).Connect(s.xu, s.win.Id)

	xevent.ExposeFun(func(_ *xgbutil.XUtil, ev xevent.ExposeEvent) {
		if ev.Count == 0 {
			s.repaint()
		}
	}).Connect(s.xu, s.win.Id)
}

func (s *Surface) dispatch(kind PointerKind, button, x, y int, t uint32) {
	s.mu.Lock()
	h := s.handler
	s.mu.Unlock()
	if h != nil {
		h(kind, button, x, y, t)
	}
}

// ID returns the X window id of the surface.
func (s *Surface) ID() uint32 {
	return uint32(s.win.Id)
}

// OnPointer installs the pointer handler.
func (s *Surface) OnPointer(h PointerHandler) {
	s.mu.Lock()
	s.handler = h
	s.mu.Unlock()
}

// Paint replaces the displayed image. The surface is resized to the image.
func (s *Surface) Paint(img *image.RGBA) error {
	ximg := xgraphics.NewConvert(s.xu, img)
	if err := ximg.XSurfaceSet(s.win.Id); err != nil {
		ximg.Destroy()
		return fmt.Errorf("surface pixmap: %w", err)
	}
	ximg.XDraw()
	ximg.XPaint(s.win.Id)

	s.mu.Lock()
	old := s.ximg
	s.ximg = ximg
	s.mu.Unlock()

	if old != nil {
		old.Destroy()
	}
	return nil
}

func (s *Surface) repaint() {
	s.mu.Lock()
	ximg := s.ximg
	s.mu.Unlock()
	if ximg != nil {
		ximg.XPaint(s.win.Id)
	}
}

// MoveResize places the surface in root coordinates.
func (s *Surface) MoveResize(x, y, width, height int) {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	s.win.MoveResize(x, y, width, height)
}

// Raise stacks the surface above its siblings.
func (s *Surface) Raise() {
	s.win.Stack(xproto.StackModeAbove)
}

// SetOpacity sets _NET_WM_WINDOW_OPACITY, honoured by compositing managers.
func (s *Surface) SetOpacity(opacity float64) error {
	return ewmh.WmWindowOpacitySet(s.xu, s.win.Id, opacity)
}

// Show maps the surface.
func (s *Surface) Show() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mapped {
		return
	}
	s.win.Map()
	s.mapped = true
}

// Hide unmaps the surface without destroying it.
func (s *Surface) Hide() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mapped {
		return
	}
	s.win.Unmap()
	s.mapped = false
}

// Destroy releases the window and its backing pixmap.
func (s *Surface) Destroy() {
	s.mu.Lock()
	ximg := s.ximg
	s.ximg = nil
	s.handler = nil
	s.mapped = false
	s.mu.Unlock()

	xevent.Detach(s.xu, s.win.Id)
	if ximg != nil {
		ximg.Destroy()
	}
	s.win.Destroy()
}
