package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/composite"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/mousebind"
	"github.com/BurntSushi/xgbutil/xevent"
)

// Connection manages the X11 connection and core X resources
type Connection struct {
	XUtil *xgbutil.XUtil
	Root  xproto.Window

	// Composite is true when the server supports the Composite extension and
	// top-level windows were redirected, so occluded clients can still be
	// captured from their backing pixmap.
	Composite bool
}

// NewConnection establishes a connection to the X11 server. An empty display
// uses $DISPLAY.
func NewConnection(display string) (*Connection, error) {
	var (
		xu  *xgbutil.XUtil
		err error
	)
	if display == "" {
		xu, err = xgbutil.NewConn()
	} else {
		xu, err = xgbutil.NewConnDisplay(display)
	}
	if err != nil {
		return nil, err
	}

	// Initialize keybind and mousebind (required for global hotkeys and
	// thumbnail pointer handling)
	keybind.Initialize(xu)
	mousebind.Initialize(xu)

	c := &Connection{
		XUtil: xu,
		Root:  xu.RootWin(),
	}
	c.Composite = c.initComposite()
	return c, nil
}

// initComposite redirects root subwindows automatically so GetImage works on
// windows that are covered by others. Failure is not fatal; capture then falls
// back to reading the window directly.
func (c *Connection) initComposite() bool {
	conn := c.XUtil.Conn()
	if err := composite.Init(conn); err != nil {
		return false
	}
	if _, err := composite.QueryVersion(conn, 0, 4).Reply(); err != nil {
		return false
	}
	if err := composite.RedirectSubwindowsChecked(conn, c.Root, composite.RedirectAutomatic).Check(); err != nil {
		return false
	}
	return true
}

// EventLoop starts the main X11 event loop (blocking)
func (c *Connection) EventLoop() {
	xevent.Main(c.XUtil)
}

// Quit asks the event loop to return after the current event.
func (c *Connection) Quit() {
	xevent.Quit(c.XUtil)
}

// Close cleanly disconnects from the X11 server
func (c *Connection) Close() {
	if c.Composite {
		composite.UnredirectSubwindows(c.XUtil.Conn(), c.Root, composite.RedirectAutomatic)
	}
	c.XUtil.Conn().Close()
}

// internAtom returns the atom for name, creating it if necessary.
func (c *Connection) internAtom(name string) (xproto.Atom, error) {
	reply, err := xproto.InternAtom(c.XUtil.Conn(), false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, fmt.Errorf("failed to intern %s: %w", name, err)
	}
	return reply.Atom, nil
}
