package x11

import (
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/BurntSushi/xgbutil/xprop"
	"github.com/BurntSushi/xgbutil/xwindow"
)

// RootCallbacks are invoked from the event loop goroutine on root property
// changes.
type RootCallbacks struct {
	ClientListChanged func()
	ActiveChanged     func()
	DesktopChanged    func()
}

// ClientCallbacks are invoked from the event loop goroutine for one client.
type ClientCallbacks struct {
	TitleChanged    func(xproto.Window)
	StateChanged    func(xproto.Window)
	GeometryChanged func(xproto.Window)
	Destroyed       func(xproto.Window)
}

// WatchRoot subscribes to _NET_CLIENT_LIST, _NET_ACTIVE_WINDOW and
// _NET_CURRENT_DESKTOP changes.
func (c *Connection) WatchRoot(cb RootCallbacks) error {
	root := xwindow.New(c.XUtil, c.Root)
	if err := root.Listen(xproto.EventMaskPropertyChange); err != nil {
		return err
	}

	xevent.PropertyNotifyFun(func(xu *xgbutil.XUtil, ev xevent.PropertyNotifyEvent) {
		name, err := xprop.AtomName(xu, ev.Atom)
		if err != nil {
			return
		}
		switch name {
		case "_NET_CLIENT_LIST":
			if cb.ClientListChanged != nil {
				cb.ClientListChanged()
			}
		case "_NET_ACTIVE_WINDOW":
			if cb.ActiveChanged != nil {
				cb.ActiveChanged()
			}
		case "_NET_CURRENT_DESKTOP":
			if cb.DesktopChanged != nil {
				cb.DesktopChanged()
			}
		}
	}).Connect(c.XUtil, c.Root)
	return nil
}

// WatchClient subscribes to title, state, geometry and destroy events of a
// client window.
func (c *Connection) WatchClient(windowID xproto.Window, cb ClientCallbacks) error {
	win := xwindow.New(c.XUtil, windowID)
	if err := win.Listen(xproto.EventMaskPropertyChange, xproto.EventMaskStructureNotify); err != nil {
		return err
	}

	xevent.PropertyNotifyFun(func(xu *xgbutil.XUtil, ev xevent.PropertyNotifyEvent) {
		name, err := xprop.AtomName(xu, ev.Atom)
		if err != nil {
			return
		}
		switch name {
		case "_NET_WM_NAME", "WM_NAME":
			if cb.TitleChanged != nil {
				cb.TitleChanged(windowID)
			}
		case "_NET_WM_STATE", "WM_STATE", "_NET_WM_DESKTOP":
			if cb.StateChanged != nil {
				cb.StateChanged(windowID)
			}
		}
	}).Connect(c.XUtil, windowID)

	xevent.ConfigureNotifyFun(func(_ *xgbutil.XUtil, _ xevent.ConfigureNotifyEvent) {
		if cb.GeometryChanged != nil {
			cb.GeometryChanged(windowID)
		}
	}).Connect(c.XUtil, windowID)

	xevent.DestroyNotifyFun(func(xu *xgbutil.XUtil, _ xevent.DestroyNotifyEvent) {
		xevent.Detach(xu, windowID)
		if cb.Destroyed != nil {
			cb.Destroyed(windowID)
		}
	}).Connect(c.XUtil, windowID)

	return nil
}

// UnwatchClient drops every callback registered for windowID.
func (c *Connection) UnwatchClient(windowID xproto.Window) {
	xevent.Detach(c.XUtil, windowID)
}
