//go:build linux

package platform

import (
	"github.com/1broseidon/evepreview/internal/x11"
	"github.com/BurntSushi/xgb/xproto"
)

// Watch translates X11 notifications into typed Events on out. Callbacks run
// on the event loop goroutine, so sends never block: when out is full the
// event is dropped and counted, and the periodic reconciler repairs the drift.
// Existing clients are reported as opened before Watch returns.
func (b *LinuxBackend) Watch(out chan<- Event) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.events = out
	b.mu.Unlock()

	if err := conn.WatchRoot(x11.RootCallbacks{
		ClientListChanged: b.syncClientList,
		ActiveChanged:     b.emitActive,
		DesktopChanged: func() {
			b.emit(Event{Kind: EventDesktopChanged})
		},
	}); err != nil {
		return err
	}

	b.syncClientList()
	b.emitActive()
	return nil
}

// Dropped returns how many events were discarded because the consumer lagged.
func (b *LinuxBackend) Dropped() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

func (b *LinuxBackend) syncClientList() {
	clients, err := b.conn.ClientList()
	if err != nil {
		b.logger.Warn("failed to read client list", "error", err)
		return
	}

	current := make(map[xproto.Window]struct{}, len(clients))
	for _, w := range clients {
		current[w] = struct{}{}
	}

	b.mu.Lock()
	var opened, closed []xproto.Window
	for w := range current {
		if _, ok := b.watched[w]; !ok {
			opened = append(opened, w)
		}
	}
	for w := range b.watched {
		if _, ok := current[w]; !ok {
			closed = append(closed, w)
		}
	}
	b.mu.Unlock()

	for _, w := range closed {
		b.forget(w)
	}
	for _, w := range opened {
		if !b.conn.IsNormalWindow(w) {
			continue
		}
		b.track(w)
	}
}

func (b *LinuxBackend) track(w xproto.Window) {
	err := b.conn.WatchClient(w, x11.ClientCallbacks{
		TitleChanged:    func(w xproto.Window) { b.emitDescribed(EventTitleChanged, w) },
		StateChanged:    func(w xproto.Window) { b.emitDescribed(EventStateChanged, w) },
		GeometryChanged: func(w xproto.Window) { b.emitDescribed(EventGeometryChanged, w) },
		Destroyed:       b.forget,
	})
	if err != nil {
		// Window vanished between listing and subscribing.
		return
	}

	b.mu.Lock()
	b.watched[w] = struct{}{}
	b.mu.Unlock()

	b.emitDescribed(EventOpened, w)
}

func (b *LinuxBackend) forget(w xproto.Window) {
	b.mu.Lock()
	_, ok := b.watched[w]
	delete(b.watched, w)
	b.mu.Unlock()
	if !ok {
		return
	}
	b.conn.UnwatchClient(w)
	b.emit(Event{Kind: EventClosed, ID: WindowID(w)})
}

func (b *LinuxBackend) emitDescribed(kind EventKind, w xproto.Window) {
	win, err := b.Window(WindowID(w))
	if err != nil {
		return
	}
	b.emit(Event{Kind: kind, ID: WindowID(w), Window: win})
}

func (b *LinuxBackend) emitActive() {
	active, err := b.conn.GetActiveWindow()
	if err != nil {
		active = 0
	}
	b.emit(Event{Kind: EventActiveChanged, ID: WindowID(active)})
}

func (b *LinuxBackend) emit(ev Event) {
	b.mu.Lock()
	out := b.events
	b.mu.Unlock()
	if out == nil {
		return
	}
	select {
	case out <- ev:
	default:
		b.mu.Lock()
		b.dropped++
		n := b.dropped
		b.mu.Unlock()
		if n == 1 || n%100 == 0 {
			b.logger.Warn("window event queue full; event dropped", "kind", ev.Kind.String(), "dropped_total", n)
		}
	}
}
