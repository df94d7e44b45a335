package hotkeys

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrHotkeyGrabFailed reports that a source could not acquire a key grab or
// open an input device. It is a warning: the dispatcher keeps running and the
// source retries on re-enumeration.
var ErrHotkeyGrabFailed = errors.New("hotkey grab failed")

// KeyEvent is one key or button transition with the modifiers held at the
// time. Repeat marks auto-repeat presses the source could identify.
type KeyEvent struct {
	Key    string
	Mods   Modifier
	Down   bool
	Repeat bool
}

// Source is a global input listener.
type Source interface {
	// Name identifies the backend in logs.
	Name() string
	// Bind replaces the set of chords the source must report. Sources that
	// see every key may ignore it.
	Bind(chords []Chord) error
	// Run delivers transitions to emit until ctx is done.
	Run(ctx context.Context, emit func(KeyEvent)) error
	// Close releases grabs and devices.
	Close() error
}

// Dispatcher turns key transitions into actions. A held key fires its action
// once, on the press edge.
type Dispatcher struct {
	logger *slog.Logger
	queue  *Queue

	mu    sync.Mutex
	table *Table
	held  map[string]bool
	gate  func() bool
}

// NewDispatcher creates a dispatcher delivering into queue.
func NewDispatcher(table *Table, queue *Queue, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		logger: logger,
		queue:  queue,
		table:  table,
		held:   make(map[string]bool),
	}
}

// SetTable swaps the binding table, for example after a profile switch.
func (d *Dispatcher) SetTable(t *Table) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.table = t
}

// Table returns the current binding table.
func (d *Dispatcher) Table() *Table {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.table
}

// SetGate installs a predicate consulted before an action is queued. A nil
// gate lets everything through.
func (d *Dispatcher) SetGate(fn func() bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gate = fn
}

// Reset forgets held keys. Sources call it when devices change, since a
// release may have been lost.
func (d *Dispatcher) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.held = make(map[string]bool)
}

// HandleKey processes one transition and reports the action it queued.
func (d *Dispatcher) HandleKey(ev KeyEvent) (Action, bool) {
	d.mu.Lock()
	if !ev.Down {
		delete(d.held, ev.Key)
		d.mu.Unlock()
		return Action{}, false
	}
	if ev.Repeat || d.held[ev.Key] {
		d.mu.Unlock()
		return Action{}, false
	}
	d.held[ev.Key] = true

	action, ok := d.table.Lookup(Chord{Mods: ev.Mods, Key: ev.Key})
	gate := d.gate
	d.mu.Unlock()

	if !ok {
		return Action{}, false
	}
	if gate != nil && !gate() {
		d.logger.Debug("hotkey ignored; no client focused", "action", action.String())
		return Action{}, false
	}
	if d.queue.Push(action) {
		d.logger.Warn("action queue full; dropped oldest action", "dropped_total", d.queue.Dropped())
	}
	return action, true
}

// Bind pushes the current table's chords to src. Grab failures are logged
// and not returned.
func (d *Dispatcher) Bind(src Source) {
	if err := src.Bind(d.Table().Chords()); err != nil {
		d.logger.Warn("some hotkeys could not be grabbed", "backend", src.Name(), "error", err)
	}
}

// Run binds src and pumps its events until ctx is done.
func (d *Dispatcher) Run(ctx context.Context, src Source) error {
	d.Bind(src)
	d.logger.Info("hotkey listener started", "backend", src.Name(), "bindings", d.Table().Len())
	err := src.Run(ctx, func(ev KeyEvent) {
		d.HandleKey(ev)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
