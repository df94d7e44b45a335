// Package daemon wires the window registry, capture engine, compositor,
// hotkey dispatcher and cycle engine into one long-running process.
package daemon

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/1broseidon/evepreview/internal/capture"
	"github.com/1broseidon/evepreview/internal/config"
	"github.com/1broseidon/evepreview/internal/cycle"
	"github.com/1broseidon/evepreview/internal/hotkeys"
	"github.com/1broseidon/evepreview/internal/ipc"
	"github.com/1broseidon/evepreview/internal/logging"
	"github.com/1broseidon/evepreview/internal/overlay"
	"github.com/1broseidon/evepreview/internal/platform"
	"github.com/1broseidon/evepreview/internal/profile"
	"github.com/1broseidon/evepreview/internal/registry"
)

// eventBuffer sizes the window event channel. Overflow is dropped by the
// backend and repaired by the reconciler.
const eventBuffer = 256

// persistDelay batches position writes while a thumbnail is dragged around.
const persistDelay = 500 * time.Millisecond

// ErrNoConfigFile is returned by Reload when the daemon runs on defaults.
var ErrNoConfigFile = errors.New("daemon was started without a config file")

// Backend is everything the daemon needs from the window system.
type Backend interface {
	platform.Backend
	platform.SurfaceFactory
	capture.Source
	// Watch starts delivering window events to out.
	Watch(out chan<- platform.Event) error
}

// Options configures a Daemon.
type Options struct {
	Backend Backend
	// Hotkeys is the global input source; nil runs without hotkeys.
	Hotkeys hotkeys.Source
	Store   *profile.Store
	// ConfigPath is watched for changes and receives saved positions. Empty
	// disables both.
	ConfigPath string
	// SocketPath overrides the IPC socket; empty uses the runtime default.
	SocketPath string
	// DisableIPC skips the control socket.
	DisableIPC        bool
	ReconcileInterval time.Duration
	Log               *logging.Logger
	Logger            *slog.Logger
}

// Daemon is the running preview manager.
type Daemon struct {
	opts    Options
	logger  *slog.Logger
	store   *profile.Store
	backend Backend

	registry   *registry.Registry
	capture    *capture.Engine
	overlay    *overlay.Compositor
	cycle      *cycle.Engine
	queue      *hotkeys.Queue
	dispatcher *hotkeys.Dispatcher
	sync       *StateSynchronizer
	reconciler *Reconciler

	started time.Time
	events  chan platform.Event
	dirty   chan struct{}

	writeMu     sync.Mutex
	lastWritten []byte
}

// New builds every component from the store's current config. Nothing
// touches the window system until Run.
func New(opts Options) (*Daemon, error) {
	if opts.Backend == nil {
		return nil, errors.New("daemon: backend is required")
	}
	if opts.Store == nil {
		return nil, errors.New("daemon: profile store is required")
	}
	logger := opts.Logger
	if logger == nil && opts.Log != nil {
		logger = opts.Log.Logger
	}
	if logger == nil {
		logger = slog.Default()
	}

	cfg := opts.Store.Config()
	settings := cfg.Global
	prof := *cfg.Selected()

	matcher, err := registry.NewMatcher(cfg.MatcherConfig())
	if err != nil {
		return nil, fmt.Errorf("invalid window matching: %w", err)
	}
	table, err := cfg.Table(prof.Name)
	if err != nil {
		return nil, err
	}

	d := &Daemon{
		opts:    opts,
		logger:  logger,
		store:   opts.Store,
		backend: opts.Backend,
		events:  make(chan platform.Event, eventBuffer),
		dirty:   make(chan struct{}, 1),
	}

	d.registry = registry.New(matcher, policyFor(prof), opts.Backend)
	d.overlay = overlay.NewCompositor(overlay.Options{
		Factory:   opts.Backend,
		Commander: d.registry,
		Positions: opts.Store,
		Displays:  opts.Backend.Displays,
		Logger:    logger.With("component", "overlay"),
	}, prof, settings.ThumbnailsEnabled)
	d.capture = capture.NewEngine(opts.Backend, d.captureSnapshot, captureOptions(settings, prof), logger.With("component", "capture"))
	d.cycle = cycle.NewEngine(prof.Name, cycle.Membership{Groups: cycleGroups(cfg)}, logger.With("component", "cycle"))
	d.queue = hotkeys.NewQueue(hotkeys.DefaultQueueSize)
	d.dispatcher = hotkeys.NewDispatcher(table, d.queue, logger.With("component", "hotkeys"))

	d.sync = NewStateSynchronizer(syncDeps{
		store:      opts.Store,
		registry:   d.registry,
		cycle:      d.cycle,
		overlay:    d.overlay,
		capture:    d.capture,
		dispatcher: d.dispatcher,
		source:     opts.Hotkeys,
		log:        opts.Log,
		logger:     logger,
	})
	d.reconciler = NewReconciler(ReconcilerConfig{
		Interval: opts.ReconcileInterval,
		Logger:   logger,
	}, d.sync, opts.Backend.ListWindows)

	// Only thumbnail positions are written back. Save flattens includes, so
	// a profile switch or preview toggle must not rewrite the user's files.
	opts.Store.Subscribe(func(_ *profile.Config, change profile.Change) {
		if change != profile.ChangePosition {
			return
		}
		select {
		case d.dirty <- struct{}{}:
		default:
		}
	})
	return d, nil
}

// captureSnapshot hides every window from the capture engine while
// thumbnails are off.
func (d *Daemon) captureSnapshot() *registry.Snapshot {
	if !d.overlay.Enabled() {
		return &registry.Snapshot{}
	}
	return d.registry.Snapshot()
}

// Run starts every loop and blocks until ctx is done. Surfaces, grabs and
// the socket are released on every return path.
func (d *Daemon) Run(ctx context.Context) error {
	d.started = time.Now()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	defer d.overlay.Close()
	if d.opts.Hotkeys != nil {
		defer d.opts.Hotkeys.Close()
	}

	if !d.opts.DisableIPC {
		var (
			server *ipc.Server
			err    error
		)
		if d.opts.SocketPath != "" {
			server = ipc.NewServerAt(d.opts.SocketPath, d, d.logger)
		} else if server, err = ipc.NewServer(d, d.logger); err != nil {
			return err
		}
		if err := server.Start(); err != nil {
			return err
		}
		defer server.Stop()
	}

	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()
	spawn := func(name string, fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					d.logger.Error("daemon loop panic recovered", "loop", name, "error", r)
					cancel()
				}
			}()
			fn()
		}()
	}

	spawn("events", func() { d.eventLoop(ctx) })
	if err := d.backend.Watch(d.events); err != nil {
		return fmt.Errorf("failed to watch windows: %w", err)
	}
	d.reconciler.ReconcileNow()

	spawn("reconciler", func() { d.reconciler.Run(ctx) })
	spawn("render", func() { d.renderLoop(ctx) })
	spawn("actions", func() { d.actionLoop(ctx) })
	if d.opts.Hotkeys != nil {
		spawn("hotkeys", func() {
			if err := d.dispatcher.Run(ctx, d.opts.Hotkeys); err != nil {
				d.logger.Error("hotkey listener stopped; continuing without global hotkeys", "backend", d.opts.Hotkeys.Name(), "error", err)
			}
		})
	}
	if d.opts.ConfigPath != "" {
		spawn("persist", func() { d.persistLoop(ctx) })
		spawn("config-watch", func() {
			if err := config.Watch(ctx, d.opts.ConfigPath, config.DefaultReloadDebounce, d.logger, d.configChanged); err != nil {
				d.logger.Warn("config hot reload disabled", "path", d.opts.ConfigPath, "error", err)
			}
		})
	}

	d.logger.Info("evepreview daemon started",
		"profile", d.store.ActiveName(),
		"thumbnails", d.overlay.Enabled(),
		"bindings", d.dispatcher.Table().Len(),
	)
	<-ctx.Done()
	d.logger.Info("shutting down evepreview daemon")
	return nil
}

func (d *Daemon) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-d.events:
			if ev.Kind == platform.EventDesktopChanged {
				d.reconciler.ReconcileNow()
				continue
			}
			d.sync.HandleEvent(ev)
		}
	}
}

func (d *Daemon) renderLoop(ctx context.Context) {
	batches := make(chan capture.Batch, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		d.capture.Run(ctx, batches)
	}()
	defer func() { <-done }()

	for {
		select {
		case <-ctx.Done():
			return
		case b := <-batches:
			d.overlay.Render(b)
		}
	}
}

func (d *Daemon) actionLoop(ctx context.Context) {
	for {
		a, err := d.queue.Pop(ctx)
		if err != nil {
			return
		}
		d.HandleAction(a)
	}
}

// HandleAction runs one hotkey action.
func (d *Daemon) HandleAction(a hotkeys.Action) {
	d.logger.Debug("hotkey action", "action", a.String())

	var err error
	switch a.Kind {
	case hotkeys.ActionCycleNext:
		_, err = d.sync.Cycle(a.Group, +1)
	case hotkeys.ActionCyclePrev:
		_, err = d.sync.Cycle(a.Group, -1)
	case hotkeys.ActionJumpTo:
		_, err = d.sync.JumpTo(a.Character)
	case hotkeys.ActionSwitchProfile:
		_, err = d.sync.SwitchProfile(a.Profile)
	case hotkeys.ActionToggleSkip:
		_, err = d.sync.ToggleSkip("")
	case hotkeys.ActionTogglePreviews:
		d.sync.SetThumbnailsEnabled(!d.store.Settings().ThumbnailsEnabled)
	}
	if err != nil {
		d.logger.Warn("hotkey action failed", "action", a.String(), "error", err)
	}
}

// Reload re-reads the config file. An invalid file is reported and the
// running config stays in force.
func (d *Daemon) Reload() error {
	if d.opts.ConfigPath == "" {
		return ErrNoConfigFile
	}
	res, err := config.LoadFromPath(d.opts.ConfigPath)
	if err != nil {
		d.logger.Warn("config reload failed; keeping previous config", "path", d.opts.ConfigPath, "error", err)
		return err
	}
	if err := d.store.Replace(res.Config); err != nil {
		d.logger.Warn("config reload failed; keeping previous config", "path", d.opts.ConfigPath, "error", err)
		return err
	}
	d.sync.ApplyConfig()
	d.reconciler.ReconcileNow()
	d.logger.Info("config reloaded", "path", d.opts.ConfigPath, "profile", d.store.ActiveName())
	return nil
}

// configChanged runs on file notifications. The daemon's own writes are
// recognized by content and skipped.
func (d *Daemon) configChanged() {
	data, err := os.ReadFile(d.opts.ConfigPath)
	if err == nil {
		d.writeMu.Lock()
		own := d.lastWritten != nil && bytes.Equal(data, d.lastWritten)
		d.writeMu.Unlock()
		if own {
			return
		}
	}
	d.Reload()
}

func (d *Daemon) persistLoop(ctx context.Context) {
	var (
		timer   *time.Timer
		fire    <-chan time.Time
		pending bool
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			if pending {
				d.save()
			}
			return
		case <-d.dirty:
			pending = true
			if timer == nil {
				timer = time.NewTimer(persistDelay)
				fire = timer.C
			}
		case <-fire:
			timer, fire, pending = nil, nil, false
			d.save()
		}
	}
}

// save writes the store's config to ConfigPath.
func (d *Daemon) save() {
	cfg := d.store.Config()
	data, err := config.Marshal(cfg)
	if err != nil {
		d.logger.Warn("failed to encode config", "error", err)
		return
	}
	d.writeMu.Lock()
	d.lastWritten = data
	d.writeMu.Unlock()

	if err := config.Save(d.opts.ConfigPath, cfg); err != nil {
		d.logger.Warn("failed to save config", "path", d.opts.ConfigPath, "error", err)
		return
	}
	d.logger.Debug("config saved", "path", d.opts.ConfigPath)
}
