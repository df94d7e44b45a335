// Package capture runs the thumbnail capture clock: each tick it grabs every
// live client window on a bounded worker pool and hands the compositor one
// batch of frames.
package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/1broseidon/evepreview/internal/platform"
	"github.com/1broseidon/evepreview/internal/registry"
)

var (
	// ErrCaptureTimeout reports a capture that did not finish within the
	// per-capture timeout or the tick period.
	ErrCaptureTimeout = errors.New("capture timed out")
	// ErrCaptureUnsupported reports a window that refuses capture.
	ErrCaptureUnsupported = platform.ErrCaptureUnsupported
)

// Source reads a window's pixels.
type Source interface {
	Capture(ctx context.Context, id platform.WindowID) (*image.RGBA, error)
}

// Options tune the engine. Zero fields take defaults.
type Options struct {
	Interval          time.Duration
	Workers           int
	Timeout           time.Duration
	BackgroundDivisor int
	Width             int
	Height            int
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = 200 * time.Millisecond
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.Timeout <= 0 {
		o.Timeout = 150 * time.Millisecond
	}
	if o.BackgroundDivisor <= 0 {
		o.BackgroundDivisor = 5
	}
	if o.Width <= 0 {
		o.Width = 250
	}
	if o.Height <= 0 {
		o.Height = 140
	}
	return o
}

// Frame is one window's thumbnail for a tick.
type Frame struct {
	ID        platform.WindowID
	Character string
	Image     *image.RGBA
	// Stale marks a reused frame: the window was skipped, busy, failed or
	// timed out this tick.
	Stale bool
	// Placeholder marks a generated image for a window with no good frame.
	Placeholder bool
	// Err is the failure behind a stale frame, if any.
	Err        error
	CapturedAt time.Time
}

// Batch is every live window's frame for one tick, in registry order.
type Batch struct {
	Tick     uint64
	Frames   []Frame
	Started  time.Time
	Duration time.Duration
}

// Frame returns the frame for id.
func (b Batch) Frame(id platform.WindowID) (Frame, bool) {
	for _, f := range b.Frames {
		if f.ID == id {
			return f, true
		}
	}
	return Frame{}, false
}

type cached struct {
	img *image.RGBA
	at  time.Time
}

type result struct {
	id    platform.WindowID
	frame Frame
}

// Engine owns the capture clock.
type Engine struct {
	src      Source
	snapshot func() *registry.Snapshot
	logger   *slog.Logger

	mu           sync.Mutex
	opts         Options
	sem          *semaphore.Weighted
	tick         uint64
	cache        map[platform.WindowID]cached
	placeholders map[string]*image.RGBA
	inflight     map[platform.WindowID]bool
	failing      map[platform.WindowID]bool
}

// NewEngine creates an engine capturing the live windows of snapshot().
func NewEngine(src Source, snapshot func() *registry.Snapshot, opts Options, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	opts = opts.withDefaults()
	return &Engine{
		src:          src,
		snapshot:     snapshot,
		logger:       logger,
		opts:         opts,
		sem:          semaphore.NewWeighted(int64(opts.Workers)),
		cache:        make(map[platform.WindowID]cached),
		placeholders: make(map[string]*image.RGBA),
		inflight:     make(map[platform.WindowID]bool),
		failing:      make(map[platform.WindowID]bool),
	}
}

// SetOptions applies new options from the next tick on. Captures still in
// flight finish on the old pool.
func (e *Engine) SetOptions(opts Options) {
	opts = opts.withDefaults()
	e.mu.Lock()
	defer e.mu.Unlock()
	if opts.Workers != e.opts.Workers {
		e.sem = semaphore.NewWeighted(int64(opts.Workers))
	}
	if opts.Width != e.opts.Width || opts.Height != e.opts.Height {
		e.cache = make(map[platform.WindowID]cached)
		e.placeholders = make(map[string]*image.RGBA)
	}
	e.opts = opts
}

// Options returns the current options.
func (e *Engine) Options() Options {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opts
}

// Run ticks until ctx is done. A batch the consumer has not taken by the
// next tick is replaced, never queued.
func (e *Engine) Run(ctx context.Context, out chan Batch) error {
	interval := e.Options().Interval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		batch := e.Tick(ctx)
		select {
		case out <- batch:
		default:
			select {
			case <-out:
			default:
			}
			select {
			case out <- batch:
			default:
			}
		}

		if next := e.Options().Interval; next != interval {
			interval = next
			ticker.Reset(interval)
		}
	}
}

// Tick captures one batch. It returns within one tick period whatever the
// individual captures do.
func (e *Engine) Tick(ctx context.Context) Batch {
	start := time.Now()
	snap := e.snapshot()
	live := snap.Live()

	e.mu.Lock()
	e.tick++
	tick := e.tick
	opts := e.opts
	sem := e.sem
	e.pruneLocked(live)

	frames := make([]Frame, len(live))
	index := make(map[platform.WindowID]int, len(live))
	var launch []registry.ManagedWindow
	for i, w := range live {
		index[w.ID] = i
		background := w.Minimized || !w.OnCurrentDesktop
		switch {
		case background && tick%uint64(opts.BackgroundDivisor) != 0:
			frames[i] = e.staleLocked(w, nil, opts)
		case e.inflight[w.ID]:
			frames[i] = e.staleLocked(w, nil, opts)
		case !sem.TryAcquire(1):
			frames[i] = e.staleLocked(w, nil, opts)
		default:
			e.inflight[w.ID] = true
			launch = append(launch, w)
		}
	}
	e.mu.Unlock()

	results := make(chan result, len(launch))
	for _, w := range launch {
		go e.capture(ctx, w, opts, sem, results)
	}

	deadline := time.NewTimer(opts.Interval)
	defer deadline.Stop()
	pending := make(map[platform.WindowID]registry.ManagedWindow, len(launch))
	for _, w := range launch {
		pending[w.ID] = w
	}

collect:
	for len(pending) > 0 {
		select {
		case r := <-results:
			frames[index[r.id]] = r.frame
			delete(pending, r.id)
		case <-deadline.C:
			break collect
		case <-ctx.Done():
			break collect
		}
	}

	if len(pending) > 0 {
		e.mu.Lock()
		for id, w := range pending {
			frames[index[id]] = e.staleLocked(w, ErrCaptureTimeout, opts)
		}
		e.mu.Unlock()
	}

	return Batch{Tick: tick, Frames: frames, Started: start, Duration: time.Since(start)}
}

// capture runs one window's capture. The slot and in-flight mark are held
// until the source actually returns, so a hung window is skipped on later
// ticks instead of piling up.
func (e *Engine) capture(ctx context.Context, w registry.ManagedWindow, opts Options, sem *semaphore.Weighted, results chan<- result) {
	done := make(chan struct{})
	var img *image.RGBA
	var err error

	cctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()
	go func() {
		defer close(done)
		defer func() {
			sem.Release(1)
			e.mu.Lock()
			delete(e.inflight, w.ID)
			e.mu.Unlock()
		}()
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("capture panic: %v", r)
			}
		}()
		img, err = e.src.Capture(cctx, w.ID)
	}()

	select {
	case <-done:
	case <-cctx.Done():
	}

	var frame Frame
	select {
	case <-done:
		if err == nil && img == nil {
			err = ErrCaptureUnsupported
		}
		if err != nil && errors.Is(err, context.DeadlineExceeded) {
			err = ErrCaptureTimeout
		}
		frame = e.finish(w, img, err, opts)
	default:
		frame = e.finish(w, nil, ErrCaptureTimeout, opts)
	}
	results <- result{id: w.ID, frame: frame}
}

func (e *Engine) finish(w registry.ManagedWindow, img *image.RGBA, err error, opts Options) Frame {
	if err == nil {
		thumb := Scale(img, opts.Width, opts.Height)
		now := time.Now()

		e.mu.Lock()
		defer e.mu.Unlock()
		e.cache[w.ID] = cached{img: thumb, at: now}
		if e.failing[w.ID] {
			delete(e.failing, w.ID)
			e.logger.Info("capture recovered", "window", w.ID, "character", w.Character)
		}
		return Frame{ID: w.ID, Character: w.Character, Image: thumb, CapturedAt: now}
	}

	if errors.Is(err, platform.ErrWindowGone) {
		e.logger.Debug("window vanished during capture", "window", w.ID)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.failing[w.ID] {
		e.failing[w.ID] = true
		e.logger.Warn("capture failed; showing last frame", "window", w.ID, "character", w.Character, "error", err)
	}
	return e.staleLocked(w, err, opts)
}

// staleLocked returns the last good frame, or a placeholder.
func (e *Engine) staleLocked(w registry.ManagedWindow, err error, opts Options) Frame {
	f := Frame{ID: w.ID, Character: w.Character, Stale: true, Err: err}
	if c, ok := e.cache[w.ID]; ok {
		f.Image = c.img
		f.CapturedAt = c.at
		return f
	}
	ph, ok := e.placeholders[w.Character]
	if !ok {
		ph = Placeholder(opts.Width, opts.Height, w.Character)
		e.placeholders[w.Character] = ph
	}
	f.Image = ph
	f.Placeholder = true
	return f
}

// pruneLocked forgets windows that left the live set.
func (e *Engine) pruneLocked(live []registry.ManagedWindow) {
	keep := make(map[platform.WindowID]bool, len(live))
	chars := make(map[string]bool, len(live))
	for _, w := range live {
		keep[w.ID] = true
		chars[w.Character] = true
	}
	for id := range e.cache {
		if !keep[id] {
			delete(e.cache, id)
		}
	}
	for id := range e.failing {
		if !keep[id] {
			delete(e.failing, id)
		}
	}
	for c := range e.placeholders {
		if !chars[c] {
			delete(e.placeholders, c)
		}
	}
}
