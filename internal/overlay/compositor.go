// Package overlay shows one always-on-top thumbnail per client window and
// turns pointer input on those thumbnails into clicks and drags.
package overlay

import (
	"image"
	"log/slog"
	"slices"
	"sync"

	"github.com/1broseidon/evepreview/internal/capture"
	"github.com/1broseidon/evepreview/internal/platform"
	"github.com/1broseidon/evepreview/internal/profile"
	"github.com/1broseidon/evepreview/internal/registry"
)

// Commander focuses and minimizes managed windows. The registry implements
// it so every window-system command goes through one lock.
type Commander interface {
	Activate(id platform.WindowID) error
	Minimize(id platform.WindowID) error
}

// Positions persists dragged thumbnail positions.
type Positions interface {
	SetPosition(character string, pos profile.Position) bool
}

// Options wires a compositor to the window system.
type Options struct {
	Factory   platform.SurfaceFactory
	Commander Commander
	Positions Positions
	Displays  func() ([]platform.Display, error)
	Logger    *slog.Logger
}

// Placement describes one thumbnail for status queries.
type Placement struct {
	ID        platform.WindowID `json:"id"`
	Character string            `json:"character"`
	Bounds    platform.Rect     `json:"bounds"`
	Z         int               `json:"z"`
	Visible   bool              `json:"visible"`
	Active    bool              `json:"active"`
}

type thumbnail struct {
	id        platform.WindowID
	character string
	seq       uint64
	surface   platform.Surface
	bounds    platform.Rect
	gesture   Gesture
	frame     *image.RGBA

	// size overrides the profile's thumbnail size when non-zero.
	size [2]int
}

type persistOp struct {
	character string
	pos       profile.Position
}

// Compositor owns the thumbnail surfaces.
type Compositor struct {
	opts   Options
	logger *slog.Logger

	mu       sync.Mutex
	prof     profile.Profile
	style    Style
	enabled  bool
	closed   bool
	displays []platform.Display

	thumbs   map[platform.WindowID]*thumbnail
	snap     *registry.Snapshot
	active   platform.WindowID
	nextSeq  uint64
	focusSeq uint64
	focused  map[string]uint64
	stack    []platform.WindowID
	hidden   bool
	pending  []persistOp
}

// NewCompositor creates a compositor for prof. No surfaces exist until the
// first Sync.
func NewCompositor(opts Options, prof profile.Profile, enabled bool) *Compositor {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c := &Compositor{
		opts:    opts,
		logger:  logger,
		prof:    prof.Clone(),
		enabled: enabled,
		thumbs:  make(map[platform.WindowID]*thumbnail),
		focused: make(map[string]uint64),
	}
	c.style = StyleFromProfile(prof.Thumbnail, logger)
	c.refreshDisplays()
	return c
}

// refreshDisplays re-reads monitor geometry. Callers hold c.mu or have not
// published c yet.
func (c *Compositor) refreshDisplays() {
	if c.opts.Displays == nil {
		return
	}
	displays, err := c.opts.Displays()
	if err != nil {
		c.logger.Warn("failed to read displays", "error", err)
		return
	}
	c.displays = displays
}

// unlock releases c.mu and then persists any positions recorded while it
// was held, so store subscribers may call back into the compositor.
func (c *Compositor) unlock() {
	ops := c.pending
	c.pending = nil
	c.mu.Unlock()
	if c.opts.Positions == nil {
		return
	}
	for _, op := range ops {
		c.opts.Positions.SetPosition(op.character, op.pos)
	}
}

// Sync reconciles surfaces with a registry snapshot: new live windows get a
// thumbnail, renamed ones keep or move theirs, and every thumbnail whose
// window is no longer live is destroyed.
func (c *Compositor) Sync(snap *registry.Snapshot) {
	c.mu.Lock()
	defer c.unlock()
	if c.closed {
		return
	}
	c.snap = snap
	c.syncLocked()
}

func (c *Compositor) syncLocked() {
	live := c.snap.Live()
	byID := make(map[platform.WindowID]registry.ManagedWindow, len(live))
	for _, w := range live {
		byID[w.ID] = w
	}

	for id, t := range c.thumbs {
		if _, ok := byID[id]; !ok {
			c.destroyLocked(t)
		}
	}
	if !c.enabled {
		return
	}

	for _, w := range live {
		t, ok := c.thumbs[w.ID]
		if !ok {
			c.createLocked(w)
			continue
		}
		if t.character != w.Character {
			t.size = [2]int{w.ThumbWidth, w.ThumbHeight}
			c.renameLocked(t, w.Character)
		}
	}

	c.setActiveLocked(c.snap.Active)
	c.applyVisibilityLocked()
	c.restackLocked(false)
}

func (c *Compositor) createLocked(w registry.ManagedWindow) {
	size := [2]int{w.ThumbWidth, w.ThumbHeight}
	bounds := c.placeLocked(w.Character, w.ID, c.sizedStyle(size))
	surface, err := c.opts.Factory.NewSurface("evepreview: "+w.Character, bounds)
	if err != nil {
		c.logger.Warn("failed to create thumbnail", "character", w.Character, "window", w.ID, "error", err)
		return
	}
	c.nextSeq++
	t := &thumbnail{
		id:        w.ID,
		character: w.Character,
		seq:       c.nextSeq,
		surface:   surface,
		bounds:    bounds,
		size:      size,
	}
	id := w.ID
	surface.OnPointer(func(ev platform.PointerEvent) { c.handlePointer(id, ev) })
	if err := surface.SetOpacity(c.style.Opacity); err != nil {
		c.logger.Debug("failed to set thumbnail opacity", "character", w.Character, "error", err)
	}
	c.thumbs[w.ID] = t
	c.paintLocked(t)
	if !c.hidden {
		surface.Show()
	}
	c.logger.Debug("thumbnail created", "character", w.Character, "window", w.ID, "bounds", bounds)
}

func (c *Compositor) destroyLocked(t *thumbnail) {
	t.surface.Destroy()
	delete(c.thumbs, t.id)
	c.logger.Debug("thumbnail destroyed", "character", t.character, "window", t.id)
}

// renameLocked handles a client that switched characters. A saved position
// for the new character wins; otherwise the thumbnail stays put when
// preserve_position_on_swap is set and respawns when it is not.
func (c *Compositor) renameLocked(t *thumbnail, character string) {
	previous := t.character
	t.character = character
	t.gesture.Reset()

	style := c.sizedStyle(t.size)
	if pos, ok := c.prof.ThumbnailPositions[character]; ok {
		c.moveLocked(t, savedRect(pos, style))
	} else if c.prof.PreservePositionOnSwap {
		if t.bounds.Width != style.Width || t.bounds.Height != style.Height {
			c.moveLocked(t, platform.Rect{X: t.bounds.X, Y: t.bounds.Y, Width: style.Width, Height: style.Height})
		}
		c.recordLocked(character, t.bounds)
	} else {
		c.moveLocked(t, c.placeLocked(character, t.id, style))
	}
	c.paintLocked(t)
	c.logger.Debug("thumbnail renamed", "from", previous, "to", character, "window", t.id)
}

// sizedStyle is the profile style at size, when both sides are set.
func (c *Compositor) sizedStyle(size [2]int) Style {
	style := c.style
	if size[0] > 0 && size[1] > 0 {
		style.Width, style.Height = size[0], size[1]
	}
	return style
}

// placeLocked returns the saved position for character or the next free
// cascade slot, sized from style.
func (c *Compositor) placeLocked(character string, self platform.WindowID, style Style) platform.Rect {
	if pos, ok := c.prof.ThumbnailPositions[character]; ok {
		return savedRect(pos, style)
	}
	var taken []platform.Rect
	for id, t := range c.thumbs {
		if id != self {
			taken = append(taken, t.bounds)
		}
	}
	var display platform.Rect
	if len(c.displays) > 0 {
		display = c.displays[0].Bounds
	}
	return spawnPosition(display, taken, style.Width, style.Height)
}

func (c *Compositor) moveLocked(t *thumbnail, r platform.Rect) {
	t.bounds = r
	t.surface.MoveResize(r)
}

// recordLocked stores a position in the local profile copy and queues it for
// the store when the profile auto-saves.
func (c *Compositor) recordLocked(character string, r platform.Rect) {
	if !c.prof.AutoSavePosition {
		return
	}
	pos := positionOf(r)
	if c.prof.ThumbnailPositions == nil {
		c.prof.ThumbnailPositions = make(map[string]profile.Position)
	}
	c.prof.ThumbnailPositions[character] = pos
	c.pending = append(c.pending, persistOp{character: character, pos: pos})
}

func (c *Compositor) setActiveLocked(id platform.WindowID) {
	if id == c.active {
		return
	}
	prev := c.active
	c.active = id
	if t, ok := c.thumbs[id]; ok {
		c.focusSeq++
		c.focused[t.character] = c.focusSeq
		c.paintLocked(t)
	}
	if t, ok := c.thumbs[prev]; ok {
		c.paintLocked(t)
	}
}

// applyVisibilityLocked hides every thumbnail while no managed window has
// focus, if the profile asks for it.
func (c *Compositor) applyVisibilityLocked() {
	managed := false
	if c.snap != nil {
		_, managed = c.snap.ActiveCharacter()
	}
	hide := c.prof.HideWhenNoFocus && !managed
	if hide == c.hidden {
		return
	}
	c.hidden = hide
	for _, t := range c.thumbs {
		if hide {
			t.surface.Hide()
		} else {
			t.surface.Show()
		}
	}
	if !hide {
		c.restackLocked(true)
	}
}

func (c *Compositor) restackLocked(force bool) {
	entries := make([]stackEntry, 0, len(c.thumbs))
	for _, t := range c.thumbs {
		entries = append(entries, stackEntry{
			id:        t.id,
			character: t.character,
			seq:       t.seq,
			focused:   c.focused[t.character],
		})
	}
	order := stackOrder(entries, c.prof.ZOrder, c.prof.CharacterOrder())
	if !force && slices.Equal(order, c.stack) {
		return
	}
	for _, id := range order {
		c.thumbs[id].surface.Raise()
	}
	c.stack = order
}

// Render paints a capture batch. Frames for windows without a thumbnail are
// ignored.
func (c *Compositor) Render(batch capture.Batch) {
	c.mu.Lock()
	defer c.unlock()
	if c.closed {
		return
	}
	for _, f := range batch.Frames {
		t, ok := c.thumbs[f.ID]
		if !ok || f.Image == nil {
			continue
		}
		t.frame = f.Image
		c.paintLocked(t)
	}
}

func (c *Compositor) paintLocked(t *thumbnail) {
	if t.frame == nil {
		return
	}
	style := c.style
	style.Width, style.Height = t.bounds.Width, t.bounds.Height
	img := Compose(t.frame, style, t.character, t.id == c.active)
	if err := t.surface.Paint(img); err != nil {
		c.logger.Debug("failed to paint thumbnail", "character", t.character, "error", err)
	}
}

func (c *Compositor) handlePointer(id platform.WindowID, ev platform.PointerEvent) {
	c.mu.Lock()
	t, ok := c.thumbs[id]
	if !ok || c.closed {
		c.unlock()
		return
	}
	out := t.gesture.Handle(ev, t.bounds.X, t.bounds.Y)
	switch out.Kind {
	case OutcomeDragMove:
		r := t.bounds
		r.X, r.Y = out.X, out.Y
		c.moveLocked(t, r)
		t.surface.Raise()

	case OutcomeDragEnd:
		r := t.bounds
		r.X, r.Y = out.X, out.Y
		r = Snap(r, c.othersLocked(id), c.prof.SnapThreshold)
		r = Clamp(r, displayFor(c.displays, r))
		c.moveLocked(t, r)
		c.recordLocked(t.character, r)
		c.restackLocked(true)
		c.logger.Debug("thumbnail moved", "character", t.character, "bounds", r)

	case OutcomeCancelled:
		c.logger.Debug("click cancelled", "character", t.character)

	case OutcomeClick:
		c.unlock()
		if err := c.Activate(id); err != nil {
			c.logger.Warn("failed to activate window", "window", id, "error", err)
		}
		return
	}
	c.unlock()
}

func (c *Compositor) othersLocked(self platform.WindowID) []platform.Rect {
	out := make([]platform.Rect, 0, len(c.thumbs))
	for id, t := range c.thumbs {
		if id != self {
			out = append(out, t.bounds)
		}
	}
	return out
}

// Activate focuses a managed window and, with auto_minimize_inactive, then
// minimizes the managed window that had focus before.
func (c *Compositor) Activate(id platform.WindowID) error {
	c.mu.Lock()
	prev := c.active
	minimizePrev := false
	if c.prof.AutoMinimizeInactive && prev != 0 && prev != id && c.snap != nil {
		_, minimizePrev = c.snap.Lookup(prev)
	}
	c.unlock()

	if err := c.opts.Commander.Activate(id); err != nil {
		return err
	}
	if minimizePrev {
		if err := c.opts.Commander.Minimize(prev); err != nil {
			c.logger.Debug("failed to minimize previous window", "window", prev, "error", err)
		}
	}
	return nil
}

// ApplyProfile restyles and repositions every thumbnail for a new or reloaded
// profile.
func (c *Compositor) ApplyProfile(p profile.Profile) {
	c.mu.Lock()
	defer c.unlock()
	if c.closed {
		return
	}
	c.prof = p.Clone()
	c.style = StyleFromProfile(p.Thumbnail, c.logger)
	c.refreshDisplays()

	for _, t := range c.thumbs {
		style := c.sizedStyle(t.size)
		if pos, ok := c.prof.ThumbnailPositions[t.character]; ok {
			c.moveLocked(t, savedRect(pos, style))
		} else if t.bounds.Width != style.Width || t.bounds.Height != style.Height {
			r := t.bounds
			r.Width, r.Height = style.Width, style.Height
			c.moveLocked(t, r)
		}
		if err := t.surface.SetOpacity(c.style.Opacity); err != nil {
			c.logger.Debug("failed to set thumbnail opacity", "character", t.character, "error", err)
		}
		c.paintLocked(t)
	}
	if c.snap != nil {
		c.syncLocked()
	}
	c.restackLocked(true)
}

// SetEnabled shows or tears down all thumbnails.
func (c *Compositor) SetEnabled(on bool) {
	c.mu.Lock()
	defer c.unlock()
	if c.closed || c.enabled == on {
		return
	}
	c.enabled = on
	if !on {
		for _, t := range c.thumbs {
			c.destroyLocked(t)
		}
		c.stack = nil
		return
	}
	if c.snap != nil {
		c.syncLocked()
	}
}

// Enabled reports whether thumbnails are shown.
func (c *Compositor) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// Layout returns every thumbnail bottom to top.
func (c *Compositor) Layout() []Placement {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Placement, 0, len(c.stack))
	for _, id := range c.stack {
		t, ok := c.thumbs[id]
		if !ok {
			continue
		}
		out = append(out, Placement{
			ID:        t.id,
			Character: t.character,
			Bounds:    t.bounds,
			Z:         len(out),
			Visible:   !c.hidden,
			Active:    t.id == c.active,
		})
	}
	return out
}

// Close destroys every surface. The compositor ignores all calls afterwards.
func (c *Compositor) Close() {
	c.mu.Lock()
	defer c.unlock()
	if c.closed {
		return
	}
	for _, t := range c.thumbs {
		c.destroyLocked(t)
	}
	c.stack = nil
	c.closed = true
}
