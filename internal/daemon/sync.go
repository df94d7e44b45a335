package daemon

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/1broseidon/evepreview/internal/capture"
	"github.com/1broseidon/evepreview/internal/cycle"
	"github.com/1broseidon/evepreview/internal/hotkeys"
	"github.com/1broseidon/evepreview/internal/logging"
	"github.com/1broseidon/evepreview/internal/overlay"
	"github.com/1broseidon/evepreview/internal/platform"
	"github.com/1broseidon/evepreview/internal/profile"
	"github.com/1broseidon/evepreview/internal/registry"
)

// Focus is the outcome of a cycle, jump or profile switch.
type Focus struct {
	Focused   bool
	Character string
	ID        platform.WindowID
	Reason    string
}

// StateSynchronizer keeps the registry, the cycle engine and the compositor
// in step. Window events, hotkey actions and IPC commands all go through mu,
// so none of them observes another half applied.
type StateSynchronizer struct {
	store      *profile.Store
	registry   *registry.Registry
	cycle      *cycle.Engine
	overlay    *overlay.Compositor
	capture    *capture.Engine
	dispatcher *hotkeys.Dispatcher
	source     hotkeys.Source
	log        *logging.Logger
	logger     *slog.Logger

	requireFocus atomic.Bool

	mu     sync.Mutex
	prof   profile.Profile
	groups map[string][]cycle.Group
}

// syncDeps are the components a StateSynchronizer coordinates.
type syncDeps struct {
	store      *profile.Store
	registry   *registry.Registry
	cycle      *cycle.Engine
	overlay    *overlay.Compositor
	capture    *capture.Engine
	dispatcher *hotkeys.Dispatcher
	source     hotkeys.Source
	log        *logging.Logger
	logger     *slog.Logger
}

// NewStateSynchronizer creates a synchronizer and applies the store's
// current config to every component.
func NewStateSynchronizer(deps syncDeps) *StateSynchronizer {
	s := &StateSynchronizer{
		store:      deps.store,
		registry:   deps.registry,
		cycle:      deps.cycle,
		overlay:    deps.overlay,
		capture:    deps.capture,
		dispatcher: deps.dispatcher,
		source:     deps.source,
		log:        deps.log,
		logger:     deps.logger,
	}
	s.dispatcher.SetGate(s.gate)
	s.mu.Lock()
	s.applyLocked()
	s.mu.Unlock()
	return s
}

// gate admits hotkeys only while a managed client has focus, unless the
// profile turns require_focus off.
func (s *StateSynchronizer) gate() bool {
	if !s.requireFocus.Load() {
		return true
	}
	snap := s.registry.Snapshot()
	_, ok := snap.Lookup(snap.Active)
	return ok
}

// HandleEvent applies one window lifecycle event.
func (s *StateSynchronizer) HandleEvent(ev platform.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		changes []registry.Change
		err     error
		focus   bool
	)
	switch ev.Kind {
	case platform.EventOpened:
		w := ev.Window
		w.ID = ev.ID
		changes = s.registry.Register(w)
	case platform.EventClosed:
		changes, err = s.registry.Unregister(ev.ID)
	case platform.EventTitleChanged, platform.EventGeometryChanged, platform.EventStateChanged:
		w := ev.Window
		w.ID = ev.ID
		changes, err = s.registry.Update(ev.ID, w)
		if errors.Is(err, registry.ErrWindowNotFound) {
			// A window can start matching once its title changes.
			changes, err = s.registry.Register(w), nil
		}
	case platform.EventActiveChanged:
		focus = s.registry.SetActive(ev.ID)
	default:
		return
	}
	if err != nil && !errors.Is(err, registry.ErrWindowNotFound) {
		s.logger.Warn("failed to apply window event", "event", ev.Kind.String(), "window", ev.ID, "error", err)
	}
	s.publishLocked(changes, focus)
}

// Reconcile replaces the registry's view with a full window listing.
func (s *StateSynchronizer) Reconcile(windows []platform.Window) []registry.Change {
	s.mu.Lock()
	defer s.mu.Unlock()
	changes := s.registry.Sync(windows)
	s.publishLocked(changes, false)
	return changes
}

// publishLocked pushes the current snapshot to the compositor and the cycle
// engine after the registry changed.
func (s *StateSynchronizer) publishLocked(changes []registry.Change, focusChanged bool) {
	if len(changes) == 0 && !focusChanged {
		return
	}
	for _, c := range changes {
		s.logger.Debug("registry change", "kind", c.Kind.String(), "window", c.ID, "character", c.Character, "previous", c.Previous)
	}

	snap := s.registry.Snapshot()
	s.overlay.Sync(snap)

	before := s.cycle.State()
	eff := s.cycle.SetMembership(s.membershipLocked(snap))
	if eff.Focus != "" && before.Active {
		// Only a member whose window is gone hands focus on. A window that
		// merely logged off keeps the user where they are.
		if _, open := snap.Canonical(before.Current); open {
			eff.Focus = ""
		}
	}
	if eff.Focus != "" {
		if _, err := s.focusLocked(eff.Focus, snap); err != nil {
			s.logger.Warn("failed to focus next cycle member", "character", eff.Focus, "error", err)
		}
	}

	if focusChanged {
		if character, ok := snap.ActiveCharacter(); ok {
			s.cycle.Apply(cycle.FocusObserved(character))
		}
	}
}

func (s *StateSynchronizer) membershipLocked(snap *registry.Snapshot) cycle.Membership {
	return cycle.Membership{
		Groups: s.groups,
		Live:   snap.Eligible(s.prof.IncludeLoggedOff),
	}
}

// focusLocked activates the canonical window of character through the
// compositor, which also applies auto-minimize.
func (s *StateSynchronizer) focusLocked(character string, snap *registry.Snapshot) (platform.WindowID, error) {
	w, ok := snap.Canonical(character)
	if !ok {
		return 0, fmt.Errorf("focus %q: %w", character, registry.ErrWindowNotFound)
	}
	if err := s.overlay.Activate(w.ID); err != nil {
		return w.ID, err
	}
	s.logger.Debug("focused client", "character", character, "window", w.ID)
	return w.ID, nil
}

// deliverLocked turns a cycle effect into a focus command.
func (s *StateSynchronizer) deliverLocked(eff cycle.Effect) (Focus, error) {
	if eff.Err != nil {
		if errors.Is(eff.Err, cycle.ErrCycleEmpty) {
			s.logger.Debug("cycle request ignored", "reason", eff.Err)
		}
		return Focus{Reason: eff.Err.Error()}, nil
	}
	if eff.Focus == "" {
		// The engine may already sit on a member the user never saw, e.g.
		// after a logged-off window kept focus.
		st := s.cycle.State()
		active, ok := s.registry.Snapshot().ActiveCharacter()
		if !st.Active || st.Current == "" || (ok && active == st.Current) {
			return Focus{Character: st.Current, Reason: "focus unchanged"}, nil
		}
		eff.Focus = st.Current
	}
	id, err := s.focusLocked(eff.Focus, s.registry.Snapshot())
	if err != nil {
		return Focus{Character: eff.Focus, ID: id}, err
	}
	return Focus{Focused: true, Character: eff.Focus, ID: id}, nil
}

// Cycle moves to the next (dir > 0) or previous member of group. An empty
// group keeps the active one.
func (s *StateSynchronizer) Cycle(group string, dir int) (Focus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if group != "" {
		if _, ok := s.prof.Group(group); !ok {
			return Focus{}, fmt.Errorf("profile %q has no cycle group %q", s.prof.Name, group)
		}
	}
	ev := cycle.Next(group)
	if dir < 0 {
		ev = cycle.Prev(group)
	}
	return s.deliverLocked(s.cycle.Apply(ev))
}

// JumpTo focuses a character. Characters outside the active group are
// focused directly and leave the cycle position alone.
func (s *StateSynchronizer) JumpTo(character string) (Focus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	eff := s.cycle.Apply(cycle.JumpTo(character))
	if eff.Focus != "" {
		return s.deliverLocked(eff)
	}
	id, err := s.focusLocked(character, s.registry.Snapshot())
	if err != nil {
		return Focus{Character: character}, err
	}
	return Focus{Focused: true, Character: character, ID: id}, nil
}

// ToggleSkip excludes or readmits a character; empty means the current
// cycle member.
func (s *StateSynchronizer) ToggleSkip(character string) (Focus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	eff := s.cycle.Apply(cycle.ToggleSkip(character))
	if eff.Toggled != "" {
		s.logger.Info("cycle skip toggled", "character", eff.Toggled, "skipped", eff.Skipped)
	}
	if eff.Focus == "" {
		return Focus{Character: eff.Toggled}, nil
	}
	return s.deliverLocked(eff)
}

// SwitchProfile selects a profile, reconfigures every component for it and
// activates its default group.
func (s *StateSynchronizer) SwitchProfile(name string) (Focus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Select(name); err != nil {
		return Focus{}, err
	}
	s.applyLocked()
	s.logger.Info("switched profile", "profile", name)

	snap := s.registry.Snapshot()
	s.cycle.SetMembership(s.membershipLocked(snap))
	return s.deliverLocked(s.cycle.Apply(cycle.SwitchProfile(name)))
}

// SetThumbnailsEnabled shows or hides every thumbnail and records the
// choice in the config.
func (s *StateSynchronizer) SetThumbnailsEnabled(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.SetThumbnailsEnabled(on)
	s.overlay.SetEnabled(on)
	s.logger.Info("thumbnails toggled", "enabled", on)
}

// ApplyConfig pushes a replaced config to every component.
func (s *StateSynchronizer) ApplyConfig() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyLocked()

	snap := s.registry.Snapshot()
	if st := s.cycle.State(); st.Profile != s.prof.Name {
		s.cycle.SetMembership(s.membershipLocked(snap))
		s.cycle.Apply(cycle.SwitchProfile(s.prof.Name))
		return
	}
	s.cycle.SetMembership(s.membershipLocked(snap))
}

// applyLocked reconfigures every component from the store.
func (s *StateSynchronizer) applyLocked() {
	cfg := s.store.Config()
	settings := cfg.Global
	s.prof = *cfg.Selected()
	s.groups = cycleGroups(cfg)
	s.requireFocus.Store(s.prof.RequireFocus)

	if s.log != nil {
		if err := s.log.SetLevel(settings.LogLevel); err != nil {
			s.logger.Warn("invalid log level", "level", settings.LogLevel, "error", err)
		}
	}

	if m, err := registry.NewMatcher(cfg.MatcherConfig()); err != nil {
		s.logger.Warn("keeping previous window matcher", "error", err)
	} else {
		s.registry.SetMatcher(m)
	}
	s.registry.SetPolicy(policyFor(s.prof))
	s.capture.SetOptions(captureOptions(settings, s.prof))

	table, err := cfg.Table(s.prof.Name)
	if err != nil {
		s.logger.Warn("keeping previous hotkey bindings", "profile", s.prof.Name, "error", err)
	} else {
		s.dispatcher.SetTable(table)
		s.dispatcher.Reset()
		if s.source != nil {
			s.dispatcher.Bind(s.source)
		}
	}

	s.overlay.ApplyProfile(s.prof)
	s.overlay.SetEnabled(settings.ThumbnailsEnabled)
	s.cycle.SetGroups(s.groups)
}

// Profile returns the active profile.
func (s *StateSynchronizer) Profile() profile.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prof.Clone()
}

// cycleGroups converts every profile's groups for the cycle engine.
func cycleGroups(cfg *profile.Config) map[string][]cycle.Group {
	out := make(map[string][]cycle.Group, len(cfg.Profiles))
	for _, p := range cfg.Profiles {
		groups := make([]cycle.Group, 0, len(p.CycleGroups))
		for _, g := range p.CycleGroups {
			groups = append(groups, cycle.Group{
				Name:    g.Name,
				Members: append([]string(nil), g.Characters...),
			})
		}
		out[p.Name] = groups
	}
	return out
}

func policyFor(p profile.Profile) registry.Policy {
	dup, err := registry.ParseDuplicatePolicy(p.DuplicatePolicy)
	if err != nil {
		dup = registry.DuplicateNewest
	}
	return registry.Policy{Duplicate: dup, KeepLoggedOff: p.KeepLoggedOff}
}

func captureOptions(s profile.Settings, p profile.Profile) capture.Options {
	return capture.Options{
		Interval:          time.Duration(s.Capture.IntervalMS) * time.Millisecond,
		Workers:           s.Capture.Workers,
		Timeout:           time.Duration(s.Capture.TimeoutMS) * time.Millisecond,
		BackgroundDivisor: s.Capture.BackgroundDivisor,
		Width:             p.Thumbnail.Width,
		Height:            p.Thumbnail.Height,
	}
}
