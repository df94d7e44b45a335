package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/1broseidon/evepreview/internal/platform"
)

// ErrWindowNotFound is returned for ids the registry does not manage.
var ErrWindowNotFound = errors.New("window not found")

// DuplicatePolicy decides which of several windows showing the same character
// is canonical.
type DuplicatePolicy string

const (
	// DuplicateNewest makes the most recently seen window canonical.
	DuplicateNewest DuplicatePolicy = "newest"
	// DuplicateOldest keeps the first window canonical.
	DuplicateOldest DuplicatePolicy = "oldest"
)

// ParseDuplicatePolicy validates a policy name. Empty means newest.
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch DuplicatePolicy(s) {
	case "", DuplicateNewest:
		return DuplicateNewest, nil
	case DuplicateOldest:
		return DuplicateOldest, nil
	default:
		return "", fmt.Errorf("unknown duplicate policy %q (want newest or oldest)", s)
	}
}

// Policy holds the profile-dependent registry behavior.
type Policy struct {
	Duplicate DuplicatePolicy
	// KeepLoggedOff retains closed characters as ghosts.
	KeepLoggedOff bool
}

// ChangeKind describes one registry mutation.
type ChangeKind int

const (
	ChangeAdded ChangeKind = iota
	ChangeRemoved
	ChangeGhosted
	ChangeUpdated
	ChangeRenamed
	ChangeRebound
	ChangeDemoted
	ChangePromoted
	ChangeLoggedOff
)

// String returns the string representation of the change kind
func (k ChangeKind) String() string {
	switch k {
	case ChangeAdded:
		return "added"
	case ChangeRemoved:
		return "removed"
	case ChangeGhosted:
		return "ghosted"
	case ChangeUpdated:
		return "updated"
	case ChangeRenamed:
		return "renamed"
	case ChangeRebound:
		return "rebound"
	case ChangeDemoted:
		return "demoted"
	case ChangePromoted:
		return "promoted"
	case ChangeLoggedOff:
		return "logged_off"
	default:
		return "unknown"
	}
}

// Change is reported by every mutation. Previous is the former character of
// a renamed window; PreviousID is the window a rebound or promoted entry
// took over from.
type Change struct {
	Kind       ChangeKind
	ID         platform.WindowID
	Character  string
	Previous   string
	PreviousID platform.WindowID
}

// Commander issues window-system commands.
type Commander interface {
	Focus(id platform.WindowID) error
	Minimize(id platform.WindowID) error
}

// Registry is the authoritative table of managed windows. Mutations are
// serialized by mu and each one publishes a fresh immutable Snapshot; readers
// only ever load the published pointer.
type Registry struct {
	cmd Commander
	now func() time.Time

	mu      sync.Mutex
	matcher *Matcher
	policy  Policy
	windows map[platform.WindowID]*ManagedWindow
	ghosts  map[string]*ManagedWindow
	lastID  map[string]platform.WindowID
	active  platform.WindowID
	seq     uint64
	version uint64

	current atomic.Pointer[Snapshot]

	// cmdMu serializes focus and minimize requests from the compositor
	// and the cycle engine.
	cmdMu sync.Mutex
}

// New creates an empty registry.
func New(matcher *Matcher, policy Policy, cmd Commander) *Registry {
	if policy.Duplicate == "" {
		policy.Duplicate = DuplicateNewest
	}
	r := &Registry{
		cmd:     cmd,
		now:     time.Now,
		matcher: matcher,
		policy:  policy,
		windows: make(map[platform.WindowID]*ManagedWindow),
		ghosts:  make(map[string]*ManagedWindow),
		lastID:  make(map[string]platform.WindowID),
	}
	r.current.Store(newSnapshot(0, nil, 0))
	return r
}

// SetPolicy replaces the policy. Existing entries keep their status until
// their next change.
func (r *Registry) SetPolicy(p Policy) {
	if p.Duplicate == "" {
		p.Duplicate = DuplicateNewest
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policy = p
	if !p.KeepLoggedOff && len(r.ghosts) > 0 {
		r.ghosts = make(map[string]*ManagedWindow)
		r.publishLocked()
	}
}

// SetMatcher replaces the matcher used for subsequent events.
func (r *Registry) SetMatcher(m *Matcher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.matcher = m
}

// MatchCharacter extracts the character name from a window title.
func (r *Registry) MatchCharacter(title string) (string, bool) {
	r.mu.Lock()
	m := r.matcher
	r.mu.Unlock()
	return m.MatchCharacter(title)
}

// Snapshot returns the current immutable view.
func (r *Registry) Snapshot() *Snapshot {
	return r.current.Load()
}

// Register adds a newly opened window. Windows whose class or title do not
// match are ignored and produce no changes. Registering a known id is an
// update.
func (r *Registry) Register(raw platform.Window) []Change {
	r.mu.Lock()
	defer r.mu.Unlock()

	var changes []Change
	if _, ok := r.windows[raw.ID]; ok {
		changes = r.updateLocked(raw)
	} else {
		changes = r.registerLocked(raw)
	}
	if len(changes) > 0 {
		r.publishLocked()
	}
	return changes
}

// Update applies fresh title, geometry and state for a managed window.
func (r *Registry) Update(id platform.WindowID, raw platform.Window) ([]Change, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.windows[id]; !ok {
		return nil, fmt.Errorf("update 0x%x: %w", uint32(id), ErrWindowNotFound)
	}
	raw.ID = id
	changes := r.updateLocked(raw)
	if len(changes) > 0 {
		r.publishLocked()
	}
	return changes, nil
}

// Unregister handles a closed window.
func (r *Registry) Unregister(id platform.WindowID) ([]Change, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.windows[id]; !ok {
		return nil, fmt.Errorf("unregister 0x%x: %w", uint32(id), ErrWindowNotFound)
	}
	changes := r.unregisterLocked(id)
	r.publishLocked()
	return changes, nil
}

// SetActive records the focused window, managed or not. It reports whether
// the value changed.
func (r *Registry) SetActive(id platform.WindowID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == id {
		return false
	}
	r.active = id
	r.publishLocked()
	return true
}

// Sync reconciles the table against a full window listing: unknown matching
// windows are registered, known ones updated and missing ones unregistered.
func (r *Registry) Sync(windows []platform.Window) []Change {
	r.mu.Lock()
	defer r.mu.Unlock()

	var changes []Change
	seen := make(map[platform.WindowID]struct{}, len(windows))
	for _, raw := range windows {
		seen[raw.ID] = struct{}{}
		if _, ok := r.windows[raw.ID]; ok {
			changes = append(changes, r.updateLocked(raw)...)
		} else {
			changes = append(changes, r.registerLocked(raw)...)
		}
	}

	var gone []platform.WindowID
	for id := range r.windows {
		if _, ok := seen[id]; !ok {
			gone = append(gone, id)
		}
	}
	sort.Slice(gone, func(i, j int) bool { return gone[i] < gone[j] })
	for _, id := range gone {
		changes = append(changes, r.unregisterLocked(id)...)
	}

	if len(changes) > 0 {
		r.publishLocked()
	}
	return changes
}

// Activate focuses (and un-minimizes) a managed window.
func (r *Registry) Activate(id platform.WindowID) error {
	r.cmdMu.Lock()
	defer r.cmdMu.Unlock()

	if _, ok := r.Snapshot().Lookup(id); !ok {
		return fmt.Errorf("activate 0x%x: %w", uint32(id), ErrWindowNotFound)
	}
	return r.cmd.Focus(id)
}

// ActivateCharacter focuses the canonical window of a character.
func (r *Registry) ActivateCharacter(character string) (platform.WindowID, error) {
	w, ok := r.Snapshot().Canonical(character)
	if !ok {
		return 0, fmt.Errorf("activate %q: %w", character, ErrWindowNotFound)
	}
	return w.ID, r.Activate(w.ID)
}

// Minimize iconifies a managed window.
func (r *Registry) Minimize(id platform.WindowID) error {
	r.cmdMu.Lock()
	defer r.cmdMu.Unlock()

	if _, ok := r.Snapshot().Lookup(id); !ok {
		return fmt.Errorf("minimize 0x%x: %w", uint32(id), ErrWindowNotFound)
	}
	return r.cmd.Minimize(id)
}

func (r *Registry) registerLocked(raw platform.Window) []Change {
	name, ok := "", false
	if r.matcher.MatchClass(raw.AppID, raw.Instance) {
		name, ok = r.matcher.MatchCharacter(raw.Title)
	}
	if !ok {
		return r.registerCustomLocked(raw)
	}

	w := r.addLocked(raw, name)
	changes := []Change{{Kind: ChangeAdded, ID: w.ID, Character: name}}
	return append(changes, r.claimLocked(w)...)
}

// registerCustomLocked admits a non-client window through a custom rule.
// A limited rule ignores further windows while its alias is open; the
// others get the next free numbered alias.
func (r *Registry) registerCustomLocked(raw platform.Window) []Change {
	rule, ok := r.matcher.MatchCustom(raw.Title, raw.AppID, raw.Instance)
	if !ok {
		return nil
	}
	name := rule.Alias
	if r.openLocked(name) {
		if rule.Limit {
			return nil
		}
		for n := 2; r.openLocked(name); n++ {
			name = fmt.Sprintf("%s %d", rule.Alias, n)
		}
	}

	w := r.addLocked(raw, name)
	w.Custom = true
	w.alias = rule.Alias
	w.ThumbWidth, w.ThumbHeight = rule.Width, rule.Height
	changes := []Change{{Kind: ChangeAdded, ID: w.ID, Character: name}}
	return append(changes, r.claimLocked(w)...)
}

// openLocked reports whether any open window shows name.
func (r *Registry) openLocked(name string) bool {
	for _, w := range r.windows {
		if w.Character == name {
			return true
		}
	}
	return false
}

func (r *Registry) addLocked(raw platform.Window, name string) *ManagedWindow {
	r.seq++
	w := &ManagedWindow{
		ID:               raw.ID,
		Title:            raw.Title,
		Character:        name,
		Bounds:           raw.Bounds,
		LastSeen:         r.now(),
		Status:           StatusLive,
		Minimized:        raw.Minimized,
		OnCurrentDesktop: raw.OnCurrentDesktop,
		seq:              r.seq,
	}
	r.windows[raw.ID] = w
	return w
}

func (r *Registry) updateLocked(raw platform.Window) []Change {
	w := r.windows[raw.ID]
	w.LastSeen = r.now()

	var changes []Change
	if w.Bounds != raw.Bounds || w.Minimized != raw.Minimized || w.OnCurrentDesktop != raw.OnCurrentDesktop {
		w.Bounds = raw.Bounds
		w.Minimized = raw.Minimized
		w.OnCurrentDesktop = raw.OnCurrentDesktop
		changes = append(changes, Change{Kind: ChangeUpdated, ID: w.ID, Character: w.Character})
	}

	if raw.Title == w.Title {
		return changes
	}
	w.Title = raw.Title

	if w.Custom {
		return append(changes, r.retitleCustomLocked(w, raw)...)
	}

	name, ok := r.matcher.MatchCharacter(raw.Title)
	switch {
	case ok && name == w.Character:
		if w.LoggedOff {
			w.LoggedOff = false
			changes = append(changes, Change{Kind: ChangeUpdated, ID: w.ID, Character: name})
		}
	case ok:
		previous := w.Character
		changes = append(changes, r.leaveLocked(w)...)
		w.Character = name
		w.LoggedOff = false
		w.Status = StatusLive
		changes = append(changes, Change{Kind: ChangeRenamed, ID: w.ID, Character: name, Previous: previous})
		changes = append(changes, r.claimLocked(w)...)
	case r.matcher.IsLoggedOut(raw.Title):
		if !w.LoggedOff {
			w.LoggedOff = true
			changes = append(changes, Change{Kind: ChangeLoggedOff, ID: w.ID, Character: w.Character})
		}
	default:
		// The window no longer shows a client title.
		changes = append(changes, r.unregisterLocked(w.ID)...)
	}
	return changes
}

// retitleCustomLocked keeps a custom window while its rule still admits it
// and it has not become a client; otherwise it is registered afresh.
func (r *Registry) retitleCustomLocked(w *ManagedWindow, raw platform.Window) []Change {
	client := false
	if r.matcher.MatchClass(raw.AppID, raw.Instance) {
		_, client = r.matcher.MatchCharacter(raw.Title)
	}
	if rule, ok := r.matcher.MatchCustom(raw.Title, raw.AppID, raw.Instance); ok && !client && rule.Alias == w.alias {
		return nil
	}
	changes := r.unregisterLocked(w.ID)
	return append(changes, r.registerLocked(raw)...)
}

func (r *Registry) unregisterLocked(id platform.WindowID) []Change {
	w := r.windows[id]
	delete(r.windows, id)
	if r.active == id {
		r.active = 0
	}

	ghosted := r.policy.KeepLoggedOff && w.Status == StatusLive && !w.Custom
	promoted := r.promoteLocked(w)
	if len(promoted) > 0 {
		ghosted = false
	}

	kind := ChangeRemoved
	if ghosted {
		g := *w
		g.Status = StatusGhost
		r.ghosts[w.Character] = &g
		kind = ChangeGhosted
	}
	return append([]Change{{Kind: kind, ID: id, Character: w.Character}}, promoted...)
}

// leaveLocked runs when a live window stops showing its character without
// closing.
func (r *Registry) leaveLocked(w *ManagedWindow) []Change {
	promoted := r.promoteLocked(w)
	if len(promoted) == 0 && r.policy.KeepLoggedOff && w.Status == StatusLive {
		g := *w
		g.Status = StatusGhost
		r.ghosts[w.Character] = &g
	}
	return promoted
}

// claimLocked resolves ghost rebinding and duplicates after w started
// showing w.Character.
func (r *Registry) claimLocked(w *ManagedWindow) []Change {
	var changes []Change
	name := w.Character

	if g, ok := r.ghosts[name]; ok {
		delete(r.ghosts, name)
		w.seq = g.seq
		changes = append(changes, Change{Kind: ChangeRebound, ID: w.ID, Character: name, PreviousID: g.ID})
	} else if prev, ok := r.lastID[name]; ok && prev != w.ID {
		if _, open := r.windows[prev]; !open {
			changes = append(changes, Change{Kind: ChangeRebound, ID: w.ID, Character: name, PreviousID: prev})
		}
	}

	var canonical *ManagedWindow
	for _, o := range r.windows {
		if o != w && o.Status == StatusLive && o.Character == name {
			canonical = o
			break
		}
	}
	if canonical != nil {
		if r.policy.Duplicate == DuplicateOldest {
			w.Status = StatusStale
			changes = append(changes, Change{Kind: ChangeDemoted, ID: w.ID, Character: name, PreviousID: canonical.ID})
		} else {
			canonical.Status = StatusStale
			changes = append(changes, Change{Kind: ChangeDemoted, ID: canonical.ID, Character: name, PreviousID: w.ID})
		}
	}

	if w.Status == StatusLive {
		r.lastID[name] = w.ID
	}
	return changes
}

// promoteLocked hands the character of a departing live window to one of its
// stale duplicates, chosen by the duplicate policy.
func (r *Registry) promoteLocked(w *ManagedWindow) []Change {
	if w.Status != StatusLive {
		return nil
	}

	var best *ManagedWindow
	for _, o := range r.windows {
		if o == w || o.Status != StatusStale || o.Character != w.Character {
			continue
		}
		switch {
		case best == nil:
			best = o
		case r.policy.Duplicate == DuplicateOldest && o.seq < best.seq:
			best = o
		case r.policy.Duplicate != DuplicateOldest && o.seq > best.seq:
			best = o
		}
	}
	if best == nil {
		return nil
	}

	best.Status = StatusLive
	r.lastID[best.Character] = best.ID
	return []Change{{Kind: ChangePromoted, ID: best.ID, Character: best.Character, PreviousID: w.ID}}
}

func (r *Registry) publishLocked() {
	all := make([]ManagedWindow, 0, len(r.windows)+len(r.ghosts))
	for _, w := range r.windows {
		all = append(all, *w)
	}
	for _, g := range r.ghosts {
		all = append(all, *g)
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].seq != all[j].seq {
			return all[i].seq < all[j].seq
		}
		return all[i].ID < all[j].ID
	})

	r.version++
	r.current.Store(newSnapshot(r.version, all, r.active))
}
