package cycle

import (
	"log/slog"
	"sync"
)

// Engine holds the current state and membership and applies events one at a
// time. The daemon owns one Engine and acts on the returned effects.
type Engine struct {
	logger *slog.Logger

	mu         sync.Mutex
	state      State
	membership Membership
}

// NewEngine starts Idle in the given profile.
func NewEngine(profile string, m Membership, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		logger:     logger,
		state:      Idle(profile),
		membership: m,
	}
}

// Apply runs one transition against the stored membership.
func (e *Engine) Apply(ev Event) Effect {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.applyLocked(ev)
}

// SetMembership stores a new membership and re-clamps the state against it.
func (e *Engine) SetMembership(m Membership) Effect {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.membership = m
	return e.applyLocked(MembershipChanged())
}

// SetGroups replaces the configured groups, keeping the live set.
func (e *Engine) SetGroups(groups map[string][]Group) Effect {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.membership.Groups = groups
	return e.applyLocked(MembershipChanged())
}

// State returns the current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Members returns the live members of the active group.
func (e *Engine) Members() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return LiveMembers(e.state, e.membership)
}

func (e *Engine) applyLocked(ev Event) Effect {
	before := e.state
	next, eff := Transition(e.state, ev, e.membership)
	e.state = next

	if before.Active != next.Active || before.Current != next.Current || before.Profile != next.Profile {
		e.logger.Debug("cycle transition",
			"event", ev.Kind.String(),
			"profile", next.Profile,
			"group", next.Group,
			"active", next.Active,
			"index", next.Index,
			"current", next.Current,
		)
	}
	return eff
}
