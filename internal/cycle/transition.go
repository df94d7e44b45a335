package cycle

import "slices"

// Transition is the whole cycle engine: a pure function of the current
// state, one event and the membership at the time of the event.
func Transition(s State, ev Event, m Membership) (State, Effect) {
	switch ev.Kind {
	case EventCycleNext:
		return step(s, ev.Group, m, +1)
	case EventCyclePrev:
		return step(s, ev.Group, m, -1)
	case EventJumpTo:
		return jump(s, ev.Character, m)
	case EventSwitchProfile:
		return switchProfile(s, ev.Profile, m)
	case EventMembershipChanged:
		return reclamp(s, m)
	case EventToggleSkip:
		return toggleSkip(s, ev.Character, m)
	case EventFocusObserved:
		return observe(s, ev.Character, m), Effect{}
	default:
		return s, Effect{}
	}
}

func idle(s State, group string) State {
	return State{Profile: s.Profile, Group: group, Skipped: s.Skipped}
}

func activate(prev State, group string, members []string, character string) (State, Effect) {
	next := State{
		Profile: prev.Profile,
		Group:   group,
		Active:  true,
		Index:   slices.Index(members, character),
		Current: character,
		Skipped: prev.Skipped,
	}
	var eff Effect
	if !prev.Active || prev.Current != character {
		eff.Focus = character
	}
	return next, eff
}

func step(s State, group string, m Membership, dir int) (State, Effect) {
	g, ok := resolveGroup(s, group, m)
	if !ok {
		return idle(s, s.Group), Effect{Err: ErrCycleEmpty}
	}
	members := liveMembers(g, m.Live, s.Skipped)
	if len(members) == 0 {
		return idle(s, g.Name), Effect{Err: ErrCycleEmpty}
	}

	var target string
	if s.Active && s.Group == g.Name {
		target, _ = neighbor(g, members, s.Current, dir)
	} else if dir > 0 {
		target = members[0]
	} else {
		target = members[len(members)-1]
	}
	return activate(s, g.Name, members, target)
}

func jump(s State, character string, m Membership) (State, Effect) {
	g, ok := resolveGroup(s, "", m)
	if !ok {
		return s, Effect{}
	}
	members := liveMembers(g, m.Live, s.Skipped)
	if !slices.Contains(members, character) {
		return s, Effect{}
	}
	return activate(s, g.Name, members, character)
}

func switchProfile(s State, profile string, m Membership) (State, Effect) {
	reset := State{Profile: profile, Skipped: s.Skipped}
	g, ok := resolveGroup(reset, "", m)
	if !ok {
		return reset, Effect{}
	}
	reset.Group = g.Name
	members := liveMembers(g, m.Live, s.Skipped)
	if len(members) == 0 {
		return reset, Effect{}
	}

	next, eff := activate(reset, g.Name, members, members[0])
	if s.Active && s.Current == members[0] {
		eff.Focus = ""
	}
	return next, eff
}

// reclamp re-derives the index after the live set changed. A vanished current
// member hands over to the next live member in group order.
func reclamp(s State, m Membership) (State, Effect) {
	if !s.Active {
		return s, Effect{}
	}
	g, ok := resolveGroup(s, "", m)
	if !ok {
		return idle(s, s.Group), Effect{}
	}
	members := liveMembers(g, m.Live, s.Skipped)
	if len(members) == 0 {
		return idle(s, g.Name), Effect{}
	}
	if i := slices.Index(members, s.Current); i >= 0 {
		s.Index = i
		s.Group = g.Name
		return s, Effect{}
	}
	target, _ := neighbor(g, members, s.Current, +1)
	return activate(s, g.Name, members, target)
}

func toggleSkip(s State, character string, m Membership) (State, Effect) {
	if character == "" {
		character = s.Current
	}
	if character == "" {
		return s, Effect{}
	}

	on := !s.Skipped[character]
	prev := s
	s.Skipped = withSkip(s.Skipped, character, on)
	eff := Effect{Toggled: character, Skipped: on}

	if !s.Active {
		return s, eff
	}
	next, reclampEff := reclamp(s, m)
	// Skipping the current member moves on like CycleNext.
	if next.Active && next.Current != prev.Current {
		eff.Focus = reclampEff.Focus
	}
	return next, eff
}

func observe(s State, character string, m Membership) State {
	if character == "" {
		return s
	}
	g, ok := resolveGroup(s, "", m)
	if !ok {
		return s
	}
	members := liveMembers(g, m.Live, s.Skipped)
	if !slices.Contains(members, character) {
		return s
	}
	next, _ := activate(s, g.Name, members, character)
	return next
}
