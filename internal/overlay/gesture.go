package overlay

import (
	"time"

	"github.com/1broseidon/evepreview/internal/platform"
)

const (
	// DragThreshold is the cumulative pointer travel, in pixels, at which a
	// press becomes a drag.
	DragThreshold = 6
	// ClickTimeout is the longest press that still counts as a click.
	ClickTimeout = 500 * time.Millisecond
)

const buttonLeft = 1

// Phase is the pointer gesture state of one thumbnail.
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePressedMaybeDrag
	PhaseDragging
)

// String returns the string representation of the phase
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePressedMaybeDrag:
		return "pressed"
	case PhaseDragging:
		return "dragging"
	default:
		return "unknown"
	}
}

// OutcomeKind is what a pointer event resolved to.
type OutcomeKind int

const (
	OutcomeNone OutcomeKind = iota
	// OutcomeClick activates the thumbnail's window.
	OutcomeClick
	// OutcomeDragMove moves the thumbnail to follow the pointer.
	OutcomeDragMove
	// OutcomeDragEnd drops the thumbnail; it is snapped and persisted.
	OutcomeDragEnd
	// OutcomeCancelled is a press held past ClickTimeout and released
	// without dragging.
	OutcomeCancelled
)

// Outcome carries the thumbnail origin for drag outcomes.
type Outcome struct {
	Kind OutcomeKind
	X    int
	Y    int
}

// Gesture resolves press/move/release sequences into clicks and drags. It
// only looks at event timestamps, never at wall time or frame counts.
type Gesture struct {
	phase    Phase
	pressAt  time.Duration
	lastX    int
	lastY    int
	pressX   int
	pressY   int
	originX  int
	originY  int
	traveled int
}

// Phase returns the current phase.
func (g *Gesture) Phase() Phase { return g.phase }

// Handle feeds one pointer event. origin is the thumbnail's position when the
// event arrives; it is only read on press.
func (g *Gesture) Handle(ev platform.PointerEvent, originX, originY int) Outcome {
	switch ev.Kind {
	case platform.PointerDown:
		if ev.Button != buttonLeft || g.phase != PhaseIdle {
			return Outcome{}
		}
		g.phase = PhasePressedMaybeDrag
		g.pressAt = ev.Time
		g.pressX, g.pressY = ev.X, ev.Y
		g.lastX, g.lastY = ev.X, ev.Y
		g.originX, g.originY = originX, originY
		g.traveled = 0
		return Outcome{}

	case platform.PointerMove:
		if g.phase == PhaseIdle {
			return Outcome{}
		}
		g.traveled += abs(ev.X-g.lastX) + abs(ev.Y-g.lastY)
		g.lastX, g.lastY = ev.X, ev.Y
		if g.phase == PhasePressedMaybeDrag && g.traveled >= DragThreshold {
			g.phase = PhaseDragging
		}
		if g.phase == PhaseDragging {
			x, y := g.position(ev)
			return Outcome{Kind: OutcomeDragMove, X: x, Y: y}
		}
		return Outcome{}

	case platform.PointerUp:
		if ev.Button != buttonLeft || g.phase == PhaseIdle {
			return Outcome{}
		}
		g.traveled += abs(ev.X-g.lastX) + abs(ev.Y-g.lastY)
		phase := g.phase
		g.phase = PhaseIdle
		if phase == PhaseDragging || g.traveled >= DragThreshold {
			x, y := g.position(ev)
			return Outcome{Kind: OutcomeDragEnd, X: x, Y: y}
		}
		if ev.Time-g.pressAt <= ClickTimeout {
			return Outcome{Kind: OutcomeClick}
		}
		return Outcome{Kind: OutcomeCancelled}
	}
	return Outcome{}
}

// Reset abandons any gesture in progress.
func (g *Gesture) Reset() { g.phase = PhaseIdle }

func (g *Gesture) position(ev platform.PointerEvent) (int, int) {
	return g.originX + ev.X - g.pressX, g.originY + ev.Y - g.pressY
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
