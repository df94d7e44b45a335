package overlay

import (
	"testing"
	"time"

	"github.com/1broseidon/evepreview/internal/platform"
)

func down(x, y int, at time.Duration) platform.PointerEvent {
	return platform.PointerEvent{Kind: platform.PointerDown, Button: buttonLeft, X: x, Y: y, Time: at}
}

func move(x, y int, at time.Duration) platform.PointerEvent {
	return platform.PointerEvent{Kind: platform.PointerMove, X: x, Y: y, Time: at}
}

func up(x, y int, at time.Duration) platform.PointerEvent {
	return platform.PointerEvent{Kind: platform.PointerUp, Button: buttonLeft, X: x, Y: y, Time: at}
}

func TestGestureResolution(t *testing.T) {
	tests := []struct {
		name   string
		events []platform.PointerEvent
		want   OutcomeKind
	}{
		{
			name:   "click without movement",
			events: []platform.PointerEvent{down(100, 100, 0), up(100, 100, 50*time.Millisecond)},
			want:   OutcomeClick,
		},
		{
			name: "movement just below threshold is a click",
			events: []platform.PointerEvent{
				down(100, 100, 0),
				move(100+DragThreshold-1, 100, 10*time.Millisecond),
				up(100+DragThreshold-1, 100, 20*time.Millisecond),
			},
			want: OutcomeClick,
		},
		{
			name: "movement exactly at threshold is a drag",
			events: []platform.PointerEvent{
				down(100, 100, 0),
				move(100+DragThreshold, 100, 10*time.Millisecond),
				up(100+DragThreshold, 100, 20*time.Millisecond),
			},
			want: OutcomeDragEnd,
		},
		{
			name: "threshold reached only on release is still a drag",
			events: []platform.PointerEvent{
				down(100, 100, 0),
				up(100, 100+DragThreshold, 20*time.Millisecond),
			},
			want: OutcomeDragEnd,
		},
		{
			name: "cumulative travel counts back-and-forth movement",
			events: []platform.PointerEvent{
				down(100, 100, 0),
				move(103, 100, 5*time.Millisecond),
				move(100, 100, 10*time.Millisecond),
				up(100, 100, 15*time.Millisecond),
			},
			want: OutcomeDragEnd,
		},
		{
			name:   "release exactly at click timeout is a click",
			events: []platform.PointerEvent{down(100, 100, 0), up(100, 100, ClickTimeout)},
			want:   OutcomeClick,
		},
		{
			name:   "release after click timeout is cancelled",
			events: []platform.PointerEvent{down(100, 100, 0), up(100, 100, ClickTimeout+time.Nanosecond)},
			want:   OutcomeCancelled,
		},
		{
			name: "slow drag is still a drag",
			events: []platform.PointerEvent{
				down(100, 100, 0),
				move(150, 120, 2*time.Second),
				up(150, 120, 3*time.Second),
			},
			want: OutcomeDragEnd,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var g Gesture
			var last Outcome
			for _, ev := range tt.events {
				out := g.Handle(ev, 0, 0)
				if out.Kind == OutcomeClick && ev.Kind != platform.PointerUp {
					t.Fatalf("click resolved before release")
				}
				last = out
			}
			if last.Kind != tt.want {
				t.Fatalf("outcome = %d, want %d", last.Kind, tt.want)
			}
			if g.Phase() != PhaseIdle {
				t.Fatalf("gesture should return to idle, got %s", g.Phase())
			}
		})
	}
}

func TestGestureDragFollowsPointer(t *testing.T) {
	var g Gesture
	g.Handle(down(110, 120, 0), 100, 100)
	out := g.Handle(move(140, 125, time.Millisecond), 100, 100)
	if out.Kind != OutcomeDragMove || out.X != 130 || out.Y != 105 {
		t.Fatalf("drag move = %+v, want origin (130,105)", out)
	}
	if g.Phase() != PhaseDragging {
		t.Fatalf("phase = %s", g.Phase())
	}
	out = g.Handle(up(150, 130, 2*time.Millisecond), 130, 105)
	if out.Kind != OutcomeDragEnd || out.X != 140 || out.Y != 110 {
		t.Fatalf("drag end = %+v, want origin (140,110)", out)
	}
}

func TestGestureIgnoresOtherButtons(t *testing.T) {
	var g Gesture
	press := down(0, 0, 0)
	press.Button = 3
	if out := g.Handle(press, 0, 0); out.Kind != OutcomeNone || g.Phase() != PhaseIdle {
		t.Fatalf("right button should be ignored")
	}
	if out := g.Handle(up(0, 0, time.Millisecond), 0, 0); out.Kind != OutcomeNone {
		t.Fatalf("release without press = %+v", out)
	}
}
