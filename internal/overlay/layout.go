package overlay

import (
	"sort"

	"github.com/1broseidon/evepreview/internal/platform"
	"github.com/1broseidon/evepreview/internal/profile"
)

// SpawnOffset is the cascade step for thumbnails without a saved position.
const SpawnOffset = 20

// spawnPosition picks the first cascade slot, starting SpawnOffset in from
// the display's top-left corner, whose origin no existing thumbnail uses.
func spawnPosition(display platform.Rect, taken []platform.Rect, width, height int) platform.Rect {
	used := make(map[[2]int]bool, len(taken))
	for _, r := range taken {
		used[[2]int{r.X, r.Y}] = true
	}
	for k := 1; ; k++ {
		r := platform.Rect{
			X:      display.X + SpawnOffset*k,
			Y:      display.Y + SpawnOffset*k,
			Width:  width,
			Height: height,
		}
		fits := display.Width <= 0 ||
			(r.X+r.Width <= display.X+display.Width && r.Y+r.Height <= display.Y+display.Height)
		if !fits {
			// Ran off the display: fall back to the first slot.
			return Clamp(platform.Rect{X: display.X + SpawnOffset, Y: display.Y + SpawnOffset, Width: width, Height: height}, display)
		}
		if !used[[2]int{r.X, r.Y}] {
			return r
		}
	}
}

// savedRect turns a saved position into bounds, filling the size from the
// style when the position did not record one.
func savedRect(pos profile.Position, style Style) platform.Rect {
	r := platform.Rect{X: pos.X, Y: pos.Y, Width: pos.Width, Height: pos.Height}
	if r.Width <= 0 {
		r.Width = style.Width
	}
	if r.Height <= 0 {
		r.Height = style.Height
	}
	return r
}

func positionOf(r platform.Rect) profile.Position {
	return profile.Position{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
}

// displayFor returns the display containing the centre of r, or the first
// display.
func displayFor(displays []platform.Display, r platform.Rect) platform.Rect {
	cx, cy := r.X+r.Width/2, r.Y+r.Height/2
	for _, d := range displays {
		if d.Bounds.Contains(cx, cy) {
			return d.Bounds
		}
	}
	if len(displays) > 0 {
		return displays[0].Bounds
	}
	return platform.Rect{}
}

// stackEntry is one thumbnail as seen by the z-order rule.
type stackEntry struct {
	id        platform.WindowID
	character string
	seq       uint64 // registration order
	focused   uint64 // focus sequence, 0 if never focused
}

// stackOrder returns ids bottom to top. In mru mode the most recently focused
// thumbnail is on top and never-focused ones sit below in registration order.
// In fixed mode thumbnails follow order, with unlisted characters after the
// listed ones in registration order; the first listed character is on top.
func stackOrder(entries []stackEntry, mode string, order []string) []platform.WindowID {
	sorted := append([]stackEntry(nil), entries...)
	switch mode {
	case profile.ZOrderFixed:
		rank := make(map[string]int, len(order))
		for i, c := range order {
			rank[c] = i
		}
		key := func(e stackEntry) int {
			if r, ok := rank[e.character]; ok {
				return r
			}
			return len(order)
		}
		sort.SliceStable(sorted, func(i, j int) bool {
			ki, kj := key(sorted[i]), key(sorted[j])
			if ki != kj {
				return ki > kj
			}
			return sorted[i].seq > sorted[j].seq
		})
	default:
		sort.SliceStable(sorted, func(i, j int) bool {
			if sorted[i].focused != sorted[j].focused {
				return sorted[i].focused < sorted[j].focused
			}
			return sorted[i].seq < sorted[j].seq
		})
	}
	out := make([]platform.WindowID, len(sorted))
	for i, e := range sorted {
		out[i] = e.id
	}
	return out
}
