package overlay

import "github.com/1broseidon/evepreview/internal/platform"

// Snap moves r so that its edges meet or align with the nearest edge of
// another thumbnail within threshold pixels, independently per axis.
func Snap(r platform.Rect, others []platform.Rect, threshold int) platform.Rect {
	if threshold <= 0 {
		return r
	}
	if dx, ok := nearestEdge(r.X, r.Width, xSpans(others), threshold); ok {
		r.X += dx
	}
	if dy, ok := nearestEdge(r.Y, r.Height, ySpans(others), threshold); ok {
		r.Y += dy
	}
	return r
}

type span struct{ start, size int }

func xSpans(rects []platform.Rect) []span {
	out := make([]span, 0, len(rects))
	for _, o := range rects {
		out = append(out, span{o.X, o.Width})
	}
	return out
}

func ySpans(rects []platform.Rect) []span {
	out := make([]span, 0, len(rects))
	for _, o := range rects {
		out = append(out, span{o.Y, o.Height})
	}
	return out
}

// nearestEdge finds the smallest shift that makes [pos, pos+size) touch or
// align with one of spans.
func nearestEdge(pos, size int, spans []span, threshold int) (int, bool) {
	best, found := 0, false
	consider := func(delta int) {
		if abs(delta) > threshold {
			return
		}
		if !found || abs(delta) < abs(best) {
			best, found = delta, true
		}
	}
	end := pos + size
	for _, s := range spans {
		oend := s.start + s.size
		consider(s.start - pos) // left edges aligned
		consider(oend - end)    // right edges aligned
		consider(oend - pos)    // sit to the right
		consider(s.start - end) // sit to the left
	}
	return best, found
}

// Clamp keeps r inside bounds, preferring the top-left corner when r is
// larger than bounds.
func Clamp(r platform.Rect, bounds platform.Rect) platform.Rect {
	if bounds.Width <= 0 || bounds.Height <= 0 {
		return r
	}
	if r.X+r.Width > bounds.X+bounds.Width {
		r.X = bounds.X + bounds.Width - r.Width
	}
	if r.Y+r.Height > bounds.Y+bounds.Height {
		r.Y = bounds.Y + bounds.Height - r.Height
	}
	if r.X < bounds.X {
		r.X = bounds.X
	}
	if r.Y < bounds.Y {
		r.Y = bounds.Y
	}
	return r
}

func rectsIntersect(a, b platform.Rect) bool {
	return a.X < b.X+b.Width &&
		a.X+a.Width > b.X &&
		a.Y < b.Y+b.Height &&
		a.Y+a.Height > b.Y
}
