package overlay

import (
	"image"
	"image/color"
	"log/slog"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/1broseidon/evepreview/internal/profile"
)

var labelShadow = color.RGBA{A: 0xc0}

// Style is a profile's thumbnail style with colors parsed.
type Style struct {
	Width        int
	Height       int
	Opacity      float64
	BorderSize   int
	Border       color.RGBA
	Inactive     color.RGBA
	HasInactive  bool
	ShowLabel    bool
	Label        color.RGBA
	LabelOffsetX int
	LabelOffsetY int
}

// StyleFromProfile converts validated profile settings. Colors that fail to
// parse fall back to the defaults.
func StyleFromProfile(t profile.ThumbnailStyle, logger *slog.Logger) Style {
	s := Style{
		Width:        t.Width,
		Height:       t.Height,
		Opacity:      float64(t.Opacity) / 100,
		BorderSize:   t.BorderSize,
		ShowLabel:    t.ShowLabel,
		LabelOffsetX: t.LabelOffsetX,
		LabelOffsetY: t.LabelOffsetY,
	}
	s.Border = parseColorOr(t.BorderColor, profile.DefaultBorderColor, logger)
	s.Label = parseColorOr(t.LabelColor, profile.DefaultLabelColor, logger)
	if t.InactiveBorderColor != "" {
		s.Inactive = parseColorOr(t.InactiveBorderColor, profile.DefaultBorderColor, logger)
		s.HasInactive = true
	}
	return s
}

func parseColorOr(value, fallback string, logger *slog.Logger) color.RGBA {
	c, err := profile.ParseColor(value)
	if err == nil {
		return c
	}
	if logger != nil {
		logger.Warn("invalid color, using default", "value", value, "error", err)
	}
	c, _ = profile.ParseColor(fallback)
	return c
}

// Compose draws the frame with its border and character label onto a fresh
// image of the style's size.
func Compose(frame *image.RGBA, style Style, character string, active bool) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, style.Width, style.Height))
	if frame != nil {
		if frame.Bounds().Dx() == style.Width && frame.Bounds().Dy() == style.Height {
			draw.Draw(dst, dst.Bounds(), frame, frame.Bounds().Min, draw.Src)
		} else {
			draw.ApproxBiLinear.Scale(dst, dst.Bounds(), frame, frame.Bounds(), draw.Src, nil)
		}
	}

	switch {
	case active:
		drawBorder(dst, style.BorderSize, style.Border)
	case style.HasInactive:
		drawBorder(dst, style.BorderSize, style.Inactive)
	}

	if style.ShowLabel && character != "" {
		drawLabel(dst, character, style.LabelOffsetX, style.LabelOffsetY, style.Label)
	}
	return dst
}

func drawBorder(dst *image.RGBA, size int, c color.RGBA) {
	if size <= 0 {
		return
	}
	b := dst.Bounds()
	src := &image.Uniform{C: c}
	edges := []image.Rectangle{
		image.Rect(b.Min.X, b.Min.Y, b.Max.X, b.Min.Y+size),
		image.Rect(b.Min.X, b.Max.Y-size, b.Max.X, b.Max.Y),
		image.Rect(b.Min.X, b.Min.Y, b.Min.X+size, b.Max.Y),
		image.Rect(b.Max.X-size, b.Min.Y, b.Max.X, b.Max.Y),
	}
	for _, r := range edges {
		draw.Draw(dst, r.Intersect(b), src, image.Point{}, draw.Src)
	}
}

// drawLabel writes text with its top-left at (x, y) and a one pixel shadow so
// it stays readable over bright frames.
func drawLabel(dst *image.RGBA, text string, x, y int, c color.RGBA) {
	face := basicfont.Face7x13
	baseline := y + face.Metrics().Ascent.Ceil()

	shadow := &font.Drawer{Dst: dst, Src: image.NewUniform(labelShadow), Face: face, Dot: fixed.P(x+1, baseline+1)}
	shadow.DrawString(text)
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(c), Face: face, Dot: fixed.P(x, baseline)}
	d.DrawString(text)
}
