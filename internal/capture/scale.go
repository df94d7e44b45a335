package capture

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	backgroundColor  = color.RGBA{A: 0xff}
	placeholderColor = color.RGBA{R: 0x20, G: 0x20, B: 0x20, A: 0xff}
	placeholderText  = color.RGBA{R: 0x90, G: 0x90, B: 0x90, A: 0xff}
)

// Scale fits src into a width×height image, keeping the aspect ratio and
// letterboxing the remainder in black.
func Scale(src image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: backgroundColor}, image.Point{}, draw.Src)
	if src == nil {
		return dst
	}
	sb := src.Bounds()
	if sb.Empty() {
		return dst
	}
	target := fitRect(sb.Dx(), sb.Dy(), width, height)
	draw.ApproxBiLinear.Scale(dst, target, src, sb, draw.Src, nil)
	return dst
}

// fitRect returns the largest rectangle with the source aspect ratio centered
// in a width×height box.
func fitRect(sw, sh, width, height int) image.Rectangle {
	w := width
	h := sh * width / sw
	if h > height {
		h = height
		w = sw * height / sh
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	x := (width - w) / 2
	y := (height - h) / 2
	return image.Rect(x, y, x+w, y+h)
}

// Placeholder is shown for a window that has never produced a frame.
func Placeholder(width, height int, character string) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: placeholderColor}, image.Point{}, draw.Src)

	face := basicfont.Face7x13
	lines := []string{character, "no preview"}
	lineHeight := face.Metrics().Height.Ceil()
	y := (height-lineHeight*len(lines))/2 + face.Metrics().Ascent.Ceil()
	for _, line := range lines {
		if line == "" {
			continue
		}
		d := &font.Drawer{Dst: img, Src: image.NewUniform(placeholderText), Face: face}
		w := d.MeasureString(line).Ceil()
		d.Dot = fixed.P((width-w)/2, y)
		d.DrawString(line)
		y += lineHeight
	}
	return img
}
