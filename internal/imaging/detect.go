package imaging

import (
	"image"
	"image/color"
	"image/draw"
)

// LetterboxBounds returns the part of img left after trimming dark bars.
//
// Rows are trimmed from the top and bottom, then columns from the left and
// right, while every pixel in the row or column has all of R, G and B at or
// below threshold (8-bit scale). Channels are compared before alpha is
// applied, so a transparent light border is not a bar. ok is false when
// nothing would be trimmed or when the whole image is dark.
func LetterboxBounds(img image.Image, threshold uint8) (r image.Rectangle, ok bool) {
	b := img.Bounds()
	if b.Empty() {
		return b, false
	}

	dark := func(x, y int) bool {
		cr, cg, cb := straight(img.At(x, y))
		return cr <= threshold && cg <= threshold && cb <= threshold
	}
	rowDark := func(y int) bool {
		for x := b.Min.X; x < b.Max.X; x++ {
			if !dark(x, y) {
				return false
			}
		}
		return true
	}

	top := b.Min.Y
	for top < b.Max.Y && rowDark(top) {
		top++
	}
	if top == b.Max.Y {
		return b, false
	}
	bottom := b.Max.Y
	for bottom > top && rowDark(bottom-1) {
		bottom--
	}

	colDark := func(x int) bool {
		for y := top; y < bottom; y++ {
			if !dark(x, y) {
				return false
			}
		}
		return true
	}

	left := b.Min.X
	for left < b.Max.X && colDark(left) {
		left++
	}
	right := b.Max.X
	for right > left && colDark(right-1) {
		right--
	}

	r = image.Rect(left, top, right, bottom)
	if r == b {
		return b, false
	}
	return r, true
}

// straight returns the 8-bit colour channels of c without alpha
// premultiplication. Colours stored premultiplied have already lost the
// colour of fully transparent pixels and read as black.
func straight(c color.Color) (r, g, b uint8) {
	switch v := c.(type) {
	case color.NRGBA:
		return v.R, v.G, v.B
	case color.NRGBA64:
		return uint8(v.R >> 8), uint8(v.G >> 8), uint8(v.B >> 8)
	}
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return n.R, n.G, n.B
}

// crop copies r out of img into a new image anchored at the origin.
// Paletted images stay paletted so GIFs keep their colour table.
func crop(img image.Image, r image.Rectangle) image.Image {
	dst := image.Rect(0, 0, r.Dx(), r.Dy())
	if p, ok := img.(*image.Paletted); ok {
		out := image.NewPaletted(dst, p.Palette)
		draw.Draw(out, dst, img, r.Min, draw.Src)
		return out
	}
	out := image.NewNRGBA(dst)
	draw.Draw(out, dst, img, r.Min, draw.Src)
	return out
}
