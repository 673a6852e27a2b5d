package geo

import "github.com/paulmach/orb"

// ExtendBounds grows b by gridSize pixels on every side, measured in the
// pixel space of proj.
//
// Bounds crossing the antimeridian are approximated by the band from -179
// to 179 at the same latitudes. A corner is only moved when the projected
// corner lies strictly further out on both axes, so pixel rounding in the
// projection can never shrink the box. Without a projection, or for empty
// bounds, b is returned unchanged.
func ExtendBounds(b Bounds, gridSize float64, proj Projection) Bounds {
	if b.IsEmpty() || proj == nil {
		return b
	}
	if b.East() < b.West() {
		return NewBounds(orb.Point{-179, b.South()}, orb.Point{179, b.North()})
	}

	tr := proj.ToPixel(b.NorthEast())
	bl := proj.ToPixel(b.SouthWest())

	tr.X += gridSize
	tr.Y -= gridSize
	bl.X -= gridSize
	bl.Y += gridSize

	ne := proj.ToPoint(tr)
	sw := proj.ToPoint(bl)

	out := b
	if ne.Lat() > b.North() && ne.Lon() > b.East() {
		out = out.Extend(ne)
	}
	if sw.Lat() < b.South() && sw.Lon() < b.West() {
		out = out.Extend(sw)
	}
	return out
}

// PixelSize returns the on-screen width and height of b under proj.
// Without a projection both sizes are zero.
func PixelSize(b Bounds, proj Projection) (width, height float64) {
	if b.IsEmpty() || proj == nil {
		return 0, 0
	}
	tr := proj.ToPixel(b.NorthEast())
	bl := proj.ToPixel(b.SouthWest())
	return tr.X - bl.X, bl.Y - tr.Y
}
