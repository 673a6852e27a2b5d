// Package colormap provides the fill colors of cluster icons. A colormap
// maps the position of a style in the style table, normalized to [0, 1],
// to a color.
package colormap

import (
	"image/color"
	"sort"
)

// Colormap maps normalized values [0, 1] to colors.
type Colormap interface {
	At(t float64) color.Color
}

// Ramp interpolates linearly between evenly spaced stops.
type Ramp []color.RGBA

// At returns the color at position t, clamped to [0, 1].
func (r Ramp) At(t float64) color.Color {
	switch {
	case t <= 0:
		return r[0]
	case t >= 1:
		return r[len(r)-1]
	}
	pos := t * float64(len(r)-1)
	i := int(pos)
	if i >= len(r)-1 {
		return r[len(r)-1]
	}
	return mix(r[i], r[i+1], pos-float64(i))
}

func mix(a, b color.RGBA, t float64) color.RGBA {
	lerp := func(x, y uint8) uint8 {
		return uint8(float64(x) + t*(float64(y)-float64(x)))
	}
	return color.RGBA{R: lerp(a.R, b.R), G: lerp(a.G, b.G), B: lerp(a.B, b.B), A: 255}
}

// Steps picks the stop nearest to t without blending. With one stop per
// icon style every style gets a distinct color.
type Steps []color.RGBA

// At returns the stop nearest to t, clamped to [0, 1].
func (s Steps) At(t float64) color.Color {
	switch {
	case t <= 0:
		return s[0]
	case t >= 1:
		return s[len(s)-1]
	}
	return s[int(t*float64(len(s)-1)+0.5)]
}

// Viridis is a five-stop approximation of matplotlib's viridis.
var Viridis = Ramp{
	{68, 1, 84, 255},
	{59, 82, 139, 255},
	{33, 145, 140, 255},
	{94, 201, 98, 255},
	{253, 231, 37, 255},
}

// Plasma is a five-stop approximation of matplotlib's plasma.
var Plasma = Ramp{
	{13, 8, 135, 255},
	{126, 3, 168, 255},
	{204, 71, 120, 255},
	{248, 149, 64, 255},
	{240, 249, 33, 255},
}

// Classic follows the blue, yellow, red, pink, purple progression of the
// stock m1..m5 cluster images.
var Classic = Steps{
	{0, 140, 255, 255},
	{255, 191, 0, 255},
	{255, 0, 0, 255},
	{255, 0, 204, 255},
	{153, 0, 255, 255},
}

var byName = map[string]Colormap{
	"viridis": Viridis,
	"plasma":  Plasma,
	"classic": Classic,
}

// ByName returns a colormap by its lower-case name.
func ByName(name string) (Colormap, bool) {
	c, ok := byName[name]
	return c, ok
}

// Names returns the known colormap names in sorted order.
func Names() []string {
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
