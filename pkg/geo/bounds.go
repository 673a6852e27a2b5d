// Package geo provides the geographic primitives used by the clusterer:
// lat/lng bounds, pixel coordinates and the map projection.
package geo

import (
	"math"

	"github.com/paulmach/orb"
)

// Bounds is an axis-aligned lat/lng rectangle. Points are orb.Points, so
// X is the longitude and Y the latitude.
//
// The zero value is an empty rectangle. A rectangle whose east edge is
// numerically smaller than its west edge crosses the antimeridian.
type Bounds struct {
	sw, ne orb.Point
	set    bool
}

// NewBounds creates bounds from the south-west and north-east corners.
// Corners are taken as given, so sw.Lon() > ne.Lon() yields bounds that
// wrap the antimeridian.
func NewBounds(sw, ne orb.Point) Bounds {
	return Bounds{sw: sw, ne: ne, set: true}
}

// FromBound converts an orb.Bound. Empty orb bounds give empty Bounds.
func FromBound(b orb.Bound) Bounds {
	if b.IsEmpty() {
		return Bounds{}
	}
	return NewBounds(b.Min, b.Max)
}

// Bound returns the orb representation. Bounds that wrap the antimeridian
// are widened to the full longitude range.
func (b Bounds) Bound() orb.Bound {
	if !b.set {
		return orb.Bound{Min: orb.Point{1, 1}, Max: orb.Point{-1, -1}}
	}
	if b.Wraps() {
		return orb.Bound{
			Min: orb.Point{-180, b.sw.Lat()},
			Max: orb.Point{180, b.ne.Lat()},
		}
	}
	return orb.Bound{Min: b.sw, Max: b.ne}
}

// IsEmpty reports whether no point has been added to the bounds.
func (b Bounds) IsEmpty() bool { return !b.set }

// Wraps reports whether the bounds cross the antimeridian.
func (b Bounds) Wraps() bool { return b.set && b.ne.Lon() < b.sw.Lon() }

func (b Bounds) SouthWest() orb.Point { return b.sw }
func (b Bounds) NorthEast() orb.Point { return b.ne }
func (b Bounds) West() float64        { return b.sw.Lon() }
func (b Bounds) South() float64       { return b.sw.Lat() }
func (b Bounds) East() float64        { return b.ne.Lon() }
func (b Bounds) North() float64       { return b.ne.Lat() }

// Extend returns the smallest bounds containing b and p.
func (b Bounds) Extend(p orb.Point) Bounds {
	if !b.set {
		return NewBounds(p, p)
	}
	if b.Contains(p) {
		return b
	}
	out := b
	out.sw[1] = math.Min(out.sw[1], p.Lat())
	out.ne[1] = math.Max(out.ne[1], p.Lat())
	if b.Wraps() {
		if !b.containsLng(p.Lon()) {
			// grow towards the closer edge
			if p.Lon()-b.ne.Lon() < b.sw.Lon()-p.Lon() {
				out.ne[0] = p.Lon()
			} else {
				out.sw[0] = p.Lon()
			}
		}
		return out
	}
	out.sw[0] = math.Min(out.sw[0], p.Lon())
	out.ne[0] = math.Max(out.ne[0], p.Lon())
	return out
}

// Union returns the smallest bounds containing both b and o.
func (b Bounds) Union(o Bounds) Bounds {
	if !o.set {
		return b
	}
	if !b.set {
		return o
	}
	return b.Extend(o.sw).Extend(o.ne)
}

// Contains reports whether p lies inside the bounds, edges included.
func (b Bounds) Contains(p orb.Point) bool {
	if !b.set {
		return false
	}
	if p.Lat() < b.sw.Lat() || p.Lat() > b.ne.Lat() {
		return false
	}
	return b.containsLng(p.Lon())
}

func (b Bounds) containsLng(lng float64) bool {
	if b.Wraps() {
		return lng >= b.sw.Lon() || lng <= b.ne.Lon()
	}
	return lng >= b.sw.Lon() && lng <= b.ne.Lon()
}

// Center returns the middle of the rectangle. For wrapping bounds the
// longitude is normalized into [-180, 180].
func (b Bounds) Center() orb.Point {
	if !b.set {
		return orb.Point{}
	}
	lat := (b.sw.Lat() + b.ne.Lat()) / 2
	if !b.Wraps() {
		return orb.Point{(b.sw.Lon() + b.ne.Lon()) / 2, lat}
	}
	lng := (b.sw.Lon() + b.ne.Lon() + 360) / 2
	if lng > 180 {
		lng -= 360
	}
	return orb.Point{lng, lat}
}

// Equal reports whether both bounds have exactly the same corners.
func (b Bounds) Equal(o Bounds) bool {
	if b.set != o.set {
		return false
	}
	return !b.set || (b.sw.Equal(o.sw) && b.ne.Equal(o.ne))
}
