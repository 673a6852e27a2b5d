package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

const (
	// MaxLatitude is the largest latitude representable in Web Mercator.
	MaxLatitude = 85.05112878

	// DefaultTileSize is the pixel size of one map tile at zoom 0.
	DefaultTileSize = 256

	// earth circumference / 2 in spherical mercator meters
	mercatorHalf = 20037508.342789244
)

// Pixel is a position in screen space. Y grows downwards.
type Pixel struct {
	X, Y float64
}

// Projection converts between geographic points and pixels. It is only
// available while an overlay is attached to an active viewport.
type Projection interface {
	ToPixel(p orb.Point) Pixel
	ToPoint(px Pixel) orb.Point
}

// WebMercator projects onto the world pixel plane of a Web Mercator map at
// a fixed zoom. Origin is the world pixel shown at the top-left corner of
// the viewport, so results are viewport ("div") pixels.
type WebMercator struct {
	Zoom     float64
	TileSize float64
	Origin   Pixel
}

// NewWebMercator returns a projection at zoom with the default tile size
// and the world origin at the top-left corner.
func NewWebMercator(zoom float64) *WebMercator {
	return &WebMercator{Zoom: zoom, TileSize: DefaultTileSize}
}

// WorldSize is the width of the whole world in pixels.
func (m *WebMercator) WorldSize() float64 {
	ts := m.TileSize
	if ts <= 0 {
		ts = DefaultTileSize
	}
	return ts * math.Pow(2, m.Zoom)
}

func (m *WebMercator) ToPixel(p orb.Point) Pixel {
	lat := math.Max(-MaxLatitude, math.Min(MaxLatitude, p.Lat()))
	mp := project.Point(orb.Point{p.Lon(), lat}, project.WGS84.ToMercator)

	scale := m.WorldSize() / (2 * mercatorHalf)
	return Pixel{
		X: (mp.X()+mercatorHalf)*scale - m.Origin.X,
		Y: (mercatorHalf-mp.Y())*scale - m.Origin.Y,
	}
}

func (m *WebMercator) ToPoint(px Pixel) orb.Point {
	scale := (2 * mercatorHalf) / m.WorldSize()
	mp := orb.Point{
		(px.X+m.Origin.X)*scale - mercatorHalf,
		mercatorHalf - (px.Y+m.Origin.Y)*scale,
	}
	return project.Point(mp, project.Mercator.ToWGS84)
}
