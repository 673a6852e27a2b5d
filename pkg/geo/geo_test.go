package geo

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundsZeroValue(t *testing.T) {
	var b Bounds
	assert.True(t, b.IsEmpty())
	assert.False(t, b.Contains(orb.Point{0, 0}))
	assert.True(t, b.Bound().IsEmpty())

	b = b.Extend(orb.Point{10, 20})
	require.False(t, b.IsEmpty())
	assert.Equal(t, orb.Point{10, 20}, b.SouthWest())
	assert.Equal(t, orb.Point{10, 20}, b.NorthEast())
	assert.True(t, b.Contains(orb.Point{10, 20}))
}

func TestBoundsExtendAndUnion(t *testing.T) {
	b := Bounds{}.Extend(orb.Point{1, 1}).Extend(orb.Point{-3, 5}).Extend(orb.Point{2, -4})
	assert.Equal(t, -3.0, b.West())
	assert.Equal(t, 2.0, b.East())
	assert.Equal(t, -4.0, b.South())
	assert.Equal(t, 5.0, b.North())

	u := b.Union(NewBounds(orb.Point{10, 10}, orb.Point{11, 12}))
	assert.Equal(t, 11.0, u.East())
	assert.Equal(t, 12.0, u.North())
	assert.True(t, u.Union(Bounds{}).Equal(u))
	assert.True(t, Bounds{}.Union(u).Equal(u))
}

func TestBoundsWrapping(t *testing.T) {
	b := NewBounds(orb.Point{170, -10}, orb.Point{-170, 10})
	require.True(t, b.Wraps())

	assert.True(t, b.Contains(orb.Point{175, 0}))
	assert.True(t, b.Contains(orb.Point{-175, 0}))
	assert.False(t, b.Contains(orb.Point{0, 0}))
	assert.InDelta(t, 180.0, b.Center().Lon(), 1e-9)

	ob := b.Bound()
	assert.Equal(t, -180.0, ob.Min.Lon())
	assert.Equal(t, 180.0, ob.Max.Lon())
}

func TestWebMercatorRoundTrip(t *testing.T) {
	m := NewWebMercator(5)
	for _, p := range []orb.Point{{0, 0}, {10, 10}, {-120.5, 45.25}, {179, -60}} {
		px := m.ToPixel(p)
		back := m.ToPoint(px)
		assert.InDelta(t, p.Lon(), back.Lon(), 1e-9)
		assert.InDelta(t, p.Lat(), back.Lat(), 1e-9)
	}

	// origin sits at the world center at zoom 0
	px := NewWebMercator(0).ToPixel(orb.Point{0, 0})
	assert.InDelta(t, 128.0, px.X, 1e-9)
	assert.InDelta(t, 128.0, px.Y, 1e-9)
}

func TestExtendBounds(t *testing.T) {
	proj := NewWebMercator(5)

	t.Run("never smaller", func(t *testing.T) {
		in := NewBounds(orb.Point{-10, -5}, orb.Point{12, 8})
		out := ExtendBounds(in, 60, proj)
		assert.LessOrEqual(t, out.West(), in.West())
		assert.LessOrEqual(t, out.South(), in.South())
		assert.GreaterOrEqual(t, out.East(), in.East())
		assert.GreaterOrEqual(t, out.North(), in.North())

		w, h := PixelSize(out, proj)
		iw, ih := PixelSize(in, proj)
		assert.InDelta(t, iw+120, w, 1e-6)
		assert.InDelta(t, ih+120, h, 1e-6)
	})

	t.Run("single point grows to grid box", func(t *testing.T) {
		in := Bounds{}.Extend(orb.Point{0, 0})
		out := ExtendBounds(in, 60, proj)
		w, h := PixelSize(out, proj)
		assert.InDelta(t, 120.0, w, 1e-6)
		assert.InDelta(t, 120.0, h, 1e-6)
		assert.True(t, out.Contains(orb.Point{0, 0}))
	})

	t.Run("antimeridian approximation", func(t *testing.T) {
		in := NewBounds(orb.Point{170, -10}, orb.Point{-170, 10})
		out := ExtendBounds(in, 60, proj)
		assert.Equal(t, -179.0, out.West())
		assert.Equal(t, 179.0, out.East())
		assert.Equal(t, -10.0, out.South())
		assert.Equal(t, 10.0, out.North())
	})

	t.Run("no projection", func(t *testing.T) {
		in := NewBounds(orb.Point{0, 0}, orb.Point{1, 1})
		assert.True(t, ExtendBounds(in, 60, nil).Equal(in))
		assert.True(t, ExtendBounds(Bounds{}, 60, proj).IsEmpty())

		w, h := PixelSize(in, nil)
		assert.Zero(t, w)
		assert.Zero(t, h)
	})
}
