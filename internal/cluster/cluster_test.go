package cluster

import (
	"fmt"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlasmap-sc/clusterer/internal/feature"
	"github.com/atlasmap-sc/clusterer/pkg/geo"
)

type fakeIcon struct {
	sums    Sums
	center  orb.Point
	visible bool
	removed bool
}

func (i *fakeIcon) SetSums(s Sums)        { i.sums = s }
func (i *fakeIcon) SetCenter(p orb.Point) { i.center = p }
func (i *fakeIcon) Show()                 { i.visible = true }
func (i *fakeIcon) Hide()                 { i.visible = false }
func (i *fakeIcon) Remove()               { i.removed = true }

type fakeHost struct {
	cache   *feature.Cache
	proj    geo.Projection
	zoom    float64
	maxZoom int
	minSize int
	average bool
	grid    float64
	layer   map[feature.ID]bool
	icons   []*fakeIcon
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		cache:   feature.NewCache(),
		proj:    geo.NewWebMercator(5),
		zoom:    5,
		maxZoom: 17,
		minSize: 2,
		average: true,
		grid:    60,
		layer:   make(map[feature.ID]bool),
	}
}

func (h *fakeHost) Cache() *feature.Cache { return h.cache }
func (h *fakeHost) Zoom() float64         { return h.zoom }
func (h *fakeHost) MaxZoom() int          { return h.maxZoom }
func (h *fakeHost) MinClusterSize() int   { return h.minSize }
func (h *fakeHost) AverageCenter() bool   { return h.average }
func (h *fakeHost) GridSize() float64     { return h.grid }
func (h *fakeHost) ClassName() string     { return "cluster" }
func (h *fakeHost) NumStyles() int        { return 5 }

func (h *fakeHost) Calculate(fs []*feature.Feature, n int) Sums { return DefaultCalculator(fs, n) }

func (h *fakeHost) ExtendedBounds(b geo.Bounds) geo.Bounds {
	return geo.ExtendBounds(b, h.grid, h.proj)
}

func (h *fakeHost) FeatureSize(f *feature.Feature) (float64, float64) {
	return geo.PixelSize(h.cache.Bounds(f), h.proj)
}

func (h *fakeHost) ShowIndividually(f *feature.Feature) {
	if f.Hidden() {
		delete(h.layer, f.ID)
		return
	}
	h.layer[f.ID] = true
}

func (h *fakeHost) HideIndividual(f *feature.Feature) { delete(h.layer, f.ID) }

func (h *fakeHost) NewIcon(int64) Icon {
	icon := &fakeIcon{}
	h.icons = append(h.icons, icon)
	return icon
}

func pt(id string, lng, lat float64) *feature.Feature {
	return feature.New(feature.ID(id), orb.Point{lng, lat})
}

func TestAddFeatureDuplicate(t *testing.T) {
	h := newFakeHost()
	c := New(h, orb.Point{0, 0})
	f := pt("a", 0, 0)

	require.True(t, c.AddFeature(f))
	assert.False(t, c.AddFeature(f))
	assert.Equal(t, 1, c.Size())
	assert.Equal(t, c.ClassID(), f.Properties[feature.PropClusterID])
}

func TestThresholdTransition(t *testing.T) {
	h := newFakeHost()
	h.minSize = 3
	c := New(h, orb.Point{0, 0})

	a, b, d, e := pt("a", 0, 0), pt("b", 0.001, 0), pt("c", 0, 0.001), pt("d", 0.001, 0.001)

	c.AddFeature(a)
	c.AddFeature(b)
	assert.False(t, c.Merged())
	assert.True(t, h.layer["a"])
	assert.True(t, h.layer["b"])
	assert.False(t, h.icons[0].visible)

	c.AddFeature(d)
	assert.True(t, c.Merged())
	assert.Empty(t, h.layer, "all members merge in the same call")
	assert.True(t, h.icons[0].visible)
	assert.Equal(t, Sums{Index: 1, Text: "3"}, h.icons[0].sums)

	c.AddFeature(e)
	assert.Empty(t, h.layer)
	assert.Equal(t, "4", h.icons[0].sums.Text)
}

func TestAverageCenter(t *testing.T) {
	h := newFakeHost()
	c := New(h, orb.Point{0, 0})
	c.AddFeature(pt("a", 0, 0))
	c.AddFeature(pt("b", 0.3, 0.6))
	c.AddFeature(pt("c", 0.6, 0))

	assert.InDelta(t, 0.3, c.Center().Lon(), 1e-12)
	assert.InDelta(t, 0.2, c.Center().Lat(), 1e-12)
	assert.True(t, c.Bounds().Contains(c.Center()))

	fixed := newFakeHost()
	fixed.average = false
	fc := New(fixed, orb.Point{1, 1})
	fc.AddFeature(pt("x", 1, 1))
	fc.AddFeature(pt("y", 1.2, 1.2))
	assert.Equal(t, orb.Point{1, 1}, fc.Center())
}

func TestOversizedShapesStayIndividual(t *testing.T) {
	h := newFakeHost()
	c := New(h, orb.Point{0, 0})

	big := feature.New("big", orb.Polygon{orb.Ring{{-5, -5}, {5, -5}, {5, 5}, {-5, 5}, {-5, -5}}})
	small := feature.New("small", orb.Polygon{orb.Ring{{0, 0}, {0.01, 0}, {0.01, 0.01}, {0, 0.01}, {0, 0}}})

	assert.True(t, c.AddFeature(big))
	assert.False(t, c.Has("big"))
	assert.True(t, h.layer["big"])

	assert.True(t, c.AddFeature(small))
	assert.True(t, c.Has("small"))
	assert.Equal(t, 1, c.Size())
}

func TestMaxZoomDissolves(t *testing.T) {
	h := newFakeHost()
	c := New(h, orb.Point{0, 0})
	c.AddFeature(pt("a", 0, 0))
	c.AddFeature(pt("b", 0, 0.0001))
	require.Empty(t, h.layer)

	h.zoom = 18
	c.UpdateIcon()
	assert.True(t, h.layer["a"])
	assert.True(t, h.layer["b"])
	assert.False(t, h.icons[0].visible)
}

func TestHiddenMembers(t *testing.T) {
	h := newFakeHost()
	c := New(h, orb.Point{0, 0})
	f := pt("a", 0, 0)
	f.SetHidden(true)

	c.AddFeature(f)
	assert.False(t, h.layer["a"])
}

func TestRemoveFeature(t *testing.T) {
	h := newFakeHost()
	c := New(h, orb.Point{0, 0})
	c.AddFeature(pt("a", 0, 0))
	c.AddFeature(pt("b", 0.2, 0))
	require.True(t, c.Merged())

	assert.True(t, c.RemoveFeature("a"))
	assert.False(t, c.RemoveFeature("a"))
	assert.Equal(t, 1, c.Size())
	assert.Equal(t, orb.Point{0.2, 0}, c.Center())
	assert.True(t, h.layer["b"], "remaining member is rendered again")
	assert.False(t, h.icons[0].visible)
}

func TestRemove(t *testing.T) {
	h := newFakeHost()
	c := New(h, orb.Point{0, 0})
	c.AddFeature(pt("a", 0, 0))

	c.Remove()
	assert.True(t, c.Removed())
	assert.True(t, h.icons[0].removed)
	assert.Nil(t, c.Icon())
	assert.Zero(t, c.Size())
	assert.True(t, c.MemberBounds().IsEmpty())
	assert.False(t, c.AddFeature(pt("b", 0, 0)))
}

func TestIDsIncrease(t *testing.T) {
	h := newFakeHost()
	first := New(h, orb.Point{0, 0})
	second := New(h, orb.Point{0, 0})
	assert.Greater(t, second.ID(), first.ID())
	assert.Equal(t, fmt.Sprintf("cluster-%d", second.ID()), second.ClassID())
}

func TestDefaultCalculator(t *testing.T) {
	fs := func(n int) []*feature.Feature {
		out := make([]*feature.Feature, n)
		for i := range out {
			out[i] = pt(fmt.Sprint(i), 0, 0)
		}
		return out
	}

	assert.Equal(t, Sums{Index: 1, Text: "9"}, DefaultCalculator(fs(9), 5))
	assert.Equal(t, Sums{Index: 2, Text: "10"}, DefaultCalculator(fs(10), 5))
	assert.Equal(t, Sums{Index: 3, Text: "120"}, DefaultCalculator(fs(120), 5))
	assert.Equal(t, 2, DefaultCalculator(fs(120), 2).Index)
	assert.Equal(t, Sums{Index: 0, Text: "0"}, DefaultCalculator(nil, 5))
}

func TestDefaultStyles(t *testing.T) {
	styles := DefaultStyles("https://example.com/m", "png")
	require.Len(t, styles, 5)
	assert.Equal(t, "https://example.com/m1.png", styles[0].URL)
	assert.Equal(t, 90, styles[4].Width)
	assert.Equal(t, 90, styles[4].Height)
}
