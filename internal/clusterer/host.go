package clusterer

import (
	"math"

	"github.com/atlasmap-sc/clusterer/internal/cluster"
	"github.com/atlasmap-sc/clusterer/internal/feature"
	"github.com/atlasmap-sc/clusterer/pkg/geo"
)

// host adapts the engine to what a cluster needs from its owner.
type host struct {
	e *Engine
}

var _ cluster.Host = host{}

func (h host) Cache() *feature.Cache { return h.e.cache }
func (h host) Zoom() float64         { return h.e.m.Zoom() }
func (h host) MaxZoom() int          { return h.e.cfg.MaxZoom }
func (h host) MinClusterSize() int   { return h.e.cfg.MinClusterSize }
func (h host) AverageCenter() bool   { return h.e.cfg.AverageCenter }
func (h host) GridSize() float64     { return h.e.cfg.GridSize }
func (h host) ClassName() string     { return h.e.cfg.ClassName }
func (h host) NumStyles() int        { return len(h.e.cfg.Styles) }

func (h host) Calculate(features []*feature.Feature, numStyles int) cluster.Sums {
	return h.e.cfg.Calculator(features, numStyles)
}

func (h host) ExtendedBounds(b geo.Bounds) geo.Bounds {
	return geo.ExtendBounds(b, h.e.cfg.GridSize, h.e.m.Projection())
}

func (h host) FeatureSize(f *feature.Feature) (float64, float64) {
	return h.e.FeatureDimensions(f)
}

func (h host) ShowIndividually(f *feature.Feature) { h.e.showIndividually(f) }
func (h host) HideIndividual(f *feature.Feature)   { h.e.hideIndividual(f) }

func (h host) NewIcon(clusterID int64) cluster.Icon {
	return h.e.icons.NewIcon(clusterID)
}

// showIndividually puts f on the render layer. Shapes smaller than the grid
// are drawn through a point substitute at their center.
func (e *Engine) showIndividually(f *feature.Feature) {
	if f.Hidden() {
		e.hideIndividual(f)
		return
	}
	if !f.IsPoint() && e.isSmallShape(f) {
		e.layer.Remove(f.ID)
		e.layer.AddAlternative(f.ID, e.substitute(f))
		return
	}
	e.layer.RemoveAlternative(f.ID)
	e.layer.Add(f)
}

func (e *Engine) hideIndividual(f *feature.Feature) {
	e.layer.Remove(f.ID)
	e.layer.RemoveAlternative(f.ID)
}

func (e *Engine) isSmallShape(f *feature.Feature) bool {
	w, h := e.FeatureDimensions(f)
	return math.Abs(w) < e.cfg.GridSize && math.Abs(h) < e.cfg.GridSize
}

// substitute returns the point standing in for a small shape, creating it
// on first use.
func (e *Engine) substitute(f *feature.Feature) *feature.Feature {
	if sub, ok := e.substitutes[f.ID]; ok {
		return sub
	}
	sub := feature.New(f.ID+"#alt", e.cache.Center(f))
	for k, v := range f.Properties {
		sub.Properties[k] = v
	}
	sub.SetProperty(feature.PropAlternative, true)
	sub.SetProperty(feature.PropAlternativeOf, string(f.ID))
	e.substitutes[f.ID] = sub
	return sub
}
