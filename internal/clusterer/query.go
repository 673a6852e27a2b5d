package clusterer

import (
	"github.com/atlasmap-sc/clusterer/internal/cluster"
	"github.com/atlasmap-sc/clusterer/internal/feature"
	"github.com/atlasmap-sc/clusterer/internal/store"
	"github.com/atlasmap-sc/clusterer/pkg/geo"
)

func (e *Engine) GridSize() float64        { return e.cfg.GridSize }
func (e *Engine) MinZoom() int             { return e.cfg.MinZoom }
func (e *Engine) MaxZoom() int             { return e.cfg.MaxZoom }
func (e *Engine) MinClusterSize() int      { return e.cfg.MinClusterSize }
func (e *Engine) AverageCenter() bool      { return e.cfg.AverageCenter }
func (e *Engine) ZoomOnClick() bool        { return e.cfg.ZoomOnClick }
func (e *Engine) ClassName() string        { return e.cfg.ClassName }
func (e *Engine) ImagePath() string        { return e.cfg.ImagePath }
func (e *Engine) ImageExtension() string   { return e.cfg.ImageExtension }
func (e *Engine) Styles() []cluster.Style  { return e.cfg.Styles }
func (e *Engine) Cache() *feature.Cache    { return e.cache }
func (e *Engine) SortKind() store.SortKind { return e.store.LastSort() }

// SetStyles replaces the icon style table. Icons pick the new styles up
// on the next redraw.
func (e *Engine) SetStyles(styles []cluster.Style) {
	if len(styles) == 0 {
		styles = cluster.DefaultStyles(e.cfg.ImagePath, e.cfg.ImageExtension)
	}
	e.cfg.Styles = styles
}

// NumClusters returns the size of the current generation.
func (e *Engine) NumClusters() int { return len(e.clusters) }

// NumFeatures returns the number of stored features.
func (e *Engine) NumFeatures() int { return e.store.Len() }

// Feature returns the stored feature with the given id.
func (e *Engine) Feature(id feature.ID) (*feature.Feature, bool) {
	return e.store.Get(id)
}

// Features returns the stored features ordered by longitude.
func (e *Engine) Features() []*feature.Feature {
	return append([]*feature.Feature(nil), e.store.Sorted()...)
}

// Clusters returns the current generation in creation order.
func (e *Engine) Clusters() []*cluster.Cluster {
	return append([]*cluster.Cluster(nil), e.clusters...)
}

// ClusterByID looks a cluster of the current generation up.
func (e *Engine) ClusterByID(id int64) (*cluster.Cluster, bool) {
	c, ok := e.byID[id]
	return c, ok
}

// Bounds returns the union of the bounds of every stored feature. It does
// not depend on the viewport.
func (e *Engine) Bounds() geo.Bounds {
	var b geo.Bounds
	for _, f := range e.store.Sorted() {
		b = b.Union(e.cache.Bounds(f))
	}
	return b
}

// ClustersBounds returns the union of the member bounds of every cluster.
func (e *Engine) ClustersBounds() geo.Bounds {
	var b geo.Bounds
	for _, c := range e.clusters {
		b = b.Union(c.MemberBounds())
	}
	return b
}

// ZoomTarget returns the bounds to fit when the icon of cluster id is
// clicked. It reports false when zoom on click is off or the cluster is
// unknown.
func (e *Engine) ZoomTarget(id int64) (geo.Bounds, bool) {
	if !e.cfg.ZoomOnClick {
		return geo.Bounds{}, false
	}
	c, ok := e.byID[id]
	if !ok {
		return geo.Bounds{}, false
	}
	return c.MemberBounds(), true
}

// FeatureDimensions returns the on-screen pixel size of f. Both sizes are
// zero while no viewport is active.
func (e *Engine) FeatureDimensions(f *feature.Feature) (width, height float64) {
	return geo.PixelSize(e.cache.Bounds(f), e.m.Projection())
}

// Substitute returns the point drawn in place of a small shape, if any.
func (e *Engine) Substitute(id feature.ID) (*feature.Feature, bool) {
	sub, ok := e.substitutes[id]
	return sub, ok
}
