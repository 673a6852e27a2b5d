// Package clusterer groups map features into clusters for the current
// viewport. The Engine listens to viewport events, keeps a
// longitude-sorted feature store and rebuilds a generation of clusters on
// every settled viewport.
package clusterer

import (
	"errors"
	"fmt"
	"log"

	"github.com/paulmach/orb/geojson"

	"github.com/atlasmap-sc/clusterer/internal/cluster"
	"github.com/atlasmap-sc/clusterer/internal/feature"
	"github.com/atlasmap-sc/clusterer/internal/overlay"
	"github.com/atlasmap-sc/clusterer/internal/store"
	"github.com/atlasmap-sc/clusterer/pkg/geo"
)

// ErrEngineDestroyed is returned by operations on a destroyed engine.
var ErrEngineDestroyed = errors.New("clusterer: engine destroyed")

// Map is the viewport the engine clusters for.
type Map interface {
	// Bounds returns the visible rectangle; false while no viewport is
	// active.
	Bounds() (geo.Bounds, bool)
	Zoom() float64
	// Projection is nil while no viewport is active.
	Projection() geo.Projection
	On(ev overlay.Event, fn func()) (remove func())
	Once(ev overlay.Event, fn func()) (remove func())
	Trigger(ev overlay.Event)
	// RequestFrame runs fn after the next frame has been drawn.
	RequestFrame(fn func()) (cancel func())
}

// DataLayer renders features that are not represented by a cluster icon.
// Alternatives are kept apart from features and keyed by the id of the
// feature they stand in for.
type DataLayer interface {
	Add(f *feature.Feature)
	Remove(id feature.ID)
	Contains(id feature.ID) bool
	AddAlternative(of feature.ID, alt *feature.Feature)
	RemoveAlternative(of feature.ID)
}

// IconFactory creates cluster icons.
type IconFactory interface {
	NewIcon(clusterID int64) cluster.Icon
}

// Engine is the viewport-driven clusterer. It is not safe for concurrent
// use; every call, including the event callbacks, must happen on one
// goroutine.
type Engine struct {
	cfg    Config
	m      Map
	layer  DataLayer
	icons  IconFactory
	logger *log.Logger

	cache       *feature.Cache
	store       *store.Store
	substitutes map[feature.ID]*feature.Feature

	clusters []*cluster.Cluster
	byID     map[int64]*cluster.Cluster

	// previous generations waiting for the next frame
	disposal      []*cluster.Cluster
	cancelDispose func()

	ready      bool
	tilesReady bool
	sawIdle    bool
	started    bool
	loaded     bool
	destroyed  bool
	prevZoom   float64
	listeners  []func()
	tilesOnce  func()
}

// New creates an engine for m and attaches it.
func New(cfg Config, m Map, layer DataLayer, icons IconFactory) *Engine {
	cfg.applyDefaults()
	cache := feature.NewCache()
	e := &Engine{
		cfg:         cfg,
		m:           m,
		layer:       layer,
		icons:       icons,
		logger:      cfg.Logger,
		cache:       cache,
		store:       store.New(cache),
		substitutes: make(map[feature.ID]*feature.Feature),
		byID:        make(map[int64]*cluster.Cluster),
	}
	e.Attach()
	return e
}

// Attach registers the viewport listeners and marks the engine ready.
func (e *Engine) Attach() {
	if e.destroyed || e.ready {
		return
	}
	e.prevZoom = e.m.Zoom()
	e.listeners = append(e.listeners,
		e.m.On(overlay.EventZoomChanged, e.onZoomChanged),
		e.m.On(overlay.EventIdle, e.onIdle),
	)
	if !e.tilesReady && e.tilesOnce == nil {
		e.tilesOnce = e.m.Once(overlay.EventTilesReady, e.onTilesReady)
	}
	e.ready = true
	e.maybeStart()
}

// Detach removes the listeners, drops every cluster and takes all features
// off the render layer. The features stay in the store.
func (e *Engine) Detach() {
	if !e.ready {
		return
	}
	for _, remove := range e.listeners {
		remove()
	}
	e.listeners = nil
	e.ready = false
	e.started = false
	e.sawIdle = false

	e.resetViewport()
	for _, f := range e.store.Sorted() {
		e.hideIndividual(f)
	}
}

// SetVisible shows or hides the clusterer.
func (e *Engine) SetVisible(visible bool) {
	if visible {
		e.Attach()
		return
	}
	e.Detach()
}

// Visible reports whether the engine is attached.
func (e *Engine) Visible() bool { return e.ready }

func (e *Engine) onZoomChanged() {
	zoom := e.m.Zoom()
	if zoom != e.prevZoom {
		e.logger.Printf("[Clusterer] zoom changed %g -> %g", e.prevZoom, zoom)
	}
	e.prevZoom = zoom
}

func (e *Engine) onIdle() {
	if !e.sawIdle {
		e.sawIdle = true
		if !e.tilesReady {
			e.m.Trigger(overlay.EventTilesReady)
		}
		e.maybeStart()
		return
	}
	if !e.started {
		e.maybeStart()
		return
	}
	e.Redraw()
}

func (e *Engine) onTilesReady() {
	e.tilesOnce = nil
	e.tilesReady = true
	e.maybeStart()
}

// maybeStart runs the first clustering pass once the engine is attached,
// the tiles are ready and there are features.
func (e *Engine) maybeStart() {
	if e.started || e.destroyed {
		return
	}
	if !e.ready || !e.tilesReady || e.store.Len() == 0 {
		return
	}
	e.started = true
	e.createClusters()
}

// Started reports whether the first clustering pass has run.
func (e *Engine) Started() bool { return e.started }

// Add stores f. It returns false for duplicates, for features without
// coordinates and after Destroy.
func (e *Engine) Add(f *feature.Feature) bool {
	if !e.add(f) {
		return false
	}
	e.afterMutation()
	return true
}

// AddFeatures stores every feature and reclusters once. It returns the
// number of features accepted.
func (e *Engine) AddFeatures(fs []*feature.Feature) int {
	n := 0
	for _, f := range fs {
		if e.add(f) {
			n++
		}
	}
	if n > 0 {
		e.afterMutation()
	}
	return n
}

// AddGeoJSON stores the features of fc.
func (e *Engine) AddGeoJSON(fc *geojson.FeatureCollection) int {
	if fc == nil {
		return 0
	}
	fs := make([]*feature.Feature, 0, len(fc.Features))
	for _, gf := range fc.Features {
		fs = append(fs, feature.FromGeoJSON(gf))
	}
	return e.AddFeatures(fs)
}

// LoadGeoJSON parses a GeoJSON FeatureCollection and adds its features.
// Loading a second collection is allowed but logged, since the data is
// merged with what is already loaded.
func (e *Engine) LoadGeoJSON(data []byte) (int, error) {
	if e.destroyed {
		return 0, ErrEngineDestroyed
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return 0, fmt.Errorf("failed to parse feature collection: %w", err)
	}
	if e.loaded {
		e.logger.Printf("[Clusterer] Warning: a feature collection is already loaded; merging %d features", len(fc.Features))
	}
	e.loaded = true
	return e.AddGeoJSON(fc), nil
}

func (e *Engine) add(f *feature.Feature) bool {
	if e.destroyed || f == nil || !f.Valid() {
		return false
	}
	return e.store.Add(f)
}

func (e *Engine) afterMutation() {
	if e.started {
		e.Redraw()
		return
	}
	e.maybeStart()
}

// Remove deletes the feature with the given id. The feature leaves its
// cluster, the render layer and the geometry cache, and its point
// substitute is dropped.
func (e *Engine) Remove(id feature.ID) bool {
	if e.destroyed {
		return false
	}
	f, ok := e.store.Get(id)
	if !ok {
		return false
	}
	for i, c := range e.clusters {
		if !c.Has(id) {
			continue
		}
		c.RemoveFeature(id)
		if c.Size() == 0 {
			c.Remove()
			delete(e.byID, c.ID())
			e.clusters = append(e.clusters[:i], e.clusters[i+1:]...)
		}
		break
	}
	e.hideIndividual(f)
	delete(e.substitutes, id)
	e.store.Remove(id)
	return true
}

// Redraw reclusters the current viewport. Without features it only
// clears the render layer.
func (e *Engine) Redraw() {
	if e.destroyed {
		return
	}
	if e.store.Len() == 0 {
		e.resetViewport()
		return
	}
	e.createClusters()
}

// Destroy tears the engine down. A pending disposal is cancelled and the
// clusters are removed right away.
func (e *Engine) Destroy() {
	if e.destroyed {
		return
	}
	e.Detach()
	if e.tilesOnce != nil {
		e.tilesOnce()
		e.tilesOnce = nil
	}
	e.resetViewport()
	for _, f := range e.store.Sorted() {
		e.hideIndividual(f)
	}
	e.store.Reset()
	e.cache.Reset()
	e.substitutes = make(map[feature.ID]*feature.Feature)
	e.cfg.Styles = nil
	e.destroyed = true
}

// Destroyed reports whether Destroy has been called.
func (e *Engine) Destroyed() bool { return e.destroyed }

// resetViewport removes every cluster at once, including those waiting
// for disposal.
func (e *Engine) resetViewport() {
	if e.cancelDispose != nil {
		e.cancelDispose()
		e.cancelDispose = nil
	}
	for _, c := range e.disposal {
		c.Remove()
	}
	e.disposal = nil
	for _, c := range e.clusters {
		c.Remove()
	}
	e.clusters = nil
	e.byID = make(map[int64]*cluster.Cluster)
}

// createClusters assigns every feature in the extended viewport to a
// cluster of a new generation, walking the store left to right.
func (e *Engine) createClusters() {
	if !e.ready || e.destroyed {
		return
	}
	mapBounds, ok := e.m.Bounds()
	if !ok {
		return
	}
	bounds := geo.ExtendBounds(mapBounds, e.cfg.GridSize, e.m.Projection())

	prev := e.clusters
	e.clusters = nil
	e.byID = make(map[int64]*cluster.Cluster)

	h := host{e: e}
	features := e.store.Sorted()
	var working []*cluster.Cluster

	for i := e.store.LowerBound(bounds.West()); i < len(features); i++ {
		f := features[i]
		center := e.cache.Center(f)
		if center.Lon() > bounds.East() {
			break
		}
		if center.Lat() < bounds.South() || center.Lat() > bounds.North() {
			continue
		}
		if f.Hidden() {
			e.hideIndividual(f)
			continue
		}

		placed := false
		for j := 0; j < len(working); {
			c := working[j]
			if c.Bounds().East() < center.Lon() {
				working = append(working[:j], working[j+1:]...)
				continue
			}
			if c.ContainsFeature(f) {
				c.AddFeature(f)
				placed = true
				break
			}
			j++
		}
		if placed {
			continue
		}

		c := cluster.New(h, center)
		c.AddFeature(f)
		if c.Size() == 0 {
			// oversized shape, rendered on its own
			c.Remove()
			continue
		}
		e.clusters = append(e.clusters, c)
		e.byID[c.ID()] = c
		working = append(working, c)
	}

	e.scheduleDisposal(prev)
}

// scheduleDisposal queues the previous generation for removal after the
// next frame, so its icons stay up until the new ones are drawn.
func (e *Engine) scheduleDisposal(prev []*cluster.Cluster) {
	if len(prev) == 0 {
		return
	}
	e.disposal = append(e.disposal, prev...)
	if e.cancelDispose == nil {
		e.cancelDispose = e.m.RequestFrame(e.drainDisposal)
	}
}

func (e *Engine) drainDisposal() {
	e.cancelDispose = nil
	if e.destroyed {
		return
	}
	for _, c := range e.disposal {
		c.Remove()
	}
	e.disposal = nil
}

// PendingDisposal returns the number of clusters waiting to be removed.
func (e *Engine) PendingDisposal() int { return len(e.disposal) }
