// Package service provides the clustering sessions served over HTTP.
package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/atlasmap-sc/clusterer/internal/cache"
	"github.com/atlasmap-sc/clusterer/internal/cluster"
	"github.com/atlasmap-sc/clusterer/internal/clusterer"
	"github.com/atlasmap-sc/clusterer/internal/feature"
	"github.com/atlasmap-sc/clusterer/internal/overlay"
	"github.com/atlasmap-sc/clusterer/pkg/geo"
)

var (
	ErrInvalidViewport = errors.New("invalid viewport")
	ErrFeatureNotFound = errors.New("feature not found")
	ErrClusterNotFound = errors.New("cluster not found")
	ErrSessionClosed   = errors.New("session closed")
)

// MaxZoom is the largest zoom accepted in a viewport request.
const MaxZoom = 24

// ClusterServiceConfig contains session configuration.
type ClusterServiceConfig struct {
	ID            string
	Engine        clusterer.Config
	Cache         *cache.Manager
	DefaultWidth  int
	DefaultHeight int
}

// ClusterService is one clustering session: a headless viewport, its
// render layer, its icon pane and the engine driving them. All methods are
// safe for concurrent use; calls are serialized.
type ClusterService struct {
	mu sync.Mutex

	id      string
	m       *overlay.Map
	layer   *overlay.DataLayer
	pane    *overlay.Pane
	engine  *clusterer.Engine
	cache   *cache.Manager
	version uint64
	closed  bool
	touched time.Time

	// zoom targets of the clusters in the last response served
	targets map[int64]geo.Bounds

	defaultWidth  int
	defaultHeight int
}

// NewClusterService creates a session.
func NewClusterService(cfg ClusterServiceConfig) *ClusterService {
	if cfg.DefaultWidth <= 0 {
		cfg.DefaultWidth = 1024
	}
	if cfg.DefaultHeight <= 0 {
		cfg.DefaultHeight = 768
	}

	s := &ClusterService{
		id:            cfg.ID,
		m:             overlay.NewMap(cfg.DefaultWidth, cfg.DefaultHeight),
		layer:         overlay.NewDataLayer(),
		cache:         cfg.Cache,
		touched:       time.Now(),
		defaultWidth:  cfg.DefaultWidth,
		defaultHeight: cfg.DefaultHeight,
	}
	className := cfg.Engine.ClassName
	if className == "" {
		className = clusterer.DefaultClassName
	}
	s.pane = overlay.NewPane(className, s.styles)
	s.m.SetPane(s.pane)
	s.engine = clusterer.New(cfg.Engine, s.m, s.layer, s.pane)
	return s
}

func (s *ClusterService) styles() []cluster.Style { return s.engine.Styles() }

// ID returns the session id.
func (s *ClusterService) ID() string { return s.id }

// LastUsed returns the time of the most recent call.
func (s *ClusterService) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touched
}

// Load adds the features of a GeoJSON FeatureCollection.
func (s *ClusterService) Load(data []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.use(); err != nil {
		return 0, err
	}

	n, err := s.engine.LoadGeoJSON(data)
	if err != nil {
		return 0, fmt.Errorf("failed to load features: %w", err)
	}
	s.mutated()
	return n, nil
}

// AddFeatures adds already decoded features.
func (s *ClusterService) AddFeatures(fc *geojson.FeatureCollection) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.use(); err != nil {
		return 0, err
	}

	n := s.engine.AddGeoJSON(fc)
	s.mutated()
	return n, nil
}

// RemoveFeature removes one feature.
func (s *ClusterService) RemoveFeature(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.use(); err != nil {
		return err
	}

	if !s.engine.Remove(feature.ID(id)) {
		return fmt.Errorf("%w: %s", ErrFeatureNotFound, id)
	}
	s.mutated()
	return nil
}

// ViewportRequest describes the viewport to cluster for. Zero width or
// height use the session defaults.
type ViewportRequest struct {
	Lng    float64
	Lat    float64
	Zoom   float64
	Width  int
	Height int
}

func (s *ClusterService) validate(req *ViewportRequest) error {
	if req.Width <= 0 {
		req.Width = s.defaultWidth
	}
	if req.Height <= 0 {
		req.Height = s.defaultHeight
	}
	switch {
	case math.IsNaN(req.Lng) || req.Lng < -180 || req.Lng > 180:
		return fmt.Errorf("%w: longitude %v", ErrInvalidViewport, req.Lng)
	case math.IsNaN(req.Lat) || req.Lat < -90 || req.Lat > 90:
		return fmt.Errorf("%w: latitude %v", ErrInvalidViewport, req.Lat)
	case math.IsNaN(req.Zoom) || req.Zoom < 0 || req.Zoom > MaxZoom:
		return fmt.Errorf("%w: zoom %v", ErrInvalidViewport, req.Zoom)
	case req.Width > 8192 || req.Height > 8192:
		return fmt.Errorf("%w: size %dx%d", ErrInvalidViewport, req.Width, req.Height)
	}
	return nil
}

// Viewport moves the session viewport, lets it settle, draws one frame and
// returns the visible clusters and individual features as an encoded
// GeoJSON FeatureCollection.
func (s *ClusterService) Viewport(req ViewportRequest) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.use(); err != nil {
		return nil, err
	}
	if err := s.validate(&req); err != nil {
		return nil, err
	}

	var key string
	if s.cache != nil {
		key = cache.ViewportKey(s.id, s.version, req.Lng, req.Lat, req.Zoom, req.Width, req.Height)
		if raw, ok := s.cache.GetViewport(key); ok {
			var entry viewportEntry
			if err := json.Unmarshal(raw, &entry); err == nil {
				s.useTargets(entry.Targets)
				return entry.Body, nil
			}
			log.Printf("[Sessions] %s: ignoring unreadable cached viewport %s", s.id, key)
		}
	}

	s.m.SetView(orb.Point{req.Lng, req.Lat}, req.Zoom, req.Width, req.Height)
	s.m.Settle()
	s.m.RenderFrame()

	fc, targets := s.snapshot()
	data, err := fc.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to encode viewport: %w", err)
	}
	s.useTargets(targets)
	if s.cache != nil {
		raw, err := json.Marshal(viewportEntry{Body: data, Targets: targets})
		if err != nil {
			return nil, fmt.Errorf("failed to encode viewport: %w", err)
		}
		s.cache.SetViewport(key, raw)
	}
	return data, nil
}

// viewportEntry is a cached viewport response. The zoom targets travel
// with it because the cluster ids in Body belong to the generation that
// produced it.
type viewportEntry struct {
	Body    json.RawMessage `json:"body"`
	Targets []zoomTarget    `json:"targets,omitempty"`
}

type zoomTarget struct {
	ID    int64   `json:"id"`
	West  float64 `json:"west"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	North float64 `json:"north"`
}

func (s *ClusterService) useTargets(targets []zoomTarget) {
	s.targets = make(map[int64]geo.Bounds, len(targets))
	for _, t := range targets {
		s.targets[t.ID] = geo.NewBounds(orb.Point{t.West, t.South}, orb.Point{t.East, t.North})
	}
}

// snapshot collects what is drawn: one point per visible cluster icon and
// every individually rendered feature inside the viewport, plus the zoom
// targets of those clusters.
func (s *ClusterService) snapshot() (*geojson.FeatureCollection, []zoomTarget) {
	fc := geojson.NewFeatureCollection()
	var targets []zoomTarget

	for _, icon := range s.pane.Visible() {
		size := 0
		if c, ok := s.engine.ClusterByID(icon.ClusterID); ok {
			size = c.Size()
		}
		if b, ok := s.engine.ZoomTarget(icon.ClusterID); ok {
			targets = append(targets, zoomTarget{
				ID:    icon.ClusterID,
				West:  b.West(),
				South: b.South(),
				East:  b.East(),
				North: b.North(),
			})
		}
		gf := geojson.NewFeature(icon.Center)
		gf.ID = fmt.Sprintf("%s-%d", icon.ClassName, icon.ClusterID)
		gf.Properties["cluster"] = true
		gf.Properties["cluster_id"] = icon.ClusterID
		gf.Properties["point_count"] = size
		gf.Properties["text"] = icon.Text
		gf.Properties["style_index"] = icon.StyleIndex
		gf.Properties["icon_url"] = icon.Style.URL
		gf.Properties["icon_width"] = icon.Style.Width
		gf.Properties["icon_height"] = icon.Style.Height
		gf.Properties["text_color"] = icon.Style.TextColor
		gf.Properties["x"] = icon.Position.X
		gf.Properties["y"] = icon.Position.Y
		fc.Append(gf)
	}

	view, ok := s.m.Bounds()
	if !ok {
		return fc, targets
	}
	for _, f := range s.layer.Features() {
		if !view.Contains(f.Geometry.Bound().Center()) {
			continue
		}
		gf := f.GeoJSON()
		gf.Properties["cluster"] = false
		fc.Append(gf)
	}
	return fc, targets
}

// ClusterBounds returns the zoom-on-click target of a cluster from the
// most recent viewport response, cached or not.
func (s *ClusterService) ClusterBounds(id int64) (geo.Bounds, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.use(); err != nil {
		return geo.Bounds{}, err
	}

	if b, ok := s.targets[id]; ok {
		return b, nil
	}
	b, ok := s.engine.ZoomTarget(id)
	if !ok {
		return geo.Bounds{}, fmt.Errorf("%w: %d", ErrClusterNotFound, id)
	}
	return b, nil
}

// Bounds returns the bounds of every loaded feature.
func (s *ClusterService) Bounds() (geo.Bounds, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.use(); err != nil {
		return geo.Bounds{}, err
	}
	return s.engine.Bounds(), nil
}

// Stats summarizes the session.
func (s *ClusterService) Stats() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]interface{}{
		"id":           s.id,
		"features":     s.engine.NumFeatures(),
		"clusters":     s.engine.NumClusters(),
		"rendered":     s.layer.Len(),
		"version":      s.version,
		"zoom":         s.m.Zoom(),
		"grid_size":    s.engine.GridSize(),
		"max_zoom":     s.engine.MaxZoom(),
		"min_cluster":  s.engine.MinClusterSize(),
		"zoom_onclick": s.engine.ZoomOnClick(),
	}
}

// Close destroys the engine and drops cached responses.
func (s *ClusterService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.engine.Destroy()
	s.m.SetAttached(false)
	if s.cache != nil {
		s.cache.PurgeSession(s.id)
	}
}

func (s *ClusterService) use() error {
	if s.closed {
		return ErrSessionClosed
	}
	s.touched = time.Now()
	return nil
}

func (s *ClusterService) mutated() {
	s.version++
	s.targets = nil
	if s.cache != nil {
		s.cache.PurgeSession(s.id)
	}
}
