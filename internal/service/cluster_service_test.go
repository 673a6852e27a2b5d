package service

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/atlasmap-sc/clusterer/internal/cache"
	"github.com/atlasmap-sc/clusterer/internal/clusterer"
)

const threePoints = `{"type":"FeatureCollection","features":[
{"type":"Feature","id":"a","geometry":{"type":"Point","coordinates":[0,0]},"properties":{"name":"a"}},
{"type":"Feature","id":"b","geometry":{"type":"Point","coordinates":[0,0.0001]},"properties":{"name":"b"}},
{"type":"Feature","id":"c","geometry":{"type":"Point","coordinates":[10,10]},"properties":{"name":"c"}}
]}`

func newTestService(t *testing.T, withCache bool) *ClusterService {
	t.Helper()
	var cm *cache.Manager
	if withCache {
		var err error
		cm, err = cache.NewManager(cache.Config{IconCacheSizeMB: 1, IconTTL: time.Minute, QueryCacheSize: 16})
		if err != nil {
			t.Fatalf("failed to create cache: %v", err)
		}
		t.Cleanup(func() { cm.Close() })
	}
	svc := NewClusterService(ClusterServiceConfig{
		ID:     "test",
		Engine: clusterer.DefaultConfig(),
		Cache:  cm,
	})
	t.Cleanup(svc.Close)
	return svc
}

func decode(t *testing.T, data []byte) *geojson.FeatureCollection {
	t.Helper()
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		t.Fatalf("invalid feature collection: %v", err)
	}
	return fc
}

func split(fc *geojson.FeatureCollection) (clusters, singles []*geojson.Feature) {
	for _, f := range fc.Features {
		if f.Properties.MustBool("cluster", false) {
			clusters = append(clusters, f)
		} else {
			singles = append(singles, f)
		}
	}
	return clusters, singles
}

func TestViewportSnapshot(t *testing.T) {
	svc := newTestService(t, false)
	n, err := svc.Load([]byte(threePoints))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 features, got %d", n)
	}

	data, err := svc.Viewport(ViewportRequest{Lng: 5, Lat: 5, Zoom: 5})
	if err != nil {
		t.Fatalf("viewport failed: %v", err)
	}
	clusters, singles := split(decode(t, data))

	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster icon, got %d", len(clusters))
	}
	if got := clusters[0].Properties.MustInt("point_count", 0); got != 2 {
		t.Errorf("expected point_count 2, got %d", got)
	}
	if got := clusters[0].Properties.MustString("text", ""); got != "2" {
		t.Errorf("expected text 2, got %q", got)
	}
	if got := clusters[0].Properties.MustInt("icon_width", 0); got != 53 {
		t.Errorf("expected icon width 53, got %d", got)
	}
	if len(singles) != 1 || singles[0].Properties.MustString("name", "") != "c" {
		t.Fatalf("expected feature c rendered alone, got %+v", singles)
	}

	// zoomed in far enough the pair separates
	data, err = svc.Viewport(ViewportRequest{Lng: 0, Lat: 0, Zoom: 20})
	if err != nil {
		t.Fatalf("viewport failed: %v", err)
	}
	clusters, singles = split(decode(t, data))
	if len(clusters) != 0 || len(singles) != 2 {
		t.Fatalf("expected 2 individual features at max zoom, got %d clusters %d singles", len(clusters), len(singles))
	}
}

func TestViewportValidation(t *testing.T) {
	svc := newTestService(t, false)
	cases := []ViewportRequest{
		{Lng: 200},
		{Lat: -91},
		{Zoom: -1},
		{Zoom: 30},
		{Width: 100000},
	}
	for _, req := range cases {
		if _, err := svc.Viewport(req); !errors.Is(err, ErrInvalidViewport) {
			t.Errorf("expected ErrInvalidViewport for %+v, got %v", req, err)
		}
	}
}

func TestViewportCacheInvalidatedOnMutation(t *testing.T) {
	svc := newTestService(t, true)
	if _, err := svc.Load([]byte(threePoints)); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	req := ViewportRequest{Lng: 5, Lat: 5, Zoom: 5}
	first, err := svc.Viewport(req)
	if err != nil {
		t.Fatalf("viewport failed: %v", err)
	}
	second, err := svc.Viewport(req)
	if err != nil {
		t.Fatalf("viewport failed: %v", err)
	}
	if string(first) != string(second) {
		t.Fatal("expected the cached response")
	}

	if err := svc.RemoveFeature("a"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	third, err := svc.Viewport(req)
	if err != nil {
		t.Fatalf("viewport failed: %v", err)
	}
	clusters, singles := split(decode(t, third))
	if len(clusters) != 0 || len(singles) != 2 {
		t.Fatalf("expected stale response to be dropped, got %d clusters %d singles", len(clusters), len(singles))
	}
}

func TestRemoveAndBounds(t *testing.T) {
	svc := newTestService(t, false)
	if _, err := svc.Load([]byte(threePoints)); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	b, err := svc.Bounds()
	if err != nil {
		t.Fatalf("bounds failed: %v", err)
	}
	if b.West() != 0 || b.South() != 0 || b.East() != 10 || b.North() != 10 {
		t.Fatalf("unexpected bounds %+v", b)
	}

	if err := svc.RemoveFeature("missing"); !errors.Is(err, ErrFeatureNotFound) {
		t.Fatalf("expected ErrFeatureNotFound, got %v", err)
	}
}

func TestClusterBounds(t *testing.T) {
	svc := newTestService(t, false)
	if _, err := svc.Load([]byte(threePoints)); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	data, err := svc.Viewport(ViewportRequest{Lng: 5, Lat: 5, Zoom: 5})
	if err != nil {
		t.Fatalf("viewport failed: %v", err)
	}
	clusters, _ := split(decode(t, data))
	if len(clusters) != 1 {
		t.Fatalf("expected a cluster, got %d", len(clusters))
	}

	b, err := svc.ClusterBounds(clusterID(t, clusters[0]))
	if err != nil {
		t.Fatalf("cluster bounds failed: %v", err)
	}
	if b.South() != 0 || b.North() != 0.0001 {
		t.Fatalf("unexpected cluster bounds %+v", b)
	}

	if _, err := svc.ClusterBounds(-1); !errors.Is(err, ErrClusterNotFound) {
		t.Fatalf("expected ErrClusterNotFound, got %v", err)
	}
}

func TestClosedSession(t *testing.T) {
	svc := newTestService(t, false)
	svc.Close()
	if _, err := svc.Viewport(ViewportRequest{}); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
	if _, err := svc.Load([]byte(threePoints)); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
}

func clusterID(t *testing.T, f *geojson.Feature) int64 {
	t.Helper()
	var id int64
	raw, _ := json.Marshal(f.Properties["cluster_id"])
	if err := json.Unmarshal(raw, &id); err != nil {
		t.Fatalf("bad cluster id: %v", err)
	}
	return id
}

func TestClusterBoundsAfterCachedViewport(t *testing.T) {
	svc := newTestService(t, true)
	if _, err := svc.Load([]byte(threePoints)); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	a := ViewportRequest{Lng: 5, Lat: 5, Zoom: 5}
	first, err := svc.Viewport(a)
	if err != nil {
		t.Fatalf("viewport failed: %v", err)
	}
	if _, err := svc.Viewport(ViewportRequest{Lng: 0, Lat: 0, Zoom: 6}); err != nil {
		t.Fatalf("viewport failed: %v", err)
	}
	again, err := svc.Viewport(a)
	if err != nil {
		t.Fatalf("viewport failed: %v", err)
	}
	if string(first) != string(again) {
		t.Fatal("expected the cached response")
	}

	clusters, _ := split(decode(t, again))
	if len(clusters) != 1 {
		t.Fatalf("expected a cluster, got %d", len(clusters))
	}
	b, err := svc.ClusterBounds(clusterID(t, clusters[0]))
	if err != nil {
		t.Fatalf("cluster bounds of a cached response failed: %v", err)
	}
	if b.South() != 0 || b.North() != 0.0001 {
		t.Fatalf("unexpected cluster bounds %+v", b)
	}
}
