package feature

import (
	"github.com/paulmach/orb"

	"github.com/atlasmap-sc/clusterer/pkg/geo"
)

// Cache memoizes the representative center and the bounds of each feature,
// keyed by feature identity. Entries live until Purge is called, so callers
// must purge on removal.
//
// Cache is not safe for concurrent use.
type Cache struct {
	centers map[ID]orb.Point
	bounds  map[ID]geo.Bounds
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		centers: make(map[ID]orb.Point),
		bounds:  make(map[ID]geo.Bounds),
	}
}

// Center returns the cached center of f. Points are their own center;
// any other geometry uses the center of its bounds rectangle, not the true
// geometric centroid.
func (c *Cache) Center(f *Feature) orb.Point {
	if p, ok := c.centers[f.ID]; ok {
		return p
	}
	var p orb.Point
	if pt, ok := f.Geometry.(orb.Point); ok {
		p = pt
	} else {
		p = c.Bounds(f).Center()
	}
	c.centers[f.ID] = p
	return p
}

// Bounds returns the cached bounds enclosing every coordinate of f.
func (c *Cache) Bounds(f *Feature) geo.Bounds {
	if b, ok := c.bounds[f.ID]; ok {
		return b
	}
	var b geo.Bounds
	if f.Geometry != nil {
		eachPoint(f.Geometry, func(p orb.Point) {
			b = b.Extend(p)
		})
	}
	c.bounds[f.ID] = b
	return b
}

// InBounds reports whether f lies inside b. Points test their raw
// coordinate, other geometries their cached center. Empty bounds contain
// nothing.
func (c *Cache) InBounds(f *Feature, b geo.Bounds) bool {
	if b.IsEmpty() {
		return false
	}
	if pt, ok := f.Geometry.(orb.Point); ok {
		return b.Contains(pt)
	}
	return b.Contains(c.Center(f))
}

// Purge drops both cache entries for id.
func (c *Cache) Purge(id ID) {
	delete(c.centers, id)
	delete(c.bounds, id)
}

// Reset drops every entry.
func (c *Cache) Reset() {
	c.centers = make(map[ID]orb.Point)
	c.bounds = make(map[ID]geo.Bounds)
}

// Len returns the number of cached centers and bounds.
func (c *Cache) Len() (centers, bounds int) {
	return len(c.centers), len(c.bounds)
}
