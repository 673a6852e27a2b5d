// Package cluster implements a single group of features: its evolving
// centroid, its grid bounds, its members and the merged/individual
// rendering decision for each member.
package cluster

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/paulmach/orb"

	"github.com/atlasmap-sc/clusterer/internal/feature"
	"github.com/atlasmap-sc/clusterer/pkg/geo"
)

// counter hands out cluster ids. Ids are never reused within a process.
var counter atomic.Int64

// Host is the clusterer a cluster belongs to. It supplies the options,
// the geometry helpers and the render layer.
type Host interface {
	Cache() *feature.Cache
	Zoom() float64
	MaxZoom() int
	MinClusterSize() int
	AverageCenter() bool
	GridSize() float64
	ClassName() string
	NumStyles() int
	Calculate(features []*feature.Feature, numStyles int) Sums

	// ExtendedBounds grows b by the grid size in pixel space.
	ExtendedBounds(b geo.Bounds) geo.Bounds
	// FeatureSize is the on-screen pixel size of the feature bounds.
	FeatureSize(f *feature.Feature) (width, height float64)
	// ShowIndividually renders f (or its substitute) on the render layer,
	// unless f is flagged hidden, in which case it is taken off the layer.
	ShowIndividually(f *feature.Feature)
	// HideIndividual takes f and its substitute off the render layer.
	HideIndividual(f *feature.Feature)
	NewIcon(clusterID int64) Icon
}

// Cluster groups features around a centroid.
type Cluster struct {
	id       int64
	host     Host
	center   orb.Point
	bounds   geo.Bounds
	features []*feature.Feature
	members  map[feature.ID]struct{}
	icon     Icon
	removed  bool
}

// New creates an empty cluster centered on center.
func New(host Host, center orb.Point) *Cluster {
	c := &Cluster{
		id:      counter.Add(1),
		host:    host,
		center:  center,
		members: make(map[feature.ID]struct{}),
	}
	c.calculateBounds()
	c.icon = host.NewIcon(c.id)
	return c
}

// ID returns the process-wide unique cluster id.
func (c *Cluster) ID() int64 { return c.id }

// ClassID is the value tagged on member features.
func (c *Cluster) ClassID() string {
	return fmt.Sprintf("%s-%d", c.host.ClassName(), c.id)
}

// Size returns the number of members.
func (c *Cluster) Size() int { return len(c.features) }

// Center returns the current centroid.
func (c *Cluster) Center() orb.Point { return c.center }

// Bounds returns the grid bounds derived from the centroid.
func (c *Cluster) Bounds() geo.Bounds { return c.bounds }

// Features returns the members in insertion order.
func (c *Cluster) Features() []*feature.Feature { return c.features }

// Merged reports whether the members are represented by the icon.
func (c *Cluster) Merged() bool {
	return len(c.features) >= c.host.MinClusterSize()
}

// Has reports whether id is a member.
func (c *Cluster) Has(id feature.ID) bool {
	_, ok := c.members[id]
	return ok
}

// Removed reports whether Remove has been called.
func (c *Cluster) Removed() bool { return c.removed }

// Icon returns the cluster icon, nil once removed.
func (c *Cluster) Icon() Icon { return c.icon }

// MemberBounds returns the union of the centroid and every member's
// bounds. Zooming to it shows all members.
func (c *Cluster) MemberBounds() geo.Bounds {
	var b geo.Bounds
	if c.removed {
		return b
	}
	b = b.Extend(c.center)
	for _, f := range c.features {
		b = b.Union(c.host.Cache().Bounds(f))
	}
	return b
}

// ContainsFeature reports whether the cached center of f falls inside the
// cluster bounds.
func (c *Cluster) ContainsFeature(f *feature.Feature) bool {
	return c.bounds.Contains(c.host.Cache().Center(f))
}

// AddFeature offers f to the cluster. It returns false when f is already a
// member. Shapes too large on screen are rendered individually instead of
// joining; the call still reports true.
func (c *Cluster) AddFeature(f *feature.Feature) bool {
	if c.removed || c.Has(f.ID) {
		return false
	}

	if f.IsPoint() || !c.excludeBySize(f) {
		f.SetProperty(feature.PropClusterID, c.ClassID())
		c.features = append(c.features, f)
		c.members[f.ID] = struct{}{}
		c.updateCenter(f)

		minSize := c.host.MinClusterSize()
		switch n := len(c.features); {
		case n < minSize:
			c.host.ShowIndividually(f)
		case n == minSize:
			for _, m := range c.features {
				c.host.HideIndividual(m)
			}
		default:
			c.host.HideIndividual(f)
		}
	} else {
		c.host.ShowIndividually(f)
	}

	c.UpdateIcon()
	return true
}

// RemoveFeature drops id from the members, recomputes the centroid and
// re-applies the rendering rule to the remaining members.
func (c *Cluster) RemoveFeature(id feature.ID) bool {
	if c.removed || !c.Has(id) {
		return false
	}
	delete(c.members, id)
	for i, f := range c.features {
		if f.ID == id {
			if f.Property(feature.PropClusterID) == c.ClassID() {
				delete(f.Properties, feature.PropClusterID)
			}
			c.features = append(c.features[:i], c.features[i+1:]...)
			break
		}
	}

	if len(c.features) > 0 && c.host.AverageCenter() {
		var lng, lat float64
		for _, f := range c.features {
			p := c.host.Cache().Center(f)
			lng += p.Lon()
			lat += p.Lat()
		}
		n := float64(len(c.features))
		c.center = orb.Point{lng / n, lat / n}
		c.calculateBounds()
	}

	if len(c.features) < c.host.MinClusterSize() {
		for _, f := range c.features {
			c.host.ShowIndividually(f)
		}
	}
	c.UpdateIcon()
	return true
}

// UpdateIcon refreshes the icon from the current members. Above the max
// zoom every member is rendered individually and the icon is hidden.
func (c *Cluster) UpdateIcon() {
	if c.removed || c.icon == nil {
		return
	}
	if maxZoom := c.host.MaxZoom(); maxZoom > 0 && c.host.Zoom() > float64(maxZoom) {
		for _, f := range c.features {
			c.host.ShowIndividually(f)
		}
		c.icon.Hide()
		return
	}
	if len(c.features) < c.host.MinClusterSize() {
		c.icon.Hide()
		return
	}

	numStyles := c.host.NumStyles()
	c.icon.SetSums(c.host.Calculate(c.features, numStyles))
	c.icon.SetCenter(c.center)
	c.icon.Show()
}

// Remove detaches the icon and releases the members.
func (c *Cluster) Remove() {
	if c.removed {
		return
	}
	c.removed = true
	if c.icon != nil {
		c.icon.Remove()
		c.icon = nil
	}
	c.features = nil
	c.members = nil
	c.center = orb.Point{}
	c.bounds = geo.Bounds{}
}

func (c *Cluster) updateCenter(f *feature.Feature) {
	if !c.host.AverageCenter() {
		return
	}
	p := c.host.Cache().Center(f)
	n := float64(len(c.features))
	c.center = orb.Point{
		(c.center.Lon()*(n-1) + p.Lon()) / n,
		(c.center.Lat()*(n-1) + p.Lat()) / n,
	}
	c.calculateBounds()
}

func (c *Cluster) calculateBounds() {
	var b geo.Bounds
	c.bounds = c.host.ExtendedBounds(b.Extend(c.center))
}

func (c *Cluster) excludeBySize(f *feature.Feature) bool {
	w, h := c.host.FeatureSize(f)
	grid := c.host.GridSize()
	return math.Abs(w) >= grid || math.Abs(h) >= grid
}
