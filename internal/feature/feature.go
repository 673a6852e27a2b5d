// Package feature defines the clusterable map feature and the memoized
// geometry helpers (center, bounds) the clustering engine relies on.
package feature

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Reserved property names.
const (
	PropClusterID     = "clusterID"
	PropHidden        = "hidden"
	PropAlternative   = "alternative"
	PropAlternativeOf = "alternativeOf"
)

// ID is the stable identity of a feature. It keys every cache and
// membership table.
type ID string

// Feature is an identity-bearing geometry with a mutable property bag.
type Feature struct {
	ID         ID
	Geometry   orb.Geometry
	Properties geojson.Properties
}

// New creates a feature. An empty id is replaced by a random UUID.
func New(id ID, geom orb.Geometry) *Feature {
	if id == "" {
		id = ID(uuid.NewString())
	}
	return &Feature{
		ID:         id,
		Geometry:   geom,
		Properties: make(geojson.Properties),
	}
}

// FromGeoJSON converts a GeoJSON feature. String and numeric ids are kept;
// features without an id get a generated one.
func FromGeoJSON(gf *geojson.Feature) *Feature {
	var id ID
	if gf.ID != nil {
		id = ID(fmt.Sprint(gf.ID))
	}
	f := New(id, gf.Geometry)
	for k, v := range gf.Properties {
		f.Properties[k] = v
	}
	return f
}

// GeoJSON converts the feature back to GeoJSON, sharing the geometry.
func (f *Feature) GeoJSON() *geojson.Feature {
	gf := geojson.NewFeature(f.Geometry)
	gf.ID = string(f.ID)
	for k, v := range f.Properties {
		gf.Properties[k] = v
	}
	return gf
}

// IsPoint reports whether the geometry is a single point.
func (f *Feature) IsPoint() bool {
	_, ok := f.Geometry.(orb.Point)
	return ok
}

// Valid reports whether the feature has a geometry with at least one
// coordinate.
func (f *Feature) Valid() bool {
	if f == nil || f.Geometry == nil {
		return false
	}
	valid := false
	eachPoint(f.Geometry, func(orb.Point) { valid = true })
	return valid
}

// Hidden reports whether the caller flagged the feature as hidden.
func (f *Feature) Hidden() bool {
	v, ok := f.Properties[PropHidden].(bool)
	return ok && v
}

// SetHidden sets or clears the hidden flag.
func (f *Feature) SetHidden(hidden bool) {
	if f.Properties == nil {
		f.Properties = make(geojson.Properties)
	}
	if hidden {
		f.Properties[PropHidden] = true
		return
	}
	delete(f.Properties, PropHidden)
}

// SetProperty sets a property, allocating the bag when needed.
func (f *Feature) SetProperty(key string, value interface{}) {
	if f.Properties == nil {
		f.Properties = make(geojson.Properties)
	}
	f.Properties[key] = value
}

// Property returns a property value or nil.
func (f *Feature) Property(key string) interface{} {
	return f.Properties[key]
}

// eachPoint calls fn for every coordinate of g.
func eachPoint(g orb.Geometry, fn func(orb.Point)) {
	switch geom := g.(type) {
	case orb.Point:
		fn(geom)
	case orb.MultiPoint:
		for _, p := range geom {
			fn(p)
		}
	case orb.LineString:
		for _, p := range geom {
			fn(p)
		}
	case orb.Ring:
		for _, p := range geom {
			fn(p)
		}
	case orb.MultiLineString:
		for _, ls := range geom {
			eachPoint(ls, fn)
		}
	case orb.Polygon:
		for _, r := range geom {
			eachPoint(r, fn)
		}
	case orb.MultiPolygon:
		for _, p := range geom {
			eachPoint(p, fn)
		}
	case orb.Collection:
		for _, c := range geom {
			eachPoint(c, fn)
		}
	case orb.Bound:
		fn(geom.Min)
		fn(geom.Max)
	}
}
