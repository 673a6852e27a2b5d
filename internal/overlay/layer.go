package overlay

import (
	"github.com/atlasmap-sc/clusterer/internal/feature"
)

// layerKey separates features from the alternatives drawn in their place,
// so an alternative never shadows a feature that happens to share its id.
type layerKey struct {
	id  feature.ID
	alt bool
}

// DataLayer holds the features rendered individually, in insertion order.
type DataLayer struct {
	order []layerKey
	items map[layerKey]*feature.Feature
}

// NewDataLayer creates an empty layer.
func NewDataLayer() *DataLayer {
	return &DataLayer{items: make(map[layerKey]*feature.Feature)}
}

// Add renders f. Adding a feature twice is a no-op.
func (l *DataLayer) Add(f *feature.Feature) {
	l.add(layerKey{id: f.ID}, f)
}

// Remove takes the feature with the given id off the layer.
func (l *DataLayer) Remove(id feature.ID) {
	l.remove(layerKey{id: id})
}

// Contains reports whether the feature with the given id is rendered.
func (l *DataLayer) Contains(id feature.ID) bool {
	_, ok := l.items[layerKey{id: id}]
	return ok
}

// AddAlternative renders alt in place of the feature with id of.
func (l *DataLayer) AddAlternative(of feature.ID, alt *feature.Feature) {
	l.add(layerKey{id: of, alt: true}, alt)
}

// RemoveAlternative takes the alternative of a feature off the layer.
func (l *DataLayer) RemoveAlternative(of feature.ID) {
	l.remove(layerKey{id: of, alt: true})
}

// ContainsAlternative reports whether an alternative of the feature with
// id of is rendered.
func (l *DataLayer) ContainsAlternative(of feature.ID) bool {
	_, ok := l.items[layerKey{id: of, alt: true}]
	return ok
}

func (l *DataLayer) add(k layerKey, f *feature.Feature) {
	if _, ok := l.items[k]; ok {
		return
	}
	l.items[k] = f
	l.order = append(l.order, k)
}

func (l *DataLayer) remove(k layerKey) {
	if _, ok := l.items[k]; !ok {
		return
	}
	delete(l.items, k)
	for i, cur := range l.order {
		if cur == k {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of rendered features, alternatives included.
func (l *DataLayer) Len() int { return len(l.order) }

// Features returns the rendered features in insertion order.
func (l *DataLayer) Features() []*feature.Feature {
	out := make([]*feature.Feature, 0, len(l.order))
	for _, k := range l.order {
		out = append(out, l.items[k])
	}
	return out
}

// Clear removes every feature.
func (l *DataLayer) Clear() {
	l.order = nil
	l.items = make(map[layerKey]*feature.Feature)
}
