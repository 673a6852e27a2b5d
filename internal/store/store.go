// Package store keeps every feature added to the clusterer in a sequence
// ordered by the longitude of each feature's cached center.
package store

import (
	"sort"

	"github.com/atlasmap-sc/clusterer/internal/feature"
)

const (
	// fullSortMaxDirty is the absolute number of unsorted insertions above
	// which a full sort replaces the insertion sort.
	fullSortMaxDirty = 300

	// fullSortMaxRatio is the same threshold relative to the store size.
	fullSortMaxRatio = 0.2
)

// SortKind identifies the strategy used to restore the order.
type SortKind int

const (
	SortNone SortKind = iota
	SortInsertion
	SortFull
)

func (k SortKind) String() string {
	switch k {
	case SortInsertion:
		return "insertion"
	case SortFull:
		return "full"
	default:
		return "none"
	}
}

// Store is the longitude-ordered feature collection. It is not safe for
// concurrent use.
type Store struct {
	cache    *feature.Cache
	features []*feature.Feature
	ids      map[feature.ID]*feature.Feature
	dirty    int
	lastSort SortKind
}

// New creates an empty store backed by cache for center lookups.
func New(cache *feature.Cache) *Store {
	return &Store{
		cache: cache,
		ids:   make(map[feature.ID]*feature.Feature),
	}
}

// Add appends f. It returns false when a feature with the same identity is
// already stored.
func (s *Store) Add(f *feature.Feature) bool {
	if _, ok := s.ids[f.ID]; ok {
		return false
	}
	s.ids[f.ID] = f
	s.features = append(s.features, f)
	s.dirty++
	return true
}

// Remove deletes the feature with the given id and purges its cached
// center and bounds. Removal keeps the remaining order intact.
func (s *Store) Remove(id feature.ID) (*feature.Feature, bool) {
	f, ok := s.ids[id]
	if !ok {
		return nil, false
	}
	delete(s.ids, id)
	for i, cur := range s.features {
		if cur == f {
			s.features = append(s.features[:i], s.features[i+1:]...)
			break
		}
	}
	s.cache.Purge(id)
	return f, true
}

// Get returns the stored feature with the given id.
func (s *Store) Get(id feature.ID) (*feature.Feature, bool) {
	f, ok := s.ids[id]
	return f, ok
}

// Len returns the number of stored features.
func (s *Store) Len() int { return len(s.features) }

// Dirty returns the number of insertions since the last sort.
func (s *Store) Dirty() int { return s.dirty }

// LastSort reports the strategy used by the most recent sort.
func (s *Store) LastSort() SortKind { return s.lastSort }

// Sorted returns the features ordered by center longitude, ascending.
// The slice is owned by the store and valid until the next mutation.
func (s *Store) Sorted() []*feature.Feature {
	if s.dirty == 0 {
		return s.features
	}
	switch chooseSort(len(s.features), s.dirty) {
	case SortFull:
		s.fullSort()
		s.lastSort = SortFull
	default:
		s.insertionSort()
		s.lastSort = SortInsertion
	}
	s.dirty = 0
	return s.features
}

// LowerBound returns the index of the first feature in the sorted view
// whose center longitude is not less than lng.
func (s *Store) LowerBound(lng float64) int {
	features := s.Sorted()
	first, count := 0, len(features)
	for count > 0 {
		step := count / 2
		it := first + step
		if s.lng(features[it]) < lng {
			first = it + 1
			count -= step + 1
		} else {
			count = step
		}
	}
	return first
}

// Reset drops every feature and purges their cache entries.
func (s *Store) Reset() {
	for id := range s.ids {
		s.cache.Purge(id)
	}
	s.features = nil
	s.ids = make(map[feature.ID]*feature.Feature)
	s.dirty = 0
}

func chooseSort(n, dirty int) SortKind {
	if dirty == 0 {
		return SortNone
	}
	if dirty > fullSortMaxDirty || float64(dirty) > fullSortMaxRatio*float64(n) {
		return SortFull
	}
	return SortInsertion
}

func (s *Store) lng(f *feature.Feature) float64 {
	return s.cache.Center(f).Lon()
}

func (s *Store) fullSort() {
	sort.SliceStable(s.features, func(i, j int) bool {
		return s.lng(s.features[i]) < s.lng(s.features[j])
	})
}

func (s *Store) insertionSort() {
	fs := s.features
	for i := 1; i < len(fs); i++ {
		cur := fs[i]
		key := s.lng(cur)
		j := i - 1
		for j >= 0 && s.lng(fs[j]) > key {
			fs[j+1] = fs[j]
			j--
		}
		fs[j+1] = cur
	}
}
