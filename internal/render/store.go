package render

import (
	"maps"
	"sync"
)

// Change describes one region write.
type Change struct {
	Region   string
	Content  string
	Previous string
	Existed  bool
}

// RegionStore holds the current content of every region. Writes come from
// the channel dispatch goroutine; reads may come from anywhere.
type RegionStore struct {
	mu        sync.RWMutex
	regions   map[string]string
	observers []func(Change)
}

// NewRegionStore creates an empty store.
func NewRegionStore() *RegionStore {
	return &RegionStore{regions: make(map[string]string)}
}

// Set replaces the entire content of a region and notifies observers.
func (s *RegionStore) Set(region, content string) {
	s.mu.Lock()
	prev, existed := s.regions[region]
	s.regions[region] = content
	observers := s.observers
	s.mu.Unlock()

	change := Change{Region: region, Content: content, Previous: prev, Existed: existed}
	for _, fn := range observers {
		fn(change)
	}
}

// Get returns a region's content and whether it has ever been written.
func (s *RegionStore) Get(region string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	content, ok := s.regions[region]
	return content, ok
}

// Snapshot returns a copy of all regions.
func (s *RegionStore) Snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.regions)
}

// OnChange registers an observer called synchronously after every Set.
func (s *RegionStore) OnChange(fn func(Change)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers[:len(s.observers):len(s.observers)], fn)
}
