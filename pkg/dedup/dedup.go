// Package dedup provides the in-memory membership sets used by the history
// backfiller and the merge tool: a mutex-guarded map plus a Stats counter
// block, deliberately without LRU/TTL eviction — backfill and merge each run
// once over a closed, bounded file, so evicting an entry mid-run would
// silently reintroduce a duplicate. An unbounded set for the duration of one
// run is the correct shape here, not a missing feature.
package dedup

import "sync"

// Stats reports basic hit/miss counters for a set's lifetime.
type Stats struct {
	TotalChecks int64
	Hits        int64
	Misses      int64
}

// Uint64Set is a membership set over 64-bit fingerprints/keys.
type Uint64Set struct {
	mu    sync.Mutex
	keys  map[uint64]struct{}
	stats Stats
}

// NewUint64Set creates an empty set, optionally sized for the expected scan.
func NewUint64Set(sizeHint int) *Uint64Set {
	return &Uint64Set{keys: make(map[uint64]struct{}, sizeHint)}
}

// CheckAndAdd reports whether key was already present; if not, it is added.
func (s *Uint64Set) CheckAndAdd(key uint64) (alreadySeen bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.TotalChecks++
	if _, ok := s.keys[key]; ok {
		s.stats.Hits++
		return true
	}
	s.stats.Misses++
	s.keys[key] = struct{}{}
	return false
}

// Add inserts key unconditionally (used while preloading from an existing log).
func (s *Uint64Set) Add(key uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[key] = struct{}{}
}

// Len returns the current set size.
func (s *Uint64Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys)
}

// Stats returns a snapshot of the check/hit/miss counters.
func (s *Uint64Set) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// StringSet is a membership set over string keys (event_id UUIDs).
type StringSet struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

// NewStringSet creates an empty set, optionally sized for the expected scan.
func NewStringSet(sizeHint int) *StringSet {
	return &StringSet{keys: make(map[string]struct{}, sizeHint)}
}

// CheckAndAdd reports whether key was already present; if not, it is added.
func (s *StringSet) CheckAndAdd(key string) (alreadySeen bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[key]; ok {
		return true
	}
	s.keys[key] = struct{}{}
	return false
}

// Add inserts key unconditionally.
func (s *StringSet) Add(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[key] = struct{}{}
}

// Len returns the current set size.
func (s *StringSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys)
}
