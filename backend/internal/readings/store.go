package readings

import "slices"

// DefaultCapacity is the number of readings kept for display.
const DefaultCapacity = 100

// Store is a bounded list of readings, most recent first.
// It is not safe for concurrent use.
type Store struct {
	items    []Reading
	capacity int
}

// NewStore creates a store. A non-positive capacity selects DefaultCapacity.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	return &Store{items: make([]Reading, 0, capacity), capacity: capacity}
}

// Insert prepends r, evicting the oldest reading when full.
func (s *Store) Insert(r Reading) {
	if len(s.items) < s.capacity {
		s.items = append(s.items, Reading{})
	}

	copy(s.items[1:], s.items)
	s.items[0] = r
}

// Snapshot returns a copy of the readings, most recent first.
func (s *Store) Snapshot() []Reading {
	return slices.Clone(s.items)
}

// Latest returns the most recent reading.
func (s *Store) Latest() (Reading, bool) {
	if len(s.items) == 0 {
		return Reading{}, false
	}

	return s.items[0], true
}

// Len returns the number of stored readings.
func (s *Store) Len() int {
	return len(s.items)
}

// Capacity returns the maximum number of readings kept.
func (s *Store) Capacity() int {
	return s.capacity
}

// Clear drops every reading.
func (s *Store) Clear() {
	clear(s.items)
	s.items = s.items[:0]
}
