// Package dedup tracks which (device, nonce) pairs were already stored.
package dedup

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Key identifies one transmission of one device.
type Key struct {
	DeviceID string
	Nonce    uint16
}

func (k Key) String() string {
	return fmt.Sprintf("%s-%d", k.DeviceID, k.Nonce)
}

type keySet interface {
	add(k Key) bool
	reset()
	len() int
}

// Tracker remembers observed keys. It is not safe for concurrent use.
type Tracker struct {
	set      keySet
	capacity int
}

// New creates a tracker. A capacity of zero or less keeps every key until Reset,
// a positive capacity keeps only the most recently observed keys.
func New(capacity int) (*Tracker, error) {
	if capacity <= 0 {
		return &Tracker{set: mapSet{}}, nil
	}

	cache, err := lru.New[Key, struct{}](capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create dedup cache: %w", err)
	}

	return &Tracker{set: &lruSet{cache: cache}, capacity: capacity}, nil
}

// Observe reports whether k is new. A new key is remembered.
func (t *Tracker) Observe(k Key) bool {
	return t.set.add(k)
}

// Reset forgets all keys.
func (t *Tracker) Reset() {
	t.set.reset()
}

// Len returns the number of remembered keys.
func (t *Tracker) Len() int {
	return t.set.len()
}

// Capacity returns the configured bound, 0 when unbounded.
func (t *Tracker) Capacity() int {
	return t.capacity
}

type mapSet map[Key]struct{}

func (m mapSet) add(k Key) bool {
	if _, ok := m[k]; ok {
		return false
	}

	m[k] = struct{}{}

	return true
}

func (m mapSet) reset()   { clear(m) }
func (m mapSet) len() int { return len(m) }

type lruSet struct {
	cache *lru.Cache[Key, struct{}]
}

// add refreshes recency of known keys so a device repeating a frame keeps it in the set.
func (s *lruSet) add(k Key) bool {
	if _, ok := s.cache.Get(k); ok {
		return false
	}

	s.cache.Add(k, struct{}{})

	return true
}

func (s *lruSet) reset()   { s.cache.Purge() }
func (s *lruSet) len() int { return s.cache.Len() }
