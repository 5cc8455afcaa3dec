// Package cache provides the recency-ordered counter tables that back the
// branch history predictor.
package cache

import "errors"

var (
	// ErrInvalidCapacity is returned when a table is built with no room for
	// a single entry.
	ErrInvalidCapacity = errors.New("cache: capacity must be > 0")

	// ErrInvalidGeometry is returned when a set-associative table is built
	// with zero sets or zero ways.
	ErrInvalidGeometry = errors.New("cache: sets and associativity must be > 0")
)

// nilSlot marks the absence of a neighbor or an end of the recency list.
const nilSlot = -1

// Entry is a single key/value slot owned by a table.
//
// A *Entry returned by a table is valid until the next call that mutates the
// table (Find, InsertOrUpdate, Reset, Destroy). Value may be modified in
// place through the pointer; the key may not.
type Entry struct {
	key   uint64
	Value uint64

	// Arena indices of the neighbors in recency order. Only Cache uses them.
	older int
	newer int
}

// Key returns the key the entry is stored under.
func (e *Entry) Key() uint64 {
	return e.key
}

// Table is the storage contract of the branch history predictor: a bounded
// key/value store with least-recently-used replacement.
type Table interface {
	// Find returns the entry for key and marks it most recently used, or
	// returns nil on a miss.
	Find(key uint64) *Entry
	// Peek returns the entry for key without touching recency order.
	Peek(key uint64) *Entry
	// InsertOrUpdate stores value under key as the most recently used entry,
	// evicting the least recently used entry if the table overflows.
	InsertOrUpdate(key, value uint64) *Entry
	// Range calls fn for every entry from least to most recently used until
	// fn returns false.
	Range(fn func(key, value uint64) bool)
	// Len returns the number of live entries.
	Len() int
	// Capacity returns the maximum number of live entries.
	Capacity() int
	// OnEvict registers fn to be called with every evicted entry.
	OnEvict(fn func(key, value uint64))
	// Stats returns access statistics.
	Stats() Statistics
	// ResetStats clears access statistics.
	ResetStats()
	// Reset drops every entry.
	Reset()
	// Destroy releases all storage. The table must not be used afterwards.
	Destroy()
}

// Statistics holds table access statistics.
type Statistics struct {
	Lookups   uint64
	Hits      uint64
	Misses    uint64
	Inserts   uint64
	Updates   uint64
	Evictions uint64
}

// HitRate returns the lookup hit rate as a percentage.
func (s Statistics) HitRate() float64 {
	if s.Lookups == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Lookups) * 100
}
