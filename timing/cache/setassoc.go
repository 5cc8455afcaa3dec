package cache

import (
	"fmt"

	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// SetAssocConfig holds set-associative table geometry.
type SetAssocConfig struct {
	// NumSets is the number of sets. Keys map to set key % NumSets.
	NumSets int
	// Associativity is the number of ways per set.
	Associativity int
}

// Capacity returns the total number of entries the geometry provides.
func (c SetAssocConfig) Capacity() int {
	return c.NumSets * c.Associativity
}

// SetAssociative is a pattern history table organized the way hardware
// builds one: a fixed number of sets, each holding Associativity ways with
// LRU replacement inside the set. Tag and replacement state are kept in an
// Akita cache directory.
//
// With a single set it behaves exactly like a Cache of the same capacity.
type SetAssociative struct {
	config SetAssocConfig

	// Akita cache directory for tag/state management
	directory *akitacache.DirectoryImpl

	// Entry storage - indexed by (setID * associativity + wayID)
	entries []Entry

	count     int
	onEvict   func(key, value uint64)
	stats     Statistics
	destroyed bool
}

var _ Table = (*SetAssociative)(nil)

// NewSetAssociative creates an empty set-associative table.
func NewSetAssociative(config SetAssocConfig) (*SetAssociative, error) {
	if config.NumSets <= 0 || config.Associativity <= 0 {
		return nil, fmt.Errorf("%w: %d sets x %d ways",
			ErrInvalidGeometry, config.NumSets, config.Associativity)
	}

	// A block size of one makes every key its own block address and tag.
	return &SetAssociative{
		config: config,
		directory: akitacache.NewDirectory(
			config.NumSets,
			config.Associativity,
			1,
			akitacache.NewLRUVictimFinder(),
		),
		entries: make([]Entry, config.Capacity()),
	}, nil
}

func (t *SetAssociative) mustBeLive() {
	if t.destroyed {
		panic("cache: use of destroyed SetAssociative")
	}
}

// Config returns the table geometry.
func (t *SetAssociative) Config() SetAssocConfig {
	return t.config
}

// Capacity returns the total number of ways across all sets.
func (t *SetAssociative) Capacity() int {
	return t.config.Capacity()
}

// Len returns the number of valid entries.
func (t *SetAssociative) Len() int {
	return t.count
}

// Stats returns table statistics.
func (t *SetAssociative) Stats() Statistics {
	return t.stats
}

// ResetStats clears table statistics.
func (t *SetAssociative) ResetStats() {
	t.stats = Statistics{}
}

// OnEvict registers fn to be called with every entry that loses its way to
// a new key.
func (t *SetAssociative) OnEvict(fn func(key, value uint64)) {
	t.onEvict = fn
}

// blockIndex computes the index into entries for a block.
func (t *SetAssociative) blockIndex(block *akitacache.Block) int {
	return block.SetID*t.config.Associativity + block.WayID
}

// Find looks up key and marks its way most recently used within the set.
func (t *SetAssociative) Find(key uint64) *Entry {
	t.mustBeLive()
	t.stats.Lookups++

	block := t.directory.Lookup(0, key)
	if block == nil || !block.IsValid {
		t.stats.Misses++
		return nil
	}

	t.stats.Hits++
	t.directory.Visit(block) // Update LRU

	return &t.entries[t.blockIndex(block)]
}

// Peek looks up key without touching replacement state.
func (t *SetAssociative) Peek(key uint64) *Entry {
	t.mustBeLive()

	block := t.directory.Lookup(0, key)
	if block == nil || !block.IsValid {
		return nil
	}

	return &t.entries[t.blockIndex(block)]
}

// InsertOrUpdate stores value under key. A missing key takes the set's
// victim way, evicting its previous occupant if that way was valid.
func (t *SetAssociative) InsertOrUpdate(key, value uint64) *Entry {
	t.mustBeLive()

	block := t.directory.Lookup(0, key)
	if block != nil && block.IsValid {
		t.stats.Updates++
		t.directory.Visit(block)

		e := &t.entries[t.blockIndex(block)]
		e.Value = value
		return e
	}

	t.stats.Inserts++

	victim := t.directory.FindVictim(key)
	e := &t.entries[t.blockIndex(victim)]

	if victim.IsValid {
		t.stats.Evictions++
		if t.onEvict != nil {
			t.onEvict(e.key, e.Value)
		}
	} else {
		t.count++
	}

	// Tag stores the key itself
	victim.Tag = key
	victim.IsValid = true
	victim.IsDirty = false
	*e = Entry{key: key, Value: value, older: nilSlot, newer: nilSlot}

	t.directory.Visit(victim)

	return e
}

// Range calls fn for each valid entry, set by set, least recently used
// first within each set.
func (t *SetAssociative) Range(fn func(key, value uint64) bool) {
	t.mustBeLive()

	for _, set := range t.directory.GetSets() {
		for _, block := range set.LRUQueue {
			if !block.IsValid {
				continue
			}

			e := &t.entries[t.blockIndex(block)]
			if !fn(e.key, e.Value) {
				return
			}
		}
	}
}

// Reset invalidates every way. Statistics are kept.
func (t *SetAssociative) Reset() {
	t.mustBeLive()

	t.directory.Reset()
	clear(t.entries)
	t.count = 0
}

// Destroy releases the directory and entry storage.
func (t *SetAssociative) Destroy() {
	t.directory = nil
	t.entries = nil
	t.count = 0
	t.onEvict = nil
	t.destroyed = true
}
