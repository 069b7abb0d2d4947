// Package memtable implements the ordered in-memory buffer that absorbs
// writes until the next flush. The backing structure is a randomized skip
// list (max level 6, geometric level distribution), matching the structure
// the original implementation of this engine used.
package memtable

import (
	"math/rand"
	"time"
)

// Entry is a single (key, value) pair as seen by a memtable iterator, with
// deletion tracked explicitly rather than inferred from the value bytes.
// The on-disk tombstone sentinel only exists at the serialization boundary
// (see the sstable package); it never appears in a memtable entry.
type Entry struct {
	Key       []byte
	Value     []byte
	Tombstone bool
}

// MemTable is the ordered, keyed in-memory buffer described by the write
// path: inserts and overwrites take effect immediately, lookups are
// logarithmic, and iteration yields entries in ascending key order for
// flush.
type MemTable struct {
	list *skipList
}

// New creates an empty MemTable. rngSeed seeds the level generator for this
// instance; callers that don't care about determinism can pass
// time.Now().UnixNano().
func New(rngSeed int64) *MemTable {
	return &MemTable{list: newSkipList(rand.New(rand.NewSource(rngSeed)))}
}

// NewWithNow is a convenience constructor that seeds the level generator
// from the current time.
func NewWithNow() *MemTable {
	return New(time.Now().UnixNano())
}

// Insert writes value for key, overwriting any existing entry.
func (m *MemTable) Insert(key, value []byte) {
	m.list.put(key, value, false)
}

// Delete marks key as deleted. The tombstone is visible to Lookup and to
// iteration until the next compaction physically removes it.
func (m *MemTable) Delete(key []byte) {
	m.list.put(key, nil, true)
}

// Lookup returns the entry for key, if any. The returned bool is false only
// when the key has never been written to this memtable; a tombstoned key
// is returned with Tombstone set to true.
func (m *MemTable) Lookup(key []byte) (Entry, bool) {
	node, found := m.list.get(key)
	if !found {
		return Entry{}, false
	}
	return Entry{Key: node.key, Value: node.value, Tombstone: node.tombstone}, true
}

// Size returns the number of distinct keys currently held.
func (m *MemTable) Size() int {
	return m.list.size
}

// Ascending returns every entry in ascending key order, for flush.
func (m *MemTable) Ascending() []Entry {
	nodes := m.list.ascending()
	entries := make([]Entry, len(nodes))
	for i, n := range nodes {
		entries[i] = Entry{Key: n.key, Value: n.value, Tombstone: n.tombstone}
	}
	return entries
}

// Clear discards all entries, resetting the memtable to empty.
func (m *MemTable) Clear() {
	m.list = newSkipList(m.list.rng)
}
