// Package ember is an embedded, single-node, log-structured key/value
// store. Writes go through a write-ahead log into an ordered in-memory
// buffer, flushes materialize that buffer as immutable sorted tables with
// a sparse index and a membership filter, and compaction merges the table
// set back down to one file while reclaiming deleted keys.
//
// Example usage:
//
//	db, err := ember.Open("/path/to/data", nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Put([]byte("key"), []byte("value")); err != nil {
//		log.Printf("Put failed: %v", err)
//	}
//
//	value, found := db.Get([]byte("key"))
//	if found {
//		fmt.Printf("Value: %s\n", value)
//	}
//
//	if err := db.Delete([]byte("key")); err != nil {
//		log.Printf("Delete failed: %v", err)
//	}
package ember

import (
	"sync"

	"github.com/emberdb/ember/internal/engine"
)

// Options is an alias for engine.Options, re-exported for embedder
// convenience.
type Options = engine.Options

// DefaultOptions returns the options every store starts from: sparse index
// stride 3, filter false-positive rate 0.01, minimum filter budget 10, and
// no compression.
var DefaultOptions = engine.DefaultOptions

// DB is a handle to a store rooted at one directory. The engine itself is
// single-threaded; the mutex here only serializes method calls so that
// calls from multiple goroutines run one at a time instead of corrupting
// internal state. It does not make ember a concurrent database.
type DB struct {
	mu     sync.Mutex
	engine *engine.Engine
}

// Open opens (creating if necessary) a store rooted at dir. A nil opts
// means DefaultOptions().
func Open(dir string, opts *Options) (*DB, error) {
	e, err := engine.New(dir, opts)
	if err != nil {
		return nil, err
	}
	return &DB{engine: e}, nil
}

// Put writes value for key, overwriting any existing value. The record is
// durable in the write-ahead log before Put returns.
func (db *DB) Put(key, value []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.engine.Put(key, value)
}

// Get returns the newest live value for key. The bool is false when the
// key is absent or deleted; an empty stored value returns an empty slice
// and true.
func (db *DB) Get(key []byte) ([]byte, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.engine.Get(key)
}

// Delete removes key. The deletion survives flushes and restarts, and the
// key's storage is reclaimed at the next compaction.
func (db *DB) Delete(key []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.engine.Delete(key)
}

// Flush materializes the in-memory buffer as a new on-disk table and
// truncates the write-ahead log.
func (db *DB) Flush() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.engine.Flush()
}

// Compact merges all on-disk tables into one, dropping superseded values
// and deleted keys.
func (db *DB) Compact() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.engine.Compact()
}

// Close releases the store's resources. Unflushed writes remain
// recoverable through the write-ahead log.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.engine.Close()
}
