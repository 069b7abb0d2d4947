// Package sstable implements the immutable on-disk table format: a framed
// data block in strictly ascending key order, a sparse index, a serialized
// membership filter, and a fixed footer locating the index and filter.
//
// File layout:
//
//	[0]                      compression tag (1 byte)
//	[1, index_start)         data block, possibly compressed as a whole
//	[index_start, filter_start)   sparse index entries (key_len, key, offset)
//	[filter_start, size-8)   serialized membership filter
//	[size-8, size)           footer (index_start, filter_start)
//
// Index offsets point into the uncompressed data block. With the default
// compression tag of 0 the data block bytes on disk are exactly the
// uncompressed block.
package sstable

import (
	"bytes"
	"errors"

	"github.com/emberdb/ember/internal/compress"
)

// Tombstone is the sentinel value that marks a deleted key in the
// write-ahead log and in a table's data block. It exists only at the
// serialization boundary; in-memory layers track deletion with an explicit
// flag.
var Tombstone = []byte("~~DELETED~")

// IsTombstone reports whether value is the tombstone sentinel.
func IsTombstone(value []byte) bool {
	return bytes.Equal(value, Tombstone)
}

// ErrDecode is returned when a table file or one of its framed records is
// malformed or truncated.
var ErrDecode = errors.New("sstable: malformed table")

// Entry is a single (key, value) record as seen above the serialization
// boundary. A tombstone entry carries Tombstone=true and no value bytes.
type Entry struct {
	Key       []byte
	Value     []byte
	Tombstone bool
}

// Config carries the format constants a writer bakes into a table file.
// Readers recover everything they need from the file itself.
type Config struct {
	// SparseStride is N: one index entry is recorded per N data entries,
	// starting at entry 0.
	SparseStride int

	// FilterFalsePositiveRate is the membership filter's target false
	// positive probability.
	FilterFalsePositiveRate float64

	// FilterMinElements is the minimum element budget the filter is sized
	// for, regardless of how few entries the table holds.
	FilterMinElements int

	// Compression selects the data block codec.
	Compression compress.Type
}

// DefaultConfig returns the format constants generated files default to.
func DefaultConfig() Config {
	return Config{
		SparseStride:            3,
		FilterFalsePositiveRate: 0.01,
		FilterMinElements:       10,
		Compression:             compress.None,
	}
}

// footerSize is the fixed byte length of the footer: two 32-bit offsets.
const footerSize = 8

type indexEntry struct {
	key    []byte
	offset uint32
}
