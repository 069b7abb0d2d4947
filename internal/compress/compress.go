// Package compress selects the block codec applied to an SSTable's data
// section. The index and filter blocks and the write-ahead log are never
// compressed; WAL records must stay individually recoverable without
// buffering a whole compressed block.
package compress

import (
	"fmt"

	"github.com/golang/snappy"
)

// Type identifies a block compression algorithm. The zero value means no
// compression and is the default, preserving the uncompressed file format.
type Type byte

const (
	// None stores the data block uncompressed.
	None Type = iota

	// Snappy compresses the data block as a single Snappy-encoded blob.
	Snappy
)

// String returns the string representation of the compression type.
func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case Snappy:
		return "snappy"
	default:
		return "unknown"
	}
}

// Valid reports whether t names a known compression type.
func (t Type) Valid() bool {
	return t == None || t == Snappy
}

// Compress encodes block with t. With None the input is returned as-is.
func Compress(t Type, block []byte) ([]byte, error) {
	switch t {
	case None:
		return block, nil
	case Snappy:
		return snappy.Encode(nil, block), nil
	default:
		return nil, fmt.Errorf("compress: unknown compression type %d", t)
	}
}

// Decompress decodes a block previously produced by Compress with t.
func Decompress(t Type, block []byte) ([]byte, error) {
	switch t {
	case None:
		return block, nil
	case Snappy:
		out, err := snappy.Decode(nil, block)
		if err != nil {
			return nil, fmt.Errorf("compress: snappy decode: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("compress: unknown compression type %d", t)
	}
}
