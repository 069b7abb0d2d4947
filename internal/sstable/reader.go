package sstable

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"github.com/emberdb/ember/internal/bloom"
	"github.com/emberdb/ember/internal/codec"
	"github.com/emberdb/ember/internal/compress"
)

// Table is an open table's in-memory metadata: the sparse index and the
// membership filter. The data block stays on disk and is read per lookup.
type Table struct {
	// Path is the table file's location on disk.
	Path string

	// Filter is the table's membership filter; callers may consult it to
	// skip a table without touching its data block.
	Filter *bloom.Filter

	compression compress.Type
	index       []indexEntry
	dataLen     uint32 // on-disk data block length, excluding the tag byte
}

// Open reads a table's footer, index, and filter into memory. The data
// block is left on disk. The file handle is released before Open returns.
func Open(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sstable.Open: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("sstable.Open: %w", err)
	}
	size := info.Size()
	if size < 1+footerSize {
		return nil, fmt.Errorf("%w: file %q too short (%d bytes)", ErrDecode, path, size)
	}

	var footer [footerSize]byte
	if _, err := f.ReadAt(footer[:], size-footerSize); err != nil {
		return nil, fmt.Errorf("sstable.Open: read footer: %w", err)
	}
	indexStart, _, err := codec.ParseUint32(footer[:], 0)
	if err != nil {
		return nil, fmt.Errorf("%w: footer", ErrDecode)
	}
	filterStart, _, err := codec.ParseUint32(footer[:], codec.Uint32Size)
	if err != nil {
		return nil, fmt.Errorf("%w: footer", ErrDecode)
	}
	if indexStart < 1 || int64(indexStart) > int64(filterStart) || int64(filterStart) > size-footerSize {
		return nil, fmt.Errorf("%w: footer offsets out of range in %q", ErrDecode, path)
	}

	tail := make([]byte, size-footerSize-int64(indexStart))
	if _, err := f.ReadAt(tail, int64(indexStart)); err != nil {
		return nil, fmt.Errorf("sstable.Open: read index+filter: %w", err)
	}

	indexLen := int(filterStart - indexStart)
	var index []indexEntry
	off := 0
	for off < indexLen {
		key, next, err := codec.ParseBytes(tail, off)
		if err != nil {
			return nil, fmt.Errorf("%w: index entry in %q", ErrDecode, path)
		}
		offset, next, err := codec.ParseUint32(tail, next)
		if err != nil {
			return nil, fmt.Errorf("%w: index entry in %q", ErrDecode, path)
		}
		index = append(index, indexEntry{key: key, offset: offset})
		off = next
	}

	filter, _, err := bloom.Unmarshal(tail, indexLen)
	if err != nil {
		return nil, fmt.Errorf("%w: filter block in %q", ErrDecode, path)
	}

	var tag [1]byte
	if _, err := f.ReadAt(tag[:], 0); err != nil {
		return nil, fmt.Errorf("sstable.Open: read tag: %w", err)
	}
	comp := compress.Type(tag[0])
	if !comp.Valid() {
		return nil, fmt.Errorf("%w: unknown compression tag %d in %q", ErrDecode, tag[0], path)
	}

	return &Table{
		Path:        path,
		Filter:      filter,
		compression: comp,
		index:       index,
		dataLen:     indexStart - 1,
	}, nil
}

// Lookup resolves key against the table. The bool is false when the key is
// not present in this table; a tombstone entry is returned with its flag
// set so the caller can distinguish "deleted here" from "not here". Decode
// errors inside the data block yield not-present, matching the read path's
// fall-through policy.
func (t *Table) Lookup(key []byte) (Entry, bool) {
	if !t.Filter.PossiblyContains(key) {
		return Entry{}, false
	}

	// Greatest index entry whose key <= target: sort.Search finds the first
	// entry strictly greater, then we step back one.
	pos := sort.Search(len(t.index), func(i int) bool {
		return bytes.Compare(t.index[i].key, key) > 0
	})
	if pos == 0 {
		return Entry{}, false
	}
	start := t.index[pos-1].offset

	data, err := t.readDataFrom(start)
	if err != nil {
		return Entry{}, false
	}

	off := 0
	for off < len(data) {
		k, next, err := codec.ParseBytes(data, off)
		if err != nil {
			return Entry{}, false
		}
		v, next, err := codec.ParseBytes(data, next)
		if err != nil {
			return Entry{}, false
		}
		switch cmp := bytes.Compare(k, key); {
		case cmp == 0:
			if IsTombstone(v) {
				return Entry{Key: k, Tombstone: true}, true
			}
			return Entry{Key: k, Value: v}, true
		case cmp > 0:
			return Entry{}, false
		}
		off = next
	}
	return Entry{}, false
}

// All returns every entry in the table in ascending key order. Compaction
// uses it to stream a table's full contents through the merge.
func (t *Table) All() ([]Entry, error) {
	data, err := t.readDataFrom(0)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	off := 0
	for off < len(data) {
		k, next, err := codec.ParseBytes(data, off)
		if err != nil {
			return nil, fmt.Errorf("%w: data record in %q", ErrDecode, t.Path)
		}
		v, next, err := codec.ParseBytes(data, next)
		if err != nil {
			return nil, fmt.Errorf("%w: data record in %q", ErrDecode, t.Path)
		}
		e := Entry{Key: k}
		if IsTombstone(v) {
			e.Tombstone = true
		} else {
			e.Value = v
		}
		entries = append(entries, e)
		off = next
	}
	return entries, nil
}

// readDataFrom opens the table file and returns the uncompressed data block
// from byte offset start (in uncompressed coordinates) to its end. With no
// compression, only the requested window is read from disk; a compressed
// block must be read and decompressed whole first. The file handle is
// released before returning.
func (t *Table) readDataFrom(start uint32) ([]byte, error) {
	if start > t.dataLen && t.compression == compress.None {
		return nil, fmt.Errorf("%w: index offset %d beyond data block in %q", ErrDecode, start, t.Path)
	}

	f, err := os.Open(t.Path)
	if err != nil {
		return nil, fmt.Errorf("sstable: open data: %w", err)
	}
	defer f.Close()

	if t.compression == compress.None {
		window := make([]byte, t.dataLen-start)
		if _, err := f.ReadAt(window, 1+int64(start)); err != nil {
			return nil, fmt.Errorf("sstable: read data: %w", err)
		}
		return window, nil
	}

	raw := make([]byte, t.dataLen)
	if _, err := f.ReadAt(raw, 1); err != nil {
		return nil, fmt.Errorf("sstable: read data: %w", err)
	}
	data, err := compress.Decompress(t.compression, raw)
	if err != nil {
		return nil, err
	}
	if int(start) > len(data) {
		return nil, fmt.Errorf("%w: index offset %d beyond data block in %q", ErrDecode, start, t.Path)
	}
	return data[start:], nil
}
