package sstable

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/emberdb/ember/internal/assert"
	"github.com/emberdb/ember/internal/bloom"
	"github.com/emberdb/ember/internal/codec"
	"github.com/emberdb/ember/internal/compress"
)

// Write materializes entries as a single table file at path. Entries must
// be in strictly ascending key order; values may be tombstones.
//
// The file is written to a temporary name in the same directory, synced,
// and renamed into place, so a crash mid-write never leaves a partial file
// at path.
func Write(path string, entries []Entry, cfg Config) error {
	n := len(entries)
	filterBudget := n
	if filterBudget < cfg.FilterMinElements {
		filterBudget = cfg.FilterMinElements
	}
	filter := bloom.New(filterBudget, cfg.FilterFalsePositiveRate)

	var data []byte
	var index []indexEntry
	for i, e := range entries {
		if i > 0 {
			assert.True(bytes.Compare(entries[i-1].Key, e.Key) < 0,
				"sstable.Write: entries not strictly ascending at %d", i)
		}
		if i%cfg.SparseStride == 0 {
			index = append(index, indexEntry{key: e.Key, offset: uint32(len(data))})
		}
		value := e.Value
		if e.Tombstone {
			value = Tombstone
		}
		data = codec.AppendBytes(data, e.Key)
		data = codec.AppendBytes(data, value)
		filter.Add(e.Key)
	}

	payload, err := compress.Compress(cfg.Compression, data)
	if err != nil {
		return fmt.Errorf("sstable.Write: %w", err)
	}

	buf := append([]byte{byte(cfg.Compression)}, payload...)
	indexStart := uint32(len(buf))
	for _, ie := range index {
		buf = codec.AppendBytes(buf, ie.key)
		buf = codec.AppendUint32(buf, ie.offset)
	}
	filterStart := uint32(len(buf))
	buf = append(buf, filter.Marshal()...)
	buf = codec.AppendUint32(buf, indexStart)
	buf = codec.AppendUint32(buf, filterStart)

	return writeFileAtomic(path, buf)
}

// writeFileAtomic writes data to a temp file in path's directory, syncs it,
// renames it onto path, and syncs the directory so the rename is durable.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("sstable: create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("sstable: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sstable: sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("sstable: close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("sstable: rename: %w", err)
	}
	return syncDir(dir)
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("sstable: open dir: %w", err)
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		return fmt.Errorf("sstable: sync dir: %w", err)
	}
	return nil
}
