package sstable

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/emberdb/ember/internal/codec"
	"github.com/emberdb/ember/internal/compress"
)

func testEntries(n int) []Entry {
	entries := make([]Entry, n)
	for i := range entries {
		entries[i] = Entry{
			Key:   []byte(fmt.Sprintf("key:%03d", i)),
			Value: []byte(fmt.Sprintf("val:%03d", i)),
		}
	}
	return entries
}

func writeTable(t *testing.T, entries []Entry, cfg Config) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "L0_001.sst")
	if err := Write(path, entries, cfg); err != nil {
		t.Fatalf("Write: %v", err)
	}
	return path
}

func TestWriteAndLookup(t *testing.T) {
	entries := testEntries(20)
	path := writeTable(t, entries, DefaultConfig())

	tbl, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	for _, e := range entries {
		got, found := tbl.Lookup(e.Key)
		if !found {
			t.Fatalf("Lookup(%q) not found", e.Key)
		}
		if !bytes.Equal(got.Value, e.Value) {
			t.Fatalf("Lookup(%q) = %q, want %q", e.Key, got.Value, e.Value)
		}
	}

	if _, found := tbl.Lookup([]byte("key:9999")); found {
		t.Error("Lookup of absent key past the last entry should miss")
	}
	if _, found := tbl.Lookup([]byte("aaa")); found {
		t.Error("Lookup of key before the first index entry should miss")
	}
	if _, found := tbl.Lookup([]byte("key:005x")); found {
		t.Error("Lookup of absent key between entries should miss")
	}
}

func TestLookupTombstone(t *testing.T) {
	entries := []Entry{
		{Key: []byte("a"), Value: []byte("1")},
		{Key: []byte("b"), Tombstone: true},
		{Key: []byte("c"), Value: []byte("3")},
	}
	path := writeTable(t, entries, DefaultConfig())

	tbl, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	got, found := tbl.Lookup([]byte("b"))
	if !found {
		t.Fatal("tombstoned key should be found by table lookup")
	}
	if !got.Tombstone {
		t.Error("entry should carry the tombstone flag")
	}
}

func TestIsTombstoneMatchesExactSentinel(t *testing.T) {
	// A value that happens to equal the sentinel bytes is indistinguishable
	// from a deletion on disk; the format accepts that ambiguity.
	if !IsTombstone(Tombstone) {
		t.Fatal("IsTombstone(Tombstone) must be true")
	}
	if IsTombstone([]byte("~~DELETED")) {
		t.Error("prefix of the sentinel is not a tombstone")
	}
}

func TestFooterConsistency(t *testing.T) {
	entries := testEntries(10)
	path := writeTable(t, entries, DefaultConfig())

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	size := len(raw)
	indexStart := binary.BigEndian.Uint32(raw[size-8 : size-4])
	filterStart := binary.BigEndian.Uint32(raw[size-4:])

	if indexStart < 1 || filterStart < indexStart || int(filterStart) > size-8 {
		t.Fatalf("footer offsets out of order: index_start=%d filter_start=%d size=%d", indexStart, filterStart, size)
	}

	// Walk the index block; it must end exactly at filter_start.
	off := int(indexStart)
	count := 0
	var prev []byte
	for off < int(filterStart) {
		key, next, err := codec.ParseBytes(raw, off)
		if err != nil {
			t.Fatalf("index entry %d: %v", count, err)
		}
		if prev != nil && bytes.Compare(prev, key) >= 0 {
			t.Fatalf("index keys not strictly ascending at entry %d", count)
		}
		prev = key
		_, next, err = codec.ParseUint32(raw, next)
		if err != nil {
			t.Fatalf("index entry %d offset: %v", count, err)
		}
		off = next
		count++
	}
	if off != int(filterStart) {
		t.Fatalf("index block ends at %d, want %d", off, filterStart)
	}

	// 10 entries at stride 3 -> index entries at data positions 0, 3, 6, 9.
	if count != 4 {
		t.Fatalf("index entry count = %d, want 4", count)
	}
}

func TestDataBlockStrictlyAscending(t *testing.T) {
	entries := testEntries(25)
	path := writeTable(t, entries, DefaultConfig())

	tbl, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	all, err := tbl.All()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != len(entries) {
		t.Fatalf("All() returned %d entries, want %d", len(all), len(entries))
	}
	for i := 1; i < len(all); i++ {
		if bytes.Compare(all[i-1].Key, all[i].Key) >= 0 {
			t.Fatalf("data block not strictly ascending at %d", i)
		}
	}
}

func TestFilterSoundness(t *testing.T) {
	entries := testEntries(50)
	path := writeTable(t, entries, DefaultConfig())

	tbl, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if !tbl.Filter.PossiblyContains(e.Key) {
			t.Fatalf("filter must not report a present key %q as absent", e.Key)
		}
	}
}

func TestSnappyCompressedTable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Compression = compress.Snappy
	entries := testEntries(100)
	path := writeTable(t, entries, cfg)

	tbl, err := Open(path)
	if err != nil {
		t.Fatalf("Open compressed table: %v", err)
	}
	for _, e := range entries {
		got, found := tbl.Lookup(e.Key)
		if !found || !bytes.Equal(got.Value, e.Value) {
			t.Fatalf("Lookup(%q) = %q, %v", e.Key, got.Value, found)
		}
	}
	if _, found := tbl.Lookup([]byte("nope")); found {
		t.Error("absent key found in compressed table")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if raw[0] != byte(compress.Snappy) {
		t.Errorf("compression tag = %d, want %d", raw[0], compress.Snappy)
	}
}

func TestOpenShortFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.sst")
	if err := os.WriteFile(path, []byte{0, 1, 2}, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); err == nil {
		t.Error("Open of a short file should fail")
	}
}

func TestOpenMissingFile(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "nope.sst")); err == nil {
		t.Error("Open of a missing file should fail")
	}
}

func TestOpenGarbageFooter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.sst")
	raw := make([]byte, 64)
	for i := range raw {
		raw[i] = 0xff
	}
	if err := os.WriteFile(path, raw, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); err == nil {
		t.Error("Open with out-of-range footer offsets should fail")
	}
}

func TestWriteIsAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "L0_001.sst")
	if err := Write(path, testEntries(5), DefaultConfig()); err != nil {
		t.Fatal(err)
	}
	names, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 1 || names[0].Name() != "L0_001.sst" {
		t.Errorf("directory should contain only the final table file, got %v", names)
	}
}
