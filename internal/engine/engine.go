// Package engine orchestrates the storage pipeline: durable writes through
// the WAL into the memtable, flushes of the memtable to immutable tables,
// manifest-driven recovery, a memory-first layered read path, and
// compaction of the full table set into a single merged table.
//
// The engine is single-threaded and non-reentrant; embedders must
// serialize access externally.
package engine

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/emberdb/ember/internal/manifest"
	"github.com/emberdb/ember/internal/memtable"
	"github.com/emberdb/ember/internal/sstable"
	"github.com/emberdb/ember/internal/wal"
)

const (
	walFilename      = "wal.log"
	manifestFilename = "MANIFEST"
)

// Engine is a single-node log-structured key/value store rooted at one
// directory. The zero value is not usable; construct with New.
type Engine struct {
	dir  string
	opts Options

	mem *memtable.MemTable

	// wal is nil when the log could not be opened at startup; writes then
	// proceed in memory only and durability is lost.
	wal *wal.WAL

	manifest *manifest.Manifest

	// tables holds the open table metadata in manifest order: oldest
	// first, newest last.
	tables []*sstable.Table

	// tableNames mirrors tables with the manifest's filenames.
	tableNames []string
}

// New opens (creating if necessary) an engine rooted at dir.
//
// Startup order matters: the memtable is rebuilt from the WAL before the
// manifest's tables are opened, and the WAL handle used for replay stays
// open for appends afterward. A WAL that cannot be opened is a warning,
// not an error; a manifest entry whose file cannot be opened is skipped
// the same way.
func New(dir string, opts *Options) (*Engine, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	resolved := *opts
	defaults := DefaultOptions()
	if resolved.SparseIndexStride <= 0 {
		resolved.SparseIndexStride = defaults.SparseIndexStride
	}
	if resolved.FilterFalsePositiveRate <= 0 {
		resolved.FilterFalsePositiveRate = defaults.FilterFalsePositiveRate
	}
	if resolved.FilterMinElements <= 0 {
		resolved.FilterMinElements = defaults.FilterMinElements
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("engine.New: %w", err)
	}

	e := &Engine{
		dir:      dir,
		opts:     resolved,
		mem:      memtable.New(time.Now().UnixNano()),
		manifest: manifest.New(filepath.Join(dir, manifestFilename)),
	}

	w, err := wal.Open(filepath.Join(dir, walFilename))
	if err != nil {
		slog.Warn("wal could not be opened; writes will not be durable", "dir", dir, "error", err)
	} else {
		e.wal = w
		if err := w.Replay(e.applyRecord); err != nil {
			slog.Warn("wal replay failed; starting from the manifest state only", "error", err)
		}
	}

	names, err := e.manifest.Load()
	if err != nil {
		e.closeWAL()
		return nil, fmt.Errorf("engine.New: %w", err)
	}
	for _, name := range names {
		tbl, err := sstable.Open(filepath.Join(dir, name))
		if err != nil {
			slog.Warn("skipping unreadable table", "filename", name,
				"error", fmt.Errorf("%w: %v", manifest.ErrMissingFile, err))
			continue
		}
		e.tables = append(e.tables, tbl)
		e.tableNames = append(e.tableNames, name)
	}

	slog.Debug("engine opened", "dir", dir, "tables", len(e.tables), "replayed", e.mem.Size())
	return e, nil
}

// applyRecord feeds one replayed WAL record into the memtable, translating
// the on-disk tombstone sentinel back into a tagged deletion.
func (e *Engine) applyRecord(key, value []byte) {
	if sstable.IsTombstone(value) {
		e.mem.Delete(key)
	} else {
		e.mem.Insert(key, value)
	}
}

// Put writes value for key. The record is durable in the WAL before the
// in-memory insert happens; if the WAL append fails, the insert does not
// happen and the error is returned.
func (e *Engine) Put(key, value []byte) error {
	if e.wal != nil {
		if err := e.wal.Append(key, value); err != nil {
			return fmt.Errorf("engine.Put: %w", err)
		}
	}
	e.mem.Insert(key, value)
	return nil
}

// Delete marks key as deleted. The tombstone shadows any older value until
// compaction physically removes both.
func (e *Engine) Delete(key []byte) error {
	if e.wal != nil {
		if err := e.wal.Append(key, sstable.Tombstone); err != nil {
			return fmt.Errorf("engine.Delete: %w", err)
		}
	}
	e.mem.Delete(key)
	return nil
}

// Get resolves key against the memtable first, then each table from newest
// to oldest. The newest source containing the key wins; a tombstone at the
// winning source means absent. The bool is false when no live value exists,
// so an empty value is never conflated with absence.
func (e *Engine) Get(key []byte) ([]byte, bool) {
	if entry, found := e.mem.Lookup(key); found {
		if entry.Tombstone {
			return nil, false
		}
		return entry.Value, true
	}

	for i := len(e.tables) - 1; i >= 0; i-- {
		tbl := e.tables[i]
		if !tbl.Filter.PossiblyContains(key) {
			continue
		}
		if entry, found := tbl.Lookup(key); found {
			if entry.Tombstone {
				return nil, false
			}
			return entry.Value, true
		}
	}
	return nil, false
}

// Flush materializes the memtable as a new L0 table. The manifest is
// appended only after the table file is durably in place, and the WAL is
// truncated only after the manifest records the table, so a crash at any
// point leaves a recoverable state.
func (e *Engine) Flush() error {
	if e.mem.Size() == 0 {
		return nil
	}

	entries := make([]sstable.Entry, 0, e.mem.Size())
	for _, me := range e.mem.Ascending() {
		entries = append(entries, sstable.Entry{Key: me.Key, Value: me.Value, Tombstone: me.Tombstone})
	}

	name := manifest.NextL0Name(e.tableNames)
	path := filepath.Join(e.dir, name)
	if err := sstable.Write(path, entries, e.opts.tableConfig()); err != nil {
		return fmt.Errorf("engine.Flush: %w", err)
	}
	if err := e.manifest.Append(name); err != nil {
		return fmt.Errorf("engine.Flush: %w", err)
	}

	tbl, err := sstable.Open(path)
	if err != nil {
		return fmt.Errorf("engine.Flush: reopen new table: %w", err)
	}
	e.tables = append(e.tables, tbl)
	e.tableNames = append(e.tableNames, name)

	e.mem.Clear()
	if e.wal != nil {
		if err := e.wal.Truncate(); err != nil {
			return fmt.Errorf("engine.Flush: %w", err)
		}
	}

	slog.Debug("flush", "filename", name, "entries", len(entries))
	return nil
}

// Compact merges every active table into a single new table, dropping
// tombstones and superseded values, then rewrites the manifest and deletes
// the old files. Until the manifest rewrite succeeds the old table set
// stays authoritative.
func (e *Engine) Compact() error {
	if len(e.tables) == 0 {
		return nil
	}

	// Replaying each table oldest-to-newest into an ordered buffer makes
	// the newest occurrence of each key win, with tombstones still tracked
	// so they can be dropped below.
	merged := memtable.New(time.Now().UnixNano())
	for _, tbl := range e.tables {
		entries, err := tbl.All()
		if err != nil {
			return fmt.Errorf("engine.Compact: %w", err)
		}
		for _, entry := range entries {
			if entry.Tombstone {
				merged.Delete(entry.Key)
			} else {
				merged.Insert(entry.Key, entry.Value)
			}
		}
	}

	live := make([]sstable.Entry, 0, merged.Size())
	for _, me := range merged.Ascending() {
		if me.Tombstone {
			continue
		}
		live = append(live, sstable.Entry{Key: me.Key, Value: me.Value})
	}

	name := manifest.CompactionName()
	path := filepath.Join(e.dir, name)
	if err := sstable.Write(path, live, e.opts.tableConfig()); err != nil {
		return fmt.Errorf("engine.Compact: %w", err)
	}
	tbl, err := sstable.Open(path)
	if err != nil {
		return fmt.Errorf("engine.Compact: reopen merged table: %w", err)
	}

	if err := e.manifest.Replace([]string{name}); err != nil {
		return fmt.Errorf("engine.Compact: %w", err)
	}

	for _, old := range e.tableNames {
		if err := os.Remove(filepath.Join(e.dir, old)); err != nil {
			slog.Warn("could not delete compacted table", "filename", old, "error", err)
		}
	}

	e.tables = []*sstable.Table{tbl}
	e.tableNames = []string{name}

	slog.Debug("compact", "filename", name, "entries", len(live))
	return nil
}

// Ascending returns every live (key, value) pair visible through the read
// path, in ascending key order. It is a diagnostic aid, not a scan API:
// it materializes the whole state in memory.
func (e *Engine) Ascending() ([]sstable.Entry, error) {
	merged := memtable.New(time.Now().UnixNano())
	for _, tbl := range e.tables {
		entries, err := tbl.All()
		if err != nil {
			return nil, fmt.Errorf("engine.Ascending: %w", err)
		}
		for _, entry := range entries {
			if entry.Tombstone {
				merged.Delete(entry.Key)
			} else {
				merged.Insert(entry.Key, entry.Value)
			}
		}
	}
	for _, me := range e.mem.Ascending() {
		if me.Tombstone {
			merged.Delete(me.Key)
		} else {
			merged.Insert(me.Key, me.Value)
		}
	}

	var out []sstable.Entry
	for _, me := range merged.Ascending() {
		if me.Tombstone {
			continue
		}
		out = append(out, sstable.Entry{Key: me.Key, Value: me.Value})
	}
	return out, nil
}

// Close releases the engine's resources. Buffered writes that were never
// flushed stay recoverable through the WAL.
func (e *Engine) Close() error {
	return e.closeWAL()
}

func (e *Engine) closeWAL() error {
	if e.wal == nil {
		return nil
	}
	err := e.wal.Close()
	e.wal = nil
	return err
}
