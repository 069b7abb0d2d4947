// Package wal implements the write-ahead log: an append-only, framed
// record stream that is forced durable on every write and replayed into
// the memtable on startup.
package wal

import (
	"os"
	"sync"

	"github.com/emberdb/ember/internal/codec"
)

// WAL is an append-mode log of (key, value) records. Every Append call
// forces the record durable before returning.
type WAL struct {
	path string
	file *os.File
	mut  sync.Mutex
}

// Open opens (creating if necessary) the WAL at path in append mode.
func Open(path string) (*WAL, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}
	return &WAL{path: path, file: f}, nil
}

// Append writes a single framed (key, value) record and forces it durable
// before returning.
func (w *WAL) Append(key, value []byte) error {
	w.mut.Lock()
	defer w.mut.Unlock()

	var buf []byte
	buf = codec.AppendBytes(buf, key)
	buf = codec.AppendBytes(buf, value)

	if _, err := w.file.Write(buf); err != nil {
		return err
	}
	return w.file.Sync()
}

// Replay reads every record from the start of the log, invoking fn for
// each (key, value) pair in write order. Replay stops silently on the
// first decode failure: a torn tail from an earlier crash is
// indistinguishable from mid-file corruption under this format, and both
// are treated as end-of-log. Records already applied via earlier fn calls
// are retained.
func (w *WAL) Replay(fn func(key, value []byte)) error {
	data, err := os.ReadFile(w.path)
	if err != nil {
		return err
	}

	off := 0
	for off < len(data) {
		key, next, err := codec.ParseBytes(data, off)
		if err != nil {
			return nil
		}
		value, next, err := codec.ParseBytes(data, next)
		if err != nil {
			return nil
		}
		fn(key, value)
		off = next
	}
	return nil
}

// Truncate closes the log, reopens it with length zero, and returns. It is
// called only by flush, after the new table is fully written and the
// manifest is updated.
func (w *WAL) Truncate() error {
	w.mut.Lock()
	defer w.mut.Unlock()

	if err := w.file.Close(); err != nil {
		return err
	}
	f, err := os.OpenFile(w.path, os.O_TRUNC|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return err
	}
	w.file = f
	return nil
}

// Close releases the underlying file handle.
func (w *WAL) Close() error {
	return w.file.Close()
}
