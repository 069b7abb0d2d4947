// Package manifest tracks the set of live table files. The manifest is a
// newline-delimited list of filenames in creation order and is the ground
// truth on startup: a table file not listed here does not exist as far as
// the engine is concerned.
package manifest

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/emberdb/ember/internal/assert"
)

// ErrMissingFile is returned when a manifest entry references a table file
// that cannot be opened.
var ErrMissingFile = errors.New("manifest: missing table file")

// Manifest is a handle to the manifest file at a fixed path. Load, Append,
// and Replace each open and close the file themselves; no handle is held
// between calls.
type Manifest struct {
	path string
}

// New returns a Manifest for the file at path. The file need not exist yet;
// a missing manifest loads as an empty table set.
func New(path string) *Manifest {
	assert.True(path != "", "manifest.New: empty path")
	return &Manifest{path: path}
}

// Load reads the active table filenames in creation order (oldest first,
// newest last). Empty lines are skipped. A missing manifest yields an empty
// list and no error.
func (m *Manifest) Load() ([]string, error) {
	f, err := os.Open(m.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("manifest.Load: %w", err)
	}
	defer f.Close()

	var names []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		names = append(names, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("manifest.Load: %w", err)
	}
	return names, nil
}

// Append records one new table filename at the end of the manifest.
func (m *Manifest) Append(name string) error {
	f, err := os.OpenFile(m.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("manifest.Append: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(name + "\n"); err != nil {
		return fmt.Errorf("manifest.Append: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("manifest.Append: %w", err)
	}
	return nil
}

// Replace rewrites the manifest so it lists exactly names, in order. The
// new contents are written to a temp file and renamed into place so a crash
// mid-rewrite leaves either the old list or the new one, never a mix.
func (m *Manifest) Replace(names []string) error {
	dir := filepath.Dir(m.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(m.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("manifest.Replace: %w", err)
	}
	defer os.Remove(tmp.Name())

	for _, name := range names {
		if _, err := tmp.WriteString(name + "\n"); err != nil {
			tmp.Close()
			return fmt.Errorf("manifest.Replace: %w", err)
		}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("manifest.Replace: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("manifest.Replace: %w", err)
	}
	if err := os.Rename(tmp.Name(), m.path); err != nil {
		return fmt.Errorf("manifest.Replace: %w", err)
	}

	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("manifest.Replace: %w", err)
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		return fmt.Errorf("manifest.Replace: %w", err)
	}
	return nil
}

// l0Pattern matches L0 table names and captures their numeric component.
var l0Pattern = regexp.MustCompile(`^L0_0*([0-9]+)\.sst$`)

// NextL0Name returns the filename for the next L0 table: one greater than
// the largest numeric component among the L0 entries already listed, with
// numbering starting at 1.
func NextL0Name(names []string) string {
	max := 0
	for _, name := range names {
		m := l0Pattern.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return fmt.Sprintf("L0_00%d.sst", max+1)
}

// CompactionName returns a fresh, unique filename for a compaction output.
// Repeated compactions never collide, so a crash between writing the new
// table and rewriting the manifest cannot clobber the previous output.
func CompactionName() string {
	return fmt.Sprintf("L1_merged-%s.sst", uuid.NewString())
}
