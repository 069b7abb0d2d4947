package engine

import (
	"github.com/emberdb/ember/internal/compress"
	"github.com/emberdb/ember/internal/sstable"
)

// Options are the engine's tunables. The defaults reproduce the reference
// format constants (sparse stride 3, filter rate 0.01, minimum filter budget
// 10). Every table file begins with a one-byte compression tag ahead of the
// data block, so files are not byte-identical to a tag-less layout even with
// the defaults. Changing SparseIndexStride or the filter parameters only
// affects tables written after the change, since every table file is
// self-describing.
type Options struct {
	// SparseIndexStride is the number of data entries between sparse index
	// entries in a table file.
	SparseIndexStride int

	// FilterFalsePositiveRate is the membership filter's target false
	// positive probability.
	FilterFalsePositiveRate float64

	// FilterMinElements is the minimum element budget a table's filter is
	// sized for.
	FilterMinElements int

	// Compression selects the table data block codec. Defaults to none,
	// which stores the data block uncompressed after a zero tag byte.
	Compression compress.Type
}

// DefaultOptions returns the options every engine should start from.
func DefaultOptions() *Options {
	return &Options{
		SparseIndexStride:       3,
		FilterFalsePositiveRate: 0.01,
		FilterMinElements:       10,
		Compression:             compress.None,
	}
}

func (o *Options) tableConfig() sstable.Config {
	return sstable.Config{
		SparseStride:            o.SparseIndexStride,
		FilterFalsePositiveRate: o.FilterFalsePositiveRate,
		FilterMinElements:       o.FilterMinElements,
		Compression:             o.Compression,
	}
}
