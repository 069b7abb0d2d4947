// Package bloom implements the membership filter used to short-circuit
// SSTable lookups for keys that are definitely not present.
package bloom

import (
	"hash/fnv"
	"math"

	"github.com/emberdb/ember/internal/codec"
)

// MinElements is the minimum element budget used to size a filter when the
// caller's expected count is zero or negative.
const MinElements = 10

// DefaultFalsePositiveRate is the false-positive probability a filter is
// sized for when the caller doesn't request a different one.
const DefaultFalsePositiveRate = 0.01

// Filter is a bit-array membership filter supporting Add and
// PossiblyContains. False positives are possible; false negatives are not.
type Filter struct {
	numHashes uint32
	numBits   uint32
	bits      []byte // packed, LSB-first within each byte
}

// New creates a Filter sized for n expected elements at false-positive
// probability p. If n <= 0, sizing uses MinElements instead. If p <= 0, p
// defaults to DefaultFalsePositiveRate.
func New(n int, p float64) *Filter {
	if n <= 0 {
		n = MinElements
	}
	if p <= 0 {
		p = DefaultFalsePositiveRate
	}
	nf := float64(n)
	m := math.Ceil(-nf * math.Log(p) / (math.Ln2 * math.Ln2))
	if m < 1 {
		m = 1
	}
	k := math.Ceil((m / nf) * math.Ln2)
	if k < 1 {
		k = 1
	}
	numBits := uint32(m)
	return &Filter{
		numHashes: uint32(k),
		numBits:   numBits,
		bits:      make([]byte, (numBits+7)/8),
	}
}

// Add records key as a member of the filter.
func (f *Filter) Add(key []byte) {
	if f.numBits == 0 {
		return
	}
	h1, h2 := f.seedHashes(key)
	for i := uint32(0); i < f.numHashes; i++ {
		pos := (h1 + i*h2) % f.numBits
		f.setBit(pos)
	}
}

// PossiblyContains reports whether key might be a member of the filter. A
// false return means key is definitely not a member; a true return means
// key might be a member (subject to the filter's false-positive rate).
func (f *Filter) PossiblyContains(key []byte) bool {
	if f.numBits == 0 {
		return false
	}
	h1, h2 := f.seedHashes(key)
	for i := uint32(0); i < f.numHashes; i++ {
		pos := (h1 + i*h2) % f.numBits
		if !f.getBit(pos) {
			return false
		}
	}
	return true
}

func (f *Filter) setBit(pos uint32) {
	f.bits[pos/8] |= 1 << (pos % 8)
}

func (f *Filter) getBit(pos uint32) bool {
	return f.bits[pos/8]&(1<<(pos%8)) != 0
}

// seedHashes derives the two seed hashes used for double hashing: h1 is the
// hash of key, h2 is the hash of key with a salt appended. Both use FNV-1a,
// which is deterministic within a process and, per this format's design,
// across processes as well.
func (f *Filter) seedHashes(key []byte) (uint32, uint32) {
	h1 := fnv1a(key)
	salted := make([]byte, 0, len(key)+5)
	salted = append(salted, key...)
	salted = append(salted, "_salt"...)
	h2 := fnv1a(salted)
	if h2 == 0 {
		h2 = 1
	}
	return h1, h2
}

func fnv1a(b []byte) uint32 {
	h := fnv.New32a()
	h.Write(b)
	return h.Sum32()
}

// Marshal serializes the filter as (num_hashes, size_in_bits, packed bits).
func (f *Filter) Marshal() []byte {
	buf := codec.AppendUint32(nil, f.numHashes)
	buf = codec.AppendUint32(buf, f.numBits)
	buf = codec.AppendBytes(buf, f.bits)
	return buf
}

// Unmarshal deserializes a filter previously produced by Marshal, returning
// the filter and the offset immediately after its encoding.
func Unmarshal(buf []byte, off int) (*Filter, int, error) {
	k, off, err := codec.ParseUint32(buf, off)
	if err != nil {
		return nil, off, err
	}
	m, off, err := codec.ParseUint32(buf, off)
	if err != nil {
		return nil, off, err
	}
	bits, off, err := codec.ParseBytes(buf, off)
	if err != nil {
		return nil, off, err
	}
	if uint32(len(bits)) != (m+7)/8 {
		return nil, off, codec.ErrUnderflow
	}
	return &Filter{numHashes: k, numBits: m, bits: bits}, off, nil
}
