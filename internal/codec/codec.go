// Package codec implements the length-prefixed binary framing shared by
// the write-ahead log, SSTable data/index blocks, and SSTable footer.
//
// Every multi-byte integer is a 32-bit big-endian unsigned value. There are
// no varints, no alignment, and no padding: a framed record is always
// (length, bytes) or a bare fixed-width integer.
package codec

import (
	"encoding/binary"
	"fmt"
)

// ErrUnderflow is returned when a buffer is too short to contain the value
// a prior length prefix promised.
var ErrUnderflow = fmt.Errorf("codec: buffer underflow")

// Uint32Size is the on-disk width of every length prefix and offset.
const Uint32Size = 4

// AppendUint32 appends n as a 32-bit big-endian value to dst.
func AppendUint32(dst []byte, n uint32) []byte {
	var buf [Uint32Size]byte
	binary.BigEndian.PutUint32(buf[:], n)
	return append(dst, buf[:]...)
}

// AppendBytes appends a length prefix followed by b to dst.
func AppendBytes(dst []byte, b []byte) []byte {
	dst = AppendUint32(dst, uint32(len(b)))
	return append(dst, b...)
}

// ParseUint32 reads a 32-bit big-endian value from buf starting at off,
// returning the value and the offset immediately after it.
func ParseUint32(buf []byte, off int) (uint32, int, error) {
	if off < 0 || off+Uint32Size > len(buf) {
		return 0, off, ErrUnderflow
	}
	return binary.BigEndian.Uint32(buf[off : off+Uint32Size]), off + Uint32Size, nil
}

// ParseBytes reads a length-prefixed byte slice from buf starting at off,
// returning a copy of the bytes and the offset immediately after them.
//
// The returned slice is a copy so callers may retain it beyond the
// lifetime of buf.
func ParseBytes(buf []byte, off int) ([]byte, int, error) {
	n, off, err := ParseUint32(buf, off)
	if err != nil {
		return nil, off, err
	}
	end := off + int(n)
	if end < off || end > len(buf) {
		return nil, off, ErrUnderflow
	}
	out := make([]byte, n)
	copy(out, buf[off:end])
	return out, end, nil
}
