// Package bitutil holds the endian-aware load/store, varint and checksum
// helpers shared by the chunk, frame and b2nd formats. All on-disk integers
// are little-endian regardless of host order (spec.md §4.6 "Endian
// policy"); in-memory structures use host order except where this package
// is used to cross the boundary.
package bitutil

import (
	"encoding/binary"
	"hash/crc32"
)

// PutUint32LE / Uint32LE / etc. are thin aliases over binary.LittleEndian,
// named for call sites that only ever deal with the on-disk format so the
// intent ("this is a wire-format integer") is visible without re-deriving
// it from an import alias.
func PutUint32LE(b []byte, v uint32) { binary.LittleEndian.PutUint32(b, v) }
func Uint32LE(b []byte) uint32       { return binary.LittleEndian.Uint32(b) }
func PutUint64LE(b []byte, v uint64) { binary.LittleEndian.PutUint64(b, v) }
func Uint64LE(b []byte) uint64       { return binary.LittleEndian.Uint64(b) }
func PutUint16LE(b []byte, v uint16) { binary.LittleEndian.PutUint16(b, v) }
func Uint16LE(b []byte) uint16       { return binary.LittleEndian.Uint16(b) }

// PutInt64LE / Int64LE store the frame trailer's signed chunk offsets,
// where negative values are a sentinel range encoding a special chunk kind
// (spec.md §6.2).
func PutInt64LE(b []byte, v int64) { binary.LittleEndian.PutUint64(b, uint64(v)) }
func Int64LE(b []byte) int64       { return int64(binary.LittleEndian.Uint64(b)) }

// AppendUvarint appends a LEB128-style unsigned varint, used by the
// vlmetalayers section where entry counts are not bounded ahead of time.
func AppendUvarint(b []byte, v uint64) []byte {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], v)
	return append(b, buf[:n]...)
}

// Checksum32 computes the 32-bit content checksum over uncompressed chunk
// bodies described in spec.md §6.2. CRC32 (IEEE) is the conventional choice
// for a plain 32-bit integrity check and needs no external library.
func Checksum32(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

// CeilToMultiple rounds n up to the next multiple of m (m > 0), used for
// extshape/extchunkshape rounding in b2nd and for blocksize/typesize
// alignment in tuning.
func CeilToMultiple(n, m int64) int64 {
	if m <= 0 {
		return n
	}
	if n%m == 0 {
		return n
	}
	return (n/m + 1) * m
}

// CeilDiv computes ceil(a/b) for non-negative a and positive b.
func CeilDiv(a, b int64) int64 {
	if b <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
