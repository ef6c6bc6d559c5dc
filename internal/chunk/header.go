// Package chunk implements the chunk engine of spec.md §3/§4.4/§6.1: the
// 32-byte fixed header, optional extended header, block-starts table,
// parallel block dispatch, and special (constant-fill) chunks.
package chunk

import (
	"github.com/b2lib/b2core/internal/bitutil"
	"github.com/b2lib/b2core/internal/filter"
)

// HeaderSize is the fixed chunk header size, spec.md §3.
const HeaderSize = 32

// Flags0 bits, spec.md §6.1 byte 2.
const (
	FlagByteShuffle  byte = 1 << 0
	FlagMemcpyRaw    byte = 1 << 1
	FlagBitShuffle   byte = 1 << 2
	FlagHostLittle   byte = 1 << 3
	FlagExtHeader    byte = 1 << 6
	FlagHighBitCodec byte = 1 << 7
)

// SpecialKind identifies a special chunk (spec.md §3 "Special chunks").
type SpecialKind byte

const (
	SpecialNone SpecialKind = iota
	SpecialZero
	SpecialNaN
	SpecialUninit
	SpecialValue
)

// Header is the fixed 32-byte chunk header plus the parsed extended
// header fields, kept together for convenience; Marshal/Unmarshal handle
// the on-disk split between the two.
type Header struct {
	Version    byte
	VersionLZ  byte
	Flags0     byte
	Typesize   int64 // may exceed 255 only via ExtTypesize
	Nbytes     int64
	Blocksize  int64
	Cbytes     int64

	HasExtHeader bool
	Filters      filter.Pipeline
	CodecID      int
	CodecMeta    byte
	Special      SpecialKind
	Checksummed  bool
	ExtTypesize  int64 // 0 unless Typesize didn't fit in one byte
}

// extHeaderSize is filter.MaxFilters*2 (id,meta pairs) + codec id + codec
// meta + blosc2_flags byte + a 4-byte extended typesize field.
const extHeaderSize = filter.MaxFilters*2 + 1 + 1 + 1 + 4

// Marshal writes h into buf, which must be at least HeaderSize (+
// extHeaderSize if HasExtHeader) bytes.
func (h *Header) Marshal(buf []byte) int {
	buf[0] = h.Version
	buf[1] = h.VersionLZ
	flags := h.Flags0
	if h.HasExtHeader {
		flags |= FlagExtHeader
	}
	buf[2] = flags
	ts := h.Typesize
	if ts > 255 {
		ts = 0 // extended header carries the real value
	}
	buf[3] = byte(ts)
	bitutil.PutUint32LE(buf[4:8], uint32(h.Nbytes))
	bitutil.PutUint32LE(buf[8:12], uint32(h.Blocksize))
	bitutil.PutUint32LE(buf[12:16], uint32(h.Cbytes))
	// bytes 16-31 reserved/zero in the non-extended case.
	for i := 16; i < HeaderSize; i++ {
		buf[i] = 0
	}
	off := HeaderSize
	if h.HasExtHeader {
		eb := buf[off : off+extHeaderSize]
		for i, s := range h.Filters.Slots {
			eb[i*2] = s.ID
			eb[i*2+1] = s.Meta
		}
		eb[filter.MaxFilters*2] = byte(h.CodecID)
		eb[filter.MaxFilters*2+1] = h.CodecMeta
		b2flags := byte(h.Special)
		if h.Checksummed {
			b2flags |= 0x80
		}
		eb[filter.MaxFilters*2+2] = b2flags
		bitutil.PutUint32LE(eb[filter.MaxFilters*2+3:], uint32(h.ExtTypesize))
		off += extHeaderSize
	}
	return off
}

// Size returns the on-disk size of the header including the extended
// header when present.
func (h *Header) Size() int {
	if h.HasExtHeader {
		return HeaderSize + extHeaderSize
	}
	return HeaderSize
}

// Unmarshal parses a header from buf (which may contain more trailing
// data, e.g. the block-starts table and body).
func Unmarshal(buf []byte) (*Header, error) {
	if len(buf) < HeaderSize {
		return nil, errShort
	}
	h := &Header{
		Version:   buf[0],
		VersionLZ: buf[1],
		Flags0:    buf[2] &^ (FlagExtHeader), // cleared below, re-set if present
		Typesize:  int64(buf[3]),
		Nbytes:    int64(bitutil.Uint32LE(buf[4:8])),
		Blocksize: int64(bitutil.Uint32LE(buf[8:12])),
		Cbytes:    int64(bitutil.Uint32LE(buf[12:16])),
	}
	flags := buf[2]
	h.Flags0 = flags
	if flags&FlagExtHeader != 0 {
		h.HasExtHeader = true
		if len(buf) < HeaderSize+extHeaderSize {
			return nil, errShort
		}
		eb := buf[HeaderSize : HeaderSize+extHeaderSize]
		for i := 0; i < filter.MaxFilters; i++ {
			h.Filters.Slots[i] = filter.Slot{ID: eb[i*2], Meta: eb[i*2+1]}
		}
		h.CodecID = int(eb[filter.MaxFilters*2])
		h.CodecMeta = eb[filter.MaxFilters*2+1]
		b2flags := eb[filter.MaxFilters*2+2]
		h.Special = SpecialKind(b2flags &^ 0x80)
		h.Checksummed = b2flags&0x80 != 0
		h.ExtTypesize = int64(bitutil.Uint32LE(eb[filter.MaxFilters*2+3:]))
		if h.ExtTypesize > 0 {
			h.Typesize = h.ExtTypesize
		}
	}
	return h, nil
}

type chunkError string

func (e chunkError) Error() string { return string(e) }

const errShort = chunkError("chunk: buffer shorter than header")
