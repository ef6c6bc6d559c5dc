// Package block implements the block engine of spec.md §4.3: compress or
// decompress a single block through prefilter -> filter chain -> codec ->
// postfilter, with typesize-aware split mode and a raw/incompressible
// escape.
package block

import (
	"encoding/binary"

	"github.com/b2lib/b2core/internal/codec"
	"github.com/b2lib/b2core/internal/filter"
)

// SplitMode selects whether a block's typesize interleaved streams are
// compressed independently (spec.md §4.10).
type SplitMode int

const (
	SplitAuto SplitMode = iota
	SplitAlways
	SplitNever
	SplitForwardCompat
)

// wire-format flags for one compressed block body (spec.md §6.1's "per
// block, either a single codec payload ... or split").
const (
	flagSplit byte = 1 << 0
	flagRaw   byte = 1 << 1
)

// Engine holds everything needed to (de)compress one block: the filter
// pipeline, codec, and optional pre/postfilter hooks (spec.md §4.3).
type Engine struct {
	Filters         *filter.Pipeline
	FilterRegistry  *filter.Registry
	Codec           codec.Codec
	CodecCtx        *codec.Context
	Level           int
	Typesize        int
	Split           SplitMode
	Prefilter       filter.Prefilter
	PrefilterParams interface{}
	Postfilter      filter.Postfilter
	PostfilterParams interface{}
}

func (e *Engine) shouldSplit(blocksize int) bool {
	switch e.Split {
	case SplitAlways:
		return e.Typesize > 1
	case SplitNever:
		return false
	case SplitForwardCompat:
		// Forward-compat mode splits only for the codec+filter combinations
		// the original format documents splitting for by default: a fast
		// byte-level codec with byte-shuffle engaged (spec.md §4.10).
		hasShuffle := false
		for _, s := range e.Filters.Active() {
			if s.ID == filter.ByteShuffle {
				hasShuffle = true
			}
		}
		return e.Typesize > 1 && hasShuffle && e.Codec.ID() == codec.IDS2
	default: // SplitAuto
		return e.Typesize > 1 && blocksize%e.Typesize == 0 && blocksize >= e.Typesize*4
	}
}

// CompressBlock compresses src (one block, blocksize or a shorter tail)
// into dst, returning the bytes written. ref is the chunk's first block's
// pre-filter bytes (nil for block 0), used by the delta filter.
func (e *Engine) CompressBlock(dst, src []byte, blockIndex int64, ref []byte) (int, error) {
	filtered := src
	if e.Prefilter != nil {
		buf := make([]byte, len(src))
		if err := e.Prefilter(src, buf, blockIndex, e.PrefilterParams); err != nil {
			return -1, err
		}
		filtered = buf
	}
	if e.Filters != nil && len(e.Filters.Active()) > 0 {
		out := make([]byte, len(filtered))
		var err error
		filtered, err = filter.Encode(e.Filters, e.FilterRegistry, out, filtered, e.Typesize, ref)
		if err != nil {
			return -1, err
		}
	}

	if e.shouldSplit(len(filtered)) {
		return e.compressSplit(dst, filtered)
	}
	return e.compressWhole(dst, filtered)
}

func (e *Engine) compressWhole(dst, filtered []byte) (int, error) {
	body := dst[5:] // 1 flags byte + 4-byte length header reserved below
	n, err := e.Codec.Compress(filtered, body, e.Level, e.CodecCtx)
	if err != nil {
		return -1, err
	}
	if n == 0 {
		// incompressible: store verbatim with the raw marker, per spec.md §4.3
		if len(filtered) > len(dst)-1 {
			return -1, codec.ErrDstTooSmall
		}
		dst[0] = flagRaw
		copy(dst[1:], filtered)
		return 1 + len(filtered), nil
	}
	dst[0] = 0
	binary.LittleEndian.PutUint32(dst[1:5], uint32(n))
	return 5 + n, nil
}

func (e *Engine) compressSplit(dst, filtered []byte) (int, error) {
	ts := e.Typesize
	streamLen := len(filtered) / ts
	// De-interleave into ts contiguous streams (this is what "split mode"
	// means: treat the filtered block as ts interleaved streams of
	// len/ts bytes, spec.md §4.3).
	dst[0] = flagSplit
	off := 1
	streams := make([][]byte, ts)
	for s := 0; s < ts; s++ {
		stream := make([]byte, streamLen)
		for i := 0; i < streamLen; i++ {
			stream[i] = filtered[i*ts+s]
		}
		streams[s] = stream
	}
	for _, stream := range streams {
		if off+4 > len(dst) {
			return -1, codec.ErrDstTooSmall
		}
		n, err := e.Codec.Compress(stream, dst[off+4:], e.Level, e.CodecCtx)
		if err != nil {
			return -1, err
		}
		if n == 0 || n >= len(stream) {
			// Store this stream's bytes verbatim, flagged via length's top
			// bit (mirrors the chunk-wide raw marker at stream grain).
			if off+4+len(stream) > len(dst) {
				return -1, codec.ErrDstTooSmall
			}
			binary.LittleEndian.PutUint32(dst[off:off+4], uint32(len(stream))|rawStreamBit)
			copy(dst[off+4:], stream)
			off += 4 + len(stream)
			continue
		}
		binary.LittleEndian.PutUint32(dst[off:off+4], uint32(n))
		off += 4 + n
	}
	return off, nil
}

const rawStreamBit = uint32(1) << 31

// DecompressBlock reverses CompressBlock. dstLen is the expected
// uncompressed length of this block (blocksize, or the tail length for the
// last block of a chunk).
func (e *Engine) DecompressBlock(dst, src []byte, dstLen int, blockIndex int64, ref []byte) error {
	flags := src[0]
	var filtered []byte
	if flags&flagSplit != 0 {
		var err error
		filtered, err = e.decompressSplit(src[1:], dstLen)
		if err != nil {
			return err
		}
	} else if flags&flagRaw != 0 {
		filtered = src[1 : 1+dstLen]
	} else {
		n := binary.LittleEndian.Uint32(src[1:5])
		filtered = make([]byte, dstLen)
		m, err := e.Codec.Decompress(src[5:5+int(n)], filtered, e.CodecCtx)
		if err != nil {
			return err
		}
		filtered = filtered[:m]
	}

	unfiltered := filtered
	if e.Filters != nil && len(e.Filters.Active()) > 0 {
		out := make([]byte, len(filtered))
		var err error
		unfiltered, err = filter.Decode(e.Filters, e.FilterRegistry, out, filtered, e.Typesize, ref)
		if err != nil {
			return err
		}
	}
	copy(dst[:dstLen], unfiltered)

	if e.Postfilter != nil {
		if err := e.Postfilter(dst[:dstLen], blockIndex, e.PostfilterParams); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) decompressSplit(src []byte, dstLen int) ([]byte, error) {
	ts := e.Typesize
	streamLen := dstLen / ts
	streams := make([][]byte, ts)
	off := 0
	for s := 0; s < ts; s++ {
		lenField := binary.LittleEndian.Uint32(src[off : off+4])
		off += 4
		raw := lenField&rawStreamBit != 0
		n := int(lenField &^ rawStreamBit)
		stream := make([]byte, streamLen)
		if raw {
			copy(stream, src[off:off+n])
		} else {
			m, err := e.Codec.Decompress(src[off:off+n], stream, e.CodecCtx)
			if err != nil {
				return nil, err
			}
			stream = stream[:m]
		}
		off += n
		streams[s] = stream
	}
	filtered := make([]byte, dstLen)
	for s := 0; s < ts; s++ {
		for i := 0; i < streamLen; i++ {
			filtered[i*ts+s] = streams[s][i]
		}
	}
	return filtered, nil
}

// MaxBlockOverhead bounds how much larger a compressed block's wire
// representation can be than its raw form (flags byte + length header, or
// per-stream headers in split mode), used by callers sizing dst buffers.
func MaxBlockOverhead(typesize int) int {
	if typesize > 1 {
		return 1 + typesize*4
	}
	return 5
}
