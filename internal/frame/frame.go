// Package frame implements the frame format of spec.md §4.6/§6.2: a
// super-chunk and its metadata layers serialized into one contiguous
// buffer (or on-disk file), or split into a sparse per-chunk-file
// directory. All multi-byte fields are little-endian (spec.md's "Endian
// policy").
package frame

import (
	"golang.org/x/xerrors"

	"github.com/b2lib/b2core/internal/bitutil"
)

// Magic identifies a contiguous frame; Version is this format's version,
// checked on read (spec.md §7 FRAME_VERSION).
const (
	Magic   = "B2FR"
	Version = 1
)

// Flags bits (spec.md §6.2 "flags").
const (
	FlagLittleEndian byte = 1 << 0
	FlagChecksum     byte = 1 << 1
	FlagSparse       byte = 1 << 2
)

// SpecialSentinel marks a special (constant-fill) chunk's trailer entry:
// the entry is SpecialSentinel | kind, a negative value carrying the
// chunk's SpecialKind in its low byte, and any negative trailer offset is
// read back as such a sentinel (spec.md §6.2 "special chunks encoded by a
// sentinel range").
const SpecialSentinel = int64(-1) << 8

// MetaLayer is one fixed or variable metadata layer entry (spec.md §4.9).
type MetaLayer struct {
	Name    string
	Content []byte
}

// Header is the frame's fixed-size preamble plus its parsed sections,
// kept together the way internal/chunk.Header keeps the chunk preamble
// with its parsed extended fields.
type Header struct {
	Typesize      int64
	ChunksizeHint int64
	Nchunks       int64
	Nbytes        int64
	Cbytes        int64
	Checksummed   bool
	Sparse        bool
	Comment       string

	MetaLayers   []MetaLayer
	VLMetaLayers []MetaLayer

	// Offsets, populated by Unmarshal (Marshal does not set it);
	// ChunkOffsets[i] < 0 encodes a
	// special chunk, see SpecialSentinel.
	ChunkOffsets []int64
}

type frameError string

func (e frameError) Error() string { return string(e) }

const (
	ErrBadMagic      = frameError("frame: bad magic")
	ErrVersion       = frameError("frame: unsupported frame version")
	ErrTruncated     = frameError("frame: truncated buffer")
	ErrChecksum      = frameError("frame: content checksum mismatch")
	ErrDuplicateName = frameError("frame: duplicate metadata layer name")
	ErrNotFound      = frameError("frame: metadata layer not found")
)

func encodeLayers(layers []MetaLayer) []byte {
	out := bitutil.AppendUvarint(nil, uint64(len(layers)))
	for _, l := range layers {
		if len(l.Name) > 255 {
			l.Name = l.Name[:255]
		}
		out = append(out, byte(len(l.Name)))
		out = append(out, l.Name...)
		lenBuf := make([]byte, 4)
		bitutil.PutUint32LE(lenBuf, uint32(len(l.Content)))
		out = append(out, lenBuf...)
		out = append(out, l.Content...)
	}
	return out
}

func decodeLayers(buf []byte) ([]MetaLayer, int, error) {
	count, n := decodeUvarint(buf)
	if n == 0 {
		return nil, 0, ErrTruncated
	}
	off := n
	layers := make([]MetaLayer, 0, count)
	for i := uint64(0); i < count; i++ {
		if off+1 > len(buf) {
			return nil, 0, ErrTruncated
		}
		nameLen := int(buf[off])
		off++
		if off+nameLen+4 > len(buf) {
			return nil, 0, ErrTruncated
		}
		name := string(buf[off : off+nameLen])
		off += nameLen
		contentLen := int(bitutil.Uint32LE(buf[off : off+4]))
		off += 4
		if off+contentLen > len(buf) {
			return nil, 0, ErrTruncated
		}
		content := make([]byte, contentLen)
		copy(content, buf[off:off+contentLen])
		off += contentLen
		layers = append(layers, MetaLayer{Name: name, Content: content})
	}
	return layers, off, nil
}

func decodeUvarint(buf []byte) (uint64, int) {
	var x uint64
	var s uint
	for i, b := range buf {
		if b < 0x80 {
			if i > 9 || (i == 9 && b > 1) {
				return 0, 0
			}
			return x | uint64(b)<<s, i + 1
		}
		x |= uint64(b&0x7f) << s
		s += 7
	}
	return 0, 0
}

// MetaGet returns a copy of the named fixed layer's content (spec.md §4.9
// "meta_get returns a copy").
func (h *Header) MetaGet(name string) ([]byte, bool) {
	for _, l := range h.MetaLayers {
		if l.Name == name {
			out := make([]byte, len(l.Content))
			copy(out, l.Content)
			return out, true
		}
	}
	return nil, false
}

// MetaAdd implements meta_add: fails if name is already used.
func (h *Header) MetaAdd(name string, content []byte) error {
	for _, l := range h.MetaLayers {
		if l.Name == name {
			return ErrDuplicateName
		}
	}
	h.MetaLayers = append(h.MetaLayers, MetaLayer{Name: name, Content: append([]byte(nil), content...)})
	return nil
}

// MetaUpdate implements meta_update: the name must already exist and the
// new content must be the same length (spec.md §4.9 "fixed layers are
// size-stable").
func (h *Header) MetaUpdate(name string, content []byte) error {
	for i, l := range h.MetaLayers {
		if l.Name == name {
			if len(content) != len(l.Content) {
				return xerrors.Errorf("frame: meta_update %q: length %d != %d: %w", name, len(content), len(l.Content), ErrNotFound)
			}
			h.MetaLayers[i].Content = append([]byte(nil), content...)
			return nil
		}
	}
	return ErrNotFound
}

// MetaExists implements meta_exists.
func (h *Header) MetaExists(name string) bool {
	_, ok := h.MetaGet(name)
	return ok
}

// VLMetaGet/Add/Update/Delete mirror the fixed-layer operations but allow
// resizing and deletion (spec.md §4.9 "Variable (vlmeta_*)").
func (h *Header) VLMetaGet(name string) ([]byte, bool) {
	for _, l := range h.VLMetaLayers {
		if l.Name == name {
			out := make([]byte, len(l.Content))
			copy(out, l.Content)
			return out, true
		}
	}
	return nil, false
}

func (h *Header) VLMetaSet(name string, content []byte) {
	for i, l := range h.VLMetaLayers {
		if l.Name == name {
			h.VLMetaLayers[i].Content = append([]byte(nil), content...)
			return
		}
	}
	h.VLMetaLayers = append(h.VLMetaLayers, MetaLayer{Name: name, Content: append([]byte(nil), content...)})
}

func (h *Header) VLMetaDelete(name string) bool {
	for i, l := range h.VLMetaLayers {
		if l.Name == name {
			h.VLMetaLayers = append(h.VLMetaLayers[:i], h.VLMetaLayers[i+1:]...)
			return true
		}
	}
	return false
}
