package schunk

import (
	"github.com/b2lib/b2core"
	"github.com/b2lib/b2core/internal/bitutil"
	"github.com/b2lib/b2core/internal/chunk"
	"github.com/b2lib/b2core/internal/frame"
)

// specialSidecarName is a reserved vlmeta layer name that ToBuffer uses to
// carry the (nbytes, typesize, value) triple special chunks need to be
// reconstructed on from_buffer, since the frame format itself stores only
// a special chunk's kind (spec.md §6.2: special chunks cost no body
// bytes). It is never exposed through VLMetaGet/VLMetaSet.
const specialSidecarName = "__b2core_special__"

func encodeSpecialSidecar(chunks []Chunk) []byte {
	var indices []int
	for i, c := range chunks {
		if c.Special {
			indices = append(indices, i)
		}
	}
	out := bitutil.AppendUvarint(nil, uint64(len(indices)))
	for _, i := range indices {
		c := chunks[i]
		out = bitutil.AppendUvarint(out, uint64(i))
		nb := make([]byte, 8)
		bitutil.PutUint64LE(nb, uint64(c.Nbytes))
		out = append(out, nb...)
		ts := make([]byte, 8)
		bitutil.PutUint64LE(ts, uint64(c.SpecialTypesize))
		out = append(out, ts...)
		out = append(out, byte(len(c.SpecialValue)))
		out = append(out, c.SpecialValue...)
	}
	return out
}

type specialSidecarEntry struct {
	nbytes   int64
	typesize int64
	value    []byte
}

func decodeSpecialSidecar(buf []byte) (map[int]specialSidecarEntry, error) {
	count, n := decodeUvarintLocal(buf)
	if n == 0 {
		return nil, frame.ErrTruncated
	}
	off := n
	out := make(map[int]specialSidecarEntry, count)
	for k := uint64(0); k < count; k++ {
		idx, n := decodeUvarintLocal(buf[off:])
		if n == 0 {
			return nil, frame.ErrTruncated
		}
		off += n
		if off+17 > len(buf) {
			return nil, frame.ErrTruncated
		}
		nbytes := int64(bitutil.Uint64LE(buf[off : off+8]))
		off += 8
		typesize := int64(bitutil.Uint64LE(buf[off : off+8]))
		off += 8
		valLen := int(buf[off])
		off++
		if off+valLen > len(buf) {
			return nil, frame.ErrTruncated
		}
		value := append([]byte(nil), buf[off:off+valLen]...)
		off += valLen
		out[int(idx)] = specialSidecarEntry{nbytes: nbytes, typesize: typesize, value: value}
	}
	return out, nil
}

// decodeUvarintLocal decodes the varint bitutil.AppendUvarint writes
// (bitutil has no decoder); kept local since frame's decodeUvarint is
// unexported.
func decodeUvarintLocal(buf []byte) (uint64, int) {
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

// ToBuffer serializes the super-chunk into one contiguous in-memory frame
// (spec.md §4.5 "to_buffer"), preserving chunk order, special chunks, and
// both metadata layer kinds.
func (s *Schunk) ToBuffer() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	metaLayers := s.header.MetaLayers
	vlLayers := append([]frame.MetaLayer(nil), s.header.VLMetaLayers...)
	vlLayers = append(vlLayers, frame.MetaLayer{
		Name:    specialSidecarName,
		Content: encodeSpecialSidecar(s.chunks),
	})

	h := &frame.Header{
		Typesize:      s.typesize,
		ChunksizeHint: s.chunksize,
		Nbytes:        s.nbytes,
		MetaLayers:    metaLayers,
		VLMetaLayers:  vlLayers,
	}
	entries := make([]frame.ChunkEntry, len(s.chunks))
	for i, c := range s.chunks {
		entries[i] = frame.ChunkEntry{
			Bytes:       c.Bytes,
			Special:     c.Special,
			SpecialKind: c.SpecialKind,
		}
	}
	return frame.Marshal(h, entries, nil, nil), nil
}

// FromBuffer reconstructs a Schunk from a contiguous frame built by
// ToBuffer (spec.md §4.5 "from_buffer(frame, len, copy)"). When copy is
// true, chunk bytes are duplicated out of buf so the Schunk no longer
// aliases the caller's slice.
func FromBuffer(buf []byte, cp b2core.CParams, dp b2core.DParams, copy bool) (*Schunk, error) {
	h, entries, err := frame.Unmarshal(buf)
	if err != nil {
		return nil, b2core.WrapError(b2core.KindCorruption, "schunk from_buffer", err)
	}

	var sidecar map[int]specialSidecarEntry
	vlLayers := h.VLMetaLayers
	for i, l := range vlLayers {
		if l.Name == specialSidecarName {
			sidecar, err = decodeSpecialSidecar(l.Content)
			if err != nil {
				return nil, b2core.WrapError(b2core.KindCorruption, "schunk from_buffer: special sidecar", err)
			}
			vlLayers = append(append([]frame.MetaLayer(nil), vlLayers[:i]...), vlLayers[i+1:]...)
			break
		}
	}

	s := New(cp, dp, WithChunksize(h.ChunksizeHint))
	s.typesize = h.Typesize
	s.header.MetaLayers = h.MetaLayers
	s.header.VLMetaLayers = vlLayers

	s.chunks = make([]Chunk, len(entries))
	for i, e := range entries {
		if e.Special {
			se, ok := sidecar[i]
			if !ok {
				return nil, b2core.NewError(b2core.KindCorruption, "schunk from_buffer: missing special chunk metadata")
			}
			nitems := int64(0)
			if se.typesize > 0 {
				nitems = se.nbytes / se.typesize
			}
			special, err := chunk.EncodeSpecial(chunk.SpecialKind(e.SpecialKind), nitems, se.typesize, se.value)
			if err != nil {
				return nil, b2core.WrapError(b2core.KindCorruption, "schunk from_buffer: rebuild special chunk", err)
			}
			s.chunks[i] = Chunk{
				Bytes:           special,
				Special:         true,
				SpecialKind:     e.SpecialKind,
				SpecialTypesize: se.typesize,
				SpecialValue:    se.value,
				Nbytes:          se.nbytes,
			}
			continue
		}
		b := e.Bytes
		if copy {
			b = append([]byte(nil), e.Bytes...)
		}
		hdr, err := chunkHeaderOf(b)
		if err != nil {
			return nil, b2core.WrapError(b2core.KindCorruption, "schunk from_buffer: parse chunk", err)
		}
		s.chunks[i] = Chunk{
			Bytes:  b,
			Owned:  copy,
			Nbytes: hdr.Nbytes,
			Cbytes: int64(len(b)),
		}
	}
	s.nbytes = h.Nbytes
	s.cbytes = h.Cbytes
	return s, nil
}
