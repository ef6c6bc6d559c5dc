package schunk

import (
	"github.com/b2lib/b2core"
	"github.com/b2lib/b2core/internal/chunk"
)

// AppendBuffer compresses src into one new chunk and appends it (spec.md
// §4.5 "append_buffer(src, nbytes)").
func (s *Schunk) AppendBuffer(src []byte) error {
	out, err := s.ctx.Compress(src)
	if err != nil {
		return err
	}
	return s.AppendChunk(out, false)
}

// AppendChunk appends an already-compressed chunk, either by reference
// (copy=false: Schunk aliases the caller's slice) or by copy (spec.md §4.5
// "append_chunk(chunk, copy)").
func (s *Schunk) AppendChunk(chunkBytes []byte, copy bool) error {
	c, err := s.entryFromBytes(chunkBytes, copy)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = append(s.chunks, c)
	s.nbytes += c.Nbytes
	s.cbytes += c.Cbytes
	return nil
}

func (s *Schunk) entryFromBytes(chunkBytes []byte, doCopy bool) (Chunk, error) {
	hdr, err := chunkHeaderOf(chunkBytes)
	if err != nil {
		return Chunk{}, b2core.WrapError(b2core.KindCorruption, "parse chunk header", err)
	}
	b := chunkBytes
	if doCopy {
		b = append([]byte(nil), chunkBytes...)
	}
	cbytes := int64(len(b))
	isSpecial := hdr.Special != chunk.SpecialNone
	if isSpecial {
		cbytes = 0 // special chunks cost no stored bytes, spec.md §4.5 invariant
	}
	c := Chunk{
		Bytes:       b,
		Owned:       doCopy,
		Special:     isSpecial,
		SpecialKind: byte(hdr.Special),
		Nbytes:      hdr.Nbytes,
		Cbytes:      cbytes,
	}
	if isSpecial {
		c.SpecialTypesize = hdr.Typesize
		if hdr.Special == chunk.SpecialValue {
			c.SpecialValue = append([]byte(nil), b[hdr.Size():]...)
		}
	}
	return c, nil
}

// UpdateChunk replaces chunk i (spec.md §4.5 "update_chunk(i, chunk,
// copy)").
func (s *Schunk) UpdateChunk(i int, chunkBytes []byte, copy bool) error {
	c, err := s.entryFromBytes(chunkBytes, copy)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.chunks) {
		return b2core.ErrInvalidIndex
	}
	old := s.chunks[i]
	s.nbytes += c.Nbytes - old.Nbytes
	s.cbytes += c.Cbytes - old.Cbytes
	s.chunks[i] = c
	return nil
}

// InsertChunk inserts before position i, shifting later chunks (spec.md
// §4.5 "insert_chunk(i, chunk, copy)").
func (s *Schunk) InsertChunk(i int, chunkBytes []byte, copy bool) error {
	c, err := s.entryFromBytes(chunkBytes, copy)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i > len(s.chunks) {
		return b2core.ErrInvalidIndex
	}
	s.chunks = append(s.chunks, Chunk{})
	for j := len(s.chunks) - 1; j > i; j-- {
		s.chunks[j] = s.chunks[j-1]
	}
	s.chunks[i] = c
	s.nbytes += c.Nbytes
	s.cbytes += c.Cbytes
	return nil
}

// DeleteChunk removes chunk i (spec.md §4.5 "delete_chunk(i)").
func (s *Schunk) DeleteChunk(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.chunks) {
		return b2core.ErrInvalidIndex
	}
	old := s.chunks[i]
	s.chunks = append(s.chunks[:i], s.chunks[i+1:]...)
	s.nbytes -= old.Nbytes
	s.cbytes -= old.Cbytes
	return nil
}

// FillSpecial appends ceil(nitems/items_per_chunk) special chunks of the
// given kind (spec.md §4.5 "fill_special(nitems, kind, chunksize)").
// chunksize, if non-zero, overrides the Schunk's configured chunk size for
// this call only.
func (s *Schunk) FillSpecial(nitems int64, kind chunk.SpecialKind, chunksize int64, value []byte) error {
	s.mu.Lock()
	cs := s.chunksize
	ts := s.typesize
	s.mu.Unlock()
	if chunksize > 0 {
		cs = chunksize
	}
	itemsPerChunk := cs
	if ts > 0 {
		itemsPerChunk = cs / ts
	}
	if itemsPerChunk <= 0 {
		return b2core.ErrInvalidParam
	}
	remaining := nitems
	for remaining > 0 {
		n := itemsPerChunk
		if n > remaining {
			n = remaining
		}
		buf, err := chunk.EncodeSpecial(kind, n, ts, value)
		if err != nil {
			return b2core.WrapError(b2core.KindData, "fill_special", err)
		}
		if err := s.AppendChunk(buf, false); err != nil {
			return err
		}
		remaining -= n
	}
	return nil
}

// GetLazychunk returns chunk i's bytes (spec.md §4.5 "get_lazychunk(i, &out,
// &needs_free)"). needsFree mirrors the C API's semantics for callers that
// care, though Go's GC makes it moot: it is true only when the returned
// slice is a fresh allocation the caller doesn't otherwise own.
func (s *Schunk) GetLazychunk(i int) (out []byte, needsFree bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.chunks) {
		return nil, false, b2core.ErrInvalidIndex
	}
	return s.chunks[i].Bytes, false, nil
}

// DecompressChunk fully decompresses chunk i into dst (spec.md §4.5
// "decompress_chunk(i, dst, dst_size)").
func (s *Schunk) DecompressChunk(i int, dst []byte) (int, error) {
	s.mu.Lock()
	if i < 0 || i >= len(s.chunks) {
		s.mu.Unlock()
		return 0, b2core.ErrInvalidIndex
	}
	c := s.chunks[i]
	s.mu.Unlock()

	out, err := s.ctx.Decompress(c.Bytes, len(dst), nil)
	if err != nil {
		return 0, err
	}
	if len(out) > len(dst) {
		return 0, b2core.ErrMaxBufsizeExceeded
	}
	n := copy(dst, out)
	return n, nil
}

// GetItem implements random access into chunk i (spec.md §4.5 "getitem(i,
// item_index, count, dst, dst_size)"): decompresses only chunk i, then
// copies count*typesize bytes starting at item_index.
func (s *Schunk) GetItem(i int, itemIndex, count int64, dst []byte) (int, error) {
	s.mu.Lock()
	ts := s.typesize
	if i < 0 || i >= len(s.chunks) {
		s.mu.Unlock()
		return 0, b2core.ErrInvalidIndex
	}
	c := s.chunks[i]
	s.mu.Unlock()

	full, err := s.ctx.Decompress(c.Bytes, int(c.Nbytes), nil)
	if err != nil {
		return 0, err
	}
	start := itemIndex * ts
	end := start + count*ts
	if start < 0 || end > int64(len(full)) {
		return 0, b2core.ErrInvalidIndex
	}
	if end-start > int64(len(dst)) {
		return 0, b2core.ErrMaxBufsizeExceeded
	}
	n := copy(dst, full[start:end])
	return n, nil
}
