package frame

import (
	"github.com/b2lib/b2core/internal/bitutil"
)

// ChunkEntry is one chunk as frame.Marshal sees it: either stored bytes, or
// a special (constant-fill) chunk that costs no frame storage at all
// (spec.md §6.2 "special chunks encoded by a sentinel range").
type ChunkEntry struct {
	Bytes       []byte // nil when Special
	Special     bool
	SpecialKind byte
}

const fixedHeaderSize = 4 /*magic*/ + 1 /*version*/ + 1 /*flags*/ + 4 /*typesize*/ +
	8 /*chunksize hint*/ + 8 /*nchunks*/ + 8 /*nbytes*/ + 8 /*cbytes*/

// Marshal serializes h's metadata layers plus chunks into one contiguous
// buffer (spec.md §6.2). cparamsImage/dparamsImage are opaque blobs owned
// by the root package's cparams/dparams encoding.
func Marshal(h *Header, chunks []ChunkEntry, cparamsImage, dparamsImage []byte) []byte {
	var cbytesStored int64
	for _, c := range chunks {
		if !c.Special {
			cbytesStored += int64(len(c.Bytes))
		}
	}

	flags := FlagLittleEndian
	if h.Checksummed {
		flags |= FlagChecksum
	}

	buf := make([]byte, 0, fixedHeaderSize+len(cparamsImage)+len(dparamsImage)+1024)
	buf = append(buf, Magic...)
	buf = append(buf, Version)
	buf = append(buf, flags)
	ts := make([]byte, 4)
	bitutil.PutUint32LE(ts, uint32(h.Typesize))
	buf = append(buf, ts...)
	field8 := make([]byte, 8)
	bitutil.PutUint64LE(field8, uint64(h.ChunksizeHint))
	buf = append(buf, field8...)
	bitutil.PutUint64LE(field8, uint64(len(chunks)))
	buf = append(buf, field8...)
	bitutil.PutUint64LE(field8, uint64(h.Nbytes))
	buf = append(buf, field8...)
	bitutil.PutUint64LE(field8, uint64(cbytesStored))
	buf = append(buf, field8...)

	lenField := make([]byte, 4)
	bitutil.PutUint32LE(lenField, uint32(len(cparamsImage)))
	buf = append(buf, lenField...)
	buf = append(buf, cparamsImage...)
	bitutil.PutUint32LE(lenField, uint32(len(dparamsImage)))
	buf = append(buf, lenField...)
	buf = append(buf, dparamsImage...)

	buf = append(buf, encodeLayers(h.MetaLayers)...)
	buf = append(buf, encodeLayers(h.VLMetaLayers)...)

	commentLen := make([]byte, 2)
	bitutil.PutUint16LE(commentLen, uint16(len(h.Comment)))
	buf = append(buf, commentLen...)
	buf = append(buf, h.Comment...)

	offsets := make([]int64, len(chunks))
	var sumUncompressed []byte
	for i, c := range chunks {
		if c.Special {
			offsets[i] = SpecialSentinel | int64(c.SpecialKind)
			continue
		}
		offsets[i] = int64(len(buf))
		buf = append(buf, c.Bytes...)
		sumUncompressed = append(sumUncompressed, c.Bytes...)
	}

	if h.Checksummed {
		sum := make([]byte, 4)
		bitutil.PutUint32LE(sum, bitutil.Checksum32(sumUncompressed))
		buf = append(buf, sum...)
	}

	trailer := make([]byte, 8*len(offsets))
	for i, off := range offsets {
		bitutil.PutInt64LE(trailer[i*8:i*8+8], off)
	}
	buf = append(buf, trailer...)

	return buf
}

// Unmarshal parses a contiguous frame built by Marshal, returning the
// header and the chunks section sliced out (aliasing buf; callers that
// need to retain chunk bytes past buf's lifetime must copy).
func Unmarshal(buf []byte) (*Header, []ChunkEntry, error) {
	if len(buf) < fixedHeaderSize {
		return nil, nil, ErrTruncated
	}
	if string(buf[0:4]) != Magic {
		return nil, nil, ErrBadMagic
	}
	version := buf[4]
	if version != Version {
		return nil, nil, ErrVersion
	}
	flags := buf[5]
	off := 6
	typesize := int64(bitutil.Uint32LE(buf[off : off+4]))
	off += 4
	chunksizeHint := int64(bitutil.Uint64LE(buf[off : off+8]))
	off += 8
	nchunks := int64(bitutil.Uint64LE(buf[off : off+8]))
	off += 8
	nbytes := int64(bitutil.Uint64LE(buf[off : off+8]))
	off += 8
	cbytes := int64(bitutil.Uint64LE(buf[off : off+8]))
	off += 8

	if off+4 > len(buf) {
		return nil, nil, ErrTruncated
	}
	cpLen := int(bitutil.Uint32LE(buf[off : off+4]))
	off += 4
	if off+cpLen > len(buf) {
		return nil, nil, ErrTruncated
	}
	off += cpLen // cparams image itself is owned/decoded by the root package
	if off+4 > len(buf) {
		return nil, nil, ErrTruncated
	}
	dpLen := int(bitutil.Uint32LE(buf[off : off+4]))
	off += 4
	if off+dpLen > len(buf) {
		return nil, nil, ErrTruncated
	}
	off += dpLen

	metaLayers, n, err := decodeLayers(buf[off:])
	if err != nil {
		return nil, nil, err
	}
	off += n
	vlLayers, n, err := decodeLayers(buf[off:])
	if err != nil {
		return nil, nil, err
	}
	off += n

	if off+2 > len(buf) {
		return nil, nil, ErrTruncated
	}
	commentLen := int(bitutil.Uint16LE(buf[off : off+2]))
	off += 2
	if off+commentLen > len(buf) {
		return nil, nil, ErrTruncated
	}
	comment := string(buf[off : off+commentLen])
	off += commentLen

	checksummed := flags&FlagChecksum != 0
	trailerSize := int(nchunks) * 8
	checksumSize := 0
	if checksummed {
		checksumSize = 4
	}
	if len(buf) < trailerSize+checksumSize {
		return nil, nil, ErrTruncated
	}
	trailerOff := len(buf) - trailerSize
	checksumOff := trailerOff - checksumSize
	bodyEnd := checksumOff

	trailer := buf[trailerOff:]
	offsets := make([]int64, nchunks)
	for i := range offsets {
		offsets[i] = bitutil.Int64LE(trailer[i*8 : i*8+8])
	}

	chunks := make([]ChunkEntry, nchunks)
	var sumUncompressed []byte
	for i, o := range offsets {
		if o < 0 {
			chunks[i] = ChunkEntry{Special: true, SpecialKind: byte(o - SpecialSentinel)}
			continue
		}
		end := bodyEnd
		for _, o2 := range offsets[i+1:] {
			if o2 >= 0 {
				end = int(o2)
				break
			}
		}
		if int(o) > len(buf) || end > len(buf) || int(o) > end {
			return nil, nil, ErrTruncated
		}
		chunks[i] = ChunkEntry{Bytes: buf[o:end]}
		sumUncompressed = append(sumUncompressed, buf[o:end]...)
	}

	if checksummed {
		want := bitutil.Uint32LE(buf[checksumOff : checksumOff+4])
		if bitutil.Checksum32(sumUncompressed) != want {
			return nil, nil, ErrChecksum
		}
	}

	h := &Header{
		Typesize:      typesize,
		ChunksizeHint: chunksizeHint,
		Nchunks:       nchunks,
		Nbytes:        nbytes,
		Cbytes:        cbytes,
		Checksummed:   checksummed,
		Comment:       comment,
		MetaLayers:    metaLayers,
		VLMetaLayers:  vlLayers,
		ChunkOffsets:  offsets,
	}
	return h, chunks, nil
}
