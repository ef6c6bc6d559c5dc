package b2nd

import (
	"encoding/binary"
)

// metaLayerName is the fixed metadata layer name the b2nd geometry is
// stored under (spec.md §4.8/§4.9). catervaLayerName is accepted on read
// only, for backward compatibility with the original project's prior name
// (spec.md §9 "caterva-named backward-compatibility metadata layer").
const (
	metaLayerName    = "b2nd"
	catervaLayerName = "caterva"
)

// Meta is the decoded form of the b2nd metadata layer: a packed record of
// version, ndim, shape, chunkshape, blockshape, and a dtype descriptor
// (format tag + string), per spec.md §4.8 "Serialization of metadata".
type Meta struct {
	Version     byte
	NDim        int8
	Shape       []int64
	ChunkShape  []int32
	BlockShape  []int32
	DtypeFormat byte
	Dtype       string
}

const metaVersion = 1

// msgpack type prefixes used by the minimal "msgpack-like" framing this
// layer uses (spec.md: "array header 0x90|n, then per-element type
// prefix"). Only the handful of tags b2nd actually needs are implemented;
// this is not a general msgpack encoder.
const (
	mpFixArrayBase byte = 0x90
	mpUint8        byte = 0xcc
	mpInt8         byte = 0xd0
	mpInt32        byte = 0xd2
	mpInt64        byte = 0xd3
	mpStr8         byte = 0xd9
)

func appendFixArrayHeader(buf []byte, n int) []byte {
	if n < 16 {
		return append(buf, mpFixArrayBase|byte(n))
	}
	// b2nd caps ndim at MaxDim (8), so the short form always applies; the
	// long forms (0xdc/0xdd) are never exercised but are omitted rather
	// than half-implemented.
	return append(buf, mpFixArrayBase|byte(n&0x0f))
}

func appendUint8(buf []byte, v byte) []byte {
	return append(buf, mpUint8, v)
}

func appendInt8(buf []byte, v int8) []byte {
	return append(buf, mpInt8, byte(v))
}

func appendInt64(buf []byte, v int64) []byte {
	b := make([]byte, 9)
	b[0] = mpInt64
	binary.BigEndian.PutUint64(b[1:], uint64(v))
	return append(buf, b...)
}

func appendInt32(buf []byte, v int32) []byte {
	b := make([]byte, 5)
	b[0] = mpInt32
	binary.BigEndian.PutUint32(b[1:], uint32(v))
	return append(buf, b...)
}

func appendStr(buf []byte, s string) []byte {
	buf = append(buf, mpStr8, byte(len(s)))
	return append(buf, s...)
}

// EncodeMeta serializes m into the compact msgpack-like framing spec.md
// §4.8 describes: a 7-element array (version, ndim, shape, chunkshape,
// blockshape, dtype format, dtype string).
func EncodeMeta(m Meta) []byte {
	buf := appendFixArrayHeader(nil, 7)
	buf = appendUint8(buf, m.Version)
	buf = appendInt8(buf, m.NDim)

	buf = appendFixArrayHeader(buf, len(m.Shape))
	for _, v := range m.Shape {
		buf = appendInt64(buf, v)
	}
	buf = appendFixArrayHeader(buf, len(m.ChunkShape))
	for _, v := range m.ChunkShape {
		buf = appendInt32(buf, v)
	}
	buf = appendFixArrayHeader(buf, len(m.BlockShape))
	for _, v := range m.BlockShape {
		buf = appendInt32(buf, v)
	}
	buf = appendUint8(buf, m.DtypeFormat)
	buf = appendStr(buf, m.Dtype)
	return buf
}

type metaReader struct {
	buf []byte
	off int
}

func (r *metaReader) arrayLen() (int, error) {
	if r.off >= len(r.buf) {
		return 0, ErrInvalidGeometry
	}
	tag := r.buf[r.off]
	if tag&0xf0 != mpFixArrayBase {
		return 0, ErrInvalidGeometry
	}
	r.off++
	return int(tag & 0x0f), nil
}

func (r *metaReader) uint8() (byte, error) {
	if r.off+2 > len(r.buf) || r.buf[r.off] != mpUint8 {
		return 0, ErrInvalidGeometry
	}
	v := r.buf[r.off+1]
	r.off += 2
	return v, nil
}

func (r *metaReader) int8() (int8, error) {
	if r.off+2 > len(r.buf) || r.buf[r.off] != mpInt8 {
		return 0, ErrInvalidGeometry
	}
	v := int8(r.buf[r.off+1])
	r.off += 2
	return v, nil
}

func (r *metaReader) int64() (int64, error) {
	if r.off+9 > len(r.buf) || r.buf[r.off] != mpInt64 {
		return 0, ErrInvalidGeometry
	}
	v := int64(binary.BigEndian.Uint64(r.buf[r.off+1 : r.off+9]))
	r.off += 9
	return v, nil
}

func (r *metaReader) int32() (int32, error) {
	if r.off+5 > len(r.buf) || r.buf[r.off] != mpInt32 {
		return 0, ErrInvalidGeometry
	}
	v := int32(binary.BigEndian.Uint32(r.buf[r.off+1 : r.off+5]))
	r.off += 5
	return v, nil
}

func (r *metaReader) str() (string, error) {
	if r.off+2 > len(r.buf) || r.buf[r.off] != mpStr8 {
		return "", ErrInvalidGeometry
	}
	n := int(r.buf[r.off+1])
	r.off += 2
	if r.off+n > len(r.buf) {
		return "", ErrInvalidGeometry
	}
	s := string(r.buf[r.off : r.off+n])
	r.off += n
	return s, nil
}

// DecodeMeta parses a b2nd (or caterva-fallback) metadata layer built by
// EncodeMeta.
func DecodeMeta(buf []byte) (Meta, error) {
	r := &metaReader{buf: buf}
	if n, err := r.arrayLen(); err != nil || n != 7 {
		return Meta{}, ErrInvalidGeometry
	}
	var m Meta
	var err error
	if m.Version, err = r.uint8(); err != nil {
		return Meta{}, err
	}
	if m.NDim, err = r.int8(); err != nil {
		return Meta{}, err
	}
	shapeLen, err := r.arrayLen()
	if err != nil {
		return Meta{}, err
	}
	m.Shape = make([]int64, shapeLen)
	for i := range m.Shape {
		if m.Shape[i], err = r.int64(); err != nil {
			return Meta{}, err
		}
	}
	csLen, err := r.arrayLen()
	if err != nil {
		return Meta{}, err
	}
	m.ChunkShape = make([]int32, csLen)
	for i := range m.ChunkShape {
		if m.ChunkShape[i], err = r.int32(); err != nil {
			return Meta{}, err
		}
	}
	bsLen, err := r.arrayLen()
	if err != nil {
		return Meta{}, err
	}
	m.BlockShape = make([]int32, bsLen)
	for i := range m.BlockShape {
		if m.BlockShape[i], err = r.int32(); err != nil {
			return Meta{}, err
		}
	}
	if m.DtypeFormat, err = r.uint8(); err != nil {
		return Meta{}, err
	}
	if m.Dtype, err = r.str(); err != nil {
		return Meta{}, err
	}
	return m, nil
}
