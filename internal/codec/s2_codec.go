package codec

import "github.com/klauspost/compress/s2"

// s2Codec is the built-in fast byte-level codec (spec.md §1's "fast
// byte-level codecs" class, blosclz's analogue). Library:
// github.com/klauspost/compress/s2, part of the teacher's declared
// klauspost/compress dependency.
type s2Codec struct{}

func newS2Codec() *s2Codec { return &s2Codec{} }

func (c *s2Codec) ID() int      { return IDS2 }
func (c *s2Codec) Name() string { return "s2" }

func (c *s2Codec) Compress(src, dst []byte, level int, ctx *Context) (int, error) {
	needed := s2.MaxEncodedLen(len(src))
	if needed < 0 || needed > len(dst) {
		return 0, nil // incompressible at this capacity, per spec.md §4.2
	}
	var out []byte
	if level >= 7 {
		out = s2.EncodeBetter(dst[:0:len(dst)], src)
	} else {
		out = s2.Encode(dst[:0:len(dst)], src)
	}
	if len(out) >= len(src) {
		return 0, nil
	}
	return len(out), nil
}

func (c *s2Codec) Decompress(src, dst []byte, ctx *Context) (int, error) {
	n, err := s2.DecodedLen(src)
	if err != nil {
		return -1, err
	}
	if n > len(dst) {
		return -1, ErrDstTooSmall
	}
	out, err := s2.Decode(dst[:n], src)
	if err != nil {
		return -1, err
	}
	return len(out), nil
}
