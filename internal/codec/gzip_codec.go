package codec

import (
	"bytes"
	"io"

	"github.com/klauspost/pgzip"
)

// gzipCodec is the built-in parallel-friendly gzip-class codec. Library:
// github.com/klauspost/pgzip, the same dependency distri's own initrd
// builder uses (cmd/distri/initrd.go: "zw := pgzip.NewWriter(out)") to
// compress large images faster by splitting the stream into
// independently-compressed blocks internally; here it plays the role of
// spec.md §1's "zstd-class general LZ" sibling compressor, registered
// under its own id so a chunk can request it explicitly.
type gzipCodec struct{}

func newGzipCodec() *gzipCodec { return &gzipCodec{} }

func (c *gzipCodec) ID() int      { return IDGzip }
func (c *gzipCodec) Name() string { return "pgzip" }

func (c *gzipCodec) Compress(src, dst []byte, level int, ctx *Context) (int, error) {
	if level <= 0 {
		level = pgzip.DefaultCompression
	} else if level > 9 {
		level = 9
	}
	var buf bytes.Buffer
	zw, err := pgzip.NewWriterLevel(&buf, level)
	if err != nil {
		return -1, err
	}
	if _, err := zw.Write(src); err != nil {
		zw.Close()
		return -1, err
	}
	if err := zw.Close(); err != nil {
		return -1, err
	}
	if buf.Len() >= len(dst) {
		return 0, nil
	}
	return copy(dst, buf.Bytes()), nil
}

func (c *gzipCodec) Decompress(src, dst []byte, ctx *Context) (int, error) {
	zr, err := pgzip.NewReader(bytes.NewReader(src))
	if err != nil {
		return -1, err
	}
	defer zr.Close()
	n := 0
	for {
		if n == len(dst) {
			// Confirm there is no more data than dst_capacity allows.
			var probe [1]byte
			if m, _ := zr.Read(probe[:]); m > 0 {
				return -1, ErrDstTooSmall
			}
			break
		}
		m, err := zr.Read(dst[n:])
		n += m
		if err == io.EOF {
			break
		}
		if err != nil {
			return -1, err
		}
	}
	return n, nil
}
