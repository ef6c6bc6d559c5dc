package chunk

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/b2lib/b2core/internal/codec"
	"github.com/b2lib/b2core/internal/filter"
)

func testParams(typesize int64, shuffle bool) (Params, *codec.Registry) {
	reg := codec.NewDefaultRegistry()
	cdc, _ := reg.Lookup(codec.IDZstd)
	var pipeline filter.Pipeline
	if shuffle {
		pipeline.Slots[0] = filter.Slot{ID: filter.ByteShuffle}
	}
	return Params{
		Typesize:  typesize,
		Blocksize: 256,
		Filters:   pipeline,
		FilterReg: filter.NewRegistry(),
		Codec:     cdc,
		CodecReg:  reg,
		Level:     5,
		NThreads:  4,
	}, reg
}

func TestCompressDecompressRoundTrip(t *testing.T) {
	src := make([]byte, 4000)
	r := rand.New(rand.NewSource(1))
	for i := range src {
		src[i] = byte(r.Intn(4)) // low-entropy, compressible
	}
	p, _ := testParams(4, true)

	out, err := Compress(src, p)
	if err != nil {
		t.Fatal(err)
	}

	got, err := Decompress(out, len(src), p, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, src) {
		t.Fatal("decompressed output does not match original")
	}
}

func TestCompressDecompressEmptySrc(t *testing.T) {
	p, _ := testParams(1, false)
	out, err := Compress(nil, p)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Decompress(out, 0, p, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("got %d bytes, want 0", len(got))
	}
}

func TestDecompressWithMaskSkipsBlocks(t *testing.T) {
	src := bytes.Repeat([]byte{1, 2, 3, 4}, 200) // 800 bytes, 4-byte typesize
	p, _ := testParams(4, true)
	out, err := Compress(src, p)
	if err != nil {
		t.Fatal(err)
	}
	nblocks := (len(src) + 255) / 256
	mask := make([]bool, nblocks)
	mask[0] = true // skip block 0

	dst := make([]byte, len(src))
	got, err := Decompress(out, len(dst), p, mask)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got[256:], src[256:]) {
		t.Fatal("non-masked region should match original")
	}
}

func TestSpecialChunkRoundTrip(t *testing.T) {
	buf, err := EncodeSpecial(SpecialZero, 100, 4, nil)
	if err != nil {
		t.Fatal(err)
	}
	p, _ := testParams(4, false)
	out, err := Decompress(buf, 400, p, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 400 {
		t.Fatalf("len = %d, want 400", len(out))
	}
	for _, b := range out {
		if b != 0 {
			t.Fatal("SpecialZero chunk should decompress to all zero bytes")
		}
	}
}

func TestSpecialValueChunkRoundTrip(t *testing.T) {
	val := []byte{0xAB, 0xCD, 0xEF, 0x01}
	buf, err := EncodeSpecial(SpecialValue, 10, 4, val)
	if err != nil {
		t.Fatal(err)
	}
	p, _ := testParams(4, false)
	out, err := Decompress(buf, 40, p, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < len(out); i += 4 {
		if !bytes.Equal(out[i:i+4], val) {
			t.Fatalf("element %d = %x, want %x", i/4, out[i:i+4], val)
		}
	}
}
