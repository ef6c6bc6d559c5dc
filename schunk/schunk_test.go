package schunk

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/b2lib/b2core"
	"github.com/b2lib/b2core/internal/chunk"
)

func testParams() (b2core.CParams, b2core.DParams) {
	cp := b2core.NewCParams(b2core.WithTypesize(4), b2core.WithLevel(5), b2core.WithNThreads(2))
	dp := b2core.NewDParams(b2core.WithDNThreads(2))
	return cp, dp
}

func TestAppendBufferAndDecompress(t *testing.T) {
	cp, dp := testParams()
	s := New(cp, dp, WithChunksize(4096))
	defer s.Close()

	bufs := [][]byte{
		bytes.Repeat([]byte{1, 2, 3, 4}, 256),
		bytes.Repeat([]byte{5, 6, 7, 8}, 256),
		bytes.Repeat([]byte{9, 10, 11, 12}, 256),
	}
	for _, b := range bufs {
		if err := s.AppendBuffer(b); err != nil {
			t.Fatal(err)
		}
	}
	if s.Nchunks() != 3 {
		t.Fatalf("Nchunks() = %d, want 3", s.Nchunks())
	}
	if s.Nbytes() != 3*1024 {
		t.Fatalf("Nbytes() = %d, want %d", s.Nbytes(), 3*1024)
	}

	for i, want := range bufs {
		dst := make([]byte, len(want))
		n, err := s.DecompressChunk(i, dst)
		if err != nil {
			t.Fatalf("chunk %d: %v", i, err)
		}
		if !bytes.Equal(dst[:n], want) {
			t.Fatalf("chunk %d: round-trip mismatch", i)
		}
	}
}

func TestInsertDeleteOrdering(t *testing.T) {
	cp, dp := testParams()
	s := New(cp, dp, WithChunksize(4096))
	defer s.Close()

	labels := []byte{1, 2, 4} // chunk i filled with labels[i] repeated
	for _, l := range labels {
		if err := s.AppendBuffer(bytes.Repeat([]byte{l}, 4096)); err != nil {
			t.Fatal(err)
		}
	}
	out3, err := s.ctx.Compress(bytes.Repeat([]byte{3}, 4096))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.InsertChunk(2, out3, true); err != nil {
		t.Fatal(err)
	}
	// now order should be 1,2,3,4
	want := []byte{1, 2, 3, 4}
	if s.Nchunks() != len(want) {
		t.Fatalf("Nchunks() = %d, want %d", s.Nchunks(), len(want))
	}
	for i, l := range want {
		dst := make([]byte, 4096)
		n, err := s.DecompressChunk(i, dst)
		if err != nil {
			t.Fatalf("chunk %d: %v", i, err)
		}
		if !bytes.Equal(dst[:n], bytes.Repeat([]byte{l}, 4096)) {
			t.Fatalf("chunk %d: want label %d", i, l)
		}
	}

	if err := s.DeleteChunk(1); err != nil {
		t.Fatal(err)
	}
	wantAfterDelete := []byte{1, 3, 4}
	if s.Nchunks() != len(wantAfterDelete) {
		t.Fatalf("Nchunks() after delete = %d, want %d", s.Nchunks(), len(wantAfterDelete))
	}
	for i, l := range wantAfterDelete {
		dst := make([]byte, 4096)
		n, err := s.DecompressChunk(i, dst)
		if err != nil {
			t.Fatalf("chunk %d: %v", i, err)
		}
		if !bytes.Equal(dst[:n], bytes.Repeat([]byte{l}, 4096)) {
			t.Fatalf("chunk %d after delete: want label %d", i, l)
		}
	}
}

func TestFillSpecialZero(t *testing.T) {
	cp, dp := testParams()
	s := New(cp, dp, WithChunksize(16)) // 4 items per chunk at typesize 4
	defer s.Close()

	if err := s.FillSpecial(10, chunk.SpecialZero, 0, nil); err != nil {
		t.Fatal(err)
	}
	// ceil(10/4) = 3 chunks
	if s.Nchunks() != 3 {
		t.Fatalf("Nchunks() = %d, want 3", s.Nchunks())
	}
	if s.Cbytes() != 0 {
		t.Fatalf("Cbytes() = %d, want 0 (special chunks are free)", s.Cbytes())
	}
	dst := make([]byte, 16)
	n, err := s.DecompressChunk(0, dst)
	if err != nil {
		t.Fatal(err)
	}
	for _, b := range dst[:n] {
		if b != 0 {
			t.Fatalf("expected all-zero fill, got %v", dst[:n])
		}
	}
}

func TestGetItemRandomAccess(t *testing.T) {
	cp, dp := testParams()
	s := New(cp, dp, WithChunksize(4096))
	defer s.Close()

	src := make([]byte, 4096)
	for i := range src {
		src[i] = byte(i)
	}
	if err := s.AppendBuffer(src); err != nil {
		t.Fatal(err)
	}

	dst := make([]byte, 4*4)
	n, err := s.GetItem(0, 10, 4, dst)
	if err != nil {
		t.Fatal(err)
	}
	want := src[10*4 : 14*4]
	if !bytes.Equal(dst[:n], want) {
		t.Fatalf("GetItem = %v, want %v", dst[:n], want)
	}
}

func TestToBufferFromBufferRoundTrip(t *testing.T) {
	cp, dp := testParams()
	s := New(cp, dp, WithChunksize(4096))
	defer s.Close()

	bufs := [][]byte{
		bytes.Repeat([]byte{1, 2, 3, 4}, 1024),
		bytes.Repeat([]byte{5, 6, 7, 8}, 1024),
		bytes.Repeat([]byte{9, 10, 11, 12}, 1024),
	}
	for _, b := range bufs {
		if err := s.AppendBuffer(b); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.MetaAdd("shape", []byte{4, 0, 0, 0}); err != nil {
		t.Fatal(err)
	}
	s.VLMetaSet("notes", []byte("hello"))

	frameBuf, err := s.ToBuffer()
	if err != nil {
		t.Fatal(err)
	}

	s2, err := FromBuffer(frameBuf, cp, dp, true)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()

	if s2.Nchunks() != 3 {
		t.Fatalf("Nchunks() = %d, want 3", s2.Nchunks())
	}
	if s2.Nbytes() != s.Nbytes() {
		t.Fatalf("Nbytes() = %d, want %d", s2.Nbytes(), s.Nbytes())
	}
	for i, want := range bufs {
		dst := make([]byte, len(want))
		n, err := s2.DecompressChunk(i, dst)
		if err != nil {
			t.Fatalf("chunk %d: %v", i, err)
		}
		if diff := cmp.Diff(want, dst[:n]); diff != "" {
			t.Fatalf("chunk %d mismatch (-want +got):\n%s", i, diff)
		}
	}
	if got, ok := s2.MetaGet("shape"); !ok || !bytes.Equal(got, []byte{4, 0, 0, 0}) {
		t.Fatalf("MetaGet(shape) = %v, %v", got, ok)
	}
	if got, ok := s2.VLMetaGet("notes"); !ok || string(got) != "hello" {
		t.Fatalf("VLMetaGet(notes) = %q, %v", got, ok)
	}
	if _, ok := s2.VLMetaGet(specialSidecarName); ok {
		t.Fatal("internal special-chunk sidecar layer leaked through VLMeta")
	}
}

func TestToBufferFromBufferWithSpecialChunks(t *testing.T) {
	cp, dp := testParams()
	s := New(cp, dp, WithChunksize(16))
	defer s.Close()

	if err := s.AppendBuffer(bytes.Repeat([]byte{7}, 16)); err != nil {
		t.Fatal(err)
	}
	if err := s.FillSpecial(4, chunk.SpecialZero, 0, nil); err != nil {
		t.Fatal(err)
	}
	valueBuf, err := chunk.EncodeSpecial(chunk.SpecialValue, 4, 4, []byte{1, 1, 1, 1})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.AppendChunk(valueBuf, false); err != nil {
		t.Fatal(err)
	}

	frameBuf, err := s.ToBuffer()
	if err != nil {
		t.Fatal(err)
	}
	s2, err := FromBuffer(frameBuf, cp, dp, true)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()

	if s2.Nchunks() != 3 {
		t.Fatalf("Nchunks() = %d, want 3", s2.Nchunks())
	}

	dst := make([]byte, 16)
	n, err := s2.DecompressChunk(1, dst)
	if err != nil {
		t.Fatal(err)
	}
	for _, b := range dst[:n] {
		if b != 0 {
			t.Fatalf("special-zero chunk after round trip = %v, want all zero", dst[:n])
		}
	}

	n, err = s2.DecompressChunk(2, dst)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i+4 <= n; i += 4 {
		if !bytes.Equal(dst[i:i+4], []byte{1, 1, 1, 1}) {
			t.Fatalf("special-value chunk after round trip = %v", dst[:n])
		}
	}
}
