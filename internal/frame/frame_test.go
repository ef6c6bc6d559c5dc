package frame

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestContiguousRoundTrip(t *testing.T) {
	h := &Header{
		Typesize:      4,
		ChunksizeHint: 4096,
		Nbytes:        4096 * 3,
		Checksummed:   true,
	}
	if err := h.MetaAdd("b2nd", []byte{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	h.VLMetaSet("note", []byte("hello"))

	chunks := []ChunkEntry{
		{Bytes: bytes.Repeat([]byte{0xAA}, 100)},
		{Special: true, SpecialKind: 1},
		{Bytes: bytes.Repeat([]byte{0xBB}, 50)},
	}

	buf := Marshal(h, chunks, []byte("cparams"), []byte("dparams"))

	gotHeader, gotChunks, err := Unmarshal(buf)
	if err != nil {
		t.Fatal(err)
	}
	if gotHeader.Typesize != h.Typesize {
		t.Fatalf("Typesize = %d, want %d", gotHeader.Typesize, h.Typesize)
	}
	if gotHeader.Nchunks != int64(len(chunks)) {
		t.Fatalf("Nchunks = %d, want %d", gotHeader.Nchunks, len(chunks))
	}
	if got, ok := gotHeader.MetaGet("b2nd"); !ok || !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Fatalf("MetaGet(b2nd) = %v, %v", got, ok)
	}
	if got, ok := gotHeader.VLMetaGet("note"); !ok || string(got) != "hello" {
		t.Fatalf("VLMetaGet(note) = %q, %v", got, ok)
	}

	for i, c := range chunks {
		if c.Special {
			if !gotChunks[i].Special || gotChunks[i].SpecialKind != c.SpecialKind {
				t.Fatalf("chunk %d: special mismatch: %+v", i, gotChunks[i])
			}
			continue
		}
		if !bytes.Equal(gotChunks[i].Bytes, c.Bytes) {
			t.Fatalf("chunk %d: bytes mismatch", i)
		}
	}
}

func TestContiguousByteForByteRoundTrip(t *testing.T) {
	h := &Header{Typesize: 1, Nbytes: 10}
	chunks := []ChunkEntry{{Bytes: []byte("0123456789")}}
	buf := Marshal(h, chunks, nil, nil)

	gotHeader, gotChunks, err := Unmarshal(buf)
	if err != nil {
		t.Fatal(err)
	}
	buf2 := Marshal(gotHeader, gotChunks, nil, nil)
	if !bytes.Equal(buf, buf2) {
		t.Fatalf("re-marshal not byte-identical:\n%v\n%v", buf, buf2)
	}
}

func TestChecksumDetectsCorruption(t *testing.T) {
	h := &Header{Typesize: 1, Nbytes: 4, Checksummed: true}
	chunks := []ChunkEntry{{Bytes: []byte("abcd")}}
	buf := Marshal(h, chunks, nil, nil)
	bodyByte := len(buf) - 4 /*checksum*/ - 8 /*trailer*/ - 1
	buf[bodyByte] ^= 0xFF // corrupt the last body byte

	if _, _, err := Unmarshal(buf); err != ErrChecksum {
		t.Fatalf("Unmarshal on corrupted buffer = %v, want ErrChecksum", err)
	}
}

func TestMetaUpdateRejectsLengthChange(t *testing.T) {
	h := &Header{}
	if err := h.MetaAdd("x", []byte("abc")); err != nil {
		t.Fatal(err)
	}
	if err := h.MetaUpdate("x", []byte("ab")); err == nil {
		t.Fatal("expected error updating meta layer to a different length")
	}
	if err := h.MetaUpdate("x", []byte("xyz")); err != nil {
		t.Fatal(err)
	}
	if got, _ := h.MetaGet("x"); !bytes.Equal(got, []byte("xyz")) {
		t.Fatalf("MetaGet(x) = %q", got)
	}
}

func TestMetaAddDuplicateRejected(t *testing.T) {
	h := &Header{}
	if err := h.MetaAdd("x", []byte("a")); err != nil {
		t.Fatal(err)
	}
	if err := h.MetaAdd("x", []byte("b")); err != ErrDuplicateName {
		t.Fatalf("MetaAdd duplicate = %v, want ErrDuplicateName", err)
	}
}

func TestVLMetaLifecycle(t *testing.T) {
	h := &Header{}
	h.VLMetaSet("a", []byte("1"))
	h.VLMetaSet("a", []byte("longer value"))
	got, ok := h.VLMetaGet("a")
	if !ok || string(got) != "longer value" {
		t.Fatalf("VLMetaGet after resize = %q, %v", got, ok)
	}
	if !h.VLMetaDelete("a") {
		t.Fatal("VLMetaDelete(a) = false")
	}
	if _, ok := h.VLMetaGet("a"); ok {
		t.Fatal("VLMetaGet after delete still found entry")
	}
}

func TestSparseRoundTrip(t *testing.T) {
	dir := t.TempDir()
	h := &Header{Typesize: 4, Nbytes: 200}
	chunks := []ChunkEntry{
		{Bytes: bytes.Repeat([]byte{1}, 100)},
		{Special: true, SpecialKind: 0},
		{Bytes: bytes.Repeat([]byte{2}, 100)},
	}
	if err := WriteSparse(dir, h, chunks, nil, nil); err != nil {
		t.Fatal(err)
	}
	gotHeader, gotChunks, err := ReadSparse(dir)
	if err != nil {
		t.Fatal(err)
	}
	if !gotHeader.Sparse {
		t.Fatal("ReadSparse did not set Sparse")
	}
	for i, c := range chunks {
		if c.Special {
			if !gotChunks[i].Special {
				t.Fatalf("chunk %d should be special", i)
			}
			continue
		}
		if !bytes.Equal(gotChunks[i].Bytes, c.Bytes) {
			t.Fatalf("chunk %d mismatch", i)
		}
	}
}

func TestExportImportSparseCPIO(t *testing.T) {
	dir := t.TempDir()
	h := &Header{Typesize: 1, Nbytes: 10}
	chunks := []ChunkEntry{{Bytes: []byte("helloworld")}}
	if err := WriteSparse(dir, h, chunks, nil, nil); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := ExportSparseCPIO(dir, &buf); err != nil {
		t.Fatal(err)
	}

	dir2 := t.TempDir()
	if err := ImportSparseCPIO(&buf, dir2); err != nil {
		t.Fatal(err)
	}

	gotHeader, gotChunks, err := ReadSparse(dir2)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(gotHeader.Nbytes, h.Nbytes); diff != "" {
		t.Fatalf("Nbytes mismatch (-got +want):\n%s", diff)
	}
	if !bytes.Equal(gotChunks[0].Bytes, chunks[0].Bytes) {
		t.Fatal("chunk bytes mismatch after cpio round trip")
	}
}
