package ioh

import (
	"path/filepath"
	"testing"
)

func TestMemHandleReadWriteRoundTrip(t *testing.T) {
	h, err := Open("mem://roundtrip-test", ModeCreate)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	want := []byte("hello, frame")
	if _, err := h.WriteAt(want, 10); err != nil {
		t.Fatal(err)
	}
	got := make([]byte, len(want))
	if _, err := h.ReadAt(got, 10); err != nil {
		t.Fatal(err)
	}
	if string(got) != string(want) {
		t.Fatalf("ReadAt = %q, want %q", got, want)
	}

	size, err := h.Size()
	if err != nil {
		t.Fatal(err)
	}
	if size != 10+int64(len(want)) {
		t.Fatalf("Size() = %d, want %d", size, 10+int64(len(want)))
	}

	if err := h.Truncate(5); err != nil {
		t.Fatal(err)
	}
	size, _ = h.Size()
	if size != 5 {
		t.Fatalf("Size() after truncate = %d, want 5", size)
	}

	Destroy("mem://roundtrip-test")
}

func TestFileHandleReadWriteRoundTrip(t *testing.T) {
	dir := t.TempDir()
	uri := "file://" + filepath.Join(dir, "frame.bin")

	h, err := Open(uri, ModeCreate)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte("on-disk frame bytes")
	if _, err := h.WriteAt(want, 0); err != nil {
		t.Fatal(err)
	}
	if err := h.Close(); err != nil {
		t.Fatal(err)
	}

	h2, err := Open(uri, ModeRead)
	if err != nil {
		t.Fatal(err)
	}
	defer h2.Close()
	got := make([]byte, len(want))
	if _, err := h2.ReadAt(got, 0); err != nil {
		t.Fatal(err)
	}
	if string(got) != string(want) {
		t.Fatalf("ReadAt = %q, want %q", got, want)
	}

	if _, err := h2.WriteAt([]byte("x"), 0); err != ErrReadOnly {
		t.Fatalf("WriteAt on read-only handle = %v, want ErrReadOnly", err)
	}
}

func TestOpenUnknownScheme(t *testing.T) {
	if _, err := Open("ftp://nope", ModeRead); err == nil {
		t.Fatal("expected error for unregistered scheme")
	}
}
