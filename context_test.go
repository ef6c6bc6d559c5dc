package b2core

import (
	"bytes"
	"testing"
)

func TestCompressDecompressRoundTrip(t *testing.T) {
	src := bytes.Repeat([]byte{1, 2, 3, 4, 5, 6, 7, 8}, 512)
	cp := NewCParams(WithTypesize(4), WithLevel(5), WithNThreads(4))

	out, err := Compress(src, cp)
	if err != nil {
		t.Fatal(err)
	}

	got, err := Decompress(out, len(src), NewDParams(WithDNThreads(4)))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, src) {
		t.Fatal("round-tripped data does not match original")
	}
}

func TestContextReuseAcrossCalls(t *testing.T) {
	cp := NewCParams(WithTypesize(8), WithNThreads(2))
	dp := NewDParams(WithDNThreads(2))
	ctx := NewContext(cp, dp)
	defer ctx.Destroy()

	for i := 0; i < 5; i++ {
		src := bytes.Repeat([]byte{byte(i)}, 8*64)
		out, err := ctx.Compress(src)
		if err != nil {
			t.Fatalf("iteration %d: compress: %v", i, err)
		}
		got, err := ctx.Decompress(out, len(src), nil)
		if err != nil {
			t.Fatalf("iteration %d: decompress: %v", i, err)
		}
		if !bytes.Equal(got, src) {
			t.Fatalf("iteration %d: mismatch", i)
		}
	}
}

// TestCompressLevelZeroIsAutomatic covers SPEC_FULL.md's documented
// level-0 "automatic" policy: Context.Compress must still round-trip, and
// the resolved codec/level come from tuning.AutoPolicy rather than being
// passed straight through as 0 (which no codec registers).
func TestCompressLevelZeroIsAutomatic(t *testing.T) {
	cp := NewCParams(WithTypesize(4), WithLevel(0), WithNThreads(2))
	dp := NewDParams(WithDNThreads(2))
	ctx := NewContext(cp, dp)
	defer ctx.Destroy()

	src := bytes.Repeat([]byte{1, 2, 3, 4}, 1024)
	out, err := ctx.Compress(src)
	if err != nil {
		t.Fatal(err)
	}
	got, err := ctx.Decompress(out, len(src), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, src) {
		t.Fatal("round-tripped data does not match original under automatic level")
	}
}

func TestSetNThreadsBetweenCalls(t *testing.T) {
	ctx := NewContext(NewCParams(), NewDParams())
	defer ctx.Destroy()
	ctx.SetNThreads(4)
	ctx.SetNThreads(1)
	ctx.SetNThreads(8)

	src := bytes.Repeat([]byte{9}, 2048)
	out, err := ctx.Compress(src)
	if err != nil {
		t.Fatal(err)
	}
	got, err := ctx.Decompress(out, len(src), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, src) {
		t.Fatal("mismatch after resizing pool")
	}
}
