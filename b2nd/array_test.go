package b2nd

import (
	"encoding/binary"
	"testing"

	"github.com/b2lib/b2core"
)

func testParams(ts int64) (b2core.CParams, b2core.DParams) {
	cp := b2core.NewCParams(b2core.WithTypesize(ts), b2core.WithLevel(1), b2core.WithNThreads(1))
	dp := b2core.NewDParams()
	return cp, dp
}

// TestScalarGetSet covers spec.md §8's "b2nd array with ndim=0 (scalar):
// get/set of the sole element."
func TestScalarGetSet(t *testing.T) {
	cp, dp := testParams(4)
	a, err := New(cp, dp, nil, nil, nil, 0, "int32")
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	in := make([]byte, 4)
	binary.LittleEndian.PutUint32(in, 42)
	if err := a.SetSlice(nil, nil, in, nil, nil); err != nil {
		t.Fatal(err)
	}
	out := make([]byte, 4)
	if err := a.GetSlice(nil, nil, out, nil, nil); err != nil {
		t.Fatal(err)
	}
	if binary.LittleEndian.Uint32(out) != 42 {
		t.Fatalf("got %d, want 42", binary.LittleEndian.Uint32(out))
	}
}

// TestSetSliceGetSlice2D covers spec.md §8 scenario 3: set_slice then
// get_slice on a 10x10 int32 array.
func TestSetSliceGetSlice2D(t *testing.T) {
	cp, dp := testParams(4)
	a, err := New(cp, dp, []int64{10, 10}, []int64{5, 5}, []int64{5, 5}, 0, "int32")
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	// write a 5x5 sub-region at [2:7, 3:8] with value = row*100+col.
	region := make([]byte, 5*5*4)
	k := 0
	for r := 0; r < 5; r++ {
		for c := 0; c < 5; c++ {
			binary.LittleEndian.PutUint32(region[k*4:], uint32((r+2)*100+(c+3)))
			k++
		}
	}
	if err := a.SetSlice([]int64{2, 3}, []int64{7, 8}, region, nil, nil); err != nil {
		t.Fatal(err)
	}

	out := make([]byte, 5*5*4)
	if err := a.GetSlice([]int64{2, 3}, []int64{7, 8}, out, nil, nil); err != nil {
		t.Fatal(err)
	}
	for i := range region {
		if region[i] != out[i] {
			t.Fatalf("byte %d: got %d want %d", i, out[i], region[i])
		}
	}

	// untouched corner must still read zero.
	corner := make([]byte, 4)
	if err := a.GetSlice([]int64{0, 0}, []int64{1, 1}, corner, nil, nil); err != nil {
		t.Fatal(err)
	}
	if binary.LittleEndian.Uint32(corner) != 0 {
		t.Fatalf("untouched corner = %d, want 0", binary.LittleEndian.Uint32(corner))
	}
}

// TestResizeGrowth covers spec.md §8 scenario 4 literally: shape=[4],
// chunkshape=[4], blockshape=[2]; write [1,2,3,4]; resize to [8]; expect
// nchunks 1->2 and get_slice([0],[8]) == [1,2,3,4,0,0,0,0].
func TestResizeGrowth(t *testing.T) {
	cp, dp := testParams(1)
	a, err := New(cp, dp, []int64{4}, []int64{4}, []int64{2}, 0, "uint8")
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	if got := a.Nchunks(); got != 1 {
		t.Fatalf("Nchunks() before resize = %d, want 1", got)
	}
	if err := a.SetSlice([]int64{0}, []int64{4}, []byte{1, 2, 3, 4}, nil, nil); err != nil {
		t.Fatal(err)
	}

	if err := a.Resize([]int64{8}, nil); err != nil {
		t.Fatal(err)
	}
	if got := a.Nchunks(); got != 2 {
		t.Fatalf("Nchunks() after resize = %d, want 2", got)
	}

	out := make([]byte, 8)
	if err := a.GetSlice([]int64{0}, []int64{8}, out, nil, nil); err != nil {
		t.Fatal(err)
	}
	want := []byte{1, 2, 3, 4, 0, 0, 0, 0}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("out = %v, want %v", out, want)
		}
	}
}

// TestOrthogonalSelection covers spec.md §8 scenario 5 literally:
// shape=[6], contents=[10,20,30,40,50,60], selection [[4,0,4,2]] ->
// [50,10,50,30]. Uses chunkshape=[3] (two chunks) to exercise the grouping.
func TestOrthogonalSelection(t *testing.T) {
	cp, dp := testParams(1)
	a, err := New(cp, dp, []int64{6}, []int64{3}, []int64{3}, 0, "uint8")
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	if err := a.SetSlice([]int64{0}, []int64{6}, []byte{10, 20, 30, 40, 50, 60}, nil, nil); err != nil {
		t.Fatal(err)
	}

	dst := make([]byte, 4)
	if err := a.GetOrthogonalSelection([][]int64{{4, 0, 4, 2}}, dst); err != nil {
		t.Fatal(err)
	}
	want := []byte{50, 10, 50, 30}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("dst = %v, want %v", dst, want)
		}
	}
}

func TestOrthogonalSelectionSet(t *testing.T) {
	cp, dp := testParams(1)
	a, err := New(cp, dp, []int64{6}, []int64{3}, []int64{3}, 0, "uint8")
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	if err := a.SetSlice([]int64{0}, []int64{6}, []byte{10, 20, 30, 40, 50, 60}, nil, nil); err != nil {
		t.Fatal(err)
	}
	if err := a.SetOrthogonalSelection([][]int64{{4, 0}}, []byte{99, 11}); err != nil {
		t.Fatal(err)
	}

	out := make([]byte, 6)
	if err := a.GetSlice([]int64{0}, []int64{6}, out, nil, nil); err != nil {
		t.Fatal(err)
	}
	want := []byte{11, 20, 30, 40, 99, 60}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("out = %v, want %v", out, want)
		}
	}
}

// TestFastpathSliceRoundTrip exercises nchunkFastpath's eligible branch
// directly: a region that covers exactly one whole, unpadded chunk should
// decompress/compress straight into the caller's buffer rather than falling
// back to the general per-chunk copy path. shape/chunkshape/blockshape are
// all equal on both axes, so every fast-path precondition holds trivially.
func TestFastpathSliceRoundTrip(t *testing.T) {
	cp, dp := testParams(4)
	a, err := New(cp, dp, []int64{8, 8}, []int64{4, 4}, []int64{4, 4}, 0, "int32")
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	if _, ok := a.geo.nchunkFastpath([]int64{0, 0}, []int64{4, 4}); !ok {
		t.Fatal("expected [0:4,0:4] to be fast-path eligible")
	}
	if _, ok := a.geo.nchunkFastpath([]int64{4, 4}, []int64{8, 8}); !ok {
		t.Fatal("expected [4:8,4:8] to be fast-path eligible")
	}
	if _, ok := a.geo.nchunkFastpath([]int64{0, 0}, []int64{4, 2}); ok {
		t.Fatal("expected partial-chunk region to be fast-path ineligible")
	}

	region := make([]byte, 4*4*4)
	for i := range region {
		region[i] = byte(i)
	}
	if err := a.SetSlice([]int64{4, 4}, []int64{8, 8}, region, nil, nil); err != nil {
		t.Fatal(err)
	}
	out := make([]byte, 4*4*4)
	if err := a.GetSlice([]int64{4, 4}, []int64{8, 8}, out, nil, nil); err != nil {
		t.Fatal(err)
	}
	for i := range region {
		if region[i] != out[i] {
			t.Fatalf("byte %d: got %d want %d", i, out[i], region[i])
		}
	}
}

// TestResizeMonotonicity covers spec.md's resize-monotonicity property:
// after a growth-only resize, every element at a coordinate present in both
// the old and new shapes retains its value.
func TestResizeMonotonicity(t *testing.T) {
	cp, dp := testParams(1)
	a, err := New(cp, dp, []int64{6}, []int64{3}, []int64{3}, 0, "uint8")
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	original := []byte{1, 2, 3, 4, 5, 6}
	if err := a.SetSlice([]int64{0}, []int64{6}, original, nil, nil); err != nil {
		t.Fatal(err)
	}
	if err := a.Resize([]int64{9}, nil); err != nil {
		t.Fatal(err)
	}
	out := make([]byte, 6)
	if err := a.GetSlice([]int64{0}, []int64{6}, out, nil, nil); err != nil {
		t.Fatal(err)
	}
	for i := range original {
		if out[i] != original[i] {
			t.Fatalf("coordinate %d changed under growth: got %d want %d", i, out[i], original[i])
		}
	}
}

func TestAppendInsertDelete(t *testing.T) {
	cp, dp := testParams(1)
	a, err := New(cp, dp, []int64{4}, []int64{4}, []int64{2}, 0, "uint8")
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	if err := a.SetSlice([]int64{0}, []int64{4}, []byte{1, 2, 3, 4}, nil, nil); err != nil {
		t.Fatal(err)
	}
	if err := a.Append([]byte{5, 6, 7, 8}, 0); err != nil {
		t.Fatal(err)
	}
	if a.Shape()[0] != 8 {
		t.Fatalf("Shape()[0] = %d, want 8", a.Shape()[0])
	}
	out := make([]byte, 8)
	if err := a.GetSlice([]int64{0}, []int64{8}, out, nil, nil); err != nil {
		t.Fatal(err)
	}
	want := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("after append: out = %v, want %v", out, want)
		}
	}

	// position and inserted length (4) both land on a chunkshape (4)
	// multiple, satisfying the chunk-alignment constraint for a non-trailing
	// insert.
	if err := a.Insert([]byte{100, 101, 102, 103}, 0, 4); err != nil {
		t.Fatal(err)
	}
	if a.Shape()[0] != 12 {
		t.Fatalf("Shape()[0] = %d, want 12", a.Shape()[0])
	}
	out = make([]byte, 12)
	if err := a.GetSlice([]int64{0}, []int64{12}, out, nil, nil); err != nil {
		t.Fatal(err)
	}
	want = []byte{1, 2, 3, 4, 100, 101, 102, 103, 5, 6, 7, 8}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("after insert: out = %v, want %v", out, want)
		}
	}

	if err := a.Delete(0, 4, 4); err != nil {
		t.Fatal(err)
	}
	if a.Shape()[0] != 8 {
		t.Fatalf("Shape()[0] = %d, want 8", a.Shape()[0])
	}
	out = make([]byte, 8)
	if err := a.GetSlice([]int64{0}, []int64{8}, out, nil, nil); err != nil {
		t.Fatal(err)
	}
	want = []byte{1, 2, 3, 4, 5, 6, 7, 8}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("after delete: out = %v, want %v", out, want)
		}
	}
}

func TestToBufferLoadRoundTrip(t *testing.T) {
	cp, dp := testParams(4)
	a, err := New(cp, dp, []int64{10, 10}, []int64{5, 5}, []int64{5, 5}, 0, "int32")
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	region := make([]byte, 5*5*4)
	for i := range region {
		region[i] = byte(i)
	}
	if err := a.SetSlice([]int64{0, 0}, []int64{5, 5}, region, nil, nil); err != nil {
		t.Fatal(err)
	}

	buf, err := a.ToBuffer()
	if err != nil {
		t.Fatal(err)
	}

	b, err := Load(buf, cp, dp, true)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	if b.NDim() != 2 || b.Shape()[0] != 10 || b.Shape()[1] != 10 {
		t.Fatalf("Shape() = %v", b.Shape())
	}
	out := make([]byte, 5*5*4)
	if err := b.GetSlice([]int64{0, 0}, []int64{5, 5}, out, nil, nil); err != nil {
		t.Fatal(err)
	}
	for i := range region {
		if region[i] != out[i] {
			t.Fatalf("byte %d: got %d want %d", i, out[i], region[i])
		}
	}
}
