package b2nd

import "testing"

func TestGeometryDerivedFields(t *testing.T) {
	g, err := NewGeometry([]int64{10, 7}, []int64{4, 4}, []int64{2, 2})
	if err != nil {
		t.Fatal(err)
	}
	// extshape rounds shape up to a chunkshape multiple on each axis.
	wantExtShape := []int64{12, 8}
	for i, w := range wantExtShape {
		if g.ExtShape[i] != w {
			t.Fatalf("ExtShape[%d] = %d, want %d", i, g.ExtShape[i], w)
		}
	}
	if g.ChunksInArray[0] != 3 || g.ChunksInArray[1] != 2 {
		t.Fatalf("ChunksInArray = %v, want [3 2]", g.ChunksInArray)
	}
	if g.NChunks() != 6 {
		t.Fatalf("NChunks() = %d, want 6", g.NChunks())
	}
}

func TestGeometryNoPaddingWhenDivisible(t *testing.T) {
	g, err := NewGeometry([]int64{8, 8}, []int64{4, 4}, []int64{4, 4})
	if err != nil {
		t.Fatal(err)
	}
	for i := range g.Shape {
		if g.ExtShape[i] != g.Shape[i] {
			t.Fatalf("axis %d: ExtShape %d != Shape %d, expected no padding", i, g.ExtShape[i], g.Shape[i])
		}
		if g.ExtChunkShape[i] != g.ChunkShape[i] {
			t.Fatalf("axis %d: ExtChunkShape %d != ChunkShape %d, expected no padding", i, g.ExtChunkShape[i], g.ChunkShape[i])
		}
	}
}

func TestGeometryRejectsInvalidParams(t *testing.T) {
	if _, err := NewGeometry([]int64{4}, []int64{4}, []int64{8}); err == nil {
		t.Fatal("expected error when blockshape > chunkshape")
	}
	if _, err := NewGeometry([]int64{4, 4}, []int64{4}, []int64{4}); err == nil {
		t.Fatal("expected error on rank mismatch")
	}
}

func TestMetaRoundTrip(t *testing.T) {
	m := Meta{
		Version:     metaVersion,
		NDim:        2,
		Shape:       []int64{10, 7},
		ChunkShape:  []int32{4, 4},
		BlockShape:  []int32{2, 2},
		DtypeFormat: 0,
		Dtype:       "float64",
	}
	buf := EncodeMeta(m)
	got, err := DecodeMeta(buf)
	if err != nil {
		t.Fatal(err)
	}
	if got.NDim != m.NDim || got.Dtype != m.Dtype {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	for i := range m.Shape {
		if got.Shape[i] != m.Shape[i] {
			t.Fatalf("Shape[%d] = %d, want %d", i, got.Shape[i], m.Shape[i])
		}
	}
}
