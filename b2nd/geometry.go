// Package b2nd implements the n-dimensional array overlay of spec.md §4.8:
// shape/chunkshape/blockshape geometry on top of a super-chunk, slice
// get/set, resize, insert/append/delete, and orthogonal selection.
package b2nd

import (
	"github.com/b2lib/b2core/internal/bitutil"
)

// MaxDim bounds array rank (spec.md §4.8 "B2ND_MAX_DIM").
const MaxDim = 8

type b2ndError string

func (e b2ndError) Error() string { return string(e) }

const (
	// ErrFastPathIneligible names the "slice doesn't qualify for the
	// single-chunk fast path" condition. nchunkFastpath does not return it:
	// it reports ineligibility as a false result, never as an error.
	ErrFastPathIneligible = b2ndError("b2nd: slice not eligible for the single-chunk fast path")
	ErrRank               = b2ndError("b2nd: rank exceeds MaxDim or mismatches")
	ErrInvalidGeometry    = b2ndError("b2nd: invalid shape/chunkshape/blockshape")
	ErrChunkAlignment     = b2ndError("b2nd: resize/insert/delete position not aligned to chunkshape")
	ErrSizeMismatch       = b2ndError("b2nd: buffer size does not match the requested region")
)

// Geometry holds one array's shape/chunkshape/blockshape triple and the
// derived fields spec.md §4.8 names: extshape, extchunkshape, and C-order
// strides for items, chunks and blocks.
type Geometry struct {
	NDim int

	Shape      []int64
	ChunkShape []int64
	BlockShape []int64

	ExtShape      []int64
	ExtChunkShape []int64

	// ChunksInArray[i] = extshape[i]/chunkshape[i]; BlocksInChunk[i] =
	// extchunkshape[i]/blockshape[i].
	ChunksInArray []int64
	BlocksInChunk []int64

	// C-order strides in units of items, scoped to the named extent.
	ShapeStrides       []int64 // strides over Shape (logical addressing)
	ChunkItemStrides   []int64 // strides over ChunkShape (within a chunk's logical tile)
	ExtChunkItemStrides []int64 // strides over ExtChunkShape (within a chunk's physical storage)
	BlockItemStrides   []int64 // strides over BlockShape (within a block)
	ChunksArrStrides   []int64 // strides over ChunksInArray (chunk-index space)
	BlocksChunkStrides []int64 // strides over BlocksInChunk (block-index space)
}

// NewGeometry validates and derives a Geometry from the caller-supplied
// triple (spec.md §4.8 invariants: shape[i]>=0, chunkshape[i]>=1,
// blockshape[i]>=1, blockshape[i]<=chunkshape[i]).
func NewGeometry(shape, chunkshape, blockshape []int64) (*Geometry, error) {
	ndim := len(shape)
	if ndim > MaxDim || len(chunkshape) != ndim || len(blockshape) != ndim {
		return nil, ErrRank
	}
	for i := 0; i < ndim; i++ {
		if shape[i] < 0 || chunkshape[i] < 1 || blockshape[i] < 1 || blockshape[i] > chunkshape[i] {
			return nil, ErrInvalidGeometry
		}
	}

	g := &Geometry{
		NDim:       ndim,
		Shape:      append([]int64(nil), shape...),
		ChunkShape: append([]int64(nil), chunkshape...),
		BlockShape: append([]int64(nil), blockshape...),
	}
	g.ExtShape = make([]int64, ndim)
	g.ExtChunkShape = make([]int64, ndim)
	g.ChunksInArray = make([]int64, ndim)
	g.BlocksInChunk = make([]int64, ndim)
	for i := 0; i < ndim; i++ {
		if shape[i] == 0 {
			g.ExtShape[i] = 0
		} else {
			g.ExtShape[i] = bitutil.CeilToMultiple(shape[i], chunkshape[i])
		}
		g.ExtChunkShape[i] = bitutil.CeilToMultiple(chunkshape[i], blockshape[i])
		if chunkshape[i] > 0 {
			g.ChunksInArray[i] = g.ExtShape[i] / chunkshape[i]
		}
		if blockshape[i] > 0 {
			g.BlocksInChunk[i] = g.ExtChunkShape[i] / blockshape[i]
		}
	}

	g.ShapeStrides = cOrderStrides(g.Shape)
	g.ChunkItemStrides = cOrderStrides(g.ChunkShape)
	g.ExtChunkItemStrides = cOrderStrides(g.ExtChunkShape)
	g.BlockItemStrides = cOrderStrides(g.BlockShape)
	g.ChunksArrStrides = cOrderStrides(g.ChunksInArray)
	g.BlocksChunkStrides = cOrderStrides(g.BlocksInChunk)
	return g, nil
}

// cOrderStrides computes C-order (row-major) strides for a shape: the
// innermost (last) axis has stride 1.
func cOrderStrides(shape []int64) []int64 {
	n := len(shape)
	strides := make([]int64, n)
	if n == 0 {
		return strides
	}
	strides[n-1] = 1
	for i := n - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * shape[i+1]
	}
	return strides
}

func product(dims []int64) int64 {
	p := int64(1)
	for _, d := range dims {
		p *= d
	}
	return p
}

// Nitems is the logical element count (∏ shape[i]).
func (g *Geometry) Nitems() int64 { return product(g.Shape) }

// ChunkNitems is ∏ chunkshape[i].
func (g *Geometry) ChunkNitems() int64 { return product(g.ChunkShape) }

// ExtChunkNitems is ∏ extchunkshape[i] — the logical item count stored per
// chunk (spec.md §4.8: "schunk's chunksize equals ∏extchunkshape·typesize").
func (g *Geometry) ExtChunkNitems() int64 { return product(g.ExtChunkShape) }

// NChunks is ∏ ceil(shape[i]/chunkshape[i]) (0 when any axis extent is 0).
func (g *Geometry) NChunks() int64 {
	if g.NDim == 0 {
		return 1
	}
	for _, s := range g.Shape {
		if s == 0 {
			return 0
		}
	}
	return product(g.ChunksInArray)
}

// BlocksPerChunk is ∏ blocksInChunk[i].
func (g *Geometry) BlocksPerChunk() int64 { return product(g.BlocksInChunk) }

// multidimToLinear converts an n-dim index into a linear index given
// C-order strides over the same shape.
func multidimToLinear(idx []int64, strides []int64) int64 {
	var lin int64
	for i, s := range strides {
		lin += idx[i] * s
	}
	return lin
}

// linearToMultidim inverts multidimToLinear given a shape (not strides).
func linearToMultidim(lin int64, shape []int64) []int64 {
	ndim := len(shape)
	idx := make([]int64, ndim)
	for i := ndim - 1; i >= 0; i-- {
		if shape[i] > 0 {
			idx[i] = lin % shape[i]
			lin /= shape[i]
		}
	}
	return idx
}

// ChunkIndexOf returns the n-dim chunk-index coordinates containing item
// coordinate pos.
func (g *Geometry) ChunkIndexOf(pos []int64) []int64 {
	idx := make([]int64, g.NDim)
	for i := range idx {
		idx[i] = pos[i] / g.ChunkShape[i]
	}
	return idx
}

// ChunkStart returns the item-space coordinate of chunk-index idx's first
// element.
func (g *Geometry) ChunkStart(idx []int64) []int64 {
	start := make([]int64, g.NDim)
	for i := range start {
		start[i] = idx[i] * g.ChunkShape[i]
	}
	return start
}

// LinearChunk converts n-dim chunk-index coordinates to the schunk's
// linear chunk index (C-order over ChunksInArray).
func (g *Geometry) LinearChunk(idx []int64) int64 {
	return multidimToLinear(idx, g.ChunksArrStrides)
}

// ChunkIndexFromLinear inverts LinearChunk.
func (g *Geometry) ChunkIndexFromLinear(lin int64) []int64 {
	return linearToMultidim(lin, g.ChunksInArray)
}
