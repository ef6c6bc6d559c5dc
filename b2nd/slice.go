package b2nd

import "github.com/b2lib/b2core/schunk"

// nchunkFastpath decides whether [start,stop) maps onto exactly one whole,
// unpadded chunk, so a slice get/set can decompress/compress straight into
// the caller's buffer instead of going through the general per-chunk copy
// path. Translated from the original project's nchunk_fastpath (read from
// original_source/blosc/b2nd.c): every axis's extent must equal the array's
// true shape (no array-level padding on that axis), every axis's
// extchunkshape must equal chunkshape (no block-level padding either), any
// axis whose chunkshape exceeds its blockshape must either divide evenly
// into whole blocks (outer axes) or match it exactly (the innermost ragged
// axis), and the requested region's start must land on a chunk boundary
// with a size equal to one whole chunk.
//
// A false return means "not eligible for the fast path", not an error —
// spec.md §9 calls out the original's overloaded -1 return (not-eligible vs.
// genuine error) as worth separating. This check cannot fail, so it reports
// only eligibility, as a plain bool; callers fall back to the general path on
// false.
func (g *Geometry) nchunkFastpath(start, stop []int64) (int64, bool) {
	ndim := g.NDim
	if ndim == 0 {
		return 0, false
	}

	sliceSize := int64(1)
	for i := 0; i < ndim; i++ {
		sliceSize *= stop[i] - start[i]
	}
	if sliceSize != g.ChunkNitems() {
		return 0, false
	}

	innerDim := ndim - 1
	partialSlice := int64(1)
	partialChunk := int64(1)
	for i := ndim - 1; i >= 0; i-- {
		if g.ExtShape[i] != g.Shape[i] {
			return 0, false
		}
		if g.ExtChunkShape[i] != g.ChunkShape[i] {
			return 0, false
		}
		if g.ChunkShape[i] > g.BlockShape[i] {
			if i < innerDim {
				if g.ChunkShape[i]%g.BlockShape[i] != 0 {
					return 0, false
				}
			} else if g.ChunkShape[i] != g.BlockShape[i] {
				return 0, false
			}
			innerDim = i
		}
		partialSlice *= stop[i] - start[i]
		partialChunk *= g.ChunkShape[i]
		if partialSlice != partialChunk {
			return 0, false
		}
		if start[i]%g.ChunkShape[i] != 0 {
			return 0, false
		}
	}

	idx := g.ChunkIndexOf(start)
	return g.LinearChunk(idx), true
}

func validateRegion(g *Geometry, start, stop []int64) error {
	if len(start) != g.NDim || len(stop) != g.NDim {
		return ErrRank
	}
	for i := 0; i < g.NDim; i++ {
		if start[i] < 0 || stop[i] < start[i] || stop[i] > g.Shape[i] {
			return ErrInvalidGeometry
		}
	}
	return nil
}

func regionShapeOf(start, stop []int64) []int64 {
	shape := make([]int64, len(start))
	for i := range shape {
		shape[i] = stop[i] - start[i]
	}
	return shape
}

// GetSlice reads the rectangular region [start,stop) into dst, laid out in
// dstShape (C-order); dstStart is where the region begins within dst (the
// zero vector for a tightly packed destination buffer sized exactly to the
// region).
func (a *Array) GetSlice(start, stop []int64, dst []byte, dstShape, dstStart []int64) error {
	return getSliceOn(a.sc, a.geo, start, stop, dst, dstShape, dstStart)
}

// SetSlice writes src (laid out in srcShape, srcStart) into the rectangular
// region [start,stop).
func (a *Array) SetSlice(start, stop []int64, src []byte, srcShape, srcStart []int64) error {
	return setSliceOn(a.sc, a.geo, start, stop, src, srcShape, srcStart)
}

func getSliceOn(sc *schunk.Schunk, geo *Geometry, start, stop []int64, dst []byte, dstShape, dstStart []int64) error {
	ts := sc.Typesize()

	if geo.NDim == 0 {
		if len(dst) < int(ts) {
			return ErrSizeMismatch
		}
		out, err := sc.DecompressInto(0, int(ts))
		if err != nil {
			return err
		}
		copy(dst[:ts], out)
		return nil
	}

	if err := validateRegion(geo, start, stop); err != nil {
		return err
	}
	regionShape := regionShapeOf(start, stop)
	if dstShape == nil {
		dstShape = regionShape
	}
	if dstStart == nil {
		dstStart = make([]int64, geo.NDim)
	}

	if lin, ok := geo.nchunkFastpath(start, stop); ok {
		want := int(geo.ChunkNitems() * ts)
		out, err := sc.DecompressInto(int(lin), want)
		if err != nil {
			return err
		}
		if len(out) != want {
			return ErrSizeMismatch
		}
		if sameShape(dstShape, regionShape) && allZero(dstStart) {
			if len(dst) < want {
				return ErrSizeMismatch
			}
			copy(dst[:want], out)
			return nil
		}
		copyRegion(ts, regionShape, regionShape, make([]int64, geo.NDim), dstShape, dstStart, out, dst)
		return nil
	}

	return forEachOverlappingChunk(geo, start, stop, func(linChunk int64, chunkStart []int64, ovStart, ovStop []int64) error {
		chunkBuf, err := sc.DecompressInto(int(linChunk), int(geo.ExtChunkNitems()*ts))
		if err != nil {
			return err
		}
		ov := regionShapeOf(ovStart, ovStop)
		chunkLocalStart := make([]int64, geo.NDim)
		dstLocalStart := make([]int64, geo.NDim)
		for i := 0; i < geo.NDim; i++ {
			chunkLocalStart[i] = ovStart[i] - chunkStart[i]
			dstLocalStart[i] = dstStart[i] + (ovStart[i] - start[i])
		}
		copyRegion(ts, ov, geo.ExtChunkShape, chunkLocalStart, dstShape, dstLocalStart, chunkBuf, dst)
		return nil
	})
}

func setSliceOn(sc *schunk.Schunk, geo *Geometry, start, stop []int64, src []byte, srcShape, srcStart []int64) error {
	ts := sc.Typesize()

	if geo.NDim == 0 {
		if len(src) < int(ts) {
			return ErrSizeMismatch
		}
		b := append([]byte(nil), src[:ts]...)
		out, err := sc.Compress(b)
		if err != nil {
			return err
		}
		return sc.UpdateChunk(0, out, false)
	}

	if err := validateRegion(geo, start, stop); err != nil {
		return err
	}
	regionShape := regionShapeOf(start, stop)
	if srcShape == nil {
		srcShape = regionShape
	}
	if srcStart == nil {
		srcStart = make([]int64, geo.NDim)
	}

	if lin, ok := geo.nchunkFastpath(start, stop); ok {
		want := int(geo.ChunkNitems() * ts)
		chunkBuf := make([]byte, want)
		if sameShape(srcShape, regionShape) && allZero(srcStart) {
			if len(src) < want {
				return ErrSizeMismatch
			}
			copy(chunkBuf, src[:want])
		} else {
			copyRegion(ts, regionShape, srcShape, srcStart, regionShape, make([]int64, geo.NDim), src, chunkBuf)
		}
		out, err := sc.Compress(chunkBuf)
		if err != nil {
			return err
		}
		return sc.UpdateChunk(int(lin), out, false)
	}

	return forEachOverlappingChunk(geo, start, stop, func(linChunk int64, chunkStart []int64, ovStart, ovStop []int64) error {
		chunkBuf, err := sc.DecompressInto(int(linChunk), int(geo.ExtChunkNitems()*ts))
		if err != nil {
			return err
		}
		// chunkBuf aliases the decompressor's own scratch; copy it so the
		// in-place write below doesn't corrupt a buffer the context reuses.
		own := append([]byte(nil), chunkBuf...)

		ov := regionShapeOf(ovStart, ovStop)
		chunkLocalStart := make([]int64, geo.NDim)
		srcLocalStart := make([]int64, geo.NDim)
		for i := 0; i < geo.NDim; i++ {
			chunkLocalStart[i] = ovStart[i] - chunkStart[i]
			srcLocalStart[i] = srcStart[i] + (ovStart[i] - start[i])
		}
		copyRegion(ts, ov, srcShape, srcLocalStart, geo.ExtChunkShape, chunkLocalStart, src, own)

		out, err := sc.Compress(own)
		if err != nil {
			return err
		}
		return sc.UpdateChunk(int(linChunk), out, false)
	})
}

// forEachOverlappingChunk enumerates, in C-order, every chunk whose
// footprint intersects [start,stop), invoking fn with that chunk's linear
// index, its item-space origin, and the intersection's [ovStart,ovStop).
func forEachOverlappingChunk(geo *Geometry, start, stop []int64, fn func(linChunk int64, chunkStart, ovStart, ovStop []int64) error) error {
	ndim := geo.NDim
	loChunk := make([]int64, ndim)
	hiChunk := make([]int64, ndim) // inclusive
	for i := 0; i < ndim; i++ {
		loChunk[i] = start[i] / geo.ChunkShape[i]
		hiChunk[i] = (stop[i] - 1) / geo.ChunkShape[i]
	}

	idx := append([]int64(nil), loChunk...)
	for {
		chunkStart := geo.ChunkStart(idx)
		ovStart := make([]int64, ndim)
		ovStop := make([]int64, ndim)
		for i := 0; i < ndim; i++ {
			cs := chunkStart[i]
			ce := cs + geo.ChunkShape[i]
			if ce > geo.Shape[i] {
				ce = geo.Shape[i]
			}
			ovStart[i] = maxInt64(start[i], cs)
			ovStop[i] = minInt64(stop[i], ce)
		}
		lin := geo.LinearChunk(idx)
		if err := fn(lin, chunkStart, ovStart, ovStop); err != nil {
			return err
		}

		// odometer increment over [loChunk, hiChunk]
		axis := ndim - 1
		for axis >= 0 {
			idx[axis]++
			if idx[axis] <= hiChunk[axis] {
				break
			}
			idx[axis] = loChunk[axis]
			axis--
		}
		if axis < 0 {
			break
		}
	}
	return nil
}

func sameShape(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func allZero(a []int64) bool {
	for _, v := range a {
		if v != 0 {
			return false
		}
	}
	return true
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
