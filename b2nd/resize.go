package b2nd

import (
	"github.com/b2lib/b2core/internal/chunk"
	"github.com/b2lib/b2core/schunk"
)

// Resize changes the array's shape to newShape (spec.md §4.8
// "resize(new_shape, start)"). Shrinking an axis always drops elements past
// the new extent (spec.md's shrink_shape keeps [0, new_shape[i])); growing
// an axis inserts the new zero-filled region at start[i] (or at the
// trailing end when start is nil), shifting any data past that point up by
// the delta (spec.md's extend_shape).
//
// Per spec.md's literal constraint, growth/shrink not at an axis's trailing
// end requires both start[i] and the shape delta to be multiples of
// chunkshape[i] — chunks are never split.
//
// Rather than mutate the existing chunk list incrementally — genuinely
// awkward for non-trailing axes in a C-order n-dim layout, since a change on
// one axis reshuffles which linear chunk index every surviving chunk maps to
// — Resize builds an entirely new, zero-filled array of the new geometry,
// then copies over every still-valid region from the old array via
// get/set-slice (each such region is a maximal axis-aligned box whose
// per-axis offset from old to new space is constant, so at most one
// decompress/recompress pass touches each old chunk and each new chunk).
func (a *Array) Resize(newShape, start []int64) error {
	ndim := a.geo.NDim
	if ndim == 0 {
		return ErrRank
	}
	if len(newShape) != ndim {
		return ErrRank
	}
	oldGeo := a.geo

	for i := 0; i < ndim; i++ {
		if newShape[i] < 0 {
			return ErrInvalidGeometry
		}
		delta := newShape[i] - oldGeo.Shape[i]
		if delta <= 0 {
			continue // shrink/unchanged: always allowed, always at the trailing end
		}
		insertPos := oldGeo.Shape[i]
		if start != nil {
			insertPos = start[i]
		}
		if insertPos < 0 || insertPos > oldGeo.Shape[i] {
			return ErrInvalidGeometry
		}
		if insertPos == oldGeo.Shape[i] {
			continue // growth at the trailing end
		}
		if insertPos%oldGeo.ChunkShape[i] != 0 || delta%oldGeo.ChunkShape[i] != 0 {
			return ErrChunkAlignment
		}
	}

	newGeo, err := NewGeometry(newShape, oldGeo.ChunkShape, oldGeo.BlockShape)
	if err != nil {
		return err
	}

	ts := a.sc.Typesize()
	newSc := a.sc.CloneEmpty(newGeo.ExtChunkNitems() * ts)
	if nchunks := newGeo.NChunks(); nchunks > 0 {
		if err := newSc.FillSpecial(nchunks*newGeo.ExtChunkNitems(), chunk.SpecialZero, newGeo.ExtChunkNitems()*ts, nil); err != nil {
			newSc.Close()
			return err
		}
	}

	segments := make([][]resizeSegment, ndim)
	for i := 0; i < ndim; i++ {
		segments[i] = axisSegments(oldGeo.Shape[i], newShape[i], axisInsertPos(oldGeo.Shape[i], newShape[i], start, i))
	}

	oldStart := make([]int64, ndim)
	oldStop := make([]int64, ndim)
	newStart := make([]int64, ndim)
	newStop := make([]int64, ndim)
	if err := walkSegmentCombos(segments, 0, oldStart, oldStop, newStart, newStop, func() error {
		return copyOldRegion(a.sc, oldGeo, newSc, newGeo, oldStart, oldStop, newStart, newStop)
	}); err != nil {
		newSc.Close()
		return err
	}

	a.sc.Close()
	a.sc = newSc
	a.geo = newGeo
	return a.writeMeta()
}

// resizeSegment is one axis-aligned, constant-offset mapping from old
// item-space to new item-space (or the absence of one, for a freshly
// inserted/grown region that has no old counterpart).
type resizeSegment struct {
	newStart, newStop int64
	oldStart          int64
	hasOld            bool
}

func axisInsertPos(oldExtent, newExtent int64, start []int64, axis int) int64 {
	if newExtent <= oldExtent {
		return oldExtent
	}
	if start == nil {
		return oldExtent
	}
	return start[axis]
}

// axisSegments partitions [0, newExtent) into up to three ranges: data
// preserved before the insertion point, the freshly zero-filled gap (growth
// only), and data preserved after it — shifted by the grown delta.
func axisSegments(oldExtent, newExtent, insertPos int64) []resizeSegment {
	if newExtent <= oldExtent {
		if newExtent == 0 {
			return []resizeSegment{{0, 0, 0, true}}
		}
		return []resizeSegment{{0, newExtent, 0, true}}
	}
	delta := newExtent - oldExtent
	var segs []resizeSegment
	if insertPos > 0 {
		segs = append(segs, resizeSegment{0, insertPos, 0, true})
	}
	segs = append(segs, resizeSegment{insertPos, insertPos + delta, 0, false})
	if oldExtent-insertPos > 0 {
		segs = append(segs, resizeSegment{insertPos + delta, newExtent, insertPos, true})
	}
	return segs
}

// walkSegmentCombos enumerates the Cartesian product of per-axis segment
// lists, invoking fn once per combination where every axis's segment has
// old data (any combo touching an axis's "no old data" segment is skipped —
// that region is already zero-filled in the freshly built array).
func walkSegmentCombos(segments [][]resizeSegment, axis int, oldStart, oldStop, newStart, newStop []int64, fn func() error) error {
	if axis == len(segments) {
		return fn()
	}
	for _, seg := range segments[axis] {
		if !seg.hasOld {
			continue
		}
		newStart[axis] = seg.newStart
		newStop[axis] = seg.newStop
		oldStart[axis] = seg.oldStart
		oldStop[axis] = seg.oldStart + (seg.newStop - seg.newStart)
		if err := walkSegmentCombos(segments, axis+1, oldStart, oldStop, newStart, newStop, fn); err != nil {
			return err
		}
	}
	return nil
}

func copyOldRegion(oldSc *schunk.Schunk, oldGeo *Geometry, newSc *schunk.Schunk, newGeo *Geometry, oldStart, oldStop, newStart, newStop []int64) error {
	regionShape := regionShapeOf(oldStart, oldStop)
	nelems := int64(1)
	for _, d := range regionShape {
		nelems *= d
	}
	if nelems == 0 {
		return nil
	}
	ts := oldSc.Typesize()
	buf := make([]byte, nelems*ts)
	if err := getSliceOn(oldSc, oldGeo, oldStart, oldStop, buf, nil, nil); err != nil {
		return err
	}
	return setSliceOn(newSc, newGeo, newStart, newStop, buf, nil, nil)
}
