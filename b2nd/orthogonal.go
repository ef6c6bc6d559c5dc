package b2nd

import (
	"golang.org/x/exp/slices"
)

// selEntry pairs a selection value with its position in the caller's
// original (unsorted) index list, per spec.md §4.8's orthogonal-selection
// algorithm step 1.
type selEntry struct {
	value int64
	orig  int64
}

// chunkGroup is a contiguous run of a sorted selection axis that falls
// within one chunk index along that axis (spec.md step 2: "grouping
// contiguous indices that map to the same chunk").
type chunkGroup struct {
	chunkIdx int64
	entries  []selEntry
}

// groupByChunk sorts sel (stable by value, then by original index so ties
// are deterministic) and partitions it into per-chunk runs.
func groupByChunk(sel []int64, chunkShape int64) []chunkGroup {
	entries := make([]selEntry, len(sel))
	for i, v := range sel {
		entries[i] = selEntry{value: v, orig: int64(i)}
	}
	slices.SortFunc(entries, func(a, b selEntry) bool {
		if a.value != b.value {
			return a.value < b.value
		}
		return a.orig < b.orig
	})

	var groups []chunkGroup
	for _, e := range entries {
		ci := e.value / chunkShape
		if len(groups) > 0 && groups[len(groups)-1].chunkIdx == ci {
			g := &groups[len(groups)-1]
			g.entries = append(g.entries, e)
			continue
		}
		groups = append(groups, chunkGroup{chunkIdx: ci, entries: []selEntry{e}})
	}
	return groups
}

func outputShape(selection [][]int64) []int64 {
	shape := make([]int64, len(selection))
	for i, s := range selection {
		shape[i] = int64(len(s))
	}
	return shape
}

// GetOrthogonalSelection gathers array[selection[0][k0], ...,
// selection[ndim-1][kn-1]] for every combination of indices into dst, laid
// out C-order in the output shape (len(selection[0]), ...) (spec.md §4.8
// "get_orthogonal_selection").
func (a *Array) GetOrthogonalSelection(selection [][]int64, dst []byte) error {
	return a.walkOrthogonal(selection, func(chunkBuf []byte, chunkLocalOff, dstOff int64) {
		ts := a.sc.Typesize()
		copy(dst[dstOff*ts:dstOff*ts+ts], chunkBuf[chunkLocalOff*ts:chunkLocalOff*ts+ts])
	}, nil)
}

// SetOrthogonalSelection scatters src (laid out the same way
// GetOrthogonalSelection's dst is) into
// array[selection[0][k0], ..., selection[ndim-1][kn-1]] for every
// combination of indices (spec.md §4.8 "set_orthogonal_selection").
func (a *Array) SetOrthogonalSelection(selection [][]int64, src []byte) error {
	return a.walkOrthogonal(selection, func(chunkBuf []byte, chunkLocalOff, srcOff int64) {
		ts := a.sc.Typesize()
		copy(chunkBuf[chunkLocalOff*ts:chunkLocalOff*ts+ts], src[srcOff*ts:srcOff*ts+ts])
	}, src)
}

// walkOrthogonal is shared plumbing for get/set: it groups each selection
// axis by chunk, enumerates the Cartesian product of per-axis chunk groups
// (one full chunk visited per combination), decompresses that chunk exactly
// once, invokes copyElem once per selected element with the chunk's local
// item offset and the element's position in the (unsorted) output buffer,
// and — for a set (mutating is non-nil src passed to walkOrthogonal) —
// recompresses and writes the chunk back.
func (a *Array) walkOrthogonal(selection [][]int64, copyElem func(chunkBuf []byte, chunkLocalOff, bufOff int64), src []byte) error {
	ndim := a.geo.NDim
	if len(selection) != ndim {
		return ErrRank
	}
	isSet := src != nil
	ts := a.sc.Typesize()

	groups := make([][]chunkGroup, ndim)
	for i := 0; i < ndim; i++ {
		for _, v := range selection[i] {
			if v < 0 || v >= a.geo.Shape[i] {
				return ErrInvalidGeometry
			}
		}
		groups[i] = groupByChunk(selection[i], a.geo.ChunkShape[i])
	}

	outShape := outputShape(selection)
	outStrides := cOrderStrides(outShape)

	chunkIdx := make([]int64, ndim)
	groupSel := make([]chunkGroup, ndim)

	var walkChunks func(axis int) error
	walkChunks = func(axis int) error {
		if axis == ndim {
			lin := a.geo.LinearChunk(chunkIdx)
			chunkBuf, err := a.sc.DecompressInto(int(lin), int(a.geo.ExtChunkNitems()*ts))
			if err != nil {
				return err
			}
			work := chunkBuf
			if isSet {
				work = append([]byte(nil), chunkBuf...)
			}

			elemIdx := make([]int64, ndim)
			outIdx := make([]int64, ndim)
			var walkElems func(axis int) error
			walkElems = func(axis int) error {
				if axis == ndim {
					chunkLocalOff := dot(elemIdx, a.geo.ExtChunkItemStrides)
					bufOff := dot(outIdx, outStrides)
					copyElem(work, chunkLocalOff, bufOff)
					return nil
				}
				for _, e := range groupSel[axis].entries {
					elemIdx[axis] = e.value - groupSel[axis].chunkIdx*a.geo.ChunkShape[axis]
					outIdx[axis] = e.orig
					if err := walkElems(axis + 1); err != nil {
						return err
					}
				}
				return nil
			}
			if err := walkElems(0); err != nil {
				return err
			}

			if isSet {
				out, err := a.sc.Compress(work)
				if err != nil {
					return err
				}
				if err := a.sc.UpdateChunk(int(lin), out, false); err != nil {
					return err
				}
			}
			return nil
		}
		for _, g := range groups[axis] {
			chunkIdx[axis] = g.chunkIdx
			groupSel[axis] = g
			if err := walkChunks(axis + 1); err != nil {
				return err
			}
		}
		return nil
	}
	return walkChunks(0)
}
