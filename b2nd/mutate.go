package b2nd

// Append grows axis by the extent buf represents and writes buf into the
// newly created region (spec.md §4.8 "append(buffer, axis)"): equivalent to
// Insert at the axis's current trailing end.
func (a *Array) Append(buf []byte, axis int) error {
	return a.Insert(buf, axis, a.geo.Shape[axis])
}

// Insert grows axis at position by the extent buf represents, shifting any
// data already past position up, and writes buf into the newly created
// region (spec.md §4.8 "insert(buffer, axis, position): resize by
// +buf_size/axis_cross_section along axis, then set_slice the new region").
// The inserted extent is inferred from len(buf) and the array's per-item
// footprint across every other axis; buf's size must be an exact multiple
// of that cross-section.
func (a *Array) Insert(buf []byte, axis int, position int64) error {
	ndim := a.geo.NDim
	if axis < 0 || axis >= ndim {
		return ErrRank
	}
	if position < 0 || position > a.geo.Shape[axis] {
		return ErrInvalidGeometry
	}

	crossSection := a.sc.Typesize()
	for i := 0; i < ndim; i++ {
		if i != axis {
			crossSection *= a.geo.Shape[i]
		}
	}
	if crossSection <= 0 || int64(len(buf))%crossSection != 0 {
		return ErrSizeMismatch
	}
	delta := int64(len(buf)) / crossSection

	newShape := append([]int64(nil), a.geo.Shape...)
	newShape[axis] += delta
	start := make([]int64, ndim)
	start[axis] = position
	if err := a.Resize(newShape, start); err != nil {
		return err
	}

	insStart := make([]int64, ndim)
	insStop := append([]int64(nil), newShape...)
	insStart[axis] = position
	insStop[axis] = position + delta
	return a.SetSlice(insStart, insStop, buf, nil, nil)
}

// Delete shrinks axis by removing [start, start+length), shifting any
// trailing data down (spec.md §4.8 "delete(axis, start, length): resize by
// −length along axis starting at start"). Resize's shrink path always drops
// from an axis's trailing end, so the region past the deleted range is
// shifted down first, then the (now-duplicate) tail is dropped by Resize.
func (a *Array) Delete(axis int, start, length int64) error {
	ndim := a.geo.NDim
	if axis < 0 || axis >= ndim {
		return ErrRank
	}
	if start < 0 || length < 0 || start+length > a.geo.Shape[axis] {
		return ErrInvalidGeometry
	}
	if length == 0 {
		return nil
	}

	oldShape := append([]int64(nil), a.geo.Shape...)
	tailLen := oldShape[axis] - (start + length)
	if tailLen > 0 {
		readStart := make([]int64, ndim)
		readStop := append([]int64(nil), oldShape...)
		readStart[axis] = start + length
		readStop[axis] = start + length + tailLen

		regionShape := regionShapeOf(readStart, readStop)
		nelems := int64(1)
		for _, d := range regionShape {
			nelems *= d
		}
		tmp := make([]byte, nelems*a.sc.Typesize())
		if err := a.GetSlice(readStart, readStop, tmp, nil, nil); err != nil {
			return err
		}

		writeStart := make([]int64, ndim)
		writeStop := append([]int64(nil), oldShape...)
		writeStart[axis] = start
		writeStop[axis] = start + tailLen
		if err := a.SetSlice(writeStart, writeStop, tmp, nil, nil); err != nil {
			return err
		}
	}

	newShape := append([]int64(nil), oldShape...)
	newShape[axis] -= length
	return a.Resize(newShape, nil)
}
