package b2nd

// copyRegion implements the b2nd_copy_buffer n-dim strided copy (spec.md
// §4.8 step 2b/2c): copies a rectangular region of `regionShape` items
// between two buffers of possibly different shapes, at independent
// per-buffer start offsets, element size `typesize` bytes each.
//
// srcShape/dstShape are the full shapes the respective buffers are laid
// out in (C-order); srcStart/dstStart locate the region's origin within
// each. All slices must have the same length (ndim).
func copyRegion(typesize int64, regionShape, srcShape, srcStart, dstShape, dstStart []int64, src, dst []byte) {
	ndim := len(regionShape)
	if ndim == 0 {
		copy(dst[:typesize], src[:typesize])
		return
	}
	srcStrides := cOrderStrides(srcShape)
	dstStrides := cOrderStrides(dstShape)
	copyRegionRec(0, ndim, typesize, regionShape, srcStrides, srcStart, dstStrides, dstStart, src, dst)
}

func copyRegionRec(axis, ndim int, typesize int64, regionShape, srcStrides, srcStart, dstStrides, dstStart []int64, src, dst []byte) {
	if axis == ndim-1 {
		n := regionShape[axis]
		srcOff := (dot(srcStart, srcStrides)) * typesize
		dstOff := (dot(dstStart, dstStrides)) * typesize
		copy(dst[dstOff:dstOff+n*typesize], src[srcOff:srcOff+n*typesize])
		return
	}
	n := regionShape[axis]
	srcStart2 := append([]int64(nil), srcStart...)
	dstStart2 := append([]int64(nil), dstStart...)
	for i := int64(0); i < n; i++ {
		srcStart2[axis] = srcStart[axis] + i
		dstStart2[axis] = dstStart[axis] + i
		copyRegionRec(axis+1, ndim, typesize, regionShape, srcStrides, srcStart2, dstStrides, dstStart2, src, dst)
	}
}

func dot(a, b []int64) int64 {
	var s int64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
