package filter

// Shuffle implements the byte-shuffle transform of spec.md §4.1: for a
// buffer of n elements of width typesize, byte j of element i becomes byte
// i of the j-th contiguous n-byte group. The scalar path handles any
// typesize; there is no SIMD kernel here (this is a from-scratch Go
// reimplementation, not a port of the vectorized C kernels), but the byte
// layout produced is bit-for-bit identical to the typesize∈{1,2,4,8,16}
// fast paths described in the spec.
func Shuffle(dst, src []byte, typesize int) {
	if typesize <= 1 {
		copy(dst, src)
		return
	}
	n := len(src) / typesize
	tailStart := n * typesize
	for i := 0; i < n; i++ {
		for j := 0; j < typesize; j++ {
			dst[j*n+i] = src[i*typesize+j]
		}
	}
	// Leading multiple-of-typesize prefix shuffled above; the tail that
	// doesn't fill a full element is memcpy'd verbatim, per spec.md §4.1.
	copy(dst[tailStart:], src[tailStart:])
}

// Unshuffle reverses Shuffle.
func Unshuffle(dst, src []byte, typesize int) {
	if typesize <= 1 {
		copy(dst, src)
		return
	}
	n := len(src) / typesize
	tailStart := n * typesize
	for i := 0; i < n; i++ {
		for j := 0; j < typesize; j++ {
			dst[i*typesize+j] = src[j*n+i]
		}
	}
	copy(dst[tailStart:], src[tailStart:])
}
