package filter

// Delta implements the numeric delta filter of spec.md §4.1: the first
// block of a chunk defines the reference; every block (including the
// first, against an all-zero reference) stores element-wise differences
// modulo 2^(8*typesize). ref is the first block's bytes (zero-length or
// nil for the first block itself, in which case the reference is treated
// as all zero).
func Delta(dst, src, ref []byte, typesize int) {
	n := len(src)
	for i := 0; i < n; i++ {
		var r byte
		if i < len(ref) {
			r = ref[i]
		}
		dst[i] = src[i] - r
	}
	_ = typesize // delta is byte-wise modulo arithmetic regardless of typesize
}

// Undelta reverses Delta.
func Undelta(dst, src, ref []byte, typesize int) {
	n := len(src)
	for i := 0; i < n; i++ {
		var r byte
		if i < len(ref) {
			r = ref[i]
		}
		dst[i] = src[i] + r
	}
	_ = typesize
}
