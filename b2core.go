// Package b2core implements a blocked, shuffling, typed compression
// library: a filter -> codec -> frame pipeline operating on a
// chunk -> block -> cell hierarchy, a super-chunk container (package
// schunk) with metadata layers and frame persistence (internal/frame,
// internal/ioh), and an n-dimensional array overlay (package b2nd).
//
// Compress and Decompress below are the ephemeral entry points: each call
// builds a throwaway Context, uses it once, and tears it down. Callers
// doing many calls back-to-back should build one Context with NewContext
// and reuse it instead, so its worker pool is not re-spawned per call.
package b2core

// Compress compresses src into one chunk using cp, via a context created
// and destroyed for this call alone.
func Compress(src []byte, cp CParams) ([]byte, error) {
	ctx := NewContext(cp, NewDParams())
	defer ctx.Destroy()
	return ctx.Compress(src)
}

// Decompress fully decompresses a chunk produced by Compress.
func Decompress(chunkBytes []byte, dstCapacity int, dp DParams) ([]byte, error) {
	ctx := NewContext(NewCParams(), dp)
	defer ctx.Destroy()
	return ctx.Decompress(chunkBytes, dstCapacity, nil)
}
