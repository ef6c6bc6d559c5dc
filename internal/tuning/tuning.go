// Package tuning implements spec.md §4.10: choosing blocksize and
// split-mode from codec, typesize, level and cache sizes, plus the
// supplemented adaptive ("btune"-style) policy described in SPEC_FULL.md §C.
package tuning

import (
	"github.com/b2lib/b2core/internal/bitutil"
	"github.com/b2lib/b2core/internal/codec"
)

const (
	// MinBufferSize mirrors BLOSC_MIN_BUFFERSIZE: the smallest blocksize
	// the tuner will pick even under a user-forced value.
	MinBufferSize = 32
	// DefaultL1 is the default L1 cache size assumption (32 KiB),
	// spec.md §4.10.
	DefaultL1 = 32 * 1024
)

// levelScale implements spec.md §4.10's level table: 1-4 x1, 5 x2, 6 x4,
// 7-8 x8, 9 x8 (or x16 for high-compression-ratio codecs).
func levelScale(level int, highCompressionRatio bool) int64 {
	switch {
	case level <= 4:
		return 1
	case level == 5:
		return 2
	case level == 6:
		return 4
	case level == 7, level == 8:
		return 8
	default: // level >= 9
		if highCompressionRatio {
			return 16
		}
		return 8
	}
}

func isHighCompressionRatio(codecID int) bool {
	return codecID == codec.IDZstd || codecID == codec.IDGzip
}

// benefitsFromSplit reports whether codecID is the class of "fast
// byte-level codec" spec.md §4.10 says benefits from split-mode overhead
// accommodation (paired with shuffle).
func benefitsFromSplit(codecID int, shuffleEngaged bool) bool {
	return codecID == codec.IDS2 && shuffleEngaged
}

// Params is the tuner's inputs.
type Params struct {
	ForcedBlocksize int64 // 0 means "let the tuner choose"
	Nbytes          int64
	Typesize        int64
	Level           int
	CodecID         int
	ShuffleEngaged  bool
	L1CacheSize     int64 // 0 means DefaultL1
}

// Result is the tuner's output.
type Result struct {
	Blocksize int64
	Split     bool
}

// Tune implements spec.md §4.10's tune(context) algorithm.
func Tune(p Params) Result {
	l1 := p.L1CacheSize
	if l1 <= 0 {
		l1 = DefaultL1
	}

	var blocksize int64
	if p.ForcedBlocksize != 0 {
		blocksize = clamp(p.ForcedBlocksize, MinBufferSize, p.Nbytes)
	} else {
		base := l1
		if isHighCompressionRatio(p.CodecID) {
			base *= 2
		}
		scale := levelScale(p.Level, isHighCompressionRatio(p.CodecID))
		blocksize = base * scale
		if p.Nbytes > 0 && blocksize > p.Nbytes {
			blocksize = p.Nbytes
		}
		if blocksize < MinBufferSize && p.Nbytes >= MinBufferSize {
			blocksize = MinBufferSize
		}
	}

	if p.Typesize > 1 {
		blocksize = bitutil.CeilToMultiple(blocksize, p.Typesize)
		if blocksize == 0 {
			blocksize = p.Typesize
		}
	}
	if blocksize <= 0 {
		blocksize = 1
	}

	split := benefitsFromSplit(p.CodecID, p.ShuffleEngaged)
	if split && p.Typesize > 1 {
		// Round up so each of the typesize sub-streams still divides
		// evenly, accommodating split-mode overhead per spec.md §4.10.
		blocksize = bitutil.CeilToMultiple(blocksize, p.Typesize)
	}

	return Result{Blocksize: blocksize, Split: split}
}

func clamp(v, lo, hi int64) int64 {
	if hi > 0 && v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}

// AutoPolicy implements the supplemented btune/stune-style "automatic"
// codec+level selection (SPEC_FULL.md §C), used when the caller asks for
// level 0 ("automatic"): buffers under 16 KiB favor the fast s2 codec at a
// low level whatever their typesize; everything else favors zstd at a mid
// level. This
// mirrors stune.c's typesize/nbytes-driven forced-policy table without
// reproducing its exact thresholds, which are tied to C ABI details not
// meaningful here.
func AutoPolicy(typesize, nbytes int64) (codecID int, level int, shuffle bool) {
	switch {
	case nbytes < 16*1024:
		return codec.IDS2, 1, typesize > 1
	case typesize >= 4 && typesize <= 8:
		return codec.IDZstd, 5, true
	default:
		return codec.IDZstd, 3, typesize > 1
	}
}
