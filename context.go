package b2core

import (
	"time"

	"github.com/b2lib/b2core/internal/block"
	"github.com/b2lib/b2core/internal/chunk"
	"github.com/b2lib/b2core/internal/codec"
	"github.com/b2lib/b2core/internal/filter"
	"github.com/b2lib/b2core/internal/tuning"
	"github.com/b2lib/b2core/internal/workerpool"
)

// adaptiveMinMBPerSec is the throughput floor ShouldEscalate checks before
// recommending a higher level: escalating is only worth it when there is
// still speed headroom to spend.
const adaptiveMinMBPerSec = 50.0

// Context wraps the runtime state of one compression/decompression
// session: a persistent worker pool, the codec/filter registries, and the
// cparams/dparams it was built from (spec.md §4.11). Context creation is
// O(nthreads) allocation (the pool spawns its workers immediately);
// Destroy joins them.
type Context struct {
	cp CParams
	dp DParams

	pool     *workerpool.Pool
	codecs   *codec.Registry
	filters  *filter.Registry
	adaptive *tuning.AdaptiveTuner
}

// NewContext creates a context and eagerly spawns its worker pool at
// max(cp.NThreads, dp.NThreads) threads.
func NewContext(cp CParams, dp DParams) *Context {
	nthreads := cp.NThreads
	if dp.NThreads > nthreads {
		nthreads = dp.NThreads
	}
	if nthreads < 1 {
		nthreads = 1
	}
	return &Context{
		cp:       cp,
		dp:       dp,
		pool:     workerpool.New(nthreads),
		codecs:   codec.NewDefaultRegistry(),
		filters:  filter.NewRegistry(),
		adaptive: tuning.NewAdaptiveTuner(0),
	}
}

// Codecs exposes the context's codec registry so callers can register a
// user-defined codec (spec.md §6.3) before compressing/decompressing.
func (c *Context) Codecs() *codec.Registry { return c.codecs }

// Filters exposes the context's filter registry (spec.md §6.4).
func (c *Context) Filters() *filter.Registry { return c.filters }

// SetNThreads resizes the pool between calls (spec.md §4.11).
func (c *Context) SetNThreads(n int) {
	c.cp.NThreads = n
	c.dp.NThreads = n
	c.pool.SetNThreads(n)
}

// Destroy joins all workers and releases the pool. The context must not be
// used afterward.
func (c *Context) Destroy() { c.pool.Destroy() }

func hasShuffleFilter(p filter.Pipeline) bool {
	for _, s := range p.Active() {
		if s.ID == filter.ByteShuffle || s.ID == filter.BitShuffle {
			return true
		}
	}
	return false
}

func splitModeFromInt(forced int, tunedSplit bool) block.SplitMode {
	switch forced {
	case 1:
		return block.SplitAlways
	case 2:
		return block.SplitNever
	case 3:
		return block.SplitForwardCompat
	default:
		if tunedSplit {
			return block.SplitAlways
		}
		return block.SplitNever
	}
}

// Compress implements the chunk-compression entry of spec.md §4.4 using
// this context's cparams, worker pool, and registries. Level 0
// ("automatic") is resolved through tuning.AutoPolicy, and the context's
// AdaptiveTuner may escalate the resolved level by one step when recent
// chunks show degrading compression ratio with throughput to spare
// (SPEC_FULL.md §C).
func (c *Context) Compress(src []byte) ([]byte, error) {
	codecID := c.cp.CodecID
	level := c.cp.Level
	shuffleEngaged := hasShuffleFilter(c.cp.Filters)

	if level == 0 {
		autoCodec, autoLevel, autoShuffle := tuning.AutoPolicy(c.cp.Typesize, int64(len(src)))
		codecID = autoCodec
		level = autoLevel
		shuffleEngaged = autoShuffle
	}
	if level < 9 && c.adaptive.ShouldEscalate(adaptiveMinMBPerSec) {
		level++
	}

	cdc, ok := c.codecs.Lookup(codecID)
	if !ok {
		return nil, NewError(KindInvalidParam, "unregistered codec id")
	}
	tuned := tuning.Tune(tuning.Params{
		Nbytes:         int64(len(src)),
		Typesize:       c.cp.Typesize,
		Level:          level,
		CodecID:        codecID,
		ShuffleEngaged: shuffleEngaged,
	})
	p := chunk.Params{
		Typesize:        c.cp.Typesize,
		Blocksize:       tuned.Blocksize,
		Split:           splitModeFromInt(c.cp.Split, tuned.Split),
		Filters:         c.cp.Filters,
		FilterReg:       c.filters,
		Codec:           cdc,
		CodecCtx:        &codec.Context{ID: codecID, Meta: c.cp.CodecMeta, Params: c.cp.CodecParams, Typesize: int(c.cp.Typesize), Schunk: c.cp.SChunk},
		Level:           level,
		NThreads:        c.cp.NThreads,
		Dispatcher:      c.pool,
		Prefilter:       c.cp.Prefilter,
		PrefilterParams: c.cp.PrefilterParams,
	}

	start := time.Now()
	out, err := chunk.Compress(src, p)
	if err != nil {
		return nil, WrapError(KindCodecFailure, "compress", err)
	}

	if elapsed := time.Since(start); elapsed > 0 && len(out) > 0 {
		mbPerSec := (float64(len(src)) / (1024 * 1024)) / elapsed.Seconds()
		ratio := float64(len(src)) / float64(len(out))
		c.adaptive.Observe(ratio, mbPerSec)
	}
	return out, nil
}

// Decompress implements the chunk-decompression entry of spec.md §4.4. mask
// follows internal/chunk.Decompress: true entries mark blocks to skip.
func (c *Context) Decompress(chunkBytes []byte, dstCapacity int, mask []bool) ([]byte, error) {
	p := chunk.Params{
		FilterReg:        c.filters,
		CodecReg:         c.codecs,
		NThreads:         c.dp.NThreads,
		Dispatcher:       c.pool,
		Postfilter:       c.dp.Postfilter,
		PostfilterParams: c.dp.PostfilterParams,
	}
	out, err := chunk.Decompress(chunkBytes, dstCapacity, p, mask)
	if err != nil {
		return nil, WrapError(KindCorruption, "decompress", err)
	}
	return out, nil
}
