package b2core

import (
	"github.com/b2lib/b2core/internal/codec"
	"github.com/b2lib/b2core/internal/filter"
)

// Prefilter/Postfilter mirror internal/filter's callback signatures at the
// public API boundary (spec.md §4.11 "prefilter callback and params").
type Prefilter = filter.Prefilter
type Postfilter = filter.Postfilter

// CParams holds everything needed to compress a chunk (spec.md §4.11).
// Construct with NewCParams, which applies defaults, then mutate with the
// With* functional options — the teacher's own options idiom
// (DESIGN.md: root package).
type CParams struct {
	CodecID   int
	CodecMeta byte
	Level     int
	Typesize  int64
	NThreads  int
	Filters   filter.Pipeline
	Split     int // mirrors internal/block.SplitMode; kept as int to avoid a public dependency on internal/block
	CodecParams []byte

	Prefilter       Prefilter
	PrefilterParams interface{}

	// SChunk is an opaque back-reference to the owning super-chunk, for
	// codecs that need schunk-level context (spec.md §4.11).
	SChunk interface{}

	TunerID string
}

// CParamsOption mutates a CParams under construction.
type CParamsOption func(*CParams)

// NewCParams builds a CParams with the library defaults (zstd at level 5,
// byte-shuffle engaged when typesize > 1, one thread) and applies opts.
func NewCParams(opts ...CParamsOption) CParams {
	p := CParams{
		CodecID:  codec.IDZstd,
		Level:    5,
		Typesize: 1,
		NThreads: 1,
	}
	for _, o := range opts {
		o(&p)
	}
	if p.Typesize > 1 {
		hasFilter := false
		for _, s := range p.Filters.Active() {
			if s.ID == filter.ByteShuffle || s.ID == filter.BitShuffle {
				hasFilter = true
			}
		}
		if !hasFilter {
			p.Filters.Slots[0] = filter.Slot{ID: filter.ByteShuffle}
		}
	}
	return p
}

func WithCodec(id int) CParamsOption       { return func(p *CParams) { p.CodecID = id } }
func WithLevel(level int) CParamsOption    { return func(p *CParams) { p.Level = level } }
func WithTypesize(ts int64) CParamsOption  { return func(p *CParams) { p.Typesize = ts } }
func WithNThreads(n int) CParamsOption     { return func(p *CParams) { p.NThreads = n } }
func WithSplitMode(m int) CParamsOption    { return func(p *CParams) { p.Split = m } }
func WithFilters(pipeline filter.Pipeline) CParamsOption {
	return func(p *CParams) { p.Filters = pipeline }
}
func WithPrefilter(fn Prefilter, params interface{}) CParamsOption {
	return func(p *CParams) { p.Prefilter = fn; p.PrefilterParams = params }
}
