package b2core

// DParams holds everything needed to decompress a chunk (spec.md §4.11).
type DParams struct {
	NThreads int

	Postfilter       Postfilter
	PostfilterParams interface{}

	SChunk interface{}
}

// DParamsOption mutates a DParams under construction.
type DParamsOption func(*DParams)

// NewDParams builds a DParams with defaults (one thread) and applies opts.
func NewDParams(opts ...DParamsOption) DParams {
	p := DParams{NThreads: 1}
	for _, o := range opts {
		o(&p)
	}
	return p
}

func WithDNThreads(n int) DParamsOption { return func(p *DParams) { p.NThreads = n } }
func WithPostfilter(fn Postfilter, params interface{}) DParamsOption {
	return func(p *DParams) { p.Postfilter = fn; p.PostfilterParams = params }
}
