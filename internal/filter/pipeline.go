// Package filter implements the shuffle/bitshuffle/delta/truncate-precision
// transforms and the filter pipeline that chains them (spec.md §4.1).
package filter

// MaxFilters bounds the filter pipeline, per spec.md §3 ("up to
// MAX_FILTERS (filter id, meta byte) pairs").
const MaxFilters = 6

// Filter ids. 0 means "absent" (an empty slot), matching spec.md §4.1.
const (
	None          byte = 0
	ByteShuffle   byte = 1
	BitShuffle    byte = 2
	DeltaFilter   byte = 3
	TruncPrecFilter byte = 4
	// UserBase is the first id available to user-registered filters,
	// mirroring the built-in/registered-official/user-defined id ranges
	// spec.md §6.3 describes for codecs.
	UserBase byte = 32
)

// Slot is one (filter id, meta) pair in a pipeline.
type Slot struct {
	ID   byte
	Meta byte
}

// Pipeline is an ordered list of up to MaxFilters slots, applied in slot
// order on encode and reverse order on decode (spec.md §4.1).
type Pipeline struct {
	Slots [MaxFilters]Slot
}

// Active returns the non-empty slots in pipeline order.
func (p *Pipeline) Active() []Slot {
	out := make([]Slot, 0, MaxFilters)
	for _, s := range p.Slots {
		if s.ID != None {
			out = append(out, s)
		}
	}
	return out
}

// UserFilter is the interface a user-registered filter (id >= UserBase)
// implements, mirroring spec.md §6.4's (src, dst, size, typesize, meta,
// context) descriptor shape, generalized to Go signatures.
type UserFilter interface {
	ID() byte
	Encode(dst, src []byte, typesize int, meta byte) error
	Decode(dst, src []byte, typesize int, meta byte) error
}

// Registry holds user-defined filters by id, analogous to the codec
// registry (internal/codec) but scoped to filters (spec.md §6.4).
type Registry struct {
	byID map[byte]UserFilter
}

func NewRegistry() *Registry { return &Registry{byID: make(map[byte]UserFilter)} }

func (r *Registry) Register(f UserFilter) error {
	if f.ID() < UserBase {
		return ErrReservedID
	}
	if _, ok := r.byID[f.ID()]; ok {
		return ErrAlreadyRegistered
	}
	r.byID[f.ID()] = f
	return nil
}

func (r *Registry) Lookup(id byte) (UserFilter, bool) {
	f, ok := r.byID[id]
	return f, ok
}

// sentinel errors kept local to avoid an import cycle on the root package;
// the block engine translates these into b2core.KindFilterFailure.
var (
	ErrReservedID        = pipelineError("filter id below UserBase is reserved")
	ErrAlreadyRegistered = pipelineError("filter id already registered")
	ErrUnknownFilter     = pipelineError("unknown filter id")
)

type pipelineError string

func (e pipelineError) Error() string { return string(e) }

// Encode runs the pipeline forward over src, alternating between two
// scratch buffers so the final filter's output lands in out. ref is the
// first block's pre-filter bytes, needed by DeltaFilter; it may be nil for
// block 0 itself (delta then diffs against zero).
func Encode(p *Pipeline, reg *Registry, out, src []byte, typesize int, ref []byte) ([]byte, error) {
	cur := src
	a := make([]byte, len(src))
	b := make([]byte, len(src))
	bufs := [2][]byte{a, b}
	bi := 0
	for _, s := range p.Active() {
		dst := bufs[bi%2]
		if err := applyEncode(s, dst, cur, typesize, ref, reg); err != nil {
			return nil, err
		}
		cur = dst
		bi++
	}
	copy(out[:len(cur)], cur)
	return out[:len(cur)], nil
}

// Decode runs the pipeline in reverse over src.
func Decode(p *Pipeline, reg *Registry, out, src []byte, typesize int, ref []byte) ([]byte, error) {
	active := p.Active()
	cur := src
	a := make([]byte, len(src))
	b := make([]byte, len(src))
	bufs := [2][]byte{a, b}
	bi := 0
	for i := len(active) - 1; i >= 0; i-- {
		s := active[i]
		dst := bufs[bi%2]
		if err := applyDecode(s, dst, cur, typesize, ref, reg); err != nil {
			return nil, err
		}
		cur = dst
		bi++
	}
	copy(out[:len(cur)], cur)
	return out[:len(cur)], nil
}

func applyEncode(s Slot, dst, src []byte, typesize int, ref []byte, reg *Registry) error {
	switch s.ID {
	case ByteShuffle:
		Shuffle(dst, src, typesize)
	case BitShuffle:
		Bitshuffle(dst, src, typesize)
	case DeltaFilter:
		Delta(dst, src, ref, typesize)
	case TruncPrecFilter:
		copy(dst, src)
		TruncatePrecision(dst, typesize, s.Meta)
	default:
		if s.ID >= UserBase {
			f, ok := reg.Lookup(s.ID)
			if !ok {
				return ErrUnknownFilter
			}
			return f.Encode(dst, src, typesize, s.Meta)
		}
		return ErrUnknownFilter
	}
	return nil
}

func applyDecode(s Slot, dst, src []byte, typesize int, ref []byte, reg *Registry) error {
	switch s.ID {
	case ByteShuffle:
		Unshuffle(dst, src, typesize)
	case BitShuffle:
		Bitunshuffle(dst, src, typesize)
	case DeltaFilter:
		Undelta(dst, src, ref, typesize)
	case TruncPrecFilter:
		copy(dst, src) // lossy: nothing further to reverse
	default:
		if s.ID >= UserBase {
			f, ok := reg.Lookup(s.ID)
			if !ok {
				return ErrUnknownFilter
			}
			return f.Decode(dst, src, typesize, s.Meta)
		}
		return ErrUnknownFilter
	}
	return nil
}

// Prefilter is the optional user callback run once per block before the
// filter pipeline on compress (spec.md §4.1 "Prefilter/postfilter hooks").
// It receives the block input, an output slot to fill, the block index and
// an opaque parameter blob, and may synthesize or consume data.
type Prefilter func(input []byte, output []byte, blockIndex int64, params interface{}) error

// Postfilter is the symmetric hook run once per block after the pipeline
// on decompress.
type Postfilter func(block []byte, blockIndex int64, params interface{}) error
