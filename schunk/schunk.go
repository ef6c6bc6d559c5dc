// Package schunk implements the super-chunk container of spec.md §4.5: an
// ordered sequence of chunks, in-memory or frame-backed, with fixed and
// variable metadata layers and append/update/insert/delete operations.
package schunk

import (
	"sync"

	"github.com/b2lib/b2core"
	"github.com/b2lib/b2core/internal/chunk"
	"github.com/b2lib/b2core/internal/frame"
)

// MaxMetalayers bounds the number of fixed metadata layers (spec.md §4.9
// "up to MAX_METALAYERS entries"), matching the size of the frame header's
// inline layer table in the original format.
const MaxMetalayers = 16

// Chunk is one entry in a super-chunk's chunk list.
type Chunk struct {
	Bytes       []byte // the chunk's on-wire bytes (a small header-only buffer when Special)
	Owned       bool   // true if Schunk allocated Bytes itself (vs. a caller reference)
	Special     bool
	SpecialKind byte
	// SpecialTypesize/SpecialValue carry what EncodeSpecial needs to
	// reconstruct a special chunk after a to_buffer/from_buffer round trip,
	// since the frame format itself only records a special chunk's kind.
	SpecialTypesize int64
	SpecialValue    []byte
	Nbytes          int64 // logical uncompressed length
	Cbytes          int64 // 0 for special chunks
}

// Schunk is a super-chunk: a sequence of chunks plus metadata layers
// (spec.md §4.5). Operations are atomic per call with respect to the
// super-chunk's own state but are NOT safe for concurrent callers
// (spec.md §5 "Super-chunk state: NOT safe for concurrent mutation").
type Schunk struct {
	mu sync.Mutex

	ctx *b2core.Context
	cp  b2core.CParams
	dp  b2core.DParams

	typesize  int64
	chunksize int64 // logical bytes per regular (non-tail, non-special) chunk

	chunks []Chunk
	header frame.Header // carries MetaLayers/VLMetaLayers only; chunk fields unused here

	nbytes int64
	cbytes int64
}

// Option configures a Schunk at construction.
type Option func(*Schunk)

// WithChunksize sets the logical byte length of a regular chunk (spec.md
// §4.5's chunksize, used by append_buffer/fill_special).
func WithChunksize(n int64) Option { return func(s *Schunk) { s.chunksize = n } }

// New creates an empty, in-memory super-chunk using cp/dp for all
// (de)compression. It owns a fresh Context for its lifetime; call Close to
// release it.
func New(cp b2core.CParams, dp b2core.DParams, opts ...Option) *Schunk {
	s := &Schunk{
		ctx:      b2core.NewContext(cp, dp),
		cp:       cp,
		dp:       dp,
		typesize: cp.Typesize,
	}
	for _, o := range opts {
		o(s)
	}
	if s.chunksize <= 0 {
		s.chunksize = 4 * 1024 * 1024 // spec.md doesn't mandate a default; 4 MiB matches a typical L3-sized chunk
	}
	return s
}

// Close releases the super-chunk's context (spec.md §4.11 "Destroying a
// context joins all workers").
func (s *Schunk) Close() { s.ctx.Destroy() }

// CloneEmpty creates a fresh, empty Schunk using this one's compression and
// decompression parameters, for callers (b2nd's Resize) that rebuild a
// chunk list wholesale rather than mutating this Schunk in place.
func (s *Schunk) CloneEmpty(chunksize int64) *Schunk {
	s.mu.Lock()
	cp, dp := s.cp, s.dp
	s.mu.Unlock()
	return New(cp, dp, WithChunksize(chunksize))
}

// Typesize returns the item width this super-chunk was constructed with.
func (s *Schunk) Typesize() int64 { return s.typesize }

// Chunksize returns the configured logical byte length of a regular chunk.
func (s *Schunk) Chunksize() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chunksize
}

// Compress runs this super-chunk's context over src without appending the
// result, for callers (b2nd) that need to build a chunk buffer before
// deciding whether to append or update it in place.
func (s *Schunk) Compress(src []byte) ([]byte, error) {
	return s.ctx.Compress(src)
}

// DecompressInto is DecompressChunk's plumbing exposed with an explicit
// capacity, for callers that keep their own scratch buffers.
func (s *Schunk) DecompressInto(i int, dstCapacity int) ([]byte, error) {
	s.mu.Lock()
	if i < 0 || i >= len(s.chunks) {
		s.mu.Unlock()
		return nil, b2core.ErrInvalidIndex
	}
	c := s.chunks[i]
	s.mu.Unlock()
	return s.ctx.Decompress(c.Bytes, dstCapacity, nil)
}

// Nchunks returns the current chunk count.
func (s *Schunk) Nchunks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chunks)
}

// Nbytes/Cbytes report the running sums spec.md §4.5 requires as
// invariants ("nbytes == sum(chunk.nbytes)", "cbytes == sum(chunk.cbytes)
// for stored chunks").
func (s *Schunk) Nbytes() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nbytes
}

func (s *Schunk) Cbytes() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cbytes
}

// itemsPerChunk returns how many typesize-sized items fit in one regular
// chunk. FillSpecial computes the same quotient inline (so it can apply its
// per-call chunksize override) and does not call this method.
func (s *Schunk) itemsPerChunk() int64 {
	if s.typesize <= 0 {
		return s.chunksize
	}
	return s.chunksize / s.typesize
}

// MetaAdd/MetaUpdate/MetaGet/MetaExists implement the fixed metadata layer
// operations of spec.md §4.9, delegating to frame.Header which already
// implements the same size-stability and copy-on-read rules.
func (s *Schunk) MetaAdd(name string, content []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.header.MetaLayers) >= MaxMetalayers {
		return b2core.NewError(b2core.KindInvalidParam, "too many metadata layers")
	}
	return s.header.MetaAdd(name, content)
}

func (s *Schunk) MetaUpdate(name string, content []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.header.MetaUpdate(name, content)
}

func (s *Schunk) MetaGet(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.header.MetaGet(name)
}

func (s *Schunk) MetaExists(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.header.MetaExists(name)
}

// VLMetaSet/VLMetaGet/VLMetaDelete implement the variable metadata layer
// operations (spec.md §4.9 "Variable (vlmeta_*)": unbounded count,
// resizable, deletable).
func (s *Schunk) VLMetaSet(name string, content []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.header.VLMetaSet(name, content)
}

func (s *Schunk) VLMetaGet(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.header.VLMetaGet(name)
}

func (s *Schunk) VLMetaDelete(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.header.VLMetaDelete(name)
}

// chunkHeaderOf parses the chunk header at the start of b, shared by the
// append/update/insert paths and FromBuffer.
func chunkHeaderOf(b []byte) (*chunk.Header, error) {
	return chunk.Unmarshal(b)
}
