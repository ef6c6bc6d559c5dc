// Package codec implements the uniform codec contract of spec.md §4.2/§6.3
// and the built-in codec registry. The actual entropy coders are treated as
// external collaborators per spec.md §1 ("Third-party codec/entropy
// libraries ... The core consumes them through a uniform codec interface");
// this package is that interface plus thin adapters over three real
// libraries from the dependency stack so the pipeline has something
// concrete to drive in tests.
package codec

import "errors"

// ID ranges per spec.md §4.2: built-in (reserved low range),
// registered-official (middle), user-defined (high).
const (
	IDNone  = 0
	IDZstd  = 1 // zstd-class general LZ
	IDS2    = 2 // fast byte-level codec (blosclz-analogue)
	IDGzip  = 3 // parallel-friendly gzip-class codec

	RegisteredOfficialBase = 32
	UserBase               = 160
)

// Context carries state a codec needs across calls, owned by the caller
// per spec.md §4.2: codec id/meta, per-codec params, optional dictionary,
// typesize, and a back-reference to the current schunk (kept as an opaque
// interface{} here to avoid an import cycle; codecs that need array
// metadata type-assert it).
type Context struct {
	ID       int
	Meta     byte
	Params   []byte
	Dict     []byte
	Typesize int
	Schunk   interface{}
}

// Codec is the uniform contract of spec.md §6.3. Compress returns bytes
// written, 0 for "incompressible", an error for failure. Decompress
// returns bytes written or an error.
type Codec interface {
	ID() int
	Name() string
	Compress(src []byte, dst []byte, level int, ctx *Context) (int, error)
	Decompress(src []byte, dst []byte, ctx *Context) (int, error)
}

// CellGetter is implemented by codecs supporting random-access cell
// retrieval from a block (spec.md §4.2, used by bit-plane-style codecs for
// orthogonal element access). None of the built-ins here implement it, and
// nothing in this module calls it: it only fixes the optional-interface
// shape a user codec would offer.
type CellGetter interface {
	GetCell(blockBytes []byte, ncells, cellIdx int, dst []byte) (int, error)
}

var (
	ErrIncompressible    = errors.New("codec: incompressible")
	ErrDstTooSmall       = errors.New("codec: destination capacity too small")
	ErrAlreadyRegistered = errors.New("codec: id already registered")
	ErrReservedID        = errors.New("codec: user id below UserBase is reserved")
	ErrUnknown           = errors.New("codec: unknown id")
)

// Registry is an indexable table of codecs, built-ins pre-populated plus
// whatever the caller registers in the user range (spec.md §6.3: "A codec
// registered late ... after a frame was written with that id must match
// the original behavior on decode; frames do not embed codec names" — we
// therefore key purely by id, never by Name()).
type Registry struct {
	byID map[int]Codec
}

// NewDefaultRegistry returns a registry with the three built-in codecs
// already registered, the equivalent of spec.md's "single default global
// registry populated at program start for convenience" (§9 "Global
// state").
func NewDefaultRegistry() *Registry {
	r := &Registry{byID: make(map[int]Codec)}
	r.mustRegisterBuiltin(newZstdCodec())
	r.mustRegisterBuiltin(newS2Codec())
	r.mustRegisterBuiltin(newGzipCodec())
	return r
}

func (r *Registry) mustRegisterBuiltin(c Codec) {
	r.byID[c.ID()] = c
}

// Register adds a user-range codec (spec.md §6.3 "IDs in the user range
// are accepted only if not colliding with a registered id").
func (r *Registry) Register(c Codec) error {
	if c.ID() < UserBase {
		return ErrReservedID
	}
	if _, ok := r.byID[c.ID()]; ok {
		return ErrAlreadyRegistered
	}
	r.byID[c.ID()] = c
	return nil
}

func (r *Registry) Lookup(id int) (Codec, bool) {
	c, ok := r.byID[id]
	return c, ok
}
