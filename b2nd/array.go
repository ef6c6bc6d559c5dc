package b2nd

import (
	"github.com/b2lib/b2core"
	"github.com/b2lib/b2core/internal/chunk"
	"github.com/b2lib/b2core/schunk"
)

// Array is an n-dimensional view over a super-chunk (spec.md §4.8): the
// super-chunk holds one compressed chunk per geometry tile, and the "b2nd"
// metadata layer is the single source of geometric truth, with Geo cached
// and revalidated on Load.
type Array struct {
	sc  *schunk.Schunk
	geo *Geometry

	dtypeFormat byte
	dtype       string
}

// New creates an array of the given geometry, filled with zero (spec.md
// §8 scenario 3's "initialized with fill(0)"). cp.Typesize must be set;
// the schunk's chunksize is derived from the geometry
// (extchunknitems·typesize), overriding anything cp/opts request.
func New(cp b2core.CParams, dp b2core.DParams, shape, chunkshape, blockshape []int64, dtypeFormat byte, dtype string) (*Array, error) {
	geo, err := NewGeometry(shape, chunkshape, blockshape)
	if err != nil {
		return nil, err
	}
	ts := cp.Typesize
	if ts < 1 {
		ts = 1
	}

	sc := schunk.New(cp, dp, schunk.WithChunksize(geo.ExtChunkNitems()*ts))
	a := &Array{sc: sc, geo: geo, dtypeFormat: dtypeFormat, dtype: dtype}

	if geo.NDim == 0 {
		zero, err := chunk.EncodeSpecial(chunk.SpecialZero, 1, ts, nil)
		if err != nil {
			sc.Close()
			return nil, err
		}
		if err := sc.AppendChunk(zero, false); err != nil {
			sc.Close()
			return nil, err
		}
	} else if nchunks := geo.NChunks(); nchunks > 0 {
		if err := sc.FillSpecial(nchunks*geo.ExtChunkNitems(), chunk.SpecialZero, geo.ExtChunkNitems()*ts, nil); err != nil {
			sc.Close()
			return nil, err
		}
	}

	if err := a.writeMeta(); err != nil {
		sc.Close()
		return nil, err
	}
	return a, nil
}

func (a *Array) writeMeta() error {
	m := a.toMeta()
	buf := EncodeMeta(m)
	if _, ok := a.sc.MetaGet(metaLayerName); ok {
		return a.sc.MetaUpdate(metaLayerName, buf)
	}
	return a.sc.MetaAdd(metaLayerName, buf)
}

func (a *Array) toMeta() Meta {
	chunkshape := make([]int32, a.geo.NDim)
	blockshape := make([]int32, a.geo.NDim)
	for i := 0; i < a.geo.NDim; i++ {
		chunkshape[i] = int32(a.geo.ChunkShape[i])
		blockshape[i] = int32(a.geo.BlockShape[i])
	}
	return Meta{
		Version:     metaVersion,
		NDim:        int8(a.geo.NDim),
		Shape:       append([]int64(nil), a.geo.Shape...),
		ChunkShape:  chunkshape,
		BlockShape:  blockshape,
		DtypeFormat: a.dtypeFormat,
		Dtype:       a.dtype,
	}
}

// Load reconstructs an Array from a contiguous frame built by ToBuffer
// (spec.md §4.8's "b2nd" metadata layer, read back with the "caterva"
// fallback name per spec.md §9).
func Load(buf []byte, cp b2core.CParams, dp b2core.DParams, copy bool) (*Array, error) {
	sc, err := schunk.FromBuffer(buf, cp, dp, copy)
	if err != nil {
		return nil, err
	}
	metaBuf, ok := sc.MetaGet(metaLayerName)
	if !ok {
		metaBuf, ok = sc.MetaGet(catervaLayerName)
	}
	if !ok {
		sc.Close()
		return nil, b2core.NewError(b2core.KindMetalayerNotFound, "b2nd metadata layer not found")
	}
	m, err := DecodeMeta(metaBuf)
	if err != nil {
		sc.Close()
		return nil, err
	}
	chunkshape := make([]int64, len(m.ChunkShape))
	blockshape := make([]int64, len(m.BlockShape))
	for i := range chunkshape {
		chunkshape[i] = int64(m.ChunkShape[i])
	}
	for i := range blockshape {
		blockshape[i] = int64(m.BlockShape[i])
	}
	geo, err := NewGeometry(m.Shape, chunkshape, blockshape)
	if err != nil {
		sc.Close()
		return nil, err
	}
	return &Array{sc: sc, geo: geo, dtypeFormat: m.DtypeFormat, dtype: m.Dtype}, nil
}

// ToBuffer serializes the array's backing super-chunk (spec.md §4.8's
// array composes a schunk by value).
func (a *Array) ToBuffer() ([]byte, error) { return a.sc.ToBuffer() }

// Close releases the array's underlying context.
func (a *Array) Close() { a.sc.Close() }

// Shape/ChunkShape/BlockShape/NDim expose the current geometry.
func (a *Array) Shape() []int64      { return append([]int64(nil), a.geo.Shape...) }
func (a *Array) ChunkShape() []int64 { return append([]int64(nil), a.geo.ChunkShape...) }
func (a *Array) BlockShape() []int64 { return append([]int64(nil), a.geo.BlockShape...) }
func (a *Array) NDim() int           { return a.geo.NDim }

// Nchunks reports the backing super-chunk's current chunk count.
func (a *Array) Nchunks() int { return a.sc.Nchunks() }

