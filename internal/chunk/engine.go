package chunk

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/xerrors"

	"github.com/b2lib/b2core/internal/bitutil"
	"github.com/b2lib/b2core/internal/block"
	"github.com/b2lib/b2core/internal/codec"
	"github.com/b2lib/b2core/internal/filter"
)

// MaxOverhead is the fixed part of the size limit Compress enforces on a
// chunk: nbytes + MaxOverhead + nblocks·block.MaxBlockOverhead(typesize).
const MaxOverhead = 64

// Dispatcher runs n independently-indexed jobs and reports the first
// error, matching internal/workerpool.Pool's signature. When a Params
// leaves Dispatcher nil, Compress/Decompress fall back to an ephemeral
// errgroup+semaphore fan-out scoped to that one call.
type Dispatcher interface {
	Run(n int64, fn func(i int64) error) error
}

// Params configures one chunk compression, spec.md §4.4 "Compression
// entry".
type Params struct {
	Typesize  int64
	Blocksize int64 // resolved by the caller via internal/tuning before calling Compress
	Split     block.SplitMode
	Filters   filter.Pipeline
	FilterReg *filter.Registry
	Codec     codec.Codec
	CodecCtx  *codec.Context
	Level     int
	NThreads  int
	// CodecReg, when set, makes Decompress resolve the codec actually used
	// by looking up the chunk header's own CodecID (spec.md §6.3: "frames
	// do not embed codec names", only ids, and a decoder must honor
	// whatever id the writer recorded rather than assume its own default).
	// Compress always uses Codec directly, since it is choosing the codec.
	CodecReg *codec.Registry
	// Dispatcher, when set, routes block (de)compression through a
	// long-lived worker pool (spec.md §4.11's Context) instead of spawning
	// goroutines fresh for this call.
	Dispatcher Dispatcher

	Prefilter        filter.Prefilter
	PrefilterParams  interface{}
	Postfilter       filter.Postfilter
	PostfilterParams interface{}
}

// dispatch runs n jobs via p.Dispatcher if set, else an ephemeral
// errgroup+semaphore bounded by p.NThreads (spec.md §5's scheduling model,
// either way: workers claim indices, a closing barrier joins them).
func dispatch(p Params, n int64, fn func(i int64) error) error {
	if p.Dispatcher != nil {
		return p.Dispatcher.Run(n, fn)
	}
	nthreads := p.NThreads
	if nthreads <= 0 {
		nthreads = 1
	}
	sem := semaphore.NewWeighted(int64(nthreads))
	grp, ctx := errgroup.WithContext(context.Background())
	for i := int64(0); i < n; i++ {
		i := i
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		grp.Go(func() error {
			defer sem.Release(1)
			return fn(i)
		})
	}
	return grp.Wait()
}

// blockSlot is one worker's computed output, joined back into chunk order
// by the leader regardless of completion order (spec.md §5 "Ordering").
type blockSlot struct {
	data []byte
}

// Compress implements spec.md §4.4's chunk compression entry: partitions
// src into blocks, dispatches compression across a worker pool bounded by
// NThreads (errgroup + a semaphore, the teacher's own fan-out idiom —
// DESIGN.md), and assembles the fixed header, block-starts table and body.
func Compress(src []byte, p Params) ([]byte, error) {
	nbytes := int64(len(src))
	blocksize := p.Blocksize
	if blocksize <= 0 {
		blocksize = nbytes
		if blocksize == 0 {
			blocksize = 1
		}
	}
	nblocks := bitutil.CeilDiv(nbytes, blocksize)
	if nblocks == 0 {
		nblocks = 1 // spec.md §8 boundary: nbytes=0 still needs a minimal valid chunk
	}

	eng := &block.Engine{
		Filters:          &p.Filters,
		FilterRegistry:   p.FilterReg,
		Codec:            p.Codec,
		CodecCtx:         p.CodecCtx,
		Level:            p.Level,
		Typesize:         int(p.Typesize),
		Split:            p.Split,
		Prefilter:        p.Prefilter,
		PrefilterParams:  p.PrefilterParams,
		Postfilter:       nil, // postfilter only applies on decompress
		PostfilterParams: nil,
	}

	var ref []byte
	hasDelta := false
	for _, s := range p.Filters.Active() {
		if s.ID == filter.DeltaFilter {
			hasDelta = true
		}
	}
	if hasDelta && nblocks > 0 {
		end := blocksize
		if end > nbytes {
			end = nbytes
		}
		ref = src[:end]
	}

	slots := make([]blockSlot, nblocks)
	maxBody := nbytes + MaxOverhead + nblocks*int64(block.MaxBlockOverhead(int(p.Typesize)))

	err := dispatch(p, nblocks, func(i int64) error {
		start := i * blocksize
		end := start + blocksize
		if end > nbytes {
			end = nbytes
		}
		in := src[start:end]
		blockRef := ref
		if i == 0 {
			blockRef = nil // block 0 is the reference itself: delta diffs it against zero
		}
		dst := make([]byte, len(in)+block.MaxBlockOverhead(int(p.Typesize)))
		n, err := eng.CompressBlock(dst, in, i, blockRef)
		if err != nil {
			return xerrors.Errorf("compress block %d: %w", i, err)
		}
		slots[i] = blockSlot{data: dst[:n]}
		return nil
	})
	if err != nil {
		return nil, err
	}

	hdr := &Header{
		Version:      1,
		VersionLZ:    1,
		Typesize:     p.Typesize,
		Nbytes:       nbytes,
		Blocksize:    blocksize,
		HasExtHeader: true, // always emit the extended header: codec id lives there
		Filters:      p.Filters,
		CodecID:      p.Codec.ID(),
	}
	setShuffleFlags(hdr, &p.Filters)

	tableOff := hdr.Size()
	tableSize := int(nblocks) * 4
	bodyOff := tableOff + tableSize

	total := int64(bodyOff)
	for _, s := range slots {
		total += int64(len(s.data))
	}
	if total > maxBody {
		return nil, xerrors.Errorf("chunk exceeds max overhead: %d > %d", total, maxBody)
	}

	out := make([]byte, total)
	off := int64(bodyOff)
	table := out[tableOff:bodyOff]
	for i, s := range slots {
		bitutil.PutUint32LE(table[i*4:i*4+4], uint32(off))
		copy(out[off:], s.data)
		off += int64(len(s.data))
	}

	hdr.Cbytes = total
	hdr.Marshal(out[:hdr.Size()])
	return out, nil
}

func setShuffleFlags(hdr *Header, p *filter.Pipeline) {
	for _, s := range p.Active() {
		switch s.ID {
		case filter.ByteShuffle:
			hdr.Flags0 |= FlagByteShuffle
		case filter.BitShuffle:
			hdr.Flags0 |= FlagBitShuffle
		}
	}
	hdr.Flags0 |= FlagHostLittle
}

// Decompress implements spec.md §4.4's decompression entry. mask, if
// non-nil, must have nblocks entries; a true entry skips that block
// (partial decompression, spec.md §4.3 step 5).
func Decompress(chunkBytes []byte, dstCapacity int, p Params, mask []bool) ([]byte, error) {
	hdr, err := Unmarshal(chunkBytes)
	if err != nil {
		return nil, err
	}
	if hdr.Special != SpecialNone {
		return materializeSpecial(hdr, chunkBytes)
	}
	if int64(dstCapacity) < hdr.Nbytes {
		return nil, errDstTooSmall
	}

	nblocks := bitutil.CeilDiv(hdr.Nbytes, hdr.Blocksize)
	if hdr.Nbytes == 0 {
		return []byte{}, nil
	}
	tableOff := hdr.Size()
	table := chunkBytes[tableOff : tableOff+int(nblocks)*4]

	resolvedCodec := p.Codec
	if p.CodecReg != nil {
		c, ok := p.CodecReg.Lookup(hdr.CodecID)
		if !ok {
			return nil, xerrors.Errorf("decompress: unregistered codec id %d: %w", hdr.CodecID, codec.ErrUnknown)
		}
		resolvedCodec = c
	}

	eng := &block.Engine{
		Filters:          &hdr.Filters,
		FilterRegistry:   p.FilterReg,
		Codec:            resolvedCodec,
		CodecCtx:         p.CodecCtx,
		Typesize:         int(hdr.Typesize),
		Postfilter:       p.Postfilter,
		PostfilterParams: p.PostfilterParams,
	}

	hasDelta := false
	for _, s := range hdr.Filters.Active() {
		if s.ID == filter.DeltaFilter {
			hasDelta = true
		}
	}

	out := make([]byte, hdr.Nbytes)
	var ref []byte

	startOffs := make([]int64, nblocks)
	for i := range startOffs {
		startOffs[i] = int64(bitutil.Uint32LE(table[i*4 : i*4+4]))
	}
	blockEnd := func(i int64) int64 {
		if i+1 < nblocks {
			return startOffs[i+1]
		}
		return int64(len(chunkBytes))
	}
	blockLen := func(i int64) int64 {
		start := i * hdr.Blocksize
		end := start + hdr.Blocksize
		if end > hdr.Nbytes {
			end = hdr.Nbytes
		}
		return end - start
	}

	// decodeOne reads ref without locking: it is only ever written once,
	// synchronously, before the parallel fan-out below begins.
	decodeOne := func(i int64, r []byte) error {
		if mask != nil && i < int64(len(mask)) && mask[i] {
			return nil // masked out: leave destination untouched, spec.md §7
		}
		blkStart := i * hdr.Blocksize
		blkLen := blockLen(i)
		src := chunkBytes[startOffs[i]:blockEnd(i)]
		if err := eng.DecompressBlock(out[blkStart:blkStart+blkLen], src, int(blkLen), i, r); err != nil {
			return xerrors.Errorf("decompress block %d: %w", i, err)
		}
		return nil
	}

	// Block 0 may be needed as the delta reference for every other block,
	// so decompress it first, synchronously, before fanning out.
	if hasDelta {
		if err := decodeOne(0, nil); err != nil {
			return nil, err
		}
		ref = out[:blockLen(0)]
	}

	start := int64(0)
	if hasDelta {
		start = 1
	}
	if err := dispatch(p, nblocks-start, func(j int64) error {
		return decodeOne(start+j, ref)
	}); err != nil {
		return nil, err
	}
	return out, nil
}

var errDstTooSmall = chunkError("chunk: destination capacity too small")

func materializeSpecial(hdr *Header, chunkBytes []byte) ([]byte, error) {
	out := make([]byte, hdr.Nbytes)
	switch hdr.Special {
	case SpecialZero, SpecialUninit:
		// zero-value and uninitialized both materialize as zero bytes here:
		// we have no uninitialized memory to "leave alone" in Go, and
		// spec.md only requires ZERO and UNINIT to be representable, not
		// that UNINIT's bytes be meaningfully random.
	case SpecialNaN:
		fillNaN(out, int(hdr.Typesize))
	case SpecialValue:
		valOff := hdr.Size()
		val := chunkBytes[valOff : valOff+int(hdr.Typesize)]
		for i := int64(0); i < hdr.Nbytes; i += hdr.Typesize {
			copy(out[i:], val)
		}
	}
	return out, nil
}

func fillNaN(out []byte, typesize int) {
	switch typesize {
	case 4:
		// IEEE 754 float32 quiet NaN, little-endian bytes.
		pattern := [4]byte{0x00, 0x00, 0xC0, 0x7F}
		for i := 0; i+4 <= len(out); i += 4 {
			copy(out[i:i+4], pattern[:])
		}
	case 8:
		pattern := [8]byte{0, 0, 0, 0, 0, 0, 0xF8, 0x7F}
		for i := 0; i+8 <= len(out); i += 8 {
			copy(out[i:i+8], pattern[:])
		}
	}
}

// EncodeSpecial builds a header-only chunk for a special fill (spec.md §3
// "Special chunks"): no block table or body is stored.
func EncodeSpecial(kind SpecialKind, nitems, typesize int64, value []byte) ([]byte, error) {
	hdr := &Header{
		Version:      1,
		VersionLZ:    1,
		Typesize:     typesize,
		Nbytes:       nitems * typesize,
		Blocksize:    nitems * typesize,
		HasExtHeader: true,
		Special:      kind,
	}
	extra := 0
	if kind == SpecialValue {
		extra = int(typesize)
	}
	buf := make([]byte, hdr.Size()+extra)
	n := hdr.Marshal(buf)
	if kind == SpecialValue {
		if int64(len(value)) != typesize {
			return nil, errValueSize
		}
		copy(buf[n:], value)
	}
	hdr.Cbytes = int64(len(buf))
	hdr.Marshal(buf[:hdr.Size()]) // re-marshal now that Cbytes is known
	return buf, nil
}

const errValueSize = chunkError("chunk: value length must equal typesize")
