package frame

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/xerrors"

	"github.com/b2lib/b2core/internal/ioh"
)

// chunkFileWidth is the fixed digit width of a sparse-layout chunk file
// name (spec.md §4.6 "each chunk is a separate file named by its index
// with fixed width").
const chunkFileWidth = 8

func chunkFileName(i int) string {
	return fmt.Sprintf("chunk.%0*d.bin", chunkFileWidth, i)
}

// WriteSparse lays out h's metadata-only image at dir/frame.header and one
// file per non-special chunk under dir (spec.md §4.6's sparse layout).
// Special chunks are recorded only in the header's trailer, costing no
// file at all, same as the contiguous layout.
func WriteSparse(dir string, h *Header, chunks []ChunkEntry, cparamsImage, dparamsImage []byte) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	headerOnly := Marshal(h, sparseHeaderPlaceholders(chunks), cparamsImage, dparamsImage)
	if err := writeFileAtomic(filepath.Join(dir, "frame.header"), headerOnly); err != nil {
		return err
	}
	for i, c := range chunks {
		if c.Special {
			continue
		}
		path := filepath.Join(dir, chunkFileName(i))
		if err := writeFileAtomic(path, c.Bytes); err != nil {
			return xerrors.Errorf("frame: write sparse chunk %d: %w", i, err)
		}
	}
	return nil
}

// sparseHeaderPlaceholders builds a chunk list with every non-special
// chunk's bytes dropped (it only needs a correct trailer offset pattern
// when read back through ReadSparse, which recomputes offsets from the
// per-file layout instead of trusting frame.header's body section).
func sparseHeaderPlaceholders(chunks []ChunkEntry) []ChunkEntry {
	out := make([]ChunkEntry, len(chunks))
	for i, c := range chunks {
		if c.Special {
			out[i] = c
			continue
		}
		out[i] = ChunkEntry{Bytes: nil}
	}
	return out
}

// ReadSparse reads a sparse-layout frame directory back, streaming each
// chunk file independently (spec.md §4.6 "operations stream single-chunk
// files").
func ReadSparse(dir string) (*Header, []ChunkEntry, error) {
	headerBytes, err := os.ReadFile(filepath.Join(dir, "frame.header"))
	if err != nil {
		return nil, nil, err
	}
	h, placeholders, err := Unmarshal(headerBytes)
	if err != nil {
		return nil, nil, err
	}
	chunks := make([]ChunkEntry, len(placeholders))
	for i, p := range placeholders {
		if p.Special {
			chunks[i] = p
			continue
		}
		b, err := os.ReadFile(filepath.Join(dir, chunkFileName(i)))
		if err != nil {
			return nil, nil, xerrors.Errorf("frame: read sparse chunk %d: %w", i, err)
		}
		chunks[i] = ChunkEntry{Bytes: b}
	}
	h.Sparse = true
	return h, chunks, nil
}

// writeFileAtomic writes data to path via the local-file ioh handle,
// truncating any existing content and writing in place (no temp file and
// rename, unlike CommitToFile, which goes through renameio).
func writeFileAtomic(path string, data []byte) error {
	h, err := ioh.Open("file://"+path, ioh.ModeCreate)
	if err != nil {
		return err
	}
	defer h.Close()
	if _, err := h.WriteAt(data, 0); err != nil {
		return err
	}
	return nil
}
