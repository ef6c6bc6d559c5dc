package frame

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/cavaliercoder/go-cpio"
)

// ExportSparseCPIO packs a sparse-layout frame directory (spec.md §4.6) into
// one portable cpio archive, the same container format and writer API the
// teacher uses to build an initrd image from a directory tree
// (cmd/distri/initrd.go's initrdWriter.mirror). Useful for shipping a
// sparse frame as a single file over a transport that only moves streams.
func ExportSparseCPIO(dir string, w io.Writer) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	cw := cpio.NewWriter(w)
	defer cw.Close()
	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if err := cw.WriteHeader(&cpio.Header{
			Name: name,
			Mode: cpio.FileMode(0644),
			Size: int64(len(data)),
		}); err != nil {
			return err
		}
		if _, err := cw.Write(data); err != nil {
			return err
		}
	}
	return nil
}

// ImportSparseCPIO reverses ExportSparseCPIO, materializing dir from an
// archive produced by it.
func ImportSparseCPIO(r io.Reader, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	cr := cpio.NewReader(r)
	for {
		hdr, err := cr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, cr); err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dir, hdr.Name), buf.Bytes(), 0644); err != nil {
			return err
		}
	}
	return nil
}
