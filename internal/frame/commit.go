package frame

import (
	"github.com/google/renameio"
)

// CommitToFile atomically writes a contiguous frame buffer to path:
// write to a sibling temp file, fsync, then rename over the destination.
// Grounded on the teacher's own commit idiom for generated artifacts
// (cmd/distri/initrd.go, cmd/distri/build.go: renameio.TempFile +
// CloseAtomicallyReplace) — a frame is exactly such an artifact, and a
// crash mid-write must never leave a half-written file at the real path.
func CommitToFile(path string, buf []byte) (err error) {
	t, err := renameio.TempFile("", path)
	if err != nil {
		return err
	}
	defer t.Cleanup()
	if _, err := t.Write(buf); err != nil {
		return err
	}
	return t.CloseAtomicallyReplace()
}
