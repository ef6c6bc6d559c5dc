package ioh

import (
	"os"

	"golang.org/x/sys/unix"
)

// nolockEnv mirrors spec.md §6.6's NOLOCK: disables advisory file locking on
// frame writes (BLOSC2_NOLOCK), the teacher's own env-var-gated-feature
// idiom (internal/diag reads BLOSC2_WARN the same way).
func nolockEnv() bool {
	v := os.Getenv("BLOSC2_NOLOCK")
	return v != "" && v != "0"
}

type fileHandle struct {
	f        *os.File
	locked   bool
	readOnly bool
}

var fileScheme = Scheme{
	Name: "file",
	Open: openFile,
	Destroy: func(uri string) error {
		return os.Remove(stripScheme(uri))
	},
}

func openFile(uri string, mode Mode) (Handle, error) {
	path := stripScheme(uri)
	var flag int
	switch mode {
	case ModeRead:
		flag = os.O_RDONLY
	case ModeReadWrite:
		flag = os.O_RDWR
	case ModeCreate:
		flag = os.O_RDWR | os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(path, flag, 0644)
	if err != nil {
		return nil, err
	}
	h := &fileHandle{f: f, readOnly: mode == ModeRead}
	if !nolockEnv() {
		lockType := unix.LOCK_SH
		if mode != ModeRead {
			lockType = unix.LOCK_EX
		}
		if err := unix.Flock(int(f.Fd()), lockType); err == nil {
			h.locked = true
		}
		// A lock failure (e.g. on a filesystem without flock support) is not
		// fatal: frame correctness does not depend on the advisory lock,
		// only inter-process coordination does.
	}
	return h, nil
}

func (h *fileHandle) ReadAt(p []byte, off int64) (int, error) {
	return h.f.ReadAt(p, off)
}

func (h *fileHandle) WriteAt(p []byte, off int64) (int, error) {
	if h.readOnly {
		return 0, ErrReadOnly
	}
	return h.f.WriteAt(p, off)
}

func (h *fileHandle) Truncate(size int64) error {
	if h.readOnly {
		return ErrReadOnly
	}
	return h.f.Truncate(size)
}

func (h *fileHandle) Size() (int64, error) {
	fi, err := h.f.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

func (h *fileHandle) Close() error {
	if h.locked {
		unix.Flock(int(h.f.Fd()), unix.LOCK_UN)
	}
	return h.f.Close()
}
