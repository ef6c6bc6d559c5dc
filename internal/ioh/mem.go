package ioh

import (
	"io"
	"sync"

	"github.com/orcaman/writerseeker"
)

// memHandle is the in-memory backend for the mem:// scheme (spec.md §4.7's
// "alternative backends ... transparently", used for to_buffer/from_buffer
// in-memory frames). Canonical storage is a plain byte slice so WriteAt can
// grow or overwrite at an arbitrary offset without depending on a
// WriteSeeker's append-only write semantics; writerseeker.WriterSeeker
// (DESIGN.md: the pack's in-memory io.WriteSeeker) is used only by Reader,
// to bridge the contents out as a stdlib io.Reader; nothing in this module
// calls Reader.
type memHandle struct {
	mu   sync.Mutex
	data []byte
}

var (
	memStoreMu sync.Mutex
	memStore   = map[string]*memHandle{}
)

var memScheme = Scheme{
	Name: "mem",
	Open: func(uri string, mode Mode) (Handle, error) {
		name := stripScheme(uri)
		memStoreMu.Lock()
		defer memStoreMu.Unlock()
		h, ok := memStore[name]
		if !ok || mode == ModeCreate {
			h = &memHandle{}
			memStore[name] = h
		}
		return h, nil
	},
	Destroy: func(uri string) error {
		memStoreMu.Lock()
		defer memStoreMu.Unlock()
		delete(memStore, stripScheme(uri))
		return nil
	},
}

func (h *memHandle) WriteAt(p []byte, off int64) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	end := off + int64(len(p))
	if end > int64(len(h.data)) {
		grown := make([]byte, end)
		copy(grown, h.data)
		h.data = grown
	}
	copy(h.data[off:], p)
	return len(p), nil
}

func (h *memHandle) ReadAt(p []byte, off int64) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if off >= int64(len(h.data)) {
		return 0, io.EOF
	}
	n := copy(p, h.data[off:])
	var err error
	if n < len(p) {
		err = io.EOF
	}
	return n, err
}

func (h *memHandle) Truncate(size int64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if size <= int64(len(h.data)) {
		h.data = h.data[:size]
		return nil
	}
	grown := make([]byte, size)
	copy(grown, h.data)
	h.data = grown
	return nil
}

func (h *memHandle) Size() (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return int64(len(h.data)), nil
}

func (h *memHandle) Close() error { return nil }

// Reader bridges the handle's current contents out as a stdlib io.Reader
// via writerseeker.WriterSeeker.
func (h *memHandle) Reader() (io.Reader, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var ws writerseeker.WriterSeeker
	if _, err := ws.Write(h.data); err != nil {
		return nil, err
	}
	return ws.Reader(), nil
}
