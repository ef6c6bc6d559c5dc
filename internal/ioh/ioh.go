// Package ioh implements the I/O abstraction of spec.md §4.7: an opaque
// handle interface (open/read/write/truncate/close/destroy) dispatched by
// URI scheme, so frames can be backed by a local file, an in-memory buffer,
// or a remote http(s) URL transparently.
package ioh

import (
	"strings"

	"golang.org/x/xerrors"
)

// Mode selects how Open treats an existing or missing target.
type Mode int

const (
	ModeRead Mode = iota
	ModeReadWrite
	ModeCreate
)

// Handle is the opaque object returned by Open, so a backend behind it is
// transparent to callers. In internal/frame only the sparse layout's
// per-file writes go through it; ReadSparse, CommitToFile and the cpio
// export/import use os and renameio directly and do not go through ioh.
type Handle interface {
	ReadAt(p []byte, off int64) (int, error)
	WriteAt(p []byte, off int64) (int, error)
	Truncate(size int64) error
	Size() (int64, error)
	Close() error
}

// Scheme is a registered backend: Open parses a URI's scheme and dispatches
// to the matching Scheme's Open (spec.md §4.7 "URIs are matched against
// registered schemes").
type Scheme struct {
	Name string
	Open func(uri string, mode Mode) (Handle, error)
	// Destroy removes whatever Open's URI refers to (spec.md's destroy(uri)).
	Destroy func(uri string) error
}

type registry struct {
	schemes map[string]Scheme
}

var reg = newRegistry()

func newRegistry() *registry {
	r := &registry{schemes: make(map[string]Scheme)}
	r.schemes["file"] = fileScheme
	r.schemes["mem"] = memScheme
	r.schemes["http"] = httpScheme
	r.schemes["https"] = httpScheme
	return r
}

// RegisterScheme adds or replaces a URI scheme backend.
func RegisterScheme(s Scheme) {
	reg.schemes[s.Name] = s
}

func parseScheme(uri string) string {
	if i := strings.Index(uri, "://"); i >= 0 {
		return uri[:i]
	}
	return "file"
}

// Open resolves uri's scheme (defaulting to the local-file backend when no
// scheme prefix is present, spec.md §4.7) and opens a Handle through it.
func Open(uri string, mode Mode) (Handle, error) {
	name := parseScheme(uri)
	s, ok := reg.schemes[name]
	if !ok {
		return nil, xerrors.Errorf("ioh: unknown scheme %q: %w", name, ErrUnknownScheme)
	}
	return s.Open(uri, mode)
}

// Destroy removes the resource uri refers to, via its scheme's Destroy hook.
func Destroy(uri string) error {
	name := parseScheme(uri)
	s, ok := reg.schemes[name]
	if !ok {
		return xerrors.Errorf("ioh: unknown scheme %q: %w", name, ErrUnknownScheme)
	}
	if s.Destroy == nil {
		return ErrNotSupported
	}
	return s.Destroy(uri)
}

func stripScheme(uri string) string {
	if i := strings.Index(uri, "://"); i >= 0 {
		return uri[i+3:]
	}
	return uri
}

type iohError string

func (e iohError) Error() string { return string(e) }

const (
	ErrUnknownScheme = iohError("ioh: unknown URI scheme")
	ErrNotSupported  = iohError("ioh: operation not supported by this scheme")
	ErrReadOnly      = iohError("ioh: handle opened read-only")
)
