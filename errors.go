package b2core

import "golang.org/x/xerrors"

// Kind is the stable error taxonomy of the chunk/frame/schunk/b2nd
// subsystems. Callers branch on Kind with errors.Is against the sentinel
// Err* values below, never on the wrapped message text.
type Kind int

const (
	_ Kind = iota
	KindInvalidParam
	KindMemoryAlloc
	KindMaxBufsizeExceeded
	KindData
	KindMetalayerNotFound
	KindInvalidIndex
	KindCorruption
	KindCodecFailure
	KindFilterFailure
	KindIO
	KindFrameVersion
	KindNotSupported
)

func (k Kind) String() string {
	switch k {
	case KindInvalidParam:
		return "invalid parameter"
	case KindMemoryAlloc:
		return "allocation failure"
	case KindMaxBufsizeExceeded:
		return "maximum buffer size exceeded"
	case KindData:
		return "semantic data mismatch"
	case KindMetalayerNotFound:
		return "metadata layer not found"
	case KindInvalidIndex:
		return "index out of range"
	case KindCorruption:
		return "corrupted data"
	case KindCodecFailure:
		return "codec failure"
	case KindFilterFailure:
		return "filter failure"
	case KindIO:
		return "I/O error"
	case KindFrameVersion:
		return "unsupported frame version"
	case KindNotSupported:
		return "operation not supported"
	default:
		return "unknown error"
	}
}

// Error wraps a Kind with context, the way the rest of the taxonomy is
// meant to be constructed: b2core.NewError(KindCorruption, "bad magic").
type Error struct {
	Kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.Kind.String() + ": " + e.msg + ": " + e.err.Error()
	}
	return e.Kind.String() + ": " + e.msg
}

func (e *Error) Unwrap() error { return e.err }

// Is reports whether target is an *Error with the same Kind, so that
// errors.Is(err, b2core.ErrCorruption) works regardless of wrapping depth.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// NewError builds a taxonomy error with a message.
func NewError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, msg: msg}
}

// WrapError builds a taxonomy error that chains an underlying cause,
// following the teacher's xerrors.Errorf("...: %w", err) wrapping style.
func WrapError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, msg: msg, err: xerrors.Errorf("%s: %w", msg, err)}
}

// Sentinel values usable directly with errors.Is for the common, argument-less
// cases. Kind-specific context should use NewError/WrapError instead.
var (
	ErrInvalidParam        = NewError(KindInvalidParam, "invalid parameter")
	ErrMemoryAlloc         = NewError(KindMemoryAlloc, "allocation failure")
	ErrMaxBufsizeExceeded  = NewError(KindMaxBufsizeExceeded, "maximum buffer size exceeded")
	ErrData                = NewError(KindData, "semantic data mismatch")
	ErrMetalayerNotFound   = NewError(KindMetalayerNotFound, "metadata layer not found")
	ErrInvalidIndex        = NewError(KindInvalidIndex, "index out of range")
	ErrCorruption          = NewError(KindCorruption, "corrupted data")
	ErrCodecFailure        = NewError(KindCodecFailure, "codec failure")
	ErrFilterFailure       = NewError(KindFilterFailure, "filter failure")
	ErrIO                  = NewError(KindIO, "I/O error")
	ErrFrameVersion        = NewError(KindFrameVersion, "unsupported frame version")
	ErrNotSupported        = NewError(KindNotSupported, "operation not supported")
)
