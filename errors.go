package psd

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind is the closed error taxonomy of §7. Every fallible operation in
// this package returns either a nil error or a *Error whose Kind is one
// of these values.
type Kind int

const (
	KindInvalidArgument Kind = iota + 1
	KindOutOfMemory
	KindNullPointer
	KindInvalidFormat
	KindStreamRead
	KindStreamSeek
	KindStreamInvalid
	KindStreamEOF
	KindInvalidFileFormat
	KindInvalidHeader
	KindUnsupportedVersion
	KindCorruptData
	KindInvalidStructure
	KindUnsupportedFeature
	KindUnsupportedCompression
	KindUnsupportedColorMode
	KindBufferTooSmall
	KindOutOfRange
)

// String returns a stable, human-readable name for the kind. It never
// allocates beyond the returned string's backing array.
func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid-argument"
	case KindOutOfMemory:
		return "out-of-memory"
	case KindNullPointer:
		return "null-pointer"
	case KindInvalidFormat:
		return "invalid-format"
	case KindStreamRead:
		return "stream-read"
	case KindStreamSeek:
		return "stream-seek"
	case KindStreamInvalid:
		return "stream-invalid"
	case KindStreamEOF:
		return "stream-eof"
	case KindInvalidFileFormat:
		return "invalid-file-format"
	case KindInvalidHeader:
		return "invalid-header"
	case KindUnsupportedVersion:
		return "unsupported-version"
	case KindCorruptData:
		return "corrupt-data"
	case KindInvalidStructure:
		return "invalid-structure"
	case KindUnsupportedFeature:
		return "unsupported-feature"
	case KindUnsupportedCompression:
		return "unsupported-compression"
	case KindUnsupportedColorMode:
		return "unsupported-color-mode"
	case KindBufferTooSmall:
		return "buffer-too-small"
	case KindOutOfRange:
		return "out-of-range"
	default:
		return "unknown"
	}
}

// Error is the single result type every fallible operation returns.
// Message holds the human-readable text, which Error() formats together
// with the kind; Kind lets callers branch per §7's propagation policy.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("psd: %s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("psd: %s: %s", e.Kind, e.Message)
}

// Unwrap lets errors.Is/errors.As see through to a wrapped cause.
func (e *Error) Unwrap() error {
	return e.cause
}

func newError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func newErrorf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// wrapError attaches kind and a cause annotated with the stack trace at
// the point of wrapping (§7's "full teardown" policy still applies to
// the caller; this just keeps a traceable origin).
func wrapError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: errors.WithStack(cause)}
}

// IsKind reports whether err is a *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == kind
}
