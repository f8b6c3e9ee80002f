package dirhash

import (
	"errors"
	"fmt"
)

// Sentinel errors, matched with errors.Is against any *DigestError
var (
	ErrInvalidRoot          = errors.New("invalid root directory")
	ErrUnsupportedAlgorithm = errors.New("unsupported hash algorithm")
	ErrUnreadableEntry      = errors.New("unreadable entry")
	ErrInvalidChunkSize     = errors.New("invalid chunk size")
	ErrUnsupportedType      = errors.New("unsupported file type")
	ErrInterrupted          = errors.New("operation interrupted")
	ErrInvalidOptions       = errors.New("invalid options")
)

// ErrorKind classifies failures of a digest computation
type ErrorKind int

const (
	KindInvalidRoot ErrorKind = iota + 1
	KindUnsupportedAlgorithm
	KindUnreadableEntry
	KindInvalidChunkSize
	KindInterrupted
	KindInvalidOptions
)

// String returns the name used in messages and JSON output
func (k ErrorKind) String() string {
	switch k {
	case KindInvalidRoot:
		return "InvalidRoot"
	case KindUnsupportedAlgorithm:
		return "UnsupportedAlgorithm"
	case KindUnreadableEntry:
		return "UnreadableEntry"
	case KindInvalidChunkSize:
		return "InvalidChunkSize"
	case KindInterrupted:
		return "Interrupted"
	case KindInvalidOptions:
		return "InvalidOptions"
	default:
		return "Unknown"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindInvalidRoot:
		return ErrInvalidRoot
	case KindUnsupportedAlgorithm:
		return ErrUnsupportedAlgorithm
	case KindUnreadableEntry:
		return ErrUnreadableEntry
	case KindInvalidChunkSize:
		return ErrInvalidChunkSize
	case KindInterrupted:
		return ErrInterrupted
	case KindInvalidOptions:
		return ErrInvalidOptions
	default:
		return nil
	}
}

// DigestError is returned by every failing digest computation. Path is the
// root or the relative path of the failing entry, depending on Kind.
type DigestError struct {
	Kind ErrorKind
	Op   string
	Path string
	Err  error
}

func (e *DigestError) Error() string {
	msg := e.Kind.sentinel()
	if msg == nil {
		msg = errors.New("digest failed")
	}
	switch {
	case e.Path != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v %q: %v", e.Op, msg, e.Path, e.Err)
	case e.Path != "":
		return fmt.Sprintf("%s: %v %q", e.Op, msg, e.Path)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v: %v", e.Op, msg, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Op, msg)
	}
}

// Unwrap returns the underlying cause
func (e *DigestError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind
func (e *DigestError) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

func newDigestError(kind ErrorKind, op, path string, err error) *DigestError {
	return &DigestError{Kind: kind, Op: op, Path: path, Err: err}
}

// ErrorKindOf returns the kind of a *DigestError anywhere in err's chain. A
// bare sentinel in the chain, as returned by the config validators, maps to
// its kind. Other errors give 0.
func ErrorKindOf(err error) ErrorKind {
	var de *DigestError
	if errors.As(err, &de) {
		return de.Kind
	}
	for kind := KindInvalidRoot; kind <= KindInvalidOptions; kind++ {
		if errors.Is(err, kind.sentinel()) {
			return kind
		}
	}
	return 0
}
