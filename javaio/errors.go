package javaio

import (
	"errors"
	"fmt"
)

// Sentinel errors for the decode/encode failure taxonomy. Decode failures
// other than unresolved references are unrecoverable for the current call;
// unresolved references are substituted with a dangling *Ref and reported
// through Decoder.Unresolved.
var (
	// ErrTruncated reports that the stream ended in the middle of a value.
	ErrTruncated = errors.New("javaio: unexpected end of stream")

	// ErrHeader reports a stream magic or version mismatch.
	ErrHeader = errors.New("javaio: invalid stream header")

	// ErrMalformed reports an unexpected type code or a structurally
	// invalid sequence.
	ErrMalformed = errors.New("javaio: malformed stream")

	// ErrUnsupportedValue reports a graph node the encoder cannot
	// represent. Encoding is all-or-nothing: on error the output must be
	// discarded.
	ErrUnsupportedValue = errors.New("javaio: unsupported value")
)

// StreamError wraps a decode failure with the byte offset at which it
// occurred and the last handle assigned before the failure, for partial
// dump tooling.
type StreamError struct {
	Offset     int
	LastHandle uint32
	Err        error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("%v (offset %#x, last handle %#x)", e.Err, e.Offset, e.LastHandle)
}

func (e *StreamError) Unwrap() error { return e.Err }
