package resource

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedEncoding indicates a Content-Encoding token the
	// decoder has no capability for.
	ErrUnsupportedEncoding = errors.New("unsupported content encoding")

	// ErrDecode indicates the body claimed an encoding it does not
	// actually carry, or was corrupted in transit.
	ErrDecode = errors.New("decoding body failed")

	// ErrContentLengthMismatch indicates the streamed byte count did
	// not match the response's Content-Length.
	ErrContentLengthMismatch = errors.New("content length mismatch")

	// ErrStreamCancelled indicates the stream was abandoned via context.
	ErrStreamCancelled = errors.New("stream cancelled")
)

// Error wraps a sentinel error with additional detail.
type Error struct {
	Detail string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Err
}
