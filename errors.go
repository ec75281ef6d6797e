package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
)

var (
	// ErrClosed is returned when a fetch is attempted after [Fetcher.Close].
	// A closed Fetcher is never reopened; build a new one instead.
	ErrClosed = errors.New("fetcher is closed")

	// ErrBodyConflict is returned when more than one of the body options
	// (WithData, WithForm, WithJSON) is supplied for a single fetch.
	ErrBodyConflict = errors.New("body options are mutually exclusive")

	// ErrEmptyDestination is returned when WithStreamTo is given an empty path.
	ErrEmptyDestination = errors.New("stream destination must not be empty")

	// ErrServerStatus is the sentinel wrapped when the server responds
	// with a retriable 5xx status.
	ErrServerStatus = errors.New("server error status")
)

// Error is the terminal fetch failure. It wraps the last underlying
// cause after the retry budget is spent, or the first non-retriable
// failure encountered.
type Error struct {
	URL      string
	Attempts int
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("fetching %s after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// transient reports whether err is expected to resolve on retry:
// connection-level failures, DNS failures, timeouts, resets mid-body,
// and 5xx responses. Anything else ends the attempt loop.
func transient(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrServerStatus):
		return true
	case errors.Is(err, context.DeadlineExceeded):
		return true
	case errors.Is(err, io.ErrUnexpectedEOF):
		return true
	case errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, syscall.ECONNRESET):
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var opErr *net.OpError
	return errors.As(err, &opErr)
}
