package fetcher

import (
	"context"

	"github.com/shardlabs/fetcher/resource"
)

// Result represents an in-flight or completed async fetch started by
// [Fetcher.FetchAsync].
type Result struct {
	done   chan struct{}
	res    *resource.Resource
	err    error
	cancel context.CancelFunc
}

// Done returns a channel that is closed when the fetch completes.
func (r *Result) Done() <-chan struct{} { return r.done }

// Resource blocks until the fetch completes and returns its outcome.
func (r *Result) Resource() (*resource.Resource, error) {
	<-r.done
	return r.res, r.err
}

// Err blocks until the fetch completes and returns its error, if any.
func (r *Result) Err() error {
	<-r.done
	return r.err
}

// Cancel abandons the fetch. In-flight network reads stop, any
// partially written destination file is cleaned up, and no further
// retry is attempted.
func (r *Result) Cancel() {
	r.cancel()
}
