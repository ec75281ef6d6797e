// Package fetcher implements a fault-tolerant HTTP content-retrieval
// engine over a single shared session.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/shardlabs/fetcher/resource"
	"github.com/shardlabs/fetcher/throttle"
)

const (
	defaultConcurrency = 1
	defaultTimeout     = 10 * time.Second
	defaultRetries     = 3
)

// maxDrainSize caps how much of a retriable 5xx body is read before
// the connection is returned to the pool.
const maxDrainSize = 4 << 10 // 4KB

// Fetcher retrieves content over HTTP, retrying transient failures
// with exponential backoff. It owns exactly one underlying session
// for its lifetime: the session is created lazily on first use and
// released by [Fetcher.Close], after which every fetch fails with
// [ErrClosed]. A Fetcher is safe for concurrent use.
type Fetcher struct {
	mu      sync.Mutex
	session *http.Client
	closed  bool

	sem       chan struct{}
	timeout   time.Duration
	retries   int
	transport http.RoundTripper
	logger    *slog.Logger
	tracer    trace.Tracer
}

// Build creates a Fetcher with the given options.
func Build(optFns ...Option) (*Fetcher, error) {
	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying fetcher option: %w", err)
		}
	}

	f := &Fetcher{
		timeout: defaultTimeout,
		retries: defaultRetries,
		logger:  slog.Default(),
		tracer:  noop.NewTracerProvider().Tracer("fetcher"),
	}

	concurrency := defaultConcurrency
	if opts.concurrency != nil {
		concurrency = *opts.concurrency
	}
	f.sem = make(chan struct{}, concurrency)

	if opts.timeout != nil {
		f.timeout = *opts.timeout
	}
	if opts.retries != nil {
		f.retries = *opts.retries
	}
	if opts.logger != nil {
		f.logger = opts.logger
	}
	if opts.tracer != nil {
		f.tracer = opts.tracer
	}

	transport := opts.rt
	if transport == nil {
		// The resource builder decides what to do with compressed
		// bodies, so the transport must not decompress behind our back.
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.DisableCompression = true
		transport = t
	}
	if opts.throttle != nil {
		rt, err := throttle.NewRoundTripper(opts.throttle.RPS, opts.throttle.Burst, func() *slog.Logger { return f.logger }, transport)
		if err != nil {
			return nil, fmt.Errorf("configuring throttle: %w", err)
		}
		transport = rt
	}
	f.transport = transport

	return f, nil
}

// Fetch retrieves rawURL and returns the resulting [resource.Resource].
// It blocks for the duration of the exchange, including any queueing on
// the concurrency limit and any retry backoff. Non-2xx statuses are not
// errors; inspect Metadata.StatusCode on the returned resource.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, optFns ...FetchOption) (*resource.Resource, error) {
	prep, err := prepare(rawURL, optFns)
	if err != nil {
		return nil, err
	}

	session, err := f.client()
	if err != nil {
		return nil, err
	}

	select {
	case f.sem <- struct{}{}:
		defer func() { <-f.sem }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return f.fetchWithRetries(ctx, session, prep)
}

// FetchAsync starts the fetch in a new goroutine and returns
// immediately. The returned [Result] reports completion; semantics are
// identical to [Fetcher.Fetch].
func (f *Fetcher) FetchAsync(ctx context.Context, rawURL string, optFns ...FetchOption) *Result {
	ctx, cancel := context.WithCancel(ctx)
	r := &Result{
		done:   make(chan struct{}),
		cancel: cancel,
	}

	go func() {
		defer func() {
			cancel()
			close(r.done)
		}()
		r.res, r.err = f.Fetch(ctx, rawURL, optFns...)
	}()

	return r
}

// Close releases the underlying session. It is idempotent and safe to
// call concurrently with in-flight fetches; those complete normally,
// while fetches started after Close fail with [ErrClosed].
func (f *Fetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}
	f.closed = true

	if f.session != nil {
		f.session.CloseIdleConnections()
		f.session = nil
	}

	return nil
}

// client returns the shared session, creating it on first use.
func (f *Fetcher) client() (*http.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, ErrClosed
	}

	if f.session == nil {
		f.session = &http.Client{Transport: f.transport}
	}

	return f.session, nil
}

// fetchWithRetries runs the attempt loop: up to 1+retries sends, with
// 2^i seconds of backoff after failed attempt i. Only transient
// failures are retried; any other outcome ends the loop.
func (f *Fetcher) fetchWithRetries(ctx context.Context, session *http.Client, prep *preparedRequest) (*resource.Resource, error) {
	log := f.logger.With("fetch_id", uuid.NewString(), "url", prep.url)

	ctx, span := f.tracer.Start(ctx, "fetcher.fetch", trace.WithAttributes(
		attribute.String("url.full", prep.url),
		attribute.String("http.request.method", prep.method),
	))
	defer span.End()

	maxAttempts := 1 + f.retries

	var lastErr error
	var attemptsMade int
	for attempt := 0; attempt < maxAttempts; attempt++ {
		attemptsMade = attempt + 1
		res, err := f.fetchOnce(ctx, session, prep, log)
		if err == nil {
			span.SetAttributes(
				attribute.Int("http.response.status_code", res.Metadata.StatusCode),
				attribute.Int("fetcher.attempts", attempt+1),
			)
			return res, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			// Caller cancelled or ran out their own deadline; the
			// retry budget no longer applies.
			break
		}

		if !transient(err) {
			log.Error("fetch failed", "error", err)
			span.RecordError(err)
			return nil, &Error{URL: prep.url, Attempts: attemptsMade, Err: err}
		}

		if attempt == maxAttempts-1 {
			break
		}

		backoff := time.Duration(1<<attempt) * time.Second
		log.Warn("retrying fetch", "attempt", attempt+1, "max_attempts", maxAttempts, "backoff", backoff, "error", err)
		span.AddEvent("retry", trace.WithAttributes(attribute.Int("fetcher.attempt", attempt+1)))

		timer := time.NewTimer(backoff)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			lastErr = ctx.Err()
		}
		if ctx.Err() != nil {
			break
		}
	}

	log.Error("fetch failed, attempts exhausted", "attempts", attemptsMade, "error", lastErr)
	span.RecordError(lastErr)

	return nil, &Error{URL: prep.url, Attempts: attemptsMade, Err: lastErr}
}

// fetchOnce performs a single exchange under the per-attempt timeout
// and, on a terminal response, hands off to the resource builder.
func (f *Fetcher) fetchOnce(ctx context.Context, session *http.Client, prep *preparedRequest, log *slog.Logger) (*resource.Resource, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := prep.build(attemptCtx)
	if err != nil {
		return nil, err
	}

	mode := "in-memory"
	if prep.streamTo != "" {
		mode = "streaming"
	}
	log.Info("fetching", "method", prep.method, "mode", mode)

	resp, err := session.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Error("failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode >= 500 && resp.StatusCode <= 599 {
		// Drain a bounded amount so the connection can be reused
		// by the next attempt.
		if _, err := io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainSize)); err != nil {
			log.Error("failed to discard error body", "error", err)
		}
		return nil, fmt.Errorf("%w: %d %s", ErrServerStatus, resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	finalURL := prep.url
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	if finalURL != prep.url {
		log.Info("redirected", "from", prep.url, "to", finalURL)
		trace.SpanFromContext(ctx).AddEvent("redirect", trace.WithAttributes(
			attribute.String("url.original", prep.url),
			attribute.String("url.final", finalURL),
		))
	}

	return resource.FromResponse(attemptCtx, prep.url, finalURL, resp, time.Now().UTC(), prep.streamTo, log)
}
