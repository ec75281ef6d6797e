package fetcher

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/shardlabs/fetcher/throttle"
)

// Option is a functional option for configuring a [Fetcher] via [Build].
type Option func(*options) error

type options struct {
	concurrency *int
	timeout     *time.Duration
	retries     *int
	rt          http.RoundTripper
	throttle    *throttle.Config
	logger      *slog.Logger
	tracer      trace.Tracer
}

// WithConcurrency bounds how many fetches may be in flight at once
// against the shared session. Excess calls queue. Default is 1.
func WithConcurrency(n int) Option {
	return func(o *options) error {
		if n <= 0 {
			return errors.New("concurrency must be greater than zero")
		}
		o.concurrency = &n
		return nil
	}
}

// WithTimeout sets the per-attempt timeout. A timeout expiry counts as
// a transient failure and is retried. Default is 10 seconds.
func WithTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d <= 0 {
			return errors.New("timeout must be greater than zero")
		}
		o.timeout = &d
		return nil
	}
}

// WithRetries sets how many times a transient failure is retried,
// giving 1+n total attempts. Default is 3.
func WithRetries(n int) Option {
	return func(o *options) error {
		if n < 0 {
			return errors.New("retries must not be negative")
		}
		o.retries = &n
		return nil
	}
}

// WithTransport sets a custom [http.RoundTripper] as the session's base
// transport. The default transport disables the standard library's
// transparent gzip handling so that the wire bytes reach the resource
// builder untouched; a custom transport should do the same.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) error {
		if rt == nil {
			return errors.New("transport must not be nil")
		}
		o.rt = rt
		return nil
	}
}

// WithThrottle enables token-bucket rate limiting of outbound requests
// with the given requests per second and burst capacity.
func WithThrottle(rps, burst int) Option {
	return func(o *options) error {
		if rps <= 0 || burst <= 0 {
			return fmt.Errorf("rps[%d] and burst[%d] %w", rps, burst, throttle.ErrMustNotBeZero)
		}
		o.throttle = &throttle.Config{RPS: rps, Burst: burst}
		return nil
	}
}

// WithLogger injects a custom [slog.Logger] into the [Fetcher].
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		o.logger = logger
		return nil
	}
}

// WithTracer injects an OpenTelemetry tracer. Each fetch runs under a
// single span carrying url, method, attempt and status attributes.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) error {
		if tracer == nil {
			return errors.New("tracer must not be nil")
		}
		o.tracer = tracer
		return nil
	}
}

// FetchOption is a functional option for a single [Fetcher.Fetch] or
// [Fetcher.FetchAsync] call.
type FetchOption func(*fetchOpts) error

type fetchOpts struct {
	method   string
	headers  map[string]string
	streamTo string
	data     []byte
	form     url.Values
	json     any
	bodies   int
}

// WithMethod sets the HTTP method. Default is GET.
func WithMethod(method string) FetchOption {
	return func(o *fetchOpts) error {
		if method == "" {
			return errors.New("method must not be empty")
		}
		o.method = method
		return nil
	}
}

// WithHeaders replaces the default header set entirely. The given
// headers are sent verbatim; User-Agent and Accept-Encoding are only
// present if the caller includes them.
func WithHeaders(headers map[string]string) FetchOption {
	return func(o *fetchOpts) error {
		if headers == nil {
			return errors.New("headers must not be nil")
		}
		o.headers = headers
		return nil
	}
}

// WithStreamTo streams the raw response body to the given file path
// instead of buffering it in memory. No decompression is applied in
// this mode; the stored bytes are exactly the wire bytes.
func WithStreamTo(path string) FetchOption {
	return func(o *fetchOpts) error {
		if path == "" {
			return ErrEmptyDestination
		}
		o.streamTo = path
		return nil
	}
}

// WithData sends raw bytes as the request body. Content-Type defaults
// to application/octet-stream unless the caller sets one via
// [WithHeaders]. Mutually exclusive with [WithForm] and [WithJSON].
func WithData(data []byte) FetchOption {
	return func(o *fetchOpts) error {
		if data == nil {
			return errors.New("data must not be nil")
		}
		o.data = data
		o.bodies++
		return nil
	}
}

// WithForm sends the given values form-encoded with Content-Type
// application/x-www-form-urlencoded. Mutually exclusive with [WithData]
// and [WithJSON].
func WithForm(form url.Values) FetchOption {
	return func(o *fetchOpts) error {
		if form == nil {
			return errors.New("form must not be nil")
		}
		o.form = form
		o.bodies++
		return nil
	}
}

// WithJSON JSON-encodes payload as the request body and sets
// Content-Type application/json. Mutually exclusive with [WithData]
// and [WithForm].
func WithJSON(payload any) FetchOption {
	return func(o *fetchOpts) error {
		if payload == nil {
			return errors.New("json payload must not be nil")
		}
		o.json = payload
		o.bodies++
		return nil
	}
}
