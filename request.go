package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// The default header set, applied only when the caller supplies no
// headers of their own. A caller-provided header map replaces this
// set entirely; the two are never merged.
const defaultUserAgent = "Fetcher/1.0"

var defaultHeaders = map[string]string{
	"User-Agent":      defaultUserAgent,
	"Accept-Encoding": "gzip, deflate",
}

// preparedRequest holds everything needed to rebuild the outgoing
// request for each attempt. The body is materialized once, up front,
// so that configuration and encoding errors surface before any
// network activity and so retries re-send identical bytes.
type preparedRequest struct {
	url         string
	method      string
	headers     map[string]string
	body        []byte
	contentType string
	streamTo    string
}

// prepare validates the per-call options and materializes the request
// body. All errors returned here are configuration errors: no network
// call has been made yet.
func prepare(rawURL string, optFns []FetchOption) (*preparedRequest, error) {
	opts := fetchOpts{method: http.MethodGet}
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying fetch option: %w", err)
		}
	}

	if opts.bodies > 1 {
		return nil, ErrBodyConflict
	}

	prep := &preparedRequest{
		url:      rawURL,
		method:   opts.method,
		headers:  opts.headers,
		streamTo: opts.streamTo,
	}

	switch {
	case opts.json != nil:
		body, err := json.Marshal(opts.json)
		if err != nil {
			return nil, fmt.Errorf("encoding json payload: %w", err)
		}
		prep.body = body
		prep.contentType = "application/json"
	case opts.form != nil:
		prep.body = []byte(opts.form.Encode())
		prep.contentType = "application/x-www-form-urlencoded"
	case opts.data != nil:
		prep.body = opts.data
		prep.contentType = "application/octet-stream"
	}

	return prep, nil
}

// build instantiates a fresh *http.Request bound to ctx. Called once
// per attempt so each retry gets an unread body reader.
func (p *preparedRequest) build(ctx context.Context) (*http.Request, error) {
	var body io.Reader
	if p.body != nil {
		body = bytes.NewReader(p.body)
	}

	req, err := http.NewRequestWithContext(ctx, p.method, p.url, body)
	if err != nil {
		return nil, fmt.Errorf("instantiating request: %w", err)
	}

	if p.headers != nil {
		// Full override: send exactly the caller's headers. Blanking
		// User-Agent stops net/http from injecting its own default.
		req.Header.Set("User-Agent", "")
		for k, v := range p.headers {
			req.Header.Set(k, v)
		}
	} else {
		for k, v := range defaultHeaders {
			req.Header.Set(k, v)
		}
	}

	if p.contentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", p.contentType)
	}

	return req, nil
}
