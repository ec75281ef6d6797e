// Package fetcher retrieves HTTP content fault-tolerantly over a
// single shared session, packaging each successful exchange as an
// immutable [resource.Resource] with a SHA-256 integrity hash and
// response metadata.
//
// # Building a Fetcher
//
// Use [Build] with functional options:
//
//	f, err := fetcher.Build(
//		fetcher.WithConcurrency(4),
//		fetcher.WithTimeout(10*time.Second),
//		fetcher.WithRetries(3),
//	)
//	defer f.Close()
//
// # Fetching
//
// [Fetcher.Fetch] blocks until the exchange completes:
//
//	res, err := f.Fetch(ctx, "https://example.com/ok.json")
//
// Transient failures (connection faults, timeouts, 5xx responses) are
// retried with exponential backoff; any other status is a terminal
// success, surfaced via res.Metadata.StatusCode. Redirects are
// followed by the session and recorded in res.RedirectedURL.
//
// [Fetcher.FetchAsync] runs the same exchange without blocking and
// returns a [Result]:
//
//	r := f.FetchAsync(ctx, "https://example.com/big.bin",
//		fetcher.WithStreamTo("/tmp/big.bin"),
//	)
//	res, err := r.Resource()
//
// # Modes
//
// By default the body is buffered in memory and decompressed per its
// Content-Encoding (gzip, deflate, br). With [WithStreamTo] the raw
// wire bytes are written to disk instead, unmodified, and the hash
// covers those raw bytes.
package fetcher
