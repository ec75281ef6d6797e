// Package throttle provides an [http.RoundTripper] that rate-limits
// outbound fetches using a token-bucket algorithm from
// [golang.org/x/time/rate].
//
// Most callers enable it through the fetcher's WithThrottle option
// rather than wrapping a transport by hand:
//
//	f, err := fetcher.Build(fetcher.WithThrottle(10, 5))
//
// When the rate limit is exceeded, outbound requests block until a
// token becomes available or the request context is cancelled.
package throttle
