package resource

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"
)

// Resource is the immutable result of a completed fetch. Exactly one
// of Content/FilePath is set: Content holds the decompressed body in
// in-memory mode, FilePath points at the raw streamed bytes in
// streaming mode. Treat a Resource as a value; it is never mutated
// after construction.
type Resource struct {
	URL           string
	RedirectedURL string
	Content       []byte
	FilePath      string
	Hash          string
	Metadata      Metadata
	FetchedAt     string
}

// Metadata carries the response details extracted during resource
// construction. Header keys are lower-cased; multi-valued headers are
// comma-joined. ContentEncoding records the original wire encoding
// before any decompression was applied.
type Metadata struct {
	StatusCode      int
	Headers         map[string]string
	Mime            string
	Encoding        string
	ETag            string
	LastModified    string
	ContentEncoding string
	FetchedAt       string
}

func (r *Resource) String() string {
	if r.FilePath != "" {
		return fmt.Sprintf("<Resource %s -> %s>", r.URL, r.FilePath)
	}
	return fmt.Sprintf("<Resource %s (%d bytes)>", r.URL, len(r.Content))
}

// FromResponse builds a Resource from a terminal HTTP response. It
// never retries; every failure here is final. The response body is
// consumed but not closed.
//
// With streamTo empty the whole body is read, decompressed per its
// Content-Encoding, and hashed. With streamTo set the raw body is
// written to that path unmodified and hashed as written; a failed
// write leaves no file behind.
func FromResponse(ctx context.Context, originalURL, finalURL string, resp *http.Response, fetchedAt time.Time, streamTo string, logger *slog.Logger) (*Resource, error) {
	meta := extractMetadata(resp, fetchedAt)

	res := &Resource{
		URL:           originalURL,
		RedirectedURL: finalURL,
		Metadata:      meta,
		FetchedAt:     meta.FetchedAt,
	}

	sum := sha256.New()

	if streamTo != "" {
		path, err := stream(ctx, resp.Body, resp.ContentLength, streamTo, sum, logger)
		if err != nil {
			return nil, err
		}
		res.FilePath = path
	} else {
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("reading body: %w", err)
		}
		content, err := Decode(raw, meta.ContentEncoding)
		if err != nil {
			return nil, err
		}
		sum.Write(content)
		res.Content = content
	}

	res.Hash = hex.EncodeToString(sum.Sum(nil))

	return res, nil
}

func extractMetadata(resp *http.Response, fetchedAt time.Time) Metadata {
	headers := make(map[string]string, len(resp.Header))
	for k, vals := range resp.Header {
		headers[strings.ToLower(k)] = strings.Join(vals, ", ")
	}

	var mediaType, charset string
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		if mt, params, err := mime.ParseMediaType(ct); err == nil {
			mediaType = mt
			charset = params["charset"]
		}
	}

	return Metadata{
		StatusCode:      resp.StatusCode,
		Headers:         headers,
		Mime:            mediaType,
		Encoding:        charset,
		ETag:            resp.Header.Get("Etag"),
		LastModified:    resp.Header.Get("Last-Modified"),
		ContentEncoding: strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))),
		FetchedAt:       fetchedAt.UTC().Format(time.RFC3339),
	}
}
