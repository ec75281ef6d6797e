package resource

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestFromResponse_Streaming(t *testing.T) {
	// Streaming mode stores the wire bytes untouched, even when they
	// are compressed, and hashes those raw bytes.
	compressed := gzipBytes(t, []byte("large payload body"))

	header := http.Header{"Content-Encoding": {"gzip"}}
	destPath := filepath.Join(t.TempDir(), "f.bin")

	res, err := FromResponse(context.Background(), "https://x/f.bin", "https://x/f.bin", response(http.StatusOK, header, compressed), time.Now().UTC(), destPath, discardLogger)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if res.Content != nil {
		t.Errorf("expected no in-memory content in streaming mode, got %d bytes", len(res.Content))
	}
	if !filepath.IsAbs(res.FilePath) {
		t.Errorf("expected absolute file path, got %q", res.FilePath)
	}

	stored, err := os.ReadFile(res.FilePath)
	if err != nil {
		t.Fatalf("reading streamed file: %v", err)
	}
	if diff := cmp.Diff(compressed, stored); diff != "" {
		t.Errorf("stored bytes mismatch (-want +got):\n%s", diff)
	}

	if res.Hash != sha256Hex(compressed) {
		t.Errorf("expected hash of raw wire bytes %s, got %s", sha256Hex(compressed), res.Hash)
	}
	if res.Metadata.ContentEncoding != "gzip" {
		t.Errorf("expected content-encoding %q, got %q", "gzip", res.Metadata.ContentEncoding)
	}
}

func TestFromResponse_StreamingIdempotent(t *testing.T) {
	body := []byte("same bytes every time")
	dir := t.TempDir()

	var hashes []string
	for _, name := range []string{"one.bin", "two.bin"} {
		res, err := FromResponse(context.Background(), "https://x/f", "https://x/f", response(http.StatusOK, http.Header{}, body), time.Now().UTC(), filepath.Join(dir, name), discardLogger)
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		hashes = append(hashes, res.Hash)
	}

	if hashes[0] != hashes[1] {
		t.Errorf("expected identical hashes for identical bytes, got %s and %s", hashes[0], hashes[1])
	}
}

func TestStream_FailedReadLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	destPath := filepath.Join(dir, "partial.bin")

	resp := &http.Response{
		StatusCode:    http.StatusOK,
		Header:        http.Header{},
		Body:          io.NopCloser(io.MultiReader(bytes.NewReader([]byte("some data")), failingReader{})),
		ContentLength: -1,
	}

	_, err := FromResponse(context.Background(), "https://x/f", "https://x/f", resp, time.Now().UTC(), destPath, discardLogger)
	if err == nil {
		t.Fatal("expected an error from the failing body")
	}

	if _, err := os.Stat(destPath); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected no file at destination after failure, stat err: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected temp files cleaned up, found %d entries", len(entries))
	}
}

func TestStream_ContentLengthMismatch(t *testing.T) {
	body := []byte("short")
	resp := &http.Response{
		StatusCode:    http.StatusOK,
		Header:        http.Header{},
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)) + 10,
	}

	_, err := FromResponse(context.Background(), "https://x/f", "https://x/f", resp, time.Now().UTC(), filepath.Join(t.TempDir(), "f.bin"), discardLogger)
	if !errors.Is(err, ErrContentLengthMismatch) {
		t.Errorf("expected ErrContentLengthMismatch, got: %v", err)
	}
}

func TestStream_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dir := t.TempDir()
	destPath := filepath.Join(dir, "cancelled.bin")

	_, err := FromResponse(ctx, "https://x/f", "https://x/f", response(http.StatusOK, http.Header{}, []byte("data")), time.Now().UTC(), destPath, discardLogger)
	if !errors.Is(err, ErrStreamCancelled) {
		t.Errorf("expected ErrStreamCancelled, got: %v", err)
	}

	if _, err := os.Stat(destPath); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected no file at destination after cancellation, stat err: %v", err)
	}
}

// failingReader errors after its preceding readers are drained.
type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("connection reset mid-body")
}
