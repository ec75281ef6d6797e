package fetcher

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPrepare_Defaults(t *testing.T) {
	prep, err := prepare("http://x/", nil)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if prep.method != http.MethodGet {
		t.Errorf("expected default method GET, got %q", prep.method)
	}
	if prep.body != nil {
		t.Errorf("expected no body, got %d bytes", len(prep.body))
	}
	if prep.streamTo != "" {
		t.Errorf("expected no stream destination, got %q", prep.streamTo)
	}
}

func TestPrepare_BodyEncoding(t *testing.T) {
	testCases := []struct {
		name     string
		opts     []FetchOption
		wantBody string
		wantCT   string
	}{
		{
			name:     "json payload",
			opts:     []FetchOption{WithJSON(map[string]int{"a": 1})},
			wantBody: `{"a":1}`,
			wantCT:   "application/json",
		},
		{
			name:     "form payload",
			opts:     []FetchOption{WithForm(url.Values{"q": {"go"}})},
			wantBody: "q=go",
			wantCT:   "application/x-www-form-urlencoded",
		},
		{
			name:     "raw bytes payload",
			opts:     []FetchOption{WithData([]byte("raw stuff"))},
			wantBody: "raw stuff",
			wantCT:   "application/octet-stream",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			prep, err := prepare("http://x/", tc.opts)
			if err != nil {
				t.Fatalf("expected no error, got: %v", err)
			}

			if diff := cmp.Diff(tc.wantBody, string(prep.body)); diff != "" {
				t.Errorf("body mismatch (-want +got):\n%s", diff)
			}
			if prep.contentType != tc.wantCT {
				t.Errorf("expected content type %q, got %q", tc.wantCT, prep.contentType)
			}
		})
	}
}

func TestPrepare_BodyConflicts(t *testing.T) {
	testCases := []struct {
		name string
		opts []FetchOption
	}{
		{
			name: "data and json",
			opts: []FetchOption{WithData([]byte("x")), WithJSON(map[string]int{"a": 1})},
		},
		{
			name: "data and form",
			opts: []FetchOption{WithData([]byte("x")), WithForm(url.Values{"a": {"1"}})},
		},
		{
			name: "form and json",
			opts: []FetchOption{WithForm(url.Values{"a": {"1"}}), WithJSON("x")},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := prepare("http://x/", tc.opts); !errors.Is(err, ErrBodyConflict) {
				t.Errorf("expected ErrBodyConflict, got: %v", err)
			}
		})
	}
}

func TestPreparedRequest_BuildRewindsBody(t *testing.T) {
	prep, err := prepare("http://x/", []FetchOption{
		WithMethod(http.MethodPost),
		WithData([]byte("same bytes")),
	})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	// Each attempt gets its own fresh reader over the same bytes.
	for i := 0; i < 2; i++ {
		req, err := prep.build(context.Background())
		if err != nil {
			t.Fatalf("build %d: %v", i, err)
		}
		body, err := io.ReadAll(req.Body)
		if err != nil {
			t.Fatalf("reading body %d: %v", i, err)
		}
		if string(body) != "same bytes" {
			t.Errorf("attempt %d body = %q", i, body)
		}
	}
}

func TestPreparedRequest_BuildCallerContentTypeWins(t *testing.T) {
	prep, err := prepare("http://x/", []FetchOption{
		WithData([]byte("bytes")),
		WithHeaders(map[string]string{"Content-Type": "application/pdf"}),
	})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	req, err := prep.build(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if ct := req.Header.Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("expected caller content type to win, got %q", ct)
	}
}

func TestWithStreamTo_EmptyPath(t *testing.T) {
	if _, err := prepare("http://x/", []FetchOption{WithStreamTo("")}); !errors.Is(err, ErrEmptyDestination) {
		t.Errorf("expected ErrEmptyDestination, got: %v", err)
	}
}
