package resource

import (
	"context"
	"errors"
	"fmt"
	"hash"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// stream copies body to destPath, hashing the bytes as they are
// written. Data goes to a temp file in the same directory first and is
// renamed into place on success; on any failure the temp file is
// removed, so a partial download never appears at destPath.
func stream(ctx context.Context, body io.Reader, contentLength int64, destPath string, sum hash.Hash, logger *slog.Logger) (string, error) {
	absPath, err := filepath.Abs(destPath)
	if err != nil {
		return "", fmt.Errorf("resolving destination path: %w", err)
	}

	body = &contextReader{ctx: ctx, r: body}

	file, err := os.CreateTemp(filepath.Dir(absPath), ".fetcher-*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}

	var successful bool
	defer func() {
		if err := file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			logger.Error("defer closing temp file", "error", err)
		}
		if !successful {
			if err := os.Remove(file.Name()); err != nil {
				logger.Error("failed to remove temp file", "error", err)
			}
		}
	}()

	writer := &progressWriter{
		w:         io.MultiWriter(file, sum),
		logger:    logger,
		total:     contentLength,
		startTime: time.Now(),
	}

	n, err := io.Copy(writer, body)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", fmt.Errorf("%w: %w", ErrStreamCancelled, err)
		}
		return "", fmt.Errorf("writing body to %s: %w", absPath, err)
	}

	if contentLength >= 0 && n != contentLength {
		return "", &Error{
			Err:    ErrContentLengthMismatch,
			Detail: fmt.Sprintf("expected %d bytes, got %d", contentLength, n),
		}
	}

	if err := file.Sync(); err != nil {
		return "", fmt.Errorf("syncing temp file: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(file.Name(), absPath); err != nil {
		return "", fmt.Errorf("renaming temp file: %w", err)
	}

	successful = true

	return absPath, nil
}

// contextReader fails the next Read once ctx ends, so an abandoned
// fetch stops consuming the transport promptly.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *contextReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}
