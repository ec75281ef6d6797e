// Package resource turns a terminal HTTP response into an immutable
// [Resource] value: metadata extraction, conditional decompression or
// raw disk streaming, and SHA-256 integrity hashing.
//
// In-memory mode buffers the whole body, decompresses it per its
// Content-Encoding (gzip, deflate, brotli), and hashes the
// decompressed bytes. Streaming mode writes the raw wire bytes to a
// destination file through a temp-file-and-rename discipline, hashing
// incrementally as it writes; a failed stream never leaves a partial
// file at the destination.
//
// Retry policy lives with the caller; every failure in this package is
// terminal.
package resource
