package resource

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
)

// Decode decompresses data per the given Content-Encoding token.
// Empty and "identity" pass the bytes through; anything other than
// gzip, deflate or br is rejected with [ErrUnsupportedEncoding] rather
// than silently passed along.
func Decode(data []byte, encoding string) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "identity":
		return data, nil
	case "gzip", "x-gzip":
		return decodeGzip(data)
	case "deflate":
		return decodeDeflate(data)
	case "br":
		return decodeBrotli(data)
	default:
		return nil, &Error{Err: ErrUnsupportedEncoding, Detail: encoding}
	}
}

func decodeGzip(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, &Error{Err: ErrDecode, Detail: fmt.Sprintf("gzip: %v", err)}
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, &Error{Err: ErrDecode, Detail: fmt.Sprintf("gzip: %v", err)}
	}

	return out, nil
}

// decodeDeflate handles both the zlib-wrapped form RFC 9110 specifies
// and the bare deflate stream some servers send anyway.
func decodeDeflate(data []byte) ([]byte, error) {
	if zr, err := zlib.NewReader(bytes.NewReader(data)); err == nil {
		defer zr.Close()
		if out, err := io.ReadAll(zr); err == nil {
			return out, nil
		}
	}

	fr := flate.NewReader(bytes.NewReader(data))
	defer fr.Close()

	out, err := io.ReadAll(fr)
	if err != nil {
		return nil, &Error{Err: ErrDecode, Detail: fmt.Sprintf("deflate: %v", err)}
	}

	return out, nil
}

func decodeBrotli(data []byte) ([]byte, error) {
	out, err := io.ReadAll(brotli.NewReader(bytes.NewReader(data)))
	if err != nil {
		return nil, &Error{Err: ErrDecode, Detail: fmt.Sprintf("brotli: %v", err)}
	}

	return out, nil
}
