package durable

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Algorithm names a supported compression codec for the text-column
// compressed payload encoding (SPEC_FULL.md §6.4).
type Algorithm string

const (
	AlgorithmZstd Algorithm = "zstd"
	AlgorithmGzip Algorithm = "gzip"
	AlgorithmLZ4  Algorithm = "lz4"
)

const compressedPrefix = "__compressed__:"

// CompressionThreshold is the serialized-length cutoff above which a
// column value is compressed before being written.
const CompressionThreshold = 1024

// Compress encodes payload using algo when len(payload) exceeds
// CompressionThreshold, returning the literal header-prefixed,
// base64-encoded form. Payloads at or below the threshold are returned
// unmodified.
func Compress(payload []byte, algo Algorithm) ([]byte, error) {
	if len(payload) <= CompressionThreshold {
		return payload, nil
	}

	compressed, err := compressWith(payload, algo)
	if err != nil {
		return nil, fmt.Errorf("compress payload with %s: %w", algo, err)
	}

	header := fmt.Sprintf("%s%s:%d\n", compressedPrefix, algo, len(payload))
	encoded := base64.StdEncoding.EncodeToString(compressed)
	return []byte(header + encoded), nil
}

// Decompress reverses Compress. It is idempotent on input that does not
// carry the compressed-payload prefix, returning it verbatim.
func Decompress(payload []byte) ([]byte, error) {
	if !bytes.HasPrefix(payload, []byte(compressedPrefix)) {
		return payload, nil
	}

	nl := bytes.IndexByte(payload, '\n')
	if nl < 0 {
		return nil, fmt.Errorf("compressed payload missing header terminator")
	}
	header := string(payload[len(compressedPrefix):nl])
	parts := strings.SplitN(header, ":", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("malformed compressed payload header %q", header)
	}
	algo := Algorithm(parts[0])
	originalSize, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, fmt.Errorf("malformed original size in compressed payload header: %w", err)
	}

	decoded, err := base64.StdEncoding.DecodeString(string(payload[nl+1:]))
	if err != nil {
		return nil, fmt.Errorf("decode base64 compressed payload: %w", err)
	}

	out, err := decompressWith(decoded, algo)
	if err != nil {
		return nil, fmt.Errorf("decompress payload with %s: %w", algo, err)
	}
	if len(out) != originalSize {
		return nil, fmt.Errorf("decompressed size %d does not match header size %d", len(out), originalSize)
	}
	return out, nil
}

func compressWith(payload []byte, algo Algorithm) ([]byte, error) {
	var buf bytes.Buffer
	switch algo {
	case AlgorithmZstd, "":
		enc, err := zstd.NewWriter(&buf)
		if err != nil {
			return nil, err
		}
		if _, err := enc.Write(payload); err != nil {
			enc.Close()
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
	case AlgorithmGzip:
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(payload); err != nil {
			w.Close()
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
	case AlgorithmLZ4:
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(payload); err != nil {
			w.Close()
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported compression algorithm %q", algo)
	}
	return buf.Bytes(), nil
}

func decompressWith(payload []byte, algo Algorithm) ([]byte, error) {
	switch algo {
	case AlgorithmZstd:
		dec, err := zstd.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return io.ReadAll(dec)
	case AlgorithmGzip:
		r, err := gzip.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	case AlgorithmLZ4:
		r := lz4.NewReader(bytes.NewReader(payload))
		return io.ReadAll(r)
	default:
		return nil, fmt.Errorf("unsupported compression algorithm %q", algo)
	}
}
