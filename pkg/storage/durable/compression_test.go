package durable

import (
	"bytes"
	"strings"
	"testing"
)

func TestCompressRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog. "), 100)

	for _, algo := range []Algorithm{AlgorithmZstd, AlgorithmGzip, AlgorithmLZ4} {
		compressed, err := Compress(payload, algo)
		if err != nil {
			t.Fatalf("Compress(%s) error: %v", algo, err)
		}
		if !strings.HasPrefix(string(compressed), compressedPrefix) {
			t.Fatalf("Compress(%s) did not produce the compressed-payload prefix", algo)
		}

		out, err := Decompress(compressed)
		if err != nil {
			t.Fatalf("Decompress(%s) error: %v", algo, err)
		}
		if !bytes.Equal(out, payload) {
			t.Fatalf("Decompress(%s) did not round-trip the original payload", algo)
		}
	}
}

func TestCompressLeavesSmallPayloadsUncompressed(t *testing.T) {
	payload := []byte("short")
	out, err := Compress(payload, AlgorithmZstd)
	if err != nil {
		t.Fatalf("Compress error: %v", err)
	}
	if !bytes.Equal(out, payload) {
		t.Fatal("expected a payload under the threshold to pass through unmodified")
	}
}

func TestDecompressIsIdempotentOnUncompressedInput(t *testing.T) {
	payload := []byte("plain text, not compressed")
	out, err := Decompress(payload)
	if err != nil {
		t.Fatalf("Decompress error: %v", err)
	}
	if !bytes.Equal(out, payload) {
		t.Fatal("expected Decompress to return uncompressed input verbatim")
	}
}
