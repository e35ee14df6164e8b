package parflate

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"encoding/hex"
	"math/rand"
	"testing"
)

func mustDecodeHex(str string) []byte {
	raw, err := hex.DecodeString(str)
	if err != nil {
		panic(err)
	}
	return raw
}

// gzipCompress wraps data with the stdlib gzip writer, so that test
// expectations are correct by construction.
func gzipCompress(tb testing.TB, data []byte) []byte {
	tb.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		tb.Fatalf("gzip.Writer.Write failed: %v", err)
	}
	if err := zw.Close(); err != nil {
		tb.Fatalf("gzip.Writer.Close failed: %v", err)
	}
	return buf.Bytes()
}

// flateCompress produces a raw DEFLATE stream ending in a final block.
func flateCompress(tb testing.TB, data []byte, level int) []byte {
	tb.Helper()
	var buf bytes.Buffer
	fw, err := flate.NewWriter(&buf, level)
	if err != nil {
		tb.Fatalf("flate.NewWriter failed: %v", err)
	}
	if _, err := fw.Write(data); err != nil {
		tb.Fatalf("flate.Writer.Write failed: %v", err)
	}
	if err := fw.Close(); err != nil {
		tb.Fatalf("flate.Writer.Close failed: %v", err)
	}
	return buf.Bytes()
}

// asciiLines generates n bytes of newline-delimited ASCII records.  The
// content is pseudo-random enough that the compressor cannot collapse it
// into a handful of giant matches.
func asciiLines(n int) []byte {
	rng := rand.New(rand.NewSource(0x5eed))
	out := make([]byte, 0, n)
	for len(out) < n {
		line := make([]byte, 0, 40)
		line = append(line, 'r', 'e', 'c', ' ')
		for i := 0; i < 32; i++ {
			line = append(line, byte('a'+rng.Intn(26)))
		}
		line = append(line, '\n')
		out = append(out, line...)
	}
	return out[:n]
}

func diffOutputs(tb testing.TB, expect, actual []byte) {
	tb.Helper()
	if bytes.Equal(expect, actual) {
		return
	}

	minLen := len(expect)
	if len(actual) < minLen {
		minLen = len(actual)
	}
	first := minLen
	for i := 0; i < minLen; i++ {
		if expect[i] != actual[i] {
			first = i
			break
		}
	}
	tb.Errorf("unexpected diff: first change at offset %d, lengths %d vs %d", first, len(expect), len(actual))
}
