package parflate

import (
	"bytes"
	"compress/gzip"
	"strings"
	"testing"
)

// parallelOpts shrinks the partitioning thresholds so that small test
// inputs genuinely exercise the multi-worker path.
func parallelOpts(workers int) []Option {
	return []Option{
		WithWorkers(workers),
		WithWorkerGranularity(64 << 10),
		WithChunkSize(256 << 10),
	}
}

func TestDecompressGzipEmpty(t *testing.T) {
	data := gzipCompress(t, nil)

	var out bytes.Buffer
	stats, _, err := DecompressGzip(&out, data)
	if err != nil {
		t.Fatalf("DecompressGzip failed: %v", err)
	}
	if stats.Bytes != 0 || out.Len() != 0 {
		t.Errorf("decoded %d bytes (%d written), want 0", stats.Bytes, out.Len())
	}
}

func TestDecompressGzipHello(t *testing.T) {
	data := gzipCompress(t, []byte("hello\n"))

	var out bytes.Buffer
	stats, _, err := DecompressGzip(&out, data)
	if err != nil {
		t.Fatalf("DecompressGzip failed: %v", err)
	}
	if out.String() != "hello\n" {
		t.Errorf("output %q, want %q", out.String(), "hello\n")
	}
	if stats.Bytes != 6 {
		t.Errorf("stats.Bytes = %d, want 6", stats.Bytes)
	}
}

func TestDecompressRepeatedRuns(t *testing.T) {
	// 64 KiB of a single letter collapses into long matches; with 4
	// workers requested the input is too small to split, but the
	// request must still decode exactly.
	expect := bytes.Repeat([]byte{'A'}, 64*1024)
	data := gzipCompress(t, expect)

	var out bytes.Buffer
	stats, _, err := DecompressGzip(&out, data, WithWorkers(4))
	if err != nil {
		t.Fatalf("DecompressGzip failed: %v", err)
	}
	diffOutputs(t, expect, out.Bytes())
	if stats.Bytes != int64(len(expect)) {
		t.Errorf("stats.Bytes = %d, want %d", stats.Bytes, len(expect))
	}
}

func TestDecompressParallelMatchesSequential(t *testing.T) {
	expect := asciiLines(2 << 20)
	data := gzipCompress(t, expect)

	// Reference: the stdlib sequential decoder.
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	var reference bytes.Buffer
	if _, err := reference.ReadFrom(zr); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(reference.Bytes(), expect) {
		t.Fatal("stdlib reference decode mismatch")
	}

	for _, workers := range []int{2, 4, 8} {
		var out bytes.Buffer
		stats, _, err := DecompressGzip(&out, data, parallelOpts(workers)...)
		if err != nil {
			t.Fatalf("workers=%d: DecompressGzip failed: %v", workers, err)
		}
		diffOutputs(t, reference.Bytes(), out.Bytes())
		if stats.Bytes != int64(len(expect)) {
			t.Errorf("workers=%d: stats.Bytes = %d, want %d", workers, stats.Bytes, len(expect))
		}
	}
}

func TestDecompressParallelRepetitive(t *testing.T) {
	// Repetitive records produce long matches that chain placeholders
	// across block boundaries, exercising the symbolic resolution.
	var sb strings.Builder
	for sb.Len() < 2<<20 {
		sb.WriteString("name=server region=east status=ok latency=12ms\n")
		sb.WriteString("name=server region=west status=ok latency=31ms\n")
	}
	expect := []byte(sb.String())
	data := gzipCompress(t, expect)

	var out bytes.Buffer
	_, _, err := DecompressGzip(&out, data, parallelOpts(4)...)
	if err != nil {
		t.Fatalf("DecompressGzip failed: %v", err)
	}
	diffOutputs(t, expect, out.Bytes())
}

func TestDecompressTruncated(t *testing.T) {
	data := gzipCompress(t, asciiLines(2<<20))
	truncated := data[: len(data)-1024 : len(data)-1024]

	var out bytes.Buffer
	if _, _, err := DecompressGzip(&out, truncated, parallelOpts(2)...); err == nil {
		t.Fatal("DecompressGzip succeeded on a truncated stream")
	}
}

func TestDecompressLineCount(t *testing.T) {
	expect := asciiLines(1 << 20)
	want := int64(bytes.Count(expect, []byte{'\n'}))
	data := gzipCompress(t, expect)

	var out bytes.Buffer
	stats, _, err := DecompressGzip(&out, data, append(parallelOpts(4), WithLineCount(true))...)
	if err != nil {
		t.Fatalf("DecompressGzip failed: %v", err)
	}
	if stats.Lines != want {
		t.Errorf("stats.Lines = %d, want %d", stats.Lines, want)
	}
	if out.Len() != 0 {
		t.Errorf("line-count mode wrote %d bytes", out.Len())
	}
}

func TestDecompressChecksum(t *testing.T) {
	expect := asciiLines(256 << 10)
	data := gzipCompress(t, expect)

	var out bytes.Buffer
	if _, _, err := DecompressGzip(&out, data, WithChecksum(true)); err != nil {
		t.Fatalf("DecompressGzip with checksum failed: %v", err)
	}

	// Corrupting the footer CRC must be detected.
	bad := append([]byte(nil), data...)
	bad[len(bad)-8] ^= 0xff
	out.Reset()
	_, _, err := DecompressGzip(&out, bad, WithChecksum(true))
	if _, ok := err.(ChecksumError); !ok {
		t.Errorf("got error %v, want a ChecksumError", err)
	}

	// Without the option the same corruption passes silently.
	out.Reset()
	if _, _, err := DecompressGzip(&out, bad); err != nil {
		t.Errorf("DecompressGzip without checksum failed: %v", err)
	}
}

func TestDecompressSkip(t *testing.T) {
	expect := asciiLines(1 << 20)
	data := gzipCompress(t, expect)

	// Skipping half the compressed stream still produces a tail of the
	// original text, with unresolved references decoded as '?'.
	var out bytes.Buffer
	stats, _, err := DecompressGzip(&out, data, WithSkip(int64(len(data)/2)))
	if err != nil {
		t.Fatalf("DecompressGzip with skip failed: %v", err)
	}
	if stats.Bytes == 0 {
		t.Fatal("skip mode decoded nothing")
	}
	tail := out.Bytes()
	if int64(len(tail)) != stats.Bytes {
		t.Fatalf("wrote %d bytes, stats say %d", len(tail), stats.Bytes)
	}
	// Every decoded byte is either printable ASCII or the placeholder.
	for i, ch := range tail {
		if (ch < minASCII || ch > maxASCII) && ch != '?' {
			t.Fatalf("byte %d = %#x outside the expected range", i, ch)
		}
	}
	// The decoded tail must literally end the original text.
	n := len(tail)
	orig := expect[len(expect)-n:]
	for i := range tail {
		if tail[i] != '?' && tail[i] != orig[i] {
			t.Fatalf("tail byte %d = %q, want %q", i, tail[i], orig[i])
		}
	}
}

func TestDecompressEvents(t *testing.T) {
	expect := asciiLines(1 << 20)
	data := gzipCompress(t, expect)

	var events []EventType
	var header Header
	tracer := TracerFunc(func(event Event) {
		events = append(events, event.Type)
	})

	var out bytes.Buffer
	opts := append(parallelOpts(2), WithTracers(tracer, CaptureHeader(&header)))
	if _, _, err := DecompressGzip(&out, data, opts...); err != nil {
		t.Fatalf("DecompressGzip failed: %v", err)
	}

	counts := map[EventType]int{}
	for _, e := range events {
		counts[e]++
	}
	if counts[StreamHeaderEvent] != 1 || counts[StreamBeginEvent] != 1 || counts[StreamEndEvent] != 1 {
		t.Errorf("stream event counts: %v", counts)
	}
	if counts[SyncFoundEvent] == 0 || counts[ContextHandOffEvent] == 0 {
		t.Errorf("missing worker events: %v", counts)
	}
}
