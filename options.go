package parflate

import (
	"github.com/chronos-tachyon/assert"
	"github.com/rs/zerolog"
)

// Option represents a configuration option for Decompress and
// DecompressGzip.
type Option func(*options)

type options struct {
	workers       int
	wbits         WindowBits
	chunkSize     int64
	maxBitsSkip   int64
	minProbeBytes int
	workerMinimum int64
	skipBytes     int64
	untilBytes    int64
	lineCount     bool
	checksum      bool
	tracers       []Tracer
	logger        zerolog.Logger
	reclaim       func(consumed int64)
}

func (o *options) reset() {
	*o = options{
		workers:       1,
		wbits:         DefaultWindowBits,
		chunkSize:     32 << 20,
		maxBitsSkip:   int64(1) << (3 + 20),
		minProbeBytes: 1 << 13,
		workerMinimum: 2 << 20,
		untilBytes:    -1,
		logger:        zerolog.Nop(),
	}
}

func (o *options) apply(opts []Option) {
	for _, opt := range opts {
		opt(o)
	}
}

func (o *options) populateDefaults() {
	if o.wbits == DefaultWindowBits {
		o.wbits = MaxWindowBits
	}
	if o.workers < 1 {
		o.workers = 1
	}
}

// WithWorkers specifies the number of worker threads to decode with.
func WithWorkers(n int) Option {
	assert.Assertf(n >= 1, "invalid worker count %d", n)
	return func(o *options) { o.workers = n }
}

// WithWindowBits specifies the WindowBits for each worker's decode window.
func WithWindowBits(wbits WindowBits) Option {
	assert.Assertf(wbits.IsValid(), "invalid WindowBits %d", uint(wbits))
	return func(o *options) { o.wbits = wbits }
}

// WithChunkSize specifies the number of compressed bytes per worker used to
// size sections: a section spans at most workers × bytes of input.  Within a
// section the first worker's chunk is larger than the others and may exceed
// bytes.  Larger chunks amortize the per-section hand-off at the cost of a
// larger peak working set.
func WithChunkSize(bytes int64) Option {
	assert.Assertf(bytes > 0, "invalid chunk size %d", bytes)
	return func(o *options) { o.chunkSize = bytes }
}

// WithSyncLimits specifies how far a worker may scan for a block boundary
// (in bits) and how much decoded output a candidate block must produce
// before it is trusted.
func WithSyncLimits(maxBitsSkip int64, minProbeBytes int) Option {
	assert.Assertf(maxBitsSkip > 0, "invalid probe limit %d", maxBitsSkip)
	assert.Assertf(minProbeBytes >= 0, "invalid probe minimum %d", minProbeBytes)
	return func(o *options) {
		o.maxBitsSkip = maxBitsSkip
		o.minProbeBytes = minProbeBytes
	}
}

// WithWorkerGranularity specifies the minimum number of compressed bytes
// per additional worker.  Inputs smaller than this are decoded with fewer
// workers than requested, down to one.
func WithWorkerGranularity(bytes int64) Option {
	assert.Assertf(bytes > 0, "invalid worker granularity %d", bytes)
	return func(o *options) { o.workerMinimum = bytes }
}

// WithSkip starts decoding at the first block boundary found at or past the
// given compressed byte offset, instead of at the beginning of the stream.
// Back-references into the unavailable context decode as '?'.  Forces
// single-worker operation; intended for inspecting damaged or partial
// files.
func WithSkip(bytes int64) Option {
	assert.Assertf(bytes >= 0, "invalid skip offset %d", bytes)
	return func(o *options) { o.skipBytes = bytes }
}

// WithStopAfter stops decoding 20 blocks after the given compressed byte
// offset.  Forces single-worker operation; intended for bisecting damaged
// files.
func WithStopAfter(bytes int64) Option {
	assert.Assertf(bytes >= 0, "invalid stop offset %d", bytes)
	return func(o *options) { o.untilBytes = bytes }
}

// WithLineCount counts '\n' bytes in the decoded output instead of writing
// the output itself.
func WithLineCount(enabled bool) Option {
	return func(o *options) { o.lineCount = enabled }
}

// WithChecksum verifies the decoded output against the CRC-32 and length
// recorded in the gzip footer.  Only meaningful for DecompressGzip.
func WithChecksum(enabled bool) Option {
	return func(o *options) { o.checksum = enabled }
}

// WithTracers specifies the list of Tracer instances which will receive
// Events as decompression proceeds.  Completely replaces any previous list.
func WithTracers(tracers ...Tracer) Option {
	for _, tr := range tracers {
		assert.NotNil(&tr)
	}
	if len(tracers) == 0 {
		tracers = nil
	} else {
		tmp := make([]Tracer, len(tracers))
		copy(tmp, tracers)
		tracers = tmp
	}
	return func(o *options) { o.tracers = tracers }
}

// WithLogger specifies a logger for worker debug output.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithReclaimer registers a hook invoked as the leading portion of the
// compressed input becomes fully consumed by every worker, so that the
// caller can release memory backing it.
func WithReclaimer(reclaim func(consumed int64)) Option {
	return func(o *options) { o.reclaim = reclaim }
}
