package parflate

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"

	buffer "github.com/chronos-tachyon/buffer/v3"
	"golang.org/x/sync/errgroup"

	"github.com/chronos-tachyon/parflate/internal/crc32"
)

// errAborted is the sentinel a worker returns when it unwound because some
// other worker already failed the pipeline.  The pipeline's first real
// error wins; errAborted itself is never surfaced to the caller.
var errAborted = errors.New("parflate: pipeline aborted")

// Stats summarizes one decompression run.
type Stats struct {
	// Bytes is the total decompressed size.
	Bytes int64

	// Lines is the number of '\n' bytes seen; only populated in
	// line-count mode.
	Lines int64

	// CRC32 is the checksum of the decompressed output; only populated
	// when checksum verification is enabled.
	CRC32 Checksum32
}

// Decompress decodes a raw DEFLATE stream with an ASCII text payload,
// splitting it across worker threads when options ask for more than one.
// The compressed input must be fully in memory; the output is written to
// dst in stream order.
func Decompress(dst io.Writer, payload []byte, opts ...Option) (Stats, error) {
	var o options
	o.reset()
	o.apply(opts)
	o.populateDefaults()
	return decompress(dst, payload, &o)
}

func decompress(dst io.Writer, payload []byte, o *options) (Stats, error) {
	sendEvent(o.tracers, Event{Type: StreamBeginEvent})

	stats, err := decompressDispatch(dst, payload, o)

	sendEvent(o.tracers, Event{Type: StreamEndEvent, OutputBytes: stats.Bytes})
	return stats, err
}

func decompressDispatch(dst io.Writer, payload []byte, o *options) (Stats, error) {
	if len(payload) == 0 {
		return Stats{}, CorruptInputError{Result: BlockNotEnoughInput, Problem: "empty DEFLATE stream"}
	}

	// Small inputs are not worth splitting: one extra worker per
	// granularity unit of compressed input, at most.  The diagnostic
	// skip/until modes are inherently sequential.
	workers := o.workers
	if clamp := 1 + int(int64(len(payload))/o.workerMinimum); workers > clamp {
		workers = clamp
	}
	if o.skipBytes > 0 || o.untilBytes >= 0 {
		workers = 1
	}

	if workers <= 1 {
		return decompressSequential(dst, payload, o)
	}
	return newPipeline(dst, payload, o, workers).run()
}

// pipeline owns one parallel decompression run: the worker ring, the
// synchronizers between neighbors, and the ordered emitter.
type pipeline struct {
	payload []byte
	opts    *options
	emit    *emitter

	numWorkers  int
	numSections int
	sectionSize int64
	firstChunk  int64
	chunkSize   int64

	syncs []*synchronizer

	failFlag  atomic.Bool
	failOnce  sync.Once
	failErr   error
	reclaimed int64
}

func newPipeline(dst io.Writer, payload []byte, o *options, workers int) *pipeline {
	p := &pipeline{
		payload:    payload,
		opts:       o,
		emit:       newEmitter(dst, o),
		numWorkers: workers,
	}

	inSize := int64(len(payload))

	// Sections of the input are decompressed one after the other; within
	// a section every worker gets one chunk.  The first chunk runs with
	// a resolved context and therefore decodes faster, so it gets a
	// bonus share.
	maxSection := int64(workers) * o.chunkSize
	sectionSize := inSize
	if sectionSize > maxSection {
		sectionSize = maxSection
	}
	numSections := int((inSize + sectionSize - 1) / sectionSize)
	sectionSize = inSize / int64(numSections)

	chunk := sectionSize / int64(workers)
	bonus := int64(4) << 20
	if bonus > chunk/2 {
		bonus = chunk / 2
	}
	firstChunk := chunk + bonus
	rest := (sectionSize - firstChunk) / int64(workers-1)
	if rest < 1 {
		rest = 1
	}

	p.numSections = numSections
	p.sectionSize = sectionSize
	p.firstChunk = firstChunk
	p.chunkSize = rest

	p.syncs = make([]*synchronizer, workers)
	for i := range p.syncs {
		p.syncs[i] = newSynchronizer()
	}
	return p
}

// chunkBounds returns the compressed-stream bit range assigned to a
// non-first worker's chunk.  The start is where the worker begins probing
// for a block boundary; the stop only binds the last worker, which has no
// downstream neighbor inside the section.
func (p *pipeline) chunkBounds(section, index int) (startBits, stopBits int64) {
	sectionOffset := int64(section) * p.sectionSize
	start := sectionOffset + p.firstChunk + int64(index-1)*p.chunkSize
	stop := sectionOffset + p.firstChunk + int64(index)*p.chunkSize
	if index == p.numWorkers-1 || stop > sectionOffset+p.sectionSize {
		stop = sectionOffset + p.sectionSize
	}
	if p.lastSection(section) {
		stop = int64(len(p.payload))
	}
	return bitsPerByte * start, bitsPerByte * stop
}

func (p *pipeline) lastSection(section int) bool {
	return section == p.numSections-1
}

func (p *pipeline) aborted() bool {
	return p.failFlag.Load()
}

// fail records the first real error and unblocks every worker parked on a
// synchronizer or on the emitter.
func (p *pipeline) fail(err error) {
	p.failOnce.Do(func() {
		p.failErr = err
		p.failFlag.Store(true)
		for _, s := range p.syncs {
			s.fail()
		}
		p.emit.fail()
	})
}

// reclaimInput tells the caller that the input prefix up to consumed bytes
// has been fully decoded by every worker and may be released.
func (p *pipeline) reclaimInput(consumed int64) {
	if p.opts.reclaim == nil || consumed <= p.reclaimed {
		return
	}
	p.opts.reclaim(consumed)
	p.reclaimed = consumed
}

func (p *pipeline) sendEvent(event Event) {
	p.opts.logger.Debug().
		Stringer("type", event.Type).
		Int("worker", event.Worker).
		Int("section", event.Section).
		Int64("bitpos", event.PositionBits).
		Msg("worker progress")
	sendEvent(p.opts.tracers, event)
}

func (p *pipeline) run() (Stats, error) {
	var group errgroup.Group

	first := newFirstBlockWorker(p, p.syncs[0], p.syncs[1])
	group.Go(func() error {
		err := first.run()
		if err != nil && err != errAborted {
			p.fail(err)
		}
		return err
	})

	for i := 1; i < p.numWorkers; i++ {
		w := newRandomAccessWorker(p, i, p.syncs[i], p.syncs[(i+1)%p.numWorkers])
		group.Go(func() error {
			err := w.run()
			if err != nil && err != errAborted {
				p.fail(err)
			}
			return err
		})
	}

	// Workers that unwound because a peer failed return errAborted, and
	// errgroup keeps whichever error arrived first; the recorded failure
	// is the one that matters.
	_ = group.Wait()
	if p.failErr != nil {
		return Stats{}, p.failErr
	}
	return p.emit.close()
}

// decompressSequential is the single-worker path: one window with a
// zero-filled context, decoded straight through the emitter.  The
// diagnostic skip mode swaps in a symbolic window, since the context at an
// arbitrary offset is unavailable; its placeholders decode as '?'.
func decompressSequential(dst io.Writer, payload []byte, o *options) (Stats, error) {
	e := newEmitter(dst, o)
	var tables huffTables
	in := newBitReader(payload)

	var out sink
	var finish func() bool
	if o.skipBytes > 0 {
		win := newWindow[uint16](o.wbits, func(run []uint16) bool {
			scratch := takeScratch()
			defer giveScratch(scratch)
			buf := *scratch
			for len(run) > 0 {
				n := minInt(len(run), len(buf))
				for i, s := range run[:n] {
					if s < minBackref {
						buf[i] = byte(s)
					} else {
						buf[i] = '?'
					}
				}
				if e.write(0, buf[:n]) != nil {
					return false
				}
				run = run[n:]
			}
			return true
		})
		initSymbolicContext(win)
		out = win
		finish = win.finish

		var dummy dummySink
		if _, ok := syncScan(&in, &tables, &dummy, bitsPerByte*o.skipBytes, o.maxBitsSkip, o.minProbeBytes); !ok {
			return Stats{}, SyncError{Worker: 0, StartBits: bitsPerByte * o.skipBytes, SkippedBits: o.maxBitsSkip}
		}
	} else {
		win := newWindow[uint8](o.wbits, func(run []byte) bool {
			return e.write(0, run) == nil
		})
		win.resetZero()
		out = win
		finish = win.finish
	}

	sawLast := false
	blocksPastLimit := 0
	for {
		if o.untilBytes >= 0 && in.positionBits() >= bitsPerByte*o.untilBytes {
			blocksPastLimit++
			if blocksPastLimit > 20 {
				break
			}
		}
		res := doBlock[shouldSucceed](&tables, &in, out)
		if res == BlockLast {
			sawLast = true
			break
		}
		if res != BlockSuccess {
			if err := res.toError(in.positionBits()); err != nil {
				return Stats{}, err
			}
		}
	}
	if sawLast && in.availableBits() >= bitsPerByte {
		return Stats{}, CorruptInputError{
			OffsetBits: in.positionBits(),
			Result:     BlockTooMuchInput,
			Problem:    "trailing bytes after the final block",
		}
	}
	if !finish() {
		return Stats{}, BlockFlushFail.toError(in.positionBits())
	}
	if err := e.finishSeq(0); err != nil {
		return Stats{}, err
	}
	return e.close()
}

// type emitter {{{

// emitter serializes the workers' output into stream order.  Each chunk
// owns a sequence number; writes for a sequence block until every earlier
// sequence has been finished.  Output is staged through a ring buffer so
// that many small window flushes coalesce into few writes downstream.
type emitter struct {
	mu   sync.Mutex
	cond *sync.Cond

	out    io.Writer
	stage  buffer.Buffer
	turn   int
	failed bool
	err    error

	lineCount bool
	checksum  bool
	lines     int64
	total     int64
	crc       uint32
}

func newEmitter(dst io.Writer, o *options) *emitter {
	e := &emitter{
		out:       dst,
		lineCount: o.lineCount,
		checksum:  o.checksum,
	}
	e.cond = sync.NewCond(&e.mu)
	e.stage.Init(16)
	return e
}

// write appends p to the output stream as part of sequence seq, waiting for
// the emitter's turn to reach seq first.  In line-count mode there is no
// output stream and thus nothing to serialize; the bytes are only counted.
func (e *emitter) write(seq int, p []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.lineCount {
		// Line counting needs no output ordering, so there is nothing
		// to wait for.  (A checksum would need ordered input; it is
		// not computed in this mode.)
		e.total += int64(len(p))
		for _, ch := range p {
			if ch == '\n' {
				e.lines++
			}
		}
		return nil
	}

	for e.turn != seq && !e.failed {
		e.cond.Wait()
	}
	if e.failed {
		return errAborted
	}

	e.total += int64(len(p))
	if e.checksum {
		e.crc = crc32.Update(e.crc, p)
	}

	for len(p) > 0 {
		if e.stage.IsFull() {
			e.drainLocked()
			if e.failed {
				return e.err
			}
		}
		nn, _ := e.stage.Write(p)
		p = p[nn:]
	}
	return nil
}

// finishSeq marks sequence seq complete and lets the next one through.
func (e *emitter) finishSeq(seq int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for e.turn != seq && !e.failed {
		e.cond.Wait()
	}
	if e.failed {
		return errAborted
	}
	e.turn++
	e.cond.Broadcast()
	return nil
}

func (e *emitter) drainLocked() {
	size := e.stage.Size()
	for !e.stage.IsEmpty() {
		p := e.stage.PrepareBulkRead(size)
		nn, err := e.out.Write(p)
		e.stage.CommitBulkRead(uint(nn))
		if err != nil {
			e.err = err
			e.failed = true
			e.cond.Broadcast()
			return
		}
	}
}

func (e *emitter) fail() {
	e.mu.Lock()
	e.failed = true
	if e.err == nil {
		e.err = errAborted
	}
	e.cond.Broadcast()
	e.mu.Unlock()
}

// close flushes the staging buffer and returns the run's statistics.
func (e *emitter) close() (Stats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.failed {
		e.drainLocked()
	}
	if e.failed && e.err != errAborted && e.err != nil {
		return Stats{}, e.err
	}

	return Stats{
		Bytes: e.total,
		Lines: e.lines,
		CRC32: Checksum32(e.crc),
	}, nil
}

// }}}

func sendEvent(tracers []Tracer, event Event) {
	for _, tr := range tracers {
		tr.OnEvent(event)
	}
}
