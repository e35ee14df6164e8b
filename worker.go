package parflate

import (
	"github.com/chronos-tachyon/assert"
)

// outBudgetRatio bounds how much decoded output one chunk may stage, as a
// multiple of the chunk's compressed size.  A chunk that expands further
// than this fails with BlockFlushFail rather than growing without bound.
const outBudgetRatio = 4

// workerBase carries the per-thread machinery shared by both worker kinds:
// the bit-stream reader over the (shared, read-only) compressed input, the
// thread-local decode tables, and the pair of synchronizers linking this
// worker to its neighbors in the ring.
type workerBase struct {
	p     *pipeline
	index int
	state WorkerState

	in     bitReader
	tables huffTables

	upstream   *synchronizer // resolved context arrives here
	downstream *synchronizer // we poll stops and post context here
}

func (w *workerBase) setState(state WorkerState) {
	w.state = state
}

// decompressLoop decodes blocks into out until the stream ends, the
// downstream stop position is crossed, the predicate fires, or a block
// fails to parse.  The predicate runs between blocks, never mid-block.
func (w *workerBase) decompressLoop(out sink, pred func() bool) BlockResult {
	for {
		if pred != nil && pred() {
			return BlockSuccess
		}
		if w.in.positionBits() >= w.downstream.stopPos() {
			w.downstream.clearStop()
			return BlockCaughtUp
		}
		if w.p.aborted() {
			return BlockCaughtUp
		}
		res := doBlock[shouldSucceed](&w.tables, &w.in, out)
		if res != BlockSuccess {
			return res
		}
	}
}

// type firstBlockWorker {{{

// firstBlockWorker decodes chunk 0 of every section.  It always runs with
// a real (resolved) context, so it decodes straight into bytes and streams
// them through the ordered emitter as it goes.
type firstBlockWorker struct {
	workerBase
	win *window[uint8]
	seq int
}

func newFirstBlockWorker(p *pipeline, up, down *synchronizer) *firstBlockWorker {
	w := &firstBlockWorker{
		workerBase: workerBase{p: p, index: 0, upstream: up, downstream: down},
	}
	w.in = newBitReader(p.payload)
	w.win = newWindow[uint8](p.opts.wbits, w.emitRun)
	return w
}

func (w *firstBlockWorker) emitRun(run []byte) bool {
	return w.p.emit.write(w.seq, run) == nil
}

func (w *firstBlockWorker) run() error {
	defer w.setState(DoneWorker)

	startBits := int64(0)
	for section := 0; section < w.p.numSections; section++ {
		w.seq = section * w.p.numWorkers
		w.p.sendEvent(Event{Type: SectionBeginEvent, Worker: w.index, Section: section, PositionBits: startBits})

		if section == 0 {
			w.win.resetZero()
		} else {
			w.setState(IdleWorker)
			ctx, stoppedAt, ok := w.upstream.getContext()
			if !ok {
				return errAborted
			}
			w.win.resetContext(ctx)
			giveContext(ctx)
			startBits = stoppedAt
			w.p.reclaimInput(startBits / bitsPerByte)
		}

		if err := w.runSection(section, startBits); err != nil {
			return err
		}
	}
	return nil
}

func (w *firstBlockWorker) runSection(section int, startBits int64) error {
	if !w.in.setPositionBits(startBits) {
		return CorruptInputError{OffsetBits: startBits, Result: BlockNotEnoughInput, Problem: "resume position beyond end of input"}
	}

	w.setState(DecodingWorker)
	res := w.decompressLoop(w.win, nil)
	if w.p.aborted() {
		return errAborted
	}
	if res.IsError() {
		return res.toError(w.in.positionBits())
	}
	if res == BlockLast && !w.p.lastSection(section) {
		return CorruptInputError{OffsetBits: w.in.positionBits(), Result: BlockTooMuchInput, Problem: "final block arrived before the final section"}
	}
	if !w.win.finish() {
		return BlockFlushFail.toError(w.in.positionBits())
	}
	w.p.sendEvent(Event{Type: ChunkDecodedEvent, Worker: w.index, Section: section, State: w.state, PositionBits: w.in.positionBits()})

	w.setState(HandingOffWorker)
	if !w.downstream.putContext(w.win.context(), w.in.positionBits()) {
		return errAborted
	}
	w.p.sendEvent(Event{Type: ContextHandOffEvent, Worker: w.index, Section: section, State: w.state, PositionBits: w.in.positionBits()})

	w.setState(EmittingWorker)
	if err := w.p.emit.finishSeq(w.seq); err != nil {
		return err
	}
	w.p.sendEvent(Event{Type: ChunkEmittedEvent, Worker: w.index, Section: section, State: w.state, PositionBits: w.in.positionBits()})
	return nil
}

// }}}

// type randomAccessWorker {{{

// randomAccessWorker decodes chunks 1..N-1 of every section.  It has no
// context for its chunk until the upstream worker finishes, so it
// synchronizes onto a block boundary, decodes symbolically, and resolves
// its output once the true context arrives.
type randomAccessWorker struct {
	workerBase

	wide   *window[uint16]
	narrow *window[uint8]
	mux    backrefMultiplexer
	dummy  dummySink

	wideOut   []uint16
	narrowOut []byte
	outBudget int
}

func newRandomAccessWorker(p *pipeline, index int, up, down *synchronizer) *randomAccessWorker {
	w := &randomAccessWorker{
		workerBase: workerBase{p: p, index: index, upstream: up, downstream: down},
	}
	w.in = newBitReader(p.payload)
	w.wide = newWindow[uint16](p.opts.wbits, w.stageWide)
	w.narrow = newWindow[uint8](p.opts.wbits, w.stageNarrow)
	w.outBudget = int(outBudgetRatio * p.chunkSize)
	return w
}

func (w *randomAccessWorker) stageWide(run []uint16) bool {
	if len(w.wideOut)+len(w.narrowOut)+len(run) > w.outBudget {
		return false
	}
	w.wideOut = append(w.wideOut, run...)
	return true
}

func (w *randomAccessWorker) stageNarrow(run []byte) bool {
	if len(w.wideOut)+len(w.narrowOut)+len(run) > w.outBudget {
		return false
	}
	w.narrowOut = append(w.narrowOut, run...)
	return true
}

func (w *randomAccessWorker) run() error {
	defer w.setState(DoneWorker)

	for section := 0; section < w.p.numSections; section++ {
		if err := w.runSection(section); err != nil {
			return err
		}
	}

	// For the last chunk of the last section, nobody consumes the posted
	// context; it simply stays behind.
	return nil
}

func (w *randomAccessWorker) runSection(section int) error {
	startBits, stopBits := w.p.chunkBounds(section, w.index)
	seq := section*w.p.numWorkers + w.index

	w.wideOut = w.wideOut[:0]
	w.narrowOut = w.narrowOut[:0]

	if w.index == w.p.numWorkers-1 {
		// The last chunk is bounded by the section end rather than by
		// a downstream sync point.
		w.downstream.setStop(stopBits)
	}

	// Phase 1: locate a block boundary at or past the chunk start.
	w.setState(SyncingWorker)
	syncedAt, err := w.sync(startBits)
	if err != nil {
		return err
	}
	w.upstream.setStop(syncedAt)
	w.p.sendEvent(Event{Type: SyncFoundEvent, Worker: w.index, Section: section, State: w.state, PositionBits: syncedAt})

	// Phase 2: decode symbolically; switch to the compact 8-bit form
	// once few enough placeholders remain live.
	w.setState(DecodingWorker)
	initSymbolicContext(w.wide)
	muxed := false
	blocks := 0
	res := w.decompressLoop(w.wide, func() bool {
		blocks++
		if blocks <= 8 || blocks%2 == 0 {
			return false
		}
		return w.mux.compress(w.wide, w.narrow)
	})
	if res == BlockSuccess {
		// The predicate fired: the multiplexer rewrote the context
		// into the narrow window.
		muxed = true
		if !w.wide.finish() {
			res = BlockFlushFail
		} else {
			res = w.decompressLoop(w.narrow, nil)
		}
	}
	if w.p.aborted() {
		return errAborted
	}
	if res.IsError() {
		return res.toError(w.in.positionBits())
	}
	if res == BlockLast && !(w.p.lastSection(section) && w.index == w.p.numWorkers-1) {
		return CorruptInputError{OffsetBits: w.in.positionBits(), Result: BlockTooMuchInput, Problem: "final block arrived before the final chunk"}
	}
	if res == BlockCaughtUp && w.p.lastSection(section) && w.index == w.p.numWorkers-1 {
		return CorruptInputError{OffsetBits: w.in.positionBits(), Result: BlockNotEnoughInput, Problem: "input exhausted without a final block"}
	}
	active := sinkFor(muxed, w.wide, w.narrow)
	if !active.finish() {
		return BlockFlushFail.toError(w.in.positionBits())
	}
	w.p.sendEvent(Event{Type: ChunkDecodedEvent, Worker: w.index, Section: section, State: w.state, PositionBits: w.in.positionBits()})

	// Phase 3: block for the true context and resolve.
	w.setState(ResolvingWorker)
	ctx, stoppedAt, ok := w.upstream.getContext()
	if !ok {
		return errAborted
	}
	defer giveContext(ctx)
	if stoppedAt != syncedAt {
		return CorruptInputError{
			OffsetBits: syncedAt,
			Result:     BlockInvalidParse,
			Problem:    "upstream worker stopped at a different block boundary than this worker synchronized on",
		}
	}

	var table [256]byte
	if muxed {
		table = w.mux.contextTable(ctx)
	}
	hand := takeContext()
	if muxed {
		for i, ch := range w.narrow.context() {
			hand[i] = table[ch]
		}
	} else {
		resolveWide(hand, w.wide.context(), ctx)
	}

	// Phase 4: hand off, then emit.
	w.setState(HandingOffWorker)
	okPut := w.downstream.putContext(hand, w.in.positionBits())
	giveContext(hand)
	if !okPut {
		return errAborted
	}
	w.p.sendEvent(Event{Type: ContextHandOffEvent, Worker: w.index, Section: section, State: w.state, PositionBits: w.in.positionBits()})

	w.setState(EmittingWorker)
	if err := w.emitChunk(seq, ctx, &table, muxed); err != nil {
		return err
	}
	if err := w.p.emit.finishSeq(seq); err != nil {
		return err
	}
	w.p.sendEvent(Event{
		Type: ChunkEmittedEvent, Worker: w.index, Section: section, State: w.state,
		PositionBits: w.in.positionBits(), OutputBytes: int64(len(w.wideOut) + len(w.narrowOut)),
	})
	return nil
}

// sync probes successive bit positions from startBits for a parseable
// block boundary.  On success the worker's own reader is left positioned at
// the boundary.
func (w *randomAccessWorker) sync(startBits int64) (int64, error) {
	pos, ok := syncScan(&w.in, &w.tables, &w.dummy, startBits, w.p.opts.maxBitsSkip, w.p.opts.minProbeBytes)
	if !ok {
		return 0, SyncError{Worker: w.index, StartBits: startBits, SkippedBits: w.p.opts.maxBitsSkip}
	}
	return pos, nil
}

// syncScan implements the two-stage synchronization protocol: a speculative
// parse at the candidate bit position must produce a minimum amount of
// output, and then a handful of successor blocks must decode cleanly, with
// a final block appearing only at the end of the input.  On success the
// reader is left positioned at the boundary.
func syncScan(in *bitReader, tables *huffTables, dummy *dummySink, startBits, maxSkipBits int64, minProbeBytes int) (int64, bool) {
	inputBits := bitsPerByte * int64(len(in.data))
	limit := startBits + maxSkipBits
	if limit > inputBits {
		limit = inputBits
	}

	for pos := startBits; pos < limit; pos++ {
		if !in.setPositionBits(pos) {
			break
		}
		in.ensure(1)
		if in.peek(1) != 0 {
			// A final block here would mean the stream ends inside
			// this chunk; not a plausible boundary.
			continue
		}

		probe := *in
		dummy.reset()
		res := doBlock[shouldFail](tables, &probe, dummy)
		if res != BlockSuccess && res != BlockLast {
			continue
		}
		if dummy.size() < minProbeBytes {
			continue
		}
		if validateSuccessors(tables, dummy, probe, res) {
			if !in.setPositionBits(pos) {
				break
			}
			return pos, true
		}
	}
	return 0, false
}

// validateSuccessors re-parses up to 8 blocks after a candidate boundary
// and requires that a final block appears if and only if the input is
// exhausted there.
func validateSuccessors(tables *huffTables, dummy *dummySink, cur bitReader, res BlockResult) bool {
	for k := 0; k < 8 && res == BlockSuccess; k++ {
		dummy.reset()
		res = doBlock[shouldSucceed](tables, &cur, dummy)
	}
	switch {
	case res.IsError():
		return false
	case res == BlockLast:
		return cur.availableBits() < bitsPerByte
	default:
		return true
	}
}

// emitChunk streams the chunk's staged output, resolving placeholders as it
// goes: symbols staged before the multiplex step resolve directly against
// the upstream context, bytes staged after it resolve through the compact
// lookup table.
func (w *randomAccessWorker) emitChunk(seq int, ctx []byte, table *[256]byte, muxed bool) error {
	scratch := takeScratch()
	defer giveScratch(scratch)
	buf := *scratch

	wide := w.wideOut
	for len(wide) > 0 {
		n := minInt(len(wide), len(buf))
		resolveWide(buf[:n], wide[:n], ctx)
		if err := w.p.emit.write(seq, buf[:n]); err != nil {
			return err
		}
		wide = wide[n:]
	}

	narrow := w.narrowOut
	if muxed {
		for len(narrow) > 0 {
			n := minInt(len(narrow), len(buf))
			for i, ch := range narrow[:n] {
				buf[i] = table[ch]
			}
			if err := w.p.emit.write(seq, buf[:n]); err != nil {
				return err
			}
			narrow = narrow[n:]
		}
	} else {
		assert.Assertf(len(narrow) == 0, "unmultiplexed chunk staged %d narrow bytes", len(narrow))
	}
	return nil
}

// }}}

// sinkFor returns the window a chunk's decode loop ended in.
func sinkFor(muxed bool, wide *window[uint16], narrow *window[uint8]) interface{ finish() bool } {
	if muxed {
		return narrow
	}
	return wide
}

// resolveWide maps symbolic symbols to bytes: plain ASCII passes through
// and each placeholder selects the context byte it stands for.
func resolveWide(dst []byte, src []uint16, ctx []byte) {
	for i, s := range src {
		if s < minBackref {
			dst[i] = byte(s)
		} else {
			dst[i] = ctx[s-minBackref]
		}
	}
}
