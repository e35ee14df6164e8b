package parflate

// sink is the write target driven by the block parser.  All five
// instantiations (dummy, narrow window, symbolic window, multiplexed narrow
// window, and the emitter-backed window of the first worker) share this
// contract:
//
//	push       appends one literal; false means the validity predicate
//	           failed (non-ASCII literal)
//	copyMatch  replays length bytes from offset back; false means the
//	           offset is out of range
//	copyBytes  appends n byte-aligned bytes from the input stream
//	           (stored blocks); false means the bytes are not ASCII
//	endBlock   is called at each end-of-block; false signals a parse
//	           invariant violation
//	available  is the room left before a flush is needed
//	flush      frees space, returning the number of slots freed; zero
//	           means the sink is saturated
type sink interface {
	push(ch byte) bool
	copyMatch(length, offset uint32) bool
	copyBytes(in *bitReader, n int) bool
	endBlock(in *bitReader) bool
	available() int
	flush() int
}

// dummySink discards output while tracking how much of it there was.  It is
// used to probe whether a bit position parses as a valid block boundary, so
// it still enforces the ASCII and match-range predicates.
type dummySink struct {
	count int
}

func (d *dummySink) reset() {
	d.count = 0
}

func (d *dummySink) size() int {
	return d.count
}

func (d *dummySink) push(ch byte) bool {
	d.count++
	return ch >= minASCII && ch <= maxASCII
}

func (d *dummySink) copyMatch(length, offset uint32) bool {
	d.count += int(length)
	return offset >= 1 && offset <= contextSize
}

func (d *dummySink) copyBytes(in *bitReader, n int) bool {
	d.count += n
	if !in.checkASCII(n) {
		return false
	}
	_, ok := in.takeBytes(n)
	return ok
}

func (d *dummySink) endBlock(in *bitReader) bool {
	return true
}

func (d *dummySink) available() int {
	return int(^uint(0) >> 1)
}

func (d *dummySink) flush() int {
	return d.count
}

var _ sink = (*dummySink)(nil)
