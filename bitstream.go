package parflate

import (
	"encoding/binary"

	"github.com/chronos-tachyon/assert"
)

// bitReader exposes a word-wide buffered view of a memory-backed compressed
// byte stream.  Bits are dequeued in little-endian order: the first bit of
// the stream is the least significant bit of the buffer.
//
// Reads past the end of the input do not fail immediately.  Instead they
// fill the buffer with zero bits and count the missing bytes in overrun, so
// that speculative lookahead during Huffman decoding stays harmless until a
// caller decides whether the parse can be trusted.
type bitReader struct {
	data    []byte
	pos     int    // index of the next unread byte
	bits    uint64 // right-aligned buffered bits
	count   uint   // number of valid bits in bits
	overrun int    // fake zero bytes mixed into the buffer
}

func newBitReader(data []byte) bitReader {
	return bitReader{data: data}
}

// ensure tops the buffer up to at least n bits, n <= maxEnsure.  It returns
// false when the input was already fully consumed and fewer than n real
// bits remain; the buffer is still zero-padded so that subsequent peeks
// behave deterministically.
func (r *bitReader) ensure(n uint) bool {
	assert.Assertf(n <= maxEnsure, "ensure %d > limit %d", n, maxEnsure)
	if r.count >= n {
		return true
	}
	if r.pos >= len(r.data) {
		pad := (bitsPerWord - r.count) >> 3
		r.count += pad * bitsPerByte
		r.overrun += int(pad)
		return false
	}
	if len(r.data)-r.pos >= 8 {
		r.bits |= binary.LittleEndian.Uint64(r.data[r.pos:]) << r.count
		r.pos += int((bitsPerWord - r.count) >> 3)
		r.count += (bitsPerWord - r.count) &^ 7
		return true
	}
	for r.count <= bitsPerWord-bitsPerByte {
		if r.pos < len(r.data) {
			r.bits |= uint64(r.data[r.pos]) << r.count
			r.pos++
		} else {
			r.overrun++
		}
		r.count += bitsPerByte
	}
	return true
}

// peek returns the next n buffered bits without consuming them.  Bits
// beyond count are either zero fill or, after a word-wide refill, the
// leading bits of the next unread byte.
func (r *bitReader) peek(n uint) uint32 {
	return uint32(r.bits & makeMask64(n))
}

// consume discards the next n bits from the buffer.
func (r *bitReader) consume(n uint) {
	if n > r.count {
		// Can only happen when a parse ran off the end of the input;
		// the zero fill already made the result deterministic.
		r.bits = 0
		r.count = 0
		return
	}
	r.bits >>= n
	r.count -= n
}

// popBits is peek followed by consume.
func (r *bitReader) popBits(n uint) uint32 {
	out := r.peek(n)
	r.consume(n)
	return out
}

// alignToByte discards up to 7 pending bits and rewinds the byte pointer
// over any whole bytes still sitting in the buffer, preserving byte
// alignment of the underlying stream.
func (r *bitReader) alignToByte() {
	whole := int(r.count >> 3)
	back := whole - r.overrun
	if back > 0 {
		r.pos -= back
	}
	r.bits = 0
	r.count = 0
	r.overrun = 0
}

// popLE16 reads a byte-aligned little-endian 16-bit word.  The caller must
// have called alignToByte first.
func (r *bitReader) popLE16() (uint16, bool) {
	assert.Assertf(r.count == 0, "popLE16 with %d buffered bits", r.count)
	if len(r.data)-r.pos < 2 {
		return 0, false
	}
	out := binary.LittleEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return out, true
}

// takeBytes returns a view of the next n byte-aligned input bytes and
// advances past them.
func (r *bitReader) takeBytes(n int) ([]byte, bool) {
	assert.Assertf(r.count == 0, "takeBytes with %d buffered bits", r.count)
	if n < 0 || len(r.data)-r.pos < n {
		return nil, false
	}
	out := r.data[r.pos : r.pos+n]
	r.pos += n
	return out, true
}

// checkASCII reports whether the next n byte-aligned input bytes all lie in
// ['\t'..'~'].
func (r *bitReader) checkASCII(n int) bool {
	if n < 0 || len(r.data)-r.pos < n {
		return false
	}
	for _, ch := range r.data[r.pos : r.pos+n] {
		if ch < minASCII || ch > maxASCII {
			return false
		}
	}
	return true
}

// available returns the number of unread whole bytes.  Call alignToByte
// first for an exact reading, or use availableBits.
func (r *bitReader) available() int {
	return len(r.data) - r.pos
}

func (r *bitReader) availableBits() int {
	return bitsPerByte*r.available() + int(r.count) - bitsPerByte*r.overrun
}

// positionBits returns the stream position in bits.
func (r *bitReader) positionBits() int64 {
	return bitsPerByte*int64(r.pos) - int64(r.count) + bitsPerByte*int64(r.overrun)
}

// setPositionBits reseeks the reader to an arbitrary bit offset, clearing
// the buffer.  It returns false when the offset lies outside the input.
func (r *bitReader) setPositionBits(p int64) bool {
	if p < 0 || p >= bitsPerByte*int64(len(r.data)) {
		return false
	}
	r.pos = int(p >> 3)
	r.bits = 0
	r.count = 0
	r.overrun = 0
	if rem := uint(p & 7); rem != 0 {
		r.ensure(bitsPerByte)
		r.consume(rem)
	}
	return true
}
