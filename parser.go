package parflate

import (
	"github.com/chronos-tachyon/assert"
)

// validator is the compile-time tag that tells doBlock how to treat "might
// this be a valid parse?" checks.  shouldSucceed reports violations as
// errors, shouldFail aborts at the first violation (speculative
// block-boundary probing), and mustSucceed asserts, for tests and
// diagnostics.  Instantiating doBlock with a concrete tag lets the compiler
// specialize each variant.
type validator interface {
	failIf(cond bool) bool
	succeedIf(cond bool) bool
}

type shouldSucceed struct{}

func (shouldSucceed) failIf(cond bool) bool    { return cond }
func (shouldSucceed) succeedIf(cond bool) bool { return cond }

type shouldFail struct{}

func (shouldFail) failIf(cond bool) bool    { return cond }
func (shouldFail) succeedIf(cond bool) bool { return cond }

type mustSucceed struct{}

func (mustSucceed) failIf(cond bool) bool {
	assert.Assert(!cond, "parse invariant violated")
	return cond
}

func (mustSucceed) succeedIf(cond bool) bool {
	assert.Assert(cond, "parse invariant violated")
	return cond
}

var (
	_ validator = shouldSucceed{}
	_ validator = shouldFail{}
	_ validator = mustSucceed{}
)

// doBlock consumes exactly one DEFLATE block from in and drives the decoded
// output into out.  On clean exits it returns BlockSuccess or BlockLast;
// BlockFlushFail means the sink could not make room, and anything else is
// a parse failure.
func doBlock[V validator](ht *huffTables, in *bitReader, out sink) BlockResult {
	var v V

	// BFINAL (1) + BTYPE (2) + the HLIT/HDIST/HCLEN prefix (14).
	if !in.ensure(17) {
		return BlockNotEnoughInput
	}

	success := BlockSuccess
	if in.popBits(1) != 0 {
		success = BlockLast
	}

	var tables *huffTables
	switch in.popBits(2) {
	case 0: // stored
		if v.failIf(!doStored(in, out)) {
			return BlockInvalidStored
		}
		if !v.succeedIf(out.endBlock(in)) {
			return BlockInvalidParse
		}
		return success

	case 1: // fixed Huffman
		tables = &fixedTables

	case 2: // dynamic Huffman
		if v.failIf(!prepareDynamic[V](ht, in)) {
			return BlockInvalidDynamicHT
		}
		tables = ht

	default:
		return BlockInvalidType
	}

	inputBits := bitsPerByte * int64(len(in.data))
	for {
		in.ensure(15) // longest litlen codeword

		// Consuming bits past the end of the input means the block is
		// truncated; the zero fill keeps the lookahead itself safe,
		// but a symbol actually built from invented bits is not a
		// parse.  positionBits counts consumed bits only, so a valid
		// stream never trips this.
		if in.positionBits() > inputBits {
			return BlockNotEnoughInput
		}

		entry := tables.litlenTable[in.peek(litlenTableBits)]
		if entry&entrySubtable != 0 {
			in.consume(litlenTableBits)
			entry = tables.litlenTable[(entry>>entryShift)&0xffff+in.peek(uint(entry&entryLenMask))]
		}
		in.consume(uint(entry & entryLenMask))

		if entry&entryLiteral != 0 {
			if out.available() == 0 {
				if v.failIf(out.flush() == 0) {
					return BlockFlushFail
				}
			}
			if v.failIf(!out.push(byte(entry >> entryShift))) {
				return BlockInvalidLiteral
			}
			continue
		}

		// Match or end of block.
		payload := entry >> entryShift
		in.ensure(maxEnsure)

		length := payload>>lengthBaseShift + in.popBits(uint(payload&extraLengthBitsMask))
		if length == 0 {
			// End of block (length base 0).
			if !v.succeedIf(out.endBlock(in)) {
				return BlockInvalidParse
			}
			return success
		}
		if int(length) > out.available() {
			if v.failIf(out.flush() == 0) {
				return BlockFlushFail
			}
		}

		entry = tables.offsetTable[in.peek(offsetTableBits)]
		if entry&entrySubtable != 0 {
			in.consume(offsetTableBits)
			entry = tables.offsetTable[(entry>>entryShift)&0xffff+in.peek(uint(entry&entryLenMask))]
		}
		in.consume(uint(entry & entryLenMask))
		payload = entry >> entryShift

		offset := payload&offsetBaseMask + in.popBits(uint(payload>>extraOffsetShift))

		if v.failIf(!out.copyMatch(length, offset)) {
			return BlockInvalidMatch
		}
	}
}

func doStored(in *bitReader, out sink) bool {
	in.alignToByte()

	if in.available() < 4 {
		return false
	}

	length, _ := in.popLE16()
	nlength, _ := in.popLE16()
	if length != ^nlength {
		return false
	}
	if int(length) > in.available() {
		return false
	}

	return out.copyBytes(in, int(length))
}

// prepareDynamic reads a dynamic block's code descriptions and builds the
// precode, literal/length, and offset decode tables into ht.
func prepareDynamic[V validator](ht *huffTables, in *bitReader) bool {
	var v V

	numLitlenSyms := int(in.popBits(5)) + 257
	numOffsetSyms := int(in.popBits(5)) + 1
	numExplicitPrecodeLens := int(in.popBits(4)) + 4

	in.ensure(maxEnsure)
	for i := 0; i < numExplicitPrecodeLens; i++ {
		if i == 16 {
			// The refill above already covers all 19 * 3 = 57
			// bits; topping up again here is harmless.
			in.ensure(maxEnsure)
		}
		ht.precodeLens[precodeLensPermutation[i]] = byte(in.popBits(3))
	}
	for i := numExplicitPrecodeLens; i < numPrecodeSyms; i++ {
		ht.precodeLens[precodeLensPermutation[i]] = 0
	}

	if v.failIf(!ht.buildPrecodeTable()) {
		return false
	}

	// Expand the literal/length and offset codeword lengths.  Repeat runs
	// may overshoot the total by up to 137 positions; lens is oversized
	// accordingly, so no bounds check is needed inside the loop.
	total := numLitlenSyms + numOffsetSyms
	inputBits := bitsPerByte * int64(len(in.data))
	for i := 0; i < total; {
		in.ensure(maxPreCodewordLen + 7)
		if in.positionBits() > inputBits {
			return false
		}

		entry := ht.precodeTable[in.peek(precodeTableBits)]
		in.consume(uint(entry & entryLenMask))
		presym := int(entry >> entryShift)

		if presym < 16 {
			ht.lens[i] = byte(presym)
			i++
			continue
		}

		switch presym {
		case 16:
			// Repeat the previous length 3..6 times.
			if v.failIf(i == 0) {
				return false
			}
			rep := ht.lens[i-1]
			count := 3 + int(in.popBits(2))
			for j := 0; j < count; j++ {
				ht.lens[i+j] = rep
			}
			i += count

		case 17:
			// Repeat zero 3..10 times.
			count := 3 + int(in.popBits(3))
			for j := 0; j < count; j++ {
				ht.lens[i+j] = 0
			}
			i += count

		default:
			// Repeat zero 11..138 times.
			count := 11 + int(in.popBits(7))
			for j := 0; j < count; j++ {
				ht.lens[i+j] = 0
			}
			i += count
		}
	}

	if v.failIf(!ht.buildOffsetTable(numLitlenSyms, numOffsetSyms)) {
		return false
	}
	if v.failIf(!ht.buildLitlenTable(numLitlenSyms)) {
		return false
	}
	return true
}
