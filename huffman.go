package parflate

import (
	"math/bits"
)

// DEFLATE code universe sizes.  The physical litlen/offset counts include
// the two reserved symbols at the top of each alphabet.
const (
	numPrecodeSyms     = 19
	logicalNumLLCodes  = 286
	logicalNumDCodes   = 30
	physicalNumLLCodes = 288
	physicalNumDCodes  = 32

	maxPreCodewordLen = 7
	maxCodewordLen    = 15

	// Worst-case space for a lens[] overrun while expanding run-length
	// coded codeword lengths: 138 zeroes when one slot remained.
	maxLensOverrun = 137
)

// Primary table index widths and the worst-case flat table sizes
// (primary plus all sub-tables).
const (
	precodeTableBits = 7
	litlenTableBits  = 10
	offsetTableBits  = 8

	precodeTableSize = 128
	litlenTableSize  = 1334
	offsetTableSize  = 402
)

// Decode table entries are packed 32-bit words:
//
//	bits 0..7   codeword length in bits (for sub-table pointers: the
//	            sub-table index width; for sub-table entries: the
//	            codeword length minus the primary table width)
//	bits 8..29  payload
//	bit 30      payload is a literal byte
//	bit 31      payload is a sub-table pointer
const (
	entryLenMask  = 0xff
	entryShift    = 8
	entryLiteral  = uint32(1) << 30
	entrySubtable = uint32(1) << 31

	// Payload sub-fields, as seen after shifting the entry right by
	// entryShift.
	lengthBaseShift     = 8
	extraLengthBitsMask = 0xff
	offsetBaseMask      = 0xffff
	extraOffsetShift    = 16
)

// The order in which precode lengths are stored in a dynamic block header.
var precodeLensPermutation = [numPrecodeSyms]byte{16, 17, 18, 0, 8, 7, 9, 6, 10, 5, 11, 4, 12, 3, 13, 2, 14, 1, 15}

// RFC 1951 section 3.2.5: length code bases and extra bit counts for
// symbols 257..285.  Symbol 256 (end of block) is not in these tables; init
// gives it length base 0, which the decode loop uses as the end-of-block
// marker.
var lengthBase = [29]uint16{
	3, 4, 5, 6, 7, 8, 9, 10, 11, 13, 15, 17, 19, 23, 27, 31,
	35, 43, 51, 59, 67, 83, 99, 115, 131, 163, 195, 227, 258,
}

var lengthExtraBits = [29]byte{
	0, 0, 0, 0, 0, 0, 0, 0, 1, 1, 1, 1, 2, 2, 2, 2,
	3, 3, 3, 3, 4, 4, 4, 4, 5, 5, 5, 5, 0,
}

var offsetBase = [30]uint16{
	1, 2, 3, 4, 5, 7, 9, 13, 17, 25, 33, 49, 65, 97, 129, 193,
	257, 385, 513, 769, 1025, 1537, 2049, 3073, 4097, 6145,
	8193, 12289, 16385, 24577,
}

var offsetExtraBits = [30]byte{
	0, 0, 0, 0, 1, 1, 2, 2, 3, 3, 4, 4, 5, 5, 6, 6,
	7, 7, 8, 8, 9, 9, 10, 10, 11, 11, 12, 12, 13, 13,
}

// Per-symbol payloads, already positioned at entryShift with flag bits set.
// The table builder only adds the codeword length.
var (
	precodeResults [numPrecodeSyms]uint32
	litlenResults  [physicalNumLLCodes]uint32
	offsetResults  [physicalNumDCodes]uint32
)

func init() {
	for sym := 0; sym < numPrecodeSyms; sym++ {
		precodeResults[sym] = uint32(sym) << entryShift
	}

	for sym := 0; sym < 256; sym++ {
		litlenResults[sym] = entryLiteral | uint32(sym)<<entryShift
	}
	// End of block decodes as length base 0.
	litlenResults[256] = 0
	for sym := 257; sym < 257+len(lengthBase); sym++ {
		base := uint32(lengthBase[sym-257])
		extra := uint32(lengthExtraBits[sym-257])
		litlenResults[sym] = (base<<lengthBaseShift | extra) << entryShift
	}
	// Symbols 286 and 287 are reserved; if a broken dynamic code assigns
	// them, they decode as end of block and the parse fails downstream.
	litlenResults[286] = 0
	litlenResults[287] = 0

	for sym := 0; sym < len(offsetBase); sym++ {
		base := uint32(offsetBase[sym])
		extra := uint32(offsetExtraBits[sym])
		offsetResults[sym] = (extra<<extraOffsetShift | base) << entryShift
	}
	// Reserved offset symbols decode to an out-of-range offset, which the
	// sinks reject as an invalid match.
	offsetResults[30] = uint32(contextSize+1) << entryShift
	offsetResults[31] = uint32(contextSize+1) << entryShift
}

func makeEntry(result uint32, length uint) uint32 {
	return result | uint32(length)
}

// huffTables holds the flat decode tables for one decompressor, plus the
// scratch arrays used while building them.
type huffTables struct {
	precodeLens  [numPrecodeSyms]byte
	lens         [physicalNumLLCodes + physicalNumDCodes + maxLensOverrun]byte
	precodeTable [precodeTableSize]uint32
	litlenTable  [litlenTableSize]uint32
	offsetTable  [offsetTableSize]uint32

	lenCounts  [maxCodewordLen + 1]uint16
	offsets    [maxCodewordLen + 2]uint16
	sortedSyms [physicalNumLLCodes]uint16
}

func (ht *huffTables) buildPrecodeTable() bool {
	return ht.buildDecodeTable(ht.precodeTable[:], ht.precodeLens[:], precodeResults[:], precodeTableBits, maxPreCodewordLen)
}

func (ht *huffTables) buildLitlenTable(numLitlenSyms int) bool {
	return ht.buildDecodeTable(ht.litlenTable[:], ht.lens[:numLitlenSyms], litlenResults[:], litlenTableBits, maxCodewordLen)
}

func (ht *huffTables) buildOffsetTable(numLitlenSyms, numOffsetSyms int) bool {
	return ht.buildDecodeTable(ht.offsetTable[:], ht.lens[numLitlenSyms:numLitlenSyms+numOffsetSyms], offsetResults[:], offsetTableBits, maxCodewordLen)
}

// buildDecodeTable fills table with the canonical Huffman decode table for
// the given per-symbol codeword lengths.  The primary table spans
// 1<<tableBits entries indexed by the next tableBits of input (bit-reversed
// codewords, i.e. raw little-endian stream bits); codewords longer than
// tableBits route through sub-tables appended after the primary table.
//
// It returns false when the lengths describe an over-subscribed code, or an
// incomplete code other than the two degenerate shapes DEFLATE permits
// (the empty code, and a single used symbol with a 1-bit codeword).
func (ht *huffTables) buildDecodeTable(table []uint32, lens []byte, results []uint32, tableBits, maxLen int) bool {
	lenCounts := ht.lenCounts[:maxLen+1]
	for i := range lenCounts {
		lenCounts[i] = 0
	}
	for _, l := range lens {
		lenCounts[l]++
	}

	// Sort the used symbols by (codeword length, symbol value).
	offsets := ht.offsets[:maxLen+2]
	offsets[0] = 0
	for l := 0; l <= maxLen; l++ {
		offsets[l+1] = offsets[l] + lenCounts[l]
	}
	for sym, l := range lens {
		ht.sortedSyms[offsets[l]] = uint16(sym)
		offsets[l]++
	}
	// Skip the unused symbols, which sorted to the front.
	sortedSyms := ht.sortedSyms[lenCounts[0]:len(lens)]

	// Check the codespace: the remainder starts at 1, doubles per length,
	// and pays out one slot per codeword.  A negative running remainder
	// means the code is over-subscribed.
	remainder := 1
	for l := 1; l <= maxLen; l++ {
		remainder <<= 1
		remainder -= int(lenCounts[l])
		if remainder < 0 {
			return false
		}
	}

	if remainder != 0 {
		// Incomplete code.  DEFLATE tolerates exactly two degenerate
		// shapes: no used symbols at all, and a single used symbol
		// with a 1-bit codeword.  Either way the primary table is
		// filled with a defaulted 1-bit entry so that lookups stay
		// in-bounds.
		var sym uint16
		switch {
		case remainder == 1<<maxLen:
			sym = 0
		case remainder == 1<<(maxLen-1) && lenCounts[1] == 1:
			sym = sortedSyms[0]
		default:
			return false
		}
		entry := makeEntry(results[sym], 1)
		for i := 0; i < 1<<tableBits; i++ {
			table[i] = entry
		}
		return true
	}

	codeword := uint32(0) // canonical codeword, MSB-first
	curLen := 1
	for lenCounts[curLen] == 0 {
		curLen++
	}

	nextSubtable := 1 << tableBits
	subtablePrefix := ^uint32(0)
	subtableStart := 0
	subtableBits := 0

	for _, sym := range sortedSyms {
		for lenCounts[curLen] == 0 {
			curLen++
			codeword <<= 1
		}
		lenCounts[curLen]--

		reversed := bits.Reverse32(codeword) >> (32 - curLen)

		if curLen <= tableBits {
			entry := makeEntry(results[sym], uint(curLen))
			stride := 1 << curLen
			for i := int(reversed); i < 1<<tableBits; i += stride {
				table[i] = entry
			}
		} else {
			prefix := reversed & (1<<tableBits - 1)
			if prefix != subtablePrefix {
				subtablePrefix = prefix
				subtableStart = nextSubtable

				// Size the sub-table: the smallest width that
				// the codewords still to come under this
				// prefix cannot overflow.  lenCounts holds
				// the not-yet-emitted codewords per length,
				// current symbol included via the +1.
				subtableBits = curLen - tableBits
				left := 1<<subtableBits - 1 - int(lenCounts[curLen])
				for left > 0 && tableBits+subtableBits < maxLen {
					subtableBits++
					left = left<<1 - int(lenCounts[tableBits+subtableBits])
				}
				nextSubtable = subtableStart + 1<<subtableBits

				table[prefix] = entrySubtable | uint32(subtableStart)<<entryShift | uint32(subtableBits)
			}

			entry := makeEntry(results[sym], uint(curLen-tableBits))
			stride := 1 << (curLen - tableBits)
			for i := int(reversed >> tableBits); i < 1<<subtableBits; i += stride {
				table[subtableStart+i] = entry
			}
		}

		codeword++
	}

	return true
}

// Fixed (static) Huffman tables, RFC 1951 section 3.2.6.  Built once at
// startup; shared read-only by every worker.
var fixedTables huffTables

func init() {
	ht := &fixedTables
	for i := 0; i < 144; i++ {
		ht.lens[i] = 8
	}
	for i := 144; i < 256; i++ {
		ht.lens[i] = 9
	}
	for i := 256; i < 280; i++ {
		ht.lens[i] = 7
	}
	for i := 280; i < physicalNumLLCodes; i++ {
		ht.lens[i] = 8
	}
	for i := physicalNumLLCodes; i < physicalNumLLCodes+physicalNumDCodes; i++ {
		ht.lens[i] = 5
	}
	if !ht.buildLitlenTable(physicalNumLLCodes) {
		panic("parflate: failed to build fixed literal/length decode table")
	}
	if !ht.buildOffsetTable(physicalNumLLCodes, physicalNumDCodes) {
		panic("parflate: failed to build fixed offset decode table")
	}
}
