package parflate

import (
	"testing"

	"github.com/chronos-tachyon/huffman"
)

// oracleDecode mimics the DEFLATE read loop against an independent
// canonical Huffman decoder: feed it raw little-endian stream bits, one
// codeword length at a time, until it recognizes a symbol.
func oracleDecode(dec *huffman.Decoder, pattern uint32) (int, uint) {
	minSize := dec.MinSize()
	maxSize := dec.MaxSize()
	for n := minSize; n <= maxSize; n++ {
		hc := huffman.MakeCode(n, pattern&uint32(1<<n-1))
		symbol, newMin, newMax := dec.Decode(hc)
		if symbol >= 0 {
			return int(symbol), uint(n)
		}
		if newMax == 0 {
			break
		}
		if newMin > n {
			n = newMin - 1
		}
	}
	return -1, 0
}

// tableDecode walks a packed decode table the way the block parser does and
// reports the consumed codeword length plus the raw entry.
func tableDecode(table []uint32, tableBits uint, pattern uint32) (entry uint32, length uint) {
	entry = table[pattern&uint32(1<<tableBits-1)]
	if entry&entrySubtable != 0 {
		sub := pattern >> tableBits
		idx := (entry>>entryShift)&0xffff + sub&uint32(1<<(entry&entryLenMask)-1)
		entry = table[idx]
		return entry, tableBits + uint(entry&entryLenMask)
	}
	return entry, uint(entry & entryLenMask)
}

// litlenSymbolOf recovers the symbol a litlen entry was built from.  The
// length bases are distinct, so the reverse mapping is unambiguous; payload
// zero is the end-of-block marker shared with the two reserved symbols.
func litlenSymbolOf(entry uint32) int {
	if entry&entryLiteral != 0 {
		return int((entry >> entryShift) & 0xff)
	}
	payload := entry >> entryShift
	if payload == 0 {
		return 256
	}
	base := uint16(payload >> lengthBaseShift)
	for sym, b := range lengthBase {
		if b == base {
			return 257 + sym
		}
	}
	return -1
}

func TestFixedLitlenTableMatchesOracle(t *testing.T) {
	lens := fixedTables.lens[:physicalNumLLCodes]

	var dec huffman.Decoder
	if err := dec.Init(lens); err != nil {
		t.Fatalf("oracle decoder Init failed: %v", err)
	}

	for pattern := uint32(0); pattern < 1<<maxCodewordLen; pattern++ {
		entry, length := tableDecode(fixedTables.litlenTable[:], litlenTableBits, pattern)
		oracleSym, oracleLen := oracleDecode(&dec, pattern)
		if oracleSym < 0 {
			t.Fatalf("pattern %#06x: oracle failed to decode", pattern)
		}
		if oracleSym >= 286 {
			// Reserved symbols share the end-of-block payload.
			continue
		}
		sym := litlenSymbolOf(entry)
		if sym != oracleSym || length != oracleLen {
			t.Fatalf("pattern %#06x: table gives symbol %d at %d bits, oracle gives %d at %d bits",
				pattern, sym, length, oracleSym, oracleLen)
		}
	}
}

func TestFixedOffsetTableMatchesOracle(t *testing.T) {
	lens := fixedTables.lens[physicalNumLLCodes : physicalNumLLCodes+physicalNumDCodes]

	var dec huffman.Decoder
	if err := dec.Init(lens); err != nil {
		t.Fatalf("oracle decoder Init failed: %v", err)
	}

	for pattern := uint32(0); pattern < 1<<maxCodewordLen; pattern++ {
		entry, length := tableDecode(fixedTables.offsetTable[:], offsetTableBits, pattern)
		oracleSym, oracleLen := oracleDecode(&dec, pattern)
		if oracleSym < 0 {
			t.Fatalf("pattern %#06x: oracle failed to decode", pattern)
		}
		if oracleSym >= 30 {
			// Reserved symbols carry the out-of-range sentinel.
			continue
		}
		payload := entry >> entryShift
		base := uint16(payload & offsetBaseMask)
		if base != offsetBase[oracleSym] || length != oracleLen {
			t.Fatalf("pattern %#06x: table gives base %d at %d bits, oracle gives symbol %d at %d bits",
				pattern, base, length, oracleSym, oracleLen)
		}
	}
}

func TestBuildDecodeTableSubtables(t *testing.T) {
	// A deliberately skewed litlen code: a few short codewords and a
	// cluster of long ones, so that codewords longer than the 10-bit
	// primary width exercise the sub-table path.
	var ht huffTables
	lens := ht.lens[:physicalNumLLCodes]
	for i := range lens {
		lens[i] = 0
	}
	lens['a'] = 1
	lens['b'] = 2
	lens['c'] = 3
	lens[256] = 4
	// 255 symbols at 12 bits plus 2 at 13 complete the code:
	// 1/2 + 1/4 + 1/8 + 1/16 + 255/4096 + 2/8192 = 1.
	long := 0
	for sym := 0; sym < physicalNumLLCodes && long < 257; sym++ {
		if sym == 'a' || sym == 'b' || sym == 'c' || sym == 256 {
			continue
		}
		if long < 255 {
			lens[sym] = 12
		} else {
			lens[sym] = 13
		}
		long++
	}

	if !ht.buildLitlenTable(physicalNumLLCodes) {
		t.Fatal("buildLitlenTable rejected a complete code")
	}

	var dec huffman.Decoder
	if err := dec.Init(lens); err != nil {
		t.Fatalf("oracle decoder Init failed: %v", err)
	}

	for pattern := uint32(0); pattern < 1<<maxCodewordLen; pattern++ {
		entry, length := tableDecode(ht.litlenTable[:], litlenTableBits, pattern)
		oracleSym, oracleLen := oracleDecode(&dec, pattern)
		if oracleSym < 0 {
			t.Fatalf("pattern %#06x: oracle failed to decode", pattern)
		}
		sym := litlenSymbolOf(entry)
		if sym != oracleSym || length != oracleLen {
			t.Fatalf("pattern %#06x: table gives symbol %d at %d bits, oracle gives %d at %d bits",
				pattern, sym, length, oracleSym, oracleLen)
		}
	}
}

func TestBuildDecodeTableRejectsOversubscribed(t *testing.T) {
	var ht huffTables
	copy(ht.precodeLens[:], []byte{1, 1, 1})
	if ht.buildPrecodeTable() {
		t.Error("buildPrecodeTable accepted an over-subscribed code")
	}
}

func TestBuildDecodeTableRejectsIncomplete(t *testing.T) {
	var ht huffTables
	for i := range ht.precodeLens {
		ht.precodeLens[i] = 0
	}
	ht.precodeLens[4] = 2
	if ht.buildPrecodeTable() {
		t.Error("buildPrecodeTable accepted a non-degenerate incomplete code")
	}
}

func TestBuildDecodeTableDegenerate(t *testing.T) {
	var ht huffTables

	// Empty code.
	for i := range ht.precodeLens {
		ht.precodeLens[i] = 0
	}
	if !ht.buildPrecodeTable() {
		t.Error("buildPrecodeTable rejected the empty code")
	}

	// A single symbol with a 1-bit codeword.
	ht.precodeLens[7] = 1
	if !ht.buildPrecodeTable() {
		t.Fatal("buildPrecodeTable rejected a 1-symbol code")
	}
	for i := 0; i < 1<<precodeTableBits; i++ {
		entry := ht.precodeTable[i]
		if sym := entry >> entryShift; sym != 7 {
			t.Fatalf("slot %d: symbol %d, want 7", i, sym)
		}
		if length := entry & entryLenMask; length != 1 {
			t.Fatalf("slot %d: length %d, want 1", i, length)
		}
	}
}
