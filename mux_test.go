package parflate

import (
	"testing"
)

func symbolicPair() (*window[uint16], *window[uint8]) {
	wide := newWindow[uint16](MinWindowBits, func(run []uint16) bool { return true })
	narrow := newWindow[uint8](MinWindowBits, func(run []byte) bool { return true })
	initSymbolicContext(wide)
	return wide, narrow
}

func TestMultiplexerCompress(t *testing.T) {
	wide, narrow := symbolicPair()

	// Push one window's worth of mixed content: mostly literals, with a
	// handful of distinct placeholders carried forward by matches.
	for i := 0; i < contextSize-6; i++ {
		if !wide.push(byte('a' + i%26)) {
			t.Fatal("push failed")
		}
	}
	wide.buf[wide.next] = minBackref + 17
	wide.buf[wide.next+1] = minBackref + 17
	wide.buf[wide.next+2] = minBackref + 9000
	wide.buf[wide.next+3] = minBackref + 42
	wide.buf[wide.next+4] = minBackref + 9000
	wide.buf[wide.next+5] = 'z'
	wide.next += 6

	var mux backrefMultiplexer
	if !mux.compress(wide, narrow) {
		t.Fatal("compress failed with 3 live placeholders")
	}

	ctx := wide.context()
	nctx := narrow.buf[:contextSize]
	codes := map[byte]uint16{}
	for i, from := range ctx {
		to := nctx[i]
		if from < minBackref {
			if to != byte(from) {
				t.Fatalf("slot %d: resolved symbol %d compacted to %d", i, from, to)
			}
			continue
		}
		if to < byte(minBackref) {
			t.Fatalf("slot %d: placeholder %d compacted to ASCII %d", i, from, to)
		}
		offset := from - minBackref
		if prev, ok := codes[to]; ok && prev != offset {
			t.Fatalf("compact code %d maps to offsets %d and %d", to, prev, offset)
		}
		codes[to] = offset
		if mux.lkt[to] != offset {
			t.Fatalf("lkt[%d] = %d, want %d", to, mux.lkt[to], offset)
		}
	}
	if len(codes) != 3 {
		t.Errorf("allocated %d compact codes, want 3", len(codes))
	}

	// The combined lookup table resolves each compact code to the
	// upstream context byte it stood for.
	upstream := make([]byte, contextSize)
	for i := range upstream {
		upstream[i] = byte('A' + i%26)
	}
	table := mux.contextTable(upstream)
	for code, offset := range codes {
		if table[code] != upstream[offset] {
			t.Errorf("table[%d] = %q, want upstream[%d] = %q", code, table[code], offset, upstream[offset])
		}
	}
	for i := 0; i < int(minBackref); i++ {
		if table[i] != byte(i) {
			t.Errorf("table[%d] = %d, want identity", i, table[i])
		}
	}
}

func TestMultiplexerBudget(t *testing.T) {
	wide, narrow := symbolicPair()

	// 129 distinct placeholders fit exactly...
	for i := 0; i < 129; i++ {
		wide.buf[wide.next] = minBackref + uint16(100+i)
		wide.next++
	}
	for wide.next-contextSize < contextSize {
		wide.push('m')
		if wide.available() == 0 {
			t.Fatal("window filled before the context was populated")
		}
	}

	var mux backrefMultiplexer
	if !mux.compress(wide, narrow) {
		t.Fatal("compress failed with exactly 129 live placeholders")
	}

	// ...and one more does not.
	wide2, narrow2 := symbolicPair()
	for i := 0; i < 130; i++ {
		wide2.buf[wide2.next] = minBackref + uint16(100+i)
		wide2.next++
	}
	for wide2.next-contextSize < contextSize {
		wide2.push('m')
	}
	if mux.compress(wide2, narrow2) {
		t.Error("compress succeeded with 130 live placeholders")
	}
}
