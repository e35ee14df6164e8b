package parflate

// backrefMultiplexer compacts the 16-bit placeholder symbols of a symbolic
// window into the byte values above '~', so that decoding can continue in a
// plain 8-bit window.  The byte range ['~'+1 .. 255] provides 129 compact
// codes; compaction fails if more distinct placeholders than that are still
// live in the context.
type backrefMultiplexer struct {
	lkt       [256]uint16 // compact code -> context offset
	allocated int         // number of compact codes handed out
}

func (m *backrefMultiplexer) reset() {
	m.allocated = 0
	for i := range m.lkt {
		m.lkt[i] = 0
	}
}

// compress rewrites the wide window's 32 KiB context into the narrow
// window's context area, mapping each live placeholder to a compact code.
// On success the narrow window is ready to continue the decode; on failure
// (more than 129 live placeholders) both windows are left usable and the
// symbolic decode can carry on.
func (m *backrefMultiplexer) compress(wide *window[uint16], narrow *window[uint8]) bool {
	m.reset()

	nextSymbol := int(minBackref)
	ctx := wide.context()
	out := narrow.buf[:contextSize]

	for i, from := range ctx {
		var to byte
		if from < minBackref {
			// Already resolved ASCII.
			to = byte(from)
		} else {
			offset := from - minBackref
			// Linear scan for an already-allocated compact code.
			for code := int(minBackref); code < nextSymbol; code++ {
				if m.lkt[code] == offset {
					to = byte(code)
					break
				}
			}
			if to == 0 {
				if nextSymbol > 0xff {
					return false
				}
				to = byte(nextSymbol)
				m.lkt[nextSymbol] = offset
				nextSymbol++
			}
		}
		out[i] = to
	}

	m.allocated = nextSymbol
	narrow.next = contextSize
	narrow.mark = contextSize
	return true
}

// contextTable combines the compact-code map with the true upstream context
// into a single 256-entry byte lookup table: plain ASCII maps to itself and
// each compact code maps to the context byte it stood for.
func (m *backrefMultiplexer) contextTable(upstream []byte) (table [256]byte) {
	for i := 0; i < int(minBackref); i++ {
		table[i] = byte(i)
	}
	for i := int(minBackref); i < m.allocated; i++ {
		table[i] = upstream[m.lkt[i]]
	}
	return table
}
