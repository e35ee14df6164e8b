package parflate

import (
	"bytes"
	"encoding/binary"
	"io"
	"time"
)

// Gzip framing constants, RFC 1952.
const (
	gzipID1      = 0x1f
	gzipID2      = 0x8b
	gzipCM       = 0x08
	gzipMinBytes = 10 + 8
	gzipFooter   = 8

	gzipFTEXT    = 0x01
	gzipFHCRC    = 0x02
	gzipFEXTRA   = 0x04
	gzipFNAME    = 0x08
	gzipFCOMMENT = 0x10
	gzipReserved = 0xe0
)

// ParseGzipHeader parses the gzip wrapper at the front of data.  It returns
// the parsed header fields and the offset at which the DEFLATE payload
// starts.  Only single-member streams are supported; the 8-byte footer is
// assumed to be the last thing in data.
func ParseGzipHeader(data []byte) (Header, int, error) {
	var header Header

	if len(data) < gzipMinBytes {
		return header, 0, BadHeaderError{Problem: "input too short to be a gzip stream"}
	}
	if data[0] != gzipID1 || data[1] != gzipID2 {
		return header, 0, BadHeaderError{Problem: "invalid gzip identification bytes"}
	}
	if data[2] != gzipCM {
		return header, 2, BadHeaderError{OffsetBytes: 2, Problem: "unsupported compression method (only DEFLATE)"}
	}

	flags := data[3]
	if flags&gzipReserved != 0 {
		return header, 3, BadHeaderError{OffsetBytes: 3, Problem: "reserved gzip flag bits set"}
	}

	if mtime := binary.LittleEndian.Uint32(data[4:8]); mtime != 0 {
		header.LastModified = time.Unix(int64(mtime), 0)
	}
	switch data[8] {
	case 0x02:
		header.BestCompress = true
	case 0x04:
		header.FastCompress = true
	}
	header.OSType = gzipOSTypeDecodeTable[data[9]]
	header.DataType = BinaryData
	if flags&gzipFTEXT != 0 {
		header.DataType = TextData
	}

	offset := 10

	if flags&gzipFEXTRA != 0 {
		if len(data)-offset < 2 {
			return header, offset, BadHeaderError{OffsetBytes: int64(offset), Problem: "truncated extra-data length"}
		}
		xlen := int(binary.LittleEndian.Uint16(data[offset:]))
		offset += 2
		if len(data)-offset < xlen+gzipFooter {
			return header, offset, BadHeaderError{OffsetBytes: int64(offset), Problem: "truncated extra-data field"}
		}
		header.ExtraData.Parse(data[offset : offset+xlen])
		offset += xlen
	}

	if flags&gzipFNAME != 0 {
		str, n, ok := takeStringZ(data[offset:])
		if !ok {
			return header, offset, BadHeaderError{OffsetBytes: int64(offset), Problem: "unterminated file name"}
		}
		header.FileName = str
		offset += n
	}

	if flags&gzipFCOMMENT != 0 {
		str, n, ok := takeStringZ(data[offset:])
		if !ok {
			return header, offset, BadHeaderError{OffsetBytes: int64(offset), Problem: "unterminated comment"}
		}
		header.Comment = str
		offset += n
	}

	if flags&gzipFHCRC != 0 {
		if len(data)-offset < 2+gzipFooter {
			return header, offset, BadHeaderError{OffsetBytes: int64(offset), Problem: "truncated header CRC"}
		}
		// The header CRC-16 is skipped, not verified; the payload is
		// not checksummed by default either.
		offset += 2
	}

	if len(data)-offset < gzipFooter {
		return header, offset, BadHeaderError{OffsetBytes: int64(offset), Problem: "no room left for a DEFLATE payload and footer"}
	}
	return header, offset, nil
}

// ParseGzipFooter extracts the CRC-32 and modulo-2^32 decompressed size
// from the last 8 bytes of a gzip stream.
func ParseGzipFooter(data []byte) (Footer, error) {
	if len(data) < gzipFooter {
		return Footer{}, BadHeaderError{Problem: "input too short to hold a gzip footer"}
	}
	tail := data[len(data)-gzipFooter:]
	return Footer{
		CRC32: Checksum32(binary.LittleEndian.Uint32(tail[0:4])),
		Size:  binary.LittleEndian.Uint32(tail[4:8]),
	}, nil
}

func takeStringZ(data []byte) (string, int, bool) {
	idx := bytes.IndexByte(data, 0)
	if idx < 0 || len(data)-(idx+1) < gzipFooter {
		return "", 0, false
	}
	return string(data[:idx]), idx + 1, true
}

// DecompressGzip strips the gzip wrapper from data and decompresses the
// DEFLATE payload inside.  The whole stream must be in memory; the decoded
// bytes are written to dst in order.
func DecompressGzip(dst io.Writer, data []byte, opts ...Option) (Stats, Header, error) {
	var o options
	o.reset()
	o.apply(opts)
	o.populateDefaults()

	header, payloadStart, err := ParseGzipHeader(data)
	if err != nil {
		return Stats{}, header, err
	}
	sendEvent(o.tracers, Event{Type: StreamHeaderEvent, Header: &header})

	footer, err := ParseGzipFooter(data)
	if err != nil {
		return Stats{}, header, err
	}

	payload := data[payloadStart : len(data)-gzipFooter]
	stats, err := decompress(dst, payload, &o)
	if err != nil {
		return stats, header, err
	}

	if o.checksum && !o.lineCount {
		if uint32(stats.CRC32) != uint32(footer.CRC32) {
			return stats, header, ChecksumError{Field: "CRC-32", Expected: uint32(footer.CRC32), Computed: uint32(stats.CRC32)}
		}
		if uint32(stats.Bytes) != footer.Size {
			return stats, header, ChecksumError{Field: "length", Expected: footer.Size, Computed: uint32(stats.Bytes)}
		}
	}
	return stats, header, nil
}
