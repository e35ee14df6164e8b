package parflate

import (
	"encoding/binary"
	"time"
)

// Header is a collection of fields which may be present in the header of a
// gzip stream.
type Header struct {
	FileName     string
	Comment      string
	LastModified time.Time
	DataType     DataType
	OSType       OSType
	ExtraData    ExtraData
	BestCompress bool
	FastCompress bool
}

// Footer holds the two trailing fields of a gzip stream.  Neither is
// validated unless checksum verification is requested.
type Footer struct {
	CRC32 Checksum32
	Size  uint32
}

// ExtraData represents a collection of records in a gzip ExtraData header.
type ExtraData struct {
	Records []ExtraDataRecord
}

// ExtraDataRecord represents a single record in a gzip ExtraData header.
type ExtraDataRecord struct {
	ID    [2]byte
	Bytes []byte
}

// Parse parses the given bytes as an ExtraData field.
func (xd *ExtraData) Parse(raw []byte) {
	*xd = ExtraData{}

	index := uint(0)
	length := uint(len(raw))
	for (index + 4) <= length {
		var rec ExtraDataRecord
		rec.ID[0] = raw[index+0]
		rec.ID[1] = raw[index+1]
		recLen := uint(binary.LittleEndian.Uint16(raw[index+2 : index+4]))
		index += 4
		if index+recLen > length {
			break
		}
		rec.Bytes = raw[index : index+recLen]
		index += recLen
		xd.Records = append(xd.Records, rec)
	}
}
