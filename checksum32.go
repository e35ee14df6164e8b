package parflate

import (
	"encoding/json"
	"fmt"
)

// Checksum32 is a lightweight wrapper around uint32 that is used for the
// CRC-32 values carried in gzip footers.  It stringifies to hexadecimal
// format.
type Checksum32 uint32

// GoString returns the Go string representation of this Checksum32 value.
func (csum Checksum32) GoString() string {
	return fmt.Sprintf("Checksum32(%#08x)", uint32(csum))
}

// String returns the string representation of this Checksum32 value.
func (csum Checksum32) String() string {
	return fmt.Sprintf("%#08x", uint32(csum))
}

// MarshalJSON returns the JSON representation of this Checksum32 value.
func (csum Checksum32) MarshalJSON() ([]byte, error) {
	return json.Marshal(csum.String())
}

var _ fmt.GoStringer = Checksum32(0)
var _ fmt.Stringer = Checksum32(0)
var _ json.Marshaler = Checksum32(0)
