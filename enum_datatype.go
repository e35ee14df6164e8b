package parflate

import (
	"fmt"

	"github.com/chronos-tachyon/enumhelper"
)

// DataType indicates the content type recorded in the gzip header, text
// (ASCII-compatible) vs binary (anything else).  This decompressor only
// accepts text payloads, but the header bit is advisory and is surfaced
// as-is.
type DataType byte

const (
	// UnknownData indicates that the header did not record a type.
	UnknownData DataType = iota

	// BinaryData indicates that the compressor saw non-textual data.
	BinaryData

	// TextData indicates that the compressor saw textual data.
	TextData
)

var dataTypeData = []enumhelper.EnumData{
	{GoName: "UnknownData", Name: "unknown"},
	{GoName: "BinaryData", Name: "binary"},
	{GoName: "TextData", Name: "text"},
}

// IsValid returns true if d is a valid DataType constant.
func (d DataType) IsValid() bool {
	return d >= UnknownData && d <= TextData
}

// GoString returns the Go string representation of this DataType constant.
func (d DataType) GoString() string {
	return enumhelper.DereferenceEnumData("DataType", dataTypeData, uint(d)).GoName
}

// String returns the string representation of this DataType constant.
func (d DataType) String() string {
	return enumhelper.DereferenceEnumData("DataType", dataTypeData, uint(d)).Name
}

// MarshalJSON returns the JSON representation of this DataType constant.
func (d DataType) MarshalJSON() ([]byte, error) {
	return enumhelper.MarshalEnumToJSON("DataType", dataTypeData, uint(d))
}

var _ fmt.GoStringer = DataType(0)
var _ fmt.Stringer = DataType(0)
