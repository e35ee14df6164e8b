package parflate

import (
	"fmt"

	"github.com/chronos-tachyon/enumhelper"
)

// BlockResult is the outcome of parsing one DEFLATE block.
type BlockResult byte

const (
	// BlockSuccess indicates a fully decoded non-final block.
	BlockSuccess BlockResult = iota

	// BlockLast indicates a fully decoded block with BFINAL set.
	BlockLast

	// BlockCaughtUp indicates that the decode loop stopped because it
	// reached the position where the downstream worker synchronized.
	BlockCaughtUp

	// BlockFlushFail indicates that the output window could not make
	// room for more data.
	BlockFlushFail

	// BlockInvalidType indicates the reserved block type 11.
	BlockInvalidType

	// BlockInvalidDynamicHT indicates an unusable dynamic Huffman code
	// description.
	BlockInvalidDynamicHT

	// BlockInvalidStored indicates a stored block whose LEN/NLEN fields
	// disagree or overrun the input.
	BlockInvalidStored

	// BlockInvalidLiteral indicates a literal outside ['\t'..'~'].
	BlockInvalidLiteral

	// BlockInvalidMatch indicates a match offset beyond the 32 KiB
	// context horizon.
	BlockInvalidMatch

	// BlockTooMuchInput indicates trailing bytes after the final block.
	BlockTooMuchInput

	// BlockNotEnoughInput indicates that the input ended mid-block.
	BlockNotEnoughInput

	// BlockInvalidParse indicates that the end of the block did not
	// coincide with the input bounds.
	BlockInvalidParse
)

var blockResultData = []enumhelper.EnumData{
	{GoName: "BlockSuccess", Name: "success"},
	{GoName: "BlockLast", Name: "last-block"},
	{GoName: "BlockCaughtUp", Name: "caught-up-downstream"},
	{GoName: "BlockFlushFail", Name: "flush-fail"},
	{GoName: "BlockInvalidType", Name: "invalid-block-type"},
	{GoName: "BlockInvalidDynamicHT", Name: "invalid-dynamic-huffman-tree"},
	{GoName: "BlockInvalidStored", Name: "invalid-stored-block"},
	{GoName: "BlockInvalidLiteral", Name: "invalid-literal"},
	{GoName: "BlockInvalidMatch", Name: "invalid-match"},
	{GoName: "BlockTooMuchInput", Name: "too-much-input"},
	{GoName: "BlockNotEnoughInput", Name: "not-enough-input"},
	{GoName: "BlockInvalidParse", Name: "invalid-parse"},
}

// IsError returns true if this BlockResult represents a parse failure
// rather than a clean decode-loop exit.
func (r BlockResult) IsError() bool {
	return r >= BlockFlushFail
}

// GoString returns the Go string representation of this BlockResult constant.
func (r BlockResult) GoString() string {
	return enumhelper.DereferenceEnumData("BlockResult", blockResultData, uint(r)).GoName
}

// String returns the string representation of this BlockResult constant.
func (r BlockResult) String() string {
	return enumhelper.DereferenceEnumData("BlockResult", blockResultData, uint(r)).Name
}

// MarshalJSON returns the JSON representation of this BlockResult constant.
func (r BlockResult) MarshalJSON() ([]byte, error) {
	return enumhelper.MarshalEnumToJSON("BlockResult", blockResultData, uint(r))
}

// toError converts a failed BlockResult into a CorruptInputError anchored
// at the given stream position.
func (r BlockResult) toError(offsetBits int64) error {
	if !r.IsError() {
		return nil
	}
	return CorruptInputError{
		OffsetBits: offsetBits,
		Result:     r,
		Problem:    r.String(),
	}
}

var _ fmt.GoStringer = BlockResult(0)
var _ fmt.Stringer = BlockResult(0)
