package parflate

import (
	"fmt"
	"strconv"
	"strings"
)

// WindowBits is the base-2 logarithm of each worker's decode window buffer.
// The buffer must comfortably hold the 32 KiB context tail plus room to
// decode between flushes, so the valid range starts well above the DEFLATE
// context itself.
type WindowBits byte

const (
	// DefaultWindowBits requests that the default value for WindowBits be
	// selected.  This is equivalent to 21 (MaxWindowBits).
	DefaultWindowBits WindowBits = 0

	// MinWindowBits is the smallest possible WindowBits (128 KiB).
	MinWindowBits WindowBits = 17

	// MaxWindowBits is the largest possible WindowBits (2 MiB).  Larger
	// windows flush less often.
	MaxWindowBits WindowBits = 21
)

// IsValid returns true if wbits is a valid WindowBits constant.
func (wbits WindowBits) IsValid() bool {
	return wbits == DefaultWindowBits || (wbits >= MinWindowBits && wbits <= MaxWindowBits)
}

// GoString returns the Go string representation of this WindowBits constant.
func (wbits WindowBits) GoString() string {
	if wbits < MinWindowBits {
		return "DefaultWindowBits"
	}
	return fmt.Sprintf("WindowBits(%d)", uint(wbits))
}

// String returns the string representation of this WindowBits constant.
func (wbits WindowBits) String() string {
	if wbits < MinWindowBits {
		return "default"
	}
	return fmt.Sprintf("%d", uint(wbits))
}

// Parse parses a string representation of a WindowBits constant.
func (wbits *WindowBits) Parse(str string) error {
	if strings.EqualFold(str, "default") {
		*wbits = DefaultWindowBits
		return nil
	}

	u64, err := strconv.ParseUint(str, 10, 8)
	if err != nil {
		*wbits = DefaultWindowBits
		return err
	}
	if u64 < uint64(MinWindowBits) {
		*wbits = DefaultWindowBits
		return fmt.Errorf("value %d is less than minimum %d", u64, uint64(MinWindowBits))
	}
	if u64 > uint64(MaxWindowBits) {
		*wbits = DefaultWindowBits
		return fmt.Errorf("value %d is greater than maximum %d", u64, uint64(MaxWindowBits))
	}
	*wbits = WindowBits(u64)
	return nil
}

var _ fmt.GoStringer = WindowBits(0)
var _ fmt.Stringer = WindowBits(0)
