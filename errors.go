package parflate

import (
	"fmt"
)

// CorruptInputError is returned when the stream being decompressed contains
// data that violates the DEFLATE format, or data that cannot have come from
// an ASCII text payload.
type CorruptInputError struct {
	OffsetBits int64
	Result     BlockResult
	Problem    string
}

// Error fulfills the error interface.
func (err CorruptInputError) Error() string {
	return fmt.Sprintf("corrupt input at/near bit offset %d: %s", err.OffsetBits, err.Problem)
}

// BadHeaderError is returned when the gzip wrapper around the DEFLATE
// stream cannot be parsed.
type BadHeaderError struct {
	OffsetBytes int64
	Problem     string
}

// Error fulfills the error interface.
func (err BadHeaderError) Error() string {
	return fmt.Sprintf("bad gzip header at/near byte offset %d: %s", err.OffsetBytes, err.Problem)
}

// SyncError is returned when a worker cannot locate a valid DEFLATE block
// boundary within its probe budget.
type SyncError struct {
	Worker      int
	StartBits   int64
	SkippedBits int64
}

// Error fulfills the error interface.
func (err SyncError) Error() string {
	return fmt.Sprintf("worker %d: no DEFLATE block boundary within %d bits of bit offset %d", err.Worker, err.SkippedBits, err.StartBits)
}

// ChecksumError is returned, when checksum verification is enabled, if the
// CRC-32 or length recorded in the gzip footer does not match the
// decompressed output.
type ChecksumError struct {
	Field    string
	Expected uint32
	Computed uint32
}

// Error fulfills the error interface.
func (err ChecksumError) Error() string {
	return fmt.Sprintf("gzip %s mismatch: footer value %#08x, computed value %#08x", err.Field, err.Expected, err.Computed)
}

var (
	_ error = CorruptInputError{}
	_ error = BadHeaderError{}
	_ error = SyncError{}
	_ error = ChecksumError{}
)
