//go:build !unix

package mmap

import (
	"io"
	"os"
)

// Open falls back to reading the whole file into memory on platforms
// without mmap support.
func Open(f *os.File) (*Mapping, error) {
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return &Mapping{data: data}, nil
}

// Mapping is an in-memory copy of a whole file.
type Mapping struct {
	data []byte
}

// Bytes returns the file contents.
func (m *Mapping) Bytes() []byte {
	return m.data
}

// Release is a no-op without mmap.
func (m *Mapping) Release(n int64) {}

// Close drops the buffer.
func (m *Mapping) Close() error {
	m.data = nil
	return nil
}
