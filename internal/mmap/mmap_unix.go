//go:build unix

// Package mmap maps whole files into memory for shared read-only access by
// the decompressor's workers, and releases the resident pages of regions
// that every worker has finished with.
package mmap

import (
	"os"

	"golang.org/x/sys/unix"
)

const pageSize = 4096

// Open maps the file read-only.  The returned Mapping shares pages with the
// page cache; the caller must keep it alive until all readers are done.
func Open(f *os.File) (*Mapping, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := info.Size()
	if size == 0 {
		return &Mapping{}, nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, err
	}
	_ = unix.Madvise(data, unix.MADV_SEQUENTIAL)
	return &Mapping{data: data}, nil
}

// Mapping is a read-only view of a whole file.
type Mapping struct {
	data []byte
}

// Bytes returns the mapped contents.
func (m *Mapping) Bytes() []byte {
	return m.data
}

// Release drops the resident pages backing the first n bytes of the
// mapping.  The region stays addressable; re-reading it would fault the
// pages back in.
func (m *Mapping) Release(n int64) {
	if m.data == nil {
		return
	}
	n = n &^ (pageSize - 1)
	if n <= 0 || n > int64(len(m.data)) {
		return
	}
	_ = unix.Madvise(m.data[:n], unix.MADV_DONTNEED)
}

// Close unmaps the file.
func (m *Mapping) Close() error {
	if m.data == nil {
		return nil
	}
	data := m.data
	m.data = nil
	return unix.Munmap(data)
}
