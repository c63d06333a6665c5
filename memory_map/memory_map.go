// Package memory_map maps binary images read-only into the current process so they
// can be scanned like any other loaded memory.
package memory_map

import (
	"errors"
	"fmt"
	"os"

	"sigmem/memory"
)

// ErrClosed is returned when a closed mapping is used
var ErrClosed = errors.New("mapping closed")

// MappedFile is a read-only view of a file's contents
type MappedFile struct {
	path   string
	data   []byte
	unmap  func() error
	closed bool
}

// Open maps the whole file at path read-only
func Open(path string) (*MappedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s is not a regular file", path)
	}

	mf := &MappedFile{path: path}
	if info.Size() == 0 {
		return mf, nil
	}
	if int64(int(info.Size())) != info.Size() {
		return nil, fmt.Errorf("%s is too large to map (%d bytes)", path, info.Size())
	}

	data, unmap, err := mapFile(f, int(info.Size()))
	if err != nil {
		return nil, fmt.Errorf("failed to map %s: %w", path, err)
	}
	mf.data = data
	mf.unmap = unmap
	return mf, nil
}

// Path returns the path the file was opened with
func (m *MappedFile) Path() string {
	return m.path
}

// Size returns the number of mapped bytes
func (m *MappedFile) Size() int {
	return len(m.data)
}

// Bytes returns the mapped contents. The slice is invalid after Close and must not
// be written to.
func (m *MappedFile) Bytes() []byte {
	return m.data
}

// Region describes the mapping as scannable memory
func (m *MappedFile) Region() memory.Region {
	return memory.RegionOf(m.data)
}

// FileOffset converts an address inside the mapping back to a file offset
func (m *MappedFile) FileOffset(addr memory.Address) (int64, bool) {
	r := m.Region()
	if !r.Contains(addr) {
		return 0, false
	}
	return int64(addr.Offset(r.Begin)), true
}

// Close unmaps the file. Addresses taken from the mapping become invalid.
func (m *MappedFile) Close() error {
	if m.closed {
		return ErrClosed
	}
	m.closed = true
	m.data = nil

	if m.unmap == nil {
		return nil
	}
	return m.unmap()
}
