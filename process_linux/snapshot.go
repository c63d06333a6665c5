//go:build linux

// Package process_linux copies memory out of other Linux processes so it can be
// scanned locally.
package process_linux

import (
	"errors"
	"fmt"
	"os"

	"sigmem/memory"

	"golang.org/x/sys/unix"
)

var (
	// ErrPartialRead is returned when the kernel copied fewer bytes than requested,
	// typically because the range runs into an unmapped page.
	ErrPartialRead = errors.New("partial read")

	ErrInvalidRange = errors.New("invalid remote range")
)

// Snapshot is a local copy of the remote range [remote, remote+len(data)) of a process.
type Snapshot struct {
	pid    int
	remote uintptr
	data   []byte
}

// ReadSnapshot copies size bytes at remote from process pid.
// On ErrPartialRead the snapshot holding the bytes that were read is returned too.
func ReadSnapshot(pid int, remote uintptr, size int) (*Snapshot, error) {
	if size <= 0 || remote+uintptr(size) < remote {
		return nil, fmt.Errorf("%w: %#x+%d", ErrInvalidRange, remote, size)
	}
	if _, err := os.Stat(fmt.Sprintf("/proc/%d", pid)); os.IsNotExist(err) {
		return nil, fmt.Errorf("process with PID %d does not exist", pid)
	}

	data := make([]byte, size)
	n, err := processVMReadv(pid, data, remote)
	if err != nil {
		return nil, fmt.Errorf("process_vm_readv: failed to read process memory: %w", err)
	}

	s := &Snapshot{pid: pid, remote: remote, data: data[:n]}
	if n != size {
		return s, fmt.Errorf("%w: %d of %d bytes", ErrPartialRead, n, size)
	}
	return s, nil
}

// processVMReadv reads len(local) bytes at remote from pid into local
func processVMReadv(pid int, local []byte, remote uintptr) (int, error) {
	localIov := []unix.Iovec{{Base: &local[0]}}
	localIov[0].SetLen(len(local))

	remoteIov := []unix.RemoteIovec{{Base: remote, Len: len(local)}}

	return unix.ProcessVMReadv(pid, localIov, remoteIov, 0)
}

func (s *Snapshot) PID() int {
	return s.pid
}

// Remote returns the remote address the snapshot starts at
func (s *Snapshot) Remote() uintptr {
	return s.remote
}

// Region describes the local copy
func (s *Snapshot) Region() memory.Region {
	return memory.RegionOf(s.data)
}

// RemoteAddress translates an address inside the local copy to the process's address space.
// Addresses outside the copy are translated by the same displacement and reported as false.
func (s *Snapshot) RemoteAddress(local memory.Address) (uintptr, bool) {
	r := s.Region()
	return s.remote + uintptr(local-r.Begin), r.Contains(local)
}

// LocalAddress translates a remote address to the local copy
func (s *Snapshot) LocalAddress(remote uintptr) (memory.Address, bool) {
	if remote < s.remote || remote-s.remote >= uintptr(len(s.data)) {
		return 0, false
	}
	return s.Region().Begin.Add(int(remote - s.remote)), true
}
