//go:build linux

package main

import (
	"errors"
	"fmt"

	"sigmem/memory"
	"sigmem/process_linux"

	"github.com/Moonlight-Companies/gologger/logger"
)

type processImage struct {
	*process_linux.Snapshot
}

func (p processImage) Origin() uint64 {
	return uint64(p.Remote())
}

// Describe formats an address as the remote address it was copied from
func (p processImage) Describe(addr memory.Address) string {
	remote, inside := p.RemoteAddress(addr)
	if !inside {
		return fmt.Sprintf("%#x (outside snapshot of pid %d)", remote, p.PID())
	}
	return fmt.Sprintf("%#x", remote)
}

func (p processImage) Close() error {
	return nil
}

func openProcess(pid int, remote uintptr, size int, log *logger.Logger) (image, error) {
	snapshot, err := process_linux.ReadSnapshot(pid, remote, size)
	if errors.Is(err, process_linux.ErrPartialRead) {
		log.Warn("Searching a partial snapshot: ", err)
		err = nil
	}
	if err != nil {
		return nil, err
	}
	return processImage{snapshot}, nil
}
