// Package scanner finds the first occurrence of a signature inside a memory region.
package scanner

import (
	"sigmem/memory"
)

// Scanner is the capability every scanning strategy provides: report the address of
// the first match inside region, or false when there is none.
//
// Scanners are bound to their pattern when they are built. Scan has no error
// channel; the region must describe readable memory.
type Scanner interface {
	Scan(region memory.Region) (memory.Address, bool)
}

// ScannerFunc adapts an ordinary function to the Scanner interface
type ScannerFunc func(region memory.Region) (memory.Address, bool)

func (f ScannerFunc) Scan(region memory.Region) (memory.Address, bool) {
	return f(region)
}
