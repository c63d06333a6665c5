// Package memory describes raw locations and windows of the current process's address space
package memory

import (
	"fmt"
	"unsafe"
)

// PointerSize is the width of a pointer on the running platform
const PointerSize = unsafe.Sizeof(uintptr(0))

// Is64Bit reports whether pointers are eight bytes wide
const Is64Bit = PointerSize == 8

// Address represents a memory address within the current process
type Address uintptr

// AddressOf returns the address a pointer refers to
func AddressOf(p unsafe.Pointer) Address {
	return Address(uintptr(p))
}

// Add returns the address offset bytes away, offset may be negative.
// There is no bounds checking, the result wraps like uintptr arithmetic.
func (a Address) Add(offset int) Address {
	return a + Address(offset)
}

// Sub returns the address offset bytes before a
func (a Address) Sub(offset int) Address {
	return a.Add(-offset)
}

// Offset returns the signed distance from base to a
func (a Address) Offset(base Address) int {
	return int(a - base)
}

// ToAbs resolves a relative displacement embedded in an instruction starting at a.
// The signed 32-bit displacement at a+offset is read in native byte order, and the
// result is the end of the instruction (a+instructionLength) plus that displacement.
//
// The read is unchecked: the four bytes at a+offset must be mapped and readable.
func (a Address) ToAbs(offset, instructionLength int) Address {
	disp := Read[int32](a.Add(offset))
	return a.Add(instructionLength + int(disp))
}

func (a Address) Uintptr() uintptr {
	return uintptr(a)
}

func (a Address) IsZero() bool {
	return a == 0
}

// String returns the hexadecimal representation of the address
func (a Address) String() string {
	return fmt.Sprintf("0x%X", uintptr(a))
}

// Ptr reinterprets the address as a *T without any checks.
// T must match the layout of whatever lives at the address.
func Ptr[T any](a Address) *T {
	return (*T)(unsafe.Pointer(uintptr(a)))
}

// Read loads a T stored at the address, same preconditions as Ptr
func Read[T any](a Address) T {
	return *Ptr[T](a)
}
