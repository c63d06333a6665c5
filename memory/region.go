package memory

import "unsafe"

// Region describes the half-open byte range [Begin, Begin+Size).
//
// Size is trusted: it must match the memory the caller actually owns, nothing
// verifies that the range is mapped.
type Region struct {
	Begin Address
	Size  uintptr
}

// RegionOf describes the backing array of b. The caller must keep b alive and
// unmoved (heap allocated or mapped) for as long as the region is used.
func RegionOf(b []byte) Region {
	if len(b) == 0 {
		return Region{}
	}
	return Region{
		Begin: AddressOf(unsafe.Pointer(unsafe.SliceData(b))),
		Size:  uintptr(len(b)),
	}
}

// End returns the first address past the region
func (r Region) End() Address {
	return r.Begin + Address(r.Size)
}

// Contains reports whether addr lies inside the region
func (r Region) Contains(addr Address) bool {
	return addr >= r.Begin && addr < r.End()
}

// Slice returns the sub-window starting offset bytes into r, clamped to r
func (r Region) Slice(offset, size uintptr) Region {
	if offset > r.Size {
		offset = r.Size
	}
	if size > r.Size-offset {
		size = r.Size - offset
	}
	return Region{Begin: r.Begin + Address(offset), Size: size}
}

// Bytes returns a view of the region's memory without copying.
func (r Region) Bytes() []byte {
	if r.Size == 0 {
		return nil
	}
	return unsafe.Slice(Ptr[byte](r.Begin), r.Size)
}
