package signature

import (
	"fmt"
	"strconv"
	"strings"

	"sigmem/memory"
)

// Fixup moves a match address towards the real target
type Fixup interface {
	Apply(addr memory.Address) memory.Address
	String() string
}

// reader is implemented by fix-ups that read memory relative to the address
type reader interface {
	// reads returns the offset from the address and the number of bytes read
	reads() (offset, size int)
}

// Add steps the address by a constant number of bytes
type Add int

func (a Add) Apply(addr memory.Address) memory.Address {
	return addr.Add(int(a))
}

func (a Add) String() string {
	return fmt.Sprintf("add(%d)", int(a))
}

// Rel resolves the rel32 operand of the instruction at the address.
// Offset locates the displacement, Length is the full instruction length.
type Rel struct {
	Offset int
	Length int
}

func (r Rel) Apply(addr memory.Address) memory.Address {
	return addr.ToAbs(r.Offset, r.Length)
}

func (r Rel) reads() (int, int) {
	return r.Offset, 4
}

func (r Rel) String() string {
	return fmt.Sprintf("rel(%d,%d)", r.Offset, r.Length)
}

// Deref reads the pointer stored at the address. It is only meaningful on live
// memory, never on a file image.
type Deref struct{}

func (Deref) Apply(addr memory.Address) memory.Address {
	return memory.Read[memory.Address](addr)
}

func (Deref) reads() (int, int) {
	return 0, int(memory.PointerSize)
}

func (Deref) String() string {
	return "deref"
}

// ParseFixup reads the command line form of a fixup: "add:N", "rel:OFFSET:LENGTH"
// or "deref". Numbers accept Go literal prefixes such as 0x.
func ParseFixup(text string) (Fixup, error) {
	parts := strings.Split(text, ":")

	switch {
	case parts[0] == "add" && len(parts) == 2:
		n, err := strconv.ParseInt(parts[1], 0, 0)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidFixup, text)
		}
		return Add(n), nil

	case parts[0] == "rel" && len(parts) == 3:
		offset, err := strconv.ParseInt(parts[1], 0, 0)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidFixup, text)
		}
		length, err := strconv.ParseInt(parts[2], 0, 0)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidFixup, text)
		}
		return Rel{Offset: int(offset), Length: int(length)}, nil

	case parts[0] == "deref" && len(parts) == 1:
		return Deref{}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrInvalidFixup, text)
}
