// Package pattern holds byte signatures with wildcard positions, such as "48 8B 05 ?? ?? ?? ??"
package pattern

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrEmptyPattern is returned when a signature has no tokens.
	ErrEmptyPattern = errors.New("empty pattern")

	// ErrInvalidToken is returned for a token that is neither a hex byte nor a wildcard.
	ErrInvalidToken = errors.New("invalid pattern token")

	// ErrMaskLength is returned when an AOB mask does not cover its pattern.
	ErrMaskLength = errors.New("pattern and mask must be of the same length")
)

// Pattern is an immutable byte signature. Every position carries a mask: a byte
// matches when data&mask == pattern&mask, so a zero mask is a wildcard and 0xFF an
// exact byte.
//
// The zero value is an empty pattern that never matches.
type Pattern struct {
	bytes []byte
	mask  []byte
}

func newPattern(n int) Pattern {
	return Pattern{bytes: make([]byte, n), mask: make([]byte, n)}
}

// Parse reads a signature made of two-digit hex bytes and wildcards ("?" or "??"),
// separated by spaces or commas. A single nibble may be a wildcard too: "4?" matches
// 0x40 to 0x4F.
func Parse(text string) (Pattern, error) {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	if len(parts) == 0 {
		return Pattern{}, ErrEmptyPattern
	}

	p := newPattern(len(parts))

	for i, part := range parts {
		if part == "?" {
			continue
		}

		if len(part) != 2 {
			return Pattern{}, fmt.Errorf("%w %q at index %d", ErrInvalidToken, part, i)
		}
		hi, hiMask, okHi := nibble(part[0])
		lo, loMask, okLo := nibble(part[1])
		if !okHi || !okLo {
			return Pattern{}, fmt.Errorf("%w %q at index %d", ErrInvalidToken, part, i)
		}
		p.bytes[i] = hi<<4 | lo
		p.mask[i] = hiMask<<4 | loMask
	}

	return p, nil
}

// nibble decodes one hex digit or '?' into its value and mask
func nibble(c byte) (value, mask byte, ok bool) {
	if c == '?' {
		return 0, 0, true
	}
	v, err := strconv.ParseUint(string(c), 16, 8)
	if err != nil {
		return 0, 0, false
	}
	return byte(v), 0xF, true
}

// MustParse is like Parse but panics, intended for package level signature literals.
func MustParse(text string) Pattern {
	p, err := Parse(text)
	if err != nil {
		panic(fmt.Sprintf("pattern: MustParse(%q): %v", text, err))
	}
	return p
}

// FromAOB builds a pattern from an array of bytes and a bit mask: only the bits set in
// the mask are compared, so 0x00 is a wildcard, 0xFF an exact byte and 0xF0 matches
// the high nibble alone. An empty mask means an exact match.
func FromAOB(pattern, mask []byte) (Pattern, error) {
	if len(pattern) == 0 {
		return Pattern{}, ErrEmptyPattern
	}
	if len(mask) == 0 {
		return FromBytes(pattern)
	}
	if len(pattern) != len(mask) {
		return Pattern{}, fmt.Errorf("%w: pattern %d, mask %d", ErrMaskLength, len(pattern), len(mask))
	}

	p := newPattern(len(pattern))
	for i := range pattern {
		p.bytes[i] = pattern[i] & mask[i]
		p.mask[i] = mask[i]
	}
	return p, nil
}

// FromBytes builds an exact pattern without wildcards.
func FromBytes(b []byte) (Pattern, error) {
	if len(b) == 0 {
		return Pattern{}, ErrEmptyPattern
	}
	p := newPattern(len(b))
	copy(p.bytes, b)
	for i := range p.mask {
		p.mask[i] = 0xFF
	}
	return p, nil
}

// FromString builds a pattern from text, each '?' becoming a wildcard.
func FromString(s string) (Pattern, error) {
	if s == "" {
		return Pattern{}, ErrEmptyPattern
	}
	p := newPattern(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '?' {
			continue
		}
		p.bytes[i] = s[i]
		p.mask[i] = 0xFF
	}
	return p, nil
}

// Len returns the number of bytes the pattern covers
func (p Pattern) Len() int {
	return len(p.bytes)
}

// Byte returns the masked literal at position i, zero for wildcards
func (p Pattern) Byte(i int) byte {
	return p.bytes[i]
}

// Mask returns the bits compared at position i
func (p Pattern) Mask(i int) byte {
	return p.mask[i]
}

// IsWildcard reports whether position i matches any byte
func (p Pattern) IsWildcard(i int) bool {
	return p.mask[i] == 0
}

// Wildcards returns how many positions are wildcards
func (p Pattern) Wildcards() int {
	n := 0
	for _, m := range p.mask {
		if m == 0 {
			n++
		}
	}
	return n
}

// AOB returns copies of the pattern bytes and mask in the form FromAOB accepts
func (p Pattern) AOB() (pattern, mask []byte) {
	pattern = make([]byte, len(p.bytes))
	mask = make([]byte, len(p.mask))
	copy(pattern, p.bytes)
	copy(mask, p.mask)
	return pattern, mask
}

// MatchAt reports whether data&mask equals pattern&mask at every position of the
// pattern, starting at off in data.
func (p Pattern) MatchAt(data []byte, off int) bool {
	if off < 0 || len(p.bytes) == 0 || off+len(p.bytes) > len(data) {
		return false
	}
	for j, b := range p.bytes {
		if data[off+j]&p.mask[j] != b {
			return false
		}
	}
	return true
}

// Anchor returns the longest run of exact (fully masked) bytes and its offset in the
// pattern. The literal is nil when no position is exact.
func (p Pattern) Anchor() (offset int, literal []byte) {
	bestStart, bestLen := 0, 0
	runStart := 0
	for i := 0; i <= len(p.bytes); i++ {
		if i < len(p.bytes) && p.mask[i] == 0xFF {
			continue
		}
		if i-runStart > bestLen {
			bestStart, bestLen = runStart, i-runStart
		}
		runStart = i + 1
	}
	if bestLen == 0 {
		return 0, nil
	}
	literal = make([]byte, bestLen)
	copy(literal, p.bytes[bestStart:])
	return bestStart, literal
}

// String formats the pattern in its canonical form, e.g. "48 8B 05 ?? ?? ?? ??".
// A nibble whose mask bits are not all set prints as '?'.
func (p Pattern) String() string {
	var sb strings.Builder
	for i, b := range p.bytes {
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteByte(hexNibble(b>>4, p.mask[i]>>4))
		sb.WriteByte(hexNibble(b&0xF, p.mask[i]&0xF))
	}
	return sb.String()
}

// hexNibble formats one nibble, '?' unless all of its mask bits are set
func hexNibble(v, mask byte) byte {
	if mask != 0xF {
		return '?'
	}
	return "0123456789ABCDEF"[v]
}
