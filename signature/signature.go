// Package signature resolves named signatures: a pattern scan followed by a chain
// of fix-ups that turn the match into the address that was actually wanted.
package signature

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"sigmem/engine"
	"sigmem/memory"
	"sigmem/pattern"
	"sigmem/scanner"
)

var (
	// ErrNotFound is returned when a signature's pattern does not occur in the region
	ErrNotFound = errors.New("signature not found")

	// ErrFixupOutOfImage is returned when a fix-up would read outside the scanned region
	ErrFixupOutOfImage = errors.New("fixup reads outside the image")
)

// ResolveError reports why one signature could not be resolved
type ResolveError struct {
	Name string
	Err  error
}

func (e *ResolveError) Error() string {
	return e.Name + ": " + e.Err.Error()
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}

// Signature names a pattern and the fix-ups applied to its match
type Signature struct {
	Name    string
	Pattern pattern.Pattern
	Fixups  []Fixup
}

// Resolve scans region with eng and applies the fix-ups in order, unchecked.
// Use ResolveImage when region is a copy that fix-ups must not read past.
func (s Signature) Resolve(eng engine.Engine, region memory.Region) (memory.Address, error) {
	match, ok := scanner.New(eng, s.Pattern).Scan(region)
	if !ok {
		return 0, &ResolveError{Name: s.Name, Err: ErrNotFound}
	}
	return s.Fix(match), nil
}

// ResolveImage is Resolve with every fix-up read checked against region
func (s Signature) ResolveImage(eng engine.Engine, region memory.Region) (memory.Address, error) {
	match, ok := scanner.New(eng, s.Pattern).Scan(region)
	if !ok {
		return 0, &ResolveError{Name: s.Name, Err: ErrNotFound}
	}
	addr, err := s.FixIn(region, match)
	if err != nil {
		return 0, &ResolveError{Name: s.Name, Err: err}
	}
	return addr, nil
}

// Fix applies the fix-up chain to a match address. Reads are unchecked.
func (s Signature) Fix(addr memory.Address) memory.Address {
	for _, f := range s.Fixups {
		addr = f.Apply(addr)
	}
	return addr
}

// FixIn applies the fix-up chain like Fix, but fails with ErrFixupOutOfImage before
// any fix-up reads memory outside region.
func (s Signature) FixIn(region memory.Region, addr memory.Address) (memory.Address, error) {
	for _, f := range s.Fixups {
		if r, ok := f.(reader); ok {
			offset, size := r.reads()
			if !region.Contains(addr.Add(offset)) || !region.Contains(addr.Add(offset+size-1)) {
				return 0, fmt.Errorf("%w: %s at %s", ErrFixupOutOfImage, f, addr)
			}
		}
		addr = f.Apply(addr)
	}
	return addr, nil
}

// String formats the signature as "name: pattern | fixup | fixup"
func (s Signature) String() string {
	var sb strings.Builder
	sb.WriteString(s.Name)
	sb.WriteString(": ")
	sb.WriteString(s.Pattern.String())
	for _, f := range s.Fixups {
		sb.WriteString(" | ")
		sb.WriteString(f.String())
	}
	return sb.String()
}

// Set is an ordered collection of uniquely named signatures
type Set []Signature

// Names returns the signature names in set order
func (set Set) Names() []string {
	names := make([]string, len(set))
	for i, s := range set {
		names[i] = s.Name
	}
	return names
}

// Lookup finds a signature by name
func (set Set) Lookup(name string) (Signature, bool) {
	for _, s := range set {
		if s.Name == name {
			return s, true
		}
	}
	return Signature{}, false
}

// Results maps signature names to resolved addresses
type Results map[string]memory.Address

// Sorted returns the resolved names in lexical order
func (r Results) Sorted() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveAll resolves every signature of the set over region using at most maxdop
// goroutines. Signatures that cannot be resolved are left out of the results and
// reported together in the returned error, one *ResolveError each.
// Names must be unique, otherwise ErrDuplicateName is returned before scanning.
func (set Set) ResolveAll(eng engine.Engine, region memory.Region, maxdop uint) (Results, error) {
	return set.resolve(eng, region, maxdop, func(s Signature, match memory.Address) (memory.Address, error) {
		return s.Fix(match), nil
	})
}

// ResolveImage is ResolveAll with every fix-up read checked against region, for
// regions that are copies such as mapped files.
func (set Set) ResolveImage(eng engine.Engine, region memory.Region, maxdop uint) (Results, error) {
	return set.resolve(eng, region, maxdop, func(s Signature, match memory.Address) (memory.Address, error) {
		return s.FixIn(region, match)
	})
}

func (set Set) resolve(eng engine.Engine, region memory.Region, maxdop uint, fix func(Signature, memory.Address) (memory.Address, error)) (Results, error) {
	scanners := make(map[string]scanner.Scanner, len(set))
	for _, s := range set {
		if _, dup := scanners[s.Name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateName, s.Name)
		}
		scanners[s.Name] = scanner.New(eng, s.Pattern)
	}

	matches := scanner.ScanParallel(region, maxdop, scanners)

	results := make(Results, len(matches))
	var errs []error
	for _, s := range set {
		match, ok := matches[s.Name]
		if !ok {
			errs = append(errs, &ResolveError{Name: s.Name, Err: ErrNotFound})
			continue
		}
		addr, err := fix(s, match)
		if err != nil {
			errs = append(errs, &ResolveError{Name: s.Name, Err: err})
			continue
		}
		results[s.Name] = addr
	}

	return results, errors.Join(errs...)
}

// Failures indexes the per-signature errors of a ResolveAll or ResolveImage error by name
func Failures(err error) map[string]error {
	out := make(map[string]error)
	errs := []error{err}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	}
	for _, e := range errs {
		var re *ResolveError
		if errors.As(e, &re) {
			out[re.Name] = re.Err
		}
	}
	return out
}
