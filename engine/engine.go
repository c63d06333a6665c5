// Package engine provides signature matching engines.
//
// An engine compiles a pattern once and then sweeps byte ranges for its first
// occurrence. Scanners only depend on the Engine interface, so the search
// algorithm can be replaced without touching callers.
package engine

import "sigmem/pattern"

// Engine compiles patterns into matchers
type Engine interface {
	Compile(p pattern.Pattern) Matcher
}

// Matcher searches for one compiled pattern
type Matcher interface {
	// Find returns the offset of the first position in haystack where every literal
	// of the pattern matches, scanning in ascending order, or -1 if there is none.
	Find(haystack []byte) int
}

// Default returns the engine scanners use unless told otherwise
func Default() Engine {
	return Indexed{}
}

// ByName looks up an engine by the name used on the command line
func ByName(name string) (Engine, bool) {
	switch name {
	case "naive":
		return Naive{}, true
	case "indexed", "":
		return Indexed{}, true
	}
	return nil, false
}
