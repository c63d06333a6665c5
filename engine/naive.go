package engine

import "sigmem/pattern"

// Naive compares the pattern at every offset, the cost is len(haystack) * pattern length.
type Naive struct{}

func (Naive) Compile(p pattern.Pattern) Matcher {
	return naiveMatcher{p: p}
}

type naiveMatcher struct {
	p pattern.Pattern
}

func (m naiveMatcher) Find(haystack []byte) int {
	return findFrom(m.p, haystack, 0)
}

// findFrom sweeps haystack starting at from for the first full match
func findFrom(p pattern.Pattern, haystack []byte, from int) int {
	n := p.Len()
	if n == 0 || len(haystack) < n {
		return -1
	}

	for i := from; i <= len(haystack)-n; i++ {
		if p.MatchAt(haystack, i) {
			return i
		}
	}

	return -1
}
