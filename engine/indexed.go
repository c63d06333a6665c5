package engine

import (
	"bytes"

	"sigmem/pattern"
)

// Indexed jumps between occurrences of the pattern's longest literal run using
// bytes.Index and only verifies the full pattern there.
type Indexed struct{}

func (Indexed) Compile(p pattern.Pattern) Matcher {
	offset, literal := p.Anchor()
	return indexedMatcher{p: p, anchorOffset: offset, anchor: literal}
}

type indexedMatcher struct {
	p            pattern.Pattern
	anchorOffset int
	anchor       []byte
}

func (m indexedMatcher) Find(haystack []byte) int {
	n := m.p.Len()
	if n == 0 || len(haystack) < n {
		return -1
	}
	if len(m.anchor) == 0 {
		return findFrom(m.p, haystack, 0)
	}

	// Candidate starts are limited to [0, last]; the anchor of a candidate start i
	// sits at i+anchorOffset.
	last := len(haystack) - n
	pos := m.anchorOffset
	for pos-m.anchorOffset <= last {
		idx := bytes.Index(haystack[pos:last+m.anchorOffset+len(m.anchor)], m.anchor)
		if idx < 0 {
			return -1
		}

		start := pos + idx - m.anchorOffset
		if m.p.MatchAt(haystack, start) {
			return start
		}
		pos += idx + 1
	}

	return -1
}
