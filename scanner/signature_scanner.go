package scanner

import (
	"fmt"

	"sigmem/engine"
	"sigmem/memory"
	"sigmem/pattern"

	"github.com/Moonlight-Companies/gologger/logger"
)

// SignatureScanner is a wildcard byte-pattern Scanner. The byte sweep is done by
// the injected matching engine; the scanner converts regions and results.
type SignatureScanner struct {
	pattern pattern.Pattern
	matcher engine.Matcher
	log     *logger.Logger
}

var _ Scanner = (*SignatureScanner)(nil)

// Option configures a SignatureScanner
type Option func(*SignatureScanner)

// WithLogger enables debug logging of each scan
func WithLogger(log *logger.Logger) Option {
	return func(s *SignatureScanner) {
		s.log = log
	}
}

// New binds p to a matcher compiled by eng
func New(eng engine.Engine, p pattern.Pattern, options ...Option) *SignatureScanner {
	s := &SignatureScanner{
		pattern: p,
		matcher: eng.Compile(p),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Compile parses text and binds it to eng
func Compile(eng engine.Engine, text string, options ...Option) (*SignatureScanner, error) {
	p, err := pattern.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern: %w", err)
	}
	return New(eng, p, options...), nil
}

// MustCompile is like Compile but panics on an invalid pattern
func MustCompile(eng engine.Engine, text string, options ...Option) *SignatureScanner {
	s, err := Compile(eng, text, options...)
	if err != nil {
		panic(err)
	}
	return s
}

// Pattern returns the signature the scanner was built with
func (s *SignatureScanner) Pattern() pattern.Pattern {
	return s.pattern
}

// Scan returns region.Begin plus the offset of the first match
func (s *SignatureScanner) Scan(region memory.Region) (memory.Address, bool) {
	if region.Size < uintptr(s.pattern.Len()) || s.pattern.Len() == 0 {
		return 0, false
	}

	offset := s.matcher.Find(region.Bytes())
	if offset < 0 {
		if s.log != nil {
			s.log.Debugln("Pattern", s.pattern.String(), "not found in", region.Begin.String(), "size", region.Size)
		}
		return 0, false
	}

	addr := region.Begin.Add(offset)
	if s.log != nil {
		s.log.Debugln("Pattern", s.pattern.String(), "found at", addr.String())
	}
	return addr, true
}
