package engine

import (
	"math/rand"
	"testing"

	"sigmem/pattern"
)

var engines = map[string]Engine{
	"naive":   Naive{},
	"indexed": Indexed{},
}

func TestFind(t *testing.T) {
	tests := []struct {
		name     string
		pattern  string
		haystack []byte
		want     int
	}{
		{"single occurrence", "8B 05", []byte{0x48, 0x8B, 0x05, 0x10}, 1},
		{"no occurrence", "CC CC", []byte{0x48, 0x8B, 0x05, 0x10}, -1},
		{"first of many", "90 90", []byte{0x00, 0x90, 0x90, 0x90, 0x90}, 1},
		{"wildcard ff", "90 ?? 90", []byte{0x90, 0xFF, 0x90}, 0},
		{"wildcard 00", "90 ?? 90", []byte{0x90, 0x00, 0x90}, 0},
		{"leading wildcard", "?? 05", []byte{0x05, 0x05}, 0},
		{"anchor late in pattern", "?? ?? 41 42", []byte{0x41, 0x42, 0x41, 0x42}, 0},
		{"anchor too close to start", "?? ?? 41", []byte{0x41, 0x00, 0x41}, 0},
		{"at end", "DE AD", []byte{0x00, 0x00, 0xDE, 0xAD}, 2},
		{"haystack shorter than pattern", "01 02 03", []byte{0x01, 0x02}, -1},
		{"empty haystack", "01", nil, -1},
		{"all wildcards", "?? ?? ??", []byte{1, 2, 3, 4}, 0},
		{"all wildcards too long", "?? ?? ??", []byte{1, 2}, -1},
		{"nibble wildcard", "8? 05", []byte{0x8B, 0x06, 0x8C, 0x05}, 2},
		{"nibble only", "?5", []byte{0x06, 0xA5}, 1},
		{"partial anchor hit then real", "AA BB ?? CC", []byte{0xAA, 0xBB, 0x00, 0xCD, 0xAA, 0xBB, 0x01, 0xCC}, 4},
	}

	for name, eng := range engines {
		for _, tt := range tests {
			t.Run(name+"/"+tt.name, func(t *testing.T) {
				m := eng.Compile(pattern.MustParse(tt.pattern))
				if got := m.Find(tt.haystack); got != tt.want {
					t.Errorf("Find(% x) = %d, want %d", tt.haystack, got, tt.want)
				}
			})
		}
	}
}

func TestZeroPatternNeverMatches(t *testing.T) {
	for name, eng := range engines {
		if got := eng.Compile(pattern.Pattern{}).Find([]byte{1, 2, 3}); got != -1 {
			t.Errorf("%s: Find with empty pattern = %d, want -1", name, got)
		}
	}
}

// TestIndexedAgreesWithNaive checks both engines on random haystacks drawn from a
// tiny alphabet so that partial matches are frequent. Masks mix wildcards, single
// bits and exact bytes.
func TestIndexedAgreesWithNaive(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for iter := 0; iter < 2000; iter++ {
		haystack := make([]byte, rng.Intn(64))
		for i := range haystack {
			haystack[i] = byte(rng.Intn(3))
		}

		n := 1 + rng.Intn(6)
		raw := make([]byte, n)
		mask := make([]byte, n)
		for i := range raw {
			raw[i] = byte(rng.Intn(3))
			switch rng.Intn(4) {
			case 0:
			case 1:
				mask[i] = 0x01
			default:
				mask[i] = 0xFF
			}
		}
		p, err := pattern.FromAOB(raw, mask)
		if err != nil {
			t.Fatal(err)
		}

		want := Naive{}.Compile(p).Find(haystack)
		if got := (Indexed{}).Compile(p).Find(haystack); got != want {
			t.Fatalf("pattern %s haystack % x: indexed = %d, naive = %d", p, haystack, got, want)
		}
	}
}

func TestByName(t *testing.T) {
	if e, ok := ByName("naive"); !ok || e != (Naive{}) {
		t.Errorf("ByName(naive) = %v, %v", e, ok)
	}
	if e, ok := ByName(""); !ok || e != Default() {
		t.Errorf("ByName(\"\") = %v, %v", e, ok)
	}
	if _, ok := ByName("simd"); ok {
		t.Error("unknown engine name accepted")
	}
}

func benchmarkEngine(b *testing.B, eng Engine) {
	data := make([]byte, 1<<20)
	for i := range data {
		data[i] = byte(i % 251)
	}
	copy(data[len(data)-16:], []byte{0x48, 0x8B, 0x05, 0x11, 0x22, 0x33, 0x44})
	m := eng.Compile(pattern.MustParse("48 8B 05 ?? ?? ?? ??"))

	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Find(data)
	}
}

func BenchmarkNaive(b *testing.B)   { benchmarkEngine(b, Naive{}) }
func BenchmarkIndexed(b *testing.B) { benchmarkEngine(b, Indexed{}) }
