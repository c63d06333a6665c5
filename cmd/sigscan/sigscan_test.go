package main

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sigmem/signature"
)

// writeImage creates a small code image:
//
//	+0x10  48 8b 05 <disp32>   mov rax, [rip+disp] -> +0x40
//	+0x20  e8 <rel32>          call -> +0x50
func writeImage(t *testing.T) string {
	t.Helper()
	data := make([]byte, 0x60)
	copy(data[0x10:], []byte{0x48, 0x8B, 0x05})
	binary.NativeEndian.PutUint32(data[0x13:], uint32(0x40-(0x10+7)))
	data[0x20] = 0xE8
	binary.NativeEndian.PutUint32(data[0x21:], uint32(0x50-(0x20+5)))

	path := filepath.Join(t.TempDir(), "image.bin")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestFind(t *testing.T) {
	image := writeImage(t)

	out, err := run(t, "find", image, "48", "8B", "05", "??", "??", "??", "??", "--fixup", "rel:3:7", "--no-color")
	if err != nil {
		t.Fatalf("find failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "match   file+0x10\n") {
		t.Errorf("missing match line:\n%s", out)
	}
	if !strings.Contains(out, "target  file+0x40\n") {
		t.Errorf("missing target line:\n%s", out)
	}
	if !strings.Contains(out, "00000000  00 00") {
		t.Errorf("missing hexdump:\n%s", out)
	}
}

func TestFindCommaPatternNaiveEngine(t *testing.T) {
	image := writeImage(t)

	out, err := run(t, "find", image, "e8,??,??,??,??", "--engine", "naive", "--fixup", "rel:1:5", "--context", "0")
	if err != nil {
		t.Fatalf("find failed: %v\n%s", err, out)
	}
	want := "match   file+0x20\ntarget  file+0x50\n"
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

func TestFindTargetOutsideImage(t *testing.T) {
	image := writeImage(t)

	out, err := run(t, "find", image, "E8", "--fixup", "add:-0x40", "--context", "0")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if !strings.Contains(out, "outside image, file-0x20") {
		t.Errorf("output = %q", out)
	}
}

func TestFindErrors(t *testing.T) {
	image := writeImage(t)

	tests := []struct {
		name string
		args []string
		err  error
		text string
	}{
		{"not found", []string{"find", image, "0F", "0B"}, signature.ErrNotFound, ""},
		{"bad fixup", []string{"find", image, "E8", "--fixup", "jmp:1"}, signature.ErrInvalidFixup, ""},
		{"deref on file", []string{"find", image, "E8", "--fixup", "deref"}, errLiveMemoryOnly, ""},
		{"bad pattern", []string{"find", image, "ZZ"}, nil, "invalid pattern"},
		{"bad engine", []string{"find", image, "E8", "--engine", "simd"}, nil, "unknown engine"},
		{"missing file", []string{"find", filepath.Join(t.TempDir(), "nope"), "E8"}, os.ErrNotExist, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			if err == nil {
				t.Fatal("expected an error")
			}
			if tt.err != nil && !errors.Is(err, tt.err) {
				t.Errorf("error = %v, want %v", err, tt.err)
			}
			if !strings.Contains(err.Error(), tt.text) {
				t.Errorf("error %q does not mention %q", err, tt.text)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	image := writeImage(t)
	sigs := filepath.Join(t.TempDir(), "sigs.yaml")
	yaml := `
signatures:
  - name: Global
    pattern: "48 8B 05 ?? ?? ?? ??"
    fixups:
      - rel: {offset: 3, length: 7}
  - name: Call
    pattern: "E8 ?? ?? ?? ??"
    fixups:
      - rel: {offset: 1, length: 5}
      - add: 4
  - name: Missing
    pattern: "0F 0B"
`
	if err := os.WriteFile(sigs, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "resolve", image, sigs, "--maxdop", "2")
	if !errors.Is(err, signature.ErrNotFound) {
		t.Errorf("resolve error = %v, want ErrNotFound for Missing", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines:\n%s", len(lines), out)
	}
	checks := []struct{ name, value string }{
		{"Global", "file+0x40"},
		{"Call", "file+0x54"},
		{"Missing", "not found"},
	}
	for i, c := range checks {
		fields := strings.Fields(lines[i])
		if fields[0] != c.name || !strings.HasSuffix(lines[i], c.value) {
			t.Errorf("line %d = %q, want %s ... %s", i, lines[i], c.name, c.value)
		}
	}
}

// writeTailCall creates an image whose last byte is a call opcode with no room for its rel32
func writeTailCall(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tail.bin")
	if err := os.WriteFile(path, []byte{0x90, 0x90, 0xE8}, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFindFixupOutOfImage(t *testing.T) {
	out, err := run(t, "find", writeTailCall(t), "E8", "--fixup", "rel:1:5", "--context", "0")
	if !errors.Is(err, signature.ErrFixupOutOfImage) {
		t.Fatalf("find error = %v, want ErrFixupOutOfImage\n%s", err, out)
	}
	if out != "match   file+0x2\n" || strings.Contains(out, "target") {
		t.Errorf("output = %q", out)
	}
}

func TestResolveFixupOutOfImage(t *testing.T) {
	sigs := filepath.Join(t.TempDir(), "sigs.yaml")
	yaml := `
signatures:
  - name: Tail
    pattern: "E8"
    fixups:
      - rel: {offset: 1, length: 5}
  - name: Nops
    pattern: "90 90"
`
	if err := os.WriteFile(sigs, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "resolve", writeTailCall(t), sigs)
	if !errors.Is(err, signature.ErrFixupOutOfImage) {
		t.Errorf("resolve error = %v, want ErrFixupOutOfImage", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "Tail") || !strings.Contains(lines[0], "fixup reads outside the image") {
		t.Errorf("Tail line = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "Nops") || !strings.HasSuffix(lines[1], "file+0x0") {
		t.Errorf("Nops line = %q", lines[1])
	}
}

func TestResolveRejectsDeref(t *testing.T) {
	image := writeImage(t)
	sigs := filepath.Join(t.TempDir(), "sigs.yaml")
	yaml := "signatures:\n  - {name: P, pattern: \"48\", fixups: [{deref: true}]}\n"
	if err := os.WriteFile(sigs, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := run(t, "resolve", image, sigs); !errors.Is(err, errLiveMemoryOnly) {
		t.Errorf("resolve error = %v, want errLiveMemoryOnly", err)
	}
}
