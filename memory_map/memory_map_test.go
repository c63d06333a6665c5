package memory_map

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"sigmem/engine"
	"sigmem/memory"
	"sigmem/scanner"
)

func writeTemp(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "image.bin")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestOpenAndScan(t *testing.T) {
	data := []byte{0x00, 0x11, 0x48, 0x8B, 0x05, 0x10, 0x00, 0x00, 0x00, 0xC3}
	mf, err := Open(writeTemp(t, data))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer mf.Close()

	if mf.Size() != len(data) || string(mf.Bytes()) != string(data) {
		t.Fatalf("mapped contents = % x, want % x", mf.Bytes(), data)
	}

	region := mf.Region()
	addr, ok := scanner.MustCompile(engine.Default(), "48 8B 05 ?? ?? ?? ??").Scan(region)
	if !ok {
		t.Fatal("pattern not found in mapped file")
	}

	off, ok := mf.FileOffset(addr)
	if !ok || off != 2 {
		t.Errorf("FileOffset = %d, %v; want 2", off, ok)
	}
	if _, ok := mf.FileOffset(region.End()); ok {
		t.Error("FileOffset accepted the end address")
	}

	if nativeLittleEndian() {
		target := addr.ToAbs(3, 7)
		if off, _ := mf.FileOffset(target); off != 2+7+0x10 {
			t.Errorf("ToAbs target at file offset %#x, want 0x19", off)
		}
	}
}

func TestOpenEmptyFile(t *testing.T) {
	mf, err := Open(writeTemp(t, nil))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if mf.Region() != (memory.Region{}) {
		t.Errorf("empty file region = %+v", mf.Region())
	}
	if err := mf.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := mf.Close(); !errors.Is(err, ErrClosed) {
		t.Errorf("second Close error = %v, want ErrClosed", err)
	}
}

func TestOpenErrors(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "missing")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Open(missing) error = %v", err)
	}
	if _, err := Open(t.TempDir()); err == nil {
		t.Error("Open(directory) succeeded")
	}
}

func nativeLittleEndian() bool {
	return binary.NativeEndian.Uint16([]byte{1, 0}) == 1
}
