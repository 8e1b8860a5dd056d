package loaders

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadSPIRVRepacksWords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shader.spv")
	// 0x07230203 little-endian followed by one more word.
	raw := []byte{0x03, 0x02, 0x23, 0x07, 0x78, 0x56, 0x34, 0x12}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}

	bl := &BinaryLoader{}
	code, err := bl.LoadSPIRV(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(code) != 2 {
		t.Fatalf("got %d words, want 2", len(code))
	}
	if code[0] != 0x07230203 || code[1] != 0x12345678 {
		t.Errorf("words = %#x, %#x", code[0], code[1])
	}
}

func TestLoadSPIRVRejectsUnalignedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shader.spv")
	if err := os.WriteFile(path, []byte{1, 2, 3}, 0o644); err != nil {
		t.Fatal(err)
	}

	bl := &BinaryLoader{}
	if _, err := bl.LoadSPIRV(path); err == nil {
		t.Error("expected error for non word-aligned file")
	}
}

func TestLoadSPIRVMissingFile(t *testing.T) {
	bl := &BinaryLoader{}
	if _, err := bl.LoadSPIRV(filepath.Join(t.TempDir(), "absent.spv")); err == nil {
		t.Error("expected error for missing file")
	}
}
