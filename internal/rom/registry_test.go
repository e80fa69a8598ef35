package rom

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRegisterAndLookup(t *testing.T) {
	Register("main", "test-a", []uint8{1, 2, 3})
	r, err := Lookup("main", "test-a")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if len(r.Data) != 3 {
		t.Errorf("data = %v", r.Data)
	}
	if _, err := Lookup("main", "missing"); err == nil {
		t.Errorf("missing ROM found")
	}
	// Registration replaces
	Register("main", "test-a", []uint8{9})
	r, _ = Lookup("main", "test-a")
	if len(r.Data) != 1 {
		t.Errorf("replacement ignored")
	}
}

func TestLoadFileSizeCheck(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "small.rom")
	os.WriteFile(path, make([]uint8, 100), 0o644)

	if _, err := LoadFile("main", "small", path, MainROMSize); err == nil {
		t.Errorf("wrong-size ROM accepted")
	}
	if _, err := LoadFile("card", "small", path, 100, 256); err != nil {
		t.Errorf("accepted size rejected: %v", err)
	}
}

func TestCharROMBuilder(t *testing.T) {
	b := NewCharROMBuilder()
	b.SetGlyph('A', [8]uint8{0x1C, 0x22, 0x22, 0x3E, 0x22, 0x22, 0x22, 0x00})
	b.FillSolid(0x20)
	data := b.Build()
	if len(data) != VideoROMSize {
		t.Fatalf("image is %d bytes", len(data))
	}
	if data[int('A')*8] != 0x1C {
		t.Errorf("glyph row missing")
	}
	if data[0x20*8+3] != 0x7F {
		t.Errorf("solid glyph missing")
	}

	path := filepath.Join(t.TempDir(), "video.rom")
	if err := b.BuildFile(path); err != nil {
		t.Fatalf("BuildFile: %v", err)
	}
	st, _ := os.Stat(path)
	if st.Size() != VideoROMSize {
		t.Errorf("file is %d bytes", st.Size())
	}
}
