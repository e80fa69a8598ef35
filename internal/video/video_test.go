package video

import (
	"testing"

	"iie-core/internal/clock"
	"iie-core/internal/memory"
)

// testMem is a flat main/aux pair for renderer tests
type testMem struct {
	main [0x10000]uint8
	aux  [0x10000]uint8
	pins int
}

func (m *testMem) MainPeek(addr uint16) uint8 { return m.main[addr] }
func (m *testMem) AuxPeek(addr uint16) uint8  { return m.aux[addr] }
func (m *testMem) PinRange(addr uint16, length int) {
	m.pins++
}

// testCharROM builds a synthetic character generator: every glyph renders
// its low 7 code bits as the row pattern, with the $00-$3F region inverted
// the way an inverse-video bank would be
func testCharROM() []uint8 {
	rom := make([]uint8, 4096)
	for code := 0; code < 256; code++ {
		bits := uint8(code) & 0x7F
		if code < 0x40 {
			bits ^= 0x7F
		}
		for r := 0; r < 8; r++ {
			rom[code*8+r] = bits
		}
	}
	return rom
}

func newTestVideo(t *testing.T) (*Video, *testMem, *memory.Switches, *clock.Wheel) {
	t.Helper()
	mem := &testMem{}
	sw := &memory.Switches{}
	sw.Reset()
	v := New(sw, mem, testCharROM(), nil)
	w := clock.NewWheel(nil)
	v.RegisterVBL(w)
	return v, mem, sw, w
}

// TestVBLTiming checks the §invariant: the blanking bit is up for exactly
// 4550 of every 17030 cycles and flips monotonically. Running a million
// cycles produces exactly 58 rising edges.
func TestVBLTiming(t *testing.T) {
	v, _, _, w := newTestVideo(t)

	edges := 0
	prev := v.VBL()
	for cycles := 0; cycles < 1000000; cycles += 2 {
		w.Advance(2)
		now := v.VBL()
		if now && !prev {
			edges++
		}
		prev = now
	}
	if edges != 58 {
		t.Errorf("VBL rose %d times in 1e6 cycles, want 58", edges)
	}
	if got := uint32(58); v.FrameCount() != got {
		t.Errorf("frame count = %d, want %d", v.FrameCount(), got)
	}
}

func TestVBLPhaseDurations(t *testing.T) {
	v, _, _, w := newTestVideo(t)

	// Visible right after reset
	if v.VBL() {
		t.Fatalf("VBL up at frame start")
	}
	w.Advance(CyclesVisible - 1)
	if v.VBL() {
		t.Fatalf("VBL up before visible phase ends")
	}
	w.Advance(1)
	if !v.VBL() {
		t.Fatalf("VBL not up at blanking start")
	}
	w.Advance(CyclesBlanking - 1)
	if !v.VBL() {
		t.Fatalf("VBL dropped early")
	}
	w.Advance(1)
	if v.VBL() {
		t.Fatalf("VBL still up after blanking")
	}
}

func TestText40Rendering(t *testing.T) {
	v, mem, _, _ := newTestVideo(t)

	// Put a full-width glyph at row 0, col 0 and nothing else
	mem.main[0x0400] = 0xFF
	v.MarkFrameDirty()
	if !v.Render() {
		t.Fatalf("dirty frame did not render")
	}

	fb := v.Framebuffer()
	// First active line: 7 lit pixels then a padding pixel
	line := fb[BorderLines*FBWidth : BorderLines*FBWidth+8]
	for i := 0; i < 7; i++ {
		if line[i] != colWhite {
			t.Errorf("pixel %d = %d, want white", i, line[i])
		}
	}
	if line[7] != colBlack {
		t.Errorf("padding pixel = %d, want black", line[7])
	}
	// Border row above is black
	if fb[0] != colBlack {
		t.Errorf("border not black")
	}
	// Second render with nothing dirty is skipped
	if v.Render() {
		t.Errorf("clean frame re-rendered")
	}
}

func TestTextRowAddressing(t *testing.T) {
	v, mem, _, _ := newTestVideo(t)

	// Row 1 lives at $0480, row 8 at $0428
	mem.main[0x0480] = 0xFF
	mem.main[0x0428] = 0xFF
	v.MarkFrameDirty()
	v.Render()

	fb := v.Framebuffer()
	if fb[(BorderLines+8)*FBWidth] != colWhite {
		t.Errorf("row 1 glyph missing at line 8")
	}
	if fb[(BorderLines+64)*FBWidth] != colWhite {
		t.Errorf("row 8 glyph missing at line 64")
	}
}

func TestLoresRendering(t *testing.T) {
	v, mem, sw, _ := newTestVideo(t)
	sw.Set(memory.SwText, false)

	// Lower nibble paints the top half, upper nibble the bottom
	mem.main[0x0400] = 0x1F // top colour 15, bottom colour 1
	v.MarkFrameDirty()
	v.Render()

	fb := v.Framebuffer()
	top := fb[BorderLines*FBWidth]
	bottom := fb[(BorderLines+4)*FBWidth]
	if top != 0x0F {
		t.Errorf("top half colour = %d, want 15", top)
	}
	if bottom != 0x01 {
		t.Errorf("bottom half colour = %d, want 1", bottom)
	}
	// Block is 8 wide
	if fb[BorderLines*FBWidth+7] != 0x0F {
		t.Errorf("block narrower than 8 pixels")
	}
	if fb[BorderLines*FBWidth+8] != colBlack {
		t.Errorf("block wider than 8 pixels")
	}
}

func TestHiresWhiteRun(t *testing.T) {
	v, mem, sw, _ := newTestVideo(t)
	sw.Set(memory.SwText, false)
	sw.Set(memory.SwHires, true)

	// Two adjacent lit bits render white
	mem.main[0x2000] = 0x03
	v.MarkFrameDirty()
	v.Render()

	fb := v.Framebuffer()
	line := fb[BorderLines*FBWidth:]
	if line[20] == colBlack && line[21] == colBlack {
		t.Errorf("lit hires bits rendered black")
	}
	foundWhite := false
	for x := 20; x < 27; x++ {
		if line[x] == colWhite {
			foundWhite = true
		}
	}
	if !foundWhite {
		t.Errorf("adjacent lit bits should produce white")
	}
}

func TestHiresLoneBitIsColored(t *testing.T) {
	v, mem, sw, _ := newTestVideo(t)
	sw.Set(memory.SwText, false)
	sw.Set(memory.SwHires, true)

	// A lone bit at an even column, palette bit clear
	mem.main[0x2000] = 0x02 // bit 1 set: pixel x=1
	v.MarkFrameDirty()
	v.Render()

	fb := v.Framebuffer()
	px := fb[BorderLines*FBWidth+21] & 0x0F
	if px != colPurple && px != colGreen {
		t.Errorf("lone hires bit = %d, want purple or green family", px)
	}
}

func TestHiresMonochrome(t *testing.T) {
	v, mem, sw, _ := newTestVideo(t)
	sw.Set(memory.SwText, false)
	sw.Set(memory.SwHires, true)
	v.SetPalette(4) // green monochrome

	mem.main[0x2000] = 0x02
	v.MarkFrameDirty()
	v.Render()
	fb := v.Framebuffer()
	if got := fb[BorderLines*FBWidth+21]; got != colWhite {
		t.Errorf("monochrome lone bit = %d, want white index", got)
	}
}

func TestPage2Selection(t *testing.T) {
	v, mem, sw, _ := newTestVideo(t)

	mem.main[0x0400] = 0xFF
	mem.main[0x0800] = 0xBF
	sw.Set(memory.SwPage2, true)
	v.MarkFrameDirty()
	v.Render()
	fb := v.Framebuffer()
	// Page 2 glyph $3F has bits 0..5 set: pixel 6 dark
	if fb[BorderLines*FBWidth+6] != colBlack {
		t.Errorf("page 2 not selected")
	}

	// 80STORE forces page 1 regardless of PAGE2
	sw.Set(memory.Sw80Store, true)
	v.MarkFrameDirty()
	v.Render()
	fb = v.Framebuffer()
	if fb[BorderLines*FBWidth+6] != colWhite {
		t.Errorf("80STORE did not force page 1")
	}
}

func TestMixedMode(t *testing.T) {
	v, mem, sw, _ := newTestVideo(t)
	sw.Set(memory.SwText, false)
	sw.Set(memory.SwMixed, true)

	// Lores colour block in row 0, text glyph in row 20
	mem.main[0x0400] = 0x0F
	mem.main[rowAddr(0x0400, 20)] = 0xFF
	v.MarkFrameDirty()
	v.Render()
	fb := v.Framebuffer()
	if fb[BorderLines*FBWidth] != 0x0F {
		t.Errorf("graphics region missing in mixed mode")
	}
	if fb[(BorderLines+160)*FBWidth] != colWhite {
		t.Errorf("text rows missing in mixed mode")
	}
}

func TestDHGRModeSelection(t *testing.T) {
	v, _, sw, _ := newTestVideo(t)
	sw.Set(memory.SwDHires, true)
	if v.isDHGR() {
		t.Errorf("DHIRES alone should not select double hires")
	}
	sw.Set(memory.Sw80Col, true)
	if !v.isDHGR() {
		t.Errorf("DHIRES + 80COL should select double hires")
	}
	sw.Set(memory.Sw80Col, false)
	sw.AN3Mode = 2
	if !v.isDHGR() {
		t.Errorf("DHIRES + AN3 mode 2 should select double hires")
	}
}

func TestDHGRCentering(t *testing.T) {
	v, mem, sw, _ := newTestVideo(t)
	sw.Set(memory.SwText, false)
	sw.Set(memory.SwHires, true)
	sw.Set(memory.SwDHires, true)
	sw.Set(memory.Sw80Col, true)

	// Light every bit: the 2-bit shift leaves the leftmost edge dark
	for i := 0; i < 40; i++ {
		mem.aux[0x2000+i] = 0x7F
		mem.main[0x2000+i] = 0x7F
	}
	v.MarkFrameDirty()
	v.Render()
	fb := v.Framebuffer()
	line := fb[BorderLines*FBWidth : (BorderLines+1)*FBWidth]
	if line[0] == colWhite {
		t.Errorf("first pixel should sit in the shifted border")
	}
	lit := 0
	for _, p := range line {
		if p != colBlack {
			lit++
		}
	}
	if lit < 200 {
		t.Errorf("solid DHGR line only lit %d pixels", lit)
	}
}

func TestDirtyLineTracking(t *testing.T) {
	v, _, _, _ := newTestVideo(t)
	v.Render() // clear initial dirt

	v.TouchAddr(0x0400) // text row 0 -> lines 0..7
	if !v.DirtyLine(0) || !v.DirtyLine(7) {
		t.Errorf("text touch did not dirty lines 0-7")
	}
	if v.DirtyLine(8) {
		t.Errorf("text touch dirtied line 8")
	}

	v.Render()
	if v.DirtyLine(0) {
		t.Errorf("render did not clear dirty lines")
	}

	v.TouchAddr(0x2080) // hires line 8
	if !v.DirtyLine(8) {
		t.Errorf("hires touch did not dirty line 8")
	}
}

func TestPaletteWrap(t *testing.T) {
	v, _, _, _ := newTestVideo(t)
	v.SetPalette(PaletteCount)
	if v.Palette() != 0 {
		t.Errorf("out-of-range palette = %d, want wrap to 0", v.Palette())
	}
	v.SetPalette(4)
	if !v.Monochrome() {
		t.Errorf("palette 4 should be monochrome")
	}
	v.SetPalette(5)
	if !v.Monochrome() {
		t.Errorf("palette 5 should be monochrome")
	}
}

func TestCLUTDimmedHalf(t *testing.T) {
	v, _, _, _ := newTestVideo(t)
	clut := v.CLUT()
	// The dimmed white must be darker than white
	w, dw := clut[15], clut[31]
	if uint32(dw.R)+uint32(dw.G)+uint32(dw.B) >= uint32(w.R)+uint32(w.G)+uint32(w.B) {
		t.Errorf("dimmed white not dimmer: %v vs %v", dw, w)
	}
}

func TestFlashCodes(t *testing.T) {
	v, mem, _, _ := newTestVideo(t)
	// Code $40 is in the flashing range: with frameCount bit 4 clear it
	// renders as $80's glyph (bits 0), with the bit set as $00 (bits 0)
	mem.main[0x0400] = 0x41
	v.MarkFrameDirty()
	v.Render()
	fb1 := make([]uint8, 8)
	copy(fb1, v.Framebuffer()[BorderLines*FBWidth:])

	v.frameCount += 0x10
	v.MarkFrameDirty()
	v.Render()
	fb2 := make([]uint8, 8)
	copy(fb2, v.Framebuffer()[BorderLines*FBWidth:])

	same := true
	for i := range fb1 {
		if fb1[i] != fb2[i] {
			same = false
		}
	}
	if same {
		t.Errorf("flashing glyph did not alternate")
	}
}

func TestVaporByteDeterministic(t *testing.T) {
	v, _, _, _ := newTestVideo(t)
	a := v.VaporByte()
	b := v.VaporByte()
	if a != b {
		t.Errorf("vapor byte not deterministic without cycle movement: %02X vs %02X", a, b)
	}
}
