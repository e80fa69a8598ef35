package memory

import (
	"testing"
)

func testROM(t *testing.T) []uint8 {
	t.Helper()
	rom := make([]uint8, 16384)
	for i := range rom {
		rom[i] = uint8(i)
	}
	return rom
}

func newTestBus(t *testing.T) *Bus {
	t.Helper()
	b, err := NewBus(nil, testROM(t), nil)
	if err != nil {
		t.Fatalf("NewBus: %v", err)
	}
	return b
}

func TestRAMReadAfterWrite(t *testing.T) {
	b := newTestBus(t)
	for _, addr := range []uint16{0x0000, 0x0200, 0x0427, 0x2000, 0xBFFF} {
		b.Write8(addr, 0x5A)
		if got := b.Read8(addr); got != 0x5A {
			t.Errorf("read after write at %04X = %02X", addr, got)
		}
	}
}

func TestROMReads(t *testing.T) {
	b := newTestBus(t)
	// Power-on state reads ROM at $D000..$FFFF
	if got := b.Read8(0xD123); got != testROM(t)[0xD123-0xC000] {
		t.Errorf("ROM read at D123 = %02X", got)
	}
	// Writes to the ROM region with the language card off are dropped
	b.Write8(0xD123, 0x00)
	if got := b.Read8(0xD123); got != testROM(t)[0xD123-0xC000] {
		t.Errorf("ROM write leaked through")
	}
}

func TestVideoModeSwitches(t *testing.T) {
	b := newTestBus(t)
	if !b.SW.Get(SwText) {
		t.Fatalf("power-on state should be text mode")
	}
	b.Read8(0xC050)
	if b.SW.Get(SwText) {
		t.Errorf("access to $C050 should clear TEXT")
	}
	b.Read8(0xC053)
	if !b.SW.Get(SwMixed) {
		t.Errorf("access to $C053 should set MIXED")
	}
	b.Write8(0xC055, 0)
	if !b.SW.Get(SwPage2) {
		t.Errorf("write to $C055 should set PAGE2")
	}
	b.Read8(0xC057)
	if !b.SW.Get(SwHires) {
		t.Errorf("access to $C057 should set HIRES")
	}
}

func TestStatusReads(t *testing.T) {
	b := newTestBus(t)
	b.Read8(0xC051)
	if got := b.Read8(0xC01A); got&0x80 == 0 {
		t.Errorf("$C01A should report TEXT set, got %02X", got)
	}
	b.Read8(0xC050)
	if got := b.Read8(0xC01A); got&0x80 != 0 {
		t.Errorf("$C01A should report TEXT clear, got %02X", got)
	}
}

func TestAuxBankSteering(t *testing.T) {
	b := newTestBus(t)
	b.Write8(0x0300, 0x11)

	// RAMWRT on: writes land in aux, reads still come from main
	b.Write8(0xC005, 0)
	b.Write8(0x0300, 0x22)
	if got := b.Read8(0x0300); got != 0x11 {
		t.Errorf("read with RAMRD off = %02X, want main's 11", got)
	}
	// RAMRD on: the aux byte appears
	b.Write8(0xC003, 0)
	if got := b.Read8(0x0300); got != 0x22 {
		t.Errorf("read with RAMRD on = %02X, want aux's 22", got)
	}
	// Back to main
	b.Write8(0xC002, 0)
	b.Write8(0xC004, 0)
	if got := b.Read8(0x0300); got != 0x11 {
		t.Errorf("read back in main = %02X", got)
	}
}

func TestEightyStoreSteering(t *testing.T) {
	b := newTestBus(t)
	b.Write8(0x0400, 0x33)

	b.Write8(0xC001, 0) // 80STORE on
	b.Write8(0xC055, 0) // PAGE2 on: text window goes to aux
	b.Write8(0x0400, 0x44)
	if got := b.Read8(0x0400); got != 0x44 {
		t.Errorf("aux text read = %02X", got)
	}
	b.Write8(0xC054, 0) // PAGE2 off: main again
	if got := b.Read8(0x0400); got != 0x33 {
		t.Errorf("main text read = %02X, want 33", got)
	}
	// Outside the window RAMRD/RAMWRT still rule
	b.Write8(0xC055, 0)
	b.Write8(0x0900, 0x55)
	if got := b.Read8(0x0900); got != 0x55 {
		t.Errorf("non-window address steered wrongly: %02X", got)
	}
}

func TestAltZP(t *testing.T) {
	b := newTestBus(t)
	b.Write8(0x0042, 0x66)
	b.Write8(0xC009, 0) // ALTZP on
	b.Write8(0x0042, 0x77)
	if got := b.Read8(0x0042); got != 0x77 {
		t.Errorf("alt zero page = %02X", got)
	}
	b.Write8(0xC008, 0)
	if got := b.Read8(0x0042); got != 0x66 {
		t.Errorf("main zero page = %02X, want 66", got)
	}
}

func TestLanguageCard(t *testing.T) {
	b := newTestBus(t)

	// Two reads of $C083 enable read/write RAM in bank 2
	b.Read8(0xC083)
	b.Read8(0xC083)
	if !b.SW.Get(SwLCRead) || !b.SW.Get(SwLCWrite) || !b.SW.Get(SwLCBank2) {
		t.Fatalf("double $C083 read should enable LC RAM r/w bank2")
	}
	b.Write8(0xD000, 0xB2)
	b.Write8(0xE000, 0xE1)
	if got := b.Read8(0xD000); got != 0xB2 {
		t.Errorf("LC bank2 $D000 = %02X", got)
	}
	if got := b.Read8(0xE000); got != 0xE1 {
		t.Errorf("LC $E000 = %02X", got)
	}

	// Bank 1 is distinct at $D000
	b.Read8(0xC08B)
	b.Read8(0xC08B)
	if b.SW.Get(SwLCBank2) {
		t.Fatalf("$C08B should select bank 1")
	}
	b.Write8(0xD000, 0xB1)
	if got := b.Read8(0xD000); got != 0xB1 {
		t.Errorf("LC bank1 $D000 = %02X", got)
	}
	b.Read8(0xC083)
	b.Read8(0xC083)
	if got := b.Read8(0xD000); got != 0xB2 {
		t.Errorf("LC bank2 $D000 lost its byte: %02X", got)
	}

	// $C080 reads RAM but write-protects it
	b.Read8(0xC080)
	if b.SW.Get(SwLCWrite) {
		t.Errorf("$C080 should disable LC writes")
	}
	b.Write8(0xD000, 0x00)
	if got := b.Read8(0xD000); got != 0xB2 {
		t.Errorf("write-protected LC RAM changed: %02X", got)
	}

	// A single read of an odd switch does not enable writes
	b.Read8(0xC080)
	b.Read8(0xC081)
	if b.SW.Get(SwLCWrite) {
		t.Errorf("single odd read must not enable writes")
	}
	b.Read8(0xC081)
	if !b.SW.Get(SwLCWrite) {
		t.Errorf("second consecutive odd read should enable writes")
	}
	// A write access to the odd switch resets the pre-write latch
	b.Read8(0xC080)
	b.Write8(0xC081, 0)
	b.Write8(0xC081, 0)
	if b.SW.Get(SwLCWrite) {
		t.Errorf("odd write accesses must not enable writes")
	}
}

type testKeyboard struct {
	latch uint8
	akd   bool
}

func (k *testKeyboard) Latch() uint8     { return k.latch }
func (k *testKeyboard) ClearStrobe()     { k.latch &= 0x7F }
func (k *testKeyboard) AnyKeyDown() bool { return k.akd }

func TestKeyboardStrobe(t *testing.T) {
	b := newTestBus(t)
	kbd := &testKeyboard{latch: 'A' | 0x80, akd: true}
	b.Keyboard = kbd

	if got := b.Read8(0xC000); got != ('A' | 0x80) {
		t.Errorf("$C000 = %02X", got)
	}
	// $C010 clears the strobe and reports any-key-down
	if got := b.Read8(0xC010); got&0x80 == 0 {
		t.Errorf("$C010 should report any-key-down")
	}
	if got := b.Read8(0xC000); got&0x80 != 0 {
		t.Errorf("strobe not cleared: %02X", got)
	}
}

func TestSpeakerClick(t *testing.T) {
	b := newTestBus(t)
	var clicks []uint64
	cycle := uint64(1234)
	b.Cycle = func() uint64 { return cycle }
	b.SpeakerClick = func(c uint64) { clicks = append(clicks, c) }

	b.Read8(0xC030)
	cycle = 2345
	b.Write8(0xC030, 0)
	if len(clicks) != 2 || clicks[0] != 1234 || clicks[1] != 2345 {
		t.Errorf("clicks = %v", clicks)
	}
}

func TestVideoTouchNotification(t *testing.T) {
	b := newTestBus(t)
	var touched []uint16
	b.VideoTouch = func(addr uint16) { touched = append(touched, addr) }

	b.Write8(0x0427, 0x01) // text page
	b.Write8(0x2100, 0x02) // hires page
	b.Write8(0x1234, 0x03) // plain RAM
	if len(touched) != 2 || touched[0] != 0x0427 || touched[1] != 0x2100 {
		t.Errorf("touched = %v", touched)
	}

	// DMA-style writes notify too
	touched = nil
	b.WriteRange(0x0400, []uint8{1, 2, 3})
	if len(touched) != 3 {
		t.Errorf("WriteRange touched %d addresses, want 3", len(touched))
	}
}

func TestVaporRead(t *testing.T) {
	b := newTestBus(t)
	b.VaporRead = func() uint8 { return 0x42 }
	if got := b.Read8(0xC07F); got != 0x42 {
		t.Errorf("unknown soft-switch read = %02X, want vapor 42", got)
	}
}

func TestColdStartZeroesRAM(t *testing.T) {
	b := newTestBus(t)
	b.Write8(0x0300, 0xFF)
	b.Write8(0xC003, 0) // aux
	b.Write8(0xC005, 0)
	b.Write8(0x0300, 0xEE)
	b.ColdStart()
	if got := b.Read8(0x0300); got != 0 {
		t.Errorf("main RAM not zeroed: %02X", got)
	}
	if !b.SW.Get(SwText) {
		t.Errorf("cold start should restore text mode")
	}
}
