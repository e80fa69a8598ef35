package vram

import (
	"path/filepath"
	"testing"
)

func newTestVRAM(t *testing.T, pool int) *VRAM {
	t.Helper()
	v, err := New(pool, filepath.Join(t.TempDir(), "swap.bin"), nil)
	if err != nil {
		t.Fatalf("New(%d): %v", pool, err)
	}
	t.Cleanup(func() { v.Close() })
	return v
}

// TestColdReadsZero tests that untouched guest pages read as zero
func TestColdReadsZero(t *testing.T) {
	v := newTestVRAM(t, 16)
	for _, addr := range []uint16{0x0000, 0x0180, 0x2000, 0x8042, 0xFFFF} {
		if got := v.ReadByte(addr); got != 0 {
			t.Errorf("cold read at %04X = %02X, want 00", addr, got)
		}
	}
}

// TestReadAfterWrite tests basic coherence without eviction pressure
func TestReadAfterWrite(t *testing.T) {
	v := newTestVRAM(t, 16)
	v.WriteByte(0x0123, 0xAB)
	if got := v.ReadByte(0x0123); got != 0xAB {
		t.Errorf("read after write = %02X, want AB", got)
	}
}

// TestEvictionCoherence writes distinct bytes across 64 pages through a
// 66-page pool, then reads them back in reverse order. Every read must
// return the written byte no matter how many evictions happened in
// between.
func TestEvictionCoherence(t *testing.T) {
	v := newTestVRAM(t, 66)

	for i := 0; i < 64; i++ {
		page := uint16(32 + 3*i)
		if page > 0xFF {
			t.Fatalf("test page table overflow")
		}
		addr := page << 8
		v.WriteByte(addr, uint8(i+1))
	}
	for i := 63; i >= 0; i-- {
		page := uint16(32 + 3*i)
		addr := page << 8
		if got := v.ReadByte(addr); got != uint8(i+1) {
			t.Errorf("page %02X read back %02X, want %02X", page, got, i+1)
		}
	}
	if v.FlushCount == 0 {
		t.Errorf("expected dirty flushes under eviction pressure, got none")
	}
}

// TestPinnedPagesSurviveEviction tests that the zero page and stack never
// leave the cache
func TestPinnedPagesSurviveEviction(t *testing.T) {
	v := newTestVRAM(t, 4)
	v.WriteByte(0x0010, 0x42)
	v.WriteByte(0x01F0, 0x43)

	// Touch far more pages than the pool holds
	for p := 4; p < 200; p++ {
		v.WriteByte(uint16(p)<<8, uint8(p))
	}

	if got := v.ReadByte(0x0010); got != 0x42 {
		t.Errorf("zero page lost its byte: %02X", got)
	}
	if got := v.ReadByte(0x01F0); got != 0x43 {
		t.Errorf("stack page lost its byte: %02X", got)
	}
}

// TestPinRange tests that a pinned range stays resident while other pages
// churn
func TestPinRange(t *testing.T) {
	v := newTestVRAM(t, 8)
	v.Write(0x3000, []uint8{1, 2, 3, 4})
	v.PinRange(0x3000, 0x200)

	for p := 0x80; p < 0x100; p++ {
		v.WriteByte(uint16(p)<<8, 0x55)
	}

	var buf [4]uint8
	v.Read(0x3000, buf[:])
	if buf != [4]uint8{1, 2, 3, 4} {
		t.Errorf("pinned range corrupted: %v", buf)
	}
}

// TestPinRangeIdentityWhenFull tests that a full pool skips pinning
func TestPinRangeIdentityWhenFull(t *testing.T) {
	v := newTestVRAM(t, GuestPages)
	if !v.Full() {
		t.Fatalf("pool of %d pages should be full", GuestPages)
	}
	v.PinRange(0x0000, 0x10000/2)
	if v.FlushCount != 0 {
		t.Errorf("identity pool flushed %d pages", v.FlushCount)
	}
}

// TestMultiBytePageCross tests reads and writes spanning page boundaries
func TestMultiBytePageCross(t *testing.T) {
	v := newTestVRAM(t, 16)
	data := []uint8{0x11, 0x22, 0x33, 0x44, 0x55}
	v.Write(0x02FE, data)
	var buf [5]uint8
	v.Read(0x02FE, buf[:])
	for i := range data {
		if buf[i] != data[i] {
			t.Errorf("byte %d = %02X, want %02X", i, buf[i], data[i])
		}
	}
}

// TestZero tests that Zero clears both cache and swap-backed pages
func TestZero(t *testing.T) {
	v := newTestVRAM(t, 8)
	for p := 2; p < 100; p++ {
		v.WriteByte(uint16(p)<<8, 0xEE)
	}
	v.Zero()
	for p := 2; p < 100; p += 7 {
		if got := v.ReadByte(uint16(p) << 8); got != 0 {
			t.Errorf("page %02X not zeroed: %02X", p, got)
		}
	}
}
