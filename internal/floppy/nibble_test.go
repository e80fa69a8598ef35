package floppy

import (
	"testing"
)

func TestWriteTableInverse(t *testing.T) {
	for v := 0; v < 64; v++ {
		n := write62[v]
		if n&0x80 == 0 {
			t.Errorf("nibble %02X for %02X lacks the high bit", n, v)
		}
		if read62[n] != uint8(v) {
			t.Errorf("read table does not invert %02X", v)
		}
	}
	// Nibbles outside the table are invalid
	if read62[0x00] != 0xFF || read62[0xD5] != 0xFF {
		t.Errorf("reserved nibbles should be invalid")
	}
}

func TestPrenibbleRoundTrip(t *testing.T) {
	var data [SectorSize]uint8
	for i := range data {
		data[i] = uint8(i*7 + 3)
	}
	buf := prenibble(&data)
	back := postnibble(&buf)
	if back != data {
		t.Fatalf("prenibble/postnibble round trip failed")
	}
	// All entries fit in 6 bits
	for i, v := range buf {
		if v&0xC0 != 0 {
			t.Errorf("entry %d = %02X exceeds 6 bits", i, v)
		}
	}
}

func TestEncodeDecodeSector(t *testing.T) {
	var track Track
	w := newBitWriter(&track)

	var data [SectorSize]uint8
	for i := range data {
		data[i] = uint8(255 - i)
	}
	encodeSector(w, defaultVolume, 7, 3, &data, 40)
	w.finish()

	sectors, err := DecodeSectors(&track)
	if err == nil {
		t.Fatalf("expected incomplete-track error with a single sector")
	}
	got, ok := sectors[3]
	if !ok {
		t.Fatalf("sector 3 not decoded: %v", err)
	}
	if got != data {
		t.Fatalf("sector payload mismatch")
	}
}

func TestEncodeFullTrack(t *testing.T) {
	var track Track
	w := newBitWriter(&track)
	for ps := 0; ps < SectorsPerTrack; ps++ {
		var data [SectorSize]uint8
		for i := range data {
			data[i] = uint8(ps ^ i)
		}
		sync := 20
		if ps == 0 {
			sync = 40
		}
		encodeSector(w, defaultVolume, 0, uint8(ps), &data, sync)
	}
	w.finish()

	if track.BitCount > MaxBitCount {
		t.Fatalf("track overflows: %d bits", track.BitCount)
	}

	sectors, err := DecodeSectors(&track)
	if err != nil {
		t.Fatalf("DecodeSectors: %v", err)
	}
	for ps := 0; ps < SectorsPerTrack; ps++ {
		data := sectors[uint8(ps)]
		for i := 0; i < SectorSize; i++ {
			if data[i] != uint8(ps^i) {
				t.Fatalf("sector %d byte %d = %02X, want %02X", ps, i, data[i], ps^i)
			}
		}
	}
}

func TestTrackBitAccess(t *testing.T) {
	track := Track{BitCount: 100}
	track.WriteBit(5, true)
	if !track.ReadBit(5) {
		t.Errorf("bit 5 not set")
	}
	// Positions wrap at the bit count
	if !track.ReadBit(105) {
		t.Errorf("circular read did not wrap")
	}
	track.WriteBit(105, false)
	if track.ReadBit(5) {
		t.Errorf("circular write did not wrap")
	}
	if !track.Dirty {
		t.Errorf("writes should mark the track dirty")
	}
}
