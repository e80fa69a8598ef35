package floppy

import (
	"fmt"
)

// The standard 6-and-2 write translate table: 6-bit values to disk nibbles
var write62 = [64]uint8{
	0x96, 0x97, 0x9A, 0x9B, 0x9D, 0x9E, 0x9F, 0xA6,
	0xA7, 0xAB, 0xAC, 0xAD, 0xAE, 0xAF, 0xB2, 0xB3,
	0xB4, 0xB5, 0xB6, 0xB7, 0xB9, 0xBA, 0xBB, 0xBC,
	0xBD, 0xBE, 0xBF, 0xCB, 0xCD, 0xCE, 0xCF, 0xD3,
	0xD6, 0xD7, 0xD9, 0xDA, 0xDB, 0xDC, 0xDD, 0xDE,
	0xDF, 0xE5, 0xE6, 0xE7, 0xE9, 0xEA, 0xEB, 0xEC,
	0xED, 0xEE, 0xEF, 0xF2, 0xF3, 0xF4, 0xF5, 0xF6,
	0xF7, 0xF9, 0xFA, 0xFB, 0xFC, 0xFD, 0xFE, 0xFF,
}

// read62 is the inverse table, built at init; 0xFF marks invalid nibbles
var read62 [256]uint8

func init() {
	for i := range read62 {
		read62[i] = 0xFF
	}
	for v, n := range write62 {
		read62[n] = uint8(v)
	}
}

// Physical-to-logical sector interleave maps
var (
	// dos33SectorMap is used for .dsk / .do images
	dos33SectorMap = [SectorsPerTrack]uint8{
		0x0, 0x7, 0xE, 0x6, 0xD, 0x5, 0xC, 0x4,
		0xB, 0x3, 0xA, 0x2, 0x9, 0x1, 0x8, 0xF,
	}
	// prodosSectorMap is used for .po images
	prodosSectorMap = [SectorsPerTrack]uint8{
		0x0, 0x8, 0x1, 0x9, 0x2, 0xA, 0x3, 0xB,
		0x4, 0xC, 0x5, 0xD, 0x6, 0xE, 0x7, 0xF,
	}
)

// Default DOS 3.3 volume number encoded into address fields
const defaultVolume = 254

// write44 appends a 4-and-4 encoded byte pair
func write44(w *bitWriter, v uint8) {
	w.writeByte(v>>1 | 0xAA)
	w.writeByte(v | 0xAA)
}

// prenibble expands 256 data bytes into the 342-entry 6-bit buffer: 86
// entries of packed low bits followed by the 256 high six-bit values.
func prenibble(data *[SectorSize]uint8) [342]uint8 {
	var out [342]uint8
	for i := 0; i < SectorSize; i++ {
		out[86+i] = data[i] >> 2
		// Each of the 86 low-bit entries packs up to three source bytes,
		// two bit-reversed bits each
		low := data[i] & 0x3
		rev := (low&1)<<1 | low>>1
		out[85-i%86] |= rev << uint(2*(i/86))
	}
	return out
}

// postnibble reverses prenibble
func postnibble(buf *[342]uint8) [SectorSize]uint8 {
	var out [SectorSize]uint8
	for i := 0; i < SectorSize; i++ {
		slot := 85 - i%86
		rev := buf[slot] >> uint(2*(i/86)) & 0x3
		low := (rev&1)<<1 | rev>>1
		out[i] = buf[86+i]<<2 | low
	}
	return out
}

// encodeSector appends one complete sector to the track bitstream: address
// field, gap, data field. syncCount self-sync nibbles lead the address
// field.
func encodeSector(w *bitWriter, volume, track, sector uint8, data *[SectorSize]uint8, syncCount int) uint32 {
	for i := 0; i < syncCount; i++ {
		w.writeSync()
	}

	addrPos := w.pos

	// Address field
	w.writeByte(0xD5)
	w.writeByte(0xAA)
	w.writeByte(0x96)
	write44(w, volume)
	write44(w, track)
	write44(w, sector)
	write44(w, volume^track^sector)
	w.writeByte(0xDE)
	w.writeByte(0xAA)
	w.writeByte(0xEB)

	// Gap before the data field
	for i := 0; i < 4; i++ {
		w.writeSync()
	}

	// Data field
	w.writeByte(0xD5)
	w.writeByte(0xAA)
	w.writeByte(0xAD)
	buf := prenibble(data)
	prev := uint8(0)
	for _, v := range buf {
		w.writeByte(write62[v^prev])
		prev = v
	}
	w.writeByte(write62[prev])
	w.writeByte(0xDE)
	w.writeByte(0xAA)
	w.writeByte(0xEB)

	return addrPos
}

// DecodeSectors walks a track bitstream and recovers all 16 physical
// sectors. Returns an error naming the first sector that fails to decode.
func DecodeSectors(t *Track) (map[uint8][SectorSize]uint8, error) {
	out := make(map[uint8][SectorSize]uint8)
	if t.BitCount == 0 {
		return out, fmt.Errorf("floppy: empty track")
	}
	r := newBitReader(t, 0)
	budget := int(t.BitCount) * 2 / 8 // nibbles, two revolutions
	for len(out) < SectorsPerTrack && budget > 0 {
		// Hunt for the address prologue
		if r.nextNibble() != 0xD5 {
			budget--
			continue
		}
		if r.nextNibble() != 0xAA {
			budget -= 2
			continue
		}
		if r.nextNibble() != 0x96 {
			budget -= 3
			continue
		}
		vol := read44(r)
		trk := read44(r)
		sec := read44(r)
		chk := read44(r)
		if vol^trk^sec != chk {
			return out, fmt.Errorf("floppy: address checksum mismatch on sector %d", sec)
		}
		// Skip to the data prologue
		found := false
		for i := 0; i < 40; i++ {
			if r.nextNibble() == 0xD5 && r.nextNibble() == 0xAA && r.nextNibble() == 0xAD {
				found = true
				break
			}
		}
		if !found {
			return out, fmt.Errorf("floppy: sector %d has no data field", sec)
		}
		var buf [342]uint8
		prev := uint8(0)
		for i := range buf {
			v := read62[r.nextNibble()]
			if v == 0xFF {
				return out, fmt.Errorf("floppy: invalid nibble in sector %d", sec)
			}
			prev ^= v
			buf[i] = prev
		}
		// The running value after the last data nibble is the checksum
		sum := read62[r.nextNibble()]
		if sum != prev {
			return out, fmt.Errorf("floppy: data checksum mismatch on sector %d", sec)
		}
		if _, dup := out[sec]; !dup && sec < SectorsPerTrack {
			out[sec] = postnibble(&buf)
		}
		budget -= 400
	}
	if len(out) < SectorsPerTrack {
		return out, fmt.Errorf("floppy: track incomplete: decoded %d of %d sectors", len(out), SectorsPerTrack)
	}
	return out, nil
}

// read44 reads a 4-and-4 encoded byte
func read44(r *bitReader) uint8 {
	a := r.nextNibble()
	b := r.nextNibble()
	return (a<<1 | 1) & b
}
