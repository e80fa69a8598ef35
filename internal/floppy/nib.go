package floppy

import (
	"fmt"

	"iie-core/internal/debug"
)

// NIBSize is the exact size of a raw nibble image
const NIBSize = TrackCount * TrackBytes

// ConvertNIB re-times a raw 6656-byte-per-track nibble image into track
// bitstreams. Address and data fields are located by their markers and
// copied verbatim; the byte-aligned sync runs of the source are replaced by
// proper 10-bit self-sync nibbles. Tracks missing sectors are reported but
// conversion continues.
func ConvertNIB(image []uint8, tracks *[TrackCount]Track, logger *debug.Logger) error {
	if len(image) != NIBSize {
		return fmt.Errorf("floppy: nibble image is %d bytes, want %d", len(image), NIBSize)
	}
	incomplete := 0
	for t := 0; t < TrackCount; t++ {
		raw := image[t*TrackBytes : (t+1)*TrackBytes]
		track := &tracks[t]
		*track = Track{}
		w := newBitWriter(track)

		found := 0
		pos := 0
		first := true
		for pos+4 <= len(raw) {
			if raw[pos] != 0xFF || raw[pos+1] != 0xD5 || raw[pos+2] != 0xAA {
				pos++
				continue
			}
			switch raw[pos+3] {
			case 0x96:
				// Address field: sync lead-in, then the 15 field bytes
				// copied verbatim
				syncCount := 20
				if first {
					syncCount = 40
					first = false
				}
				for i := 0; i < syncCount; i++ {
					w.writeSync()
				}
				end := pos + 1 + 15
				if end > len(raw) {
					end = len(raw)
				}
				for _, b := range raw[pos+1 : end] {
					w.writeByte(b)
				}
				pos = end
				found++
			case 0xAD:
				// Data field: short sync lead-in, then 350 bytes verbatim
				for i := 0; i < 4; i++ {
					w.writeSync()
				}
				end := pos + 1 + 350
				if end > len(raw) {
					end = len(raw)
				}
				for _, b := range raw[pos+1 : end] {
					w.writeByte(b)
				}
				pos = end
			default:
				pos++
			}
		}
		w.finish()
		if found < SectorsPerTrack {
			incomplete++
			if logger != nil {
				logger.LogFloppyf(debug.LogLevelWarning,
					"nibble track %d incomplete: %d of %d address fields", t, found, SectorsPerTrack)
			}
		}
	}
	if logger != nil {
		logger.LogFloppyf(debug.LogLevelInfo, "converted nibble image, %d incomplete tracks", incomplete)
	}
	return nil
}
