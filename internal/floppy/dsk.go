package floppy

import (
	"fmt"

	"iie-core/internal/debug"
)

// DSKSize is the exact size of a DSK / DO / PO sector image
const DSKSize = TrackCount * SectorsPerTrack * SectorSize

// ConvertDSK nibblizes a 143,360-byte sector image into 35 track
// bitstreams. prodos selects the ProDOS sector interleave (.po); otherwise
// the DOS 3.3 map applies. Every track gets a sector map recording where
// each sector landed in the bitstream and where its payload lives in the
// source image.
func ConvertDSK(image []uint8, prodos bool, tracks *[TrackCount]Track, logger *debug.Logger) error {
	if len(image) != DSKSize {
		return fmt.Errorf("floppy: sector image is %d bytes, want %d", len(image), DSKSize)
	}
	interleave := &dos33SectorMap
	if prodos {
		interleave = &prodosSectorMap
	}
	for t := 0; t < TrackCount; t++ {
		track := &tracks[t]
		*track = Track{}
		w := newBitWriter(track)
		for ps := 0; ps < SectorsPerTrack; ps++ {
			logical := interleave[ps]
			fileOff := uint32(t)*SectorsPerTrack*SectorSize + uint32(logical)*SectorSize
			var data [SectorSize]uint8
			copy(data[:], image[fileOff:fileOff+SectorSize])

			// Long sync run after the index, shorter ones between sectors
			syncCount := 20
			if ps == 0 {
				syncCount = 40
			}
			addrPos := encodeSector(w, defaultVolume, uint8(t), uint8(ps), &data, syncCount)
			track.Map.Sectors[ps] = SectorPos{BitPosition: addrPos, FileOffset: fileOff}
		}
		w.finish()
		track.HasMap = true
		if track.BitCount > MaxBitCount {
			return fmt.Errorf("floppy: track %d overflows bitstream (%d bits)", t, track.BitCount)
		}
	}
	if logger != nil {
		logger.LogFloppyf(debug.LogLevelInfo, "converted %d-byte sector image (prodos=%v)", len(image), prodos)
	}
	return nil
}

// DecodeDSK reverses ConvertDSK: every track's bitstream decodes back into
// the sector image layout. Used by the round-trip tests and by image
// export.
func DecodeDSK(tracks *[TrackCount]Track, prodos bool) ([]uint8, error) {
	interleave := &dos33SectorMap
	if prodos {
		interleave = &prodosSectorMap
	}
	out := make([]uint8, DSKSize)
	for t := 0; t < TrackCount; t++ {
		sectors, err := DecodeSectors(&tracks[t])
		if err != nil {
			return nil, fmt.Errorf("floppy: track %d: %w", t, err)
		}
		for ps := 0; ps < SectorsPerTrack; ps++ {
			data, ok := sectors[uint8(ps)]
			if !ok {
				return nil, fmt.Errorf("floppy: track %d missing sector %d", t, ps)
			}
			logical := interleave[ps]
			fileOff := t*SectorsPerTrack*SectorSize + int(logical)*SectorSize
			copy(out[fileOff:fileOff+SectorSize], data[:])
		}
	}
	return out, nil
}
