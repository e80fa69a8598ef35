package floppy

import (
	"encoding/binary"
	"fmt"

	"iie-core/internal/debug"
)

// WOZ container constants
const (
	wozHeaderSize = 12
	wozChunkHead  = 8
	woz1TrackSize = 6656
	woz1ByteCountOff = 6646
	woz1BitCountOff  = 6648
)

// WOZInfo is the result of parsing a WOZ container: the quarter-track map
// and the per-quarter-track bit streams already folded onto physical
// tracks.
type WOZInfo struct {
	Version int
	TMap    [QTrackCount]uint8
}

// ConvertWOZ parses a WOZ1 or WOZ2 container into 35 physical track
// bitstreams plus the quarter-track map. Optional chunks are ignored.
func ConvertWOZ(image []uint8, tracks *[TrackCount]Track, logger *debug.Logger) (*WOZInfo, error) {
	if len(image) < wozHeaderSize {
		return nil, fmt.Errorf("floppy: woz image too short (%d bytes)", len(image))
	}
	info := &WOZInfo{}
	switch string(image[:4]) {
	case "WOZ1":
		info.Version = 1
	case "WOZ2":
		info.Version = 2
	default:
		return nil, fmt.Errorf("floppy: bad woz magic %q", image[:4])
	}
	for i := range info.TMap {
		info.TMap[i] = NoiseTrack
	}

	var tmap, trks []uint8
	pos := wozHeaderSize
	for pos+wozChunkHead <= len(image) {
		id := string(image[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(image[pos+4 : pos+8]))
		body := pos + wozChunkHead
		if body+size > len(image) {
			return nil, fmt.Errorf("floppy: woz chunk %q overruns image", id)
		}
		switch id {
		case "TMAP":
			tmap = image[body : body+size]
		case "TRKS":
			trks = image[body : body+size]
		}
		pos = body + size
	}
	if tmap == nil || trks == nil {
		return nil, fmt.Errorf("floppy: woz image missing TMAP or TRKS chunk")
	}
	if len(tmap) < QTrackCount {
		return nil, fmt.Errorf("floppy: woz TMAP is %d bytes, want %d", len(tmap), QTrackCount)
	}
	copy(info.TMap[:], tmap[:QTrackCount])

	if info.Version == 2 {
		if err := parseWOZ2Tracks(image, trks, info, tracks); err != nil {
			return nil, err
		}
	} else {
		if err := parseWOZ1Tracks(trks, info, tracks); err != nil {
			return nil, err
		}
	}
	if logger != nil {
		logger.LogFloppyf(debug.LogLevelInfo, "converted WOZ%d image", info.Version)
	}
	return info, nil
}

// parseWOZ2Tracks reads the 160-entry TRKS table of WOZ2: each entry points
// at a 512-byte-aligned bit array in the file.
func parseWOZ2Tracks(image, trks []uint8, info *WOZInfo, tracks *[TrackCount]Track) error {
	if len(trks) < QTrackCount*8 {
		return fmt.Errorf("floppy: woz2 TRKS table is %d bytes, want %d", len(trks), QTrackCount*8)
	}
	for q := 0; q < QTrackCount; q++ {
		phys := info.TMap[q]
		if phys == NoiseTrack || int(phys) >= TrackCount {
			continue
		}
		t := &tracks[phys]
		if t.BitCount != 0 {
			continue // track already filled from another quarter position
		}
		entry := trks[q*8 : q*8+8]
		startBlock := binary.LittleEndian.Uint16(entry[0:2])
		blockCount := binary.LittleEndian.Uint16(entry[2:4])
		bitCount := binary.LittleEndian.Uint32(entry[4:8])
		if bitCount == 0 || blockCount == 0 {
			continue
		}
		if bitCount > MaxBitCount {
			return fmt.Errorf("floppy: woz2 track %d has %d bits, exceeds %d", phys, bitCount, MaxBitCount)
		}
		off := int(startBlock) * 512
		n := int(bitCount+7) / 8
		if off+n > len(image) {
			return fmt.Errorf("floppy: woz2 track %d bit array overruns image", phys)
		}
		copy(t.Data[:], image[off:off+n])
		t.BitCount = bitCount
	}
	return nil
}

// parseWOZ1Tracks reads the fixed 6656-byte track records of WOZ1 with
// their trailing byte/bit counts.
func parseWOZ1Tracks(trks []uint8, info *WOZInfo, tracks *[TrackCount]Track) error {
	count := len(trks) / woz1TrackSize
	for q := 0; q < QTrackCount; q++ {
		phys := info.TMap[q]
		if phys == NoiseTrack || int(phys) >= TrackCount {
			continue
		}
		t := &tracks[phys]
		if t.BitCount != 0 {
			continue
		}
		// WOZ1 stores one record per used quarter track, in TMAP value
		// order; the TMAP value indexes the record directly
		rec := int(phys)
		if rec >= count {
			continue
		}
		body := trks[rec*woz1TrackSize : (rec+1)*woz1TrackSize]
		byteCount := binary.LittleEndian.Uint16(body[woz1ByteCountOff : woz1ByteCountOff+2])
		bitCount := binary.LittleEndian.Uint16(body[woz1BitCountOff : woz1BitCountOff+2])
		if bitCount == 0 {
			continue
		}
		if int(byteCount) > woz1ByteCountOff {
			return fmt.Errorf("floppy: woz1 track %d byte count %d too large", phys, byteCount)
		}
		copy(t.Data[:], body[:byteCount])
		t.BitCount = uint32(bitCount)
	}
	return nil
}
