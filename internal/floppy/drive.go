package floppy

import (
	"fmt"

	"iie-core/internal/debug"
)

// Drive models one 5.25" mechanism: the quarter-track head position driven
// by the four-phase stepper, the single resident track bitstream, and the
// write-back path to the mounted BDSK container.
type Drive struct {
	// TrackID maps each quarter-track position to a physical track index
	// or NoiseTrack
	TrackID [QTrackCount]uint8

	// Tracks holds per-track metadata; the bits of at most one track are
	// resident in Current at any time
	Tracks [TrackCount]Track

	// Current is the resident track, aliased into Tracks[currentIndex]
	Current      *Track
	currentIndex int

	Motor          bool
	Stepper        uint8 // energized phase magnets, low nibble
	QTrack         int
	BitPosition    uint32
	WriteProtected bool
	// Persist gates track flushes: NIB and WOZ mounts accept in-memory
	// writes but never touch storage
	Persist bool

	// File is the mounted image descriptor, nil when the drive is empty
	File *ImageFile
	// bdsk is the side container tracks load from and flush to
	bdsk *BDSKFile

	// Noise generator for unrecorded head positions
	noiseLFSR     uint32
	noisePosition uint32

	// seedDirty / seedSaved track which edit generation of the resident
	// track was last persisted, so a reload restores the exact bits
	seedDirty uint32
	seedSaved uint32

	logger *debug.Logger
}

// NewDrive creates an empty drive
func NewDrive(logger *debug.Logger) *Drive {
	d := &Drive{logger: logger}
	d.Init()
	return d
}

// Init returns the drive to the empty state: default quarter-track map, no
// image, head at track 0.
func (d *Drive) Init() {
	for q := range d.TrackID {
		d.TrackID[q] = NoiseTrack
	}
	for t := 0; t < TrackCount; t++ {
		q := t * 4
		d.TrackID[q] = uint8(t)
		if q > 0 {
			d.TrackID[q-1] = uint8(t)
		}
		if q+1 < MaxQTrack {
			d.TrackID[q+1] = uint8(t)
		}
		d.Tracks[t] = Track{Virgin: true}
	}
	d.Current = nil
	d.currentIndex = -1
	d.Motor = false
	d.Stepper = 0
	d.QTrack = 0
	d.BitPosition = 0
	d.WriteProtected = false
	d.Persist = false
	d.File = nil
	if d.bdsk != nil {
		d.bdsk.Close()
		d.bdsk = nil
	}
	d.noiseLFSR = 0x2C9A1 // per-drive seed
	d.noisePosition = 0
	d.seedDirty = 0
	d.seedSaved = 0
}

// Mounted reports whether an image is loaded
func (d *Drive) Mounted() bool {
	return d.bdsk != nil
}

// AttachBDSK points the drive at its side container and loads the track
// under the head
func (d *Drive) AttachBDSK(b *BDSKFile, file *ImageFile) error {
	d.bdsk = b
	d.File = file
	d.WriteProtected = file.ReadOnly
	d.Persist = !file.ReadOnly && WritebackSupported(file.Format)
	d.Current = nil
	d.currentIndex = -1
	return d.loadCurrentTrack()
}

// DriveState is the preservable mechanical state across a disk swap
type DriveState struct {
	Motor       bool
	Stepper     uint8
	QTrack      int
	BitPosition uint32
}

// SaveState captures the mechanical state
func (d *Drive) SaveState() DriveState {
	return DriveState{
		Motor:       d.Motor,
		Stepper:     d.Stepper,
		QTrack:      d.QTrack,
		BitPosition: d.BitPosition,
	}
}

// RestoreState reapplies mechanical state saved before a swap
func (d *Drive) RestoreState(s DriveState) error {
	d.Motor = s.Motor
	d.Stepper = s.Stepper
	d.QTrack = s.QTrack
	d.BitPosition = s.BitPosition
	return d.loadCurrentTrack()
}

// physicalTrack returns the track index under the head, or NoiseTrack
func (d *Drive) physicalTrack() uint8 {
	if d.QTrack < 0 || d.QTrack >= QTrackCount {
		return NoiseTrack
	}
	return d.TrackID[d.QTrack]
}

// loadCurrentTrack makes the track under the head resident, flushing the
// previous one first if it has unsaved writes
func (d *Drive) loadCurrentTrack() error {
	phys := d.physicalTrack()
	if phys == NoiseTrack || d.bdsk == nil {
		err := d.FlushCurrent()
		d.Current = nil
		d.currentIndex = -1
		return err
	}
	if int(phys) == d.currentIndex && d.Current != nil {
		return nil
	}
	if err := d.FlushCurrent(); err != nil {
		return err
	}
	t := &d.Tracks[phys]
	if err := d.bdsk.ReadTrack(int(phys), t); err != nil {
		return fmt.Errorf("floppy: load track %d: %w", phys, err)
	}
	d.Current = t
	d.currentIndex = int(phys)
	if t.BitCount > 0 {
		d.BitPosition %= t.BitCount
	}
	return nil
}

// FlushCurrent persists the resident track if dirty. Non-persistent
// mounts keep their in-memory edits but never touch storage.
func (d *Drive) FlushCurrent() error {
	if d.Current == nil || !d.Current.Dirty {
		return nil
	}
	if !d.Persist {
		d.Current.Dirty = false
		return nil
	}
	if err := d.bdsk.WriteTrack(d.currentIndex, d.Current); err != nil {
		return err
	}
	d.Current.Dirty = false
	d.seedSaved = d.seedDirty
	if d.logger != nil {
		d.logger.LogFloppyf(debug.LogLevelDebug, "flushed track %d (%d bits)", d.currentIndex, d.Current.BitCount)
	}
	return nil
}

// phaseDeltas gives the head movement for a newly energized phase relative
// to the current half-phase position, indexed by (phase*2 - position) mod 8
var phaseDeltas = [8]int{0, 1, 2, 3, 0, -3, -2, -1}

// SetPhase energizes or releases one stepper magnet. Each transition to on
// pulls the head toward that magnet, one quarter track per half phase of
// distance, clamped to the mechanical stops.
func (d *Drive) SetPhase(phase int, on bool) error {
	mask := uint8(1) << uint(phase&3)
	was := d.Stepper&mask != 0
	if on {
		d.Stepper |= mask
	} else {
		d.Stepper &^= mask
	}
	if !on || was {
		return nil
	}
	position := d.QTrack & 7
	delta := phaseDeltas[((phase&3)*2-position+8)&7]
	if delta == 0 {
		return nil
	}
	q := d.QTrack + delta
	if q < 0 {
		q = 0
	}
	if q > MaxQTrack {
		q = MaxQTrack
	}
	if q == d.QTrack {
		return nil
	}
	d.QTrack = q
	if d.logger != nil {
		d.logger.LogFloppyf(debug.LogLevelTrace, "head stepped to qtrack %d (phase %d)", d.QTrack, phase)
	}
	return d.loadCurrentTrack()
}

// noiseBit advances the per-drive linear feedback generator
func (d *Drive) noiseBit() bool {
	// 17-bit LFSR, taps 17 and 14
	bit := (d.noiseLFSR ^ (d.noiseLFSR >> 3)) & 1
	d.noiseLFSR = d.noiseLFSR>>1 | bit<<16
	d.noisePosition++
	return bit != 0
}

// NextBit returns the bit under the head and advances the head one bit
// cell. Unrecorded positions return noise.
func (d *Drive) NextBit() bool {
	if d.Current == nil || d.Current.BitCount == 0 {
		return d.noiseBit()
	}
	bit := d.Current.ReadBit(d.BitPosition)
	d.BitPosition = (d.BitPosition + 1) % d.Current.BitCount
	return bit
}

// WriteBitAtHead stores one bit at the head position and advances. The
// write-protect tab inhibits the write but the head still moves.
func (d *Drive) WriteBitAtHead(bit bool) {
	if d.Current == nil || d.Current.BitCount == 0 {
		return
	}
	if d.WriteProtected {
		d.BitPosition = (d.BitPosition + 1) % d.Current.BitCount
		return
	}
	d.Current.WriteBit(d.BitPosition, bit)
	d.seedDirty++
	d.BitPosition = (d.BitPosition + 1) % d.Current.BitCount
}

// Eject flushes any dirty track and empties the drive
func (d *Drive) Eject() error {
	err := d.FlushCurrent()
	d.Init()
	return err
}

// Trace logger surface

// GetMotor implements debug.FloppyStateReader
func (d *Drive) GetMotor() bool { return d.Motor }

// GetQTrack implements debug.FloppyStateReader
func (d *Drive) GetQTrack() int { return d.QTrack }

// GetBitPosition implements debug.FloppyStateReader
func (d *Drive) GetBitPosition() uint32 { return d.BitPosition }
