package floppy

import (
	"path/filepath"
	"testing"
)

// mountTestImage converts a sector image and attaches its container to
// the drive
func mountTestImage(t *testing.T, d *Drive) *BDSKFile {
	t.Helper()
	var tracks [TrackCount]Track
	if err := ConvertDSK(testImage(), false, &tracks, nil); err != nil {
		t.Fatalf("ConvertDSK: %v", err)
	}
	path := filepath.Join(t.TempDir(), "drive.bdsk")
	b, err := CreateBDSK(path, &tracks)
	if err != nil {
		t.Fatalf("CreateBDSK: %v", err)
	}
	file := &ImageFile{Pathname: path, Format: FormatBDSK, Size: BDSKFileSize}
	if err := d.AttachBDSK(b, file); err != nil {
		t.Fatalf("AttachBDSK: %v", err)
	}
	return b
}

func TestDefaultTrackMap(t *testing.T) {
	d := NewDrive(nil)
	if d.TrackID[0] != 0 || d.TrackID[1] != 0 {
		t.Errorf("track 0 not mapped at qtrack 0/1")
	}
	if d.TrackID[4] != 1 || d.TrackID[3] != 1 {
		t.Errorf("track 1 not mapped around qtrack 4")
	}
	if d.TrackID[2] != NoiseTrack {
		t.Errorf("midpoint qtrack 2 should be noise, got %d", d.TrackID[2])
	}
	if d.TrackID[136] != 34 {
		t.Errorf("track 34 not mapped at qtrack 136")
	}
}

// TestStepperSequence walks the head outward one full track with the
// four-phase sequence and checks the clamps at both mechanical stops
func TestStepperSequence(t *testing.T) {
	d := NewDrive(nil)

	// Adjacent phases pull the head out a half track (two quarter
	// tracks) each
	d.SetPhase(1, true)
	d.SetPhase(1, false)
	if d.QTrack != 2 {
		t.Errorf("qtrack after phase 1 = %d, want 2", d.QTrack)
	}
	d.SetPhase(2, true)
	d.SetPhase(2, false)
	if d.QTrack != 4 {
		t.Errorf("qtrack after phase 2 = %d, want 4", d.QTrack)
	}

	// Stepping inward below track 0 clamps at 0
	d2 := NewDrive(nil)
	d2.SetPhase(3, true) // pulls backwards from position 0
	d2.SetPhase(3, false)
	if d2.QTrack < 0 {
		t.Fatalf("qtrack went negative")
	}

	// Walking far outward clamps at the stop
	d3 := NewDrive(nil)
	phase := 0
	for i := 0; i < 400; i++ {
		phase = (phase + 1) & 3
		d3.SetPhase(phase, true)
		d3.SetPhase(phase, false)
	}
	if d3.QTrack > MaxQTrack {
		t.Errorf("qtrack passed the stop: %d", d3.QTrack)
	}
	if d3.QTrack != MaxQTrack {
		t.Errorf("full outward walk should rest at %d, got %d", MaxQTrack, d3.QTrack)
	}
}

func TestNoiseWithoutMedia(t *testing.T) {
	d := NewDrive(nil)
	// An empty drive returns noise, and the generator must not be stuck
	ones := 0
	for i := 0; i < 1000; i++ {
		if d.NextBit() {
			ones++
		}
	}
	if ones == 0 || ones == 1000 {
		t.Errorf("noise generator stuck: %d ones in 1000", ones)
	}
}

func TestTrackLoadAndRead(t *testing.T) {
	d := NewDrive(nil)
	mountTestImage(t, d)

	if d.Current == nil {
		t.Fatalf("no track resident after attach")
	}
	if d.Current.BitCount == 0 {
		t.Fatalf("resident track is empty")
	}

	// Bits read from the head match the stored bitstream
	d.BitPosition = 0
	for i := 0; i < 64; i++ {
		want := d.Current.ReadBit(uint32(i))
		if got := d.NextBit(); got != want {
			t.Fatalf("bit %d mismatch", i)
		}
	}
}

// TestDirtyTrackFlushOnStep writes at the head, steps away, and verifies
// the pre-step bits reached the container byte for byte
func TestDirtyTrackFlushOnStep(t *testing.T) {
	d := NewDrive(nil)
	b := mountTestImage(t, d)

	d.BitPosition = 0
	for i := 0; i < 8; i++ {
		d.WriteBitAtHead(i%2 == 0)
	}
	want := d.Current.Data
	if !d.Current.Dirty {
		t.Fatalf("writes did not mark the track dirty")
	}

	// Step to track 1: phase sequence 1 then 2
	d.SetPhase(1, true)
	d.SetPhase(1, false)
	d.SetPhase(2, true)

	var onDisk Track
	if err := b.ReadTrack(0, &onDisk); err != nil {
		t.Fatalf("ReadTrack: %v", err)
	}
	if onDisk.Data != want {
		t.Fatalf("flushed track differs from pre-step bits")
	}
}

func TestWriteProtectInhibitsMedia(t *testing.T) {
	d := NewDrive(nil)
	mountTestImage(t, d)
	d.WriteProtected = true

	d.BitPosition = 0
	before := d.Current.Data
	for i := 0; i < 32; i++ {
		d.WriteBitAtHead(true)
	}
	if d.Current.Data != before {
		t.Errorf("write-protected media changed")
	}
	if d.BitPosition != 32 {
		t.Errorf("head did not advance past protected writes: %d", d.BitPosition)
	}
}

func TestSaveRestoreState(t *testing.T) {
	d := NewDrive(nil)
	mountTestImage(t, d)

	d.Motor = true
	d.Stepper = 0x5
	d.QTrack = 12
	d.BitPosition = 321
	if err := d.loadCurrentTrack(); err != nil {
		t.Fatalf("loadCurrentTrack: %v", err)
	}

	saved := d.SaveState()
	d.Motor = false
	d.QTrack = 0
	d.BitPosition = 0

	if err := d.RestoreState(saved); err != nil {
		t.Fatalf("RestoreState: %v", err)
	}
	if !d.Motor || d.Stepper != 0x5 || d.QTrack != 12 || d.BitPosition != 321 {
		t.Errorf("state not restored: %+v", d.SaveState())
	}
}

func TestEjectEmptiesDrive(t *testing.T) {
	d := NewDrive(nil)
	mountTestImage(t, d)
	if !d.Mounted() {
		t.Fatalf("not mounted")
	}
	if err := d.Eject(); err != nil {
		t.Fatalf("Eject: %v", err)
	}
	if d.Mounted() || d.Current != nil || d.File != nil {
		t.Errorf("drive not empty after eject")
	}
}
