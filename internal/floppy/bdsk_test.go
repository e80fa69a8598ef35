package floppy

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBDSKCreateAndReload(t *testing.T) {
	var tracks [TrackCount]Track
	for i := range tracks {
		tracks[i].BitCount = uint32(1000 + i)
		for j := range tracks[i].Data {
			tracks[i].Data[j] = uint8(i ^ j)
		}
	}

	path := filepath.Join(t.TempDir(), "test.bdsk")
	b, err := CreateBDSK(path, &tracks)
	if err != nil {
		t.Fatalf("CreateBDSK: %v", err)
	}
	b.Close()

	st, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if st.Size() != BDSKFileSize {
		t.Errorf("container is %d bytes, want %d", st.Size(), BDSKFileSize)
	}

	b, err = OpenBDSK(path, false)
	if err != nil {
		t.Fatalf("OpenBDSK: %v", err)
	}
	defer b.Close()

	var tr Track
	for i := 0; i < TrackCount; i++ {
		if err := b.ReadTrack(i, &tr); err != nil {
			t.Fatalf("ReadTrack(%d): %v", i, err)
		}
		if tr.BitCount != uint32(1000+i) {
			t.Errorf("track %d bit count = %d", i, tr.BitCount)
		}
		if tr.Data != tracks[i].Data {
			t.Errorf("track %d data mismatch", i)
		}
	}
}

func TestBDSKInPlaceTrackWrite(t *testing.T) {
	var tracks [TrackCount]Track
	for i := range tracks {
		tracks[i].BitCount = 5000
	}
	path := filepath.Join(t.TempDir(), "test.bdsk")
	b, err := CreateBDSK(path, &tracks)
	if err != nil {
		t.Fatalf("CreateBDSK: %v", err)
	}
	defer b.Close()

	var tr Track
	tr.BitCount = 4242
	for j := range tr.Data {
		tr.Data[j] = 0x5A
	}
	if err := b.WriteTrack(17, &tr); err != nil {
		t.Fatalf("WriteTrack: %v", err)
	}

	// Neighbours untouched, target updated byte for byte
	var check Track
	if err := b.ReadTrack(16, &check); err != nil || check.BitCount != 5000 {
		t.Errorf("track 16 disturbed: %v bits=%d", err, check.BitCount)
	}
	if err := b.ReadTrack(17, &check); err != nil {
		t.Fatalf("ReadTrack(17): %v", err)
	}
	if check.BitCount != 4242 || check.Data != tr.Data {
		t.Errorf("in-place write not faithful")
	}
	if err := b.ReadTrack(18, &check); err != nil || check.BitCount != 5000 {
		t.Errorf("track 18 disturbed")
	}
}

func TestBDSKValidation(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.bdsk")
	os.WriteFile(bad, []byte("NOPE0000"), 0o644)
	if _, err := OpenBDSK(bad, true); err == nil {
		t.Errorf("bad magic accepted")
	}

	var tracks [TrackCount]Track
	path := filepath.Join(dir, "ok.bdsk")
	b, err := CreateBDSK(path, &tracks)
	if err != nil {
		t.Fatalf("CreateBDSK: %v", err)
	}
	defer b.Close()
	if err := b.WriteTrack(35, &tracks[0]); err == nil {
		t.Errorf("out-of-range track write accepted")
	}
	var tr Track
	if err := b.ReadTrack(-1, &tr); err == nil {
		t.Errorf("negative track read accepted")
	}
}
