package disks

import (
	"os"
	"path/filepath"
	"testing"

	"iie-core/internal/card"
	"iie-core/internal/floppy"
)

// writeTestDSK creates a valid sector image in dir
func writeTestDSK(t *testing.T, dir, name string) string {
	t.Helper()
	img := make([]uint8, floppy.DSKSize)
	for i := range img {
		img[i] = uint8(i * 13)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, img, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func newTestLoader(t *testing.T) (*Loader, string) {
	t.Helper()
	dir := t.TempDir()
	diskCard := card.NewDiskII(6, nil, nil)
	l := NewLoader(dir, diskCard, nil)
	t.Cleanup(func() { l.Close() })
	return l, dir
}

func TestScanOrdering(t *testing.T) {
	l, dir := newTestLoader(t)
	writeTestDSK(t, dir, "zebra.dsk")
	writeTestDSK(t, dir, "Alpha.dsk")
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644)
	os.Mkdir(filepath.Join(dir, "games"), 0o755)

	if err := l.Scan(); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(l.Entries) != 3 {
		t.Fatalf("catalog has %d entries, want 3 (txt ignored)", len(l.Entries))
	}
	if !l.Entries[0].IsDir || l.Entries[0].Filename != "games" {
		t.Errorf("directories should sort first: %+v", l.Entries[0])
	}
	if l.Entries[1].Filename != "Alpha.dsk" || l.Entries[2].Filename != "zebra.dsk" {
		t.Errorf("files not alphabetical: %v, %v", l.Entries[1].Filename, l.Entries[2].Filename)
	}
	if l.Entries[1].Format != floppy.FormatDSK {
		t.Errorf("format = %v", l.Entries[1].Format)
	}
}

func TestMountCreatesSidecar(t *testing.T) {
	l, dir := newTestLoader(t)
	writeTestDSK(t, dir, "boot.dsk")

	if err := l.Mount(0, "boot.dsk", false); err != nil {
		t.Fatalf("Mount: %v", err)
	}

	side := filepath.Join(dir, "boot.bdsk")
	st, err := os.Stat(side)
	if err != nil {
		t.Fatalf("no sidecar written: %v", err)
	}
	if st.Size() != floppy.BDSKFileSize {
		t.Errorf("sidecar is %d bytes, want %d", st.Size(), floppy.BDSKFileSize)
	}

	d := l.Card.Controller.Drives[0]
	if !d.Mounted() || d.Current == nil {
		t.Errorf("drive has no resident track after mount")
	}
	if d.File.Format != floppy.FormatDSK {
		t.Errorf("descriptor format = %v", d.File.Format)
	}
}

func TestMountFastPathReusesSidecar(t *testing.T) {
	l, dir := newTestLoader(t)
	writeTestDSK(t, dir, "boot.dsk")

	if err := l.Mount(0, "boot.dsk", false); err != nil {
		t.Fatalf("first mount: %v", err)
	}
	side := filepath.Join(dir, "boot.bdsk")
	before, _ := os.Stat(side)

	if err := l.Eject(0); err != nil {
		t.Fatalf("Eject: %v", err)
	}
	if err := l.Mount(0, "boot.dsk", false); err != nil {
		t.Fatalf("second mount: %v", err)
	}
	after, _ := os.Stat(side)
	if !after.ModTime().Equal(before.ModTime()) {
		t.Errorf("fast path reconverted the image")
	}
}

// TestMountPreservesDriveState is the disk-swap property: the mechanical
// state equals its pre-mount values after a preserving mount
func TestMountPreservesDriveState(t *testing.T) {
	l, dir := newTestLoader(t)
	writeTestDSK(t, dir, "one.dsk")
	writeTestDSK(t, dir, "two.dsk")

	if err := l.Mount(0, "one.dsk", false); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	d := l.Card.Controller.Drives[0]
	d.Motor = true
	d.Stepper = 0x2
	d.QTrack = 8
	if err := d.RestoreState(d.SaveState()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	d.BitPosition = 777

	if err := l.Mount(0, "two.dsk", true); err != nil {
		t.Fatalf("preserving mount: %v", err)
	}
	if !d.Motor || d.Stepper != 0x2 || d.QTrack != 8 || d.BitPosition != 777 {
		t.Errorf("drive state not preserved: motor=%v stepper=%X qtrack=%d bitpos=%d",
			d.Motor, d.Stepper, d.QTrack, d.BitPosition)
	}
	if d.File.Pathname != filepath.Join(dir, "two.dsk") {
		t.Errorf("new image not mounted: %s", d.File.Pathname)
	}
}

// TestRemountRestoresPostMountState is the mount/eject/mount idempotence
// property
func TestRemountRestoresPostMountState(t *testing.T) {
	l, dir := newTestLoader(t)
	writeTestDSK(t, dir, "boot.dsk")

	if err := l.Mount(0, "boot.dsk", false); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	d := l.Card.Controller.Drives[0]
	bits1 := d.Current.Data
	count1 := d.Current.BitCount

	if err := l.Eject(0); err != nil {
		t.Fatalf("Eject: %v", err)
	}
	if err := l.Mount(0, "boot.dsk", false); err != nil {
		t.Fatalf("remount: %v", err)
	}
	if d.Current.BitCount != count1 || d.Current.Data != bits1 {
		t.Errorf("remount did not restore the post-mount track bits")
	}
	if d.QTrack != 0 || d.BitPosition != 0 {
		t.Errorf("non-preserving mount should reset the head")
	}
}

func TestMountInvalidImageLeavesDriveEmpty(t *testing.T) {
	l, dir := newTestLoader(t)
	os.WriteFile(filepath.Join(dir, "short.dsk"), make([]uint8, 100), 0o644)

	if err := l.Mount(0, "short.dsk", false); err == nil {
		t.Fatalf("truncated image mounted")
	}
	if l.Card.Controller.Drives[0].Mounted() {
		t.Errorf("drive not empty after failed mount")
	}
}

func TestMountUnknownExtension(t *testing.T) {
	l, dir := newTestLoader(t)
	os.WriteFile(filepath.Join(dir, "file.img"), make([]uint8, floppy.DSKSize), 0o644)
	if err := l.Mount(0, "file.img", false); err == nil {
		t.Errorf("unknown extension mounted")
	}
}

func TestEjectFlushesDirtyTrack(t *testing.T) {
	l, dir := newTestLoader(t)
	writeTestDSK(t, dir, "boot.dsk")
	if err := l.Mount(0, "boot.dsk", false); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	d := l.Card.Controller.Drives[0]
	d.BitPosition = 0
	d.WriteBitAtHead(true)
	want := d.Current.Data

	if err := l.Eject(0); err != nil {
		t.Fatalf("Eject: %v", err)
	}

	// Remount and check the written bit persisted through the sidecar
	if err := l.Mount(0, "boot.dsk", false); err != nil {
		t.Fatalf("remount: %v", err)
	}
	if d.Current.Data != want {
		t.Errorf("dirty track lost on eject")
	}
}
