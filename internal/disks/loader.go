package disks

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fsnotify/fsnotify"

	"iie-core/internal/card"
	"iie-core/internal/debug"
	"iie-core/internal/floppy"
)

// Entry is one item of the disk catalog
type Entry struct {
	Filename string
	Size     int64
	Format   floppy.Format
	IsDir    bool
}

// Loader enumerates disk images in the removable-storage directory and
// mounts them into the floppy controller. A filesystem watcher keeps the
// catalog fresh while the browser is open.
type Loader struct {
	Dir     string
	Entries []Entry

	Card *card.DiskII

	// OnMount fires after a successful mount, for VBL reset and UI
	// refresh
	OnMount func(drive int)
	// OnCatalogChange fires when the watcher sees the directory change
	OnCatalogChange func()

	watcher *fsnotify.Watcher
	logger  *debug.Logger
}

// NewLoader creates a loader over the given directory
func NewLoader(dir string, diskCard *card.DiskII, logger *debug.Logger) *Loader {
	return &Loader{
		Dir:    dir,
		Card:   diskCard,
		logger: logger,
	}
}

// Scan rebuilds the catalog: directories first, then images, both
// alphabetically. Files with unrecognized extensions are ignored.
func (l *Loader) Scan() error {
	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		return fmt.Errorf("disks: scan %s: %w", l.Dir, err)
	}
	l.Entries = l.Entries[:0]
	for _, e := range entries {
		if e.IsDir() {
			l.Entries = append(l.Entries, Entry{Filename: e.Name(), IsDir: true})
			continue
		}
		format := floppy.FormatForPath(e.Name())
		if format == floppy.FormatUnknown {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		l.Entries = append(l.Entries, Entry{
			Filename: e.Name(),
			Size:     info.Size(),
			Format:   format,
		})
	}
	sort.Slice(l.Entries, func(i, j int) bool {
		a, b := l.Entries[i], l.Entries[j]
		if a.IsDir != b.IsDir {
			return a.IsDir
		}
		return strings.ToLower(a.Filename) < strings.ToLower(b.Filename)
	})
	if l.logger != nil {
		l.logger.LogDisksf(debug.LogLevelInfo, "catalog: %d entries under %s", len(l.Entries), l.Dir)
	}
	return nil
}

// Watch starts the directory watcher. Catalog changes are folded into
// OnCatalogChange on the watcher goroutine.
func (l *Loader) Watch() error {
	if l.watcher != nil {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("disks: watcher: %w", err)
	}
	if err := w.Add(l.Dir); err != nil {
		w.Close()
		return fmt.Errorf("disks: watch %s: %w", l.Dir, err)
	}
	l.watcher = w
	go func() {
		for {
			select {
			case _, ok := <-w.Events:
				if !ok {
					return
				}
				if err := l.Scan(); err == nil && l.OnCatalogChange != nil {
					l.OnCatalogChange()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				if l.logger != nil {
					l.logger.LogDisksf(debug.LogLevelWarning, "watcher: %v", err)
				}
			}
		}
	}()
	return nil
}

// Close stops the watcher
func (l *Loader) Close() error {
	if l.watcher != nil {
		err := l.watcher.Close()
		l.watcher = nil
		return err
	}
	return nil
}

// Mount loads an image into a drive. preserve keeps the mechanical state
// (motor, stepper, head position) across the swap, the way a mid-game disk
// change must; a boot mount resets it.
func (l *Loader) Mount(driveIndex int, filename string, preserve bool) error {
	if driveIndex < 0 || driveIndex > 1 {
		return fmt.Errorf("disks: drive %d out of range", driveIndex)
	}
	path := filename
	if !filepath.IsAbs(path) {
		path = filepath.Join(l.Dir, filename)
	}

	// Validate the image before touching the drive
	file, err := floppy.InspectImage(path)
	if err != nil {
		return fmt.Errorf("disks: mount: %w", err)
	}

	drive := l.Card.Controller.Drives[driveIndex]

	var saved floppy.DriveState
	if preserve {
		saved = drive.SaveState()
	}
	if err := drive.Eject(); err != nil && l.logger != nil {
		l.logger.LogDisksf(debug.LogLevelWarning, "flush on eject: %v", err)
	}

	bdsk, err := l.sideContainer(file)
	if err != nil {
		// The drive reverts to empty on a failed mount
		drive.Init()
		return fmt.Errorf("disks: mount %s: %w", filename, err)
	}
	if preserve {
		drive.Motor = saved.Motor
		drive.Stepper = saved.Stepper
		drive.QTrack = saved.QTrack
		drive.BitPosition = saved.BitPosition
	}
	if err := drive.AttachBDSK(bdsk, file); err != nil {
		drive.Init()
		return fmt.Errorf("disks: mount %s: %w", filename, err)
	}

	l.Card.EnableBoot(true)
	if l.OnMount != nil {
		l.OnMount(driveIndex)
	}
	if l.logger != nil {
		l.logger.LogDisksf(debug.LogLevelInfo, "mounted %s in drive %d (%s, preserve=%v)",
			filename, driveIndex, file.Format, preserve)
	}
	return nil
}

// sideContainer opens the BDSK behind an image, converting the image first
// when no up-to-date side file exists
func (l *Loader) sideContainer(file *floppy.ImageFile) (*floppy.BDSKFile, error) {
	if file.Format == floppy.FormatBDSK {
		return floppy.OpenBDSK(file.Pathname, file.ReadOnly)
	}
	side := floppy.SidecarPath(file.Pathname)
	if st, err := os.Stat(side); err == nil && st.Size() == floppy.BDSKFileSize {
		imgSt, err := os.Stat(file.Pathname)
		if err == nil && !st.ModTime().Before(imgSt.ModTime()) {
			// Fast path: the side file is current, no reconversion
			return floppy.OpenBDSK(side, false)
		}
	}
	var tracks [floppy.TrackCount]floppy.Track
	if _, err := floppy.ConvertImage(file, &tracks, l.logger); err != nil {
		return nil, err
	}
	return floppy.CreateBDSK(side, &tracks)
}

// Eject flushes and empties a drive
func (l *Loader) Eject(driveIndex int) error {
	if driveIndex < 0 || driveIndex > 1 {
		return fmt.Errorf("disks: drive %d out of range", driveIndex)
	}
	drive := l.Card.Controller.Drives[driveIndex]
	err := drive.Eject()
	if !l.Card.Controller.Drives[0].Mounted() && !l.Card.Controller.Drives[1].Mounted() {
		l.Card.EnableBoot(false)
	}
	if l.logger != nil {
		l.logger.LogDisksf(debug.LogLevelInfo, "ejected drive %d", driveIndex)
	}
	return err
}
