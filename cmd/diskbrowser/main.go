package main

import (
	"flag"
	"fmt"
	"path/filepath"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"iie-core/internal/debug"
	"iie-core/internal/disks"
	"iie-core/internal/floppy"
)

// diskbrowser is a desktop catalog browser over the disk image directory:
// the list refreshes as images appear, and selecting one shows its format
// and per-track layout.
func main() {
	dir := flag.String("dir", "apple", "Disk image directory to browse")
	flag.Parse()

	logger := debug.NewLogger(1000)
	loader := disks.NewLoader(*dir, nil, logger)
	if err := loader.Scan(); err != nil {
		fmt.Printf("Warning: %v\n", err)
	}

	a := app.New()
	w := a.NewWindow("iie-core disk browser")
	w.Resize(fyne.NewSize(700, 480))

	details := widget.NewLabel("Select a disk image")
	details.Wrapping = fyne.TextWrapWord

	list := widget.NewList(
		func() int { return len(loader.Entries) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(i widget.ListItemID, o fyne.CanvasObject) {
			e := loader.Entries[i]
			name := e.Filename
			if e.IsDir {
				name += "/"
			} else {
				name = fmt.Sprintf("%s  (%s, %d bytes)", name, e.Format, e.Size)
			}
			o.(*widget.Label).SetText(name)
		},
	)

	list.OnSelected = func(i widget.ListItemID) {
		e := loader.Entries[i]
		if e.IsDir {
			details.SetText(e.Filename + " is a directory")
			return
		}
		details.SetText(describeImage(filepath.Join(*dir, e.Filename), logger))
	}

	// The watcher keeps the catalog current while images are copied in
	loader.OnCatalogChange = func() {
		list.Refresh()
	}
	if err := loader.Watch(); err != nil {
		fmt.Printf("Warning: %v\n", err)
	}
	defer loader.Close()

	w.SetContent(container.NewHSplit(list, container.NewVScroll(details)))
	w.ShowAndRun()
}

// describeImage converts the image in memory and summarizes its tracks
func describeImage(path string, logger *debug.Logger) string {
	file, err := floppy.InspectImage(path)
	if err != nil {
		return err.Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s\nformat %s, %d bytes, read-only=%v\n\n", path, file.Format, file.Size, file.ReadOnly)

	var tracks [floppy.TrackCount]floppy.Track
	if file.Format == floppy.FormatBDSK {
		bd, err := floppy.OpenBDSK(path, true)
		if err != nil {
			return b.String() + err.Error()
		}
		defer bd.Close()
		for t := 0; t < floppy.TrackCount; t++ {
			if err := bd.ReadTrack(t, &tracks[t]); err != nil {
				return b.String() + err.Error()
			}
		}
	} else if _, err := floppy.ConvertImage(file, &tracks, logger); err != nil {
		return b.String() + err.Error()
	}

	complete := 0
	for t := 0; t < floppy.TrackCount; t++ {
		sectors, err := floppy.DecodeSectors(&tracks[t])
		if err == nil {
			complete++
		} else if len(sectors) > 0 {
			fmt.Fprintf(&b, "track %d: %d/%d sectors\n", t, len(sectors), floppy.SectorsPerTrack)
		}
	}
	fmt.Fprintf(&b, "%d of %d tracks decode completely\n", complete, floppy.TrackCount)
	return b.String()
}
