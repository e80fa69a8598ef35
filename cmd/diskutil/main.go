package main

import (
	"flag"
	"fmt"
	"os"

	"iie-core/internal/debug"
	"iie-core/internal/floppy"
)

func usage() {
	fmt.Println("Usage: diskutil <command> [arguments]")
	fmt.Println("  info <image>             Show image format and track layout")
	fmt.Println("  convert <image> [out]    Convert DSK/DO/PO/NIB/WOZ to a BDSK container")
	fmt.Println("  export <image> <out.dsk> Decode a BDSK or sector image back to DSK order")
	os.Exit(1)
}

func main() {
	verbose := flag.Bool("v", false, "Verbose logging")
	flag.Parse()
	args := flag.Args()
	if len(args) < 2 {
		usage()
	}

	logger := debug.NewLogger(1000)
	if *verbose {
		logger.SetComponentEnabled(debug.ComponentFloppy, true)
		logger.SetMinLevel(debug.LogLevelDebug)
	}

	var err error
	switch args[0] {
	case "info":
		err = cmdInfo(args[1], logger)
	case "convert":
		out := ""
		if len(args) > 2 {
			out = args[2]
		}
		err = cmdConvert(args[1], out, logger)
	case "export":
		if len(args) < 3 {
			usage()
		}
		err = cmdExport(args[1], args[2], logger)
	default:
		usage()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger.Shutdown()
}

// loadTracks brings any supported image into track form
func loadTracks(path string, logger *debug.Logger) (*floppy.ImageFile, *[floppy.TrackCount]floppy.Track, error) {
	file, err := floppy.InspectImage(path)
	if err != nil {
		return nil, nil, err
	}
	var tracks [floppy.TrackCount]floppy.Track
	if file.Format == floppy.FormatBDSK {
		b, err := floppy.OpenBDSK(path, true)
		if err != nil {
			return nil, nil, err
		}
		defer b.Close()
		for t := 0; t < floppy.TrackCount; t++ {
			if err := b.ReadTrack(t, &tracks[t]); err != nil {
				return nil, nil, err
			}
		}
		return file, &tracks, nil
	}
	if _, err := floppy.ConvertImage(file, &tracks, logger); err != nil {
		return nil, nil, err
	}
	return file, &tracks, nil
}

func cmdInfo(path string, logger *debug.Logger) error {
	file, tracks, err := loadTracks(path, logger)
	if err != nil {
		return err
	}
	fmt.Printf("%s: format %s, %d bytes", file.Pathname, file.Format, file.Size)
	if file.ReadOnly {
		fmt.Print(" (read-only)")
	}
	fmt.Println()
	complete := 0
	for t := 0; t < floppy.TrackCount; t++ {
		sectors, err := floppy.DecodeSectors(&tracks[t])
		status := "ok"
		if err != nil {
			status = fmt.Sprintf("%d/%d sectors", len(sectors), floppy.SectorsPerTrack)
		} else {
			complete++
		}
		fmt.Printf("  track %2d: %6d bits  %s\n", t, tracks[t].BitCount, status)
	}
	fmt.Printf("%d of %d tracks decode completely\n", complete, floppy.TrackCount)
	return nil
}

func cmdConvert(path, out string, logger *debug.Logger) error {
	file, tracks, err := loadTracks(path, logger)
	if err != nil {
		return err
	}
	if file.Format == floppy.FormatBDSK {
		return fmt.Errorf("%s is already a BDSK container", path)
	}
	if out == "" {
		out = floppy.SidecarPath(path)
	}
	b, err := floppy.CreateBDSK(out, tracks)
	if err != nil {
		return err
	}
	defer b.Close()
	fmt.Printf("wrote %s (%d bytes)\n", out, floppy.BDSKFileSize)
	return nil
}

func cmdExport(path, out string, logger *debug.Logger) error {
	_, tracks, err := loadTracks(path, logger)
	if err != nil {
		return err
	}
	data, err := floppy.DecodeDSK(tracks, false)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	fmt.Printf("wrote %s (%d bytes)\n", out, len(data))
	return nil
}
