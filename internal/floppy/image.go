package floppy

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"iie-core/internal/debug"
)

// Format identifies a disk image container
type Format int

const (
	FormatUnknown Format = iota
	FormatDSK            // DOS 3.3 sector order
	FormatDO             // explicit DOS order, same layout as DSK
	FormatPO             // ProDOS sector order
	FormatNIB            // raw nibbles
	FormatWOZ            // bit-accurate container
	FormatBDSK           // internal canonical container
)

// String returns the conventional extension name of the format
func (f Format) String() string {
	switch f {
	case FormatDSK:
		return "DSK"
	case FormatDO:
		return "DO"
	case FormatPO:
		return "PO"
	case FormatNIB:
		return "NIB"
	case FormatWOZ:
		return "WOZ"
	case FormatBDSK:
		return "BDSK"
	default:
		return "unknown"
	}
}

// FormatForPath derives the image format from the file extension,
// case-insensitively
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".dsk":
		return FormatDSK
	case ".do":
		return FormatDO
	case ".po":
		return FormatPO
	case ".nib":
		return FormatNIB
	case ".woz":
		return FormatWOZ
	case ".bdsk":
		return FormatBDSK
	default:
		return FormatUnknown
	}
}

// ImageFile describes a mounted disk image
type ImageFile struct {
	Pathname string
	Format   Format
	Size     int64
	ReadOnly bool
}

// InspectImage opens and validates an image file without converting it
func InspectImage(path string) (*ImageFile, error) {
	format := FormatForPath(path)
	if format == FormatUnknown {
		return nil, fmt.Errorf("floppy: unrecognized image extension on %s", path)
	}
	st, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("floppy: stat %s: %w", path, err)
	}
	file := &ImageFile{
		Pathname: path,
		Format:   format,
		Size:     st.Size(),
		ReadOnly: st.Mode().Perm()&0o200 == 0,
	}
	switch format {
	case FormatDSK, FormatDO, FormatPO:
		if st.Size() != DSKSize {
			return nil, fmt.Errorf("floppy: %s is %d bytes, a sector image must be exactly %d", path, st.Size(), DSKSize)
		}
	case FormatNIB:
		if st.Size() != NIBSize {
			return nil, fmt.Errorf("floppy: %s is %d bytes, a nibble image must be exactly %d", path, st.Size(), NIBSize)
		}
	case FormatBDSK:
		if st.Size() != BDSKFileSize {
			return nil, fmt.Errorf("floppy: %s is %d bytes, a BDSK container must be exactly %d", path, st.Size(), BDSKFileSize)
		}
	}
	return file, nil
}

// SidecarPath returns the BDSK side file pathname for an image
func SidecarPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".bdsk"
}

// ConvertImage converts any supported image into 35 track bitstreams.
// WOZ conversion also returns the container's quarter-track map.
func ConvertImage(file *ImageFile, tracks *[TrackCount]Track, logger *debug.Logger) (*WOZInfo, error) {
	data, err := os.ReadFile(file.Pathname)
	if err != nil {
		return nil, fmt.Errorf("floppy: read %s: %w", file.Pathname, err)
	}
	switch file.Format {
	case FormatDSK, FormatDO:
		return nil, ConvertDSK(data, false, tracks, logger)
	case FormatPO:
		return nil, ConvertDSK(data, true, tracks, logger)
	case FormatNIB:
		return nil, ConvertNIB(data, tracks, logger)
	case FormatWOZ:
		return ConvertWOZ(data, tracks, logger)
	default:
		return nil, fmt.Errorf("floppy: cannot convert %s images", file.Format)
	}
}

// WritebackSupported reports whether dirty tracks can persist for a format.
// NIB and WOZ write-back is unsupported: writes mutate the in-memory
// bitstream but are never persisted to the original container.
func WritebackSupported(f Format) bool {
	switch f {
	case FormatDSK, FormatDO, FormatPO, FormatBDSK:
		return true
	default:
		return false
	}
}
