package card

import (
	"fmt"
	"os"
)

// BlockSize is the ProDOS block size
const BlockSize = 512

// BlockDevice is a file-backed 512-byte block store behind the SmartPort
// card
type BlockDevice struct {
	Path     string
	Blocks   uint32
	ReadOnly bool

	f *os.File
}

// OpenBlockDevice opens a block image. Any file with a whole number of
// 512-byte blocks qualifies.
func OpenBlockDevice(path string, readOnly bool) (*BlockDevice, error) {
	flags := os.O_RDWR
	if readOnly {
		flags = os.O_RDONLY
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("blockdev: open %s: %w", path, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("blockdev: stat %s: %w", path, err)
	}
	if st.Size() == 0 || st.Size()%BlockSize != 0 {
		f.Close()
		return nil, fmt.Errorf("blockdev: %s is %d bytes, not a whole number of %d-byte blocks", path, st.Size(), BlockSize)
	}
	return &BlockDevice{
		Path:     path,
		Blocks:   uint32(st.Size() / BlockSize),
		ReadOnly: readOnly,
		f:        f,
	}, nil
}

// ReadBlock fills buf (512 bytes) from the given block
func (b *BlockDevice) ReadBlock(block uint32, buf []uint8) error {
	if block >= b.Blocks {
		return fmt.Errorf("blockdev: block %d out of range (%d blocks)", block, b.Blocks)
	}
	if _, err := b.f.ReadAt(buf[:BlockSize], int64(block)*BlockSize); err != nil {
		return fmt.Errorf("blockdev: read block %d: %w", block, err)
	}
	return nil
}

// WriteBlock stores buf (512 bytes) at the given block
func (b *BlockDevice) WriteBlock(block uint32, buf []uint8) error {
	if block >= b.Blocks {
		return fmt.Errorf("blockdev: block %d out of range (%d blocks)", block, b.Blocks)
	}
	if b.ReadOnly {
		return fmt.Errorf("blockdev: %s is read-only", b.Path)
	}
	if _, err := b.f.WriteAt(buf[:BlockSize], int64(block)*BlockSize); err != nil {
		return fmt.Errorf("blockdev: write block %d: %w", block, err)
	}
	return nil
}

// Close closes the backing file
func (b *BlockDevice) Close() error {
	if b.f == nil {
		return nil
	}
	err := b.f.Close()
	b.f = nil
	return err
}
