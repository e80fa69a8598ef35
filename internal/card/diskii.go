package card

import (
	"iie-core/internal/debug"
	"iie-core/internal/floppy"
)

// DiskII is the floppy controller card: a thin slot adapter over the
// controller logic, plus the 256-byte boot ROM mapped at $Cs00.
type DiskII struct {
	Slot       int
	Controller *floppy.Controller

	rom         []uint8
	bootEnabled bool

	logger *debug.Logger
}

// NewDiskII creates the card for a slot. rom is the 256-byte controller
// firmware; a nil rom leaves the slot unbootable but the device registers
// still work.
func NewDiskII(slot int, rom []uint8, logger *debug.Logger) *DiskII {
	return &DiskII{
		Slot:       slot,
		Controller: floppy.NewController(logger),
		rom:        rom,
		logger:     logger,
	}
}

// Name implements memory.Card
func (d *DiskII) Name() string {
	return "diskii"
}

// ROM implements memory.Card. The firmware only appears once a disk is
// mounted, so an empty drive does not hang the autoboot slot scan.
func (d *DiskII) ROM() []uint8 {
	if !d.bootEnabled {
		return nil
	}
	return d.rom
}

// EnableBoot exposes or hides the card firmware
func (d *DiskII) EnableBoot(on bool) {
	d.bootEnabled = on && d.rom != nil
}

// IOAccess implements memory.Card
func (d *DiskII) IOAccess(reg uint8, value uint8, write bool) uint8 {
	return d.Controller.IOAccess(reg, value, write)
}

// Tick feeds elapsed CPU cycles into the sequencer
func (d *DiskII) Tick(cycles uint32) {
	d.Controller.Tick(cycles)
}
