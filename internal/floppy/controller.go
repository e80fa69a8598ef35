package floppy

import (
	"iie-core/internal/debug"
)

// lssROM is the 256-byte Disk II logic state sequencer: 16 states by 16
// input combinations. The index is state<<4 | Q7<<3 | Q6<<2 | QA<<1 |
// pulse, where QA is the high bit of the data register. Each entry packs
// the next state in the high nibble and a command in the low nibble.
var lssROM = [256]uint8{
	0x18, 0x18, 0x18, 0x18, 0x0A, 0x0A, 0x0A, 0x0A, 0x18, 0x18, 0x18, 0x18, 0x18, 0x18, 0x18, 0x18,
	0x2D, 0x2D, 0x38, 0x38, 0x0A, 0x0A, 0x0A, 0x0A, 0x28, 0x28, 0x28, 0x28, 0x28, 0x28, 0x28, 0x28,
	0xD8, 0x38, 0x08, 0x28, 0x0A, 0x0A, 0x0A, 0x0A, 0x39, 0x39, 0x39, 0x39, 0x3B, 0x3B, 0x3B, 0x3B,
	0xD8, 0x48, 0x48, 0x48, 0x0A, 0x0A, 0x0A, 0x0A, 0x48, 0x48, 0x48, 0x48, 0x48, 0x48, 0x48, 0x48,
	0xD8, 0x58, 0xD8, 0x58, 0x0A, 0x0A, 0x0A, 0x0A, 0x58, 0x58, 0x58, 0x58, 0x58, 0x58, 0x58, 0x58,
	0xD8, 0x68, 0xD8, 0x68, 0x0A, 0x0A, 0x0A, 0x0A, 0x68, 0x68, 0x68, 0x68, 0x68, 0x68, 0x68, 0x68,
	0xD8, 0x78, 0xD8, 0x78, 0x0A, 0x0A, 0x0A, 0x0A, 0x78, 0x78, 0x78, 0x78, 0x78, 0x78, 0x78, 0x78,
	0xD8, 0x88, 0xD8, 0x88, 0x0A, 0x0A, 0x0A, 0x0A, 0x08, 0x08, 0x88, 0x88, 0x08, 0x08, 0x88, 0x88,
	0xD8, 0x98, 0xD8, 0x98, 0x0A, 0x0A, 0x0A, 0x0A, 0x98, 0x98, 0x98, 0x98, 0x98, 0x98, 0x98, 0x98,
	0xD8, 0x29, 0xD8, 0xA8, 0x0A, 0x0A, 0x0A, 0x0A, 0xA8, 0xA8, 0xA8, 0xA8, 0xA8, 0xA8, 0xA8, 0xA8,
	0xCD, 0xBD, 0xD8, 0xB8, 0x0A, 0x0A, 0x0A, 0x0A, 0xB9, 0xB9, 0xB9, 0xB9, 0xBB, 0xBB, 0xBB, 0xBB,
	0xD9, 0x59, 0xD8, 0xC8, 0x0A, 0x0A, 0x0A, 0x0A, 0xC8, 0xC8, 0xC8, 0xC8, 0xC8, 0xC8, 0xC8, 0xC8,
	0xD9, 0xD9, 0xD8, 0xA0, 0x0A, 0x0A, 0x0A, 0x0A, 0xD8, 0xD8, 0xD8, 0xD8, 0xD8, 0xD8, 0xD8, 0xD8,
	0xD8, 0x08, 0xE8, 0xE8, 0x0A, 0x0A, 0x0A, 0x0A, 0xE8, 0xE8, 0xE8, 0xE8, 0xE8, 0xE8, 0xE8, 0xE8,
	0xFD, 0xFD, 0xF8, 0xF8, 0x0A, 0x0A, 0x0A, 0x0A, 0xF8, 0xF8, 0xF8, 0xF8, 0xF8, 0xF8, 0xF8, 0xF8,
	0xDD, 0x4D, 0xE0, 0xE0, 0x0A, 0x0A, 0x0A, 0x0A, 0x88, 0x88, 0x08, 0x08, 0x88, 0x88, 0x08, 0x08,
}

// LSS commands, the low nibble of a sequencer entry
const (
	lssCmdCLR = 0x0 // clear the data register
	lssCmdNOP = 0x8
	lssCmdSL0 = 0x9 // shift left, insert 0
	lssCmdSR  = 0xA // shift right, write protect into bit 7
	lssCmdLD  = 0xB // load the data register from the bus latch
	lssCmdSL1 = 0xD // shift left, insert 1
)

// DefaultBitTiming is the nominal bit cell length: 32 quarter-ticks of the
// 2 MHz sequencer clock, one cell per 4 microseconds
const DefaultBitTiming = 32

// Controller is the Disk II card logic: the LSS, the mode switches, and up
// to two attached drives.
type Controller struct {
	Drives   [2]*Drive
	Selected int

	Motor bool

	lssState uint8
	q6       bool // shift / load
	q7       bool // read / write

	DataRegister uint8
	// busLatch holds the last value the CPU stored, picked up by the LD
	// command
	busLatch uint8

	// BitTiming is the bit cell length in quarter-ticks; slower or faster
	// media can retune it
	BitTiming int

	cellTick int
	cellBit  bool

	logger *debug.Logger
}

// NewController creates the controller with two empty drives
func NewController(logger *debug.Logger) *Controller {
	return &Controller{
		Drives:    [2]*Drive{NewDrive(logger), NewDrive(logger)},
		BitTiming: DefaultBitTiming,
		logger:    logger,
	}
}

// SelectedDrive returns the active mechanism
func (c *Controller) SelectedDrive() *Drive {
	return c.Drives[c.Selected]
}

// lssStep advances the sequencer one clock with the given read pulse
func (c *Controller) lssStep(pulse bool) {
	idx := uint(c.lssState) << 4
	if c.q7 {
		idx |= 8
	}
	if c.q6 {
		idx |= 4
	}
	if c.DataRegister&0x80 != 0 {
		idx |= 2
	}
	if pulse {
		idx |= 1
	}
	cmd := lssROM[idx]
	c.lssState = cmd >> 4
	switch cmd & 0x0F {
	case lssCmdNOP:
	case lssCmdSL0:
		c.DataRegister <<= 1
	case lssCmdSL1:
		c.DataRegister = c.DataRegister<<1 | 1
	case lssCmdSR:
		c.DataRegister >>= 1
		if c.SelectedDrive().WriteProtected {
			c.DataRegister |= 0x80
		}
	case lssCmdLD:
		c.DataRegister = c.busLatch
	default:
		if cmd&0x08 == 0 {
			c.DataRegister = 0
		}
	}
}

// Tick runs the sequencer for the given number of CPU cycles. The LSS
// clock is twice the CPU clock; a bit cell spans BitTiming quarter-ticks
// (eight sequencer clocks at the default timing). On the write side the
// data register shifts one bit onto the media per cell.
func (c *Controller) Tick(cycles uint32) {
	if !c.Motor {
		return
	}
	drive := c.SelectedDrive()
	ticksPerCell := c.BitTiming / 4
	if ticksPerCell < 1 {
		ticksPerCell = 1
	}
	ticks := int(cycles) * 2
	for i := 0; i < ticks; i++ {
		if c.cellTick == 0 && c.q7 {
			// Write mode runs at cell granularity: the register's high
			// bit reaches the head and the register shifts. The
			// sequencer stays parked so a mid-shift LD cannot clobber
			// the outgoing byte.
			drive.WriteBitAtHead(c.DataRegister&0x80 != 0)
			c.DataRegister <<= 1
		}
		if !c.q7 {
			pulse := false
			if c.cellTick == 0 {
				c.cellBit = drive.NextBit()
				pulse = c.cellBit
			}
			c.lssStep(pulse)
		}
		c.cellTick++
		if c.cellTick >= ticksPerCell {
			c.cellTick = 0
		}
	}
}

// IOAccess decodes one device register access ($C0x0..$C0xF for the
// card's slot). Even register reads return the data register; the
// write-protect sense appears when Q6 is raised with Q7 low.
func (c *Controller) IOAccess(reg uint8, value uint8, write bool) uint8 {
	drive := c.SelectedDrive()
	switch {
	case reg < 8:
		if err := drive.SetPhase(int(reg>>1), reg&1 != 0); err != nil && c.logger != nil {
			c.logger.LogFloppyf(debug.LogLevelError, "phase %d: %v", reg>>1, err)
		}
	case reg == 8:
		c.Motor = false
		c.Drives[0].Motor = false
		c.Drives[1].Motor = false
		// Park the write side so a half-written nibble does not leak
		if err := drive.FlushCurrent(); err != nil && c.logger != nil {
			c.logger.LogFloppyf(debug.LogLevelError, "motor off flush: %v", err)
		}
	case reg == 9:
		c.Motor = true
		drive.Motor = true
	case reg == 0xA, reg == 0xB:
		c.Drives[c.Selected].Motor = false
		c.Selected = int(reg & 1)
		c.Drives[c.Selected].Motor = c.Motor
	case reg == 0xC, reg == 0xD:
		c.q6 = reg&1 != 0
	case reg == 0xE, reg == 0xF:
		c.q7 = reg&1 != 0
	}

	if write && c.q6 && c.q7 {
		c.busLatch = value
		c.DataRegister = value
	}

	if reg&1 == 0 {
		if c.q6 && !c.q7 {
			// Write-protect sense
			if drive.WriteProtected {
				return 0x80
			}
			return 0x00
		}
		return c.DataRegister
	}
	return 0
}

// Reset returns the sequencer and switches to idle without touching the
// drives' media
func (c *Controller) Reset() {
	c.Motor = false
	c.Drives[0].Motor = false
	c.Drives[1].Motor = false
	c.lssState = 0
	c.q6 = false
	c.q7 = false
	c.DataRegister = 0
	c.cellTick = 0
}
