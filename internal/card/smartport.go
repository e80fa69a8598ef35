package card

import (
	"fmt"

	"iie-core/internal/cpu"
	"iie-core/internal/debug"
	"iie-core/internal/memory"
)

// SmartPort status/error codes returned in A with carry set
const (
	spErrBadStatus = 0x21
	spErrBadUnit   = 0x28
	spErrIO        = 0x2D
	spErrNoDevice  = 0x2F
)

// smartPortDriveCount is the number of block units the card exposes
const smartPortDriveCount = 2

// ProDOS zero-page parameter block for the block-device entry point
const (
	hdZPCommand = 0x42
	hdZPUnit    = 0x43
	hdZPBuffer  = 0x44
	hdZPBlock   = 0x46
)

// SmartPort is the block device card: a 256-byte ROM whose two entry
// points are BRK traps, so block transfers run host-side instead of
// through 6502 copy loops.
type SmartPort struct {
	Slot  int
	Units [smartPortDriveCount]*BlockDevice

	rom [256]uint8

	c      *cpu.CPU
	bus    *memory.Bus
	logger *debug.Logger
}

// NewSmartPort builds the card, registers its traps with the CPU, and
// assembles the firmware image for the slot.
func NewSmartPort(slot int, c *cpu.CPU, bus *memory.Bus, logger *debug.Logger) (*SmartPort, error) {
	sp := &SmartPort{
		Slot:   slot,
		c:      c,
		bus:    bus,
		logger: logger,
	}
	hdTrap, err := c.RegisterTrap(sp.hdTrap)
	if err != nil {
		return nil, fmt.Errorf("smartport: %w", err)
	}
	spTrap, err := c.RegisterTrap(sp.smartPortTrap)
	if err != nil {
		return nil, fmt.Errorf("smartport: %w", err)
	}

	// ProDOS block device signature: $Cn01=$20 $Cn03=$00 $Cn05=$03, and
	// $Cn07=$00 flags a SmartPort-capable card
	sp.rom[0x01] = 0x20
	sp.rom[0x03] = 0x00
	sp.rom[0x05] = 0x03
	sp.rom[0x07] = 0x00

	// ProDOS entry: BRK trap, RTS
	sp.rom[0x40] = 0x00
	sp.rom[0x41] = hdTrap
	sp.rom[0x42] = 0x60
	// SmartPort entry, ProDOS entry + 3: BRK trap, RTS
	sp.rom[0x43] = 0x00
	sp.rom[0x44] = spTrap
	sp.rom[0x45] = 0x60

	// Status byte: removable, read, write, status supported
	sp.rom[0xFE] = 0xD7
	// ProDOS entry point low byte
	sp.rom[0xFF] = 0x40

	return sp, nil
}

// Name implements memory.Card
func (sp *SmartPort) Name() string {
	return "smartport"
}

// ROM implements memory.Card
func (sp *SmartPort) ROM() []uint8 {
	return sp.rom[:]
}

// IOAccess implements memory.Card; the block card has no device registers
func (sp *SmartPort) IOAccess(reg uint8, value uint8, write bool) uint8 {
	return 0
}

// returnError sets the error surface: code in A, carry set
func (sp *SmartPort) returnError(code uint8) {
	sp.c.State.A = code
	sp.c.SetFlag(cpu.FlagC, true)
}

func (sp *SmartPort) returnOK() {
	sp.c.State.A = 0
	sp.c.SetFlag(cpu.FlagC, false)
}

// hdTrap services the ProDOS block-device entry: parameters in zero page
// $42..$47
func (sp *SmartPort) hdTrap(c *cpu.CPU) {
	command := sp.bus.Peek(hdZPCommand)
	unitByte := sp.bus.Peek(hdZPUnit)
	buffer := uint16(sp.bus.Peek(hdZPBuffer)) | uint16(sp.bus.Peek(hdZPBuffer+1))<<8
	block := uint32(sp.bus.Peek(hdZPBlock)) | uint32(sp.bus.Peek(hdZPBlock+1))<<8

	unit := 0
	if unitByte&0x80 != 0 {
		unit = 1
	}
	dev := sp.Units[unit]
	if dev == nil {
		sp.returnError(spErrNoDevice)
		return
	}

	switch command {
	case 0: // status
		c.State.X = uint8(dev.Blocks)
		c.State.Y = uint8(dev.Blocks >> 8)
		sp.returnOK()
	case 1: // read
		var buf [BlockSize]uint8
		if err := dev.ReadBlock(block, buf[:]); err != nil {
			sp.logError(err)
			sp.returnError(spErrIO)
			return
		}
		sp.bus.WriteRange(buffer, buf[:])
		sp.returnOK()
	case 2: // write
		var buf [BlockSize]uint8
		sp.bus.ReadRange(buffer, buf[:])
		if err := dev.WriteBlock(block, buf[:]); err != nil {
			sp.logError(err)
			sp.returnError(spErrIO)
			return
		}
		sp.returnOK()
	default:
		sp.returnError(spErrIO)
	}
}

// smartPortTrap services the SmartPort entry. Parameters follow the
// caller's JSR per the 1984 technote: command byte, then a pointer to the
// packed parameter block; the return address is advanced past them.
func (sp *SmartPort) smartPortTrap(c *cpu.CPU) {
	s := c.State.S
	raLo := sp.bus.Peek(0x0100 + uint16(s) + 1)
	raHi := sp.bus.Peek(0x0100 + uint16(s) + 2)
	ra := uint16(raLo) | uint16(raHi)<<8

	command := sp.bus.Peek(ra + 1)
	paramPtr := uint16(sp.bus.Peek(ra+2)) | uint16(sp.bus.Peek(ra+3))<<8

	// Resume execution past the inline parameters
	newRA := ra + 3
	sp.bus.Poke(0x0100+uint16(s)+1, uint8(newRA))
	sp.bus.Poke(0x0100+uint16(s)+2, uint8(newRA>>8))

	unit := sp.bus.Peek(paramPtr + 1)

	switch command {
	case 0: // get status
		sp.spStatus(c, paramPtr, unit)
	case 1: // read block
		dev, buffer, block, ok := sp.spBlockParams(paramPtr, unit)
		if !ok {
			return
		}
		var buf [BlockSize]uint8
		if err := dev.ReadBlock(block, buf[:]); err != nil {
			sp.logError(err)
			sp.returnError(spErrIO)
			return
		}
		sp.bus.WriteRange(buffer, buf[:])
		c.State.X = uint8(BlockSize & 0xFF)
		c.State.Y = uint8(BlockSize >> 8)
		sp.returnOK()
	case 2: // write block
		dev, buffer, block, ok := sp.spBlockParams(paramPtr, unit)
		if !ok {
			return
		}
		var buf [BlockSize]uint8
		sp.bus.ReadRange(buffer, buf[:])
		if err := dev.WriteBlock(block, buf[:]); err != nil {
			sp.logError(err)
			sp.returnError(spErrIO)
			return
		}
		sp.returnOK()
	default:
		sp.returnError(spErrBadUnit)
	}
}

// spBlockParams decodes the packed read/write parameter block
func (sp *SmartPort) spBlockParams(paramPtr uint16, unit uint8) (*BlockDevice, uint16, uint32, bool) {
	if unit == 0 || int(unit) > smartPortDriveCount {
		sp.returnError(spErrBadUnit)
		return nil, 0, 0, false
	}
	dev := sp.Units[unit-1]
	if dev == nil {
		sp.returnError(spErrNoDevice)
		return nil, 0, 0, false
	}
	buffer := uint16(sp.bus.Peek(paramPtr+2)) | uint16(sp.bus.Peek(paramPtr+3))<<8
	block := uint32(sp.bus.Peek(paramPtr+4)) |
		uint32(sp.bus.Peek(paramPtr+5))<<8 |
		uint32(sp.bus.Peek(paramPtr+6))<<16
	return dev, buffer, block, true
}

// spStatus services Get Status codes 0 (device status) and 3 (device
// information block)
func (sp *SmartPort) spStatus(c *cpu.CPU, paramPtr uint16, unit uint8) {
	listPtr := uint16(sp.bus.Peek(paramPtr+2)) | uint16(sp.bus.Peek(paramPtr+3))<<8
	code := sp.bus.Peek(paramPtr + 4)

	if unit == 0 {
		// Host status: first byte is the number of attached units
		if code != 0 {
			sp.returnError(spErrBadStatus)
			return
		}
		status := [8]uint8{smartPortDriveCount, 0, 0, 0, 0, 0, 0, 0}
		sp.bus.WriteRange(listPtr, status[:])
		c.State.X = 8
		c.State.Y = 0
		sp.returnOK()
		return
	}
	if int(unit) > smartPortDriveCount {
		sp.returnError(spErrBadUnit)
		return
	}
	dev := sp.Units[unit-1]
	if dev == nil {
		sp.returnError(spErrNoDevice)
		return
	}

	switch code {
	case 0:
		// Device status: flags plus 3-byte block count
		status := []uint8{
			0xF8, // online, writable, readable, formattable
			uint8(dev.Blocks),
			uint8(dev.Blocks >> 8),
			uint8(dev.Blocks >> 16),
		}
		if dev.ReadOnly {
			status[0] &^= 0x20
		}
		sp.bus.WriteRange(listPtr, status)
		c.State.X = uint8(len(status))
		c.State.Y = 0
		sp.returnOK()
	case 3:
		// Device information block
		dib := make([]uint8, 25)
		dib[0] = 0xF8
		dib[1] = uint8(dev.Blocks)
		dib[2] = uint8(dev.Blocks >> 8)
		dib[3] = uint8(dev.Blocks >> 16)
		name := "BLOCKDEV"
		dib[4] = uint8(len(name))
		copy(dib[5:21], name)
		dib[21] = 0x02 // hard disk
		dib[22] = 0x00
		dib[23] = 0x01 // firmware version
		dib[24] = 0x00
		sp.bus.WriteRange(listPtr, dib)
		c.State.X = uint8(len(dib))
		c.State.Y = 0
		sp.returnOK()
	default:
		sp.returnError(spErrBadStatus)
	}
}

func (sp *SmartPort) logError(err error) {
	if sp.logger != nil {
		sp.logger.LogFloppyf(debug.LogLevelError, "smartport: %v", err)
	}
}
