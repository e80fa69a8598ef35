package cpu

// The 65C02 instruction set. One entry per opcode; each closure fetches its
// operands, performs the operation, and returns the cycle cost including
// page-crossing and branch penalties. Opcodes the 65C02 leaves undefined
// execute as two-byte NOPs.

var opTable [256]func(*CPU) uint32

// Addressing helpers. The absolute-indexed and (zp),Y forms report the
// one-cycle penalty for crossing a page boundary.

func (c *CPU) addrZP() uint16 {
	return uint16(c.fetch8())
}

func (c *CPU) addrZPX() uint16 {
	return uint16(c.fetch8() + c.State.X)
}

func (c *CPU) addrZPY() uint16 {
	return uint16(c.fetch8() + c.State.Y)
}

func (c *CPU) addrAbs() uint16 {
	return c.fetch16()
}

func (c *CPU) addrAbsX() (uint16, uint32) {
	base := c.fetch16()
	addr := base + uint16(c.State.X)
	if base&0xFF00 != addr&0xFF00 {
		return addr, 1
	}
	return addr, 0
}

func (c *CPU) addrAbsY() (uint16, uint32) {
	base := c.fetch16()
	addr := base + uint16(c.State.Y)
	if base&0xFF00 != addr&0xFF00 {
		return addr, 1
	}
	return addr, 0
}

func (c *CPU) addrIndX() uint16 {
	return c.read16zp(c.fetch8() + c.State.X)
}

func (c *CPU) addrIndY() (uint16, uint32) {
	base := c.read16zp(c.fetch8())
	addr := base + uint16(c.State.Y)
	if base&0xFF00 != addr&0xFF00 {
		return addr, 1
	}
	return addr, 0
}

func (c *CPU) addrZPI() uint16 {
	return c.read16zp(c.fetch8())
}

// Operation helpers

func (c *CPU) opADC(value uint8) {
	if c.GetFlag(FlagD) {
		c.adcDecimal(value)
		return
	}
	carry := uint16(0)
	if c.GetFlag(FlagC) {
		carry = 1
	}
	sum := uint16(c.State.A) + uint16(value) + carry
	result := uint8(sum)
	c.SetFlag(FlagC, sum > 0xFF)
	c.SetFlag(FlagV, (c.State.A^result)&(value^result)&0x80 != 0)
	c.State.A = result
	c.setNZ(result)
}

func (c *CPU) adcDecimal(value uint8) {
	carry := uint16(0)
	if c.GetFlag(FlagC) {
		carry = 1
	}
	lo := uint16(c.State.A&0x0F) + uint16(value&0x0F) + carry
	hi := uint16(c.State.A>>4) + uint16(value>>4)
	if lo > 9 {
		lo += 6
		hi++
	}
	c.SetFlag(FlagV, (^(c.State.A^value)&(c.State.A^uint8(hi<<4)))&0x80 != 0)
	if hi > 9 {
		hi += 6
	}
	c.SetFlag(FlagC, hi > 15)
	c.State.A = uint8(hi<<4) | uint8(lo&0x0F)
	c.setNZ(c.State.A)
}

func (c *CPU) opSBC(value uint8) {
	if c.GetFlag(FlagD) {
		c.sbcDecimal(value)
		return
	}
	c.opADC(^value)
}

func (c *CPU) sbcDecimal(value uint8) {
	carry := uint16(0)
	if c.GetFlag(FlagC) {
		carry = 1
	}
	diff := uint16(c.State.A) - uint16(value) - (1 - carry)
	lo := int16(c.State.A&0x0F) - int16(value&0x0F) - int16(1-carry)
	hi := int16(c.State.A>>4) - int16(value>>4)
	if lo < 0 {
		lo += 10
		hi--
	}
	if hi < 0 {
		hi += 10
	}
	result := uint8(diff)
	c.SetFlag(FlagC, diff < 0x100)
	c.SetFlag(FlagV, (c.State.A^value)&(c.State.A^result)&0x80 != 0)
	c.State.A = uint8(hi<<4) | uint8(lo&0x0F)
	c.setNZ(c.State.A)
}

func (c *CPU) opCompare(reg, value uint8) {
	c.SetFlag(FlagC, reg >= value)
	c.setNZ(reg - value)
}

func (c *CPU) opASL(value uint8) uint8 {
	c.SetFlag(FlagC, value&0x80 != 0)
	value <<= 1
	c.setNZ(value)
	return value
}

func (c *CPU) opLSR(value uint8) uint8 {
	c.SetFlag(FlagC, value&0x01 != 0)
	value >>= 1
	c.setNZ(value)
	return value
}

func (c *CPU) opROL(value uint8) uint8 {
	carryIn := uint8(0)
	if c.GetFlag(FlagC) {
		carryIn = 1
	}
	c.SetFlag(FlagC, value&0x80 != 0)
	value = value<<1 | carryIn
	c.setNZ(value)
	return value
}

func (c *CPU) opROR(value uint8) uint8 {
	carryIn := uint8(0)
	if c.GetFlag(FlagC) {
		carryIn = 0x80
	}
	c.SetFlag(FlagC, value&0x01 != 0)
	value = value>>1 | carryIn
	c.setNZ(value)
	return value
}

func (c *CPU) opBIT(value uint8) {
	c.SetFlag(FlagZ, c.State.A&value == 0)
	c.SetFlag(FlagN, value&0x80 != 0)
	c.SetFlag(FlagV, value&0x40 != 0)
}

// rmw applies fn to the byte at addr in place
func (c *CPU) rmw(addr uint16, fn func(*CPU, uint8) uint8) {
	c.Mem.Write8(addr, fn(c, c.Mem.Read8(addr)))
}

// branch applies a taken relative branch and returns the cycle penalty
func (c *CPU) branch(taken bool) uint32 {
	offset := int8(c.fetch8())
	if !taken {
		return 2
	}
	old := c.State.PC
	c.State.PC = uint16(int32(old) + int32(offset))
	if old&0xFF00 != c.State.PC&0xFF00 {
		return 4
	}
	return 3
}

// opBRK dispatches a trap when the signature byte is registered, otherwise
// takes the software interrupt path
func opBRK(c *CPU) uint32 {
	t := c.fetch8()
	if trap := c.TrapTable[t]; trap != nil {
		trap(c)
		return 7
	}
	// PC already points past the signature byte, as hardware pushes it
	return c.interrupt(VectorIRQ, true)
}

func opUndefined(c *CPU) uint32 {
	// Undefined opcodes execute as two-byte NOPs; emulation never aborts on
	// guest misbehaviour
	c.fetch8()
	c.UndefinedCount++
	return 2
}

func init() {
	for i := range opTable {
		opTable[i] = opUndefined
	}

	// Load / store
	opTable[0xA9] = func(c *CPU) uint32 { c.State.A = c.fetch8(); c.setNZ(c.State.A); return 2 }
	opTable[0xA5] = func(c *CPU) uint32 { c.State.A = c.Mem.Read8(c.addrZP()); c.setNZ(c.State.A); return 3 }
	opTable[0xB5] = func(c *CPU) uint32 { c.State.A = c.Mem.Read8(c.addrZPX()); c.setNZ(c.State.A); return 4 }
	opTable[0xAD] = func(c *CPU) uint32 { c.State.A = c.Mem.Read8(c.addrAbs()); c.setNZ(c.State.A); return 4 }
	opTable[0xBD] = func(c *CPU) uint32 {
		addr, pen := c.addrAbsX()
		c.State.A = c.Mem.Read8(addr)
		c.setNZ(c.State.A)
		return 4 + pen
	}
	opTable[0xB9] = func(c *CPU) uint32 {
		addr, pen := c.addrAbsY()
		c.State.A = c.Mem.Read8(addr)
		c.setNZ(c.State.A)
		return 4 + pen
	}
	opTable[0xA1] = func(c *CPU) uint32 { c.State.A = c.Mem.Read8(c.addrIndX()); c.setNZ(c.State.A); return 6 }
	opTable[0xB1] = func(c *CPU) uint32 {
		addr, pen := c.addrIndY()
		c.State.A = c.Mem.Read8(addr)
		c.setNZ(c.State.A)
		return 5 + pen
	}
	opTable[0xB2] = func(c *CPU) uint32 { c.State.A = c.Mem.Read8(c.addrZPI()); c.setNZ(c.State.A); return 5 }

	opTable[0xA2] = func(c *CPU) uint32 { c.State.X = c.fetch8(); c.setNZ(c.State.X); return 2 }
	opTable[0xA6] = func(c *CPU) uint32 { c.State.X = c.Mem.Read8(c.addrZP()); c.setNZ(c.State.X); return 3 }
	opTable[0xB6] = func(c *CPU) uint32 { c.State.X = c.Mem.Read8(c.addrZPY()); c.setNZ(c.State.X); return 4 }
	opTable[0xAE] = func(c *CPU) uint32 { c.State.X = c.Mem.Read8(c.addrAbs()); c.setNZ(c.State.X); return 4 }
	opTable[0xBE] = func(c *CPU) uint32 {
		addr, pen := c.addrAbsY()
		c.State.X = c.Mem.Read8(addr)
		c.setNZ(c.State.X)
		return 4 + pen
	}

	opTable[0xA0] = func(c *CPU) uint32 { c.State.Y = c.fetch8(); c.setNZ(c.State.Y); return 2 }
	opTable[0xA4] = func(c *CPU) uint32 { c.State.Y = c.Mem.Read8(c.addrZP()); c.setNZ(c.State.Y); return 3 }
	opTable[0xB4] = func(c *CPU) uint32 { c.State.Y = c.Mem.Read8(c.addrZPX()); c.setNZ(c.State.Y); return 4 }
	opTable[0xAC] = func(c *CPU) uint32 { c.State.Y = c.Mem.Read8(c.addrAbs()); c.setNZ(c.State.Y); return 4 }
	opTable[0xBC] = func(c *CPU) uint32 {
		addr, pen := c.addrAbsX()
		c.State.Y = c.Mem.Read8(addr)
		c.setNZ(c.State.Y)
		return 4 + pen
	}

	opTable[0x85] = func(c *CPU) uint32 { c.Mem.Write8(c.addrZP(), c.State.A); return 3 }
	opTable[0x95] = func(c *CPU) uint32 { c.Mem.Write8(c.addrZPX(), c.State.A); return 4 }
	opTable[0x8D] = func(c *CPU) uint32 { c.Mem.Write8(c.addrAbs(), c.State.A); return 4 }
	opTable[0x9D] = func(c *CPU) uint32 { addr, _ := c.addrAbsX(); c.Mem.Write8(addr, c.State.A); return 5 }
	opTable[0x99] = func(c *CPU) uint32 { addr, _ := c.addrAbsY(); c.Mem.Write8(addr, c.State.A); return 5 }
	opTable[0x81] = func(c *CPU) uint32 { c.Mem.Write8(c.addrIndX(), c.State.A); return 6 }
	opTable[0x91] = func(c *CPU) uint32 { addr, _ := c.addrIndY(); c.Mem.Write8(addr, c.State.A); return 6 }
	opTable[0x92] = func(c *CPU) uint32 { c.Mem.Write8(c.addrZPI(), c.State.A); return 5 }

	opTable[0x86] = func(c *CPU) uint32 { c.Mem.Write8(c.addrZP(), c.State.X); return 3 }
	opTable[0x96] = func(c *CPU) uint32 { c.Mem.Write8(c.addrZPY(), c.State.X); return 4 }
	opTable[0x8E] = func(c *CPU) uint32 { c.Mem.Write8(c.addrAbs(), c.State.X); return 4 }

	opTable[0x84] = func(c *CPU) uint32 { c.Mem.Write8(c.addrZP(), c.State.Y); return 3 }
	opTable[0x94] = func(c *CPU) uint32 { c.Mem.Write8(c.addrZPX(), c.State.Y); return 4 }
	opTable[0x8C] = func(c *CPU) uint32 { c.Mem.Write8(c.addrAbs(), c.State.Y); return 4 }

	opTable[0x64] = func(c *CPU) uint32 { c.Mem.Write8(c.addrZP(), 0); return 3 }
	opTable[0x74] = func(c *CPU) uint32 { c.Mem.Write8(c.addrZPX(), 0); return 4 }
	opTable[0x9C] = func(c *CPU) uint32 { c.Mem.Write8(c.addrAbs(), 0); return 4 }
	opTable[0x9E] = func(c *CPU) uint32 { addr, _ := c.addrAbsX(); c.Mem.Write8(addr, 0); return 5 }

	// Arithmetic
	opTable[0x69] = func(c *CPU) uint32 { c.opADC(c.fetch8()); return 2 + c.decPenalty() }
	opTable[0x65] = func(c *CPU) uint32 { c.opADC(c.Mem.Read8(c.addrZP())); return 3 + c.decPenalty() }
	opTable[0x75] = func(c *CPU) uint32 { c.opADC(c.Mem.Read8(c.addrZPX())); return 4 + c.decPenalty() }
	opTable[0x6D] = func(c *CPU) uint32 { c.opADC(c.Mem.Read8(c.addrAbs())); return 4 + c.decPenalty() }
	opTable[0x7D] = func(c *CPU) uint32 {
		addr, pen := c.addrAbsX()
		c.opADC(c.Mem.Read8(addr))
		return 4 + pen + c.decPenalty()
	}
	opTable[0x79] = func(c *CPU) uint32 {
		addr, pen := c.addrAbsY()
		c.opADC(c.Mem.Read8(addr))
		return 4 + pen + c.decPenalty()
	}
	opTable[0x61] = func(c *CPU) uint32 { c.opADC(c.Mem.Read8(c.addrIndX())); return 6 + c.decPenalty() }
	opTable[0x71] = func(c *CPU) uint32 {
		addr, pen := c.addrIndY()
		c.opADC(c.Mem.Read8(addr))
		return 5 + pen + c.decPenalty()
	}
	opTable[0x72] = func(c *CPU) uint32 { c.opADC(c.Mem.Read8(c.addrZPI())); return 5 + c.decPenalty() }

	opTable[0xE9] = func(c *CPU) uint32 { c.opSBC(c.fetch8()); return 2 + c.decPenalty() }
	opTable[0xE5] = func(c *CPU) uint32 { c.opSBC(c.Mem.Read8(c.addrZP())); return 3 + c.decPenalty() }
	opTable[0xF5] = func(c *CPU) uint32 { c.opSBC(c.Mem.Read8(c.addrZPX())); return 4 + c.decPenalty() }
	opTable[0xED] = func(c *CPU) uint32 { c.opSBC(c.Mem.Read8(c.addrAbs())); return 4 + c.decPenalty() }
	opTable[0xFD] = func(c *CPU) uint32 {
		addr, pen := c.addrAbsX()
		c.opSBC(c.Mem.Read8(addr))
		return 4 + pen + c.decPenalty()
	}
	opTable[0xF9] = func(c *CPU) uint32 {
		addr, pen := c.addrAbsY()
		c.opSBC(c.Mem.Read8(addr))
		return 4 + pen + c.decPenalty()
	}
	opTable[0xE1] = func(c *CPU) uint32 { c.opSBC(c.Mem.Read8(c.addrIndX())); return 6 + c.decPenalty() }
	opTable[0xF1] = func(c *CPU) uint32 {
		addr, pen := c.addrIndY()
		c.opSBC(c.Mem.Read8(addr))
		return 5 + pen + c.decPenalty()
	}
	opTable[0xF2] = func(c *CPU) uint32 { c.opSBC(c.Mem.Read8(c.addrZPI())); return 5 + c.decPenalty() }

	// Logic
	opTable[0x29] = func(c *CPU) uint32 { c.State.A &= c.fetch8(); c.setNZ(c.State.A); return 2 }
	opTable[0x25] = func(c *CPU) uint32 { c.State.A &= c.Mem.Read8(c.addrZP()); c.setNZ(c.State.A); return 3 }
	opTable[0x35] = func(c *CPU) uint32 { c.State.A &= c.Mem.Read8(c.addrZPX()); c.setNZ(c.State.A); return 4 }
	opTable[0x2D] = func(c *CPU) uint32 { c.State.A &= c.Mem.Read8(c.addrAbs()); c.setNZ(c.State.A); return 4 }
	opTable[0x3D] = func(c *CPU) uint32 {
		addr, pen := c.addrAbsX()
		c.State.A &= c.Mem.Read8(addr)
		c.setNZ(c.State.A)
		return 4 + pen
	}
	opTable[0x39] = func(c *CPU) uint32 {
		addr, pen := c.addrAbsY()
		c.State.A &= c.Mem.Read8(addr)
		c.setNZ(c.State.A)
		return 4 + pen
	}
	opTable[0x21] = func(c *CPU) uint32 { c.State.A &= c.Mem.Read8(c.addrIndX()); c.setNZ(c.State.A); return 6 }
	opTable[0x31] = func(c *CPU) uint32 {
		addr, pen := c.addrIndY()
		c.State.A &= c.Mem.Read8(addr)
		c.setNZ(c.State.A)
		return 5 + pen
	}
	opTable[0x32] = func(c *CPU) uint32 { c.State.A &= c.Mem.Read8(c.addrZPI()); c.setNZ(c.State.A); return 5 }

	opTable[0x09] = func(c *CPU) uint32 { c.State.A |= c.fetch8(); c.setNZ(c.State.A); return 2 }
	opTable[0x05] = func(c *CPU) uint32 { c.State.A |= c.Mem.Read8(c.addrZP()); c.setNZ(c.State.A); return 3 }
	opTable[0x15] = func(c *CPU) uint32 { c.State.A |= c.Mem.Read8(c.addrZPX()); c.setNZ(c.State.A); return 4 }
	opTable[0x0D] = func(c *CPU) uint32 { c.State.A |= c.Mem.Read8(c.addrAbs()); c.setNZ(c.State.A); return 4 }
	opTable[0x1D] = func(c *CPU) uint32 {
		addr, pen := c.addrAbsX()
		c.State.A |= c.Mem.Read8(addr)
		c.setNZ(c.State.A)
		return 4 + pen
	}
	opTable[0x19] = func(c *CPU) uint32 {
		addr, pen := c.addrAbsY()
		c.State.A |= c.Mem.Read8(addr)
		c.setNZ(c.State.A)
		return 4 + pen
	}
	opTable[0x01] = func(c *CPU) uint32 { c.State.A |= c.Mem.Read8(c.addrIndX()); c.setNZ(c.State.A); return 6 }
	opTable[0x11] = func(c *CPU) uint32 {
		addr, pen := c.addrIndY()
		c.State.A |= c.Mem.Read8(addr)
		c.setNZ(c.State.A)
		return 5 + pen
	}
	opTable[0x12] = func(c *CPU) uint32 { c.State.A |= c.Mem.Read8(c.addrZPI()); c.setNZ(c.State.A); return 5 }

	opTable[0x49] = func(c *CPU) uint32 { c.State.A ^= c.fetch8(); c.setNZ(c.State.A); return 2 }
	opTable[0x45] = func(c *CPU) uint32 { c.State.A ^= c.Mem.Read8(c.addrZP()); c.setNZ(c.State.A); return 3 }
	opTable[0x55] = func(c *CPU) uint32 { c.State.A ^= c.Mem.Read8(c.addrZPX()); c.setNZ(c.State.A); return 4 }
	opTable[0x4D] = func(c *CPU) uint32 { c.State.A ^= c.Mem.Read8(c.addrAbs()); c.setNZ(c.State.A); return 4 }
	opTable[0x5D] = func(c *CPU) uint32 {
		addr, pen := c.addrAbsX()
		c.State.A ^= c.Mem.Read8(addr)
		c.setNZ(c.State.A)
		return 4 + pen
	}
	opTable[0x59] = func(c *CPU) uint32 {
		addr, pen := c.addrAbsY()
		c.State.A ^= c.Mem.Read8(addr)
		c.setNZ(c.State.A)
		return 4 + pen
	}
	opTable[0x41] = func(c *CPU) uint32 { c.State.A ^= c.Mem.Read8(c.addrIndX()); c.setNZ(c.State.A); return 6 }
	opTable[0x51] = func(c *CPU) uint32 {
		addr, pen := c.addrIndY()
		c.State.A ^= c.Mem.Read8(addr)
		c.setNZ(c.State.A)
		return 5 + pen
	}
	opTable[0x52] = func(c *CPU) uint32 { c.State.A ^= c.Mem.Read8(c.addrZPI()); c.setNZ(c.State.A); return 5 }

	// Compare
	opTable[0xC9] = func(c *CPU) uint32 { c.opCompare(c.State.A, c.fetch8()); return 2 }
	opTable[0xC5] = func(c *CPU) uint32 { c.opCompare(c.State.A, c.Mem.Read8(c.addrZP())); return 3 }
	opTable[0xD5] = func(c *CPU) uint32 { c.opCompare(c.State.A, c.Mem.Read8(c.addrZPX())); return 4 }
	opTable[0xCD] = func(c *CPU) uint32 { c.opCompare(c.State.A, c.Mem.Read8(c.addrAbs())); return 4 }
	opTable[0xDD] = func(c *CPU) uint32 {
		addr, pen := c.addrAbsX()
		c.opCompare(c.State.A, c.Mem.Read8(addr))
		return 4 + pen
	}
	opTable[0xD9] = func(c *CPU) uint32 {
		addr, pen := c.addrAbsY()
		c.opCompare(c.State.A, c.Mem.Read8(addr))
		return 4 + pen
	}
	opTable[0xC1] = func(c *CPU) uint32 { c.opCompare(c.State.A, c.Mem.Read8(c.addrIndX())); return 6 }
	opTable[0xD1] = func(c *CPU) uint32 {
		addr, pen := c.addrIndY()
		c.opCompare(c.State.A, c.Mem.Read8(addr))
		return 5 + pen
	}
	opTable[0xD2] = func(c *CPU) uint32 { c.opCompare(c.State.A, c.Mem.Read8(c.addrZPI())); return 5 }

	opTable[0xE0] = func(c *CPU) uint32 { c.opCompare(c.State.X, c.fetch8()); return 2 }
	opTable[0xE4] = func(c *CPU) uint32 { c.opCompare(c.State.X, c.Mem.Read8(c.addrZP())); return 3 }
	opTable[0xEC] = func(c *CPU) uint32 { c.opCompare(c.State.X, c.Mem.Read8(c.addrAbs())); return 4 }

	opTable[0xC0] = func(c *CPU) uint32 { c.opCompare(c.State.Y, c.fetch8()); return 2 }
	opTable[0xC4] = func(c *CPU) uint32 { c.opCompare(c.State.Y, c.Mem.Read8(c.addrZP())); return 3 }
	opTable[0xCC] = func(c *CPU) uint32 { c.opCompare(c.State.Y, c.Mem.Read8(c.addrAbs())); return 4 }

	// BIT
	opTable[0x24] = func(c *CPU) uint32 { c.opBIT(c.Mem.Read8(c.addrZP())); return 3 }
	opTable[0x2C] = func(c *CPU) uint32 { c.opBIT(c.Mem.Read8(c.addrAbs())); return 4 }
	opTable[0x34] = func(c *CPU) uint32 { c.opBIT(c.Mem.Read8(c.addrZPX())); return 4 }
	opTable[0x3C] = func(c *CPU) uint32 {
		addr, pen := c.addrAbsX()
		c.opBIT(c.Mem.Read8(addr))
		return 4 + pen
	}
	opTable[0x89] = func(c *CPU) uint32 {
		// Immediate BIT only affects Z
		c.SetFlag(FlagZ, c.State.A&c.fetch8() == 0)
		return 2
	}

	// TSB / TRB
	opTable[0x04] = func(c *CPU) uint32 {
		addr := c.addrZP()
		v := c.Mem.Read8(addr)
		c.SetFlag(FlagZ, c.State.A&v == 0)
		c.Mem.Write8(addr, v|c.State.A)
		return 5
	}
	opTable[0x0C] = func(c *CPU) uint32 {
		addr := c.addrAbs()
		v := c.Mem.Read8(addr)
		c.SetFlag(FlagZ, c.State.A&v == 0)
		c.Mem.Write8(addr, v|c.State.A)
		return 6
	}
	opTable[0x14] = func(c *CPU) uint32 {
		addr := c.addrZP()
		v := c.Mem.Read8(addr)
		c.SetFlag(FlagZ, c.State.A&v == 0)
		c.Mem.Write8(addr, v&^c.State.A)
		return 5
	}
	opTable[0x1C] = func(c *CPU) uint32 {
		addr := c.addrAbs()
		v := c.Mem.Read8(addr)
		c.SetFlag(FlagZ, c.State.A&v == 0)
		c.Mem.Write8(addr, v&^c.State.A)
		return 6
	}

	// Shifts and rotates
	opTable[0x0A] = func(c *CPU) uint32 { c.State.A = c.opASL(c.State.A); return 2 }
	opTable[0x06] = func(c *CPU) uint32 { c.rmw(c.addrZP(), (*CPU).opASL); return 5 }
	opTable[0x16] = func(c *CPU) uint32 { c.rmw(c.addrZPX(), (*CPU).opASL); return 6 }
	opTable[0x0E] = func(c *CPU) uint32 { c.rmw(c.addrAbs(), (*CPU).opASL); return 6 }
	opTable[0x1E] = func(c *CPU) uint32 { addr, _ := c.addrAbsX(); c.rmw(addr, (*CPU).opASL); return 7 }

	opTable[0x4A] = func(c *CPU) uint32 { c.State.A = c.opLSR(c.State.A); return 2 }
	opTable[0x46] = func(c *CPU) uint32 { c.rmw(c.addrZP(), (*CPU).opLSR); return 5 }
	opTable[0x56] = func(c *CPU) uint32 { c.rmw(c.addrZPX(), (*CPU).opLSR); return 6 }
	opTable[0x4E] = func(c *CPU) uint32 { c.rmw(c.addrAbs(), (*CPU).opLSR); return 6 }
	opTable[0x5E] = func(c *CPU) uint32 { addr, _ := c.addrAbsX(); c.rmw(addr, (*CPU).opLSR); return 7 }

	opTable[0x2A] = func(c *CPU) uint32 { c.State.A = c.opROL(c.State.A); return 2 }
	opTable[0x26] = func(c *CPU) uint32 { c.rmw(c.addrZP(), (*CPU).opROL); return 5 }
	opTable[0x36] = func(c *CPU) uint32 { c.rmw(c.addrZPX(), (*CPU).opROL); return 6 }
	opTable[0x2E] = func(c *CPU) uint32 { c.rmw(c.addrAbs(), (*CPU).opROL); return 6 }
	opTable[0x3E] = func(c *CPU) uint32 { addr, _ := c.addrAbsX(); c.rmw(addr, (*CPU).opROL); return 7 }

	opTable[0x6A] = func(c *CPU) uint32 { c.State.A = c.opROR(c.State.A); return 2 }
	opTable[0x66] = func(c *CPU) uint32 { c.rmw(c.addrZP(), (*CPU).opROR); return 5 }
	opTable[0x76] = func(c *CPU) uint32 { c.rmw(c.addrZPX(), (*CPU).opROR); return 6 }
	opTable[0x6E] = func(c *CPU) uint32 { c.rmw(c.addrAbs(), (*CPU).opROR); return 6 }
	opTable[0x7E] = func(c *CPU) uint32 { addr, _ := c.addrAbsX(); c.rmw(addr, (*CPU).opROR); return 7 }

	// Increment / decrement
	opTable[0xE6] = func(c *CPU) uint32 { c.rmw(c.addrZP(), incByte); return 5 }
	opTable[0xF6] = func(c *CPU) uint32 { c.rmw(c.addrZPX(), incByte); return 6 }
	opTable[0xEE] = func(c *CPU) uint32 { c.rmw(c.addrAbs(), incByte); return 6 }
	opTable[0xFE] = func(c *CPU) uint32 { addr, _ := c.addrAbsX(); c.rmw(addr, incByte); return 7 }
	opTable[0x1A] = func(c *CPU) uint32 { c.State.A++; c.setNZ(c.State.A); return 2 }

	opTable[0xC6] = func(c *CPU) uint32 { c.rmw(c.addrZP(), decByte); return 5 }
	opTable[0xD6] = func(c *CPU) uint32 { c.rmw(c.addrZPX(), decByte); return 6 }
	opTable[0xCE] = func(c *CPU) uint32 { c.rmw(c.addrAbs(), decByte); return 6 }
	opTable[0xDE] = func(c *CPU) uint32 { addr, _ := c.addrAbsX(); c.rmw(addr, decByte); return 7 }
	opTable[0x3A] = func(c *CPU) uint32 { c.State.A--; c.setNZ(c.State.A); return 2 }

	opTable[0xE8] = func(c *CPU) uint32 { c.State.X++; c.setNZ(c.State.X); return 2 }
	opTable[0xC8] = func(c *CPU) uint32 { c.State.Y++; c.setNZ(c.State.Y); return 2 }
	opTable[0xCA] = func(c *CPU) uint32 { c.State.X--; c.setNZ(c.State.X); return 2 }
	opTable[0x88] = func(c *CPU) uint32 { c.State.Y--; c.setNZ(c.State.Y); return 2 }

	// Register transfers
	opTable[0xAA] = func(c *CPU) uint32 { c.State.X = c.State.A; c.setNZ(c.State.X); return 2 }
	opTable[0xA8] = func(c *CPU) uint32 { c.State.Y = c.State.A; c.setNZ(c.State.Y); return 2 }
	opTable[0x8A] = func(c *CPU) uint32 { c.State.A = c.State.X; c.setNZ(c.State.A); return 2 }
	opTable[0x98] = func(c *CPU) uint32 { c.State.A = c.State.Y; c.setNZ(c.State.A); return 2 }
	opTable[0xBA] = func(c *CPU) uint32 { c.State.X = c.State.S; c.setNZ(c.State.X); return 2 }
	opTable[0x9A] = func(c *CPU) uint32 { c.State.S = c.State.X; return 2 }

	// Stack
	opTable[0x48] = func(c *CPU) uint32 { c.push8(c.State.A); return 3 }
	opTable[0x68] = func(c *CPU) uint32 { c.State.A = c.pop8(); c.setNZ(c.State.A); return 4 }
	opTable[0x08] = func(c *CPU) uint32 { c.push8(c.State.P | FlagB | FlagU); return 3 }
	opTable[0x28] = func(c *CPU) uint32 { c.State.P = c.pop8()&^FlagB | FlagU; return 4 }
	opTable[0xDA] = func(c *CPU) uint32 { c.push8(c.State.X); return 3 }
	opTable[0xFA] = func(c *CPU) uint32 { c.State.X = c.pop8(); c.setNZ(c.State.X); return 4 }
	opTable[0x5A] = func(c *CPU) uint32 { c.push8(c.State.Y); return 3 }
	opTable[0x7A] = func(c *CPU) uint32 { c.State.Y = c.pop8(); c.setNZ(c.State.Y); return 4 }

	// Flag operations
	opTable[0x18] = func(c *CPU) uint32 { c.SetFlag(FlagC, false); return 2 }
	opTable[0x38] = func(c *CPU) uint32 { c.SetFlag(FlagC, true); return 2 }
	opTable[0x58] = func(c *CPU) uint32 { c.SetFlag(FlagI, false); return 2 }
	opTable[0x78] = func(c *CPU) uint32 { c.SetFlag(FlagI, true); return 2 }
	opTable[0xB8] = func(c *CPU) uint32 { c.SetFlag(FlagV, false); return 2 }
	opTable[0xD8] = func(c *CPU) uint32 { c.SetFlag(FlagD, false); return 2 }
	opTable[0xF8] = func(c *CPU) uint32 { c.SetFlag(FlagD, true); return 2 }

	// Jumps and subroutines
	opTable[0x4C] = func(c *CPU) uint32 { c.State.PC = c.addrAbs(); return 3 }
	opTable[0x6C] = func(c *CPU) uint32 { c.State.PC = c.read16(c.addrAbs()); return 6 }
	opTable[0x7C] = func(c *CPU) uint32 { c.State.PC = c.read16(c.addrAbs() + uint16(c.State.X)); return 6 }
	opTable[0x20] = func(c *CPU) uint32 {
		target := c.addrAbs()
		c.push16(c.State.PC - 1)
		c.State.PC = target
		return 6
	}
	opTable[0x60] = func(c *CPU) uint32 { c.State.PC = c.pop16() + 1; return 6 }
	opTable[0x40] = func(c *CPU) uint32 {
		c.State.P = c.pop8()&^FlagB | FlagU
		c.State.PC = c.pop16()
		return 6
	}

	// Branches
	opTable[0x10] = func(c *CPU) uint32 { return c.branch(!c.GetFlag(FlagN)) }
	opTable[0x30] = func(c *CPU) uint32 { return c.branch(c.GetFlag(FlagN)) }
	opTable[0x50] = func(c *CPU) uint32 { return c.branch(!c.GetFlag(FlagV)) }
	opTable[0x70] = func(c *CPU) uint32 { return c.branch(c.GetFlag(FlagV)) }
	opTable[0x90] = func(c *CPU) uint32 { return c.branch(!c.GetFlag(FlagC)) }
	opTable[0xB0] = func(c *CPU) uint32 { return c.branch(c.GetFlag(FlagC)) }
	opTable[0xD0] = func(c *CPU) uint32 { return c.branch(!c.GetFlag(FlagZ)) }
	opTable[0xF0] = func(c *CPU) uint32 { return c.branch(c.GetFlag(FlagZ)) }
	opTable[0x80] = func(c *CPU) uint32 {
		pen := c.branch(true)
		return pen
	}

	// Misc
	opTable[0x00] = opBRK
	opTable[0xEA] = func(c *CPU) uint32 { return 2 }
}

func incByte(c *CPU, v uint8) uint8 {
	v++
	c.setNZ(v)
	return v
}

func decByte(c *CPU, v uint8) uint8 {
	v--
	c.setNZ(v)
	return v
}

// decPenalty is the one extra cycle the 65C02 spends on ADC/SBC in decimal
// mode
func (c *CPU) decPenalty() uint32 {
	if c.GetFlag(FlagD) {
		return 1
	}
	return 0
}
