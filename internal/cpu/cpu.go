package cpu

import (
	"fmt"
)

// CPUState represents the complete state of the 65C02
type CPUState struct {
	// Registers
	A uint8
	X uint8
	Y uint8
	S uint8 // stack pointer, offset into $0100
	P uint8 // status register

	// Program counter
	PC uint16

	// Cycle counters: Cycle is the budget consumed inside the current
	// RunCycles call, TotalCycle never resets
	Cycle      uint32
	TotalCycle uint64

	// Interrupt lines
	IRQPending bool
	NMIPending bool
}

// Status register flags
const (
	FlagC uint8 = 0x01 // carry
	FlagZ uint8 = 0x02 // zero
	FlagI uint8 = 0x04 // interrupt disable
	FlagD uint8 = 0x08 // decimal mode
	FlagB uint8 = 0x10 // break (only on the stack)
	FlagU uint8 = 0x20 // unused, reads as 1
	FlagV uint8 = 0x40 // overflow
	FlagN uint8 = 0x80 // negative
)

// Vector addresses
const (
	VectorNMI   = 0xFFFA
	VectorReset = 0xFFFC
	VectorIRQ   = 0xFFFE
)

const stackBase = 0x0100

// MemoryInterface defines the interface for memory access
type MemoryInterface interface {
	Read8(addr uint16) uint8
	Write8(addr uint16, value uint8)
}

// LoggerInterface defines the interface for instruction logging
type LoggerInterface interface {
	LogCPU(opcode uint8, state CPUState)
}

// TrapFunc is a host-side callback invoked by a BRK signature byte. Traps
// are how card firmware implements block I/O without native 6502 transfer
// loops; the callback may read and write CPU registers and guest memory.
type TrapFunc func(c *CPU)

// CPU represents the emulated 65C02
type CPU struct {
	State CPUState
	Mem   MemoryInterface
	Log   LoggerInterface

	// TrapTable maps BRK signature bytes to host callbacks
	TrapTable [256]TrapFunc
	nextTrap  uint8

	// Speed is the guest speed multiplier (>= 1.0). It scales how fast the
	// cooperative timers see cycles, not how the CPU counts them.
	Speed float64

	// InstructionRun is the dispatch budget. Timer callbacks may zero it to
	// preempt the current run and surface a checkpoint to the frame loop.
	InstructionRun uint32

	// CycleSink receives every instruction's cycle cost, scaled by Speed.
	// The timer wheel hangs off this.
	CycleSink func(cycles uint32)

	// UndefinedCount counts undefined opcodes executed as two-byte NOPs
	UndefinedCount uint64
}

// NewCPU creates a new CPU instance
func NewCPU(mem MemoryInterface, log LoggerInterface) *CPU {
	c := &CPU{
		Mem:      mem,
		Log:      log,
		Speed:    1.0,
		nextTrap: 1,
	}
	c.State.S = 0xFF
	c.State.P = FlagU | FlagI
	return c
}

// RegisterTrap allocates a trap signature byte for fn. Signature 0 is never
// handed out so a BRK $00 always takes the interrupt path.
func (c *CPU) RegisterTrap(fn TrapFunc) (uint8, error) {
	for i := 0; i < 255; i++ {
		t := c.nextTrap
		c.nextTrap++
		if c.nextTrap == 0 {
			c.nextTrap = 1
		}
		if c.TrapTable[t] == nil {
			c.TrapTable[t] = fn
			return t, nil
		}
	}
	return 0, fmt.Errorf("cpu: trap table exhausted")
}

// Reset loads PC from the reset vector and clears the registers. The memory
// side of a cold start (zeroing guest RAM) belongs to the bus and is done by
// the caller before Reset.
func (c *CPU) Reset() {
	c.State.A = 0
	c.State.X = 0
	c.State.Y = 0
	c.State.S = 0xFF
	c.State.P = FlagU | FlagI
	c.State.IRQPending = false
	c.State.NMIPending = false
	c.State.PC = c.read16(VectorReset)
}

// Flag helpers

// GetFlag returns the value of a status flag
func (c *CPU) GetFlag(flag uint8) bool {
	return c.State.P&flag != 0
}

// SetFlag sets or clears a status flag
func (c *CPU) SetFlag(flag uint8, value bool) {
	if value {
		c.State.P |= flag
	} else {
		c.State.P &^= flag
	}
}

func (c *CPU) setNZ(value uint8) {
	c.SetFlag(FlagZ, value == 0)
	c.SetFlag(FlagN, value&0x80 != 0)
}

// Memory helpers

func (c *CPU) read16(addr uint16) uint16 {
	low := c.Mem.Read8(addr)
	high := c.Mem.Read8(addr + 1)
	return uint16(low) | uint16(high)<<8
}

// read16zp reads a 16-bit pointer from the zero page with wraparound
func (c *CPU) read16zp(addr uint8) uint16 {
	low := c.Mem.Read8(uint16(addr))
	high := c.Mem.Read8(uint16(addr + 1))
	return uint16(low) | uint16(high)<<8
}

func (c *CPU) push8(value uint8) {
	c.Mem.Write8(stackBase+uint16(c.State.S), value)
	c.State.S--
}

func (c *CPU) pop8() uint8 {
	c.State.S++
	return c.Mem.Read8(stackBase + uint16(c.State.S))
}

func (c *CPU) push16(value uint16) {
	c.push8(uint8(value >> 8))
	c.push8(uint8(value))
}

func (c *CPU) pop16() uint16 {
	low := c.pop8()
	high := c.pop8()
	return uint16(low) | uint16(high)<<8
}

func (c *CPU) fetch8() uint8 {
	v := c.Mem.Read8(c.State.PC)
	c.State.PC++
	return v
}

func (c *CPU) fetch16() uint16 {
	low := c.fetch8()
	high := c.fetch8()
	return uint16(low) | uint16(high)<<8
}

// Interrupt requests

// IRQ asserts the maskable interrupt line
func (c *CPU) IRQ() {
	c.State.IRQPending = true
}

// NMI asserts the non-maskable interrupt line
func (c *CPU) NMI() {
	c.State.NMIPending = true
}

// interrupt pushes state and vectors. The 65C02 clears decimal mode on the
// way into a handler.
func (c *CPU) interrupt(vector uint16, brk bool) uint32 {
	c.push16(c.State.PC)
	p := c.State.P | FlagU
	if brk {
		p |= FlagB
	} else {
		p &^= FlagB
	}
	c.push8(p)
	c.SetFlag(FlagI, true)
	c.SetFlag(FlagD, false)
	c.State.PC = c.read16(vector)
	return 7
}

// Step executes one instruction and returns its cycle cost
func (c *CPU) Step() uint32 {
	// Pending interrupts are taken at instruction boundaries
	if c.State.NMIPending {
		c.State.NMIPending = false
		return c.interrupt(VectorNMI, false)
	}
	if c.State.IRQPending && !c.GetFlag(FlagI) {
		c.State.IRQPending = false
		return c.interrupt(VectorIRQ, false)
	}

	opcode := c.fetch8()
	if c.Log != nil {
		// Report the pre-fetch PC; the opcode byte is already consumed so
		// the log never re-reads through a live soft switch
		logged := c.State
		logged.PC--
		c.Log.LogCPU(opcode, logged)
	}
	return opTable[opcode](c)
}

// RunCycles executes instructions until at least n cycles have elapsed or
// the instruction budget has been zeroed by a timer callback. It returns the
// number of cycles actually executed.
func (c *CPU) RunCycles(n uint32) uint32 {
	c.State.Cycle = 0
	c.InstructionRun = ^uint32(0)
	for c.State.Cycle < n && c.InstructionRun > 0 {
		cycles := c.Step()
		c.State.Cycle += cycles
		c.State.TotalCycle += uint64(cycles)
		c.InstructionRun--
		if c.CycleSink != nil {
			scaled := cycles
			if c.Speed > 1.0 {
				scaled = uint32(float64(cycles) * c.Speed)
			}
			c.CycleSink(scaled)
		}
	}
	return c.State.Cycle
}

// Preempt zeroes the instruction budget so RunCycles returns at the next
// instruction boundary
func (c *CPU) Preempt() {
	c.InstructionRun = 0
}

// Snapshot returns the register state in printable form
func (c *CPU) Snapshot() string {
	s := c.State
	return fmt.Sprintf("PC=%04X A=%02X X=%02X Y=%02X S=%02X P=%02X cyc=%d",
		s.PC, s.A, s.X, s.Y, s.S, s.P, s.TotalCycle)
}
