package debug

import (
	"fmt"
	"os"
	"sync"
)

// MemoryReader interface for reading guest memory (to avoid import cycles)
type MemoryReader interface {
	Peek(addr uint16) uint8
}

// VideoStateReader interface for reading video state (to avoid import cycles)
type VideoStateReader interface {
	GetLine() int
	GetVBLFlag() bool
	GetFrameCount() uint32
}

// FloppyStateReader interface for reading drive state (to avoid import cycles)
type FloppyStateReader interface {
	GetMotor() bool
	GetQTrack() int
	GetBitPosition() uint32
}

// CPUStateSnapshot represents 65C02 state for logging (to avoid import cycles)
type CPUStateSnapshot struct {
	A, X, Y, S, P uint8
	PC            uint16
	TotalCycle    uint64
}

// TraceLogger logs CPU register and machine state per executed instruction.
// This is useful for debugging timing-sensitive issues such as VBL polling
// loops and disk nibble timing.
type TraceLogger struct {
	file         *os.File
	maxRecords   uint64
	startRecord  uint64 // Start logging after this many instructions
	currentCount uint64
	totalCount   uint64
	enabled      bool
	mu           sync.Mutex

	// Interfaces for reading machine state
	mem    MemoryReader
	video  VideoStateReader
	floppy FloppyStateReader
}

// NewTraceLogger creates a new trace logger.
// maxRecords: maximum number of instructions to log (0 = unlimited, use with caution)
// startRecord: start logging after this many instructions (0 = start immediately)
func NewTraceLogger(filename string, maxRecords, startRecord uint64, mem MemoryReader, video VideoStateReader, floppy FloppyStateReader) (*TraceLogger, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace log file: %w", err)
	}

	logger := &TraceLogger{
		file:        file,
		maxRecords:  maxRecords,
		startRecord: startRecord,
		enabled:     true,
		mem:         mem,
		video:       video,
		floppy:      floppy,
	}

	fmt.Fprintf(file, "Instruction Trace Log\n")
	fmt.Fprintf(file, "=====================\n\n")
	if startRecord > 0 {
		fmt.Fprintf(file, "Start offset: %d instructions\n", startRecord)
	}
	if maxRecords > 0 {
		fmt.Fprintf(file, "Max records: %d\n", maxRecords)
	}
	fmt.Fprintf(file, "\nFormat: Cycle | PC | A X Y S | P flags | Video (line/VBL/frame) | Drive (motor/qtrack/bitpos) | KBD\n\n")

	return logger, nil
}

// LogInstruction logs the CPU state and key machine state for one instruction
func (t *TraceLogger) LogInstruction(state *CPUStateSnapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.enabled {
		return
	}

	t.totalCount++
	if t.totalCount < t.startRecord {
		return
	}
	if t.maxRecords > 0 && t.currentCount >= t.maxRecords {
		t.enabled = false
		return
	}
	t.currentCount++

	// Keyboard strobe latch is the single most useful memory byte in a trace
	kbd := uint8(0)
	if t.mem != nil {
		kbd = t.mem.Peek(0xC000)
	}

	line := -1
	vbl := false
	frame := uint32(0)
	if t.video != nil {
		line = t.video.GetLine()
		vbl = t.video.GetVBLFlag()
		frame = t.video.GetFrameCount()
	}

	motor := false
	qtrack := -1
	bitpos := uint32(0)
	if t.floppy != nil {
		motor = t.floppy.GetMotor()
		qtrack = t.floppy.GetQTrack()
		bitpos = t.floppy.GetBitPosition()
	}

	fmt.Fprintf(t.file, "Cycle %10d | PC %04X | A:%02X X:%02X Y:%02X S:%02X | P:%02X (N:%d V:%d D:%d I:%d Z:%d C:%d) | ",
		state.TotalCycle, state.PC, state.A, state.X, state.Y, state.S, state.P,
		(state.P>>7)&1, (state.P>>6)&1, (state.P>>3)&1, (state.P>>2)&1, (state.P>>1)&1, state.P&1)
	fmt.Fprintf(t.file, "VID:L%03d VBL:%v F:%05d | ", line, vbl, frame)
	fmt.Fprintf(t.file, "DRV:M:%v QT:%03d BP:%06d | KBD:%02X\n", motor, qtrack, bitpos, kbd)
}

// SetEnabled enables or disables logging
func (t *TraceLogger) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
}

// Toggle toggles logging on/off
func (t *TraceLogger) Toggle() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = !t.enabled
}

// Close closes the log file
func (t *TraceLogger) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.enabled = false

	if t.file != nil {
		fmt.Fprintf(t.file, "\n\nTrace complete. Instructions logged: %d\n", t.currentCount)
		err := t.file.Close()
		t.file = nil
		return err
	}
	return nil
}

// IsEnabled returns whether logging is enabled
func (t *TraceLogger) IsEnabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled && (t.maxRecords == 0 || t.currentCount < t.maxRecords)
}

// GetStatus returns the current logging status
func (t *TraceLogger) GetStatus() (enabled bool, current uint64, total uint64, max uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled, t.currentCount, t.totalCount, t.maxRecords
}
