package cpu

import (
	"fmt"

	"iie-core/internal/debug"
)

// CPULogLevel controls how much instruction-level logging the adapter emits
type CPULogLevel int

const (
	CPULogNone CPULogLevel = iota
	CPULogInstructions
)

// CPULoggerAdapter adapts the central debug logger to the CPU's
// LoggerInterface. Instruction logging is expensive; it stays off unless
// explicitly raised.
type CPULoggerAdapter struct {
	logger *debug.Logger
	level  CPULogLevel
}

// NewCPULoggerAdapter creates a new adapter
func NewCPULoggerAdapter(logger *debug.Logger, level CPULogLevel) *CPULoggerAdapter {
	return &CPULoggerAdapter{logger: logger, level: level}
}

// SetLevel changes the logging level
func (a *CPULoggerAdapter) SetLevel(level CPULogLevel) {
	a.level = level
}

// LogCPU logs one instruction fetch
func (a *CPULoggerAdapter) LogCPU(opcode uint8, state CPUState) {
	if a.level < CPULogInstructions || a.logger == nil {
		return
	}
	a.logger.LogCPU(debug.LogLevelTrace,
		fmt.Sprintf("PC=%04X op=%02X A=%02X X=%02X Y=%02X S=%02X P=%02X cyc=%d",
			state.PC, opcode, state.A, state.X, state.Y, state.S, state.P, state.TotalCycle), nil)
}
