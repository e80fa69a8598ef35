package emulator

import (
	"fmt"

	"iie-core/internal/cpu"
	"iie-core/internal/debug"
)

// traceAdapter feeds the CPU's instruction stream into the trace logger
type traceAdapter struct {
	trace *debug.TraceLogger
	next  cpu.LoggerInterface
}

// LogCPU implements cpu.LoggerInterface
func (a *traceAdapter) LogCPU(opcode uint8, state cpu.CPUState) {
	a.trace.LogInstruction(&debug.CPUStateSnapshot{
		A:          state.A,
		X:          state.X,
		Y:          state.Y,
		S:          state.S,
		P:          state.P,
		PC:         state.PC,
		TotalCycle: state.TotalCycle,
	})
	if a.next != nil {
		a.next.LogCPU(opcode, state)
	}
}

// EnableTrace writes a per-instruction machine trace to path. maxRecords
// bounds the file (0 = unlimited); startRecord skips the boot preamble.
func (e *Emulator) EnableTrace(path string, maxRecords, startRecord uint64) error {
	tl, err := debug.NewTraceLogger(path, maxRecords, startRecord,
		e.Bus, e.Video, e.DiskCard.Controller.Drives[0])
	if err != nil {
		return fmt.Errorf("emulator: %w", err)
	}
	e.Trace = tl
	e.CPU.Log = &traceAdapter{trace: tl, next: e.CPU.Log}
	return nil
}

// CloseTrace finishes the trace file
func (e *Emulator) CloseTrace() error {
	if e.Trace == nil {
		return nil
	}
	err := e.Trace.Close()
	e.Trace = nil
	return err
}
