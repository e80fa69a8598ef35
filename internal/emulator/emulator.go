package emulator

import (
	"fmt"
	"time"

	"iie-core/internal/audio"
	"iie-core/internal/card"
	"iie-core/internal/clock"
	"iie-core/internal/config"
	"iie-core/internal/cpu"
	"iie-core/internal/debug"
	"iie-core/internal/disks"
	"iie-core/internal/input"
	"iie-core/internal/memory"
	"iie-core/internal/rom"
	"iie-core/internal/video"
	"iie-core/internal/vram"
)

// CyclesPerFrame is one display frame of guest CPU time
const CyclesPerFrame = video.CyclesPerFrame

// Slot assignments
const (
	DiskSlot  = 6
	BlockSlot = 7
)

// pagedPoolDefault is the paged-RAM pool size when the external RAM cache
// is unavailable
const pagedPoolDefault = 96

// Emulator aggregates the machine and drives the frame loop
type Emulator struct {
	CPU      *cpu.CPU
	Bus      *memory.Bus
	VRAM     *vram.VRAM
	Video    *video.Video
	Audio    *audio.Mixer
	Wheel    *clock.Wheel
	Keyboard *input.Keyboard
	Paddles  *input.Paddles

	DiskCard  *card.DiskII
	BlockCard *card.SmartPort
	Loader    *disks.Loader

	Logger *debug.Logger
	Config config.Config

	// Debugger pauses the frame loop on breakpoints and single steps
	Debugger *debug.Debugger
	// Trace is the optional per-instruction machine trace
	Trace *debug.TraceLogger

	// UIVisible routes input to the host UI and skips emulation entirely,
	// preserving guest timers across menu navigation
	UIVisible bool
	// Turbo disables frame pacing
	Turbo bool

	// AudioFrame receives the frame's interleaved stereo samples
	AudioFrame      []int16
	samplesPerFrame int

	// Frame pacing
	FrameLimitEnabled bool
	FrameTime         time.Duration
	LastFrameTime     time.Time

	// Performance tracking
	FPS           float64
	frameCount    uint64
	fpsUpdateTime time.Time

	Running bool
	Paused  bool
}

// New builds the complete machine from the configuration. The main and
// video ROMs must already be registered ("main"/"iiee" and
// "video"/"iiee_video"); a missing ROM fails boot.
func New(cfg config.Config, logger *debug.Logger) (*Emulator, error) {
	mainROM, err := rom.Lookup("main", "iiee")
	if err != nil {
		return nil, fmt.Errorf("emulator: %w", err)
	}
	videoROM, err := rom.Lookup("video", "iiee_video")
	if err != nil {
		return nil, fmt.Errorf("emulator: %w", err)
	}

	var pagedRAM *vram.VRAM
	poolPages := vram.GuestPages
	if !cfg.PSRAMEnabled {
		poolPages = cfg.PagedPoolPages
		if poolPages <= 0 {
			poolPages = pagedPoolDefault
		}
	}
	pagedRAM, err = vram.New(poolPages, cfg.SwapPath, logger)
	if err != nil {
		return nil, fmt.Errorf("emulator: %w", err)
	}

	bus, err := memory.NewBus(pagedRAM, mainROM.Data, logger)
	if err != nil {
		pagedRAM.Close()
		return nil, fmt.Errorf("emulator: %w", err)
	}

	wheel := clock.NewWheel(logger)
	cpuLogger := cpu.NewCPULoggerAdapter(logger, cpu.CPULogNone)
	c := cpu.NewCPU(bus, cpuLogger)

	vid := video.New(&bus.SW, bus, videoROM.Data, logger)
	vid.SetPalette(cfg.PaletteIndex)
	vid.ROMBank = cfg.VideoROMBank
	vid.RegisterVBL(wheel)

	mixer := audio.NewMixer(cfg.SampleRateHz, logger)

	keyboard := input.NewKeyboard()
	paddles := input.NewPaddles()

	var diskROM []uint8
	if r, err := rom.Lookup("card", "diskii"); err == nil {
		diskROM = r.Data
	} else if logger != nil {
		logger.LogSystemf(debug.LogLevelWarning, "no diskii card ROM registered, slot %d is not bootable", DiskSlot)
	}
	diskCard := card.NewDiskII(DiskSlot, diskROM, logger)

	blockCard, err := card.NewSmartPort(BlockSlot, c, bus, logger)
	if err != nil {
		pagedRAM.Close()
		return nil, fmt.Errorf("emulator: %w", err)
	}

	e := &Emulator{
		CPU:               c,
		Bus:               bus,
		VRAM:              pagedRAM,
		Video:             vid,
		Audio:             mixer,
		Wheel:             wheel,
		Keyboard:          keyboard,
		Paddles:           paddles,
		DiskCard:          diskCard,
		BlockCard:         blockCard,
		Logger:            logger,
		Config:            cfg,
		Turbo:             cfg.Turbo,
		samplesPerFrame:   int(cfg.SampleRateHz / 60),
		FrameLimitEnabled: !cfg.Turbo,
		FrameTime:         time.Second / 60,
		LastFrameTime:     time.Now(),
		fpsUpdateTime:     time.Now(),
	}
	e.AudioFrame = make([]int16, 2*e.samplesPerFrame)
	e.Debugger = debug.NewDebugger()

	// Wire the bus side effects
	bus.Cards[DiskSlot] = diskCard
	bus.Cards[BlockSlot] = blockCard
	bus.Keyboard = keyboard
	bus.Paddles = paddles
	bus.SpeakerClick = mixer.Click
	bus.VideoTouch = vid.TouchAddr
	bus.VaporRead = vid.VaporByte
	bus.VBLStatus = vid.VBL
	bus.Cycle = func() uint64 { return c.State.TotalCycle }
	bus.FrameDirty = vid.MarkFrameDirty

	// Every instruction's cycle cost feeds the timer wheel and, while the
	// motor spins, the disk sequencer. The debugger sees each instruction
	// boundary and can preempt the run.
	c.CycleSink = func(cycles uint32) {
		wheel.Advance(cycles)
		diskCard.Tick(cycles)
		if e.Debugger.ShouldBreak(c.State.PC) {
			c.Preempt()
			e.Paused = true
		}
	}

	// Idle flush: a dirty track with the motor off reaches storage within
	// a second of guest time
	wheel.Register(func() int64 {
		if !diskCard.Controller.Motor {
			for _, d := range diskCard.Controller.Drives {
				if err := d.FlushCurrent(); err != nil && logger != nil {
					logger.LogFloppyf(debug.LogLevelError, "idle flush: %v", err)
				}
			}
		}
		return 1020484
	}, 1020484, "disk-flush")

	e.Loader = disks.NewLoader(cfg.DiskDir, diskCard, logger)
	e.Loader.OnMount = func(drive int) {
		vid.ResetVBL()
		mixer.Sync(c.State.TotalCycle)
	}

	return e, nil
}

// Close releases host resources
func (e *Emulator) Close() {
	e.CloseTrace()
	if e.Loader != nil {
		e.Loader.Close()
	}
	for _, d := range e.DiskCard.Controller.Drives {
		d.Eject()
	}
	for _, u := range e.BlockCard.Units {
		if u != nil {
			u.Close()
		}
	}
	if e.VRAM != nil {
		e.VRAM.Close()
	}
}

// Reset resets the machine. A cold reset also zeroes guest RAM.
func (e *Emulator) Reset(cold bool) {
	if cold {
		e.Bus.ColdStart()
	} else {
		e.Bus.Reset()
	}
	e.DiskCard.Controller.Reset()
	e.CPU.Reset()
	e.Video.ResetVBL()
	e.Audio.Sync(e.CPU.State.TotalCycle)
	if e.Logger != nil {
		e.Logger.LogSystemf(debug.LogLevelInfo, "reset (cold=%v), PC=%04X", cold, e.CPU.State.PC)
	}
}

// Keypress latches a guest key code
func (e *Emulator) Keypress(code uint8) {
	e.Keyboard.Keypress(code)
}

// RunFrame advances the machine one display frame: inputs are already
// latched, the CPU executes a frame of cycles, the audio ring drains, and
// the renderer produces the framebuffer. With the modal UI visible the
// emulation is skipped entirely so guest timers survive menu navigation.
func (e *Emulator) RunFrame() error {
	if !e.Running || e.Paused {
		return nil
	}

	if !e.UIVisible {
		e.CPU.RunCycles(CyclesPerFrame)
		e.Audio.Drain(e.AudioFrame, e.samplesPerFrame)
		e.Video.Render()
	}

	// FPS accounting
	e.frameCount++
	now := time.Now()
	if now.Sub(e.fpsUpdateTime) >= time.Second {
		e.FPS = float64(e.frameCount) / now.Sub(e.fpsUpdateTime).Seconds()
		e.frameCount = 0
		e.fpsUpdateTime = now
	}

	// Frame pacing realises real-time speed; turbo runs free
	if e.FrameLimitEnabled && !e.Turbo {
		elapsed := now.Sub(e.LastFrameTime)
		if elapsed < e.FrameTime {
			time.Sleep(e.FrameTime - elapsed)
		}
	}
	e.LastFrameTime = time.Now()

	return nil
}

// Start starts the emulator
func (e *Emulator) Start() {
	e.Running = true
	e.Paused = false
}

// Stop stops the emulator
func (e *Emulator) Stop() {
	e.Running = false
}

// Pause pauses the emulator
func (e *Emulator) Pause() {
	e.Paused = true
}

// Resume resumes the emulator
func (e *Emulator) Resume() {
	e.Paused = false
}

// SetTurbo toggles the frame pacing delay
func (e *Emulator) SetTurbo(on bool) {
	e.Turbo = on
}

// DriveStatus summarizes the selected drive for the UI status line
func (e *Emulator) DriveStatus() (motor bool, qtrack int, mounted string) {
	d := e.DiskCard.Controller.SelectedDrive()
	name := ""
	if d.File != nil {
		name = d.File.Pathname
	}
	return d.Motor, d.QTrack, name
}

// MountBlockDevice attaches a block image to a SmartPort unit
func (e *Emulator) MountBlockDevice(unit int, path string, readOnly bool) error {
	if unit < 0 || unit >= len(e.BlockCard.Units) {
		return fmt.Errorf("emulator: block unit %d out of range", unit)
	}
	dev, err := card.OpenBlockDevice(path, readOnly)
	if err != nil {
		return err
	}
	if old := e.BlockCard.Units[unit]; old != nil {
		old.Close()
	}
	e.BlockCard.Units[unit] = dev
	return nil
}
