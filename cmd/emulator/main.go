package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"iie-core/internal/config"
	"iie-core/internal/cpu"
	"iie-core/internal/debug"
	"iie-core/internal/emulator"
	"iie-core/internal/rom"
	"iie-core/internal/ui"
)

func main() {
	configPath := flag.String("config", "iie-core.toml", "Path to the TOML configuration file")
	diskPath := flag.String("disk", "", "Disk image to mount in drive 1 at boot")
	blockPath := flag.String("block", "", "Block image to attach to the SmartPort card")
	turbo := flag.Bool("turbo", false, "Run at unlimited speed (no frame pacing)")
	scale := flag.Int("scale", 0, "Display scale 1-6 (overrides config)")
	palette := flag.Int("palette", -1, "Palette index 0-5 (overrides config)")
	enableLogging := flag.Bool("log", false, "Enable logging (disabled by default)")
	traceCPU := flag.Bool("trace-cpu", false, "Log every CPU instruction (very verbose)")
	traceFile := flag.String("trace-file", "", "Write a per-instruction machine trace to this file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *turbo {
		cfg.Turbo = true
	}
	if *scale != 0 {
		cfg.Scale = *scale
	}
	if *palette >= 0 {
		cfg.PaletteIndex = *palette
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// System and character ROMs; a missing ROM halts boot
	if _, err := rom.LoadFile("main", "iiee", filepath.Join(cfg.ROMDir, "iiee.rom"), rom.MainROMSize); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if _, err := rom.LoadFile("video", "iiee_video", filepath.Join(cfg.ROMDir, "iiee_video.rom"),
		rom.VideoROMSize, rom.VideoROMDualSize); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	// The controller firmware is optional until a disk is mounted
	rom.LoadFile("card", "diskii", filepath.Join(cfg.ROMDir, "diskii.rom"), rom.CardROMSize)

	logger := debug.NewLogger(10000)
	if *enableLogging {
		logger.SetComponentEnabled(debug.ComponentCPU, true)
		logger.SetComponentEnabled(debug.ComponentVideo, true)
		logger.SetComponentEnabled(debug.ComponentAudio, true)
		logger.SetComponentEnabled(debug.ComponentFloppy, true)
		logger.SetComponentEnabled(debug.ComponentMemory, true)
		logger.SetComponentEnabled(debug.ComponentDisks, true)
		logger.SetComponentEnabled(debug.ComponentInput, true)
		logger.SetComponentEnabled(debug.ComponentUI, true)
		logger.SetComponentEnabled(debug.ComponentSystem, true)
	}

	emu, err := emulator.New(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer emu.Close()

	if *traceCPU {
		if adapter, ok := emu.CPU.Log.(*cpu.CPULoggerAdapter); ok {
			adapter.SetLevel(cpu.CPULogInstructions)
			logger.SetComponentEnabled(debug.ComponentCPU, true)
			logger.SetMinLevel(debug.LogLevelTrace)
		}
	}

	if *traceFile != "" {
		if err := emu.EnableTrace(*traceFile, 0, 0); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	if *blockPath != "" {
		if err := emu.MountBlockDevice(0, *blockPath, false); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	emu.Reset(true)

	if *diskPath != "" {
		if err := emu.Loader.Mount(0, *diskPath, false); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		emu.Reset(true)
	}

	front, err := ui.NewUI(emu, cfg.Scale)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("iie-core emulator")
	fmt.Println("F1 disk menu | F5 reset (ctrl = cold) | F10 pause | F11 turbo | F12 quit")

	if err := front.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger.Shutdown()
}
