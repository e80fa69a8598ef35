package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// BoardVariant selects the host board pin layout (external concern, carried
// through to the peripheral drivers)
type BoardVariant string

const (
	BoardM1 BoardVariant = "M1"
	BoardM2 BoardVariant = "M2"
)

// Config holds the start-time options
type Config struct {
	// Host board
	BoardVariant BoardVariant `toml:"board_variant"`
	CPUSpeedMHz  int          `toml:"cpu_speed_mhz"`

	// External RAM cache for paged memory and the drive-1 track cache
	PSRAMEnabled bool `toml:"psram_enabled"`
	// PagedPoolPages is the paged-RAM pool size in 256-byte pages when
	// PSRAM is disabled; 0 keeps the full 64KB resident
	PagedPoolPages int `toml:"paged_pool_pages"`

	// Audio reconstruction rate
	SampleRateHz uint32 `toml:"sample_rate_hz"`

	// Video
	PaletteIndex int `toml:"palette_index"`
	VideoROMBank int `toml:"video_rom_bank"`

	// Host paths
	ROMDir   string `toml:"rom_dir"`
	DiskDir  string `toml:"disk_dir"`
	SwapPath string `toml:"swap_path"`

	// Frontend
	Scale int  `toml:"scale"`
	Turbo bool `toml:"turbo"`
}

// Default returns the baseline configuration
func Default() Config {
	return Config{
		BoardVariant:   BoardM1,
		CPUSpeedMHz:    133,
		PSRAMEnabled:   true,
		PagedPoolPages: 0,
		SampleRateHz:   44100,
		PaletteIndex:   0,
		VideoROMBank:   0,
		ROMDir:         "roms",
		DiskDir:        "apple",
		SwapPath:       "swap.bin",
		Scale:          2,
	}
}

// Load reads a TOML config file over the defaults. A missing file is not
// an error; the defaults stand.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate normalizes and checks option ranges
func (c *Config) Validate() error {
	switch c.BoardVariant {
	case BoardM1, BoardM2:
	default:
		return fmt.Errorf("config: unknown board variant %q", c.BoardVariant)
	}
	switch c.SampleRateHz {
	case 22050, 44100:
	default:
		return fmt.Errorf("config: sample_rate_hz must be 22050 or 44100, got %d", c.SampleRateHz)
	}
	if c.VideoROMBank != 0 && c.VideoROMBank != 1 {
		return fmt.Errorf("config: video_rom_bank must be 0 or 1, got %d", c.VideoROMBank)
	}
	if c.Scale < 1 || c.Scale > 6 {
		return fmt.Errorf("config: scale must be between 1 and 6, got %d", c.Scale)
	}
	return nil
}
