package ui

import (
	"fmt"

	"github.com/veandco/go-sdl2/sdl"

	"iie-core/internal/emulator"
	"iie-core/internal/rom"
	"iie-core/internal/video"
)

// DiskMenu is the modal disk browser overlay. While it is visible the
// emulation core is skipped entirely, so guest timers survive navigation.
type DiskMenu struct {
	emu     *emulator.Emulator
	visible bool
	index   int
	drive   int
	status  string

	glyphs []uint8
}

// NewDiskMenu creates the menu overlay
func NewDiskMenu(emu *emulator.Emulator) *DiskMenu {
	m := &DiskMenu{emu: emu}
	if r, err := rom.Lookup("video", "iiee_video"); err == nil {
		m.glyphs = r.Data
	}
	return m
}

// Open refreshes the catalog and shows the menu
func (m *DiskMenu) Open() {
	if err := m.emu.Loader.Scan(); err != nil {
		m.status = err.Error()
	} else {
		m.status = ""
	}
	if m.index >= len(m.emu.Loader.Entries) {
		m.index = 0
	}
	m.visible = true
}

// Visible reports whether the overlay is up
func (m *DiskMenu) Visible() bool {
	return m.visible
}

// HandleKey processes menu navigation
func (m *DiskMenu) HandleKey(key sdl.Keycode) {
	entries := m.emu.Loader.Entries
	switch key {
	case sdl.K_ESCAPE:
		m.visible = false
	case sdl.K_UP:
		if m.index > 0 {
			m.index--
		}
	case sdl.K_DOWN:
		if m.index < len(entries)-1 {
			m.index++
		}
	case sdl.K_1, sdl.K_2:
		m.drive = int(key - sdl.K_1)
	case sdl.K_e:
		if err := m.emu.Loader.Eject(m.drive); err != nil {
			m.status = err.Error()
		} else {
			m.status = fmt.Sprintf("ejected drive %d", m.drive+1)
		}
	case sdl.K_RETURN, sdl.K_s:
		if m.index >= len(entries) || entries[m.index].IsDir {
			return
		}
		// Return boots the image; S swaps it in preserving the drive state
		preserve := key == sdl.K_s
		err := m.emu.Loader.Mount(m.drive, entries[m.index].Filename, preserve)
		if err != nil {
			// Failed mounts surface here and the drive reverts to empty
			m.status = err.Error()
			return
		}
		m.status = ""
		m.visible = false
		if !preserve {
			m.emu.Reset(true)
		}
	}
}

// Draw paints the overlay into the ARGB pixel buffer
func (m *DiskMenu) Draw(pixels []byte) {
	const x0, y0, w, h = 16, 16, video.FBWidth - 32, video.FBHeight - 32
	for y := y0; y < y0+h; y++ {
		for x := x0; x < x0+w; x++ {
			o := (y*video.FBWidth + x) * 4
			pixels[o] = 0x30
			pixels[o+1] = 0x10
			pixels[o+2] = 0x10
			pixels[o+3] = 0xFF
		}
	}

	m.drawText(pixels, x0+4, y0+4, fmt.Sprintf("DISK MENU - DRIVE %d", m.drive+1))

	visible := (h - 32) / 8
	first := 0
	if m.index >= visible {
		first = m.index - visible + 1
	}
	for row := 0; row < visible && first+row < len(m.emu.Loader.Entries); row++ {
		e := m.emu.Loader.Entries[first+row]
		marker := "  "
		if first+row == m.index {
			marker = "> "
		}
		name := e.Filename
		if e.IsDir {
			name += "/"
		}
		m.drawText(pixels, x0+4, y0+16+row*8, marker+name)
	}
	if m.status != "" {
		m.drawText(pixels, x0+4, y0+h-12, m.status)
	}
}

// drawText renders ASCII through the character generator glyphs
func (m *DiskMenu) drawText(pixels []byte, x, y int, text string) {
	if m.glyphs == nil {
		return
	}
	for i, ch := range text {
		if ch > 0x7F {
			ch = '?'
		}
		base := int(ch) * 8
		if base+8 > len(m.glyphs) {
			continue
		}
		for r := 0; r < 8; r++ {
			bits := m.glyphs[base+r]
			for px := 0; px < 7; px++ {
				if bits&(1<<uint(px)) == 0 {
					continue
				}
				sx := x + i*7 + px
				sy := y + r
				if sx < 0 || sx >= video.FBWidth || sy < 0 || sy >= video.FBHeight {
					continue
				}
				o := (sy*video.FBWidth + sx) * 4
				pixels[o] = 0xE0
				pixels[o+1] = 0xE0
				pixels[o+2] = 0xE0
				pixels[o+3] = 0xFF
			}
		}
	}
}
