package ui

import (
	"fmt"
	"unsafe"

	"github.com/veandco/go-sdl2/sdl"

	"iie-core/internal/emulator"
	"iie-core/internal/input"
	"iie-core/internal/video"
)

// UI is the SDL2 frontend: window, streaming texture over the indexed
// framebuffer, audio queue, and keyboard translation.
type UI struct {
	window   *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture
	emu      *emulator.Emulator
	running  bool
	scale    int
	audioDev sdl.AudioDeviceID

	// Reusable conversion buffers
	pixels     []byte
	audioBytes []byte

	menu *DiskMenu
}

// NewUI creates the frontend over an initialized emulator
func NewUI(emu *emulator.Emulator, scale int) (*UI, error) {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_AUDIO); err != nil {
		return nil, fmt.Errorf("ui: failed to initialize SDL: %w", err)
	}

	// Nearest-neighbor scaling keeps the pixels square
	sdl.SetHint(sdl.HINT_RENDER_SCALE_QUALITY, "0")

	width := int32(video.FBWidth * scale)
	height := int32(video.FBHeight * scale)

	window, err := sdl.CreateWindow(
		"iie-core",
		sdl.WINDOWPOS_CENTERED,
		sdl.WINDOWPOS_CENTERED,
		width,
		height,
		sdl.WINDOW_SHOWN,
	)
	if err != nil {
		sdl.Quit()
		return nil, fmt.Errorf("ui: failed to create window: %w", err)
	}

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED|sdl.RENDERER_PRESENTVSYNC)
	if err != nil {
		window.Destroy()
		sdl.Quit()
		return nil, fmt.Errorf("ui: failed to create renderer: %w", err)
	}

	texture, err := renderer.CreateTexture(
		sdl.PIXELFORMAT_ARGB8888,
		sdl.TEXTUREACCESS_STREAMING,
		video.FBWidth,
		video.FBHeight,
	)
	if err != nil {
		renderer.Destroy()
		window.Destroy()
		sdl.Quit()
		return nil, fmt.Errorf("ui: failed to create texture: %w", err)
	}

	audioSpec := sdl.AudioSpec{
		Freq:     int32(emu.Config.SampleRateHz),
		Format:   sdl.AUDIO_S16LSB,
		Channels: 2,
		Samples:  uint16(emu.Config.SampleRateHz / 60),
	}
	audioDev, err := sdl.OpenAudioDevice("", false, &audioSpec, nil, 0)
	if err != nil {
		// Audio is optional, continue without it
		fmt.Printf("Warning: failed to open audio device: %v\n", err)
		audioDev = 0
	} else {
		sdl.PauseAudioDevice(audioDev, false)
	}

	u := &UI{
		window:     window,
		renderer:   renderer,
		texture:    texture,
		emu:        emu,
		running:    true,
		scale:      scale,
		audioDev:   audioDev,
		pixels:     make([]byte, video.FBWidth*video.FBHeight*4),
		audioBytes: make([]byte, len(emu.AudioFrame)*2),
	}
	u.menu = NewDiskMenu(emu)
	emu.Keyboard.MenuRequest = func() { u.menu.Open() }
	return u, nil
}

// Run runs the frontend main loop
func (u *UI) Run() error {
	defer u.Cleanup()

	u.emu.Start()
	if err := u.emu.Loader.Scan(); err != nil {
		fmt.Printf("Warning: %v\n", err)
	}
	u.emu.Loader.Watch()

	for u.running {
		for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
			if err := u.handleEvent(event); err != nil {
				return err
			}
		}

		u.emu.UIVisible = u.menu.Visible()
		if err := u.emu.RunFrame(); err != nil {
			return err
		}

		if !u.emu.UIVisible {
			u.queueAudio()
		}
		u.render()
		u.updateTitle()
	}
	return nil
}

// queueAudio pushes the frame's samples to the device, skipping ahead when
// the queue runs long
func (u *UI) queueAudio() {
	if u.audioDev == 0 {
		return
	}
	// Cap queued audio at roughly four frames of latency
	maxQueued := uint32(len(u.audioBytes) * 4)
	if sdl.GetQueuedAudioSize(u.audioDev) > maxQueued {
		return
	}
	for i, s := range u.emu.AudioFrame {
		u.audioBytes[2*i] = byte(s)
		u.audioBytes[2*i+1] = byte(uint16(s) >> 8)
	}
	if err := sdl.QueueAudio(u.audioDev, u.audioBytes); err != nil {
		fmt.Printf("Warning: audio queue: %v\n", err)
	}
}

// render converts the indexed framebuffer through the CLUT and presents it
func (u *UI) render() {
	fb := u.emu.Video.Framebuffer()
	clut := u.emu.Video.CLUT()
	for i, idx := range fb {
		c := clut[idx&31]
		o := i * 4
		u.pixels[o] = c.B
		u.pixels[o+1] = c.G
		u.pixels[o+2] = c.R
		u.pixels[o+3] = 0xFF
	}
	if u.menu.Visible() {
		u.menu.Draw(u.pixels)
	}
	u.texture.Update(nil, unsafe.Pointer(&u.pixels[0]), video.FBWidth*4)
	u.renderer.Clear()
	u.renderer.Copy(u.texture, nil, nil)
	u.renderer.Present()
}

func (u *UI) updateTitle() {
	motor, qtrack, mounted := u.emu.DriveStatus()
	state := ""
	if motor {
		state = fmt.Sprintf(" [drive %s T%d.%d]", mounted, qtrack/4, qtrack%4*25)
	}
	if u.emu.Turbo {
		state += " [turbo]"
	}
	u.window.SetTitle(fmt.Sprintf("iie-core - %.1f fps%s", u.emu.FPS, state))
}

// handleEvent dispatches one SDL event
func (u *UI) handleEvent(event sdl.Event) error {
	switch e := event.(type) {
	case *sdl.QuitEvent:
		u.running = false
	case *sdl.TextInputEvent:
		if u.menu.Visible() {
			return nil
		}
		for _, ch := range e.GetText() {
			if ch < 0x80 {
				u.emu.Keypress(uint8(ch))
			}
		}
	case *sdl.KeyboardEvent:
		if e.Type == sdl.KEYDOWN {
			return u.handleKeyDown(e)
		}
		if e.Type == sdl.KEYUP {
			u.emu.Keyboard.KeyUp()
		}
	case *sdl.ControllerButtonEvent, *sdl.JoyButtonEvent:
		u.handleGamepad(event)
	}
	return nil
}

// handleKeyDown translates host keys to guest codes and host controls
func (u *UI) handleKeyDown(e *sdl.KeyboardEvent) error {
	key := e.Keysym.Sym
	mod := sdl.GetModState()

	if u.menu.Visible() {
		u.menu.HandleKey(key)
		return nil
	}

	switch key {
	case sdl.K_F1:
		u.emu.Keypress(input.KeyDiskMenu)
		return nil
	case sdl.K_F10:
		if u.emu.Paused {
			u.emu.Resume()
		} else {
			u.emu.Pause()
		}
		return nil
	case sdl.K_F11:
		u.emu.SetTurbo(!u.emu.Turbo)
		return nil
	case sdl.K_F12:
		u.running = false
		return nil
	case sdl.K_F5:
		u.emu.Reset(mod&sdl.KMOD_CTRL != 0)
		return nil
	}

	// Guest control characters; printable keys arrive as text input
	switch key {
	case sdl.K_RETURN:
		u.emu.Keypress(0x0D)
	case sdl.K_BACKSPACE, sdl.K_LEFT:
		u.emu.Keypress(0x08)
	case sdl.K_RIGHT:
		u.emu.Keypress(0x15)
	case sdl.K_UP:
		u.emu.Keypress(0x0B)
	case sdl.K_DOWN:
		u.emu.Keypress(0x0A)
	case sdl.K_TAB:
		u.emu.Keypress(0x09)
	case sdl.K_ESCAPE:
		u.emu.Keypress(0x1B)
	case sdl.K_DELETE:
		u.emu.Keypress(0x7F)
	default:
		if mod&sdl.KMOD_CTRL != 0 && key >= sdl.K_a && key <= sdl.K_z {
			u.emu.Keypress(uint8(key-sdl.K_a) + 1)
		}
	}

	// Apple keys ride the left/right alt modifiers
	u.emu.Paddles.SetButton(0, mod&sdl.KMOD_LALT != 0)
	u.emu.Paddles.SetButton(1, mod&sdl.KMOD_RALT != 0)
	u.emu.Paddles.SetButton(2, mod&sdl.KMOD_SHIFT != 0)
	return nil
}

// handleGamepad maps controller buttons onto the apple keys
func (u *UI) handleGamepad(event sdl.Event) {
	switch e := event.(type) {
	case *sdl.JoyButtonEvent:
		down := e.State == sdl.PRESSED
		u.emu.Paddles.SetButton(int(e.Button)&1, down)
	case *sdl.ControllerButtonEvent:
		down := e.State == sdl.PRESSED
		u.emu.Paddles.SetButton(int(e.Button)&1, down)
	}
}

// Cleanup releases SDL resources
func (u *UI) Cleanup() {
	if u.audioDev != 0 {
		sdl.CloseAudioDevice(u.audioDev)
	}
	if u.texture != nil {
		u.texture.Destroy()
	}
	if u.renderer != nil {
		u.renderer.Destroy()
	}
	if u.window != nil {
		u.window.Destroy()
	}
	sdl.Quit()
}
