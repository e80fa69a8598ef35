package input

// Reserved high-bit key codes outside the Apple II ASCII range
const (
	// KeyDiskMenu asks the frontend to open the disk browser
	KeyDiskMenu = 0xFB
)

// Keyboard is the strobe latch behind $C000/$C010. Keypress latches the
// code with bit 7 set; the guest clears the strobe by touching $C010.
type Keyboard struct {
	latch      uint8
	anyKeyDown bool

	// MenuRequest fires when a reserved code asks for the host UI instead
	// of the guest
	MenuRequest func()
}

// NewKeyboard creates an idle keyboard
func NewKeyboard() *Keyboard {
	return &Keyboard{}
}

// Keypress latches an Apple II ASCII code (0x00..0x7F). Reserved high-bit
// codes route to the host instead of the guest.
func (k *Keyboard) Keypress(code uint8) {
	if code&0x80 != 0 {
		if code == KeyDiskMenu && k.MenuRequest != nil {
			k.MenuRequest()
		}
		return
	}
	k.latch = code | 0x80
	k.anyKeyDown = true
}

// KeyUp reports that all keys are released, clearing the any-key-down
// status but not the strobe
func (k *Keyboard) KeyUp() {
	k.anyKeyDown = false
}

// Latch implements memory.KeyboardPort
func (k *Keyboard) Latch() uint8 {
	return k.latch
}

// ClearStrobe implements memory.KeyboardPort
func (k *Keyboard) ClearStrobe() {
	k.latch &= 0x7F
}

// AnyKeyDown implements memory.KeyboardPort
func (k *Keyboard) AnyKeyDown() bool {
	return k.anyKeyDown
}

// paddleCyclesPerUnit is the analog timer slope: a full-scale paddle holds
// its timer for about 2.8 ms
const paddleCyclesPerUnit = 11

// Paddles models the four analog paddle timers and the three apple/shift
// buttons
type Paddles struct {
	// Position is the paddle value, 0..255 per axis
	Position [4]uint8
	// buttons are open-apple, solid-apple, shift
	buttons [3]bool

	triggerCycle uint64
	triggered    bool
}

// NewPaddles creates centred paddles
func NewPaddles() *Paddles {
	p := &Paddles{}
	for i := range p.Position {
		p.Position[i] = 128
	}
	return p
}

// SetButton updates a button state (0 = open-apple, 1 = solid-apple,
// 2 = shift)
func (p *Paddles) SetButton(i int, down bool) {
	if i >= 0 && i < len(p.buttons) {
		p.buttons[i] = down
	}
}

// Button implements memory.PaddlePort
func (p *Paddles) Button(i int) bool {
	if i < 0 || i >= len(p.buttons) {
		return false
	}
	return p.buttons[i]
}

// Trigger implements memory.PaddlePort: a $C070 access restarts all four
// timers
func (p *Paddles) Trigger(cycle uint64) {
	p.triggerCycle = cycle
	p.triggered = true
}

// Counting implements memory.PaddlePort: a paddle read returns high while
// its timer is still counting
func (p *Paddles) Counting(i int, cycle uint64) bool {
	if !p.triggered || i < 0 || i >= len(p.Position) {
		return false
	}
	duration := uint64(p.Position[i]) * paddleCyclesPerUnit
	return cycle-p.triggerCycle < duration
}
