package memory

import (
	"iie-core/internal/debug"
	"iie-core/internal/vram"
)

// Card is a slot peripheral. The bus maps its 256-byte ROM at $Cs00 and
// routes device register accesses at $C080+s*16 to IOAccess.
type Card interface {
	Name() string
	ROM() []uint8
	IOAccess(reg uint8, value uint8, write bool) uint8
}

// KeyboardPort is the keyboard strobe latch surface the bus reads at
// $C000/$C010
type KeyboardPort interface {
	Latch() uint8     // current latch, bit 7 = strobe
	ClearStrobe()     // any $C010 access
	AnyKeyDown() bool // bit 7 of a $C010 read
}

// PaddlePort is the analog paddle surface behind $C064..$C067 and $C070
type PaddlePort interface {
	Trigger(cycle uint64)              // $C070 access restarts the timers
	Counting(i int, cycle uint64) bool // paddle timer i still counting
	Button(i int) bool                 // $C061..$C063
}

// Bus decodes every guest memory access: banked DRAM, the soft-switch page,
// slot card ROM, and the language card. It owns the packed switch state; the
// rendered picture is a pure function of that state plus the guest-visible
// RAM pages.
type Bus struct {
	Main *Bank // $0000-$FFFF main RAM ($D000-$FFFF region is LC bank 1)
	Aux  *Bank // $0000-$FFFF auxiliary RAM
	ROM  *Bank // $C000-$FFFF system ROM (16KB)

	// Language card bank 2 overlays for $D000-$DFFF
	MainD000B2 [0x1000]uint8
	AuxD000B2  [0x1000]uint8

	SW Switches

	Cards [8]Card

	Keyboard KeyboardPort
	Paddles  PaddlePort

	// SpeakerClick fires on any $C030 access with the current total cycle
	SpeakerClick func(cycle uint64)
	// VideoTouch notifies the renderer of a write into video RAM. DMA-style
	// writers (card traps) go through WriteRange which reuses this path.
	VideoTouch func(addr uint16)
	// VaporRead supplies the value of an undefined soft-switch read
	VaporRead func() uint8
	// VBLStatus reports the blanking phase for $C019
	VBLStatus func() bool
	// Cycle returns the CPU total cycle, used by the speaker and paddles
	Cycle func() uint64
	// FrameDirty marks the whole picture for re-render on a mode change
	FrameDirty func()

	logger *debug.Logger
}

// NewBus builds the bus over the given RAM and ROM banks. When v is non-nil
// the main bank is backed by the paged RAM cache, otherwise by a raw 64KB
// array.
func NewBus(v *vram.VRAM, romBlob []uint8, logger *debug.Logger) (*Bus, error) {
	rom, err := NewROMBank("rom", 0xC000, romBlob)
	if err != nil {
		return nil, err
	}
	var main *Bank
	if v != nil {
		main = NewPagedBank("main", 0x0000, 256, v)
	} else {
		main = NewRawBank("main", 0x0000, 256, false)
	}
	bus := &Bus{
		Main:   main,
		Aux:    NewRawBank("aux", 0x0000, 256, false),
		ROM:    rom,
		logger: logger,
	}
	bus.SW.Reset()
	return bus, nil
}

// SetLogger sets the logger for debug logging
func (b *Bus) SetLogger(logger *debug.Logger) {
	b.logger = logger
}

func (b *Bus) frameDirty() {
	if b.FrameDirty != nil {
		b.FrameDirty()
	}
}

func (b *Bus) videoTouch(addr uint16) {
	if b.VideoTouch == nil {
		return
	}
	if (addr >= 0x0400 && addr < 0x0C00) || (addr >= 0x2000 && addr < 0x6000) {
		b.VideoTouch(addr)
	}
}

// ramBankFor selects main or aux for a DRAM access at addr.
// write selects the RAMWRT side of the split.
func (b *Bus) ramBankFor(addr uint16, write bool) *Bank {
	if addr < 0x0200 {
		if b.SW.Get(SwAltZP) {
			return b.Aux
		}
		return b.Main
	}
	// 80STORE redirects the display windows by PAGE2 instead of RAMRD/RAMWRT
	if b.SW.Get(Sw80Store) {
		inText := addr >= 0x0400 && addr < 0x0800
		inHires := b.SW.Get(SwHires) && addr >= 0x2000 && addr < 0x4000
		if inText || inHires {
			if b.SW.Get(SwPage2) {
				return b.Aux
			}
			return b.Main
		}
	}
	var sw SoftSwitch = SwRAMRD
	if write {
		sw = SwRAMWRT
	}
	if b.SW.Get(sw) {
		return b.Aux
	}
	return b.Main
}

// lcBankFor selects the RAM bank behind the language card
func (b *Bus) lcBankFor() *Bank {
	if b.SW.Get(SwAltZP) {
		return b.Aux
	}
	return b.Main
}

func (b *Bus) lcBank2For() []uint8 {
	if b.SW.Get(SwAltZP) {
		return b.AuxD000B2[:]
	}
	return b.MainD000B2[:]
}

// Read8 performs a CPU read at addr, with all soft-switch side effects
func (b *Bus) Read8(addr uint16) uint8 {
	switch {
	case addr < 0xC000:
		return b.ramBankFor(addr, false).ReadByte(addr)
	case addr < 0xC100:
		return b.ioAccess(addr, 0, false)
	case addr < 0xD000:
		return b.cardROMRead(addr)
	default:
		if b.SW.Get(SwLCRead) {
			if addr < 0xE000 && b.SW.Get(SwLCBank2) {
				return b.lcBank2For()[addr-0xD000]
			}
			return b.lcBankFor().ReadByte(addr)
		}
		return b.ROM.ReadByte(addr)
	}
}

// Write8 performs a CPU write at addr, with all soft-switch side effects
func (b *Bus) Write8(addr uint16, value uint8) {
	switch {
	case addr < 0xC000:
		b.ramBankFor(addr, true).WriteByte(addr, value)
		b.videoTouch(addr)
	case addr < 0xC100:
		b.ioAccess(addr, value, true)
	case addr < 0xD000:
		// Card ROM region is not writable
	default:
		if b.SW.Get(SwLCWrite) {
			if addr < 0xE000 && b.SW.Get(SwLCBank2) {
				b.lcBank2For()[addr-0xD000] = value
			} else {
				b.lcBankFor().WriteByte(addr, value)
			}
		}
	}
}

// Peek reads addr without any soft-switch side effects. The I/O page reads
// as zero except the keyboard latch.
func (b *Bus) Peek(addr uint16) uint8 {
	switch {
	case addr < 0xC000:
		return b.ramBankFor(addr, false).Peek(addr)
	case addr == 0xC000:
		if b.Keyboard != nil {
			return b.Keyboard.Latch()
		}
		return 0
	case addr < 0xD000:
		return 0
	default:
		if b.SW.Get(SwLCRead) {
			if addr < 0xE000 && b.SW.Get(SwLCBank2) {
				return b.lcBank2For()[addr-0xD000]
			}
			return b.lcBankFor().Peek(addr)
		}
		return b.ROM.Peek(addr)
	}
}

// Poke writes addr without side effects, into whatever RAM the current
// switch state exposes. ROM and the I/O page are left untouched.
func (b *Bus) Poke(addr uint16, value uint8) {
	switch {
	case addr < 0xC000:
		b.ramBankFor(addr, true).Poke(addr, value)
	case addr < 0xD000:
		// Not pokeable
	default:
		if addr < 0xE000 && b.SW.Get(SwLCBank2) {
			b.lcBank2For()[addr-0xD000] = value
		} else {
			b.lcBankFor().Poke(addr, value)
		}
	}
}

// MainPeek reads physical main RAM, the renderer's view of the beam
func (b *Bus) MainPeek(addr uint16) uint8 {
	return b.Main.Peek(addr)
}

// AuxPeek reads physical auxiliary RAM
func (b *Bus) AuxPeek(addr uint16) uint8 {
	return b.Aux.Peek(addr)
}

// PinRange pins the main-RAM pages covering [addr, addr+length) when the
// main bank rides the paged cache; raw banks need no pinning
func (b *Bus) PinRange(addr uint16, length int) {
	if ps, ok := b.Main.storage.(*PagedStorage); ok {
		ps.V.PinRange(addr, length)
	}
}

// ReadRange fills buf from guest memory starting at addr, for card DMA
func (b *Bus) ReadRange(addr uint16, buf []uint8) {
	for i := range buf {
		buf[i] = b.Peek(addr + uint16(i))
	}
}

// WriteRange stores buf into guest memory starting at addr, for card DMA.
// Writes that land in video RAM notify the renderer out-of-band.
func (b *Bus) WriteRange(addr uint16, buf []uint8) {
	for i := range buf {
		a := addr + uint16(i)
		b.Poke(a, buf[i])
		b.videoTouch(a)
	}
}

// cardROMRead reads the $C100-$CFFF card ROM region
func (b *Bus) cardROMRead(addr uint16) uint8 {
	if addr < 0xC800 && !b.SW.Get(SwIntCXROM) {
		slot := int(addr>>8) & 0x7
		if slot == 3 && !b.SW.Get(SwSlotC3ROM) {
			// Internal 80-column firmware at $C300
			return b.ROM.ReadByte(addr)
		}
		if card := b.Cards[slot]; card != nil {
			if rom := card.ROM(); rom != nil {
				return rom[addr&0xFF]
			}
		}
		return b.vapor()
	}
	return b.ROM.ReadByte(addr)
}

func (b *Bus) vapor() uint8 {
	if b.VaporRead != nil {
		return b.VaporRead()
	}
	return 0xA0
}

func (b *Bus) cycle() uint64 {
	if b.Cycle != nil {
		return b.Cycle()
	}
	return 0
}

// status packs a mode bit into bit 7 over the low keyboard bits, the way the
// IIe status locations read back
func (b *Bus) status(on bool) uint8 {
	v := uint8(0)
	if b.Keyboard != nil {
		v = b.Keyboard.Latch() & 0x7F
	}
	if on {
		v |= 0x80
	}
	return v
}

// setMode sets a switch and marks the frame dirty when the mode changed
func (b *Bus) setMode(sw SoftSwitch, on bool) {
	if b.SW.Set(sw, on) {
		b.frameDirty()
	}
}

// ioAccess decodes the $C000-$C0FF soft-switch page
func (b *Bus) ioAccess(addr uint16, value uint8, write bool) uint8 {
	switch {
	case addr >= 0xC080 && addr < 0xC090:
		b.languageCard(addr, write)
		return b.vapor()
	case addr >= 0xC090:
		// Slot device registers, 16 per slot
		slot := int(addr>>4) & 0x7
		if card := b.Cards[slot]; card != nil {
			return card.IOAccess(uint8(addr&0xF), value, write)
		}
		return b.vapor()
	}

	switch addr {
	case 0xC000:
		if write {
			b.setMode(Sw80Store, false)
			return 0
		}
		if b.Keyboard != nil {
			return b.Keyboard.Latch()
		}
		return 0
	case 0xC001:
		if write {
			b.setMode(Sw80Store, true)
		}
		return 0
	case 0xC002, 0xC003:
		if write {
			b.SW.Set(SwRAMRD, addr == 0xC003)
		}
		return 0
	case 0xC004, 0xC005:
		if write {
			b.SW.Set(SwRAMWRT, addr == 0xC005)
		}
		return 0
	case 0xC006, 0xC007:
		if write {
			b.SW.Set(SwIntCXROM, addr == 0xC007)
		}
		return 0
	case 0xC008, 0xC009:
		if write {
			b.SW.Set(SwAltZP, addr == 0xC009)
		}
		return 0
	case 0xC00A, 0xC00B:
		if write {
			b.SW.Set(SwSlotC3ROM, addr == 0xC00B)
		}
		return 0
	case 0xC00C, 0xC00D:
		b.setMode(Sw80Col, addr == 0xC00D)
		return 0
	case 0xC00E, 0xC00F:
		// Toggled on every access, reads included; forces a blink redraw
		b.setMode(SwAltCharset, addr == 0xC00F)
		b.frameDirty()
		return 0
	case 0xC010:
		if b.Keyboard != nil {
			b.Keyboard.ClearStrobe()
			return b.status(b.Keyboard.AnyKeyDown())
		}
		return 0
	case 0xC011:
		return b.status(b.SW.Get(SwLCBank2))
	case 0xC012:
		return b.status(b.SW.Get(SwLCRead))
	case 0xC013:
		return b.status(b.SW.Get(SwRAMRD))
	case 0xC014:
		return b.status(b.SW.Get(SwRAMWRT))
	case 0xC015:
		return b.status(b.SW.Get(SwIntCXROM))
	case 0xC016:
		return b.status(b.SW.Get(SwAltZP))
	case 0xC017:
		return b.status(b.SW.Get(SwSlotC3ROM))
	case 0xC018:
		return b.status(b.SW.Get(Sw80Store))
	case 0xC019:
		on := false
		if b.VBLStatus != nil {
			on = b.VBLStatus()
		}
		return b.status(on)
	case 0xC01A:
		return b.status(b.SW.Get(SwText))
	case 0xC01B:
		return b.status(b.SW.Get(SwMixed))
	case 0xC01C:
		return b.status(b.SW.Get(SwPage2))
	case 0xC01D:
		return b.status(b.SW.Get(SwHires))
	case 0xC01E:
		return b.status(b.SW.Get(SwAltCharset))
	case 0xC01F:
		return b.status(b.SW.Get(Sw80Col))
	case 0xC030, 0xC031, 0xC032, 0xC033, 0xC034, 0xC035, 0xC036, 0xC037:
		if b.SpeakerClick != nil {
			b.SpeakerClick(b.cycle())
		}
		return b.vapor()
	case 0xC050, 0xC051:
		b.setMode(SwText, addr == 0xC051)
		return b.vapor()
	case 0xC052, 0xC053:
		b.setMode(SwMixed, addr == 0xC053)
		return b.vapor()
	case 0xC054, 0xC055:
		b.setMode(SwPage2, addr == 0xC055)
		return b.vapor()
	case 0xC056, 0xC057:
		b.setMode(SwHires, addr == 0xC057)
		return b.vapor()
	case 0xC05E, 0xC05F:
		// DHIRES rides the AN3 annunciator; each level change feeds the
		// 2-bit double-res mode register
		b.setMode(SwDHires, addr == 0xC05E)
		b.SW.AN3Edge(addr == 0xC05F, b.SW.Get(Sw80Col))
		b.frameDirty()
		return b.vapor()
	case 0xC058, 0xC059, 0xC05A, 0xC05B, 0xC05C, 0xC05D:
		// Annunciators 0-2, nothing observable behind them here
		return b.vapor()
	case 0xC061, 0xC062, 0xC063:
		down := false
		if b.Paddles != nil {
			down = b.Paddles.Button(int(addr - 0xC061))
		}
		return b.status(down)
	case 0xC064, 0xC065, 0xC066, 0xC067:
		if b.Paddles != nil && b.Paddles.Counting(int(addr-0xC064), b.cycle()) {
			return 0x80
		}
		return 0
	case 0xC070:
		if b.Paddles != nil {
			b.Paddles.Trigger(b.cycle())
		}
		return b.vapor()
	}

	if b.logger != nil {
		b.logger.LogMemoryf(debug.LogLevelDebug, "unhandled soft-switch access $%04X (write=%v)", addr, write)
	}
	return b.vapor()
}

// languageCard decodes the $C080-$C08F bank-switched RAM switches.
// Write enable needs two consecutive reads of an odd switch; the pre-write
// latch implements that.
func (b *Bus) languageCard(addr uint16, write bool) {
	b.SW.Set(SwLCBank2, addr&0x08 == 0)
	low := addr & 0x03
	b.SW.Set(SwLCRead, low == 0 || low == 3)
	if addr&0x01 != 0 {
		if !write && b.SW.Get(SwLCPreWrite) {
			b.SW.Set(SwLCWrite, true)
		}
		b.SW.Set(SwLCPreWrite, !write)
	} else {
		b.SW.Set(SwLCWrite, false)
		b.SW.Set(SwLCPreWrite, false)
	}
}

// Reset restores the power-on switch state
func (b *Bus) Reset() {
	b.SW.Reset()
	b.frameDirty()
}

// ColdStart zeroes guest RAM and resets the switches
func (b *Bus) ColdStart() {
	if ps, ok := b.Main.storage.(*PagedStorage); ok {
		ps.V.Zero()
	} else if rs, ok := b.Main.storage.(*RawStorage); ok {
		for i := range rs.Data {
			rs.Data[i] = 0
		}
	}
	if rs, ok := b.Aux.storage.(*RawStorage); ok {
		for i := range rs.Data {
			rs.Data[i] = 0
		}
	}
	for i := range b.MainD000B2 {
		b.MainD000B2[i] = 0
		b.AuxD000B2[i] = 0
	}
	b.Reset()
}
