package memory

import (
	"fmt"

	"iie-core/internal/vram"
)

// AccessHook is called before bank storage is touched for a page that has a
// hook installed. data holds the bytes being read into or written from.
// Returning true marks the access as handled: the bank storage is not
// touched. On bank disposal every installed hook is called once more with a
// nil bank so it can release hook-private state.
type AccessHook func(b *Bank, addr uint16, data []uint8, write bool) bool

// Storage is the backing store of a bank: either a raw byte slice or a
// handle to the paged RAM.
type Storage interface {
	ReadByte(addr uint16) uint8
	WriteByte(addr uint16, value uint8)
	Read(addr uint16, buf []uint8)
	Write(addr uint16, buf []uint8)
}

// RawStorage backs a bank with a plain byte slice. The slice is indexed by
// offset + (addr - base); offset selects a window inside a larger allocation
// so several banks can share one array.
type RawStorage struct {
	Data   []uint8
	Offset int
	base   uint16
}

func (r *RawStorage) index(addr uint16) int {
	return r.Offset + int(addr) - int(r.base)
}

func (r *RawStorage) ReadByte(addr uint16) uint8 {
	return r.Data[r.index(addr)]
}

func (r *RawStorage) WriteByte(addr uint16, value uint8) {
	r.Data[r.index(addr)] = value
}

func (r *RawStorage) Read(addr uint16, buf []uint8) {
	copy(buf, r.Data[r.index(addr):])
}

func (r *RawStorage) Write(addr uint16, buf []uint8) {
	copy(r.Data[r.index(addr):], buf)
}

// PagedStorage backs a bank with the paged RAM cache
type PagedStorage struct {
	V *vram.VRAM
}

func (p *PagedStorage) ReadByte(addr uint16) uint8          { return p.V.ReadByte(addr) }
func (p *PagedStorage) WriteByte(addr uint16, value uint8)  { p.V.WriteByte(addr, value) }
func (p *PagedStorage) Read(addr uint16, buf []uint8)       { p.V.Read(addr, buf) }
func (p *PagedStorage) Write(addr uint16, buf []uint8)      { p.V.Write(addr, buf) }

// Bank exposes uniform read/write/peek/poke over a range of guest pages.
// Guest addresses in [base, base+256*size) belong to the bank.
type Bank struct {
	Name     string
	Base     uint16
	Size     int // pages of 256 bytes
	ReadOnly bool

	storage  Storage
	hooks    []AccessHook // per-page dispatch table, nil until the first InstallHook
	installs []AccessHook // one entry per InstallHook call, for disposal
}

// NewRawBank creates a bank over a freshly allocated byte array
func NewRawBank(name string, base uint16, pages int, readOnly bool) *Bank {
	b := &Bank{Name: name, Base: base, Size: pages, ReadOnly: readOnly}
	b.storage = &RawStorage{Data: make([]uint8, pages*256), base: base}
	return b
}

// NewROMBank creates a read-only bank over an existing blob
func NewROMBank(name string, base uint16, blob []uint8) (*Bank, error) {
	if len(blob)%256 != 0 {
		return nil, fmt.Errorf("bank %s: ROM blob size %d is not a whole number of pages", name, len(blob))
	}
	b := &Bank{Name: name, Base: base, Size: len(blob) / 256, ReadOnly: true}
	b.storage = &RawStorage{Data: blob, base: base}
	return b, nil
}

// NewPagedBank creates a bank whose storage is the paged RAM cache
func NewPagedBank(name string, base uint16, pages int, v *vram.VRAM) *Bank {
	return &Bank{Name: name, Base: base, Size: pages, storage: &PagedStorage{V: v}}
}

// Contains reports whether addr falls inside the bank
func (b *Bank) Contains(addr uint16) bool {
	return addr >= b.Base && int(addr) < int(b.Base)+b.Size*256
}

// InstallHook installs an access hook on pages [pageFirst, pageLast] relative
// to the bank base
func (b *Bank) InstallHook(hook AccessHook, pageFirst, pageLast int) error {
	if pageFirst < 0 || pageLast >= b.Size || pageFirst > pageLast {
		return fmt.Errorf("bank %s: hook page range [%d, %d] outside bank of %d pages", b.Name, pageFirst, pageLast, b.Size)
	}
	if b.hooks == nil {
		b.hooks = make([]AccessHook, b.Size)
	}
	for p := pageFirst; p <= pageLast; p++ {
		b.hooks[p] = hook
	}
	b.installs = append(b.installs, hook)
	return nil
}

// hookFor returns the hook covering addr, if any
func (b *Bank) hookFor(addr uint16) AccessHook {
	if b.hooks == nil {
		return nil
	}
	page := int(addr-b.Base) >> 8
	if page < 0 || page >= b.Size {
		return nil
	}
	return b.hooks[page]
}

// Access runs the hook protocol for a multi-byte access without touching
// storage contents. It reports whether a hook claimed the access.
func (b *Bank) Access(addr uint16, data []uint8, write bool) bool {
	if hook := b.hookFor(addr); hook != nil {
		return hook(b, addr, data, write)
	}
	return false
}

// Read fills buf from the bank starting at addr
func (b *Bank) Read(addr uint16, buf []uint8) {
	if hook := b.hookFor(addr); hook != nil && hook(b, addr, buf, false) {
		return
	}
	b.storage.Read(addr, buf)
}

// Write stores buf into the bank starting at addr. Read-only banks ignore
// the write after the hook has seen it.
func (b *Bank) Write(addr uint16, buf []uint8) {
	if hook := b.hookFor(addr); hook != nil && hook(b, addr, buf, true) {
		return
	}
	if b.ReadOnly {
		return
	}
	b.storage.Write(addr, buf)
}

// Peek reads one byte without running hooks
func (b *Bank) Peek(addr uint16) uint8 {
	return b.storage.ReadByte(addr)
}

// Poke writes one byte without running hooks. Works on read-only banks too;
// it is the loader-side mutation path.
func (b *Bank) Poke(addr uint16, value uint8) {
	b.storage.WriteByte(addr, value)
}

// ReadByte reads one byte through the hook protocol
func (b *Bank) ReadByte(addr uint16) uint8 {
	var one [1]uint8
	b.Read(addr, one[:])
	return one[0]
}

// WriteByte writes one byte through the hook protocol
func (b *Bank) WriteByte(addr uint16, value uint8) {
	one := [1]uint8{value}
	b.Write(addr, one[:])
}

// Dispose drops the bank storage and gives every installed hook a chance to
// release hook-private allocations
func (b *Bank) Dispose() {
	for _, h := range b.installs {
		h(nil, 0, nil, false)
	}
	b.storage = nil
	b.hooks = nil
	b.installs = nil
}
