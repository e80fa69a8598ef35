package vram

import (
	"fmt"
	"os"

	"iie-core/internal/debug"
)

const (
	// PageSize is the size of one guest page in bytes
	PageSize = 256
	// GuestPages is the number of pages in the guest address range (64KB)
	GuestPages = 256
)

// pageDesc describes one guest page
type pageDesc struct {
	pinned bool
	inRAM  bool
	lba    uint8 // physical page caching this guest page (valid when inRAM)
}

// VRAM maps a 256-page guest address range onto a smaller cache of physical
// pages backed by a swap file. Reads never fail: on a cache miss the victim's
// dirty bytes are written to the swap file before the miss is refilled.
//
// Guest pages 0 and 1 (zero page and the CPU stack) are permanently pinned.
type VRAM struct {
	pool      []uint8    // physical page pool, poolPages * PageSize bytes
	poolPages int        // number of physical pages
	vDesc     [GuestPages]pageDesc
	sDirty    []bool // per-physical-page dirty flag
	sOwner    []uint8 // guest page currently cached in each physical page

	// Rolling victim pointer: next guest page considered for replacement
	oldestVPage int

	swap *os.File

	// FlushCount counts dirty-page flushes to the swap file (eviction events)
	FlushCount uint64

	logger *debug.Logger
}

// New creates a paged RAM with poolPages physical pages backed by a swap file
// at swapPath. The swap file is created and pre-extended to a full 64KB of
// zeros so any guest page not in cache always has a complete snapshot on
// storage. poolPages must be at least 3 (two pinned pages plus one victim
// candidate) and at most GuestPages.
func New(poolPages int, swapPath string, logger *debug.Logger) (*VRAM, error) {
	if poolPages < 3 {
		return nil, fmt.Errorf("vram: pool of %d pages is too small: need at least 3 (pages 0 and 1 are permanently pinned)", poolPages)
	}
	if poolPages > GuestPages {
		poolPages = GuestPages
	}

	swap, err := os.Create(swapPath)
	if err != nil {
		return nil, fmt.Errorf("vram: failed to create swap file %s: %w", swapPath, err)
	}
	if err := swap.Truncate(GuestPages * PageSize); err != nil {
		swap.Close()
		return nil, fmt.Errorf("vram: failed to pre-extend swap file: %w", err)
	}

	v := &VRAM{
		pool:      make([]uint8, poolPages*PageSize),
		poolPages: poolPages,
		sDirty:    make([]bool, poolPages),
		sOwner:    make([]uint8, poolPages),
		swap:      swap,
		logger:    logger,
	}

	// Each physical page starts out owning the guest page of the same index
	for i := 0; i < poolPages; i++ {
		v.vDesc[i] = pageDesc{inRAM: true, lba: uint8(i)}
		v.sOwner[i] = uint8(i)
	}
	v.vDesc[0].pinned = true
	v.vDesc[1].pinned = true
	v.oldestVPage = 2

	return v, nil
}

// Close flushes every dirty page and closes the swap file
func (v *VRAM) Close() error {
	for vp := 0; vp < GuestPages; vp++ {
		d := &v.vDesc[vp]
		if d.inRAM && v.sDirty[d.lba] {
			v.flushPhysPage(d.lba)
		}
	}
	if v.swap != nil {
		err := v.swap.Close()
		v.swap = nil
		return err
	}
	return nil
}

// Full reports whether the pool covers the entire guest address space, in
// which case page translation is the identity and pinning is a no-op.
func (v *VRAM) Full() bool {
	return v.poolPages >= GuestPages
}

// PageFor returns the physical page caching guest page vp, faulting it in if
// necessary. The caller guarantees vp is not unpinned concurrently.
func (v *VRAM) PageFor(vp uint8) uint8 {
	d := &v.vDesc[vp]
	if d.inRAM {
		return d.lba
	}
	return v.fault(vp)
}

// fault selects a victim, flushes it if dirty, and refills the freed physical
// page with guest page vp from the swap file.
func (v *VRAM) fault(vp uint8) uint8 {
	// Walk the rolling pointer until a resident, unpinned page is found
	victim := -1
	for scanned := 0; scanned < GuestPages; scanned++ {
		cand := v.oldestVPage
		v.oldestVPage = (v.oldestVPage + 1) % GuestPages
		cd := &v.vDesc[cand]
		if cd.inRAM && !cd.pinned {
			victim = cand
			break
		}
	}
	if victim < 0 {
		// Cannot happen after a valid init: the pool always holds more pages
		// than the pinned set. Treated as fatal at the call site by reading
		// stale data from physical page 2.
		if v.logger != nil {
			v.logger.LogMemoryf(debug.LogLevelError, "vram: no evictable page for guest page %02X", vp)
		}
		return 2
	}

	phys := v.vDesc[victim].lba
	if v.sDirty[phys] {
		v.flushPhysPage(phys)
	}
	v.vDesc[victim].inRAM = false

	// Refill from swap. A failed read leaves the physical page with its
	// previous contents; the cold path is only hit under memory pressure.
	buf := v.physSlice(phys)
	if _, err := v.swap.ReadAt(buf, int64(vp)*PageSize); err != nil {
		if v.logger != nil {
			v.logger.LogMemoryf(debug.LogLevelError, "vram: swap read of guest page %02X failed: %v", vp, err)
		}
	}

	v.vDesc[vp] = pageDesc{inRAM: true, lba: phys}
	v.sOwner[phys] = vp
	v.sDirty[phys] = false
	return phys
}

// flushPhysPage writes a physical page back to its owner's swap slot
func (v *VRAM) flushPhysPage(phys uint8) {
	owner := v.sOwner[phys]
	if _, err := v.swap.WriteAt(v.physSlice(phys), int64(owner)*PageSize); err != nil {
		if v.logger != nil {
			v.logger.LogMemoryf(debug.LogLevelError, "vram: swap flush of guest page %02X failed: %v", owner, err)
		}
	}
	v.sDirty[phys] = false
	v.FlushCount++
}

func (v *VRAM) physSlice(phys uint8) []uint8 {
	off := int(phys) * PageSize
	return v.pool[off : off+PageSize]
}

// ReadByte reads one byte from the guest address
func (v *VRAM) ReadByte(addr uint16) uint8 {
	phys := v.PageFor(uint8(addr >> 8))
	return v.pool[int(phys)*PageSize+int(addr&0xFF)]
}

// WriteByte writes one byte to the guest address and marks the page dirty
func (v *VRAM) WriteByte(addr uint16, value uint8) {
	phys := v.PageFor(uint8(addr >> 8))
	v.pool[int(phys)*PageSize+int(addr&0xFF)] = value
	v.sDirty[phys] = true
}

// Read copies len(buf) bytes starting at addr into buf, page by page
func (v *VRAM) Read(addr uint16, buf []uint8) {
	done := 0
	for done < len(buf) {
		a := addr + uint16(done)
		phys := v.PageFor(uint8(a >> 8))
		off := int(a & 0xFF)
		n := copy(buf[done:], v.physSlice(phys)[off:])
		done += n
	}
}

// Write copies buf to guest memory starting at addr, page by page
func (v *VRAM) Write(addr uint16, buf []uint8) {
	done := 0
	for done < len(buf) {
		a := addr + uint16(done)
		phys := v.PageFor(uint8(a >> 8))
		off := int(a & 0xFF)
		n := copy(v.physSlice(phys)[off:], buf[done:])
		v.sDirty[phys] = true
		done += n
	}
}

// PinRange unpins every page except 0 and 1, then touches each page covering
// [addr, addr+length) and pins it. Consumers call this before a large
// sequential access (a full-frame video walk or a disk DMA) so the pages they
// are about to scan cannot be evicted mid-scan. When the pool covers the
// whole guest address space this is a no-op.
func (v *VRAM) PinRange(addr uint16, length int) {
	if v.Full() {
		return
	}
	for i := 2; i < GuestPages; i++ {
		v.vDesc[i].pinned = false
	}
	if length <= 0 {
		return
	}
	first := int(addr >> 8)
	last := int(addr+uint16(length-1)) >> 8
	for p := first; p <= last && p < GuestPages; p++ {
		v.PageFor(uint8(p))
		v.vDesc[p].pinned = true
	}
}

// Zero clears the full guest address space: the physical pool is zeroed and
// the swap file rewritten with zeros. Used by a cold reset.
func (v *VRAM) Zero() {
	for i := range v.pool {
		v.pool[i] = 0
	}
	for i := range v.sDirty {
		v.sDirty[i] = false
	}
	zeros := make([]uint8, GuestPages*PageSize)
	if _, err := v.swap.WriteAt(zeros, 0); err != nil {
		if v.logger != nil {
			v.logger.LogMemoryf(debug.LogLevelError, "vram: swap zero failed: %v", err)
		}
	}
}
