package floppy

import (
	"testing"
)

func TestIOAccessSwitches(t *testing.T) {
	c := NewController(nil)

	c.IOAccess(9, 0, false)
	if !c.Motor || !c.Drives[0].Motor {
		t.Errorf("motor on failed")
	}
	c.IOAccess(0xB, 0, false)
	if c.Selected != 1 || !c.Drives[1].Motor || c.Drives[0].Motor {
		t.Errorf("drive select did not move the motor")
	}
	c.IOAccess(0xA, 0, false)
	if c.Selected != 0 {
		t.Errorf("drive 1 reselect failed")
	}
	c.IOAccess(8, 0, false)
	if c.Motor || c.Drives[0].Motor {
		t.Errorf("motor off failed")
	}
}

func TestPhaseAccessMovesHead(t *testing.T) {
	c := NewController(nil)
	c.IOAccess(3, 0, false) // phase 1 on
	c.IOAccess(2, 0, false) // phase 1 off
	if got := c.Drives[0].QTrack; got != 2 {
		t.Errorf("qtrack = %d, want 2", got)
	}
}

func TestWriteProtectSense(t *testing.T) {
	c := NewController(nil)
	c.Drives[0].WriteProtected = true

	c.IOAccess(0xD, 0, false) // Q6 on
	c.IOAccess(0xE, 0, false) // Q7 off
	if got := c.IOAccess(0xC, 0, false); got&0x80 == 0 {
		t.Errorf("write-protect sense clear on protected drive: %02X", got)
	}
	c.Drives[0].WriteProtected = false
	if got := c.IOAccess(0xC, 0, false); got&0x80 != 0 {
		t.Errorf("write-protect sense set on writable drive: %02X", got)
	}
}

func TestTickIdleWithoutMotor(t *testing.T) {
	c := NewController(nil)
	c.Drives[0].Motor = false
	before := c.Drives[0].BitPosition
	c.Tick(1000)
	if c.Drives[0].BitPosition != before {
		t.Errorf("sequencer ran with the motor off")
	}
}

// TestReadPathAssemblesNibbles spins the sequencer over a real encoded
// track and watches the data register: complete nibbles (high bit set)
// must appear, including the address prologue marker.
func TestReadPathAssemblesNibbles(t *testing.T) {
	c := NewController(nil)
	d := c.Drives[0]
	mountTestImage(t, d)

	c.Motor = true
	d.Motor = true
	// Q6 off, Q7 off: read mode
	c.IOAccess(0xC, 0, false)
	c.IOAccess(0xE, 0, false)

	seen := make(map[uint8]bool)
	for i := 0; i < 60000; i++ {
		c.Tick(4) // one bit cell per tick batch
		if c.DataRegister&0x80 != 0 {
			seen[c.DataRegister] = true
		}
	}
	if len(seen) < 4 {
		t.Fatalf("sequencer produced only %d distinct nibbles", len(seen))
	}
}

// TestWritePathReachesMedia loads the register in write mode and checks
// the bits land on the track
func TestWritePathReachesMedia(t *testing.T) {
	c := NewController(nil)
	d := c.Drives[0]
	mountTestImage(t, d)

	c.Motor = true
	d.Motor = true
	d.BitPosition = 0
	start := d.BitPosition

	c.IOAccess(0xF, 0, false)    // Q7 on: write mode
	c.IOAccess(0xD, 0xD5, true)  // Q6 on + write: load the register
	c.Tick(32)                   // eight bit cells shift the byte out

	var got uint8
	for i := uint32(0); i < 8; i++ {
		got <<= 1
		if d.Current.ReadBit(start + i) {
			got |= 1
		}
	}
	if got != 0xD5 {
		t.Errorf("media holds %02X, want D5", got)
	}
	if !d.Current.Dirty {
		t.Errorf("write did not mark the track dirty")
	}
}

func TestControllerReset(t *testing.T) {
	c := NewController(nil)
	c.IOAccess(9, 0, false)
	c.IOAccess(0xF, 0, false)
	c.Reset()
	if c.Motor || c.q7 || c.DataRegister != 0 {
		t.Errorf("reset left controller active")
	}
}
