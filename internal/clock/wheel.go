package clock

import (
	"fmt"

	"iie-core/internal/debug"
)

// Callback fires when a timer's remaining count reaches zero or below.
// Its return value becomes the new remaining count; returning 0 disables
// the timer until Set gives it a positive value again.
type Callback func() int64

// Timer is one cooperative, cycle-denominated timer
type Timer struct {
	Name      string
	Remaining int64
	cb        Callback
}

// Wheel coordinates the cooperative timers. Every executed CPU instruction
// feeds its cycle cost into Advance; expired timers fire in registration
// order, which is also the tie-break when two timers expire on the same
// cycle.
type Wheel struct {
	timers []Timer
	logger *debug.Logger
}

// NewWheel creates an empty timer wheel
func NewWheel(logger *debug.Logger) *Wheel {
	return &Wheel{logger: logger}
}

// Register adds a timer and returns its id. A zero initial count registers
// the timer disabled.
func (w *Wheel) Register(cb Callback, initial int64, name string) int {
	w.timers = append(w.timers, Timer{Name: name, Remaining: initial, cb: cb})
	return len(w.timers) - 1
}

// Advance decrements every active timer by the given cycle cost and fires
// the expired ones
func (w *Wheel) Advance(cycles uint32) {
	for i := range w.timers {
		t := &w.timers[i]
		if t.Remaining == 0 {
			continue
		}
		t.Remaining -= int64(cycles)
		if t.Remaining <= 0 {
			t.Remaining = t.cb()
			if t.Remaining < 0 {
				t.Remaining = 0
			}
		}
	}
}

// Set replaces a timer's remaining count
func (w *Wheel) Set(id int, remaining int64) error {
	if id < 0 || id >= len(w.timers) {
		return fmt.Errorf("clock: timer id %d out of range (have %d timers)", id, len(w.timers))
	}
	w.timers[id].Remaining = remaining
	return nil
}

// Get returns a timer's remaining count
func (w *Wheel) Get(id int) int64 {
	if id < 0 || id >= len(w.timers) {
		return 0
	}
	return w.timers[id].Remaining
}

// Name returns a timer's registration name
func (w *Wheel) Name(id int) string {
	if id < 0 || id >= len(w.timers) {
		return ""
	}
	return w.timers[id].Name
}

// Count returns the number of registered timers
func (w *Wheel) Count() int {
	return len(w.timers)
}
