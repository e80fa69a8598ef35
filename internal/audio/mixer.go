package audio

import (
	"iie-core/internal/debug"
)

const (
	// RingSize is the contribution ring length in samples, a power of two
	RingSize = 16384

	// SampleBufferOffset is the playback latency in samples. A click that
	// lands this far (or farther) past the write cursor is a new sound
	// after silence and re-anchors the ring instead of filling it.
	SampleBufferOffset = 1024

	// cpuClockHz is the guest CPU clock the sample-position constant is
	// derived from
	cpuClockHz = 1020484
)

// StereoSource is a secondary stereo contributor mixed into the output
// stream (a square-wave card or external synthesizer)
type StereoSource interface {
	Active() bool
	// Render adds interleaved stereo contributions into out (len = 2*n)
	Render(out []int32)
}

// Mixer reconstructs the speaker waveform from cycle-stamped click events.
// One click toggles a speaker value of ±256; contributions are fixed-point
// 8.8 and scaled to int16 on drain.
type Mixer struct {
	ring  [RingSize]int16
	write uint32
	read  uint32

	// samplesPerCycle is (SampleRate << 16) / cpuClockHz, 16.16 fixed point
	samplesPerCycle uint64
	// currentSample is the absolute output sample index the ring write
	// cursor corresponds to
	currentSample uint64

	sign int16 // current speaker value, +256 or -256
	last int16 // last drained contribution, held during underrun

	SampleRate uint32
	Volume     int32 // output scale, contributions*Volume>>2 gives int16

	Secondary StereoSource

	logger *debug.Logger
}

// NewMixer creates a mixer reconstructing at the given sample rate
func NewMixer(sampleRate uint32, logger *debug.Logger) *Mixer {
	return &Mixer{
		samplesPerCycle: (uint64(sampleRate) << 16) / cpuClockHz,
		sign:            256,
		SampleRate:      sampleRate,
		Volume:          48,
		logger:          logger,
	}
}

// sampleIndexFor converts a CPU total cycle to an absolute sample index
func (m *Mixer) sampleIndexFor(cycle uint64) uint64 {
	return (cycle * m.samplesPerCycle) >> 16
}

// Click records one speaker toggle at the given CPU total cycle. Clicks are
// monotonic in cycle because they are CPU total-cycle counts.
func (m *Mixer) Click(cycle uint64) {
	target := m.sampleIndexFor(cycle)
	delta := int64(target) - int64(m.currentSample)

	switch {
	case delta <= 0:
		// Sub-sample toggle, nothing to fill
	case delta >= SampleBufferOffset:
		// New sound after silence: re-anchor the write cursor a fixed
		// latency ahead of the reader instead of replaying the gap
		m.write = (m.read + SampleBufferOffset) % RingSize
		m.currentSample = target
	default:
		for i := int64(0); i < delta; i++ {
			m.ring[m.write] = m.sign
			m.write = (m.write + 1) % RingSize
			if m.write == m.read {
				// Overrun: the oldest unread sample is overwritten
				m.read = (m.read + 1) % RingSize
			}
		}
		m.currentSample = target
	}
	m.sign = -m.sign
}

// Pending returns the number of ready output samples
func (m *Mixer) Pending() int {
	return int((m.write + RingSize - m.read) % RingSize)
}

// Drain produces count interleaved stereo int16 samples into out
// (len(out) >= 2*count). Underruns hold the last contribution.
func (m *Mixer) Drain(out []int16, count int) {
	mix := make([]int32, 2*count)
	for i := 0; i < count; i++ {
		v := m.last
		if m.write != m.read {
			v = m.ring[m.read]
			m.ring[m.read] = 0
			m.read = (m.read + 1) % RingSize
			m.last = v
		}
		s := int32(v) * m.Volume
		mix[2*i] = s
		mix[2*i+1] = s
	}

	if m.Secondary != nil && m.Secondary.Active() {
		m.Secondary.Render(mix)
	}

	for i, s := range mix {
		if s > 32767 {
			s = 32767
		} else if s < -32768 {
			s = -32768
		}
		out[i] = int16(s)
	}
}

// Sync re-anchors the reconstruction to the given cycle and empties the
// ring. Called after a long pause (disk load, reset) so the accumulated
// toggles are not replayed.
func (m *Mixer) Sync(cycle uint64) {
	m.currentSample = m.sampleIndexFor(cycle)
	m.write = 0
	m.read = 0
	m.last = 0
	for i := range m.ring {
		m.ring[i] = 0
	}
	if m.logger != nil {
		m.logger.LogAudiof(debug.LogLevelDebug, "mixer re-synced at cycle %d (sample %d)", cycle, m.currentSample)
	}
}

// SamplesPerCycle exposes the 16.16 conversion constant
func (m *Mixer) SamplesPerCycle() uint64 {
	return m.samplesPerCycle
}
