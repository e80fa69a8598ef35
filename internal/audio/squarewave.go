package audio

// SquareWave is a fixed-point square-wave generator used as the secondary
// stereo source: a stand-in for a tone card sitting next to the speaker in
// the output mix.
type SquareWave struct {
	Enabled bool
	Volume  int32 // per-channel amplitude added to the 8.8 mix

	// Phase accumulator, 32-bit fixed point (full cycle = 2^32)
	phase     uint32
	increment uint32

	sampleRate uint32
	// Pan splits the tone between channels: 0 = left only, 128 = centred,
	// 255 = right only
	Pan uint8
}

// NewSquareWave creates a generator for the given output sample rate
func NewSquareWave(sampleRate uint32) *SquareWave {
	return &SquareWave{
		Volume:     4096,
		sampleRate: sampleRate,
		Pan:        128,
	}
}

// SetFrequency sets the tone frequency in Hz
func (s *SquareWave) SetFrequency(hz uint32) {
	if s.sampleRate == 0 {
		return
	}
	s.increment = uint32((uint64(hz) << 32) / uint64(s.sampleRate))
}

// Active reports whether the source contributes to the mix
func (s *SquareWave) Active() bool {
	return s.Enabled && s.increment != 0
}

// Render adds interleaved stereo contributions into out
func (s *SquareWave) Render(out []int32) {
	left := int32(255-uint32(s.Pan)) + 1
	right := int32(s.Pan) + 1
	for i := 0; i+1 < len(out); i += 2 {
		v := s.Volume
		if s.phase >= 1<<31 {
			v = -v
		}
		out[i] += v * left / 256
		out[i+1] += v * right / 256
		s.phase += s.increment
	}
}
