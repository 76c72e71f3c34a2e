// Package tuning holds the pitch and phase helpers shared by the generators,
// the voice pool and the offline renderer.
package tuning

import "math"

const TwoPi = math.Pi * 2

// A4 is the reference pitch of MIDI note 69.
const A4 = 440.0

// MidiToFreq converts a MIDI note number to Hz in twelve-tone equal temperament.
// Note 69 maps to exactly 440 Hz.
func MidiToFreq(note int) float64 {
	if note == 69 {
		return A4
	}
	return A4 * math.Pow(2, float64(note-69)/12)
}

// PhaseIncrement returns the per-sample phase advance in radians for freq at sampleRate.
func PhaseIncrement(freq, sampleRate float64) float64 {
	return TwoPi * freq / sampleRate
}

// Nyquist returns the highest frequency a phase accumulator at sampleRate can
// represent without the per-sample increment reaching 2π.
func Nyquist(sampleRate float64) float64 {
	return sampleRate / 2
}

// WrapPhase reduces phase into [0, 2π).
func WrapPhase(phase float64) float64 {
	if phase >= 0 && phase < TwoPi {
		return phase
	}
	phase = math.Mod(phase, TwoPi)
	if phase < 0 {
		phase += TwoPi
	}
	if phase >= TwoPi {
		phase = 0
	}
	return phase
}
