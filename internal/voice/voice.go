// Package voice implements the phase-accumulating voice and the fixed-capacity
// pool that allocates voices per note and mixes them.
package voice

import (
	"github.com/cbegin/varsynth-go/internal/tuning"
	"github.com/cbegin/varsynth-go/internal/waveform"
)

// Voice is one monophonic slot. It is Idle until Start and returns to Idle on
// Stop. While Idle it contributes silence and its phase does not move, so a
// reused voice resumes from where it stopped.
type Voice struct {
	gen      *waveform.Generator
	state    waveform.State
	phase    float64 // radians, always in [0, 2π)
	freq     float64
	velocity float64
	note     int
	active   bool
}

// NewVoice returns an Idle voice reading from gen.
func NewVoice(gen *waveform.Generator) Voice {
	return Voice{gen: gen, freq: tuning.A4, note: -1}
}

func (v *Voice) Active() bool { return v.active }
func (v *Voice) Phase() float64 { return v.phase }
func (v *Voice) Frequency() float64 { return v.freq }
func (v *Voice) Velocity() float64 { return v.velocity }
func (v *Voice) Note() int { return v.note }

// Start moves the voice to Sounding at freq. The phase is kept; the held
// state of a stateful generator is cleared so the new note draws a fresh value.
func (v *Voice) Start(note int, freq, velocity float64) {
	v.note = note
	v.freq = freq
	v.velocity = velocity
	v.state.Reset()
	v.active = true
}

// Stop moves the voice to Idle without touching its phase.
func (v *Voice) Stop() {
	v.active = false
	v.note = -1
}

// Sample returns the voice's contribution for the current sample and advances
// the phase. freq must stay below the Nyquist limit of sampleRate so that a
// single subtraction keeps the phase in [0, 2π).
func (v *Voice) Sample(sampleRate float64) float64 {
	if !v.active {
		return 0
	}
	s := v.gen.Next(v.phase, sampleRate, &v.state)
	v.phase += tuning.PhaseIncrement(v.freq, sampleRate)
	if v.phase >= tuning.TwoPi {
		v.phase -= tuning.TwoPi
	}
	return s
}
