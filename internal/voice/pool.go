package voice

import (
	"errors"
	"fmt"

	"github.com/cbegin/varsynth-go/internal/tuning"
	"github.com/cbegin/varsynth-go/internal/waveform"
)

const (
	DefaultVoices = 16
	MaxVoices     = 32
	noteCount     = 128
	noVoice       = -1
)

var ErrInvalidVoices = errors.New("voice: invalid voice count")

type Params struct {
	Voices int // pool capacity, 1..MaxVoices
}

func DefaultParams() Params {
	return Params{Voices: DefaultVoices}
}

func (p Params) Validate() error {
	if p.Voices < 1 || p.Voices > MaxVoices {
		return fmt.Errorf("%w: %d (expected 1..%d)", ErrInvalidVoices, p.Voices, MaxVoices)
	}
	return nil
}

// Pool owns a fixed array of voices that all read from one shared generator.
//
// Notes are bound to voices through a note-number table filled at allocation,
// so a note-off always releases the voice its note-on claimed. When every voice
// is sounding further note-ons are dropped; nothing is stolen or queued.
type Pool struct {
	gen    *waveform.Generator
	voices [MaxVoices]Voice
	n      int
	byNote [noteCount]int8
}

func NewPool(gen *waveform.Generator, params Params) (*Pool, error) {
	if gen == nil {
		return nil, errors.New("voice: nil generator")
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	p := &Pool{}
	p.rebuild(gen, params.Voices)
	return p, nil
}

// rebuild discards every voice and the note table and starts over with n
// fresh voices reading from gen. It works in place so it never allocates.
func (p *Pool) rebuild(gen *waveform.Generator, n int) {
	p.gen = gen
	p.n = n
	for i := range p.voices {
		p.voices[i] = NewVoice(gen)
	}
	for i := range p.byNote {
		p.byNote[i] = noVoice
	}
}

func (p *Pool) Capacity() int { return p.n }
func (p *Pool) Generator() *waveform.Generator { return p.gen }

// Voice returns a copy of voice i for inspection.
func (p *Pool) Voice(i int) Voice {
	return p.voices[i]
}

// VoiceFor returns the index of the voice sounding note, if any.
func (p *Pool) VoiceFor(note int) (int, bool) {
	if note < 0 || note >= noteCount {
		return 0, false
	}
	idx := p.byNote[note]
	return int(idx), idx != noVoice
}

func (p *Pool) ActiveCount() int {
	n := 0
	for i := 0; i < p.n; i++ {
		if p.voices[i].active {
			n++
		}
	}
	return n
}

// Allocate starts the first Idle voice, in index order, on note. It reports
// whether note is sounding afterwards: false means the pool was full and the
// note was dropped. A note that is already sounding keeps its voice.
func (p *Pool) Allocate(note int, velocity float64) bool {
	if note < 0 || note >= noteCount {
		return false
	}
	if p.byNote[note] != noVoice {
		return true
	}
	for i := 0; i < p.n; i++ {
		v := &p.voices[i]
		if v.active {
			continue
		}
		v.Start(note, tuning.MidiToFreq(note), velocity)
		p.byNote[note] = int8(i)
		return true
	}
	return false
}

// Release stops the voice bound to note. Unknown notes are ignored.
func (p *Pool) Release(note int) bool {
	idx, ok := p.VoiceFor(note)
	if !ok {
		return false
	}
	p.voices[idx].Stop()
	p.byNote[note] = noVoice
	return true
}

// ReleaseAtOrAbove stops every voice whose frequency is at or above limit and
// returns how many it stopped.
func (p *Pool) ReleaseAtOrAbove(limit float64) int {
	n := 0
	for i := 0; i < p.n; i++ {
		v := &p.voices[i]
		if v.active && v.freq >= limit {
			p.byNote[v.note] = noVoice
			v.Stop()
			n++
		}
	}
	return n
}

// Mix fills buf with the sum of every voice divided by the pool capacity.
// A single note therefore plays at 1/N of full scale, leaving headroom for N.
func (p *Pool) Mix(buf []float32, sampleRate float64) {
	gain := 1 / float64(p.n)
	for i := range buf {
		var sum float64
		for j := 0; j < p.n; j++ {
			sum += p.voices[j].Sample(sampleRate)
		}
		buf[i] = float32(sum * gain)
	}
}

// Retune swaps in gen and rebuilds the pool, silencing every sounding note.
func (p *Pool) Retune(gen *waveform.Generator) {
	p.rebuild(gen, p.n)
}

// Resize rebuilds the pool with a new capacity, silencing every sounding note.
func (p *Pool) Resize(params Params) error {
	if err := params.Validate(); err != nil {
		return err
	}
	p.rebuild(p.gen, params.Voices)
	return nil
}

// Reset silences every voice and zeroes all phases, keeping the generator.
func (p *Pool) Reset() {
	p.rebuild(p.gen, p.n)
}
