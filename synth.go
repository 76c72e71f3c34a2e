package varsynth

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/cbegin/varsynth-go/internal/tuning"
	"github.com/cbegin/varsynth-go/internal/voice"
	"github.com/cbegin/varsynth-go/internal/waveform"
)

// Timbre selects the waveform shared by every voice and its shaping parameters.
type Timbre = waveform.Params

type WaveformKind = waveform.Kind

const (
	Sine              = waveform.Sine
	Saw               = waveform.Saw
	Square            = waveform.Square
	AnalogSaw         = waveform.AnalogSaw
	AnalogSquare      = waveform.AnalogSquare
	BandLimitedSaw    = waveform.BandLimitedSaw
	BandLimitedSquare = waveform.BandLimitedSquare
	VintageSaw        = waveform.VintageSaw
	Noise             = waveform.Noise
	SampleHold        = waveform.SampleHold
)

const (
	DefaultVoices = voice.DefaultVoices
	MaxVoices     = voice.MaxVoices
)

func DefaultTimbre(kind WaveformKind) Timbre { return waveform.DefaultParams(kind) }

func ParseWaveform(name string) (WaveformKind, error) { return waveform.ParseKind(name) }

type NoteKind uint8

const (
	NoteOn NoteKind = iota
	NoteOff
)

func (k NoteKind) String() string {
	if k == NoteOn {
		return "note-on"
	}
	return "note-off"
}

// NoteEvent is a decoded note message positioned at a frame offset inside the
// buffer passed to Render.
type NoteEvent struct {
	Kind     NoteKind
	Note     uint8   // 0..127
	Velocity float32 // 0..1, stored on the voice but not applied to amplitude
	Offset   int
}

func On(note uint8, velocity float32, offset int) NoteEvent {
	return NoteEvent{Kind: NoteOn, Note: note, Velocity: velocity, Offset: offset}
}

func Off(note uint8, offset int) NoteEvent {
	return NoteEvent{Kind: NoteOff, Note: note, Offset: offset}
}

type Option func(*config)

type config struct {
	voices     int
	timbre     Timbre
	masterGain float64
	effects    []Effect
}

func defaultConfig() config {
	return config{
		voices:     voice.DefaultVoices,
		timbre:     waveform.DefaultParams(waveform.Sine),
		masterGain: 1,
	}
}

// WithVoices sets the pool capacity (1..MaxVoices).
func WithVoices(n int) Option {
	return func(cfg *config) {
		cfg.voices = n
	}
}

func WithTimbre(t Timbre) Option {
	return func(cfg *config) {
		cfg.timbre = t
	}
}

// WithMasterGain scales the mixed output after the per-voice averaging.
func WithMasterGain(gain float64) Option {
	return func(cfg *config) {
		cfg.masterGain = gain
	}
}

// Effect post-processes the mixed output in place. It runs on the render
// thread and must not block or allocate.
type Effect interface {
	Process(buf []float32)
	Reset()
}

// WithEffects appends effects run, in order, after the master gain.
func WithEffects(fx ...Effect) Option {
	return func(cfg *config) {
		for _, e := range fx {
			if e != nil {
				cfg.effects = append(cfg.effects, e)
			}
		}
	}
}

// selection is one published timbre/capacity choice. Render compares the
// latest published selection with the one it last applied and rebuilds the
// pool only when they differ.
type selection struct {
	timbre Timbre
	voices int
	gen    *waveform.Generator
}

// Synth is the render-side entry point: it owns the voice pool and turns note
// events into mixed mono samples.
//
// Render, Reset and SetSampleRate belong to the audio thread. SetTimbre,
// SetVoices and SetMasterGain may be called from any goroutine; they publish
// atomically and take effect at the start of the next Render.
type Synth struct {
	sampleRate float64
	pool       *voice.Pool
	current    *selection
	pending    atomic.Pointer[selection]
	masterGain uint64
	effects    []Effect
	dropped    atomic.Uint64
	active     atomic.Int32
}

func New(sampleRate int, opts ...Option) (*Synth, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	gen, err := waveform.New(cfg.timbre)
	if err != nil {
		return nil, err
	}
	pool, err := voice.NewPool(gen, voice.Params{Voices: cfg.voices})
	if err != nil {
		return nil, err
	}
	sel := &selection{timbre: cfg.timbre, voices: cfg.voices, gen: gen}
	s := &Synth{
		sampleRate: float64(sampleRate),
		pool:       pool,
		current:    sel,
		effects:    cfg.effects,
	}
	s.pending.Store(sel)
	s.SetMasterGain(cfg.masterGain)
	return s, nil
}

func (s *Synth) SampleRate() int { return int(s.sampleRate) }

// SetSampleRate changes the rate used for phase increments. Call it between
// buffers only. Sounding notes at or above the new Nyquist limit are stopped
// and counted as dropped.
func (s *Synth) SetSampleRate(sampleRate int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	s.sampleRate = float64(sampleRate)
	if n := s.pool.ReleaseAtOrAbove(tuning.Nyquist(s.sampleRate)); n > 0 {
		s.dropped.Add(uint64(n))
		s.active.Store(int32(s.pool.ActiveCount()))
	}
	return nil
}

// SetTimbre validates t and schedules it for the next buffer. Switching timbre
// rebuilds the pool, which silences every sounding note.
func (s *Synth) SetTimbre(t Timbre) error {
	gen, err := waveform.New(t)
	if err != nil {
		return err
	}
	s.publish(func(sel *selection) {
		sel.timbre = t
		sel.gen = gen
	})
	return nil
}

// SetVoices validates n and schedules a pool of that capacity for the next
// buffer. Like a timbre change it silences every sounding note.
func (s *Synth) SetVoices(n int) error {
	if err := (voice.Params{Voices: n}).Validate(); err != nil {
		return err
	}
	s.publish(func(sel *selection) {
		sel.voices = n
	})
	return nil
}

func (s *Synth) publish(edit func(*selection)) {
	for {
		old := s.pending.Load()
		next := *old
		edit(&next)
		if s.pending.CompareAndSwap(old, &next) {
			return
		}
	}
}

func (s *Synth) Timbre() Timbre { return s.pending.Load().timbre }
func (s *Synth) Voices() int { return s.pending.Load().voices }

func (s *Synth) SetMasterGain(gain float64) {
	if gain < 0 || math.IsNaN(gain) {
		gain = 0
	}
	atomic.StoreUint64(&s.masterGain, math.Float64bits(gain))
}

func (s *Synth) MasterGain() float64 {
	return math.Float64frombits(atomic.LoadUint64(&s.masterGain))
}

// ActiveVoices returns the number of sounding voices after the last Render.
func (s *Synth) ActiveVoices() int { return int(s.active.Load()) }

// DroppedNotes counts note-ons discarded because the pool was full or the
// pitch was at or above the Nyquist limit.
func (s *Synth) DroppedNotes() uint64 { return s.dropped.Load() }

// Reset silences every voice, zeroes every phase and clears effect tails.
// The pool and generator are kept.
func (s *Synth) Reset() {
	s.pool.Reset()
	for _, fx := range s.effects {
		fx.Reset()
	}
	s.active.Store(0)
}

// Render fills out[:frames] with mixed samples. Events must be ordered by
// non-decreasing Offset; each is applied before the sample at its offset.
// Offsets at or past frames are applied after the last sample.
func (s *Synth) Render(out []float32, frames int, events []NoteEvent) {
	if frames > len(out) {
		frames = len(out)
	}
	if frames < 0 {
		frames = 0
	}
	out = out[:frames]
	s.applySelection()

	pos := 0
	for _, ev := range events {
		at := ev.Offset
		if at < pos {
			at = pos
		}
		if at > frames {
			at = frames
		}
		if at > pos {
			s.pool.Mix(out[pos:at], s.sampleRate)
			pos = at
		}
		s.apply(ev)
	}
	if pos < frames {
		s.pool.Mix(out[pos:], s.sampleRate)
	}

	if gain := s.MasterGain(); gain != 1 {
		g := float32(gain)
		for i := range out {
			out[i] *= g
		}
	}
	for _, fx := range s.effects {
		fx.Process(out)
	}
	s.active.Store(int32(s.pool.ActiveCount()))
}

func (s *Synth) applySelection() {
	sel := s.pending.Load()
	if sel == s.current {
		return
	}
	if sel.timbre != s.current.timbre || sel.voices != s.current.voices {
		s.pool.Retune(sel.gen)
		if sel.voices != s.pool.Capacity() {
			// validated by SetVoices
			_ = s.pool.Resize(voice.Params{Voices: sel.voices})
		}
	}
	s.current = sel
}

func (s *Synth) apply(ev NoteEvent) {
	note := int(ev.Note)
	switch ev.Kind {
	case NoteOn:
		if tuning.MidiToFreq(note) >= tuning.Nyquist(s.sampleRate) ||
			!s.pool.Allocate(note, float64(ev.Velocity)) {
			s.dropped.Add(1)
		}
	case NoteOff:
		s.pool.Release(note)
	}
}
