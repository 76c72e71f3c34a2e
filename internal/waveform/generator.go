// Package waveform maps an oscillator phase to a sample for each supported timbre.
//
// A Generator is immutable once built and is shared by every voice of a pool.
// Generate and Next never allocate; the jittered and noise variants draw from
// the math/rand/v2 top-level source, which is per-thread and lock-free.
package waveform

import (
	"math"
	"math/rand/v2"

	"github.com/cbegin/varsynth-go/internal/tuning"
)

const twoPi = tuning.TwoPi

// vintageEpsilon keeps the vintage shaper's derived parameters finite near phase 0.
const vintageEpsilon = 0.01

type Generator struct {
	p Params
}

// New validates p and returns a generator for it.
func New(p Params) (*Generator, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Generator{p: p}, nil
}

// MustNew is New for parameters known to be valid, such as DefaultParams.
func MustNew(p Params) *Generator {
	g, err := New(p)
	if err != nil {
		panic(err)
	}
	return g
}

func (g *Generator) Params() Params { return g.p }
func (g *Generator) Kind() Kind { return g.p.Kind }

// Stateful reports whether Next depends on per-voice State.
func (g *Generator) Stateful() bool {
	return g.p.Kind == SampleHold
}

// Deterministic reports whether Generate is a pure function of phase.
func (g *Generator) Deterministic() bool {
	switch g.p.Kind {
	case Noise, SampleHold:
		return false
	case AnalogSaw, BandLimitedSaw, BandLimitedSquare:
		return g.p.Jitter == 0
	default:
		return true
	}
}

// Generate returns the sample at phase (radians). Stateless callers of the
// stateful SampleHold kind get a fresh draw, like Noise.
func (g *Generator) Generate(phase float64) float64 {
	switch g.p.Kind {
	case Sine:
		return math.Sin(phase)
	case Saw:
		return 2*frac(phase/twoPi) - 1
	case Square:
		if phase < math.Pi {
			return 1
		}
		return -1
	case AnalogSaw:
		return g.analogSaw(phase)
	case AnalogSquare:
		return g.analogSquare(phase)
	case BandLimitedSaw:
		x := bandLimitedSaw(g.jitter(phase), g.p.Harmonics)
		return (x + g.p.DCOffset) / (1 + math.Abs(g.p.DCOffset))
	case BandLimitedSquare:
		return bandLimitedSquare(g.jitter(phase), g.p.Harmonics)
	case VintageSaw:
		return vintageSaw(phase)
	case Noise, SampleHold:
		return bipolarRand()
	default:
		return 0
	}
}

// State is the per-voice memory of a stateful generator. The zero value is a
// freshly reset state.
type State struct {
	held      float64
	countdown int
}

func (s *State) Reset() {
	*s = State{}
}

// Next is Generate with the caller's State threaded through. Voices always
// call Next so that stateful and stateless kinds share one code path.
func (g *Generator) Next(phase, sampleRate float64, st *State) float64 {
	if g.p.Kind != SampleHold || st == nil {
		return g.Generate(phase)
	}
	if st.countdown <= 0 {
		st.held = bipolarRand()
		st.countdown = holdPeriod(sampleRate, g.p.HoldRateHz)
	}
	st.countdown--
	return st.held
}

func holdPeriod(sampleRate, rateHz float64) int {
	n := int(sampleRate / rateHz)
	if n < 1 {
		return 1
	}
	return n
}

func (g *Generator) analogSaw(phase float64) float64 {
	u := phase / twoPi
	if g.p.Jitter != 0 {
		u += (rand.Float64() - 0.5) * g.p.Jitter
	}
	a := g.p.Asymmetry
	var x float64
	if u < a {
		x = u / a
	} else {
		x = (u-a)/(1-a) - 1
	}
	if x >= 0 {
		x = math.Pow(x, g.p.Sharpness)
	} else {
		x = -math.Pow(-x, g.p.Sharpness)
	}
	return clamp(x, -1, 1)
}

func (g *Generator) analogSquare(phase float64) float64 {
	u := frac(phase / twoPi)
	t := g.p.TransitionWidth
	h := t / 2
	switch {
	case u < 0.5-h:
		return 1
	case u < 0.5+h:
		return 1 - (u-(0.5-h))/t*2
	case u < 1-h:
		return -1
	default:
		return -1 + (u-(1-h))/t*2
	}
}

func (g *Generator) jitter(phase float64) float64 {
	if g.p.Jitter != 0 {
		phase += (rand.Float64() - 0.5) * g.p.Jitter * twoPi
	}
	return tuning.WrapPhase(phase)
}

// bandLimitedSaw sums the first n terms of the sawtooth Fourier series,
// stepping sin(kφ) with the Chebyshev recurrence instead of calling math.Sin
// per harmonic.
func bandLimitedSaw(phi float64, n int) float64 {
	c := 2 * math.Cos(phi)
	prev, cur := 0.0, math.Sin(phi)
	var sum float64
	sign := 1.0
	for k := 1; k <= n; k++ {
		sum += sign * cur / float64(k)
		sign = -sign
		prev, cur = cur, c*cur-prev
	}
	return sum * 2 / math.Pi
}

// bandLimitedSquare sums the first n odd harmonics of the square series.
func bandLimitedSquare(phi float64, n int) float64 {
	c := 2 * math.Cos(2*phi)
	s := math.Sin(phi)
	prev, cur := -s, s
	var sum float64
	for k := 1; k <= n; k++ {
		sum += cur / float64(2*k-1)
		prev, cur = cur, c*cur-prev
	}
	return sum * 4 / math.Pi
}

// vintageSaw derives its decay constants from the phase itself, so b*T is
// fixed at 5 once phase clears vintageEpsilon.
func vintageSaw(phase float64) float64 {
	p := tuning.WrapPhase(phase)
	q := math.Max(p, vintageEpsilon)
	t := 1 / q
	b := 5 * q
	a := -2 / (math.Exp(-b*t) - 1)
	return a*math.Exp(-b*p) + (1 - a)
}

func bipolarRand() float64 {
	return rand.Float64()*2 - 1
}

func frac(x float64) float64 {
	return x - math.Floor(x)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
