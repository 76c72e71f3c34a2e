package waveform

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidParams is wrapped by every construction-time parameter error.
var ErrInvalidParams = errors.New("waveform: invalid params")

// MaxHarmonics bounds the additive variants so a single Generate call stays
// within a predictable per-sample cost.
const MaxHarmonics = 512

// Params describes a timbre. Only the fields relevant to Kind are read; the
// rest are ignored. Params is comparable so callers can detect a changed
// selection with ==.
type Params struct {
	Kind Kind

	// AnalogSaw
	Sharpness float64 // power-law exponent applied to each ramp
	Asymmetry float64 // split point of the two ramps, strictly inside (0, 1)

	// AnalogSaw, BandLimitedSaw, BandLimitedSquare
	Jitter float64 // phase noise amount; 0 makes the variant deterministic

	// AnalogSquare
	TransitionWidth float64 // fraction of a cycle spent on each edge, in (0, 1]

	// BandLimitedSaw, BandLimitedSquare
	Harmonics int
	DCOffset  float64 // BandLimitedSaw only

	// SampleHold
	HoldRateHz float64 // how often the held value is redrawn
}

// DefaultParams returns sensible defaults for kind.
func DefaultParams(kind Kind) Params {
	p := Params{Kind: kind}
	switch kind {
	case AnalogSaw:
		p.Sharpness = 1.5
		p.Asymmetry = 0.5
		p.Jitter = 0.01
	case AnalogSquare:
		p.TransitionWidth = 0.05
	case BandLimitedSaw:
		p.Harmonics = 16
	case BandLimitedSquare:
		p.Harmonics = 16
	case SampleHold:
		p.HoldRateHz = 30
	}
	return p
}

// Validate reports the first construction precondition p violates.
func (p Params) Validate() error {
	switch p.Kind {
	case Sine, Saw, Square, VintageSaw, Noise:
		return nil
	case AnalogSaw:
		if !(p.Asymmetry > 0 && p.Asymmetry < 1) {
			return invalid("analog-saw asymmetry %v must be strictly between 0 and 1", p.Asymmetry)
		}
		if !(p.Sharpness > 0) || math.IsInf(p.Sharpness, 0) {
			return invalid("analog-saw sharpness %v must be positive and finite", p.Sharpness)
		}
		return validJitter(p.Jitter)
	case AnalogSquare:
		if !(p.TransitionWidth > 0 && p.TransitionWidth <= 1) {
			return invalid("analog-square transition width %v must be in (0, 1]", p.TransitionWidth)
		}
		return nil
	case BandLimitedSaw:
		if err := validHarmonics(p.Harmonics); err != nil {
			return err
		}
		if math.IsNaN(p.DCOffset) || math.IsInf(p.DCOffset, 0) {
			return invalid("bl-saw dc offset %v must be finite", p.DCOffset)
		}
		return validJitter(p.Jitter)
	case BandLimitedSquare:
		if err := validHarmonics(p.Harmonics); err != nil {
			return err
		}
		return validJitter(p.Jitter)
	case SampleHold:
		if !(p.HoldRateHz > 0) || math.IsInf(p.HoldRateHz, 0) {
			return invalid("sample-hold rate %v must be positive and finite", p.HoldRateHz)
		}
		return nil
	default:
		return invalid("unknown kind %v", p.Kind)
	}
}

func validHarmonics(n int) error {
	if n < 1 || n > MaxHarmonics {
		return invalid("harmonics %d must be in 1..%d", n, MaxHarmonics)
	}
	return nil
}

func validJitter(j float64) error {
	if !(j >= 0) || math.IsInf(j, 0) {
		return invalid("jitter %v must be non-negative and finite", j)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidParams, fmt.Sprintf(format, args...))
}
