// Package effects is the output bus applied after the voice mix: mono,
// block-based, and allocation-free once constructed.
package effects

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

var ErrUnknownEffect = errors.New("effects: unknown effect")

// Effect processes a mono buffer in place.
type Effect interface {
	Process(buf []float32)
	Reset()
}

// Chain applies effects in order.
type Chain []Effect

func (c Chain) Process(buf []float32) {
	for _, e := range c {
		e.Process(buf)
	}
}

func (c Chain) Reset() {
	for _, e := range c {
		e.Reset()
	}
}

// Parse builds a chain from a comma-separated list such as
// "drive:3,delay:250:0.4:0.3,reverb". Each entry is a name followed by
// optional colon-separated positional arguments; missing arguments take the
// defaults listed in Names.
func Parse(list string, sampleRate int) (Chain, error) {
	var chain Chain
	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.Split(item, ":")
		name := strings.ToLower(parts[0])
		args := make([]float64, 0, len(parts)-1)
		for _, p := range parts[1:] {
			v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return nil, fmt.Errorf("effects: %s argument %q: %w", name, p, err)
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("effects: %s argument %q is not finite", name, p)
			}
			args = append(args, v)
		}
		ctor, ok := constructors[name]
		if !ok {
			return nil, fmt.Errorf("%w %q (have %s)", ErrUnknownEffect, name, strings.Join(Names(), ", "))
		}
		if len(args) > len(ctor.defaults) {
			return nil, fmt.Errorf("effects: %s takes at most %d arguments", name, len(ctor.defaults))
		}
		full := append([]float64(nil), ctor.defaults...)
		copy(full, args)
		chain = append(chain, ctor.build(sampleRate, full))
	}
	return chain, nil
}

type constructor struct {
	usage    string
	defaults []float64
	build    func(sampleRate int, a []float64) Effect
}

var constructors = map[string]constructor{
	"drive": {"drive:gain:level:cutoffHz", []float64{3, 0.6, 0}, func(sr int, a []float64) Effect {
		return NewDrive(sr, a[0], a[1], a[2])
	}},
	"delay": {"delay:ms:feedback:wet", []float64{250, 0.4, 0.3}, func(sr int, a []float64) Effect {
		return NewDelay(sr, a[0], a[1], a[2])
	}},
	"reverb": {"reverb:room:feedback:wet", []float64{0.5, 0.7, 0.25}, func(sr int, a []float64) Effect {
		return NewReverb(sr, a[0], a[1], a[2])
	}},
	"comp": {"comp:thresholdDB:ratio:attackMs:releaseMs:makeupDB", []float64{-12, 4, 5, 80, 0}, func(sr int, a []float64) Effect {
		return NewCompressor(sr, a[0], a[1], a[2], a[3], a[4])
	}},
	"tone": {"tone:low:mid:high:lowHz:highHz", []float64{1, 1, 1, 300, 3000}, func(sr int, a []float64) Effect {
		return NewTone(sr, a[0], a[1], a[2], a[3], a[4])
	}},
	"chorus": {"chorus:ms:depthMs:rateHz:wet", []float64{15, 3, 0.8, 0.4}, func(sr int, a []float64) Effect {
		return NewChorus(sr, a[0], a[1], a[2], a[3])
	}},
	"tremolo": {"tremolo:rateHz:depth", []float64{5, 0.5}, func(sr int, a []float64) Effect {
		return NewTremolo(sr, a[0], a[1])
	}},
}

// Names lists the usage string of every effect Parse understands.
func Names() []string {
	out := make([]string, 0, len(constructors))
	for _, c := range constructors {
		out = append(out, c.usage)
	}
	sort.Strings(out)
	return out
}

func clamp(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}

// onePole returns the smoothing coefficient of a one-pole lowpass at
// cutoffHz, or 0 when the cutoff is outside (0, Nyquist).
func onePole(sampleRate int, cutoffHz float64) float32 {
	if cutoffHz <= 0 || cutoffHz >= float64(sampleRate)/2 {
		return 0
	}
	rc := 1 / (2 * math.Pi * cutoffHz)
	dt := 1 / float64(sampleRate)
	return float32(dt / (rc + dt))
}

// maxDelayMs bounds every delay line so a typo on the command line cannot
// allocate gigabytes.
const maxDelayMs = 5000

// ringLen converts milliseconds, clamped to [0, maxDelayMs], to a buffer
// length of at least one sample.
func ringLen(sampleRate int, ms float64) int {
	return max(int(clamp(ms, 0, maxDelayMs)*float64(sampleRate)/1000), 1)
}
