// Package lfo provides the low-frequency modulators behind the output
// effects (chorus sweep, tremolo).
package lfo

import (
	"fmt"
	"math"
	"strings"
)

type Shape int

const (
	Triangle Shape = iota
	Sine
	Square
	Saw
)

var shapeNames = [...]string{"triangle", "sine", "square", "saw"}

func (s Shape) String() string {
	if s < 0 || int(s) >= len(shapeNames) {
		return fmt.Sprintf("Shape(%d)", int(s))
	}
	return shapeNames[s]
}

func ParseShape(name string) (Shape, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range shapeNames {
		if n == name {
			return Shape(i), nil
		}
	}
	return Triangle, fmt.Errorf("unknown lfo shape %q", name)
}

// LFO is a unipolar-or-bipolar control oscillator. The phase is kept in
// cycles, [0, 1).
type LFO struct {
	shape  Shape
	rateHz float64
	depth  float64
	phase  float64
}

func New(shape Shape, rateHz, depth float64) *LFO {
	l := &LFO{}
	l.Set(shape, rateHz, depth)
	return l
}

// Set changes the modulation without resetting the phase. Unknown shapes
// fall back to Triangle.
func (l *LFO) Set(shape Shape, rateHz, depth float64) {
	if shape < Triangle || shape > Saw {
		shape = Triangle
	}
	l.shape = shape
	l.rateHz = math.Max(rateHz, 0)
	l.depth = depth
}

// Active reports whether Next can return anything but zero.
func (l *LFO) Active() bool { return l.depth != 0 && l.rateHz != 0 }

// Next returns the current value in [-depth, depth] and advances one sample.
func (l *LFO) Next(sampleRate float64) float64 {
	if !l.Active() || sampleRate <= 0 {
		return 0
	}
	v := l.value()
	l.phase += l.rateHz / sampleRate
	l.phase -= math.Floor(l.phase)
	return v * l.depth
}

// Unipolar is Next mapped to [0, depth].
func (l *LFO) Unipolar(sampleRate float64) float64 {
	return (l.Next(sampleRate) + l.depth) * 0.5
}

func (l *LFO) value() float64 {
	p := l.phase
	switch l.shape {
	case Sine:
		return math.Sin(2 * math.Pi * p)
	case Square:
		if p < 0.5 {
			return 1
		}
		return -1
	case Saw:
		return 2*p - 1
	default:
		if p < 0.5 {
			return 4*p - 1
		}
		return 3 - 4*p
	}
}

func (l *LFO) Reset() { l.phase = 0 }
