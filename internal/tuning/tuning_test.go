package tuning

import (
	"math"
	"testing"
)

func TestMidiToFreqReference(t *testing.T) {
	if got := MidiToFreq(69); got != 440.0 {
		t.Fatalf("MidiToFreq(69) = %v, want exactly 440", got)
	}
	if got := MidiToFreq(81); math.Abs(got-880.0) > 1e-9 {
		t.Fatalf("MidiToFreq(81) = %v, want 880", got)
	}
	if got := MidiToFreq(57); math.Abs(got-220.0) > 1e-9 {
		t.Fatalf("MidiToFreq(57) = %v, want 220", got)
	}
}

func TestMidiToFreqMonotonic(t *testing.T) {
	prev := MidiToFreq(0)
	for n := 1; n <= 127; n++ {
		f := MidiToFreq(n)
		if f <= prev {
			t.Fatalf("MidiToFreq(%d) = %v not above MidiToFreq(%d) = %v", n, f, n-1, prev)
		}
		prev = f
	}
}

func TestPhaseIncrement(t *testing.T) {
	got := PhaseIncrement(12000, 48000)
	if math.Abs(got-math.Pi/2) > 1e-12 {
		t.Fatalf("PhaseIncrement(12000, 48000) = %v, want π/2", got)
	}
	if Nyquist(48000) != 24000 {
		t.Fatalf("Nyquist(48000) = %v", Nyquist(48000))
	}
}

func TestWrapPhase(t *testing.T) {
	for _, tc := range []struct {
		in, want float64
	}{
		{0, 0},
		{math.Pi, math.Pi},
		{TwoPi, 0},
		{TwoPi + 1, 1},
		{-1, TwoPi - 1},
		{-TwoPi, 0},
		{5 * TwoPi + 0.5, 0.5},
	} {
		got := WrapPhase(tc.in)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("WrapPhase(%v) = %v, want %v", tc.in, got, tc.want)
		}
		if got < 0 || got >= TwoPi {
			t.Errorf("WrapPhase(%v) = %v out of [0, 2π)", tc.in, got)
		}
	}
}
