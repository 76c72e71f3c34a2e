package spectrum

import (
	"math"
	"testing"

	"github.com/cbegin/varsynth-go/internal/waveform"
)

const (
	sr    = 48000.0
	n     = 4096
	bin0  = 32
	fund  = bin0 * sr / n // 375 Hz
	quiet = 1e-9
)

// render samples a generator at an exact-bin frequency so every harmonic
// lands on a bin without leakage.
func render(t *testing.T, p waveform.Params) []float32 {
	t.Helper()
	g, err := waveform.New(p)
	if err != nil {
		t.Fatal(err)
	}
	out := make([]float32, n)
	for i := range out {
		phase := math.Mod(2*math.Pi*bin0*float64(i)/n, 2*math.Pi)
		out[i] = float32(g.Generate(phase))
	}
	return out
}

func TestSineHasSinglePeak(t *testing.T) {
	s := Analyze(render(t, waveform.DefaultParams(waveform.Sine)), sr, Rectangular)
	if f := s.Fundamental(); f != fund {
		t.Fatalf("fundamental = %v, want %v", f, fund)
	}
	if m := s.Magnitude[bin0]; math.Abs(m-1) > 1e-3 {
		t.Fatalf("sine magnitude = %v, want 1", m)
	}
	peaks := s.Peaks(4, 1e-3)
	if len(peaks) != 1 || peaks[0].Freq != fund {
		t.Fatalf("peaks = %+v", peaks)
	}
}

func TestBandLimitedSawStopsAtHarmonicCount(t *testing.T) {
	const harmonics = 5
	s := Analyze(render(t, waveform.Params{Kind: waveform.BandLimitedSaw, Harmonics: harmonics}), sr, Rectangular)
	for h := 1; h <= harmonics; h++ {
		want := 2 / (math.Pi * float64(h))
		if got := s.Magnitude[h*bin0]; math.Abs(got-want) > 1e-3 {
			t.Errorf("harmonic %d magnitude = %v, want %v", h, got, want)
		}
	}
	if e := s.BandEnergy(fund*(harmonics+0.5), sr/2); e > quiet {
		t.Fatalf("energy above harmonic %d = %v", harmonics, e)
	}

	naive := Analyze(render(t, waveform.DefaultParams(waveform.Saw)), sr, Rectangular)
	if e := naive.BandEnergy(fund*(harmonics+0.5), sr/2); e < 0.01 {
		t.Fatalf("naive saw should carry energy above harmonic %d, got %v", harmonics, e)
	}
}

func TestBandLimitedSquareHasOnlyOddHarmonics(t *testing.T) {
	s := Analyze(render(t, waveform.Params{Kind: waveform.BandLimitedSquare, Harmonics: 4}), sr, Rectangular)
	for _, h := range []int{1, 3, 5, 7} {
		want := 4 / (math.Pi * float64(h))
		if got := s.Magnitude[h*bin0]; math.Abs(got-want) > 1e-3 {
			t.Errorf("odd harmonic %d = %v, want %v", h, got, want)
		}
	}
	for _, h := range []int{2, 4, 6, 9, 11} {
		if got := s.Magnitude[h*bin0]; got > 1e-6 {
			t.Errorf("harmonic %d should be absent, got %v", h, got)
		}
	}
}

func TestHannWindowKeepsPeakLevel(t *testing.T) {
	s := Analyze(render(t, waveform.DefaultParams(waveform.Sine)), sr, Hann)
	if m := s.Magnitude[bin0]; math.Abs(m-1) > 1e-3 {
		t.Fatalf("hann-windowed sine magnitude = %v, want 1", m)
	}
	if s.Bin(fund) != bin0 || s.BinFreq(bin0) != fund {
		t.Fatalf("bin mapping broken")
	}
}

func TestAnalyzeEmpty(t *testing.T) {
	s := Analyze(nil, sr, Rectangular)
	if s.Fundamental() != 0 || s.BandEnergy(0, sr/2) != 0 || len(s.Peaks(3, 0)) != 0 {
		t.Fatalf("empty spectrum should be inert")
	}
}
