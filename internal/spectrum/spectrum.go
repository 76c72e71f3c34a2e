// Package spectrum computes magnitude spectra of rendered audio so timbres can
// be inspected from the command line and checked in tests.
package spectrum

import (
	"math"
	"math/cmplx"
	"sort"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
)

type Window int

const (
	Rectangular Window = iota
	Hann
)

// Spectrum holds one-sided magnitudes normalised so a full-scale sine at an
// exact bin frequency reads 1.
type Spectrum struct {
	SampleRate float64
	N          int
	Magnitude  []float64
}

type Peak struct {
	Freq      float64
	Magnitude float64
}

// Analyze transforms samples (mono) with the given window.
func Analyze(samples []float32, sampleRate float64, win Window) Spectrum {
	n := len(samples)
	if n == 0 {
		return Spectrum{SampleRate: sampleRate}
	}
	seq := make([]float64, n)
	for i, s := range samples {
		seq[i] = float64(s)
	}
	coherentGain := 1.0
	if win == Hann {
		w := make([]float64, n)
		for i := range w {
			w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
		}
		floats.Mul(seq, w)
		coherentGain = floats.Sum(w) / float64(n)
	}
	fft := fourier.NewFFT(n)
	coeff := fft.Coefficients(nil, seq)
	mag := make([]float64, len(coeff))
	for i, c := range coeff {
		mag[i] = cmplx.Abs(c) * 2 / float64(n) / coherentGain
	}
	mag[0] /= 2
	if n%2 == 0 {
		mag[len(mag)-1] /= 2
	}
	return Spectrum{SampleRate: sampleRate, N: n, Magnitude: mag}
}

// BinFreq returns the centre frequency of bin k in Hz.
func (s Spectrum) BinFreq(k int) float64 {
	return float64(k) * s.SampleRate / float64(s.N)
}

// Bin returns the bin nearest to freq.
func (s Spectrum) Bin(freq float64) int {
	k := int(math.Round(freq * float64(s.N) / s.SampleRate))
	if k < 0 {
		return 0
	}
	if k >= len(s.Magnitude) {
		return len(s.Magnitude) - 1
	}
	return k
}

// BandEnergy sums squared magnitudes of the bins in [lo, hi] Hz.
func (s Spectrum) BandEnergy(lo, hi float64) float64 {
	if len(s.Magnitude) == 0 || hi < lo {
		return 0
	}
	a, b := s.Bin(lo), s.Bin(hi)
	band := s.Magnitude[a : b+1]
	return floats.Dot(band, band)
}

// Peaks returns up to n local maxima above floor, loudest first.
func (s Spectrum) Peaks(n int, floor float64) []Peak {
	var out []Peak
	m := s.Magnitude
	for k := 1; k+1 < len(m); k++ {
		if m[k] > floor && m[k] >= m[k-1] && m[k] > m[k+1] {
			out = append(out, Peak{Freq: s.BinFreq(k), Magnitude: m[k]})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Magnitude > out[j].Magnitude })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// Fundamental returns the frequency of the strongest non-DC bin.
func (s Spectrum) Fundamental() float64 {
	if len(s.Magnitude) < 2 {
		return 0
	}
	return s.BinFreq(1 + floats.MaxIdx(s.Magnitude[1:]))
}
