package effects

import (
	"math"

	"github.com/cbegin/varsynth-go/internal/lfo"
)

// Drive is tanh saturation with an optional one-pole lowpass after it.
// Output is bounded by level.
type Drive struct {
	gain  float32
	level float32
	alpha float32
	lp    float32
}

func NewDrive(sampleRate int, gain, level, cutoffHz float64) *Drive {
	return &Drive{
		gain:  float32(math.Max(gain, 0)),
		level: float32(clamp(level, 0, 1)),
		alpha: onePole(sampleRate, cutoffHz),
	}
}

func (d *Drive) Process(buf []float32) {
	for i, x := range buf {
		y := float32(math.Tanh(float64(x*d.gain))) * d.level
		if d.alpha > 0 {
			d.lp += d.alpha * (y - d.lp)
			y = d.lp
		}
		buf[i] = y
	}
}

func (d *Drive) Reset() { d.lp = 0 }

// Compressor is a peak-envelope downward compressor.
type Compressor struct {
	threshold float64
	slope     float64 // 1/ratio - 1
	attack    float64
	release   float64
	makeup    float32
	env       float64
}

func NewCompressor(sampleRate int, thresholdDB, ratio, attackMs, releaseMs, makeupDB float64) *Compressor {
	coeff := func(ms float64) float64 {
		return 1 - math.Exp(-1/(math.Max(ms, 0.01)*float64(sampleRate)/1000))
	}
	return &Compressor{
		threshold: math.Pow(10, thresholdDB/20),
		slope:     1/math.Max(ratio, 1) - 1,
		attack:    coeff(attackMs),
		release:   coeff(releaseMs),
		makeup:    float32(math.Pow(10, makeupDB/20)),
	}
}

func (c *Compressor) Process(buf []float32) {
	for i, x := range buf {
		level := math.Abs(float64(x))
		if level > c.env {
			c.env += c.attack * (level - c.env)
		} else {
			c.env += c.release * (level - c.env)
		}
		gain := float32(1)
		if c.env > c.threshold {
			gain = float32(math.Pow(c.env/c.threshold, c.slope))
		}
		buf[i] = x * gain * c.makeup
	}
}

func (c *Compressor) Reset() { c.env = 0 }

// Tremolo modulates amplitude with a triangle LFO; depth 1 reaches silence
// at the bottom of each cycle.
type Tremolo struct {
	sampleRate float64
	mod        *lfo.LFO
}

func NewTremolo(sampleRate int, rateHz, depth float64) *Tremolo {
	return &Tremolo{
		sampleRate: float64(sampleRate),
		mod:        lfo.New(lfo.Triangle, rateHz, clamp(depth, 0, 1)),
	}
}

func (t *Tremolo) Process(buf []float32) {
	for i, x := range buf {
		buf[i] = x * float32(1-t.mod.Unipolar(t.sampleRate))
	}
}

func (t *Tremolo) Reset() { t.mod.Reset() }

// Tone is a three-band equaliser built from two one-pole splits.
type Tone struct {
	low, mid, high float32
	lowAlpha       float32
	highAlpha      float32
	lowState       float32
	highState      float32
}

func NewTone(sampleRate int, low, mid, high, lowHz, highHz float64) *Tone {
	return &Tone{
		low:       float32(low),
		mid:       float32(mid),
		high:      float32(high),
		lowAlpha:  onePole(sampleRate, lowHz),
		highAlpha: onePole(sampleRate, highHz),
	}
}

func (t *Tone) Process(buf []float32) {
	for i, x := range buf {
		t.lowState += t.lowAlpha * (x - t.lowState)
		t.highState += t.highAlpha * (x - t.highState)
		lo := t.lowState
		hi := x - t.highState
		buf[i] = lo*t.low + (x-lo-hi)*t.mid + hi*t.high
	}
}

func (t *Tone) Reset() {
	t.lowState = 0
	t.highState = 0
}
