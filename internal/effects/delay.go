package effects

import (
	"math"

	"github.com/cbegin/varsynth-go/internal/lfo"
)

// ring is a circular sample buffer shared by the delay-line effects.
type ring struct {
	buf []float32
	pos int
}

func newRing(n int) ring { return ring{buf: make([]float32, n)} }

// tap reads the sample written d samples ago; d may be fractional.
func (r *ring) tap(d float64) float32 {
	n := len(r.buf)
	at := float64(r.pos) - d
	for at < 0 {
		at += float64(n)
	}
	i := int(at) % n
	frac := float32(at - math.Floor(at))
	return r.buf[i]*(1-frac) + r.buf[(i+1)%n]*frac
}

func (r *ring) push(v float32) {
	r.buf[r.pos] = v
	r.pos++
	if r.pos == len(r.buf) {
		r.pos = 0
	}
}

func (r *ring) clear() {
	clear(r.buf)
	r.pos = 0
}

// Delay is a feedback echo.
type Delay struct {
	line     ring
	feedback float32
	wet      float32
}

// NewDelay echoes after ms milliseconds; feedback is capped at 0.95.
func NewDelay(sampleRate int, ms, feedback, wet float64) *Delay {
	return &Delay{
		line:     newRing(ringLen(sampleRate, ms)),
		feedback: float32(clamp(feedback, 0, 0.95)),
		wet:      float32(clamp(wet, 0, 1)),
	}
}

func (d *Delay) Process(buf []float32) {
	for i, x := range buf {
		echo := d.line.buf[d.line.pos]
		d.line.push(x + echo*d.feedback)
		buf[i] = x*(1-d.wet) + echo*d.wet
	}
}

func (d *Delay) Reset() { d.line.clear() }

// Chorus mixes in a copy of the signal through a delay swept by a sine LFO.
type Chorus struct {
	line       ring
	sampleRate float64
	base       float64 // samples
	sweep      *lfo.LFO
	wet        float32
}

// NewChorus sweeps the delay around ms by up to depthMs. Negative times are
// treated as zero and the sweep never reaches past the base delay.
func NewChorus(sampleRate int, ms, depthMs, rateHz, wet float64) *Chorus {
	base := clamp(ms, 0, maxDelayMs) * float64(sampleRate) / 1000
	depth := clamp(math.Abs(depthMs)*float64(sampleRate)/1000, 0, base)
	return &Chorus{
		line:       newRing(int(base+depth) + 2),
		sampleRate: float64(sampleRate),
		base:       base,
		sweep:      lfo.New(lfo.Sine, rateHz, depth),
		wet:        float32(clamp(wet, 0, 1)),
	}
}

func (c *Chorus) Process(buf []float32) {
	for i, x := range buf {
		c.line.push(x)
		d := max(c.base+c.sweep.Next(c.sampleRate), 1)
		buf[i] = x*(1-c.wet) + c.line.tap(d)*c.wet
	}
}

func (c *Chorus) Reset() {
	c.line.clear()
	c.sweep.Reset()
}
