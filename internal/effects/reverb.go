package effects

// Reverb is a small Schroeder reverberator: four parallel combs into two
// series allpasses.
type Reverb struct {
	combs    [4]ring
	allpass  [2]ring
	feedback float32
	wet      float32
}

var (
	combRatios    = [4]int{1000, 1117, 1271, 1437}
	allpassRatios = [2]int{347, 213}
)

const allpassGain = 0.5

// NewReverb sizes the delay lines from room (0..1, about 50 ms at 1).
func NewReverb(sampleRate int, room, feedback, wet float64) *Reverb {
	base := max(int(float64(sampleRate)*clamp(room, 0, 1)*0.05), 10)
	r := &Reverb{
		feedback: float32(clamp(feedback, 0, 0.95)),
		wet:      float32(clamp(wet, 0, 1)),
	}
	for i := range r.combs {
		r.combs[i] = newRing(base * combRatios[i] / 1000)
	}
	for i := range r.allpass {
		r.allpass[i] = newRing(max(base*allpassRatios[i]/1000, 1))
	}
	return r
}

func (r *Reverb) Process(buf []float32) {
	for i, x := range buf {
		var sum float32
		for c := range r.combs {
			line := &r.combs[c]
			out := line.buf[line.pos]
			line.push(x + out*r.feedback)
			sum += out
		}
		y := sum * 0.25
		for a := range r.allpass {
			y = r.allpass[a].allpass(y)
		}
		buf[i] = x*(1-r.wet) + y*r.wet
	}
}

// allpass runs one sample through a Schroeder allpass built on r: flat
// magnitude response, smeared phase.
func (r *ring) allpass(x float32) float32 {
	delayed := r.buf[r.pos]
	v := x + delayed*allpassGain
	r.push(v)
	return delayed - allpassGain*v
}

func (r *Reverb) Reset() {
	for i := range r.combs {
		r.combs[i].clear()
	}
	for i := range r.allpass {
		r.allpass[i].clear()
	}
}
