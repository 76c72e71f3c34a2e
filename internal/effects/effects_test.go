package effects

import (
	"errors"
	"math"
	"testing"
)

func impulse(n int) []float32 {
	buf := make([]float32, n)
	buf[0] = 1
	return buf
}

func TestDelayEchoesAfterDelayTime(t *testing.T) {
	d := NewDelay(1000, 100, 0.5, 0.5)
	buf := impulse(400)
	d.Process(buf)
	if buf[0] != 0.5 {
		t.Fatalf("dry = %v, want 0.5", buf[0])
	}
	if buf[100] != 0.5 || buf[200] != 0.25 || buf[150] != 0 {
		t.Fatalf("echoes = %v %v %v", buf[100], buf[200], buf[150])
	}
	d.Reset()
	silent := make([]float32, 200)
	d.Process(silent)
	for i, s := range silent {
		if s != 0 {
			t.Fatalf("reset left output at %d", i)
		}
	}
}

func TestReverbTailDecays(t *testing.T) {
	r := NewReverb(44100, 0.5, 0.7, 1)
	buf := impulse(44100)
	r.Process(buf)
	var early, late float64
	for i, s := range buf {
		e := float64(s) * float64(s)
		if i < 4410 {
			early += e
		} else if i > 40000 {
			late += e
		}
	}
	if early < 1e-4 {
		t.Fatalf("expected an early tail, energy %v", early)
	}
	if late >= early {
		t.Fatalf("tail should decay: early %v late %v", early, late)
	}
}

func TestAllpassKeepsImpulseEnergy(t *testing.T) {
	line := newRing(7)
	var energy float64
	for i := 0; i < 2000; i++ {
		var x float32
		if i == 0 {
			x = 1
		}
		y := float64(line.allpass(x))
		energy += y * y
	}
	if math.Abs(energy-1) > 1e-4 {
		t.Fatalf("allpass impulse energy = %v, want 1", energy)
	}
}

func TestDriveIsBounded(t *testing.T) {
	d := NewDrive(48000, 20, 0.5, 0)
	buf := []float32{-4, -1, 0, 0.2, 1, 4}
	d.Process(buf)
	for _, s := range buf {
		if math.Abs(float64(s)) > 0.5 {
			t.Fatalf("drive output %v exceeds level", s)
		}
	}
	if buf[2] != 0 || buf[3] <= 0 || buf[1] >= 0 {
		t.Fatalf("drive should keep sign: %v", buf)
	}
}

func TestCompressorReducesLoudSignal(t *testing.T) {
	c := NewCompressor(44100, -10, 4, 1, 50, 0)
	buf := make([]float32, 2000)
	for i := range buf {
		buf[i] = 1
	}
	c.Process(buf)
	if last := buf[len(buf)-1]; last >= 1 || last < 0.3 {
		t.Fatalf("compressed level = %v", last)
	}
	quiet := []float32{0.01, 0.01}
	c.Reset()
	c.Process(quiet)
	if quiet[1] != 0.01 {
		t.Fatalf("below threshold should pass unchanged, got %v", quiet[1])
	}
}

func TestToneUnityPassesSignal(t *testing.T) {
	tone := NewTone(44100, 1, 1, 1, 300, 3000)
	buf := make([]float32, 1000)
	for i := range buf {
		buf[i] = float32(math.Sin(float64(i) * 0.1))
	}
	want := append([]float32(nil), buf...)
	tone.Process(buf)
	for i := range buf {
		if math.Abs(float64(buf[i]-want[i])) > 1e-5 {
			t.Fatalf("unity tone changed sample %d: %v vs %v", i, buf[i], want[i])
		}
	}
}

func TestTremoloAndChorusStayBounded(t *testing.T) {
	buf := make([]float32, 48000)
	for i := range buf {
		buf[i] = 1
	}
	NewTremolo(48000, 5, 1).Process(buf)
	lo, hi := float32(1), float32(0)
	for _, s := range buf {
		lo, hi = min(lo, s), max(hi, s)
	}
	if lo > 0.01 || hi < 0.99 || hi > 1 {
		t.Fatalf("tremolo range [%v, %v]", lo, hi)
	}

	c := NewChorus(48000, 15, 3, 0.8, 0.5)
	for i := range buf {
		buf[i] = 1
	}
	c.Process(buf)
	if last := buf[len(buf)-1]; math.Abs(float64(last)-1) > 1e-3 {
		t.Fatalf("chorus on DC should settle at 1, got %v", last)
	}
}

func TestParse(t *testing.T) {
	chain, err := Parse("drive:2, delay:10:0:0.5 ,reverb,tremolo:3", 48000)
	if err != nil {
		t.Fatal(err)
	}
	if len(chain) != 4 {
		t.Fatalf("chain length %d", len(chain))
	}
	if _, ok := chain[1].(*Delay); !ok {
		t.Fatalf("second effect = %T", chain[1])
	}
	buf := impulse(64)
	chain.Process(buf)
	chain.Reset()

	if c, err := Parse("", 48000); err != nil || len(c) != 0 {
		t.Fatalf("empty list = %v, %v", c, err)
	}
	if _, err := Parse("flanger", 48000); !errors.Is(err, ErrUnknownEffect) {
		t.Fatalf("unknown effect err = %v", err)
	}
	if _, err := Parse("delay:x", 48000); err == nil {
		t.Fatalf("bad argument should fail")
	}
	if _, err := Parse("tremolo:1:2:3", 48000); err == nil {
		t.Fatalf("too many arguments should fail")
	}
	if _, err := Parse("delay:NaN", 48000); err == nil {
		t.Fatalf("non-finite argument should fail")
	}
}

func TestParseClampsOutOfRangeTimes(t *testing.T) {
	for _, list := range []string{"chorus:-5", "chorus:-5:-3", "chorus:10:-40", "delay:-20", "chorus:1e12", "delay:1e12"} {
		chain, err := Parse(list, 44100)
		if err != nil {
			t.Fatalf("%s: %v", list, err)
		}
		buf := impulse(256)
		chain.Process(buf)
		for i, s := range buf {
			if math.IsNaN(float64(s)) || math.Abs(float64(s)) > 1 {
				t.Fatalf("%s: sample %d = %v", list, i, s)
			}
		}
	}
}

func TestProcessDoesNotAllocate(t *testing.T) {
	chain, err := Parse("drive,delay,reverb,comp,tone,chorus,tremolo", 48000)
	if err != nil {
		t.Fatal(err)
	}
	buf := make([]float32, 256)
	if n := testing.AllocsPerRun(50, func() { chain.Process(buf) }); n != 0 {
		t.Fatalf("Process allocated %v times", n)
	}
}
